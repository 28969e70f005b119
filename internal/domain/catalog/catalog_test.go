package catalog

import (
	"errors"
	"testing"

	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCategory_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cat     Category
		wantErr bool
	}{
		{"valid food", Category{Name: "Tacos", Kind: KindFood}, false},
		{"valid beverage", Category{Name: "Aguas", Kind: KindBeverage}, false},
		{"blank name", Category{Name: "   ", Kind: KindFood}, true},
		{"unknown kind", Category{Name: "Tacos", Kind: "DESSERT"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheckCategoryUnique(t *testing.T) {
	existing := []Category{
		{ID: "c1", Name: "Tacos", Kind: KindFood},
		{ID: "c2", Name: "Refrescos", Kind: KindBeverage},
	}

	assert.True(t, errors.Is(CheckCategoryUnique(existing, Category{Name: " tacos ", Kind: KindFood}), shared.ErrDuplicateName))
	assert.NoError(t, CheckCategoryUnique(existing, Category{Name: "Tacos", Kind: KindBeverage}), "same name, other kind")
	assert.NoError(t, CheckCategoryUnique(existing, Category{ID: "c1", Name: "TACOS", Kind: KindFood}), "renaming itself")
	assert.NoError(t, CheckCategoryUnique(existing, Category{Name: "Tortas", Kind: KindFood}))
}

func TestCheckCategoryDeletable(t *testing.T) {
	products := []Product{{ID: "p1", CategoryID: "c1"}}

	assert.True(t, errors.Is(CheckCategoryDeletable(products, "c1"), shared.ErrCategoryInUse))
	assert.NoError(t, CheckCategoryDeletable(products, "c2"))
}

func TestProduct_Validate(t *testing.T) {
	valid := Product{Code: "T01", Name: "Taco", Price: decimal.NewFromInt(20), Kind: KindFood, CategoryID: "c1"}
	assert.NoError(t, valid.Validate())

	negative := valid
	negative.Price = decimal.NewFromInt(-1)
	assert.Error(t, negative.Validate())

	free := valid
	free.Price = decimal.Zero
	assert.NoError(t, free.Validate())

	noCategory := valid
	noCategory.CategoryID = ""
	assert.Error(t, noCategory.Validate())

	noCode := valid
	noCode.Code = " "
	assert.Error(t, noCode.Validate())
}

func TestCheckProductCodeUnique(t *testing.T) {
	existing := []Product{{ID: "p1", Code: "T01"}}

	assert.True(t, errors.Is(CheckProductCodeUnique(existing, Product{Code: "t01"}), shared.ErrDuplicateCode))
	assert.NoError(t, CheckProductCodeUnique(existing, Product{ID: "p1", Code: "T01"}))
	assert.NoError(t, CheckProductCodeUnique(existing, Product{Code: "T02"}))
}
