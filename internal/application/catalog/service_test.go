package catalog

import (
	"context"
	"testing"

	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/application/remote/remotetest"
	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRefresher is a mock implementation of Refresher
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) RequestRefresh() {
	m.Called()
}

// MockSessionEnder is a mock implementation of SessionEnder
type MockSessionEnder struct {
	mock.Mock
}

func (m *MockSessionEnder) ForceLogout(reason error) {
	m.Called(reason)
}

type staticTokens struct{}

func (staticTokens) Token() (string, bool) { return "t1", true }

func setup(t *testing.T) (*Service, *remotetest.Gateway, *mirror.Store, *MockRefresher, *MockSessionEnder) {
	t.Helper()
	gw := remotetest.New(10)
	gw.Tokens = staticTokens{}
	gw.IssueToken("t1", "u-admin")
	gw.SeedCategory(catalog.Category{ID: "c-food", Name: "Mains", Kind: catalog.KindFood})
	gw.SeedCategory(catalog.Category{ID: "c-drinks", Name: "Drinks", Kind: catalog.KindBeverage})
	gw.SeedCategory(catalog.Category{ID: "c-empty", Name: "Desserts", Kind: catalog.KindFood})
	gw.SeedProduct(catalog.Product{ID: "p1", Code: "BURG", Name: "Burger", Price: decimal.NewFromInt(25), Kind: catalog.KindFood, CategoryID: "c-food"})

	store := mirror.New(decimal.Zero)
	snap, err := gw.FetchSnapshot(context.Background())
	require.NoError(t, err)
	store.ApplySnapshot(snap)

	refresh := new(MockRefresher)
	sessions := new(MockSessionEnder)
	return NewService(store, gw, refresh, sessions, zap.NewNop()), gw, store, refresh, sessions
}

func TestSaveCategory(t *testing.T) {
	t.Run("creates with server id", func(t *testing.T) {
		svc, gw, _, refresh, _ := setup(t)
		refresh.On("RequestRefresh").Return().Once()

		c, err := svc.SaveCategory(context.Background(), catalog.Category{Name: "  Salads ", Kind: catalog.KindFood})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "Salads", c.Name)
		assert.Len(t, gw.Categories(), 4)
		refresh.AssertExpectations(t)
	})

	t.Run("name unique per kind, ignoring case", func(t *testing.T) {
		svc, gw, _, refresh, _ := setup(t)

		_, err := svc.SaveCategory(context.Background(), catalog.Category{Name: "MAINS", Kind: catalog.KindFood})
		assert.ErrorIs(t, err, shared.ErrDuplicateName)
		assert.Len(t, gw.Categories(), 3)
		refresh.AssertNotCalled(t, "RequestRefresh")
	})

	t.Run("same name in the other kind is fine", func(t *testing.T) {
		svc, _, _, refresh, _ := setup(t)
		refresh.On("RequestRefresh").Return()

		_, err := svc.SaveCategory(context.Background(), catalog.Category{Name: "Mains", Kind: catalog.KindBeverage})
		assert.NoError(t, err)
	})

	t.Run("rename keeps its own name free", func(t *testing.T) {
		svc, _, _, refresh, _ := setup(t)
		refresh.On("RequestRefresh").Return()

		c, err := svc.SaveCategory(context.Background(), catalog.Category{ID: "c-food", Name: "mains", Kind: catalog.KindFood})
		require.NoError(t, err)
		assert.Equal(t, "c-food", c.ID)
	})

	t.Run("invalid input", func(t *testing.T) {
		svc, _, _, _, _ := setup(t)
		_, err := svc.SaveCategory(context.Background(), catalog.Category{Name: " ", Kind: catalog.KindFood})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		_, err = svc.SaveCategory(context.Background(), catalog.Category{Name: "Snacks", Kind: "SNACK"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		_, err = svc.SaveCategory(context.Background(), catalog.Category{ID: "ghost", Name: "Snacks", Kind: catalog.KindFood})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestDeleteCategory(t *testing.T) {
	t.Run("in use is refused and nothing changes", func(t *testing.T) {
		svc, gw, store, refresh, _ := setup(t)

		err := svc.DeleteCategory(context.Background(), "c-food")
		assert.ErrorIs(t, err, shared.ErrCategoryInUse)
		assert.Len(t, gw.Categories(), 3)
		assert.Len(t, store.Categories(), 3)
		assert.Len(t, store.Products(), 1)
		assert.Zero(t, gw.CountCalls("DeleteCategory"))
		refresh.AssertNotCalled(t, "RequestRefresh")
	})

	t.Run("server conflict maps to in use", func(t *testing.T) {
		svc, gw, _, _, _ := setup(t)
		gw.FailNext("DeleteCategory", &remote.Failure{Kind: remote.ErrConflict, Status: 409, Code: "CATEGORY_IN_USE"})

		err := svc.DeleteCategory(context.Background(), "c-empty")
		assert.ErrorIs(t, err, shared.ErrCategoryInUse)
	})

	t.Run("unused category is deleted", func(t *testing.T) {
		svc, gw, _, refresh, _ := setup(t)
		refresh.On("RequestRefresh").Return().Once()

		require.NoError(t, svc.DeleteCategory(context.Background(), "c-empty"))
		assert.Len(t, gw.Categories(), 2)
		refresh.AssertExpectations(t)
	})
}

func TestSaveProduct(t *testing.T) {
	base := catalog.Product{Code: "COLA", Name: "Cola", Price: decimal.RequireFromString("3.50"), Kind: catalog.KindBeverage, CategoryID: "c-drinks"}

	tests := []struct {
		name   string
		mutate func(p *catalog.Product)
		want   error
	}{
		{"valid", func(p *catalog.Product) {}, nil},
		{"negative price", func(p *catalog.Product) { p.Price = decimal.NewFromInt(-1) }, shared.ErrInvalidInput},
		{"missing code", func(p *catalog.Product) { p.Code = "" }, shared.ErrInvalidInput},
		{"unknown category", func(p *catalog.Product) { p.CategoryID = "nope" }, shared.ErrInvalidInput},
		{"duplicate code", func(p *catalog.Product) { p.Code = "burg" }, shared.ErrDuplicateCode},
		{"unknown id", func(p *catalog.Product) { p.ID = "ghost" }, shared.ErrProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, refresh, _ := setup(t)
			refresh.On("RequestRefresh").Return().Maybe()

			p := base
			tt.mutate(&p)
			got, err := svc.SaveProduct(context.Background(), p)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestDeleteProduct(t *testing.T) {
	svc, gw, _, refresh, _ := setup(t)
	refresh.On("RequestRefresh").Return()

	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), "ghost"), shared.ErrProductNotFound)
	require.NoError(t, svc.DeleteProduct(context.Background(), "p1"))
	assert.Equal(t, 1, gw.CountCalls("DeleteProduct"))
}

func TestSaveProfile(t *testing.T) {
	svc, gw, store, refresh, _ := setup(t)
	refresh.On("RequestRefresh").Return()

	assert.ErrorIs(t, svc.SaveProfile(context.Background(), venue.Profile{Name: "", TableCount: 5}), shared.ErrInvalidInput)
	assert.ErrorIs(t, svc.SaveProfile(context.Background(), venue.Profile{Name: "Bistro", TableCount: 0}), shared.ErrInvalidInput)

	require.NoError(t, store.Update(func(tx *mirror.Tx) error {
		tx.Insert(&order.Line{LocalID: "L1", TableID: "8", ProductID: "p1", Quantity: 1, Status: order.StatusUncommitted})
		return nil
	}))
	err := svc.SaveProfile(context.Background(), venue.Profile{Name: "Bistro", TableCount: 6})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	require.NoError(t, svc.SaveProfile(context.Background(), venue.Profile{Name: " Bistro ", TableCount: 12}))
	snap, err := gw.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bistro", snap.Profile.Name)
	assert.Equal(t, 12, snap.Profile.TableCount)
}

func TestUnauthorizedForcesLogout(t *testing.T) {
	svc, gw, _, _, sessions := setup(t)
	gw.RevokeAll()
	sessions.On("ForceLogout", mock.Anything).Return().Once()

	_, err := svc.SaveCategory(context.Background(), catalog.Category{Name: "Salads", Kind: catalog.KindFood})
	assert.ErrorIs(t, err, remote.ErrUnauthorized)
	sessions.AssertExpectations(t)
}

func TestFilters(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	assert.Len(t, svc.Categories(""), 3)
	assert.Len(t, svc.Categories(catalog.KindFood), 2)
	assert.Len(t, svc.Products("c-food"), 1)
	assert.Empty(t, svc.Products("c-drinks"))
}
