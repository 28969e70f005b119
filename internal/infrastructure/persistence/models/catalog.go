package models

import (
	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CategoryModel is the persistence model for a menu category
type CategoryModel struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null"`
	Kind        string `gorm:"type:varchar(20);not null;index"`
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain category
func (m *CategoryModel) ToDomain() catalog.Category {
	return catalog.Category{
		ID:          m.ID,
		Name:        m.Name,
		Kind:        catalog.Kind(m.Kind),
		Description: m.Description,
	}
}

// CategoryModelFromDomain converts a domain category
func CategoryModelFromDomain(c catalog.Category) *CategoryModel {
	return &CategoryModel{
		BaseModel:   BaseModel{ID: c.ID},
		Name:        c.Name,
		Kind:        string(c.Kind),
		Description: c.Description,
	}
}

// ProductModel is the persistence model for a menu item
type ProductModel struct {
	BaseModel
	Code        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Kind        string          `gorm:"type:varchar(20);not null"`
	CategoryID  string          `gorm:"type:varchar(36);not null;index"`
	ImageRef    string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain product
func (m *ProductModel) ToDomain() catalog.Product {
	return catalog.Product{
		ID:          m.ID,
		Code:        m.Code,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Kind:        catalog.Kind(m.Kind),
		CategoryID:  m.CategoryID,
		ImageRef:    m.ImageRef,
	}
}

// ProductModelFromDomain converts a domain product
func ProductModelFromDomain(p catalog.Product) *ProductModel {
	return &ProductModel{
		BaseModel:   BaseModel{ID: p.ID},
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Kind:        string(p.Kind),
		CategoryID:  p.CategoryID,
		ImageRef:    p.ImageRef,
	}
}
