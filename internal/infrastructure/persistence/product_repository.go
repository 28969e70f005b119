package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository stores menu items
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindAll lists every product ordered by code
func (r *GormProductRepository) FindAll(ctx context.Context) ([]catalog.Product, error) {
	return findProducts(r.db.WithContext(ctx))
}

func findProducts(db *gorm.DB) ([]catalog.Product, error) {
	var rows []models.ProductModel
	if err := db.Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save creates the product when p.ID is empty and updates it otherwise
func (r *GormProductRepository) Save(ctx context.Context, p catalog.Product) (string, error) {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return "", err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var categories int64
		if err := tx.Model(&models.CategoryModel{}).Where("id = ?", p.CategoryID).Count(&categories).Error; err != nil {
			return err
		}
		if categories == 0 {
			return shared.NewDomainError("INVALID_INPUT", "Product category does not exist")
		}

		dup := tx.Model(&models.ProductModel{}).Where("UPPER(code) = ?", strings.ToUpper(p.Code))
		if p.ID != "" {
			dup = dup.Where("id <> ?", p.ID)
		}
		var clashes int64
		if err := dup.Count(&clashes).Error; err != nil {
			return err
		}
		if clashes > 0 {
			return shared.ErrDuplicateCode
		}

		if p.ID == "" {
			p.ID = uuid.NewString()
			return tx.Create(models.ProductModelFromDomain(p)).Error
		}
		result := tx.Model(&models.ProductModel{}).Where("id = ?", p.ID).Updates(map[string]any{
			"code":        p.Code,
			"name":        p.Name,
			"description": p.Description,
			"price":       p.Price,
			"kind":        string(p.Kind),
			"category_id": p.CategoryID,
			"image_ref":   p.ImageRef,
			"updated_at":  time.Now(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// Delete removes a product. Historical sales keep their own copy of it.
func (r *GormProductRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
