package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCategoryRepository stores menu categories
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindAll lists every category, food first, then by name
func (r *GormCategoryRepository) FindAll(ctx context.Context) ([]catalog.Category, error) {
	return findCategories(r.db.WithContext(ctx))
}

func findCategories(db *gorm.DB) ([]catalog.Category, error) {
	var rows []models.CategoryModel
	if err := db.Order("kind DESC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.Category, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save creates the category when c.ID is empty and updates it otherwise.
// Updating an id that does not exist is NOT_FOUND.
func (r *GormCategoryRepository) Save(ctx context.Context, c catalog.Category) (string, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return "", err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var same []models.CategoryModel
		if err := tx.Where("kind = ?", string(c.Kind)).Find(&same).Error; err != nil {
			return err
		}
		existing := make([]catalog.Category, 0, len(same))
		for i := range same {
			existing = append(existing, same[i].ToDomain())
		}
		if err := catalog.CheckCategoryUnique(existing, c); err != nil {
			return err
		}

		if c.ID == "" {
			c.ID = uuid.NewString()
			return tx.Create(models.CategoryModelFromDomain(c)).Error
		}
		result := tx.Model(&models.CategoryModel{}).Where("id = ?", c.ID).Updates(map[string]any{
			"name":        c.Name,
			"kind":        string(c.Kind),
			"description": c.Description,
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
	return c.ID, nil
}

// Delete removes a category no product references
func (r *GormCategoryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inUse int64
		if err := tx.Model(&models.ProductModel{}).Where("category_id = ?", id).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return shared.ErrCategoryInUse
		}
		result := tx.Delete(&models.CategoryModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Exists reports whether a category id is known
func (r *GormCategoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	var m models.CategoryModel
	err := r.db.WithContext(ctx).Select("id").First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
