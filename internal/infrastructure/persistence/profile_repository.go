package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProfileRepository stores the business profile singleton
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// Get returns the profile, NOT_FOUND before the first seed
func (r *GormProfileRepository) Get(ctx context.Context) (venue.Profile, error) {
	return getProfile(r.db.WithContext(ctx))
}

func getProfile(db *gorm.DB) (venue.Profile, error) {
	var m models.ProfileModel
	if err := db.First(&m, "id = ?", models.ProfileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return venue.Profile{}, shared.ErrNotFound
		}
		return venue.Profile{}, err
	}
	return m.ToDomain(), nil
}

// Save writes the whole profile
func (r *GormProfileRepository) Save(ctx context.Context, p venue.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m := models.ProfileModelFromDomain(p)
	m.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(m).Error
}
