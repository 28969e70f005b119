package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository stores floor users and their active session id
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create adds a user with an already hashed password
func (r *GormUserRepository) Create(ctx context.Context, u identity.User, passwordHash string) (string, error) {
	if !u.Role.IsValid() {
		return "", shared.NewDomainError("INVALID_INPUT", "Unknown role")
	}
	m := &models.UserModel{
		BaseModel:    models.BaseModel{ID: uuid.NewString()},
		Name:         strings.TrimSpace(u.Name),
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		PasswordHash: passwordHash,
		Role:         string(u.Role),
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return "", err
	}
	return m.ID, nil
}

// FindByEmail returns the full row, password hash included, for login
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.UserModel, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindAll lists the redacted users by name
func (r *GormUserRepository) FindAll(ctx context.Context) ([]identity.User, error) {
	return findUsers(r.db.WithContext(ctx))
}

func findUsers(db *gorm.DB) ([]identity.User, error) {
	var rows []models.UserModel
	if err := db.Select("id", "name", "email", "role").Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]identity.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Count returns the number of users
func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).Count(&n).Error
	return n, err
}

// SetTokenID records the user's active session credential. An empty id
// revokes whatever credential was active.
func (r *GormUserRepository) SetTokenID(ctx context.Context, userID, tokenID string) error {
	updates := map[string]any{"token_id": tokenID, "updated_at": time.Now()}
	if tokenID != "" {
		updates["last_login_at"] = time.Now()
	}
	result := r.db.WithContext(ctx).Model(&models.UserModel{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TokenID returns the user's active session credential id
func (r *GormUserRepository) TokenID(ctx context.Context, userID string) (string, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).Select("token_id").First(&m, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return m.TokenID, nil
}
