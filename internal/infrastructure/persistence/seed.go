package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/auth"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedOptions describes the first-start data
type SeedOptions struct {
	BusinessName  string
	TableCount    int
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// DefaultSeedOptions returns the stock profile and admin account
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		BusinessName:  "My Restaurant",
		TableCount:    10,
		AdminName:     "Administrator",
		AdminEmail:    "admin@apprest.local",
		AdminPassword: "admin",
	}
}

// Seed creates the business profile and an admin user when missing. It is
// safe to run on every start.
func Seed(ctx context.Context, db *gorm.DB, opts SeedOptions, logger *zap.Logger) error {
	profiles := NewGormProfileRepository(db)
	if _, err := profiles.Get(ctx); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("read profile: %w", err)
		}
		if err := profiles.Save(ctx, venue.Profile{Name: opts.BusinessName, TableCount: opts.TableCount}); err != nil {
			return fmt.Errorf("seed profile: %w", err)
		}
		logger.Info("business profile seeded", zap.Int("tables", opts.TableCount))
	}

	users := NewGormUserRepository(db)
	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := users.Create(ctx, identity.User{Name: opts.AdminName, Email: opts.AdminEmail, Role: identity.RoleAdmin}, hash); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Warn("admin user seeded, change its password", zap.String("email", opts.AdminEmail))
	return nil
}
