// Package apitest runs the complete API over an in-memory database for
// tests of HTTP clients and handlers.
package apitest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/auth"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/config"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Admin credentials seeded into every test server
const (
	AdminEmail    = "admin@apprest.local"
	AdminPassword = "admin"
	TableCount    = 10
)

// Server is a running API backed by sqlite in memory
type Server struct {
	*httptest.Server
	DB  *persistence.Database
	JWT *auth.JWTService
}

// New starts a seeded server that is closed when the test ends
func New(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	opts := persistence.DefaultSeedOptions()
	opts.AdminEmail, opts.AdminPassword, opts.TableCount = AdminEmail, AdminPassword, TableCount
	require.NoError(t, persistence.Seed(context.Background(), db.DB, opts, zap.NewNop()))

	jwt := auth.NewJWTService(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "apprest-test"})
	deps := router.DatabaseDeps(db, jwt, 50, zap.NewNop())
	deps.MaxBodySize = 1 << 20

	srv := httptest.NewServer(router.New(deps))
	t.Cleanup(func() {
		srv.Close()
		_ = db.Close()
	})
	return &Server{Server: srv, DB: db, JWT: jwt}
}

// Menu is the catalog created by SeedMenu
type Menu struct {
	CategoryID string
	Tacos      string
	Soup       string
}

// SeedMenu adds one category with two products priced 20.00 and 15.00
func (s *Server) SeedMenu(t *testing.T) Menu {
	t.Helper()
	ctx := context.Background()
	catID, err := persistence.NewGormCategoryRepository(s.DB.DB).Save(ctx, catalog.Category{Name: "Mains", Kind: catalog.KindFood})
	require.NoError(t, err)
	prods := persistence.NewGormProductRepository(s.DB.DB)
	tacos, err := prods.Save(ctx, catalog.Product{Code: "A", Name: "Tacos", Price: decimal.RequireFromString("20.00"), Kind: catalog.KindFood, CategoryID: catID})
	require.NoError(t, err)
	soup, err := prods.Save(ctx, catalog.Product{Code: "B", Name: "Soup", Price: decimal.RequireFromString("15.00"), Kind: catalog.KindFood, CategoryID: catID})
	require.NoError(t, err)
	return Menu{CategoryID: catID, Tacos: tacos, Soup: soup}
}
