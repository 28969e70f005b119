package router

import (
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/auth"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/logger"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/handler"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Prefix returns the versioned API path prefix
func (r *Router) Prefix() string {
	return "/api/" + r.apiVersion
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.Prefix())
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Deps are the stores and services behind the API
type Deps struct {
	Logger      *zap.Logger
	JWT         *auth.JWTService
	Users       handler.UserStore
	Sessions    middleware.SessionStore
	Snapshots   handler.SnapshotSource
	Categories  handler.CategoryStore
	Products    handler.ProductStore
	Profile     handler.ProfileStore
	Lines       handler.LineStore
	Sales       handler.SaleStore
	DB          handler.Pinger
	MaxBodySize int64
	// LoginLimiter throttles login attempts when set
	LoginLimiter *middleware.RateLimiter
}

// New builds the complete HTTP engine: shared middleware, the unauthenticated
// health check and the versioned API.
func New(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(
		logger.GinMiddleware(deps.Logger),
		logger.Recovery(deps.Logger),
		middleware.TerminalID(),
	)
	if deps.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(deps.MaxBodySize))
	}

	system := handler.NewSystemHandler(deps.DB)
	engine.GET("/health", system.Health)

	r := NewRouter(engine)
	if deps.LoginLimiter != nil {
		engine.Use(middleware.RateLimit(deps.LoginLimiter, r.Prefix()+"/auth/login"))
	}
	engine.Use(middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
		JWTService: deps.JWT,
		Sessions:   deps.Sessions,
		SkipPaths:  []string{"/health", r.Prefix() + "/auth/login"},
		Logger:     deps.Logger,
	}))

	r.Register(handler.NewAuthHandler(deps.Users, deps.JWT)).
		Register(handler.NewSnapshotHandler(deps.Snapshots)).
		Register(handler.NewCatalogHandler(deps.Categories, deps.Products, deps.Profile)).
		Register(handler.NewOrderHandler(deps.Lines, deps.Profile)).
		Register(handler.NewSaleHandler(deps.Sales))
	r.Setup()
	return engine
}

// DatabaseDeps wires every store to its gorm repository
func DatabaseDeps(db *persistence.Database, jwt *auth.JWTService, salesWindow int, zl *zap.Logger) Deps {
	users := persistence.NewGormUserRepository(db.DB)
	return Deps{
		Logger:     zl,
		JWT:        jwt,
		Users:      users,
		Sessions:   users,
		Snapshots:  persistence.NewSnapshotReader(db.DB, salesWindow),
		Categories: persistence.NewGormCategoryRepository(db.DB),
		Products:   persistence.NewGormProductRepository(db.DB),
		Profile:    persistence.NewGormProfileRepository(db.DB),
		Lines:      persistence.NewGormOrderLineRepository(db.DB),
		Sales:      persistence.NewGormSaleRepository(db.DB),
		DB:         db,
	}
}
