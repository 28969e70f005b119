package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/infrastructure/auth"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/config"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/logger"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/middleware"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting apprest server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	seed := persistence.DefaultSeedOptions()
	if cfg.Sync.TableCount > 0 {
		seed.TableCount = cfg.Sync.TableCount
	}
	if cfg.Terminal.Email != "" && cfg.Terminal.Password != "" {
		seed.AdminEmail, seed.AdminPassword = cfg.Terminal.Email, cfg.Terminal.Password
	}
	if err := persistence.Seed(context.Background(), db.DB, seed, log); err != nil {
		log.Fatal("Failed to seed database", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	deps := router.DatabaseDeps(db, auth.NewJWTService(cfg.JWT), cfg.Sync.SalesWindow, log)
	deps.MaxBodySize = cfg.HTTP.MaxBodySize
	if cfg.HTTP.LoginAttempts > 0 {
		deps.LoginLimiter = middleware.NewRateLimiter(cfg.HTTP.LoginAttempts, time.Minute)
		defer deps.LoginLimiter.Stop()
	}
	engine := router.New(deps)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}
