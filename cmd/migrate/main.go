package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chrisfalcon1208/apprest/internal/infrastructure/config"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/logger"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Schema is up to date", zap.String("driver", cfg.Database.Driver))
	case "seed":
		if err := db.Migrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		opts := persistence.DefaultSeedOptions()
		if cfg.Sync.TableCount > 0 {
			opts.TableCount = cfg.Sync.TableCount
		}
		if cfg.Terminal.Email != "" && cfg.Terminal.Password != "" {
			opts.AdminEmail, opts.AdminPassword = cfg.Terminal.Email, cfg.Terminal.Password
		}
		if err := persistence.Seed(context.Background(), db.DB, opts, log); err != nil {
			log.Fatal("Seed failed", zap.Error(err))
		}
		log.Info("Seed complete")
	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: migrate [flags] <command>

Commands:
  up      Create or update every table
  seed    Migrate, then create the business profile and admin user if missing

Flags:
  -log-level string   Log level (debug, info, warn, error) (default "info")

Configuration is read from apprest.toml and APPREST_* environment variables.`)
}
