// Command terminal is a headless floor terminal. It signs in, keeps its state
// mirror in sync with the server and prints the floor whenever it changes.
// Commands typed on stdin drive the order lifecycle.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/background"
	catalogapp "github.com/chrisfalcon1208/apprest/internal/application/catalog"
	"github.com/chrisfalcon1208/apprest/internal/application/checkout"
	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/application/ordering"
	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/application/report"
	"github.com/chrisfalcon1208/apprest/internal/application/session"
	"github.com/chrisfalcon1208/apprest/internal/application/syncer"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/broadcast"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/config"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/gateway"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
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

	terminalID := cfg.Terminal.TerminalID
	if terminalID == "" {
		terminalID = uuid.NewString()
	}
	log = log.With(zap.String("terminal_id", terminalID))

	sessions := session.NewManager(log)
	gw, err := gateway.New(gateway.Config{
		BaseURL:    cfg.Terminal.ServerURL,
		TerminalID: terminalID,
		Timeout:    cfg.Sync.RequestTimeout,
	}, sessions, log)
	if err != nil {
		log.Fatal("Failed to create gateway", zap.Error(err))
	}

	store := mirror.New(cfg.Sync.DeliveryFee)
	jobs := background.New(log,
		background.WithTimeout(cfg.Sync.RequestTimeout),
		background.WithUnauthorizedHandler(sessions.ForceLogout),
	)

	var bc syncer.Broadcaster = broadcast.NewHub(log)
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = client.Close()
		}()
		bc = broadcast.NewRedis(client, log, broadcast.WithChannel(cfg.Redis.Channel))
		log.Info("Refresh broadcast over redis", zap.String("addr", cfg.Redis.Addr()))
	}

	engine := syncer.New(syncer.Config{
		Interval:       cfg.Sync.PollInterval,
		RequestTimeout: cfg.Sync.RequestTimeout,
		Origin:         terminalID,
	}, gw, store, sessions, bc, log)
	engine.Attach(jobs)

	floor := &console{
		out:      os.Stdout,
		store:    store,
		orders:   ordering.NewService(store, gw, jobs, sessions, log),
		checkout: checkout.NewService(store, gw, jobs, sessions, log, checkout.WithDefaultCustomer(cfg.Sync.DefaultCustomer)),
		catalog:  catalogapp.NewService(store, gw, engine, sessions, log),
		reports:  report.NewService(store),
	}
	engine.Subscribe(floor.onChange)
	sessions.Subscribe(func(ev session.Event) {
		if ev.Forced {
			log.Warn("Session ended by the server, sign in again", zap.Error(ev.Reason))
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loginCtx, cancel := context.WithTimeout(ctx, cfg.Sync.RequestTimeout)
	_, err = sessions.Login(loginCtx, gw, remote.Credentials{Email: cfg.Terminal.Email, Password: cfg.Terminal.Password})
	cancel()
	if err != nil {
		log.Fatal("Failed to sign in", zap.String("server", cfg.Terminal.ServerURL), zap.Error(err))
	}

	if err := engine.Start(ctx); err != nil {
		log.Fatal("Failed to start sync engine", zap.Error(err))
	}

	go floor.run(ctx, os.Stdin, stop)
	<-ctx.Done()
	log.Info("Shutting down terminal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := jobs.Close(shutdownCtx); err != nil {
		log.Warn("Background requests still pending at shutdown", zap.Error(err))
	}
	engine.Stop()
	if err := sessions.Logout(shutdownCtx, gw); err != nil {
		log.Warn("Logout failed", zap.Error(err))
	}
	log.Info("Terminal exited")
}
