// Package syncer keeps the state mirror reconciled with the server: a
// periodic pull, a pull after every mutation that touched the server, and a
// broadcast that lets other contexts of the same client pull early.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/background"
	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/application/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Signal is the cross-context "something changed, pull now" message
type Signal struct {
	Origin string    `json:"origin"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Broadcaster carries signals between contexts of the same client
type Broadcaster interface {
	Publish(ctx context.Context, sig Signal) error
	// Subscribe registers fn and returns once the subscription is live
	Subscribe(ctx context.Context, fn func(Signal)) (unsubscribe func(), err error)
}

// Config holds the engine's tunables
type Config struct {
	Interval       time.Duration
	RequestTimeout time.Duration
	// Origin identifies this context in broadcasts; generated when empty
	Origin string
}

// Engine is the synchronization engine of one client context
type Engine struct {
	cfg     Config
	gw      remote.Gateway
	store   *mirror.Store
	session *session.Manager
	bc      Broadcaster
	logger  *zap.Logger

	mu      sync.Mutex
	pulling bool
	dirty   bool
	idle    *sync.Cond
	lastErr error
	pulls   int

	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsub  func()
}

// New creates an engine. bc may be nil when the client has a single context.
func New(cfg Config, gw remote.Gateway, store *mirror.Store, sess *session.Manager, bc Broadcaster, logger *zap.Logger) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Origin == "" {
		cfg.Origin = uuid.NewString()
	}
	e := &Engine{
		cfg:     cfg,
		gw:      gw,
		store:   store,
		session: sess,
		bc:      bc,
		logger:  logger.Named("syncer").With(zap.String("origin", cfg.Origin)),
	}
	e.idle = sync.NewCond(&e.mu)

	sess.Subscribe(func(ev session.Event) {
		if ev.Active {
			e.RequestRefresh()
			return
		}
		e.store.Reset()
	})
	return e
}

// Origin returns this context's broadcast identity
func (e *Engine) Origin() string {
	return e.cfg.Origin
}

// Subscribe registers a local observer of mirror changes
func (e *Engine) Subscribe(fn func(mirror.Change)) {
	e.store.Subscribe(fn)
}

// Attach makes every background job trigger a pull, and a broadcast when it
// succeeded.
func (e *Engine) Attach(d *background.Dispatcher) {
	d.AfterEach(func(job background.Job, err error) {
		if err == nil {
			e.Broadcast(job.Name)
		}
		e.RequestRefresh()
	})
}

// Start launches the interval timer and the broadcast subscription
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	if e.bc != nil {
		unsub, err := e.bc.Subscribe(ctx, e.onSignal)
		if err != nil {
			cancel()
			return fmt.Errorf("subscribe to refresh broadcast: %w", err)
		}
		e.unsub = unsub
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.RequestRefresh()
			}
		}
	}()

	e.logger.Info("sync engine started", zap.Duration("interval", e.cfg.Interval))
	e.RequestRefresh()
	return nil
}

// Stop halts the timer and subscription and waits for an in-flight pull
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	if e.unsub != nil {
		e.unsub()
	}
	e.wg.Wait()
	e.WaitIdle()
	e.logger.Info("sync engine stopped")
}

func (e *Engine) onSignal(sig Signal) {
	if sig.Origin == e.cfg.Origin {
		return
	}
	e.logger.Debug("refresh broadcast received", zap.String("from", sig.Origin), zap.String("reason", sig.Reason))
	e.RequestRefresh()
}

// Broadcast tells the other contexts to pull now
func (e *Engine) Broadcast(reason string) {
	if e.bc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.bc.Publish(ctx, Signal{Origin: e.cfg.Origin, Reason: reason, At: time.Now()}); err != nil {
		e.logger.Warn("refresh broadcast failed", zap.String("reason", reason), zap.Error(err))
	}
}

// RequestRefresh schedules a pull without waiting for it. Requests made
// while a pull is running collapse into one follow-up pull.
func (e *Engine) RequestRefresh() {
	e.mu.Lock()
	if e.pulling {
		e.dirty = true
		e.mu.Unlock()
		return
	}
	e.pulling = true
	e.mu.Unlock()

	go func() {
		for {
			err := e.pull(context.Background())

			e.mu.Lock()
			e.lastErr = err
			e.pulls++
			if e.dirty {
				e.dirty = false
				e.mu.Unlock()
				continue
			}
			e.pulling = false
			e.idle.Broadcast()
			e.mu.Unlock()
			return
		}
	}()
}

// WaitIdle blocks until no pull is running or pending
func (e *Engine) WaitIdle() {
	e.mu.Lock()
	for e.pulling {
		e.idle.Wait()
	}
	e.mu.Unlock()
}

// LastError returns the outcome of the most recent pull
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Pulls returns how many pulls have completed
func (e *Engine) Pulls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pulls
}

// Refresh pulls synchronously and reports the outcome
func (e *Engine) Refresh(ctx context.Context) error {
	return e.pull(ctx)
}

// pull fetches a full snapshot and applies it. On any failure the mirror is
// left as it was, and a snapshot that outlived the session is dropped.
func (e *Engine) pull(ctx context.Context) error {
	epoch := e.store.Epoch()
	if _, ok := e.session.Token(); !ok {
		return remote.ErrNoSession
	}
	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := e.gw.FetchSnapshot(ctx)
	if err != nil {
		switch {
		case errors.Is(err, remote.ErrUnauthorized):
			e.session.ForceLogout(err)
		case errors.Is(err, remote.ErrNoSession):
		default:
			e.logger.Warn("snapshot pull failed, keeping current mirror", zap.Error(err))
		}
		return err
	}

	if !e.store.ApplySnapshotAt(epoch, snap) {
		e.logger.Debug("snapshot discarded, session changed during pull")
		return remote.ErrNoSession
	}
	e.logger.Debug("snapshot applied",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("lines", len(snap.Lines)),
		zap.Int("sales", len(snap.Sales)),
	)
	return nil
}
