// Package background runs the remote side of optimistic mutations.
package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"go.uber.org/zap"
)

// Job is one background request. Jobs sharing a Key run one at a time in
// submission order; jobs with different keys run concurrently.
type Job struct {
	Key  string
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher executes jobs without blocking the caller. Failures never
// propagate back: they are logged, and an authorization failure is reported
// through the unauthorized hook.
type Dispatcher struct {
	logger         *zap.Logger
	timeout        time.Duration
	onUnauthorized func(err error)
	afterEach      []func(job Job, err error)

	mu      sync.Mutex
	queues  map[string][]Job
	closed  bool
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithTimeout bounds each job; zero leaves it to the transport
func WithTimeout(d time.Duration) Option {
	return func(b *Dispatcher) {
		b.timeout = d
	}
}

// WithUnauthorizedHandler is called once per job that fails with
// remote.ErrUnauthorized
func WithUnauthorizedHandler(fn func(err error)) Option {
	return func(b *Dispatcher) {
		b.onUnauthorized = fn
	}
}

// WithAfterEach registers a hook run after every job, successful or not
func WithAfterEach(fn func(job Job, err error)) Option {
	return func(b *Dispatcher) {
		b.afterEach = append(b.afterEach, fn)
	}
}

// New creates a dispatcher
func New(logger *zap.Logger, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		logger:  logger.Named("background"),
		queues:  make(map[string][]Job),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AfterEach adds a hook after construction, for wiring cycles
func (d *Dispatcher) AfterEach(fn func(job Job, err error)) {
	d.mu.Lock()
	d.afterEach = append(d.afterEach, fn)
	d.mu.Unlock()
}

// Submit queues a job. It never blocks on the network.
func (d *Dispatcher) Submit(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("job dropped after shutdown", zap.String("job", job.Name), zap.String("key", job.Key))
		return
	}
	q, running := d.queues[job.Key]
	d.queues[job.Key] = append(q, job)
	if running {
		return
	}
	d.wg.Add(1)
	go d.drain(job.Key)
}

// drain runs the key's queue until it is empty. The queue map entry exists
// exactly while a drain goroutine owns the key.
func (d *Dispatcher) drain(key string) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := q[0]
		d.queues[key] = q[1:]
		hooks := make([]func(Job, error), len(d.afterEach))
		copy(hooks, d.afterEach)
		d.mu.Unlock()

		err := d.run(job)
		for _, hook := range hooks {
			d.safely(job, func() { hook(job, err) })
		}
	}
}

func (d *Dispatcher) run(job Job) (err error) {
	ctx := d.baseCtx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
			d.logger.Error("background job panicked",
				zap.String("job", job.Name),
				zap.String("key", job.Key),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
		}
	}()

	err = job.Run(ctx)
	fields := []zap.Field{
		zap.String("job", job.Name),
		zap.String("key", job.Key),
		zap.Duration("elapsed", time.Since(start)),
	}
	switch {
	case err == nil:
		d.logger.Debug("background job done", fields...)
	case errors.Is(err, remote.ErrUnauthorized):
		d.logger.Warn("background job rejected credential", append(fields, zap.Error(err))...)
		if d.onUnauthorized != nil {
			d.onUnauthorized(err)
		}
	case errors.Is(err, remote.ErrNoSession):
		d.logger.Debug("background job skipped without session", fields...)
	default:
		d.logger.Warn("background job failed", append(fields, zap.Error(err))...)
	}
	return err
}

func (d *Dispatcher) safely(job Job, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("background hook panicked", zap.String("job", job.Name), zap.Any("panic", r))
		}
	}()
	fn()
}

// Wait blocks until every queued job has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Pending returns the number of jobs waiting behind the running one for key
func (d *Dispatcher) Pending(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues[key])
}

// Close stops accepting jobs and waits for queued ones up to ctx's deadline.
// Jobs still running when ctx expires have their context cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
