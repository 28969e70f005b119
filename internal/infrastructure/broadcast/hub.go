// Package broadcast carries refresh signals between client contexts, either
// inside one process (Hub) or across processes on one machine (Redis).
package broadcast

import (
	"context"
	"sync"

	"github.com/chrisfalcon1208/apprest/internal/application/syncer"
	"go.uber.org/zap"
)

// Hub is an in-process broadcaster. Delivery is synchronous; subscribers must
// not block.
type Hub struct {
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[int]func(syncer.Signal)
	nextID int
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger.Named("broadcast"),
		subs:   make(map[int]func(syncer.Signal)),
	}
}

// Publish delivers sig to every subscriber, the publisher included
func (h *Hub) Publish(ctx context.Context, sig syncer.Signal) error {
	h.mu.RLock()
	fns := make([]func(syncer.Signal), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		h.deliver(fn, sig)
	}
	return nil
}

func (h *Hub) deliver(fn func(syncer.Signal), sig syncer.Signal) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("refresh subscriber panicked", zap.String("origin", sig.Origin), zap.Any("panic", r))
		}
	}()
	fn(sig)
}

// Subscribe registers fn until unsubscribe is called or ctx ends
func (h *Hub) Subscribe(ctx context.Context, fn func(syncer.Signal)) (func(), error) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return unsubscribe, nil
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var _ syncer.Broadcaster = (*Hub)(nil)
