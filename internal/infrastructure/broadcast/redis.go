package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chrisfalcon1208/apprest/internal/application/syncer"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the pub/sub channel used when none is configured
const DefaultChannel = "apprest:refresh"

// Redis broadcasts refresh signals over Redis pub/sub. The client is owned by
// the caller.
type Redis struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// RedisOption configures a Redis broadcaster
type RedisOption func(*Redis)

// WithChannel sets the pub/sub channel
func WithChannel(channel string) RedisOption {
	return func(r *Redis) {
		if channel != "" {
			r.channel = channel
		}
	}
}

// NewRedis creates a broadcaster on an existing client
func NewRedis(client *redis.Client, logger *zap.Logger, opts ...RedisOption) *Redis {
	r := &Redis{
		client:  client,
		channel: DefaultChannel,
		logger:  logger.Named("broadcast"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish sends sig on the channel
func (r *Redis) Publish(ctx context.Context, sig syncer.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh signal: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish refresh signal: %w", err)
	}
	r.logger.Debug("published refresh signal", zap.String("channel", r.channel), zap.String("reason", sig.Reason))
	return nil
}

// Subscribe waits for the subscription to be confirmed, then delivers
// messages to fn on a background goroutine until unsubscribe or ctx ends.
func (r *Redis) Subscribe(ctx context.Context, fn func(syncer.Signal)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(subCtx, r.channel)

	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info("subscribed to refresh channel", zap.String("channel", r.channel))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					r.logger.Warn("refresh channel closed")
					return
				}
				var sig syncer.Signal
				if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
					r.logger.Error("malformed refresh signal", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				r.deliver(fn, sig)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (r *Redis) deliver(fn func(syncer.Signal), sig syncer.Signal) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("refresh subscriber panicked", zap.String("origin", sig.Origin), zap.Any("panic", rec))
		}
	}()
	fn(sig)
}

var _ syncer.Broadcaster = (*Redis)(nil)
