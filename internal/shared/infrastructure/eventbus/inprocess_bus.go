package eventbus

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// InProcessEventBus delivers messages synchronously to registered consumers.
// It stands in for the broker in local mode.
type InProcessEventBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewInProcessEventBus creates a new in-process event bus.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{
		registry: NewConsumerRegistry(logger),
		logger:   logger,
	}
}

// RegisterConsumer registers an event consumer.
func (b *InProcessEventBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Publish dispatches the message to the channel's consumers before returning.
// Consumer failures are logged and do not fail the publish.
func (b *InProcessEventBus) Publish(ctx context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrPublisherClosed
	}

	consumed := &ConsumedMessage{
		Channel:    msg.Channel,
		Key:        msg.Key,
		Payload:    append([]byte(nil), msg.Payload...),
		Headers:    maps.Clone(msg.Headers),
		ReceivedAt: time.Now(),
	}

	start := time.Now()
	if err := b.registry.Dispatch(ctx, consumed); err != nil {
		b.logger.Error("in-process dispatch failed",
			"channel", msg.Channel,
			"key", msg.Key,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil
	}

	b.logger.Debug("message dispatched",
		"channel", msg.Channel,
		"key", msg.Key,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Ping always succeeds while the bus is open.
func (b *InProcessEventBus) Ping(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrPublisherClosed
	}
	return nil
}

// Start blocks until ctx is cancelled; delivery happens inside Publish.
func (b *InProcessEventBus) Start(ctx context.Context) error {
	b.logger.Info("in-process event bus started", "channels", b.registry.Channels())
	<-ctx.Done()
	return ctx.Err()
}

// Close stops accepting messages.
func (b *InProcessEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Registry returns the underlying consumer registry.
func (b *InProcessEventBus) Registry() *ConsumerRegistry {
	return b.registry
}
