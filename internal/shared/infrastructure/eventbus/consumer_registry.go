package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// ConsumerRegistry maps channels to consumers and dispatches messages.
type ConsumerRegistry struct {
	consumers map[string][]EventConsumer
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewConsumerRegistry creates an empty registry.
func NewConsumerRegistry(logger *slog.Logger) *ConsumerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsumerRegistry{
		consumers: make(map[string][]EventConsumer),
		logger:    logger,
	}
}

// Register adds a consumer for each of its channels.
func (r *ConsumerRegistry) Register(consumer EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, channel := range consumer.Channels() {
		r.consumers[channel] = append(r.consumers[channel], consumer)
		r.logger.Debug("registered consumer for channel", "channel", channel)
	}
}

// GetConsumers returns the consumers registered for a channel.
func (r *ConsumerRegistry) GetConsumers(channel string) []EventConsumer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.consumers[channel]
}

// Channels returns every channel with at least one consumer, sorted.
func (r *ConsumerRegistry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]string, 0, len(r.consumers))
	for c := range r.consumers {
		channels = append(channels, c)
	}
	sort.Strings(channels)
	return channels
}

// Dispatch delivers a message to every consumer of its channel. All
// consumers run even if one fails; their errors are joined.
func (r *ConsumerRegistry) Dispatch(ctx context.Context, msg *ConsumedMessage) error {
	consumers := r.GetConsumers(msg.Channel)
	if len(consumers) == 0 {
		r.logger.Debug("no consumers for channel", "channel", msg.Channel)
		return nil
	}

	var errs []error
	for _, consumer := range consumers {
		if err := consumer.Handle(ctx, msg); err != nil {
			r.logger.Error("consumer failed to handle message",
				"channel", msg.Channel,
				"key", msg.Key,
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ConsumerCount returns the number of registrations across channels.
func (r *ConsumerRegistry) ConsumerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, consumers := range r.consumers {
		count += len(consumers)
	}
	return count
}
