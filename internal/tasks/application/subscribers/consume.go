// Package subscribers consumes the task channels: task events, user
// notifications, analytics records and dead letters.
package subscribers

import (
	"context"
	"fmt"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// ErrMalformedMessage is returned for payloads that cannot be decoded.
var ErrMalformedMessage = eventbus.ErrMalformedMessage

// consume runs fn for msg and records consume metrics under the message's
// type header, falling back to fallbackType.
func consume(ctx context.Context, metrics *observability.MessagingMetrics, msg *eventbus.ConsumedMessage, fallbackType string, fn func(ctx context.Context) error) error {
	messageType := msg.Header(eventbus.HeaderMessageType)
	if messageType == "" {
		messageType = fallbackType
	}
	if id := msg.Header(eventbus.HeaderCorrelationID); id != "" {
		ctx = observability.WithCorrelationID(ctx, id)
	}

	metrics.RecordConsumed(messageType)
	start := time.Now()
	if err := fn(ctx); err != nil {
		metrics.RecordConsumeFailure(messageType, err)
		return err
	}
	metrics.RecordConsumeSuccess(messageType, time.Since(start))
	return nil
}

func malformed(channel string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformedMessage, channel, err)
}
