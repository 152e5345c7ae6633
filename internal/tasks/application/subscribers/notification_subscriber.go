package subscribers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bytedance/sonic"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// NotificationSink delivers a notification to its user.
type NotificationSink interface {
	Deliver(ctx context.Context, n messaging.Notification) error
}

// LogSink writes notifications to the log. Used when no delivery channel is
// configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs every notification.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, n messaging.Notification) error {
	s.logger.InfoContext(ctx, "notification delivered",
		"user_id", n.UserID,
		"type", n.Type,
		"message", n.Message,
	)
	return nil
}

// NotificationSubscriber consumes the notifications channel.
type NotificationSubscriber struct {
	sink    NotificationSink
	metrics *observability.MessagingMetrics
	logger  *slog.Logger
}

var _ eventbus.EventConsumer = (*NotificationSubscriber)(nil)

// NewNotificationSubscriber creates a subscriber delivering through sink.
// A nil sink logs notifications.
func NewNotificationSubscriber(sink NotificationSink, metrics *observability.MessagingMetrics, logger *slog.Logger) *NotificationSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	if metrics == nil {
		metrics = observability.NewMessagingMetrics(logger)
	}
	return &NotificationSubscriber{sink: sink, metrics: metrics, logger: logger}
}

func (s *NotificationSubscriber) Channels() []string {
	return []string{messaging.ChannelNotifications}
}

// Handle decodes a notification and hands it to the sink.
func (s *NotificationSubscriber) Handle(ctx context.Context, msg *eventbus.ConsumedMessage) error {
	return consume(ctx, s.metrics, msg, messaging.TypeNotification, func(ctx context.Context) error {
		var n messaging.Notification
		if err := sonic.Unmarshal(msg.Payload, &n); err != nil {
			return malformed(msg.Channel, err)
		}
		if n.UserID == "" {
			return malformed(msg.Channel, errors.New("userId is required"))
		}
		return s.sink.Deliver(ctx, n)
	})
}
