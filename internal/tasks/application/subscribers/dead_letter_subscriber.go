package subscribers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/deadletter"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// DeadLetterSubscriber archives every message on the dead-letter channel for
// operator review.
type DeadLetterSubscriber struct {
	repo    deadletter.Repository
	metrics *observability.MessagingMetrics
	logger  *slog.Logger
	now     func() time.Time
}

var _ eventbus.EventConsumer = (*DeadLetterSubscriber)(nil)

// NewDeadLetterSubscriber creates a subscriber archiving into repo.
func NewDeadLetterSubscriber(repo deadletter.Repository, metrics *observability.MessagingMetrics, logger *slog.Logger) *DeadLetterSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMessagingMetrics(logger)
	}
	return &DeadLetterSubscriber{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

func (s *DeadLetterSubscriber) Channels() []string {
	return []string{messaging.ChannelDeadLetter}
}

// Handle archives one dead-letter message. Redelivery of an archived message
// is a no-op.
func (s *DeadLetterSubscriber) Handle(ctx context.Context, msg *eventbus.ConsumedMessage) error {
	return consume(ctx, s.metrics, msg, messaging.TypeDeadLetter, func(ctx context.Context) error {
		var dlq messaging.DeadLetterMessage
		if err := sonic.Unmarshal(msg.Payload, &dlq); err != nil {
			return malformed(msg.Channel, err)
		}

		record := &deadletter.Record{
			ID:            uuid.New(),
			MessageID:     dlq.MessageID,
			EventType:     dlq.EventType,
			TaskID:        dlq.TaskID,
			CorrelationID: observability.CorrelationIDFromContext(ctx),
			ErrorMessage:  dlq.ErrorMessage,
			Payload:       []byte(dlq.OriginalEvent),
			RetryCount:    dlq.RetryCount,
			FailedAt:      dlq.FailedAt,
			ArchivedAt:    s.now().UTC(),
		}
		if err := record.Validate(); err != nil {
			return malformed(msg.Channel, err)
		}
		if err := s.repo.Save(ctx, record); err != nil {
			return fmt.Errorf("archive dead letter %s: %w", dlq.MessageID, err)
		}

		s.logger.Warn("dead letter archived",
			"message_id", dlq.MessageID,
			"event_type", dlq.EventType,
			"task_id", dlq.TaskID,
			"error_message", dlq.ErrorMessage,
		)
		return nil
	})
}
