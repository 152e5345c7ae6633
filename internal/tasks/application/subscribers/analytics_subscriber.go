package subscribers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// AnalyticsSubscriber consumes the analytics channel and keeps running
// totals per analytics event type and per board.
type AnalyticsSubscriber struct {
	metrics *observability.MessagingMetrics
	logger  *slog.Logger

	mu      sync.Mutex
	byType  map[string]int64
	byBoard map[string]int64
}

var _ eventbus.EventConsumer = (*AnalyticsSubscriber)(nil)

// NewAnalyticsSubscriber creates a new analytics subscriber.
func NewAnalyticsSubscriber(metrics *observability.MessagingMetrics, logger *slog.Logger) *AnalyticsSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMessagingMetrics(logger)
	}
	return &AnalyticsSubscriber{
		metrics: metrics,
		logger:  logger,
		byType:  make(map[string]int64),
		byBoard: make(map[string]int64),
	}
}

func (s *AnalyticsSubscriber) Channels() []string {
	return []string{messaging.ChannelAnalytics}
}

func (s *AnalyticsSubscriber) Handle(ctx context.Context, msg *eventbus.ConsumedMessage) error {
	return consume(ctx, s.metrics, msg, messaging.TypeAnalytics, func(ctx context.Context) error {
		var a messaging.AnalyticsEvent
		if err := sonic.Unmarshal(msg.Payload, &a); err != nil {
			return malformed(msg.Channel, err)
		}

		s.mu.Lock()
		s.byType[a.EventType]++
		s.byBoard[a.BoardID]++
		s.mu.Unlock()

		s.logger.Debug("analytics recorded",
			"event_type", a.EventType,
			"board_id", a.BoardID,
			"data", a.Data,
		)
		return nil
	})
}

// AnalyticsTotals is a point-in-time copy of the analytics counters.
type AnalyticsTotals struct {
	ByType  map[string]int64 `json:"byType"`
	ByBoard map[string]int64 `json:"byBoard"`
}

// Totals returns the counters accumulated so far.
func (s *AnalyticsSubscriber) Totals() AnalyticsTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := AnalyticsTotals{
		ByType:  make(map[string]int64, len(s.byType)),
		ByBoard: make(map[string]int64, len(s.byBoard)),
	}
	for k, v := range s.byType {
		t.ByType[k] = v
	}
	for k, v := range s.byBoard {
		t.ByBoard[k] = v
	}
	return t
}
