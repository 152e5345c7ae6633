package observability

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// MessagingMetrics counts event publication and consumption. Safe for
// concurrent use.
type MessagingMetrics struct {
	published     atomic.Int64
	publishedOK   atomic.Int64
	publishFailed atomic.Int64
	consumed      atomic.Int64
	consumedOK    atomic.Int64
	consumeFailed atomic.Int64
	batches       atomic.Int64
	batchesFailed atomic.Int64
	deadLettered  atomic.Int64

	publishedByType     counterMap
	consumedByType      counterMap
	publishFailedByType counterMap
	consumeFailedByType counterMap

	publishTimes timingMap
	consumeTimes timingMap

	startedAt time.Time
	logger    *slog.Logger
}

// MessagingSnapshot is a point-in-time copy of the messaging counters.
type MessagingSnapshot struct {
	TotalEventsPublished             int64            `json:"totalEventsPublished"`
	TotalEventsPublishedSuccessfully int64            `json:"totalEventsPublishedSuccessfully"`
	TotalEventsPublishFailed         int64            `json:"totalEventsPublishFailed"`
	TotalEventsConsumed              int64            `json:"totalEventsConsumed"`
	TotalEventsConsumedSuccessfully  int64            `json:"totalEventsConsumedSuccessfully"`
	TotalEventsConsumptionFailed     int64            `json:"totalEventsConsumptionFailed"`
	TotalBatchesPublished            int64            `json:"totalBatchesPublished"`
	TotalBatchesPublishFailed        int64            `json:"totalBatchesPublishFailed"`
	TotalMessagesSentToDLQ           int64            `json:"totalMessagesSentToDLQ"`
	PublishSuccessRate               float64          `json:"publishSuccessRate"`
	ConsumptionSuccessRate           float64          `json:"consumptionSuccessRate"`
	UptimeHours                      float64          `json:"uptimeHours"`
	EventTypePublished               map[string]int64 `json:"eventTypePublished"`
	EventTypeConsumed                map[string]int64 `json:"eventTypeConsumed"`
	EventTypePublishFailed           map[string]int64 `json:"eventTypePublishFailed"`
	EventTypeConsumptionFailed       map[string]int64 `json:"eventTypeConsumptionFailed"`
}

// NewMessagingMetrics creates an empty collector.
func NewMessagingMetrics(logger *slog.Logger) *MessagingMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessagingMetrics{startedAt: time.Now(), logger: logger}
}

// RecordPublished counts a publish attempt.
func (m *MessagingMetrics) RecordPublished(eventType string) {
	m.published.Add(1)
	m.publishedByType.add(eventType, 1)
}

// RecordPublishSuccess counts an accepted publish and its latency.
func (m *MessagingMetrics) RecordPublishSuccess(eventType string, elapsed time.Duration) {
	m.publishedOK.Add(1)
	m.publishTimes.observe(eventType, elapsed)
}

// RecordPublishFailure counts a rejected publish.
func (m *MessagingMetrics) RecordPublishFailure(eventType string, err error) {
	m.publishFailed.Add(1)
	m.publishFailedByType.add(eventType, 1)
	m.logger.Error("event publish failed", "event_type", eventType, "error", err)
}

// RecordBatch counts a completed batch; failed reports whether any member failed.
func (m *MessagingMetrics) RecordBatch(size int, failed bool) {
	m.batches.Add(1)
	if failed {
		m.batchesFailed.Add(1)
		m.logger.Warn("batch publish had failures", "batch_size", size)
	}
}

// RecordDeadLetter counts a message routed to the dead-letter channel.
func (m *MessagingMetrics) RecordDeadLetter(eventType string) {
	m.deadLettered.Add(1)
	m.logger.Warn("message sent to dead-letter channel", "event_type", eventType)
}

// RecordConsumed counts a consumption attempt.
func (m *MessagingMetrics) RecordConsumed(eventType string) {
	m.consumed.Add(1)
	m.consumedByType.add(eventType, 1)
}

// RecordConsumeSuccess counts a handled message and its latency.
func (m *MessagingMetrics) RecordConsumeSuccess(eventType string, elapsed time.Duration) {
	m.consumedOK.Add(1)
	m.consumeTimes.observe(eventType, elapsed)
}

// RecordConsumeFailure counts a message whose handler failed.
func (m *MessagingMetrics) RecordConsumeFailure(eventType string, err error) {
	m.consumeFailed.Add(1)
	m.consumeFailedByType.add(eventType, 1)
	m.logger.Error("event consumption failed", "event_type", eventType, "error", err)
}

// Snapshot returns the current counters.
func (m *MessagingMetrics) Snapshot() MessagingSnapshot {
	published := m.published.Load()
	publishedOK := m.publishedOK.Load()
	consumed := m.consumed.Load()
	consumedOK := m.consumedOK.Load()

	return MessagingSnapshot{
		TotalEventsPublished:             published,
		TotalEventsPublishedSuccessfully: publishedOK,
		TotalEventsPublishFailed:         m.publishFailed.Load(),
		TotalEventsConsumed:              consumed,
		TotalEventsConsumedSuccessfully:  consumedOK,
		TotalEventsConsumptionFailed:     m.consumeFailed.Load(),
		TotalBatchesPublished:            m.batches.Load(),
		TotalBatchesPublishFailed:        m.batchesFailed.Load(),
		TotalMessagesSentToDLQ:           m.deadLettered.Load(),
		PublishSuccessRate:               ratio(publishedOK, published),
		ConsumptionSuccessRate:           ratio(consumedOK, consumed),
		UptimeHours:                      time.Since(m.startedAt).Hours(),
		EventTypePublished:               m.publishedByType.snapshot(),
		EventTypeConsumed:                m.consumedByType.snapshot(),
		EventTypePublishFailed:           m.publishFailedByType.snapshot(),
		EventTypeConsumptionFailed:       m.consumeFailedByType.snapshot(),
	}
}

// AveragePublishTimes returns mean accepted-publish latency in milliseconds per event type.
func (m *MessagingMetrics) AveragePublishTimes() map[string]float64 {
	return m.publishTimes.averagesMillis()
}

// AverageConsumptionTimes returns mean handler latency in milliseconds per event type.
func (m *MessagingMetrics) AverageConsumptionTimes() map[string]float64 {
	return m.consumeTimes.averagesMillis()
}

// Reset zeroes every counter. Uptime is kept.
func (m *MessagingMetrics) Reset() {
	m.logger.Warn("resetting messaging metrics")
	for _, c := range []*atomic.Int64{
		&m.published, &m.publishedOK, &m.publishFailed,
		&m.consumed, &m.consumedOK, &m.consumeFailed,
		&m.batches, &m.batchesFailed, &m.deadLettered,
	} {
		c.Store(0)
	}
	m.publishedByType.clear()
	m.consumedByType.clear()
	m.publishFailedByType.clear()
	m.consumeFailedByType.clear()
	m.publishTimes.clear()
	m.consumeTimes.clear()
}
