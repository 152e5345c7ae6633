package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/deadletter"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// EventPublisher is the publisher surface exposed to operators.
type EventPublisher interface {
	Ping(ctx context.Context) error
	Metrics() *observability.MessagingMetrics
	QueueDepth() int
}

// MessagingInfo describes the configured transport.
type MessagingInfo struct {
	Transport string   `json:"transport"`
	Exchange  string   `json:"exchange,omitempty"`
	Channels  []string `json:"channels"`
	// BreakerState reports the circuit breaker state, when one is configured.
	BreakerState func() string `json:"-"`
}

// MessagingHandler handles messaging health, metrics and dead-letter requests.
type MessagingHandler struct {
	publisher   EventPublisher
	info        MessagingInfo
	deadLetters deadletter.Repository
	logger      *slog.Logger
}

// NewMessagingHandler creates a new messaging handler. deadLetters may be nil.
func NewMessagingHandler(publisher EventPublisher, info MessagingInfo, deadLetters deadletter.Repository, logger *slog.Logger) *MessagingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessagingHandler{publisher: publisher, info: info, deadLetters: deadLetters, logger: logger}
}

// Health handles GET /api/messaging/health
func (h *MessagingHandler) Health(w http.ResponseWriter, r *http.Request) {
	result := observability.TransportHealthChecker(h.publisher.Ping)(r.Context())
	status := http.StatusOK
	if result.Status != observability.HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, result)
}

// Metrics handles GET /api/messaging/metrics
func (h *MessagingHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.publisher.Metrics().Snapshot())
}

// PublishTimes handles GET /api/messaging/publish-times
func (h *MessagingHandler) PublishTimes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.publisher.Metrics().AveragePublishTimes())
}

// ConsumptionTimes handles GET /api/messaging/consumption-times
func (h *MessagingHandler) ConsumptionTimes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.publisher.Metrics().AverageConsumptionTimes())
}

// ResetMetrics handles POST /api/messaging/metrics/reset
func (h *MessagingHandler) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	h.publisher.Metrics().Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Info handles GET /api/messaging/info
func (h *MessagingHandler) Info(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"transport":  h.info.Transport,
		"exchange":   h.info.Exchange,
		"channels":   h.info.Channels,
		"queueDepth": h.publisher.QueueDepth(),
	}
	if h.info.BreakerState != nil {
		body["breakerState"] = h.info.BreakerState()
	}
	writeJSON(w, http.StatusOK, body)
}

// DeadLetters handles GET /api/messaging/dead-letters?limit=&offset=
func (h *MessagingHandler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	if h.deadLetters == nil {
		writeError(w, r, http.StatusNotFound, "Dead-letter archive is not configured")
		return
	}
	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)

	records, err := h.deadLetters.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list dead letters", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to list dead letters")
		return
	}
	total, err := h.deadLetters.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count dead letters", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to count dead letters")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  records,
	})
}
