// Package api provides the admin HTTP API of the task backend.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// Request headers read by the context middleware.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderUserID        = "X-User-ID"
)

// Server is the HTTP API server.
type Server struct {
	mux      *http.ServeMux
	server   *http.Server
	logger   *slog.Logger
	handlers Handlers
}

// Handlers groups the route handlers. A nil handler leaves its routes
// unregistered.
type Handlers struct {
	Tasks     *TaskHandler
	Cache     *CacheHandler
	Messaging *MessagingHandler
	Health    *observability.HealthRegistry
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, handlers Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		handlers: handlers,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	if h := s.handlers.Tasks; h != nil {
		s.mux.HandleFunc("POST /api/tasks", h.Create)
		s.mux.HandleFunc("GET /api/tasks/overdue", h.ListOverdue)
		s.mux.HandleFunc("GET /api/tasks/{id}", h.Get)
		s.mux.HandleFunc("PUT /api/tasks/{id}", h.Update)
		s.mux.HandleFunc("PATCH /api/tasks/{id}/status", h.UpdateStatus)
		s.mux.HandleFunc("DELETE /api/tasks/{id}", h.Delete)
		s.mux.HandleFunc("GET /api/tasks/board/{boardId}", h.ListByBoard)
		s.mux.HandleFunc("GET /api/tasks/board/{boardId}/ordered", h.ListByBoardOrdered)
		s.mux.HandleFunc("GET /api/tasks/board/{boardId}/count", h.CountByBoard)
		s.mux.HandleFunc("GET /api/tasks/assignee/{userId}", h.ListByAssignee)
		s.mux.HandleFunc("GET /api/tasks/status/{status}", h.ListByStatus)
	}

	if h := s.handlers.Cache; h != nil {
		s.mux.HandleFunc("GET /api/cache/stats", h.Stats)
		s.mux.HandleFunc("DELETE /api/cache/clear", h.ClearAll)
		s.mux.HandleFunc("DELETE /api/cache/task/{id}", h.EvictTask)
		s.mux.HandleFunc("DELETE /api/cache/board/{id}", h.EvictBoard)
		s.mux.HandleFunc("DELETE /api/cache/user/{id}", h.EvictUser)
		s.mux.HandleFunc("DELETE /api/cache/overdue", h.EvictOverdue)
		s.mux.HandleFunc("DELETE /api/cache/list", h.EvictListKey)
		s.mux.HandleFunc("DELETE /api/cache/count", h.EvictCountKey)
		s.mux.HandleFunc("GET /api/cache/health", h.Health)

		s.mux.HandleFunc("GET /api/metrics/cache", h.Metrics)
		s.mux.HandleFunc("GET /api/metrics/cache/average-times", h.AverageTimes)
		s.mux.HandleFunc("POST /api/metrics/cache/reset", h.ResetMetrics)
	}

	if h := s.handlers.Messaging; h != nil {
		s.mux.HandleFunc("GET /api/messaging/health", h.Health)
		s.mux.HandleFunc("GET /api/messaging/metrics", h.Metrics)
		s.mux.HandleFunc("GET /api/messaging/publish-times", h.PublishTimes)
		s.mux.HandleFunc("GET /api/messaging/consumption-times", h.ConsumptionTimes)
		s.mux.HandleFunc("POST /api/messaging/metrics/reset", h.ResetMetrics)
		s.mux.HandleFunc("GET /api/messaging/info", h.Info)
		s.mux.HandleFunc("GET /api/messaging/dead-letters", h.DeadLetters)
	}
}

// Handler returns the routed handler wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	return s.withRequestContext(s.mux)
}

// withRequestContext carries correlation and user ids from headers into the
// request context and echoes the correlation id back.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.NewRequestContext(r.Context(), r.Header.Get(HeaderCorrelationID))
		if userID := r.Header.Get(HeaderUserID); userID != "" {
			ctx = observability.WithUserID(ctx, userID)
		}
		w.Header().Set(HeaderCorrelationID, observability.CorrelationIDFromContext(ctx))

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		s.logger.DebugContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// handleHealth reports the aggregated component health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.handlers.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": string(observability.HealthStatusHealthy),
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	health := s.handlers.Health.GetOverallHealth(r.Context())
	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := sonic.ConfigDefault.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Status:    status,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	})
}

// writeServiceError maps an application error onto a status code.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "operation", op, "path", r.URL.Path, "error", err)
	}
	writeError(w, r, status, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, task.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, task.ErrConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", task.ErrValidation, err)
	}
	return nil
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
