package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// CacheAdmin is the cache surface exposed to operators.
type CacheAdmin interface {
	Stats(ctx context.Context) (map[string]int64, error)
	ClearAll(ctx context.Context) (int64, error)
	EvictTask(ctx context.Context, taskID string) error
	EvictForBoard(ctx context.Context, boardID string) error
	EvictForUser(ctx context.Context, userID string) error
	EvictForOverdueSet(ctx context.Context) error
	EvictListKey(ctx context.Context, key string) error
	EvictCountKey(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Metrics() *observability.CacheMetrics
}

// CacheHandler handles cache administration and cache metrics requests.
type CacheHandler struct {
	cache  CacheAdmin
	logger *slog.Logger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(cache CacheAdmin, logger *slog.Logger) *CacheHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheHandler{cache: cache, logger: logger}
}

// Stats handles GET /api/cache/stats
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to read cache stats", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "Cache unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": stats})
}

// ClearAll handles DELETE /api/cache/clear
func (h *CacheHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cache.ClearAll(r.Context())
	if err != nil {
		h.logger.Error("failed to clear cache", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "Cache unavailable")
		return
	}
	h.logger.Info("cache cleared", "removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// EvictTask handles DELETE /api/cache/task/{id}
func (h *CacheHandler) EvictTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.evict(w, r, "task", id, func(ctx context.Context) error { return h.cache.EvictTask(ctx, id) })
}

// EvictBoard handles DELETE /api/cache/board/{id}
func (h *CacheHandler) EvictBoard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.evict(w, r, "board", id, func(ctx context.Context) error { return h.cache.EvictForBoard(ctx, id) })
}

// EvictUser handles DELETE /api/cache/user/{id}
func (h *CacheHandler) EvictUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.evict(w, r, "user", id, func(ctx context.Context) error { return h.cache.EvictForUser(ctx, id) })
}

// EvictOverdue handles DELETE /api/cache/overdue
func (h *CacheHandler) EvictOverdue(w http.ResponseWriter, r *http.Request) {
	h.evict(w, r, "overdue", "overdue", h.cache.EvictForOverdueSet)
}

// EvictListKey handles DELETE /api/cache/list?cacheKey=
func (h *CacheHandler) EvictListKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("cacheKey")
	h.evict(w, r, "list", key, func(ctx context.Context) error { return h.cache.EvictListKey(ctx, key) })
}

// EvictCountKey handles DELETE /api/cache/count?cacheKey=
func (h *CacheHandler) EvictCountKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("cacheKey")
	h.evict(w, r, "count", key, func(ctx context.Context) error { return h.cache.EvictCountKey(ctx, key) })
}

func (h *CacheHandler) evict(w http.ResponseWriter, r *http.Request, scope, key string, fn func(ctx context.Context) error) {
	if key == "" {
		writeError(w, r, http.StatusBadRequest, "A cache key is required")
		return
	}
	if err := fn(r.Context()); err != nil {
		h.logger.Error("cache eviction failed", "scope", scope, "key", key, "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "Cache unavailable")
		return
	}
	h.logger.Info("cache evicted", "scope", scope, "key", key)
	writeJSON(w, http.StatusOK, map[string]string{"evicted": scope, "key": key})
}

// Health handles GET /api/cache/health
func (h *CacheHandler) Health(w http.ResponseWriter, r *http.Request) {
	result := observability.CacheHealthChecker(h.cache.Ping)(r.Context())
	status := http.StatusOK
	if result.Status != observability.HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, result)
}

// Metrics handles GET /api/metrics/cache
func (h *CacheHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Metrics().Snapshot())
}

// AverageTimes handles GET /api/metrics/cache/average-times
func (h *CacheHandler) AverageTimes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Metrics().AverageOperationTimes())
}

// ResetMetrics handles POST /api/metrics/cache/reset
func (h *CacheHandler) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	h.cache.Metrics().Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
