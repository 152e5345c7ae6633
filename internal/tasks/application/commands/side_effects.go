package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// sideEffects applies the cache and event consequences of a write. Failures
// are logged and never returned: the stored task is the source of truth.
type sideEffects struct {
	cache     TaskCache
	publisher EventPublisher
	logger    *slog.Logger
	now       Clock
}

func newSideEffects(cache TaskCache, publisher EventPublisher, logger *slog.Logger) sideEffects {
	if logger == nil {
		logger = slog.Default()
	}
	return sideEffects{cache: cache, publisher: publisher, logger: logger, now: time.Now}
}

func (e sideEffects) cacheTask(ctx context.Context, s task.Snapshot) {
	if err := e.cache.CacheTask(ctx, s); err != nil {
		e.logger.Warn("failed to cache task", "task_id", s.ID, "error", err)
	}
}

func (e sideEffects) evictTask(ctx context.Context, taskID string) {
	if err := e.cache.EvictTask(ctx, taskID); err != nil {
		e.logger.Warn("failed to evict task", "task_id", taskID, "error", err)
	}
}

// evictViews evicts every list and count view of the given boards and users,
// plus the overdue set. Duplicate and empty ids are skipped.
func (e sideEffects) evictViews(ctx context.Context, boards, users []string) {
	for _, boardID := range unique(boards) {
		if err := e.cache.EvictForBoard(ctx, boardID); err != nil {
			e.logger.Warn("failed to evict board views", "board_id", boardID, "error", err)
		}
	}
	for _, userID := range unique(users) {
		if err := e.cache.EvictForUser(ctx, userID); err != nil {
			e.logger.Warn("failed to evict user views", "user_id", userID, "error", err)
		}
	}
	if err := e.cache.EvictForOverdueSet(ctx); err != nil {
		e.logger.Warn("failed to evict overdue set", "error", err)
	}
}

// emit hands the event to the publisher. The outcome is observed by the
// publisher only.
func (e sideEffects) emit(ctx context.Context, event task.Event) {
	e.publisher.PublishEvent(ctx, event)
}

func (e sideEffects) notify(ctx context.Context, userID, message, notificationType string) {
	e.publisher.PublishNotification(ctx, userID, message, notificationType)
}

func (e sideEffects) analytics(ctx context.Context, eventType, userID, boardID string, data map[string]any) {
	e.publisher.PublishAnalytics(ctx, eventType, userID, boardID, data)
}

// eventMeta stamps events with the request's acting user and correlation.
func (e sideEffects) eventMeta(ctx context.Context) task.EventMeta {
	return task.EventMeta{
		UserID:        observability.UserIDFromContext(ctx),
		CorrelationID: observability.CorrelationIDFromContext(ctx),
		CausationID:   observability.CausationIDFromContext(ctx),
		Now:           e.now(),
	}
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
