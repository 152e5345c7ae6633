package queries

import (
	"context"
	"log/slog"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
)

// GetTaskQuery identifies a single task.
type GetTaskQuery struct {
	TaskID string
}

// GetTaskHandler handles the GetTaskQuery.
type GetTaskHandler struct {
	reader cachedReader
}

// NewGetTaskHandler creates a new GetTaskHandler.
func NewGetTaskHandler(repo task.Repository, c ReadCache, logger *slog.Logger, clock Clock) *GetTaskHandler {
	return &GetTaskHandler{reader: newCachedReader(repo, c, logger, clock)}
}

// Handle executes the GetTaskQuery.
func (h *GetTaskHandler) Handle(ctx context.Context, query GetTaskQuery) (dto.TaskDTO, error) {
	id, err := parseTaskID(query.TaskID)
	if err != nil {
		return dto.TaskDTO{}, err
	}
	r := h.reader

	cached, hit, err := r.cache.GetCachedTask(ctx, id.String())
	if err != nil {
		r.logger.Warn("cache read failed", "task_id", id, "error", err)
	}
	if hit {
		return dto.FromSnapshot(cached, r.now()), nil
	}

	t, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return dto.TaskDTO{}, err
	}
	snap := t.Snapshot()
	if err := r.cache.CacheTask(ctx, snap); err != nil {
		r.logger.Warn("cache write failed", "task_id", id, "error", err)
	}
	return dto.FromSnapshot(snap, r.now()), nil
}
