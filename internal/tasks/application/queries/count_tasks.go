package queries

import (
	"context"
	"log/slog"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/cache"
)

// CountTasksQuery counts a board's tasks in one status.
type CountTasksQuery struct {
	BoardID string
	Status  string
}

// CountTasksHandler handles the CountTasksQuery.
type CountTasksHandler struct {
	reader cachedReader
}

// NewCountTasksHandler creates a new CountTasksHandler.
func NewCountTasksHandler(repo task.Repository, c ReadCache, logger *slog.Logger) *CountTasksHandler {
	return &CountTasksHandler{reader: newCachedReader(repo, c, logger, nil)}
}

// Handle executes the CountTasksQuery.
func (h *CountTasksHandler) Handle(ctx context.Context, query CountTasksQuery) (int64, error) {
	boardID, err := requireID("boardId", query.BoardID)
	if err != nil {
		return 0, err
	}
	status, err := task.ParseStatus(query.Status)
	if err != nil {
		return 0, err
	}
	return h.reader.count(ctx, cache.BoardStatusCountKey(boardID, status), func(ctx context.Context) (int64, error) {
		return h.reader.repo.CountByBoardIDAndStatus(ctx, boardID, status)
	})
}
