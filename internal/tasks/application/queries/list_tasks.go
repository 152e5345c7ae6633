package queries

import (
	"context"
	"log/slog"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/cache"
)

// ListTasksHandler serves the list views. Every view except ByStatus is read
// cache-first; ByStatus spans all boards and is always read from the store.
type ListTasksHandler struct {
	reader cachedReader
}

// NewListTasksHandler creates a new ListTasksHandler.
func NewListTasksHandler(repo task.Repository, c ReadCache, logger *slog.Logger, clock Clock) *ListTasksHandler {
	return &ListTasksHandler{reader: newCachedReader(repo, c, logger, clock)}
}

// ByBoard lists a board's tasks.
func (h *ListTasksHandler) ByBoard(ctx context.Context, boardID string) ([]dto.TaskDTO, error) {
	boardID, err := requireID("boardId", boardID)
	if err != nil {
		return nil, err
	}
	snaps, err := h.reader.list(ctx, cache.NamespaceTaskList, cache.BoardListKey(boardID),
		func(ctx context.Context) ([]*task.Task, error) { return h.reader.repo.FindByBoardID(ctx, boardID) })
	return h.toDTOs(snaps, err)
}

// ByBoardOrdered lists a board's tasks, newest first.
func (h *ListTasksHandler) ByBoardOrdered(ctx context.Context, boardID string) ([]dto.TaskDTO, error) {
	boardID, err := requireID("boardId", boardID)
	if err != nil {
		return nil, err
	}
	snaps, err := h.reader.list(ctx, cache.NamespaceTaskList, cache.BoardOrderedListKey(boardID),
		func(ctx context.Context) ([]*task.Task, error) {
			return h.reader.repo.FindByBoardIDOrderByCreatedAtDesc(ctx, boardID)
		})
	return h.toDTOs(snaps, err)
}

// ByBoardAndStatus lists a board's tasks in one status.
func (h *ListTasksHandler) ByBoardAndStatus(ctx context.Context, boardID, status string) ([]dto.TaskDTO, error) {
	boardID, err := requireID("boardId", boardID)
	if err != nil {
		return nil, err
	}
	s, err := task.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	snaps, err := h.reader.list(ctx, cache.NamespaceTaskList, cache.BoardStatusListKey(boardID, s),
		func(ctx context.Context) ([]*task.Task, error) { return h.reader.repo.FindByBoardIDAndStatus(ctx, boardID, s) })
	return h.toDTOs(snaps, err)
}

// ByAssignee lists a user's tasks.
func (h *ListTasksHandler) ByAssignee(ctx context.Context, userID string) ([]dto.TaskDTO, error) {
	userID, err := requireID("userId", userID)
	if err != nil {
		return nil, err
	}
	snaps, err := h.reader.list(ctx, cache.NamespaceUserTask, cache.UserTaskKey(userID),
		func(ctx context.Context) ([]*task.Task, error) { return h.reader.repo.FindByAssignedTo(ctx, userID) })
	return h.toDTOs(snaps, err)
}

// ByAssigneeAndStatus lists a user's tasks in one status.
func (h *ListTasksHandler) ByAssigneeAndStatus(ctx context.Context, userID, status string) ([]dto.TaskDTO, error) {
	userID, err := requireID("userId", userID)
	if err != nil {
		return nil, err
	}
	s, err := task.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	snaps, err := h.reader.list(ctx, cache.NamespaceTaskList, cache.UserStatusListKey(userID, s),
		func(ctx context.Context) ([]*task.Task, error) {
			return h.reader.repo.FindByAssignedToAndStatus(ctx, userID, s)
		})
	return h.toDTOs(snaps, err)
}

// ByStatus lists every task in one status. It is never cached: no write
// could cheaply evict a view spanning all boards.
func (h *ListTasksHandler) ByStatus(ctx context.Context, status string) ([]dto.TaskDTO, error) {
	s, err := task.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	tasks, err := h.reader.repo.FindByStatus(ctx, s)
	if err != nil {
		return nil, err
	}
	return dto.FromSnapshots(dto.Snapshots(tasks), h.reader.now()), nil
}

// Overdue lists tasks past their due date that are not done.
func (h *ListTasksHandler) Overdue(ctx context.Context) ([]dto.TaskDTO, error) {
	snaps, err := h.OverdueSnapshots(ctx)
	return h.toDTOs(snaps, err)
}

// OverdueSnapshots returns the cache-first overdue set.
func (h *ListTasksHandler) OverdueSnapshots(ctx context.Context) ([]task.Snapshot, error) {
	return h.reader.list(ctx, cache.NamespaceTaskList, cache.OverdueListKey(),
		func(ctx context.Context) ([]*task.Task, error) { return h.reader.repo.FindOverdue(ctx, h.reader.now()) })
}

func (h *ListTasksHandler) toDTOs(snaps []task.Snapshot, err error) ([]dto.TaskDTO, error) {
	if err != nil {
		return nil, err
	}
	return dto.FromSnapshots(snaps, h.reader.now()), nil
}
