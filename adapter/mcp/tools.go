package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// TaskService is the application surface behind the task tools.
type TaskService interface {
	Create(ctx context.Context, cmd commands.CreateTaskCommand) (dto.TaskDTO, error)
	Update(ctx context.Context, cmd commands.UpdateTaskCommand) (dto.TaskDTO, error)
	UpdateStatus(ctx context.Context, cmd commands.UpdateTaskStatusCommand) (dto.TaskDTO, error)
	Delete(ctx context.Context, cmd commands.DeleteTaskCommand) error
	Get(ctx context.Context, taskID string) (dto.TaskDTO, error)
	ListByBoard(ctx context.Context, boardID string) ([]dto.TaskDTO, error)
	ListByBoardOrdered(ctx context.Context, boardID string) ([]dto.TaskDTO, error)
	ListByBoardAndStatus(ctx context.Context, boardID, status string) ([]dto.TaskDTO, error)
	ListByAssignee(ctx context.Context, userID string) ([]dto.TaskDTO, error)
	ListByAssigneeAndStatus(ctx context.Context, userID, status string) ([]dto.TaskDTO, error)
	ListByStatus(ctx context.Context, status string) ([]dto.TaskDTO, error)
	ListOverdue(ctx context.Context) ([]dto.TaskDTO, error)
	CountByBoardAndStatus(ctx context.Context, boardID, status string) (int64, error)
	SweepOverdue(ctx context.Context) (commands.SweepResult, error)
}

// CacheAdmin is the cache surface behind the cache tools.
type CacheAdmin interface {
	Stats(ctx context.Context) (map[string]int64, error)
	ClearAll(ctx context.Context) (int64, error)
	EvictTask(ctx context.Context, taskID string) error
	EvictForBoard(ctx context.Context, boardID string) error
	EvictForUser(ctx context.Context, userID string) error
	EvictForOverdueSet(ctx context.Context) error
	EvictListKey(ctx context.Context, key string) error
	EvictCountKey(ctx context.Context, key string) error
	Metrics() *observability.CacheMetrics
}

// MessagingStats is the publisher surface behind the messaging tools.
type MessagingStats interface {
	Ping(ctx context.Context) error
	Metrics() *observability.MessagingMetrics
	QueueDepth() int
}

// ToolDependencies provides the services MCP tools call. Tasks is required;
// a nil Cache or Messaging leaves its tools unregistered.
type ToolDependencies struct {
	Tasks     TaskService
	Cache     CacheAdmin
	Messaging MessagingStats
}

// RegisterTools registers the task backend tools.
func RegisterTools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.Tasks == nil {
		return errors.New("task service is required")
	}

	if err := registerTaskTools(srv, deps); err != nil {
		return err
	}
	if deps.Cache != nil {
		if err := registerCacheTools(srv, deps); err != nil {
			return err
		}
	}
	if deps.Messaging != nil {
		if err := registerMessagingTools(srv, deps); err != nil {
			return err
		}
	}

	return nil
}
