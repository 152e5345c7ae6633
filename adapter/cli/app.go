package cli

import (
	"context"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// TaskService is the application surface the task commands call.
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

// CacheAdmin is the cache surface the cache commands call.
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

// App holds the CLI application dependencies.
type App struct {
	Tasks            TaskService
	Cache            CacheAdmin
	MessagingMetrics *observability.MessagingMetrics
	Health           *observability.HealthRegistry
}

// NewApp creates a new CLI application with the provided services.
func NewApp(tasks TaskService, cache CacheAdmin, messagingMetrics *observability.MessagingMetrics, health *observability.HealthRegistry) *App {
	return &App{
		Tasks:            tasks,
		Cache:            cache,
		MessagingMetrics: messagingMetrics,
		Health:           health,
	}
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
