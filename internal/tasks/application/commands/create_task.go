package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/value_objects"
)

// AnalyticsTaskCreated is the analytics event type recorded on create.
const AnalyticsTaskCreated = "task_created"

// CreateTaskCommand contains the data needed to create a task.
type CreateTaskCommand struct {
	Title       string `validate:"required,max=255"`
	Description string `validate:"max=4000"`
	BoardID     string `validate:"required,max=128"`
	// Priority defaults to MEDIUM.
	Priority   string `validate:"max=16"`
	AssignedTo string `validate:"max=128"`
	DueDate    *time.Time
}

// CreateTaskHandler handles the CreateTaskCommand.
type CreateTaskHandler struct {
	repo    task.Repository
	effects sideEffects
	clock   Clock
}

// NewCreateTaskHandler creates a new CreateTaskHandler.
func NewCreateTaskHandler(deps Deps) *CreateTaskHandler {
	return &CreateTaskHandler{repo: deps.Repo, effects: deps.sideEffects(), clock: deps.clock()}
}

// Handle executes the CreateTaskCommand.
func (h *CreateTaskHandler) Handle(ctx context.Context, cmd CreateTaskCommand) (dto.TaskDTO, error) {
	if err := validateCommand(cmd); err != nil {
		return dto.TaskDTO{}, err
	}

	now := h.clock()
	t, err := task.NewTask(cmd.Title, cmd.BoardID, now)
	if err != nil {
		return dto.TaskDTO{}, err
	}
	if cmd.Description != "" {
		t.SetDescription(cmd.Description, now)
	}
	if cmd.Priority != "" {
		priority, err := value_objects.ParsePriority(cmd.Priority)
		if err != nil {
			return dto.TaskDTO{}, fmt.Errorf("%w: %v", task.ErrValidation, err)
		}
		if err := t.SetPriority(priority, now); err != nil {
			return dto.TaskDTO{}, err
		}
	}
	if cmd.AssignedTo != "" {
		t.AssignTo(cmd.AssignedTo, now)
	}
	if cmd.DueDate != nil {
		t.SetDueDate(cmd.DueDate, now)
	}

	if err := h.repo.Save(ctx, t); err != nil {
		return dto.TaskDTO{}, err
	}

	snap := t.Snapshot()
	h.effects.cacheTask(ctx, snap)
	h.effects.evictViews(ctx, []string{snap.BoardID}, []string{snap.AssignedTo})

	meta := h.effects.eventMeta(ctx)
	h.effects.emit(ctx, task.NewTaskCreated(snap, meta))
	h.effects.analytics(ctx, AnalyticsTaskCreated, meta.UserID, snap.BoardID, map[string]any{
		"taskId":   snap.ID.String(),
		"priority": snap.Priority.String(),
	})

	h.effects.logger.Info("task created", "task_id", snap.ID, "board_id", snap.BoardID)
	return dto.FromSnapshot(snap, now), nil
}
