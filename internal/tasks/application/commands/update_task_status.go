package commands

import (
	"context"
	"fmt"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
)

// UpdateTaskStatusCommand moves a task to a new status.
type UpdateTaskStatusCommand struct {
	TaskID string `validate:"required"`
	Status string `validate:"required"`
	Reason string `validate:"max=512"`
}

// UpdateTaskStatusHandler handles the UpdateTaskStatusCommand.
type UpdateTaskStatusHandler struct {
	repo    task.Repository
	tx      TxRunner
	effects sideEffects
	clock   Clock
}

// NewUpdateTaskStatusHandler creates a new UpdateTaskStatusHandler.
func NewUpdateTaskStatusHandler(deps Deps) *UpdateTaskStatusHandler {
	return &UpdateTaskStatusHandler{repo: deps.Repo, tx: deps.tx(), effects: deps.sideEffects(), clock: deps.clock()}
}

// Handle executes the UpdateTaskStatusCommand.
func (h *UpdateTaskStatusHandler) Handle(ctx context.Context, cmd UpdateTaskStatusCommand) (dto.TaskDTO, error) {
	if err := validateCommand(cmd); err != nil {
		return dto.TaskDTO{}, err
	}
	id, err := parseTaskID(cmd.TaskID)
	if err != nil {
		return dto.TaskDTO{}, err
	}
	status, err := task.ParseStatus(cmd.Status)
	if err != nil {
		return dto.TaskDTO{}, err
	}

	now := h.clock()
	var (
		snap      task.Snapshot
		oldStatus task.Status
	)
	err = h.tx.WithinTx(ctx, func(txCtx context.Context) error {
		t, err := h.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		oldStatus = t.Status()
		if err := t.MoveTo(status, now); err != nil {
			return err
		}
		if err := h.repo.Save(txCtx, t); err != nil {
			return err
		}
		snap = t.Snapshot()
		return nil
	})
	if err != nil {
		return dto.TaskDTO{}, err
	}

	h.effects.cacheTask(ctx, snap)
	h.effects.evictViews(ctx, []string{snap.BoardID}, []string{snap.AssignedTo})
	h.effects.emit(ctx, task.NewTaskStatusChanged(snap, oldStatus, cmd.Reason, h.effects.eventMeta(ctx)))

	if snap.Status == task.StatusDone && snap.AssignedTo != "" {
		h.effects.notify(ctx, snap.AssignedTo,
			fmt.Sprintf("Task '%s' has been completed!", snap.Title),
			messaging.NotificationTaskCompleted,
		)
	}

	h.effects.logger.Info("task status updated",
		"task_id", snap.ID,
		"old_status", oldStatus,
		"new_status", snap.Status,
	)
	return dto.FromSnapshot(snap, now), nil
}
