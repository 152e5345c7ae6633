package commands

import (
	"context"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
)

// DeleteTaskCommand removes a task.
type DeleteTaskCommand struct {
	TaskID string `validate:"required"`
	Reason string `validate:"max=512"`
}

// DeleteTaskHandler handles the DeleteTaskCommand.
type DeleteTaskHandler struct {
	repo    task.Repository
	tx      TxRunner
	effects sideEffects
}

// NewDeleteTaskHandler creates a new DeleteTaskHandler.
func NewDeleteTaskHandler(deps Deps) *DeleteTaskHandler {
	return &DeleteTaskHandler{repo: deps.Repo, tx: deps.tx(), effects: deps.sideEffects()}
}

// Handle executes the DeleteTaskCommand. An unknown id fails with
// task.ErrNotFound before any side effect.
func (h *DeleteTaskHandler) Handle(ctx context.Context, cmd DeleteTaskCommand) error {
	if err := validateCommand(cmd); err != nil {
		return err
	}
	id, err := parseTaskID(cmd.TaskID)
	if err != nil {
		return err
	}

	var snap task.Snapshot
	err = h.tx.WithinTx(ctx, func(txCtx context.Context) error {
		t, err := h.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		snap = t.Snapshot()
		return h.repo.DeleteByID(txCtx, id)
	})
	if err != nil {
		return err
	}

	h.effects.evictTask(ctx, snap.ID.String())
	h.effects.evictViews(ctx, []string{snap.BoardID}, []string{snap.AssignedTo})
	h.effects.emit(ctx, task.NewTaskDeleted(snap, cmd.Reason, h.effects.eventMeta(ctx)))

	h.effects.logger.Info("task deleted", "task_id", snap.ID, "board_id", snap.BoardID)
	return nil
}
