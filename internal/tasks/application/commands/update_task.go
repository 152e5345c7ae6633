package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/value_objects"
)

// UpdateTaskCommand changes task fields. Nil fields are left unchanged; an
// empty AssignedTo unassigns the task.
type UpdateTaskCommand struct {
	TaskID       string  `validate:"required"`
	Title        *string `validate:"omitempty,max=255"`
	Description  *string `validate:"omitempty,max=4000"`
	Priority     *string `validate:"omitempty,max=16"`
	AssignedTo   *string `validate:"omitempty,max=128"`
	BoardID      *string `validate:"omitempty,max=128"`
	DueDate      *time.Time
	ClearDueDate bool
}

// UpdateTaskHandler handles the UpdateTaskCommand.
type UpdateTaskHandler struct {
	repo    task.Repository
	tx      TxRunner
	effects sideEffects
	clock   Clock
}

// NewUpdateTaskHandler creates a new UpdateTaskHandler.
func NewUpdateTaskHandler(deps Deps) *UpdateTaskHandler {
	return &UpdateTaskHandler{repo: deps.Repo, tx: deps.tx(), effects: deps.sideEffects(), clock: deps.clock()}
}

// Handle executes the UpdateTaskCommand.
func (h *UpdateTaskHandler) Handle(ctx context.Context, cmd UpdateTaskCommand) (dto.TaskDTO, error) {
	if err := validateCommand(cmd); err != nil {
		return dto.TaskDTO{}, err
	}
	id, err := parseTaskID(cmd.TaskID)
	if err != nil {
		return dto.TaskDTO{}, err
	}
	var priority value_objects.Priority
	if cmd.Priority != nil {
		if priority, err = value_objects.ParsePriority(*cmd.Priority); err != nil {
			return dto.TaskDTO{}, fmt.Errorf("%w: %v", task.ErrValidation, err)
		}
	}

	now := h.clock()
	var (
		snap     task.Snapshot
		oldBoard string
		oldUser  string
	)
	err = h.tx.WithinTx(ctx, func(txCtx context.Context) error {
		t, err := h.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		oldBoard, oldUser = t.BoardID(), t.AssignedTo()
		if err := applyUpdate(t, cmd, priority, now); err != nil {
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

	changes := make(map[string]task.FieldChange)
	if oldUser != snap.AssignedTo {
		changes[task.FieldAssignedTo] = task.FieldChange{Old: oldUser, New: snap.AssignedTo}
	}
	if oldBoard != snap.BoardID {
		changes[task.FieldBoardID] = task.FieldChange{Old: oldBoard, New: snap.BoardID}
	}

	h.effects.cacheTask(ctx, snap)
	h.effects.evictViews(ctx, []string{oldBoard, snap.BoardID}, []string{oldUser, snap.AssignedTo})

	meta := h.effects.eventMeta(ctx)
	h.effects.emit(ctx, task.NewTaskUpdated(snap, changes, meta))
	if _, reassigned := changes[task.FieldAssignedTo]; reassigned && snap.AssignedTo != "" {
		h.effects.emit(ctx, task.NewTaskAssigned(snap, meta.UserID, "", meta))
	}

	h.effects.logger.Info("task updated", "task_id", snap.ID, "changed_fields", len(changes))
	return dto.FromSnapshot(snap, now), nil
}

func applyUpdate(t *task.Task, cmd UpdateTaskCommand, priority value_objects.Priority, now time.Time) error {
	if cmd.Title != nil {
		if err := t.SetTitle(*cmd.Title, now); err != nil {
			return err
		}
	}
	if cmd.Description != nil {
		t.SetDescription(*cmd.Description, now)
	}
	if cmd.Priority != nil {
		if err := t.SetPriority(priority, now); err != nil {
			return err
		}
	}
	if cmd.BoardID != nil {
		if err := t.MoveToBoard(*cmd.BoardID, now); err != nil {
			return err
		}
	}
	if cmd.AssignedTo != nil {
		t.AssignTo(*cmd.AssignedTo, now)
	}
	switch {
	case cmd.ClearDueDate:
		t.SetDueDate(nil, now)
	case cmd.DueDate != nil:
		t.SetDueDate(cmd.DueDate, now)
	}
	return nil
}
