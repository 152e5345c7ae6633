package commands

import (
	"context"
	"fmt"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
)

// OverdueReader returns the current overdue set.
type OverdueReader interface {
	OverdueSnapshots(ctx context.Context) ([]task.Snapshot, error)
}

// SweepResult summarises one overdue sweep. Overdue counts only tasks still
// overdue when the sweep reaches them.
type SweepResult struct {
	Overdue       int `json:"overdue"`
	Events        int `json:"events"`
	Notifications int `json:"notifications"`
}

// SweepOverdueHandler emits one TaskOverdue event per overdue task, plus a
// notification to its assignee. Repeated sweeps emit repeated events.
type SweepOverdueHandler struct {
	reader  OverdueReader
	effects sideEffects
}

// NewSweepOverdueHandler creates a new SweepOverdueHandler.
func NewSweepOverdueHandler(reader OverdueReader, deps Deps) *SweepOverdueHandler {
	return &SweepOverdueHandler{reader: reader, effects: deps.sideEffects()}
}

// Handle runs one sweep.
func (h *SweepOverdueHandler) Handle(ctx context.Context) (SweepResult, error) {
	overdue, err := h.reader.OverdueSnapshots(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for _, snap := range overdue {
		meta := h.effects.eventMeta(ctx)
		if !snap.IsOverdue(meta.Now) {
			continue
		}
		result.Overdue++
		event := task.NewTaskOverdue(snap, meta)
		h.effects.emit(ctx, event)
		result.Events++

		if snap.AssignedTo != "" {
			h.effects.notify(ctx, snap.AssignedTo,
				fmt.Sprintf("Task '%s' is overdue!", snap.Title),
				messaging.NotificationTaskOverdue,
			)
			result.Notifications++
		}
	}

	h.effects.logger.Info("overdue sweep completed",
		"candidates", len(overdue),
		"overdue", result.Overdue,
		"events", result.Events,
		"notifications", result.Notifications,
	)
	return result, nil
}
