// Package dto holds the task read model returned by the application layer.
package dto

import (
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// TaskDTO is a data transfer object for tasks.
type TaskDTO struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	BoardID     string     `json:"boardId"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Overdue     bool       `json:"overdue"`
}

// FromSnapshot maps a snapshot, evaluating the overdue flag at now.
func FromSnapshot(s task.Snapshot, now time.Time) TaskDTO {
	return TaskDTO{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Status:      s.Status.String(),
		Priority:    s.Priority.String(),
		BoardID:     s.BoardID,
		AssignedTo:  s.AssignedTo,
		DueDate:     s.DueDate,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Overdue:     s.IsOverdue(now),
	}
}

// FromSnapshots maps a list of snapshots. The result is never nil.
func FromSnapshots(list []task.Snapshot, now time.Time) []TaskDTO {
	out := make([]TaskDTO, 0, len(list))
	for _, s := range list {
		out = append(out, FromSnapshot(s, now))
	}
	return out
}

// Snapshots returns the snapshots of tasks. The result is never nil.
func Snapshots(tasks []*task.Task) []task.Snapshot {
	out := make([]task.Snapshot, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Snapshot())
	}
	return out
}
