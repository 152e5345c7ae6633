package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/domain"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/value_objects"
	"github.com/google/uuid"
)

// Status represents the task lifecycle state.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses returns every defined status. Cache invalidation relies on this
// being exhaustive.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// ParseStatus parses a status name, ignoring case.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
	return status, nil
}

// IsValid reports whether s is a defined status.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }

// Task is a unit of work on a board.
type Task struct {
	domain.BaseEntity
	title       string
	description string
	status      Status
	priority    value_objects.Priority
	boardID     string
	assignedTo  string
	dueDate     *time.Time
}

// Snapshot is a flat copy of a task's state. It is the cached read model.
type Snapshot struct {
	ID          uuid.UUID              `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Status      Status                 `json:"status"`
	Priority    value_objects.Priority `json:"priority"`
	BoardID     string                 `json:"boardId"`
	AssignedTo  string                 `json:"assignedTo,omitempty"`
	DueDate     *time.Time             `json:"dueDate,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// NewTask creates a TODO task with MEDIUM priority on the given board.
func NewTask(title, boardID string, now time.Time) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	boardID = strings.TrimSpace(boardID)
	if boardID == "" {
		return nil, fmt.Errorf("%w: boardId is required", ErrValidation)
	}

	return &Task{
		BaseEntity: domain.NewBaseEntity(now),
		title:      title,
		status:     StatusTodo,
		priority:   value_objects.PriorityMedium,
		boardID:    boardID,
	}, nil
}

// Rehydrate recreates a task from persisted state.
func Rehydrate(s Snapshot) *Task {
	return &Task{
		BaseEntity:  domain.RehydrateBaseEntity(s.ID, s.CreatedAt, s.UpdatedAt),
		title:       s.Title,
		description: s.Description,
		status:      s.Status,
		priority:    s.Priority,
		boardID:     s.BoardID,
		assignedTo:  s.AssignedTo,
		dueDate:     copyTime(s.DueDate),
	}
}

// Getters

func (t *Task) Title() string                    { return t.title }
func (t *Task) Description() string              { return t.description }
func (t *Task) Status() Status                   { return t.status }
func (t *Task) Priority() value_objects.Priority { return t.priority }
func (t *Task) BoardID() string                  { return t.boardID }
func (t *Task) AssignedTo() string               { return t.assignedTo }
func (t *Task) DueDate() *time.Time              { return copyTime(t.dueDate) }
func (t *Task) IsAssigned() bool                 { return t.assignedTo != "" }
func (t *Task) IsDone() bool                     { return t.status == StatusDone }

// IsOverdue reports whether the task has a past due date and is not done.
func (t *Task) IsOverdue(now time.Time) bool {
	return IsOverdue(t.dueDate, t.status, now)
}

// IsOverdue reports whether the snapshot is overdue at now.
func (s Snapshot) IsOverdue(now time.Time) bool {
	return IsOverdue(s.DueDate, s.Status, now)
}

// IsOverdue is the overdue predicate shared by entities and read models.
func IsOverdue(dueDate *time.Time, status Status, now time.Time) bool {
	return dueDate != nil && dueDate.Before(now) && status != StatusDone
}

// SetTitle updates the title.
func (t *Task) SetTitle(title string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	t.title = title
	t.Touch(now)
	return nil
}

// SetDescription updates the description.
func (t *Task) SetDescription(description string, now time.Time) {
	t.description = strings.TrimSpace(description)
	t.Touch(now)
}

// SetPriority updates the priority.
func (t *Task) SetPriority(priority value_objects.Priority, now time.Time) error {
	if !priority.IsValid() {
		return fmt.Errorf("%w: %v", ErrValidation, value_objects.ErrInvalidPriority)
	}
	t.priority = priority
	t.Touch(now)
	return nil
}

// SetDueDate replaces the due date. A nil value clears it.
func (t *Task) SetDueDate(dueDate *time.Time, now time.Time) {
	t.dueDate = copyTime(dueDate)
	t.Touch(now)
}

// MoveTo sets the status. Any status may follow any other.
func (t *Task) MoveTo(status Status, now time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	t.status = status
	t.Touch(now)
	return nil
}

// AssignTo sets the assignee. An empty id unassigns the task.
func (t *Task) AssignTo(userID string, now time.Time) {
	t.assignedTo = strings.TrimSpace(userID)
	t.Touch(now)
}

// MoveToBoard moves the task to another board.
func (t *Task) MoveToBoard(boardID string, now time.Time) error {
	boardID = strings.TrimSpace(boardID)
	if boardID == "" {
		return fmt.Errorf("%w: boardId is required", ErrValidation)
	}
	t.boardID = boardID
	t.Touch(now)
	return nil
}

// Snapshot returns a copy of the task's state.
func (t *Task) Snapshot() Snapshot {
	return Snapshot{
		ID:          t.ID(),
		Title:       t.title,
		Description: t.description,
		Status:      t.status,
		Priority:    t.priority,
		BoardID:     t.boardID,
		AssignedTo:  t.assignedTo,
		DueDate:     copyTime(t.dueDate),
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
