package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/value_objects"
	"github.com/google/uuid"
)

// DefaultQueryTimeout bounds every repository call.
const DefaultQueryTimeout = 5 * time.Second

const taskColumns = `id, title, description, status, priority, board_id, assigned_to, due_date, created_at, updated_at`

// taskRow is the driver-neutral shape of a tasks row.
type taskRow struct {
	ID          uuid.UUID
	Title       string
	Description string
	Status      string
	Priority    string
	BoardID     string
	AssignedTo  *string
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func rowFromTask(t *task.Task) taskRow {
	row := taskRow{
		ID:          t.ID(),
		Title:       t.Title(),
		Description: t.Description(),
		Status:      t.Status().String(),
		Priority:    t.Priority().String(),
		BoardID:     t.BoardID(),
		DueDate:     t.DueDate(),
		CreatedAt:   t.CreatedAt().UTC(),
		UpdatedAt:   t.UpdatedAt().UTC(),
	}
	if t.IsAssigned() {
		assignee := t.AssignedTo()
		row.AssignedTo = &assignee
	}
	return row
}

func (r taskRow) toTask() (*task.Task, error) {
	status, err := task.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("invalid status in database: %v", err)
	}
	priority, err := value_objects.ParsePriority(r.Priority)
	if err != nil {
		return nil, fmt.Errorf("invalid priority in database: %v", err)
	}

	s := task.Snapshot{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      status,
		Priority:    priority,
		BoardID:     r.BoardID,
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.AssignedTo != nil {
		s.AssignedTo = *r.AssignedTo
	}
	return task.Rehydrate(s), nil
}

// persistenceError classifies a driver error for callers.
func persistenceError(op string, err error) error {
	if database.IsConstraintViolation(err) {
		return fmt.Errorf("%w: %s: %w", task.ErrConflict, op, err)
	}
	return fmt.Errorf("%w: %s: %w", task.ErrPersistence, op, err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, d)
}

// rowScanner scans one tasks row in driver-specific column types.
type rowScanner func(scan func(dest ...any) error) (taskRow, error)

func scanTasks(rows database.Rows, scanRow rowScanner) ([]*task.Task, error) {
	defer rows.Close()

	tasks := make([]*task.Task, 0)
	for rows.Next() {
		row, err := scanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		t, err := row.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}
