package persistence

import (
	"context"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// PostgresTaskRepository implements task.Repository using PostgreSQL.
type PostgresTaskRepository struct {
	conn    database.Connection
	timeout time.Duration
}

var _ task.Repository = (*PostgresTaskRepository)(nil)

// NewPostgresTaskRepository creates a PostgreSQL task repository.
func NewPostgresTaskRepository(conn database.Connection) *PostgresTaskRepository {
	return &PostgresTaskRepository{conn: conn, timeout: DefaultQueryTimeout}
}

// WithQueryTimeout sets the per-call timeout.
func (r *PostgresTaskRepository) WithQueryTimeout(d time.Duration) *PostgresTaskRepository {
	r.timeout = d
	return r
}

func scanPostgresRow(scan func(dest ...any) error) (taskRow, error) {
	var row taskRow
	err := scan(
		&row.ID,
		&row.Title,
		&row.Description,
		&row.Status,
		&row.Priority,
		&row.BoardID,
		&row.AssignedTo,
		&row.DueDate,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	return row, err
}

// Save inserts or updates a task.
func (r *PostgresTaskRepository) Save(ctx context.Context, t *task.Task) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := rowFromTask(t)
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			board_id = EXCLUDED.board_id,
			assigned_to = EXCLUDED.assigned_to,
			due_date = EXCLUDED.due_date,
			updated_at = EXCLUDED.updated_at
	`
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		row.ID,
		row.Title,
		row.Description,
		row.Status,
		row.Priority,
		row.BoardID,
		row.AssignedTo,
		row.DueDate,
		row.CreatedAt,
		row.UpdatedAt,
	)
	if err != nil {
		return persistenceError("save task", err)
	}
	return nil
}

// FindByID retrieves a task by its ID.
func (r *PostgresTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	exec := database.ExecutorFromContext(ctx, r.conn)
	row, err := scanPostgresRow(exec.QueryRow(ctx, query, id).Scan)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, task.ErrNotFound
		}
		return nil, persistenceError("find task", err)
	}
	t, err := row.toTask()
	if err != nil {
		return nil, persistenceError("find task", err)
	}
	return t, nil
}

// DeleteByID removes a task. Deleting a missing task returns task.ErrNotFound.
func (r *PostgresTaskRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	exec := database.ExecutorFromContext(ctx, r.conn)
	result, err := exec.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return persistenceError("delete task", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistenceError("delete task", err)
	}
	if affected == 0 {
		return task.ErrNotFound
	}
	return nil
}

// ExistsByID reports whether a task exists.
func (r *PostgresTaskRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	exec := database.ExecutorFromContext(ctx, r.conn)
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, persistenceError("exists task", err)
	}
	return exists, nil
}

func (r *PostgresTaskRepository) FindByBoardID(ctx context.Context, boardID string) ([]*task.Task, error) {
	return r.list(ctx, "find by board", `WHERE board_id = $1 ORDER BY created_at`, boardID)
}

func (r *PostgresTaskRepository) FindByAssignedTo(ctx context.Context, userID string) ([]*task.Task, error) {
	return r.list(ctx, "find by assignee", `WHERE assigned_to = $1 ORDER BY created_at`, userID)
}

func (r *PostgresTaskRepository) FindByStatus(ctx context.Context, status task.Status) ([]*task.Task, error) {
	return r.list(ctx, "find by status", `WHERE status = $1 ORDER BY created_at`, status.String())
}

func (r *PostgresTaskRepository) FindByBoardIDAndStatus(ctx context.Context, boardID string, status task.Status) ([]*task.Task, error) {
	return r.list(ctx, "find by board and status",
		`WHERE board_id = $1 AND status = $2 ORDER BY created_at`, boardID, status.String())
}

func (r *PostgresTaskRepository) FindByBoardIDOrderByCreatedAtDesc(ctx context.Context, boardID string) ([]*task.Task, error) {
	return r.list(ctx, "find by board ordered", `WHERE board_id = $1 ORDER BY created_at DESC`, boardID)
}

func (r *PostgresTaskRepository) FindByAssignedToAndStatus(ctx context.Context, userID string, status task.Status) ([]*task.Task, error) {
	return r.list(ctx, "find by assignee and status",
		`WHERE assigned_to = $1 AND status = $2 ORDER BY created_at`, userID, status.String())
}

// FindOverdue returns tasks due before now that are not done.
func (r *PostgresTaskRepository) FindOverdue(ctx context.Context, now time.Time) ([]*task.Task, error) {
	return r.list(ctx, "find overdue",
		`WHERE due_date IS NOT NULL AND due_date < $1 AND status <> $2 ORDER BY due_date`,
		now.UTC(), task.StatusDone.String())
}

func (r *PostgresTaskRepository) CountByBoardIDAndStatus(ctx context.Context, boardID string, status task.Status) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	exec := database.ExecutorFromContext(ctx, r.conn)
	err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE board_id = $1 AND status = $2`,
		boardID, status.String()).Scan(&n)
	if err != nil {
		return 0, persistenceError("count by board and status", err)
	}
	return n, nil
}

func (r *PostgresTaskRepository) list(ctx context.Context, op, where string, args ...any) ([]*task.Task, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, `SELECT `+taskColumns+` FROM tasks `+where, args...)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	tasks, err := scanTasks(rows, scanPostgresRow)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return tasks, nil
}
