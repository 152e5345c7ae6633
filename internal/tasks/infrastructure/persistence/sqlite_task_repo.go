package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// sqliteTimeLayout is fixed-width so TEXT timestamps order correctly.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		// Rows written by hand or by older tooling.
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// SQLiteTaskRepository implements task.Repository using SQLite.
type SQLiteTaskRepository struct {
	conn    database.Connection
	timeout time.Duration
}

var _ task.Repository = (*SQLiteTaskRepository)(nil)

// NewSQLiteTaskRepository creates a SQLite task repository.
func NewSQLiteTaskRepository(conn database.Connection) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{conn: conn, timeout: DefaultQueryTimeout}
}

// WithQueryTimeout sets the per-call timeout.
func (r *SQLiteTaskRepository) WithQueryTimeout(d time.Duration) *SQLiteTaskRepository {
	r.timeout = d
	return r
}

func scanSQLiteRow(scan func(dest ...any) error) (taskRow, error) {
	var (
		row        taskRow
		id         string
		assignedTo sql.NullString
		dueDate    sql.NullString
		createdAt  string
		updatedAt  string
	)
	if err := scan(
		&id,
		&row.Title,
		&row.Description,
		&row.Status,
		&row.Priority,
		&row.BoardID,
		&assignedTo,
		&dueDate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return row, err
	}

	var err error
	if row.ID, err = uuid.Parse(id); err != nil {
		return row, fmt.Errorf("invalid task id %q: %w", id, err)
	}
	if assignedTo.Valid && assignedTo.String != "" {
		row.AssignedTo = &assignedTo.String
	}
	if dueDate.Valid {
		due, err := parseSQLiteTime(dueDate.String)
		if err != nil {
			return row, err
		}
		row.DueDate = &due
	}
	if row.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return row, err
	}
	if row.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return row, err
	}
	return row, nil
}

// Save inserts or updates a task.
func (r *SQLiteTaskRepository) Save(ctx context.Context, t *task.Task) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := rowFromTask(t)
	var dueDate sql.NullString
	if row.DueDate != nil {
		dueDate = sql.NullString{String: formatSQLiteTime(*row.DueDate), Valid: true}
	}
	var assignedTo sql.NullString
	if row.AssignedTo != nil {
		assignedTo = sql.NullString{String: *row.AssignedTo, Valid: true}
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			board_id = excluded.board_id,
			assigned_to = excluded.assigned_to,
			due_date = excluded.due_date,
			updated_at = excluded.updated_at
	`
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		row.ID.String(),
		row.Title,
		row.Description,
		row.Status,
		row.Priority,
		row.BoardID,
		assignedTo,
		dueDate,
		formatSQLiteTime(row.CreatedAt),
		formatSQLiteTime(row.UpdatedAt),
	)
	if err != nil {
		return persistenceError("save task", err)
	}
	return nil
}

// FindByID retrieves a task by its ID.
func (r *SQLiteTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	exec := database.ExecutorFromContext(ctx, r.conn)
	row, err := scanSQLiteRow(exec.QueryRow(ctx, query, id.String()).Scan)
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
func (r *SQLiteTaskRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	exec := database.ExecutorFromContext(ctx, r.conn)
	result, err := exec.Exec(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
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
func (r *SQLiteTaskRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var n int
	exec := database.ExecutorFromContext(ctx, r.conn)
	if err := exec.QueryRow(ctx, `SELECT COUNT(1) FROM tasks WHERE id = ?`, id.String()).Scan(&n); err != nil {
		return false, persistenceError("exists task", err)
	}
	return n > 0, nil
}

func (r *SQLiteTaskRepository) FindByBoardID(ctx context.Context, boardID string) ([]*task.Task, error) {
	return r.list(ctx, "find by board", `WHERE board_id = ? ORDER BY created_at`, boardID)
}

func (r *SQLiteTaskRepository) FindByAssignedTo(ctx context.Context, userID string) ([]*task.Task, error) {
	return r.list(ctx, "find by assignee", `WHERE assigned_to = ? ORDER BY created_at`, userID)
}

func (r *SQLiteTaskRepository) FindByStatus(ctx context.Context, status task.Status) ([]*task.Task, error) {
	return r.list(ctx, "find by status", `WHERE status = ? ORDER BY created_at`, status.String())
}

func (r *SQLiteTaskRepository) FindByBoardIDAndStatus(ctx context.Context, boardID string, status task.Status) ([]*task.Task, error) {
	return r.list(ctx, "find by board and status",
		`WHERE board_id = ? AND status = ? ORDER BY created_at`, boardID, status.String())
}

func (r *SQLiteTaskRepository) FindByBoardIDOrderByCreatedAtDesc(ctx context.Context, boardID string) ([]*task.Task, error) {
	return r.list(ctx, "find by board ordered", `WHERE board_id = ? ORDER BY created_at DESC`, boardID)
}

func (r *SQLiteTaskRepository) FindByAssignedToAndStatus(ctx context.Context, userID string, status task.Status) ([]*task.Task, error) {
	return r.list(ctx, "find by assignee and status",
		`WHERE assigned_to = ? AND status = ? ORDER BY created_at`, userID, status.String())
}

// FindOverdue returns tasks due before now that are not done.
func (r *SQLiteTaskRepository) FindOverdue(ctx context.Context, now time.Time) ([]*task.Task, error) {
	return r.list(ctx, "find overdue",
		`WHERE due_date IS NOT NULL AND due_date < ? AND status <> ? ORDER BY due_date`,
		formatSQLiteTime(now), task.StatusDone.String())
}

func (r *SQLiteTaskRepository) CountByBoardIDAndStatus(ctx context.Context, boardID string, status task.Status) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	exec := database.ExecutorFromContext(ctx, r.conn)
	err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE board_id = ? AND status = ?`,
		boardID, status.String()).Scan(&n)
	if err != nil {
		return 0, persistenceError("count by board and status", err)
	}
	return n, nil
}

func (r *SQLiteTaskRepository) list(ctx context.Context, op, where string, args ...any) ([]*task.Task, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, `SELECT `+taskColumns+` FROM tasks `+where, args...)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	tasks, err := scanTasks(rows, scanSQLiteRow)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return tasks, nil
}
