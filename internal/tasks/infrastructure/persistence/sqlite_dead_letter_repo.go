package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/deadletter"
	"github.com/google/uuid"
)

// SQLiteDeadLetterRepository implements deadletter.Repository using SQLite.
type SQLiteDeadLetterRepository struct {
	conn    database.Connection
	timeout time.Duration
}

var _ deadletter.Repository = (*SQLiteDeadLetterRepository)(nil)

// NewSQLiteDeadLetterRepository creates a SQLite dead-letter repository.
func NewSQLiteDeadLetterRepository(conn database.Connection) *SQLiteDeadLetterRepository {
	return &SQLiteDeadLetterRepository{conn: conn, timeout: DefaultQueryTimeout}
}

// Save archives a record. A record with a known message id is ignored.
func (r *SQLiteDeadLetterRepository) Save(ctx context.Context, rec *deadletter.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.ArchivedAt.IsZero() {
		rec.ArchivedAt = time.Now().UTC()
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO dead_letters (` + deadLetterColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id) DO NOTHING
	`
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		rec.ID.String(),
		rec.MessageID,
		rec.EventType,
		rec.TaskID,
		rec.CorrelationID,
		rec.ErrorMessage,
		string(rec.Payload),
		rec.RetryCount,
		formatSQLiteTime(rec.FailedAt),
		formatSQLiteTime(rec.ArchivedAt),
	)
	if err != nil {
		return persistenceError("save dead letter", err)
	}
	return nil
}

// List returns archived records, newest failure first.
func (r *SQLiteDeadLetterRepository) List(ctx context.Context, limit, offset int) ([]*deadletter.Record, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters ORDER BY failed_at DESC LIMIT ? OFFSET ?`
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, normalizeLimit(limit), max(offset, 0))
	if err != nil {
		return nil, persistenceError("list dead letters", err)
	}
	defer rows.Close()

	records := make([]*deadletter.Record, 0)
	for rows.Next() {
		rec, err := scanSQLiteDeadLetter(rows.Scan)
		if err != nil {
			return nil, persistenceError("list dead letters", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list dead letters", err)
	}
	return records, nil
}

func scanSQLiteDeadLetter(scan func(dest ...any) error) (*deadletter.Record, error) {
	var (
		rec       deadletter.Record
		id        string
		payload   string
		failedAt  string
		archiveAt string
	)
	if err := scan(
		&id,
		&rec.MessageID,
		&rec.EventType,
		&rec.TaskID,
		&rec.CorrelationID,
		&rec.ErrorMessage,
		&payload,
		&rec.RetryCount,
		&failedAt,
		&archiveAt,
	); err != nil {
		return nil, err
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid dead-letter id %q: %w", id, err)
	}
	rec.Payload = []byte(payload)
	if rec.FailedAt, err = parseSQLiteTime(failedAt); err != nil {
		return nil, err
	}
	if rec.ArchivedAt, err = parseSQLiteTime(archiveAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Count returns the number of archived records.
func (r *SQLiteDeadLetterRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	exec := database.ExecutorFromContext(ctx, r.conn)
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&n); err != nil {
		return 0, persistenceError("count dead letters", err)
	}
	return n, nil
}

// DeleteOlderThan removes records that failed before cutoff.
func (r *SQLiteDeadLetterRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	exec := database.ExecutorFromContext(ctx, r.conn)
	result, err := exec.Exec(ctx, `DELETE FROM dead_letters WHERE failed_at < ?`, formatSQLiteTime(cutoff))
	if err != nil {
		return 0, persistenceError("delete dead letters", err)
	}
	return result.RowsAffected()
}
