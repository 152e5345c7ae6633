package persistence

import (
	"context"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/deadletter"
	"github.com/google/uuid"
)

const deadLetterColumns = `id, message_id, event_type, task_id, correlation_id, error_message, payload, retry_count, failed_at, archived_at`

// PostgresDeadLetterRepository implements deadletter.Repository using PostgreSQL.
type PostgresDeadLetterRepository struct {
	conn    database.Connection
	timeout time.Duration
}

var _ deadletter.Repository = (*PostgresDeadLetterRepository)(nil)

// NewPostgresDeadLetterRepository creates a PostgreSQL dead-letter repository.
func NewPostgresDeadLetterRepository(conn database.Connection) *PostgresDeadLetterRepository {
	return &PostgresDeadLetterRepository{conn: conn, timeout: DefaultQueryTimeout}
}

// Save archives a record. A record with a known message id is ignored.
func (r *PostgresDeadLetterRepository) Save(ctx context.Context, rec *deadletter.Record) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (message_id) DO NOTHING
	`
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		rec.ID,
		rec.MessageID,
		rec.EventType,
		rec.TaskID,
		rec.CorrelationID,
		rec.ErrorMessage,
		rec.Payload,
		rec.RetryCount,
		rec.FailedAt.UTC(),
		rec.ArchivedAt.UTC(),
	)
	if err != nil {
		return persistenceError("save dead letter", err)
	}
	return nil
}

// List returns archived records, newest failure first.
func (r *PostgresDeadLetterRepository) List(ctx context.Context, limit, offset int) ([]*deadletter.Record, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters ORDER BY failed_at DESC LIMIT $1 OFFSET $2`
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, normalizeLimit(limit), max(offset, 0))
	if err != nil {
		return nil, persistenceError("list dead letters", err)
	}
	defer rows.Close()

	records := make([]*deadletter.Record, 0)
	for rows.Next() {
		var rec deadletter.Record
		if err := rows.Scan(
			&rec.ID,
			&rec.MessageID,
			&rec.EventType,
			&rec.TaskID,
			&rec.CorrelationID,
			&rec.ErrorMessage,
			&rec.Payload,
			&rec.RetryCount,
			&rec.FailedAt,
			&rec.ArchivedAt,
		); err != nil {
			return nil, persistenceError("list dead letters", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list dead letters", err)
	}
	return records, nil
}

// Count returns the number of archived records.
func (r *PostgresDeadLetterRepository) Count(ctx context.Context) (int64, error) {
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
func (r *PostgresDeadLetterRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	exec := database.ExecutorFromContext(ctx, r.conn)
	result, err := exec.Exec(ctx, `DELETE FROM dead_letters WHERE failed_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, persistenceError("delete dead letters", err)
	}
	return result.RowsAffected()
}

const defaultListLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
