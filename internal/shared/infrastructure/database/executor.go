package database

import "context"

// Row is a single result row. pgx.Row and *sql.Row both satisfy it.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result cursor.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Result reports what an Exec changed. Tasks are keyed by UUID, so only the
// affected row count is exposed; repositories map zero to not-found.
type Result interface {
	RowsAffected() (int64, error)
}

// Executor runs queries. Connections and transactions both implement it, so
// repositories take whichever ExecutorFromContext hands them.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Transaction is an Executor that must be committed or rolled back.
type Transaction interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Connection is an open task store.
type Connection interface {
	Executor
	BeginTx(ctx context.Context) (Transaction, error)
	Ping(ctx context.Context) error
	Close() error
	Driver() Driver
}
