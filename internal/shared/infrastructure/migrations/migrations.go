package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	_ "github.com/lib/pq" // database/sql driver for postgres migrations
	"github.com/pressly/goose/v3"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
)

// TableName is the goose version table.
const TableName = "schema_migrations"

//go:embed sqlite/*.sql postgres/*.sql
var migrationsFS embed.FS

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// slogGooseLogger forwards goose output to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs without exiting; the error is returned to the caller instead.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Up applies every pending migration for driver to db.
func Up(ctx context.Context, db *sql.DB, driver database.Driver, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	dialect, dir, err := dialectFor(driver)
	if err != nil {
		return err
	}
	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", dir, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(&slogGooseLogger{logger: logger})
	goose.SetTableName(TableName)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply %s migrations: %w", driver, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err == nil {
		logger.Info("database migrated", "driver", driver.String(), "version", version)
	}
	return nil
}

// Run migrates the database behind conn. Postgres migrations open a
// short-lived database/sql handle on cfg.URL.
func Run(ctx context.Context, conn database.Connection, cfg database.Config, logger *slog.Logger) error {
	switch conn.Driver() {
	case database.DriverSQLite:
		handle, ok := conn.(interface{ DB() *sql.DB })
		if !ok {
			return fmt.Errorf("sqlite connection does not expose *sql.DB")
		}
		return Up(ctx, handle.DB(), database.DriverSQLite, logger)
	case database.DriverPostgres:
		db, err := sql.Open("postgres", cfg.URL)
		if err != nil {
			return fmt.Errorf("failed to open migration connection: %w", err)
		}
		defer db.Close()
		return Up(ctx, db, database.DriverPostgres, logger)
	default:
		return fmt.Errorf("unsupported database driver: %s", conn.Driver())
	}
}

func dialectFor(driver database.Driver) (dialect, dir string, err error) {
	switch driver {
	case database.DriverSQLite:
		return "sqlite3", "sqlite", nil
	case database.DriverPostgres:
		return "postgres", "postgres", nil
	default:
		return "", "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}
