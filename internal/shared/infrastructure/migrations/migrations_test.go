package migrations_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database/sqlite"
	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/migrations"
)

func TestRun_SQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	cfg := database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "migrate.db"),
	}
	conn, err := sqlite.NewConnection(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	require.NoError(t, migrations.Run(ctx, conn, cfg, logger))
	// Applying again is a no-op.
	require.NoError(t, migrations.Run(ctx, conn, cfg, logger))

	for _, table := range []string{"tasks", "dead_letters", migrations.TableName} {
		var name string
		err := conn.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestUp_UnsupportedDriver(t *testing.T) {
	err := migrations.Up(context.Background(), nil, database.Driver("mysql"), nil)
	assert.Error(t, err)
}
