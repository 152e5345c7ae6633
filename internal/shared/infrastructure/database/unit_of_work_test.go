package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database/sqlite"
)

func openTestConnection(t *testing.T) database.Connection {
	t.Helper()
	conn, err := sqlite.NewConnection(context.Background(), database.Config{
		SQLitePath: filepath.Join(t.TempDir(), "uow.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Exec(context.Background(), `CREATE TABLE items (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	return conn
}

func countItems(t *testing.T, conn database.Connection) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(context.Background(), `SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestTransactor_CommitsOnSuccess(t *testing.T) {
	conn := openTestConnection(t)
	tr := database.NewTransactor(conn)

	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := database.ExecutorFromContext(ctx, conn).Exec(ctx, `INSERT INTO items (id) VALUES (?)`, "a")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, conn))
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	conn := openTestConnection(t)
	tr := database.NewTransactor(conn)
	boom := errors.New("boom")

	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		if _, err := database.ExecutorFromContext(ctx, conn).Exec(ctx, `INSERT INTO items (id) VALUES (?)`, "a"); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countItems(t, conn))
}

func TestTransactor_NestedCallJoinsOuterTransaction(t *testing.T) {
	conn := openTestConnection(t)
	tr := database.NewTransactor(conn)

	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		outer, _ := database.TxFromContext(ctx)
		return tr.WithinTx(ctx, func(inner context.Context) error {
			tx, ok := database.TxFromContext(inner)
			require.True(t, ok)
			assert.Same(t, outer, tx)
			_, err := database.ExecutorFromContext(inner, conn).Exec(inner, `INSERT INTO items (id) VALUES (?)`, "b")
			return err
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, conn))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, database.IsNoRows(database.ErrNoRows))
	assert.False(t, database.IsNoRows(nil))
	assert.False(t, database.IsNoRows(errors.New("other")))
}
