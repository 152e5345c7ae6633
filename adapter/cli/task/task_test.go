package task

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
	internalApp "github.com/fouadkhalied/task-mangment-system/internal/app"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
	"github.com/fouadkhalied/task-mangment-system/pkg/config"
)

// setupLocalModeTestApp creates a CLI app backed by SQLite, miniredis and the
// in-process event bus.
func setupLocalModeTestApp(t *testing.T) *cli.App {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := config.Defaults()
	cfg.AppEnv = "test"
	cfg.DatabaseDriver = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "test.db")
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.RabbitMQURL = ""

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	container, err := internalApp.NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	app := cli.NewApp(container.TaskService, container.Cache, container.MessagingMetrics, container.Health)
	cli.SetApp(app)
	t.Cleanup(func() { cli.SetApp(nil) })
	resetFlags()
	return app
}

func resetFlags() {
	boardID, priority, description, assignee, dueDate = "", "", "", "", ""
	listBoard, listAssignee, status = "", "", ""
	overdue, ordered = false, false
	statusReason, deleteReason = "", ""
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

func createTask(t *testing.T, app *cli.App, title, board string) dto.TaskDTO {
	t.Helper()
	created, err := app.Tasks.Create(context.Background(), commands.CreateTaskCommand{
		Title:      title,
		BoardID:    board,
		AssignedTo: "U1",
	})
	require.NoError(t, err)
	return created
}

func TestCreateCmd_CreatesTask(t *testing.T) {
	app := setupLocalModeTestApp(t)

	boardID = "B1"
	priority = "high"
	assignee = "U1"
	dueDate = "2030-01-15"

	out, err := run(t, createCmd, "Write report")
	require.NoError(t, err)
	assert.Contains(t, out, "Task created")
	assert.Contains(t, out, "Write report")

	tasks, err := app.Tasks.ListByBoard(context.Background(), "B1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "HIGH", tasks[0].Priority)
	assert.Equal(t, "U1", tasks[0].AssignedTo)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2030-01-15", tasks[0].DueDate.Format(dateLayout))
}

func TestCreateCmd_InvalidDueDate(t *testing.T) {
	setupLocalModeTestApp(t)

	boardID = "B1"
	dueDate = "15/01/2030"

	_, err := run(t, createCmd, "Write report")
	assert.ErrorContains(t, err, "invalid due date format")
}

func TestCreateCmd_NotInitialized(t *testing.T) {
	cli.SetApp(nil)

	_, err := run(t, createCmd, "Write report")
	assert.ErrorContains(t, err, "application not initialized")
}

func TestShowCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	created := createTask(t, app, "Review PR", "B1")

	out, err := run(t, showCmd, created.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Review PR")
	assert.Contains(t, out, "TODO")
}

func TestShowCmd_UnknownTask(t *testing.T) {
	setupLocalModeTestApp(t)

	_, err := run(t, showCmd, "00000000-0000-0000-0000-000000000042")
	assert.ErrorContains(t, err, "failed to get task")
}

func TestStatusCmd_Done(t *testing.T) {
	app := setupLocalModeTestApp(t)
	created := createTask(t, app, "Ship it", "B1")

	out, err := run(t, statusCmd, created.ID.String(), "done")
	require.NoError(t, err)
	assert.Contains(t, out, "DONE")

	got, err := app.Tasks.Get(context.Background(), created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "DONE", got.Status)
}

func TestStatusCmd_InvalidStatus(t *testing.T) {
	app := setupLocalModeTestApp(t)
	created := createTask(t, app, "Ship it", "B1")

	_, err := run(t, statusCmd, created.ID.String(), "archived")
	assert.ErrorContains(t, err, "failed to update status")
}

func TestListCmd_ByBoard(t *testing.T) {
	app := setupLocalModeTestApp(t)
	createTask(t, app, "First", "B1")
	createTask(t, app, "Second", "B1")
	createTask(t, app, "Elsewhere", "B2")

	listBoard = "B1"
	out, err := run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Tasks (2)")
	assert.Contains(t, out, "First")
	assert.NotContains(t, out, "Elsewhere")
}

func TestListCmd_RequiresFilter(t *testing.T) {
	setupLocalModeTestApp(t)

	_, err := run(t, listCmd)
	assert.ErrorContains(t, err, "is required")
}

func TestListCmd_Empty(t *testing.T) {
	setupLocalModeTestApp(t)

	overdue = true
	out, err := run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks found.")
}

func TestDeleteCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	created := createTask(t, app, "Temporary", "B1")

	out, err := run(t, deleteCmd, created.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = app.Tasks.Get(context.Background(), created.ID.String())
	assert.Error(t, err)
}

func TestCountCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	createTask(t, app, "One", "B1")
	createTask(t, app, "Two", "B1")

	out, err := run(t, countCmd, "B1", "todo")
	require.NoError(t, err)
	assert.Equal(t, "2", strings.TrimSpace(out))
}

func TestSweepCmd_NothingOverdue(t *testing.T) {
	app := setupLocalModeTestApp(t)
	createTask(t, app, "Not due", "B1")

	out, err := run(t, sweepCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "overdue: 0")
}
