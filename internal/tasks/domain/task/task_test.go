package task_test

import (
	"testing"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/value_objects"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestNewTask(t *testing.T) {
	tsk, err := task.NewTask("  Ship release ", "B1", now)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tsk.ID())
	assert.Equal(t, "Ship release", tsk.Title())
	assert.Equal(t, "B1", tsk.BoardID())
	assert.Equal(t, task.StatusTodo, tsk.Status())
	assert.Equal(t, value_objects.PriorityMedium, tsk.Priority())
	assert.False(t, tsk.IsAssigned())
	assert.Nil(t, tsk.DueDate())
	assert.Equal(t, now, tsk.CreatedAt())
}

func TestNewTask_RequiresTitleAndBoard(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		boardID string
	}{
		{"empty title", "", "B1"},
		{"blank title", "  \t", "B1"},
		{"empty board", "Title", ""},
		{"blank board", "Title", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := task.NewTask(tt.title, tt.boardID, now)
			require.Error(t, err)
			assert.ErrorIs(t, err, task.ErrValidation)
		})
	}
}

func TestTask_IsOverdue(t *testing.T) {
	past := now.Add(-24 * time.Hour)
	future := now.Add(48 * time.Hour)

	tests := []struct {
		name     string
		due      *time.Time
		status   task.Status
		expected bool
	}{
		{"no due date", nil, task.StatusTodo, false},
		{"past due todo", &past, task.StatusTodo, true},
		{"past due in progress", &past, task.StatusInProgress, true},
		{"past due done", &past, task.StatusDone, false},
		{"future due", &future, task.StatusTodo, false},
		{"future due done", &future, task.StatusDone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tsk, err := task.NewTask("Task", "B1", now.Add(-72*time.Hour))
			require.NoError(t, err)
			tsk.SetDueDate(tt.due, now)
			require.NoError(t, tsk.MoveTo(tt.status, now))

			assert.Equal(t, tt.expected, tsk.IsOverdue(now))
		})
	}
}

func TestTask_MoveTo_AnyDirection(t *testing.T) {
	tsk, err := task.NewTask("Task", "B1", now)
	require.NoError(t, err)

	require.NoError(t, tsk.MoveTo(task.StatusDone, now.Add(time.Minute)))
	assert.Equal(t, task.StatusDone, tsk.Status())

	require.NoError(t, tsk.MoveTo(task.StatusTodo, now.Add(2*time.Minute)))
	assert.Equal(t, task.StatusTodo, tsk.Status())
	assert.Equal(t, now.Add(2*time.Minute), tsk.UpdatedAt())

	err = tsk.MoveTo(task.Status("ARCHIVED"), now)
	assert.ErrorIs(t, err, task.ErrValidation)
}

func TestTask_Mutators(t *testing.T) {
	tsk, err := task.NewTask("Task", "B1", now)
	require.NoError(t, err)

	assert.ErrorIs(t, tsk.SetTitle(" ", now), task.ErrValidation)
	require.NoError(t, tsk.SetTitle("Renamed", now))
	assert.Equal(t, "Renamed", tsk.Title())

	assert.ErrorIs(t, tsk.SetPriority(value_objects.Priority(0), now), task.ErrValidation)
	require.NoError(t, tsk.SetPriority(value_objects.PriorityUrgent, now))
	assert.Equal(t, value_objects.PriorityUrgent, tsk.Priority())

	assert.ErrorIs(t, tsk.MoveToBoard("", now), task.ErrValidation)
	require.NoError(t, tsk.MoveToBoard("B2", now))
	assert.Equal(t, "B2", tsk.BoardID())

	tsk.AssignTo("user-1", now)
	assert.True(t, tsk.IsAssigned())
	tsk.AssignTo("", now)
	assert.False(t, tsk.IsAssigned())
}

func TestTask_DueDateIsCopied(t *testing.T) {
	tsk, err := task.NewTask("Task", "B1", now)
	require.NoError(t, err)

	due := now.Add(time.Hour)
	tsk.SetDueDate(&due, now)
	due = due.Add(100 * time.Hour)

	require.NotNil(t, tsk.DueDate())
	assert.Equal(t, now.Add(time.Hour), *tsk.DueDate())
}

func TestRehydrate_RoundTripsSnapshot(t *testing.T) {
	due := now.Add(time.Hour)
	snap := task.Snapshot{
		ID:          uuid.New(),
		Title:       "Persisted",
		Description: "desc",
		Status:      task.StatusInProgress,
		Priority:    value_objects.PriorityHigh,
		BoardID:     "B9",
		AssignedTo:  "user-7",
		DueDate:     &due,
		CreatedAt:   now.Add(-time.Hour),
		UpdatedAt:   now,
	}

	tsk := task.Rehydrate(snap)

	assert.Equal(t, snap, tsk.Snapshot())
}

func TestParseStatus(t *testing.T) {
	s, err := task.ParseStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, s)

	_, err = task.ParseStatus("blocked")
	assert.ErrorIs(t, err, task.ErrValidation)

	assert.Len(t, task.Statuses(), 3)
}
