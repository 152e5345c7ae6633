package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus/eventbustest"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/value_objects"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// mockTaskRepo is a mock implementation of task.Repository.
type mockTaskRepo struct {
	mock.Mock
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *mockTaskRepo) Save(ctx context.Context, t *task.Task) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTaskRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTaskRepo) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockTaskRepo) list(args mock.Arguments) ([]*task.Task, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *mockTaskRepo) FindByBoardID(ctx context.Context, boardID string) ([]*task.Task, error) {
	return m.list(m.Called(ctx, boardID))
}

func (m *mockTaskRepo) FindByAssignedTo(ctx context.Context, userID string) ([]*task.Task, error) {
	return m.list(m.Called(ctx, userID))
}

func (m *mockTaskRepo) FindByStatus(ctx context.Context, status task.Status) ([]*task.Task, error) {
	return m.list(m.Called(ctx, status))
}

func (m *mockTaskRepo) FindByBoardIDAndStatus(ctx context.Context, boardID string, status task.Status) ([]*task.Task, error) {
	return m.list(m.Called(ctx, boardID, status))
}

func (m *mockTaskRepo) FindByBoardIDOrderByCreatedAtDesc(ctx context.Context, boardID string) ([]*task.Task, error) {
	return m.list(m.Called(ctx, boardID))
}

func (m *mockTaskRepo) FindByAssignedToAndStatus(ctx context.Context, userID string, status task.Status) ([]*task.Task, error) {
	return m.list(m.Called(ctx, userID, status))
}

func (m *mockTaskRepo) FindOverdue(ctx context.Context, now time.Time) ([]*task.Task, error) {
	return m.list(m.Called(ctx, now))
}

func (m *mockTaskRepo) CountByBoardIDAndStatus(ctx context.Context, boardID string, status task.Status) (int64, error) {
	args := m.Called(ctx, boardID, status)
	return args.Get(0).(int64), args.Error(1)
}

// fakeCache records every call.
type fakeCache struct {
	mu      sync.Mutex
	cached  []task.Snapshot
	evicted []string
	boards  []string
	users   []string
	overdue int
	err     error
}

func (c *fakeCache) CacheTask(ctx context.Context, s task.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = append(c.cached, s)
	return c.err
}

func (c *fakeCache) EvictTask(ctx context.Context, taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evicted = append(c.evicted, taskID)
	return c.err
}

func (c *fakeCache) EvictForBoard(ctx context.Context, boardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards = append(c.boards, boardID)
	return c.err
}

func (c *fakeCache) EvictForUser(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, userID)
	return c.err
}

func (c *fakeCache) EvictForOverdueSet(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overdue++
	return c.err
}

func (c *fakeCache) touched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cached)+len(c.evicted)+len(c.boards)+len(c.users)+c.overdue > 0
}

type fixture struct {
	repo  *mockTaskRepo
	cache *fakeCache
	pub   *messaging.EventPublisher
	rec   *eventbustest.Recorder
	deps  Deps
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	rec := eventbustest.NewRecorder()
	pub := messaging.NewEventPublisher(rec, observability.NewMessagingMetrics(logger), messaging.PublisherConfig{}, logger)
	t.Cleanup(func() { _ = pub.Close() })

	f := &fixture{
		repo:  new(mockTaskRepo),
		cache: &fakeCache{},
		pub:   pub,
		rec:   rec,
		now:   time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
	}
	f.deps = Deps{
		Repo:      f.repo,
		Cache:     f.cache,
		Publisher: pub,
		Logger:    logger,
		Clock:     func() time.Time { return f.now },
	}
	return f
}

// drain waits for every submitted message to reach the recorder.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return f.pub.QueueDepth() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.pub.Close())
}

func (f *fixture) events(t *testing.T) []task.Event {
	t.Helper()
	var out []task.Event
	for _, msg := range f.rec.Messages(messaging.ChannelTaskEvents) {
		ev, err := task.DecodeEvent(msg.Payload)
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func (f *fixture) storedTask(t *testing.T, boardID, assignee string, status task.Status) *task.Task {
	t.Helper()
	created := f.now.Add(-72 * time.Hour)
	tk, err := task.NewTask("Ship release", boardID, created)
	require.NoError(t, err)
	if assignee != "" {
		tk.AssignTo(assignee, created)
	}
	require.NoError(t, tk.MoveTo(status, created))
	f.repo.On("FindByID", mock.Anything, tk.ID()).Return(tk, nil)
	return tk
}

func TestCreateTaskHandler_Defaults(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Save", mock.Anything, mock.AnythingOfType("*task.Task")).Return(nil)
	due := f.now.Add(48 * time.Hour)

	got, err := NewCreateTaskHandler(f.deps).Handle(context.Background(), CreateTaskCommand{
		Title:      "Ship release",
		BoardID:    "B1",
		AssignedTo: "U1",
		DueDate:    &due,
	})

	require.NoError(t, err)
	assert.Equal(t, "TODO", got.Status)
	assert.Equal(t, "MEDIUM", got.Priority)
	assert.False(t, got.Overdue)
	f.repo.AssertExpectations(t)

	require.Len(t, f.cache.cached, 1)
	assert.Equal(t, got.ID, f.cache.cached[0].ID)
	assert.Equal(t, []string{"B1"}, f.cache.boards)
	assert.Equal(t, []string{"U1"}, f.cache.users)
	assert.Equal(t, 1, f.cache.overdue)

	f.drain(t)
	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, task.EventTaskCreated, events[0].EventType)
	assert.Equal(t, got.ID.String(), events[0].TaskID)

	analytics := f.rec.Messages(messaging.ChannelAnalytics)
	require.Len(t, analytics, 1)
	assert.Equal(t, "B1", analytics[0].Key)
}

func TestCreateTaskHandler_ExplicitPriority(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	got, err := NewCreateTaskHandler(f.deps).Handle(context.Background(), CreateTaskCommand{
		Title: "Ship release", BoardID: "B1", Priority: "high",
	})

	require.NoError(t, err)
	assert.Equal(t, value_objects.PriorityHigh.String(), got.Priority)
	assert.Empty(t, f.cache.users, "no assignee, no user eviction")
}

func TestCreateTaskHandler_Validation(t *testing.T) {
	tests := []struct {
		name string
		cmd  CreateTaskCommand
	}{
		{"missing title", CreateTaskCommand{BoardID: "B1"}},
		{"missing board", CreateTaskCommand{Title: "x"}},
		{"blank title", CreateTaskCommand{Title: "   ", BoardID: "B1"}},
		{"bad priority", CreateTaskCommand{Title: "x", BoardID: "B1", Priority: "CRITICAL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := NewCreateTaskHandler(f.deps).Handle(context.Background(), tt.cmd)

			assert.ErrorIs(t, err, task.ErrValidation)
			f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			assert.False(t, f.cache.touched())
		})
	}
}

func TestCreateTaskHandler_PersistenceErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(task.ErrPersistence)

	_, err := NewCreateTaskHandler(f.deps).Handle(context.Background(), CreateTaskCommand{Title: "x", BoardID: "B1"})

	assert.ErrorIs(t, err, task.ErrPersistence)
	assert.False(t, f.cache.touched())
	f.drain(t)
	assert.Empty(t, f.rec.Messages(""))
}

func TestCreateTaskHandler_CacheAndPublishFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	f.cache.err = errors.New("redis down")
	f.rec.FailChannel(messaging.ChannelTaskEvents, errors.New("broker down"))
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	got, err := NewCreateTaskHandler(f.deps).Handle(context.Background(), CreateTaskCommand{Title: "x", BoardID: "B1"})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID)
	f.drain(t)
	assert.Len(t, f.rec.Messages(messaging.ChannelDeadLetter), 1)
}

func TestCreateTaskHandler_UsesRequestContext(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	ctx := observability.WithCorrelationID(context.Background(), "corr-42")
	ctx = observability.WithUserID(ctx, "actor-1")

	_, err := NewCreateTaskHandler(f.deps).Handle(ctx, CreateTaskCommand{Title: "x", BoardID: "B1", AssignedTo: "U9"})
	require.NoError(t, err)

	f.drain(t)
	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, "corr-42", events[0].CorrelationID)
	assert.Equal(t, "actor-1", events[0].UserID)
}

func TestUpdateTaskStatusHandler_DoneNotifiesAssigneeOnce(t *testing.T) {
	f := newFixture(t)
	tk := f.storedTask(t, "B1", "U1", task.StatusInProgress)
	past := f.now.Add(-24 * time.Hour)
	tk.SetDueDate(&past, f.now.Add(-48*time.Hour))
	f.repo.On("Save", mock.Anything, tk).Return(nil)

	got, err := NewUpdateTaskStatusHandler(f.deps).Handle(context.Background(), UpdateTaskStatusCommand{
		TaskID: tk.ID().String(),
		Status: "DONE",
	})

	require.NoError(t, err)
	assert.Equal(t, "DONE", got.Status)
	assert.False(t, got.Overdue, "done tasks are never overdue")
	assert.Equal(t, []string{"B1"}, f.cache.boards)
	assert.Equal(t, []string{"U1"}, f.cache.users)

	f.drain(t)
	events := f.events(t)
	require.Len(t, events, 1)
	payload, ok := events[0].Payload.(task.StatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, task.StatusInProgress, payload.OldStatus)
	assert.Equal(t, task.StatusDone, payload.NewStatus)

	notifications := f.rec.Messages(messaging.ChannelNotifications)
	require.Len(t, notifications, 1)
	assert.Equal(t, "U1", notifications[0].Key)
	assert.Contains(t, string(notifications[0].Payload), messaging.NotificationTaskCompleted)
}

func TestUpdateTaskStatusHandler_NoNotificationWithoutAssignee(t *testing.T) {
	f := newFixture(t)
	tk := f.storedTask(t, "B1", "", task.StatusTodo)
	f.repo.On("Save", mock.Anything, tk).Return(nil)

	_, err := NewUpdateTaskStatusHandler(f.deps).Handle(context.Background(), UpdateTaskStatusCommand{
		TaskID: tk.ID().String(), Status: "done",
	})

	require.NoError(t, err)
	f.drain(t)
	assert.Empty(t, f.rec.Messages(messaging.ChannelNotifications))
}

func TestUpdateTaskStatusHandler_Errors(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()
	f.repo.On("FindByID", mock.Anything, missing).Return(nil, task.ErrNotFound)
	h := NewUpdateTaskStatusHandler(f.deps)
	ctx := context.Background()

	_, err := h.Handle(ctx, UpdateTaskStatusCommand{TaskID: missing.String(), Status: "DONE"})
	assert.ErrorIs(t, err, task.ErrNotFound)

	_, err = h.Handle(ctx, UpdateTaskStatusCommand{TaskID: "not-a-uuid", Status: "DONE"})
	assert.ErrorIs(t, err, task.ErrValidation)

	_, err = h.Handle(ctx, UpdateTaskStatusCommand{TaskID: missing.String()})
	assert.ErrorIs(t, err, task.ErrValidation)

	_, err = h.Handle(ctx, UpdateTaskStatusCommand{TaskID: missing.String(), Status: "ARCHIVED"})
	assert.ErrorIs(t, err, task.ErrValidation)

	assert.False(t, f.cache.touched())
}

func TestUpdateTaskHandler_BoardAndAssigneeChange(t *testing.T) {
	f := newFixture(t)
	tk := f.storedTask(t, "B1", "U1", task.StatusTodo)
	f.repo.On("Save", mock.Anything, tk).Return(nil)
	board, assignee := "B2", "U2"

	got, err := NewUpdateTaskHandler(f.deps).Handle(context.Background(), UpdateTaskCommand{
		TaskID:     tk.ID().String(),
		BoardID:    &board,
		AssignedTo: &assignee,
	})

	require.NoError(t, err)
	assert.Equal(t, "B2", got.BoardID)
	assert.ElementsMatch(t, []string{"B1", "B2"}, f.cache.boards)
	assert.ElementsMatch(t, []string{"U1", "U2"}, f.cache.users)
	assert.Equal(t, 1, f.cache.overdue)

	f.drain(t)
	events := f.events(t)
	require.Len(t, events, 2)
	assert.Equal(t, task.EventTaskUpdated, events[0].EventType)
	updated := events[0].Payload.(task.UpdatedPayload)
	assert.Equal(t, task.FieldChange{Old: "B1", New: "B2"}, updated.ChangedFields[task.FieldBoardID])
	assert.Equal(t, task.FieldChange{Old: "U1", New: "U2"}, updated.ChangedFields[task.FieldAssignedTo])

	assert.Equal(t, task.EventTaskAssigned, events[1].EventType)
	assert.Equal(t, "U2", events[1].Payload.(task.AssignedPayload).AssignedTo)
}

func TestUpdateTaskHandler_UnassignDoesNotEmitAssigned(t *testing.T) {
	f := newFixture(t)
	tk := f.storedTask(t, "B1", "U1", task.StatusTodo)
	f.repo.On("Save", mock.Anything, tk).Return(nil)
	empty := ""
	title := "Renamed"

	got, err := NewUpdateTaskHandler(f.deps).Handle(context.Background(), UpdateTaskCommand{
		TaskID:     tk.ID().String(),
		Title:      &title,
		AssignedTo: &empty,
	})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Empty(t, got.AssignedTo)
	assert.Equal(t, []string{"B1"}, f.cache.boards)
	assert.Equal(t, []string{"U1"}, f.cache.users)

	f.drain(t)
	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, task.EventTaskUpdated, events[0].EventType)
}

func TestUpdateTaskHandler_ClearDueDate(t *testing.T) {
	f := newFixture(t)
	tk := f.storedTask(t, "B1", "", task.StatusTodo)
	due := f.now.Add(-time.Hour)
	tk.SetDueDate(&due, f.now.Add(-2*time.Hour))
	f.repo.On("Save", mock.Anything, tk).Return(nil)

	got, err := NewUpdateTaskHandler(f.deps).Handle(context.Background(), UpdateTaskCommand{
		TaskID: tk.ID().String(), ClearDueDate: true,
	})

	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
	assert.False(t, got.Overdue)
	assert.Equal(t, 1, f.cache.overdue)
}

func TestDeleteTaskHandler_UnknownIDHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.repo.On("FindByID", mock.Anything, id).Return(nil, task.ErrNotFound)

	err := NewDeleteTaskHandler(f.deps).Handle(context.Background(), DeleteTaskCommand{TaskID: id.String()})

	assert.ErrorIs(t, err, task.ErrNotFound)
	f.repo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
	assert.False(t, f.cache.touched())
	f.drain(t)
	assert.Empty(t, f.rec.Messages(""))
}

func TestDeleteTaskHandler_EvictsAndEmits(t *testing.T) {
	f := newFixture(t)
	tk := f.storedTask(t, "B1", "U1", task.StatusTodo)
	f.repo.On("DeleteByID", mock.Anything, tk.ID()).Return(nil)

	err := NewDeleteTaskHandler(f.deps).Handle(context.Background(), DeleteTaskCommand{
		TaskID: tk.ID().String(), Reason: "duplicate",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{tk.ID().String()}, f.cache.evicted)
	assert.Equal(t, []string{"B1"}, f.cache.boards)
	assert.Equal(t, []string{"U1"}, f.cache.users)
	assert.Equal(t, 1, f.cache.overdue)

	f.drain(t)
	events := f.events(t)
	require.Len(t, events, 1)
	deleted := events[0].Payload.(task.DeletedPayload)
	assert.Equal(t, "Ship release", deleted.Title)
	assert.Equal(t, "duplicate", deleted.Reason)
}

type staticOverdue []task.Snapshot

func (s staticOverdue) OverdueSnapshots(ctx context.Context) ([]task.Snapshot, error) {
	return s, nil
}

func TestSweepOverdueHandler_EmitsOneEventPerTask(t *testing.T) {
	f := newFixture(t)
	threeDaysAgo := f.now.Add(-72 * time.Hour)
	inFuture := f.now.Add(time.Hour)
	overdue := staticOverdue{
		{ID: uuid.New(), Title: "late", Status: task.StatusInProgress, Priority: value_objects.PriorityLow,
			BoardID: "B1", AssignedTo: "U1", DueDate: &threeDaysAgo},
		{ID: uuid.New(), Title: "unassigned", Status: task.StatusTodo, Priority: value_objects.PriorityLow,
			BoardID: "B1", DueDate: &threeDaysAgo},
		{ID: uuid.New(), Title: "stale entry", Status: task.StatusTodo, Priority: value_objects.PriorityLow,
			BoardID: "B1", DueDate: &inFuture},
	}

	result, err := NewSweepOverdueHandler(overdue, f.deps).Handle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SweepResult{Overdue: 2, Events: 2, Notifications: 1}, result, "the stale entry is not counted")

	f.drain(t)
	events := f.events(t)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, task.EventTaskOverdue, ev.EventType)
		assert.Equal(t, 3, ev.Payload.(task.OverduePayload).DaysOverdue)
	}
	notifications := f.rec.Messages(messaging.ChannelNotifications)
	require.Len(t, notifications, 1)
	assert.Equal(t, "U1", notifications[0].Key)
	assert.Equal(t, messaging.TypeNotification, notifications[0].Headers[eventbus.HeaderMessageType])
}

func TestSweepOverdueHandler_RepeatedRunsRepeatEvents(t *testing.T) {
	f := newFixture(t)
	due := f.now.Add(-25 * time.Hour)
	overdue := staticOverdue{{ID: uuid.New(), Title: "late", Status: task.StatusTodo,
		Priority: value_objects.PriorityLow, BoardID: "B1", DueDate: &due}}
	h := NewSweepOverdueHandler(overdue, f.deps)

	_, err := h.Handle(context.Background())
	require.NoError(t, err)
	_, err = h.Handle(context.Background())
	require.NoError(t, err)

	f.drain(t)
	assert.Len(t, f.events(t), 2)
}
