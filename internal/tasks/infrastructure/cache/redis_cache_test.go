package cache_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/value_objects"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/cache"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*cache.TaskCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return cache.NewTaskCache(client, cache.DefaultTTLConfig(), observability.NewCacheMetrics(logger), logger), mr
}

func sampleSnapshot() task.Snapshot {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	due := created.Add(72 * time.Hour)
	return task.Snapshot{
		ID:          uuid.New(),
		Title:       "Ship release",
		Description: "cut the tag",
		Status:      task.StatusInProgress,
		Priority:    value_objects.PriorityHigh,
		BoardID:     "B1",
		AssignedTo:  "U1",
		DueDate:     &due,
		CreatedAt:   created,
		UpdatedAt:   created.Add(time.Hour),
	}
}

func TestTaskCache_TaskRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	snap := sampleSnapshot()

	require.NoError(t, c.CacheTask(ctx, snap))

	got, hit, err := c.GetCachedTask(ctx, snap.ID.String())
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, snap, got)
	assert.True(t, mr.Exists("task:"+snap.ID.String()))
	assert.Equal(t, time.Hour, mr.TTL("task:"+snap.ID.String()))

	require.NoError(t, c.EvictTask(ctx, snap.ID.String()))
	_, hit, err = c.GetCachedTask(ctx, snap.ID.String())
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestTaskCache_MissIsNotAnError(t *testing.T) {
	c, _ := newTestCache(t)

	_, hit, err := c.GetCachedTask(context.Background(), uuid.NewString())

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(1), c.Metrics().Snapshot().TotalMisses)
}

func TestTaskCache_NamespaceTTLs(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.CacheList(ctx, cache.NamespaceTaskList, cache.BoardListKey("B1"), nil))
	require.NoError(t, c.CacheCount(ctx, cache.BoardStatusCountKey("B1", task.StatusTodo), 4))
	require.NoError(t, c.CacheList(ctx, cache.NamespaceUserTask, cache.UserTaskKey("U1"), nil))

	assert.Equal(t, 30*time.Minute, mr.TTL("task_list:board:B1"))
	assert.Equal(t, 15*time.Minute, mr.TTL("task_count:board:B1:status:TODO"))
	assert.Equal(t, 45*time.Minute, mr.TTL("user_task:U1"))

	require.NoError(t, c.Put(ctx, cache.NamespaceTaskList, cache.OverdueListKey(), []task.Snapshot{}, 2*time.Minute))
	assert.Equal(t, 2*time.Minute, mr.TTL("task_list:overdue"))
}

func TestTaskCache_ListAndCountRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	list := []task.Snapshot{sampleSnapshot(), sampleSnapshot()}

	require.NoError(t, c.CacheList(ctx, cache.NamespaceTaskList, cache.BoardOrderedListKey("B1"), list))
	got, hit, err := c.GetCachedList(ctx, cache.NamespaceTaskList, cache.BoardOrderedListKey("B1"))
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, list, got)

	require.NoError(t, c.CacheList(ctx, cache.NamespaceTaskList, cache.BoardListKey("EMPTY"), nil))
	empty, hit, err := c.GetCachedList(ctx, cache.NamespaceTaskList, cache.BoardListKey("EMPTY"))
	require.NoError(t, err)
	assert.True(t, hit, "an empty list is a cached value, not a miss")
	assert.Empty(t, empty)

	require.NoError(t, c.CacheCount(ctx, cache.BoardStatusCountKey("B1", task.StatusDone), 7))
	n, hit, err := c.GetCachedCount(ctx, cache.BoardStatusCountKey("B1", task.StatusDone))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(7), n)
}

func TestTaskCache_EvictForBoard_EnumeratesAllStatuses(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{
		"task_list:board:B1",
		"task_list:board:B1:ordered",
		"task_list:board:B1:status:TODO",
		"task_list:board:B1:status:IN_PROGRESS",
		"task_list:board:B1:status:DONE",
		"task_count:board:B1:status:TODO",
		"task_count:board:B1:status:IN_PROGRESS",
		"task_count:board:B1:status:DONE",
		"task_list:board:B2",
	} {
		require.NoError(t, mr.Set(key, "x"))
	}

	require.NoError(t, c.EvictForBoard(ctx, "B1"))

	for _, s := range task.Statuses() {
		_, hit, err := c.GetCachedList(ctx, cache.NamespaceTaskList, cache.BoardStatusListKey("B1", s))
		require.NoError(t, err)
		assert.False(t, hit, "status list %s", s)
		_, hit, err = c.GetCachedCount(ctx, cache.BoardStatusCountKey("B1", s))
		require.NoError(t, err)
		assert.False(t, hit, "status count %s", s)
	}
	assert.False(t, mr.Exists("task_list:board:B1"))
	assert.False(t, mr.Exists("task_list:board:B1:ordered"))
	assert.True(t, mr.Exists("task_list:board:B2"), "unrelated board untouched")
	assert.Equal(t, int64(8), c.Metrics().Snapshot().TotalEvictions)
}

func TestTaskCache_EvictForUser(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("user_task:U1", "x"))
	require.NoError(t, mr.Set("task_list:user:U1:status:DONE", "x"))
	require.NoError(t, mr.Set("user_task:U2", "x"))

	require.NoError(t, c.EvictForUser(ctx, "U1"))
	require.NoError(t, c.EvictForUser(ctx, ""))

	assert.False(t, mr.Exists("user_task:U1"))
	assert.False(t, mr.Exists("task_list:user:U1:status:DONE"))
	assert.True(t, mr.Exists("user_task:U2"))
}

func TestTaskCache_EvictForOverdueSetAndAdminKeys(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("task_list:overdue", "x"))
	require.NoError(t, mr.Set("task_list:board:B3", "x"))
	require.NoError(t, mr.Set("task_count:board:B3:status:TODO", "x"))

	require.NoError(t, c.EvictForOverdueSet(ctx))
	require.NoError(t, c.EvictListKey(ctx, "task_list:board:B3"))
	require.NoError(t, c.EvictCountKey(ctx, "board:B3:status:TODO"))
	require.NoError(t, c.Evict(ctx, cache.NamespaceTask, "absent"))

	assert.False(t, mr.Exists("task_list:overdue"))
	assert.False(t, mr.Exists("task_list:board:B3"))
	assert.False(t, mr.Exists("task_count:board:B3:status:TODO"))
}

func TestTaskCache_UndecodableEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	id := uuid.NewString()
	require.NoError(t, mr.Set("task:"+id, "not-json"))

	_, hit, err := c.GetCachedTask(context.Background(), id)

	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists("task:"+id))
}

func TestTaskCache_ClearAllAndStats(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.CacheTask(ctx, sampleSnapshot()))
	require.NoError(t, c.CacheTask(ctx, sampleSnapshot()))
	require.NoError(t, c.CacheList(ctx, cache.NamespaceTaskList, cache.BoardListKey("B1"), nil))
	require.NoError(t, c.CacheCount(ctx, cache.BoardStatusCountKey("B1", task.StatusTodo), 1))
	require.NoError(t, mr.Set("unrelated", "keep"))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["task"])
	assert.Equal(t, int64(1), stats["task_list"])
	assert.Equal(t, int64(1), stats["task_count"])
	assert.Equal(t, int64(0), stats["user_task"])

	removed, err := c.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
	assert.True(t, mr.Exists("unrelated"))
}

func TestTaskCache_StoreFailure(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	ctx := context.Background()

	err := c.CacheTask(ctx, sampleSnapshot())
	assert.ErrorIs(t, err, cache.ErrCacheFailure)

	_, _, err = c.GetCachedTask(ctx, uuid.NewString())
	assert.ErrorIs(t, err, cache.ErrCacheFailure)

	assert.ErrorIs(t, c.EvictForBoard(ctx, "B1"), cache.ErrCacheFailure)
	assert.ErrorIs(t, c.Ping(ctx), cache.ErrCacheFailure)
}

func TestTaskCache_RecordsMetricsByNamespace(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	snap := sampleSnapshot()

	require.NoError(t, c.CacheTask(ctx, snap))
	_, _, _ = c.GetCachedTask(ctx, snap.ID.String())
	_, _, _ = c.GetCachedList(ctx, cache.NamespaceTaskList, cache.OverdueListKey())

	counts := c.Metrics().Snapshot().OperationCounts
	assert.Equal(t, int64(1), counts["task_put"])
	assert.Equal(t, int64(1), counts["task_hit"])
	assert.Equal(t, int64(1), counts["task_list_miss"])
}
