package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// ErrCacheFailure wraps every backing-store error. Callers log and continue.
var ErrCacheFailure = errors.New("cache failure")

const scanBatch = 100

// TaskCache is the Redis-backed task keyspace. Every operation reports to
// the cache metrics with its namespace as label.
type TaskCache struct {
	client  redis.UniversalClient
	ttl     TTLConfig
	metrics *observability.CacheMetrics
	logger  *slog.Logger
}

// NewTaskCache creates a task cache over client.
func NewTaskCache(client redis.UniversalClient, ttl TTLConfig, metrics *observability.CacheMetrics, logger *slog.Logger) *TaskCache {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewCacheMetrics(logger)
	}
	defaults := DefaultTTLConfig()
	if ttl.Task <= 0 {
		ttl.Task = defaults.Task
	}
	if ttl.List <= 0 {
		ttl.List = defaults.List
	}
	if ttl.Count <= 0 {
		ttl.Count = defaults.Count
	}
	if ttl.User <= 0 {
		ttl.User = defaults.User
	}
	return &TaskCache{client: client, ttl: ttl, metrics: metrics, logger: logger}
}

// TTL returns the configured TTLs.
func (c *TaskCache) TTL() TTLConfig { return c.ttl }

// Put overwrites an entry. A non-positive ttl uses the namespace default.
func (c *TaskCache) Put(ctx context.Context, ns Namespace, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl.For(ns)
	}
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrCacheFailure, RedisKey(ns, key), err)
	}

	start := time.Now()
	if err := c.client.Set(ctx, RedisKey(ns, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrCacheFailure, RedisKey(ns, key), err)
	}
	c.metrics.RecordPut(string(ns), time.Since(start))
	return nil
}

// Get reads an entry. A miss is (zero, false, nil); only store errors
// produce an error.
func Get[T any](ctx context.Context, c *TaskCache, ns Namespace, key string) (T, bool, error) {
	var zero T
	redisKey := RedisKey(ns, key)

	data, err := c.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.RecordMiss(string(ns))
		return zero, false, nil
	}
	if err != nil {
		c.metrics.RecordMiss(string(ns))
		return zero, false, fmt.Errorf("%w: get %s: %w", ErrCacheFailure, redisKey, err)
	}

	value, ok := decode[T](data)
	if !ok {
		c.logger.Warn("discarding undecodable cache entry", "key", redisKey)
		_ = c.client.Del(ctx, redisKey).Err()
		c.metrics.RecordMiss(string(ns))
		return zero, false, nil
	}

	c.metrics.RecordHit(string(ns))
	return value, true, nil
}

// Evict removes an entry. Evicting an absent key is a no-op.
func (c *TaskCache) Evict(ctx context.Context, ns Namespace, key string) error {
	return c.evictKeys(ctx, map[Namespace][]string{ns: {key}})
}

// EvictForBoard removes the board's plain, ordered and per-status lists and
// its per-status counts.
func (c *TaskCache) EvictForBoard(ctx context.Context, boardID string) error {
	if boardID == "" {
		return nil
	}
	return c.evictKeys(ctx, boardKeys(boardID))
}

// EvictForUser removes the user's task list and per-status lists.
func (c *TaskCache) EvictForUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return c.evictKeys(ctx, userKeys(userID))
}

// EvictForOverdueSet removes the overdue list.
func (c *TaskCache) EvictForOverdueSet(ctx context.Context) error {
	return c.Evict(ctx, NamespaceTaskList, OverdueListKey())
}

// EvictListKey removes one list entry; key may include the namespace prefix.
func (c *TaskCache) EvictListKey(ctx context.Context, key string) error {
	return c.Evict(ctx, NamespaceTaskList, stripNamespace(NamespaceTaskList, key))
}

// EvictCountKey removes one count entry; key may include the namespace prefix.
func (c *TaskCache) EvictCountKey(ctx context.Context, key string) error {
	return c.Evict(ctx, NamespaceTaskCount, stripNamespace(NamespaceTaskCount, key))
}

func (c *TaskCache) evictKeys(ctx context.Context, keys map[Namespace][]string) error {
	pipe := c.client.Pipeline()
	total := 0
	for ns, list := range keys {
		for _, key := range list {
			pipe.Del(ctx, RedisKey(ns, key))
			total++
		}
	}
	if total == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: evict: %w", ErrCacheFailure, err)
	}
	for ns, list := range keys {
		for range list {
			c.metrics.RecordEviction(string(ns))
		}
	}
	return nil
}

// Typed helpers

// CacheTask stores the single-task view.
func (c *TaskCache) CacheTask(ctx context.Context, s task.Snapshot) error {
	return c.Put(ctx, NamespaceTask, TaskKey(s.ID.String()), s, 0)
}

// GetCachedTask reads the single-task view.
func (c *TaskCache) GetCachedTask(ctx context.Context, taskID string) (task.Snapshot, bool, error) {
	return Get[task.Snapshot](ctx, c, NamespaceTask, TaskKey(taskID))
}

// EvictTask removes the single-task view.
func (c *TaskCache) EvictTask(ctx context.Context, taskID string) error {
	return c.Evict(ctx, NamespaceTask, TaskKey(taskID))
}

// CacheList stores a list view in ns.
func (c *TaskCache) CacheList(ctx context.Context, ns Namespace, key string, tasks []task.Snapshot) error {
	if tasks == nil {
		tasks = []task.Snapshot{}
	}
	return c.Put(ctx, ns, key, tasks, 0)
}

// GetCachedList reads a list view from ns.
func (c *TaskCache) GetCachedList(ctx context.Context, ns Namespace, key string) ([]task.Snapshot, bool, error) {
	return Get[[]task.Snapshot](ctx, c, ns, key)
}

// CacheCount stores a count view.
func (c *TaskCache) CacheCount(ctx context.Context, key string, n int64) error {
	return c.Put(ctx, NamespaceTaskCount, key, n, 0)
}

// GetCachedCount reads a count view.
func (c *TaskCache) GetCachedCount(ctx context.Context, key string) (int64, bool, error) {
	return Get[int64](ctx, c, NamespaceTaskCount, key)
}

// Admin operations

// ClearAll deletes every entry in every namespace and returns how many were removed.
func (c *TaskCache) ClearAll(ctx context.Context) (int64, error) {
	var removed int64
	for _, ns := range Namespaces() {
		n, err := c.clearNamespace(ctx, ns)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	c.logger.Warn("cache cleared", "removed", removed)
	return removed, nil
}

func (c *TaskCache) clearNamespace(ctx context.Context, ns Namespace) (int64, error) {
	var removed int64
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("%w: clear %s: %w", ErrCacheFailure, ns, err)
		}
		removed += n
		for range n {
			c.metrics.RecordEviction(string(ns))
		}
		batch = batch[:0]
		return nil
	}

	iter := c.client.Scan(ctx, 0, string(ns)+":*", scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: scan %s: %w", ErrCacheFailure, ns, err)
	}
	return removed, flush()
}

// Stats returns the number of live keys per namespace.
func (c *TaskCache) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, len(Namespaces()))
	for _, ns := range Namespaces() {
		var n int64
		iter := c.client.Scan(ctx, 0, string(ns)+":*", scanBatch).Iterator()
		for iter.Next(ctx) {
			n++
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", ErrCacheFailure, ns, err)
		}
		stats[string(ns)] = n
	}
	return stats, nil
}

// Ping checks connectivity to Redis.
func (c *TaskCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrCacheFailure, err)
	}
	return nil
}

// Metrics returns the collector this cache reports to.
func (c *TaskCache) Metrics() *observability.CacheMetrics { return c.metrics }
