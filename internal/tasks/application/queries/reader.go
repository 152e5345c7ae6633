package queries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/cache"
	"github.com/google/uuid"
)

// cachedReader performs cache-first reads: check the cache, load from the
// repository on a miss, populate the cache. Cache errors fall through to the
// repository.
type cachedReader struct {
	repo   task.Repository
	cache  ReadCache
	logger *slog.Logger
	now    Clock
}

func newCachedReader(repo task.Repository, c ReadCache, logger *slog.Logger, clock Clock) cachedReader {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return cachedReader{repo: repo, cache: c, logger: logger, now: clock}
}

func (r cachedReader) list(ctx context.Context, ns cache.Namespace, key string, load func(ctx context.Context) ([]*task.Task, error)) ([]task.Snapshot, error) {
	cached, hit, err := r.cache.GetCachedList(ctx, ns, key)
	if err != nil {
		r.logger.Warn("cache read failed", "key", cache.RedisKey(ns, key), "error", err)
	}
	if hit {
		return cached, nil
	}

	tasks, err := load(ctx)
	if err != nil {
		return nil, err
	}
	snaps := make([]task.Snapshot, 0, len(tasks))
	for _, t := range tasks {
		snaps = append(snaps, t.Snapshot())
	}
	if err := r.cache.CacheList(ctx, ns, key, snaps); err != nil {
		r.logger.Warn("cache write failed", "key", cache.RedisKey(ns, key), "error", err)
	}
	return snaps, nil
}

func (r cachedReader) count(ctx context.Context, key string, load func(ctx context.Context) (int64, error)) (int64, error) {
	cached, hit, err := r.cache.GetCachedCount(ctx, key)
	if err != nil {
		r.logger.Warn("cache read failed", "key", cache.RedisKey(cache.NamespaceTaskCount, key), "error", err)
	}
	if hit {
		return cached, nil
	}

	n, err := load(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.cache.CacheCount(ctx, key, n); err != nil {
		r.logger.Warn("cache write failed", "key", cache.RedisKey(cache.NamespaceTaskCount, key), "error", err)
	}
	return n, nil
}

func requireID(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", task.ErrValidation, name)
	}
	return value, nil
}

func parseTaskID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid task id %q", task.ErrValidation, id)
	}
	return parsed, nil
}
