package queries

import (
	"context"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/cache"
)

// ReadCache is the part of the task keyspace the read side consults.
type ReadCache interface {
	GetCachedTask(ctx context.Context, taskID string) (task.Snapshot, bool, error)
	CacheTask(ctx context.Context, s task.Snapshot) error
	GetCachedList(ctx context.Context, ns cache.Namespace, key string) ([]task.Snapshot, bool, error)
	CacheList(ctx context.Context, ns cache.Namespace, key string, tasks []task.Snapshot) error
	GetCachedCount(ctx context.Context, key string) (int64, bool, error)
	CacheCount(ctx context.Context, key string, n int64) error
}

// Clock returns the current time.
type Clock func() time.Time
