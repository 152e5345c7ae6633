package commands

import (
	"context"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
)

// TaskCache is the part of the task keyspace the write side maintains.
type TaskCache interface {
	CacheTask(ctx context.Context, s task.Snapshot) error
	EvictTask(ctx context.Context, taskID string) error
	EvictForBoard(ctx context.Context, boardID string) error
	EvictForUser(ctx context.Context, userID string) error
	EvictForOverdueSet(ctx context.Context) error
}

// EventPublisher emits task events and side-channel messages without blocking.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event task.Event) *messaging.Future
	PublishNotification(ctx context.Context, userID, message, notificationType string) *messaging.Future
	PublishAnalytics(ctx context.Context, eventType, userID, boardID string, data map[string]any) *messaging.Future
}

// TxRunner runs fn inside a transaction carried by ctx.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Clock returns the current time.
type Clock func() time.Time
