package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

type cacheEvictInput struct {
	// Scope is one of task, board, user, overdue, list or count.
	Scope string `json:"scope" jsonschema:"required"`
	Key   string `json:"key,omitempty"`
}

type cacheEvictOutput struct {
	Scope   string `json:"scope"`
	Key     string `json:"key,omitempty"`
	Evicted bool   `json:"evicted"`
}

type cacheStatsOutput struct {
	Entries map[string]int64            `json:"entries"`
	Metrics observability.CacheSnapshot `json:"metrics"`
	Timings map[string]float64          `json:"average_times_ms"`
}

type cacheClearOutput struct {
	Removed int64 `json:"removed"`
}

func registerCacheTools(srv *mcp.Server, deps ToolDependencies) error {
	c := deps.Cache

	srv.Tool("cache.stats").
		Description("Show cache entry counts per namespace and cache metrics").
		Handler(func(ctx context.Context, _ emptyInput) (cacheStatsOutput, error) {
			entries, err := c.Stats(ctx)
			if err != nil {
				return cacheStatsOutput{}, fmt.Errorf("cache unavailable: %w", err)
			}
			return cacheStatsOutput{
				Entries: entries,
				Metrics: c.Metrics().Snapshot(),
				Timings: c.Metrics().AverageOperationTimes(),
			}, nil
		})

	srv.Tool("cache.clear").
		Description("Remove every task cache entry").
		Handler(func(ctx context.Context, _ emptyInput) (cacheClearOutput, error) {
			removed, err := c.ClearAll(ctx)
			if err != nil {
				return cacheClearOutput{}, fmt.Errorf("cache unavailable: %w", err)
			}
			return cacheClearOutput{Removed: removed}, nil
		})

	srv.Tool("cache.evict").
		Description("Evict cache entries for a task, board, user, the overdue set, or a single list or count key").
		Handler(func(ctx context.Context, input cacheEvictInput) (cacheEvictOutput, error) {
			if err := evictScope(ctx, c, input.Scope, input.Key); err != nil {
				return cacheEvictOutput{}, err
			}
			return cacheEvictOutput{Scope: input.Scope, Key: input.Key, Evicted: true}, nil
		})

	return nil
}

func evictScope(ctx context.Context, c CacheAdmin, scope, key string) error {
	if scope == "overdue" {
		return c.EvictForOverdueSet(ctx)
	}
	if key == "" {
		return fmt.Errorf("key is required for scope %q", scope)
	}
	switch scope {
	case "task":
		return c.EvictTask(ctx, key)
	case "board":
		return c.EvictForBoard(ctx, key)
	case "user":
		return c.EvictForUser(ctx, key)
	case "list":
		return c.EvictListKey(ctx, key)
	case "count":
		return c.EvictCountKey(ctx, key)
	default:
		return fmt.Errorf("unknown scope %q", scope)
	}
}
