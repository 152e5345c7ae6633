// Package cache provides the cache administration commands.
package cache

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
)

// Cmd is the cache command group.
var Cmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and evict the task read cache",
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached entry counts per key family",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cacheAdmin()
		if err != nil {
			return err
		}

		stats, err := c.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read cache stats: %w", err)
		}

		families := make([]string, 0, len(stats))
		for family := range stats {
			families = append(families, family)
		}
		sort.Strings(families)

		out := cmd.OutOrStdout()
		for _, family := range families {
			fmt.Fprintf(out, "%-12s %d\n", family, stats[family])
		}
		snap := c.Metrics().Snapshot()
		fmt.Fprintf(out, "hit ratio    %.2f\n", snap.HitRatio)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every task cache key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cacheAdmin()
		if err != nil {
			return err
		}

		n, err := c.ClearAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d keys\n", n)
		return nil
	},
}

var evictCmd = &cobra.Command{
	Use:   "evict [scope] [key]",
	Short: "Evict part of the cache",
	Long: `Evict cache entries by scope.

Scopes:
  task    [task-id]   one task
  board   [board-id]  every list and count for a board
  user    [user-id]   every list for an assignee
  overdue             the overdue list
  list    [key]       a single list key
  count   [key]       a single count key`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cacheAdmin()
		if err != nil {
			return err
		}

		key := ""
		if len(args) == 2 {
			key = args[1]
		}
		if err := Evict(cmd.Context(), c, args[0], key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Evicted %s %s\n", args[0], key)
		return nil
	},
}

func cacheAdmin() (cli.CacheAdmin, error) {
	app := cli.GetApp()
	if app == nil || app.Cache == nil {
		return nil, fmt.Errorf("application not initialized - cache connection required")
	}
	return app.Cache, nil
}

// Evict dispatches an eviction by scope.
func Evict(ctx context.Context, c cli.CacheAdmin, scope, key string) error {
	if scope != "overdue" && key == "" {
		return fmt.Errorf("scope %q requires a key", scope)
	}
	switch scope {
	case "task":
		return c.EvictTask(ctx, key)
	case "board":
		return c.EvictForBoard(ctx, key)
	case "user":
		return c.EvictForUser(ctx, key)
	case "overdue":
		return c.EvictForOverdueSet(ctx)
	case "list":
		return c.EvictListKey(ctx, key)
	case "count":
		return c.EvictCountKey(ctx, key)
	default:
		return fmt.Errorf("unknown scope %q", scope)
	}
}

func init() {
	Cmd.AddCommand(statsCmd)
	Cmd.AddCommand(clearCmd)
	Cmd.AddCommand(evictCmd)
}
