package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/scheduler"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/deadletter"
)

// CleanupConfig holds configuration for dead-letter retention.
type CleanupConfig struct {
	Retention time.Duration
	Interval  time.Duration
}

// DefaultCleanupConfig keeps dead letters for 30 days and checks hourly.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{Retention: 30 * 24 * time.Hour, Interval: time.Hour}
}

// DeadLetterCleanup deletes archived dead letters older than the retention
// window.
type DeadLetterCleanup struct {
	repo      deadletter.Repository
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
	job       *scheduler.Job
}

// NewDeadLetterCleanup creates a retention job over repo.
func NewDeadLetterCleanup(repo deadletter.Repository, config CleanupConfig, logger *slog.Logger) *DeadLetterCleanup {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultCleanupConfig()
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	c := &DeadLetterCleanup{repo: repo, retention: config.Retention, logger: logger, now: time.Now}
	c.job = scheduler.NewJob(func(ctx context.Context) error {
		_, err := c.Purge(ctx)
		return err
	}, scheduler.Config{Name: "dead-letter-cleanup", Interval: config.Interval, RunOnStart: true}, logger)
	return c
}

// Purge deletes every record that failed before the retention cutoff.
func (c *DeadLetterCleanup) Purge(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.retention)
	removed, err := c.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge dead letters: %w", err)
	}
	if removed > 0 {
		c.logger.Info("purged dead letters", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

func (c *DeadLetterCleanup) Start(ctx context.Context) error { return c.job.Start(ctx) }

func (c *DeadLetterCleanup) Stop() { c.job.Stop() }

func (c *DeadLetterCleanup) Stats() scheduler.Stats { return c.job.GetStats() }
