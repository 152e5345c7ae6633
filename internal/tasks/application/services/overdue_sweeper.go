package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/scheduler"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// DefaultSweepInterval is how often the overdue sweep runs.
const DefaultSweepInterval = 5 * time.Minute

// SweeperConfig holds configuration for the overdue sweeper.
type SweeperConfig struct {
	Interval time.Duration
	Overlap  scheduler.OverlapPolicy
}

// DefaultSweeperConfig returns sensible defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Interval: DefaultSweepInterval, Overlap: scheduler.OverlapSkip}
}

// OverdueSweeper runs the overdue sweep on a fixed interval for the lifetime
// of the process.
type OverdueSweeper struct {
	service *TaskService
	job     *scheduler.Job
}

// NewOverdueSweeper creates a sweeper over service.
func NewOverdueSweeper(service *TaskService, config SweeperConfig, logger *slog.Logger) *OverdueSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweepInterval
	}
	s := &OverdueSweeper{service: service}
	s.job = scheduler.NewJob(s.sweep, scheduler.Config{
		Name:     "overdue-sweep",
		Interval: config.Interval,
		Overlap:  config.Overlap,
	}, logger)
	return s
}

func (s *OverdueSweeper) sweep(ctx context.Context) error {
	ctx = observability.WithCorrelationID(ctx, "")
	_, err := s.service.SweepOverdue(ctx)
	return err
}

// Start begins sweeping in the background.
func (s *OverdueSweeper) Start(ctx context.Context) error { return s.job.Start(ctx) }

// Stop stops sweeping and waits for an in-flight sweep.
func (s *OverdueSweeper) Stop() { s.job.Stop() }

// RunOnce sweeps synchronously.
func (s *OverdueSweeper) RunOnce(ctx context.Context) error { return s.job.RunOnce(ctx) }

// IsRunning reports whether the sweeper is ticking.
func (s *OverdueSweeper) IsRunning() bool { return s.job.IsRunning() }

// Stats returns sweeper statistics.
func (s *OverdueSweeper) Stats() scheduler.Stats { return s.job.GetStats() }
