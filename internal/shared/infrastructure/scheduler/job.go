// Package scheduler runs background jobs on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrRunInProgress is returned by RunOnce when a skip-policy job is already running.
var ErrRunInProgress = errors.New("job run already in progress")

// OverlapPolicy decides what happens when a tick fires while a run is active.
type OverlapPolicy string

const (
	// OverlapSkip drops the tick.
	OverlapSkip OverlapPolicy = "skip"
	// OverlapAllow starts another run concurrently.
	OverlapAllow OverlapPolicy = "allow"
)

// ParseOverlapPolicy parses a policy name. Empty means skip.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch OverlapPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OverlapSkip:
		return OverlapSkip, nil
	case OverlapAllow:
		return OverlapAllow, nil
	default:
		return "", fmt.Errorf("unknown overlap policy %q", s)
	}
}

// Config holds configuration for a job.
type Config struct {
	Name     string
	Interval time.Duration
	Overlap  OverlapPolicy
	// RunOnStart triggers a run immediately after Start.
	RunOnStart bool
}

// Func is the work performed on each run.
type Func func(ctx context.Context) error

// Job calls a Func every Interval until stopped.
type Job struct {
	fn     Func
	config Config
	logger *slog.Logger

	wg       sync.WaitGroup
	runs     sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
	inFlight atomic.Int32

	statsMu sync.Mutex
	stats   Stats
}

// NewJob creates a job. A non-positive interval defaults to one minute.
func NewJob(fn Func, config Config, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.Overlap == "" {
		config.Overlap = OverlapSkip
	}
	if config.Name == "" {
		config.Name = "job"
	}
	return &Job{
		fn:       fn,
		config:   config,
		logger:   logger.With("job", config.Name),
		stopChan: make(chan struct{}),
	}
}

// Start begins the tick loop in a goroutine.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopChan = make(chan struct{})
	j.mu.Unlock()

	j.wg.Add(1)
	go j.run(ctx)

	j.logger.Info("job started",
		"interval", j.config.Interval,
		"overlap", j.config.Overlap,
	)
	return nil
}

// Stop stops ticking and waits for in-flight runs to finish.
func (j *Job) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	close(j.stopChan)
	j.mu.Unlock()

	j.wg.Wait()
	j.runs.Wait()
	j.logger.Info("job stopped")
}

// IsRunning returns true if the job is ticking.
func (j *Job) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *Job) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	if j.config.RunOnStart {
		j.trigger(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.trigger(ctx)
		}
	}
}

// trigger starts a run in the background, honouring the overlap policy.
func (j *Job) trigger(ctx context.Context) {
	if !j.acquire() {
		j.recordSkipped()
		j.logger.Warn("skipping run, previous run still in progress")
		return
	}
	j.runs.Add(1)
	go func() {
		defer j.runs.Done()
		defer j.inFlight.Add(-1)
		_ = j.execute(ctx)
	}()
}

// RunOnce runs the job synchronously.
func (j *Job) RunOnce(ctx context.Context) error {
	if !j.acquire() {
		j.recordSkipped()
		return ErrRunInProgress
	}
	defer j.inFlight.Add(-1)
	return j.execute(ctx)
}

func (j *Job) acquire() bool {
	if j.config.Overlap == OverlapAllow {
		j.inFlight.Add(1)
		return true
	}
	return j.inFlight.CompareAndSwap(0, 1)
}

func (j *Job) execute(ctx context.Context) error {
	start := time.Now()
	err := j.fn(ctx)
	j.recordRun(start, time.Since(start), err)
	if err != nil {
		j.logger.Error("job run failed", "error", err, "duration", time.Since(start))
		return err
	}
	j.logger.Debug("job run completed", "duration", time.Since(start))
	return nil
}

// Stats returns job statistics.
type Stats struct {
	IsRunning    bool
	Runs         uint64
	Failures     uint64
	Skipped      uint64
	InFlight     int
	LastError    string
	LastErrorAt  *time.Time
	LastRunAt    *time.Time
	LastDuration time.Duration
}

// GetStats returns current job statistics.
func (j *Job) GetStats() Stats {
	j.statsMu.Lock()
	defer j.statsMu.Unlock()

	s := j.stats
	s.IsRunning = j.IsRunning()
	s.InFlight = int(j.inFlight.Load())
	return s
}

func (j *Job) recordRun(start time.Time, d time.Duration, err error) {
	j.statsMu.Lock()
	defer j.statsMu.Unlock()
	j.stats.Runs++
	j.stats.LastRunAt = &start
	j.stats.LastDuration = d
	if err != nil {
		j.stats.Failures++
		now := time.Now()
		j.stats.LastError = err.Error()
		j.stats.LastErrorAt = &now
	}
}

func (j *Job) recordSkipped() {
	j.statsMu.Lock()
	defer j.statsMu.Unlock()
	j.stats.Skipped++
}
