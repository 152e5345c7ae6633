package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/scheduler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestParseOverlapPolicy(t *testing.T) {
	p, err := scheduler.ParseOverlapPolicy("")
	require.NoError(t, err)
	assert.Equal(t, scheduler.OverlapSkip, p)

	p, err = scheduler.ParseOverlapPolicy("ALLOW")
	require.NoError(t, err)
	assert.Equal(t, scheduler.OverlapAllow, p)

	_, err = scheduler.ParseOverlapPolicy("queue")
	assert.Error(t, err)
}

func TestJob_RunsOnInterval(t *testing.T) {
	var calls atomic.Int32
	job := scheduler.NewJob(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, scheduler.Config{Name: "tick", Interval: 10 * time.Millisecond}, testLogger())

	require.NoError(t, job.Start(context.Background()))
	assert.True(t, job.IsRunning())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	job.Stop()
	assert.False(t, job.IsRunning())
	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no runs after Stop")
}

func TestJob_StartAndStopAreIdempotent(t *testing.T) {
	job := scheduler.NewJob(func(ctx context.Context) error { return nil },
		scheduler.Config{Interval: time.Hour}, testLogger())

	require.NoError(t, job.Start(context.Background()))
	require.NoError(t, job.Start(context.Background()))
	job.Stop()
	job.Stop()
}

func TestJob_SkipPolicyRejectsOverlappingRun(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	job := scheduler.NewJob(func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}, scheduler.Config{Overlap: scheduler.OverlapSkip}, testLogger())

	done := make(chan error, 1)
	go func() { done <- job.RunOnce(context.Background()) }()
	<-entered

	err := job.RunOnce(context.Background())
	assert.ErrorIs(t, err, scheduler.ErrRunInProgress)

	close(release)
	require.NoError(t, <-done)
	stats := job.GetStats()
	assert.Equal(t, uint64(1), stats.Runs)
	assert.Equal(t, uint64(1), stats.Skipped)
}

func TestJob_AllowPolicyRunsConcurrently(t *testing.T) {
	var active, peak atomic.Int32
	release := make(chan struct{})
	job := scheduler.NewJob(func(ctx context.Context) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		return nil
	}, scheduler.Config{Overlap: scheduler.OverlapAllow}, testLogger())

	done := make(chan error, 2)
	go func() { done <- job.RunOnce(context.Background()) }()
	go func() { done <- job.RunOnce(context.Background()) }()
	assert.Eventually(t, func() bool { return active.Load() == 2 }, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	assert.Equal(t, int32(2), peak.Load())
}

func TestJob_RecordsFailures(t *testing.T) {
	boom := errors.New("boom")
	job := scheduler.NewJob(func(ctx context.Context) error { return boom },
		scheduler.Config{Name: "failing"}, testLogger())

	err := job.RunOnce(context.Background())

	assert.ErrorIs(t, err, boom)
	stats := job.GetStats()
	assert.Equal(t, uint64(1), stats.Runs)
	assert.Equal(t, uint64(1), stats.Failures)
	assert.Equal(t, "boom", stats.LastError)
	assert.NotNil(t, stats.LastErrorAt)
	assert.NotNil(t, stats.LastRunAt)
}

func TestJob_RunOnStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	job := scheduler.NewJob(func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, scheduler.Config{Interval: time.Hour, RunOnStart: true}, testLogger())

	require.NoError(t, job.Start(context.Background()))
	defer job.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("expected a run on start")
	}
}
