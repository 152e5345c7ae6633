package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL",
	"DATABASE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
	"REDIS_URL", "RABBITMQ_URL",
	"HTTP_ADDR", "WORKER_HEALTH_ADDR", "MCP_ADDR", "MCP_AUTH_TOKEN",
	"CACHE_TASK_TTL", "CACHE_LIST_TTL", "CACHE_COUNT_TTL", "CACHE_USER_TTL",
	"PUBLISHER_QUEUE_SIZE", "PUBLISHER_TIMEOUT",
	"BREAKER_FAILURE_THRESHOLD", "BREAKER_OPEN_TIMEOUT",
	"OVERDUE_SWEEP_ENABLED", "OVERDUE_SWEEP_INTERVAL", "OVERDUE_SWEEP_OVERLAP",
	"DEAD_LETTER_RETENTION_DAYS", "DEAD_LETTER_CLEANUP_INTERVAL",
}

// clearEnv blanks every key Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "auto", cfg.DatabaseDriver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, time.Hour, cfg.CacheTaskTTL)
	assert.Equal(t, 30*time.Minute, cfg.CacheListTTL)
	assert.Equal(t, 15*time.Minute, cfg.CacheCountTTL)
	assert.Equal(t, 45*time.Minute, cfg.CacheUserTTL)
	assert.Equal(t, 1024, cfg.PublisherQueueSize)
	assert.Equal(t, 5*time.Minute, cfg.OverdueSweepInterval)
	assert.Equal(t, "skip", cfg.OverdueSweepOverlap)
	assert.True(t, cfg.OverdueSweepEnabled)
	assert.Equal(t, 30*24*time.Hour, cfg.DeadLetterRetention())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_WithCustomEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/tasks")
	t.Setenv("CACHE_LIST_TTL", "10m")
	t.Setenv("PUBLISHER_QUEUE_SIZE", "16")
	t.Setenv("OVERDUE_SWEEP_ENABLED", "false")
	t.Setenv("OVERDUE_SWEEP_OVERLAP", "allow")
	t.Setenv("DEAD_LETTER_RETENTION_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://u:p@db:5432/tasks", cfg.DatabaseURL)
	assert.Equal(t, 10*time.Minute, cfg.CacheListTTL)
	assert.Equal(t, 16, cfg.PublisherQueueSize)
	assert.False(t, cfg.OverdueSweepEnabled)
	assert.Equal(t, "allow", cfg.OverdueSweepOverlap)
	assert.Equal(t, 7*24*time.Hour, cfg.DeadLetterRetention())
}

func TestLoadFile_OverlaysDefaultsAndYieldsToEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "taskcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_env: staging
http_addr: 127.0.0.1:9000
cache_task_ttl: 2h
overdue_sweep_interval: 30s
breaker_failure_threshold: 3
`), 0o600))
	t.Setenv("HTTP_ADDR", "127.0.0.1:9999")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.AppEnv)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Hour, cfg.CacheTaskTTL)
	assert.Equal(t, 30*time.Second, cfg.OverdueSweepInterval)
	assert.Equal(t, 3, cfg.BreakerFailureThreshold)
	assert.Equal(t, 45*time.Minute, cfg.CacheUserTTL)
}

func TestLoadFile_Errors(t *testing.T) {
	clearEnv(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_task_ttl: [1, 2]"), 0o600))
	_, err = LoadFile(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Defaults()
	cfg.CacheTaskTTL = 0
	cfg.PublisherQueueSize = -1
	cfg.OverdueSweepOverlap = "queue"
	cfg.DatabaseDriver = "mysql"

	err := cfg.Validate()

	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "cache_task_ttl")
	assert.Contains(t, err.Error(), "publisher_queue_size")
	assert.Contains(t, err.Error(), "overdue_sweep_overlap")
	assert.Contains(t, err.Error(), "database_driver")
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{AppEnv: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.AppEnv = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	// Test default value
	value := getEnv("NON_EXISTENT_VAR", "default")
	assert.Equal(t, "default", value)

	// Test with set value
	t.Setenv("TEST_VAR", "custom")
	assert.Equal(t, "custom", getEnv("TEST_VAR", "default"))

	// Empty counts as unset
	t.Setenv("TEST_EMPTY", "")
	assert.Equal(t, "default", getEnv("TEST_EMPTY", "default"))
}

func TestGetIntEnv(t *testing.T) {
	assert.Equal(t, 42, getIntEnv("NON_EXISTENT_INT", 42))

	t.Setenv("TEST_INT", "100")
	assert.Equal(t, 100, getIntEnv("TEST_INT", 42))

	t.Setenv("TEST_INVALID_INT", "not-a-number")
	assert.Equal(t, 42, getIntEnv("TEST_INVALID_INT", 42))
}

func TestGetDurationEnv(t *testing.T) {
	assert.Equal(t, 5*time.Second, getDurationEnv("NON_EXISTENT_DUR", 5*time.Second))

	t.Setenv("TEST_DUR", "10m")
	assert.Equal(t, 10*time.Minute, getDurationEnv("TEST_DUR", 5*time.Second))

	t.Setenv("TEST_INVALID_DUR", "not-a-duration")
	assert.Equal(t, 5*time.Second, getDurationEnv("TEST_INVALID_DUR", 5*time.Second))
}

func TestGetBoolEnv(t *testing.T) {
	assert.True(t, getBoolEnv("NON_EXISTENT_BOOL", true))

	for _, tv := range []string{"true", "1", "True", "TRUE"} {
		t.Setenv("TEST_BOOL", tv)
		assert.True(t, getBoolEnv("TEST_BOOL", false), "Expected true for value: %s", tv)
	}
	for _, fv := range []string{"false", "0", "False", "FALSE"} {
		t.Setenv("TEST_BOOL", fv)
		assert.False(t, getBoolEnv("TEST_BOOL", true), "Expected false for value: %s", fv)
	}

	t.Setenv("TEST_INVALID_BOOL", "not-a-bool")
	assert.True(t, getBoolEnv("TEST_INVALID_BOOL", true))
}
