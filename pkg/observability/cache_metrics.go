package observability

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// CacheMetrics counts cache traffic per namespace. Safe for concurrent use.
type CacheMetrics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	puts      atomic.Int64
	evictions atomic.Int64

	operations counterMap
	timings    timingMap

	startedAt time.Time
	logger    *slog.Logger
}

// CacheSnapshot is a point-in-time copy of the cache counters.
type CacheSnapshot struct {
	TotalHits       int64            `json:"totalHits"`
	TotalMisses     int64            `json:"totalMisses"`
	TotalPuts       int64            `json:"totalPuts"`
	TotalEvictions  int64            `json:"totalEvictions"`
	TotalRequests   int64            `json:"totalRequests"`
	HitRatio        float64          `json:"hitRatio"`
	MissRatio       float64          `json:"missRatio"`
	UptimeHours     float64          `json:"uptimeHours"`
	OperationCounts map[string]int64 `json:"operationCounts"`
}

// NewCacheMetrics creates an empty collector.
func NewCacheMetrics(logger *slog.Logger) *CacheMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheMetrics{startedAt: time.Now(), logger: logger}
}

// RecordHit counts a cache hit for the namespace.
func (m *CacheMetrics) RecordHit(namespace string) {
	m.hits.Add(1)
	m.operations.add(namespace+"_hit", 1)
}

// RecordMiss counts a cache miss for the namespace.
func (m *CacheMetrics) RecordMiss(namespace string) {
	m.misses.Add(1)
	m.operations.add(namespace+"_miss", 1)
}

// RecordPut counts a write and its latency.
func (m *CacheMetrics) RecordPut(namespace string, elapsed time.Duration) {
	m.puts.Add(1)
	m.operations.add(namespace+"_put", 1)
	m.timings.observe(namespace+"_put", elapsed)
}

// RecordEviction counts an eviction for the namespace.
func (m *CacheMetrics) RecordEviction(namespace string) {
	m.evictions.Add(1)
	m.operations.add(namespace+"_evict", 1)
}

// RecordOperationTime records the latency of a named operation.
func (m *CacheMetrics) RecordOperationTime(operation string, elapsed time.Duration) {
	m.operations.add(operation+"_count", 1)
	m.timings.observe(operation, elapsed)
}

// Snapshot returns the current counters.
func (m *CacheMetrics) Snapshot() CacheSnapshot {
	hits := m.hits.Load()
	misses := m.misses.Load()
	total := hits + misses
	hitRatio := ratio(hits, total)
	missRatio := 0.0
	if total > 0 {
		missRatio = 1 - hitRatio
	}

	return CacheSnapshot{
		TotalHits:       hits,
		TotalMisses:     misses,
		TotalPuts:       m.puts.Load(),
		TotalEvictions:  m.evictions.Load(),
		TotalRequests:   total,
		HitRatio:        hitRatio,
		MissRatio:       missRatio,
		UptimeHours:     time.Since(m.startedAt).Hours(),
		OperationCounts: m.operations.snapshot(),
	}
}

// AverageOperationTimes returns mean latency in milliseconds per operation.
func (m *CacheMetrics) AverageOperationTimes() map[string]float64 {
	return m.timings.averagesMillis()
}

// Reset zeroes every counter. Uptime is kept.
func (m *CacheMetrics) Reset() {
	m.logger.Warn("resetting cache metrics")
	m.hits.Store(0)
	m.misses.Store(0)
	m.puts.Store(0)
	m.evictions.Store(0)
	m.operations.clear()
	m.timings.clear()
}
