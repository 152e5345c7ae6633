package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// counterMap is a lock-free map of labelled counters.
type counterMap struct {
	m sync.Map // string -> *atomic.Int64
}

func (c *counterMap) add(label string, delta int64) {
	v, ok := c.m.Load(label)
	if !ok {
		v, _ = c.m.LoadOrStore(label, new(atomic.Int64))
	}
	v.(*atomic.Int64).Add(delta)
}

func (c *counterMap) get(label string) int64 {
	if v, ok := c.m.Load(label); ok {
		return v.(*atomic.Int64).Load()
	}
	return 0
}

func (c *counterMap) snapshot() map[string]int64 {
	out := make(map[string]int64)
	c.m.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}

func (c *counterMap) clear() {
	c.m.Clear()
}

// timingMap accumulates total duration and sample count per label.
type timingMap struct {
	total counterMap // nanoseconds
	count counterMap
}

func (t *timingMap) observe(label string, d time.Duration) {
	t.total.add(label, int64(d))
	t.count.add(label, 1)
}

// averagesMillis returns the mean duration per label in milliseconds.
func (t *timingMap) averagesMillis() map[string]float64 {
	out := make(map[string]float64)
	for label, total := range t.total.snapshot() {
		n := t.count.get(label)
		if n > 0 {
			out[label] = float64(total) / float64(n) / float64(time.Millisecond)
		}
	}
	return out
}

func (t *timingMap) clear() {
	t.total.clear()
	t.count.clear()
}

func ratio(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
