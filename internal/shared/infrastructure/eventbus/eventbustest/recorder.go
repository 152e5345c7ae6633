// Package eventbustest provides an in-memory publisher for tests.
package eventbustest

import (
	"context"
	"sync"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
)

// Recorder is an eventbus.Publisher that records accepted messages and can
// be told to fail or stall.
type Recorder struct {
	mu       sync.Mutex
	messages []eventbus.Message
	failures map[string]error
	attempts int
	gate     chan struct{}
	pingErr  error
	closed   bool
}

var _ eventbus.Publisher = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{failures: make(map[string]error)}
}

// FailChannel makes every publish to channel return err.
func (r *Recorder) FailChannel(channel string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[channel] = err
}

// Hold blocks every Publish until the returned release func is called.
func (r *Recorder) Hold() (release func()) {
	gate := make(chan struct{})
	r.mu.Lock()
	r.gate = gate
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.gate = nil
			r.mu.Unlock()
			close(gate)
		})
	}
}

// SetPingError makes Ping return err.
func (r *Recorder) SetPingError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pingErr = err
}

func (r *Recorder) Publish(ctx context.Context, msg eventbus.Message) error {
	r.mu.Lock()
	gate := r.gate
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.closed {
		return eventbus.ErrPublisherClosed
	}
	if err := r.failures[msg.Channel]; err != nil {
		return err
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *Recorder) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pingErr
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Messages returns the accepted messages for channel, or all when channel is "".
func (r *Recorder) Messages(channel string) []eventbus.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []eventbus.Message
	for _, m := range r.messages {
		if channel == "" || m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}

// Attempts returns the number of Publish calls that reached the recorder.
func (r *Recorder) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// WaitFor polls until channel has at least n accepted messages.
func (r *Recorder) WaitFor(channel string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(r.Messages(channel)) >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return len(r.Messages(channel)) >= n
}
