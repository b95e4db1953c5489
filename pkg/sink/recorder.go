package sink

import (
	"sync"
	"time"
)

// Recorder keeps every line in memory.
type Recorder struct {
	mu      sync.Mutex
	lines   []string
	changed chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

// WriteLine appends text.
func (r *Recorder) WriteLine(text string) error {
	r.mu.Lock()
	r.lines = append(r.lines, text)
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()
	return nil
}

// Lines returns a copy of all recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]string, len(r.lines))
	copy(result, r.lines)
	return result
}

// Reset drops all recorded lines.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.lines = nil
	r.mu.Unlock()
}

// WaitFor blocks until at least n lines were recorded or timeout elapses.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		r.mu.Lock()
		if len(r.lines) >= n {
			r.mu.Unlock()
			return true
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-deadline.C:
			return false
		}
	}
}
