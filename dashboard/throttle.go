package main

import (
	"sync"
	"time"
)

// throttle limits UI refreshes to one per interval. Monitor callbacks arrive
// once per report, which can outpace the display. A suppressed update is
// kept and delivered when the interval elapses, so the last one always lands.
type throttle struct {
	interval time.Duration

	mu      sync.Mutex
	last    time.Time
	pending func()
	timer   *time.Timer
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval}
}

// Do runs fn now if the previous run was at least interval ago. Otherwise fn
// replaces any pending update and runs once the interval has elapsed.
func (t *throttle) Do(fn func()) {
	t.mu.Lock()
	now := time.Now()
	wait := t.interval - now.Sub(t.last)
	if t.last.IsZero() || wait <= 0 {
		t.last = now
		t.pending = nil
		t.mu.Unlock()
		fn()
		return
	}

	t.pending = fn
	if t.timer == nil {
		t.timer = time.AfterFunc(wait, t.flush)
	}
	t.mu.Unlock()
}

func (t *throttle) flush() {
	t.mu.Lock()
	fn := t.pending
	t.pending = nil
	t.timer = nil
	if fn != nil {
		t.last = time.Now()
	}
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}
