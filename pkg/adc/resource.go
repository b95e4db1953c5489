package adc

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Resource guards a single Sampler so that only one task drives it at a time.
//
// The lock is independent from any pool or queue lock: a slow conversion never
// blocks unrelated bookkeeping in another task.
type Resource struct {
	mu      sync.Mutex
	sampler Sampler
	poll    time.Duration
}

// NewResource wraps s. poll is the delay between completion checks; zero
// yields the processor instead of sleeping.
func NewResource(s Sampler, poll time.Duration) *Resource {
	return &Resource{
		sampler: s,
		poll:    poll,
	}
}

// Acquire blocks until no other task holds the resource. No ordering between
// waiters is guaranteed.
func (r *Resource) Acquire() {
	r.mu.Lock()
}

// Release frees the resource and lets one waiter proceed.
func (r *Resource) Release() {
	r.mu.Unlock()
}

// Sample selects input, starts a conversion and waits for it to complete.
// The caller must hold the resource.
//
// There is no timeout: a converter that never completes blocks the holder,
// and every task waiting in Acquire, until ctx is cancelled.
func (r *Resource) Sample(ctx context.Context, input Input) (uint16, error) {
	r.sampler.Select(input)
	r.sampler.BeginConversion()

	for !r.sampler.IsDone() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if r.poll > 0 {
			time.Sleep(r.poll)
		} else {
			runtime.Gosched()
		}
	}

	return r.sampler.ReadValue(), nil
}

// Read performs Acquire, Sample and Release as one critical section.
func (r *Resource) Read(ctx context.Context, input Input) (uint16, error) {
	r.Acquire()
	defer r.Release()
	return r.Sample(ctx, input)
}
