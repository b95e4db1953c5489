// Package pool provides a fixed set of preallocated slots handed out in
// round-robin order, together with the drop counter that shares its lock.
//
// Allocation never fails and never tracks whether a slot is still in use:
// the (n+1)-th allocation after a slot was handed out returns the same slot
// again, overwriting whatever the previous owner stored in it.
package pool

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidSize is returned by New when size is not positive.
var ErrInvalidSize = errors.New("pool size must be positive")

// Pool is a fixed-length array of reusable slots with a shared cursor.
type Pool[T any] struct {
	mu    sync.Mutex
	slots []T
	next  int
	drops DropCounter
}

// New allocates size slots up front.
func New[T any](size int) (*Pool[T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	p := &Pool[T]{
		slots: make([]T, size),
	}
	p.drops.mu = &p.mu

	return p, nil
}

// Allocate returns the slot at the cursor and advances the cursor by one,
// modulo the pool size.
func (p *Pool[T]) Allocate() *T {
	p.mu.Lock()
	i := p.next
	p.next = (p.next + 1) % len(p.slots)
	p.mu.Unlock()

	return &p.slots[i]
}

// Len returns the number of slots.
func (p *Pool[T]) Len() int {
	return len(p.slots)
}

// Slot returns the i-th slot. It does not move the cursor.
func (p *Pool[T]) Slot(i int) *T {
	return &p.slots[i]
}

// Drops returns the drop counter guarded by the pool lock.
func (p *Pool[T]) Drops() *DropCounter {
	return &p.drops
}

// DropCounter counts enqueue attempts that failed since the last read.
// The zero value is ready to use with its own lock; a pool's counter shares
// the pool lock instead.
type DropCounter struct {
	mu  *sync.Mutex
	own sync.Mutex
	n   uint32
}

// NewDropCounter returns a counter with its own lock, for callers that do not
// share one with a pool.
func NewDropCounter() *DropCounter {
	return &DropCounter{}
}

func (d *DropCounter) lock() *sync.Mutex {
	if d.mu != nil {
		return d.mu
	}
	return &d.own
}

// Increment records one failed enqueue.
func (d *DropCounter) Increment() {
	mu := d.lock()
	mu.Lock()
	d.n++
	mu.Unlock()
}

// ReadAndReset returns the count and sets it to zero in one step.
func (d *DropCounter) ReadAndReset() uint32 {
	mu := d.lock()
	mu.Lock()
	n := d.n
	d.n = 0
	mu.Unlock()
	return n
}
