// Package queue implements the bounded FIFO between producers and the
// consumer: producers never wait, the consumer always does.
package queue

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidCapacity is returned by New when capacity is not positive.
var ErrInvalidCapacity = errors.New("queue capacity must be positive")

// Queue is a bounded FIFO of element references.
type Queue[T any] struct {
	items chan T
}

// New creates a queue holding at most capacity elements.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Queue[T]{items: make(chan T, capacity)}, nil
}

// TryEnqueue appends v if the queue is not full. It never blocks; a false
// result means v was not queued and the caller owns the drop accounting.
func (q *Queue[T]) TryEnqueue(v T) bool {
	select {
	case q.items <- v:
		return true
	default:
		return false
	}
}

// Dequeue blocks until an element is available and removes the oldest one.
// It only fails when ctx is cancelled first.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	select {
	case v := <-q.items:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Cap returns the capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.items)
}
