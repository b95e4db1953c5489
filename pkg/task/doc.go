// Package task implements the periodic activities of the sampling pipeline.
//
// Producers sample the shared converter, take a slot from the message pool,
// fill it and try to queue it; a full queue is counted as a drop. The single
// consumer waits for queued messages, reports accumulated drops and then the
// message itself. The heartbeat toggles an output and shares nothing with the
// others.
//
//	Producer: Acquire -> Sample -> Release -> Allocate -> Set -> TryEnqueue | Drops.Increment
//	Consumer: Dequeue -> Drops.ReadAndReset -> [warning] -> report
//
// Every task has Step, one iteration without the periodic delay, and Run,
// which loops forever until its context is cancelled.
package task

import (
	"context"
	"time"
)

// delay sleeps for d or until ctx is cancelled.
func delay(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
