// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"context"
	"errors"
	"time"
)

// Queue is a fixed-capacity FIFO message channel between tasks.
//
// Items are copied in on Send and copied out on Receive; no reference to
// the caller's value is kept, so a receiver never observes a partially
// written item. Any number of tasks may send and receive concurrently.
//
// Two counting semaphores track free slots and filled items, which gives
// Send and Receive their timeouts and priority-ordered wake-up. Once a
// caller holds a reservation it moves the item through a sequence-numbered
// ring; the ring's tail CAS is the single insertion point, so items are
// delivered in the order Send calls complete that step.
//
// Invariant: 0 <= Len() <= Cap().
//
// Example:
//
//	q := rtcore.NewQueue[int](5)
//
//	// Producer task
//	if err := q.Send(ctx, 42, 10*time.Millisecond); errors.Is(err, rtcore.ErrQueueFull) {
//	    // retry, drop or log
//	}
//
//	// Consumer task
//	v, err := q.Receive(ctx, rtcore.Forever)
type Queue[T any] struct {
	ring     *ring[T]
	free     *Semaphore
	filled   *Semaphore
	capacity int
}

// NewQueue creates a queue holding at most capacity items.
// Panics if capacity < 1.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		panic("rtcore: queue capacity must be >= 1")
	}
	return &Queue[T]{
		ring:     newRing[T](capacity),
		free:     NewCounting(capacity, capacity),
		filled:   NewCounting(capacity, 0),
		capacity: capacity,
	}
}

// Send appends a copy of item to the tail, waiting up to timeout for a
// free slot. Returns ErrQueueFull on timeout and ctx.Err() if ctx is done
// first. Send does not retry on its own.
func (q *Queue[T]) Send(ctx context.Context, item T, timeout time.Duration) error {
	if err := q.free.Take(ctx, timeout); err != nil {
		if errors.Is(err, ErrSemaphoreTimeout) {
			return ErrQueueFull
		}
		return err
	}
	q.ring.push(&item)
	q.filled.Give()
	return nil
}

// Receive removes and returns the head item, waiting up to timeout for one.
// Returns ErrQueueEmpty on timeout and ctx.Err() if ctx is done first.
func (q *Queue[T]) Receive(ctx context.Context, timeout time.Duration) (T, error) {
	if err := q.filled.Take(ctx, timeout); err != nil {
		var zero T
		if errors.Is(err, ErrSemaphoreTimeout) {
			return zero, ErrQueueEmpty
		}
		return zero, err
	}
	item := q.ring.pop()
	q.free.Give()
	return item, nil
}

// TrySend is Send with NoWait. It never blocks and never allocates, so it
// is safe to call from an interrupt handler.
func (q *Queue[T]) TrySend(item T) error {
	return q.Send(context.Background(), item, NoWait)
}

// TryReceive is Receive with NoWait.
func (q *Queue[T]) TryReceive() (T, error) {
	return q.Receive(context.Background(), NoWait)
}

// Len returns the number of items ready to be received.
// The value may be stale by the time it is used.
func (q *Queue[T]) Len() int {
	return q.filled.Count()
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return q.capacity
}
