// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"context"
	"time"
	"unsafe"
)

// Timeout values shared by every blocking operation.
//
// A positive duration bounds the wait and yields a timeout error on expiry.
const (
	// NoWait polls once and returns immediately.
	NoWait time.Duration = 0

	// Forever blocks until the operation completes or ctx is done.
	// Only valid from task context, never from an interrupt.
	Forever time.Duration = -1
)

// Priority orders tasks. Higher values are serviced first when several
// tasks wait on the same semaphore or queue.
type Priority int

// CoreID identifies an execution core.
type CoreID int

// AnyCore means the task has no core affinity.
const AnyCore CoreID = -1

// Giver is the interrupt-safe view of a semaphore.
//
// Give never blocks and never allocates, so it is the only synchronization
// call an interrupt handler may make.
type Giver interface {
	// Give releases one unit. Returns false if the semaphore was already
	// at its maximum count.
	Give() bool
}

// Taker is the task-only view of a semaphore.
//
// Take may suspend the calling task and must never be called from an
// interrupt handler.
type Taker interface {
	// Take obtains one unit, waiting up to timeout.
	Take(ctx context.Context, timeout time.Duration) error
}

// Sender is the producer side of a bounded queue.
type Sender[T any] interface {
	// Send copies item into the queue, waiting up to timeout for a slot.
	// Returns ErrQueueFull on timeout.
	Send(ctx context.Context, item T, timeout time.Duration) error
}

// Receiver is the consumer side of a bounded queue.
type Receiver[T any] interface {
	// Receive removes the head item, waiting up to timeout for one.
	// Returns ErrQueueEmpty on timeout.
	Receive(ctx context.Context, timeout time.Duration) (T, error)
}

// TaskFunc is the body of a task. Returning from it is the task's explicit
// self-termination; the returned error is recorded by the scheduler.
type TaskFunc func(ctx context.Context) error

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
