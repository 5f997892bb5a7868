// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation could not complete within its
// timeout. It is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// The timeout errors below wrap it, so a caller that only cares whether an
// operation timed out can test with [IsWouldBlock]:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Send(ctx, item, rtcore.NoWait)
//	    if err == nil {
//	        break
//	    }
//	    if !rtcore.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
var ErrWouldBlock = iox.ErrWouldBlock

var (
	// ErrQueueFull reports that Send timed out waiting for a free slot.
	// Not fatal: the caller decides whether to retry, drop or log.
	ErrQueueFull = fmt.Errorf("rtcore: queue full: %w", ErrWouldBlock)

	// ErrQueueEmpty reports that Receive timed out waiting for an item.
	// This is the normal idle signal of a consumer.
	ErrQueueEmpty = fmt.Errorf("rtcore: queue empty: %w", ErrWouldBlock)

	// ErrSemaphoreTimeout reports that Take did not obtain the semaphore
	// within a finite timeout.
	ErrSemaphoreTimeout = fmt.Errorf("rtcore: semaphore timeout: %w", ErrWouldBlock)
)

var (
	// ErrBufferOverflow reports that a bounded message-assembly buffer was
	// exceeded. The message has been truncated and delivered anyway.
	ErrBufferOverflow = errors.New("rtcore: buffer overflow")

	// ErrAllocationFailure reports that a task's stack budget could not be
	// reserved from the scheduler heap. There is no recovery strategy for
	// exhausted memory on a device; callers treat it as fatal.
	ErrAllocationFailure = errors.New("rtcore: allocation failure")

	// ErrInvalidCore reports a core affinity outside the configured cores.
	ErrInvalidCore = errors.New("rtcore: invalid core affinity")

	// ErrSchedulerStopped reports that the scheduler no longer accepts tasks.
	ErrSchedulerStopped = errors.New("rtcore: scheduler stopped")

	// ErrTaskPanicked is recorded as a task's result when its body panicked.
	ErrTaskPanicked = errors.New("rtcore: task panicked")
)

// IsWouldBlock reports whether err is a timeout of a queue or semaphore
// operation. Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil and every timeout error of this package.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// IsFatal reports whether err must terminate the process.
// Only allocation failure is fatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAllocationFailure)
}
