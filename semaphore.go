// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Semaphore is a binary or counting semaphore.
//
// Give is interrupt-safe: it never blocks and never allocates. Take is
// task-only and may suspend the caller. When several tasks wait, a Give
// hands the unit directly to the highest-priority waiter (ties are served
// in arrival order), so a lower-priority task can never steal a unit that
// was released for a higher-priority one.
//
// Invariant: 0 <= Count() <= Max().
//
// Example (binary semaphore as a rendezvous):
//
//	done := rtcore.NewBinary()
//	go func() {
//	    work()
//	    done.Give()
//	}()
//	if err := done.Take(ctx, rtcore.Forever); err != nil {
//	    return err
//	}
type Semaphore struct {
	mu      sync.Mutex
	count   int
	max     int
	arrival uint64
	waiters waitQueue
}

// NewBinary creates a binary semaphore (max count 1) that starts empty.
func NewBinary() *Semaphore {
	return NewCounting(1, 0)
}

// NewCounting creates a counting semaphore with the given maximum and
// initial count.
//
// Panics if max < 1 or initial is outside [0, max].
func NewCounting(max, initial int) *Semaphore {
	if max < 1 {
		panic("rtcore: semaphore max count must be >= 1")
	}
	if initial < 0 || initial > max {
		panic("rtcore: semaphore initial count out of range")
	}
	return &Semaphore{count: initial, max: max}
}

// Give releases one unit.
//
// If a task is waiting, the unit goes straight to the highest-priority
// waiter and the count is unchanged. Otherwise the count is incremented.
// Returns false, leaving the count at Max, if the semaphore is saturated.
func (s *Semaphore) Give() bool {
	s.mu.Lock()
	if s.waiters.Len() > 0 {
		w := heap.Pop(&s.waiters).(*waiter)
		s.mu.Unlock()
		w.ready <- struct{}{}
		return true
	}
	if s.count >= s.max {
		s.mu.Unlock()
		return false
	}
	s.count++
	s.mu.Unlock()
	return true
}

// Take obtains one unit.
//
// timeout is NoWait to poll once, Forever to wait until a unit is given,
// or a positive duration to bound the wait. Returns ErrSemaphoreTimeout
// when the wait expires and ctx.Err() when ctx is done first.
//
// The waiter's priority is the priority of the task carried by ctx.
func (s *Semaphore) Take(ctx context.Context, timeout time.Duration) error {
	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		return nil
	}
	if timeout == NoWait {
		s.mu.Unlock()
		return ErrSemaphoreTimeout
	}
	w := &waiter{
		priority: priorityOf(ctx),
		arrival:  s.arrival,
		ready:    make(chan struct{}, 1),
	}
	s.arrival++
	heap.Push(&s.waiters, w)
	s.mu.Unlock()

	defer blocking(ctx)()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-w.ready:
		return nil
	case <-expired:
		return s.abandon(w, ErrSemaphoreTimeout)
	case <-ctx.Done():
		return s.abandon(w, ctx.Err())
	}
}

// abandon removes w from the wait queue after a timeout or cancellation.
// If a Give already handed w the unit, the unit is kept and Take succeeds.
func (s *Semaphore) abandon(w *waiter, err error) error {
	s.mu.Lock()
	if w.index >= 0 {
		heap.Remove(&s.waiters, w.index)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	<-w.ready
	return nil
}

// Count returns the number of available units.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Max returns the maximum count.
func (s *Semaphore) Max() int {
	return s.max
}

// Waiting returns the number of tasks blocked in Take.
func (s *Semaphore) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}

type waiter struct {
	priority Priority
	arrival  uint64
	index    int // position in waitQueue, -1 once granted
	ready    chan struct{}
}

// waitQueue is a max-heap on priority, then min-heap on arrival.
type waitQueue []*waiter

func (q waitQueue) Len() int { return len(q) }

func (q waitQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].arrival < q[j].arrival
}

func (q waitQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *waitQueue) Push(x any) {
	w := x.(*waiter)
	w.index = len(*q)
	*q = append(*q, w)
}

func (q *waitQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*q = old[:n-1]
	return w
}
