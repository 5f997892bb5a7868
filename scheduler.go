// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Scheduler owns the lifecycle of every task it creates.
//
// Each task runs on its own goroutine under a context that carries the
// task handle, so blocking primitives know the caller's priority and can
// mark it Blocked while it waits. Tasks pinned to a core are locked to an
// OS thread for their whole life. The registry reserves each task's stack
// budget from a bounded heap at creation and releases it on termination.
//
// Termination is cooperative only: a task terminates by returning from its
// body. Delete asks a task to stop by cancelling its context.
//
// Priority takes effect only at wake points: when several tasks wait on
// the same semaphore or queue, the highest priority is woken first. Once
// runnable, tasks are dispatched by the Go runtime, which does not preempt
// a lower-priority goroutine in favour of a higher-priority one.
type Scheduler struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	tasks    map[uint64]*Task
	nextID   uint64
	heapUsed int
	stopped  bool

	wg sync.WaitGroup
}

func newScheduler(opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[uint64]*Task),
	}
}

// Create starts a new task running fn.
//
// Returns ErrInvalidCore if spec.Core is neither AnyCore nor a configured
// core, ErrAllocationFailure if the stack budget does not fit in the
// remaining heap, and ErrSchedulerStopped after Shutdown.
func (s *Scheduler) Create(spec TaskSpec, fn TaskFunc) (*Task, error) {
	if spec.Core != AnyCore && (spec.Core < 0 || int(spec.Core) >= s.opts.cores) {
		return nil, fmt.Errorf("%w: core %d, have %d", ErrInvalidCore, spec.Core, s.opts.cores)
	}
	if spec.StackBytes <= 0 {
		spec.StackBytes = s.opts.defaultStack
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrSchedulerStopped
	}
	if s.opts.heapBytes > 0 && s.heapUsed+spec.StackBytes > s.opts.heapBytes {
		free := s.opts.heapBytes - s.heapUsed
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: task %q needs %d bytes, %d free", ErrAllocationFailure, spec.Name, spec.StackBytes, free)
	}
	s.heapUsed += spec.StackBytes
	s.nextID++
	ctx, cancel := context.WithCancel(s.ctx)
	t := &Task{
		id:     s.nextID,
		spec:   spec,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.tasks[t.id] = t
	s.wg.Add(1)
	s.mu.Unlock()

	if glog.V(1) {
		glog.Infof("task %d %q created: priority %d, core %d, stack %d", t.id, spec.Name, spec.Priority, spec.Core, spec.StackBytes)
	}
	go s.run(withTask(ctx, t), t, fn)
	return t, nil
}

// MustCreate is like Create but panics on error.
// Use it in setup code where an allocation failure must reset the device.
func (s *Scheduler) MustCreate(spec TaskSpec, fn TaskFunc) *Task {
	t, err := s.Create(spec, fn)
	if err != nil {
		panic(err)
	}
	return t
}

func (s *Scheduler) run(ctx context.Context, t *Task, fn TaskFunc) {
	defer s.terminate(t)
	if t.spec.Core != AnyCore {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("task %d %q panicked: %v", t.id, t.spec.Name, r)
			t.err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	t.setState(StateRunning)
	t.err = fn(ctx)
}

func (s *Scheduler) terminate(t *Task) {
	t.cancel()
	t.setState(StateTerminated)

	s.mu.Lock()
	delete(s.tasks, t.id)
	s.heapUsed -= t.spec.StackBytes
	s.mu.Unlock()

	close(t.done)
	s.wg.Done()
	if glog.V(1) {
		glog.Infof("task %d %q terminated: %v", t.id, t.spec.Name, t.err)
	}
}

// Delete requests cooperative termination of t. The task observes the
// request at its next blocking call, which returns the context error.
// Delete does not wait; use t.Wait for that.
func (s *Scheduler) Delete(t *Task) {
	if glog.V(1) {
		glog.Infof("task %d %q delete requested", t.id, t.spec.Name)
	}
	t.cancel()
}

// DelayTicks suspends the calling task for n scheduler ticks.
func (s *Scheduler) DelayTicks(ctx context.Context, n int) error {
	return Delay(ctx, time.Duration(n)*s.opts.tickPeriod)
}

// TickPeriod returns the scheduler time quantum.
func (s *Scheduler) TickPeriod() time.Duration {
	return s.opts.tickPeriod
}

// Cores returns the number of configured cores.
func (s *Scheduler) Cores() int {
	return s.opts.cores
}

// HeapUsed returns the stack budget reserved by live tasks.
func (s *Scheduler) HeapUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heapUsed
}

// Tasks returns the live tasks ordered by id.
func (s *Scheduler) Tasks() []*Task {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()
	slices.SortFunc(tasks, func(a, b *Task) int {
		return cmp.Compare(a.id, b.id)
	})
	return tasks
}

// Wait blocks until every task created so far has terminated.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Shutdown stops accepting tasks, requests termination of every live task
// and waits for them until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		glog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delay suspends the calling task for d. The task is Blocked meanwhile.
// Returns ctx.Err() if ctx is done first. A non-positive d yields the
// processor and returns.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}
	defer blocking(ctx)()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
