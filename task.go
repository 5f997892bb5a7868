// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"context"

	"code.hybscloud.com/atomix"
)

// TaskState is a task's position in its lifecycle.
//
//	Ready → Running ⇄ Blocked
//	           ↓
//	       Terminated
type TaskState int32

const (
	// StateReady: created, not yet started.
	StateReady TaskState = iota
	// StateRunning: executing its body.
	StateRunning
	// StateBlocked: suspended on a semaphore, queue or delay.
	StateBlocked
	// StateTerminated: returned from its body. Final.
	StateTerminated
)

func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TaskSpec describes a task to create.
type TaskSpec struct {
	Name       string
	Priority   Priority
	Core       CoreID // AnyCore for no affinity
	StackBytes int    // 0 selects the scheduler default
}

// Task is a handle to a task owned by a Scheduler.
type Task struct {
	id     uint64
	spec   TaskSpec
	state  atomix.Int32
	cancel context.CancelFunc
	done   chan struct{}
	err    error // written once before done is closed
}

// ID returns the scheduler-unique task id.
func (t *Task) ID() uint64 { return t.id }

// Name returns the task name.
func (t *Task) Name() string { return t.spec.Name }

// Priority returns the task priority.
func (t *Task) Priority() Priority { return t.spec.Priority }

// Core returns the task's core affinity, or AnyCore.
func (t *Task) Core() CoreID { return t.spec.Core }

// StackBytes returns the stack budget reserved for the task.
func (t *Task) StackBytes() int { return t.spec.StackBytes }

// State returns the current lifecycle state.
func (t *Task) State() TaskState {
	return TaskState(t.state.LoadAcquire())
}

// Done is closed when the task terminates.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the value the task body returned.
// Only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task terminates or ctx is done.
// Returns the task's result, or ctx.Err().
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) setState(s TaskState) {
	t.state.StoreRelease(int32(s))
}

type taskKey struct{}

// TaskFrom returns the task whose context ctx is, or nil when ctx does not
// belong to a scheduled task.
func TaskFrom(ctx context.Context) *Task {
	t, _ := ctx.Value(taskKey{}).(*Task)
	return t
}

func withTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, taskKey{}, t)
}

// priorityOf returns the priority of the calling task, 0 outside a task.
func priorityOf(ctx context.Context) Priority {
	if t := TaskFrom(ctx); t != nil {
		return t.spec.Priority
	}
	return 0
}

// blocking marks the calling task Blocked and returns the function that
// marks it Running again.
func blocking(ctx context.Context) func() {
	t := TaskFrom(ctx)
	if t == nil {
		return func() {}
	}
	t.setState(StateBlocked)
	return func() { t.setState(StateRunning) }
}
