// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import "time"

// Defaults applied by New.
const (
	DefaultCores      = 2
	DefaultTickPeriod = time.Millisecond
	DefaultStackBytes = 2048
)

// Options configures a Scheduler.
type Options struct {
	cores        int
	tickPeriod   time.Duration
	heapBytes    int // 0 = unlimited
	defaultStack int
}

// Builder creates a Scheduler with fluent configuration.
//
// Example:
//
//	// Dual-core board, 1ms tick, 64 KiB for task stacks
//	s := rtcore.New().Cores(2).TickPeriod(time.Millisecond).HeapBytes(64 << 10).Build()
//
//	// Defaults: 2 cores, 1ms tick, unlimited heap, 2048-byte stacks
//	s := rtcore.New().Build()
type Builder struct {
	opts Options
}

// New creates a scheduler builder with default options.
func New() *Builder {
	return &Builder{opts: Options{
		cores:        DefaultCores,
		tickPeriod:   DefaultTickPeriod,
		defaultStack: DefaultStackBytes,
	}}
}

// Cores sets the number of execution cores tasks may be pinned to.
// Panics if n < 1.
func (b *Builder) Cores(n int) *Builder {
	if n < 1 {
		panic("rtcore: cores must be >= 1")
	}
	b.opts.cores = n
	return b
}

// TickPeriod sets the scheduler time quantum used by DelayTicks.
// Panics if d <= 0.
func (b *Builder) TickPeriod(d time.Duration) *Builder {
	if d <= 0 {
		panic("rtcore: tick period must be > 0")
	}
	b.opts.tickPeriod = d
	return b
}

// HeapBytes bounds the total stack budget of live tasks.
// Creating a task beyond the bound fails with ErrAllocationFailure.
// Zero means unlimited.
func (b *Builder) HeapBytes(n int) *Builder {
	if n < 0 {
		panic("rtcore: heap bytes must be >= 0")
	}
	b.opts.heapBytes = n
	return b
}

// DefaultStack sets the stack budget of tasks created with StackBytes 0.
func (b *Builder) DefaultStack(n int) *Builder {
	if n < 1 {
		panic("rtcore: default stack must be >= 1")
	}
	b.opts.defaultStack = n
	return b
}

// Build creates the Scheduler.
func (b *Builder) Build() *Scheduler {
	return newScheduler(b.opts)
}
