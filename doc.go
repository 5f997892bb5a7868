// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rtcore provides the concurrency core of a small real-time
// system: semaphores, bounded message queues, a task scheduler, and an
// interrupt-driven sampler that hands filled buffers to a processing task.
//
// # Capability Sets
//
// Interrupt handlers and tasks get different capabilities:
//
//	Interrupt-safe (never block, never allocate):
//	    Giver.Give, Queue.TrySend, Queue.TryReceive, Sampler.Tick
//
//	Task-only (may suspend the caller):
//	    Taker.Take, Queue.Send, Queue.Receive, Delay, Scheduler.DelayTicks
//
// A component that runs in interrupt context is handed a [Giver], never a
// [*Semaphore], so it cannot reach a blocking call.
//
// # Timeouts
//
// Every blocking operation takes a timeout:
//
//	rtcore.NoWait        // poll once, return immediately
//	10*time.Millisecond  // bounded wait, timeout error on expiry
//	rtcore.Forever       // wait until signalled or ctx is done
//
// A timeout is reported, never retried by the primitive itself. Retry
// policy belongs to the caller.
//
// # Quick Start
//
//	s := rtcore.New().Cores(2).Build()
//	q := rtcore.NewQueue[int](5)
//
//	// Producers: ids are passed by value
//	rtcore.SpawnProducers(s, q, []int{0, 1, 2, 3, 4}, 3, time.Millisecond,
//	    rtcore.TaskSpec{Name: "producer", Priority: 1, Core: 1})
//
//	// Consumers
//	for i := range 2 {
//	    s.MustCreate(rtcore.TaskSpec{Name: fmt.Sprintf("consumer %d", i), Priority: 1, Core: 1},
//	        rtcore.Consume(q, time.Millisecond, time.Second, func(v int) {
//	            console.Println(v)
//	        }))
//	}
//
// # Interrupt to Task Handoff
//
// A [Sampler] reads one value per clock interrupt into a buffer it owns.
// When the buffer fills, ownership moves to the task side and the ready
// semaphore is given. An [Aggregator] task takes the semaphore, reduces the
// buffer and publishes a [Result]:
//
//	ready := rtcore.NewCounting(rtcore.DefaultSamplerBuffers, 0)
//	sampler := rtcore.NewSampler(rtcore.SamplerConfig{Source: adc, Capacity: 10, Ready: ready})
//	stop := sampler.Start(rtcore.TickerClock{}, 100*time.Millisecond)
//	defer stop()
//
//	var avg rtcore.Result
//	s.MustCreate(rtcore.TaskSpec{Name: "average", Priority: 2, Core: 1},
//	    rtcore.NewAggregator(sampler, ready, &avg).Run)
//
//	v, rev := avg.Load() // from any task, never torn
//
// The sampler double-buffers: it never writes a buffer the aggregator has
// not released. If the aggregator falls behind, samples are dropped and
// counted rather than overwritten.
//
// # Task Lifecycle
//
// Tasks move through Ready → Running ⇄ Blocked → Terminated. A task
// terminates by returning from its body; the scheduler then releases its
// stack budget. [Scheduler.Delete] only requests termination by cancelling
// the task's context.
//
// # Error Handling
//
// Timeouts ([ErrQueueFull], [ErrQueueEmpty], [ErrSemaphoreTimeout]) wrap
// [ErrWouldBlock], sourced from [code.hybscloud.com/iox], and classify as
// non-failures:
//
//	rtcore.IsWouldBlock(err)  // true for every timeout
//	rtcore.IsNonFailure(err)  // true if nil or a timeout
//	rtcore.IsFatal(err)       // true only for ErrAllocationFailure
//
// # Race Detection
//
// The queue ring and the sampler's index rings synchronize through atomic
// sequence numbers. Go's race detector may report false positives for the
// data fields they protect, so concurrent stress tests are excluded when
// [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// backoff, [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CPU pause instructions and
// [github.com/golang/glog] for logging.
package rtcore
