// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/rtcore"
)

// =============================================================================
// Producer / Consumer Pattern
// =============================================================================

// TestProducersConsumersTotal runs N producers sending k items each and M
// consumers, with random preemption points, and checks N×k are consumed
// with each producer's id seen exactly k times.
func TestProducersConsumersTotal(t *testing.T) {
	if rtcore.RaceEnabled {
		t.Skip("skip: concurrent ring access")
	}
	const numP, numC, k = 5, 2, 50
	sched := rtcore.New().Cores(2).Build()
	q := rtcore.NewQueue[int](5)

	ids := make([]int, numP)
	for i := range ids {
		ids[i] = i
	}
	producers, err := rtcore.SpawnProducers(sched, q, ids, k, time.Millisecond,
		rtcore.TaskSpec{Name: "producer", Priority: 1, Core: 1})
	if err != nil {
		t.Fatalf("SpawnProducers: %v", err)
	}
	if producers[3].Name() != "producer 3" {
		t.Fatalf("Name: got %q, want %q", producers[3].Name(), "producer 3")
	}

	counts := make([]atomix.Int32, numP)
	var total atomix.Int64
	consumers := make([]*rtcore.Task, 0, numC)
	for range numC {
		consumers = append(consumers, sched.MustCreate(rtcore.TaskSpec{Name: "consumer", Priority: 1, Core: 1},
			rtcore.Consume(q, time.Millisecond, 5*time.Millisecond, func(v int) {
				if rand.IntN(3) == 0 {
					runtime.Gosched()
				}
				counts[v].Add(1)
				total.Add(1)
			})))
	}

	for _, p := range producers {
		waitClosed(t, 10*time.Second, p.Done(), "producer never finished")
		if err := p.Err(); err != nil {
			t.Fatalf("producer %s: %v", p.Name(), err)
		}
	}
	retryWithTimeout(t, 10*time.Second, func() bool { return total.Load() == numP*k }, "items not drained")

	for _, c := range consumers {
		sched.Delete(c)
	}
	sched.Wait()

	if total.Load() != numP*k {
		t.Fatalf("total consumed: got %d, want %d", total.Load(), numP*k)
	}
	for i := range counts {
		if c := counts[i].Load(); c != k {
			t.Fatalf("id %d: consumed %d times, want %d", i, c, k)
		}
	}
}

// TestProducerRetriesOnFull verifies that a producer keeps retrying a full
// queue until its writes complete.
func TestProducerRetriesOnFull(t *testing.T) {
	q := rtcore.NewQueue[string](1)
	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		done <- rtcore.Produce[string](q, "x", 3, time.Millisecond)(ctx)
	}()

	for i := range 3 {
		time.Sleep(5 * time.Millisecond) // let the producer hit ErrQueueFull
		v, err := q.Receive(ctx, time.Second)
		if err != nil || v != "x" {
			t.Fatalf("Receive(%d): got %q, %v", i, v, err)
		}
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Produce: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("producer never finished")
	}
	if _, err := q.TryReceive(); !errors.Is(err, rtcore.ErrQueueEmpty) {
		t.Fatalf("extra item: got %v, want ErrQueueEmpty", err)
	}
}

// TestConsumerIdles verifies that an empty receive leads to an idle delay
// rather than a spin, and that the consumer stops on cancellation.
func TestConsumerIdles(t *testing.T) {
	q := rtcore.NewQueue[int](1)
	var receives atomix.Int64
	counting := receiverFunc[int](func(ctx context.Context, timeout time.Duration) (int, error) {
		receives.Add(1)
		return q.Receive(ctx, timeout)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	err := rtcore.Consume[int](counting, time.Millisecond, 20*time.Millisecond, func(int) {})(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Consume: got %v, want context.DeadlineExceeded", err)
	}
	// 60ms of 1ms receive + 20ms idle allows at most a handful of polls.
	if n := receives.Load(); n > 5 {
		t.Fatalf("receives: got %d, want <= 5", n)
	}
}

type receiverFunc[T any] func(ctx context.Context, timeout time.Duration) (T, error)

func (f receiverFunc[T]) Receive(ctx context.Context, timeout time.Duration) (T, error) {
	return f(ctx, timeout)
}

// =============================================================================
// Creator Protocol - Parameter Rendezvous
// =============================================================================

// TestRendezvousDetectsEarlyMutation mutates the shared argument before the
// spawned task signals parameter-read and checks that the task observed
// the wrong value.
func TestRendezvousDetectsEarlyMutation(t *testing.T) {
	sched := rtcore.New().Build()
	q := rtcore.NewQueue[int](4)
	paramRead := rtcore.NewBinary()
	gate := make(chan struct{})

	arg := 1
	body := rtcore.ProduceFrom(q, &arg, paramRead, 1, rtcore.Forever)
	sched.MustCreate(rtcore.TaskSpec{Name: "producer", Core: rtcore.AnyCore}, func(ctx context.Context) error {
		<-gate // task starts late
		return body(ctx)
	})

	arg = 2 // creator breaks the protocol
	close(gate)
	if err := paramRead.Take(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Take: %v", err)
	}
	got, err := q.Receive(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got == 1 {
		t.Fatal("spawned task read the intended value despite early mutation")
	}
	if got != 2 {
		t.Fatalf("Receive: got %d, want the mutated value 2", got)
	}
	sched.Wait()
}

// TestRendezvousProtocol verifies that waiting on parameter-read before
// reusing the shared variable gives every producer its own id.
func TestRendezvousProtocol(t *testing.T) {
	const n, writes = 5, 3
	sched := rtcore.New().Build()
	q := rtcore.NewQueue[int](n * writes)

	tasks, err := rtcore.SpawnProducersShared(context.Background(), sched, q, n, writes, rtcore.Forever,
		rtcore.TaskSpec{Name: "producer", Priority: 1, Core: rtcore.AnyCore})
	if err != nil {
		t.Fatalf("SpawnProducersShared: %v", err)
	}
	if len(tasks) != n {
		t.Fatalf("tasks: got %d, want %d", len(tasks), n)
	}
	sched.Wait()

	counts := make(map[int]int)
	for range n * writes {
		v, err := q.TryReceive()
		if err != nil {
			t.Fatalf("TryReceive: %v", err)
		}
		counts[v]++
	}
	for id := range n {
		if counts[id] != writes {
			t.Fatalf("id %d: got %d items, want %d (counts %v)", id, counts[id], writes, counts)
		}
	}
}

// TestSpawnProducersByValue verifies that the id slice may be reused
// immediately after spawning.
func TestSpawnProducersByValue(t *testing.T) {
	sched := rtcore.New().Build()
	q := rtcore.NewQueue[int](8)
	ids := []int{10, 20, 30}

	_, err := rtcore.SpawnProducers(sched, q, ids, 1, rtcore.Forever, rtcore.TaskSpec{Name: "p", Core: rtcore.AnyCore})
	for i := range ids {
		ids[i] = -1
	}
	if err != nil {
		t.Fatalf("SpawnProducers: %v", err)
	}
	sched.Wait()

	sum := 0
	for range 3 {
		v, err := q.TryReceive()
		if err != nil {
			t.Fatalf("TryReceive: %v", err)
		}
		sum += v
	}
	if sum != 60 {
		t.Fatalf("sum of ids: got %d, want 60", sum)
	}
}

// TestSpawnProducersAllocationFailure verifies that spawning stops at the
// first creation error and reports it.
func TestSpawnProducersAllocationFailure(t *testing.T) {
	sched := rtcore.New().HeapBytes(2048).Build()
	q := rtcore.NewQueue[int](1)
	if err := q.TrySend(0); err != nil { // producers block until drained
		t.Fatalf("TrySend: %v", err)
	}
	gate := rtcore.NewBinary()
	sched.MustCreate(rtcore.TaskSpec{Name: "hog", Core: rtcore.AnyCore, StackBytes: 1500}, func(ctx context.Context) error {
		return gate.Take(ctx, rtcore.Forever)
	})

	tasks, err := rtcore.SpawnProducers(sched, q, []int{1, 2, 3}, 1, rtcore.Forever,
		rtcore.TaskSpec{Name: "p", Core: rtcore.AnyCore, StackBytes: 400})
	if !errors.Is(err, rtcore.ErrAllocationFailure) {
		t.Fatalf("SpawnProducers: got %v, want ErrAllocationFailure", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks created: got %d, want 1", len(tasks))
	}
	gate.Give()
	for range 2 {
		if _, err := q.Receive(context.Background(), 2*time.Second); err != nil {
			t.Fatalf("Receive: %v", err)
		}
	}
	sched.Wait()
}
