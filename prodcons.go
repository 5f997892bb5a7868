// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.hybscloud.com/iox"
	"github.com/golang/glog"
)

// Produce returns a producer task body. It completes writes successful
// sends of item into q, retrying any send that fails with ErrQueueFull,
// then returns. Any other error ends the task.
func Produce[T any](q Sender[T], item T, writes int, timeout time.Duration) TaskFunc {
	return func(ctx context.Context) error {
		backoff := iox.Backoff{}
		for sent := 0; sent < writes; {
			err := q.Send(ctx, item, timeout)
			switch {
			case err == nil:
				sent++
				backoff.Reset()
			case errors.Is(err, ErrQueueFull):
				if glog.V(2) {
					glog.Infof("%s: queue full, retrying (%d/%d sent)", taskName(ctx), sent, writes)
				}
				backoff.Wait()
			default:
				return err
			}
		}
		return nil
	}
}

// ProduceFrom returns a producer task body whose item is read through arg.
//
// The body copies *arg, gives paramRead exactly once, then behaves like
// Produce. The creator must not modify *arg until it has taken paramRead;
// doing so lets the task observe the modified value.
func ProduceFrom[T any](q Sender[T], arg *T, paramRead Giver, writes int, timeout time.Duration) TaskFunc {
	return func(ctx context.Context) error {
		item := *arg
		paramRead.Give()
		return Produce(q, item, writes, timeout)(ctx)
	}
}

// Consume returns a consumer task body. It receives from q forever, calling
// handle for every item. When a receive times out it logs and delays for
// idle instead of spinning. Returns when ctx is done.
func Consume[T any](q Receiver[T], timeout, idle time.Duration, handle func(T)) TaskFunc {
	return func(ctx context.Context) error {
		for {
			item, err := q.Receive(ctx, timeout)
			switch {
			case err == nil:
				handle(item)
			case errors.Is(err, ErrQueueEmpty):
				if glog.V(1) {
					glog.Infof("%s: queue empty, idling %v", taskName(ctx), idle)
				}
				if err := Delay(ctx, idle); err != nil {
					return err
				}
			default:
				return err
			}
		}
	}
}

// SpawnProducers creates one producer per id, each sending its own id
// writes times. Every task gets its id by value, so the ids slice may be
// reused as soon as SpawnProducers returns. Task names are spec.Name
// followed by the id.
func SpawnProducers(s *Scheduler, q Sender[int], ids []int, writes int, timeout time.Duration, spec TaskSpec) ([]*Task, error) {
	base := spec.Name
	tasks := make([]*Task, 0, len(ids))
	for _, id := range ids {
		spec.Name = fmt.Sprintf("%s %d", base, id)
		t, err := s.Create(spec, Produce(q, id, writes, timeout))
		if err != nil {
			return tasks, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// SpawnProducersShared creates n producers with ids 0..n-1 passed through
// one shared variable. After each Create it waits on a parameter-read
// rendezvous before advancing the variable.
func SpawnProducersShared(ctx context.Context, s *Scheduler, q Sender[int], n, writes int, timeout time.Duration, spec TaskSpec) ([]*Task, error) {
	base := spec.Name
	paramRead := NewBinary()
	tasks := make([]*Task, 0, n)
	var id int
	for id = 0; id < n; id++ {
		spec.Name = fmt.Sprintf("%s %d", base, id)
		t, err := s.Create(spec, ProduceFrom(q, &id, paramRead, writes, timeout))
		if err != nil {
			return tasks, err
		}
		tasks = append(tasks, t)
		if err := paramRead.Take(ctx, Forever); err != nil {
			return tasks, err
		}
	}
	return tasks, nil
}

func taskName(ctx context.Context) string {
	if t := TaskFrom(ctx); t != nil {
		return t.Name()
	}
	return "task"
}
