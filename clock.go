// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"slices"
	"sync"
	"time"
)

// Clock is the timer collaborator: it invokes a callback at every period
// boundary. The callback runs in interrupt context and must only use
// interrupt-safe operations (Semaphore.Give, Queue.TrySend, Sampler.Tick).
type Clock interface {
	// Every registers fn to run once per period and returns the function
	// that unregisters it. stop waits for an in-flight callback to return.
	Every(period time.Duration, fn func()) (stop func())
}

// TickerClock drives callbacks from a time.Ticker.
//
// Each registration gets its own goroutine, so callbacks never overlap
// themselves. Late ticks are coalesced by the ticker rather than queued,
// which bounds jitter to one period.
type TickerClock struct{}

// Every implements Clock.
func (TickerClock) Every(period time.Duration, fn func()) func() {
	if period <= 0 {
		panic("rtcore: clock period must be > 0")
	}
	ticker := time.NewTicker(period)
	quit := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-ticker.C:
				fn()
			case <-quit:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(quit)
			<-exited
		})
	}
}

// ManualClock fires callbacks only when told to.
//
// Tests use it to drive an interrupt source deterministically:
//
//	clk := &rtcore.ManualClock{}
//	stop := sampler.Start(clk, time.Millisecond)
//	defer stop()
//	clk.Fire(10) // ten interrupts, synchronously
type ManualClock struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]func()
}

// Every implements Clock. The period is ignored.
func (c *ManualClock) Every(_ time.Duration, fn func()) func() {
	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[int]func())
	}
	id := c.nextID
	c.nextID++
	c.entries[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
	}
}

// Fire invokes every registered callback n times, in registration order,
// on the calling goroutine.
func (c *ManualClock) Fire(n int) {
	for range n {
		c.mu.Lock()
		ids := make([]int, 0, len(c.entries))
		for id := range c.entries {
			ids = append(ids, id)
		}
		c.mu.Unlock()
		slices.Sort(ids)
		for _, id := range ids {
			c.mu.Lock()
			fn := c.entries[id]
			c.mu.Unlock()
			if fn != nil {
				fn()
			}
		}
	}
}
