// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore_test

import (
	"slices"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/rtcore"
)

// =============================================================================
// Clock Collaborators
// =============================================================================

func TestManualClockOrderAndStop(t *testing.T) {
	clk := &rtcore.ManualClock{}
	var calls []string
	stopA := clk.Every(time.Millisecond, func() { calls = append(calls, "a") })
	clk.Every(time.Second, func() { calls = append(calls, "b") })

	clk.Fire(2)
	if want := []string{"a", "b", "a", "b"}; !slices.Equal(calls, want) {
		t.Fatalf("calls: got %v, want %v", calls, want)
	}

	stopA()
	calls = calls[:0]
	clk.Fire(1)
	if want := []string{"b"}; !slices.Equal(calls, want) {
		t.Fatalf("calls after stop: got %v, want %v", calls, want)
	}
}

func TestTickerClockStop(t *testing.T) {
	var n atomix.Int64
	stop := rtcore.TickerClock{}.Every(time.Millisecond, func() { n.Add(1) })
	retryWithTimeout(t, 2*time.Second, func() bool { return n.Load() >= 3 }, "ticker never fired")

	stop()
	stop() // idempotent
	after := n.Load()
	time.Sleep(10 * time.Millisecond)
	if n.Load() != after {
		t.Fatalf("callbacks after stop: got %d, want %d", n.Load(), after)
	}
}

func TestTickerClockPanicsOnPeriod(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Every(0): expected panic")
		}
	}()
	rtcore.TickerClock{}.Every(0, func() {})
}
