// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"context"

	"github.com/golang/glog"
)

// Mean returns the arithmetic mean of samples, or 0 for an empty slice.
func Mean(samples []uint16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range samples {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(samples))
}

// Reducer folds a full sample buffer into one value.
type Reducer func(samples []uint16) float64

// Aggregator is the task that reduces each filled sampler buffer and
// publishes the result.
//
// Example:
//
//	ready := rtcore.NewCounting(rtcore.DefaultSamplerBuffers, 0)
//	sampler := rtcore.NewSampler(rtcore.SamplerConfig{Source: adc, Capacity: 10, Ready: ready})
//	var avg rtcore.Result
//	agg := rtcore.NewAggregator(sampler, ready, &avg)
//	sched.MustCreate(rtcore.TaskSpec{Name: "average", Priority: 2, Core: 1}, agg.Run)
type Aggregator struct {
	sampler *Sampler
	ready   Taker
	result  *Result
	reduce  Reducer

	// Counters already reported, owned by Run.
	overruns uint64
	missed   uint64
}

// NewAggregator creates an aggregator publishing the Mean of every frame.
func NewAggregator(sampler *Sampler, ready Taker, result *Result) *Aggregator {
	return &Aggregator{
		sampler: sampler,
		ready:   ready,
		result:  result,
		reduce:  Mean,
	}
}

// WithReducer replaces Mean with fn. Call before Run.
func (a *Aggregator) WithReducer(fn Reducer) *Aggregator {
	a.reduce = fn
	return a
}

// Run is the task body. It waits for the ready signal, then reduces and
// releases every filled frame, publishing one revision per frame. Returns
// when ctx is done.
func (a *Aggregator) Run(ctx context.Context) error {
	for {
		if err := a.ready.Take(ctx, Forever); err != nil {
			return err
		}
		a.Drain()
	}
}

// Drain processes every frame currently filled and returns how many it
// published. Run calls it after each signal.
func (a *Aggregator) Drain() int {
	n := 0
	for {
		f, ok := a.sampler.Acquire()
		if !ok {
			break
		}
		v := a.reduce(f.Samples)
		a.sampler.Release(f)
		rev := a.result.Publish(v)
		n++
		if glog.V(2) {
			glog.Infof("aggregate revision %d: %.3f", rev, v)
		}
	}
	a.report()
	return n
}

// report logs sampler faults seen since the last call. The interrupt side
// only counts them.
func (a *Aggregator) report() {
	if o := a.sampler.Overruns(); o != a.overruns {
		glog.Warningf("sampler overrun: %d samples dropped", o-a.overruns)
		a.overruns = o
	}
	if m := a.sampler.MissedSignals(); m != a.missed {
		glog.Warningf("sampler ready signal saturated %d times", m-a.missed)
		a.missed = m
	}
}
