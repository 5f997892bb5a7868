// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command rtdemo runs both concurrency patterns of rtcore on a simulated
// board: a timer interrupt sampling a synthetic ADC into double buffers
// averaged by a task, and producers exchanging ids with consumers through a
// bounded queue. Output goes to stdout as the board's serial console.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"code.hybscloud.com/rtcore"
	"github.com/golang/glog"
)

var (
	cores        = 2
	appCore      = 1
	tick         = time.Millisecond
	heapBytes    = 64 << 10
	samplePeriod = 10 * time.Millisecond
	sampleCount  = 10
	queueLen     = 5
	producers    = 5
	consumers    = 2
	writes       = 3
	sendTimeout  = time.Millisecond
	idleDelay    = time.Second
	sharedArgs   = false
	runFor       = 5 * time.Second
)

func init() {
	flag.IntVar(&cores, "cores", cores, "Number of execution cores.")
	flag.IntVar(&appCore, "core", appCore, "Core the application tasks are pinned to.")
	flag.DurationVar(&tick, "tick", tick, "Scheduler tick period.")
	flag.IntVar(&heapBytes, "heap", heapBytes, "Heap available for task stacks, 0 for unlimited.")
	flag.DurationVar(&samplePeriod, "sample-period", samplePeriod, "Timer interrupt period.")
	flag.IntVar(&sampleCount, "samples", sampleCount, "Samples per buffer.")
	flag.IntVar(&queueLen, "queue", queueLen, "Message queue capacity.")
	flag.IntVar(&producers, "producers", producers, "Number of producer tasks.")
	flag.IntVar(&consumers, "consumers", consumers, "Number of consumer tasks.")
	flag.IntVar(&writes, "writes", writes, "Items sent by each producer.")
	flag.DurationVar(&sendTimeout, "send-timeout", sendTimeout, "Queue send and receive timeout.")
	flag.DurationVar(&idleDelay, "idle", idleDelay, "Consumer delay after an empty receive.")
	flag.BoolVar(&sharedArgs, "shared-args", sharedArgs, "Pass producer ids through one shared variable with a rendezvous.")
	flag.DurationVar(&runFor, "run", runFor, "How long to run, 0 for until interrupted.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if runFor > 0 {
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	out := bufio.NewWriter(os.Stdout)
	console := rtcore.NewConsole(out)
	console.Println()
	console.Println("---rtcore demo---")

	sched := rtcore.New().
		Cores(cores).
		TickPeriod(tick).
		HeapBytes(heapBytes).
		Build()

	// Interrupt to task handoff.
	ready := rtcore.NewCounting(rtcore.DefaultSamplerBuffers, 0)
	sampler := rtcore.NewSampler(rtcore.SamplerConfig{
		Source:   triangle(4095, 37),
		Capacity: sampleCount,
		Ready:    ready,
	})
	var average rtcore.Result
	create(sched, rtcore.TaskSpec{Name: "average", Priority: 2, Core: rtcore.CoreID(appCore)},
		rtcore.NewAggregator(sampler, ready, &average).Run)
	create(sched, rtcore.TaskSpec{Name: "report", Priority: 1, Core: rtcore.CoreID(appCore)},
		report(console, &average, sched))
	stopSampling := sampler.Start(rtcore.TickerClock{}, samplePeriod)

	// Producer/consumer through a bounded queue, set up from a task that
	// terminates once everything is created.
	queue := rtcore.NewQueue[int](queueLen)
	create(sched, rtcore.TaskSpec{Name: "setup", Priority: 1, Core: rtcore.CoreID(appCore)},
		setup(sched, queue, console))

	<-ctx.Done()
	stopSampling()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := sched.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("shutdown: %v", err)
	}
	console.Printf("sampled %d ticks, %d frames, %d overruns", sampler.Ticks(), sampler.Frames(), sampler.Overruns())
}

// create starts a task; an allocation failure resets the board.
func create(s *rtcore.Scheduler, spec rtcore.TaskSpec, fn rtcore.TaskFunc) *rtcore.Task {
	t, err := s.Create(spec, fn)
	if err != nil {
		if rtcore.IsFatal(err) {
			glog.Fatalf("create %q: %v", spec.Name, err)
		}
		glog.Exitf("create %q: %v", spec.Name, err)
	}
	return t
}

func setup(s *rtcore.Scheduler, q *rtcore.Queue[int], console *rtcore.Console) rtcore.TaskFunc {
	return func(ctx context.Context) error {
		spec := rtcore.TaskSpec{Name: "producer", Priority: 1, Core: rtcore.CoreID(appCore), StackBytes: 1024}
		var err error
		if sharedArgs {
			_, err = rtcore.SpawnProducersShared(ctx, s, q, producers, writes, sendTimeout, spec)
		} else {
			ids := make([]int, producers)
			for i := range ids {
				ids[i] = i
			}
			_, err = rtcore.SpawnProducers(s, q, ids, writes, sendTimeout, spec)
		}
		if err != nil {
			diag(console, err)
			if rtcore.IsFatal(err) {
				glog.Fatalf("setup: %v", err)
			}
			return err
		}

		for i := range consumers {
			spec := rtcore.TaskSpec{Name: fmt.Sprintf("consumer %d", i), Priority: 1, Core: rtcore.CoreID(appCore), StackBytes: 1024}
			_, err := s.Create(spec, rtcore.Consume(q, sendTimeout, idleDelay, func(v int) {
				console.Println(v)
			}))
			if err != nil {
				diag(console, err)
				if rtcore.IsFatal(err) {
					glog.Fatalf("setup: %v", err)
				}
				return err
			}
		}
		console.Println("All tasks created")
		return nil
	}
}

// diag reports err on the console and logs when the console itself fails.
func diag(console *rtcore.Console, err error) {
	if werr := console.Diag(err); werr != nil {
		glog.Warningf("console: reporting %v: %v", err, werr)
	}
}

// report prints the published average whenever its revision changes.
func report(console *rtcore.Console, avg *rtcore.Result, s *rtcore.Scheduler) rtcore.TaskFunc {
	return func(ctx context.Context) error {
		var last uint64
		for {
			if err := s.DelayTicks(ctx, 500); err != nil {
				return err
			}
			v, rev := avg.Load()
			if rev == last {
				continue
			}
			last = rev
			console.Printf("Average: %.2f (revision %d)", v, rev)
		}
	}
}

// triangle simulates an ADC input ramping between 0 and top by step.
// The returned Source keeps its state for the interrupt handler alone.
func triangle(top, step int) rtcore.Source {
	v, dir := 0, step
	return func() uint16 {
		v += dir
		if v >= top {
			v, dir = top, -step
		} else if v <= 0 {
			v, dir = 0, step
		}
		return uint16(v)
	}
}
