// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"time"

	"code.hybscloud.com/atomix"
)

// Source reads one raw sample from the hardware, e.g. an ADC channel.
// It runs in interrupt context.
type Source func() uint16

// DefaultSamplerBuffers is the ping-pong buffer count.
const DefaultSamplerBuffers = 2

// SamplerConfig configures a Sampler.
type SamplerConfig struct {
	// Source is read once per tick. Required.
	Source Source
	// Capacity is the number of samples per buffer. Required.
	Capacity int
	// Buffers is the number of sample buffers. Zero selects
	// DefaultSamplerBuffers. Must be >= 2.
	Buffers int
	// Ready is given each time a buffer fills. Required.
	Ready Giver
}

// noBuffer marks that the interrupt side currently owns no buffer.
const noBuffer = ^uintptr(0)

// Sampler is an interrupt-driven sample collector.
//
// The interrupt side (Tick) writes into a buffer it owns exclusively. When
// the buffer is full it hands the buffer index to the task side through an
// SPSC ring, takes the next free buffer from a second SPSC ring and gives
// the Ready semaphore. The task side (Acquire/Release) owns a filled buffer
// until it releases it, so the interrupt never writes a buffer the task is
// reading. With the default two buffers this is ping-pong buffering.
//
// If the task side falls behind and no free buffer is left, ticks are
// dropped and counted in Overruns instead of overwriting a buffer the task
// may be reading.
//
// Tick must be driven by a single interrupt source. Acquire and Release
// must be called from a single task.
type Sampler struct {
	source Source
	ready  Giver
	bufs   [][]uint16
	filled *indexRing // interrupt → task
	free   *indexRing // task → interrupt

	// Owned by the interrupt side.
	cur uintptr
	pos int

	ticks    atomix.Uint64
	frames   atomix.Uint64
	overruns atomix.Uint64
	missed   atomix.Uint64
}

// NewSampler creates a Sampler.
// Panics if Source or Ready is nil, Capacity < 1 or Buffers is 1.
func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.Source == nil || cfg.Ready == nil {
		panic("rtcore: sampler needs a source and a ready semaphore")
	}
	if cfg.Capacity < 1 {
		panic("rtcore: sampler capacity must be >= 1")
	}
	if cfg.Buffers == 0 {
		cfg.Buffers = DefaultSamplerBuffers
	}
	if cfg.Buffers < 2 {
		panic("rtcore: sampler needs at least 2 buffers")
	}

	s := &Sampler{
		source: cfg.Source,
		ready:  cfg.Ready,
		bufs:   make([][]uint16, cfg.Buffers),
		filled: newIndexRing(cfg.Buffers),
		free:   newIndexRing(cfg.Buffers),
		cur:    0,
	}
	for i := range s.bufs {
		s.bufs[i] = make([]uint16, cfg.Capacity)
		if i > 0 {
			s.free.enqueue(uintptr(i))
		}
	}
	return s
}

// Tick is the interrupt handler. It reads one sample and stores it; when
// the current buffer fills, it passes the buffer to the task side and
// gives the Ready semaphore. Tick never blocks and never allocates.
func (s *Sampler) Tick() {
	v := s.source()
	s.ticks.Add(1)

	if s.cur == noBuffer {
		next, ok := s.free.dequeue()
		if !ok {
			s.overruns.Add(1)
			return
		}
		s.cur = next
	}

	buf := s.bufs[s.cur]
	buf[s.pos] = v
	s.pos++
	if s.pos < len(buf) {
		return
	}

	s.pos = 0
	s.filled.enqueue(s.cur) // every index is in exactly one place; cannot be full
	s.frames.Add(1)
	s.cur = noBuffer
	if next, ok := s.free.dequeue(); ok {
		s.cur = next
	}
	if !s.ready.Give() {
		s.missed.Add(1)
	}
}

// Start registers Tick with clock at the given period and returns the
// function that stops sampling.
func (s *Sampler) Start(clock Clock, period time.Duration) (stop func()) {
	return clock.Every(period, s.Tick)
}

// Frame is a filled sample buffer owned by the task side until released.
type Frame struct {
	Samples []uint16
	index   uintptr
}

// Acquire takes ownership of the oldest filled buffer.
// Returns false if no buffer is ready.
func (s *Sampler) Acquire() (Frame, bool) {
	idx, ok := s.filled.dequeue()
	if !ok {
		return Frame{}, false
	}
	return Frame{Samples: s.bufs[idx], index: idx}, true
}

// Release returns f's buffer to the interrupt side.
// f.Samples must not be used afterwards.
func (s *Sampler) Release(f Frame) {
	s.free.enqueue(f.index)
}

// Capacity returns the number of samples per buffer.
func (s *Sampler) Capacity() int {
	return len(s.bufs[0])
}

// Ticks returns the number of interrupts handled.
func (s *Sampler) Ticks() uint64 { return s.ticks.Load() }

// Frames returns the number of buffers filled.
func (s *Sampler) Frames() uint64 { return s.frames.Load() }

// Overruns returns the number of samples dropped because no free buffer
// was available.
func (s *Sampler) Overruns() uint64 { return s.overruns.Load() }

// MissedSignals returns the number of fills whose Give failed because the
// Ready semaphore was saturated.
func (s *Sampler) MissedSignals() uint64 { return s.missed.Load() }
