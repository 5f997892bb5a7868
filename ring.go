// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// ring is the CAS-based storage behind Queue.
//
// Each slot carries a sequence number. A producer owns slot tail&mask once
// it wins the CAS on tail and publishes the item by storing tail+1 into the
// slot sequence; a consumer owns slot head&mask once it wins the CAS on head
// and frees it by storing head+size. The CAS on tail is the single logical
// insertion point that defines FIFO order across concurrent senders.
//
// ring itself never blocks: push and pop report false when the slot they
// need is not ready. Queue pairs it with counting semaphores so that a
// caller only touches the ring once a slot or item is logically reserved.
type ring[T any] struct {
	_     pad
	tail  atomix.Uint64
	_     pad
	head  atomix.Uint64
	_     pad
	slots []ringSlot[T]
	mask  uint64
	size  uint64
}

type ringSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort
}

func newRing[T any](capacity int) *ring[T] {
	n := uint64(roundToPow2(capacity))
	r := &ring[T]{
		slots: make([]ringSlot[T], n),
		mask:  n - 1,
		size:  n,
	}
	for i := uint64(0); i < n; i++ {
		r.slots[i].seq.StoreRelaxed(i)
	}
	return r
}

// tryPush copies *elem into the next slot.
// Returns false if the slot at tail is still owned by a consumer.
func (r *ring[T]) tryPush(elem *T) bool {
	sw := spin.Wait{}
	for {
		tail := r.tail.LoadAcquire()
		slot := &r.slots[tail&r.mask]
		diff := int64(slot.seq.LoadAcquire()) - int64(tail)
		switch {
		case diff == 0:
			if r.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.data = *elem
				slot.seq.StoreRelease(tail + 1)
				return true
			}
		case diff < 0:
			return false
		}
		sw.Once()
	}
}

// tryPop removes the head item.
// Returns false if the slot at head has not been published yet.
func (r *ring[T]) tryPop() (T, bool) {
	sw := spin.Wait{}
	for {
		head := r.head.LoadAcquire()
		slot := &r.slots[head&r.mask]
		diff := int64(slot.seq.LoadAcquire()) - int64(head+1)
		switch {
		case diff == 0:
			if r.head.CompareAndSwapAcqRel(head, head+1) {
				elem := slot.data
				var zero T
				slot.data = zero
				slot.seq.StoreRelease(head + r.size)
				return elem, true
			}
		case diff < 0:
			var zero T
			return zero, false
		}
		sw.Once()
	}
}

// push retries tryPush until it succeeds. The caller must hold a free-slot
// reservation, so the wait is bounded by a consumer finishing its pop.
func (r *ring[T]) push(elem *T) {
	sw := spin.Wait{}
	for !r.tryPush(elem) {
		sw.Once()
	}
}

// pop retries tryPop until it succeeds. The caller must hold an item
// reservation, so the wait is bounded by a producer finishing its push.
func (r *ring[T]) pop() T {
	sw := spin.Wait{}
	for {
		if elem, ok := r.tryPop(); ok {
			return elem
		}
		sw.Once()
	}
}

// indexRing is a single-producer single-consumer ring of buffer indices.
//
// The sampler uses a pair of them to pass buffer ownership between the
// interrupt handler and the aggregator task without locks or allocation.
// Based on Lamport's ring buffer with cached index optimization.
type indexRing struct {
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []uintptr
	mask       uint64
}

func newIndexRing(capacity int) *indexRing {
	n := uint64(roundToPow2(capacity))
	return &indexRing{
		buffer: make([]uintptr, n),
		mask:   n - 1,
	}
}

// enqueue adds an index (producer only).
// Returns false if the ring is full.
func (q *indexRing) enqueue(elem uintptr) bool {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return false
		}
	}
	// tail&mask < len(buffer), so the bounds check can be skipped.
	*(*uintptr)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(q.buffer)), int(tail&q.mask)*ptrSize)) = elem
	q.tail.StoreRelease(tail + 1)
	return true
}

// dequeue removes an index (consumer only).
// Returns false if the ring is empty.
func (q *indexRing) dequeue() (uintptr, bool) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return 0, false
		}
	}
	elem := *(*uintptr)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(q.buffer)), int(head&q.mask)*ptrSize))
	q.head.StoreRelease(head + 1)
	return elem, true
}
