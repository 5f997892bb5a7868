// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtcore

import (
	"math"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Result is a published value with a monotonically increasing revision.
//
// Exactly one task writes it; any number of tasks read it without locking.
// A sequence counter brackets each write (odd while writing), so readers
// retry instead of observing a value from one write paired with the
// revision of another. The data words are stored with release and loaded
// with acquire ordering, pairing with the sequence counter the same way
// ring slots pair data with their sequence.
type Result struct {
	seq   atomix.Uint64
	value atomix.Uint64 // math.Float64bits
	rev   atomix.Uint64
}

// Publish stores v and returns the new revision. Single writer only.
func (r *Result) Publish(v float64) uint64 {
	seq := r.seq.LoadRelaxed()
	r.seq.StoreRelaxed(seq + 1)
	// Release on the data words keeps the odd marker ahead of them.
	r.value.StoreRelease(math.Float64bits(v))
	rev := r.rev.LoadRelaxed() + 1
	r.rev.StoreRelease(rev)
	r.seq.StoreRelease(seq + 2)
	return rev
}

// Load returns the latest value and its revision.
// Revision 0 means nothing has been published yet.
func (r *Result) Load() (v float64, rev uint64) {
	sw := spin.Wait{}
	for {
		s1 := r.seq.LoadAcquire()
		if s1&1 == 0 {
			bits := r.value.LoadAcquire()
			rev = r.rev.LoadAcquire()
			if r.seq.LoadAcquire() == s1 {
				return math.Float64frombits(bits), rev
			}
		}
		sw.Once()
	}
}

// Revision returns the latest revision.
func (r *Result) Revision() uint64 {
	return r.rev.LoadAcquire()
}
