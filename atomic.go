// Copyright 2024 the ABOM authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package abom

import (
	"math/bits"
	"sync/atomic"

	"github.com/pkg/errors"
)

const wordBits = 64

// A SyncFilter is the concurrent-safe counterpart to Filter: Insert
// and Contains may be called from multiple goroutines at once without
// external locking, at the cost of one CAS loop per probe bit instead
// of Filter's plain bit array. It does not support Union; build a
// SyncFilter's content via concurrent Insert calls, then fold it into
// an ABOM with ToFilter.
//
// SyncFilter exists for the high-fan-in scanner case: many producers
// reporting component digests into one shared filter before it is
// admitted into an ABOM.
type SyncFilter struct {
	m         uint64
	k         uint8
	idxBits   uint8
	prehashed bool
	words     []uint64
	diag      Diagnostics
}

// NewSyncFilter constructs a concurrent-safe Filter with m bits and k
// probes, under the same parameter constraints as NewFilter.
func NewSyncFilter(m uint64, k uint8, opts ...FilterOption) (*SyncFilter, error) {
	f, err := NewFilter(m, k, opts...)
	if err != nil {
		return nil, err
	}
	return &SyncFilter{
		m:         f.m,
		k:         f.k,
		idxBits:   f.idxBits,
		prehashed: f.prehashed,
		words:     make([]uint64, (m+wordBits-1)/wordBits),
		diag:      f.diag,
	}, nil
}

// M returns the number of bits in the filter.
func (f *SyncFilter) M() uint64 { return f.m }

// K returns the number of hash probes used by the filter.
func (f *SyncFilter) K() uint8 { return f.k }

// Insert sets the k probe bits for x. Safe for concurrent use with
// other calls to Insert and Contains.
func (f *SyncFilter) Insert(x any) error {
	idx, err := computeIndices(f.k, f.idxBits, f.prehashed, f.diag, x)
	if err != nil {
		return err
	}
	for _, i := range idx {
		f.setBitAtomic(uint64(i))
	}
	return nil
}

// Contains reports whether x has been inserted into f. Safe for
// concurrent use with Insert.
func (f *SyncFilter) Contains(x any) bool {
	idx, err := computeIndices(f.k, f.idxBits, f.prehashed, f.diag, x)
	if err != nil {
		return false
	}
	for _, i := range idx {
		if !f.getBitAtomic(uint64(i)) {
			return false
		}
	}
	return true
}

func (f *SyncFilter) getBitAtomic(i uint64) bool {
	bit := uint64(1) << (i % wordBits)
	x := atomic.LoadUint64(&f.words[i/wordBits])
	return x&bit != 0
}

func (f *SyncFilter) setBitAtomic(i uint64) {
	bit := uint64(1) << (i % wordBits)
	p := &f.words[i/wordBits]
	for {
		old := atomic.LoadUint64(p)
		if old&bit != 0 {
			// Checking here instead of relying on the CAS return value
			// avoids a wasted compare-and-swap on the already-set path,
			// which dominates once a filter is more than a few percent
			// full.
			return
		}
		if atomic.CompareAndSwapUint64(p, old, old|bit) {
			return
		}
	}
}

// ones returns the number of set bits across f's word array.
func (f *SyncFilter) ones() uint64 {
	var n uint64
	for i := range f.words {
		n += uint64(bits.OnesCount64(atomic.LoadUint64(&f.words[i])))
	}
	return n
}

// ToFilter takes a point-in-time snapshot of f as a plain Filter,
// suitable for insertion into an ABOM. It is the caller's
// responsibility to ensure no concurrent Insert is racing the
// snapshot if an exact count is required; Contains-only traffic is
// always safe to race.
func (f *SyncFilter) ToFilter() (*Filter, error) {
	nf, err := NewFilter(f.m, f.k, Prehashed(f.prehashed), WithFilterDiagnostics(f.diag))
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < f.m; i++ {
		if f.getBitAtomic(i) {
			nf.setBitAt(i, true)
		}
	}
	return nf, nil
}

// InsertSync folds a point-in-time snapshot of sf into a, allowing
// callers that already built up a SyncFilter from concurrent
// producers to merge it into the container. The snapshot is placed
// exactly as Union places one of other's Filters: merged into the
// first Filter whose tentative union stays below f, or appended. It fails with ErrIncompatibleParameters if sf does not
// share a's (m, k).
func (a *ABOM) InsertSync(sf *SyncFilter) (*ABOM, error) {
	if sf.m != a.m || sf.k != a.k {
		return nil, errors.Wrapf(ErrIncompatibleParameters, "m/k mismatch: (%d,%d) vs (%d,%d)", a.m, a.k, sf.m, sf.k)
	}
	snap, err := sf.ToFilter()
	if err != nil {
		return nil, err
	}

	other := &ABOM{m: a.m, k: a.k, f: a.f, bfs: []*Filter{snap}, diag: a.diag}
	return a.Union(other)
}
