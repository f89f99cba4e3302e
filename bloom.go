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
	"encoding/hex"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// A Filter is a compressed Bloom filter as described by
// M. Mitzenmacher, IEEE/ACM 2002: a fixed-size bit array A of m bits
// addressed by k probes. Unlike a blocked Bloom filter, a Filter uses
// a single flat bit array, because its whole point is to compress
// well under a static binary source model keyed on overall density --
// blocking would fragment that density signal across independent
// cache lines.
//
// A Filter is not safe for concurrent use: callers must serialize
// Insert/Union against any other operation on the same Filter. Reads
// via Contains may run concurrently with each other provided no
// writer is active.
type Filter struct {
	m         uint64
	k         uint8
	idxBits   uint8
	prehashed bool
	a         *bitset.BitSet
	diag      Diagnostics
}

// FilterOption configures a Filter constructed by NewFilter.
type FilterOption func(*Filter)

// WithBits adopts an existing bit array as the Filter's backing
// store instead of allocating a fresh, all-zero one. The bit array's
// length must equal m.
func WithBits(a *bitset.BitSet) FilterOption {
	return func(f *Filter) { f.a = a }
}

// Prehashed marks the Filter's inputs as already-hashed: text inputs
// passed to Insert/Contains are decoded from hex instead of being
// treated as raw UTF-8 bytes.
func Prehashed(prehashed bool) FilterOption {
	return func(f *Filter) { f.prehashed = prehashed }
}

// WithFilterDiagnostics attaches a Diagnostics sink to the Filter for
// advisory warnings, e.g. when a prehashed input supplies more
// entropy than (m, k) consumes.
func WithFilterDiagnostics(d Diagnostics) FilterOption {
	return func(f *Filter) { f.diag = d }
}

// NewFilter constructs a compressed Bloom filter with m bits and k
// probes. m must be a nonzero power of two; k must be nonzero. If
// WithBits is not given, the filter starts out empty (all bits zero).
func NewFilter(m uint64, k uint8, opts ...FilterOption) (*Filter, error) {
	if m == 0 || m&(m-1) != 0 {
		return nil, errors.Wrapf(ErrInvalidParameters, "m=%d must be a nonzero power of two", m)
	}
	if k == 0 {
		return nil, errors.Wrap(ErrInvalidParameters, "k must be nonzero")
	}

	f := &Filter{
		m:       m,
		k:       k,
		idxBits: uint8(bits.Len64(m) - 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.a == nil {
		f.a = bitset.New(uint(m))
	} else if f.a.Len() != uint(m) {
		return nil, errors.Wrapf(ErrInvalidParameters, "bit array length %d does not match m=%d", f.a.Len(), m)
	}
	return f, nil
}

// M returns the number of bits in the filter.
func (f *Filter) M() uint64 { return f.m }

// K returns the number of hash probes used by the filter.
func (f *Filter) K() uint8 { return f.k }

// Prehashed reports whether the filter treats string inputs as hex
// rather than raw bytes.
func (f *Filter) Prehashed() bool { return f.prehashed }

// indices returns the k probe indices for x, a raw byte slice or a
// string (hex-encoded when the filter is prehashed, raw UTF-8
// otherwise).
//
// Index derivation (spec.md 4.1): the input's bytes are used
// directly if they supply at least k*idxBits bits; otherwise the
// byte sequence is extended by repeatedly appending
// SHA3-256(previous extension input), starting from x's own bytes.
// The first k*idxBits bits of the resulting sequence are split into
// k big-endian unsigned integers of idxBits bits each.
func (f *Filter) indices(x any) ([]uint32, error) {
	return computeIndices(f.k, f.idxBits, f.prehashed, f.diag, x)
}

// computeIndices is the shared index-derivation routine behind both
// Filter and SyncFilter, so the two storage strategies never drift
// apart on hashing semantics.
func computeIndices(k uint8, idxBits uint8, prehashed bool, diag Diagnostics, x any) ([]uint32, error) {
	raw, err := rawBytes(prehashed, x)
	if err != nil {
		return nil, err
	}

	need := int(k) * int(idxBits)
	if prehashed && len(raw)*8 > need {
		warnf(diag, "parameters do not utilize all bits in hash (have %d bits, need %d)", len(raw)*8, need)
	}

	// Copy before extending: raw may be the caller's own []byte, and
	// appending into its spare capacity would otherwise corrupt it.
	b := append([]byte(nil), raw...)
	extend := raw
	for len(b)*8 < need {
		sum := sha3.Sum256(extend)
		extend = sum[:]
		b = append(b, extend...)
	}

	idx := make([]uint32, k)
	for i := range idx {
		idx[i] = extractBits(b, i*int(idxBits), int(idxBits))
	}
	return idx, nil
}

// rawBytes normalizes a hash input into bytes, decoding hex if
// prehashed is set and x is a string.
func rawBytes(prehashed bool, x any) ([]byte, error) {
	switch v := x.(type) {
	case []byte:
		return v, nil
	case string:
		if !prehashed {
			return []byte(v), nil
		}
		raw, err := hex.DecodeString(v)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidInput, "decode hex input: %v", err)
		}
		return raw, nil
	default:
		return nil, errors.Wrapf(ErrInvalidInput, "unsupported hash input type %T", x)
	}
}

// extractBits reads n consecutive bits starting at bit offset start
// of b, MSB-first within each byte, and returns them as a big-endian
// unsigned integer. The caller must ensure b has at least start+n
// bits.
func extractBits(b []byte, start, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		pos := start + i
		byteIdx := pos / 8
		bitIdx := 7 - pos%8
		bit := (b[byteIdx] >> uint(bitIdx)) & 1
		v = (v << 1) | uint32(bit)
	}
	return v
}

// Insert sets the k probe bits for x and returns f, so calls can be
// chained. Insert is idempotent: inserting the same x repeatedly
// leaves A unchanged after the first call.
func (f *Filter) Insert(x any) (*Filter, error) {
	idx, err := f.indices(x)
	if err != nil {
		return nil, err
	}
	for _, i := range idx {
		f.a.Set(uint(i))
	}
	return f, nil
}

// Union updates f to be the bitwise union of f and g, and returns f.
// It fails with ErrIncompatibleParameters if f and g do not share
// (m, k).
func (f *Filter) Union(g *Filter) (*Filter, error) {
	if f.m != g.m || f.k != g.k {
		return nil, errors.Wrapf(ErrIncompatibleParameters, "m/k mismatch: (%d,%d) vs (%d,%d)", f.m, f.k, g.m, g.k)
	}
	f.a.InPlaceUnion(g.a)
	return f, nil
}

// Contains reports whether x has been inserted into f. It never
// fails: a malformed hex input simply returns false, per spec.md
// section 7.
func (f *Filter) Contains(x any) bool {
	idx, err := f.indices(x)
	if err != nil {
		return false
	}
	for _, i := range idx {
		if !f.a.Test(uint(i)) {
			return false
		}
	}
	return true
}

// FalsePositiveRate returns the estimated false positive rate of the
// filter at its current saturation: (ones/m)^k. Admission decisions
// in ABOM.Insert/Union use exactly this estimator.
func (f *Filter) FalsePositiveRate() float64 {
	density := float64(f.a.Count()) / float64(f.m)
	rate := 1.0
	for i := uint8(0); i < f.k; i++ {
		rate *= density
	}
	return rate
}

// Clone returns a deep copy of f.
func (f *Filter) Clone() *Filter {
	return &Filter{
		m:         f.m,
		k:         f.k,
		idxBits:   f.idxBits,
		prehashed: f.prehashed,
		a:         f.a.Clone(),
		diag:      f.diag,
	}
}

// Equal reports whether f and g have the same (m, k) and bit array.
// prehashed and any attached Diagnostics are not part of the
// comparison.
func (f *Filter) Equal(g *Filter) bool {
	if g == nil {
		return false
	}
	return f.m == g.m && f.k == g.k && f.a.Equal(g.a)
}

// ones returns the number of set bits in f's bit array.
func (f *Filter) ones() uint64 {
	return uint64(f.a.Count())
}

// bitAt reports the value of bit i of f's array.
func (f *Filter) bitAt(i uint64) bool {
	return f.a.Test(uint(i))
}

// setBitAt sets bit i of f's array to v.
func (f *Filter) setBitAt(i uint64, v bool) {
	if v {
		f.a.Set(uint(i))
	} else {
		f.a.Clear(uint(i))
	}
}
