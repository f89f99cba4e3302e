// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package abom

import (
	"math"
	"math/bits"
)

// Optimize returns the (m, k) that minimize the false positive rate
// of a single Filter expected to hold nKeys distinct keys, once it
// reaches fpRate. m is rounded up to the next power of two, since
// NewFilter requires one.
//
// Unlike a blocked Bloom filter, a flat Filter needs no block
// correction table: the vanilla optimal-parameter formulas apply
// directly, since every probe addresses the same bit array.
func Optimize(nKeys uint64, fpRate float64) (m uint64, k uint8) {
	if fpRate <= 0 || fpRate > 1 {
		panic("false positive rate for a Filter must be > 0, <= 1")
	}

	n := float64(nKeys)
	if n == 0 {
		// Assume the caller wants room for at least one key; log(0) = -inf.
		n = 1
	}

	// The optimal nbits/n is c = -log(p) / ln(2)^2.
	nbits := math.Ceil(-n * math.Log(fpRate) / (math.Ln2 * math.Ln2))
	m = nextPow2(uint64(nbits))

	// The corresponding optimal number of hash functions is k = c * ln(2).
	c := float64(m) / n
	nhashes := int(math.Round(c * math.Ln2))
	if nhashes < 1 {
		nhashes = 1
	}
	if nhashes > math.MaxUint8 {
		nhashes = math.MaxUint8
	}
	return m, uint8(nhashes)
}

// OptimizeConfig builds a Config around Optimize's recommended
// (m, k) for nKeys distinct keys at fpRate, using fpRate again as the
// container's admission ceiling.
func OptimizeConfig(nKeys uint64, fpRate float64) Config {
	m, k := Optimize(nKeys, fpRate)
	return Config{M: m, K: k, FPRate: fpRate}
}

func nextPow2(x uint64) uint64 {
	if x == 0 {
		return 1
	}
	return 1 << bits.Len64(x-1)
}
