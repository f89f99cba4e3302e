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

import "github.com/pkg/errors"

// An ABOM is an ordered sequence of Filters that share the same
// (m, k), with inserts and unions routed by a false positive rate
// ceiling f: each Filter accepts inserts while its current estimated
// false positive rate is below f, and a fresh Filter is appended once
// every existing Filter has reached f.
//
// An ABOM starts empty: New never pre-seeds it with a Filter. A
// Filter is appended lazily, on the first Insert, or by Dump/Serialize
// if the container is still empty when it is time to write the wire
// format (the codec requires at least one Filter to describe a valid
// density).
//
// Like Filter, an ABOM is not safe for concurrent mutation.
type ABOM struct {
	m    uint64
	k    uint8
	f    float64
	bfs  []*Filter
	diag Diagnostics
}

// Option configures an ABOM constructed by New.
type Option func(*ABOM)

// WithDiagnostics attaches a Diagnostics sink used by the ABOM and
// every Filter it creates.
func WithDiagnostics(d Diagnostics) Option {
	return func(a *ABOM) { a.diag = d }
}

// New constructs an empty ABOM from cfg. cfg.M must be a nonzero
// power of two, cfg.K must be nonzero, and cfg.FPRate must be in
// (0, 1].
func New(cfg Config, opts ...Option) (*ABOM, error) {
	if cfg.M == 0 || cfg.M&(cfg.M-1) != 0 {
		return nil, errors.Wrapf(ErrInvalidParameters, "m=%d must be a nonzero power of two", cfg.M)
	}
	if cfg.K == 0 {
		return nil, errors.Wrap(ErrInvalidParameters, "k must be nonzero")
	}
	if cfg.FPRate <= 0 || cfg.FPRate > 1 {
		return nil, errors.Wrapf(ErrInvalidParameters, "fpr=%v must be in (0,1]", cfg.FPRate)
	}

	a := &ABOM{m: cfg.M, k: cfg.K, f: cfg.FPRate}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// M returns the number of bits per Filter.
func (a *ABOM) M() uint64 { return a.m }

// K returns the number of hash probes per Filter.
func (a *ABOM) K() uint8 { return a.k }

// FPRate returns the per-filter false positive rate ceiling.
func (a *ABOM) FPRate() float64 { return a.f }

// Len returns the number of Filters currently in the container.
func (a *ABOM) Len() int { return len(a.bfs) }

// newFilter constructs a fresh, empty, prehashed Filter with the
// ABOM's (m, k) and Diagnostics sink. All Filters an ABOM creates on
// its own behalf are prehashed, matching the reference implementation
// of insert/union, which always stores raw digest bytes.
func (a *ABOM) newFilter() (*Filter, error) {
	return NewFilter(a.m, a.k, Prehashed(true), WithFilterDiagnostics(a.diag))
}

// Insert inserts x into the ABOM, routing it to the first Filter
// whose current false positive rate is strictly below f, or
// appending a fresh Filter if none qualifies.
func (a *ABOM) Insert(x any) (*ABOM, error) {
	for _, bf := range a.bfs {
		if bf.FalsePositiveRate() < a.f {
			if _, err := bf.Insert(x); err != nil {
				return nil, err
			}
			return a, nil
		}
	}

	nf, err := a.newFilter()
	if err != nil {
		return nil, err
	}
	if _, err := nf.Insert(x); err != nil {
		return nil, err
	}
	a.bfs = append(a.bfs, nf)
	return a, nil
}

// Union updates a to be the union of a and other, and returns a. It
// fails with ErrIncompatibleParameters -- without mutating either
// operand -- if a and other do not share (m, k).
//
// For each Filter in other, Union tries each of a's Filters in turn:
// if their tentative union's false positive rate stays below f, that
// slot is replaced by the union and the search stops. If no slot
// accepts it, other's Filter is appended to a.
func (a *ABOM) Union(other *ABOM) (*ABOM, error) {
	if a.m != other.m || a.k != other.k {
		return nil, errors.Wrapf(ErrIncompatibleParameters, "m/k mismatch: (%d,%d) vs (%d,%d)", a.m, a.k, other.m, other.k)
	}

	merged := make([]*Filter, len(a.bfs))
	copy(merged, a.bfs)

	for _, bf := range other.bfs {
		placed := false
		for i, slot := range merged {
			candidate := slot.Clone()
			if _, err := candidate.Union(bf); err != nil {
				return nil, err
			}
			if candidate.FalsePositiveRate() < a.f {
				merged[i] = candidate
				placed = true
				break
			}
		}
		if !placed {
			merged = append(merged, bf.Clone())
		}
	}

	a.bfs = merged
	return a, nil
}

// Contains reports whether x has been inserted into any Filter of the
// ABOM (or a peer ABOM unioned into it).
func (a *ABOM) Contains(x any) bool {
	for _, bf := range a.bfs {
		if bf.Contains(x) {
			return true
		}
	}
	return false
}
