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

// A Config holds the tunables that govern a Filter or ABOM: the
// number of bits m (a power of two), the number of
// hash probes k, and the false positive rate ceiling f that the
// containing ABOM enforces at insertion time.
type Config struct {
	// M is the number of bits in each Filter. It must be a nonzero
	// power of two; New rejects any other value.
	M uint64

	// K is the number of hash probes per Filter.
	K uint8

	// FPRate is the highest tolerated false positive rate f; once a
	// Filter's estimated rate reaches or exceeds it, new inserts spill
	// into a fresh Filter.
	FPRate float64

	// Trigger the "contains filtered or unexported fields" message
	// for forward compatibility and force callers to use named fields.
	_ struct{}
}

// LegacyConfig is the earlier of the two tuning tuples observed in
// the wild: m = 2^16, k = 16, f = 1e-4.
var LegacyConfig = Config{
	M:      1 << 16,
	K:      16,
	FPRate: 1e-4,
}

// TunedConfig is the later, smaller-footprint tuning tuple: m = 2^18,
// k = 2, f = 2^-14.
var TunedConfig = Config{
	M:      1 << 18,
	K:      2,
	FPRate: 1.0 / (1 << 14),
}
