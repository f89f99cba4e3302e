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

// Sentinel errors returned by ABOM operations. Use errors.Is to test
// for a specific cause; wrapped errors retain it.
var (
	// ErrInvalidParameters is returned when m is not a power of two,
	// k is zero, the false positive rate ceiling is outside (0, 1], or
	// an adopted bit array's length does not match m. A union between
	// incompatible parameters returns ErrIncompatibleParameters instead.
	ErrInvalidParameters = errors.New("abom: invalid parameters")

	// ErrIncompatibleParameters is returned by Union when the two
	// operands do not share (m, k).
	ErrIncompatibleParameters = errors.New("abom: incompatible parameters")

	// ErrInvalidInput is returned when a hex string has the wrong
	// length or is not valid hex.
	ErrInvalidInput = errors.New("abom: invalid input")

	// ErrInvalidMagic is returned by Load when the header's magic
	// word is not "ABOM".
	ErrInvalidMagic = errors.New("abom: invalid magic word")

	// ErrUnsupportedVersion is returned by Load when the header's
	// version byte is not one this package understands.
	ErrUnsupportedVersion = errors.New("abom: unsupported protocol version")

	// ErrCodecMismatch is returned by Load when the header's payload
	// length exceeds the bytes that follow the header, and by
	// LoadFilterRaw when the declared payload length does not match m.
	// Load does not check how many payload bytes the decoder consumes:
	// a payload too short for n*m symbols is decoded as if padded with
	// zero bytes, without an error.
	ErrCodecMismatch = errors.New("abom: codec symbol count mismatch")
)
