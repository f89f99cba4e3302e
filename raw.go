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
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// DumpRaw writes f's bit array uncompressed: a 13-byte header (m
// uint64, k uint8, byte length of the packed array uint32, all
// little-endian) followed by the array itself, MSB-first within each
// byte. It has no arithmetic coding stage, so it exists mainly to
// check the compressed codec's fidelity against an uncompressed
// reference during debugging.
func (f *Filter) DumpRaw(w io.Writer) error {
	packed := make([]byte, (f.m+7)/8)
	for i := uint64(0); i < f.m; i++ {
		if f.bitAt(i) {
			packed[i/8] |= 1 << (7 - i%8)
		}
	}

	var header [13]byte
	binary.LittleEndian.PutUint64(header[0:8], f.m)
	header[8] = f.k
	binary.LittleEndian.PutUint32(header[9:13], uint32(len(packed)))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(err, "write raw filter header")
	}
	_, err := w.Write(packed)
	return errors.Wrap(err, "write raw filter payload")
}

// LoadFilterRaw reads back a Filter written by DumpRaw.
func LoadFilterRaw(r io.Reader, opts ...FilterOption) (*Filter, error) {
	var header [13]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Wrap(err, "read raw filter header")
	}
	m := binary.LittleEndian.Uint64(header[0:8])
	k := header[8]
	l := binary.LittleEndian.Uint32(header[9:13])

	if uint64(l) != (m+7)/8 {
		return nil, errors.Wrapf(ErrCodecMismatch, "raw payload length %d does not match m=%d", l, m)
	}
	packed := make([]byte, l)
	if _, err := io.ReadFull(r, packed); err != nil {
		return nil, errors.Wrap(err, "read raw filter payload")
	}

	f, err := NewFilter(m, k, opts...)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < m; i++ {
		bit := (packed[i/8] >> (7 - i%8)) & 1
		if bit == 1 {
			f.setBitAt(i, true)
		}
	}
	return f, nil
}
