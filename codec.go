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
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/icza/bitio"
	"github.com/pkg/errors"

	"github.com/nickboucher/abom/internal/rangecoder"
)

// Binary format (spec.md section 4.3):
//
//	Header (15 bytes, little-endian):
//	  magic    [4]byte  "ABOM"
//	  version  uint8    0x01
//	  n        uint16   number of Filters
//	  p1Q      uint32   round(p1 * (2^32-1))
//	  l        uint32   payload length; bits (Profile A) or bytes (Profile B)
//	Payload:
//	  the n*m Filter bits, arithmetically compressed against a static
//	  binary CDF derived from p1Q.
const (
	version1   = 0x01
	maxP1Quant = math.MaxUint32
)

var magicBytes = [4]byte{'A', 'B', 'O', 'M'}

// Profile selects which of the two observed header conventions Dump
// writes l as: the number of payload BITS (ProfileA) or the number of
// payload BYTES (ProfileB). Both are always accepted by Load. This
// package emits ProfileB by default (see DESIGN.md for why).
type Profile int

const (
	// ProfileB stores l as the payload length in bytes.
	ProfileB Profile = iota
	// ProfileA stores l as the payload length in bits.
	ProfileA
)

// quantizeP1 rounds p1 (in [0,1]) to the fixed-point representation
// stored in the header.
func quantizeP1(p1 float64) uint32 {
	if p1 <= 0 {
		return 0
	}
	if p1 >= 1 {
		return maxP1Quant
	}
	return uint32(math.Round(p1 * float64(maxP1Quant)))
}

// dequantizeP1 recovers the float p1 encode and decode both use to
// build the CDF, from the header's quantized value.
func dequantizeP1(p1Q uint32) float64 {
	return float64(p1Q) / float64(maxP1Quant)
}

// prob0FromP1 returns the probability (out of rangecoder.ModelTotal)
// that a bit is 0, given the (already quantized-and-dequantized) p1.
func prob0FromP1(p1 float64) uint32 {
	prob0 := math.Round((1 - p1) * float64(rangecoder.ModelTotal))
	if prob0 < 0 {
		prob0 = 0
	}
	if prob0 > rangecoder.ModelTotal {
		prob0 = rangecoder.ModelTotal
	}
	return uint32(prob0)
}

func writeHeader(w io.Writer, n uint16, p1Q uint32, l uint32) error {
	var buf [15]byte
	copy(buf[0:4], magicBytes[:])
	buf[4] = version1
	binary.LittleEndian.PutUint16(buf[5:7], n)
	binary.LittleEndian.PutUint32(buf[7:11], p1Q)
	binary.LittleEndian.PutUint32(buf[11:15], l)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "write abom header")
}

func readHeader(r io.Reader) (n uint16, p1Q uint32, l uint32, err error) {
	var buf [15]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, 0, 0, errors.Wrap(err, "read abom header")
	}
	var gotMagic [4]byte
	copy(gotMagic[:], buf[0:4])
	if gotMagic != magicBytes {
		return 0, 0, 0, ErrInvalidMagic
	}
	if buf[4] != version1 {
		return 0, 0, 0, errors.Wrapf(ErrUnsupportedVersion, "got version %d", buf[4])
	}
	n = binary.LittleEndian.Uint16(buf[5:7])
	p1Q = binary.LittleEndian.Uint32(buf[7:11])
	l = binary.LittleEndian.Uint32(buf[11:15])
	return n, p1Q, l, nil
}

// Serialize returns the ABOM encoded as bytes, using Profile B (byte
// length payload). Equivalent to Dump into a buffer.
func (a *ABOM) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.DumpProfile(&buf, ProfileB); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dump serializes the ABOM to w using Profile B (byte length
// payload), the default emission profile for this package.
func (a *ABOM) Dump(w io.Writer) error {
	return a.DumpProfile(w, ProfileB)
}

// DumpProfile serializes the ABOM to w, writing the payload length
// field l per the requested Profile. If the container is still
// empty, a single empty Filter is appended first (spec.md section
// 4.3 step 1), mutating a.
func (a *ABOM) DumpProfile(w io.Writer, profile Profile) error {
	if len(a.bfs) == 0 {
		nf, err := a.newFilter()
		if err != nil {
			return err
		}
		a.bfs = append(a.bfs, nf)
	}

	n := len(a.bfs)
	totalBits := uint64(n) * a.m

	var ones uint64
	for _, bf := range a.bfs {
		ones += bf.ones()
	}

	var p1 float64
	if totalBits > 0 {
		p1 = float64(ones) / float64(totalBits)
	}
	p1Q := quantizeP1(p1)
	prob0 := prob0FromP1(dequantizeP1(p1Q))

	enc := rangecoder.NewEncoder()
	for _, bf := range a.bfs {
		for i := uint64(0); i < a.m; i++ {
			symbol := 0
			if bf.bitAt(i) {
				symbol = 1
			}
			enc.EncodeBit(prob0, symbol)
		}
	}
	stream := enc.Finish()

	var l uint32
	switch profile {
	case ProfileA:
		l = uint32(len(stream)) * 8
	default:
		l = uint32(len(stream))
	}

	if err := writeHeader(w, uint16(n), p1Q, l); err != nil {
		return err
	}
	_, err := w.Write(stream)
	return errors.Wrap(err, "write abom payload")
}

// Load deserializes an ABOM from r. Because the wire format does not
// itself carry (m, k) -- spec.md ties the tuple to an out-of-band
// agreement on the version byte -- the caller must supply the same
// Config the producer used.
func Load(r io.Reader, cfg Config, opts ...Option) (*ABOM, error) {
	a, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	n, p1Q, l, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read abom payload")
	}

	payload, err := resolvePayload(rest, l)
	if err != nil {
		return nil, err
	}

	p1 := dequantizeP1(p1Q)
	prob0 := prob0FromP1(p1)

	dec := rangecoder.NewDecoder(payload)

	bfs := make([]*Filter, n)
	for i := range bfs {
		nf, err := a.newFilter()
		if err != nil {
			return nil, err
		}
		for j := uint64(0); j < a.m; j++ {
			if dec.DecodeBit(prob0) == 1 {
				nf.setBitAt(j, true)
			}
		}
		bfs[i] = nf
	}

	a.bfs = bfs
	return a, nil
}

// LoadBytes is a convenience wrapper around Load for an in-memory
// byte slice.
func LoadBytes(data []byte, cfg Config, opts ...Option) (*ABOM, error) {
	return Load(bytes.NewReader(data), cfg, opts...)
}

// resolvePayload applies the Profile A/B disambiguation rule from
// spec.md section 4.3: if treating l as a BIT count consumes exactly
// the remaining stream (ceil(l/8) == len(rest)), the payload is
// truncated to l significant bits (Profile A); otherwise l is taken
// as a BYTE count (Profile B).
func resolvePayload(rest []byte, l uint32) ([]byte, error) {
	byteLenAsBits := (uint64(l) + 7) / 8

	if byteLenAsBits == uint64(len(rest)) {
		return truncateToBits(rest, uint64(l))
	}
	if uint64(l) <= uint64(len(rest)) {
		return rest[:l], nil
	}
	return nil, errors.Wrapf(ErrCodecMismatch, "payload length %d exceeds available %d bytes", l, len(rest))
}

// truncateToBits re-packs rest, keeping only its first nbits bits and
// zeroing any trailing bits of the final byte, via a bit-level
// reader/writer pair. This is exactly the padding/truncation Profile
// A's "ceiling-padded to a byte" framing requires on decode.
func truncateToBits(rest []byte, nbits uint64) ([]byte, error) {
	r := bitio.NewReader(bytes.NewReader(rest))
	var out bytes.Buffer
	w := bitio.NewWriter(&out)

	var remaining uint64 = nbits
	for remaining > 0 {
		n := uint8(8)
		if remaining < 8 {
			n = uint8(remaining)
		}
		bits, err := r.ReadBits(n)
		if err != nil {
			return nil, errors.Wrap(err, "read truncated payload bits")
		}
		if err := w.WriteBits(bits, n); err != nil {
			return nil, errors.Wrap(err, "repack truncated payload bits")
		}
		remaining -= uint64(n)
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "flush truncated payload")
	}
	return out.Bytes(), nil
}
