// Package varint decodes SQLite's big-endian variable-length integers.
//
// Grounded on the teacher's app/helper.go (parseVarInt/readVarIntLength),
// generalized from a 32-bit os.File-reading helper to a pure 64-bit
// byte-slice decoder per the spec's requirement that decoders stay free
// of I/O so they are fuzzable and unit-testable on their own.
package varint

import "github.com/anvilcode/sqliteq/internal/errs"

const (
	maskContinue = 0b1000_0000
	maskValue7   = 0b0111_1111
)

// Decode reads a varint starting at buf[0] and returns the decoded value
// and the number of bytes consumed (1..9).
func Decode(buf []byte) (uint64, int, error) {
	var result uint64

	for i := 0; i < 9; i++ {
		if i >= len(buf) {
			return 0, 0, errs.New(errs.MalformedVarint, "truncated varint after %d bytes", i)
		}

		b := buf[i]
		if i == 8 {
			// Ninth byte contributes all 8 bits, no continuation check.
			result = (result << 8) | uint64(b)
			return result, i + 1, nil
		}

		result = (result << 7) | uint64(b&maskValue7)
		if b&maskContinue == 0 {
			return result, i + 1, nil
		}
	}

	// Unreachable: the loop above always returns by i==8.
	return 0, 0, errs.New(errs.MalformedVarint, "varint exceeded 9 bytes")
}

// DecodeAt is a convenience wrapper that decodes a varint at an offset
// inside a larger buffer and returns the offset just past it.
func DecodeAt(buf []byte, offset int) (uint64, int, error) {
	if offset < 0 || offset > len(buf) {
		return 0, 0, errs.New(errs.MalformedVarint, "offset %d out of range", offset)
	}
	v, n, err := Decode(buf[offset:])
	if err != nil {
		return 0, 0, err
	}
	return v, offset + n, nil
}

// Encode is the inverse of Decode; used by tests to round-trip values and
// by nothing else in the read-only engine.
func Encode(v uint64) []byte {
	// Values needing 8 or fewer 7-bit groups (up to 56 bits) encode as
	// 1..8 bytes with continuation bits on all but the last.
	if v>>56 == 0 {
		n := 1
		for tmp := v >> 7; tmp != 0; tmp >>= 7 {
			n++
		}
		out := make([]byte, n)
		rem := v
		for i := n - 1; i >= 0; i-- {
			out[i] = byte(rem & maskValue7)
			if i != n-1 {
				out[i] |= maskContinue
			}
			rem >>= 7
		}
		return out
	}

	// Values needing more than 56 bits use the full 9 bytes: the first
	// eight carry 7 bits each (MSB first, continuation set), the ninth
	// carries the low 8 bits verbatim.
	out := make([]byte, 9)
	out[8] = byte(v)
	rem := v >> 8
	for i := 7; i >= 0; i-- {
		out[i] = byte(rem&maskValue7) | maskContinue
		rem >>= 7
	}
	return out
}
