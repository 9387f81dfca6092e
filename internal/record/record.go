// Package record decodes SQLite's record format: a header of serial-type
// varints followed by a body of fixed/variable-width values.
//
// Grounded on the teacher's app/helper.go (parseSQLMasterRecord,
// parseColumnValue), generalized from the five hard-coded sqlite_schema
// columns and the two serial types the teacher handles (1, odd>=13) to
// the full serial-type table in spec.md §3, and from an *os.File stream
// to a pure byte-slice decoder per spec.md §9.
package record

import (
	"math"

	"github.com/anvilcode/sqliteq/internal/errs"
	"github.com/anvilcode/sqliteq/internal/varint"
)

// Kind tags the dynamic type carried by a decoded Value.
type Kind int

const (
	Null Kind = iota
	Int
	Float
	Text
	Blob
)

// Value is the tagged variant every decoded record field is reduced to.
// The executor is the only consumer that compares Values; every other
// layer treats them as opaque.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
	Blob  []byte
}

func NullValue() Value          { return Value{Kind: Null} }
func IntValue(v int64) Value    { return Value{Kind: Int, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: Float, Float: v} }
func TextValue(v string) Value  { return Value{Kind: Text, Text: v} }
func BlobValue(v []byte) Value  { return Value{Kind: Blob, Blob: v} }

// Decode parses a record payload into its column values. It does not
// validate the column count against a schema; callers that know the
// expected count should check len(values) themselves, since a record
// with NULL trailing columns (SQLite's "short record" optimization)
// legitimately has fewer serial types than the table's declared columns.
func Decode(payload []byte) ([]Value, error) {
	headerLen, pos, err := varint.DecodeAt(payload, 0)
	if err != nil {
		return nil, errs.Wrap(errs.TruncatedRecord, err, "record header length")
	}
	if int(headerLen) > len(payload) {
		return nil, errs.New(errs.TruncatedRecord, "header length %d exceeds payload %d", headerLen, len(payload))
	}

	var serialTypes []uint64
	for pos < int(headerLen) {
		st, next, err := varint.DecodeAt(payload, pos)
		if err != nil {
			return nil, errs.Wrap(errs.TruncatedRecord, err, "serial type at offset %d", pos)
		}
		serialTypes = append(serialTypes, st)
		pos = next
	}

	body := int(headerLen)
	values := make([]Value, len(serialTypes))
	for i, st := range serialTypes {
		v, width, err := decodeValue(st, payload, body)
		if err != nil {
			return nil, err
		}
		values[i] = v
		body += width
	}

	return values, nil
}

// decodeValue decodes a single body value per the serial-type table in
// spec.md §3.
func decodeValue(serialType uint64, data []byte, offset int) (Value, int, error) {
	switch {
	case serialType == 0:
		return NullValue(), 0, nil
	case serialType >= 1 && serialType <= 4:
		width := int(serialType)
		v, err := readSignedInt(data, offset, width)
		return v, width, err
	case serialType == 5:
		v, err := readSignedInt(data, offset, 6)
		return v, 6, err
	case serialType == 6:
		v, err := readSignedInt(data, offset, 8)
		return v, 8, err
	case serialType == 7:
		if offset+8 > len(data) {
			return Value{}, 0, errs.New(errs.TruncatedRecord, "float64 needs 8 bytes at offset %d", offset)
		}
		bits := be64(data[offset : offset+8])
		return FloatValue(math.Float64frombits(bits)), 8, nil
	case serialType == 8:
		return IntValue(0), 0, nil
	case serialType == 9:
		return IntValue(1), 0, nil
	case serialType == 10 || serialType == 11:
		return Value{}, 0, errs.New(errs.TruncatedRecord, "reserved serial type %d", serialType)
	case serialType >= 12 && serialType%2 == 0:
		n := int((serialType - 12) / 2)
		if offset+n > len(data) {
			return Value{}, 0, errs.New(errs.TruncatedRecord, "blob of %d bytes at offset %d exceeds payload", n, offset)
		}
		blob := make([]byte, n)
		copy(blob, data[offset:offset+n])
		return BlobValue(blob), n, nil
	case serialType >= 13 && serialType%2 == 1:
		n := int((serialType - 13) / 2)
		if offset+n > len(data) {
			return Value{}, 0, errs.New(errs.TruncatedRecord, "text of %d bytes at offset %d exceeds payload", n, offset)
		}
		return TextValue(string(data[offset : offset+n])), n, nil
	default:
		return Value{}, 0, errs.New(errs.TruncatedRecord, "invalid serial type %d", serialType)
	}
}

func readSignedInt(data []byte, offset, width int) (Value, error) {
	if offset+width > len(data) {
		return Value{}, errs.New(errs.TruncatedRecord, "integer of %d bytes at offset %d exceeds payload", width, offset)
	}
	var v int64
	b := data[offset]
	if b&0x80 != 0 {
		v = -1 // sign-extend
	}
	for i := 0; i < width; i++ {
		v = (v << 8) | int64(data[offset+i])
	}
	return IntValue(v), nil
}

func be64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = (v << 8) | uint64(b[i])
	}
	return v
}

// SubstituteRowID returns a copy of values with the NULL stored at
// pkIndex replaced by rowID, implementing the INTEGER PRIMARY KEY
// row-id alias from spec.md §3/§4.3. pkIndex of -1 means the table has
// no row-id alias column and values is returned unchanged.
func SubstituteRowID(values []Value, pkIndex int, rowID int64) []Value {
	if pkIndex < 0 || pkIndex >= len(values) {
		return values
	}
	out := make([]Value, len(values))
	copy(out, values)
	out[pkIndex] = IntValue(rowID)
	return out
}
