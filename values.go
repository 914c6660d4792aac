package triedb

import (
	"encoding/binary"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Values are opaque to a Trie. The helpers below are conveniences for
// callers that store strings, fixed-width numbers or booleans; each Decode
// function is the exact inverse of its Encode counterpart and reports a
// *DecodeError for anything else.

func EncodeUint64(v uint64) []byte { return binary.BigEndian.AppendUint64(nil, v) }
func EncodeInt64(v int64) []byte   { return binary.BigEndian.AppendUint64(nil, uint64(v)) }
func EncodeUint32(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }

func EncodeFloat64(v float64) []byte {
	return binary.BigEndian.AppendUint64(nil, math.Float64bits(v))
}

func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeString returns b as a string if it is valid UTF-8.
func DecodeString(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", &DecodeError{Type: "string", Len: len(b), Err: errors.New("invalid utf-8")}
	}
	return string(b), nil
}

func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, widthError("uint64", b, 8)
	}
	return binary.BigEndian.Uint64(b), nil
}

func DecodeInt64(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, widthError("int64", b, 8)
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func DecodeUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, widthError("uint32", b, 4)
	}
	return binary.BigEndian.Uint32(b), nil
}

func DecodeFloat64(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, widthError("float64", b, 8)
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// DecodeBool accepts exactly one byte, 0 or 1.
func DecodeBool(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, widthError("bool", b, 1)
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, &DecodeError{Type: "bool", Len: len(b), Err: errors.Newf("byte %#x is neither 0 nor 1", b[0])}
}

// DecodeDecimal parses a base-10 integer written as text, such as the
// bytes of "42".
func DecodeDecimal(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, &DecodeError{Type: "decimal", Len: len(b), Err: err}
	}
	return n, nil
}

func widthError(typ string, b []byte, want int) error {
	return &DecodeError{
		Type: typ,
		Len:  len(b),
		Err:  errors.Wrapf(errUnexpectedWidth, "want %d bytes", want),
	}
}
