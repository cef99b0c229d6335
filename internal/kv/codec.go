package kv

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/defich/ocean/internal/ocerr"
)

// KeyCodec converts a typed index to and from the raw bytes bbolt orders
// lexicographically. Implementations must guarantee that byte order matches
// semantic order (spec.md §4.2).
type KeyCodec[K any] interface {
	EncodeKey(K) []byte
	DecodeKey([]byte) (K, error)
}

// ValueCodec converts a typed value to and from bytes. Field order is part
// of the schema contract (spec.md §4.2).
type ValueCodec[V any] interface {
	EncodeValue(V) ([]byte, error)
	DecodeValue([]byte) (V, error)
}

// GobValue is a length-independent ValueCodec built on encoding/gob, used
// for every column whose value is a Go struct (spec.md §4.2's "length-
// independent binary serialization for values").
type GobValue[V any] struct{}

func (GobValue[V]) EncodeValue(v V) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ocerr.ErrDeserialize, err)
	}
	return buf.Bytes(), nil
}

func (GobValue[V]) DecodeValue(b []byte) (V, error) {
	var v V
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %v", ocerr.ErrDeserialize, err)
	}
	return v, nil
}

// RawBytesValue is a ValueCodec that stores a []byte verbatim, used for
// columns whose value is an opaque blob the store does not type (spec.md
// §4.1: "the store performs no typing"), e.g. EVM receipts and logs, which
// are out of scope beyond their storage contract (spec.md §1).
type RawBytesValue struct{}

func (RawBytesValue) EncodeValue(v []byte) ([]byte, error) { return v, nil }
func (RawBytesValue) DecodeValue(b []byte) ([]byte, error) { return b, nil }

// --- big-endian tuple packing helpers -------------------------------------
//
// Mandatory anywhere range scans are used (spec.md §4.2): packing integers
// big-endian and hashes as fixed-width arrays makes bbolt's natural
// lexicographic cursor order match intended semantic (numeric) order.

// PutUint32 appends a big-endian uint32.
func PutUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// PutUint64 appends a big-endian uint64.
func PutUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// PutInt64 appends a big-endian int64, bias-shifted so that negative values
// still sort before positive ones under unsigned big-endian byte comparison.
func PutInt64(buf *bytes.Buffer, v int64) {
	PutUint64(buf, uint64(v)^(1<<63))
}

// PutHash appends a fixed-width hash (e.g. 32-byte block/tx hash) verbatim.
func PutHash(buf *bytes.Buffer, h []byte) {
	buf.Write(h)
}

// ReadUint32 consumes a big-endian uint32 from the front of b.
func ReadUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("%w: need 4 bytes, have %d", ocerr.ErrKeyLengthMismatch, len(b))
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

// ReadUint64 consumes a big-endian uint64 from the front of b.
func ReadUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, fmt.Errorf("%w: need 8 bytes, have %d", ocerr.ErrKeyLengthMismatch, len(b))
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

// ReadInt64 consumes a big-endian, bias-shifted int64 from the front of b.
func ReadInt64(b []byte) (int64, []byte, error) {
	u, rest, err := ReadUint64(b)
	if err != nil {
		return 0, nil, err
	}
	return int64(u ^ (1 << 63)), rest, nil
}

// ReadHash consumes a fixed-width hash of n bytes from the front of b.
func ReadHash(b []byte, n int) ([]byte, []byte, error) {
	if len(b) < n {
		return nil, nil, fmt.Errorf("%w: need %d bytes, have %d", ocerr.ErrKeyLengthMismatch, n, len(b))
	}
	h := append([]byte(nil), b[:n]...)
	return h, b[n:], nil
}

// PutFixedString appends s zero-padded (or truncated) to exactly n bytes, so
// that short identifier strings (token symbols, currency codes) occupy a
// fixed width in a packed key and compare lexicographically like the rest of
// the tuple.
func PutFixedString(buf *bytes.Buffer, s string, n int) {
	var b = make([]byte, n)
	copy(b, s)
	buf.Write(b)
}

// ReadFixedString consumes a fixed-width n-byte field and trims trailing
// zero padding.
func ReadFixedString(b []byte, n int) (string, []byte, error) {
	if len(b) < n {
		return "", nil, fmt.Errorf("%w: need %d bytes, have %d", ocerr.ErrKeyLengthMismatch, n, len(b))
	}
	field := b[:n]
	end := len(field)
	for end > 0 && field[end-1] == 0 {
		end--
	}
	return string(field[:end]), b[n:], nil
}
