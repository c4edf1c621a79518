// Package wire implements the ClickHouse native-protocol codec: base-128
// varints, native little-endian fixed-width integers and 128-bit values,
// and length-prefixed strings. Encoding here is the non-resumable half
// (append to a growing []byte, used by package encode); the resumable
// decode half that parses these shapes incrementally off a ring lives in
// package parse — this package supplies the decode primitives parse calls
// once it knows enough bytes are available, plus one-shot helpers for
// tests and for decoding values that are never split across reads.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import (
	"encoding/binary"

	"github.com/ClickHouse/ch-native-core/cherr"
)

// MaxVarintBytes is the maximum encoded length of a base-128 varint; the
// protocol rejects anything longer as malformed.
const MaxVarintBytes = 10

// MaxStringLen bounds decoded string lengths. The source bounds this at
// the platform size_t max; we bound it far below that (16 MiB) since no
// legitimate ClickHouse identifier, query text, or exception message
// approaches that size, and an unbounded accept would let a corrupt
// length field trigger a multi-gigabyte allocation.
const MaxStringLen = 16 << 20

// AppendVarint appends the base-128 encoding of v to dst and returns the
// extended slice.
func AppendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// DecodeVarint decodes a complete varint from the front of buf. It is used
// where the whole varint is known to already be present (tests, and
// one-shot decoding of values that arrived as one buffer); the resumable
// byte-at-a-time variant used while streaming off a ring lives in
// package parse as VarintState.
func DecodeVarint(buf []byte) (value uint64, n int, err error) {
	var shift uint
	for n = 0; n < MaxVarintBytes && n < len(buf); n++ {
		b := buf[n]
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, n + 1, nil
		}
		shift += 7
	}
	if n >= MaxVarintBytes {
		return 0, 0, cherr.NewProtocolError("invalid varint: exceeded %d bytes", MaxVarintBytes)
	}
	return 0, 0, cherr.NewProtocolError("invalid varint: truncated input")
}

// AppendString appends a varint length prefix followed by the raw bytes
// of s.
func AppendString(dst []byte, s string) []byte {
	dst = AppendVarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// AppendBytes appends a varint length prefix followed by b.
func AppendBytes(dst []byte, b []byte) []byte {
	dst = AppendVarint(dst, uint64(len(b)))
	return append(dst, b...)
}

// PutUint8 appends a single byte.
func PutUint8(dst []byte, v uint8) []byte { return append(dst, v) }

// PutUint32 appends v as 4 native little-endian bytes.
func PutUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// PutInt32 appends v as 4 native little-endian bytes.
func PutInt32(dst []byte, v int32) []byte { return PutUint32(dst, uint32(v)) }

// PutUint64 appends v as 8 native little-endian bytes.
func PutUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// PutInt64 appends v as 8 native little-endian bytes.
func PutInt64(dst []byte, v int64) []byte { return PutUint64(dst, uint64(v)) }

// PutUint128 appends a 16-byte little-endian value (UUID, Int128,
// Decimal128 bit pattern), matching wire_format.cpp's WriteFixed<T> for
// 16-byte T instantiations.
func PutUint128(dst []byte, lo, hi uint64) []byte {
	dst = PutUint64(dst, lo)
	dst = PutUint64(dst, hi)
	return dst
}

// GetUint128 reads a 16-byte little-endian value from the front of buf.
func GetUint128(buf []byte) (lo, hi uint64) {
	lo = binary.LittleEndian.Uint64(buf[0:8])
	hi = binary.LittleEndian.Uint64(buf[8:16])
	return
}

// GetUint32 / GetUint64 read native little-endian fixed-width integers
// from the front of buf; callers guarantee len(buf) is sufficient (the
// resumable parsers in package parse only call these once the ring has
// produced a contiguous span of the right length).
func GetUint32(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf) }
func GetInt32(buf []byte) int32   { return int32(GetUint32(buf)) }
func GetUint64(buf []byte) uint64 { return binary.LittleEndian.Uint64(buf) }
func GetInt64(buf []byte) int64   { return int64(GetUint64(buf)) }

// QuoteIdentifier backtick-quotes a ClickHouse identifier (column or
// table name) for embedding in generated query text, doubling any
// embedded backtick.
func QuoteIdentifier(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '`')
	for i := 0; i < len(name); i++ {
		if name[i] == '`' {
			out = append(out, '`', '`')
		} else {
			out = append(out, name[i])
		}
	}
	out = append(out, '`')
	return string(out)
}
