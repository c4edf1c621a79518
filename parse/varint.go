// Package parse implements the resumable parsers that sit between the RX
// ring and the connection state machine: a byte-at-a-time varint decoder,
// a length-prefixed string decoder, a block skip-parser that traverses a
// server Data packet's bytes without materializing columns, an exception
// parser, the server-hello parser, and the top-level packet dispatcher.
// Every parser here follows the same shape: a small resumable state value
// and an Advance(ring, ...) (bool, error) method that returns false when
// the ring doesn't yet hold enough bytes, never blocking and never
// consuming bytes it can't fully account for.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package parse

import (
	"github.com/ClickHouse/ch-native-core/cherr"
	"github.com/ClickHouse/ch-native-core/ring"
)

// maxVarintBytes mirrors wire.MaxVarintBytes; duplicated here (rather than
// imported) because VarintState's byte-at-a-time loop reads one byte per
// ring call instead of decoding a contiguous slice, and doesn't otherwise
// touch package wire.
const maxVarintBytes = 10

// VarintState is a resumable base-128 varint decoder: it consumes exactly
// one byte per call to the ring when one is available, so it tolerates
// being re-entered after any number of partial reads.
type VarintState struct {
	value uint64
	shift uint8
	bytes uint8
}

// Reset returns the state to its zero value, ready to decode a new varint.
func (s *VarintState) Reset() { *s = VarintState{} }

// Advance consumes bytes from r until a complete varint has been read.
// Returns (value, true, nil) once complete; (_, false, nil) if r ran out of
// bytes first; (_, false, err) if the varint exceeds maxVarintBytes.
func (s *VarintState) Advance(r *ring.Ring) (uint64, bool, error) {
	for {
		b, ok := r.PeekByte()
		if !ok {
			return 0, false, nil
		}
		r.Discard(1)

		s.value |= uint64(b&0x7F) << s.shift
		s.shift += 7
		s.bytes++

		if b&0x80 == 0 {
			v := s.value
			s.Reset()
			return v, true, nil
		}
		if s.bytes >= maxVarintBytes {
			return 0, false, cherr.NewProtocolError("invalid varint")
		}
	}
}
