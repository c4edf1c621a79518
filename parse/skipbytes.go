package parse

import "github.com/ClickHouse/ch-native-core/ring"

// SkipBytesState discards a fixed number of bytes, resumably.
type SkipBytesState struct {
	remaining uint64
}

// Reset sets the number of bytes still to discard.
func (s *SkipBytesState) Reset(n uint64) { s.remaining = n }

// Advance discards bytes from r until remaining reaches zero.
func (s *SkipBytesState) Advance(r *ring.Ring) bool {
	for s.remaining > 0 {
		span := r.ReadSpan()
		if len(span) == 0 {
			return false
		}
		n := uint64(len(span))
		if n > s.remaining {
			n = s.remaining
		}
		r.ConsumeRead(int(n))
		s.remaining -= n
	}
	return true
}
