package parse

import (
	"github.com/ClickHouse/ch-native-core/cherr"
	"github.com/ClickHouse/ch-native-core/ring"
	"github.com/ClickHouse/ch-native-core/wire"
)

// StringState decodes a length-prefixed string, either capturing it
// (Skip == false) or discarding its bytes as they arrive (Skip == true).
// Embeds a VarintState for the length prefix so the whole thing is
// resumable across arbitrary byte boundaries, including within the length
// varint itself.
type StringState struct {
	len       VarintState
	remaining uint64
	hasLen    bool
	Skip      bool
	Value     string
}

// Reset prepares the state to decode a new string in the given mode.
func (s *StringState) Reset(skip bool) {
	s.len.Reset()
	s.remaining = 0
	s.hasLen = false
	s.Skip = skip
	s.Value = ""
}

// Advance consumes bytes from r until the full string has been read (and,
// unless Skip, captured into Value). Returns false if r ran out first.
func (s *StringState) Advance(r *ring.Ring) (bool, error) {
	if !s.hasLen {
		n, ok, err := s.len.Advance(r)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if n > wire.MaxStringLen {
			return false, cherr.NewProtocolError("string too long: %d", n)
		}
		s.remaining = n
		s.hasLen = true
	}

	var buf []byte
	if !s.Skip && s.remaining > 0 {
		buf = make([]byte, 0, s.remaining)
	}

	for s.remaining > 0 {
		span := r.ReadSpan()
		if len(span) == 0 {
			if buf != nil {
				s.Value += string(buf)
			}
			return false, nil
		}
		n := uint64(len(span))
		if n > s.remaining {
			n = s.remaining
		}
		if !s.Skip {
			buf = append(buf, span[:n]...)
		}
		r.ConsumeRead(int(n))
		s.remaining -= n
	}
	if buf != nil {
		s.Value += string(buf)
	}
	return true, nil
}
