package parse

import (
	"github.com/ClickHouse/ch-native-core/ring"
	"github.com/ClickHouse/ch-native-core/wire"
)

type exceptionStep int

const (
	stepExcCode exceptionStep = iota
	stepExcName
	stepExcDisplayText
	stepExcStackTrace
	stepExcHasNested
	stepExcDone
)

// ExceptionParseState decodes a server Exception packet, which may nest
// (an exception caused by another exception): code, name (skipped),
// display_text (captured — only the outermost one is kept), stack_trace
// (skipped), has_nested. If has_nested, loops back to code.
type ExceptionParseState struct {
	step        exceptionStep
	str         StringState
	code        int32
	hasNested   bool
	DisplayText string
}

// Reset prepares the state to decode a new (possibly nested) exception.
func (s *ExceptionParseState) Reset() {
	*s = ExceptionParseState{}
	s.str.Reset(false)
}

// Advance drives the exception parse forward.
func (s *ExceptionParseState) Advance(r *ring.Ring) (bool, error) {
	for {
		switch s.step {
		case stepExcCode:
			var buf [4]byte
			if !TryReadFixed(r, buf[:]) {
				return false, nil
			}
			s.code = wire.GetInt32(buf[:])
			s.str.Reset(true)
			s.step = stepExcName

		case stepExcName:
			s.str.Skip = true
			ok, err := s.str.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			s.str.Reset(false)
			s.step = stepExcDisplayText

		case stepExcDisplayText:
			s.str.Skip = false
			ok, err := s.str.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			// Empty check, not a depth counter: a genuinely empty outermost
			// display_text is indistinguishable from "not set yet" and would
			// be overwritten by a nested exception's text.
			if s.DisplayText == "" {
				s.DisplayText = s.str.Value
			}
			s.str.Reset(true)
			s.step = stepExcStackTrace

		case stepExcStackTrace:
			s.str.Skip = true
			ok, err := s.str.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			s.str.Reset(true)
			s.step = stepExcHasNested

		case stepExcHasNested:
			var buf [1]byte
			if !TryReadFixed(r, buf[:]) {
				return false, nil
			}
			s.hasNested = buf[0] != 0
			if s.hasNested {
				s.step = stepExcCode
				s.hasNested = false
			} else {
				s.step = stepExcDone
			}

		case stepExcDone:
			return true, nil
		}
	}
}
