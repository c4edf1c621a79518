package parse

import (
	"github.com/ClickHouse/ch-native-core/cherr"
	"github.com/ClickHouse/ch-native-core/protocol"
	"github.com/ClickHouse/ch-native-core/ring"
)

type helloStep int

const (
	stepHelloPacketType helloStep = iota
	stepHelloName
	stepHelloVersionMajor
	stepHelloVersionMinor
	stepHelloRevision
	stepHelloTimezone
	stepHelloDisplayName
	stepHelloVersionPatch
	stepHelloException
	stepHelloDone
)

// HelloResult is the outcome of one HelloParseState.Advance call: more
// bytes are needed, the handshake succeeded, or the server sent an
// Exception instead of Hello.
type HelloResult int

const (
	HelloNeedMoreData HelloResult = iota
	HelloSuccess
	HelloException
)

// HelloParseState decodes the server's handshake response: either a Hello
// packet (populating a ServerInfo) or an Exception packet reporting why
// the handshake failed. Any other packet type is a protocol violation —
// the server must respond to Hello with Hello or Exception, nothing else.
type HelloParseState struct {
	step       helloStep
	varint     VarintState
	str        StringState
	exception  ExceptionParseState
	packetType uint64
}

// Reset prepares the state to decode a new handshake response.
func (s *HelloParseState) Reset() {
	*s = HelloParseState{}
	s.str.Reset(true)
}

// Advance drives the handshake-response parse forward, filling info in
// place as fields complete. excMsg receives the server's display text if
// the result is HelloException.
func (s *HelloParseState) Advance(r *ring.Ring, info *ServerInfo) (HelloResult, string, error) {
	for {
		switch s.step {
		case stepHelloPacketType:
			n, ok, err := s.varint.Advance(r)
			if err != nil {
				return HelloNeedMoreData, "", err
			}
			if !ok {
				return HelloNeedMoreData, "", nil
			}
			s.packetType = n
			switch s.packetType {
			case protocol.ServerHello:
				s.step = stepHelloName
				s.str.Reset(false)
			case protocol.ServerException:
				s.step = stepHelloException
				s.exception.Reset()
			default:
				return HelloNeedMoreData, "", cherr.NewProtocolError("unexpected packet during handshake")
			}

		case stepHelloException:
			ok, err := s.exception.Advance(r)
			if err != nil {
				return HelloNeedMoreData, "", err
			}
			if !ok {
				return HelloNeedMoreData, "", nil
			}
			msg := s.exception.DisplayText
			if msg == "" {
				msg = "server exception"
			}
			s.Reset()
			return HelloException, msg, nil

		case stepHelloName:
			s.str.Skip = false
			ok, err := s.str.Advance(r)
			if err != nil {
				return HelloNeedMoreData, "", err
			}
			if !ok {
				return HelloNeedMoreData, "", nil
			}
			info.Name = s.str.Value
			s.str.Reset(true)
			s.step = stepHelloVersionMajor

		case stepHelloVersionMajor:
			n, ok, err := s.varint.Advance(r)
			if err != nil {
				return HelloNeedMoreData, "", err
			}
			if !ok {
				return HelloNeedMoreData, "", nil
			}
			info.VersionMajor = n
			s.step = stepHelloVersionMinor

		case stepHelloVersionMinor:
			n, ok, err := s.varint.Advance(r)
			if err != nil {
				return HelloNeedMoreData, "", err
			}
			if !ok {
				return HelloNeedMoreData, "", nil
			}
			info.VersionMinor = n
			s.step = stepHelloRevision

		case stepHelloRevision:
			n, ok, err := s.varint.Advance(r)
			if err != nil {
				return HelloNeedMoreData, "", err
			}
			if !ok {
				return HelloNeedMoreData, "", nil
			}
			info.Revision = n
			switch {
			case info.Revision >= protocol.MinRevisionWithServerTimezone:
				s.step = stepHelloTimezone
				s.str.Reset(false)
			case info.Revision >= protocol.MinRevisionWithServerDisplayName:
				s.step = stepHelloDisplayName
				s.str.Reset(false)
			case info.Revision >= protocol.MinRevisionWithVersionPatch:
				s.step = stepHelloVersionPatch
			default:
				s.step = stepHelloDone
			}

		case stepHelloTimezone:
			s.str.Skip = false
			ok, err := s.str.Advance(r)
			if err != nil {
				return HelloNeedMoreData, "", err
			}
			if !ok {
				return HelloNeedMoreData, "", nil
			}
			info.Timezone = s.str.Value
			s.str.Reset(true)
			switch {
			case info.Revision >= protocol.MinRevisionWithServerDisplayName:
				s.step = stepHelloDisplayName
				s.str.Reset(false)
			case info.Revision >= protocol.MinRevisionWithVersionPatch:
				s.step = stepHelloVersionPatch
			default:
				s.step = stepHelloDone
			}

		case stepHelloDisplayName:
			s.str.Skip = false
			ok, err := s.str.Advance(r)
			if err != nil {
				return HelloNeedMoreData, "", err
			}
			if !ok {
				return HelloNeedMoreData, "", nil
			}
			info.DisplayName = s.str.Value
			s.str.Reset(true)
			if info.Revision >= protocol.MinRevisionWithVersionPatch {
				s.step = stepHelloVersionPatch
			} else {
				s.step = stepHelloDone
			}

		case stepHelloVersionPatch:
			n, ok, err := s.varint.Advance(r)
			if err != nil {
				return HelloNeedMoreData, "", err
			}
			if !ok {
				return HelloNeedMoreData, "", nil
			}
			info.VersionPatch = n
			s.step = stepHelloDone

		case stepHelloDone:
			s.Reset()
			return HelloSuccess, "", nil
		}
	}
}
