package parse

import (
	"github.com/ClickHouse/ch-native-core/cherr"
	"github.com/ClickHouse/ch-native-core/protocol"
	"github.com/ClickHouse/ch-native-core/ring"
)

// EventKind classifies a fully-parsed server packet for the connection
// state machine. Packets that don't affect request completion (Progress,
// Log, ProfileInfo, TableColumns, ProfileEvents, Hello, Pong) all surface
// as Other: they're consumed and counted as progress but never advance a
// request phase.
type EventKind int

const (
	EventOther EventKind = iota
	EventData
	EventEndOfStream
	EventException
)

// Event is what Dispatcher.Advance emits once a complete packet has been
// consumed from the ring.
type Event struct {
	Kind             EventKind
	ExceptionMessage string
}

type packetState int

const (
	statePacketType packetState = iota
	statePacketProgress
	statePacketData
	statePacketException
	statePacketLog
	statePacketProfileInfo
	statePacketTableColumns
	statePacketProfileEvents
)

// Dispatcher is the top-level packet parser: it reads the leading varint
// packet code, then hands off to the sub-parser for that packet type.
// After emitting an Event it resets itself, so a single caller loop can
// drain multiple packets out of one ring fill.
type Dispatcher struct {
	state      packetState
	varint     VarintState
	packetType uint64

	str       StringState
	block     BlockSkipState
	exception ExceptionParseState

	progressStep       uint8
	progressRows       uint64
	progressBytes      uint64
	progressTotalRows  uint64
	progressWritten    uint64
	progressWrittenB   uint64

	profileStep uint8
	profileU64  uint64
	profileBool bool
}

// ResetForNextPacket returns the dispatcher to its initial state, ready to
// read the next packet's leading varint.
func (d *Dispatcher) ResetForNextPacket() {
	*d = Dispatcher{}
	d.str.Reset(true)
	d.block.ResetForNewBlock(false, false)
	d.exception.Reset()
}

// Advance consumes bytes from r until a complete packet has been parsed,
// filling ev and returning true; returns false if r ran out of bytes
// first. serverRevision gates optional fields inside Data/Log/Progress
// packets per the server's advertised protocol revision.
func (d *Dispatcher) Advance(r *ring.Ring, serverRevision uint64, ev *Event) (bool, error) {
	hasBlockInfo := serverRevision >= protocol.MinRevisionWithBlockInfo
	hasCustomSerialization := serverRevision >= protocol.MinRevisionWithCustomSerialization

	for {
		switch d.state {
		case statePacketType:
			n, ok, err := d.varint.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			d.packetType = n
			switch d.packetType {
			case protocol.ServerData:
				d.state = statePacketData
				d.str.Reset(true)
				d.block.ResetForNewBlock(hasBlockInfo, hasCustomSerialization)
			case protocol.ServerProgress:
				d.state = statePacketProgress
				d.progressStep = 0
			case protocol.ServerException:
				d.state = statePacketException
				d.exception.Reset()
			case protocol.ServerEndOfStream:
				ev.Kind = EventEndOfStream
				ev.ExceptionMessage = ""
				d.ResetForNextPacket()
				return true, nil
			case protocol.ServerLog:
				d.state = statePacketLog
				d.str.Reset(true)
				d.block.ResetForNewBlock(hasBlockInfo, hasCustomSerialization)
			case protocol.ServerProfileInfo:
				d.state = statePacketProfileInfo
				d.profileStep = 0
			case protocol.ServerTableColumns:
				d.state = statePacketTableColumns
				d.str.Reset(true)
			case protocol.ServerProfileEvents:
				d.state = statePacketProfileEvents
				d.str.Reset(true)
				d.block.ResetForNewBlock(hasBlockInfo, hasCustomSerialization)
			case protocol.ServerHello, protocol.ServerPong:
				ev.Kind = EventOther
				ev.ExceptionMessage = ""
				d.ResetForNextPacket()
				return true, nil
			default:
				return false, cherr.NewUnimplementedError("unimplemented server packet %d", d.packetType)
			}

		case statePacketProgress:
			if d.progressStep == 0 {
				n, ok, err := d.varint.Advance(r)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				d.progressRows = n
				d.progressStep = 1
			}
			if d.progressStep == 1 {
				n, ok, err := d.varint.Advance(r)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				d.progressBytes = n
				d.progressStep = 2
			}
			if d.progressStep == 2 {
				// This core's advertised protocol revision always
				// supports total_rows_in_progress.
				n, ok, err := d.varint.Advance(r)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				d.progressTotalRows = n
				d.progressStep = 3
			}
			if serverRevision >= protocol.MinRevisionWithClientWriteInfo {
				if d.progressStep == 3 {
					n, ok, err := d.varint.Advance(r)
					if err != nil {
						return false, err
					}
					if !ok {
						return false, nil
					}
					d.progressWritten = n
					d.progressStep = 4
				}
				if d.progressStep == 4 {
					n, ok, err := d.varint.Advance(r)
					if err != nil {
						return false, err
					}
					if !ok {
						return false, nil
					}
					d.progressWrittenB = n
				}
			}
			ev.Kind = EventOther
			ev.ExceptionMessage = ""
			d.ResetForNextPacket()
			return true, nil

		case statePacketData:
			if serverRevision >= protocol.MinRevisionWithTemporaryTables {
				d.str.Skip = true
				ok, err := d.str.Advance(r)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				// d.str is left complete (not reset) so that re-entering
				// this state mid-block does not read a second string.
			}
			ok, err := d.block.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			ev.Kind = EventData
			ev.ExceptionMessage = ""
			d.ResetForNextPacket()
			return true, nil

		case statePacketException:
			ok, err := d.exception.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			msg := d.exception.DisplayText
			if msg == "" {
				msg = "server exception"
			}
			ev.Kind = EventException
			ev.ExceptionMessage = msg
			d.ResetForNextPacket()
			return true, nil

		case statePacketLog:
			d.str.Skip = true
			ok, err := d.str.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			ok, err = d.block.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			ev.Kind = EventOther
			ev.ExceptionMessage = ""
			d.ResetForNextPacket()
			return true, nil

		case statePacketProfileInfo:
			if d.profileStep == 0 {
				n, ok, err := d.varint.Advance(r)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				d.profileU64 = n
				d.profileStep = 1
			}
			if d.profileStep == 1 {
				n, ok, err := d.varint.Advance(r)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				d.profileU64 = n
				d.profileStep = 2
			}
			if d.profileStep == 2 {
				n, ok, err := d.varint.Advance(r)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				d.profileU64 = n
				d.profileStep = 3
			}
			if d.profileStep == 3 {
				var buf [1]byte
				if !TryReadFixed(r, buf[:]) {
					return false, nil
				}
				d.profileBool = buf[0] != 0
				d.profileStep = 4
			}
			if d.profileStep == 4 {
				n, ok, err := d.varint.Advance(r)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				d.profileU64 = n
				d.profileStep = 5
			}
			if d.profileStep == 5 {
				var buf [1]byte
				if !TryReadFixed(r, buf[:]) {
					return false, nil
				}
				d.profileBool = buf[0] != 0
			}
			ev.Kind = EventOther
			ev.ExceptionMessage = ""
			d.ResetForNextPacket()
			return true, nil

		case statePacketTableColumns:
			// profileStep counts the strings already read (0 or 1), so a
			// re-entry resumes the second string instead of restarting.
			if d.profileStep == 0 {
				d.str.Skip = true
				ok, err := d.str.Advance(r)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				d.str.Reset(true)
				d.profileStep = 1
			}
			d.str.Skip = true
			ok, err := d.str.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			ev.Kind = EventOther
			ev.ExceptionMessage = ""
			d.ResetForNextPacket()
			return true, nil

		case statePacketProfileEvents:
			d.str.Skip = true
			ok, err := d.str.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			ok, err = d.block.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			ev.Kind = EventOther
			ev.ExceptionMessage = ""
			d.ResetForNextPacket()
			return true, nil
		}
	}
}
