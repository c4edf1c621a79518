package parse_test

import (
	"errors"

	"github.com/ClickHouse/ch-native-core/cherr"
	"github.com/ClickHouse/ch-native-core/parse"
	"github.com/ClickHouse/ch-native-core/protocol"
	"github.com/ClickHouse/ch-native-core/ring"
	"github.com/ClickHouse/ch-native-core/wire"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// stringColumnDataPacket builds a Data packet (server revision 0: no
// block-info header, no temporary-table name, no custom-serialization
// byte) describing one String column named "col" with the given rows.
func stringColumnDataPacket(rows []string) []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, protocol.ServerData)
	buf = wire.AppendVarint(buf, 1) // num columns
	buf = wire.AppendVarint(buf, uint64(len(rows)))
	buf = wire.AppendString(buf, "col")
	buf = wire.AppendString(buf, "String")
	for _, row := range rows {
		buf = wire.AppendString(buf, row)
	}
	return buf
}

func endOfStreamPacket() []byte {
	return wire.AppendVarint(nil, protocol.ServerEndOfStream)
}

var _ = Describe("Dispatcher", func() {
	It("drains a Data packet and an EndOfStream packet fed all at once", func() {
		stream := append(stringColumnDataPacket([]string{"a", "bb", ""}), endOfStreamPacket()...)

		r := ring.New(len(stream) + 16)
		Expect(r.Write(stream)).To(Equal(len(stream)))

		var d parse.Dispatcher
		var ev parse.Event

		ok, err := d.Advance(r, 0, &ev)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(ev.Kind).To(Equal(parse.EventData))

		ok, err = d.Advance(r, 0, &ev)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(ev.Kind).To(Equal(parse.EventEndOfStream))

		Expect(r.Size()).To(Equal(0))
	})

	It("produces identical event sequences regardless of chunk size", func() {
		stream := append(stringColumnDataPacket([]string{"a", "bb", ""}), endOfStreamPacket()...)

		run := func(chunkSize int) []parse.EventKind {
			r := ring.New(len(stream) + 16)
			var d parse.Dispatcher
			var ev parse.Event
			var kinds []parse.EventKind

			offset := 0
			for offset < len(stream) || r.Size() > 0 {
				if offset < len(stream) {
					n := chunkSize
					if n > len(stream)-offset {
						n = len(stream) - offset
					}
					if n > 0 {
						r.Write(stream[offset : offset+n])
						offset += n
					}
				}
				for {
					ok, err := d.Advance(r, 0, &ev)
					Expect(err).NotTo(HaveOccurred())
					if !ok {
						break
					}
					kinds = append(kinds, ev.Kind)
				}
				if offset >= len(stream) && r.Size() == 0 {
					break
				}
			}
			return kinds
		}

		whole := run(len(stream))
		byTwo := run(2)
		byOne := run(1)

		Expect(byTwo).To(Equal(whole))
		Expect(byOne).To(Equal(whole))
		Expect(whole).To(Equal([]parse.EventKind{parse.EventData, parse.EventEndOfStream}))
	})

	It("raises UnimplementedError for an unrecognized packet code", func() {
		stream := wire.AppendVarint(nil, 200)
		r := ring.New(16)
		r.Write(stream)

		var d parse.Dispatcher
		var ev parse.Event
		_, err := d.Advance(r, 0, &ev)

		var uerr *cherr.UnimplementedError
		Expect(errors.As(err, &uerr)).To(BeTrue())
	})
})

var _ = Describe("VarintState", func() {
	It("completes only once the continuation chain ends", func() {
		r := ring.New(8)
		r.Write([]byte{0xE5})

		var vs parse.VarintState
		_, ok, err := vs.Advance(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		r.Write([]byte{0x8E})
		_, ok, err = vs.Advance(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		r.Write([]byte{0x26})
		v, ok, err := vs.Advance(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(624485)))
	})
})
