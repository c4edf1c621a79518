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

var _ = Describe("BuildSkipPlan", func() {
	DescribeTable("fixed-width types",
		func(typeName string, wantBytes int) {
			plan, ok := parse.BuildSkipPlan(typeName)
			Expect(ok).To(BeTrue())
			Expect(plan.Kind).To(Equal(parse.SkipFixed))
			Expect(plan.BytesPerRow).To(Equal(wantBytes))
		},
		Entry("UInt8", "UInt8", 1),
		Entry("Enum16", "Enum16", 2),
		Entry("Date", "Date", 2),
		Entry("Int32", "Int32", 4),
		Entry("DateTime", "DateTime", 4),
		Entry("DateTime(tz)", "DateTime('Europe/Moscow')", 4),
		Entry("DateTime64", "DateTime64(6)", 8),
		Entry("Float64", "Float64", 8),
		Entry("UUID", "UUID", 16),
		Entry("Decimal128", "Decimal128(38, 10)", 16),
		Entry("FixedString(16)", "FixedString(16)", 16),
	)

	It("resolves String to the variable-length plan", func() {
		plan, ok := parse.BuildSkipPlan("String")
		Expect(ok).To(BeTrue())
		Expect(plan.Kind).To(Equal(parse.SkipString))
	})

	It("rejects an unrecognized type", func() {
		_, ok := parse.BuildSkipPlan("Tuple(UInt8, String)")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("HelloParseState", func() {
	It("rejects a non-Hello, non-Exception packet during handshake", func() {
		r := ring.New(8)
		r.Write(wire.AppendVarint(nil, protocol.ServerProgress))

		var hs parse.HelloParseState
		var info parse.ServerInfo
		_, _, err := hs.Advance(r, &info)

		var perr *cherr.ProtocolError
		Expect(errors.As(err, &perr)).To(BeTrue())
	})

	It("parses name/version/revision for an old server with no gated fields", func() {
		var buf []byte
		buf = wire.AppendVarint(buf, protocol.ServerHello)
		buf = wire.AppendString(buf, "ClickHouse")
		buf = wire.AppendVarint(buf, 1)
		buf = wire.AppendVarint(buf, 1)
		buf = wire.AppendVarint(buf, 50000) // below every gated threshold

		r := ring.New(len(buf) + 8)
		r.Write(buf)

		var hs parse.HelloParseState
		var info parse.ServerInfo
		res, _, err := hs.Advance(r, &info)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(parse.HelloSuccess))
		Expect(info.Name).To(Equal("ClickHouse"))
		Expect(info.Revision).To(Equal(uint64(50000)))
	})
})
