package parse

import (
	"strconv"
	"strings"

	"github.com/ClickHouse/ch-native-core/cherr"
)

// SkipPlanKind distinguishes a fixed-width column body from a
// variable-length, length-prefixed-per-row one.
type SkipPlanKind int

const (
	SkipFixed SkipPlanKind = iota
	SkipString
)

// SkipPlan is what BuildSkipPlan derives from a column's textual type: how
// to traverse its body without decoding any value.
type SkipPlan struct {
	Kind        SkipPlanKind
	BytesPerRow int
}

// parenInt parses the integer inside the first parenthesized argument of a
// type name like "FixedString(16)" or "Decimal32(9, 2)" — only the first
// argument matters for the byte widths this core cares about, and
// FixedString is the only type whose width comes from that argument at all.
func parenInt(typeName, prefix string) (int, bool) {
	rest := typeName[len(prefix):]
	close := strings.IndexByte(rest, ')')
	if close < 0 {
		return 0, false
	}
	inner := rest[:close]
	if comma := strings.IndexByte(inner, ','); comma >= 0 {
		inner = inner[:comma]
	}
	n, err := strconv.Atoi(strings.TrimSpace(inner))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// BuildSkipPlan maps a column's textual ClickHouse type to the plan needed
// to skip its body. Unknown types return (_, false): the block skip-parser
// raises UnimplementedError rather than guess at an unrecognized layout —
// this core never decodes values, only traverses past them, so an unknown
// width would corrupt every subsequent column in the block.
func BuildSkipPlan(typeName string) (SkipPlan, bool) {
	fixed := func(n int) (SkipPlan, bool) { return SkipPlan{Kind: SkipFixed, BytesPerRow: n}, true }

	switch typeName {
	case "UInt8", "Int8", "Enum8":
		return fixed(1)
	case "UInt16", "Int16", "Enum16", "Date":
		return fixed(2)
	case "UInt32", "Int32", "Float32", "IPv4", "Date32", "DateTime":
		return fixed(4)
	case "UInt64", "Int64", "Float64":
		return fixed(8)
	case "UUID", "IPv6":
		return fixed(16)
	case "String":
		return SkipPlan{Kind: SkipString}, true
	}

	switch {
	case strings.HasPrefix(typeName, "DateTime64("):
		return fixed(8)
	case strings.HasPrefix(typeName, "DateTime("):
		return fixed(4)
	case strings.HasPrefix(typeName, "Decimal32("):
		return fixed(4)
	case strings.HasPrefix(typeName, "Decimal64("):
		return fixed(8)
	case strings.HasPrefix(typeName, "Decimal128("):
		return fixed(16)
	case strings.HasPrefix(typeName, "FixedString("):
		n, ok := parenInt(typeName, "FixedString(")
		if !ok {
			return SkipPlan{}, false
		}
		return fixed(n)
	}

	return SkipPlan{}, false
}

// buildSkipPlanOrErr is BuildSkipPlan wrapped to raise the UnimplementedError
// the block skip-parser reports when a type's plan can't be determined.
func buildSkipPlanOrErr(typeName string) (SkipPlan, error) {
	plan, ok := BuildSkipPlan(typeName)
	if !ok {
		return SkipPlan{}, cherr.NewUnimplementedError("unsupported column type in server block: %s", typeName)
	}
	return plan, nil
}
