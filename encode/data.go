package encode

import (
	"bytes"

	"github.com/ClickHouse/ch-native-core/block"
	"github.com/ClickHouse/ch-native-core/protocol"
	"github.com/ClickHouse/ch-native-core/wire"
)

// Data builds the client Data packet for b: client code, an (optionally
// gated) empty temporary-table name, then the block itself — block-info
// header (gated), column count, row count, per-column name/type/[custom-
// serialization byte], and per-column bodies via Column.Save (only once
// the block actually has rows).
//
// Data is called three times per INSERT: once with an empty block as the
// query terminator, once with the caller's block, and once more with an
// empty block marking end-of-data.
func Data(b block.Block, serverRevision uint64) ([]byte, error) {
	var buf []byte
	buf = wire.AppendVarint(buf, protocol.ClientData)
	if serverRevision >= protocol.MinRevisionWithTemporaryTables {
		buf = wire.AppendString(buf, "")
	}

	var err error
	buf, err = writeBlock(buf, b, serverRevision)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func writeBlock(buf []byte, b block.Block, serverRevision uint64) ([]byte, error) {
	if serverRevision >= protocol.MinRevisionWithBlockInfo {
		const (
			overflowField  = 1
			bucketNumField = 2
			terminatorField = 0
			isOverflows    = 0
			bucketNum      = -1
		)
		buf = wire.AppendVarint(buf, overflowField)
		buf = wire.PutUint8(buf, isOverflows)
		buf = wire.AppendVarint(buf, bucketNumField)
		buf = wire.PutInt32(buf, bucketNum)
		buf = wire.AppendVarint(buf, terminatorField)
	}

	cols := b.Columns()
	buf = wire.AppendVarint(buf, uint64(len(cols)))
	numRows := b.NumRows()
	buf = wire.AppendVarint(buf, uint64(numRows))

	for _, col := range cols {
		buf = wire.AppendString(buf, col.Name())
		buf = wire.AppendString(buf, col.Type())
		if serverRevision >= protocol.MinRevisionWithCustomSerialization {
			buf = wire.PutUint8(buf, 0)
		}
		if numRows > 0 {
			var body bytes.Buffer
			if err := col.Save(&body); err != nil {
				return nil, err
			}
			buf = append(buf, body.Bytes()...)
		}
	}

	return buf, nil
}
