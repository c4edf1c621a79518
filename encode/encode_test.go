package encode_test

import (
	"errors"
	"testing"

	"github.com/ClickHouse/ch-native-core/block"
	"github.com/ClickHouse/ch-native-core/block/memblock"
	"github.com/ClickHouse/ch-native-core/cherr"
	"github.com/ClickHouse/ch-native-core/encode"
	"github.com/ClickHouse/ch-native-core/protocol"
	"github.com/ClickHouse/ch-native-core/wire"
)

func TestHelloShape(t *testing.T) {
	buf := encode.Hello(encode.HelloOptions{Database: "default", User: "default", Password: "secret"})

	code, n, err := wire.DecodeVarint(buf)
	if err != nil || code != protocol.ClientHello {
		t.Fatalf("code=%d err=%v", code, err)
	}
	buf = buf[n:]

	nameLen, n, err := wire.DecodeVarint(buf)
	if err != nil {
		t.Fatal(err)
	}
	buf = buf[n:]
	if string(buf[:nameLen]) != encode.ClientName {
		t.Fatalf("got client name %q", buf[:nameLen])
	}
}

func TestQueryRejectsOldServer(t *testing.T) {
	_, err := encode.Query("SELECT 1", "qid", protocol.MinRevisionWithSettingsSerializedAsStrings-1)
	var uerr *cherr.UnimplementedError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnimplementedError, got %v", err)
	}
}

func TestQueryEncodesTextAtCurrentRevision(t *testing.T) {
	buf, err := encode.Query("INSERT INTO t ( `id` ) VALUES", "qid", protocol.ClientProtocolRevision)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) == 0 {
		t.Fatal("empty query buffer")
	}

	code, n, err := wire.DecodeVarint(buf)
	if err != nil || code != protocol.ClientQuery {
		t.Fatalf("code=%d err=%v", code, err)
	}
	_ = n
}

func TestDataEncodesEmptyBlock(t *testing.T) {
	buf, err := encode.Data(block.Empty(), protocol.ClientProtocolRevision)
	if err != nil {
		t.Fatal(err)
	}

	code, n, err := wire.DecodeVarint(buf)
	if err != nil || code != protocol.ClientData {
		t.Fatalf("code=%d err=%v", code, err)
	}
	buf = buf[n:]

	// Temporary-table name (empty string) since ClientProtocolRevision
	// is far above MinRevisionWithTemporaryTables.
	ttLen, n, err := wire.DecodeVarint(buf)
	if err != nil || ttLen != 0 {
		t.Fatalf("ttLen=%d err=%v", ttLen, err)
	}
	buf = buf[n:]

	// Block-info header: varint 1, u8, varint 2, i32, varint 0.
	field1, n, err := wire.DecodeVarint(buf)
	if err != nil || field1 != 1 {
		t.Fatalf("field1=%d err=%v", field1, err)
	}
	buf = buf[n+1:] // skip the u8 overflow flag too

	field2, n, err := wire.DecodeVarint(buf)
	if err != nil || field2 != 2 {
		t.Fatalf("field2=%d err=%v", field2, err)
	}
	buf = buf[n+4:] // skip the i32 bucket num too

	terminator, n, err := wire.DecodeVarint(buf)
	if err != nil || terminator != 0 {
		t.Fatalf("terminator=%d err=%v", terminator, err)
	}
	buf = buf[n:]

	numCols, n, err := wire.DecodeVarint(buf)
	if err != nil || numCols != 0 {
		t.Fatalf("numCols=%d err=%v", numCols, err)
	}
	buf = buf[n:]

	numRows, _, err := wire.DecodeVarint(buf)
	if err != nil || numRows != 0 {
		t.Fatalf("numRows=%d err=%v", numRows, err)
	}
}

func TestDataEncodesOneColumnOneRow(t *testing.T) {
	b := memblock.Block{
		Cols: []memblock.Column{{ColumnName: "id", ColumnType: "UInt64", Data: wire.PutUint64(nil, 42)}},
		Rows: 1,
	}
	buf, err := encode.Data(b, protocol.ClientProtocolRevision)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) == 0 {
		t.Fatal("empty buffer")
	}
	// Spot check the column body bytes (the little-endian 42) appear
	// somewhere near the tail of the buffer.
	want := wire.PutUint64(nil, 42)
	if string(buf[len(buf)-len(want):]) != string(want) {
		t.Fatalf("column body not found at tail of %x", buf)
	}
}
