package conn

import (
	"strings"

	"github.com/ClickHouse/ch-native-core/block"
	"github.com/ClickHouse/ch-native-core/encode"
	"github.com/ClickHouse/ch-native-core/wire"
)

// request is one enqueued INSERT, pre-encoded into its four immutable
// byte buffers at EnqueueInsert time. The four buffers are sent, in
// order, across the requestPhase sequence; nothing here is re-encoded
// once queued.
type request struct {
	queryBytes      []byte
	terminatorBytes []byte
	dataBytes       []byte
	endBytes        []byte
	totalBytes      int64
}

func buildRequest(table string, b block.Block, queryID string, serverRevision uint64) (*request, error) {
	queryText := buildInsertText(table, b)

	queryBytes, err := encode.Query(queryText, queryID, serverRevision)
	if err != nil {
		return nil, err
	}
	terminatorBytes, err := encode.Data(block.Empty(), serverRevision)
	if err != nil {
		return nil, err
	}
	dataBytes, err := encode.Data(b, serverRevision)
	if err != nil {
		return nil, err
	}
	endBytes, err := encode.Data(block.Empty(), serverRevision)
	if err != nil {
		return nil, err
	}

	r := &request{
		queryBytes:      queryBytes,
		terminatorBytes: terminatorBytes,
		dataBytes:       dataBytes,
		endBytes:        endBytes,
	}
	r.totalBytes = int64(len(queryBytes) + len(terminatorBytes) + len(dataBytes) + len(endBytes))
	return r, nil
}

// buildInsertText renders "INSERT INTO <table> ( col1, col2, ... ) VALUES"
// with column identifiers backtick-quoted; the table name is emitted as-is.
func buildInsertText(table string, b block.Block) string {
	cols := b.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = wire.QuoteIdentifier(c.Name())
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" ( ")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(" ) VALUES")
	return sb.String()
}

// bufferForPhase returns the byte slice a given requestPhase streams,
// or nil for phases that don't send (WaitingForData, WaitingForEOS).
func (r *request) bufferForPhase(p requestPhase) []byte {
	switch p {
	case phaseSendingQuery:
		return r.queryBytes
	case phaseSendingQueryTerminator:
		return r.terminatorBytes
	case phaseSendingBlock:
		return r.dataBytes
	case phaseSendingEnd:
		return r.endBytes
	default:
		return nil
	}
}
