package encode

import (
	"github.com/ClickHouse/ch-native-core/cherr"
	"github.com/ClickHouse/ch-native-core/protocol"
	"github.com/ClickHouse/ch-native-core/wire"
)

const (
	queryKindInitial = 1
	ifaceTypeTCP     = 1
)

// Query builds the client Query packet: query id, then — gated on the
// server's client-info revision — a fixed client-info structure, then a
// (currently always empty) settings string, then the query processing
// stage, compression state, and the query text itself.
//
// Servers older than protocol.MinRevisionWithSettingsSerializedAsStrings
// require binary settings serialization, which this core does not
// implement; Query returns an UnimplementedError in that case rather than
// silently sending a request the server can't parse.
func Query(queryText, queryID string, serverRevision uint64) ([]byte, error) {
	if serverRevision < protocol.MinRevisionWithSettingsSerializedAsStrings {
		return nil, cherr.NewUnimplementedError("server revision %d requires binary settings serialization, which this core does not implement", serverRevision)
	}

	buf := make([]byte, 0, 128+len(queryText)+len(queryID))
	buf = wire.AppendVarint(buf, protocol.ClientQuery)
	buf = wire.AppendString(buf, queryID)

	if serverRevision >= protocol.MinRevisionWithClientInfo {
		buf = wire.PutUint8(buf, queryKindInitial)
		buf = wire.AppendString(buf, "")
		buf = wire.AppendString(buf, "")
		buf = wire.AppendString(buf, "")
		if serverRevision >= protocol.MinRevisionWithInitialQueryStartTime {
			buf = wire.PutInt64(buf, 0)
		}
		buf = wire.PutUint8(buf, ifaceTypeTCP)
		buf = wire.AppendString(buf, "")
		buf = wire.AppendString(buf, "")
		buf = wire.AppendString(buf, ClientName)
		buf = wire.AppendVarint(buf, ClientVersionMajor)
		buf = wire.AppendVarint(buf, ClientVersionMinor)
		buf = wire.AppendVarint(buf, protocol.ClientProtocolRevision)

		if serverRevision >= protocol.MinRevisionWithQuotaKeyInClientInfo {
			buf = wire.AppendString(buf, "")
		}
		if serverRevision >= protocol.MinRevisionWithDistributedDepth {
			buf = wire.AppendVarint(buf, 0)
		}
		if serverRevision >= protocol.MinRevisionWithVersionPatch {
			buf = wire.AppendVarint(buf, 0)
		}
		if serverRevision >= protocol.MinRevisionWithOpenTelemetry {
			buf = wire.PutUint8(buf, 0)
		}
		if serverRevision >= protocol.MinRevisionWithParallelReplicas {
			buf = wire.AppendVarint(buf, 0)
			buf = wire.AppendVarint(buf, 0)
			buf = wire.AppendVarint(buf, 0)
		}
	}

	// Per-query settings: this core never sets any, but the server still
	// expects the (empty) string-serialized settings block.
	buf = wire.AppendString(buf, "")

	if serverRevision >= protocol.MinRevisionWithInterserverSecret {
		buf = wire.AppendString(buf, "")
	}

	buf = wire.AppendVarint(buf, protocol.StageComplete)
	buf = wire.AppendVarint(buf, protocol.CompressionDisable)
	buf = wire.AppendString(buf, queryText)

	if serverRevision >= protocol.MinRevisionWithParameters {
		buf = wire.AppendString(buf, "")
	}

	return buf, nil
}
