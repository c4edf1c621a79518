// Package encode builds the pre-serialized byte buffers the connection
// state machine streams to the server: Hello (handshake), Query (the
// INSERT statement text and per-query client info), and Data (a block
// payload, used three times per INSERT — once as a query terminator, once
// for the caller's rows, once as the end-of-data marker). None of these
// functions touch the socket; they return a []byte ready for
// netio.SendSome.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package encode

import (
	"github.com/ClickHouse/ch-native-core/protocol"
	"github.com/ClickHouse/ch-native-core/wire"
)

// ClientName identifies this core to the server in the Hello packet, the
// way "clickhouse-cpp" does for the reference client.
const ClientName = "ch-native-core"

// ClientVersionMajor/Minor are this core's own version, independent of the
// wire protocol revision it advertises.
const (
	ClientVersionMajor = 1
	ClientVersionMinor = 0
)

// HelloOptions carries the fields the Hello packet reports about the
// connecting client.
type HelloOptions struct {
	Database string
	User     string
	Password string
}

// Hello builds the client Hello packet: client code, client name, client
// version, the protocol revision this core advertises, then default
// database/user/password.
func Hello(opts HelloOptions) []byte {
	buf := make([]byte, 0, 64+len(opts.Database)+len(opts.User)+len(opts.Password))
	buf = wire.AppendVarint(buf, protocol.ClientHello)
	buf = wire.AppendString(buf, ClientName)
	buf = wire.AppendVarint(buf, ClientVersionMajor)
	buf = wire.AppendVarint(buf, ClientVersionMinor)
	buf = wire.AppendVarint(buf, protocol.ClientProtocolRevision)
	buf = wire.AppendString(buf, opts.Database)
	buf = wire.AppendString(buf, opts.User)
	buf = wire.AppendString(buf, opts.Password)
	return buf
}

// Addendum builds the post-Hello addendum the server expects once its
// revision supports protocol.MinRevisionWithAddendum: a single empty
// string (the quota key addendum field this core never populates).
func Addendum() []byte {
	return wire.AppendString(nil, "")
}
