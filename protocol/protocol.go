// Package protocol holds the wire-level constants shared by encode, parse,
// and conn: client/server packet codes, query stage and compression-state
// codes, and the server-revision gates that enable optional fields. None of
// these values are configurable; they are fixed by the ClickHouse native
// protocol itself.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package protocol

// ClientCodes are the packet codes a client may send.
const (
	ClientHello = 0
	ClientQuery = 1
	ClientData  = 2
	ClientCancel = 3
	ClientPing  = 4
)

// ServerCodes are the packet codes a server may send.
const (
	ServerHello                = 0
	ServerData                 = 1
	ServerException            = 2
	ServerProgress             = 3
	ServerPong                 = 4
	ServerEndOfStream          = 5
	ServerProfileInfo          = 6
	ServerTotals               = 7
	ServerExtremes             = 8
	ServerTablesStatusResponse = 9
	ServerLog                  = 10
	ServerTableColumns         = 11
	ServerPartUUIDs            = 12
	ServerReadTaskRequest      = 13
	ServerProfileEvents        = 14
)

// Query processing stage requested by the client.
const StageComplete = 2

// Compression state advertised by the client; this core always sends Disable.
const (
	CompressionDisable = 0
	CompressionEnable  = 1
)

// Revision gates: a field is present once the server-advertised revision is
// greater than or equal to the threshold.
const (
	MinRevisionWithTemporaryTables              = 50264
	MinRevisionWithTotalRowsInProgress          = 51554
	MinRevisionWithBlockInfo                    = 51903
	MinRevisionWithClientInfo                   = 54032
	MinRevisionWithServerTimezone                = 54058
	MinRevisionWithQuotaKeyInClientInfo         = 54060
	MinRevisionWithServerDisplayName             = 54372
	MinRevisionWithVersionPatch                 = 54401
	MinRevisionWithClientWriteInfo               = 54420
	MinRevisionWithSettingsSerializedAsStrings  = 54429
	MinRevisionWithInterserverSecret            = 54441
	MinRevisionWithOpenTelemetry                 = 54442
	MinRevisionWithDistributedDepth              = 54448
	MinRevisionWithInitialQueryStartTime         = 54449
	MinRevisionWithParallelReplicas              = 54453
	MinRevisionWithCustomSerialization           = 54454
	MinRevisionWithAddendum                      = 54458
	MinRevisionWithParameters                    = 54459
)

// ClientProtocolRevision is the revision this core advertises in Hello: the
// maximum feature set it understands (parameters-after-query).
const ClientProtocolRevision = MinRevisionWithParameters
