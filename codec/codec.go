// Package codec defines the CompressionCodec collaborator used only in
// passing — the connection state machine speaks uncompressed. Options
// carries a CompressionCodec for forward compatibility, but the
// steady-state INSERT pipeline in package conn never calls Compress or
// Decompress on the wire path: every byte this core sends or receives is
// uncompressed, matching protocol.CompressionDisable.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package codec

// CompressionCodec compresses and decompresses a single frame of bytes.
// Implementations must not retain src or dst beyond the call.
type CompressionCodec interface {
	Name() string
	Compress(dst, src []byte) ([]byte, error)
	Decompress(dst, src []byte) ([]byte, error)
}

// disabledCodec is the codec this core actually drives: a pass-through.
type disabledCodec struct{}

func (disabledCodec) Name() string { return "none" }

func (disabledCodec) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (disabledCodec) Decompress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

// Disabled is the no-op codec: Connection.Options.Codec defaults to this.
var Disabled CompressionCodec = disabledCodec{}
