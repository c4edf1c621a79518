package codec

import (
	"github.com/klauspost/compress/zstd"
)

// ZstdCodec wraps klauspost/compress/zstd. Like LZ4Codec, never exercised
// by conn's wire path; present purely as a collaborator for the
// uncompressed-only core to accept without committing to one compression
// algorithm.
type ZstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewZstdCodec() (*ZstdCodec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &ZstdCodec{enc: enc, dec: dec}, nil
}

func (c *ZstdCodec) Name() string { return "zstd" }

func (c *ZstdCodec) Compress(dst, src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, dst), nil
}

func (c *ZstdCodec) Decompress(dst, src []byte) ([]byte, error) {
	return c.dec.DecodeAll(src, dst)
}

// Close releases the decoder's background goroutines. The encoder has no
// equivalent teardown requirement for EncodeAll-only use.
func (c *ZstdCodec) Close() {
	c.dec.Close()
}
