package codec

import (
	"github.com/pierrec/lz4/v3"
)

// LZ4Codec wraps pierrec/lz4's block codec. Never exercised by conn's wire
// path (see package doc); present so a future compressed-transport layer
// built on this core has a ready collaborator.
type LZ4Codec struct {
	table []int
}

func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{table: make([]int, 1<<16)}
}

func (c *LZ4Codec) Name() string { return "lz4" }

func (c *LZ4Codec) Compress(dst, src []byte) ([]byte, error) {
	if cap(dst) < lz4.CompressBlockBound(len(src)) {
		dst = make([]byte, lz4.CompressBlockBound(len(src)))
	} else {
		dst = dst[:cap(dst)]
	}
	n, err := lz4.CompressBlock(src, dst, c.table)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible per lz4's convention; the source carries the
		// frame uncompressed.
		return append(dst[:0], src...), nil
	}
	return dst[:n], nil
}

// Decompress appends the decoded block to dst. An LZ4 block does not record
// its decoded length, so the scratch buffer doubles until the block fits,
// up to LZ4's maximum expansion of 255x.
func (c *LZ4Codec) Decompress(dst, src []byte) ([]byte, error) {
	size := 4*len(src) + 64
	for {
		buf := make([]byte, size)
		n, err := lz4.UncompressBlock(src, buf)
		if err == nil {
			return append(dst, buf[:n]...), nil
		}
		if size >= 255*len(src)+64 {
			return nil, err
		}
		size *= 2
	}
}
