package compressio

import "fmt"

// Result is the outcome of compressing one extent.
type Result struct {
	// Type is the codec the data was compressed with, or TypeNone if it
	// should be stored uncompressed.
	Type Type

	// CompressedLen is the number of bytes written to dst, a multiple of
	// the block size including zero padding.
	CompressedLen int

	// ConsumedLen is the number of source bytes the compressed data
	// covers. It may be less than the source; the caller writes the rest
	// as another extent.
	ConsumedLen int
}

// Compress compresses the start of src into dst with typ.
//
// At most encoded_extent_max bytes of src are considered, in whole blocks,
// and dst is used up to the size of that source, so compressed data is never
// larger than the data it replaces. The codec's feature must have been set with
// CheckSetHasCompressedData. A Result with Type TypeNone means compression
// was skipped or did not pay off; dst then holds nothing useful.
func (c *FS) Compress(dst, src *Region, typ Type) Result {
	src = src.Window(0, roundDown(min(src.Size(), c.maxExtentBytes), c.blockSize))
	dst = dst.Window(0, roundDown(min(dst.Size(), src.Size()), c.blockSize))

	typ = typ.normalize()
	if typ == TypeNone {
		return Result{}
	}

	res := c.compress(dst, src, typ)
	if res.Type == TypeNone {
		c.incrementStat(&c.stats.ExtentsSkipped)
		return res
	}

	c.incrementStat(&c.stats.ExtentsCompressed)
	c.addBytes(&c.stats.BytesIn, int64(res.ConsumedLen))
	c.addBytes(&c.stats.BytesCompressed, int64(res.CompressedLen))
	c.stats.IncrementTypeCount(res.Type)
	return res
}

// compress runs the adaptive loop: try the whole source, and while the
// output does not fit shrink the source, in whole blocks, either to the
// codec's hint or halfway towards the destination size.
func (c *FS) compress(dst, src *Region, typ Type) Result {
	block := c.blockSize

	// A single block cannot shrink on disk.
	if src.Size() <= block {
		return Result{}
	}

	p := c.compressWorkspace[typ].Load()
	if p == nil {
		panic(fmt.Sprintf("compressio: %s compression used before its feature was set", typ))
	}

	dstBuf := c.mapOrBounce(dst, Write)
	defer c.unbounce(&dstBuf)
	srcBuf := c.mapOrBounce(src, Read)
	defer c.unbounce(&srcBuf)

	dstCap := dst.Size()
	srcLen := src.Size()
	dstLen := 0

	ws := p.get()
	for {
		a := attemptCompress(ws, dstBuf.b[:dstCap], srcBuf.b[:srcLen], typ)
		if a.ok {
			dstLen = a.written
			break
		}

		if a.hint > 0 {
			if a.hint >= srcLen {
				panic(fmt.Sprintf("compressio: %s hint %d not below source length %d", typ, a.hint, srcLen))
			}
			srcLen = a.hint
		} else {
			srcLen -= (srcLen - dstCap) / 2
		}
		srcLen = roundDown(srcLen, block)

		if srcLen <= dstCap || srcLen <= block {
			break
		}
	}
	p.put(ws)

	if dstLen == 0 {
		return Result{}
	}

	padded := roundUp(dstLen, block)
	if padded >= srcLen {
		return Result{}
	}
	if padded > dstCap {
		panic(fmt.Sprintf("compressio: %s output padded to %d bytes overflows destination of %d", typ, padded, dstCap))
	}
	clear(dstBuf.b[dstLen:padded])
	dstLen = padded

	if dstBuf.kind != bounceNone {
		dst.CopyFrom(dstBuf.b[:dstLen])
	}

	if dstLen == 0 || dstLen > dst.Size() || dstLen%block != 0 {
		panic(fmt.Sprintf("compressio: bad compressed length %d (destination %d, block %d)", dstLen, dst.Size(), block))
	}
	if srcLen == 0 || srcLen > src.Size() || srcLen%block != 0 {
		panic(fmt.Sprintf("compressio: bad consumed length %d (source %d, block %d)", srcLen, src.Size(), block))
	}

	return Result{Type: typ, CompressedLen: dstLen, ConsumedLen: srcLen}
}

func roundDown(n, block int) int {
	return n &^ (block - 1)
}

func roundUp(n, block int) int {
	return roundDown(n+block-1, block)
}
