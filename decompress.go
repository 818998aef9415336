package compressio

import "fmt"

// Decompress decodes the extent in src described by crc into dst.
//
// If dst is exactly the uncompressed size it receives all of the
// uncompressed data. Otherwise it receives the live part, starting at the
// descriptor's offset, which is what is left referenced after partial
// overwrites. Corrupt descriptors and data are reported as errors wrapping
// ErrIO.
func (c *FS) Decompress(src, dst *Region, crc Descriptor) error {
	if err := c.checkDescriptor(crc); err != nil {
		return err
	}
	dstLen := crc.UncompressedBytes()

	var buf bbuf
	if dst.Size() == dstLen {
		buf = c.mapOrBounce(dst, Write)
	} else {
		buf = c.bounceAlloc(dstLen, Write)
	}
	defer c.unbounce(&buf)

	if err := c.uncompressRegion(src, buf.b[:dstLen], crc); err != nil {
		return err
	}

	switch {
	case buf.kind == bounceNone:
	case dst.Size() == dstLen:
		dst.CopyFrom(buf.b[:dstLen])
	default:
		off := crc.OffsetBytes()
		dst.CopyFrom(buf.b[off : off+crc.LiveBytes()])
	}
	return nil
}

// DecompressInPlace replaces the compressed extent in r with its live data
// stored uncompressed, and rewrites crc to match. r must have room for the
// live data.
func (c *FS) DecompressInPlace(r *Region, crc *Descriptor) error {
	if err := c.checkDescriptor(*crc); err != nil {
		c.log.Error("error rewriting existing data: extent too big", "err", err)
		return err
	}
	dstLen := crc.UncompressedBytes()

	buf := c.bounceAlloc(dstLen, Write)
	defer c.unbounce(&buf)

	if err := c.uncompressRegion(r, buf.b[:dstLen], *crc); err != nil {
		c.log.Error("error rewriting existing data: decompression error", "err", err)
		return err
	}

	off := crc.OffsetBytes()
	r.Resize(crc.LiveBytes())
	r.CopyFrom(buf.b[off : off+crc.LiveBytes()])
	crc.resetUncompressed()
	return nil
}

func (c *FS) checkDescriptor(crc Descriptor) error {
	if err := crc.Validate(c.encodedExtentMax); err != nil {
		return err
	}
	if crc.Type == TypeNone || !crc.Type.Valid() {
		return fmt.Errorf("%w: %w %s", ErrIO, ErrUnsupportedType, crc.Type)
	}
	return nil
}

// uncompressRegion decodes src into dst, which is exactly the uncompressed
// size of the extent.
func (c *FS) uncompressRegion(src *Region, dst []byte, crc Descriptor) error {
	if n := crc.CompressedBytes(); n > 0 && src.Size() > n {
		src = src.Window(0, n)
	}
	srcBuf := c.mapOrBounce(src, Read)
	defer c.unbounce(&srcBuf)

	var ws *decompressWorkspace
	if crc.Type != TypeLZ4 && crc.Type != TypeLZ4Old {
		p := c.decompressWorkspace.Load()
		if p == nil {
			return fmt.Errorf("%w: %s", ErrNotProvisioned, crc.Type)
		}
		ws = p.get()
		defer p.put(ws)
	}

	if err := uncompress(ws, dst, srcBuf.b, crc.Type); err != nil {
		return err
	}

	c.incrementStat(&c.stats.ExtentsDecompressed)
	c.addBytes(&c.stats.BytesDecompressed, int64(len(dst)))
	return nil
}
