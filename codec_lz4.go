package compressio

import (
	"errors"

	"github.com/pierrec/lz4/v4"
)

// compressLZ4 compresses src as one LZ4 block. The block is built in the
// workspace's bound-sized scratch buffer, so when it does not fit in dst the
// produced size tells how much input would have fit.
func compressLZ4(ws *workspace, dst, src []byte) attempt {
	n, err := ws.lz4.CompressBlock(src, ws.scratch)
	if err != nil || n == 0 {
		return attempt{}
	}
	if n > len(dst) {
		return attempt{hint: len(src) * len(dst) / n}
	}
	copy(dst, ws.scratch[:n])
	return attempt{ok: true, written: n}
}

var errLZ4Block = errors.New("lz4: no block end at decoded length")

// decompressLZ4 decodes an LZ4 block into exactly len(dst) bytes.
//
// The stored block is followed by zero padding up to the block size and
// carries no length of its own, so the end of the block is found first and
// only that prefix is decoded.
func decompressLZ4(dst, src []byte) error {
	end, ok := lz4BlockEnd(src, len(dst))
	if !ok {
		return errLZ4Block
	}
	n, err := lz4.UncompressBlock(src[:end], dst)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return errLength
	}
	return nil
}

// lz4BlockEnd walks the sequence headers of an LZ4 block and returns the
// offset just past the literals that bring the output to want bytes. Only
// lengths and offsets are read, so the walk is linear in len(src).
func lz4BlockEnd(src []byte, want int) (int, bool) {
	si, di := 0, 0
	for si < len(src) {
		token := src[si]
		si++

		lit, ok := lz4Length(src, &si, int(token>>4))
		if !ok || lit > len(src)-si {
			return 0, false
		}
		si += lit
		di += lit
		if di == want {
			return si, true
		}
		if di > want || si+2 > len(src) {
			return 0, false
		}

		offset := int(src[si]) | int(src[si+1])<<8
		si += 2
		if offset == 0 || offset > di {
			return 0, false
		}

		match, ok := lz4Length(src, &si, int(token&0xf))
		if !ok {
			return 0, false
		}
		di += match + 4
		if di > want {
			return 0, false
		}
	}
	return 0, false
}

// lz4Length reads the 255-continued extension of a 4-bit length field.
func lz4Length(src []byte, si *int, n int) (int, bool) {
	if n != 0xf {
		return n, true
	}
	for {
		if *si >= len(src) {
			return 0, false
		}
		b := src[*si]
		*si++
		n += int(b)
		if b != 0xff {
			return n, true
		}
	}
}
