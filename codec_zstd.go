package compressio

import "github.com/klauspost/compress/zstd"

// newZstdEncoder returns a single-threaded encoder whose window just covers
// one encoded extent.
func newZstdEncoder(level, maxExtent int) (*zstd.Encoder, error) {
	opts := []zstd.EOption{
		zstd.WithEncoderConcurrency(1),
		zstd.WithWindowSize(zstdWindowSize(maxExtent)),
		zstd.WithEncoderCRC(false),
		zstd.WithZeroFrames(true),
	}
	if level != 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	}
	return zstd.NewWriter(nil, opts...)
}

func newZstdDecoder(maxExtent int) (*zstd.Decoder, error) {
	return zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(uint64(zstdWindowSize(maxExtent))),
	)
}

// compressZstd writes a zstd frame after a 4-byte length prefix.
func compressZstd(ws *workspace, dst, src []byte) attempt {
	if len(dst) <= lenPrefix {
		return attempt{}
	}

	out := ws.zstd.EncodeAll(src, ws.scratch[:0])
	if cap(out) > cap(ws.scratch) {
		ws.scratch = out[:0]
	}
	if len(out) > len(dst)-lenPrefix {
		return attempt{}
	}

	putPrefix(dst, len(out))
	copy(dst[lenPrefix:], out)
	return attempt{ok: true, written: lenPrefix + len(out)}
}

func decompressZstd(ws *decompressWorkspace, dst, src []byte) error {
	payload, err := prefixed(src)
	if err != nil {
		return err
	}

	out, err := ws.zstd.DecodeAll(payload, dst[:0:len(dst)])
	if err != nil {
		return err
	}
	if len(out) != len(dst) {
		return errLength
	}
	if len(out) > 0 && &out[0] != &dst[0] {
		copy(dst, out)
	}
	return nil
}
