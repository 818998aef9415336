package compressio

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

func newBrotliWriter(level, maxExtent int) *brotli.Writer {
	if level == 0 {
		level = brotli.DefaultCompression
	}
	return brotli.NewWriterOptions(io.Discard, brotli.WriterOptions{
		Quality: level,
		LGWin:   brotliWindowLog(maxExtent),
	})
}

func newBrotliReader() *brotli.Reader {
	return brotli.NewReader(bytes.NewReader(nil))
}

// compressBrotli writes a brotli stream after a 4-byte length prefix. Like
// DEFLATE it gives no hint on failure.
func compressBrotli(ws *workspace, dst, src []byte) attempt {
	if len(dst) <= lenPrefix {
		return attempt{}
	}

	out := newBoundedWriter(dst[lenPrefix:])
	ws.brotli.Reset(out)

	if _, err := ws.brotli.Write(src); err != nil {
		return attempt{}
	}
	if err := ws.brotli.Close(); err != nil {
		return attempt{}
	}

	putPrefix(dst, out.n)
	return attempt{ok: true, written: lenPrefix + out.n}
}

func decompressBrotli(ws *decompressWorkspace, dst, src []byte) error {
	payload, err := prefixed(src)
	if err != nil {
		return err
	}
	if err := ws.brotli.Reset(bytes.NewReader(payload)); err != nil {
		return err
	}
	return readExactly(ws.brotli, dst)
}
