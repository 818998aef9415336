package compressio

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// flateState is a raw DEFLATE writer reused across calls.
type flateState struct {
	w *flate.Writer
}

func newFlateState(level int) (*flateState, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}
	w, err := flate.NewWriter(io.Discard, level)
	if err != nil {
		return nil, err
	}
	return &flateState{w: w}, nil
}

// compressGzip writes src as a raw DEFLATE stream. The codec cannot tell how
// much input would have fit, so failure carries no hint.
func compressGzip(ws *workspace, dst, src []byte) attempt {
	out := newBoundedWriter(dst)
	ws.flate.w.Reset(out)

	if _, err := ws.flate.w.Write(src); err != nil {
		return attempt{}
	}
	if err := ws.flate.w.Close(); err != nil {
		return attempt{}
	}
	return attempt{ok: true, written: out.n}
}

func newFlateReader() io.ReadCloser {
	return flate.NewReader(bytes.NewReader(nil))
}

func decompressGzip(ws *decompressWorkspace, dst, src []byte) error {
	if err := ws.flate.(flate.Resetter).Reset(bytes.NewReader(src), nil); err != nil {
		return err
	}
	return readExactly(ws.flate, dst)
}
