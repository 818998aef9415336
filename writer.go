package compressio

import (
	"fmt"
	"io"
	"io/fs"
	"sync"
)

// Extent is one unit of data as the write path persists it.
type Extent struct {
	Descriptor Descriptor

	// Size is the number of logical bytes the extent holds. Data stored
	// uncompressed is padded to whole sectors, so Size can be less than
	// the live size.
	Size int

	// Data is the on-disk payload: compressed and padded to the block
	// size, or the plain bytes padded to a sector.
	Data []byte
}

// ExtentWriter cuts a byte stream into extents of up to encoded_extent_max
// bytes, compresses each one and hands it to a sink. When only part of the
// buffered data fits compressed, the rest is carried into the next extent.
type ExtentWriter struct {
	c    *FS
	typ  Type
	sink func(Extent) error

	buf []byte
	dst []byte

	bytesWritten int64
	extents      int
	closed       bool
	mu           sync.Mutex
}

// NewExtentWriter returns a writer compressing with opt. The option's
// feature is provisioned and persisted first.
func (c *FS) NewExtentWriter(opt Opt, sink func(Extent) error) (*ExtentWriter, error) {
	if err := c.CheckSetHasCompressedData(opt); err != nil {
		return nil, err
	}
	return &ExtentWriter{
		c:    c,
		typ:  opt.Type(),
		sink: sink,
		buf:  make([]byte, 0, c.maxExtentBytes),
		dst:  make([]byte, c.maxExtentBytes),
	}, nil
}

// Write buffers p, emitting an extent each time a full one is buffered.
func (w *ExtentWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, fs.ErrClosed
	}

	for len(p) > 0 {
		m := copy(w.buf[len(w.buf):cap(w.buf)], p)
		w.buf = w.buf[:len(w.buf)+m]
		p = p[m:]
		n += m
		w.bytesWritten += int64(m)

		if len(w.buf) == cap(w.buf) {
			if err := w.emit(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// Close emits whatever is still buffered.
func (w *ExtentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	for len(w.buf) > 0 {
		if err := w.emit(); err != nil {
			return err
		}
	}
	return nil
}

// BytesWritten returns the number of bytes accepted so far.
func (w *ExtentWriter) BytesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytesWritten
}

// Extents returns the number of extents emitted so far.
func (w *ExtentWriter) Extents() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.extents
}

// emit writes one extent from the front of the buffer and keeps what it
// did not consume.
func (w *ExtentWriter) emit() error {
	ext, consumed := w.encode(w.buf)

	if err := w.sink(ext); err != nil {
		return err
	}
	w.extents++

	n := copy(w.buf, w.buf[consumed:])
	w.buf = w.buf[:n]
	return nil
}

func (w *ExtentWriter) encode(data []byte) (Extent, int) {
	if w.typ != TypeNone && !(w.c.config.AutoDetect && IsCompressed(data)) {
		res := w.c.Compress(RegionFromBytes(w.dst), RegionFromBytes(data), w.typ)
		if res.Type != TypeNone {
			sectors := uint32(res.ConsumedLen >> SectorShift)
			return Extent{
				Descriptor: Descriptor{
					Type:             res.Type,
					CompressedSize:   uint32(res.CompressedLen >> SectorShift),
					UncompressedSize: sectors,
					LiveSize:         sectors,
				},
				Size: res.ConsumedLen,
				Data: append([]byte(nil), w.dst[:res.CompressedLen]...),
			}, res.ConsumedLen
		}
	}

	padded := roundUp(len(data), 1<<SectorShift)
	b := make([]byte, padded)
	copy(b, data)
	sectors := uint32(padded >> SectorShift)
	return Extent{
		Descriptor: Descriptor{
			Type:             TypeNone,
			CompressedSize:   sectors,
			UncompressedSize: sectors,
			LiveSize:         sectors,
		},
		Size: len(data),
		Data: b,
	}, len(data)
}

// ExtentReader reads back the bytes of a sequence of extents.
type ExtentReader struct {
	c    *FS
	next func() (Extent, error)

	buf []byte
	pos int
	err error
}

// NewExtentReader returns a reader over the extents next yields. next
// returns io.EOF after the last extent.
func (c *FS) NewExtentReader(next func() (Extent, error)) *ExtentReader {
	return &ExtentReader{c: c, next: next}
}

func (r *ExtentReader) Read(p []byte) (int, error) {
	for r.pos == len(r.buf) {
		if r.err != nil {
			return 0, r.err
		}
		ext, err := r.next()
		if err != nil {
			r.err = err
			continue
		}
		r.err = r.load(ext)
	}

	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

func (r *ExtentReader) load(ext Extent) error {
	d := ext.Descriptor
	if err := d.Validate(r.c.encodedExtentMax); err != nil {
		return err
	}
	if ext.Size < 0 || ext.Size > d.LiveBytes() {
		return fmt.Errorf("%w: extent holds %d bytes, live size is %d", ErrIO, ext.Size, d.LiveBytes())
	}

	if d.Type == TypeNone {
		if len(ext.Data) < d.OffsetBytes()+ext.Size {
			return fmt.Errorf("%w: short uncompressed extent", ErrIO)
		}
		r.buf = ext.Data[d.OffsetBytes() : d.OffsetBytes()+ext.Size]
		r.pos = 0
		return nil
	}

	live := make([]byte, d.LiveBytes())
	if err := r.c.Decompress(RegionFromBytes(ext.Data), RegionFromBytes(live), d); err != nil {
		return err
	}
	r.buf = live[:ext.Size]
	r.pos = 0
	return nil
}

var _ io.WriteCloser = (*ExtentWriter)(nil)
