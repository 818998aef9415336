package compressio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/noxer/bytewriter"
)

// attempt is the outcome of one compression attempt. When ok is false and
// hint is positive, hint is how many source bytes the codec estimates
// would fit in the destination.
type attempt struct {
	ok      bool
	written int
	hint    int
}

// attemptCompress compresses all of src into dst using the codec for typ.
// It never writes past len(dst).
func attemptCompress(ws *workspace, dst, src []byte, typ Type) attempt {
	switch typ {
	case TypeLZ4:
		return compressLZ4(ws, dst, src)
	case TypeGzip:
		return compressGzip(ws, dst, src)
	case TypeZstd:
		return compressZstd(ws, dst, src)
	case TypeSnappy:
		return compressSnappy(ws, dst, src)
	case TypeBrotli:
		return compressBrotli(ws, dst, src)
	default:
		panic(fmt.Sprintf("compressio: cannot compress with %s", typ))
	}
}

// uncompress decodes src into exactly len(dst) bytes. Any other outcome is
// reported as ErrDecompress.
func uncompress(ws *decompressWorkspace, dst, src []byte, typ Type) error {
	var err error
	switch typ {
	case TypeLZ4Old, TypeLZ4:
		err = decompressLZ4(dst, src)
	case TypeGzip:
		err = decompressGzip(ws, dst, src)
	case TypeZstd:
		err = decompressZstd(ws, dst, src)
	case TypeSnappy:
		err = decompressSnappy(dst, src)
	case TypeBrotli:
		err = decompressBrotli(ws, dst, src)
	default:
		panic(fmt.Sprintf("compressio: cannot decompress %s", typ))
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecompress, typ, err)
	}
	return nil
}

// lenPrefix is the size of the little-endian payload length written in
// front of zstd, snappy and brotli streams.
const lenPrefix = 4

var errPayloadLength = errors.New("payload length exceeds source")

func putPrefix(dst []byte, n int) {
	binary.LittleEndian.PutUint32(dst, uint32(n))
}

// prefixed returns the payload that follows src's length prefix.
func prefixed(src []byte) ([]byte, error) {
	if len(src) < lenPrefix {
		return nil, errPayloadLength
	}
	n := binary.LittleEndian.Uint32(src)
	if uint64(n) > uint64(len(src)-lenPrefix) {
		return nil, fmt.Errorf("%w: %d > %d", errPayloadLength, n, len(src)-lenPrefix)
	}
	return src[lenPrefix : lenPrefix+int(n)], nil
}

var errLength = errors.New("decoded length mismatch")

// readExactly fills dst from r and requires r to end right there.
func readExactly(r io.Reader, dst []byte) error {
	if _, err := io.ReadFull(r, dst); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errLength
		}
		return err
	}
	var one [1]byte
	switch _, err := io.ReadFull(r, one[:]); err {
	case io.EOF:
		return nil
	case nil:
		return errLength
	default:
		return err
	}
}

// boundedWriter writes into a fixed slice and fails instead of growing.
type boundedWriter struct {
	w    *bytewriter.Writer
	n    int
	size int
}

func newBoundedWriter(b []byte) *boundedWriter {
	return &boundedWriter{w: bytewriter.New(b), size: len(b)}
}

func (b *boundedWriter) Write(p []byte) (int, error) {
	if len(p) > b.size-b.n {
		return 0, io.ErrShortWrite
	}
	n, err := b.w.Write(p)
	b.n += n
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}
