package compressio

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// pool is a bounded set of preallocated values. get blocks until one is
// free, so callers of the same pool serialize once all values are out.
type pool[T any] struct {
	slots   chan T
	n       int
	release func(T) error
}

// newPool allocates n values up front. If any allocation fails the values
// created so far are released and the error is returned.
func newPool[T any](n int, alloc func() (T, error), release func(T) error) (*pool[T], error) {
	p := &pool[T]{slots: make(chan T, n), release: release}
	for i := 0; i < n; i++ {
		v, err := alloc()
		if err != nil {
			if cerr := p.close(); cerr != nil {
				err = multierror.Append(err, cerr)
			}
			return nil, err
		}
		p.slots <- v
		p.n++
	}
	return p, nil
}

func (p *pool[T]) get() T {
	return <-p.slots
}

func (p *pool[T]) put(v T) {
	select {
	case p.slots <- v:
	default:
		panic("compressio: workspace returned to a full pool")
	}
}

// close releases every value. All values must have been returned.
func (p *pool[T]) close() error {
	if len(p.slots) != p.n {
		panic(fmt.Sprintf("compressio: closing pool with %d of %d workspaces in use", p.n-len(p.slots), p.n))
	}
	var result *multierror.Error
	for i := 0; i < p.n; i++ {
		v := <-p.slots
		if p.release == nil {
			continue
		}
		if err := p.release(v); err != nil {
			result = multierror.Append(result, err)
		}
	}
	p.n = 0
	return result.ErrorOrNil()
}

// workspace is the scratch state one compression call borrows. Only the
// fields of the workspace's codec are set.
type workspace struct {
	typ     Type
	scratch []byte

	lz4    *lz4.Compressor
	flate  *flateState
	zstd   *zstd.Encoder
	brotli *brotli.Writer
}

// decompressWorkspace carries a decoder for every codec, so any extent
// already on disk can be read whatever the current feature bits are.
type decompressWorkspace struct {
	flate  io.ReadCloser
	zstd   *zstd.Decoder
	brotli *brotli.Reader
}

const (
	// lz4 hash table of the block compressor
	lz4CompressorMem = 1 << 16

	// raw DEFLATE with a 32KiB window and memory level 8
	deflateWindowBits = 15
	deflateMemLevel   = 8
	inflateStateMem   = 7 << 10

	// snappy's largest encoder hash table
	snappyTableMem = 1 << 15

	// brotli decoder ring buffer and tables beyond its window
	brotliTableMem = 1 << 15
)

// windowLog returns the base-2 log of the smallest power-of-two window that
// covers maxExtent bytes, clamped to [lo, hi].
func windowLog(maxExtent, lo, hi int) int {
	l := bits.Len(uint(maxExtent - 1))
	return max(lo, min(hi, l))
}

func zstdWindowSize(maxExtent int) int {
	return 1 << windowLog(maxExtent, bits.Len(uint(zstd.MinWindowSize-1)), 27)
}

func brotliWindowLog(maxExtent int) int {
	return windowLog(maxExtent, 10, 24)
}

// zstdCompressBound is the worst-case zstd frame size for n input bytes.
func zstdCompressBound(n int) int {
	return n + n>>8 + 64
}

// workspaceSize is the memory budget of one codec's workspaces.
type workspaceSize struct {
	compress   int
	decompress int
}

// workspaceSizes derives each codec's budget from the encoded extent limit
// alone.
func workspaceSizes(maxExtent int) [typeNR]workspaceSize {
	var s [typeNR]workspaceSize

	s[TypeLZ4] = workspaceSize{
		compress: lz4CompressorMem + lz4.CompressBlockBound(maxExtent),
	}
	s[TypeLZ4Old] = s[TypeLZ4]

	s[TypeGzip] = workspaceSize{
		compress:   1<<(deflateWindowBits+2) + 1<<(deflateMemLevel+9),
		decompress: 1<<deflateWindowBits + inflateStateMem,
	}

	zw := zstdWindowSize(maxExtent)
	s[TypeZstd] = workspaceSize{
		compress:   6*zw + zstdCompressBound(maxExtent),
		decompress: 2 * zw,
	}

	s[TypeSnappy] = workspaceSize{
		compress: snappyTableMem + snappy.MaxEncodedLen(maxExtent),
	}

	bw := 1 << brotliWindowLog(maxExtent)
	s[TypeBrotli] = workspaceSize{
		compress:   4*bw + brotliTableMem,
		decompress: bw + brotliTableMem,
	}
	return s
}

// decompressWorkspaceSize is the largest decompression budget of any codec.
func decompressWorkspaceSize(maxExtent int) int {
	size := 0
	for _, s := range workspaceSizes(maxExtent) {
		size = max(size, s.decompress)
	}
	return size
}

// newWorkspace allocates a compression workspace for typ.
func (c *FS) newWorkspace(typ Type) (*workspace, error) {
	ws := &workspace{typ: typ}
	var err error

	switch typ {
	case TypeLZ4:
		ws.lz4 = &lz4.Compressor{}
		ws.scratch = make([]byte, lz4.CompressBlockBound(c.maxExtentBytes))
	case TypeGzip:
		ws.flate, err = newFlateState(c.config.GzipLevel)
	case TypeZstd:
		ws.zstd, err = newZstdEncoder(c.config.ZstdLevel, c.maxExtentBytes)
		ws.scratch = make([]byte, 0, zstdCompressBound(c.maxExtentBytes))
	case TypeSnappy:
		ws.scratch = make([]byte, snappy.MaxEncodedLen(c.maxExtentBytes))
	case TypeBrotli:
		ws.brotli = newBrotliWriter(c.config.BrotliLevel, c.maxExtentBytes)
	default:
		return nil, fmt.Errorf("%w: no workspace for %s", ErrUnsupportedType, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s workspace: %v", ErrNoMemory, typ, err)
	}
	return ws, nil
}

func releaseWorkspace(ws *workspace) error {
	if ws.zstd != nil {
		return ws.zstd.Close()
	}
	return nil
}

// newDecompressWorkspace allocates decoders for every codec.
func (c *FS) newDecompressWorkspace() (*decompressWorkspace, error) {
	dec, err := newZstdDecoder(c.maxExtentBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decoder: %v", ErrNoMemory, err)
	}
	return &decompressWorkspace{
		flate:  newFlateReader(),
		zstd:   dec,
		brotli: newBrotliReader(),
	}, nil
}

func releaseDecompressWorkspace(ws *decompressWorkspace) error {
	ws.zstd.Close()
	return ws.flate.Close()
}
