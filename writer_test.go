package compressio

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtentWriterRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 511, 4096, 4097, 10000, 65536, 65537, 200000}

	for _, opt := range allCodecs {
		c := newCodecFS(t, opt)
		for _, size := range sizes {
			data := generateTestData(size)

			extents, err := c.CompressBytes(data, opt)
			require.NoError(t, err, "%s/%d", opt, size)

			for _, e := range extents {
				d := e.Descriptor
				assert.LessOrEqual(t, d.UncompressedSize, c.EncodedExtentMax())
				assert.Equal(t, d.CompressedBytes(), len(e.Data))
				assert.Zero(t, len(e.Data)%(1<<SectorShift))
				if d.Type != TypeNone {
					assert.Equal(t, opt.Type(), d.Type)
					assert.Zero(t, len(e.Data)%PageSize)
					assert.Less(t, len(e.Data), e.Size)
				}
			}

			got, err := c.DecompressBytes(extents)
			require.NoError(t, err, "%s/%d", opt, size)
			assert.True(t, bytes.Equal(data, got), "%s/%d: data mismatch", opt, size)

			logical, _ := ExtentsSize(extents)
			assert.Equal(t, int64(size), logical)
		}
	}
}

// The unaligned tail of a stream is stored uncompressed.
func TestExtentWriterTail(t *testing.T) {
	c := newCodecFS(t, OptZstd)
	data := generateTestData(3*PageSize + 100)

	extents, err := c.CompressBytes(data, OptZstd)
	require.NoError(t, err)
	require.Len(t, extents, 2)

	assert.Equal(t, TypeZstd, extents[0].Descriptor.Type)
	assert.Equal(t, 3*PageSize, extents[0].Size)

	tail := extents[1]
	assert.Equal(t, TypeNone, tail.Descriptor.Type)
	assert.Equal(t, 100, tail.Size)
	assert.Len(t, tail.Data, 1<<SectorShift)
	assert.Equal(t, data[3*PageSize:], tail.Data[:100])
}

func TestExtentWriterIncompressible(t *testing.T) {
	c := newCodecFS(t, OptLZ4)
	data := generateIncompressibleData(2 * 65536)

	extents, err := c.CompressBytes(data, OptLZ4)
	require.NoError(t, err)
	require.Len(t, extents, 2)
	for _, e := range extents {
		assert.Equal(t, TypeNone, e.Descriptor.Type)
		assert.Equal(t, 65536, e.Size)
	}

	got, err := c.DecompressBytes(extents)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestExtentWriterMixed(t *testing.T) {
	c := newCodecFS(t, OptSnappy)
	data := slices.Concat(
		generateHighlyCompressibleData(40000),
		generateIncompressibleData(70000),
		generateTestData(30000),
	)

	extents, err := c.CompressBytes(data, OptSnappy)
	require.NoError(t, err)
	assert.Equal(t, TypeSnappy, extents[0].Descriptor.Type)

	got, err := c.DecompressBytes(extents)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))

	logical, stored := ExtentsSize(extents)
	assert.Equal(t, int64(len(data)), logical)
	assert.Less(t, stored, logical)
}

func TestExtentWriterAutoDetect(t *testing.T) {
	data := slices.Concat([]byte{0x1f, 0x8b, 0x08, 0x00}, generateHighlyCompressibleData(20000))

	t.Run("enabled", func(t *testing.T) {
		c, _ := newTestFS(t, nil)
		extents, err := c.CompressBytes(data, OptZstd)
		require.NoError(t, err)
		require.Len(t, extents, 1)
		assert.Equal(t, TypeNone, extents[0].Descriptor.Type)
		assert.Equal(t, len(data), extents[0].Size)
	})

	t.Run("disabled", func(t *testing.T) {
		c, _ := newTestFS(t, &Config{})
		extents, err := c.CompressBytes(data, OptZstd)
		require.NoError(t, err)
		require.Len(t, extents, 2)
		assert.Equal(t, TypeZstd, extents[0].Descriptor.Type)
	})
}

func TestExtentWriterNone(t *testing.T) {
	c, sb := newTestFS(t, nil)
	data := generateHighlyCompressibleData(70000)

	extents, err := c.CompressBytes(data, OptNone)
	require.NoError(t, err)
	require.Len(t, extents, 2)
	for _, e := range extents {
		assert.Equal(t, TypeNone, e.Descriptor.Type)
	}
	assert.Zero(t, sb.Writes(), "no feature needed")
}

func TestExtentWriterSetsFeature(t *testing.T) {
	c, sb := newTestFS(t, nil)

	_, err := c.NewExtentWriter(OptBrotli, func(Extent) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, FeatureBrotli.Mask(), sb.Features())
}

func TestExtentWriterClosed(t *testing.T) {
	c := newCodecFS(t, OptLZ4)

	var n int
	w, err := c.NewExtentWriter(OptLZ4, func(Extent) error {
		n++
		return nil
	})
	require.NoError(t, err)

	_, err = w.Write(generateTestData(1000))
	require.NoError(t, err)
	assert.Zero(t, w.Extents(), "buffered until close")

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, w.Extents())
	assert.Equal(t, int64(1000), w.BytesWritten())

	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, fs.ErrClosed)
}

func TestExtentWriterSinkError(t *testing.T) {
	c := newCodecFS(t, OptGzip)
	boom := errors.New("disk full")

	w, err := c.NewExtentWriter(OptGzip, func(Extent) error { return boom })
	require.NoError(t, err)

	n, err := w.Write(generateTestData(65536 + 10))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 65536, n)
}

func TestExtentReaderErrors(t *testing.T) {
	c := newCodecFS(t, OptZstd)
	extents, err := c.CompressBytes(generateTestData(65536), OptZstd)
	require.NoError(t, err)
	require.Len(t, extents, 1)

	t.Run("size beyond live data", func(t *testing.T) {
		e := extents[0]
		e.Size = e.Descriptor.LiveBytes() + 1
		_, err := io.ReadAll(c.NewExtentReader(SliceExtents([]Extent{e})))
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("corrupt", func(t *testing.T) {
		e := extents[0]
		e.Data = bytes.Repeat([]byte{0xff}, len(e.Data))
		_, err := io.ReadAll(c.NewExtentReader(SliceExtents([]Extent{e})))
		assert.ErrorIs(t, err, ErrDecompress)
	})

	t.Run("short uncompressed", func(t *testing.T) {
		e := Extent{
			Descriptor: Descriptor{CompressedSize: 1, UncompressedSize: 1, LiveSize: 1},
			Size:       100,
			Data:       make([]byte, 10),
		}
		_, err := io.ReadAll(c.NewExtentReader(SliceExtents([]Extent{e})))
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("source error", func(t *testing.T) {
		boom := errors.New("boom")
		r := c.NewExtentReader(func() (Extent, error) { return Extent{}, boom })
		_, err := r.Read(make([]byte, 10))
		assert.ErrorIs(t, err, boom)
		_, err = r.Read(make([]byte, 10))
		assert.ErrorIs(t, err, boom, "sticky")
	})
}

// A partially overwritten extent reads back only its live sectors.
func TestExtentReaderLiveWindow(t *testing.T) {
	c := newCodecFS(t, OptLZ4)
	data := generateTestData(65536)
	extents, err := c.CompressBytes(data, OptLZ4)
	require.NoError(t, err)
	require.Len(t, extents, 1)

	e := extents[0]
	e.Descriptor.Offset = 16
	e.Descriptor.LiveSize = 8
	e.Size = 8 << SectorShift

	got, err := io.ReadAll(c.NewExtentReader(SliceExtents([]Extent{e})))
	require.NoError(t, err)
	assert.Equal(t, data[16<<SectorShift:24<<SectorShift], got)
}
