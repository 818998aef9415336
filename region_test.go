package compressio

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionFromPages(t *testing.T) {
	b := generateTestData(3*PageSize + 100)
	r := RegionFromPages(b)

	assert.Equal(t, len(b), r.Size())
	assert.Equal(t, len(b), r.Capacity())

	var lens []int
	for seg := range r.Segments() {
		lens = append(lens, len(seg))
	}
	assert.Equal(t, []int{PageSize, PageSize, PageSize, 100}, lens)
	assert.Equal(t, b, r.Bytes())
}

func TestRegionWindow(t *testing.T) {
	b := generateTestData(4 * PageSize)
	r := NewScatterRegion(len(b))
	require.Equal(t, len(b), r.CopyFrom(b))

	w := r.Window(PageSize-10, PageSize+20)
	assert.Equal(t, PageSize+20, w.Size())
	assert.Equal(t, 3*PageSize+10, w.Capacity())
	assert.Equal(t, b[PageSize-10:2*PageSize+10], w.Bytes())

	var lens []int
	for seg := range w.Segments() {
		lens = append(lens, len(seg))
	}
	assert.Equal(t, []int{10, PageSize, 10}, lens)

	// Windows of windows are relative to the inner window.
	ww := w.Window(5, 10)
	assert.Equal(t, b[PageSize-5:PageSize+5], ww.Bytes())

	assert.Panics(t, func() { r.Window(PageSize, 3*PageSize+1) })
	assert.Panics(t, func() { r.Window(-1, 1) })
}

func TestRegionCopy(t *testing.T) {
	r := NewScatterRegion(2*PageSize + 1)
	data := bytes.Repeat([]byte("xyz"), 1000)

	w := r.Window(PageSize-1, len(data))
	assert.Equal(t, len(data), w.CopyFrom(data))
	assert.Equal(t, data, w.Bytes())

	// Only the window was written.
	assert.Equal(t, make([]byte, PageSize-1), r.Window(0, PageSize-1).Bytes())

	// Short buffers copy what fits.
	short := make([]byte, 10)
	assert.Equal(t, 10, w.CopyTo(short))
	assert.Equal(t, data[:10], short)
	assert.Equal(t, 3, w.CopyFrom([]byte("abc")))
	assert.Equal(t, "abc", string(w.Bytes()[:3]))
}

func TestRegionResize(t *testing.T) {
	r := RegionFromBytes(make([]byte, 8192))
	w := r.Window(4096, 100)

	w.Resize(4096)
	assert.Equal(t, 4096, w.Size())
	w.Resize(0)
	assert.Zero(t, w.Size())
	assert.Panics(t, func() { w.Resize(4097) })
	assert.Panics(t, func() { w.Resize(-1) })
}

func TestRegionContiguous(t *testing.T) {
	backing := generateTestData(4 * PageSize)

	tests := []struct {
		name   string
		region *Region
		ok     bool
	}{
		{"single vec", RegionFromBytes(backing), true},
		{"pages of one array", RegionFromPages(backing), true},
		{"window across pages", RegionFromPages(backing).Window(100, 2*PageSize), true},
		{"scattered pages", NewScatterRegion(2 * PageSize), false},
		{"single scattered page", NewScatterRegion(2 * PageSize).Window(10, 100), true},
		{"pages out of order", NewRegion(
			Vec{Page: backing[PageSize : 2*PageSize], Len: PageSize},
			Vec{Page: backing[:PageSize], Len: PageSize},
		), false},
		{"gap between vecs", NewRegion(
			Vec{Page: backing[:PageSize], Len: PageSize - 1},
			Vec{Page: backing[PageSize : 2*PageSize], Len: PageSize},
		), false},
		{"empty", RegionFromBytes(nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := tt.region.contiguous()
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.region.Size(), len(b))
			assert.Equal(t, tt.region.Size(), cap(b), "capped at the window")
			assert.Equal(t, tt.region.Bytes(), b)
		})
	}
}

// A view returned by contiguous aliases the region's memory.
func TestRegionContiguousAliases(t *testing.T) {
	backing := make([]byte, 2*PageSize)
	r := RegionFromPages(backing).Window(PageSize/2, PageSize)

	b, ok := r.contiguous()
	require.True(t, ok)
	copy(b, bytes.Repeat([]byte{0xaa}, len(b)))

	want := slices.Concat(
		make([]byte, PageSize/2),
		bytes.Repeat([]byte{0xaa}, PageSize),
		make([]byte, PageSize/2),
	)
	assert.Equal(t, want, backing)
}

func TestNewRegionBadVec(t *testing.T) {
	assert.Panics(t, func() {
		NewRegion(Vec{Page: make([]byte, 10), Offset: 5, Len: 6})
	})
}
