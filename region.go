package compressio

import (
	"fmt"
	"iter"
	"unsafe"
)

const (
	// PageSize is the size of one page in an I/O region.
	PageSize = 4096

	// SectorShift converts sectors to bytes.
	SectorShift = 9
)

// Vec is one segment of an I/O region: Len bytes of Page starting at Offset.
type Vec struct {
	Page   []byte
	Offset int
	Len    int
}

func (v Vec) bytes() []byte {
	return v.Page[v.Offset : v.Offset+v.Len]
}

// Region is a scatter-gather view over memory pages covering one contiguous
// logical byte range. The vecs describe every page the region owns; the
// window (start, size) selects the bytes an operation works on.
//
// A Region is owned by the caller. The pipeline reads it, or writes it only
// through CopyFrom, for the duration of a single call.
type Region struct {
	vecs     []Vec
	capacity int
	start    int
	size     int
}

// NewRegion creates a region over vecs with a window covering all of them.
func NewRegion(vecs ...Vec) *Region {
	r := &Region{vecs: vecs}
	for _, v := range vecs {
		if v.Offset < 0 || v.Len < 0 || v.Offset+v.Len > len(v.Page) {
			panic(fmt.Sprintf("compressio: vec [%d, %d) outside page of %d bytes",
				v.Offset, v.Offset+v.Len, len(v.Page)))
		}
		r.capacity += v.Len
	}
	r.size = r.capacity
	return r
}

// RegionFromBytes returns a region with a single vec over b.
func RegionFromBytes(b []byte) *Region {
	return NewRegion(Vec{Page: b, Len: len(b)})
}

// RegionFromPages splits b into page-sized vecs. The vecs share b's backing
// array, so the pipeline can still address the whole window without copying.
func RegionFromPages(b []byte) *Region {
	vecs := make([]Vec, 0, (len(b)+PageSize-1)/PageSize)
	for off := 0; off < len(b); off += PageSize {
		n := min(PageSize, len(b)-off)
		vecs = append(vecs, Vec{Page: b[off : off+n], Len: n})
	}
	return NewRegion(vecs...)
}

// NewScatterRegion allocates size bytes as independently allocated pages.
func NewScatterRegion(size int) *Region {
	vecs := make([]Vec, 0, (size+PageSize-1)/PageSize)
	for off := 0; off < size; off += PageSize {
		vecs = append(vecs, Vec{Page: make([]byte, PageSize), Len: min(PageSize, size-off)})
	}
	return NewRegion(vecs...)
}

// Size returns the number of bytes in the window.
func (r *Region) Size() int {
	return r.size
}

// Capacity returns the number of bytes from the window start to the end of
// the last vec.
func (r *Region) Capacity() int {
	return r.capacity - r.start
}

// Resize changes the window size. It panics if n exceeds Capacity.
func (r *Region) Resize(n int) {
	if n < 0 || n > r.Capacity() {
		panic(fmt.Sprintf("compressio: resize to %d bytes exceeds region capacity %d", n, r.Capacity()))
	}
	r.size = n
}

// Window returns a region sharing r's pages whose window covers n bytes
// starting off bytes into r's window.
func (r *Region) Window(off, n int) *Region {
	if off < 0 || n < 0 || off+n > r.Capacity() {
		panic(fmt.Sprintf("compressio: window [%d, %d) outside region capacity %d", off, off+n, r.Capacity()))
	}
	return &Region{vecs: r.vecs, capacity: r.capacity, start: r.start + off, size: n}
}

// Segments yields the window as a sequence of byte slices, one per vec
// (or part of a vec) it touches.
func (r *Region) Segments() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		skip, left := r.start, r.size
		for _, v := range r.vecs {
			if left == 0 {
				return
			}
			if skip >= v.Len {
				skip -= v.Len
				continue
			}
			b := v.bytes()[skip:]
			skip = 0
			if len(b) > left {
				b = b[:left]
			}
			left -= len(b)
			if !yield(b) {
				return
			}
		}
	}
}

// CopyTo copies the window into b and returns the number of bytes copied.
func (r *Region) CopyTo(b []byte) int {
	n := 0
	for seg := range r.Segments() {
		c := copy(b[n:], seg)
		n += c
		if c < len(seg) {
			break
		}
	}
	return n
}

// CopyFrom copies b into the window and returns the number of bytes copied.
func (r *Region) CopyFrom(b []byte) int {
	n := 0
	for seg := range r.Segments() {
		c := copy(seg, b[n:])
		n += c
		if n == len(b) {
			break
		}
	}
	return n
}

// Bytes returns a copy of the window.
func (r *Region) Bytes() []byte {
	b := make([]byte, r.size)
	r.CopyTo(b)
	return b
}

// contiguous returns the window as one slice when it can be addressed
// without copying: either a single vec covers it, or consecutive vecs sit
// back to back in one backing array (the way adjacent pages merge into one
// multi-page segment).
func (r *Region) contiguous() ([]byte, bool) {
	if r.size == 0 {
		return nil, false
	}

	var first []byte
	var want int // offset of the next byte inside first's backing array
	for seg := range r.Segments() {
		if first == nil {
			first = seg
			want = len(seg)
			continue
		}
		off, ok := offsetIn(first, seg)
		if !ok || off != want {
			return nil, false
		}
		want += len(seg)
	}
	if want > cap(first) {
		return nil, false
	}
	return first[:r.size:r.size], true
}

// offsetIn reports where b starts inside base's backing array, if it does.
func offsetIn(base, b []byte) (int, bool) {
	if len(b) == 0 || cap(base) == 0 {
		return 0, false
	}
	lo := uintptr(unsafe.Pointer(unsafe.SliceData(base)))
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	if p < lo || p >= lo+uintptr(cap(base)) {
		return 0, false
	}
	return int(p - lo), true
}
