package compressio

import "fmt"

// bounceKind records how a bounce buffer was obtained, and therefore how it
// must be released.
type bounceKind uint8

const (
	// bounceNone is a borrowed view into the caller's region.
	bounceNone bounceKind = iota
	// bouncePool is a lease on a slot of the direction's page pool.
	bouncePool
	// bounceHeap was allocated for this call.
	bounceHeap
	// bounceReleased marks a handle that has already been released.
	bounceReleased
)

func (k bounceKind) String() string {
	switch k {
	case bounceNone:
		return "none"
	case bouncePool:
		return "pool"
	case bounceHeap:
		return "heap"
	case bounceReleased:
		return "released"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// bbuf is a contiguous view of some bytes for the length of one call.
type bbuf struct {
	b    []byte
	kind bounceKind
	rw   Direction
	slot int
}

// bounceAlloc returns a buffer of size bytes. It tries the direction's page
// pool without waiting and falls back to the heap, so it always succeeds.
func (c *FS) bounceAlloc(size int, rw Direction) bbuf {
	if size > c.maxExtentBytes {
		panic(fmt.Sprintf("compressio: bounce of %d bytes exceeds encoded extent max of %d bytes",
			size, c.maxExtentBytes))
	}

	if p := c.bounce[rw].Load(); p != nil {
		if slot, b, ok := p.TryGet(size); ok {
			c.incrementStat(&c.stats.BouncesPooled)
			return bbuf{b: b, kind: bouncePool, rw: rw, slot: slot}
		}
	}

	c.incrementStat(&c.stats.BouncesHeap)
	return bbuf{b: make([]byte, size), kind: bounceHeap, rw: rw}
}

// mapOrBounce returns the window of r as one contiguous buffer. If the
// window is already contiguous in memory the buffer borrows it; otherwise
// a bounce buffer is allocated and, for Read, filled from r.
//
// For Write the caller copies the result back into r before unbounce.
func (c *FS) mapOrBounce(r *Region, rw Direction) bbuf {
	if r.Size() > c.maxExtentBytes {
		panic(fmt.Sprintf("compressio: mapping %d bytes exceeds encoded extent max of %d bytes",
			r.Size(), c.maxExtentBytes))
	}

	if b, ok := r.contiguous(); ok {
		c.incrementStat(&c.stats.BouncesBorrowed)
		return bbuf{b: b, kind: bounceNone, rw: rw}
	}

	buf := c.bounceAlloc(r.Size(), rw)
	if rw == Read {
		r.CopyTo(buf.b)
	}
	return buf
}

// unbounce releases buf according to how it was obtained. Every bbuf is
// released exactly once.
func (c *FS) unbounce(buf *bbuf) {
	switch buf.kind {
	case bounceNone, bounceHeap:
	case bouncePool:
		c.bounce[buf.rw].Load().Put(buf.slot)
	case bounceReleased:
		panic("compressio: bounce buffer released twice")
	default:
		panic(fmt.Sprintf("compressio: unknown bounce kind %d", buf.kind))
	}
	*buf = bbuf{kind: bounceReleased}
}
