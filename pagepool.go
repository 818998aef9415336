package compressio

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/boljen/go-bitmap"
	"golang.org/x/sys/unix"
)

// pageOrder returns the smallest order such that 2^order pages hold size bytes.
func pageOrder(size int) int {
	pages := (size + PageSize - 1) / PageSize
	if pages <= 1 {
		return 0
	}
	return bits.Len(uint(pages - 1))
}

// PagePool is a fixed reserve of bounce buffers, each 2^order pages, carved
// out of one anonymous mapping that lives outside the Go heap. Slot
// occupancy is tracked in a bitmap.
type PagePool struct {
	mu       sync.Mutex
	arena    []byte
	slotSize int
	slots    int
	inUse    bitmap.Bitmap
	free     int
}

// NewPagePool maps a pool of n buffers of 2^order pages each.
func NewPagePool(n, order int) (*PagePool, error) {
	if n <= 0 || order < 0 {
		return nil, fmt.Errorf("%w: page pool of %d buffers, order %d", ErrInvalidConfig, n, order)
	}
	slotSize := PageSize << order

	data, err := unix.Mmap(-1, 0, n*slotSize,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes for page pool: %v", ErrNoMemory, n*slotSize, err)
	}

	return &PagePool{
		arena:    data,
		slotSize: slotSize,
		slots:    n,
		inUse:    bitmap.New(n),
		free:     n,
	}, nil
}

// SlotSize returns the size in bytes of every buffer in the pool.
func (p *PagePool) SlotSize() int {
	return p.slotSize
}

// Size returns the number of bytes the pool reserves.
func (p *PagePool) Size() int {
	return p.slots * p.slotSize
}

// TryGet takes a free buffer of size bytes without waiting. It returns
// ok == false if the pool is exhausted. It panics if size exceeds the slot
// size.
func (p *PagePool) TryGet(size int) (slot int, b []byte, ok bool) {
	if size > p.slotSize {
		panic(fmt.Sprintf("compressio: page pool request of %d bytes exceeds slot size %d", size, p.slotSize))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.free == 0 || p.arena == nil {
		return 0, nil, false
	}
	for i := 0; i < p.slots; i++ {
		if !p.inUse.Get(i) {
			p.inUse.Set(i, true)
			p.free--
			off := i * p.slotSize
			return i, p.arena[off : off+size : off+p.slotSize], true
		}
	}
	panic("compressio: page pool free count out of sync with bitmap")
}

// Put returns a slot to the pool. Returning a slot that is not in use panics.
func (p *PagePool) Put(slot int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slot < 0 || slot >= p.slots {
		panic(fmt.Sprintf("compressio: page pool slot %d not in range [0, %d)", slot, p.slots))
	}
	if !p.inUse.Get(slot) {
		panic(fmt.Sprintf("compressio: page pool slot %d returned twice", slot))
	}
	p.inUse.Set(slot, false)
	p.free++
}

// Free returns the number of buffers available.
func (p *PagePool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.free
}

// Close unmaps the pool. No buffer may be in use.
func (p *PagePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.arena == nil {
		return nil
	}
	if p.free != p.slots {
		panic(fmt.Sprintf("compressio: closing page pool with %d buffers in use", p.slots-p.free))
	}
	err := unix.Munmap(p.arena)
	p.arena = nil
	return err
}
