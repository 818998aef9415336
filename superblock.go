package compressio

import "sync"

// DefaultEncodedExtentMax is the encoded extent limit, in sectors, used when
// a superblock does not specify one (64KiB).
const DefaultEncodedExtentMax = 128

// Superblock is the part of the filesystem superblock the pipeline needs.
// Implementations own layout and durability; WriteSuper is assumed durable
// once it returns nil.
type Superblock interface {
	// EncodedExtentMax is the largest compressed or uncompressed unit, in
	// sectors.
	EncodedExtentMax() uint32

	// Features returns the persisted feature word.
	Features() uint64

	// SetFeatures replaces the in-memory feature word. It is only called
	// with the filesystem's superblock lock held.
	SetFeatures(features uint64)

	// WriteSuper persists the superblock.
	WriteSuper() error
}

// MemSuperblock is an in-memory Superblock, mainly for tests and tools.
type MemSuperblock struct {
	mu               sync.Mutex
	encodedExtentMax uint32
	features         uint64
	writes           int

	// WriteErr, when set, is returned by every WriteSuper call.
	WriteErr error
}

// NewMemSuperblock creates an in-memory superblock. A zero encodedExtentMax
// selects DefaultEncodedExtentMax.
func NewMemSuperblock(encodedExtentMax uint32, features uint64) *MemSuperblock {
	if encodedExtentMax == 0 {
		encodedExtentMax = DefaultEncodedExtentMax
	}
	return &MemSuperblock{encodedExtentMax: encodedExtentMax, features: features}
}

func (sb *MemSuperblock) EncodedExtentMax() uint32 {
	return sb.encodedExtentMax
}

func (sb *MemSuperblock) Features() uint64 {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.features
}

func (sb *MemSuperblock) SetFeatures(features uint64) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.features = features
}

func (sb *MemSuperblock) WriteSuper() error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.WriteErr != nil {
		return sb.WriteErr
	}
	sb.writes++
	return nil
}

// Writes returns the number of successful WriteSuper calls.
func (sb *MemSuperblock) Writes() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.writes
}
