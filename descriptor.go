package compressio

import "fmt"

// ChecksumType identifies the checksum carried in a descriptor. The
// pipeline never computes checksums; it only clears them when data is
// rewritten uncompressed.
type ChecksumType uint8

const (
	ChecksumNone ChecksumType = iota
	ChecksumXXH64
	ChecksumBLAKE3
)

func (t ChecksumType) String() string {
	switch t {
	case ChecksumNone:
		return "none"
	case ChecksumXXH64:
		return "xxhash"
	case ChecksumBLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Checksum is a checksum of up to 128 bits.
type Checksum struct {
	Type ChecksumType
	Lo   uint64
	Hi   uint64
}

// Descriptor describes how one extent is encoded on disk. Sizes and the
// offset are in 512-byte sectors.
type Descriptor struct {
	Type             Type
	CompressedSize   uint32
	UncompressedSize uint32

	// LiveSize is how much of the uncompressed data is still referenced
	// after partial overwrites; Offset is where that live data starts.
	LiveSize uint32
	Offset   uint32

	Checksum Checksum
}

// CompressedBytes returns the compressed size in bytes.
func (d Descriptor) CompressedBytes() int { return int(d.CompressedSize) << SectorShift }

// UncompressedBytes returns the uncompressed size in bytes.
func (d Descriptor) UncompressedBytes() int { return int(d.UncompressedSize) << SectorShift }

// LiveBytes returns the live size in bytes.
func (d Descriptor) LiveBytes() int { return int(d.LiveSize) << SectorShift }

// OffsetBytes returns the offset of the live data in bytes.
func (d Descriptor) OffsetBytes() int { return int(d.Offset) << SectorShift }

// Validate checks the encoded sizes against the filesystem's encoded
// extent limit. A violation means corrupt metadata and is reported as an
// I/O error.
func (d Descriptor) Validate(encodedExtentMax uint32) error {
	if d.UncompressedSize > encodedExtentMax || d.CompressedSize > encodedExtentMax {
		return fmt.Errorf("%w: compressed %d, uncompressed %d sectors, max %d",
			ErrExtentTooBig, d.CompressedSize, d.UncompressedSize, encodedExtentMax)
	}
	if uint64(d.Offset)+uint64(d.LiveSize) > uint64(d.UncompressedSize) {
		return fmt.Errorf("%w: live range %d+%d past %d sectors",
			ErrIO, d.Offset, d.LiveSize, d.UncompressedSize)
	}
	return nil
}

// resetUncompressed rewrites d to describe its live data stored verbatim.
func (d *Descriptor) resetUncompressed() {
	d.Type = TypeNone
	d.Checksum = Checksum{}
	d.CompressedSize = d.LiveSize
	d.UncompressedSize = d.LiveSize
	d.Offset = 0
}
