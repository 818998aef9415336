// Package csum computes the checksums stored in extent descriptors.
package csum

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/absfs/compressio"
	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// ErrMismatch is returned by Verify when data does not match its checksum.
var ErrMismatch = errors.New("csum: checksum mismatch")

// Sum returns the checksum of data. BLAKE3 sums are truncated to 128 bits.
func Sum(t compressio.ChecksumType, data []byte) compressio.Checksum {
	switch t {
	case compressio.ChecksumNone:
		return compressio.Checksum{}
	case compressio.ChecksumXXH64:
		return compressio.Checksum{Type: t, Lo: xxhash.Sum64(data)}
	case compressio.ChecksumBLAKE3:
		h := blake3.Sum256(data)
		return compressio.Checksum{
			Type: t,
			Lo:   binary.LittleEndian.Uint64(h[0:8]),
			Hi:   binary.LittleEndian.Uint64(h[8:16]),
		}
	default:
		panic(fmt.Sprintf("csum: unknown checksum type %d", t))
	}
}

// Verify checks data against want. A ChecksumNone checksum always matches.
func Verify(want compressio.Checksum, data []byte) error {
	if want.Type == compressio.ChecksumNone {
		return nil
	}
	if got := Sum(want.Type, data); got != want {
		return fmt.Errorf("%w: %s %016x%016x, want %016x%016x",
			ErrMismatch, want.Type, got.Hi, got.Lo, want.Hi, want.Lo)
	}
	return nil
}

// ParseType parses a checksum type name as printed by ChecksumType.String.
func ParseType(name string) (compressio.ChecksumType, error) {
	for _, t := range []compressio.ChecksumType{
		compressio.ChecksumNone,
		compressio.ChecksumXXH64,
		compressio.ChecksumBLAKE3,
	} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("csum: unknown checksum type %q", name)
}
