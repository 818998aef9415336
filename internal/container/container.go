// Package container stores a sequence of encoded extents in one file.
//
// An archive is the magic bytes followed by a CBOR stream: one Header item,
// then one Record item per extent. Items use Core Deterministic Encoding, so
// the same extents always produce the same archive.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/absfs/compressio"
	"github.com/fxamacker/cbor/v2"
)

// Version is the archive format version written by NewWriter.
const Version = 1

var magic = []byte("CXTA\x00\x01")

var (
	ErrBadMagic   = errors.New("container: not an extent archive")
	ErrBadVersion = errors.New("container: unsupported archive version")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("container: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("container: CBOR decoder initialization failed: " + err.Error())
	}
}

// Header describes how the extents of an archive were produced.
type Header struct {
	Version          int    `cbor:"version"`
	BlockSize        int    `cbor:"block_size"`
	EncodedExtentMax uint32 `cbor:"encoded_extent_max"`
	Compression      string `cbor:"compression"`
	Checksum         string `cbor:"checksum"`
}

// Record is one extent as stored in an archive.
type Record struct {
	Type             uint8  `cbor:"type"`
	CompressedSize   uint32 `cbor:"csize"`
	UncompressedSize uint32 `cbor:"usize"`
	LiveSize         uint32 `cbor:"live"`
	Offset           uint32 `cbor:"offset"`
	ChecksumType     uint8  `cbor:"csum_type"`
	ChecksumLo       uint64 `cbor:"csum_lo"`
	ChecksumHi       uint64 `cbor:"csum_hi"`
	Size             int    `cbor:"size"`
	Data             []byte `cbor:"data"`
}

// FromExtent converts an extent to its archive record.
func FromExtent(e compressio.Extent) Record {
	d := e.Descriptor
	return Record{
		Type:             uint8(d.Type),
		CompressedSize:   d.CompressedSize,
		UncompressedSize: d.UncompressedSize,
		LiveSize:         d.LiveSize,
		Offset:           d.Offset,
		ChecksumType:     uint8(d.Checksum.Type),
		ChecksumLo:       d.Checksum.Lo,
		ChecksumHi:       d.Checksum.Hi,
		Size:             e.Size,
		Data:             e.Data,
	}
}

// Extent converts the record back to an extent.
func (r Record) Extent() compressio.Extent {
	return compressio.Extent{
		Descriptor: compressio.Descriptor{
			Type:             compressio.Type(r.Type),
			CompressedSize:   r.CompressedSize,
			UncompressedSize: r.UncompressedSize,
			LiveSize:         r.LiveSize,
			Offset:           r.Offset,
			Checksum: compressio.Checksum{
				Type: compressio.ChecksumType(r.ChecksumType),
				Lo:   r.ChecksumLo,
				Hi:   r.ChecksumHi,
			},
		},
		Size: r.Size,
		Data: r.Data,
	}
}

// Writer appends extents to an archive.
type Writer struct {
	enc *cbor.Encoder
	n   int
}

// NewWriter writes the archive magic and h to w. h.Version is set to
// Version.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	if _, err := w.Write(magic); err != nil {
		return nil, err
	}
	h.Version = Version
	enc := encMode.NewEncoder(w)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("container: writing header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// WriteExtent appends e to the archive.
func (w *Writer) WriteExtent(e compressio.Extent) error {
	if err := w.enc.Encode(FromExtent(e)); err != nil {
		return fmt.Errorf("container: writing extent %d: %w", w.n, err)
	}
	w.n++
	return nil
}

// Count returns the number of extents written.
func (w *Writer) Count() int {
	return w.n
}

// Reader reads extents back from an archive.
type Reader struct {
	dec    *cbor.Decoder
	header Header
	n      int
}

// NewReader checks the archive magic and reads the header.
func NewReader(r io.Reader) (*Reader, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrBadMagic
		}
		return nil, err
	}
	if !bytes.Equal(head, magic) {
		return nil, ErrBadMagic
	}

	dec := decMode.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("container: reading header: %w", err)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	return &Reader{dec: dec, header: h}, nil
}

// Header returns the archive header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next extent, or io.EOF after the last one.
func (r *Reader) Next() (compressio.Extent, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return compressio.Extent{}, io.EOF
		}
		return compressio.Extent{}, fmt.Errorf("container: reading extent %d: %w", r.n, err)
	}
	r.n++
	return rec.Extent(), nil
}
