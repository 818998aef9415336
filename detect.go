package compressio

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// format is a file format recognized by its leading bytes.
type format struct {
	name  string
	magic []byte
}

// Magic bytes of formats whose content is already compressed. Checked in
// order, so longer prefixes come before shorter ones they share bytes with.
var compressedFormats = []format{
	{"snappy", []byte{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50}}, // framed
	{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{"7z", []byte{0x37, 0x7a, 0xbc, 0xaf, 0x27, 0x1c}},
	{"png", []byte{0x89, 0x50, 0x4e, 0x47}},
	{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{"lz4", []byte{0x04, 0x22, 0x4d, 0x18}}, // frame format
	{"zip", []byte{0x50, 0x4b, 0x03, 0x04}},
	{"bzip2", []byte{0x42, 0x5a, 0x68}},
	{"jpeg", []byte{0xff, 0xd8, 0xff}},
	{"gzip", []byte{0x1f, 0x8b}},
}

// File extensions of the same formats.
var compressedExtensions = map[string]string{
	".sz":     "snappy",
	".snappy": "snappy",
	".xz":     "xz",
	".7z":     "7z",
	".png":    "png",
	".zst":    "zstd",
	".zstd":   "zstd",
	".lz4":    "lz4",
	".zip":    "zip",
	".bz2":    "bzip2",
	".jpg":    "jpeg",
	".jpeg":   "jpeg",
	".gz":     "gzip",
	".gzip":   "gzip",
	".tgz":    "gzip",
	".br":     "brotli",
}

// magicLen is enough leading bytes to recognize any format.
const magicLen = 10

// DetectFormat returns the name of the compressed format data starts with.
func DetectFormat(data []byte) (string, bool) {
	for _, f := range compressedFormats {
		if bytes.HasPrefix(data, f.magic) {
			return f.name, true
		}
	}
	return "", false
}

// DetectFormatReader reads the first bytes of r and detects their format.
// The bytes read are returned so the caller can replay them.
func DetectFormatReader(r io.Reader) (name string, head []byte, err error) {
	buf := make([]byte, magicLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head = buf[:n]
	name, _ = DetectFormat(head)
	return name, head, nil
}

// IsCompressed reports whether data appears to be compressed already.
func IsCompressed(data []byte) bool {
	_, ok := DetectFormat(data)
	return ok
}

// DetectFormatFromName detects a compressed format from a file name's
// extension. Brotli streams have no magic, so this is the only way to
// recognize them.
func DetectFormatFromName(name string) (string, bool) {
	f, ok := compressedExtensions[strings.ToLower(filepath.Ext(name))]
	return f, ok
}
