package compressio

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

func TestMagicBytesDetection(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantName string
		wantOk   bool
	}{
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, "gzip", true},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd}, "zstd", true},
		{"lz4", []byte{0x04, 0x22, 0x4d, 0x18}, "lz4", true},
		{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}, "xz", true},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n'}, "png", true},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, "jpeg", true},
		{"zip", []byte("PK\x03\x04"), "zip", true},
		{"bzip2", []byte("BZh9"), "bzip2", true},
		{"truncated magic", []byte{0x28, 0xb5, 0x2f}, "", false},
		{"none", []byte("plain text"), "", false},
		{"empty", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := DetectFormat(tt.data)
			if ok != tt.wantOk {
				t.Errorf("Expected ok=%v, got %v", tt.wantOk, ok)
			}
			if name != tt.wantName {
				t.Errorf("Expected format=%q, got %q", tt.wantName, name)
			}
			if IsCompressed(tt.data) != tt.wantOk {
				t.Errorf("IsCompressed disagrees with DetectFormat")
			}
		})
	}
}

// Output of real encoders is recognized.
func TestDetectEncoderOutput(t *testing.T) {
	payload := []byte("Test data for compression detection")

	tests := []struct {
		name  string
		write func(io.Writer) io.WriteCloser
	}{
		{"gzip", func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }},
		{"zstd", func(w io.Writer) io.WriteCloser {
			zw, err := zstd.NewWriter(w)
			if err != nil {
				t.Fatalf("Failed to create zstd writer: %v", err)
			}
			return zw
		}},
		{"lz4", func(w io.Writer) io.WriteCloser { return lz4.NewWriter(w) }},
		{"snappy", func(w io.Writer) io.WriteCloser { return snappy.NewBufferedWriter(w) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := tt.write(&buf)
			if _, err := w.Write(payload); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			name, ok := DetectFormat(buf.Bytes())
			if !ok || name != tt.name {
				t.Errorf("Expected %s, got %q (ok=%v)", tt.name, name, ok)
			}
		})
	}
}

func TestDetectCompressionFromReader(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("test"))
	zw.Close()
	gzipData := buf.Bytes()

	name, head, err := DetectFormatReader(bytes.NewReader(gzipData))
	if err != nil {
		t.Fatalf("DetectFormatReader failed: %v", err)
	}
	if name != "gzip" {
		t.Errorf("Expected gzip, got %q", name)
	}
	if !bytes.Equal(head, gzipData[:magicLen]) {
		t.Errorf("Expected the first %d bytes back, got %x", magicLen, head)
	}

	// Short input is not an error.
	name, head, err = DetectFormatReader(bytes.NewReader([]byte("ab")))
	if err != nil || name != "" || string(head) != "ab" {
		t.Errorf("Short input: got %q, %q, %v", name, head, err)
	}

	boom := errors.New("boom")
	if _, _, err := DetectFormatReader(iotest.ErrReader(boom)); err != boom {
		t.Errorf("Expected reader error, got %v", err)
	}
}

func TestDetectFormatFromName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantOk   bool
	}{
		{"file.gz", "gzip", true},
		{"file.tar.GZ", "gzip", true},
		{"file.zst", "zstd", true},
		{"file.lz4", "lz4", true},
		{"file.br", "brotli", true},
		{"file.sz", "snappy", true},
		{"photo.JPG", "jpeg", true},
		{"file.txt", "", false},
		{"gz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			name, ok := DetectFormatFromName(tt.filename)
			if ok != tt.wantOk {
				t.Errorf("Expected ok=%v, got %v", tt.wantOk, ok)
			}
			if name != tt.want {
				t.Errorf("Expected format=%q, got %q", tt.want, name)
			}
		})
	}
}
