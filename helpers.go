package compressio

import (
	"bytes"
	"io"
)

// Preset configurations for common use cases

// FastestConfig returns a configuration optimized for speed
func FastestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Compression = OptLZ4
	cfg.BackgroundCompression = OptLZ4
	return cfg
}

// RecommendedConfig returns the recommended configuration for general use.
// Foreground writes use zstd level 3; data moved in the background is
// recompressed harder.
func RecommendedConfig() *Config {
	cfg := DefaultConfig()
	cfg.Compression = OptZstd
	cfg.BackgroundCompression = OptZstd
	cfg.ZstdLevel = 3
	return cfg
}

// BestCompressionConfig returns a configuration optimized for maximum
// compression. Use for cold, write-once data.
func BestCompressionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Compression = OptZstd
	cfg.BackgroundCompression = OptBrotli
	cfg.ZstdLevel = 19
	cfg.BrotliLevel = 11
	return cfg
}

// CompatibleConfig returns a configuration using DEFLATE, which every
// implementation of the on-disk format can read
func CompatibleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Compression = OptGzip
	cfg.BackgroundCompression = OptGzip
	cfg.GzipLevel = 6
	return cfg
}

// LowCPUConfig returns a configuration optimized for low CPU usage
func LowCPUConfig() *Config {
	cfg := DefaultConfig()
	cfg.Compression = OptSnappy
	return cfg
}

// NewWithRecommendedConfig creates compression state with recommended settings
func NewWithRecommendedConfig(sb Superblock) (*FS, error) {
	return New(sb, RecommendedConfig())
}

// NewWithFastestConfig creates compression state optimized for speed
func NewWithFastestConfig(sb Superblock) (*FS, error) {
	return New(sb, FastestConfig())
}

// NewWithBestCompression creates compression state optimized for
// compression ratio
func NewWithBestCompression(sb Superblock) (*FS, error) {
	return New(sb, BestCompressionConfig())
}

// CompressBytes cuts data into extents compressed with opt
func (c *FS) CompressBytes(data []byte, opt Opt) ([]Extent, error) {
	var extents []Extent
	w, err := c.NewExtentWriter(opt, func(e Extent) error {
		extents = append(extents, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return extents, nil
}

// DecompressBytes reassembles the data held by extents
func (c *FS) DecompressBytes(extents []Extent) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, c.NewExtentReader(SliceExtents(extents))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SliceExtents returns an ExtentReader source yielding extents in order
func SliceExtents(extents []Extent) func() (Extent, error) {
	i := 0
	return func() (Extent, error) {
		if i == len(extents) {
			return Extent{}, io.EOF
		}
		i++
		return extents[i-1], nil
	}
}

// GetCompressionRatio calculates the compression ratio for given original and compressed sizes
// Returns a value between 0 and 1, where lower is better
// E.g., 0.5 means the compressed size is 50% of the original
func GetCompressionRatio(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 0
	}
	return float64(compressedSize) / float64(originalSize)
}

// GetCompressionPercentage calculates the compression percentage
// Returns the percentage of space saved (0-100)
// E.g., 50 means 50% space savings
func GetCompressionPercentage(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 0
	}
	return (1 - float64(compressedSize)/float64(originalSize)) * 100
}

// ExtentsSize returns the logical and on-disk bytes of extents
func ExtentsSize(extents []Extent) (logical, stored int64) {
	for _, e := range extents {
		logical += int64(e.Size)
		stored += int64(len(e.Data))
	}
	return logical, stored
}
