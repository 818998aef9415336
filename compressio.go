package compressio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Config holds the filesystem-wide compression configuration
type Config struct {
	// Compression is the option foreground writes use (default: none)
	Compression Opt `yaml:"compression"`

	// BackgroundCompression is the option data is recompressed with when
	// it is moved in the background (default: none)
	BackgroundCompression Opt `yaml:"background_compression"`

	// BlockSize is the filesystem block size in bytes (default: 4096).
	// Compressed output is padded to, and input consumed in, whole blocks.
	BlockSize int `yaml:"block_size"`

	// Codec levels, 0 selects the codec default
	// gzip: 1-9 (6 default)
	// zstd: 1-22 (3 default)
	// brotli: 1-11 (6 default)
	// lz4, snappy: no levels
	GzipLevel   int `yaml:"gzip_level"`
	ZstdLevel   int `yaml:"zstd_level"`
	BrotliLevel int `yaml:"brotli_level"`

	// Workspaces held per codec. Concurrent operations on the same codec
	// wait for a free workspace (default: 1)
	WorkspacesPerCodec int `yaml:"workspaces_per_codec"`

	// Bounce buffers reserved per direction (default: 1)
	BounceBuffers int `yaml:"bounce_buffers"`

	// MemoryLimit caps the bytes reserved for workspaces and bounce pools.
	// Provisioning that would exceed it fails with ErrNoMemory.
	// default: 0 (unlimited)
	MemoryLimit int64 `yaml:"memory_limit"`

	// AutoDetect stores content that already looks compressed verbatim
	// (used by ExtentWriter; default: true)
	AutoDetect bool `yaml:"auto_detect"`

	// Logger receives provisioning and error events (default: discard)
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Compression:        OptNone,
		BlockSize:          PageSize,
		WorkspacesPerCodec: 1,
		BounceBuffers:      1,
		AutoDetect:         true,
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = PageSize
	}
	if cfg.WorkspacesPerCodec <= 0 {
		cfg.WorkspacesPerCodec = 1
	}
	if cfg.BounceBuffers <= 0 {
		cfg.BounceBuffers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func (cfg *Config) validate(encodedExtentMax uint32) error {
	bs := cfg.BlockSize
	if bs < 1<<SectorShift || bs&(bs-1) != 0 {
		return fmt.Errorf("%w: block size %d is not a power of two of at least 512 bytes", ErrInvalidConfig, bs)
	}
	if bs > int(encodedExtentMax)<<SectorShift {
		return fmt.Errorf("%w: block size %d exceeds encoded extent max of %d sectors", ErrInvalidConfig, bs, encodedExtentMax)
	}
	if cfg.Compression >= optNR || cfg.BackgroundCompression >= optNR {
		return fmt.Errorf("%w: compression option out of range", ErrUnsupportedType)
	}
	if cfg.GzipLevel < 0 || cfg.GzipLevel > 9 {
		return fmt.Errorf("%w: gzip level %d", ErrInvalidLevel, cfg.GzipLevel)
	}
	if cfg.ZstdLevel < 0 || cfg.ZstdLevel > 22 {
		return fmt.Errorf("%w: zstd level %d", ErrInvalidLevel, cfg.ZstdLevel)
	}
	if cfg.BrotliLevel < 0 || cfg.BrotliLevel > 11 {
		return fmt.Errorf("%w: brotli level %d", ErrInvalidLevel, cfg.BrotliLevel)
	}
	return nil
}

// Stats holds pipeline statistics
type Stats struct {
	ExtentsCompressed   int64
	ExtentsSkipped      int64
	ExtentsDecompressed int64

	BytesIn           int64 // source bytes consumed by successful compression
	BytesCompressed   int64 // compressed bytes produced, including padding
	BytesDecompressed int64

	BouncesBorrowed int64
	BouncesPooled   int64
	BouncesHeap     int64

	// PoolInits counts pools created by provisioning; SlowPathChecks
	// counts feature checks that had to take the superblock lock.
	PoolInits      int64
	SlowPathChecks int64

	TypeCounts sync.Map // map[Type]int64
}

// GetTypeCount returns the number of extents compressed with t
func (s *Stats) GetTypeCount(t Type) int64 {
	if val, ok := s.TypeCounts.Load(t); ok {
		return val.(int64)
	}
	return 0
}

// IncrementTypeCount increments the count for a compression type
func (s *Stats) IncrementTypeCount(t Type) {
	for {
		val, _ := s.TypeCounts.LoadOrStore(t, int64(0))
		if s.TypeCounts.CompareAndSwap(t, val, val.(int64)+1) {
			return
		}
	}
}

// TotalCompressionRatio returns the overall compression ratio
func (s *Stats) TotalCompressionRatio() float64 {
	if s.BytesIn == 0 {
		return 0
	}
	return float64(s.BytesCompressed) / float64(s.BytesIn)
}

var (
	ErrIO              = errors.New("compressio: I/O error")
	ErrExtentTooBig    = fmt.Errorf("%w: extent too big", ErrIO)
	ErrDecompress      = fmt.Errorf("%w: decompression error", ErrIO)
	ErrNotProvisioned  = fmt.Errorf("%w: decompression workspace not provisioned", ErrIO)
	ErrNoMemory        = errors.New("compressio: cannot allocate memory")
	ErrUnsupportedType = errors.New("compressio: unsupported compression type")
	ErrInvalidLevel    = errors.New("compressio: invalid compression level")
	ErrInvalidConfig   = errors.New("compressio: invalid configuration")
	ErrClosed          = errors.New("compressio: filesystem closed")
)

// FS is the filesystem-wide compression state: the feature word mirror,
// the workspace and bounce pools, and the superblock lock that serializes
// provisioning.
type FS struct {
	sb     Superblock
	config *Config
	log    *slog.Logger

	blockSize        int
	encodedExtentMax uint32
	maxExtentBytes   int

	// features mirrors the persisted feature word. A bit is only published
	// here after its pools exist and the superblock has been written.
	features atomic.Uint64
	sbLock   sync.Mutex
	closed   bool

	// Pools are installed under sbLock and read without it.
	bounce              [2]atomic.Pointer[PagePool]
	compressWorkspace   [typeNR]atomic.Pointer[pool[*workspace]]
	decompressWorkspace atomic.Pointer[pool[*decompressWorkspace]]
	reserved            int64 // bytes counted against MemoryLimit, under sbLock

	stats Stats
	mu    sync.RWMutex
}

// New creates the compression state for a filesystem and provisions pools
// for every codec the superblock or config already uses.
func New(sb Superblock, config *Config) (*FS, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	cfg.applyDefaults()

	extentMax := sb.EncodedExtentMax()
	if extentMax == 0 {
		return nil, fmt.Errorf("%w: encoded extent max is zero", ErrInvalidConfig)
	}
	if err := cfg.validate(extentMax); err != nil {
		return nil, err
	}

	c := &FS{
		sb:               sb,
		config:           &cfg,
		log:              cfg.Logger,
		blockSize:        cfg.BlockSize,
		encodedExtentMax: extentMax,
		maxExtentBytes:   int(extentMax) << SectorShift,
	}
	c.features.Store(sb.Features())

	f := sb.Features()
	for _, opt := range []Opt{cfg.Compression, cfg.BackgroundCompression} {
		if feat, ok := opt.Feature(); ok {
			f |= feat.Mask()
		}
	}

	c.sbLock.Lock()
	err := c.init(f)
	c.sbLock.Unlock()
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// BlockSize returns the filesystem block size in bytes.
func (c *FS) BlockSize() int {
	return c.blockSize
}

// EncodedExtentMax returns the encoded extent limit in sectors.
func (c *FS) EncodedExtentMax() uint32 {
	return c.encodedExtentMax
}

// Features returns the feature bits whose resources are provisioned and
// persisted.
func (c *FS) Features() uint64 {
	return c.features.Load()
}

// Compression returns the foreground compression option.
func (c *FS) Compression() Opt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Compression
}

// BackgroundCompression returns the background compression option.
func (c *FS) BackgroundCompression() Opt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.BackgroundCompression
}

// SetCompression changes the foreground compression option, provisioning
// and persisting its feature first.
func (c *FS) SetCompression(opt Opt) error {
	if err := c.CheckSetHasCompressedData(opt); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.Compression = opt
	return nil
}

// SetBackgroundCompression changes the background compression option.
func (c *FS) SetBackgroundCompression(opt Opt) error {
	if err := c.CheckSetHasCompressedData(opt); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.BackgroundCompression = opt
	return nil
}

// GetStats returns current statistics
func (c *FS) GetStats() *Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	// Return a copy
	s := &Stats{
		ExtentsCompressed:   atomic.LoadInt64(&c.stats.ExtentsCompressed),
		ExtentsSkipped:      atomic.LoadInt64(&c.stats.ExtentsSkipped),
		ExtentsDecompressed: atomic.LoadInt64(&c.stats.ExtentsDecompressed),
		BytesIn:             atomic.LoadInt64(&c.stats.BytesIn),
		BytesCompressed:     atomic.LoadInt64(&c.stats.BytesCompressed),
		BytesDecompressed:   atomic.LoadInt64(&c.stats.BytesDecompressed),
		BouncesBorrowed:     atomic.LoadInt64(&c.stats.BouncesBorrowed),
		BouncesPooled:       atomic.LoadInt64(&c.stats.BouncesPooled),
		BouncesHeap:         atomic.LoadInt64(&c.stats.BouncesHeap),
		PoolInits:           atomic.LoadInt64(&c.stats.PoolInits),
		SlowPathChecks:      atomic.LoadInt64(&c.stats.SlowPathChecks),
	}
	c.stats.TypeCounts.Range(func(k, v any) bool {
		s.TypeCounts.Store(k, v)
		return true
	})
	return s
}

// ResetStats resets statistics to zero
func (c *FS) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	atomic.StoreInt64(&c.stats.ExtentsCompressed, 0)
	atomic.StoreInt64(&c.stats.ExtentsSkipped, 0)
	atomic.StoreInt64(&c.stats.ExtentsDecompressed, 0)
	atomic.StoreInt64(&c.stats.BytesIn, 0)
	atomic.StoreInt64(&c.stats.BytesCompressed, 0)
	atomic.StoreInt64(&c.stats.BytesDecompressed, 0)
	atomic.StoreInt64(&c.stats.BouncesBorrowed, 0)
	atomic.StoreInt64(&c.stats.BouncesPooled, 0)
	atomic.StoreInt64(&c.stats.BouncesHeap, 0)
	c.stats.TypeCounts.Clear()
}

// incrementStat atomically increments a stat counter
func (c *FS) incrementStat(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// addBytes atomically adds to a byte counter
func (c *FS) addBytes(counter *int64, n int64) {
	atomic.AddInt64(counter, n)
}
