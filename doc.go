// Package compressio implements the compressed-extent I/O pipeline of a
// copy-on-write filesystem: it turns a range of logical blocks into a
// compressed on-disk extent and back, working directly on scatter-gather
// page regions.
//
// # Features
//
//   - 5 codecs: lz4, gzip (raw DEFLATE), zstd, snappy, brotli
//   - Adaptive sizing: compresses as much of an extent as fits, in whole blocks
//   - Zero-copy access to contiguous regions, bounce buffers otherwise
//   - Workspace pools provisioned on first use of a codec, gated by
//     superblock feature bits
//   - Decoding of the legacy LZ4 identifier
//   - In-place rewrite of compressed extents as uncompressed data
//   - Statistics tracking
//
// # Quick Start
//
//	sb := compressio.NewMemSuperblock(compressio.DefaultEncodedExtentMax, 0)
//	c, _ := compressio.New(sb, compressio.RecommendedConfig())
//	defer c.Close()
//
//	// Persist the zstd feature bit before writing zstd data
//	_ = c.CheckSetHasCompressedData(compressio.OptZstd)
//
//	dst := compressio.NewScatterRegion(64 << 10)
//	res := c.Compress(dst, compressio.RegionFromBytes(data), compressio.TypeZstd)
//	if res.Type == compressio.TypeNone {
//	    // store data uncompressed
//	}
//	// res.ConsumedLen bytes of data are now in the first
//	// res.CompressedLen bytes of dst; write the rest as another extent
//
// # Codec Selection Guide
//
//   - General Purpose: zstd (level 3), best balance of speed and ratio
//   - Maximum Speed: lz4 or snappy
//   - Maximum Compression: brotli (level 11) or zstd (level 19)
//   - Maximum Compatibility: gzip
//
// # On-disk Framing
//
// Compressed extents are zero-padded to the filesystem block size. zstd,
// snappy and brotli payloads start with their length as a 4-byte little
// endian integer so the padding can be told apart from the stream; lz4 and
// DEFLATE streams are stored bare.
//
// # Concurrency
//
// Compress, Decompress and DecompressInPlace may run concurrently on
// independent regions. Each codec has a bounded pool of workspaces
// (Config.WorkspacesPerCodec, default 1); callers wait for a free one.
// Enabling a new codec takes the superblock lock briefly; codecs already
// enabled are checked without locking.
package compressio
