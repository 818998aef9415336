package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/absfs/compressio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run(append([]string{"extentctl"}, args...)))
	return out.String()
}

func testInput(t *testing.T, dir string) (string, []byte) {
	t.Helper()
	data := bytes.Repeat([]byte("extentctl packs files into compressed extents. "), 6000)
	data = append(data, "a short unaligned tail"...)
	path := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func TestPackUnpack(t *testing.T) {
	for _, codec := range []string{"none", "lz4", "gzip", "zstd", "snappy", "brotli"} {
		for _, sum := range []string{"none", "xxhash", "blake3"} {
			t.Run(codec+"/"+sum, func(t *testing.T) {
				dir := t.TempDir()
				input, data := testInput(t, dir)
				archive := filepath.Join(dir, "input.cxt")
				output := filepath.Join(dir, "output.txt")
				super := filepath.Join(dir, "fs.super")

				run(t, "pack", "--compression", codec, "--checksum", sum, "--super", super, input, archive)
				run(t, "unpack", archive, output)

				got, err := os.ReadFile(output)
				require.NoError(t, err)
				assert.Equal(t, data, got)

				if codec != "none" {
					info, err := os.Stat(archive)
					require.NoError(t, err)
					assert.Less(t, info.Size(), int64(len(data)))
				}
			})
		}
	}
}

func TestUnpackDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	input, _ := testInput(t, dir)
	archive := filepath.Join(dir, "input.cxt")

	run(t, "pack", "--compression", "zstd", "--checksum", "xxhash",
		"--super", filepath.Join(dir, "fs.super"), input, archive)

	b, err := os.ReadFile(archive)
	require.NoError(t, err)
	b[len(b)/2] ^= 0xff
	require.NoError(t, os.WriteFile(archive, b, 0o644))

	app := newApp()
	app.Writer = &bytes.Buffer{}
	err = app.Run([]string{"extentctl", "unpack", archive, filepath.Join(dir, "out")})
	assert.Error(t, err)
}

func TestPackPersistsFeature(t *testing.T) {
	dir := t.TempDir()
	input, _ := testInput(t, dir)
	super := filepath.Join(dir, "fs.super")

	run(t, "pack", "--compression", "lz4", "--super", super, input, filepath.Join(dir, "a"))

	sb, err := openSuperblock(super, 0)
	require.NoError(t, err)
	assert.Equal(t, compressio.FeatureLZ4.Mask(), sb.Features())
	assert.Equal(t, uint32(compressio.DefaultEncodedExtentMax), sb.EncodedExtentMax())

	out := run(t, "features", "--super", super)
	assert.Contains(t, out, "lz4")
}

func TestFeaturesSet(t *testing.T) {
	super := filepath.Join(t.TempDir(), "fs.super")

	out := run(t, "features", "--super", super, "--set", "zstd", "--set", "brotli")
	assert.Contains(t, out, "zstd")
	assert.Contains(t, out, "brotli")
	assert.NotContains(t, out, "lz4")

	sb, err := openSuperblock(super, 0)
	require.NoError(t, err)
	assert.Equal(t, compressio.FeatureZstd.Mask()|compressio.FeatureBrotli.Mask(), sb.Features())
}

func TestBench(t *testing.T) {
	dir := t.TempDir()
	input, _ := testInput(t, dir)

	out := run(t, "bench", input)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "codec,"))
	assert.True(t, strings.HasPrefix(lines[1], "none,"))
	assert.True(t, strings.HasPrefix(lines[4], "zstd,"))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
compression: zstd
background_compression: brotli
zstd_level: 7
block_size: 8192
encoded_extent_max: 256
checksum: blake3
`), 0o644))

	app := newApp()
	var got *fileConfig
	app.Commands[0].Action = func(ctx *cli.Context) error {
		var err error
		got, err = loadConfig(ctx)
		return err
	}
	require.NoError(t, app.Run([]string{"extentctl", "--config", path, "pack"}))

	require.NotNil(t, got)
	assert.Equal(t, compressio.OptZstd, got.Compression)
	assert.Equal(t, compressio.OptBrotli, got.BackgroundCompression)
	assert.Equal(t, 7, got.ZstdLevel)
	assert.Equal(t, 8192, got.BlockSize)
	assert.Equal(t, uint32(256), got.EncodedExtentMax)
	assert.Equal(t, "blake3", got.Checksum)
	assert.Equal(t, 1, got.WorkspacesPerCodec, "defaults survive")
	assert.NotNil(t, got.Logger)
}

func TestConfigFileBadChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checksum: crc32c\n"), 0o644))

	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"extentctl", "--config", path, "bench", path})
	assert.Error(t, err)
}

func TestPackCompressedInput(t *testing.T) {
	dir := t.TempDir()
	_, data := testInput(t, dir)
	input := filepath.Join(dir, "input.br")
	require.NoError(t, os.WriteFile(input, data, 0o644))
	super := filepath.Join(dir, "fs.super")
	archive := filepath.Join(dir, "input.cxt")

	run(t, "pack", "--compression", "zstd", "--super", super, input, archive)

	sb, err := openSuperblock(super, 0)
	require.NoError(t, err)
	assert.Zero(t, sb.Features(), "nothing compressed")

	info, err := os.Stat(archive)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.Size(), int64(len(data)))

	output := filepath.Join(dir, "output")
	run(t, "unpack", archive, output)
	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
