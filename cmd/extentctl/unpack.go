package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/absfs/compressio"
	"github.com/absfs/compressio/internal/container"
	"github.com/absfs/compressio/internal/csum"
	"github.com/urfave/cli/v2"
)

func unpackFile(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.Exit("unpack needs ARCHIVE_FILE and OUTPUT_FILE", 2)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	in, err := os.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	defer in.Close()

	archive, err := container.NewReader(bufio.NewReader(in))
	if err != nil {
		return err
	}
	h := archive.Header()

	// Reading needs the decoders, which come with any compression feature.
	cfg.BlockSize = h.BlockSize
	if cfg.Compression, err = compressio.ParseOpt(h.Compression); err != nil {
		return err
	}
	c, err := compressio.New(compressio.NewMemSuperblock(h.EncodedExtentMax, 0), &cfg.Config)
	if err != nil {
		return err
	}
	defer c.Close()

	out, err := os.Create(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	defer out.Close()
	bw := bufio.NewWriter(out)

	n := 0
	r := c.NewExtentReader(func() (compressio.Extent, error) {
		e, err := archive.Next()
		if err != nil {
			return e, err
		}
		if err := csum.Verify(e.Descriptor.Checksum, e.Data); err != nil {
			return e, fmt.Errorf("extent %d: %w", n, err)
		}
		n++
		return e, nil
	})

	written, err := io.Copy(bw, r)
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(ctx.App.Writer, "%d bytes from %d extents\n", written, n)
	return out.Close()
}
