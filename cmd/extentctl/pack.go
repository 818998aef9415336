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

func packFile(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.Exit("pack needs INPUT_FILE and ARCHIVE_FILE", 2)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if name := ctx.String("compression"); name != "" {
		if cfg.Compression, err = compressio.ParseOpt(name); err != nil {
			return err
		}
	}
	if name := ctx.String("checksum"); name != "" {
		cfg.Checksum = name
	}
	csumType, err := csum.ParseType(cfg.Checksum)
	if err != nil {
		return err
	}

	sb, err := openSuperblock(ctx.String("super"), cfg.EncodedExtentMax)
	if err != nil {
		return err
	}
	c, err := compressio.New(sb, &cfg.Config)
	if err != nil {
		return err
	}
	defer c.Close()

	opt := cfg.Compression
	if format, ok := compressio.DetectFormatFromName(ctx.Args().Get(0)); ok && cfg.AutoDetect {
		cfg.Logger.Info("input already compressed, storing as is", "format", format)
		opt = compressio.OptNone
	}

	in, err := os.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	defer out.Close()
	bw := bufio.NewWriter(out)

	archive, err := container.NewWriter(bw, container.Header{
		BlockSize:        c.BlockSize(),
		EncodedExtentMax: c.EncodedExtentMax(),
		Compression:      opt.String(),
		Checksum:         csumType.String(),
	})
	if err != nil {
		return err
	}

	w, err := c.NewExtentWriter(opt, func(e compressio.Extent) error {
		e.Descriptor.Checksum = csum.Sum(csumType, e.Data)
		return archive.WriteExtent(e)
	})
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, in); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	stats := c.GetStats()
	fmt.Fprintf(ctx.App.Writer, "%d bytes in %d extents (%d compressed, %d stored), ratio %.3f\n",
		w.BytesWritten(), archive.Count(),
		stats.ExtentsCompressed, int64(archive.Count())-stats.ExtentsCompressed,
		stats.TotalCompressionRatio())
	return out.Close()
}
