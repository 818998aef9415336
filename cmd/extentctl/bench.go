package main

import (
	"os"
	"time"

	"github.com/absfs/compressio"
	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"
)

type benchRow struct {
	Codec        string  `csv:"codec"`
	Extents      int     `csv:"extents"`
	Compressed   int     `csv:"compressed_extents"`
	BytesIn      int64   `csv:"bytes_in"`
	BytesOut     int64   `csv:"bytes_out"`
	Ratio        float64 `csv:"ratio"`
	CompressMBps float64 `csv:"compress_mb_s"`
}

func benchFile(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("bench needs INPUT_FILE", 2)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(ctx.Args().Get(0))
	if err != nil {
		return err
	}

	var rows []*benchRow
	for _, opt := range []compressio.Opt{
		compressio.OptNone,
		compressio.OptLZ4,
		compressio.OptGzip,
		compressio.OptZstd,
		compressio.OptSnappy,
		compressio.OptBrotli,
	} {
		row, err := benchOpt(&cfg.Config, cfg.EncodedExtentMax, opt, data)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return gocsv.Marshal(rows, ctx.App.Writer)
}

func benchOpt(base *compressio.Config, extentMax uint32, opt compressio.Opt, data []byte) (*benchRow, error) {
	cfg := *base
	cfg.Compression = opt
	c, err := compressio.New(compressio.NewMemSuperblock(extentMax, 0), &cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	start := time.Now()
	extents, err := c.CompressBytes(data, opt)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	logical, stored := compressio.ExtentsSize(extents)
	row := &benchRow{
		Codec:      opt.String(),
		Extents:    len(extents),
		Compressed: int(c.GetStats().ExtentsCompressed),
		BytesIn:    logical,
		BytesOut:   stored,
		Ratio:      compressio.GetCompressionRatio(logical, stored),
	}
	if s := elapsed.Seconds(); s > 0 {
		row.CompressMBps = float64(logical) / s / (1 << 20)
	}
	return row, nil
}
