package main

import (
	"fmt"

	"github.com/absfs/compressio"
	"github.com/urfave/cli/v2"
)

func showFeatures(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	sb, err := openSuperblock(ctx.String("super"), cfg.EncodedExtentMax)
	if err != nil {
		return err
	}

	if names := ctx.StringSlice("set"); len(names) > 0 {
		c, err := compressio.New(sb, &cfg.Config)
		if err != nil {
			return err
		}
		defer c.Close()

		for _, name := range names {
			opt, err := compressio.ParseOpt(name)
			if err != nil {
				return err
			}
			if err := c.CheckSetHasCompressedData(opt); err != nil {
				return err
			}
		}
	}

	w := ctx.App.Writer
	fmt.Fprintf(w, "encoded_extent_max: %d sectors\n", sb.EncodedExtentMax())
	fmt.Fprintf(w, "features: %#x\n", sb.Features())
	for _, f := range compressio.Features(sb.Features()) {
		fmt.Fprintf(w, "  %s\n", f)
	}
	return nil
}
