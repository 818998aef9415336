package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "extentctl",
		Usage: "Pack files into compressed extents and inspect compression state",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration `FILE`",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log provisioning and errors to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "pack",
				Usage:     "Compress a file into an extent archive",
				Action:    packFile,
				ArgsUsage: "INPUT_FILE  ARCHIVE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "compression", Usage: "codec to compress with (overrides config)"},
					&cli.StringFlag{Name: "checksum", Usage: "none, xxhash or blake3 (overrides config)"},
					&cli.StringFlag{Name: "super", Value: "extentctl.super", Usage: "superblock `FILE`, created if missing"},
				},
			},
			{
				Name:      "unpack",
				Usage:     "Verify and decompress an extent archive",
				Action:    unpackFile,
				ArgsUsage: "ARCHIVE_FILE  OUTPUT_FILE",
			},
			{
				Name:      "bench",
				Usage:     "Compress a file with every codec and print CSV results",
				Action:    benchFile,
				ArgsUsage: "INPUT_FILE",
			},
			{
				Name:   "features",
				Usage:  "Show or set the compression features of a superblock",
				Action: showFeatures,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "super", Value: "extentctl.super", Usage: "superblock `FILE`"},
					&cli.StringSliceFlag{Name: "set", Usage: "enable the feature for `CODEC`"},
				},
			},
		},
	}
}
