package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/absfs/compressio"
	"github.com/absfs/compressio/internal/csum"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration file layout.
type fileConfig struct {
	compressio.Config `yaml:",inline"`

	// EncodedExtentMax is used when a superblock file is created
	EncodedExtentMax uint32 `yaml:"encoded_extent_max"`

	// Checksum stamped on packed extents: none, xxhash or blake3
	Checksum string `yaml:"checksum"`
}

func defaultFileConfig() *fileConfig {
	return &fileConfig{
		Config:           *compressio.DefaultConfig(),
		EncodedExtentMax: compressio.DefaultEncodedExtentMax,
		Checksum:         "xxhash",
	}
}

// loadConfig reads the file named by --config over the defaults.
func loadConfig(ctx *cli.Context) (*fileConfig, error) {
	cfg := defaultFileConfig()

	if path := ctx.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	level := slog.LevelWarn
	if ctx.Bool("verbose") {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if _, err := csum.ParseType(cfg.Checksum); err != nil {
		return nil, err
	}
	return cfg, nil
}
