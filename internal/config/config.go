// Package config handles configuration loading for the multivec builder.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the builder configuration.
type Config struct {
	Genome GenomeConfig `yaml:"genome"`
	Store  StoreConfig  `yaml:"store"`
	Build  BuildConfig  `yaml:"build"`
	Runlog RunlogConfig `yaml:"runlog"`
}

// GenomeConfig selects the reference and base quantification.
type GenomeConfig struct {
	Assembly       string `yaml:"assembly"`
	BaseResolution int64  `yaml:"base_resolution"`
	Levels         int    `yaml:"levels"`
	// AddChrPrefix prepends "chr" to raw bin labels before parsing, for
	// pipelines that emit bare sequence names. Defaults to true.
	AddChrPrefix *bool `yaml:"add_chr_prefix"`
}

// StoreConfig controls the output store layout.
type StoreConfig struct {
	ChunkColumns int    `yaml:"chunk_columns"`
	ZlibLevel    int    `yaml:"zlib_level"`
	TileSize     int    `yaml:"tile_size"`
	Name         string `yaml:"name"`
}

// BuildConfig contains pipeline tuning.
type BuildConfig struct {
	// Workers bounds concurrent per-sequence builds; 0 means one worker
	// per CPU.
	Workers int `yaml:"workers"`
}

// RunlogConfig controls optional run history persistence.
type RunlogConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if cfg.Genome.BaseResolution <= 0 {
		return nil, fmt.Errorf("invalid base_resolution: %d", cfg.Genome.BaseResolution)
	}
	if cfg.Genome.Levels <= 0 {
		return nil, fmt.Errorf("invalid levels: %d", cfg.Genome.Levels)
	}
	if cfg.Store.ZlibLevel < 1 || cfg.Store.ZlibLevel > 9 {
		return nil, fmt.Errorf("invalid zlib_level: %d", cfg.Store.ZlibLevel)
	}

	return &cfg, nil
}

// DefaultConfig returns the default configuration: hg38 at the 5 kb base
// resolution common to snATAC quantification pipelines, 16 doubling levels.
func DefaultConfig() *Config {
	prefix := true
	return &Config{
		Genome: GenomeConfig{
			Assembly:       "hg38",
			BaseResolution: 5000,
			Levels:         16,
			AddChrPrefix:   &prefix,
		},
		Store: StoreConfig{
			ChunkColumns: 1024,
			ZlibLevel:    1,
			TileSize:     256,
			Name:         "multivec",
		},
		Build: BuildConfig{
			Workers: 0,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Genome.Assembly == "" {
		cfg.Genome.Assembly = defaults.Genome.Assembly
	}
	if cfg.Genome.BaseResolution == 0 {
		cfg.Genome.BaseResolution = defaults.Genome.BaseResolution
	}
	if cfg.Genome.Levels == 0 {
		cfg.Genome.Levels = defaults.Genome.Levels
	}
	if cfg.Genome.AddChrPrefix == nil {
		cfg.Genome.AddChrPrefix = defaults.Genome.AddChrPrefix
	}
	if cfg.Store.ChunkColumns == 0 {
		cfg.Store.ChunkColumns = defaults.Store.ChunkColumns
	}
	if cfg.Store.ZlibLevel == 0 {
		cfg.Store.ZlibLevel = defaults.Store.ZlibLevel
	}
	if cfg.Store.TileSize == 0 {
		cfg.Store.TileSize = defaults.Store.TileSize
	}
	if cfg.Store.Name == "" {
		cfg.Store.Name = defaults.Store.Name
	}
}
