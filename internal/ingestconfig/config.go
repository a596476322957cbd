// Package ingestconfig loads the region batch-driver config file: a
// stated interface only (spec Non-goals exclude the download/shell-out
// behavior it would drive), kept so cmd/ingest can be pointed at either
// flags or a region file.
package ingestconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level `regions.toml` shape.
type Config struct {
	Global  GlobalConfig   `toml:"global"`
	Regions []RegionConfig `toml:"regions"`
}

// GlobalConfig holds settings shared across all configured regions.
type GlobalConfig struct {
	ESURL  string `toml:"es_url"`
	TmpDir string `toml:"tmp_dir"`
}

// RegionConfig names one region batch's PBF source.
type RegionConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// LoadFromFile reads and parses a region TOML config file.
func LoadFromFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingestconfig: read config file: %w", err)
	}

	var cfg Config
	if _, err := toml.Decode(string(content), &cfg); err != nil {
		return nil, fmt.Errorf("ingestconfig: parse config file: %w", err)
	}
	return &cfg, nil
}
