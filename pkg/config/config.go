// Package config loads the plain JSON configuration used by cmd/historystore
// (SPEC_FULL.md §A.3), adapted from the teacher's pkg/config/config.go:
// a struct tree decoded with encoding/json, with defaults for every field a
// missing or partial config file leaves unset.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the archive/CLI configuration.
type Config struct {
	// StoreDir is the Badger database directory. Empty means an in-memory
	// Store, used by default so `historystore` works without setup.
	StoreDir string `json:"store_dir"`
	// ColumnMatchPolicy is "by_name" or "by_id" (SPEC_FULL.md §C.4). Only
	// "by_name" is implemented; the field exists so a config file can name
	// the policy explicitly rather than relying on an undocumented default.
	ColumnMatchPolicy string `json:"column_match_policy"`
	// ExternalSortChunkRows bounds the in-memory chunk size CSVDocument uses
	// for its external merge-sort runs.
	ExternalSortChunkRows int `json:"external_sort_chunk_rows"`
	// CSVDelimiter is the single-rune field delimiter `historystore commit`
	// uses when given a .csv file.
	CSVDelimiter string `json:"csv_delimiter"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		ColumnMatchPolicy:     "by_name",
		ExternalSortChunkRows: 50000,
		CSVDelimiter:          ",",
	}
}

// Load reads and decodes path, filling any field the file omits with the
// Default() value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if cfg.ColumnMatchPolicy == "" {
		cfg.ColumnMatchPolicy = "by_name"
	}
	if cfg.ExternalSortChunkRows <= 0 {
		cfg.ExternalSortChunkRows = 50000
	}
	if cfg.CSVDelimiter == "" {
		cfg.CSVDelimiter = ","
	}
	return cfg, nil
}

// LoadOrDefault loads path if it is non-empty and exists, otherwise returns
// Default(). A present but malformed file is still an error: only a missing
// path silently falls back.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Rune returns CSVDelimiter as the rune encoding/csv expects, falling back to
// ',' for anything that doesn't decode to exactly one rune.
func (c *Config) Rune() rune {
	if rs := []rune(c.CSVDelimiter); len(rs) == 1 {
		return rs[0]
	}
	return ','
}
