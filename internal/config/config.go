// Package config loads matching defaults from a JSON file so pipelines
// can pin their merge settings alongside their data instead of repeating
// command-line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MatchConfig holds the defaults for a merge pipeline. All fields are
// pointers so a partial config file only overrides what it names.
type MatchConfig struct {
	// ScanBound selects the scan bound policy: "legacy" or "recomputed".
	ScanBound *string `json:"scan_bound,omitempty"`
	// Shape is the aperture shape tag used for SED extraction.
	Shape *string `json:"shape,omitempty"`
	// DBPath persists merge runs to this sqlite database when set.
	DBPath *string `json:"db_path,omitempty"`
	// SkipRejects omits rejected rows from exported region files.
	SkipRejects *bool `json:"skip_rejects,omitempty"`
	// LogSED plots SED axes on a log scale.
	LogSED *bool `json:"log_sed,omitempty"`
	// Alphas are spectral indices overlaid on SED plots.
	Alphas []float64 `json:"alphas,omitempty"`
	// Verbose logs each pairwise merge.
	Verbose *bool `json:"verbose,omitempty"`
}

// Load reads a MatchConfig from a JSON file. The file must have a .json
// extension and stay under the max file size. Fields omitted from the
// file stay nil, so partial configs are safe.
func Load(path string) (*MatchConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg MatchConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values that have a constrained domain.
func (c *MatchConfig) Validate() error {
	if c.ScanBound != nil {
		switch *c.ScanBound {
		case "legacy", "recomputed":
		default:
			return fmt.Errorf("invalid scan_bound %q (want legacy or recomputed)", *c.ScanBound)
		}
	}
	if c.Shape != nil && *c.Shape == "" {
		return fmt.Errorf("shape must not be empty")
	}
	return nil
}

// Merge overlays other onto c, field by field: set fields of other win.
// Returns c for chaining.
func (c *MatchConfig) Merge(other *MatchConfig) *MatchConfig {
	if other == nil {
		return c
	}
	if other.ScanBound != nil {
		c.ScanBound = other.ScanBound
	}
	if other.Shape != nil {
		c.Shape = other.Shape
	}
	if other.DBPath != nil {
		c.DBPath = other.DBPath
	}
	if other.SkipRejects != nil {
		c.SkipRejects = other.SkipRejects
	}
	if other.LogSED != nil {
		c.LogSED = other.LogSED
	}
	if other.Alphas != nil {
		c.Alphas = other.Alphas
	}
	if other.Verbose != nil {
		c.Verbose = other.Verbose
	}
	return c
}
