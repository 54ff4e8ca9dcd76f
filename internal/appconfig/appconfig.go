// Package appconfig is lodgen's configuration layer: a JSON file of
// defaults, overridden by CLI flags, with auto-detected fallbacks for
// anything still unset. Grounded on the teacher's internal/config/config.go
// two-stage Load-then-Resolve pattern.
package appconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/lodgen/lodgen/internal/lodgenerr"
)

// Config holds every setting the orchestrator and CLI need.
type Config struct {
	ModelPath string   `json:"model_path"`
	OutputDir string   `json:"output_dir"`

	Ratios         []float64 `json:"ratios"`
	ResizeTextures bool      `json:"resize_textures"`
	BuildAtlas     bool      `json:"build_atlas"`

	ParallelLODs int `json:"parallel_lods"`
}

// Load reads a JSON config file. Fields absent from the file keep their
// zero values, to be filled in by Resolve.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("appconfig: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("appconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override the config file.
type Flags struct {
	ModelPath      string
	OutputDir      string
	Ratios         []float64
	ResizeTextures bool
	BuildAtlas     bool
	ParallelLODs   int
}

// Resolve fills in any still-empty fields with auto-detected defaults, CLI
// flags taking priority over whatever the config file set, then validates
// the result: at least one ratio is required, and every ratio must lie in
// (0, 1) (spec.md §6.5).
func (c *Config) Resolve(flags Flags) error {
	if flags.ModelPath != "" {
		c.ModelPath = flags.ModelPath
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if len(flags.Ratios) > 0 {
		c.Ratios = flags.Ratios
	}
	if flags.ResizeTextures {
		c.ResizeTextures = true
	}
	if flags.BuildAtlas {
		c.BuildAtlas = true
	}
	if flags.ParallelLODs > 0 {
		c.ParallelLODs = flags.ParallelLODs
	}

	if c.OutputDir == "" && c.ModelPath != "" {
		c.OutputDir = filepath.Join(filepath.Dir(c.ModelPath), "lods")
	}

	if len(c.Ratios) == 0 {
		c.Ratios = []float64{0.5, 0.25, 0.1}
	}

	if c.ParallelLODs <= 0 {
		c.ParallelLODs = runtime.NumCPU()
	}

	return c.Validate()
}

// Validate checks the resolved configuration against spec.md §6.5: at least
// one ratio is required, and every ratio must lie in the open interval (0, 1).
func (c *Config) Validate() error {
	if len(c.Ratios) == 0 {
		return lodgenerr.New(lodgenerr.InvalidConfig, "at least one ratio is required")
	}
	for _, r := range c.Ratios {
		if r <= 0 || r >= 1 {
			return lodgenerr.New(lodgenerr.InvalidConfig, "ratio %v out of range (0, 1)", r)
		}
	}
	return nil
}
