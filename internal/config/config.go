// Package config loads run configuration from YAML files. A missing
// path yields the built-in defaults, so the CLI works without any
// config file at all.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/model"
)

// SizeSpec is a box size in the YAML file.
type SizeSpec struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Depth  int `yaml:"depth"`
}

func (s SizeSpec) geometry() geometry.Size {
	return geometry.Size{W: s.Width, H: s.Height, D: s.Depth}
}

// GeneratorSpec configures the synthetic item source.
type GeneratorSpec struct {
	Seed     int64    `yaml:"seed"`
	MinSize  SizeSpec `yaml:"min_size"`
	MaxSize  SizeSpec `yaml:"max_size"`
	P        float64  `yaml:"p"`
	PDecay   float64  `yaml:"p_decay"`
	MaxItems int      `yaml:"max_items"`
}

// ExportSpec names the artifact files to write after a run. Empty
// fields skip that format.
type ExportSpec struct {
	PDF    string `yaml:"pdf,omitempty"`
	Labels string `yaml:"labels,omitempty"`
	XLSX   string `yaml:"xlsx,omitempty"`
	DXF    string `yaml:"dxf,omitempty"`
}

// Config is the full run configuration.
type Config struct {
	Method    string   `yaml:"method"`
	Lookahead int      `yaml:"lookahead"`
	BinSize   SizeSpec `yaml:"bin_size"`
	Bins      int      `yaml:"bins"`
	MaxBins   int      `yaml:"max_bins"`
	Replace   string   `yaml:"replace"`
	Rotate    bool     `yaml:"rotate"`
	Skip      bool     `yaml:"skip"`

	// Source selects the item stream: "generated", "file" or "input".
	Source string `yaml:"source"`
	// Path is the stream file for the file source.
	Path      string        `yaml:"path,omitempty"`
	Generator GeneratorSpec `yaml:"generator"`

	// Iterations caps the number of placements; zero or negative means
	// run until the stream is exhausted.
	Iterations int `yaml:"iterations"`

	Export ExportSpec `yaml:"export"`
}

// Load reads the config at path, applying defaults for anything not
// set. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Defaults returns the built-in run configuration.
func Defaults() Config {
	s := model.DefaultSettings()
	return Config{
		Method:    "bl",
		Lookahead: s.Lookahead,
		BinSize:   SizeSpec{Width: s.BinSize.W, Height: s.BinSize.H, Depth: s.BinSize.D},
		Bins:      s.Bins,
		MaxBins:   s.MaxBins,
		Replace:   string(s.Replace),
		Rotate:    s.UseRotate,
		Skip:      s.UseSkip,
		Source:    "generated",
		Generator: GeneratorSpec{
			Seed:    1,
			MinSize: SizeSpec{Width: 8, Height: 8, Depth: 8},
			MaxSize: SizeSpec{Width: 16, Height: 16, Depth: 16},
			P:       0.25,
			PDecay:  0.95,
		},
		Iterations: -1,
	}
}

// Normalize fills derivable blanks so Validate and the run loop see a
// complete config.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if strings.TrimSpace(c.Method) == "" {
		c.Method = "bl"
	}
	if strings.TrimSpace(c.Source) == "" {
		c.Source = "generated"
	}
	if strings.TrimSpace(c.Replace) == "" {
		c.Replace = string(model.ReplaceAll)
	}
	if c.Generator.P == 0 {
		c.Generator.P = 0.25
	}
	if c.Generator.PDecay == 0 {
		c.Generator.PDecay = 0.95
	}
}

// Validate checks the parts Settings.Validate cannot see.
func (c Config) Validate() error {
	switch c.Source {
	case "generated", "file", "input":
	default:
		return fmt.Errorf("source must be generated, file or input, got %q", c.Source)
	}
	if c.Source == "file" && strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("file source requires a path")
	}
	if !model.ReplacePolicy(c.Replace).Valid() {
		return fmt.Errorf("replace must be %q or %q, got %q", model.ReplaceMax, model.ReplaceAll, c.Replace)
	}
	if c.Source == "generated" {
		g := c.Generator
		for _, pair := range []struct {
			name     string
			min, max int
		}{
			{"width", g.MinSize.Width, g.MaxSize.Width},
			{"height", g.MinSize.Height, g.MaxSize.Height},
			{"depth", g.MinSize.Depth, g.MaxSize.Depth},
		} {
			if pair.min < 1 {
				return fmt.Errorf("generator min %s must be at least 1", pair.name)
			}
			if pair.max < pair.min {
				return fmt.Errorf("generator max %s %d below min %d", pair.name, pair.max, pair.min)
			}
		}
	}
	return c.Settings().Validate()
}

// Settings converts the config into engine settings.
func (c Config) Settings() model.Settings {
	s := model.DefaultSettings()
	s.BinSize = c.BinSize.geometry()
	s.Bins = c.Bins
	s.Lookahead = c.Lookahead
	s.MaxBins = c.MaxBins
	s.Replace = model.ReplacePolicy(c.Replace)
	s.UseRotate = c.Rotate
	s.UseSkip = c.Skip
	return s
}
