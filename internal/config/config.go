// Package config holds the streaming driver's settings.
package config

import (
	"fmt"
	"time"
)

// Generator types.
const (
	GeneratorTerrain = "terrain"
	GeneratorFlat    = "flat"
)

// Walk directions for the headless driver.
const (
	WalkNone     = ""
	WalkForward  = "forward"
	WalkBackward = "backward"
	WalkLeft     = "left"
	WalkRight    = "right"
)

// Config holds the driver configuration.
type Config struct {
	Seed       int64    `yaml:"seed"`
	Generator  string   `yaml:"generator"`   // "terrain" or "flat"
	FlatHeight int      `yaml:"flat_height"` // grass layer of the flat generator
	Blocks     []string `yaml:"blocks"`      // registration order
	AssetDir   string   `yaml:"asset_dir"`   // empty uses the builtin pack

	TickRate int `yaml:"tick_rate_hz"`
	Ticks    int `yaml:"ticks"` // 0 runs until interrupted

	FenceTimeout   time.Duration `yaml:"fence_timeout"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`

	Walk     string `yaml:"walk"`
	LogLevel string `yaml:"log_level"`

	// DataDir holds config.yaml itself, so it only comes from flags.
	DataDir string `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Seed:           114514,
		Generator:      GeneratorTerrain,
		FlatHeight:     4,
		Blocks:         []string{"dirt", "grass_block"},
		DataDir:        "data",
		TickRate:       60,
		FenceTimeout:   5 * time.Second,
		AcquireTimeout: 5 * time.Second,
		LogLevel:       "info",
	}
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["generator"] {
		cfg.Generator = fromFile.Generator
	}
	if !explicitFlags["flat-height"] {
		cfg.FlatHeight = fromFile.FlatHeight
	}
	if !explicitFlags["blocks"] {
		cfg.Blocks = append([]string(nil), fromFile.Blocks...)
	}
	if !explicitFlags["assets"] {
		cfg.AssetDir = fromFile.AssetDir
	}
	if !explicitFlags["tick-rate"] {
		cfg.TickRate = fromFile.TickRate
	}
	if !explicitFlags["ticks"] {
		cfg.Ticks = fromFile.Ticks
	}
	if !explicitFlags["fence-timeout"] {
		cfg.FenceTimeout = fromFile.FenceTimeout
	}
	if !explicitFlags["acquire-timeout"] {
		cfg.AcquireTimeout = fromFile.AcquireTimeout
	}
	if !explicitFlags["walk"] {
		cfg.Walk = fromFile.Walk
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Generator {
	case GeneratorTerrain, GeneratorFlat:
	default:
		return fmt.Errorf("unknown generator %q", c.Generator)
	}
	switch c.Walk {
	case WalkNone, WalkForward, WalkBackward, WalkLeft, WalkRight:
	default:
		return fmt.Errorf("unknown walk direction %q", c.Walk)
	}
	if len(c.Blocks) == 0 {
		return fmt.Errorf("no blocks configured")
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	if c.Ticks < 0 {
		return fmt.Errorf("tick budget must not be negative, got %d", c.Ticks)
	}
	if c.FenceTimeout <= 0 || c.AcquireTimeout <= 0 {
		return fmt.Errorf("device timeouts must be positive")
	}
	return nil
}
