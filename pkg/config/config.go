// Package config loads brushwork settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds every setting. Zero values are never valid; use Default or
// Load.
type Config struct {
	World  WorldConfig  `toml:"world"`
	Engine EngineConfig `toml:"engine"`
	Edit   EditConfig   `toml:"edit"`
	Log    LogConfig    `toml:"log"`
}

type WorldConfig struct {
	// Size is the half-extent of the world box on every axis.
	Size float64 `toml:"size"`
}

type EngineConfig struct {
	TimeoutMS int `toml:"timeout_ms"`
}

type EditConfig struct {
	LockTextures bool `toml:"lock_textures"`
}

type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		World:  WorldConfig{Size: geom.DefaultWorldSize},
		Engine: EngineConfig{TimeoutMS: 5000},
		Edit:   EditConfig{LockTextures: true},
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.World.Size <= 0 {
		return fmt.Errorf("world.size must be positive, got %g", c.World.Size)
	}
	if c.Engine.TimeoutMS <= 0 {
		return fmt.Errorf("engine.timeout_ms must be positive, got %d", c.Engine.TimeoutMS)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	return nil
}

// WorldBounds returns the world box described by World.Size.
func (c Config) WorldBounds() sdf.Box3 {
	return geom.WorldBounds(c.World.Size)
}

// EvalTimeout returns the script evaluation limit.
func (c Config) EvalTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutMS) * time.Millisecond
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
