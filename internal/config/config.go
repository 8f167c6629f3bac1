// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package config loads the TOML configuration of the scenes command.
//
//	[canvas]
//	width = 800
//	height = 600
//	format = "rgba8"
//
//	[codelab]
//	grid_size = 50
//	workgroup_size = 8
//	interval = "200ms"
//	density = 0.4
//	seed = 1
//	backend = "gpu"
//	pattern = "glider.cells"
//
//	[outline]
//	invert = false
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Canvas  Canvas  `toml:"canvas"`
	Codelab Codelab `toml:"codelab"`
	Outline Outline `toml:"outline"`
}

type Canvas struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Format string `toml:"format"`
}

// Codelab mirrors codelab.Options. Zero values mean the scene's defaults.
type Codelab struct {
	GridSize      int      `toml:"grid_size"`
	WorkgroupSize int      `toml:"workgroup_size"`
	Interval      Duration `toml:"interval"`
	Density       float64  `toml:"density"`
	Seed          int64    `toml:"seed"`
	Backend       string   `toml:"backend"`
	// Path of a plaintext pattern, relative to the configuration file.
	Pattern string `toml:"pattern"`
}

type Outline struct {
	Invert bool `toml:"invert"`
}

// Duration is a time.Duration written as a string, such as "200ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Canvas: Canvas{Width: 800, Height: 600, Format: "rgba8"},
	}
}

// Parse reads a configuration on top of Default. Unknown keys are errors.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load parses the file at path. A relative pattern path is resolved against
// the file's directory.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p := cfg.Codelab.Pattern; p != "" && !filepath.IsAbs(p) {
		cfg.Codelab.Pattern = filepath.Join(filepath.Dir(path), p)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Canvas.Width <= 0 || cfg.Canvas.Height <= 0 {
		return fmt.Errorf("%w: canvas size %dx%d", ErrInvalid, cfg.Canvas.Width, cfg.Canvas.Height)
	}
	switch cfg.Canvas.Format {
	case "rgba8", "bgra8":
	default:
		return fmt.Errorf("%w: unknown canvas format %q", ErrInvalid, cfg.Canvas.Format)
	}
	switch cfg.Codelab.Backend {
	case "", "gpu", "cpu":
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, cfg.Codelab.Backend)
	}
	if cfg.Codelab.GridSize < 0 || cfg.Codelab.WorkgroupSize < 0 || cfg.Codelab.Interval < 0 {
		return fmt.Errorf("%w: negative codelab setting", ErrInvalid)
	}
	return nil
}
