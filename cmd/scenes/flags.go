// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"
	"honnef.co/go/gpuscenes/internal/config"
	"honnef.co/go/gpuscenes/life"
	"honnef.co/go/gpuscenes/scenes/codelab"
	"honnef.co/go/gpuscenes/scenes/outline"
	"honnef.co/go/wgpu"
)

type flags struct {
	list     bool
	scene    string
	size     string
	ticks    int
	duration time.Duration
	out      string
	every    bool
	scale    int
	config   string
	seed     int64
	backend  string
	pattern  string
	invert   bool
	profile  bool
	verbose  bool
}

func (f *flags) register(fs *flag.FlagSet) {
	fs.BoolVar(&f.list, "list", false, "List scenes and exit")
	fs.StringVar(&f.scene, "scene", "", "`Name` of the scene to run (default: the first scene)")
	fs.StringVar(&f.size, "size", "800x600", "Canvas size as `WxH`")
	fs.IntVar(&f.ticks, "ticks", 0, "Stop after `n` ticks of an animated scene")
	fs.DurationVar(&f.duration, "duration", 0, "Stop after `d`")
	fs.StringVar(&f.out, "out", "", "Write frames as PNG files to `directory`")
	fs.BoolVar(&f.every, "every", false, "Write every frame, not only the last one")
	fs.IntVar(&f.scale, "scale", 1, "Enlarge written frames by integer `factor`")
	fs.StringVar(&f.config, "config", "", "Read configuration from TOML `file`")
	fs.Int64Var(&f.seed, "seed", 0, "Seed of the random initial grid (default: time-based)")
	fs.StringVar(&f.backend, "backend", "gpu", "Simulation backend, gpu or cpu")
	fs.StringVar(&f.pattern, "pattern", "", "Start from the plaintext pattern in `file`")
	fs.BoolVar(&f.invert, "invert", false, "Invert the checkerboard of the Outline scene")
	fs.BoolVar(&f.profile, "profile", false, "Log GPU pass timings")
	fs.BoolVar(&f.verbose, "v", false, "Be verbose")
}

// apply copies the flags that were set on the command line into cfg.
func (f *flags) apply(fs *flag.FlagSet, cfg *config.Config) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "size":
			var w, h int
			w, h, err = parseSize(f.size)
			cfg.Canvas.Width, cfg.Canvas.Height = w, h
		case "seed":
			cfg.Codelab.Seed = f.seed
		case "backend":
			cfg.Codelab.Backend = f.backend
		case "pattern":
			cfg.Codelab.Pattern = f.pattern
		case "invert":
			cfg.Outline.Invert = f.invert
		}
	})
	if err != nil {
		return err
	}
	if f.every && f.out == "" {
		return fmt.Errorf("-every requires -out")
	}
	if f.scale < 1 {
		return fmt.Errorf("invalid scale %d", f.scale)
	}
	if f.ticks < 0 {
		return fmt.Errorf("invalid tick count %d", f.ticks)
	}
	return cfg.Validate()
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	return w, h, nil
}

func codelabOptions(cfg *config.Config) (*codelab.Options, error) {
	c := cfg.Codelab
	opts := &codelab.Options{
		GridSize:      c.GridSize,
		WorkgroupSize: c.WorkgroupSize,
		Interval:      time.Duration(c.Interval),
		Density:       c.Density,
		Seed:          c.Seed,
		Backend:       codelab.Backend(c.Backend),
	}
	if c.Pattern != "" {
		src, err := os.ReadFile(c.Pattern)
		if err != nil {
			return nil, err
		}
		opts.Pattern, err = life.ParsePlaintext(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Pattern, err)
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func outlineOptions(cfg *config.Config) *outline.Options {
	return &outline.Options{Invert: cfg.Outline.Invert}
}

func canvasFormat(name string) (wgpu.TextureFormat, error) {
	switch name {
	case "rgba8":
		return wgpu.TextureFormatRGBA8Unorm, nil
	case "bgra8":
		return wgpu.TextureFormatBGRA8Unorm, nil
	default:
		return 0, fmt.Errorf("unknown canvas format %q", name)
	}
}

// scaleImage enlarges img by factor without smoothing, so that every pixel
// becomes a factor×factor square.
func scaleImage(img image.Image, factor int) image.Image {
	if factor == 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// writePNG writes img to dir/name.png and returns the path.
func writePNG(dir, name string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
