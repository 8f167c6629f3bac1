// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package outline draws the triangle filled with a one pixel checkerboard.
package outline

import (
	"honnef.co/go/gpuscenes/scenes/internal/static"
	"honnef.co/go/gpuscenes/shaders"
)

const Path = "Outline"

type Options struct {
	// Invert swaps the black and white squares of the checkerboard.
	Invert bool
}

func New(opts *Options) *static.Scene {
	s := &static.Scene{
		Name:     Path,
		Shader:   shaders.Collection.Outline,
		Vertices: static.Triangle,
	}
	if opts != nil && opts.Invert {
		s.Defines = []string{"invert"}
	}
	return s
}
