// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package mdn draws the triangle of MDN's WebGPU API reference.
package mdn

import (
	"honnef.co/go/gpuscenes/scenes/internal/static"
	"honnef.co/go/gpuscenes/shaders"
)

const Path = "MdnReference"

func New() *static.Scene {
	return &static.Scene{
		Name:     Path,
		Shader:   shaders.Collection.Triangle,
		Vertices: static.Triangle,
	}
}
