// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package codelab

import "honnef.co/go/curve"

// cellQuad is the square drawn for every cell, as two triangles in
// cell-local clip space. Leaving a gap of 0.2 on every side separates
// neighboring cells.
var cellQuad = []curve.Point{
	{X: -0.8, Y: -0.8},
	{X: 0.8, Y: -0.8},
	{X: 0.8, Y: 0.8},

	{X: -0.8, Y: -0.8},
	{X: 0.8, Y: 0.8},
	{X: -0.8, Y: 0.8},
}

// vertexData flattens pts into float32x2 vertices.
func vertexData(pts []curve.Point) []float32 {
	out := make([]float32, 0, len(pts)*2)
	for _, pt := range pts {
		out = append(out, float32(pt.X), float32(pt.Y))
	}
	return out
}

// initialStateB is what the second cell buffer holds before the first tick
// overwrites it: the first generation with every fourth cell forced alive.
// It is never drawn.
func initialStateB(a []uint32) []uint32 {
	b := make([]uint32, len(a))
	copy(b, a)
	for i := 0; i < len(b); i += 4 {
		b[i] = 1
	}
	return b
}
