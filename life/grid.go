// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package life implements Conway's Game of Life on a toroidal grid.
//
// Cells are stored as a flat, row-major slice of uint32, one word per cell,
// which is the layout the simulation and cell shaders use for their storage
// buffers. A Grid can therefore be uploaded to the GPU without conversion.
package life

import (
	"fmt"
	"slices"
)

// Point is a cell coordinate.
type Point struct {
	X, Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Grid is a toroidal grid of binary cells. A cell is alive iff its value is
// non-zero.
type Grid struct {
	Width  int
	Height int
	Cells  []uint32
}

func NewGrid(width, height int) *Grid {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("invalid grid size %dx%d", width, height))
	}
	return &Grid{
		Width:  width,
		Height: height,
		Cells:  make([]uint32, width*height),
	}
}

// wrap maps v into [0, n).
func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// Index returns the index of the cell at (x, y). Both coordinates wrap
// around, so every integer pair names a cell.
func (g *Grid) Index(x, y int) int {
	return wrap(y, g.Height)*g.Width + wrap(x, g.Width)
}

func (g *Grid) Alive(x, y int) bool {
	return g.Cells[g.Index(x, y)] != 0
}

func (g *Grid) Set(x, y int, alive bool) {
	var v uint32
	if alive {
		v = 1
	}
	g.Cells[g.Index(x, y)] = v
}

// Clear kills every cell.
func (g *Grid) Clear() {
	clear(g.Cells)
}

// Fill sets every cell to the result of fn.
func (g *Grid) Fill(fn func(x, y int) bool) {
	for y := range g.Height {
		for x := range g.Width {
			g.Set(x, y, fn(x, y))
		}
	}
}

func (g *Grid) Clone() *Grid {
	return &Grid{
		Width:  g.Width,
		Height: g.Height,
		Cells:  slices.Clone(g.Cells),
	}
}

// Equal reports whether g and o have the same size and the same set of live
// cells. Live cells compare equal regardless of their non-zero value.
func (g *Grid) Equal(o *Grid) bool {
	if g.Width != o.Width || g.Height != o.Height {
		return false
	}
	for i, c := range g.Cells {
		if (c != 0) != (o.Cells[i] != 0) {
			return false
		}
	}
	return true
}

// Population returns the number of live cells.
func (g *Grid) Population() int {
	n := 0
	for _, c := range g.Cells {
		if c != 0 {
			n++
		}
	}
	return n
}

// LiveCells returns the coordinates of all live cells, ordered by row and
// then by column.
func (g *Grid) LiveCells() []Point {
	var out []Point
	for i, c := range g.Cells {
		if c != 0 {
			out = append(out, Point{X: i % g.Width, Y: i / g.Width})
		}
	}
	return out
}

var neighborOffsets = [8]Point{
	{1, 1}, {1, 0}, {1, -1}, {0, -1},
	{-1, -1}, {-1, 0}, {-1, 1}, {0, 1},
}

// Neighbors returns the number of live cells among the 8 toroidal neighbors
// of (x, y). On grids narrower than 3 cells, wrapped offsets can land on the
// same cell more than once, or on (x, y) itself; each offset is counted
// separately, matching the simulation shader.
func (g *Grid) Neighbors(x, y int) int {
	n := 0
	for _, off := range neighborOffsets {
		if g.Alive(x+off.X, y+off.Y) {
			n++
		}
	}
	return n
}

func (g *Grid) String() string {
	b := make([]byte, 0, (g.Width+1)*g.Height)
	for y := range g.Height {
		for x := range g.Width {
			if g.Alive(x, y) {
				b = append(b, 'O')
			} else {
				b = append(b, '.')
			}
		}
		b = append(b, '\n')
	}
	return string(b)
}
