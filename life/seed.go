// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package life

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
)

// DefaultDensity is the probability of a cell starting out alive.
const DefaultDensity = 0.4

// Seed fills g with independently random cells, each alive with probability
// density.
func Seed(g *Grid, rng *rand.Rand, density float64) {
	for i := range g.Cells {
		if rng.Float64() < density {
			g.Cells[i] = 1
		} else {
			g.Cells[i] = 0
		}
	}
}

// NewRand returns a deterministic source for seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>32|0x9e3779b97f4a7c15))
}

// Stamp copies the live cells of pattern into g with its top left corner at
// (x, y), wrapping around the edges of g. Dead pattern cells leave g
// unchanged.
func (g *Grid) Stamp(pattern *Grid, x, y int) {
	for _, p := range pattern.LiveCells() {
		g.Set(x+p.X, y+p.Y, true)
	}
}

// Blinker places a horizontal period-2 oscillator whose leftmost cell is at
// (x, y).
func Blinker(g *Grid, x, y int) {
	for i := range 3 {
		g.Set(x+i, y, true)
	}
}

// Block places a 2x2 still life with its top left corner at (x, y).
func Block(g *Grid, x, y int) {
	g.Set(x, y, true)
	g.Set(x+1, y, true)
	g.Set(x, y+1, true)
	g.Set(x+1, y+1, true)
}

// Glider places a glider travelling towards +x, +y inside the 3x3 box whose
// top left corner is at (x, y).
func Glider(g *Grid, x, y int) {
	g.Set(x+1, y, true)
	g.Set(x+2, y+1, true)
	g.Set(x, y+2, true)
	g.Set(x+1, y+2, true)
	g.Set(x+2, y+2, true)
}

var ErrEmptyPattern = errors.New("life: pattern has no cells")

// ParsePlaintext parses a pattern in the plaintext (.cells) format. Lines
// starting with '!' are comments, 'O' marks a live cell and '.' a dead one.
// Short rows are padded with dead cells.
func ParsePlaintext(src []byte) (*Grid, error) {
	var rows [][]byte
	width := 0
	sc := bufio.NewScanner(bytes.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimRight(sc.Bytes(), " \t\r")
		if len(line) > 0 && line[0] == '!' {
			continue
		}
		for i, c := range line {
			switch c {
			case 'O', '.':
			default:
				return nil, fmt.Errorf("life: invalid cell %q at line %d, column %d", c, lineNo, i+1)
			}
		}
		rows = append(rows, bytes.Clone(line))
		width = max(width, len(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	// Trailing blank lines don't contribute to the pattern's height.
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	if width == 0 || len(rows) == 0 {
		return nil, ErrEmptyPattern
	}

	g := NewGrid(width, len(rows))
	for y, row := range rows {
		for x, c := range row {
			g.Set(x, y, c == 'O')
		}
	}
	return g, nil
}
