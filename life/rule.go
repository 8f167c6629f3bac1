// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package life

import "fmt"

// Next applies Conway's rule to a single cell: a live cell with 2 or 3 live
// neighbors survives, a dead cell with exactly 3 live neighbors is born, and
// every other cell is dead.
func Next(alive bool, neighbors int) bool {
	switch neighbors {
	case 2:
		return alive
	case 3:
		return true
	default:
		return false
	}
}

// Step computes one generation of src into dst. src is only read.
func Step(dst, src *Grid) {
	if dst == src {
		panic("life.Step: dst and src must be distinct grids")
	}
	if dst.Width != src.Width || dst.Height != src.Height {
		panic(fmt.Sprintf("life.Step: size mismatch: dst is %dx%d, src is %dx%d",
			dst.Width, dst.Height, src.Width, src.Height))
	}
	for y := range src.Height {
		for x := range src.Width {
			dst.Set(x, y, Next(src.Alive(x, y), src.Neighbors(x, y)))
		}
	}
}

// PingPong names the roles of two equally sized state buffers by tick
// parity. At tick n, buffer n%2 holds the current state and is read, and
// buffer (n+1)%2 receives the next state.
type PingPong struct {
	tick uint64
}

func (p *PingPong) Tick() uint64 { return p.tick }

// Read returns the index of the buffer holding the current state.
func (p *PingPong) Read() int { return int(p.tick % 2) }

// Write returns the index of the buffer that the next state is written to.
func (p *PingPong) Write() int { return int((p.tick + 1) % 2) }

// Advance flips the roles. After Advance, Read names the buffer that was
// just written.
func (p *PingPong) Advance() { p.tick++ }

// Reset returns to tick 0, where buffer 0 holds the seed.
func (p *PingPong) Reset() { p.tick = 0 }

// Sim is a double-buffered simulation.
type Sim struct {
	buffers [2]*Grid
	roles   PingPong
}

func NewSim(width, height int) *Sim {
	return &Sim{
		buffers: [2]*Grid{NewGrid(width, height), NewGrid(width, height)},
	}
}

// Load replaces the current state with a copy of g and resets the tick
// counter.
func (s *Sim) Load(g *Grid) {
	cur := s.buffers[0]
	if g.Width != cur.Width || g.Height != cur.Height {
		panic(fmt.Sprintf("life.Sim.Load: size mismatch: have %dx%d, got %dx%d",
			cur.Width, cur.Height, g.Width, g.Height))
	}
	copy(cur.Cells, g.Cells)
	s.buffers[1].Clear()
	s.roles.Reset()
}

// Current returns the grid at the current tick. It remains valid until the
// next call to Step overwrites it two ticks later.
func (s *Sim) Current() *Grid { return s.buffers[s.roles.Read()] }

// Tick returns the number of completed steps.
func (s *Sim) Tick() uint64 { return s.roles.Tick() }

// Roles returns the buffer roles for the current tick.
func (s *Sim) Roles() PingPong { return s.roles }

// Step advances the simulation by one generation.
func (s *Sim) Step() {
	Step(s.buffers[s.roles.Write()], s.buffers[s.roles.Read()])
	s.roles.Advance()
}
