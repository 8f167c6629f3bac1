// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package codelab

import (
	"fmt"
	"time"

	"honnef.co/go/gpuscenes/life"
)

type Backend string

const (
	// BackendGPU runs the simulation in a compute shader.
	BackendGPU Backend = "gpu"
	// BackendCPU runs the simulation with package life and uploads every
	// generation for rendering.
	BackendCPU Backend = "cpu"
)

type Options struct {
	// Width and height of the grid, in cells. Defaults to 50.
	GridSize int
	// Defaults to 8.
	WorkgroupSize int
	// Time between ticks. Defaults to 200ms.
	Interval time.Duration
	// Probability of a cell starting out alive. Defaults to
	// life.DefaultDensity. Negative values start with an empty grid.
	Density float64
	// Seed of the initial random fill. Zero picks a seed from the clock.
	Seed int64
	// Defaults to BackendGPU.
	Backend Backend
	// Pattern, if set, is stamped into the center of an empty grid instead
	// of the random fill.
	Pattern *life.Grid
	// Profile records GPU timestamps of every tick if the device supports
	// them.
	Profile bool
	// OnTick, if set, is called on the host's loop after every tick.
	OnTick func(Stats)
}

func (opts *Options) withDefaults() Options {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.GridSize == 0 {
		o.GridSize = 50
	}
	if o.WorkgroupSize == 0 {
		o.WorkgroupSize = 8
	}
	if o.Interval == 0 {
		o.Interval = 200 * time.Millisecond
	}
	if o.Density == 0 {
		o.Density = life.DefaultDensity
	}
	if o.Backend == "" {
		o.Backend = BackendGPU
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// Validate reports options that can't be simulated.
func (opts *Options) Validate() error {
	o := opts.withDefaults()
	switch {
	case o.GridSize < 0:
		return fmt.Errorf("codelab: invalid grid size %d", o.GridSize)
	case o.WorkgroupSize < 0:
		return fmt.Errorf("codelab: invalid workgroup size %d", o.WorkgroupSize)
	case o.Interval < 0:
		return fmt.Errorf("codelab: invalid interval %s", o.Interval)
	case o.Density > 1:
		return fmt.Errorf("codelab: density %g is larger than 1", o.Density)
	}
	switch o.Backend {
	case BackendGPU, BackendCPU:
	default:
		return fmt.Errorf("codelab: unknown backend %q", o.Backend)
	}
	if o.Pattern != nil && (o.Pattern.Width > o.GridSize || o.Pattern.Height > o.GridSize) {
		return fmt.Errorf("codelab: %dx%d pattern doesn't fit a %d cell grid",
			o.Pattern.Width, o.Pattern.Height, o.GridSize)
	}
	return nil
}

// InitialGrid returns generation zero for o.
func InitialGrid(opts *Options) *life.Grid {
	o := opts.withDefaults()
	g := life.NewGrid(o.GridSize, o.GridSize)
	if o.Pattern != nil {
		g.Stamp(o.Pattern, (o.GridSize-o.Pattern.Width)/2, (o.GridSize-o.Pattern.Height)/2)
		return g
	}
	if o.Density > 0 {
		life.Seed(g, life.NewRand(o.Seed), o.Density)
	}
	return g
}
