// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package codelab

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/gpuscenes/gpu"
	"honnef.co/go/gpuscenes/life"
	"honnef.co/go/gpuscenes/scene"
)

func TestDefaults(t *testing.T) {
	o := (*Options)(nil).withDefaults()
	assert.Equal(t, 50, o.GridSize)
	assert.Equal(t, 8, o.WorkgroupSize)
	assert.Equal(t, 200*time.Millisecond, o.Interval)
	assert.Equal(t, life.DefaultDensity, o.Density)
	assert.Equal(t, BackendGPU, o.Backend)
	assert.NotZero(t, o.Seed)

	o = (&Options{GridSize: 64, Seed: 9, Backend: BackendCPU}).withDefaults()
	assert.Equal(t, 64, o.GridSize)
	assert.EqualValues(t, 9, o.Seed)
	assert.Equal(t, BackendCPU, o.Backend)
}

func TestValidate(t *testing.T) {
	glider := life.NewGrid(3, 3)
	life.Glider(glider, 0, 0)

	tests := []struct {
		opts Options
		ok   bool
	}{
		{Options{}, true},
		{Options{GridSize: -1}, false},
		{Options{WorkgroupSize: -8}, false},
		{Options{Interval: -time.Second}, false},
		{Options{Density: 1.5}, false},
		{Options{Backend: "tpu"}, false},
		{Options{GridSize: 3, Pattern: glider}, true},
		{Options{GridSize: 2, Pattern: glider}, false},
	}
	for _, tt := range tests {
		err := tt.opts.Validate()
		if tt.ok {
			assert.NoError(t, err, "%+v", tt.opts)
		} else {
			assert.Error(t, err, "%+v", tt.opts)
		}
	}
	assert.Panics(t, func() { New(&Options{Backend: "tpu"}) })
}

func TestInitialGrid(t *testing.T) {
	a := InitialGrid(&Options{Seed: 5})
	b := InitialGrid(&Options{Seed: 5})
	assert.True(t, a.Equal(b))
	assert.Equal(t, 50, a.Width)
	assert.NotZero(t, a.Population())

	empty := InitialGrid(&Options{Density: -1, Seed: 5})
	assert.Zero(t, empty.Population())

	glider := life.NewGrid(3, 3)
	life.Glider(glider, 0, 0)
	g := InitialGrid(&Options{GridSize: 9, Pattern: glider})
	want := life.NewGrid(9, 9)
	life.Glider(want, 3, 3)
	assert.True(t, g.Equal(want), "got\n%s", g)
}

func TestVertexData(t *testing.T) {
	v := vertexData(cellQuad)
	assert.Len(t, v, 12)
	assert.InDeltaSlice(t, []float64{-0.8, -0.8, 0.8, -0.8, 0.8, 0.8, -0.8, -0.8, 0.8, 0.8, -0.8, 0.8},
		toFloat64(v), 1e-6)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func TestInitialStateB(t *testing.T) {
	a := []uint32{0, 0, 1, 0, 0, 1, 0, 0, 0}
	b := initialStateB(a)
	assert.Equal(t, []uint32{1, 0, 1, 0, 1, 1, 0, 0, 1}, b)
	assert.Equal(t, []uint32{0, 0, 1, 0, 0, 1, 0, 0, 0}, a, "a must not be modified")
}

// manualClock never ticks on its own. Tests call Tick directly.
type manualClock struct{}

func (manualClock) NewTicker(time.Duration) scene.Ticker { return manualTicker{} }

type manualTicker struct{}

func (manualTicker) C() <-chan time.Time { return nil }
func (manualTicker) Stop()               {}

func TestMountAndTick(t *testing.T) {
	for _, backend := range []Backend{BackendGPU, BackendCPU} {
		t.Run(string(backend), func(t *testing.T) {
			h := scene.NewHost(&scene.HostOptions{Clock: manualClock{}, Container: gpu.Size(64, 64)})
			defer h.Close()

			blinker := life.NewGrid(3, 1)
			life.Blinker(blinker, 0, 0)
			s := New(&Options{GridSize: 16, Backend: backend, Pattern: blinker})
			p := scene.NewPicker(scene.NewRouter(scene.Route{Path: Path, New: func() scene.Scene { return s }}), h)
			err := p.Select(context.Background(), Path)
			if errors.Is(err, gpu.ErrUnavailable) {
				t.Skipf("no GPU: %v", err)
			}
			require.NoError(t, err)
			defer p.Close()

			var stats Stats
			require.NoError(t, h.Do(func() {
				s.Tick()
				s.Tick()
				stats = s.Stats()
			}))
			assert.EqualValues(t, 2, stats.Ticks)
			if backend == BackendCPU {
				assert.Equal(t, 3, stats.Population)
			} else {
				assert.Equal(t, -1, stats.Population)
			}

			deadline, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			var snap *image.RGBA
			require.NoError(t, h.Do(func() {
				snap, err = h.Canvas().Snapshot(deadline)
			}))
			require.NoError(t, err)
			assert.Equal(t, 64, snap.Rect.Dx())
		})
	}
}

// TestGPUMatchesSim checks the compute pass against the CPU rule. 13 isn't a
// multiple of the workgroup size, so the last workgroups overhang the grid,
// and live cells on the edges exercise the wraparound.
func TestGPUMatchesSim(t *testing.T) {
	h := scene.NewHost(&scene.HostOptions{Clock: manualClock{}, Container: gpu.Size(32, 32)})
	defer h.Close()

	s := New(&Options{GridSize: 13, WorkgroupSize: 8, Seed: 42, Backend: BackendGPU})
	p := scene.NewPicker(scene.NewRouter(scene.Route{Path: Path, New: func() scene.Scene { return s }}), h)
	err := p.Select(context.Background(), Path)
	if errors.Is(err, gpu.ErrUnavailable) {
		t.Skipf("no GPU: %v", err)
	}
	require.NoError(t, err)
	defer p.Close()

	opts := s.Options()
	sim := life.NewSim(13, 13)
	sim.Load(InitialGrid(&opts))

	deadline, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for tick := range 7 {
		var got *life.Grid
		var readErr error
		require.NoError(t, h.Do(func() {
			if tick > 0 {
				s.Tick()
			}
			got, readErr = s.Cells(deadline)
		}))
		require.NoError(t, readErr)
		want := sim.Current()
		require.True(t, got.Equal(want), "tick %d: got\n%s\nwant\n%s", tick, got, want)
		sim.Step()
	}
}

func TestCPUBackendCells(t *testing.T) {
	h := scene.NewHost(&scene.HostOptions{Clock: manualClock{}, Container: gpu.Size(32, 32)})
	defer h.Close()

	glider := life.NewGrid(3, 3)
	life.Glider(glider, 0, 0)
	s := New(&Options{GridSize: 10, Backend: BackendCPU, Pattern: glider})
	p := scene.NewPicker(scene.NewRouter(scene.Route{Path: Path, New: func() scene.Scene { return s }}), h)
	err := p.Select(context.Background(), Path)
	if errors.Is(err, gpu.ErrUnavailable) {
		t.Skipf("no GPU: %v", err)
	}
	require.NoError(t, err)
	defer p.Close()

	opts := s.Options()
	sim := life.NewSim(10, 10)
	sim.Load(InitialGrid(&opts))
	for range 4 {
		sim.Step()
	}

	deadline, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var got *life.Grid
	var readErr error
	require.NoError(t, h.Do(func() {
		for range 4 {
			s.Tick()
		}
		got, readErr = s.Cells(deadline)
	}))
	require.NoError(t, readErr)
	assert.True(t, got.Equal(sim.Current()), "got\n%s\nwant\n%s", got, sim.Current())
}
