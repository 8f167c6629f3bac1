// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package codelab implements Conway's Game of Life on the GPU, after the
// "Your first WebGPU app" codelab. The grid lives in two storage buffers that
// swap roles every tick: a compute pass reads one and writes the other, and
// the render pass then draws the one just written.
package codelab

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"honnef.co/go/gpuscenes/gpu"
	"honnef.co/go/gpuscenes/life"
	"honnef.co/go/gpuscenes/scene"
	"honnef.co/go/gpuscenes/shaders"
	"honnef.co/go/safeish"
	"honnef.co/go/wgpu"
)

const Path = "GoogleCodelab"

var clearColor = wgpu.Color{R: 0, G: 0, B: 0, A: 0.5}

type Stats struct {
	// Number of completed ticks.
	Ticks uint64
	// CPU time spent encoding and submitting the last tick.
	LastTick time.Duration
	// Live cells after the last tick. Only known with BackendCPU; -1
	// otherwise.
	Population int
	// GPU timings of earlier ticks that became available during the last
	// one. Empty unless profiling.
	Profile []gpu.ProfileResult
}

type Scene struct {
	opts Options
	log  *slog.Logger

	gpu    *gpu.Context
	canvas *gpu.Canvas

	modules         []*wgpu.ShaderModule
	vertexBuffer    *wgpu.Buffer
	vertexCount     uint32
	uniformBuffer   *wgpu.Buffer
	cells           [2]*wgpu.Buffer
	bindGroupLayout *wgpu.BindGroupLayout
	pipelineLayout  *wgpu.PipelineLayout
	bindGroups      [2]*wgpu.BindGroup
	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline
	profiler        *gpu.Profiler

	// Buffer roles for BackendGPU.
	roles life.PingPong
	// The simulation for BackendCPU.
	sim *life.Sim

	stats Stats
}

var _ scene.Scene = (*Scene)(nil)

// New returns an unmounted scene. It panics if opts are invalid.
func New(opts *Options) *Scene {
	if err := opts.Validate(); err != nil {
		panic(err)
	}
	return &Scene{opts: opts.withDefaults()}
}

func (s *Scene) Options() Options { return s.opts }

func (s *Scene) Mount(ctx context.Context, h *scene.Host) error {
	s.log = h.Logger().With("scene", Path)
	c, err := h.GPU(ctx)
	if err != nil {
		return err
	}
	s.gpu = c
	s.canvas = h.Canvas()
	s.stats = Stats{Population: -1}
	n := s.opts.GridSize

	quad := vertexData(cellQuad)
	s.vertexCount = uint32(len(quad) / 2)
	s.vertexBuffer = gpu.BufferInit(c, "Cell vertices", wgpu.BufferUsageVertex, gpu.Float32Bytes(quad))
	s.uniformBuffer = gpu.BufferInit(c, "Grid uniforms", wgpu.BufferUsageUniform,
		gpu.Float32Bytes([]float32{float32(n), float32(n)}))

	initial := InitialGrid(&s.opts)
	cellUsage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	s.cells[0] = gpu.BufferInit(c, "Cell state A", cellUsage, gpu.Uint32Bytes(initial.Cells))
	s.cells[1] = gpu.BufferInit(c, "Cell state B", cellUsage, gpu.Uint32Bytes(initialStateB(initial.Cells)))
	s.roles.Reset()
	if s.opts.Backend == BackendCPU {
		s.sim = life.NewSim(n, n)
		s.sim.Load(initial)
	}

	s.bindGroupLayout = gpu.BindGroupLayout(c, "Cell bind group layout", []gpu.Binding{
		// grid
		{Type: shaders.Uniform, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute},
		// cellStateIn
		{Type: shaders.BufReadOnly, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageCompute},
		// cellStateOut
		{Type: shaders.Buffer, Visibility: wgpu.ShaderStageCompute},
	})
	s.bindGroups[0] = gpu.BindBuffers(c, "Cell bind group A", s.bindGroupLayout, s.uniformBuffer, s.cells[0], s.cells[1])
	s.bindGroups[1] = gpu.BindBuffers(c, "Cell bind group B", s.bindGroupLayout, s.uniformBuffer, s.cells[1], s.cells[0])
	s.pipelineLayout = gpu.PipelineLayout(c, "Cell pipeline layout", s.bindGroupLayout)

	cell := shaders.MustLoad(shaders.Collection.Cell, nil)
	cellModule := gpu.ShaderModule(c, cell)
	s.renderPipeline = gpu.RenderPipeline(c, &gpu.RenderPipelineDesc{
		Label:   "Cell pipeline",
		Module:  cellModule,
		Shader:  cell,
		Layout:  s.pipelineLayout,
		Format:  s.canvas.Format,
		Buffers: []wgpu.VertexBufferLayout{gpu.Float32x2Layout()},
	})
	s.modules = append(s.modules, cellModule)

	sim := shaders.MustLoad(shaders.Collection.Simulation, &shaders.Options{
		Constants: map[string]uint32{"WORKGROUP_SIZE": uint32(s.opts.WorkgroupSize)},
	})
	simModule := gpu.ShaderModule(c, sim)
	s.computePipeline = gpu.ComputePipeline(c, "Simulation pipeline", simModule, sim, s.pipelineLayout)
	s.modules = append(s.modules, simModule)

	if s.opts.Profile {
		s.profiler = gpu.NewProfiler(c)
		if s.profiler == nil {
			s.log.Warn("profiling requested but not supported by the device")
		}
	}

	s.log.Debug("mounted",
		"grid", fmt.Sprintf("%dx%d", n, n),
		"backend", s.opts.Backend,
		"seed", s.opts.Seed,
		"population", initial.Population())
	h.Every(s.opts.Interval, s.Tick)
	return nil
}

// Tick advances the simulation by one generation and draws it. It must run
// on the host's loop.
func (s *Scene) Tick() {
	start := time.Now()
	c := s.gpu
	pg := s.profiler.Start(s.stats.Ticks, "tick")

	encoder := c.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "tick"})
	var draw int
	switch s.opts.Backend {
	case BackendGPU:
		s.simulate(encoder, pg)
		s.roles.Advance()
		draw = s.roles.Read()
	case BackendCPU:
		s.sim.Step()
		roles := s.sim.Roles()
		draw = roles.Read()
		// Queue writes happen before the work of later submissions.
		c.Queue.WriteBuffer(s.cells[draw], 0, gpu.Uint32Bytes(s.sim.Current().Cells))
		s.stats.Population = s.sim.Current().Population()
	}
	s.render(encoder, pg, draw)
	pg.End()
	s.profiler.Resolve(encoder)

	cmd := encoder.Finish(nil)
	c.Queue.Submit(cmd)
	cmd.Release()
	encoder.Release()
	s.profiler.Map()

	s.stats.Ticks++
	s.stats.LastTick = time.Since(start)
	profile, err := s.profiler.Collect()
	if err != nil {
		s.log.Warn("collecting GPU timings failed", "err", err)
	}
	s.stats.Profile = profile
	s.log.Debug("tick", "n", s.stats.Ticks, "took", s.stats.LastTick)
	if s.opts.OnTick != nil {
		s.opts.OnTick(s.stats)
	}
}

func (s *Scene) simulate(encoder *wgpu.CommandEncoder, pg *gpu.ProfileGroup) {
	cpass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{
		Label:           "simulation",
		TimestampWrites: pg.Compute("simulation"),
	})
	cpass.SetPipeline(s.computePipeline)
	cpass.SetBindGroup(0, s.bindGroups[s.roles.Read()], nil)
	wg := gpu.DivCeil(uint32(s.opts.GridSize), uint32(s.opts.WorkgroupSize))
	cpass.DispatchWorkgroups(wg, wg, 1)
	cpass.End()
	cpass.Release()
}

// render draws the cells in buffer i. Bind group i has it as its input.
func (s *Scene) render(encoder *wgpu.CommandEncoder, pg *gpu.ProfileGroup, i int) {
	n := uint32(s.opts.GridSize)
	pass := gpu.ClearPass(encoder, s.canvas.CurrentView(), clearColor, pg.Render("cells"))
	pass.SetPipeline(s.renderPipeline)
	pass.SetVertexBuffer(0, s.vertexBuffer, 0, ^uint64(0))
	pass.SetBindGroup(0, s.bindGroups[i], nil)
	pass.Draw(s.vertexCount, n*n, 0, 0)
	pass.End()
	pass.Release()
}

// Cells reads back the generation that was drawn last, or the initial grid
// before the first tick. It must be called on the host's loop.
func (s *Scene) Cells(ctx context.Context) (*life.Grid, error) {
	i := s.roles.Read()
	if s.opts.Backend == BackendCPU {
		roles := s.sim.Roles()
		i = roles.Read()
	}
	n := s.opts.GridSize
	data, err := gpu.ReadBuffer(ctx, s.gpu, s.cells[i], uint64(n*n)*4)
	if err != nil {
		return nil, err
	}
	g := life.NewGrid(n, n)
	copy(g.Cells, safeish.SliceCast[[]uint32](data))
	return g, nil
}

// Stats must be called on the host's loop.
func (s *Scene) Stats() Stats { return s.stats }

func (s *Scene) Unmount() {
	s.profiler.Release()
	s.profiler = nil
	for i := range s.bindGroups {
		s.bindGroups[i].Release()
		s.bindGroups[i] = nil
	}
	s.computePipeline.Release()
	s.renderPipeline.Release()
	s.pipelineLayout.Release()
	s.bindGroupLayout.Release()
	for _, m := range s.modules {
		m.Release()
	}
	s.modules = nil
	for i := range s.cells {
		s.cells[i].Release()
		s.cells[i] = nil
	}
	s.uniformBuffer.Release()
	s.vertexBuffer.Release()
	s.sim = nil
	s.log.Debug("unmounted", "ticks", s.stats.Ticks)
}
