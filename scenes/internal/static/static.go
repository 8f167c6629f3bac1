// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package static draws a fixed set of colored triangles once per mount.
package static

import (
	"context"

	"honnef.co/go/curve"
	"honnef.co/go/gpuscenes/gpu"
	"honnef.co/go/gpuscenes/scene"
	"honnef.co/go/gpuscenes/shaders"
	"honnef.co/go/wgpu"
)

// ClearColor is the background of both static scenes.
var ClearColor = wgpu.Color{R: 0, G: 0.5, B: 1, A: 1}

type Vertex struct {
	Pos   curve.Point
	Color [4]float32
}

// Triangle is a red, green and blue triangle.
var Triangle = []Vertex{
	{Pos: curve.Point{X: 0, Y: 0.6}, Color: [4]float32{1, 0, 0, 1}},
	{Pos: curve.Point{X: -0.5, Y: -0.6}, Color: [4]float32{0, 1, 0, 1}},
	{Pos: curve.Point{X: 0.5, Y: -0.6}, Color: [4]float32{0, 0, 1, 1}},
}

// floatsPerVertex is the size of an xyzw position followed by an rgba
// color.
const floatsPerVertex = 8

// VertexData interleaves positions, padded to xyzw with z=0 and w=1, with
// colors.
func VertexData(vs []Vertex) []float32 {
	out := make([]float32, 0, len(vs)*floatsPerVertex)
	for _, v := range vs {
		out = append(out, float32(v.Pos.X), float32(v.Pos.Y), 0, 1)
		out = append(out, v.Color[:]...)
	}
	return out
}

// Scene draws Vertices with Shader. All resources except the vertex buffer
// are released once the frame is submitted.
type Scene struct {
	Name     string
	Shader   shaders.Source
	Defines  []string
	Vertices []Vertex

	vertexBuffer *wgpu.Buffer
}

func (s *Scene) Mount(ctx context.Context, h *scene.Host) error {
	c, err := h.GPU(ctx)
	if err != nil {
		return err
	}
	log := h.Logger().With("scene", s.Name)
	canvas := h.Canvas()

	sh := shaders.MustLoad(s.Shader, &shaders.Options{Defines: s.Defines})
	mod := gpu.ShaderModule(c, sh)
	defer mod.Release()

	data := VertexData(s.Vertices)
	s.vertexBuffer = gpu.BufferInit(c, "Vertex buffer", wgpu.BufferUsageVertex, gpu.Float32Bytes(data))
	pipeline := gpu.RenderPipeline(c, &gpu.RenderPipelineDesc{
		Label:   s.Name + " pipeline",
		Module:  mod,
		Shader:  sh,
		Format:  canvas.Format,
		Buffers: []wgpu.VertexBufferLayout{gpu.PositionColorLayout()},
	})
	defer pipeline.Release()

	encoder := c.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: s.Name})
	defer encoder.Release()
	pass := gpu.ClearPass(encoder, canvas.CurrentView(), ClearColor, nil)
	pass.SetPipeline(pipeline)
	pass.SetVertexBuffer(0, s.vertexBuffer, 0, ^uint64(0))
	pass.Draw(uint32(len(data)/floatsPerVertex), 1, 0, 0)
	pass.End()
	pass.Release()

	cmd := encoder.Finish(nil)
	defer cmd.Release()
	c.Queue.Submit(cmd)
	log.Debug("drew frame", "vertices", len(s.Vertices))
	return nil
}

func (s *Scene) Unmount() {
	if s.vertexBuffer != nil {
		s.vertexBuffer.Release()
		s.vertexBuffer = nil
	}
}
