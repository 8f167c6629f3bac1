// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package gpu

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/exp/constraints"
	"honnef.co/go/gpuscenes/shaders"
	"honnef.co/go/safeish"
	"honnef.co/go/wgpu"
)

// wholeSize binds the entire buffer.
const wholeSize = ^uint64(0)

// DivCeil returns ceil(a/b), the number of workgroups of size b needed to
// cover a invocations.
func DivCeil[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

func Uint32Bytes(s []uint32) []byte   { return safeish.SliceCast[[]byte](s) }
func Float32Bytes(s []float32) []byte { return safeish.SliceCast[[]byte](s) }

// BufferInit creates a buffer holding data. CopyDst is added to usage.
func BufferInit(ctx *Context, label string, usage wgpu.BufferUsage, data []byte) *wgpu.Buffer {
	buf := ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	ctx.Queue.WriteBuffer(buf, 0, data)
	ctx.Logger().Debug("created buffer", "label", label, "size", len(data))
	return buf
}

// ReadBuffer copies the first size bytes of src, which needs CopySrc usage,
// after all work submitted so far.
func ReadBuffer(ctx context.Context, c *Context, src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	defer staging.Release()

	encoder := c.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "readback"})
	defer encoder.Release()
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	cmd := encoder.Finish(nil)
	defer cmd.Release()
	c.Queue.Submit(cmd)

	if err := c.Wait(ctx, staging.Map(c.Device, wgpu.MapModeRead, 0, int(size))); err != nil {
		return nil, fmt.Errorf("gpu: mapping readback buffer: %w", err)
	}
	defer staging.Unmap()
	return bytes.Clone(staging.ReadOnlyMappedRange(0, int(size))), nil
}

func ShaderModule(ctx *Context, sh *shaders.Shader) *wgpu.ShaderModule {
	// OPT(dh): use SPIR-V instead of WGSL for faster startup.
	mod := ctx.Device.CreateShaderModule(wgpu.ShaderModuleDescriptor{
		Label:  sh.Name,
		Source: wgpu.ShaderSourceWGSL(sh.Code),
	})
	ctx.Logger().Debug("created shader module", "label", sh.Name)
	return mod
}

// Binding is one entry of a bind group layout. Entries are numbered by their
// position.
type Binding struct {
	Type       shaders.BindType
	Visibility wgpu.ShaderStage
}

// Bindings returns one Binding per type, all with the same visibility.
func Bindings(visibility wgpu.ShaderStage, types ...shaders.BindType) []Binding {
	out := make([]Binding, len(types))
	for i, typ := range types {
		out[i] = Binding{Type: typ, Visibility: visibility}
	}
	return out
}

// LayoutEntries converts bindings to bind group layout entries.
func LayoutEntries(bindings []Binding) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, len(bindings))
	for i, b := range bindings {
		var typ wgpu.BufferBindingType
		switch b.Type {
		case shaders.Buffer:
			typ = wgpu.BufferBindingTypeStorage
		case shaders.BufReadOnly:
			typ = wgpu.BufferBindingTypeReadOnlyStorage
		case shaders.Uniform:
			typ = wgpu.BufferBindingTypeUniform
		default:
			panic(fmt.Sprintf("unhandled bind type %v", b.Type))
		}
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: b.Visibility,
			Buffer: &wgpu.BufferBindingLayout{
				Type:             typ,
				HasDynamicOffset: false,
				MinBindingSize:   0,
			},
		}
	}
	return entries
}

func BindGroupLayout(ctx *Context, label string, bindings []Binding) *wgpu.BindGroupLayout {
	return ctx.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: LayoutEntries(bindings),
	})
}

// BindBuffers creates a bind group that binds bufs in order.
func BindBuffers(ctx *Context, label string, layout *wgpu.BindGroupLayout, bufs ...*wgpu.Buffer) *wgpu.BindGroup {
	entries := make([]wgpu.BindGroupEntry, len(bufs))
	for i, buf := range bufs {
		entries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  buf,
			Size:    wholeSize,
		}
	}
	return ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
}

func PipelineLayout(ctx *Context, label string, layouts ...*wgpu.BindGroupLayout) *wgpu.PipelineLayout {
	return ctx.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
}

// ComputePipeline creates a pipeline for the compute entry point of sh.
func ComputePipeline(ctx *Context, label string, mod *wgpu.ShaderModule, sh *shaders.Shader, layout *wgpu.PipelineLayout) *wgpu.ComputePipeline {
	if sh.Compute == "" {
		panic(fmt.Sprintf("shader %q has no compute entry point", sh.Name))
	}
	pipeline := ctx.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     mod,
			EntryPoint: sh.Compute,
		},
	})
	ctx.Logger().Debug("created compute pipeline", "label", label)
	return pipeline
}

// RenderPipelineDesc describes a pipeline that draws triangle lists into a
// single color target.
type RenderPipelineDesc struct {
	Label  string
	Module *wgpu.ShaderModule
	Shader *shaders.Shader
	// Layout may be nil to derive the layout from the shader.
	Layout  *wgpu.PipelineLayout
	Format  wgpu.TextureFormat
	Buffers []wgpu.VertexBufferLayout
}

func RenderPipeline(ctx *Context, desc *RenderPipelineDesc) *wgpu.RenderPipeline {
	sh := desc.Shader
	if sh.Vertex == "" || sh.Fragment == "" {
		panic(fmt.Sprintf("shader %q lacks vertex or fragment entry point", sh.Name))
	}
	pipeline := ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: desc.Layout,
		Vertex: &wgpu.VertexState{
			Module:     desc.Module,
			EntryPoint: sh.Vertex,
			Buffers:    desc.Buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     desc.Module,
			EntryPoint: sh.Fragment,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    desc.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: &wgpu.PrimitiveState{
			Topology:         wgpu.PrimitiveTopologyTriangleList,
			StripIndexFormat: wgpu.IndexFormatUndefined,
			FrontFace:        wgpu.FrontFaceCCW,
			CullMode:         wgpu.CullModeNone,
		},
		Multisample: &wgpu.MultisampleState{
			Count:                  1,
			Mask:                   ^uint32(0),
			AlphaToCoverageEnabled: false,
		},
	})
	ctx.Logger().Debug("created render pipeline", "label", desc.Label)
	return pipeline
}

// Float32x2Layout is a vertex buffer of tightly packed vec2f at location 0.
func Float32x2Layout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: 8,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		},
	}
}

// PositionColorLayout is a vertex buffer of interleaved vec4f position at
// location 0 and vec4f color at location 1.
func PositionColorLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: 32,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1},
		},
	}
}

// ClearPass begins a render pass into view that first clears it to c.
func ClearPass(enc *wgpu.CommandEncoder, view *wgpu.TextureView, c wgpu.Color, ts *wgpu.RenderPassTimestampWrites) *wgpu.RenderPassEncoder {
	return enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: c,
			},
		},
		TimestampWrites: ts,
	})
}
