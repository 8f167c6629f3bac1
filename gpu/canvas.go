// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package gpu

import (
	"context"
	"fmt"
	"image"
	"math"

	"honnef.co/go/curve"
	"honnef.co/go/wgpu"
)

// DefaultSize is the canvas size used when there is no container.
const DefaultSize = 100

// bytesPerRowAlignment is the alignment WebGPU requires for rows in
// texture-to-buffer copies.
const bytesPerRowAlignment = 256

// A Container is whatever the canvas is laid out in.
type Container interface {
	BoundingRect() curve.Rect
}

// Box is a Container of fixed size.
type Box curve.Rect

func (b Box) BoundingRect() curve.Rect { return curve.Rect(b) }

// Size returns a Box of the given size at the origin.
func Size(width, height float64) Box {
	return Box{X0: 0, Y0: 0, X1: width, Y1: height}
}

// Canvas is an offscreen render target. It stands in for the presentation
// surface of a window: scenes render into its current view and Snapshot
// reads the result back.
type Canvas struct {
	gpu    *Context
	Format wgpu.TextureFormat

	width, height uint32

	texture *wgpu.Texture
	view    *wgpu.TextureView
	// Set by Resize when the current texture no longer matches the size.
	stale bool
}

// NewCanvas returns a canvas of DefaultSize pixels. The backing texture is
// created on first use.
func NewCanvas(ctx *Context, format wgpu.TextureFormat) (*Canvas, error) {
	if ctx == nil {
		return nil, &UnavailableError{Msg: "no presentation context"}
	}
	return &Canvas{
		gpu:    ctx,
		Format: format,
		width:  DefaultSize,
		height: DefaultSize,
		stale:  true,
	}, nil
}

// containerSize returns the pixel size for a container's bounding box.
// Fractional sizes are truncated like an integer canvas attribute, and every
// dimension is at least one pixel.
func containerSize(c Container) (width, height uint32) {
	if c == nil {
		return DefaultSize, DefaultSize
	}
	r := c.BoundingRect()
	dim := func(v float64) uint32 {
		if math.IsNaN(v) || v < 1 {
			return 1
		}
		if v > math.MaxUint32 {
			return math.MaxUint32
		}
		return uint32(v)
	}
	return dim(r.X1 - r.X0), dim(r.Y1 - r.Y0)
}

// Resize sets the canvas to the size of c, or DefaultSize if c is nil. It
// reports whether the size changed. Resizing to the current size is a no-op
// and keeps the current texture.
func (cv *Canvas) Resize(c Container) bool {
	w, h := containerSize(c)
	if w == cv.width && h == cv.height {
		return false
	}
	cv.width, cv.height = w, h
	cv.stale = true
	cv.gpu.Logger().Debug("canvas resized", "width", w, "height", h)
	return true
}

func (cv *Canvas) Width() uint32  { return cv.width }
func (cv *Canvas) Height() uint32 { return cv.height }

// CurrentView returns the view to render the next frame into.
func (cv *Canvas) CurrentView() *wgpu.TextureView {
	if cv.stale || cv.view == nil {
		cv.release()
		cv.texture = cv.gpu.Device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "canvas texture",
			Size: wgpu.Extent3D{
				Width:              cv.width,
				Height:             cv.height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc | wgpu.TextureUsageTextureBinding,
			Format:        cv.Format,
		})
		cv.view = cv.texture.CreateView(nil)
		cv.stale = false
	}
	return cv.view
}

func (cv *Canvas) release() {
	if cv.view != nil {
		cv.view.Release()
		cv.view = nil
	}
	if cv.texture != nil {
		cv.texture.Release()
		cv.texture = nil
	}
}

// Release frees the backing texture.
func (cv *Canvas) Release() {
	cv.release()
	cv.stale = true
}

// paddedBytesPerRow returns the row pitch of a texture copy of the given
// width in RGBA8 pixels.
func paddedBytesPerRow(width uint32) uint32 {
	return DivCeil(width*4, bytesPerRowAlignment) * bytesPerRowAlignment
}

// Snapshot reads back the current frame. It waits for all submitted work
// that renders into the canvas.
func (cv *Canvas) Snapshot(ctx context.Context) (*image.RGBA, error) {
	switch cv.Format {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatBGRA8Unorm:
	default:
		return nil, fmt.Errorf("gpu: can't snapshot canvas with format %v", cv.Format)
	}

	// Make sure there is a texture to copy from.
	cv.CurrentView()
	dev := cv.gpu.Device
	stride := paddedBytesPerRow(cv.width)
	size := uint64(stride) * uint64(cv.height)

	buf := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "canvas readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	defer buf.Release()

	encoder := dev.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "snapshot"})
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  cv.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  stride,
				RowsPerImage: cv.height,
			},
		},
		&wgpu.Extent3D{
			Width:              cv.width,
			Height:             cv.height,
			DepthOrArrayLayers: 1,
		},
	)
	cmd := encoder.Finish(nil)
	defer cmd.Release()
	cv.gpu.Queue.Submit(cmd)

	if err := cv.gpu.Wait(ctx, buf.Map(dev, wgpu.MapModeRead, 0, int(size))); err != nil {
		return nil, fmt.Errorf("gpu: mapping snapshot buffer: %w", err)
	}
	defer buf.Unmap()

	img := image.NewRGBA(image.Rect(0, 0, int(cv.width), int(cv.height)))
	copyRows(img, buf.ReadOnlyMappedRange(0, int(size)), int(stride), cv.Format == wgpu.TextureFormatBGRA8Unorm)
	return img, nil
}

// copyRows copies padded rows of RGBA8 or BGRA8 pixels into img.
func copyRows(img *image.RGBA, data []byte, stride int, bgra bool) {
	w := img.Rect.Dx() * 4
	for y := range img.Rect.Dy() {
		dst := img.Pix[y*img.Stride : y*img.Stride+w]
		copy(dst, data[y*stride:y*stride+w])
		if bgra {
			for i := 0; i < len(dst); i += 4 {
				dst[i], dst[i+2] = dst[i+2], dst[i]
			}
		}
	}
}
