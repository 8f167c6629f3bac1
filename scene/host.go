// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package scene

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"honnef.co/go/gpuscenes/gpu"
	"honnef.co/go/gpuscenes/internal/logging"
	"honnef.co/go/wgpu"
)

var ErrClosed = errors.New("scene: host closed")

type HostOptions struct {
	Logger *slog.Logger
	// Clock drives timers. Defaults to SystemClock.
	Clock Clock
	// Acquire obtains the device on first use. Defaults to gpu.Acquire.
	Acquire func(context.Context, *gpu.Options) (*gpu.Context, error)
	// Format of the canvas. Defaults to RGBA8Unorm.
	Format wgpu.TextureFormat
	// Container is the initial container of the canvas. Nil means the
	// default canvas size.
	Container gpu.Container
	// Profile requests a device with timestamp queries.
	Profile bool
}

func (opts *HostOptions) withDefaults() HostOptions {
	var o HostOptions
	if opts != nil {
		o = *opts
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	if o.Acquire == nil {
		o.Acquire = gpu.Acquire
	}
	if o.Format == 0 {
		o.Format = wgpu.TextureFormatRGBA8Unorm
	}
	return o
}

// Host runs a single event loop. Mounts, timer callbacks and resizes all
// execute on it, one at a time. Methods other than Resize, Do and Close must
// only be called from the loop, which is to say from Scene.Mount,
// Scene.Unmount or a timer callback.
type Host struct {
	opts HostOptions
	log  *slog.Logger

	calls     chan func()
	resizes   chan gpu.Container
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the loop.
	container gpu.Container
	gpu       *gpu.Context
	canvas    *gpu.Canvas
	timers    []*timer
	// unmounts the current scene; set by the picker
	unmount func()
}

type timer struct {
	ticker Ticker
	// signals the timer's goroutine to exit
	stop chan struct{}
	// only accessed on the loop
	stopped bool
}

func NewHost(opts *HostOptions) *Host {
	o := opts.withDefaults()
	h := &Host{
		opts:      o,
		log:       o.Logger,
		calls:     make(chan func()),
		resizes:   make(chan gpu.Container, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		container: o.Container,
	}
	go h.loop()
	return h
}

func (h *Host) loop() {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.resizes:
			h.applyResize(c)
		case fn := <-h.calls:
			// A resize requested before this call must be visible to it.
			select {
			case c := <-h.resizes:
				h.applyResize(c)
			default:
			}
			fn()
		case <-h.done:
			// Scene resources must go before the device they belong to.
			if h.unmount != nil {
				h.unmount()
			}
			h.stopTimers()
			if h.canvas != nil {
				h.canvas.Release()
			}
			h.gpu.Release()
			h.gpu, h.canvas = nil, nil
			return
		}
	}
}

// Do runs fn on the loop and waits for it to return. It must not be called
// from the loop.
func (h *Host) Do(fn func()) error {
	finished := make(chan struct{})
	select {
	case h.calls <- func() { defer close(finished); fn() }:
	case <-h.done:
		return ErrClosed
	}
	<-finished
	return nil
}

// Resize moves the canvas to container c. It doesn't block and may be called
// from any goroutine. Of several resizes requested while the loop is busy,
// only the last one is applied.
func (h *Host) Resize(c gpu.Container) {
	for {
		select {
		case h.resizes <- c:
			return
		default:
		}
		// Replace the pending resize.
		select {
		case <-h.resizes:
		default:
		}
	}
}

func (h *Host) applyResize(c gpu.Container) {
	h.container = c
	if h.canvas != nil && h.canvas.Resize(c) {
		h.log.Debug("canvas resized", "width", h.canvas.Width(), "height", h.canvas.Height())
	}
}

// Close unmounts the current scene, stops all timers, releases the canvas and
// device and stops the loop.
func (h *Host) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	<-h.stopped
}

func (h *Host) Logger() *slog.Logger { return h.log }

// Canvas returns the canvas, sized to the current container. It is nil until
// GPU has succeeded.
func (h *Host) Canvas() *gpu.Canvas { return h.canvas }

// GPU returns the host's device, acquiring it on first use. A failed
// acquisition is returned as is and retried on the next call.
func (h *Host) GPU(ctx context.Context) (*gpu.Context, error) {
	if h.gpu != nil {
		return h.gpu, nil
	}
	c, err := h.opts.Acquire(ctx, &gpu.Options{Logger: h.log, Profile: h.opts.Profile})
	if err != nil {
		return nil, err
	}
	cv, err := gpu.NewCanvas(c, h.opts.Format)
	if err != nil {
		c.Release()
		return nil, err
	}
	cv.Resize(h.container)
	h.gpu, h.canvas = c, cv
	return c, nil
}

// Every calls fn on the loop every d until the current scene is unmounted.
func (h *Host) Every(d time.Duration, fn func()) {
	t := &timer{
		ticker: h.opts.Clock.NewTicker(d),
		stop:   make(chan struct{}),
	}
	h.timers = append(h.timers, t)
	call := func() {
		// The timer may have been stopped while this call was queued.
		if !t.stopped {
			fn()
		}
	}
	go func() {
		for {
			select {
			case <-t.ticker.C():
			case <-t.stop:
				return
			case <-h.done:
				return
			}
			select {
			case h.calls <- call:
			case <-t.stop:
				return
			case <-h.done:
				return
			}
		}
	}()
}

func (h *Host) stopTimers() {
	for _, t := range h.timers {
		t.stopped = true
		t.ticker.Stop()
		close(t.stop)
	}
	if len(h.timers) > 0 {
		h.log.Debug("stopped timers", "count", len(h.timers))
	}
	clear(h.timers)
	h.timers = h.timers[:0]
}
