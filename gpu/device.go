// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package gpu is the boundary to WebGPU. It acquires devices, owns the
// offscreen canvas the scenes render into and provides the small set of
// resource helpers the scenes share.
package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"honnef.co/go/gpuscenes/internal/logging"
	"honnef.co/go/wgpu"
)

// ErrUnavailable is the only runtime error kind of this package. It is
// returned when no usable graphics stack exists.
var ErrUnavailable = errors.New("gpu: unavailable")

// UnavailableError describes which step of the acquisition failed.
type UnavailableError struct {
	Msg string
	Err error
}

func (err *UnavailableError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("%s (%s)", err.Msg, err.Err)
	}
	return err.Msg
}

func (err *UnavailableError) Unwrap() []error {
	if err.Err != nil {
		return []error{ErrUnavailable, err.Err}
	}
	return []error{ErrUnavailable}
}

const (
	msgNoInstance = "WebGPU not supported."
	msgNoAdapter  = "Couldn't request WebGPU adapter."
	msgNoDevice   = "Couldn't request WebGPU device."
)

type Options struct {
	Logger          *slog.Logger
	PowerPreference wgpu.PowerPreference
	// Profile requests timestamp queries. Devices without support for them
	// are still returned, with Context.CanProfile false.
	Profile bool
}

// Context is an acquired device and its queue.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	CanProfile bool
	log        *slog.Logger
}

type acquired struct {
	ctx *Context
	err error
}

// Acquire requests an adapter and a device. It blocks until both are
// available or ctx is done.
func Acquire(ctx context.Context, opts *Options) (*Context, error) {
	if opts == nil {
		opts = &Options{}
	}
	log := logging.OrDiscard(opts.Logger)

	ch := make(chan acquired, 1)
	go func() {
		c, err := acquire(opts, log)
		ch <- acquired{c, err}
	}()
	select {
	case res := <-ch:
		return res.ctx, res.err
	case <-ctx.Done():
		// Release whatever the abandoned request eventually produces.
		go func() {
			if res := <-ch; res.ctx != nil {
				res.ctx.Release()
			}
		}()
		return nil, ctx.Err()
	}
}

func acquire(opts *Options, log *slog.Logger) (c *Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			// The native library panics when it can't be loaded at all.
			c = nil
			err = &UnavailableError{Msg: msgNoInstance, Err: fmt.Errorf("%v", r)}
		}
	}()

	inst := wgpu.CreateInstance(wgpu.InstanceDescriptor{})
	if inst == nil {
		return nil, &UnavailableError{Msg: msgNoInstance}
	}
	adapter, err := inst.RequestAdapter(wgpu.RequestAdapterOptions{
		PowerPreference: opts.PowerPreference,
	})
	if err != nil || adapter == nil {
		inst.Release()
		return nil, &UnavailableError{Msg: msgNoAdapter, Err: err}
	}
	log.Info("adapter acquired")

	canProfile := opts.Profile && adapter.HasFeature(wgpu.FeatureNameTimestampQuery)
	desc := &wgpu.DeviceDescriptor{Label: "gpuscenes device"}
	if canProfile {
		desc.RequiredFeatures = []wgpu.FeatureName{wgpu.FeatureNameTimestampQuery}
	} else if opts.Profile {
		log.Warn("adapter doesn't support timestamp queries, profiling disabled")
	}
	dev, err := adapter.RequestDevice(desc)
	if err != nil || dev == nil {
		adapter.Release()
		inst.Release()
		return nil, &UnavailableError{Msg: msgNoDevice, Err: err}
	}
	log.Debug("device acquired", "profiling", canProfile)

	return &Context{
		Instance:   inst,
		Adapter:    adapter,
		Device:     dev,
		Queue:      dev.Queue(),
		CanProfile: canProfile,
		log:        log,
	}, nil
}

func (c *Context) Logger() *slog.Logger {
	if c == nil {
		return logging.Discard()
	}
	return logging.OrDiscard(c.log)
}

// Release frees the device, adapter and instance. It is safe to call on a
// nil Context.
func (c *Context) Release() {
	if c == nil {
		return
	}
	if c.Device != nil {
		c.Device.Release()
	}
	if c.Adapter != nil {
		c.Adapter.Release()
	}
	if c.Instance != nil {
		c.Instance.Release()
	}
}

// Wait blocks until the map request ch completes or ctx is done. Map
// callbacks only run while the device is polled, so Wait polls it.
func (c *Context) Wait(ctx context.Context, ch <-chan error) error {
	return waitPolled(ctx, ch, c.Device.Poll)
}

func waitPolled(ctx context.Context, ch <-chan error, poll func(wait bool) bool) error {
	for {
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		poll(true)
	}
}
