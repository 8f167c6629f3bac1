// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package scene

import (
	"context"
	"fmt"
)

// Picker switches between the routes of a router. At most one scene is
// mounted at a time.
type Picker struct {
	router *Router
	host   *Host

	// Owned by the host's loop.
	current     Scene
	currentPath string
}

func NewPicker(r *Router, h *Host) *Picker {
	return &Picker{router: r, host: h}
}

// Select unmounts the current scene, if any, and mounts the scene at path.
// An error returned by the scene's Mount is returned unchanged, and leaves
// no scene mounted.
func (p *Picker) Select(ctx context.Context, path string) error {
	route, ok := p.router.Lookup(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	var err error
	if derr := p.host.Do(func() { err = p.mount(ctx, route) }); derr != nil {
		return derr
	}
	return err
}

func (p *Picker) mount(ctx context.Context, route Route) error {
	p.unmount()
	log := p.host.log
	s := route.New()
	if err := s.Mount(ctx, p.host); err != nil {
		p.host.stopTimers()
		log.Debug("mounting scene failed", "scene", route.Path, "err", err)
		return err
	}
	p.current = s
	p.currentPath = route.Path
	p.host.unmount = p.unmount
	log.Info("mounted scene", "scene", route.Path)
	return nil
}

func (p *Picker) unmount() {
	if p.current == nil {
		return
	}
	p.host.stopTimers()
	p.current.Unmount()
	p.host.log.Info("unmounted scene", "scene", p.currentPath)
	p.current = nil
	p.currentPath = ""
	p.host.unmount = nil
}

// Current returns the path of the mounted scene, or the empty string.
func (p *Picker) Current() string {
	var path string
	p.host.Do(func() { path = p.currentPath })
	return path
}

// Scene returns the mounted scene, or nil.
func (p *Picker) Scene() Scene {
	var s Scene
	p.host.Do(func() { s = p.current })
	return s
}

// Close unmounts the current scene.
func (p *Picker) Close() {
	p.host.Do(p.unmount)
}
