// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package scene implements the shell around the scenes: a static router, a
// picker that keeps at most one scene mounted, and the host that gives the
// mounted scene its canvas, device and timers.
package scene

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// A Scene renders into the host's canvas between Mount and Unmount.
type Scene interface {
	// Mount sets up the scene. Timers registered with the host during Mount
	// belong to this mount. If Mount returns an error, they are stopped and
	// Unmount is not called.
	Mount(ctx context.Context, h *Host) error
	// Unmount releases the scene's resources. The host has already stopped
	// the scene's timers.
	Unmount()
}

type Route struct {
	Path string
	New  func() Scene
}

var ErrNotFound = errors.New("scene: no such scene")

// Router is a fixed list of routes.
type Router struct {
	routes []Route
	byPath map[string]int
}

func NewRouter(routes ...Route) *Router {
	r := &Router{byPath: map[string]int{}}
	for _, route := range routes {
		r.Add(route)
	}
	return r
}

// Add registers route. Paths are case-insensitive; registering the same
// path twice panics.
func (r *Router) Add(route Route) {
	if route.Path == "" || route.New == nil {
		panic("scene: route needs a path and a constructor")
	}
	key := strings.ToLower(route.Path)
	if _, ok := r.byPath[key]; ok {
		panic(fmt.Sprintf("scene: duplicate route %q", route.Path))
	}
	r.byPath[key] = len(r.routes)
	r.routes = append(r.routes, route)
}

// Routes returns the routes in registration order.
func (r *Router) Routes() []Route {
	return r.routes
}

func (r *Router) Lookup(path string) (Route, bool) {
	idx, ok := r.byPath[strings.ToLower(path)]
	if !ok {
		return Route{}, false
	}
	return r.routes[idx], true
}
