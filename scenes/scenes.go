// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package scenes registers all scenes.
package scenes

import (
	"honnef.co/go/gpuscenes/scene"
	"honnef.co/go/gpuscenes/scenes/codelab"
	"honnef.co/go/gpuscenes/scenes/mdn"
	"honnef.co/go/gpuscenes/scenes/outline"
	"honnef.co/go/gpuscenes/scenes/svo"
)

type Options struct {
	Codelab *codelab.Options
	Outline *outline.Options
}

// Default returns a router with every scene, in menu order.
func Default(opts *Options) *scene.Router {
	if opts == nil {
		opts = &Options{}
	}
	return scene.NewRouter(
		scene.Route{Path: codelab.Path, New: func() scene.Scene { return codelab.New(opts.Codelab) }},
		scene.Route{Path: mdn.Path, New: func() scene.Scene { return mdn.New() }},
		scene.Route{Path: outline.Path, New: func() scene.Scene { return outline.New(opts.Outline) }},
		scene.Route{Path: svo.Path, New: func() scene.Scene { return svo.New() }},
	)
}
