// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package svo reserves the route of a sparse voxel octree renderer that
// doesn't exist yet. Mounting it draws nothing.
package svo

import (
	"context"

	"honnef.co/go/gpuscenes/scene"
)

const Path = "SVO"

type Scene struct{}

func New() *Scene { return &Scene{} }

func (*Scene) Mount(ctx context.Context, h *scene.Host) error {
	h.Logger().Info("scene is a placeholder and renders nothing", "scene", Path)
	return nil
}

func (*Scene) Unmount() {}
