// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package svo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/gpuscenes/gpu"
	"honnef.co/go/gpuscenes/scene"
)

func TestMountNeedsNoGPU(t *testing.T) {
	acquired := false
	h := scene.NewHost(&scene.HostOptions{
		Acquire: func(context.Context, *gpu.Options) (*gpu.Context, error) {
			acquired = true
			return nil, errors.New("unexpected")
		},
	})
	defer h.Close()
	p := scene.NewPicker(scene.NewRouter(scene.Route{Path: Path, New: func() scene.Scene { return New() }}), h)
	require.NoError(t, p.Select(context.Background(), "svo"))
	assert.Equal(t, Path, p.Current())
	p.Close()
	assert.False(t, acquired)
}
