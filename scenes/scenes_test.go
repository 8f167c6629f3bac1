// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package scenes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/gpuscenes/scenes/codelab"
	"honnef.co/go/gpuscenes/scenes/internal/static"
	"honnef.co/go/gpuscenes/scenes/outline"
)

func TestDefault(t *testing.T) {
	r := Default(nil)
	var paths []string
	for _, route := range r.Routes() {
		paths = append(paths, route.Path)
	}
	assert.Equal(t, []string{"GoogleCodelab", "MdnReference", "Outline", "SVO"}, paths)

	route, ok := r.Lookup("outline")
	require.True(t, ok)
	s, ok := route.New().(*static.Scene)
	require.True(t, ok)
	assert.Empty(t, s.Defines)
}

func TestDefaultPassesOptions(t *testing.T) {
	r := Default(&Options{
		Codelab: &codelab.Options{GridSize: 32},
		Outline: &outline.Options{Invert: true},
	})

	route, _ := r.Lookup(codelab.Path)
	cl := route.New().(*codelab.Scene)
	assert.Equal(t, 32, cl.Options().GridSize)

	route, _ = r.Lookup(outline.Path)
	assert.Equal(t, []string{"invert"}, route.New().(*static.Scene).Defines)
}
