// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package static

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVertexData(t *testing.T) {
	data := VertexData(Triangle)
	// 3 vertices with a stride of 32 bytes
	assert.Len(t, data, 3*8)
	assert.Equal(t, []float32{0, 0.6, 0, 1, 1, 0, 0, 1}, data[:8])
	assert.Equal(t, []float32{0.5, -0.6, 0, 1, 0, 0, 1, 1}, data[16:])
}
