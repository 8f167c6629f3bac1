// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrDiscard(t *testing.T) {
	l := OrDiscard(nil)
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	assert.False(t, l.With("k", "v").WithGroup("g").Enabled(context.Background(), slog.LevelError))

	var buf bytes.Buffer
	own := slog.New(slog.NewTextHandler(&buf, nil))
	assert.Same(t, own, OrDiscard(own))
	OrDiscard(own).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
