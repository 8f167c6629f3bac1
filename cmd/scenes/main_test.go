// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/gpuscenes/gpu"
	"honnef.co/go/gpuscenes/internal/config"
	"honnef.co/go/gpuscenes/scenes/codelab"
)

func TestList(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-list"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "GoogleCodelab\nMdnReference\nOutline\nSVO\n", stdout.String())
}

func TestUsageErrors(t *testing.T) {
	tests := [][]string{
		{"-size", "800"},
		{"-size", "0x600"},
		{"-scene", "nope"},
		{"-backend", "tpu"},
		{"-every"},
		{"-bogus"},
		{"-ticks", "-1"},
		{"-scale", "0"},
		{"extra"},
	}
	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		err := run(context.Background(), args, &stdout, &stderr)
		assert.ErrorIs(t, err, errUsage, "%q", args)
	}
}

func TestHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-h"}, &stdout, &stderr)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, stderr.String(), "-scene")
}

func TestApplyOverridesConfig(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var f flags
	f.register(fs)
	require.NoError(t, fs.Parse([]string{"-size", "64x32", "-backend", "cpu"}))

	cfg := config.Default()
	cfg.Codelab.Seed = 3
	require.NoError(t, f.apply(fs, cfg))
	assert.Equal(t, 64, cfg.Canvas.Width)
	assert.Equal(t, 32, cfg.Canvas.Height)
	assert.Equal(t, "cpu", cfg.Codelab.Backend)
	assert.EqualValues(t, 3, cfg.Codelab.Seed, "unset flags keep the file's values")
}

func TestCodelabOptionsPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "glider.cells")
	require.NoError(t, os.WriteFile(path, []byte("!Name: Glider\n.O\n..O\nOOO\n"), 0o666))

	cfg := config.Default()
	cfg.Codelab.Pattern = path
	cfg.Codelab.Interval = config.Duration(time.Second)
	opts, err := codelabOptions(cfg)
	require.NoError(t, err)
	require.NotNil(t, opts.Pattern)
	assert.Equal(t, 5, opts.Pattern.Population())
	assert.Equal(t, time.Second, opts.Interval)

	cfg.Codelab.Pattern = filepath.Join(dir, "missing.cells")
	_, err = codelabOptions(cfg)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWritePNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	path, err := writePNG(dir, "x", image.NewRGBA(image.Rect(0, 0, 2, 2)))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x.png"), path)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestScaleImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Pix[0] = 255
	dst := scaleImage(src, 3).(*image.RGBA)
	assert.Equal(t, image.Rect(0, 0, 6, 3), dst.Rect)
	assert.EqualValues(t, 255, dst.RGBAAt(2, 2).R)
	assert.EqualValues(t, 0, dst.RGBAAt(3, 0).R)
	assert.Same(t, src, scaleImage(src, 1))
}

func TestRunStaticScene(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-scene", "mdnreference", "-size", "32x32", "-out", dir}, &stdout, &stderr)
	if errors.Is(err, gpu.ErrUnavailable) {
		t.Skipf("no GPU: %v", err)
	}
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "MdnReference.png"))
	assert.NoError(t, err)
}

func TestRunCodelabTicks(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	args := []string{"-size", "32x32", "-ticks", "2", "-every", "-out", dir, "-seed", "1"}
	err := run(context.Background(), args, &stdout, &stderr)
	if errors.Is(err, gpu.ErrUnavailable) {
		t.Skipf("no GPU: %v", err)
	}
	require.NoError(t, err)
	for _, name := range []string{codelab.Path + "-000001.png", codelab.Path + "-000002.png", codelab.Path + ".png"} {
		_, err = os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
