// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package shaders contains the WGSL sources of all scenes.
package shaders

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed wgsl
var sources embed.FS

// FS returns the embedded sources. Top-level files are shaders, files in
// shared/ are only used through #import.
func FS() fs.FS {
	sub, err := fs.Sub(sources, "wgsl")
	if err != nil {
		panic(err)
	}
	return sub
}

type BindType int

const (
	Buffer BindType = iota + 1
	BufReadOnly
	Uniform
)

func (typ BindType) IsMutable() bool {
	return typ == Buffer
}

func (typ BindType) String() string {
	switch typ {
	case Buffer:
		return "storage"
	case BufReadOnly:
		return "read-only-storage"
	case Uniform:
		return "uniform"
	default:
		return fmt.Sprintf("BindType(%d)", int(typ))
	}
}

// Source describes one shader module.
type Source struct {
	Name string
	File string
	// Entry points; empty if the module has no such stage.
	Vertex   string
	Fragment string
	Compute  string
	// Bindings of group 0, indexed by binding number.
	Bindings []BindType
}

var Collection = struct {
	Cell       Source
	Simulation Source
	Triangle   Source
	Outline    Source
}{
	Cell: Source{
		Name:     "Cell shader",
		File:     "cell.wgsl",
		Vertex:   "vertexMain",
		Fragment: "fragmentMain",
		Bindings: []BindType{Uniform, BufReadOnly},
	},
	Simulation: Source{
		Name:     "Simulation shader",
		File:     "simulation.wgsl",
		Compute:  "computeMain",
		Bindings: []BindType{Uniform, BufReadOnly, Buffer},
	},
	Triangle: Source{
		Name:     "Base shader module",
		File:     "triangle.wgsl",
		Vertex:   "vertex_main",
		Fragment: "fragment_main",
	},
	Outline: Source{
		Name:     "Outline shader module",
		File:     "outline.wgsl",
		Vertex:   "vertex_main",
		Fragment: "fragment_main",
	},
}

// All returns every source in the collection.
func All() []Source {
	c := &Collection
	return []Source{c.Cell, c.Simulation, c.Triangle, c.Outline}
}

type Options struct {
	Defines   []string
	Constants map[string]uint32
	// Debugf, if set, receives a trace of the preprocessor.
	Debugf func(format string, v ...any)
}

type Shader struct {
	Source
	Code []byte
}

// Load preprocesses src from the embedded sources.
func Load(src Source, opts *Options) (*Shader, error) {
	return LoadFS(FS(), src, opts)
}

// LoadFS is like Load but reads sources from fsys instead.
func LoadFS(fsys fs.FS, src Source, opts *Options) (*Shader, error) {
	if opts == nil {
		opts = &Options{}
	}
	code, err := fs.ReadFile(fsys, src.File)
	if err != nil {
		return nil, fmt.Errorf("shaders: %w", err)
	}
	p := Preprocessor{
		FS:        fsys,
		ImportDir: "shared",
		Defines:   map[string]struct{}{},
		Constants: opts.Constants,
		Debugf:    opts.Debugf,
	}
	for _, d := range opts.Defines {
		p.Defines[d] = struct{}{}
	}
	out, err := p.Run(code, src.File)
	if err != nil {
		return nil, fmt.Errorf("shaders: %w", err)
	}
	return &Shader{Source: src, Code: out}, nil
}

// MustLoad is like Load but panics on error. The embedded sources are part
// of the program, so failing to load them is a bug.
func MustLoad(src Source, opts *Options) *Shader {
	sh, err := Load(src, opts)
	if err != nil {
		panic(err)
	}
	return sh
}
