// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package shaders

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gogpu/naga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preprocess(t *testing.T, fsys fstest.MapFS, file string, defines ...string) (string, error) {
	t.Helper()
	p := Preprocessor{
		FS:        fsys,
		ImportDir: "shared",
		Defines:   map[string]struct{}{},
	}
	for _, d := range defines {
		p.Defines[d] = struct{}{}
	}
	out, err := p.Run(fsys[file].Data, file)
	return string(out), err
}

func TestPreprocessImport(t *testing.T) {
	fsys := fstest.MapFS{
		"a.wgsl":             {Data: []byte("#import common\nfn a() {}\n")},
		"shared/common.wgsl": {Data: []byte("let N = 4u;\n")},
	}
	out, err := preprocess(t, fsys, "a.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "const N = 4u;\n\nfn a() {}\n", out)
}

func TestPreprocessConditionals(t *testing.T) {
	src := "#ifdef x\nyes\n#else\nno\n#endif\n#ifndef x\nnotx\n#endif // trailing\n"
	fsys := fstest.MapFS{"a.wgsl": {Data: []byte(src)}}

	out, err := preprocess(t, fsys, "a.wgsl", "x")
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out)

	out, err = preprocess(t, fsys, "a.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "no\nnotx\n", out)
}

func TestPreprocessSkipsInactiveImports(t *testing.T) {
	fsys := fstest.MapFS{
		"a.wgsl":          {Data: []byte("#ifdef never\n#import b\n#endif\nok\n")},
		"shared/b.wgsl":   {Data: []byte("#bogus\n")},
		"shared/unused.x": {Data: []byte("")},
	}
	out, err := preprocess(t, fsys, "a.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestPreprocessEnable(t *testing.T) {
	fsys := fstest.MapFS{"a.wgsl": {Data: []byte("#enable f16;\nfn a() {}\n")}}
	out, err := preprocess(t, fsys, "a.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "enable f16;\nfn a() {}\n", out)
}

func TestPreprocessConstants(t *testing.T) {
	fsys := fstest.MapFS{"a.wgsl": {Data: []byte("fn a() {}\n")}}
	p := Preprocessor{FS: fsys, Constants: map[string]uint32{"WORKGROUP_SIZE": 8, "A": 1}}
	out, err := p.Run(fsys["a.wgsl"].Data, "a.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "const A: u32 = 1u;\nconst WORKGROUP_SIZE: u32 = 8u;\n\nfn a() {}\n", string(out))
}

func TestPreprocessErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"#endif\n", "a.wgsl:1: mismatched endif"},
		{"#else\n", "a.wgsl:1: #else without #ifdef or #ifndef"},
		{"#ifdef x\n#else\n#else\n#endif\n", "a.wgsl:3: second else for same ifdef/ifndef"},
		{"x #ifdef y\n", `a.wgsl:1: "ifdef" directives must be the first non-whitespace item on their line`},
		{"#frobnicate\n", `a.wgsl:1: unknown preprocessor directive "frobnicate"`},
		{"#import\n", "a.wgsl:1: #import needs an argument"},
		{"#ifdef x\n", "a.wgsl:1: missing #endif"},
	}
	for _, tt := range tests {
		fsys := fstest.MapFS{"a.wgsl": {Data: []byte(tt.src)}}
		_, err := preprocess(t, fsys, "a.wgsl")
		assert.EqualError(t, err, tt.want, "source %q", tt.src)
	}
}

func TestPreprocessMissingImport(t *testing.T) {
	fsys := fstest.MapFS{"a.wgsl": {Data: []byte("#import nope\n")}}
	_, err := preprocess(t, fsys, "a.wgsl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `a.wgsl:1: couldn't import "nope"`)
}

func TestLoadSimulation(t *testing.T) {
	sh, err := Load(Collection.Simulation, &Options{Constants: map[string]uint32{"WORKGROUP_SIZE": 8}})
	require.NoError(t, err)
	code := string(sh.Code)
	assert.True(t, strings.HasPrefix(code, "const WORKGROUP_SIZE: u32 = 8u;\n"))
	assert.Contains(t, code, "var<uniform> grid: vec2f;")
	assert.NotContains(t, code, "#import")
}

func TestLoadOutlineVariants(t *testing.T) {
	plain := MustLoad(Collection.Outline, nil)
	inverted := MustLoad(Collection.Outline, &Options{Defines: []string{"invert"}})
	assert.Contains(t, string(plain.Code), "!= 0.0 ||")
	assert.Contains(t, string(inverted.Code), "== 0.0 &&")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Source{Name: "nope", File: "nope.wgsl"}, nil)
	assert.Error(t, err)
}

// TestShadersCompile runs every shader through the naga WGSL front end and
// SPIR-V back end.
func TestShadersCompile(t *testing.T) {
	for _, src := range All() {
		t.Run(src.File, func(t *testing.T) {
			sh, err := Load(src, &Options{Constants: map[string]uint32{"WORKGROUP_SIZE": 8}})
			require.NoError(t, err)

			spirv, err := naga.Compile(string(sh.Code))
			if err != nil {
				msg := err.Error()
				if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
					t.Skipf("naga limitation: %v", err)
				}
				t.Fatalf("compiling %s: %v\n%s", src.File, err, sh.Code)
			}
			assert.NotEmpty(t, spirv)
		})
	}
}

func TestCollectionEntryPoints(t *testing.T) {
	for _, src := range All() {
		sh := MustLoad(src, &Options{Constants: map[string]uint32{"WORKGROUP_SIZE": 8}})
		for _, entry := range []string{src.Vertex, src.Fragment, src.Compute} {
			if entry == "" {
				continue
			}
			assert.Contains(t, string(sh.Code), "fn "+entry+"(", "%s lacks entry point %s", src.File, entry)
		}
	}
}

func TestParsePermutations(t *testing.T) {
	src := []byte("# comment\n+ orphan: x\noutline\n+ outline_inverted: invert\n+ both: a b\ncell\n+ plain\n")
	perms := ParsePermutations(src)
	assert.Equal(t, map[string][]Permutation{
		"outline": {
			{Name: "outline_inverted", Defines: []string{"invert"}},
			{Name: "both", Defines: []string{"a", "b"}},
		},
		"cell": {{Name: "plain", Defines: nil}},
	}, perms)
}

func TestEmbeddedPermutations(t *testing.T) {
	perms, err := Permutations(FS())
	require.NoError(t, err)
	require.Len(t, perms["outline"], 1)
	assert.Equal(t, []string{"invert"}, perms["outline"][0].Defines)

	perms, err = Permutations(fstest.MapFS{})
	assert.NoError(t, err)
	assert.Nil(t, perms)
}
