// Copyright 2023 the Vello Authors
// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package shaders

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
)

// Permutation is a variant of a shader compiled with extra defines.
type Permutation struct {
	Name    string
	Defines []string
}

// ParsePermutations parses a permutations file. A line names a shader (its
// file name without .wgsl) and the following lines of the form
//
//	+ name: define1 define2
//
// list its permutations. Lines starting with '#' are comments.
func ParsePermutations(source []byte) map[string][]Permutation {
	nl := []byte("\n")
	colon := []byte(":")
	out := make(map[string][]Permutation)
	var currentSource []byte
	for len(source) > 0 {
		var line []byte
		line, source, _ = bytes.Cut(source, nl)
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if line[0] != '+' {
			currentSource = line
			continue
		}
		if len(currentSource) == 0 {
			continue
		}
		nameb, defs, _ := bytes.Cut(line[1:], colon)
		name := string(bytes.TrimSpace(nameb))
		if name == "" {
			continue
		}
		var defines []string
		if f := strings.Fields(string(defs)); len(f) > 0 {
			defines = f
		}
		out[string(currentSource)] = append(out[string(currentSource)], Permutation{name, defines})
	}
	return out
}

// Permutations reads and parses the file "permutations" in fsys. A missing
// file means no permutations.
func Permutations(fsys fs.FS) (map[string][]Permutation, error) {
	src, err := fs.ReadFile(fsys, "permutations")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParsePermutations(src), nil
}
