// Copyright 2023 the Vello Authors
// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Command compile-shaders writes the preprocessed form of every shader, and
// optionally its SPIR-V translation, to a directory. It is a debugging aid;
// the scenes preprocess their shaders at run time.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"honnef.co/go/gpuscenes/shaders"
)

func main() {
	var (
		in            string
		out           string
		spirv         bool
		workgroupSize uint
		verbose       bool
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-v] [-spirv] [-in <dir>] -out <dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&in, "in", "", "Path to `directory` to process (default: the embedded shaders)")
	flag.StringVar(&out, "out", "./out", "Path to output `directory`")
	flag.BoolVar(&spirv, "spirv", false, "Also compile to SPIR-V")
	flag.UintVar(&workgroupSize, "workgroup-size", 8, "Value of the WORKGROUP_SIZE constant")
	flag.BoolVar(&verbose, "v", false, "Be verbose")
	flag.Parse()

	if len(flag.Args()) != 0 {
		flag.Usage()
		os.Exit(2)
	}

	dief := func(f string, v ...any) {
		fmt.Fprintf(os.Stderr, f, v...)
		fmt.Fprintln(os.Stderr)
		os.Exit(1)
	}
	debugf := func(f string, v ...any) {
		if !verbose {
			return
		}
		fmt.Fprintf(os.Stderr, f, v...)
		fmt.Fprintln(os.Stderr)
	}

	fsys := shaders.FS()
	if in != "" {
		fsys = os.DirFS(in)
	}

	permutations, err := shaders.Permutations(fsys)
	if err != nil {
		dief("Couldn't read permutations: %s", err)
	}
	if permutations == nil {
		debugf("didn't find permutations")
	}

	matches, err := fs.Glob(fsys, "*.wgsl")
	if err != nil {
		panic(err)
	}
	if err := os.MkdirAll(out, 0777); err != nil {
		dief("Couldn't create output directory: %s", err)
	}

	write := func(code []byte, name string) {
		if err := os.WriteFile(filepath.Join(out, name+".wgsl"), code, 0666); err != nil {
			dief("Couldn't write %s: %s", name, err)
		}
		if !spirv {
			return
		}
		bin, err := naga.Compile(string(code))
		if err != nil {
			dief("Couldn't compile %s to SPIR-V: %s", name, err)
		}
		if err := os.WriteFile(filepath.Join(out, name+".spv"), bin, 0666); err != nil {
			dief("Couldn't write %s: %s", name, err)
		}
	}

	constants := map[string]uint32{"WORKGROUP_SIZE": uint32(workgroupSize)}
	for i, m := range matches {
		if i != 0 {
			debugf("")
		}
		debugf("compiling %s", m)
		shaderName := strings.TrimSuffix(path.Base(m), ".wgsl")
		variants := []shaders.Permutation{{Name: shaderName}}
		variants = append(variants, permutations[shaderName]...)
		for _, perm := range variants {
			if len(perm.Defines) != 0 {
				debugf("preprocessing permutation %q with defines %v", perm.Name, perm.Defines)
			}
			sh, err := shaders.LoadFS(fsys, shaders.Source{Name: perm.Name, File: m}, &shaders.Options{
				Defines:   perm.Defines,
				Constants: constants,
				Debugf:    debugf,
			})
			if err != nil {
				dief("Couldn't preprocess source: %s", err)
			}
			write(sh.Code, perm.Name)
		}
	}
}
