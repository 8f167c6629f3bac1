// Copyright 2023 the Vello Authors
// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package shaders

import (
	"bytes"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
)

// Preprocessor resolves the directives in WGSL sources:
//
//	#import name         splice in ImportDir/name.wgsl
//	#ifdef X / #ifndef X  conditionally include lines
//	#else / #endif
//	#enable ...          emit an enable directive
//
// A line starting with "let " is rewritten to "const ", so shared files can
// declare module-scope constants.
type Preprocessor struct {
	FS        fs.FS
	ImportDir string
	Defines   map[string]struct{}
	// Constants are emitted as u32 const declarations ahead of the source.
	Constants map[string]uint32
	// Debugf, if set, receives a trace of the directives processed.
	Debugf func(format string, v ...any)

	imports map[string][]byte
}

func (p *Preprocessor) debugf(f string, v ...any) {
	if p.Debugf == nil {
		return
	}
	p.Debugf(f, v...)
}

func (p *Preprocessor) getImport(name string) ([]byte, error) {
	p.debugf("substituting import %q", name)
	if src, ok := p.imports[name]; ok {
		return src, nil
	}
	p.debugf("loading import %q", name)
	src, err := fs.ReadFile(p.FS, path.Join(p.ImportDir, name+".wgsl"))
	if err != nil {
		return nil, err
	}
	if p.imports == nil {
		p.imports = make(map[string][]byte)
	}
	p.imports[name] = src
	return src, nil
}

// Run preprocesses source and prepends the configured constants.
func (p *Preprocessor) Run(source []byte, name string) ([]byte, error) {
	body, err := p.Preprocess(source, name)
	if err != nil {
		return nil, err
	}
	if len(p.Constants) == 0 {
		return postprocess(body), nil
	}
	var out []byte
	for _, k := range slices.Sorted(maps.Keys(p.Constants)) {
		out = fmt.Appendf(out, "const %s: u32 = %du;\n", k, p.Constants[k])
	}
	out = append(out, '\n')
	out = append(out, body...)
	return postprocess(out), nil
}

func (p *Preprocessor) Preprocess(source []byte, name string) ([]byte, error) {
	var out []byte
	nl := []byte("\n")
	space := []byte(" ")
	dirMarker := []byte("#")
	commentMarker := []byte("//")
	let := []byte("let ")
	type stackItem struct {
		active     bool
		elsePassed bool
	}
	var stack []stackItem
	lineNo := 0
	errorf := func(f string, v ...any) error {
		return fmt.Errorf("%s:%d: "+f, append([]any{name, lineNo}, v...)...)
	}
	active := func() bool {
		for _, item := range stack {
			if !item.active {
				return false
			}
		}
		return true
	}
allLines:
	for len(source) > 0 {
		lineNo++
		var line []byte
		line, source, _ = bytes.Cut(source, nl)

		for len(line) > 0 {
			hashIdx := bytes.IndexByte(line, '#')
			commentIdx := bytes.Index(line, commentMarker)

			if hashIdx == -1 || (commentIdx != -1 && commentIdx < hashIdx) {
				// No directives that aren't commented
				break
			}

			end := bytes.IndexByte(line[hashIdx+1:], ' ')
			if end == -1 {
				end = len(line)
			} else {
				end += hashIdx + 1
			}

			directive := string(line[hashIdx+1 : end])
			atStart := bytes.HasPrefix(bytes.TrimSpace(line), dirMarker)
			arg := bytes.TrimSpace(line[end:])

			p.debugf("%s:%d: processing directive %q", name, lineNo, directive)

			switch directive {
			case "ifdef", "ifndef", "else", "endif", "enable":
				if !atStart {
					return nil, errorf("%q directives must be the first non-whitespace item on their line", directive)
				}
			}

			switch directive {
			case "ifdef", "ifndef":
				_, exists := p.Defines[string(arg)]
				stack = append(stack, stackItem{active: (directive == "ifdef") == exists})
				continue allLines

			case "else":
				if len(stack) == 0 {
					return nil, errorf("#else without #ifdef or #ifndef")
				}
				item := &stack[len(stack)-1]
				if item.elsePassed {
					return nil, errorf("second else for same ifdef/ifndef")
				}
				item.elsePassed = true
				item.active = !item.active
				if len(arg) != 0 {
					return nil, errorf("#else directive doesn't accept arguments")
				}
				continue allLines

			case "endif":
				if len(stack) == 0 {
					return nil, errorf("mismatched endif")
				}
				stack = stack[:len(stack)-1]
				if len(arg) != 0 && !bytes.HasPrefix(arg, commentMarker) {
					return nil, errorf("#endif directive doesn't accept arguments")
				}
				continue allLines

			case "import":
				out = append(out, line[:hashIdx]...)
				if len(arg) == 0 {
					return nil, errorf("#import needs an argument")
				}
				var importName []byte
				importName, line, _ = bytes.Cut(arg, space)
				importSrc, err := p.getImport(string(importName))
				if err != nil {
					return nil, errorf("couldn't import %q: %w", importName, err)
				}
				if active() {
					imported, err := p.Preprocess(importSrc, "#import "+string(importName))
					if err != nil {
						return nil, err
					}
					out = append(out, imported...)
				}

			case "enable":
				if active() {
					out = append(out, "//__"...)
					out = append(out, line...)
					out = append(out, '\n')
				}
				continue allLines

			default:
				return nil, errorf("unknown preprocessor directive %q", directive)
			}
		}

		if active() {
			if bytes.HasPrefix(line, let) {
				out = append(out, "const"...)
				out = append(out, line[3:]...)
			} else {
				out = append(out, line...)
			}
			out = append(out, '\n')
		}
	}

	if len(stack) != 0 {
		return nil, errorf("missing #endif")
	}
	return out, nil
}

func postprocess(src []byte) []byte {
	return bytes.ReplaceAll(src, []byte("//__#enable"), []byte("enable"))
}
