// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graphviz renders DOT graphs to files using the external 'dot'
// command.
package graphviz

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Filetype identifies an output format.
type Filetype int

// Output formats.
const (
	DOT Filetype = iota + 1
	PDF
	PNG
	SVG
)

// Options for Create.
type Options struct {
	// If zero, Create guesses it from the filename's extension.
	Filetype Filetype
}

// FiletypeOf returns the output format implied by filename's extension.
func FiletypeOf(filename string) (Filetype, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "dot", "gv":
		return DOT, nil
	case "pdf":
		return PDF, nil
	case "png":
		return PNG, nil
	case "svg":
		return SVG, nil
	}
	return 0, fmt.Errorf("could not determine filetype from filename: %v", filename)
}

// Create writes the graph produced by generate into filename. DOT output is
// written directly; other formats are piped through 'dot', which must be on
// the PATH.
func Create(filename string, generate func(io.Writer), options Options) error {
	if options.Filetype == 0 {
		ft, err := FiletypeOf(filename)
		if err != nil {
			return err
		}
		options.Filetype = ft
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	var format string
	switch options.Filetype {
	case DOT:
		generate(file)
		return file.Close()
	case PDF:
		format = "-Tpdf"
	case PNG:
		format = "-Tpng"
	case SVG:
		format = "-Tsvg"
	default:
		return fmt.Errorf("unknown graphviz file type: %v", options.Filetype)
	}
	var in bytes.Buffer
	generate(&in)
	var errOut strings.Builder
	cmd := exec.Command("dot", format)
	cmd.Stdin = &in
	cmd.Stdout = file
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error executing dot: %v. Stderr: %v", err, errOut.String())
	}
	return file.Close()
}
