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

// Package table renders a grid of strings as an aligned text table.
package table

import (
	"bufio"
	"io"
	"strings"

	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// Options controls PrettyPrint. Values may be OR'd together.
type Options int

const (
	// HeaderRow separates the first row from the rest with a divider.
	HeaderRow Options = 1 << iota
	// SkipEmpty prints nothing when the table has no rows beyond the header.
	SkipEmpty
	// RightJustify left-pads cells instead of right-padding them.
	RightJustify
)

// PrettyPrint writes t to dest with each column padded to its widest cell.
// Cells may contain newlines, in which case the row grows taller. Widths are
// measured in terminal columns, so wide East Asian runes count double.
func PrettyPrint(dest io.Writer, t [][]string, opts Options) {
	if len(t) == 0 {
		return
	}
	if opts&SkipEmpty != 0 && opts&HeaderRow != 0 && len(t) == 1 {
		return
	}
	cells := make([][][]string, len(t))
	widths := make([]int, 0, len(t[0]))
	for ridx, row := range t {
		cells[ridx] = make([][]string, len(row))
		for cidx, c := range row {
			lines := strings.Split(c, "\n")
			cells[ridx][cidx] = lines
			for len(widths) <= cidx {
				widths = append(widths, 0)
			}
			for _, l := range lines {
				if w := displayWidth(l); w > widths[cidx] {
					widths[cidx] = w
				}
			}
		}
	}
	w := bufio.NewWriterSize(dest, 256)
	defer w.Flush()
	for ridx, row := range cells {
		height := 1
		for _, lines := range row {
			if len(lines) > height {
				height = len(lines)
			}
		}
		for lidx := 0; lidx < height; lidx++ {
			for cidx := range widths {
				line := ""
				if cidx < len(row) && lidx < len(row[cidx]) {
					line = row[cidx][lidx]
				}
				pad := strings.Repeat(" ", widths[cidx]-displayWidth(line))
				w.WriteByte(' ')
				if opts&RightJustify != 0 {
					w.WriteString(pad)
					w.WriteString(line)
				} else {
					w.WriteString(line)
					w.WriteString(pad)
				}
				w.WriteString(" |")
			}
			w.WriteByte('\n')
		}
		if ridx == 0 && opts&HeaderRow != 0 {
			for _, width := range widths {
				w.WriteByte(' ')
				w.WriteString(strings.Repeat("-", width))
				w.WriteString(" |")
			}
			w.WriteByte('\n')
		}
	}
}

func displayWidth(s string) int {
	return runewidth.StringWidth(norm.NFC.String(s))
}
