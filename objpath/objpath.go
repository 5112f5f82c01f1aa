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

// Package objpath parses and builds the object path strings that the
// management source uses to identify instances, such as
//	root/cimv2:Win32_Process.Handle="4"
// A path is a namespace prefix, a class name, and a list of key properties.
// Key values are always quoted; a backslash escapes a backslash or a quote.
package objpath

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is the sentinel wrapped by every MalformedPathError.
var ErrMalformed = errors.New("malformed object path")

// MalformedPathError is returned by Parse for input that doesn't follow the
// path grammar.
type MalformedPathError struct {
	// The input that failed to parse.
	Path string
	// Byte offset into Path where the problem was found.
	Offset int
	// What the parser expected to find at Offset.
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("%v %q at offset %d: %s", ErrMalformed, e.Path, e.Offset, e.Reason)
}

// Unwrap allows errors.Is(err, ErrMalformed).
func (e *MalformedPathError) Unwrap() error {
	return ErrMalformed
}

// Key is a single key property of a path.
type Key struct {
	Name  string
	Value string
}

// Path is the parsed form of an object path.
type Path struct {
	Namespace string
	Class     string
	// Keys are in the order they appear in the path string. A path with no
	// keys refers to a singleton instance and is written "ns:Class=@".
	Keys []Key
}

// Map returns the key properties of the path as a map.
func (p *Path) Map() map[string]string {
	m := make(map[string]string, len(p.Keys))
	for _, k := range p.Keys {
		m[k.Name] = k.Value
	}
	return m
}

// Get returns the value of the named key property.
func (p *Path) Get(name string) (string, bool) {
	for _, k := range p.Keys {
		if k.Name == name {
			return k.Value, true
		}
	}
	return "", false
}

// String returns the path in its canonical string form.
func (p *Path) String() string {
	return Build(p.Namespace, p.Class, p.Keys)
}

// Build returns the path string for the given namespace, class and keys. The
// keys are written in the order supplied.
func Build(namespace, class string, keys []Key) string {
	var b strings.Builder
	b.Grow(len(namespace) + len(class) + 16*len(keys))
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(class)
	if len(keys) == 0 {
		b.WriteString("=@")
		return b.String()
	}
	for i, k := range keys {
		if i == 0 {
			b.WriteByte('.')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(k.Name)
		b.WriteString(`="`)
		b.WriteString(Escape(k.Value))
		b.WriteByte('"')
	}
	return b.String()
}

// BuildMap is like Build but takes the keys from a map. Map iteration order
// is random, so the order of keys in the result is not defined.
func BuildMap(namespace, class string, props map[string]string) string {
	keys := make([]Key, 0, len(props))
	for name, val := range props {
		keys = append(keys, Key{Name: name, Value: val})
	}
	return Build(namespace, class, keys)
}

// Escape returns v with backslashes and quotes escaped so that it can be
// placed between the quotes of a key value.
func Escape(v string) string {
	if strings.IndexAny(v, `\"`) < 0 {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 4)
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\', '"':
			b.WriteByte('\\')
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

// IsPath returns true if s can be parsed as an object path.
func IsPath(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse parses an object path string. It returns a *MalformedPathError if the
// input is not a valid path.
func Parse(s string) (*Path, error) {
	fail := func(offset int, reason string) (*Path, error) {
		return nil, &MalformedPathError{Path: s, Offset: offset, Reason: reason}
	}
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return fail(0, "expected namespace separator ':'")
	}
	res := Path{Namespace: s[:colon]}
	pos := colon + 1
	end := scanName(s, pos)
	if end == pos {
		return fail(pos, "expected class name")
	}
	res.Class = s[pos:end]
	pos = end
	if s[pos:] == "=@" {
		return &res, nil
	}
	if pos >= len(s) || s[pos] != '.' {
		return fail(pos, "expected '.' before key list")
	}
	pos++
	for {
		end = scanName(s, pos)
		if end == pos {
			return fail(pos, "expected key name")
		}
		name := s[pos:end]
		pos = end
		if pos >= len(s) || s[pos] != '=' {
			return fail(pos, "expected '=' after key name")
		}
		pos++
		if pos >= len(s) || s[pos] != '"' {
			return fail(pos, "expected opening quote")
		}
		pos++
		val, next, ok := scanValue(s, pos)
		if !ok {
			return fail(pos, "unterminated value")
		}
		res.Keys = append(res.Keys, Key{Name: name, Value: val})
		pos = next
		if pos == len(s) {
			return &res, nil
		}
		if s[pos] != ',' {
			return fail(pos, "expected ',' between keys")
		}
		pos++
	}
}

// scanName returns the offset of the first byte at or after 'pos' that can't
// be part of a class or property name.
func scanName(s string, pos int) int {
	for pos < len(s) {
		c := s[pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			pos++
			continue
		}
		break
	}
	return pos
}

// scanValue reads a quoted value starting just after the opening quote. It
// returns the unescaped value and the offset just after the closing quote.
func scanValue(s string, pos int) (string, int, bool) {
	var b strings.Builder
	for pos < len(s) {
		c := s[pos]
		switch {
		case c == '"':
			return b.String(), pos + 1, true
		case c == '\\' && pos+1 < len(s) && (s[pos+1] == '\\' || s[pos+1] == '"'):
			b.WriteByte(s[pos+1])
			pos += 2
		default:
			b.WriteByte(c)
			pos++
		}
	}
	return "", pos, false
}
