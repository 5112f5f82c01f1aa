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

// Package value defines the typed values that flow between the management
// source, the query executor, and the triple output.
package value

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ebay/wbemql/objpath"
)

// Type identifies how a Pair's string encoded value should be interpreted.
type Type int

// The zero Type is used for a property that exists but has no value.
const (
	Absent Type = iota
	String
	Int
	Float
	Bool
	Date
	Node
)

var typeNames = [...]string{
	Absent: "ABSENT",
	String: "STRING",
	Int:    "INT",
	Float:  "FLOAT",
	Bool:   "BOOL",
	Date:   "DATE",
	Node:   "NODE",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(typeNames) {
		return nil, fmt.Errorf("invalid value type %d", int(t))
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	for i, name := range typeNames {
		if strings.EqualFold(name, string(text)) {
			*t = Type(i)
			return nil
		}
	}
	return fmt.Errorf("unknown value type %q", text)
}

// ErrTypeMismatch is wrapped by every TypeMismatchError.
var ErrTypeMismatch = errors.New("type mismatch")

// TypeMismatchError reports a value whose string doesn't agree with its Type.
// It usually indicates a bug in a provider rather than bad input.
type TypeMismatchError struct {
	// The variable or column being stored, if known.
	Name   string
	Value  Pair
	Reason string
}

func (e *TypeMismatchError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%v: %v: %s", ErrTypeMismatch, e.Value, e.Reason)
	}
	return fmt.Sprintf("%v for %s: %v: %s", ErrTypeMismatch, e.Name, e.Value, e.Reason)
}

// Unwrap allows errors.Is(err, ErrTypeMismatch).
func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// Pair is a string encoded value together with its type.
type Pair struct {
	Val  string `json:"value"`
	Type Type   `json:"type"`
}

// Pair constructors. These don't validate; see Check.
func NewString(v string) Pair { return Pair{Val: v, Type: String} }
func NewInt(v int64) Pair     { return Pair{Val: strconv.FormatInt(v, 10), Type: Int} }
func NewBool(v bool) Pair     { return Pair{Val: strconv.FormatBool(v), Type: Bool} }
func NewNode(v string) Pair   { return Pair{Val: v, Type: Node} }

// NewFloat returns a Float pair using the shortest representation of v.
func NewFloat(v float64) Pair {
	return Pair{Val: strconv.FormatFloat(v, 'g', -1, 64), Type: Float}
}

// IsAbsent returns true for the zero Pair, which stands for a property with
// no value.
func (p Pair) IsAbsent() bool {
	return p.Type == Absent
}

func (p Pair) String() string {
	return fmt.Sprintf("%q:%v", p.Val, p.Type)
}

// uriRegex matches absolute URIs with an authority, like http://x/y, and URNs.
var uriRegex = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.\-]*://|urn:)[^\s]*$`)

// IsURI returns true if s looks like an absolute URI.
func IsURI(s string) bool {
	return uriRegex.MatchString(s)
}

// Check verifies that the value is consistent with its type. A Node must be
// an object path or a URI, and nothing else may look like an object path.
// It returns a *TypeMismatchError otherwise.
func (p Pair) Check() error {
	fail := func(reason string) error {
		return &TypeMismatchError{Value: p, Reason: reason}
	}
	switch p.Type {
	case Node:
		if !objpath.IsPath(p.Val) && !IsURI(p.Val) {
			return fail("NODE value is neither an object path nor a URI")
		}
		return nil
	case String, Int, Float, Bool, Date:
		if objpath.IsPath(p.Val) {
			return fail("value looks like an object path but isn't typed as NODE")
		}
	default:
		return fail("no valid type")
	}
	var err error
	switch p.Type {
	case Int:
		_, err = strconv.ParseInt(p.Val, 10, 64)
	case Float:
		_, err = strconv.ParseFloat(p.Val, 64)
	case Bool:
		_, err = strconv.ParseBool(p.Val)
	case Date:
		_, err = ParseDate(p.Val)
	}
	if err != nil {
		return fail(err.Error())
	}
	return nil
}
