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

package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// XML Schema datatypes used for typed literals.
const (
	XSDInteger  = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDouble   = "http://www.w3.org/2001/XMLSchema#double"
	XSDBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"
	XSDString   = "http://www.w3.org/2001/XMLSchema#string"
)

// TermKind says whether a Term is a reference or a literal.
type TermKind int

// TermKind values.
const (
	IRI TermKind = iota + 1
	Literal
)

func (k TermKind) String() string {
	switch k {
	case IRI:
		return "IRI"
	case Literal:
		return "Literal"
	}
	return fmt.Sprintf("TermKind(%d)", int(k))
}

// Term is an RDF term: an IRI, or a literal with an optional datatype.
type Term struct {
	Kind TermKind
	// The IRI, or the literal's lexical form.
	Value string
	// Empty for IRIs and plain literals.
	Datatype string
}

// Term converts the value to its RDF form. Nodes become IRIs. Dates are
// rewritten as xsd:dateTime in local time.
func (p Pair) Term() (Term, error) {
	return p.TermIn(time.Local)
}

// TermIn is like Term, but renders dates in loc.
func (p Pair) TermIn(loc *time.Location) (Term, error) {
	switch p.Type {
	case Node:
		return Term{Kind: IRI, Value: p.Val}, nil
	case String:
		return Term{Kind: Literal, Value: p.Val}, nil
	case Int:
		return Term{Kind: Literal, Value: p.Val, Datatype: XSDInteger}, nil
	case Float:
		return Term{Kind: Literal, Value: p.Val, Datatype: XSDDouble}, nil
	case Bool:
		b, err := strconv.ParseBool(p.Val)
		if err != nil {
			return Term{}, &TypeMismatchError{Value: p, Reason: err.Error()}
		}
		return Term{Kind: Literal, Value: strconv.FormatBool(b), Datatype: XSDBoolean}, nil
	case Date:
		t, err := ParseDate(p.Val)
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: Literal, Value: t.In(loc).Format(xsdDateTimeLayout), Datatype: XSDDateTime}, nil
	}
	return Term{}, &TypeMismatchError{Value: p, Reason: "no RDF form"}
}

const xsdDateTimeLayout = "2006-01-02T15:04:05.999999Z07:00"

// ParseXSDDateTime parses an xsd:dateTime lexical form as produced by Term.
func ParseXSDDateTime(s string) (time.Time, error) {
	return time.Parse(xsdDateTimeLayout, s)
}

// String returns the term in N-Triples syntax.
func (t Term) String() string {
	var b strings.Builder
	switch t.Kind {
	case IRI:
		writeIRI(&b, t.Value)
	default:
		b.WriteByte('"')
		writeLiteral(&b, t.Value)
		b.WriteByte('"')
		if t.Datatype != "" {
			b.WriteString("^^")
			writeIRI(&b, t.Datatype)
		}
	}
	return b.String()
}

// writeIRI writes an IRIREF, using \u escapes for the characters that
// N-Triples doesn't allow inside angle brackets. Object paths contain quotes
// and sometimes backslashes, so this matters.
func writeIRI(b *strings.Builder, iri string) {
	b.WriteByte('<')
	for _, r := range iri {
		switch {
		case r <= 0x20, strings.ContainsRune(`<>"{}|^`+"`"+`\`, r):
			fmt.Fprintf(b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('>')
}

func writeLiteral(b *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
}
