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

// Package parser parses the subset of SPARQL SELECT queries used to describe
// which management data a query needs. It produces a query algebra of
// projections, joins, left joins, unions, and triple patterns.
package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/vektah/goparsify"
)

// MustParse parses a query and panics if an error occurs. It simplifies
// variable initialization. This is primarily meant for writing unit tests.
func MustParse(in string) *Query {
	query, err := Parse(in, nil)
	if err != nil {
		panic(fmt.Sprintf("unable to parse query: '%s': %v", strings.Replace(in, "\n", "\\n", -1), err))
	}
	return query
}

// Parse parses a SELECT query. Prefixed names are expanded using the prefixes
// declared in the query, then 'defaults', then BuiltinPrefixes.
func Parse(in string, defaults map[string]string) (*Query, error) {
	state := goparsify.NewState(in)
	state.WS = goparsify.NoWhitespace
	sparqlWS(state)

	result := &goparsify.Result{}
	queryRoot(state, result)
	if state.Errored() {
		exp := strings.TrimPrefix(fmt.Sprintf("%q", expectedText(&state.Error)), `"`)
		exp = strings.TrimSuffix(exp, `"`)
		return nil, newParseError(in, state.Error.Pos(), "expected "+exp)
	}
	sparqlWS(state)
	if unparsed := state.Get(); unparsed != "" {
		return nil, newParseError(in, state.Pos,
			fmt.Sprintf("unparsed text: '%s'", strings.TrimRightFunc(unparsed, unicode.IsSpace)))
	}
	query := result.Result.(*Query)
	res := resolver{in: in, prefixes: make(map[string]string)}
	for _, src := range []map[string]string{BuiltinPrefixes, defaults, query.Prefixes} {
		for k, v := range src {
			res.prefixes[k] = v
		}
	}
	if err := res.expr(query.Root.Child); err != nil {
		return nil, err
	}
	return query, nil
}

// ParseError captures more detailed information about a parsing error, and
// where it occurred.
type ParseError struct {
	// The input string to the parser which resulted in this error.
	Input string
	// Offset is the byte offset into 'Input' at which the error occurred.
	Offset int
	// Line is the line number in 'Input' at which the error occurred.
	Line int
	// Column is the column (in runes) into the indicated Line that the error
	// occurred.
	Column int
	// The specific parser error that occurred.
	Details string
}

func newParseError(in string, offset int, details string) *ParseError {
	line, col := coordinates(in, offset)
	return &ParseError{
		Input:   in,
		Offset:  offset,
		Line:    line,
		Column:  col,
		Details: details,
	}
}

func (p *ParseError) Error() string {
	return fmt.Sprintf("unable to parse query: line %d column %d: %s",
		p.Line, p.Column, p.Details)
}

// coordinates returns the line & column of the supplied offset in the string
// 'input'. Offset is in bytes, the returned column value is in runes.
func coordinates(input string, atOffset int) (line, col int) {
	input = strings.TrimRightFunc(input, unicode.IsSpace)
	if atOffset > len(input) {
		atOffset = len(input)
	}
	current := 0
	line = 1
	for _, l := range strings.Split(input, "\n") {
		if current+len(l) >= atOffset {
			return line, utf8.RuneCountInString(l[:atOffset-current]) + 1
		}
		line++
		current += len(l) + 1
	}
	panic(fmt.Sprintf("shouldn't get here. Input was '%s' atOffset: %d", input, atOffset))
}

// expectedText extracts the expected text from the supplied goparsify Error.
// This relies on the format of the error message generated by goparsify.
func expectedText(e *goparsify.Error) string {
	msg := e.Error()
	expectedIdx := strings.Index(msg, "expected")
	if expectedIdx == -1 {
		logrus.WithField("err", msg).
			Warn("Got goparsify error with missing 'expected' string")
		return msg
	}
	return msg[expectedIdx+len("expected")+1:]
}

// resolver expands prefixed names into IRIs.
type resolver struct {
	in       string
	prefixes map[string]string
}

func (r *resolver) iri(name *qname) (*IRI, error) {
	ns, found := r.prefixes[name.prefix]
	if !found {
		return nil, newParseError(r.in, name.offset,
			fmt.Sprintf("undeclared prefix '%s:'", name.prefix))
	}
	return &IRI{Value: ns + name.local}, nil
}

func (r *resolver) term(t Term) (Term, error) {
	switch t := t.(type) {
	case *qname:
		return r.iri(t)
	case *Literal:
		if t.datatypeName != nil {
			dt, err := r.iri(t.datatypeName)
			if err != nil {
				return nil, err
			}
			t.Datatype = dt.Value
			t.datatypeName = nil
		}
	}
	return t, nil
}

func (r *resolver) expr(e Expr) error {
	var err error
	switch e := e.(type) {
	case *Triple:
		if e.Subject, err = r.term(e.Subject); err != nil {
			return err
		}
		if e.Predicate, err = r.term(e.Predicate); err != nil {
			return err
		}
		e.Object, err = r.term(e.Object)
		return err
	case *Join:
		for _, arg := range e.Args {
			if err := r.expr(arg); err != nil {
				return err
			}
		}
	case *LeftJoin:
		if err := r.expr(e.Left); err != nil {
			return err
		}
		return r.expr(e.Right)
	case *Union:
		if err := r.expr(e.Left); err != nil {
			return err
		}
		return r.expr(e.Right)
	case *Service:
		if e.endpointName != nil {
			if e.Endpoint, err = r.iri(e.endpointName); err != nil {
				return err
			}
			e.endpointName = nil
		}
		return r.expr(e.Child)
	}
	return nil
}
