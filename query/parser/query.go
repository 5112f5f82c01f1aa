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

package parser

import (
	"fmt"
	"strings"
)

// Well known IRIs.
const (
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble  = "http://www.w3.org/2001/XMLSchema#double"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
)

// BuiltinPrefixes are declared in every query unless the query redeclares
// them.
var BuiltinPrefixes = map[string]string{
	"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
	"xsd":  "http://www.w3.org/2001/XMLSchema#",
}

// Query is a parsed SELECT query.
type Query struct {
	// Prefixes declared by the query, not including defaults.
	Prefixes map[string]string
	// The root of the algebra tree.
	Root *Projection
	// Solution modifiers. These don't affect which data is fetched; they're
	// kept so the query can be reported accurately.
	Limit  *uint64
	Offset *uint64
}

func (q *Query) String() string {
	var b strings.Builder
	q.Root.writeTo(&b, 0)
	if q.Limit != nil {
		fmt.Fprintf(&b, "LIMIT %d\n", *q.Limit)
	}
	if q.Offset != nil {
		fmt.Fprintf(&b, "OFFSET %d\n", *q.Offset)
	}
	return b.String()
}

// Term is a subject, predicate, or object in a triple pattern.
type Term interface {
	String() string
	isTerm()
}

// Variable is a query variable such as ?p. Name excludes the '?'.
type Variable struct {
	Name string
}

// IRI is an absolute or relative IRI, with any prefix expanded.
type IRI struct {
	Value string
}

// BlankNode is a labelled blank node such as _:b1. Label excludes the "_:".
type BlankNode struct {
	Label string
}

// Literal is an RDF literal. At most one of Datatype and Language is set.
type Literal struct {
	Value    string
	Datatype string
	Language string

	// set while parsing when the datatype is a prefixed name.
	datatypeName *qname
}

// qname is a prefixed name before its prefix is expanded. It never appears
// in a Query returned by Parse.
type qname struct {
	prefix string
	local  string

	// byte offset in the query, for error reporting.
	offset int
}

// langTag is the result of parsing a language tag.
type langTag string

func (*Variable) isTerm()  {}
func (*IRI) isTerm()       {}
func (*BlankNode) isTerm() {}
func (*Literal) isTerm()   {}
func (*qname) isTerm()     {}

func (v *Variable) String() string  { return "?" + v.Name }
func (i *IRI) String() string       { return "<" + i.Value + ">" }
func (b *BlankNode) String() string { return "_:" + b.Label }
func (q *qname) String() string     { return q.prefix + ":" + q.local }

func (l *Literal) String() string {
	s := fmt.Sprintf("%q", l.Value)
	switch {
	case l.Language != "":
		return s + "@" + l.Language
	case l.Datatype != "":
		return s + "^^<" + l.Datatype + ">"
	}
	return s
}

// Expr is a node in the query algebra.
type Expr interface {
	writeTo(b *strings.Builder, depth int)
	isExpr()
}

// Projection is the root of a SELECT query. Vars is nil for SELECT *.
type Projection struct {
	Distinct bool
	Vars     []*Variable
	Child    Expr
}

// Join holds the elements of a group graph pattern, all of which must match.
type Join struct {
	Args []Expr
}

// LeftJoin is an OPTIONAL block: Right is optional relative to Left.
type LeftJoin struct {
	Left  Expr
	Right Expr
}

// Union matches either of its arms.
type Union struct {
	Left  Expr
	Right Expr
}

// Service is a SERVICE block, evaluated by a remote endpoint.
type Service struct {
	Endpoint *IRI
	Silent   bool
	Child    Expr

	// set while parsing when the endpoint is a prefixed name.
	endpointName *qname
}

// Filter is a FILTER constraint. Its expression is kept as text.
type Filter struct {
	Text string
}

// Triple is a triple pattern.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
	// "*" or "+" if Predicate is an arbitrary length property path, empty
	// otherwise.
	PathModifier string
}

func (*Projection) isExpr() {}
func (*Join) isExpr()       {}
func (*LeftJoin) isExpr()   {}
func (*Union) isExpr()      {}
func (*Service) isExpr()    {}
func (*Filter) isExpr()     {}
func (*Triple) isExpr()     {}

// String returns the triple in SPARQL-like syntax.
func (t *Triple) String() string {
	return fmt.Sprintf("%v %v%s %v", t.Subject, t.Predicate, t.PathModifier, t.Object)
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("    ", depth))
}

func (p *Projection) writeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("Projection")
	if p.Distinct {
		b.WriteString(" DISTINCT")
	}
	if p.Vars == nil {
		b.WriteString(" *")
	}
	for _, v := range p.Vars {
		b.WriteString(" ")
		b.WriteString(v.String())
	}
	b.WriteString("\n")
	if p.Child != nil {
		p.Child.writeTo(b, depth+1)
	}
}

func (j *Join) writeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("Join\n")
	for _, arg := range j.Args {
		arg.writeTo(b, depth+1)
	}
}

func (j *LeftJoin) writeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("LeftJoin\n")
	j.Left.writeTo(b, depth+1)
	j.Right.writeTo(b, depth+1)
}

func (u *Union) writeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("Union\n")
	u.Left.writeTo(b, depth+1)
	u.Right.writeTo(b, depth+1)
}

func (s *Service) writeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("Service ")
	if s.Silent {
		b.WriteString("SILENT ")
	}
	b.WriteString(s.Endpoint.String())
	b.WriteString("\n")
	s.Child.writeTo(b, depth+1)
}

func (f *Filter) writeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("Filter ")
	b.WriteString(f.Text)
	b.WriteString("\n")
}

func (t *Triple) writeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString(t.String())
	b.WriteString("\n")
}

// ExprString formats an algebra tree, one node per line.
func ExprString(e Expr) string {
	var b strings.Builder
	e.writeTo(&b, 0)
	return b.String()
}
