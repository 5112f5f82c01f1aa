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

// Package triples converts query solutions into the triples that they
// describe, for a downstream triple engine to finish evaluating the query.
package triples

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ebay/wbemql/query/parser"
	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/value"
)

// Triple is one materialized statement. The subject and predicate are always
// IRIs.
type Triple struct {
	Subject   value.Term
	Predicate value.Term
	Object    value.Term
}

// String returns the triple as an N-Triples line, without the newline.
func (t Triple) String() string {
	return fmt.Sprintf("%v %v %v .", t.Subject, t.Predicate, t.Object)
}

// Sink receives materialized triples.
type Sink interface {
	Add(Triple)
}

// Materialize emits the triples that each row of solution binds for the given
// object patterns. Every row is matched against every pattern, so the
// patterns must all have been evaluated together, as in one flat plan.
func Materialize(patterns []*plandef.ObjectPattern, solution value.Solution, ontologyPrefix string, sink Sink) error {
	for _, row := range solution {
		if err := MaterializeRow(patterns, row, ontologyPrefix, sink); err != nil {
			return err
		}
	}
	return nil
}

// MaterializeRow emits the triples that row binds for the given object
// patterns. Each bound object yields an rdf:type triple naming its class
// within ontologyPrefix, and one triple per member whose predicate and object
// are known. Patterns whose subject the row doesn't bind are skipped.
func MaterializeRow(patterns []*plandef.ObjectPattern, row value.Row, ontologyPrefix string, sink Sink) error {
	rdfType := iri(parser.RDFType)
	for _, pattern := range patterns {
		subjectVal, ok := row[pattern.Variable]
		if !ok {
			continue
		}
		subject, err := subjectVal.Term()
		if err != nil {
			return err
		}
		if subject.Kind != value.IRI {
			return fmt.Errorf("subject ?%s is bound to a %v, not an object", pattern.Variable, subjectVal.Type)
		}
		sink.Add(Triple{Subject: subject, Predicate: rdfType, Object: iri(ontologyPrefix + pattern.Class)})
		for _, m := range pattern.Members {
			predicate := iri(m.PredicateIRI)
			if m.IsWildcard() {
				p, ok := row[m.PredicateVar]
				if !ok {
					continue
				}
				predicate = iri(p.Val)
			}
			objectVal := m.Object
			if m.IsVariableObject() {
				objectVal, ok = row[m.ObjectVar]
				if !ok {
					continue
				}
			}
			object, err := objectVal.Term()
			if err != nil {
				return err
			}
			sink.Add(Triple{Subject: subject, Predicate: predicate, Object: object})
		}
	}
	return nil
}

func iri(s string) value.Term {
	return value.Term{Kind: value.IRI, Value: s}
}

// Collector is a Sink that keeps the distinct triples it receives, in the
// order it first received them.
type Collector struct {
	seen    map[Triple]struct{}
	triples []Triple
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[Triple]struct{})}
}

// Add implements Sink.
func (c *Collector) Add(t Triple) {
	if _, exists := c.seen[t]; exists {
		return
	}
	c.seen[t] = struct{}{}
	c.triples = append(c.triples, t)
}

// Triples returns the collected triples.
func (c *Collector) Triples() []Triple {
	return c.triples
}

// WriteNTriples writes the collected triples as an N-Triples document.
func (c *Collector) WriteNTriples(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, t := range c.triples {
		bw.WriteString(t.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
