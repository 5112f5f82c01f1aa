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

package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/ebay/wbemql/objpath"
	"github.com/ebay/wbemql/query/parser"
	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/value"
)

// Options configure the planner.
type Options struct {
	// IRI prefix of the class and property IRIs of the management ontology.
	OntologyPrefix string
	// The namespace of classes that aren't named by an object path.
	Namespace string
	// Order, if set, returns the evaluation order for the patterns of one
	// group. It must return the same patterns. The default keeps them sorted
	// by variable name.
	Order func([]*plandef.ObjectPattern) []*plandef.ObjectPattern
}

// objectBuilder accumulates one ObjectPattern.
type objectBuilder struct {
	pattern *plandef.ObjectPattern
	// subject as written in the query, for errors.
	subject string
	// class named by rdf:type, if any.
	typeClass string
	// class named by a "Class." predicate prefix, and the first predicate
	// that named it.
	prefixClass     string
	prefixPredicate string
}

// BuildObjectPatterns groups triple patterns by subject. Triples that can't
// refer to objects in the management source are left out: those whose
// predicate isn't in the ontology, and those whose subject is an IRI that
// isn't an object path. The result is sorted by variable name.
func BuildObjectPatterns(triples []*parser.Triple, opts Options) ([]*plandef.ObjectPattern, error) {
	builders := make(map[string]*objectBuilder)
	get := func(key string, subject parser.Term) *objectBuilder {
		b := builders[key]
		if b == nil {
			b = &objectBuilder{
				pattern: &plandef.ObjectPattern{Variable: key},
				subject: subject.String(),
			}
			builders[key] = b
		}
		return b
	}
	for _, t := range triples {
		if t.PathModifier != "" {
			return nil, &PatternError{
				Err:       ErrUnsupportedPropertyPath,
				Subject:   t.Subject.String(),
				Predicate: t.Predicate.String() + t.PathModifier,
			}
		}
		var key, constant string
		switch s := t.Subject.(type) {
		case *parser.Variable:
			key = s.Name
		case *parser.IRI:
			if !objpath.IsPath(s.Value) {
				continue
			}
			key = fmt.Sprintf("%s%x", plandef.ConstantPrefix, xxhash.Sum64String(s.Value))
			constant = s.Value
		case *parser.BlankNode:
			if isExternal(t, opts) {
				return nil, &PatternError{
					Err:       ErrUnsupportedAnonymousSubject,
					Subject:   s.String(),
					Predicate: t.Predicate.String(),
				}
			}
			continue
		default:
			continue
		}
		var member plandef.Member
		switch p := t.Predicate.(type) {
		case *parser.Variable:
			b := get(key, t.Subject)
			if _, dup := b.pattern.Wildcard(); dup {
				return nil, &PatternError{
					Err:       ErrDuplicateWildcardPredicate,
					Subject:   b.subject,
					Predicate: p.String(),
				}
			}
			member.PredicateVar = p.Name
		case *parser.IRI:
			if p.Value == parser.RDFType {
				class, ok := ontologyClass(t.Object, opts)
				if !ok {
					continue
				}
				b := get(key, t.Subject)
				if err := b.setTypeClass(class); err != nil {
					return nil, err
				}
				b.pattern.ConstantSubject = constant
				continue
			}
			local, ok := stripPrefix(p.Value, opts.OntologyPrefix)
			if !ok {
				continue
			}
			member.PredicateIRI = p.Value
			member.Property = local
			if dot := strings.IndexByte(local, '.'); dot >= 0 {
				member.Property = local[dot+1:]
				if err := get(key, t.Subject).setPrefixClass(local[:dot], p.Value); err != nil {
					return nil, err
				}
			}
		default:
			continue
		}
		switch o := t.Object.(type) {
		case *parser.Variable:
			member.ObjectVar = o.Name
		case *parser.BlankNode:
			member.ObjectVar = o.String()
		case *parser.IRI:
			member.Object = value.NewNode(o.Value)
		case *parser.Literal:
			member.Object = literalPair(o)
		}
		b := get(key, t.Subject)
		b.pattern.ConstantSubject = constant
		b.pattern.Members = append(b.pattern.Members, member)
	}

	res := make([]*plandef.ObjectPattern, 0, len(builders))
	for _, b := range builders {
		if err := b.finish(opts); err != nil {
			return nil, err
		}
		res = append(res, b.pattern)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Variable < res[j].Variable
	})
	return res, nil
}

func (b *objectBuilder) setTypeClass(class string) error {
	if b.typeClass != "" && !strings.EqualFold(b.typeClass, class) {
		return &PatternError{
			Err:       ErrInconsistentClassName,
			Subject:   b.subject,
			Predicate: "rdf:type",
			Classes:   []string{b.typeClass, class},
		}
	}
	if b.prefixClass != "" && !strings.EqualFold(b.prefixClass, class) {
		return &PatternError{
			Err:       ErrInconsistentClassName,
			Subject:   b.subject,
			Predicate: b.prefixPredicate,
			Classes:   []string{class, b.prefixClass},
		}
	}
	b.typeClass = class
	return nil
}

func (b *objectBuilder) setPrefixClass(class, predicate string) error {
	if b.prefixClass != "" && !strings.EqualFold(b.prefixClass, class) {
		return &PatternError{
			Err:       ErrInconsistentClassName,
			Subject:   b.subject,
			Predicate: predicate,
			Classes:   []string{b.prefixClass, class},
		}
	}
	if b.typeClass != "" && !strings.EqualFold(b.typeClass, class) {
		return &PatternError{
			Err:       ErrInconsistentClassName,
			Subject:   b.subject,
			Predicate: predicate,
			Classes:   []string{b.typeClass, class},
		}
	}
	if b.prefixClass == "" {
		b.prefixClass = class
		b.prefixPredicate = predicate
	}
	return nil
}

// finish fills in the class and namespace of the pattern.
func (b *objectBuilder) finish(opts Options) error {
	p := b.pattern
	p.Class = b.typeClass
	if p.Class == "" {
		p.Class = b.prefixClass
	}
	p.Namespace = opts.Namespace
	if p.IsConstant() {
		path, err := objpath.Parse(p.ConstantSubject)
		if err != nil {
			return err
		}
		if p.Class != "" && !strings.EqualFold(p.Class, path.Class) {
			return &PatternError{
				Err:     ErrInconsistentClassName,
				Subject: b.subject,
				Classes: []string{path.Class, p.Class},
			}
		}
		p.Class = path.Class
		p.Namespace = path.Namespace
	}
	if p.Class == "" {
		return &PatternError{Err: ErrUnknownClass, Subject: b.subject}
	}
	return nil
}

// isExternal returns true if the triple may refer to an object in the
// management source.
func isExternal(t *parser.Triple, opts Options) bool {
	switch p := t.Predicate.(type) {
	case *parser.Variable:
		return true
	case *parser.IRI:
		if p.Value == parser.RDFType {
			_, ok := ontologyClass(t.Object, opts)
			return ok
		}
		return strings.HasPrefix(p.Value, opts.OntologyPrefix)
	}
	return false
}

// ontologyClass returns the class name if term is a class IRI in the
// ontology.
func ontologyClass(term parser.Term, opts Options) (string, bool) {
	iri, ok := term.(*parser.IRI)
	if !ok {
		return "", false
	}
	class, ok := stripPrefix(iri.Value, opts.OntologyPrefix)
	if !ok || strings.Contains(class, ".") {
		return "", false
	}
	return class, true
}

func stripPrefix(iri, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(iri, prefix) || len(iri) == len(prefix) {
		return "", false
	}
	return iri[len(prefix):], true
}

// literalPair converts a query literal into a typed value. Values that don't
// parse as their datatype are kept as strings, and plain strings holding an
// object path become nodes.
func literalPair(lit *parser.Literal) value.Pair {
	var typ value.Type
	switch lit.Datatype {
	case parser.XSDInteger, xsd + "int", xsd + "long", xsd + "short",
		xsd + "unsignedInt", xsd + "unsignedLong", xsd + "unsignedShort":
		typ = value.Int
	case parser.XSDDecimal, parser.XSDDouble, xsd + "float":
		typ = value.Float
	case parser.XSDBoolean:
		typ = value.Bool
	case xsd + "dateTime":
		if t, err := value.ParseXSDDateTime(lit.Value); err == nil {
			return value.Pair{Val: value.FormatDate(t), Type: value.Date}
		}
		return value.NewString(lit.Value)
	default:
		if objpath.IsPath(lit.Value) {
			return value.NewNode(lit.Value)
		}
		return value.NewString(lit.Value)
	}
	p := value.Pair{Val: lit.Value, Type: typ}
	if p.Check() != nil {
		return value.NewString(lit.Value)
	}
	return p
}

const xsd = "http://www.w3.org/2001/XMLSchema#"
