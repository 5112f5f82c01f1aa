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
	"strconv"
	"strings"

	"github.com/vektah/goparsify"
)

// predicate is the result of parsing the verb in a triple pattern.
type predicate struct {
	term     Term
	modifier string
}

// predicateObjectList is the result of parsing "verb obj1, obj2".
type predicateObjectList struct {
	verb    predicate
	objects []Term
}

// optionalMarker wraps the group in an OPTIONAL block until it is folded into
// a LeftJoin by groupPattern.
type optionalMarker struct {
	group Expr
}

type prefixBinding struct {
	name string
	iri  string
}

type solutionModifiers struct {
	limit  *uint64
	offset *uint64
}

func child(idx int) func(*goparsify.Result) {
	return func(n *goparsify.Result) {
		n.Result = n.Child[idx].Result
	}
}

func literalString(n *goparsify.Result) {
	lit := &Literal{Value: n.Child[0].Token}
	switch tag := n.Child[1].Result.(type) {
	case langTag:
		lit.Language = strings.ToLower(string(tag))
	case *IRI:
		lit.Datatype = tag.Value
	case *qname:
		lit.datatypeName = tag
	}
	n.Result = lit
}

func literalNumber(n *goparsify.Result) {
	switch v := n.Result.(type) {
	case int64:
		n.Result = &Literal{Value: strconv.FormatInt(v, 10), Datatype: XSDInteger}
	case float64:
		n.Result = &Literal{Value: strconv.FormatFloat(v, 'g', -1, 64), Datatype: XSDDecimal}
	default:
		panic(fmt.Sprintf("unsupported number literal: '%s' %v", n.Token, v))
	}
}

func literalBool(n *goparsify.Result) {
	n.Result = &Literal{Value: strings.ToLower(n.Token), Datatype: XSDBoolean}
}

func verb(n *goparsify.Result) {
	n.Result = predicate{
		term:     n.Child[0].Result.(Term),
		modifier: n.Child[1].Token,
	}
}

func predicateObjects(n *goparsify.Result) {
	res := predicateObjectList{verb: n.Child[0].Result.(predicate)}
	for _, obj := range n.Child[1].Child {
		res.objects = append(res.objects, obj.Result.(Term))
	}
	n.Result = res
}

// triplesSameSubject expands the ';' and ',' shorthand into individual
// triples, in the order they appear.
func triplesSameSubject(n *goparsify.Result) {
	subject := n.Child[0].Result.(Term)
	var triples []*Triple
	for _, po := range n.Child[1].Child[0].Child {
		list := po.Result.(predicateObjectList)
		for _, obj := range list.objects {
			triples = append(triples, &Triple{
				Subject:      subject,
				Predicate:    list.verb.term,
				Object:       obj,
				PathModifier: list.verb.modifier,
			})
		}
	}
	n.Result = triples
}

func optionalBlock(n *goparsify.Result) {
	n.Result = &optionalMarker{group: n.Child[1].Result.(Expr)}
}

func serviceBlock(n *goparsify.Result) {
	svc := &Service{
		Silent: n.Child[1].Token != "",
		Child:  n.Child[3].Result.(Expr),
	}
	switch endpoint := n.Child[2].Result.(type) {
	case *IRI:
		svc.Endpoint = endpoint
	case *qname:
		// Resolved along with the other prefixed names.
		svc.Endpoint = &IRI{Value: endpoint.String()}
		svc.endpointName = endpoint
	}
	n.Result = svc
}

func unionOrGroup(n *goparsify.Result) {
	var res Expr
	for _, g := range n.Child {
		if res == nil {
			res = g.Result.(Expr)
			continue
		}
		res = &Union{Left: res, Right: g.Result.(Expr)}
	}
	n.Result = res
}

// groupPattern builds a Join from the elements of a group. An OPTIONAL block
// applies to everything that precedes it in the group.
func groupPattern(n *goparsify.Result) {
	join := &Join{}
	for _, elem := range n.Child[1].Child {
		switch e := elem.Result.(type) {
		case []*Triple:
			for _, t := range e {
				join.Args = append(join.Args, t)
			}
		case *optionalMarker:
			join = &Join{Args: []Expr{&LeftJoin{Left: join, Right: e.group}}}
		case Expr:
			join.Args = append(join.Args, e)
		default:
			panic(fmt.Sprintf("unexpected group element %T", elem.Result))
		}
	}
	n.Result = join
}

func limitOffset(n *goparsify.Result) {
	res := solutionModifiers{limit: uint64Ptr(n.Child[0].Result)}
	res.offset = uint64Ptr(n.Child[1].Result)
	n.Result = res
}

func offsetLimit(n *goparsify.Result) {
	res := solutionModifiers{offset: uint64Ptr(n.Child[0].Result)}
	res.limit = uint64Ptr(n.Child[1].Result)
	n.Result = res
}

func uint64Ptr(v interface{}) *uint64 {
	if v == nil {
		return nil
	}
	u := v.(uint64)
	return &u
}

func prefixDecl(n *goparsify.Result) {
	n.Result = prefixBinding{
		name: n.Child[1].Result.(*qname).prefix,
		iri:  n.Child[2].Result.(*IRI).Value,
	}
}

func selectQuery(n *goparsify.Result) {
	q := &Query{
		Prefixes: make(map[string]string),
		Root: &Projection{
			Distinct: strings.EqualFold(n.Child[2].Token, "DISTINCT"),
			Child:    n.Child[5].Result.(Expr),
		},
	}
	for _, decl := range n.Child[0].Child {
		b := decl.Result.(prefixBinding)
		q.Prefixes[b.name] = b.iri
	}
	if n.Child[3].Token != "*" {
		q.Root.Vars = []*Variable{}
		for _, v := range n.Child[3].Child {
			q.Root.Vars = append(q.Root.Vars, v.Result.(*Variable))
		}
	}
	if mods, ok := n.Child[6].Result.(solutionModifiers); ok {
		q.Limit = mods.limit
		q.Offset = mods.offset
	}
	n.Result = q
}
