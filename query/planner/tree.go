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

	"github.com/ebay/wbemql/query/parser"
	"github.com/ebay/wbemql/query/planner/plandef"
	log "github.com/sirupsen/logrus"
)

// BuildTree converts the query algebra into a tree of groups. Nested joins
// and left joins are flattened into one Join node, each Union arm gets its
// own node, and SERVICE blocks and filters are left out. The triples of each
// Join node are then grouped into object patterns in evaluation order.
func BuildTree(root *parser.Projection, opts Options) (*plandef.Projection, error) {
	proj := &plandef.Projection{}
	if root.Vars != nil {
		proj.Vars = make([]string, len(root.Vars))
		for i, v := range root.Vars {
			proj.Vars[i] = v.Name
		}
	}
	if root.Child != nil {
		if err := addExpr(root.Child, proj); err != nil {
			return nil, err
		}
	}
	var err error
	plandef.Walk(proj, func(n plandef.Node) {
		join, ok := n.(*plandef.Join)
		if !ok || err != nil {
			return
		}
		var objects []*plandef.ObjectPattern
		objects, err = BuildObjectPatterns(join.Triples, opts)
		if err == nil {
			join.Objects = Order(objects, opts)
		}
	})
	if err != nil {
		return nil, err
	}
	return proj, nil
}

// addExpr adds e and its descendants to the tree below parent.
func addExpr(e parser.Expr, parent plandef.Node) error {
	switch e := e.(type) {
	case *parser.Join:
		join := joinFor(parent)
		for _, arg := range e.Args {
			if err := addExpr(arg, join); err != nil {
				return err
			}
		}
	case *parser.LeftJoin:
		join := joinFor(parent)
		if err := addExpr(e.Left, join); err != nil {
			return err
		}
		return addExpr(e.Right, join)
	case *parser.Union:
		union := &plandef.Union{}
		attach(parent, union)
		if err := addExpr(e.Left, union); err != nil {
			return err
		}
		return addExpr(e.Right, union)
	case *parser.Triple:
		join := joinFor(parent)
		join.Triples = append(join.Triples, e)
	case *parser.Service, *parser.Filter:
		// Evaluated downstream, not fetched from the management source.
	default:
		return fmt.Errorf("unexpected expression type %T in query", e)
	}
	return nil
}

// joinFor returns parent if it's a Join, or else a new Join attached to
// parent.
func joinFor(parent plandef.Node) *plandef.Join {
	if join, ok := parent.(*plandef.Join); ok {
		return join
	}
	join := &plandef.Join{}
	attach(parent, join)
	return join
}

func attach(parent, child plandef.Node) {
	switch p := parent.(type) {
	case *plandef.Projection:
		if p.Child != nil {
			log.Panicf("Projection already has a child: %v", p.Child.Label())
		}
		p.Child = child
	case *plandef.Union:
		p.Nodes = append(p.Nodes, child)
	case *plandef.Join:
		p.Nodes = append(p.Nodes, child)
	default:
		log.Panicf("unexpected node type %T", parent)
	}
}

// FlatTriples returns every triple pattern in the query that refers to the
// management source, for planning in flat mode. It returns ErrFlatUnion if
// the query has a UNION, since flat mode would join the arms.
func FlatTriples(root *parser.Projection) ([]*parser.Triple, error) {
	var triples []*parser.Triple
	var walk func(e parser.Expr) error
	walk = func(e parser.Expr) error {
		switch e := e.(type) {
		case *parser.Join:
			for _, arg := range e.Args {
				if err := walk(arg); err != nil {
					return err
				}
			}
		case *parser.LeftJoin:
			if err := walk(e.Left); err != nil {
				return err
			}
			return walk(e.Right)
		case *parser.Union:
			return ErrFlatUnion
		case *parser.Triple:
			triples = append(triples, e)
		}
		return nil
	}
	if root.Child == nil {
		return nil, nil
	}
	if err := walk(root.Child); err != nil {
		return nil, err
	}
	return triples, nil
}

// Order returns the patterns in evaluation order, using opts.Order if set.
// The default order is lexicographic by variable name, which is how
// BuildObjectPatterns returns them.
func Order(patterns []*plandef.ObjectPattern, opts Options) []*plandef.ObjectPattern {
	if opts.Order == nil {
		return patterns
	}
	in := append([]*plandef.ObjectPattern(nil), patterns...)
	out := opts.Order(in)
	if len(out) != len(patterns) {
		log.Panicf("pattern order returned %d patterns, expected %d", len(out), len(patterns))
	}
	return out
}
