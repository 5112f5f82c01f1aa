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

package exec

import (
	"context"
	"fmt"

	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/util/parallel"
	log "github.com/sirupsen/logrus"
)

// Branch is one row of a tree evaluation together with the groups whose
// patterns produced its bindings.
type Branch struct {
	Row   value.Row
	Joins []*plandef.Join
}

// Tree evaluates a planned tree of groups. Every Join node in the tree must
// have a plan.
func (e *Executor) Tree(ctx context.Context, root plandef.Node) (value.Solution, error) {
	branches, err := e.TreeBranches(ctx, root)
	if err != nil {
		return nil, err
	}
	res := make(value.Solution, len(branches))
	for i, b := range branches {
		res[i] = b.Row
	}
	return res, nil
}

// TreeBranches is like Tree but also reports, for each row, which Join nodes
// contributed to it. A row of a Union arm only names the joins of that arm.
func (e *Executor) TreeBranches(ctx context.Context, root plandef.Node) ([]Branch, error) {
	switch n := root.(type) {
	case *plandef.Projection:
		if n.Child == nil {
			return []Branch{{Row: value.Row{}}}, nil
		}
		return e.TreeBranches(ctx, n.Child)

	case *plandef.Join:
		if n.Plan == nil {
			return nil, fmt.Errorf("join of %d patterns has no plan", len(n.Objects))
		}
		rows, err := e.Flat(ctx, n.Plan)
		if err != nil {
			return nil, err
		}
		res := make([]Branch, len(rows))
		for i, row := range rows {
			res[i] = Branch{Row: row, Joins: []*plandef.Join{n}}
		}
		children, err := e.evalAll(ctx, n.Nodes)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			res = product(res, child)
		}
		return res, nil

	case *plandef.Union:
		children, err := e.evalAll(ctx, n.Nodes)
		if err != nil {
			return nil, err
		}
		var res []Branch
		for _, child := range children {
			res = append(res, child...)
		}
		return res, nil
	}
	log.Panicf("Unexpected node type %T in tree", root)
	return nil, nil
}

// product is value.Solution.Product for branches. The joins of each combined
// branch are those of both inputs.
func product(left, right []Branch) []Branch {
	res := make([]Branch, 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			if !l.Row.Compatible(r.Row) {
				continue
			}
			joins := make([]*plandef.Join, 0, len(l.Joins)+len(r.Joins))
			joins = append(append(joins, l.Joins...), r.Joins...)
			res = append(res, Branch{Row: l.Row.Merge(r.Row), Joins: joins})
		}
	}
	return res
}

// evalAll evaluates each node, concurrently if the Executor was configured to.
// The results are in the same order as nodes.
func (e *Executor) evalAll(ctx context.Context, nodes []plandef.Node) ([][]Branch, error) {
	res := make([][]Branch, len(nodes))
	if !e.opts.Parallel || len(nodes) < 2 {
		for i, n := range nodes {
			branches, err := e.TreeBranches(ctx, n)
			if err != nil {
				return nil, err
			}
			res[i] = branches
		}
		return res, nil
	}
	err := parallel.InvokeN(ctx, len(nodes), func(ctx context.Context, i int) error {
		branches, err := e.TreeBranches(ctx, nodes[i])
		res[i] = branches
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
