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
	"errors"
	"testing"

	"github.com/ebay/wbemql/query/parser"
	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeQuery = `SELECT ?a {
	?a wmi:X.p ?b .
	{ ?b wmi:Y.q ?c } UNION { ?b wmi:Z.r ?d }
	OPTIONAL { ?a wmi:X.s ?e }
	SERVICE <http://remote/sparql> { ?e ?f ?g }
	FILTER(?a != "")
}`

func parse(t *testing.T, query string) *parser.Query {
	t.Helper()
	q, err := parser.Parse(query, map[string]string{"wmi": wbem})
	require.NoError(t, err)
	return q
}

func Test_BuildTree(t *testing.T) {
	root, err := BuildTree(parse(t, treeQuery).Root, testOpts)
	require.NoError(t, err)
	assert.Equal(t, `Projection ?a
    Join (2 patterns)
      ?a root/cimv2:X { p ?b; s ?e }
        Union
            Join (1 patterns)
              ?b root/cimv2:Y { q ?c }
            Join (1 patterns)
              ?b root/cimv2:Z { r ?d }
`, plandef.TreeString(root))
}

func Test_BuildTreeEmptyGroup(t *testing.T) {
	root, err := BuildTree(parse(t, `SELECT * {}`).Root, testOpts)
	require.NoError(t, err)
	assert.Nil(t, root.Vars)
	assert.Equal(t, "Projection *\n    Join (0 patterns)\n", plandef.TreeString(root))
}

func Test_BuildTreeError(t *testing.T) {
	query := `SELECT * { ?a wmi:X.p ?b . { ?b wmi:Y.q ?c ; wmi:Z.r ?d } UNION { } }`
	_, err := BuildTree(parse(t, query).Root, testOpts)
	assert.True(t, errors.Is(err, ErrInconsistentClassName), "%v", err)

	// A custom order isn't consulted for patterns that failed to build.
	ordered := 0
	first := testOpts
	first.Order = func(in []*plandef.ObjectPattern) []*plandef.ObjectPattern {
		ordered++
		return append(in[:1], in[1:]...)
	}
	assert.NotPanics(t, func() {
		_, err = BuildTree(parse(t, `SELECT * { ?b wmi:Y.q ?c ; wmi:Z.r ?d }`).Root, first)
	})
	assert.True(t, errors.Is(err, ErrInconsistentClassName), "%v", err)
	assert.Equal(t, 0, ordered)
}

func Test_BuildTreeOrder(t *testing.T) {
	reverse := testOpts
	reverse.Order = func(in []*plandef.ObjectPattern) []*plandef.ObjectPattern {
		for i, j := 0, len(in)-1; i < j; i, j = i+1, j-1 {
			in[i], in[j] = in[j], in[i]
		}
		return in
	}
	root, err := BuildTree(parse(t, `SELECT * { ?a wmi:A.p ?b . ?b wmi:B.q ?c }`).Root, reverse)
	require.NoError(t, err)
	join := root.Child.(*plandef.Join)
	require.Len(t, join.Objects, 2)
	assert.Equal(t, "b", join.Objects[0].Variable)
	assert.Equal(t, "a", join.Objects[1].Variable)

	short := testOpts
	short.Order = func(in []*plandef.ObjectPattern) []*plandef.ObjectPattern {
		return in[:1]
	}
	assert.Panics(t, func() {
		BuildTree(parse(t, `SELECT * { ?a wmi:A.p ?b . ?b wmi:B.q ?c }`).Root, short)
	})
}

func Test_PlanTree(t *testing.T) {
	root, err := BuildTree(parse(t, treeQuery).Root, testOpts)
	require.NoError(t, err)
	require.NoError(t, PlanTree(root, provider.NewRegistry(nil, nil, nil), testOpts))

	var plans []*plandef.Plan
	plandef.Walk(root, func(n plandef.Node) {
		if join, ok := n.(*plandef.Join); ok {
			plans = append(plans, join.Plan)
		}
	})
	require.Len(t, plans, 3)
	for _, plan := range plans {
		require.NotNil(t, plan)
		require.Len(t, plan.Steps, 1)
	}
	// Each join is planned on its own, so ?b isn't bound in the union arms.
	assert.Equal(t, []string{"a", "b", "e"}, plans[0].Context.Names())
	assert.Equal(t, []string{"b", "c"}, plans[1].Context.Names())
	assert.Equal(t, []string{"b", "d"}, plans[2].Context.Names())
	assert.False(t, plans[1].Steps[0].MainVariableAvailable)
}

func Test_PlanTreeError(t *testing.T) {
	root, err := BuildTree(parse(t, `SELECT * { ?s wmi:X.p ?s }`).Root, testOpts)
	require.NoError(t, err)
	assert.Error(t, PlanTree(root, provider.NewRegistry(nil, nil, nil), testOpts))
}

func Test_FlatTriples(t *testing.T) {
	q := parse(t, `SELECT * {
		?a wmi:X.p ?b .
		OPTIONAL { ?a wmi:X.s ?e }
		{ ?b wmi:Y.q ?c }
		FILTER(?c > 1)
	}`)
	res, err := FlatTriples(q.Root)
	require.NoError(t, err)
	var strs []string
	for _, tr := range res {
		strs = append(strs, tr.String())
	}
	assert.Equal(t, []string{
		"?a <" + wbem + "X.p> ?b",
		"?a <" + wbem + "X.s> ?e",
		"?b <" + wbem + "Y.q> ?c",
	}, strs)

	_, err = FlatTriples(parse(t, treeQuery).Root)
	assert.Equal(t, ErrFlatUnion, err)

	res, err = FlatTriples(&parser.Projection{})
	assert.NoError(t, err)
	assert.Empty(t, res)
}
