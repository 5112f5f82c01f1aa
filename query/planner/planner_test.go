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
	"context"
	"errors"
	"testing"

	"github.com/ebay/wbemql/query/cache"
	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/provider"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	provider.SelectSignature
}

func (p *fakeProvider) Name() string { return "fake " + p.Class }

func (p *fakeProvider) Select(context.Context, *source.SelectRequest) ([]value.Row, error) {
	return nil, nil
}

type fakeGetter struct {
	provider.GetSignature
}

func (g *fakeGetter) Name() string { return "fake " + g.Class }

func (g *fakeGetter) Get(context.Context, *source.GetRequest, cache.RowCache) (value.Row, error) {
	return nil, nil
}

func patterns(t *testing.T, query string) []*plandef.ObjectPattern {
	t.Helper()
	res, err := BuildObjectPatterns(triples(t, query), testOpts)
	require.NoError(t, err)
	return res
}

// byVariable returns the patterns in the order of the given variables.
func byVariable(t *testing.T, in []*plandef.ObjectPattern, vars ...string) []*plandef.ObjectPattern {
	t.Helper()
	var res []*plandef.ObjectPattern
	for _, v := range vars {
		for _, p := range in {
			if p.Variable == v {
				res = append(res, p)
			}
		}
	}
	require.Len(t, res, len(in))
	return res
}

func Test_PlanSingleSelect(t *testing.T) {
	in := patterns(t, `SELECT * { ?p a wmi:Win32_Process ; wmi:Handle "4" }`)

	plan, err := Plan(in, provider.NewRegistry(nil, nil, nil), testOpts)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	assert.False(t, step.MainVariableAvailable)
	assert.Equal(t, "p", step.MainVariable)
	assert.Equal(t, []plandef.WhereEquality{{Property: "Handle", Value: value.NewString("4")}}, step.Wheres)
	assert.Empty(t, step.Columns)
	assert.True(t, provider.IsGeneric(step.Provider))
	assert.Nil(t, step.Getter)
	assert.Equal(t, []string{"p"}, plan.Context.Names())

	// A registered provider with a matching signature takes over.
	byHandle := &fakeProvider{provider.SelectSignature{Class: "Win32_Process", Wheres: []string{"Handle"}}}
	plan, err = Plan(in, provider.NewRegistry(nil, []provider.Provider{byHandle}, nil), testOpts)
	require.NoError(t, err)
	assert.Equal(t, byHandle, plan.Steps[0].Provider)
}

func Test_PlanChained(t *testing.T) {
	in := patterns(t, `SELECT * {
		?p a wmi:Win32_Process ; wmi:Handle "4" .
		?f a wmi:CIM_ProcessExecutable ; wmi:Dependent ?p ; wmi:Antecedent ?file .
	}`)
	plan, err := Plan(byVariable(t, in, "p", "f"), provider.NewRegistry(nil, nil, nil), testOpts)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	assert.False(t, plan.Steps[1].MainVariableAvailable)
	assert.Equal(t, []plandef.WhereEquality{{Property: "Dependent", Variable: "p"}}, plan.Steps[1].Wheres)
	assert.Equal(t, []plandef.Column{{Property: "Antecedent", Variable: "file"}}, plan.Steps[1].Columns)
	assert.Equal(t, []string{"p", "f", "file"}, plan.Context.Names())

	// In the default order ?f comes first, so ?p is then bound, and its
	// pattern becomes a point lookup that checks the handle.
	plan, err = Plan(in, provider.NewRegistry(nil, nil, nil), testOpts)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	f, p := plan.Steps[0], plan.Steps[1]
	assert.False(t, f.MainVariableAvailable)
	assert.Empty(t, f.Wheres)
	assert.Equal(t, []plandef.Column{
		{Property: "Antecedent", Variable: "file"},
		{Property: "Dependent", Variable: "p"},
	}, f.Columns)
	assert.True(t, p.MainVariableAvailable)
	assert.Empty(t, p.Wheres)
	assert.Equal(t, []plandef.Column{{Property: "Handle", Variable: "#h1"}}, p.Columns)
	assert.Equal(t, []plandef.Check{{
		Hidden: "#h1",
		Where:  plandef.WhereEquality{Property: "Handle", Value: value.NewString("4")},
	}}, p.Checks)
	assert.True(t, provider.IsGeneric(p.Getter))
	assert.Nil(t, p.Provider)
	assert.Equal(t, []string{"f", "p", "file", "#h1"}, plan.Context.Names())
}

func Test_PlanCanonicalWheres(t *testing.T) {
	a := patterns(t, `SELECT * { ?p a wmi:X ; wmi:Name "n" ; wmi:Handle "4" ; wmi:Caption "c" }`)
	b := patterns(t, `SELECT * { ?p wmi:Caption "c" ; wmi:Handle "4" ; a wmi:X ; wmi:Name "n" }`)
	reg := provider.NewRegistry(nil, nil, nil)
	planA, err := Plan(a, reg, testOpts)
	require.NoError(t, err)
	planB, err := Plan(b, reg, testOpts)
	require.NoError(t, err)
	assert.Equal(t, planA.Steps[0].Wheres, planB.Steps[0].Wheres)
	assert.Equal(t, []string{"Caption", "Handle", "Name"}, planA.Steps[0].WhereProperties())
}

func Test_PlanSynonyms(t *testing.T) {
	in := patterns(t, `SELECT * { ?p a wmi:X ; wmi:Name ?a ; wmi:Name ?b ; wmi:Caption ?a }`)
	plan, err := Plan(in, provider.NewRegistry(nil, nil, nil), testOpts)
	require.NoError(t, err)
	step := plan.Steps[0]
	assert.Equal(t, []plandef.Column{
		{Property: "Caption", Variable: "a"},
		{Property: "Name", Variable: "a"},
	}, step.Columns)
	assert.Equal(t, []plandef.Synonym{{Variable: "b", Primary: "a"}}, step.Synonyms)
	assert.Equal(t, []string{"Caption", "Name"}, step.Properties())
	assert.Equal(t, []string{"p", "a", "b"}, plan.Context.Names())
}

func Test_PlanConstantSubject(t *testing.T) {
	in := patterns(t, `SELECT * { <root/cimv2:Win32_Process.Handle="4"> wmi:Name ?n ; wmi:Handle "4" }`)
	plan, err := Plan(in, provider.NewRegistry(nil, nil, nil), testOpts)
	require.NoError(t, err)
	step := plan.Steps[0]
	assert.True(t, step.MainVariableAvailable)
	bound, ok := plan.Context.Lookup(step.MainVariable)
	assert.True(t, ok)
	assert.Equal(t, value.NewNode(`root/cimv2:Win32_Process.Handle="4"`), bound)
	assert.Equal(t, []plandef.Column{
		{Property: "Handle", Variable: "#h1"},
		{Property: "Name", Variable: "n"},
	}, step.Columns)
	assert.Len(t, step.Checks, 1)
	assert.NotNil(t, step.Getter)
}

func Test_PlanWildcard(t *testing.T) {
	in := patterns(t, `SELECT * { ?p a wmi:Win32_Process ; ?prop ?val }`)
	narrow := &fakeGetter{provider.GetSignature{Class: "Win32_Process", Columns: []string{"Name"}}}
	reg := provider.NewRegistry(nil, nil, []provider.Getter{narrow})
	plan, err := Plan(in, reg, testOpts)
	require.NoError(t, err)
	step := plan.Steps[0]
	assert.Equal(t, &plandef.Wildcard{
		PredicateVar:   "prop",
		ValueVar:       "val",
		PropertyPrefix: wbem + "Win32_Process.",
	}, step.Wildcard)
	assert.True(t, provider.IsGeneric(step.Provider))
	assert.Equal(t, []string{"p", "prop", "val"}, plan.Context.Names())
	assert.Equal(t, []string{"select Win32_Process where []"}, reg.Unmatched())

	// The narrow getter can't serve a wildcard lookup.
	in = patterns(t, `SELECT * { <root/cimv2:Win32_Process.Handle="4"> ?prop ?val }`)
	plan, err = Plan(in, reg, testOpts)
	require.NoError(t, err)
	assert.True(t, provider.IsGeneric(plan.Steps[0].Getter))
	assert.Contains(t, reg.Unmatched(), "get Win32_Process *")

	in = patterns(t, `SELECT * { <root/cimv2:Win32_Process.Handle="4"> wmi:Name ?n }`)
	plan, err = Plan(in, reg, testOpts)
	require.NoError(t, err)
	assert.Equal(t, narrow, plan.Steps[0].Getter)
}

func Test_PlanSelfReference(t *testing.T) {
	in := patterns(t, `SELECT * { ?s a wmi:X ; wmi:Parent ?s ; wmi:Name ?n }`)
	plan, err := Plan(in, provider.NewRegistry(nil, nil, nil), testOpts)
	require.NoError(t, err)
	step := plan.Steps[0]
	assert.Equal(t, []plandef.Column{
		{Property: "Name", Variable: "n"},
		{Property: "Parent", Variable: "s"},
	}, step.Columns)
	assert.Equal(t, []string{"s", "n"}, plan.Context.Names())
	assert.NoError(t, Verify(plan))
}

func Test_PlanNoDoubleRegistration(t *testing.T) {
	in := patterns(t, `SELECT * {
		?a a wmi:A ; wmi:Name ?n ; wmi:Ref ?b .
		?b a wmi:B ; wmi:Name ?n ; wmi:Size ?size ; wmi:Other ?c .
		?c a wmi:C ; wmi:Size ?size ; ?prop ?n .
	}`)
	plan, err := Plan(in, provider.NewRegistry(nil, nil, nil), testOpts)
	require.NoError(t, err)
	names := plan.Context.Names()
	seen := make(map[string]bool)
	for _, name := range names {
		assert.False(t, seen[name], "?%s registered twice", name)
		seen[name] = true
	}
	for _, step := range plan.Steps {
		assert.NoError(t, step.CheckStrategy())
		assert.Equal(t, step.MainVariableAvailable, step.Getter != nil)
		assert.Equal(t, !step.MainVariableAvailable, step.Provider != nil)
	}
	assert.NoError(t, Verify(plan))
}

func Test_Verify(t *testing.T) {
	ctx := value.NewContext()
	require.NoError(t, ctx.Register("f"))
	require.NoError(t, ctx.Register("p"))
	plan := &plandef.Plan{
		Context: ctx,
		Steps: []*plandef.QueryData{
			{MainVariable: "f", Wheres: []plandef.WhereEquality{{Property: "Dependent", Variable: "p"}}},
			{MainVariable: "p"},
		},
	}
	err := Verify(plan)
	assert.True(t, errors.Is(err, ErrUnboundDependency), "%v", err)
	assert.EqualError(t, err, "plan step depends on an unbound variable: step 0 needs ?p")

	plan.Steps[0], plan.Steps[1] = plan.Steps[1], plan.Steps[0]
	assert.NoError(t, Verify(plan))

	plan.Steps = []*plandef.QueryData{{MainVariable: "q", MainVariableAvailable: true}}
	assert.True(t, errors.Is(Verify(plan), ErrUnboundDependency))
}
