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

// Package planner turns the triple patterns of a query into plans: ordered
// lists of selects and point lookups against the management source, where
// each step may depend on variables bound by the steps before it.
package planner

import (
	"fmt"

	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/provider"
	"github.com/ebay/wbemql/query/value"
)

// Plan builds a plan that evaluates the patterns in the given order. A
// pattern's properties whose objects are bound by earlier patterns become
// constraints; the rest become output columns. Every step is resolved to a
// strategy in registry.
func Plan(patterns []*plandef.ObjectPattern, registry *provider.Registry, opts Options) (*plandef.Plan, error) {
	p := planner{
		ctx:      value.NewContext(),
		registry: registry,
		opts:     opts,
	}
	plan := &plandef.Plan{Context: p.ctx}
	for _, pattern := range patterns {
		step, err := p.step(pattern)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, step)
	}
	if err := Verify(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// PlanTree plans each Join node of the tree independently.
func PlanTree(root plandef.Node, registry *provider.Registry, opts Options) error {
	var err error
	plandef.Walk(root, func(n plandef.Node) {
		join, ok := n.(*plandef.Join)
		if !ok || err != nil {
			return
		}
		join.Plan, err = Plan(join.Objects, registry, opts)
	})
	return err
}

type planner struct {
	ctx      *value.Context
	registry *provider.Registry
	opts     Options
	// Count of hidden variables synthesized so far.
	hidden int
}

// step builds the plan step for one pattern and registers the variables it
// binds.
func (p *planner) step(pattern *plandef.ObjectPattern) (*plandef.QueryData, error) {
	q := &plandef.QueryData{
		Pattern:      pattern,
		MainVariable: pattern.Variable,
		Namespace:    pattern.Namespace,
		Class:        pattern.Class,
	}
	if pattern.IsConstant() {
		if !p.ctx.IsRegistered(pattern.Variable) {
			if err := p.ctx.Register(pattern.Variable); err != nil {
				return nil, err
			}
			if err := p.ctx.Bind(pattern.Variable, value.NewNode(pattern.ConstantSubject)); err != nil {
				return nil, err
			}
		}
		q.MainVariableAvailable = true
	} else {
		q.MainVariableAvailable = p.ctx.IsRegistered(pattern.Variable)
	}

	// Variables this step will bind, in order, without duplicates.
	var outputs []string
	seen := make(map[string]bool)
	// The main variable is bound from the path column, so a member naming it
	// as its object compares the property against the subject instead.
	output := func(name string) {
		if name == q.MainVariable {
			return
		}
		if !seen[name] && !p.ctx.IsRegistered(name) {
			seen[name] = true
			outputs = append(outputs, name)
		}
	}
	// Property -> first variable requested for it.
	primaries := make(map[string]string)
	var wheres []plandef.WhereEquality
	for _, m := range pattern.Members {
		if m.IsWildcard() {
			wc := &plandef.Wildcard{
				PredicateVar:   m.PredicateVar,
				ValueVar:       m.ObjectVar,
				Value:          m.Object,
				PropertyPrefix: p.opts.OntologyPrefix + pattern.Class + ".",
			}
			q.Wildcard = wc
			output(m.PredicateVar)
			if m.IsVariableObject() {
				output(m.ObjectVar)
			}
			continue
		}
		if m.IsVariableObject() && !p.ctx.IsRegistered(m.ObjectVar) {
			primary, found := primaries[m.Property]
			switch {
			case !found:
				primaries[m.Property] = m.ObjectVar
				q.Columns = append(q.Columns, plandef.Column{Property: m.Property, Variable: m.ObjectVar})
			case primary != m.ObjectVar:
				q.Synonyms = append(q.Synonyms, plandef.Synonym{Variable: m.ObjectVar, Primary: primary})
			}
			output(m.ObjectVar)
			continue
		}
		w, err := plandef.NewWhereEquality(m.Property, m.ObjectVar, m.Object)
		if err != nil {
			return nil, fmt.Errorf("invalid constraint on ?%s: %w", pattern.Variable, err)
		}
		wheres = append(wheres, w)
	}

	plandef.SortWheres(wheres)
	if q.MainVariableAvailable {
		// Point lookups can't be constrained, so the constrained properties
		// are fetched into hidden variables and compared afterwards.
		for _, w := range wheres {
			p.hidden++
			hidden := fmt.Sprintf("%s%d", plandef.HiddenPrefix, p.hidden)
			q.Columns = append(q.Columns, plandef.Column{Property: w.Property, Variable: hidden})
			q.Checks = append(q.Checks, plandef.Check{Hidden: hidden, Where: w})
			outputs = append(outputs, hidden)
		}
	} else {
		q.Wheres = wheres
		if err := p.ctx.Register(q.MainVariable); err != nil {
			return nil, err
		}
	}
	for _, name := range outputs {
		if err := p.ctx.Register(name); err != nil {
			return nil, err
		}
	}
	plandef.SortColumns(q.Columns)

	if q.MainVariableAvailable {
		q.Getter = p.registry.GetterFor(q.Class, q.Properties(), q.Wildcard != nil)
	} else {
		q.Provider = p.registry.SelectFor(q.Class, q.WhereProperties())
	}
	if err := q.CheckStrategy(); err != nil {
		return nil, err
	}
	return q, nil
}

// Verify checks that every variable a plan step depends on is bound before
// the step: either by an earlier step, or as a constant in the plan's
// context. It returns an error wrapping ErrUnboundDependency otherwise.
func Verify(plan *plandef.Plan) error {
	bound := make(map[string]bool)
	if plan.Context != nil {
		for _, name := range plan.Context.Names() {
			if _, ok := plan.Context.Lookup(name); ok {
				bound[name] = true
			}
		}
	}
	need := func(i int, name string) error {
		if name != "" && !bound[name] {
			return fmt.Errorf("%w: step %d needs ?%s", ErrUnboundDependency, i, name)
		}
		return nil
	}
	for i, step := range plan.Steps {
		if step.MainVariableAvailable {
			if err := need(i, step.MainVariable); err != nil {
				return err
			}
		}
		for _, w := range step.Wheres {
			if err := need(i, w.Variable); err != nil {
				return err
			}
		}
		for _, c := range step.Checks {
			if err := need(i, c.Where.Variable); err != nil {
				return err
			}
		}
		bound[step.MainVariable] = true
		for _, c := range step.Columns {
			bound[c.Variable] = true
		}
		for _, s := range step.Synonyms {
			bound[s.Variable] = true
		}
		if step.Wildcard != nil {
			bound[step.Wildcard.PredicateVar] = true
			if step.Wildcard.ValueVar != "" {
				bound[step.Wildcard.ValueVar] = true
			}
		}
	}
	return nil
}
