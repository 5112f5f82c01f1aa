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

package plandef

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ebay/wbemql/query/provider"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/source"
)

// ErrQualifiedProperty is returned by NewWhereEquality for a property name
// that still carries a namespace or class qualifier.
var ErrQualifiedProperty = errors.New("property name must be unqualified")

// ErrStrategyConflict is returned by QueryData.CheckStrategy when a step
// doesn't have exactly one strategy of the right family.
var ErrStrategyConflict = errors.New("plan step must resolve to exactly one strategy")

// WhereEquality constrains a property of the selected objects. Exactly one of
// Variable and Value is set; a Variable is replaced by its bound value before
// the select is issued.
type WhereEquality struct {
	Property string
	Variable string
	Value    value.Pair
}

// NewWhereEquality returns a WhereEquality after checking that property is a
// bare property name.
func NewWhereEquality(property, variable string, val value.Pair) (WhereEquality, error) {
	if property == "" || strings.ContainsAny(property, ":#/.") {
		return WhereEquality{}, fmt.Errorf("%w: %q", ErrQualifiedProperty, property)
	}
	return WhereEquality{Property: property, Variable: variable, Value: val}, nil
}

// Resolve returns the equality with its variable, if any, replaced by the
// value bound in ctx. ok is false if the variable isn't bound.
func (w WhereEquality) Resolve(ctx *value.Context) (eq source.Equality, ok bool) {
	if w.Variable == "" {
		return source.Equality{Property: w.Property, Value: w.Value}, true
	}
	v, ok := ctx.Lookup(w.Variable)
	return source.Equality{Property: w.Property, Value: v}, ok
}

func (w WhereEquality) String() string {
	if w.Variable != "" {
		return fmt.Sprintf("%s=?%s", w.Property, w.Variable)
	}
	return fmt.Sprintf("%s=%v", w.Property, w.Value)
}

// Column binds the value of a property to a variable.
type Column struct {
	Property string
	Variable string
}

func (c Column) String() string {
	return fmt.Sprintf("%s->?%s", c.Property, c.Variable)
}

// Synonym binds a second variable to the same value as Primary. It arises
// when one pattern asks for the same property twice.
type Synonym struct {
	Variable string
	Primary  string
}

// Wildcard asks for every property of the object. Each property of each
// fetched object produces a separate binding of PredicateVar to the property
// IRI and ValueVar to the property value. If ValueVar is empty, only
// properties equal to Value are kept.
type Wildcard struct {
	PredicateVar string
	ValueVar     string
	Value        value.Pair
	// Property IRIs are PropertyPrefix followed by the property name.
	PropertyPrefix string
}

// Check compares a fetched property against an expected value after a point
// lookup. The fetched value is bound to Hidden; the expectation comes from
// Where.
type Check struct {
	Hidden string
	Where  WhereEquality
}

func (c Check) String() string {
	return fmt.Sprintf("?%s==%v", c.Hidden, c.Where)
}

// QueryData is one step of a plan: a select or a point lookup against one
// class, and how its results bind variables.
type QueryData struct {
	// The object pattern this step was built from.
	Pattern *ObjectPattern
	// The variable bound to the object's path.
	MainVariable string
	Namespace    string
	Class        string
	// If true, MainVariable is bound by an earlier step (or is a constant)
	// and the step is a point lookup with Getter. Otherwise it's a select
	// with Provider.
	MainVariableAvailable bool
	// Sorted by Property, then Variable. Several columns may share a
	// Variable, in which case the fetched values must agree.
	Columns []Column
	// In the order they were found.
	Synonyms []Synonym
	// At most one per step.
	Wildcard *Wildcard
	// Select constraints, sorted by Property, then by value. Empty for point
	// lookups.
	Wheres []WhereEquality
	// Point lookup constraints. Empty for selects.
	Checks []Check

	Provider provider.Provider
	Getter   provider.Getter
}

// Properties returns the distinct properties the step fetches, sorted.
func (q *QueryData) Properties() []string {
	props := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		props[i] = c.Property
	}
	return source.SortedColumns(props)
}

// WhereProperties returns the distinct where properties, sorted.
func (q *QueryData) WhereProperties() []string {
	props := make([]string, len(q.Wheres))
	for i, w := range q.Wheres {
		props[i] = w.Property
	}
	return source.SortedColumns(props)
}

// CheckStrategy returns an error unless exactly one of Provider and Getter is
// set, and it's the one MainVariableAvailable calls for.
func (q *QueryData) CheckStrategy() error {
	switch {
	case q.Provider != nil && q.Getter != nil:
		return fmt.Errorf("%w: ?%s has both a provider and a getter", ErrStrategyConflict, q.MainVariable)
	case q.Provider == nil && q.Getter == nil:
		return fmt.Errorf("%w: ?%s has no strategy", ErrStrategyConflict, q.MainVariable)
	case q.MainVariableAvailable && q.Getter == nil:
		return fmt.Errorf("%w: ?%s is bound but has no getter", ErrStrategyConflict, q.MainVariable)
	case !q.MainVariableAvailable && q.Provider == nil:
		return fmt.Errorf("%w: ?%s is unbound but has no provider", ErrStrategyConflict, q.MainVariable)
	}
	return nil
}

// StrategyName returns the name of the step's strategy.
func (q *QueryData) StrategyName() string {
	switch {
	case q.Getter != nil:
		return q.Getter.Name()
	case q.Provider != nil:
		return q.Provider.Name()
	}
	return "none"
}

func (q *QueryData) String() string {
	var b strings.Builder
	if q.MainVariableAvailable {
		fmt.Fprintf(&b, "Get(?%s %s:%s", q.MainVariable, q.Namespace, q.Class)
	} else {
		fmt.Fprintf(&b, "Select(?%s %s:%s", q.MainVariable, q.Namespace, q.Class)
	}
	if len(q.Columns) > 0 {
		fmt.Fprintf(&b, " columns=%v", q.Columns)
	}
	if len(q.Synonyms) > 0 {
		fmt.Fprintf(&b, " synonyms=%v", q.Synonyms)
	}
	if q.Wildcard != nil {
		fmt.Fprintf(&b, " wildcard=?%s", q.Wildcard.PredicateVar)
	}
	if len(q.Wheres) > 0 {
		fmt.Fprintf(&b, " where=%v", q.Wheres)
	}
	if len(q.Checks) > 0 {
		fmt.Fprintf(&b, " checks=%v", q.Checks)
	}
	fmt.Fprintf(&b, " via %s)", q.StrategyName())
	return b.String()
}

// SortWheres sorts where equalities by property, then by constant value, then
// by variable name.
func SortWheres(wheres []WhereEquality) {
	sort.SliceStable(wheres, func(i, j int) bool {
		a, b := wheres[i], wheres[j]
		if a.Property != b.Property {
			return a.Property < b.Property
		}
		if a.Value.Val != b.Value.Val {
			return a.Value.Val < b.Value.Val
		}
		return a.Variable < b.Variable
	})
}

// SortColumns sorts columns by property, then variable.
func SortColumns(columns []Column) {
	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i].Property != columns[j].Property {
			return columns[i].Property < columns[j].Property
		}
		return columns[i].Variable < columns[j].Variable
	})
}

// Plan is an ordered list of steps. Each step's constraints refer only to
// variables bound by earlier steps.
type Plan struct {
	Steps []*QueryData
	// Every variable the plan binds is registered here. Constant subjects
	// are already bound.
	Context *value.Context
}

func (p *Plan) String() string {
	var b strings.Builder
	for i, step := range p.Steps {
		fmt.Fprintf(&b, "%d: %v\n", i, step)
	}
	return b.String()
}
