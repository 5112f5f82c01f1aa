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
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ebay/wbemql/query/cache"
	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/stats"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/source"
	"github.com/ebay/wbemql/util/tracing"
	opentracing "github.com/opentracing/opentracing-go"
	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Options control an Executor.
type Options struct {
	// If set, tree mode evaluates Union arms and the children of Join nodes
	// concurrently.
	Parallel bool
	// If set, every call to a strategy is sampled into Stats.
	Stats *stats.Collector
	// Handed to getters. If nil, the Executor uses a new cache.
	Cache cache.RowCache
}

// Executor evaluates plans for one query. It's safe for concurrent use, but
// its cache and statistics are scoped to the query, so a new Executor should
// be used for each query.
type Executor struct {
	opts  Options
	cache cache.RowCache
	lock  sync.Mutex // protects missing
	// Paths that point lookups didn't find, to log each only once.
	missing map[string]struct{}
}

// New returns an Executor.
func New(opts Options) *Executor {
	rc := opts.Cache
	if rc == nil {
		rc = cache.New()
	}
	return &Executor{
		opts:    opts,
		cache:   rc,
		missing: make(map[string]struct{}),
	}
}

// Flat evaluates the plan steps in order. It returns one row per complete
// branch, in the order the strategies returned their rows. Each row holds
// every variable bound in its branch, including the variables the planner
// synthesized.
func (e *Executor) Flat(ctx context.Context, plan *plandef.Plan) (value.Solution, error) {
	var res value.Solution
	vars := value.NewContext()
	if plan.Context != nil {
		vars = plan.Context.Fork()
	}
	err := e.run(ctx, plan.Steps, vars, func(row value.Row) {
		res = append(res, row)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// run evaluates the first step with the bindings in vars, then recurses on
// the remaining steps for every branch that step produces.
func (e *Executor) run(ctx context.Context, steps []*plandef.QueryData, vars *value.Context, emit func(value.Row)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(steps) == 0 {
		emit(vars.Row())
		return nil
	}
	step := steps[0]
	rows, err := e.fetch(ctx, step, vars)
	if err != nil {
		return err
	}
	for _, row := range rows {
		branches, err := e.bind(step, vars, row)
		if err != nil {
			return err
		}
		for _, branch := range branches {
			if err := e.run(ctx, steps[1:], branch, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetch calls the step's strategy. A point lookup of an object that doesn't
// exist results in no rows and no error.
func (e *Executor) fetch(ctx context.Context, step *plandef.QueryData, vars *value.Context) ([]value.Row, error) {
	if step.MainVariableAvailable {
		main, ok := vars.Lookup(step.MainVariable)
		if !ok {
			return nil, fmt.Errorf("%w: ?%s for a lookup of class %s", ErrUnboundVariable, step.MainVariable, step.Class)
		}
		req := &source.GetRequest{
			Path:       main.Val,
			Columns:    step.Properties(),
			AllColumns: step.Wildcard != nil,
		}
		span, ctx := opentracing.StartSpanFromContext(ctx, "get")
		span.SetTag("class", step.Class)
		span.SetTag("strategy", step.Getter.Name())
		tracing.UpdateMetric(span, metricsDef.getDurationSeconds)
		sample := e.opts.Stats.Start(stats.GetKey(req.Path))
		row, err := step.Getter.Get(ctx, req, e.cache)
		span.Finish()
		if errors.Is(err, source.ErrNotFound) {
			sample.Finish(0, nil)
			e.notFound(step, req.Path)
			return nil, nil
		}
		if err != nil {
			sample.Finish(0, err)
			return nil, pkgerrors.Wrapf(err, "%s: get ?%s", step.Getter.Name(), step.MainVariable)
		}
		sample.Finish(1, nil)
		metricsDef.rowsFetched.WithLabelValues("get").Inc()
		return []value.Row{row}, nil
	}

	req := &source.SelectRequest{
		Namespace:  step.Namespace,
		Class:      step.Class,
		Columns:    step.Properties(),
		AllColumns: step.Wildcard != nil,
	}
	for _, w := range step.Wheres {
		eq, ok := w.Resolve(vars)
		if !ok {
			return nil, fmt.Errorf("%w: ?%s constrains ?%s (class %s)", ErrUnboundVariable, w.Variable, step.MainVariable, step.Class)
		}
		req.Where = append(req.Where, eq)
	}
	span, ctx := opentracing.StartSpanFromContext(ctx, "select")
	span.SetTag("class", step.Class)
	span.SetTag("strategy", step.Provider.Name())
	tracing.UpdateMetric(span, metricsDef.selectDurationSeconds)
	sample := e.opts.Stats.Start(stats.SelectKey(step.Class, req.Columns))
	rows, err := step.Provider.Select(ctx, req)
	span.Finish()
	sample.Finish(len(rows), err)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "%s: select ?%s", step.Provider.Name(), step.MainVariable)
	}
	metricsDef.rowsFetched.WithLabelValues("select").Add(float64(len(rows)))
	return rows, nil
}

// notFound logs a point lookup that found nothing, once per path.
func (e *Executor) notFound(step *plandef.QueryData, path string) {
	metricsDef.branchesSkipped.WithLabelValues("not_found").Inc()
	e.lock.Lock()
	_, seen := e.missing[path]
	if !seen {
		e.missing[path] = struct{}{}
	}
	e.lock.Unlock()
	if !seen {
		log.WithFields(log.Fields{
			"variable": step.MainVariable,
			"path":     path,
		}).Debug("Object not found, skipping branch")
	}
}

// bind returns the branches that one row of a step's results produces, each
// with its own copy of vars. A row that's inconsistent with the bindings, or
// that fails a check, produces no branches. A step with a wildcard produces
// one branch per matching property of the row.
func (e *Executor) bind(step *plandef.QueryData, vars *value.Context, row value.Row) ([]*value.Context, error) {
	if err := checkShape(step, row); err != nil {
		return nil, err
	}
	branch := vars.Fork()
	if !step.MainVariableAvailable {
		ok, err := bindOrCheck(branch, step.MainVariable, row[source.PathColumn])
		if err != nil || !ok {
			return nil, err
		}
	}
	for _, c := range step.Columns {
		v := row[c.Property]
		if v.IsAbsent() {
			// A property without a value matches no triple.
			return nil, nil
		}
		ok, err := bindOrCheck(branch, c.Variable, v)
		if err != nil {
			return nil, err
		}
		if !ok {
			metricsDef.branchesSkipped.WithLabelValues("inconsistent").Inc()
			return nil, nil
		}
	}
	for _, s := range step.Synonyms {
		v, _ := branch.Lookup(s.Primary)
		ok, err := bindOrCheck(branch, s.Variable, v)
		if err != nil {
			return nil, err
		}
		if !ok {
			metricsDef.branchesSkipped.WithLabelValues("inconsistent").Inc()
			return nil, nil
		}
	}
	for _, c := range step.Checks {
		got, _ := branch.Lookup(c.Hidden)
		want, ok := c.Where.Resolve(branch)
		if !ok {
			return nil, fmt.Errorf("%w: ?%s is checked against ?%s", ErrUnboundVariable, c.Where.Variable, step.MainVariable)
		}
		if got.Val != want.Value.Val {
			metricsDef.branchesSkipped.WithLabelValues("check").Inc()
			return nil, nil
		}
	}
	if step.Wildcard == nil {
		return []*value.Context{branch}, nil
	}
	return expandWildcard(step.Wildcard, branch, row)
}

// checkShape verifies that row has exactly the requested properties and the
// path column. Rows for wildcard steps hold every property of the object, so
// only the path column is required of them.
func checkShape(step *plandef.QueryData, row value.Row) error {
	props := step.Properties()
	_, hasPath := row[source.PathColumn]
	ok := hasPath
	if step.Wildcard == nil {
		ok = ok && len(row) == len(props)+1
		for _, p := range props {
			if _, found := row[p]; !found {
				ok = false
			}
		}
	}
	if ok {
		return nil
	}
	strategy := ""
	if step.Provider != nil {
		strategy = step.Provider.Name()
	} else if step.Getter != nil {
		strategy = step.Getter.Name()
	}
	return &RowShapeError{
		Strategy: strategy,
		Class:    step.Class,
		Variable: step.MainVariable,
		Want:     props,
		Got:      row.Names(),
	}
}

// bindOrCheck binds name to v, unless name already has a value. It returns
// false if that value differs from v.
func bindOrCheck(vars *value.Context, name string, v value.Pair) (bool, error) {
	if bound, ok := vars.Lookup(name); ok {
		return bound == v, nil
	}
	if err := vars.Bind(name, v); err != nil {
		return false, err
	}
	return true, nil
}

// expandWildcard returns one branch per property of row, in property name
// order, binding the wildcard's predicate variable to the property IRI. The
// value is bound to the wildcard's value variable, or compared with its
// constant value.
func expandWildcard(wc *plandef.Wildcard, vars *value.Context, row value.Row) ([]*value.Context, error) {
	props := make([]string, 0, len(row))
	for name := range row {
		if name != source.PathColumn && !row[name].IsAbsent() {
			props = append(props, name)
		}
	}
	sort.Strings(props)
	var res []*value.Context
	for _, prop := range props {
		v := row[prop]
		if wc.ValueVar == "" && v.Val != wc.Value.Val {
			continue
		}
		branch := vars.Fork()
		ok, err := bindOrCheck(branch, wc.PredicateVar, value.NewNode(wc.PropertyPrefix+prop))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if wc.ValueVar != "" {
			ok, err = bindOrCheck(branch, wc.ValueVar, v)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		res = append(res, branch)
	}
	return res, nil
}
