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

// Package query provides a high level entry point for evaluating queries
// against the management source. It runs the entire query processor: the
// parser, the planner, the executor, and triple materialization.
package query

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ebay/wbemql/config"
	"github.com/ebay/wbemql/query/exec"
	"github.com/ebay/wbemql/query/internal/debug"
	"github.com/ebay/wbemql/query/parser"
	"github.com/ebay/wbemql/query/planner"
	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/provider"
	"github.com/ebay/wbemql/query/triples"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/util/clocks"
	"github.com/ebay/wbemql/util/graphviz"
	"github.com/ebay/wbemql/util/tracing"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

// Options contains various settings that affect the query processing.
type Options struct {
	// Either config.ModeFlat or config.ModeTree. Defaults to the engine's
	// configured mode.
	Mode string
	// If set, tree mode evaluates independent branches concurrently. The
	// engine's configuration can also enable this.
	Parallel bool
	// If set diagnostic information about the query processing will be
	// collected into a report.
	Debug bool
	// By default the report is written to a file in $TMPDIR. If DebugOut is
	// set, the report will be written to that instead.
	DebugOut io.Writer
	// If set the debug report will use this clock for timing information,
	// if not set it'll use clocks.Wall.
	Clock clocks.Source
}

// Result is the outcome of a query.
type Result struct {
	// The projected variables, or for SELECT *, every variable bound by the
	// solution except those the planner synthesized.
	Variables []string
	// One row per solution, binding every variable of the evaluation.
	Solution value.Solution
	// The triples that the solution describes, without duplicates.
	Triples []triples.Triple
}

// Table returns the projected variables of the solution as strings, with a
// header row. Unbound variables are empty.
func (r *Result) Table() [][]string {
	res := make([][]string, 0, len(r.Solution)+1)
	header := make([]string, len(r.Variables))
	for i, v := range r.Variables {
		header[i] = "?" + v
	}
	res = append(res, header)
	for _, row := range r.Solution {
		line := make([]string, len(r.Variables))
		for i, v := range r.Variables {
			line[i] = row[v].Val
		}
		res = append(res, line)
	}
	return res
}

// Engine provides a high level interface for running queries.
type Engine struct {
	cfg      config.WBEMQL
	registry *provider.Registry
}

// New creates a new Engine. The configuration must have been validated. The
// resulting Engine can be used concurrently to evaluate queries.
func New(cfg *config.WBEMQL, registry *provider.Registry) *Engine {
	return &Engine{
		cfg:      *cfg,
		registry: registry,
	}
}

// Query evaluates a query from its text all the way through the steps: Parse,
// Plan, Execute, and Materialize. Errors in the query or its plan, and errors
// from the management source, are returned. A point lookup of an object that
// doesn't exist isn't an error; it just contributes no rows.
func (e *Engine) Query(ctx context.Context, rawQuery string, opt Options) (*Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Query")
	defer span.Finish()

	mode := opt.Mode
	if mode == "" {
		mode = e.cfg.Mode
	}
	if mode != config.ModeFlat && mode != config.ModeTree {
		return nil, fmt.Errorf("invalid query mode %q", mode)
	}
	metrics.queriesTotal.WithLabelValues(mode).Inc()
	tracker := debug.New(opt.Debug, opt.DebugOut, opt.Clock, mode, rawQuery)
	defer tracker.Close()

	span, _ = opentracing.StartSpanFromContext(ctx, "parse query")
	tracing.UpdateMetric(span, metrics.parseQueryDurationSeconds)
	query, err := parser.Parse(rawQuery, e.cfg.Prefixes)
	tracker.Parsed(query, err)
	span.Finish()
	if err != nil {
		return nil, err
	}

	span, _ = opentracing.StartSpanFromContext(ctx, "plan query")
	tracing.UpdateMetric(span, metrics.planQueryDurationSeconds)
	planOpts := planner.Options{
		OntologyPrefix: e.cfg.OntologyPrefix,
		Namespace:      e.cfg.Namespace,
	}
	var tree *plandef.Projection
	var plan *plandef.Plan
	if mode == config.ModeTree {
		tree, err = e.planTree(query, planOpts)
	} else {
		plan, err = e.planFlat(query, planOpts)
	}
	if tree != nil {
		tracker.Planned(tree, nil, err)
	} else {
		tracker.Planned(nil, plan, err)
	}
	span.Finish()
	if err != nil {
		e.plannerFailed(tree, err)
		return nil, err
	}

	span, cctx := opentracing.StartSpanFromContext(ctx, "execute query")
	tracing.UpdateMetric(span, metrics.executeQueryDurationSeconds)
	executor := exec.New(exec.Options{
		Parallel: opt.Parallel || e.cfg.Parallel,
		Stats:    tracker.Stats(),
	})
	var solution value.Solution
	var branches []exec.Branch
	if tree != nil {
		branches, err = executor.TreeBranches(cctx, tree)
		for _, b := range branches {
			solution = append(solution, b.Row)
		}
	} else {
		solution, err = executor.Flat(cctx, plan)
	}
	tracker.Executed(solution, err)
	span.Finish()
	if err != nil {
		return nil, err
	}

	span, _ = opentracing.StartSpanFromContext(ctx, "materialize")
	tracing.UpdateMetric(span, metrics.materializeDurationSeconds)
	collector := triples.NewCollector()
	if tree != nil {
		err = materializeBranches(branches, e.cfg.OntologyPrefix, collector)
	} else {
		patterns := make([]*plandef.ObjectPattern, len(plan.Steps))
		for i, step := range plan.Steps {
			patterns[i] = step.Pattern
		}
		err = triples.Materialize(patterns, solution, e.cfg.OntologyPrefix, collector)
	}
	span.Finish()
	if err != nil {
		return nil, err
	}
	metrics.solutionRows.Observe(float64(len(solution)))

	res := &Result{
		Solution: solution,
		Triples:  collector.Triples(),
	}
	if query.Root.Vars != nil {
		for _, v := range query.Root.Vars {
			res.Variables = append(res.Variables, v.Name)
		}
	} else {
		for _, v := range solution.Variables() {
			if !plandef.IsInternal(v) {
				res.Variables = append(res.Variables, v)
			}
		}
	}
	return res, nil
}

// planTree builds and plans the tree of groups for the query. The tree is
// returned even if planning it failed.
func (e *Engine) planTree(query *parser.Query, opts planner.Options) (*plandef.Projection, error) {
	tree, err := planner.BuildTree(query.Root, opts)
	if err != nil {
		return nil, err
	}
	if err := planner.PlanTree(tree, e.registry, opts); err != nil {
		return tree, err
	}
	return tree, nil
}

// materializeBranches emits the triples of each branch using only the object
// patterns of the joins that produced it.
func materializeBranches(branches []exec.Branch, ontologyPrefix string, sink triples.Sink) error {
	for _, b := range branches {
		var patterns []*plandef.ObjectPattern
		for _, join := range b.Joins {
			patterns = append(patterns, join.Objects...)
		}
		if err := triples.MaterializeRow(patterns, b.Row, ontologyPrefix, sink); err != nil {
			return err
		}
	}
	return nil
}

// planFlat plans every pattern of the query as one sequence.
func (e *Engine) planFlat(query *parser.Query, opts planner.Options) (*plandef.Plan, error) {
	stmts, err := planner.FlatTriples(query.Root)
	if err != nil {
		return nil, err
	}
	patterns, err := planner.BuildObjectPatterns(stmts, opts)
	if err != nil {
		return nil, err
	}
	return planner.Plan(planner.Order(patterns, opts), e.registry, opts)
}

// plannerFailed logs a planner error. If the tree of groups was built, it's
// written out for inspection.
func (e *Engine) plannerFailed(tree *plandef.Projection, err error) {
	if tree == nil {
		logrus.WithFields(logrus.Fields{
			"error": err,
		}).Warn("Planner failed")
		return
	}
	filename := filepath.Join(os.TempDir(), "wbemql_lastfailedtree.dot")
	writeErr := graphviz.Create(filename, func(w io.Writer) {
		plandef.WriteDot(w, tree)
	}, graphviz.Options{})
	if writeErr != nil {
		filename = ""
	}
	logrus.WithFields(logrus.Fields{
		"error":           err,
		"tree_written_to": filename,
	}).Warn("Planner failed")
}
