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

package query

import (
	metricsutil "github.com/ebay/wbemql/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type queryMetrics struct {
	queriesTotal                *prometheus.CounterVec
	parseQueryDurationSeconds   prometheus.Summary
	planQueryDurationSeconds    prometheus.Summary
	executeQueryDurationSeconds prometheus.Summary
	materializeDurationSeconds  prometheus.Summary
	solutionRows                prometheus.Histogram
}

var metrics queryMetrics

func init() {
	mr := metricsutil.Registry{R: prometheus.DefaultRegisterer}
	metrics = queryMetrics{
		queriesTotal: mr.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wbemql",
			Subsystem: "query",
			Name:      "queries_total",
			Help:      `The number of queries started, by execution mode.`,
		}, []string{"mode"}),
		parseQueryDurationSeconds: mr.NewSummary(prometheus.SummaryOpts{
			Namespace:  "wbemql",
			Subsystem:  "query",
			Name:       "parse_duration_seconds",
			Help:       `The time it takes to parse a query.`,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		}),
		planQueryDurationSeconds: mr.NewSummary(prometheus.SummaryOpts{
			Namespace: "wbemql",
			Subsystem: "query",
			Name:      "planning_duration_seconds",
			Help: `The time it takes to plan a query.

This includes grouping the triple patterns into object patterns and choosing a
strategy for each plan step.
`,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		}),
		executeQueryDurationSeconds: mr.NewSummary(prometheus.SummaryOpts{
			Namespace: "wbemql",
			Subsystem: "query",
			Name:      "execute_duration_seconds",
			Help: `The time it takes to execute a query plan.

This involves every call to the management source, so it's expected to vary
significantly from one query to the next.
`,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		}),
		materializeDurationSeconds: mr.NewSummary(prometheus.SummaryOpts{
			Namespace:  "wbemql",
			Subsystem:  "query",
			Name:       "materialize_duration_seconds",
			Help:       `The time it takes to turn a query's solution into triples.`,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		}),
		solutionRows: mr.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wbemql",
			Subsystem: "query",
			Name:      "solution_rows",
			Help:      `The number of solution rows produced by each successful query.`,
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}
