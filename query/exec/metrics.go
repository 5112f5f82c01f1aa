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
	"github.com/ebay/wbemql/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type execMetrics struct {
	selectDurationSeconds prometheus.Histogram
	getDurationSeconds    prometheus.Histogram
	rowsFetched           *prometheus.CounterVec
	branchesSkipped       *prometheus.CounterVec
}

var metricsDef execMetrics

func init() {
	mr := metrics.Registry{R: prometheus.DefaultRegisterer}
	metricsDef = execMetrics{
		selectDurationSeconds: mr.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wbemql",
			Subsystem: "exec",
			Name:      "select_duration_seconds",
			Help:      `The time it takes a strategy to answer one select.`,
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		getDurationSeconds: mr.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wbemql",
			Subsystem: "exec",
			Name:      "get_duration_seconds",
			Help:      `The time it takes a strategy to answer one point lookup.`,
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		rowsFetched: mr.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wbemql",
			Subsystem: "exec",
			Name:      "rows_fetched_total",
			Help: `The number of rows returned by strategies, by the kind of call.

The kind is either select or get.
`,
		}, []string{"kind"}),
		branchesSkipped: mr.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wbemql",
			Subsystem: "exec",
			Name:      "branches_skipped_total",
			Help: `The number of evaluation branches that produced no rows without an error.

The reason is one of: not_found (a point lookup found no object), check (a
fetched value didn't match a constraint), or inconsistent (one row bound a
variable to two different values).
`,
		}, []string{"reason"}),
	}
}
