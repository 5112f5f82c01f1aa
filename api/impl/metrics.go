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

package impl

import (
	metricsutil "github.com/ebay/wbemql/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type apiMetrics struct {
	requestDurationSeconds *prometheus.HistogramVec
}

var metrics apiMetrics

func init() {
	mr := metricsutil.Registry{R: prometheus.DefaultRegisterer}
	metrics = apiMetrics{
		requestDurationSeconds: mr.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wbemql",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "The time taken to serve HTTP requests, by route.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"route"}),
	}
}

// routeLabel limits the route label to the paths the server handles.
func routeLabel(path string) string {
	switch path {
	case "/query", "/unmatched", "/healthz", "/metrics":
		return path
	}
	return "other"
}
