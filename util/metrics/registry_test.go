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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func Test_Registry(t *testing.T) {
	r := Registry{R: prometheus.NewRegistry()}
	r.NewCounterVec(prometheus.CounterOpts{Namespace: "wbemql", Name: "cv"}, []string{"kind"}).WithLabelValues("x").Inc()
	r.NewHistogram(prometheus.HistogramOpts{Namespace: "wbemql", Name: "h"}).Observe(1)
	r.NewHistogramVec(prometheus.HistogramOpts{Namespace: "wbemql", Name: "hv"}, []string{"kind"}).WithLabelValues("x").Observe(1)
	r.NewSummary(prometheus.SummaryOpts{Namespace: "wbemql", Name: "s"}).Observe(1)
	assert.Panics(t, func() {
		r.NewCounterVec(prometheus.CounterOpts{Namespace: "wbemql", Name: "cv"}, []string{"kind"})
	})
}
