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

// Package metrics helps declare prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry wraps a prometheus Registerer. Each New method creates the metric,
// registers it, and panics if registration fails. These are intended to be
// called from package init functions, where a duplicate metric is a
// programming error.
type Registry struct {
	R prometheus.Registerer
}

// NewCounterVec creates and registers a CounterVec.
func (r Registry) NewCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	r.R.MustRegister(c)
	return c
}

// NewHistogram creates and registers a Histogram.
func (r Registry) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	r.R.MustRegister(h)
	return h
}

// NewHistogramVec creates and registers a HistogramVec.
func (r Registry) NewHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	r.R.MustRegister(h)
	return h
}

// NewSummary creates and registers a Summary.
func (r Registry) NewSummary(opts prometheus.SummaryOpts) prometheus.Summary {
	s := prometheus.NewSummary(opts)
	r.R.MustRegister(s)
	return s
}
