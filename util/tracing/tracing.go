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

// Package tracing configures the process-wide OpenTracing tracer and ties
// span durations to prometheus metrics.
package tracing

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ebay/wbemql/config"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// Metric is a prometheus metric that can observe span durations, typically a
// Histogram or Summary.
type Metric interface {
	prometheus.Metric
	prometheus.Observer
}

const metricTag = "wbemql.metric"

// UpdateMetric arranges for the duration of span, in seconds, to be observed
// into metric when the span finishes. This only has an effect for spans
// created by a tracer from New.
func UpdateMetric(span opentracing.Span, metric Metric) {
	span.SetTag(metricTag, stringableMetric{metric})
}

// stringableMetric lets the metric sit in a span tag. Reporters print tag
// values, and the default formatting of a prometheus metric is unreadable.
type stringableMetric struct {
	Metric
}

func (m stringableMetric) String() string {
	desc := m.Desc().String()
	const prefix = `fqName: "`
	start := strings.Index(desc, prefix)
	if start < 0 {
		return desc
	}
	desc = desc[start+len(prefix):]
	end := strings.IndexByte(desc, '"')
	if end < 0 {
		return desc
	}
	return desc[:end]
}

// contribObserver watches every span for a metric tag.
type contribObserver struct{}

func (*contribObserver) OnStartSpan(sp opentracing.Span, operationName string,
	options opentracing.StartSpanOptions,
) (jaeger.ContribSpanObserver, bool) {
	start := options.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	obs := &spanObserver{start: start}
	if m, ok := options.Tags[metricTag].(stringableMetric); ok {
		obs.metric = m.Metric
	}
	return obs, true
}

type spanObserver struct {
	start  time.Time
	metric Metric
}

func (o *spanObserver) OnSetOperationName(operationName string) {}

func (o *spanObserver) OnSetTag(key string, value interface{}) {
	if key != metricTag {
		return
	}
	if m, ok := value.(stringableMetric); ok {
		o.metric = m.Metric
	}
}

func (o *spanObserver) OnFinish(options opentracing.FinishOptions) {
	if o.metric == nil {
		return
	}
	end := options.FinishTime
	if end.IsZero() {
		end = time.Now()
	}
	o.metric.Observe(end.Sub(o.start).Seconds())
}

// New builds a tracer for serviceName, installs it as the global OpenTracing
// tracer, and returns a Closer that flushes it. With a nil cfg or a cfg of
// type "none", spans are not reported anywhere but UpdateMetric still works.
func New(serviceName string, cfg *config.Tracing) (io.Closer, error) {
	jcfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
	}
	opts := []jaegercfg.Option{
		jaegercfg.ContribObserver(&contribObserver{}),
	}
	tracingType := "none"
	if cfg != nil && cfg.Type != "" {
		tracingType = cfg.Type
	}
	switch tracingType {
	case "none":
		opts = append(opts, jaegercfg.Reporter(jaeger.NewNullReporter()))
	case "jaeger":
		if cfg.Agent == "" {
			return nil, fmt.Errorf("tracing type jaeger requires an agent host:port")
		}
		jcfg.Reporter = &jaegercfg.ReporterConfig{
			LocalAgentHostPort:  cfg.Agent,
			BufferFlushInterval: time.Second,
		}
	default:
		return nil, fmt.Errorf("unknown tracing type %q (expected none or jaeger)", tracingType)
	}
	tracer, closer, err := jcfg.NewTracer(opts...)
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	log.WithFields(log.Fields{
		"service": serviceName,
		"type":    tracingType,
	}).Info("Initialized tracing")
	return closer, nil
}
