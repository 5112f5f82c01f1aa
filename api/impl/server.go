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

// Package impl implements the HTTP API of the wbemql daemon.
package impl

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ebay/wbemql/config"
	"github.com/ebay/wbemql/query"
	"github.com/ebay/wbemql/query/provider"
	"github.com/ebay/wbemql/util/web"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// New returns a new instance of the API server. The returned Server doesn't
// handle traffic until a subsequent call to Server.Run.
func New(cfg *config.WBEMQL, registry *provider.Registry) *Server {
	return &Server{
		cfg:         cfg,
		registry:    registry,
		queryEngine: query.New(cfg, registry),
	}
}

// Server implements the HTTP interface.
type Server struct {
	cfg         *config.WBEMQL
	registry    *provider.Registry
	queryEngine queryEngine
}

// queryEngine provides an abstraction from query evaluation to aid in testing.
type queryEngine interface {
	Query(ctx context.Context, rawQuery string, opt query.Options) (*query.Result, error)
}

// Handler returns the routes of the API.
func (s *Server) Handler() http.Handler {
	m := httprouter.New()
	m.GET("/query", s.queryHTTP)
	m.POST("/query", s.queryHTTP)
	m.GET("/unmatched", s.unmatched)
	m.GET("/healthz", s.healthz)
	// prometheus metrics
	m.Handler("GET", "/metrics", promhttp.Handler())
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("[API] %v %v", r.Method, r.URL)
		start := time.Now()
		m.ServeHTTP(w, r)
		metrics.requestDurationSeconds.WithLabelValues(routeLabel(r.URL.Path)).
			Observe(time.Since(start).Seconds())
	})
}

// Run listens for HTTP requests on the configured address. It blocks until
// the server fails or is shut down.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.API == nil || s.cfg.API.Listen == "" {
		return fmt.Errorf("api.listen must be set")
	}
	log.Infof("Listening for HTTP requests on %v", s.cfg.API.Listen)
	srv := &http.Server{
		Addr:    s.cfg.API.Listen,
		Handler: s.Handler(),
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return ctx.Err()
	}
	return err
}

// unmatched lists the query shapes that no specialized strategy handled.
func (s *Server) unmatched(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	web.Write(w, s.registry.Unmatched())
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	web.Write(w, "ok\n")
}
