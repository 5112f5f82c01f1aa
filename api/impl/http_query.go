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
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ebay/wbemql/config"
	"github.com/ebay/wbemql/query"
	"github.com/ebay/wbemql/query/triples"
	"github.com/ebay/wbemql/util/web"
	"github.com/julienschmidt/httprouter"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
)

// Response formats for queries.
const (
	formatJSON     = "json"
	formatNTriples = "ntriples"
)

// Structure to hold the JSON response for HTTP queries.
type queryResponse struct {
	Error       string     `json:"error,omitempty"`
	QueryString string     `json:"query"`
	Mode        string     `json:"mode"`
	Variables   []string   `json:"variables"`
	NumRows     int        `json:"numRows"`
	Rows        [][]string `json:"rows"`
	Triples     []string   `json:"triples"`
}

// queryParams are the parsed form values of a query request.
type queryParams struct {
	query  string
	format string
	opts   query.Options
}

func parseQueryParams(r *http.Request) (queryParams, error) {
	if err := r.ParseForm(); err != nil {
		return queryParams{}, fmt.Errorf("unable to parse form data: %v", err)
	}
	p := queryParams{
		query:  r.Form.Get("q"),
		format: strings.ToLower(r.Form.Get("format")),
	}
	if strings.TrimSpace(p.query) == "" {
		return p, fmt.Errorf("the 'q' parameter must be specified")
	}
	switch p.format {
	case "":
		p.format = formatJSON
	case formatJSON, formatNTriples:
	default:
		return p, fmt.Errorf("invalid format '%s' (expected %s or %s)", p.format, formatJSON, formatNTriples)
	}
	switch mode := strings.ToLower(r.Form.Get("mode")); mode {
	case "", config.ModeFlat, config.ModeTree:
		p.opts.Mode = mode
	default:
		return p, fmt.Errorf("invalid mode '%s' (expected %s or %s)", mode, config.ModeFlat, config.ModeTree)
	}
	if v := r.Form.Get("parallel"); v != "" {
		parallel, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("unable to parse 'parallel': %v", err)
		}
		p.opts.Parallel = parallel
	}
	return p, nil
}

// queryHTTP evaluates the query in the 'q' parameter. The result is written as
// JSON, or as an N-Triples document with format=ntriples.
func (s *Server) queryHTTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	querySpan, ctx := opentracing.StartSpanFromContext(r.Context(), "query")
	defer querySpan.Finish()

	params, err := parseQueryParams(r)
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}
	log.Debugf("query string:\n%s", params.query)
	res, err := s.queryEngine.Query(ctx, params.query, params.opts)

	if params.format == formatNTriples {
		if err != nil {
			web.WriteError(w, http.StatusBadRequest, "Error during query: %v", err)
			return
		}
		c := triples.NewCollector()
		for _, t := range res.Triples {
			c.Add(t)
		}
		w.Header().Set("Content-Type", "application/n-triples")
		if err := c.WriteNTriples(w); err != nil {
			log.Warnf("Unable to write query results: %v", err)
		}
		return
	}

	resp := queryResponse{
		QueryString: params.query,
		Mode:        params.opts.Mode,
	}
	if resp.Mode == "" {
		resp.Mode = s.cfg.Mode
	}
	if err != nil {
		resp.Error = fmt.Sprintf("Error during query: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		web.Write(w, resp)
		return
	}
	table := res.Table()
	resp.Variables = res.Variables
	resp.Rows = table[1:]
	resp.NumRows = len(resp.Rows)
	resp.Triples = make([]string, len(res.Triples))
	for i, t := range res.Triples {
		resp.Triples[i] = t.String()
	}
	web.Write(w, resp)
}
