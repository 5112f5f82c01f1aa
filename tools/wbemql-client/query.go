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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ebay/wbemql/config"
	"github.com/ebay/wbemql/query"
	"github.com/ebay/wbemql/query/parser"
	"github.com/ebay/wbemql/query/planner"
	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/provider"
	"github.com/ebay/wbemql/query/triples"
	"github.com/ebay/wbemql/util/graphviz"
	"github.com/ebay/wbemql/util/table"
	log "github.com/sirupsen/logrus"
)

// readFile returns the contents of filename, or of stdin if filename is "-".
func readFile(filename string) (string, error) {
	var r io.Reader = os.Stdin
	if filename != "-" {
		f, err := os.Open(filename)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	all, err := ioutil.ReadAll(r)
	return string(all), err
}

type queryEngine interface {
	Query(ctx context.Context, rawQuery string, opt query.Options) (*query.Result, error)
}

func runQuery(ctx context.Context, engine queryEngine, options *options, out io.Writer) error {
	rawQuery, err := readFile(options.Filename)
	if err != nil {
		return err
	}
	opts := query.Options{
		Mode:     options.Mode,
		Parallel: options.Parallel,
		Debug:    options.Debug,
	}
	if options.Debug {
		opts.DebugOut = os.Stderr
	}
	start := time.Now()
	res, err := engine.Query(ctx, rawQuery, opts)
	if err != nil {
		return err
	}
	log.Infof("Query took %s", time.Since(start))
	if options.Triples {
		c := triples.NewCollector()
		for _, t := range res.Triples {
			c.Add(t)
		}
		return c.WriteNTriples(out)
	}
	table.PrettyPrint(out, res.Table(), table.HeaderRow)
	fmtr.Fprintf(out, "\n%d results.\n", len(res.Solution))
	return nil
}

// plan prints how the query would be evaluated, without running it.
func plan(cfg *config.WBEMQL, registry *provider.Registry, options *options, out io.Writer) error {
	rawQuery, err := readFile(options.Filename)
	if err != nil {
		return err
	}
	q, err := parser.Parse(rawQuery, cfg.Prefixes)
	if err != nil {
		return err
	}
	opts := planner.Options{
		OntologyPrefix: cfg.OntologyPrefix,
		Namespace:      cfg.Namespace,
	}
	mode := options.Mode
	if mode == "" {
		mode = cfg.Mode
	}
	switch mode {
	case config.ModeFlat:
		if options.Dot != "" {
			return fmt.Errorf("--dot requires %s mode", config.ModeTree)
		}
		stmts, err := planner.FlatTriples(q.Root)
		if err != nil {
			return err
		}
		patterns, err := planner.BuildObjectPatterns(stmts, opts)
		if err != nil {
			return err
		}
		p, err := planner.Plan(planner.Order(patterns, opts), registry, opts)
		if err != nil {
			return err
		}
		fmt.Fprint(out, p)
		return nil
	case config.ModeTree:
		tree, err := planner.BuildTree(q.Root, opts)
		if err != nil {
			return err
		}
		if err := planner.PlanTree(tree, registry, opts); err != nil {
			return err
		}
		fmt.Fprint(out, plandef.TreeString(tree))
		if options.Dot != "" {
			return graphviz.Create(options.Dot, func(w io.Writer) {
				plandef.WriteDot(w, tree)
			}, graphviz.Options{})
		}
		return nil
	}
	return fmt.Errorf("invalid query mode %q", mode)
}

// remoteResponse holds the fields of the API server's response that are
// printed.
type remoteResponse struct {
	Error     string     `json:"error"`
	Variables []string   `json:"variables"`
	Rows      [][]string `json:"rows"`
}

// remote evaluates the query on a wbemql API server.
func remote(ctx context.Context, options *options, out io.Writer) error {
	rawQuery, err := readFile(options.Filename)
	if err != nil {
		return err
	}
	params := url.Values{"q": {rawQuery}}
	if options.Mode != "" {
		params.Set("mode", options.Mode)
	}
	req, err := http.NewRequest(http.MethodPost, "http://"+options.Server+"/query", strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var res remoteResponse
	if err := json.Unmarshal(body, &res); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %v: %s", resp.Status, strings.TrimSpace(string(body)))
		}
		return fmt.Errorf("unable to decode response: %v", err)
	}
	if res.Error != "" {
		return fmt.Errorf("server returned %v: %s", resp.Status, res.Error)
	}
	t := make([][]string, 0, len(res.Rows)+1)
	header := make([]string, len(res.Variables))
	for i, v := range res.Variables {
		header[i] = "?" + v
	}
	t = append(t, header)
	t = append(t, res.Rows...)
	table.PrettyPrint(out, t, table.HeaderRow)
	fmtr.Fprintf(out, "\n%d results.\n", len(res.Rows))
	return nil
}
