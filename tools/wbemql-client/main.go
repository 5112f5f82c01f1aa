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

// Command wbemql-client runs queries against a management source from the
// command line.
package main

import (
	"context"
	"os"
	"time"

	docopt "github.com/docopt/docopt-go"
	"github.com/ebay/wbemql/config"
	"github.com/ebay/wbemql/query"
	"github.com/ebay/wbemql/query/provider"
	"github.com/ebay/wbemql/query/provider/procprov"
	"github.com/ebay/wbemql/source/memsource"
	"github.com/ebay/wbemql/util/debuglog"
	"github.com/ebay/wbemql/util/tracing"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var fmtr = message.NewPrinter(language.English)

const usage = `wbemql-client is a command-line tool for running wbemql queries.

Usage:
  wbemql-client [--cfg=FILE -t=DUR] query [--mode=MODE --parallel --debug --triples] FILE
  wbemql-client [--cfg=FILE] plan [--mode=MODE --dot=FILE] FILE
  wbemql-client [-t=DUR] remote [--api=HOST --mode=MODE] FILE
  wbemql-client genconfig [--instances=FILE --procfs=DIR] OUT

Options:
  --cfg=FILE              Configuration file, .json or .toml [default: wbemql.json]
  -t=DUR, --timeout=DUR   Timeout for the query [default: 1m]
  --mode=MODE             Evaluation mode, flat or tree. Defaults to the configured mode.
  --parallel              Evaluate independent branches concurrently (tree mode).
  --debug                 Write a report of the query processing to stderr.
  --triples               Print the described triples as N-Triples instead of a table.
  --dot=FILE              Write the tree of groups as a graph (.dot, .pdf, .png or .svg).
  --api=HOST              Host and port of a wbemql API server [default: localhost:9988]
  --instances=FILE        YAML file of instances for the generated config.
  --procfs=DIR            Mount point of the proc filesystem for the generated config.

Examples:
  # Handles of the processes running svchost.exe.
  wbemql-client query - <<EOF
  SELECT ?h {
    ?p a wmi:Win32_Process ; wmi:Name "svchost.exe" ; wmi:Handle ?h
  }
EOF

  # Show the plan of a query.
  wbemql-client plan --mode=flat --dot=plan.pdf query.rq

  # Write a config for a local daemon serving this machine's processes.
  wbemql-client genconfig --procfs=/proc wbemql.json
`

type options struct {
	ConfigFile    string `docopt:"--cfg"`
	Timeout       time.Duration
	TimeoutString string `docopt:"--timeout"`
	Mode          string
	Parallel      bool
	Debug         bool
	Triples       bool
	Dot           string
	Server        string `docopt:"--api"`
	Filename      string `docopt:"FILE"`
	Instances     string
	ProcFS        string `docopt:"--procfs"`
	Output        string `docopt:"OUT"`

	Query     bool `docopt:"query"`
	Plan      bool `docopt:"plan"`
	Remote    bool `docopt:"remote"`
	GenConfig bool `docopt:"genconfig"`
}

func parseArgs(argv []string) (*options, error) {
	opts, err := docopt.ParseArgs(usage, argv, "")
	if err != nil {
		return nil, err
	}
	var options options
	if err := opts.Bind(&options); err != nil {
		return nil, err
	}
	if options.TimeoutString != "" {
		options.Timeout, err = time.ParseDuration(options.TimeoutString)
		if err != nil {
			return nil, err
		}
	}
	if options.Timeout == 0 {
		options.Timeout = time.Hour
	}
	return &options, nil
}

func main() {
	debuglog.Configure(debuglog.Options{})
	options, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("Error parsing command-line arguments: %v", err)
	}
	ctx, cancelFunc := context.WithTimeout(context.Background(), options.Timeout)
	defer cancelFunc()

	switch {
	case options.Remote:
		if err := remote(ctx, options, os.Stdout); err != nil {
			log.Fatalf("Error executing remote query: %v", err)
		}
		return
	case options.GenConfig:
		if err := config.Write(localConfig(options), options.Output); err != nil {
			log.Fatalf("Unable to write configuration: %v", err)
		}
		return
	}

	cfg, err := config.Load(options.ConfigFile)
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	registry, err := newRegistry(cfg)
	if err != nil {
		log.Fatalf("Unable to initialize management source: %v", err)
	}

	switch {
	case options.Query:
		tracer, err := tracing.New("wbemql-client", cfg.Tracing)
		if err != nil {
			log.WithError(err).Warn("Could not initialize OpenTracing tracer")
		} else {
			defer tracer.Close()
		}
		span, ctx := opentracing.StartSpanFromContext(ctx, "wbemql-client query")
		defer span.Finish()
		if err := runQuery(ctx, query.New(cfg, registry), options, os.Stdout); err != nil {
			log.Fatalf("Error executing query: %v", err)
		}
	case options.Plan:
		if err := plan(cfg, registry, options, os.Stdout); err != nil {
			log.Fatalf("Error planning query: %v", err)
		}
	default:
		log.Fatalf("command not implemented")
	}
}

// localConfig returns the configuration of a daemon listening on localhost.
func localConfig(options *options) *config.WBEMQL {
	const cimSchema = "http://schemas.dmtf.org/wbem/wscim/1/cim-schema/2/"
	return &config.WBEMQL{
		Namespace:      "root/cimv2",
		OntologyPrefix: cimSchema,
		Prefixes:       map[string]string{"cim": cimSchema},
		Mode:           config.ModeTree,
		ProcFS:         options.ProcFS,
		Instances:      options.Instances,
		API:            &config.API{Listen: "localhost:9988"},
	}
}

func newRegistry(cfg *config.WBEMQL) (*provider.Registry, error) {
	store := memsource.New(cfg.Namespace)
	if cfg.Instances != "" {
		var err error
		store, err = memsource.LoadFile(cfg.Instances, cfg.Namespace)
		if err != nil {
			return nil, err
		}
	}
	if cfg.ProcFS == "" {
		return provider.NewRegistry(store, nil, nil), nil
	}
	procs, err := procprov.New(cfg.ProcFS)
	if err != nil {
		return nil, err
	}
	return provider.NewRegistry(store, procs.Providers(), procs.Getters()), nil
}
