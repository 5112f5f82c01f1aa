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

// Command wbemql-api runs a wbemql API server daemon.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	api "github.com/ebay/wbemql/api/impl"
	"github.com/ebay/wbemql/config"
	"github.com/ebay/wbemql/query/provider"
	"github.com/ebay/wbemql/query/provider/procprov"
	"github.com/ebay/wbemql/source/memsource"
	"github.com/ebay/wbemql/util/debuglog"
	"github.com/ebay/wbemql/util/tracing"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	debuglog.Configure(debuglog.Options{})
	cfgFile := flag.String("cfg", "wbemql.json", "config file (.json or .toml)")
	envFile := flag.String("env", "", "optional file of WBEMQL_* variables that override the config")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}
	if *envFile != "" {
		env, err := godotenv.Read(*envFile)
		if err != nil {
			log.Fatalf("Unable to read %v: %v", *envFile, err)
		}
		if err := applyEnv(cfg, env); err != nil {
			log.Fatalf("Invalid setting in %v: %v", *envFile, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.API == nil {
		log.Fatal("api field missing in config")
	}
	log.Infof("Using config: %+v", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracer, err := tracing.New("wbemql-api", cfg.Tracing)
	if err != nil {
		log.Fatalf("Unable to initialize distributed tracing: %v", err)
	}
	defer tracer.Close()

	registry, err := newRegistry(cfg)
	if err != nil {
		log.Fatalf("Unable to initialize management source: %v", err)
	}
	apiServer := api.New(cfg, registry)
	err = apiServer.Run(ctx)
	if err != context.Canceled {
		log.Errorf("Server::Run returned %v", err)
		os.Exit(-1)
	}
	log.Info("wbemql API server exiting")
}

// newRegistry builds the in-memory source from the configured instances file
// and registers the process strategies if a proc filesystem is configured.
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

// applyEnv overrides fields of cfg from the WBEMQL_* variables in env.
func applyEnv(cfg *config.WBEMQL, env map[string]string) error {
	for k, v := range env {
		switch k {
		case "WBEMQL_LISTEN":
			if cfg.API == nil {
				cfg.API = new(config.API)
			}
			cfg.API.Listen = v
		case "WBEMQL_MODE":
			cfg.Mode = v
		case "WBEMQL_PARALLEL":
			parallel, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			cfg.Parallel = parallel
		case "WBEMQL_PROCFS":
			cfg.ProcFS = v
		case "WBEMQL_INSTANCES":
			cfg.Instances = v
		default:
			log.Warnf("Ignoring unknown setting %v", k)
		}
	}
	return nil
}
