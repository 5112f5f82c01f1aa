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

// Package config defines the configuration of the wbemql daemon and client,
// and how to load it from a file.
package config

import (
	"fmt"
	"strings"
)

// Execution modes.
const (
	// ModeFlat evaluates one ordered plan covering every pattern in the
	// query.
	ModeFlat = "flat"
	// ModeTree evaluates each group of the query separately and combines the
	// results with products and unions.
	ModeTree = "tree"
)

// WBEMQL is the root of the configuration.
type WBEMQL struct {
	// The management namespace used when a query names a class without a
	// path, such as "root/cimv2".
	Namespace string `json:"namespace" toml:"namespace"`
	// IRI prefix of the class and property IRIs used in queries.
	OntologyPrefix string `json:"ontologyPrefix" toml:"ontologyPrefix"`
	// Additional prefixes available to every query.
	Prefixes map[string]string `json:"prefixes,omitempty" toml:"prefixes"`
	// Either ModeFlat or ModeTree. Defaults to ModeTree.
	Mode string `json:"mode,omitempty" toml:"mode"`
	// If set, tree mode evaluates union arms and join children concurrently.
	Parallel bool `json:"parallel,omitempty" toml:"parallel"`
	// Mount point of the proc filesystem, used by the process providers.
	// Empty disables them.
	ProcFS string `json:"procfs,omitempty" toml:"procfs"`
	// YAML file describing the classes and instances served by the
	// in-memory source.
	Instances string `json:"instances,omitempty" toml:"instances"`
	// HTTP API settings.
	API *API `json:"api,omitempty" toml:"api"`
	// Distributed tracing settings. Tracing is disabled if nil.
	Tracing *Tracing `json:"tracing,omitempty" toml:"tracing"`
}

// API configures the HTTP server.
type API struct {
	// host:port to listen on, such as "localhost:9988".
	Listen string `json:"listen" toml:"listen"`
}

// Tracing configures where spans are reported.
type Tracing struct {
	// Either "none" or "jaeger".
	Type string `json:"type" toml:"type"`
	// host:port of the jaeger agent, required for type "jaeger".
	Agent string `json:"agent,omitempty" toml:"agent"`
}

// Validate checks the configuration for consistency and fills in defaults.
func (cfg *WBEMQL) Validate() error {
	if cfg.Namespace == "" {
		return fmt.Errorf("namespace must be set")
	}
	if cfg.OntologyPrefix == "" {
		return fmt.Errorf("ontologyPrefix must be set")
	}
	switch strings.ToLower(cfg.Mode) {
	case "":
		cfg.Mode = ModeTree
	case ModeFlat, ModeTree:
		cfg.Mode = strings.ToLower(cfg.Mode)
	default:
		return fmt.Errorf("invalid mode %q (expected %s or %s)", cfg.Mode, ModeFlat, ModeTree)
	}
	return nil
}
