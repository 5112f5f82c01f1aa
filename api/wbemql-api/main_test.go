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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ebay/wbemql/config"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_applyEnv(t *testing.T) {
	dir, err := ioutil.TempDir("", "wbemql-api")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	envFile := filepath.Join(dir, "wbemql.env")
	require.NoError(t, ioutil.WriteFile(envFile, []byte(
		"# local overrides\nWBEMQL_LISTEN=localhost:9988\nWBEMQL_MODE=flat\nWBEMQL_PARALLEL=true\n"), 0644))
	env, err := godotenv.Read(envFile)
	require.NoError(t, err)

	cfg := &config.WBEMQL{Namespace: "root/cimv2", OntologyPrefix: "wbem:"}
	require.NoError(t, applyEnv(cfg, env))
	assert.Equal(t, &config.WBEMQL{
		Namespace:      "root/cimv2",
		OntologyPrefix: "wbem:",
		Mode:           "flat",
		Parallel:       true,
		API:            &config.API{Listen: "localhost:9988"},
	}, cfg)

	assert.Error(t, applyEnv(cfg, map[string]string{"WBEMQL_PARALLEL": "sometimes"}))
}

func Test_newRegistry(t *testing.T) {
	cfg := &config.WBEMQL{Namespace: "root/cimv2"}
	registry, err := newRegistry(cfg)
	require.NoError(t, err)
	assert.NotNil(t, registry)

	cfg.Instances = "does-not-exist.yaml"
	_, err = newRegistry(cfg)
	assert.Error(t, err)

	cfg.Instances = ""
	cfg.ProcFS = "../../query/provider/procprov/testdata/proc"
	registry, err = newRegistry(cfg)
	require.NoError(t, err)
	assert.NotNil(t, registry)
}
