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

package memsource

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sort"

	"github.com/ebay/wbemql/objpath"
	"github.com/ebay/wbemql/query/value"
	yaml "gopkg.in/yaml.v2"
)

// fixture is the YAML document format:
//
//	classes:
//	  - class: Win32_Process
//	    namespace: root/cimv2
//	    keys: [Handle]
//	    properties: [Name, ParentProcessId]
//	    instances:
//	      - {Handle: "4", Name: System, ParentProcessId: 0}
//
// Properties used by instances don't need to be listed.
type fixture struct {
	Classes []fixtureClass `yaml:"classes"`
}

type fixtureClass struct {
	Class      string                   `yaml:"class"`
	Namespace  string                   `yaml:"namespace"`
	Keys       []string                 `yaml:"keys"`
	Properties []string                 `yaml:"properties"`
	Instances  []map[string]interface{} `yaml:"instances"`
}

// LoadFile reads a YAML fixture file into a new Store.
func LoadFile(filename, defaultNamespace string) (*Store, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	store, err := Load(f, defaultNamespace)
	if err != nil {
		return nil, fmt.Errorf("error loading %v: %v", filename, err)
	}
	return store, nil
}

// Load reads a YAML fixture into a new Store.
func Load(r io.Reader, defaultNamespace string) (*Store, error) {
	bytes, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc fixture
	if err := yaml.UnmarshalStrict(bytes, &doc); err != nil {
		return nil, err
	}
	store := New(defaultNamespace)
	for _, fc := range doc.Classes {
		if fc.Class == "" {
			return nil, fmt.Errorf("class entry without a name")
		}
		props := append([]string(nil), fc.Properties...)
		seen := make(map[string]bool)
		for _, p := range props {
			seen[p] = true
		}
		for _, inst := range fc.Instances {
			for p := range inst {
				if !seen[p] {
					seen[p] = true
					props = append(props, p)
				}
			}
		}
		sort.Strings(props[len(fc.Properties):])
		if err := store.AddClass(fc.Namespace, fc.Class, fc.Keys, props); err != nil {
			return nil, err
		}
		for i, inst := range fc.Instances {
			row := make(value.Row, len(inst))
			for p, raw := range inst {
				v, err := inferValue(raw)
				if err != nil {
					return nil, fmt.Errorf("%s instance %d property %s: %v", fc.Class, i, p, err)
				}
				row[p] = v
			}
			if _, err := store.Add(fc.Namespace, fc.Class, row); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}

// inferValue picks a value type for a YAML scalar. Strings that parse as
// object paths become nodes and strings in the source's date format become
// dates.
func inferValue(raw interface{}) (value.Pair, error) {
	switch v := raw.(type) {
	case nil:
		return value.Pair{}, nil
	case bool:
		return value.NewBool(v), nil
	case int:
		return value.NewInt(int64(v)), nil
	case int64:
		return value.NewInt(v), nil
	case uint64:
		return value.Pair{Val: fmt.Sprint(v), Type: value.Int}, nil
	case float64:
		return value.NewFloat(v), nil
	case string:
		if objpath.IsPath(v) {
			return value.NewNode(v), nil
		}
		if _, err := value.ParseDate(v); err == nil {
			return value.Pair{Val: v, Type: value.Date}, nil
		}
		return value.NewString(v), nil
	}
	return value.Pair{}, fmt.Errorf("unsupported YAML value %v (%T)", raw, raw)
}
