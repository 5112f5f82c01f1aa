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

package triples

import (
	"bytes"
	"testing"

	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wbem  = "http://example.com/wbem#"
	proc4 = `root/cimv2:Win32_Process.Handle="4"`
	proc5 = `root/cimv2:Win32_Process.Handle="5"`
)

func Test_Materialize(t *testing.T) {
	patterns := []*plandef.ObjectPattern{{
		Variable:  "p",
		Namespace: "root/cimv2",
		Class:     "Win32_Process",
		Members: []plandef.Member{
			{Property: "Handle", PredicateIRI: wbem + "Handle", Object: value.NewString("4")},
			{Property: "Name", PredicateIRI: wbem + "Win32_Process.Name", ObjectVar: "n"},
			{Property: "Priority", PredicateIRI: wbem + "Priority", ObjectVar: "unbound"},
		},
	}, {
		Variable: "q",
		Class:    "Win32_Service",
	}}
	solution := value.Solution{
		{"p": value.NewNode(proc4), "n": value.NewString("init")},
		{"p": value.NewNode(proc4), "n": value.NewString("init")},
	}
	c := NewCollector()
	require.NoError(t, Materialize(patterns, solution, wbem, c))

	subject := value.Term{Kind: value.IRI, Value: proc4}
	assert.Equal(t, []Triple{{
		Subject:   subject,
		Predicate: iri("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"),
		Object:    iri(wbem + "Win32_Process"),
	}, {
		Subject:   subject,
		Predicate: iri(wbem + "Handle"),
		Object:    value.Term{Kind: value.Literal, Value: "4"},
	}, {
		Subject:   subject,
		Predicate: iri(wbem + "Win32_Process.Name"),
		Object:    value.Term{Kind: value.Literal, Value: "init"},
	}}, c.Triples())
}

func Test_MaterializeWildcard(t *testing.T) {
	patterns := []*plandef.ObjectPattern{{
		Variable: "p",
		Class:    "Win32_Process",
		Members: []plandef.Member{
			{PredicateVar: "prop", ObjectVar: "val"},
			{Property: "Parent", PredicateIRI: wbem + "Parent", Object: value.NewNode(proc5)},
		},
	}}
	solution := value.Solution{
		{"p": value.NewNode(proc4), "prop": value.NewNode(wbem + "Win32_Process.Handle"), "val": value.NewInt(4)},
	}
	c := NewCollector()
	require.NoError(t, Materialize(patterns, solution, wbem, c))

	var buf bytes.Buffer
	require.NoError(t, c.WriteNTriples(&buf))
	assert.Equal(t,
		`<root/cimv2:Win32_Process.Handle=\u00224\u0022> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.com/wbem#Win32_Process> .
<root/cimv2:Win32_Process.Handle=\u00224\u0022> <http://example.com/wbem#Win32_Process.Handle> "4"^^<http://www.w3.org/2001/XMLSchema#integer> .
<root/cimv2:Win32_Process.Handle=\u00224\u0022> <http://example.com/wbem#Parent> <root/cimv2:Win32_Process.Handle=\u00225\u0022> .
`, buf.String())
}

func Test_MaterializeErrors(t *testing.T) {
	patterns := []*plandef.ObjectPattern{{
		Variable: "p",
		Class:    "Win32_Process",
		Members:  []plandef.Member{{Property: "On", PredicateIRI: wbem + "On", ObjectVar: "on"}},
	}}
	err := Materialize(patterns, value.Solution{{"p": value.NewString("x")}}, wbem, NewCollector())
	assert.EqualError(t, err, "subject ?p is bound to a STRING, not an object")

	err = Materialize(patterns, value.Solution{{
		"p":  value.NewNode(proc4),
		"on": {Val: "maybe", Type: value.Bool},
	}}, wbem, NewCollector())
	assert.Error(t, err)
}
