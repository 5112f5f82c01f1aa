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
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ns          = "root/cimv2"
	systemPath  = `root/cimv2:Win32_Process.Handle="4"`
	svchostPath = `root/cimv2:Win32_Process.Handle="812"`
)

func loadTestdata(t *testing.T) *Store {
	store, err := LoadFile("testdata/processes.yaml", ns)
	require.NoError(t, err)
	return store
}

func Test_Select(t *testing.T) {
	store := loadTestdata(t)
	ctx := context.Background()
	tests := []struct {
		name string
		req  source.SelectRequest
		exp  []value.Row
	}{
		{
			name: "all",
			req:  source.SelectRequest{Class: "Win32_Process", Columns: []string{"Name"}},
			exp: []value.Row{
				{"Name": value.NewString("System"), source.PathColumn: value.NewNode(systemPath)},
				{"Name": value.NewString("svchost.exe"), source.PathColumn: value.NewNode(svchostPath)},
			},
		},
		{
			name: "byHandle",
			req: source.SelectRequest{Namespace: "ROOT/CIMV2", Class: "win32_process",
				Columns: []string{"ParentProcessId", "ExecutablePath"},
				Where:   []source.Equality{{Property: "Handle", Value: value.NewString("4")}}},
			exp: []value.Row{
				{"ParentProcessId": value.NewInt(0), "ExecutablePath": {},
					source.PathColumn: value.NewNode(systemPath)},
			},
		},
		{
			name: "association",
			req: source.SelectRequest{Class: "CIM_ProcessExecutable", Columns: []string{"Antecedent"},
				Where: []source.Equality{{Property: "Dependent", Value: value.NewNode(svchostPath)}}},
			exp: []value.Row{
				{"Antecedent": value.NewNode(`root/cimv2:CIM_DataFile.Name="C:\\Windows\\System32\\ntdll.dll"`),
					source.PathColumn: value.NewNode(`root/cimv2:CIM_ProcessExecutable.` +
						`Antecedent="root/cimv2:CIM_DataFile.Name=\"C:\\\\Windows\\\\System32\\\\ntdll.dll\"",` +
						`Dependent="root/cimv2:Win32_Process.Handle=\"812\""`)},
				{"Antecedent": value.NewNode(`root/cimv2:CIM_DataFile.Name="C:\\Windows\\System32\\svchost.exe"`),
					source.PathColumn: value.NewNode(`root/cimv2:CIM_ProcessExecutable.` +
						`Antecedent="root/cimv2:CIM_DataFile.Name=\"C:\\\\Windows\\\\System32\\\\svchost.exe\"",` +
						`Dependent="root/cimv2:Win32_Process.Handle=\"812\""`)},
			},
		},
		{
			name: "noMatch",
			req: source.SelectRequest{Class: "Win32_Process", Columns: []string{"Name"},
				Where: []source.Equality{{Property: "Name", Value: value.NewString("init")}}},
			exp: nil,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rows, err := store.Select(ctx, &test.req)
			require.NoError(t, err)
			assert.Equal(t, test.exp, rows)
		})
	}
}

func Test_SelectErrors(t *testing.T) {
	store := loadTestdata(t)
	ctx := context.Background()
	_, err := store.Select(ctx, &source.SelectRequest{Class: "Win32_Service"})
	assert.EqualError(t, err, "memsource: invalid class root/cimv2:Win32_Service")
	_, err = store.Select(ctx, &source.SelectRequest{Class: "Win32_Process", Columns: []string{"Bogus"}})
	assert.EqualError(t, err, "memsource: select on Win32_Process: no such property: Bogus")
	_, err = store.Select(ctx, &source.SelectRequest{Class: "Win32_Process",
		Where: []source.Equality{{Property: "Bogus", Value: value.NewString("x")}}})
	assert.EqualError(t, err, "memsource: class Win32_Process has no property Bogus")
}

func Test_SelectAllColumns(t *testing.T) {
	store := loadTestdata(t)
	rows, err := store.Select(context.Background(), &source.SelectRequest{
		Class: "Win32_Process", AllColumns: true,
		Where: []source.Equality{{Property: "Handle", Value: value.NewString("812")}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Row{
		"Handle":          value.NewString("812"),
		"Name":            value.NewString("svchost.exe"),
		"ParentProcessId": value.NewInt(4),
		"ExecutablePath":  value.NewString(`C:\Windows\System32\svchost.exe`),
		"CreationDate":    {Val: "20190102030405.000000+000", Type: value.Date},
		source.PathColumn: value.NewNode(svchostPath),
	}, rows[0])
}

func Test_GetByPath(t *testing.T) {
	store := loadTestdata(t)
	ctx := context.Background()
	row, err := store.GetByPath(ctx, &source.GetRequest{
		Path:    `ROOT/CIMV2:WIN32_PROCESS.Handle="812"`,
		Columns: []string{"Name"},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Row{
		"Name":            value.NewString("svchost.exe"),
		source.PathColumn: value.NewNode(svchostPath),
	}, row)

	for _, path := range []string{
		`root/cimv2:Win32_Process.Handle="1"`,
		`root/cimv2:Win32_Service.Name="x"`,
		`root/cimv2:Win32_Process.Name="x"`,
	} {
		_, err = store.GetByPath(ctx, &source.GetRequest{Path: path})
		assert.True(t, errors.Is(err, source.ErrNotFound), "path %s: %v", path, err)
	}
	_, err = store.GetByPath(ctx, &source.GetRequest{Path: `ns:Foo.Bar=`})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, source.ErrNotFound))
}

func Test_LoadErrors(t *testing.T) {
	tests := []struct {
		in     string
		expErr string
	}{
		{"classes:\n  - keys: [A]\n", "class entry without a name"},
		{"classes:\n  - class: C\n    keys: [A]\n    instances:\n      - {B: 1}\n",
			"memsource: C instance is missing key A"},
		{"classes:\n  - class: C\n    keys: [A]\n    instances:\n      - {A: 'ns:C.A=\"1\"', B: [1]}\n",
			"C instance 0 property B: unsupported YAML value [1] ([]interface {})"},
		{"classes:\n  - class: C\n  - class: c\n", "memsource: class root/cimv2:c already declared"},
		{"bogus: 1\n", "yaml: unmarshal errors:\n  line 1: field bogus not found in type memsource.fixture"},
	}
	for _, test := range tests {
		_, err := Load(strings.NewReader(test.in), ns)
		assert.EqualError(t, err, test.expErr, test.in)
	}
}
