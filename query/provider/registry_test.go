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

package provider

import (
	"context"
	"testing"

	"github.com/ebay/wbemql/query/cache"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/source"
	"github.com/ebay/wbemql/source/mocksource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	SelectSignature
	name string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Select(context.Context, *source.SelectRequest) ([]value.Row, error) {
	return nil, nil
}

type fakeGetter struct {
	GetSignature
	name string
}

func (g *fakeGetter) Name() string { return g.name }

func (g *fakeGetter) Get(context.Context, *source.GetRequest, cache.RowCache) (value.Row, error) {
	return nil, nil
}

func Test_SelectSignature(t *testing.T) {
	sig := SelectSignature{Class: "CIM_Process", Wheres: []string{"Name", "Handle"}}
	assert.True(t, sig.Handles("CIM_Process", []string{"Handle", "Name"}))
	assert.True(t, sig.Handles("cim_process", []string{"Handle", "Name"}))
	assert.False(t, sig.Handles("CIM_Process", []string{"Handle"}))
	assert.False(t, sig.Handles("CIM_Process", []string{"Handle", "Name", "Parent"}))
	assert.False(t, sig.Handles("Win32_Process", []string{"Handle", "Name"}))
	none := SelectSignature{Class: "CIM_Process"}
	assert.True(t, none.Handles("CIM_Process", nil))
	assert.False(t, none.Handles("CIM_Process", []string{"Handle"}))
}

func Test_GetSignature(t *testing.T) {
	sig := GetSignature{Class: "CIM_Process", Columns: []string{"Handle", "Name", "CommandLine"}}
	assert.True(t, sig.Handles("CIM_Process", []string{"Name"}, false))
	assert.True(t, sig.Handles("CIM_Process", []string{"CommandLine", "Handle"}, false))
	assert.True(t, sig.Handles("CIM_Process", nil, false))
	assert.False(t, sig.Handles("CIM_Process", []string{"Name", "Priority"}, false))
	assert.False(t, sig.Handles("CIM_Process", nil, true))
	assert.False(t, sig.Handles("CIM_DataFile", []string{"Name"}, false))
}

func Test_RegistryFirstMatchWins(t *testing.T) {
	byHandle := &fakeProvider{SelectSignature{"CIM_Process", []string{"Handle"}}, "byHandle"}
	byHandle2 := &fakeProvider{SelectSignature{"CIM_Process", []string{"Handle"}}, "byHandle2"}
	narrow := &fakeGetter{GetSignature{"CIM_Process", []string{"Name"}}, "narrow"}
	wide := &fakeGetter{GetSignature{"CIM_Process", []string{"Name", "Handle"}}, "wide"}
	reg := NewRegistry(nil, []Provider{byHandle, byHandle2}, []Getter{narrow, wide})

	assert.Equal(t, "byHandle", reg.SelectFor("CIM_Process", []string{"Handle"}).Name())
	assert.Equal(t, "narrow", reg.GetterFor("CIM_Process", []string{"Name"}, false).Name())
	assert.Equal(t, "wide", reg.GetterFor("CIM_Process", []string{"Handle", "Name"}, false).Name())

	p := reg.SelectFor("CIM_Process", []string{"Name"})
	assert.True(t, IsGeneric(p))
	g := reg.GetterFor("CIM_Process", nil, true)
	assert.True(t, IsGeneric(g))
	assert.Equal(t, "generic", g.Name())
	assert.False(t, IsGeneric(byHandle))
}

func Test_UnmatchedReportedOnce(t *testing.T) {
	reg := NewRegistry(nil, nil, nil)
	for i := 0; i < 3; i++ {
		reg.SelectFor("Win32_Service", []string{"Name"})
		reg.GetterFor("Win32_Service", []string{"State"}, false)
	}
	reg.GetterFor("Win32_Service", nil, true)
	assert.Equal(t, []string{
		"get Win32_Service *",
		"get Win32_Service [State]",
		"select Win32_Service where [Name]",
	}, reg.Unmatched())
}

func Test_GenericCallsSource(t *testing.T) {
	ctx := context.Background()
	sel := &source.SelectRequest{Namespace: "ns", Class: "C", Columns: []string{"A"}}
	get := &source.GetRequest{Path: `ns:C.A="1"`, Columns: []string{"A"}}
	row := value.Row{"A": value.NewString("1"), source.PathColumn: value.NewNode(`ns:C.A="1"`)}
	src, assertDone := mocksource.New(t, mocksource.Select(sel, row), mocksource.Get(get, row))
	defer assertDone()
	reg := NewRegistry(src, nil, nil)
	rows, err := reg.SelectFor("C", nil).Select(ctx, sel)
	require.NoError(t, err)
	assert.Equal(t, []value.Row{row}, rows)
	res, err := reg.GetterFor("C", []string{"A"}, false).Get(ctx, get, cache.New())
	require.NoError(t, err)
	assert.Equal(t, row, res)
}
