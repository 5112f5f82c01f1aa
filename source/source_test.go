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

package source

import (
	"testing"

	"github.com/ebay/wbemql/query/value"
	"github.com/stretchr/testify/assert"
)

func Test_Project(t *testing.T) {
	inst := value.Row{
		PathColumn: value.NewNode(`ns:C.K="1"`),
		"K":        value.NewString("1"),
		"Name":     value.NewString("x"),
	}
	has := func(p string) bool { return p == "K" || p == "Name" || p == "Empty" }
	row, err := Project(inst, []string{"Name", "Empty"}, false, has)
	assert.NoError(t, err)
	assert.Equal(t, value.Row{
		PathColumn: value.NewNode(`ns:C.K="1"`),
		"Name":     value.NewString("x"),
		"Empty":    {},
	}, row)

	row, err = Project(inst, nil, true, has)
	assert.NoError(t, err)
	assert.Equal(t, inst, row)

	_, err = Project(inst, []string{"Bogus"}, false, has)
	assert.EqualError(t, err, "no such property: Bogus")
}

func Test_SortedColumns(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedColumns([]string{"c", "a", "b", "a"}))
	assert.Empty(t, SortedColumns(nil))
}

func Test_RequestString(t *testing.T) {
	sel := &SelectRequest{
		Namespace: "root/cimv2",
		Class:     "Win32_Process",
		Columns:   []string{"Name"},
		Where:     []Equality{{Property: "Handle", Value: value.NewString("4")}},
	}
	assert.Equal(t, `select root/cimv2:Win32_Process [Name] where [Handle="4":STRING]`, sel.String())
	sel.AllColumns = true
	sel.Where = nil
	assert.Equal(t, `select root/cimv2:Win32_Process *`, sel.String())
	get := &GetRequest{Path: `ns:C.K="1"`, Columns: []string{"A", "B"}}
	assert.Equal(t, `get ns:C.K="1" [A B]`, get.String())
}
