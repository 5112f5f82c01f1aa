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

package debug

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ebay/wbemql/query/parser"
	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/stats"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/util/clocks"
	"github.com/stretchr/testify/assert"
)

// The tracker shouldn't fail if a query fails at one of the steps and not all
// the Tracker calls are made to it.
func Test_DebugTrackerIncompleteQuery(t *testing.T) {
	out := strings.Builder{}
	d := New(true, &out, clocks.NewMock(), "tree", "not a valid query\n")
	d.Parsed(nil, errors.New("Invalid query"))
	d.Close()
	assert.Equal(t, `
Started at: 1970-01-01 00:00:00.000000 UTC
Parsing   0s
Query Ended at: 1970-01-01 00:00:00.000000 UTC
Total: 0s

Query (tree mode):
not a valid query

Parsed Query:
Error: Invalid query

`, "\n"+out.String())
}

func Test_DebugTracker(t *testing.T) {
	clock := clocks.NewMock()
	out := strings.Builder{}
	text := `SELECT * { ?p <http://x/Win32_Process.Name> ?n }`
	d := New(true, &out, clock, "flat", text+"\n")
	q, err := parser.Parse(text, nil)
	assert.NoError(t, err)
	clock.Advance(time.Millisecond)
	d.Parsed(q, nil)
	clock.Advance(2 * time.Millisecond)
	d.Planned(nil, &plandef.Plan{Steps: []*plandef.QueryData{{
		MainVariable: "p",
		Namespace:    "root/cimv2",
		Class:        "Win32_Process",
		Columns:      []plandef.Column{{Property: "Name", Variable: "n"}},
	}}}, nil)
	d.Stats().Start(stats.SelectKey("Win32_Process", []string{"Name"})).Finish(1, nil)
	clock.Advance(3 * time.Millisecond)
	rows := value.Solution{{"p": value.NewNode(`root/cimv2:Win32_Process.Handle="4"`), "n": value.NewString("init")}}
	d.Executed(rows, nil)
	d.Close()

	report := out.String()
	for _, exp := range []string{
		"Parsing   1ms\n",
		"Planning  2ms\n",
		"Executing 3ms\n",
		"Total: 6ms\n",
		"Query (flat mode):\n" + text + "\n",
		"\nPlan:\n0: Select(?p root/cimv2:Win32_Process",
		"\nSource Calls:\n",
		"select Win32_Process(Name)",
		"\nResults:\n1 rows\n",
		`"init"`,
	} {
		assert.Contains(t, report, exp)
	}
}

func Test_DebugTrackerRowLimit(t *testing.T) {
	out := strings.Builder{}
	d := New(true, &out, clocks.NewMock(), "tree", "")
	d.Parsed(nil, errors.New("unused"))
	d.Planned(&plandef.Projection{}, nil, nil)
	rows := make(value.Solution, maxReportedRows+3)
	for i := range rows {
		rows[i] = value.Row{"i": value.NewInt(int64(i))}
	}
	d.Executed(rows, nil)
	d.Close()
	assert.Contains(t, out.String(), "\nPlan:\nProjection *\n")
	assert.Contains(t, out.String(), "23 rows\n")
	assert.Contains(t, out.String(), "(3 more rows not shown)\n")
}

func Test_DebugTrackerErrors(t *testing.T) {
	out := strings.Builder{}
	d := New(true, &out, clocks.NewMock(), "tree", "")
	d.Parsed(nil, errors.New("bad query"))
	d.Planned(nil, nil, errors.New("no plan"))
	d.Executed(nil, errors.New("no rows"))
	d.Close()
	assert.Contains(t, out.String(), "\nPlan:\nError: no plan\n")
	assert.Contains(t, out.String(), "\nResults:\nError: no rows\n")
}

func Test_NoopTracker(t *testing.T) {
	d := New(false, nil, nil, "flat", "")
	assert.Equal(t, noopTracker{}, d)
	assert.Nil(t, d.Stats())
	d.Parsed(nil, nil)
	d.Planned(nil, nil, nil)
	d.Executed(nil, nil)
	d.Close()
}
