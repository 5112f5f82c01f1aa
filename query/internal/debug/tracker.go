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

// Package debug builds a human readable report of how one query was
// processed.
package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/ebay/wbemql/query/parser"
	"github.com/ebay/wbemql/query/planner/plandef"
	"github.com/ebay/wbemql/query/stats"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/util/clocks"
	"github.com/sirupsen/logrus"
)

// timestampFormat is used to format the timestamps written to the report.
const timestampFormat = "2006-01-02 15:04:05.000000 MST"

// maxReportedRows limits how many solution rows are dumped into the report.
const maxReportedRows = 20

// Tracker defines points in the query processing sequence. The query engine
// calls these as it goes.
type Tracker interface {
	Parsed(*parser.Query, error)
	// Planned is called with the planned tree in tree mode, or with the plan in
	// flat mode.
	Planned(tree plandef.Node, plan *plandef.Plan, err error)
	// Stats returns the collector that execution should sample calls into, or
	// nil.
	Stats() *stats.Collector
	Executed(value.Solution, error)
	Close()
}

// trackerID is used by New to number the reports.
var trackerID uint64

// New returns a new Tracker. If 'debug' is set the tracker accumulates a
// report and writes it to debugOut when it's closed. If debugOut is nil, the
// report is written to a file in $TMPDIR. If 'debug' is false, a no-op Tracker
// is returned.
func New(debug bool, debugOut io.Writer, clock clocks.Source, mode string, query string) Tracker {
	if !debug {
		return noopTracker{}
	}
	if clock == nil {
		clock = clocks.Wall
	}
	t := &debugTracker{
		id:    atomic.AddUint64(&trackerID, 1),
		clock: clock,
	}
	if debugOut == nil {
		f, err := os.Create(filepath.Join(os.TempDir(), fmt.Sprintf("wbemql_debug_%d", t.id)))
		if err != nil {
			logrus.Warnf("Unable to create query debug file: %v", err)
			return noopTracker{}
		}
		logrus.Infof("Query Debug Info %d being written to %s", t.id, f.Name())
		t.close = f
		debugOut = f
	}
	t.out = bufio.NewWriter(debugOut)
	t.stats = stats.New(clock)
	t.started = t.clock.Now()
	fmt.Fprintf(&t.report.header, "Started at: %s\n", t.started.UTC().Format(timestampFormat))
	t.report.inputQuery = fmt.Sprintf("Query (%s mode):\n%s", mode, query)
	return t
}

// debugTracker implements Tracker by building up the report.
type debugTracker struct {
	id       uint64
	clock    clocks.Source
	started  time.Time
	parsed   time.Time
	planned  time.Time
	executed time.Time
	stats    *stats.Collector
	// out is where the report will be written to.
	out *bufio.Writer
	// close if set will be closed once the report is written.
	close io.Closer
	// The report contains the below sections, in this order.
	report struct {
		header     strings.Builder
		inputQuery string
		parsed     string
		planned    string
		results    string
	}
}

func (t *debugTracker) Parsed(q *parser.Query, err error) {
	t.parsed = t.clock.Now()
	fmt.Fprintf(&t.report.header, "Parsing   %v\n", t.parsed.Sub(t.started))
	if err != nil {
		t.report.parsed = fmt.Sprintf("Error: %v\n", err)
		return
	}
	t.report.parsed = q.String()
}

func (t *debugTracker) Planned(tree plandef.Node, plan *plandef.Plan, err error) {
	t.planned = t.clock.Now()
	fmt.Fprintf(&t.report.header, "Planning  %v\n", t.planned.Sub(t.parsed))
	switch {
	case err != nil:
		t.report.planned = fmt.Sprintf("Error: %v\n", err)
	case tree != nil:
		t.report.planned = plandef.TreeString(tree)
	case plan != nil:
		t.report.planned = plan.String()
	}
}

func (t *debugTracker) Stats() *stats.Collector {
	return t.stats
}

// rowDumper formats solution rows with their keys sorted and without pointer
// addresses.
var rowDumper = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

func (t *debugTracker) Executed(solution value.Solution, err error) {
	t.executed = t.clock.Now()
	if err != nil {
		t.report.results = fmt.Sprintf("Error: %v\n", err)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d rows\n", len(solution))
	shown := solution
	if len(shown) > maxReportedRows {
		shown = shown[:maxReportedRows]
	}
	for _, row := range shown {
		rowDumper.Fdump(&b, row)
	}
	if len(shown) < len(solution) {
		fmt.Fprintf(&b, "(%d more rows not shown)\n", len(solution)-len(shown))
	}
	t.report.results = b.String()
}

func (t *debugTracker) Close() {
	end := t.clock.Now()
	t.out.WriteString(t.report.header.String())
	if !t.executed.IsZero() {
		fmt.Fprintf(t.out, "Executing %v\n", t.executed.Sub(t.planned))
	}
	fmt.Fprintf(t.out, "Query Ended at: %s\n", end.UTC().Format(timestampFormat))
	fmt.Fprintf(t.out, "Total: %v\n\n", end.Sub(t.started))
	t.out.WriteString(t.report.inputQuery)
	t.out.WriteString("\nParsed Query:\n")
	t.out.WriteString(t.report.parsed)
	if t.report.planned != "" {
		t.out.WriteString("\nPlan:\n")
		t.out.WriteString(t.report.planned)
	}
	if !t.executed.IsZero() {
		t.out.WriteString("\nSource Calls:\n")
		t.stats.Dump(t.out)
		t.out.WriteString("\nResults:\n")
		t.out.WriteString(t.report.results)
	}
	t.out.WriteByte('\n')

	flushErr := t.out.Flush()
	if flushErr != nil {
		logrus.WithFields(logrus.Fields{
			"query_id": t.id,
			"error":    flushErr,
		}).Warn("Error writing report for query")
	}
	if t.close != nil {
		closeErr := t.close.Close()
		if closeErr != nil {
			logrus.WithFields(logrus.Fields{
				"query_id": t.id,
				"error":    closeErr,
			}).Warn("Error closing report for query")
			return
		}
	}
	if flushErr != nil {
		return
	}
	logrus.WithField("query_id", t.id).Info("Completed query debug report")
}

// noopTracker implements Tracker, doing nothing.
type noopTracker struct{}

func (noopTracker) Parsed(*parser.Query, error)                {}
func (noopTracker) Planned(plandef.Node, *plandef.Plan, error) {}
func (noopTracker) Stats() *stats.Collector                    { return nil }
func (noopTracker) Executed(value.Solution, error)             {}
func (noopTracker) Close()                                     {}
