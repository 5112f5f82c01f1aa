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

// Package stats samples the calls that query execution makes to the
// management source. Samples are keyed by class and columns for selects and by
// object path for point lookups.
package stats

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ebay/wbemql/util/clocks"
	"github.com/ebay/wbemql/util/table"
)

// SelectKey returns the sample key for a select on class for columns.
func SelectKey(class string, columns []string) string {
	return fmt.Sprintf("select %s(%s)", class, strings.Join(columns, ","))
}

// GetKey returns the sample key for a point lookup of path.
func GetKey(path string) string {
	return "get " + path
}

// Entry is the accumulated statistics for one key.
type Entry struct {
	Key      string
	Calls    int
	Rows     int
	Errors   int
	Duration time.Duration
}

// Collector accumulates samples for one query evaluation. It's safe for
// concurrent use. A nil *Collector ignores all samples.
type Collector struct {
	clock  clocks.Source
	lock   sync.Mutex // protects locked
	locked struct {
		entries map[string]*Entry
		// Keys in the order they were first sampled.
		order []string
	}
}

// New returns a Collector that reads the time from clock. If clock is nil,
// it uses clocks.Wall.
func New(clock clocks.Source) *Collector {
	if clock == nil {
		clock = clocks.Wall
	}
	c := &Collector{clock: clock}
	c.locked.entries = make(map[string]*Entry)
	return c
}

// Sample is one in-progress call.
type Sample struct {
	c     *Collector
	key   string
	start time.Time
}

// Start begins a sample for key.
func (c *Collector) Start(key string) Sample {
	if c == nil {
		return Sample{}
	}
	return Sample{c: c, key: key, start: c.clock.Now()}
}

// Finish records the sample, with the number of rows the call produced and
// whether it failed.
func (s Sample) Finish(rows int, err error) {
	if s.c == nil {
		return
	}
	elapsed := s.c.clock.Now().Sub(s.start)
	s.c.lock.Lock()
	defer s.c.lock.Unlock()
	e := s.c.locked.entries[s.key]
	if e == nil {
		e = &Entry{Key: s.key}
		s.c.locked.entries[s.key] = e
		s.c.locked.order = append(s.c.locked.order, s.key)
	}
	e.Calls++
	e.Rows += rows
	e.Duration += elapsed
	if err != nil {
		e.Errors++
	}
}

// Entries returns a copy of the statistics in first-sampled order.
func (c *Collector) Entries() []Entry {
	if c == nil {
		return nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	res := make([]Entry, len(c.locked.order))
	for i, key := range c.locked.order {
		res[i] = *c.locked.entries[key]
	}
	return res
}

// Dump writes the statistics as a table.
func (c *Collector) Dump(w io.Writer) {
	t := [][]string{{"Call", "Calls", "Rows", "Errors", "Took"}}
	for _, e := range c.Entries() {
		t = append(t, []string{
			e.Key,
			fmt.Sprint(e.Calls),
			fmt.Sprint(e.Rows),
			fmt.Sprint(e.Errors),
			e.Duration.Round(time.Microsecond).String(),
		})
	}
	table.PrettyPrint(w, t, table.HeaderRow|table.SkipEmpty)
}
