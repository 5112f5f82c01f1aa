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

// Package cache provides a path-keyed row cache. A cache is scoped to one
// query evaluation and is handed to the strategies that want it.
package cache

import (
	"sync"

	"github.com/ebay/wbemql/query/value"
)

// RowCache remembers the rows fetched for object paths during one query
// evaluation. Implementations are safe for concurrent use.
type RowCache interface {
	// AddRow offers the cache a chance to remember the row for path. If it
	// does, it keeps its own copy.
	AddRow(path string, row value.Row)
	// Row returns a copy of the cached row for path, if there is one.
	Row(path string) (value.Row, bool)
	// AddMissing remembers that path doesn't name an object.
	AddMissing(path string)
	// IsMissing returns true if path is known not to name an object.
	IsMissing(path string) bool
}

// New returns an empty RowCache.
func New() RowCache {
	return &cache{
		rows:    make(map[string]value.Row),
		missing: make(map[string]struct{}),
	}
}

type cache struct {
	lock    sync.RWMutex
	rows    map[string]value.Row
	missing map[string]struct{}
}

func (c *cache) AddRow(path string, row value.Row) {
	cp := copyOfRow(row)
	c.lock.Lock()
	c.rows[path] = cp
	delete(c.missing, path)
	c.lock.Unlock()
}

func (c *cache) Row(path string) (value.Row, bool) {
	c.lock.RLock()
	row, exists := c.rows[path]
	c.lock.RUnlock()
	if !exists {
		return nil, false
	}
	// The caller may modify the returned row; don't let that affect the cache.
	return copyOfRow(row), true
}

func (c *cache) AddMissing(path string) {
	c.lock.Lock()
	c.missing[path] = struct{}{}
	c.lock.Unlock()
}

func (c *cache) IsMissing(path string) bool {
	c.lock.RLock()
	_, exists := c.missing[path]
	c.lock.RUnlock()
	return exists
}

func copyOfRow(row value.Row) value.Row {
	res := make(value.Row, len(row))
	for k, v := range row {
		res[k] = v
	}
	return res
}

// Nop is a RowCache that remembers nothing.
type Nop struct{}

// AddRow does nothing.
func (Nop) AddRow(path string, row value.Row) {}

// Row always returns false.
func (Nop) Row(path string) (value.Row, bool) { return nil, false }

// AddMissing does nothing.
func (Nop) AddMissing(path string) {}

// IsMissing always returns false.
func (Nop) IsMissing(path string) bool { return false }
