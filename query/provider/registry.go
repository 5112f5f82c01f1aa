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

// Package provider chooses how each plan step is answered. Specialized
// strategies, registered in order, get the first chance to claim a step by
// its shape; anything unclaimed goes to a generic strategy that calls the
// management source directly.
package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/ebay/wbemql/query/cache"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/source"
	log "github.com/sirupsen/logrus"
)

// Provider answers selects: rows of a class matching equality constraints.
type Provider interface {
	// Name identifies the provider in logs and debug output.
	Name() string
	// Handles returns true if the provider can answer a select on class
	// constrained by exactly the given where properties, which are sorted.
	Handles(class string, wheres []string) bool
	// Select has the same contract as source.Source.Select.
	Select(ctx context.Context, req *source.SelectRequest) ([]value.Row, error)
}

// Getter answers point lookups: one object's properties given its path.
type Getter interface {
	// Name identifies the getter in logs and debug output.
	Name() string
	// Handles returns true if the getter can fetch the given columns of an
	// instance of class. allColumns asks for every property.
	Handles(class string, columns []string, allColumns bool) bool
	// Get has the same contract as source.Source.GetByPath. The cache is
	// scoped to the current query evaluation; getters may use it to avoid
	// repeated lookups of the same path.
	Get(ctx context.Context, req *source.GetRequest, rc cache.RowCache) (value.Row, error)
}

// SelectSignature matches selects on one class with exactly one set of where
// properties. Specialized providers usually embed one.
type SelectSignature struct {
	Class  string
	Wheres []string
}

// Handles implements part of Provider.
func (sig SelectSignature) Handles(class string, wheres []string) bool {
	if !strings.EqualFold(sig.Class, class) || len(sig.Wheres) != len(wheres) {
		return false
	}
	want := append([]string(nil), sig.Wheres...)
	sort.Strings(want)
	for i := range want {
		if want[i] != wheres[i] {
			return false
		}
	}
	return true
}

// GetSignature matches point lookups on one class for any subset of a fixed
// set of columns.
type GetSignature struct {
	Class   string
	Columns []string
}

// Handles implements part of Getter.
func (sig GetSignature) Handles(class string, columns []string, allColumns bool) bool {
	if allColumns || !strings.EqualFold(sig.Class, class) {
		return false
	}
	for _, c := range columns {
		found := false
		for _, s := range sig.Columns {
			if c == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Registry resolves plan steps to strategies. It's safe for concurrent use.
type Registry struct {
	providers []Provider
	getters   []Getter
	selects   genericProvider
	gets      genericGetter
	lock      sync.Mutex // protects unmatched
	// Hash of the shape description -> description.
	unmatched map[uint64]string
}

// NewRegistry returns a Registry that consults providers and getters in the
// order given, and falls back to src when none of them match.
func NewRegistry(src source.Source, providers []Provider, getters []Getter) *Registry {
	return &Registry{
		providers: append([]Provider(nil), providers...),
		getters:   append([]Getter(nil), getters...),
		selects:   genericProvider{src: src},
		gets:      genericGetter{src: src},
		unmatched: make(map[uint64]string),
	}
}

// SelectFor returns the first registered Provider that handles the shape,
// or the generic provider. wheres must be sorted.
func (r *Registry) SelectFor(class string, wheres []string) Provider {
	for _, p := range r.providers {
		if p.Handles(class, wheres) {
			return p
		}
	}
	r.noteUnmatched(fmt.Sprintf("select %s where %v", class, wheres))
	return r.selects
}

// GetterFor returns the first registered Getter that handles the shape, or
// the generic getter.
func (r *Registry) GetterFor(class string, columns []string, allColumns bool) Getter {
	for _, g := range r.getters {
		if g.Handles(class, columns, allColumns) {
			return g
		}
	}
	if allColumns {
		r.noteUnmatched(fmt.Sprintf("get %s *", class))
	} else {
		r.noteUnmatched(fmt.Sprintf("get %s %v", class, columns))
	}
	return r.gets
}

// noteUnmatched logs a warning the first time each distinct shape falls
// through to the generic strategy.
func (r *Registry) noteUnmatched(shape string) {
	h := xxhash.Sum64String(shape)
	r.lock.Lock()
	_, seen := r.unmatched[h]
	if !seen {
		r.unmatched[h] = shape
	}
	r.lock.Unlock()
	if !seen {
		log.WithFields(log.Fields{
			"shape": shape,
		}).Warn("No specialized strategy for query shape, using the generic one")
	}
}

// Unmatched returns the distinct shapes that fell through to the generic
// strategy so far, sorted.
func (r *Registry) Unmatched() []string {
	r.lock.Lock()
	res := make([]string, 0, len(r.unmatched))
	for _, shape := range r.unmatched {
		res = append(res, shape)
	}
	r.lock.Unlock()
	sort.Strings(res)
	return res
}

// IsGeneric returns true if s is one of the registry's fallback strategies.
func IsGeneric(s interface{}) bool {
	switch s.(type) {
	case genericProvider, genericGetter:
		return true
	}
	return false
}

// genericProvider answers every select by calling the source.
type genericProvider struct {
	src source.Source
}

func (genericProvider) Name() string {
	return "generic"
}

func (genericProvider) Handles(string, []string) bool {
	return true
}

func (g genericProvider) Select(ctx context.Context, req *source.SelectRequest) ([]value.Row, error) {
	return g.src.Select(ctx, req)
}

// genericGetter answers every point lookup by calling the source.
type genericGetter struct {
	src source.Source
}

func (genericGetter) Name() string {
	return "generic"
}

func (genericGetter) Handles(string, []string, bool) bool {
	return true
}

func (g genericGetter) Get(ctx context.Context, req *source.GetRequest, rc cache.RowCache) (value.Row, error) {
	return g.src.GetByPath(ctx, req)
}
