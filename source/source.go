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

// Package source defines the contract for the live management data source
// that queries are answered from. The source is addressed by class name,
// equality constraints, and object paths; it has no notion of joins.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ebay/wbemql/query/value"
)

// PathColumn is the implicit column that every returned row carries. It holds
// the object path of the instance, typed as a value.Node.
const PathColumn = "__PATH"

// ErrNotFound is returned by GetByPath when no instance has the given path.
var ErrNotFound = errors.New("object not found")

// Equality constrains a property to be equal to a value.
type Equality struct {
	Property string
	Value    value.Pair
}

func (e Equality) String() string {
	return fmt.Sprintf("%s=%v", e.Property, e.Value)
}

// SelectRequest asks for the instances of a class that satisfy every
// constraint in Where. An empty Where selects all instances.
type SelectRequest struct {
	Namespace string
	Class     string
	// The properties to return for each instance, in addition to PathColumn.
	Columns []string
	// If set, every property of each instance is returned and Columns is
	// ignored.
	AllColumns bool
	Where      []Equality
}

func (r *SelectRequest) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "select %s:%s", r.Namespace, r.Class)
	if r.AllColumns {
		b.WriteString(" *")
	} else {
		fmt.Fprintf(&b, " %v", r.Columns)
	}
	if len(r.Where) > 0 {
		fmt.Fprintf(&b, " where %v", r.Where)
	}
	return b.String()
}

// GetRequest asks for one instance by its object path.
type GetRequest struct {
	Path       string
	Columns    []string
	AllColumns bool
}

func (r *GetRequest) String() string {
	if r.AllColumns {
		return fmt.Sprintf("get %s *", r.Path)
	}
	return fmt.Sprintf("get %s %v", r.Path, r.Columns)
}

// Source is the management data source. Both calls are equality only.
// Returned rows contain exactly the requested columns plus PathColumn, except
// when AllColumns is set. A property that exists but has no value is returned
// as the zero value.Pair.
type Source interface {
	Select(ctx context.Context, req *SelectRequest) ([]value.Row, error)
	// GetByPath returns ErrNotFound, possibly wrapped, if the object doesn't
	// exist.
	GetByPath(ctx context.Context, req *GetRequest) (value.Row, error)
}

// Project returns a row with only the requested columns of instance, plus its
// path. It returns an error naming the first requested column that the
// instance's class doesn't have, as reported by hasProperty.
func Project(instance value.Row, columns []string, all bool, hasProperty func(string) bool) (value.Row, error) {
	if all {
		res := make(value.Row, len(instance))
		for k, v := range instance {
			res[k] = v
		}
		return res, nil
	}
	res := make(value.Row, len(columns)+1)
	for _, c := range columns {
		if !hasProperty(c) {
			return nil, fmt.Errorf("no such property: %s", c)
		}
		res[c] = instance[c]
	}
	res[PathColumn] = instance[PathColumn]
	return res, nil
}

// SortedColumns returns a sorted copy of columns with duplicates removed.
func SortedColumns(columns []string) []string {
	res := append([]string(nil), columns...)
	sort.Strings(res)
	out := res[:0]
	for i, c := range res {
		if i == 0 || c != res[i-1] {
			out = append(out, c)
		}
	}
	return out
}
