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

package value

import (
	"sort"
	"strings"
)

// Row is one binding of variable (or column) names to values.
type Row map[string]Pair

// Put stores v under name after checking it with Pair.Check.
func (r Row) Put(name string, v Pair) error {
	if err := v.Check(); err != nil {
		err.(*TypeMismatchError).Name = name
		return err
	}
	r[name] = v
	return nil
}

// Typed setters for Put.
func (r Row) PutString(name, v string) error        { return r.Put(name, NewString(v)) }
func (r Row) PutInt(name string, v int64) error     { return r.Put(name, NewInt(v)) }
func (r Row) PutFloat(name string, v float64) error { return r.Put(name, NewFloat(v)) }
func (r Row) PutBool(name string, v bool) error     { return r.Put(name, NewBool(v)) }
func (r Row) PutNode(name, v string) error          { return r.Put(name, NewNode(v)) }

// PutDate stores a date in the source's date grammar; see ParseDate.
func (r Row) PutDate(name, v string) error {
	return r.Put(name, Pair{Val: v, Type: Date})
}

// Names returns the names in the row in sorted order.
func (r Row) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compatible returns true if every name present in both r and other is bound
// to the same value.
func (r Row) Compatible(other Row) bool {
	small, large := r, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for name, v := range small {
		if ov, ok := large[name]; ok && ov != v {
			return false
		}
	}
	return true
}

// Merge returns a new row with the bindings of both r and other. Where both
// have a name, other's value wins; callers normally check Compatible first.
func (r Row) Merge(other Row) Row {
	res := make(Row, len(r)+len(other))
	for name, v := range r {
		res[name] = v
	}
	for name, v := range other {
		res[name] = v
	}
	return res
}

func (r Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range r.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(r[name].String())
	}
	b.WriteByte('}')
	return b.String()
}

// Solution is an ordered list of rows. Order is significant and duplicates
// are kept.
type Solution []Row

// Append adds row to the end of the solution.
func (s Solution) Append(row Row) Solution {
	return append(s, row)
}

// Product combines every row of s with every row of other, in order: all of
// other's rows for s[0] first, then s[1], and so on. Pairs of rows that bind
// a shared name to different values are left out, so for rows with no names
// in common this is the plain cartesian product.
func (s Solution) Product(other Solution) Solution {
	res := make(Solution, 0, len(s)*len(other))
	for _, left := range s {
		for _, right := range other {
			if left.Compatible(right) {
				res = append(res, left.Merge(right))
			}
		}
	}
	return res
}

// Variables returns the sorted set of names bound by any row.
func (s Solution) Variables() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, row := range s {
		for name := range row {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
