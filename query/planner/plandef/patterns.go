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

// Package plandef defines the data model shared by the planner and the
// executor: object patterns, plan steps, and the tree of groups that tree mode
// evaluates.
package plandef

import (
	"fmt"
	"strings"

	"github.com/ebay/wbemql/query/value"
)

// Member is one predicate/object pair of an ObjectPattern.
type Member struct {
	// The property name, with the ontology prefix and any "Class." prefix
	// removed. Empty for a wildcard member.
	Property string
	// The predicate IRI as written in the query. Empty for a wildcard member.
	PredicateIRI string
	// For a wildcard member, the name of the predicate variable.
	PredicateVar string
	// Exactly one of ObjectVar and Object is set.
	ObjectVar string
	Object    value.Pair
}

// IsWildcard returns true if the member's predicate is a variable, which asks
// for every property of the object.
func (m Member) IsWildcard() bool {
	return m.PredicateVar != ""
}

// IsVariableObject returns true if the object is a variable rather than a
// constant.
func (m Member) IsVariableObject() bool {
	return m.ObjectVar != ""
}

func (m Member) String() string {
	pred := m.Property
	if m.IsWildcard() {
		pred = "?" + m.PredicateVar
	}
	if m.IsVariableObject() {
		return fmt.Sprintf("%s ?%s", pred, m.ObjectVar)
	}
	return fmt.Sprintf("%s %v", pred, m.Object)
}

// ObjectPattern is the set of triple patterns about one subject: one object
// of one class in the management source.
type ObjectPattern struct {
	// The subject variable. For a constant subject, a synthesized variable
	// name that starts with ConstantPrefix.
	Variable string
	// The object path, if the subject is a constant.
	ConstantSubject string
	Namespace       string
	Class           string
	// In the order the triples appeared in the query.
	Members []Member
}

// Variable name prefixes for names the planner synthesizes. These can't
// collide with query variables, whose names are made of letters, digits, and
// underscores.
const (
	ConstantPrefix = "#c"
	HiddenPrefix   = "#h"
)

// IsInternal returns true if name is a variable synthesized by the planner.
func IsInternal(name string) bool {
	return strings.HasPrefix(name, "#")
}

// IsConstant returns true if the subject of the pattern is an object path
// given in the query.
func (p *ObjectPattern) IsConstant() bool {
	return p.ConstantSubject != ""
}

// Wildcard returns the pattern's wildcard member, if any.
func (p *ObjectPattern) Wildcard() (Member, bool) {
	for _, m := range p.Members {
		if m.IsWildcard() {
			return m, true
		}
	}
	return Member{}, false
}

func (p *ObjectPattern) String() string {
	var b strings.Builder
	if p.IsConstant() {
		fmt.Fprintf(&b, "<%s>", p.ConstantSubject)
	} else {
		fmt.Fprintf(&b, "?%s", p.Variable)
	}
	fmt.Fprintf(&b, " %s:%s {", p.Namespace, p.Class)
	for i, m := range p.Members {
		if i > 0 {
			b.WriteString(";")
		}
		b.WriteString(" ")
		b.WriteString(m.String())
	}
	b.WriteString(" }")
	return b.String()
}
