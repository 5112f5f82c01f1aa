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

package planner

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors wrapped by PatternError. Use errors.Is to test for them.
var (
	// ErrInconsistentClassName means the predicates and rdf:type of one
	// subject name different classes.
	ErrInconsistentClassName = errors.New("inconsistent class name")
	// ErrDuplicateWildcardPredicate means one subject has more than one
	// variable predicate.
	ErrDuplicateWildcardPredicate = errors.New("duplicate wildcard predicate")
	// ErrUnsupportedAnonymousSubject means a blank node subject is used with
	// a predicate from the management ontology.
	ErrUnsupportedAnonymousSubject = errors.New("unsupported anonymous subject")
	// ErrUnsupportedPropertyPath means an arbitrary length path was used.
	ErrUnsupportedPropertyPath = errors.New("unsupported property path")
	// ErrUnknownClass means the class of a subject can't be determined.
	ErrUnknownClass = errors.New("unable to determine class")
	// ErrUnboundDependency means a plan step refers to a variable that no
	// earlier step binds.
	ErrUnboundDependency = errors.New("plan step depends on an unbound variable")
	// ErrFlatUnion means flat mode was asked to plan a query with UNION.
	ErrFlatUnion = errors.New("flat mode doesn't support UNION, use tree mode")
)

// PatternError describes a problem with the triple patterns about one
// subject.
type PatternError struct {
	// One of the sentinel errors above.
	Err error
	// The subject, as written in the query.
	Subject string
	// The offending predicate, if any.
	Predicate string
	// The class names involved, if any.
	Classes []string
}

func (e *PatternError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v for %s", e.Err, e.Subject)
	if len(e.Classes) > 0 {
		fmt.Fprintf(&b, ": classes %s", strings.Join(e.Classes, " and "))
	}
	if e.Predicate != "" {
		fmt.Fprintf(&b, " (predicate %s)", e.Predicate)
	}
	return b.String()
}

// Unwrap allows errors.Is to match the sentinel error.
func (e *PatternError) Unwrap() error {
	return e.Err
}
