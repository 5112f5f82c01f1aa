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

package exec

import (
	"errors"
	"fmt"
)

// ErrInconsistentRowShape is wrapped by RowShapeError.
var ErrInconsistentRowShape = errors.New("inconsistent row shape")

// RowShapeError means a strategy returned a row that doesn't have the
// columns that were requested from it.
type RowShapeError struct {
	// The name of the strategy that returned the row.
	Strategy string
	Class    string
	Variable string
	// The requested properties. The path column is implied.
	Want []string
	Got  []string
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("%v from %s for ?%s (class %s): requested %v plus the path, got %v",
		ErrInconsistentRowShape, e.Strategy, e.Variable, e.Class, e.Want, e.Got)
}

// Unwrap allows errors.Is(err, ErrInconsistentRowShape).
func (e *RowShapeError) Unwrap() error {
	return ErrInconsistentRowShape
}

// ErrUnboundVariable means a step needed the value of a variable that no
// earlier step bound. The planner verifies plans so this indicates a plan
// that was built or modified by hand.
var ErrUnboundVariable = errors.New("variable is not bound")
