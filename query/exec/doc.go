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

/*
Package exec evaluates query plans against the management source.

Flat mode walks the steps of one plan depth first. A step whose main variable
is already bound fetches that object by path; any other step selects the
instances of its class that match its constraints, after substituting the
values bound by earlier steps. Every row a step returns extends the current
branch with its own copy of the variable context, and a branch that reaches
the end of the plan emits a row holding every bound variable.

Tree mode evaluates a tree of groups: each Join node runs its own plan in
flat mode and combines the result with the results of its children, a Union
node concatenates the results of its arms, and the Projection at the root
passes its child's result through.

A point lookup whose object doesn't exist ends only the branch that asked for
it. Any other error ends the whole evaluation.
*/
package exec
