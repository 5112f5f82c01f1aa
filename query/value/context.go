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
	"errors"
	"fmt"
)

var (
	// ErrDuplicateVariable is wrapped by DuplicateVariableError.
	ErrDuplicateVariable = errors.New("duplicate variable registration")
	// ErrUnregisteredVariable is returned when binding a name that was never
	// registered.
	ErrUnregisteredVariable = errors.New("variable not registered")
)

// DuplicateVariableError is returned by Register for a name that's already
// registered.
type DuplicateVariableError struct {
	Name string
}

func (e *DuplicateVariableError) Error() string {
	return fmt.Sprintf("%v: ?%s", ErrDuplicateVariable, e.Name)
}

// Unwrap allows errors.Is(err, ErrDuplicateVariable).
func (e *DuplicateVariableError) Unwrap() error {
	return ErrDuplicateVariable
}

// Context tracks the variables of one query evaluation. The planner registers
// each variable once; the executor binds values to them. A Context must not
// be shared between goroutines; use Fork to give each branch its own copy.
type Context struct {
	// Names in registration order.
	names []string
	// nil for registered but unbound names.
	vals map[string]*Pair
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{vals: make(map[string]*Pair)}
}

// Register adds name as an unbound variable.
func (c *Context) Register(name string) error {
	if _, exists := c.vals[name]; exists {
		return &DuplicateVariableError{Name: name}
	}
	c.names = append(c.names, name)
	c.vals[name] = nil
	return nil
}

// IsRegistered returns true if name has been registered, whether or not it's
// bound.
func (c *Context) IsRegistered(name string) bool {
	_, exists := c.vals[name]
	return exists
}

// Bind sets the value of a registered variable, replacing any previous value.
// The value is checked with Pair.Check.
func (c *Context) Bind(name string, v Pair) error {
	if _, exists := c.vals[name]; !exists {
		return fmt.Errorf("%w: ?%s", ErrUnregisteredVariable, name)
	}
	if err := v.Check(); err != nil {
		err.(*TypeMismatchError).Name = name
		return err
	}
	c.vals[name] = &v
	return nil
}

// Lookup returns the value bound to name. ok is false if the variable isn't
// registered or isn't bound.
func (c *Context) Lookup(name string) (v Pair, ok bool) {
	p := c.vals[name]
	if p == nil {
		return Pair{}, false
	}
	return *p, true
}

// Names returns the registered names in registration order.
func (c *Context) Names() []string {
	return append([]string(nil), c.names...)
}

// Fork returns an independent copy of the context.
func (c *Context) Fork() *Context {
	res := &Context{
		names: append([]string(nil), c.names...),
		vals:  make(map[string]*Pair, len(c.vals)),
	}
	for name, v := range c.vals {
		res.vals[name] = v
	}
	return res
}

// Row returns all the bound variables.
func (c *Context) Row() Row {
	row := make(Row, len(c.vals))
	for name, v := range c.vals {
		if v != nil {
			row[name] = *v
		}
	}
	return row
}
