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

// Package memsource is an in-memory source.Source. Instances are kept in a
// B-tree per class, ordered by object path, and can be loaded from a YAML
// fixture file. It backs the daemon when no live source is configured, and
// serves as a realistic source in tests.
package memsource

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ebay/wbemql/objpath"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/source"
	"github.com/google/btree"
	"github.com/pkg/errors"
)

const btreeDegree = 16

// Store is an in-memory source.Source. It's safe for concurrent use.
type Store struct {
	defaultNamespace string
	lock             sync.RWMutex
	// Keyed by classKey.
	classes map[string]*class
}

type class struct {
	namespace string
	name      string
	keys      []string
	props     map[string]bool
	instances *btree.BTreeG[*instance]
}

type instance struct {
	path string
	row  value.Row
}

var _ source.Source = (*Store)(nil)

// New returns an empty Store. Classes added without a namespace are placed in
// defaultNamespace.
func New(defaultNamespace string) *Store {
	return &Store{
		defaultNamespace: defaultNamespace,
		classes:          make(map[string]*class),
	}
}

// Namespaces and class names are case-insensitive in the source.
func classKey(namespace, name string) string {
	return strings.ToLower(namespace) + ":" + strings.ToLower(name)
}

// AddClass declares a class with the given key properties and (non-key)
// properties. Declaring a class twice is an error.
func (s *Store) AddClass(namespace, name string, keys, props []string) error {
	if namespace == "" {
		namespace = s.defaultNamespace
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	k := classKey(namespace, name)
	if _, exists := s.classes[k]; exists {
		return fmt.Errorf("memsource: class %s:%s already declared", namespace, name)
	}
	c := &class{
		namespace: namespace,
		name:      name,
		keys:      append([]string(nil), keys...),
		props:     make(map[string]bool, len(keys)+len(props)),
		instances: btree.NewG(btreeDegree, func(a, b *instance) bool {
			return a.path < b.path
		}),
	}
	for _, p := range keys {
		c.props[p] = true
	}
	for _, p := range props {
		c.props[p] = true
	}
	s.classes[k] = c
	return nil
}

// Add stores an instance of a declared class, replacing any instance with the
// same key values. Every key property must be present. It returns the new
// instance's path.
func (s *Store) Add(namespace, className string, props value.Row) (string, error) {
	if namespace == "" {
		namespace = s.defaultNamespace
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	c := s.classes[classKey(namespace, className)]
	if c == nil {
		return "", fmt.Errorf("memsource: class %s:%s not declared", namespace, className)
	}
	keys := make([]objpath.Key, len(c.keys))
	for i, k := range c.keys {
		v, ok := props[k]
		if !ok || v.IsAbsent() {
			return "", fmt.Errorf("memsource: %s instance is missing key %s", className, k)
		}
		keys[i] = objpath.Key{Name: k, Value: v.Val}
	}
	path := objpath.Build(c.namespace, c.name, keys)
	row := make(value.Row, len(props)+1)
	for k, v := range props {
		if !c.props[k] {
			return "", fmt.Errorf("memsource: class %s has no property %s", className, k)
		}
		if !v.IsAbsent() {
			if err := row.Put(k, v); err != nil {
				return "", errors.Wrapf(err, "memsource: %s instance %s", className, path)
			}
		}
	}
	row[source.PathColumn] = value.NewNode(path)
	c.instances.ReplaceOrInsert(&instance{path: path, row: row})
	return path, nil
}

// Select implements source.Source.
func (s *Store) Select(ctx context.Context, req *source.SelectRequest) ([]value.Row, error) {
	namespace := req.Namespace
	if namespace == "" {
		namespace = s.defaultNamespace
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	c := s.classes[classKey(namespace, req.Class)]
	if c == nil {
		return nil, fmt.Errorf("memsource: invalid class %s:%s", namespace, req.Class)
	}
	for _, w := range req.Where {
		if !c.props[w.Property] {
			return nil, fmt.Errorf("memsource: class %s has no property %s", c.name, w.Property)
		}
	}
	var rows []value.Row
	var err error
	c.instances.Ascend(func(inst *instance) bool {
		for _, w := range req.Where {
			if !sameValue(inst.row[w.Property], w.Value) {
				return true
			}
		}
		var row value.Row
		row, err = source.Project(inst.row, req.Columns, req.AllColumns, c.hasProperty)
		if err != nil {
			return false
		}
		rows = append(rows, row)
		return ctx.Err() == nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "memsource: select on %s", c.name)
	}
	return rows, ctx.Err()
}

// GetByPath implements source.Source.
func (s *Store) GetByPath(ctx context.Context, req *source.GetRequest) (value.Row, error) {
	path, err := objpath.Parse(req.Path)
	if err != nil {
		return nil, err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	c := s.classes[classKey(path.Namespace, path.Class)]
	if c == nil {
		return nil, errors.Wrapf(source.ErrNotFound, "memsource: no class for %s", req.Path)
	}
	canonical, ok := c.canonicalPath(path)
	if !ok {
		return nil, errors.Wrapf(source.ErrNotFound, "memsource: bad keys in %s", req.Path)
	}
	inst, found := c.instances.Get(&instance{path: canonical})
	if !found {
		return nil, errors.Wrapf(source.ErrNotFound, "memsource: %s", req.Path)
	}
	row, err := source.Project(inst.row, req.Columns, req.AllColumns, c.hasProperty)
	if err != nil {
		return nil, errors.Wrapf(err, "memsource: get on %s", c.name)
	}
	return row, nil
}

func (c *class) hasProperty(name string) bool {
	return c.props[name]
}

// canonicalPath rewrites path with the class's own spelling of the namespace
// and class name and with the keys in declaration order.
func (c *class) canonicalPath(path *objpath.Path) (string, bool) {
	if len(path.Keys) != len(c.keys) {
		return "", false
	}
	keys := make([]objpath.Key, len(c.keys))
	for i, k := range c.keys {
		v, ok := path.Get(k)
		if !ok {
			return "", false
		}
		keys[i] = objpath.Key{Name: k, Value: v}
	}
	return objpath.Build(c.namespace, c.name, keys), true
}

// sameValue compares a stored value against a constraint. Values are compared
// by their string form, except that two object paths naming the same instance
// are equal even if their keys are in a different order.
func sameValue(stored, want value.Pair) bool {
	if stored.IsAbsent() {
		return false
	}
	if stored.Val == want.Val {
		return true
	}
	if stored.Type != value.Node || want.Type != value.Node {
		return false
	}
	a, err := objpath.Parse(stored.Val)
	if err != nil {
		return false
	}
	b, err := objpath.Parse(want.Val)
	if err != nil {
		return false
	}
	if !strings.EqualFold(a.Namespace, b.Namespace) || !strings.EqualFold(a.Class, b.Class) ||
		len(a.Keys) != len(b.Keys) {
		return false
	}
	for _, k := range a.Keys {
		if v, ok := b.Get(k.Name); !ok || v != k.Value {
			return false
		}
	}
	return true
}
