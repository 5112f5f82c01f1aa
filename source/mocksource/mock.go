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

// Package mocksource provides a mock implementation of source.Source for unit
// tests. The mock answers requests from a FIFO list of expectations.
package mocksource

import (
	"context"
	"errors"
	"sync"

	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/source"
	"github.com/stretchr/testify/assert"
)

// Expected describes one anticipated call on the Mock and its result.
type Expected struct {
	// Either a *source.SelectRequest or a *source.GetRequest. If nil, any
	// request is accepted.
	Request interface{}
	// Rows returned from a Select. A Get returns the first row, or
	// source.ErrNotFound if there are none.
	Rows []value.Row
	// If set, this is returned instead of any rows.
	Err error
}

// Select returns an expectation for a select request.
func Select(req *source.SelectRequest, rows ...value.Row) Expected {
	return Expected{Request: req, Rows: rows}
}

// Get returns an expectation for a get request. With no rows, the Get
// results in source.ErrNotFound.
func Get(req *source.GetRequest, rows ...value.Row) Expected {
	return Expected{Request: req, Rows: rows}
}

// Err returns an expectation for a request that fails.
func Err(req interface{}, err error) Expected {
	return Expected{Request: req, Err: err}
}

// Mock is a source.Source that checks the requests it receives against its
// list of expectations, in order.
type Mock struct {
	t        assert.TestingT
	lock     sync.Mutex
	expected []Expected
}

var _ source.Source = (*Mock)(nil)

// New constructs a Mock. The returned function asserts that every expectation
// was consumed; tests typically defer it.
func New(t assert.TestingT, expected ...Expected) (*Mock, func()) {
	mock := &Mock{t: t, expected: expected}
	assertDone := func() {
		mock.lock.Lock()
		assert.Equal(t, 0, len(mock.expected), "More requests expected")
		mock.lock.Unlock()
	}
	return mock, assertDone
}

// Expect appends more expectations.
func (mock *Mock) Expect(exp ...Expected) {
	mock.lock.Lock()
	mock.expected = append(mock.expected, exp...)
	mock.lock.Unlock()
}

// Select implements source.Source.
func (mock *Mock) Select(ctx context.Context, req *source.SelectRequest) ([]value.Row, error) {
	exp, err := mock.next(req)
	if err != nil {
		return nil, err
	}
	return exp.Rows, exp.Err
}

// GetByPath implements source.Source.
func (mock *Mock) GetByPath(ctx context.Context, req *source.GetRequest) (value.Row, error) {
	exp, err := mock.next(req)
	if err != nil {
		return nil, err
	}
	if exp.Err != nil {
		return nil, exp.Err
	}
	if len(exp.Rows) == 0 {
		return nil, source.ErrNotFound
	}
	return exp.Rows[0], nil
}

func (mock *Mock) next(req interface{}) (Expected, error) {
	var expected Expected
	mock.lock.Lock()
	ok := len(mock.expected) > 0
	if ok {
		expected, mock.expected = mock.expected[0], mock.expected[1:]
	}
	mock.lock.Unlock()
	if !ok {
		assert.Fail(mock.t, "Unexpected request", "req: %v", req)
		return Expected{}, errors.New("unexpected request")
	}
	if expected.Request != nil {
		assert.Equal(mock.t, expected.Request, req, "Actual request did not match expected")
	}
	return expected, nil
}
