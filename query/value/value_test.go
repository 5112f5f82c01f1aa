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
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procPath = `root/cimv2:Win32_Process.Handle="4"`

func Test_Check(t *testing.T) {
	tests := []struct {
		in     Pair
		expErr string
	}{
		{in: NewNode(procPath)},
		{in: NewNode("http://example.org/x")},
		{in: NewNode("urn:uuid:1234")},
		{in: NewNode("System"), expErr: "NODE value is neither an object path nor a URI"},
		{in: NewString("System")},
		{in: NewString("http://example.org/x")},
		{in: NewString(procPath), expErr: "value looks like an object path but isn't typed as NODE"},
		{in: Pair{Val: procPath, Type: Int}, expErr: "value looks like an object path but isn't typed as NODE"},
		{in: NewInt(-42)},
		{in: Pair{Val: "4.5", Type: Int}, expErr: `strconv.ParseInt: parsing "4.5": invalid syntax`},
		{in: NewFloat(4.5)},
		{in: Pair{Val: "x", Type: Float}, expErr: `strconv.ParseFloat: parsing "x": invalid syntax`},
		{in: NewBool(true)},
		{in: Pair{Val: "TRUE", Type: Bool}},
		{in: Pair{Val: "yes", Type: Bool}, expErr: `strconv.ParseBool: parsing "yes": invalid syntax`},
		{in: Pair{Val: "20190102030405.123456+060", Type: Date}},
		{in: Pair{Val: "2019", Type: Date}, expErr: `invalid date "2019": expected yyyyMMddHHmmss.ffffff+ooo`},
		{in: Pair{}, expErr: "no valid type"},
	}
	for _, test := range tests {
		t.Run(test.in.String(), func(t *testing.T) {
			err := test.in.Check()
			if test.expErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTypeMismatch))
			assert.Equal(t, test.expErr, err.(*TypeMismatchError).Reason)
		})
	}
}

func Test_RowPut(t *testing.T) {
	row := make(Row)
	assert.NoError(t, row.PutString("Name", "System"))
	assert.NoError(t, row.PutInt("ParentProcessId", 0))
	assert.NoError(t, row.PutFloat("Load", 0.25))
	assert.NoError(t, row.PutBool("Critical", true))
	assert.NoError(t, row.PutDate("CreationDate", "20190102030405.000000+000"))
	assert.NoError(t, row.PutNode("__PATH", procPath))
	err := row.PutString("Dependent", procPath)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.EqualError(t, err, `type mismatch for Dependent: "`+
		`root/cimv2:Win32_Process.Handle=\"4\"":STRING: value looks like an object path but isn't typed as NODE`)
	assert.NotContains(t, row, "Dependent")
	assert.Equal(t, []string{"CreationDate", "Critical", "Load", "Name", "ParentProcessId", "__PATH"}, row.Names())
}

func Test_TypeJSON(t *testing.T) {
	bytes, err := json.Marshal(NewNode(procPath))
	require.NoError(t, err)
	assert.Equal(t, `{"value":"root/cimv2:Win32_Process.Handle=\"4\"","type":"NODE"}`, string(bytes))
	var p Pair
	require.NoError(t, json.Unmarshal([]byte(`{"value":"7","type":"int"}`), &p))
	assert.Equal(t, NewInt(7), p)
	assert.Error(t, json.Unmarshal([]byte(`{"value":"7","type":"bogus"}`), &p))
	assert.Equal(t, "Type(42)", Type(42).String())
}

func Test_Product(t *testing.T) {
	a1 := Row{"a": NewInt(1)}
	a2 := Row{"a": NewInt(2)}
	b1 := Row{"b": NewInt(1)}
	b2 := Row{"b": NewInt(2)}
	left := Solution{}.Append(a1).Append(a2)
	right := Solution{b1, b2}
	assert.Equal(t, Solution{
		{"a": NewInt(1), "b": NewInt(1)},
		{"a": NewInt(1), "b": NewInt(2)},
		{"a": NewInt(2), "b": NewInt(1)},
		{"a": NewInt(2), "b": NewInt(2)},
	}, left.Product(right))

	shared := Solution{{"a": NewInt(2), "c": NewString("x")}}
	assert.Equal(t, Solution{{"a": NewInt(2), "c": NewString("x")}}, left.Product(shared))
	assert.Empty(t, left.Product(nil))
	assert.Equal(t, left, Solution{{}}.Product(left))
	assert.Equal(t, []string{"a", "b"}, left.Product(right).Variables())
}

func Test_Context(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.Register("p"))
	require.NoError(t, ctx.Register("n"))
	err := ctx.Register("p")
	assert.True(t, errors.Is(err, ErrDuplicateVariable))
	assert.EqualError(t, err, "duplicate variable registration: ?p")
	assert.True(t, ctx.IsRegistered("n"))
	assert.False(t, ctx.IsRegistered("x"))

	_, ok := ctx.Lookup("p")
	assert.False(t, ok)
	require.NoError(t, ctx.Bind("p", NewNode(procPath)))
	v, ok := ctx.Lookup("p")
	assert.True(t, ok)
	assert.Equal(t, NewNode(procPath), v)

	err = ctx.Bind("x", NewString("a"))
	assert.True(t, errors.Is(err, ErrUnregisteredVariable))
	err = ctx.Bind("n", NewString(procPath))
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.Equal(t, "n", err.(*TypeMismatchError).Name)

	fork := ctx.Fork()
	require.NoError(t, fork.Bind("n", NewString("System")))
	require.NoError(t, fork.Register("extra"))
	assert.Equal(t, Row{"p": NewNode(procPath)}, ctx.Row())
	assert.Equal(t, Row{"p": NewNode(procPath), "n": NewString("System")}, fork.Row())
	assert.Equal(t, []string{"p", "n"}, ctx.Names())
	assert.Equal(t, []string{"p", "n", "extra"}, fork.Names())
}

func Test_ParseDate(t *testing.T) {
	d, err := ParseDate("20190102030405.123456-300")
	require.NoError(t, err)
	_, offset := d.Zone()
	assert.Equal(t, -5*3600, offset)
	assert.Equal(t, time.Date(2019, 1, 2, 8, 4, 5, 123456000, time.UTC), d.UTC())
	assert.Equal(t, "20190102030405.123456-300", FormatDate(d))

	for _, bad := range []string{
		"",
		"2019010203040512345+000",
		"20191302030405.123456+000",
		"2019010203040x.123456+000",
		"20190102030405.123456*000",
		"20190102030405.123456+0x0",
		"201901020304+5.123456+000",
	} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func Test_Term(t *testing.T) {
	tests := []struct {
		in  Pair
		exp Term
		nt  string
	}{
		{NewNode(procPath), Term{Kind: IRI, Value: procPath},
			`<root/cimv2:Win32_Process.Handle=\u00224\u0022>`},
		{NewString("a \"b\"\n"), Term{Kind: Literal, Value: "a \"b\"\n"}, `"a \"b\"\n"`},
		{NewInt(4), Term{Kind: Literal, Value: "4", Datatype: XSDInteger},
			`"4"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{NewFloat(0.5), Term{Kind: Literal, Value: "0.5", Datatype: XSDDouble},
			`"0.5"^^<http://www.w3.org/2001/XMLSchema#double>`},
		{Pair{Val: "TRUE", Type: Bool}, Term{Kind: Literal, Value: "true", Datatype: XSDBoolean},
			`"true"^^<http://www.w3.org/2001/XMLSchema#boolean>`},
		{Pair{Val: "20190102030405.500000+060", Type: Date},
			Term{Kind: Literal, Value: "2019-01-02T04:34:05.5+02:30", Datatype: XSDDateTime},
			`"2019-01-02T04:34:05.5+02:30"^^<http://www.w3.org/2001/XMLSchema#dateTime>`},
		{Pair{Val: "20190102030405.000000-300", Type: Date},
			Term{Kind: Literal, Value: "2019-01-02T10:34:05+02:30", Datatype: XSDDateTime},
			`"2019-01-02T10:34:05+02:30"^^<http://www.w3.org/2001/XMLSchema#dateTime>`},
	}
	local := time.FixedZone("local", 150*60)
	for _, test := range tests {
		t.Run(test.in.String(), func(t *testing.T) {
			term, err := test.in.TermIn(local)
			require.NoError(t, err)
			assert.Equal(t, test.exp, term)
			assert.Equal(t, test.nt, term.String())
		})
	}
	_, err := Pair{}.Term()
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	// Term renders dates in the process's local time.
	term, err := Pair{Val: "20190102030405.500000+060", Type: Date}.Term()
	require.NoError(t, err)
	inLocal, err := ParseXSDDateTime(term.Value)
	require.NoError(t, err)
	assert.True(t, time.Date(2019, 1, 2, 2, 4, 5, 500000000, time.UTC).Equal(inLocal))
	_, wantOffset := inLocal.In(time.Local).Zone()
	_, gotOffset := inLocal.Zone()
	assert.Equal(t, wantOffset, gotOffset)
	parsed, err := ParseXSDDateTime("2019-01-02T03:04:05.5+01:00")
	require.NoError(t, err)
	assert.Equal(t, 500000000, parsed.Nanosecond())
}
