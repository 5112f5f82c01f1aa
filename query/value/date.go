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
	"fmt"
	"strconv"
	"time"
)

// ParseDate parses the source's date grammar, yyyyMMddHHmmss.ffffff+ooo,
// where the trailing sign and three digits are the offset from UTC in
// minutes. The result carries that offset as its location.
func ParseDate(s string) (time.Time, error) {
	const layoutLen = len("yyyyMMddHHmmss.ffffff+ooo")
	if len(s) != layoutLen || s[14] != '.' {
		return time.Time{}, fmt.Errorf("invalid date %q: expected yyyyMMddHHmmss.ffffff+ooo", s)
	}
	num := func(start, end int) (int, error) {
		n, err := strconv.Atoi(s[start:end])
		if err != nil || s[start] == '+' || s[start] == '-' {
			return 0, fmt.Errorf("invalid date %q: bad digits at offset %d", s, start)
		}
		return n, nil
	}
	var fields [7]int
	bounds := [7][2]int{{0, 4}, {4, 6}, {6, 8}, {8, 10}, {10, 12}, {12, 14}, {15, 21}}
	for i, b := range bounds {
		n, err := num(b[0], b[1])
		if err != nil {
			return time.Time{}, err
		}
		fields[i] = n
	}
	var sign int
	switch s[21] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return time.Time{}, fmt.Errorf("invalid date %q: expected '+' or '-' at offset 21", s)
	}
	offset, err := num(22, 25)
	if err != nil {
		return time.Time{}, err
	}
	month := time.Month(fields[1])
	if month < time.January || month > time.December || fields[2] < 1 || fields[2] > 31 ||
		fields[3] > 23 || fields[4] > 59 || fields[5] > 60 {
		return time.Time{}, fmt.Errorf("invalid date %q: field out of range", s)
	}
	loc := time.FixedZone("", sign*offset*60)
	return time.Date(fields[0], month, fields[2], fields[3], fields[4], fields[5],
		fields[6]*1000, loc), nil
}

// FormatDate is the inverse of ParseDate. The offset is taken from t's
// location and truncated to whole minutes.
func FormatDate(t time.Time) string {
	_, offset := t.Zone()
	sign := byte('+')
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%s.%06d%c%03d", t.Format("20060102150405"), t.Nanosecond()/1000, sign, offset/60)
}
