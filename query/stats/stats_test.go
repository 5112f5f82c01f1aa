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

package stats

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ebay/wbemql/util/clocks"
	"github.com/stretchr/testify/assert"
)

func Test_Collector(t *testing.T) {
	clock := clocks.NewMock()
	c := New(clock)
	sel := SelectKey("Win32_Process", []string{"Handle", "Name"})
	assert.Equal(t, "select Win32_Process(Handle,Name)", sel)

	s := c.Start(sel)
	clock.Advance(2 * time.Millisecond)
	s.Finish(3, nil)
	s = c.Start(GetKey(`ns:C.K="1"`))
	clock.Advance(time.Millisecond)
	s.Finish(0, errors.New("boom"))
	s = c.Start(sel)
	clock.Advance(time.Millisecond)
	s.Finish(1, nil)

	assert.Equal(t, []Entry{
		{Key: sel, Calls: 2, Rows: 4, Duration: 3 * time.Millisecond},
		{Key: `get ns:C.K="1"`, Calls: 1, Errors: 1, Duration: time.Millisecond},
	}, c.Entries())

	var out strings.Builder
	c.Dump(&out)
	assert.Equal(t, `
 Call                              | Calls | Rows | Errors | Took |
 --------------------------------- | ----- | ---- | ------ | ---- |
 select Win32_Process(Handle,Name) | 2     | 4    | 0      | 3ms  |
 get ns:C.K="1"                    | 1     | 0    | 1      | 1ms  |
`, "\n"+out.String())
}

func Test_NilCollector(t *testing.T) {
	var c *Collector
	c.Start("x").Finish(1, nil)
	assert.Nil(t, c.Entries())
	var out strings.Builder
	c.Dump(&out)
	assert.Empty(t, out.String())
}
