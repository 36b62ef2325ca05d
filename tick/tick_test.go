// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tick

import "testing"

func TestElapsed(t *testing.T) {
	tests := []struct {
		start, now, want uint32
	}{
		{0, 0, 0},
		{10, 25, 15},
		{MaxTick - 4, 10, 14},
		{MaxTick, 0, 0},
		{MaxTick, MaxTick, 0},
		{100, 99, MaxTick - 1},
	}
	for _, tc := range tests {
		if got := Elapsed(tc.start, tc.now); got != tc.want {
			t.Errorf("Elapsed(%d, %d) = %d, want %d", tc.start, tc.now, got, tc.want)
		}
	}
}

func TestClockWraps(t *testing.T) {
	var c Clock
	c.Set(MaxTick - 2)
	start := c.Now()
	c.Advance(5)
	if c.Now() != 2 {
		t.Fatalf("wrapped clock = %d, want 2", c.Now())
	}
	if e := Elapsed(start, c.Now()); e != 4 {
		t.Errorf("elapsed over wrap = %d, want 4", e)
	}
}
