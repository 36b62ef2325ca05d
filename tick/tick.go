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

// Package tick provides the 32 bit tick counter that drives servo motion.
// The counter is advanced explicitly by the caller and wraps at 2^32.
package tick

import "sync/atomic"

// MaxTick is the largest value the counter holds before wrapping.
const MaxTick = ^uint32(0)

// Source is anything that can report the current tick.
type Source interface {
	Now() uint32
}

// Clock is a tick counter. The zero value is a clock at tick 0.
type Clock struct {
	ticks atomic.Uint32
}

// Now returns the current tick.
func (c *Clock) Now() uint32 {
	return c.ticks.Load()
}

// Advance adds n ticks to the clock, wrapping on overflow.
func (c *Clock) Advance(n uint32) {
	c.ticks.Add(n)
}

// Set forces the counter to a value. Used to test wraparound.
func (c *Clock) Set(t uint32) {
	c.ticks.Store(t)
}

// Elapsed returns the ticks between start and now.
// If now is numerically less than start the counter is assumed to have wrapped.
func Elapsed(start, now uint32) uint32 {
	if now < start {
		return (MaxTick - start) + now
	}
	return now - start
}

// Default is the process wide clock.
var Default Clock

// Now returns the current tick of the default clock.
func Now() uint32 {
	return Default.Now()
}

// Advance moves the default clock forward by n ticks.
func Advance(n uint32) {
	Default.Advance(n)
}
