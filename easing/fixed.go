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

package easing

import (
	"github.com/aamcrae/servo/errcode"
)

// Fixed is the integer engine. Values are percentages in 0..100.
type Fixed struct{}

func (Fixed) Name() string { return "fixed" }

func (Fixed) Supports(c Curve) bool {
	return c == Quadratic || c == Quartic
}

func (f Fixed) Progress(s Shape, c Curve, elapsed, duration uint32) (int32, error) {
	if err := validShape(s); err != nil {
		return 0, err
	}
	if !f.Supports(c) {
		return 0, errcode.New(errcode.NotSupported, "easing", "curve %s needs floating point", c)
	}
	if elapsed >= duration {
		return Complete, nil
	}
	p := uint32(uint64(elapsed) * 100 / uint64(duration))
	fn := fixedQuadratic
	if c == Quartic {
		fn = fixedQuartic
	}
	var v uint32
	switch s {
	case In:
		v = fn(p)
	case Out:
		v = 100 - fn(100-p)
	case InOut:
		if p <= 50 {
			v = fn(2*p) / 2
		} else {
			v = 100 - fn(200-2*p)/2
		}
	case BounceOutIn:
		if p <= 50 {
			v = 100 - fn(100-2*p)
		} else {
			v = 100 - fn(2*p-100)
		}
	}
	return int32(v), nil
}

func fixedQuadratic(p uint32) uint32 {
	return p * p / 100
}

func fixedQuartic(p uint32) uint32 {
	return fixedQuadratic(fixedQuadratic(p))
}
