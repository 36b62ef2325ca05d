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
	"math"

	"github.com/aamcrae/servo/errcode"
)

// Float is the floating point engine.
type Float struct{}

func (Float) Name() string { return "float" }

func (Float) Supports(c Curve) bool {
	return c <= Bounce
}

func (f Float) Progress(s Shape, c Curve, elapsed, duration uint32) (int32, error) {
	if err := validShape(s); err != nil {
		return 0, err
	}
	if !f.Supports(c) {
		return 0, errcode.New(errcode.NotSupported, "easing", "curve %s", c)
	}
	if elapsed >= duration {
		return Complete, nil
	}
	v, err := Ease(s, c, float64(elapsed)/float64(duration))
	if err != nil {
		return 0, err
	}
	return int32(v * 100), nil
}

// Ease applies shape s of curve c to the time fraction t.
// t values past 1 are complete.
func Ease(s Shape, c Curve, t float64) (float64, error) {
	if err := validShape(s); err != nil {
		return 0, err
	}
	fn, ok := curveFuncs[c]
	if !ok {
		return 0, errcode.New(errcode.NotSupported, "easing", "curve %s", c)
	}
	if t >= 1 {
		return 1, nil
	}
	switch s {
	case Out:
		return 1 - fn(1-t), nil
	case InOut:
		if t <= 0.5 {
			return 0.5 * fn(2*t), nil
		}
		return 1 - 0.5*fn(2-2*t), nil
	case BounceOutIn:
		if t <= 0.5 {
			return 1 - fn(1-2*t), nil
		}
		return 1 - fn(2*t-1), nil
	}
	return fn(t), nil
}

var curveFuncs = map[Curve]func(float64) float64{
	Linear:    linear,
	Quadratic: quadratic,
	Cubic:     cubic,
	Quartic:   quartic,
	Sine:      sine,
	Circular:  circular,
	Back:      back,
	Elastic:   elastic,
	Bounce:    bounce,
}

func linear(t float64) float64 {
	return t
}

func quadratic(t float64) float64 {
	return t * t
}

func cubic(t float64) float64 {
	return quadratic(t) * t
}

func quartic(t float64) float64 {
	return quadratic(quadratic(t))
}

func sine(t float64) float64 {
	return math.Sin((t-1)*math.Pi/2) + 1
}

func circular(t float64) float64 {
	return 1 - math.Sqrt(1-t*t)
}

// back dips below zero before accelerating.
func back(t float64) float64 {
	return t*t*t - t*math.Sin(t*math.Pi)
}

func elastic(t float64) float64 {
	return math.Sin(13*math.Pi/2*t) * math.Pow(2, 10*(t-1))
}

// bounce is the ease in form of the usual bouncing ball curve.
func bounce(t float64) float64 {
	return 1 - bounceOut(1-t)
}

func bounceOut(t float64) float64 {
	const n, d = 7.5625, 2.75
	switch {
	case t < 1/d:
		return n * t * t
	case t < 2/d:
		t -= 1.5 / d
		return n*t*t + 0.75
	case t < 2.5/d:
		t -= 2.25 / d
		return n*t*t + 0.9375
	}
	t -= 2.625 / d
	return n*t*t + 0.984375
}
