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

// Package easing converts the elapsed time of a move into a completion
// percentage. A Curve is the base function and a Shape combines it into
// an ease in, ease out or symmetric profile.
//
// Two engines are provided. Float supports every curve except Precision.
// Fixed uses integer arithmetic only and supports Quadratic and Quartic.
// Default is selected at build time with the nofp tag.
package easing

import (
	"fmt"
	"strings"

	"github.com/aamcrae/servo/errcode"
)

// Shape selects how a curve is applied over the move.
type Shape uint8

const (
	In Shape = iota
	Out
	InOut
	BounceOutIn
)

// Curve selects the base easing function.
type Curve uint8

const (
	Linear Curve = iota
	Quadratic
	Cubic
	Quartic
	Sine
	Circular
	Back
	Elastic
	Bounce
	Precision
)

// Complete is the percentage returned once a move has finished.
const Complete = 100

// Engine computes the completion percentage for a move that has run for
// elapsed ticks out of duration. Curves such as Back and Elastic may
// return values outside 0..100 part way through a move. Once elapsed
// reaches duration every engine returns Complete.
type Engine interface {
	Name() string
	Supports(c Curve) bool
	Progress(s Shape, c Curve, elapsed, duration uint32) (int32, error)
}

var shapeNames = []string{"in", "out", "in-out", "bounce-out-in"}

var curveNames = []string{"linear", "quadratic", "cubic", "quartic", "sine", "circular", "back", "elastic", "bounce", "precision"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", s)
}

func (c Curve) String() string {
	if int(c) < len(curveNames) {
		return curveNames[c]
	}
	return fmt.Sprintf("curve(%d)", c)
}

// ParseShape accepts the names printed by Shape.String.
func ParseShape(s string) (Shape, error) {
	for i, n := range shapeNames {
		if strings.EqualFold(s, n) {
			return Shape(i), nil
		}
	}
	return 0, errcode.New(errcode.NotSupported, "parse shape", "%q", s)
}

// ParseCurve accepts the names printed by Curve.String.
func ParseCurve(s string) (Curve, error) {
	for i, n := range curveNames {
		if strings.EqualFold(s, n) {
			return Curve(i), nil
		}
	}
	return 0, errcode.New(errcode.NotSupported, "parse curve", "%q", s)
}

func validShape(s Shape) error {
	if s > BounceOutIn {
		return errcode.New(errcode.NotSupported, "easing", "unknown shape %d", s)
	}
	return nil
}
