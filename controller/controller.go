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

// Package controller defines the operations a PWM backend provides to the
// servo motion code, and a registry assigning each backend a small integer id.
package controller

import (
	"github.com/aamcrae/servo/errcode"
)

// Info describes a backend. The two calibration values define the linear
// mapping of PWM units onto the 0 to 180 degree angle range.
type Info struct {
	Name              string `yaml:"name" json:"name"`
	ID                int    `yaml:"id" json:"id"`
	MaxServo          int    `yaml:"max_servo" json:"max_servo"`
	UnitsFor0Degree   uint32 `yaml:"units_for_0_degree" json:"units_for_0_degree"`
	UnitsFor180Degree uint32 `yaml:"units_for_180_degree" json:"units_for_180_degree"`
}

// Controller is a PWM backend.
//
// Open may be called on a channel that is already open.
// SetDuty and SetPeriod return errcode.TryAgain if the backend has not been
// initialised or the channel has not been opened.
// PulseResolution may change when the period changes, so callers should
// fetch it each time it is needed.
type Controller interface {
	Init() error
	Deinit() error
	Open(ch int) error
	Close(ch int) error
	SetDuty(ch int, duty uint32) error
	SetPeriod(ch int, periodUS uint32) error
	SetID(id int) error
	PulseResolution(ch int) (uint32, error)
	Info() Info
}

// ServoHandle is the view of a servo given to a backend that wants its own
// per-update callback.
type ServoHandle interface {
	Channel() int
	OnUpdate(func()) error
}

// EventRegistrar is implemented by backends that subscribe to servo updates,
// for example to read encoder feedback.
type EventRegistrar interface {
	RegisterServoEvent(s ServoHandle) error
}

// UnitsPerDegree returns the whole number of PWM units per degree of the
// calibration in inf. Zero means the calibration cannot drive a servo.
func UnitsPerDegree(inf Info) uint32 {
	if inf.UnitsFor180Degree <= inf.UnitsFor0Degree {
		return 0
	}
	return (inf.UnitsFor180Degree - inf.UnitsFor0Degree) / 180
}

// Init initialises a backend.
func Init(c Controller) error {
	if c == nil {
		return errcode.New(errcode.Null, "controller init", "controller is nil")
	}
	return c.Init()
}
