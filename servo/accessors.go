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

package servo

import (
	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/easing"
	"github.com/aamcrae/servo/errcode"
)

// Status is a snapshot of a servo.
type Status struct {
	Controller int          `json:"controller" yaml:"controller"`
	Channel    int          `json:"channel" yaml:"channel"`
	Angle      uint32       `json:"angle" yaml:"angle"`
	Target     uint32       `json:"target" yaml:"target"`
	Units      uint32       `json:"units" yaml:"units"`
	Speed      uint32       `json:"speed" yaml:"speed"`
	Moving     bool         `json:"moving" yaml:"moving"`
	Stopped    bool         `json:"stopped" yaml:"stopped"`
	Reverse    bool         `json:"reverse" yaml:"reverse"`
	Shape      easing.Shape `json:"-" yaml:"-"`
	Curve      easing.Curve `json:"-" yaml:"-"`
	Easing     string       `json:"easing" yaml:"easing"`
}

// Status returns a snapshot of the servo.
func (s *Servo) Status() (Status, error) {
	st, err := s.data("status")
	if err != nil {
		return Status{}, err
	}
	return Status{
		Controller: s.ctl.Info().ID,
		Channel:    s.ch,
		Angle:      st.currentAngle,
		Target:     st.expectAngle,
		Units:      st.currentUnits,
		Speed:      st.speed,
		Moving:     st.moving,
		Stopped:    st.stopped,
		Reverse:    st.reverse,
		Shape:      s.shape,
		Curve:      s.curve,
		Easing:     s.shape.String() + "/" + s.curve.String(),
	}, nil
}

// Channel returns the controller channel the servo drives.
func (s *Servo) Channel() int {
	if s == nil {
		return -1
	}
	return s.ch
}

// Controller returns the backend the servo is bound to.
func (s *Servo) Controller() (controller.Controller, error) {
	if _, err := s.data("controller"); err != nil {
		return nil, err
	}
	return s.ctl, nil
}

// Angle returns the current angle.
func (s *Servo) Angle() (int, error) {
	st, err := s.data("angle")
	if err != nil {
		return -1, err
	}
	return int(st.currentAngle), nil
}

// ExpectedAngle returns the target angle.
func (s *Servo) ExpectedAngle() (int, error) {
	st, err := s.data("expected angle")
	if err != nil {
		return -1, err
	}
	return int(st.expectAngle), nil
}

// IsMoving reports whether the servo is moving.
func (s *Servo) IsMoving() (bool, error) {
	st, err := s.data("is moving")
	if err != nil {
		return false, err
	}
	return st.moving, nil
}

// IsStopped reports whether the servo has been stopped or paused, or has
// finished a move. A servo that has never moved is neither moving nor stopped.
func (s *Servo) IsStopped() (bool, error) {
	st, err := s.data("is stopped")
	if err != nil {
		return false, err
	}
	return st.stopped, nil
}

// SetSpeed sets the speed in degrees per second used by the next Start.
func (s *Servo) SetSpeed(speed uint32) error {
	st, err := s.data("set speed")
	if err != nil {
		return err
	}
	if speed == 0 {
		return errcode.New(errcode.OutOfRange, "set speed", "speed must be non-zero")
	}
	st.speed = speed
	return nil
}

// Speed returns the speed in degrees per second.
func (s *Servo) Speed() (uint32, error) {
	st, err := s.data("speed")
	if err != nil {
		return 0, err
	}
	return st.speed, nil
}

// MillisToCompleteMove returns the duration of the current move in ticks.
func (s *Servo) MillisToCompleteMove() (uint32, error) {
	st, err := s.data("millis to complete")
	if err != nil {
		return 0, err
	}
	return st.milisToComplete, nil
}

// SetMillisToCompleteMove overrides the duration computed by Start.
func (s *Servo) SetMillisToCompleteMove(ms uint32) error {
	st, err := s.data("set millis to complete")
	if err != nil {
		return err
	}
	st.milisToComplete = ms
	return nil
}

// DeltaUnits returns the span of the current move in PWM units.
func (s *Servo) DeltaUnits() (uint32, error) {
	st, err := s.data("delta units")
	if err != nil {
		return 0, err
	}
	return st.deltaUnits, nil
}

// StartTick returns the tick the current move is timed from.
func (s *Servo) StartTick() (uint32, error) {
	st, err := s.data("start tick")
	if err != nil {
		return 0, err
	}
	return st.milisStart, nil
}

// SetEasing changes the shape and curve used by later updates.
func (s *Servo) SetEasing(shape easing.Shape, curve easing.Curve) error {
	if _, err := s.data("set easing"); err != nil {
		return err
	}
	if !s.pool.engine.Supports(curve) {
		return errcode.New(errcode.NotSupported, "set easing", "curve %s with %s easing", curve, s.pool.engine.Name())
	}
	s.shape = shape
	s.curve = curve
	return nil
}

// OnDestinationReach sets the function called from Update when a move
// completes. Requests made by the callback apply at the next Update.
func (s *Servo) OnDestinationReach(fn func(*Servo)) error {
	st, err := s.data("on destination reach")
	if err != nil {
		return err
	}
	if fn == nil {
		return errcode.New(errcode.Null, "on destination reach", "callback is nil")
	}
	st.reach = fn
	return nil
}

// OnUpdate adds a function called at the end of every Update.
func (s *Servo) OnUpdate(fn func()) error {
	st, err := s.data("on update")
	if err != nil {
		return err
	}
	if fn == nil {
		return errcode.New(errcode.Null, "on update", "callback is nil")
	}
	st.hooks = append(st.hooks, fn)
	return nil
}
