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
	"log"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/errcode"
	"github.com/aamcrae/servo/mathx"
	"github.com/aamcrae/servo/tick"
)

// SetAngle sets the target of the next move. It fails with errcode.Busy
// while the servo is moving, unless a stop is already pending.
func (s *Servo) SetAngle(angle int) error {
	st, err := s.data("set angle")
	if err != nil {
		return err
	}
	if st.moving && st.await != actionStop {
		return errcode.New(errcode.Busy, "set angle", "servo is moving, stop it first")
	}
	if angle < 0 || angle > MaxAngle {
		return errcode.New(errcode.OutOfRange, "set angle", "%d outside 0..%d", angle, MaxAngle)
	}
	st.expectAngle = uint32(angle)
	return nil
}

// drive maps an angle onto the controller's angle, taking reversal into account.
func (st *state) drive(angle uint32) uint32 {
	if st.reverse {
		return MaxAngle - angle
	}
	return angle
}

// Start computes the move from the current angle to the target and
// requests that it begin at the next Update.
func (s *Servo) Start() error {
	const op = "start"
	st, err := s.data(op)
	if err != nil {
		return err
	}
	if st.speed == 0 {
		return errcode.New(errcode.OutOfRange, op, "speed is zero")
	}
	if !s.pool.engine.Supports(s.curve) {
		return errcode.New(errcode.NotSupported, op, "curve %s with %s easing", s.curve, s.pool.engine.Name())
	}
	inf := s.ctl.Info()
	upd := controller.UnitsPerDegree(inf)
	if upd == 0 {
		return errcode.New(errcode.OutOfRange, op, "calibration %d..%d is too narrow", inf.UnitsFor0Degree, inf.UnitsFor180Degree)
	}
	if st.expectAngle < st.currentAngle {
		st.dir = counterClockwise
	} else {
		st.dir = clockwise
	}
	st.milisToComplete = mathx.Diff(st.expectAngle, st.currentAngle) * 1000 / st.speed
	st.startUnits = inf.UnitsFor0Degree + st.drive(st.currentAngle)*upd
	st.endUnits = inf.UnitsFor0Degree + st.drive(st.expectAngle)*upd
	st.deltaUnits = mathx.Diff(st.endUnits, st.startUnits)
	st.completed = false
	st.await = actionMove
	if Debug {
		log.Printf("servo %d: start %d -> %d deg (%s), %d ticks, units %d -> %d", s.ch, st.currentAngle, st.expectAngle, st.dir, st.milisToComplete, st.startUnits, st.endUnits)
	}
	return nil
}

// Stop halts the servo immediately, discarding any pending request.
// The current position is kept so the move can be resumed.
func (s *Servo) Stop() error {
	st, err := s.data("stop")
	if err != nil {
		return err
	}
	now := s.pool.clock.Now()
	if st.await == actionMove {
		// The move never began, so a resume starts it from the beginning.
		st.milisStart = now
	}
	st.moving = false
	st.stopped = true
	st.milisStop = now
	st.await = actionNone
	return nil
}

// Pause halts the servo at the next Update.
func (s *Servo) Pause() error {
	st, err := s.data("pause")
	if err != nil {
		return err
	}
	if st.await == actionMove {
		// The move never began, so it is held at its start.
		now := s.pool.clock.Now()
		st.milisStart = now
		st.milisStop = now
	}
	st.await = actionStop
	return nil
}

// Resume continues a stopped or paused move at the next Update. The time
// spent stopped does not count towards the move.
func (s *Servo) Resume() error {
	const op = "resume"
	st, err := s.data(op)
	if err != nil {
		return err
	}
	if st.moving {
		return errcode.New(errcode.Busy, op, "servo is moving")
	}
	if !st.stopped || st.completed || st.milisToComplete == 0 {
		return errcode.New(errcode.Failed, op, "no move to resume")
	}
	st.await = actionResume
	return nil
}

// Update applies any pending request and then, if the servo is moving,
// advances it along its curve and writes the new duty to the controller.
// Backend errors are returned unchanged.
func (s *Servo) Update() error {
	st, err := s.data("update")
	if err != nil {
		return err
	}
	now := s.pool.clock.Now()
	switch st.await {
	case actionMove:
		st.moving = true
		st.stopped = false
		st.milisStart = now
	case actionStop:
		if st.moving {
			st.milisStop = now
		}
		st.moving = false
		st.stopped = true
	case actionResume:
		st.milisStart += tick.Elapsed(st.milisStop, now)
		st.moving = true
		st.stopped = false
	}
	st.await = actionNone
	if st.moving {
		if err := s.step(st, now); err != nil {
			return err
		}
	}
	for _, h := range st.hooks {
		h()
	}
	return nil
}

func (st *state) reached() bool {
	switch st.dir {
	case clockwise:
		return st.currentAngle >= st.expectAngle
	case counterClockwise:
		return st.currentAngle <= st.expectAngle
	}
	log.Printf("servo: unknown direction %d", st.dir)
	return false
}

// step advances a moving servo.
func (s *Servo) step(st *state, now uint32) error {
	if st.reached() {
		st.currentUnits = st.endUnits
		st.currentAngle = st.expectAngle
		st.completed = true
		if err := s.writeUnits(st.endUnits); err != nil {
			return err
		}
		st.await = actionStop
		st.reach(s)
		return nil
	}
	pct, err := s.pool.engine.Progress(s.shape, s.curve, tick.Elapsed(st.milisStart, now), st.milisToComplete)
	if err != nil {
		return err
	}
	inf := s.ctl.Info()
	upd := controller.UnitsPerDegree(inf)
	if upd == 0 {
		return errcode.New(errcode.OutOfRange, "update", "calibration %d..%d is too narrow", inf.UnitsFor0Degree, inf.UnitsFor180Degree)
	}
	// Curves such as back and elastic overshoot, so the offset may be
	// negative or exceed the span. The result is held within calibration.
	off := int64(pct) * int64(st.deltaUnits) / 100
	units := int64(st.startUnits)
	if st.endUnits >= st.startUnits {
		units += off
	} else {
		units -= off
	}
	units = mathx.Clamp(units, int64(inf.UnitsFor0Degree), int64(inf.UnitsFor0Degree+MaxAngle*upd))
	st.currentUnits = uint32(units)
	st.currentAngle = st.drive((st.currentUnits - inf.UnitsFor0Degree) / upd)
	return s.writeUnits(st.currentUnits)
}

// writeUnits converts units to a duty value using the current pulse
// resolution of the channel.
func (s *Servo) writeUnits(units uint32) error {
	res, err := s.ctl.PulseResolution(s.ch)
	if err != nil {
		return err
	}
	duty := uint64(units) * uint64(res) / 100
	return s.ctl.SetDuty(s.ch, uint32(duty))
}
