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

// Package servo moves servos to target angles along easing curves.
//
// A Servo is driven by polling: the caller advances the tick clock and then
// calls Update on each servo. Start, Pause and Resume only record the
// request, which is applied at the beginning of the next Update. This lets
// a destination callback start a new move without it affecting the Update
// that invoked the callback. Stop takes effect immediately.
//
// The motion state of every servo lives in a fixed size Pool. None of the
// types here are safe for concurrent use.
package servo

import (
	"log"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/easing"
	"github.com/aamcrae/servo/errcode"
	"github.com/aamcrae/servo/tick"
)

// MaxInstances is the number of servos a Pool can hold.
const MaxInstances = 20

// MaxAngle is the largest angle a servo can be set to.
const MaxAngle = 180

// Debug enables logging of servo state changes.
var Debug = false

type action uint8

const (
	actionNone action = iota
	actionMove
	actionResume
	actionStop
)

type direction uint8

const (
	clockwise direction = iota
	counterClockwise
)

func (d direction) String() string {
	if d == clockwise {
		return "cw"
	}
	return "ccw"
}

// state is the motion state of one servo.
type state struct {
	gen   uint32
	inUse bool

	milisStart, milisStop, milisToComplete uint32

	startUnits, currentUnits, endUnits, deltaUnits uint32

	currentAngle, expectAngle uint32

	moving, stopped, completed, reverse bool

	dir   direction
	await action
	speed uint32
	reach func(*Servo)
	hooks []func()
}

// Args configures a new servo.
type Args struct {
	ControllerID int
	PeriodUS     uint32
	Shape        easing.Shape
	Curve        easing.Curve
	Channel      int
	Speed        uint32 // degrees per second
	InitAngle    uint32
	Reverse      bool
}

// Pool holds the motion state of up to MaxInstances servos.
type Pool struct {
	clock  tick.Source
	engine easing.Engine
	states [MaxInstances]state
}

// NewPool returns an empty pool reading time from clk and
// computing motion with eng.
func NewPool(clk tick.Source, eng easing.Engine) *Pool {
	return &Pool{clock: clk, engine: eng}
}

// DefaultPool uses the package default clock and easing engine.
var DefaultPool = NewPool(&tick.Default, easing.Default)

// Create builds a servo on DefaultPool using the default registry.
func Create(a Args) (*Servo, error) {
	return DefaultPool.Create(controller.Default, a)
}

// InUse returns the number of allocated slots.
func (p *Pool) InUse() int {
	n := 0
	for i := range p.states {
		if p.states[i].inUse {
			n++
		}
	}
	return n
}

// Create resolves the controller, claims a free motion state, opens the
// channel and sets the channel period. If the controller implements
// controller.EventRegistrar it is given the new servo.
func (p *Pool) Create(reg *controller.Registry, a Args) (*Servo, error) {
	const op = "create servo"
	if a.InitAngle > MaxAngle {
		return nil, errcode.New(errcode.OutOfRange, op, "initial angle %d", a.InitAngle)
	}
	if a.Speed == 0 {
		return nil, errcode.New(errcode.OutOfRange, op, "speed must be non-zero")
	}
	if !p.engine.Supports(a.Curve) {
		return nil, errcode.New(errcode.NotSupported, op, "curve %s with %s easing", a.Curve, p.engine.Name())
	}
	ctl, err := reg.Get(a.ControllerID)
	if err != nil {
		return nil, errcode.Wrap(errcode.Failed, op, err)
	}
	slot := -1
	for i := range p.states {
		if !p.states[i].inUse {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, errcode.New(errcode.NoMemory, op, "all %d servo instances in use", MaxInstances)
	}
	if err := ctl.Open(a.Channel); err != nil {
		return nil, err
	}
	st := &p.states[slot]
	gen := st.gen + 1
	*st = state{
		gen:          gen,
		inUse:        true,
		currentAngle: a.InitAngle,
		expectAngle:  a.InitAngle,
		speed:        a.Speed,
		reverse:      a.Reverse,
		reach:        logReached,
	}
	s := &Servo{
		pool:  p,
		slot:  slot,
		gen:   gen,
		ch:    a.Channel,
		shape: a.Shape,
		curve: a.Curve,
		ctl:   ctl,
	}
	if err := ctl.SetPeriod(a.Channel, a.PeriodUS); err != nil {
		s.Deinit()
		return nil, err
	}
	if r, ok := ctl.(controller.EventRegistrar); ok {
		if err := r.RegisterServoEvent(s); err != nil {
			s.Deinit()
			return nil, err
		}
	}
	if Debug {
		log.Printf("servo %d: created on %q slot %d at %d deg", a.Channel, ctl.Info().Name, slot, a.InitAngle)
	}
	return s, nil
}

func logReached(s *Servo) {
	if Debug {
		a, _ := s.Angle()
		log.Printf("servo %d: destination reached at %d deg", s.ch, a)
	}
}

// Servo is a handle to one servo channel and its motion state.
// Handles become invalid after Deinit.
type Servo struct {
	pool  *Pool
	slot  int
	gen   uint32
	ch    int
	shape easing.Shape
	curve easing.Curve
	ctl   controller.Controller
}

// data validates the handle and returns its motion state.
func (s *Servo) data(op string) (*state, error) {
	if s == nil {
		return nil, errcode.New(errcode.Null, op, "servo is nil")
	}
	if s.pool == nil || s.slot < 0 || s.slot >= MaxInstances {
		return nil, errcode.New(errcode.NotInitialized, op, "servo is not initialised")
	}
	st := &s.pool.states[s.slot]
	if !st.inUse || st.gen != s.gen {
		return nil, errcode.New(errcode.NotInitialized, op, "servo is not initialised")
	}
	return st, nil
}

// Deinit releases the motion state. The channel is left open on the
// controller; use Close to also close it.
func (s *Servo) Deinit() error {
	st, err := s.data("deinit")
	if err != nil {
		return err
	}
	*st = state{gen: st.gen}
	s.ctl = nil
	return nil
}

// Close releases the motion state and closes the channel.
func (s *Servo) Close() error {
	if _, err := s.data("close"); err != nil {
		return err
	}
	ctl := s.ctl
	s.Deinit()
	return ctl.Close(s.ch)
}
