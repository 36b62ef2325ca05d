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
	"errors"
	"testing"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/controller/controllertest"
	"github.com/aamcrae/servo/easing"
	"github.com/aamcrae/servo/errcode"
	"github.com/aamcrae/servo/tick"
)

type rig struct {
	clk  *tick.Clock
	pool *Pool
	reg  *controller.Registry
	fake *controllertest.Fake
	id   int
}

func newRig(t *testing.T, eng easing.Engine) *rig {
	t.Helper()
	r := &rig{clk: new(tick.Clock), reg: controller.NewRegistry(), fake: controllertest.New()}
	r.pool = NewPool(r.clk, eng)
	if err := controller.Init(r.fake); err != nil {
		t.Fatalf("init: %v", err)
	}
	id, err := r.reg.Register(r.fake)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	r.id = id
	return r
}

func (r *rig) create(t *testing.T, a Args) *Servo {
	t.Helper()
	a.ControllerID = r.id
	if a.PeriodUS == 0 {
		a.PeriodUS = 40000
	}
	s, err := r.pool.Create(r.reg, a)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return s
}

func update(t *testing.T, s *Servo) {
	t.Helper()
	if err := s.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func angle(t *testing.T, s *Servo) int {
	t.Helper()
	a, err := s.Angle()
	if err != nil {
		t.Fatalf("angle: %v", err)
	}
	return a
}

func TestEndToEnd(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Shape: easing.InOut, Curve: easing.Quadratic, Speed: 80, InitAngle: 70})
	if r.fake.Period(0) != 40000 {
		t.Errorf("period = %d", r.fake.Period(0))
	}
	reached := 0
	s.OnDestinationReach(func(*Servo) { reached++ })
	if err := s.SetAngle(0); err != nil {
		t.Fatalf("set angle: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ms, _ := s.MillisToCompleteMove(); ms != 875 {
		t.Fatalf("millis to complete = %d, want 875", ms)
	}
	if d, _ := s.DeltaUnits(); d != 140 {
		t.Errorf("delta units = %d, want 140", d)
	}
	update(t, s)
	if m, _ := s.IsMoving(); !m {
		t.Fatalf("not moving after first update")
	}
	last := uint32(1 << 31)
	for r.clk.Now() < 875 {
		r.clk.Advance(5)
		update(t, s)
		d, _ := r.fake.LastDuty(0)
		if d > last {
			t.Fatalf("duty increased from %d to %d at tick %d", last, d, r.clk.Now())
		}
		last = d
	}
	if a := angle(t, s); a != 0 {
		t.Errorf("angle at tick 875 = %d, want 0", a)
	}
	update(t, s)
	update(t, s)
	if st, _ := s.IsStopped(); !st {
		t.Errorf("servo not stopped after move")
	}
	if m, _ := s.IsMoving(); m {
		t.Errorf("servo still moving")
	}
	if reached != 1 {
		t.Errorf("destination callback ran %d times", reached)
	}
	if d, _ := r.fake.LastDuty(0); d != 111*10000/100 {
		t.Errorf("final duty = %d, want %d", d, 111*10000/100)
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		target int
		want   direction
	}{
		{0, counterClockwise},
		{180, clockwise},
		{70, clockwise},
	}
	r := newRig(t, easing.Float{})
	for _, tc := range tests {
		s := r.create(t, Args{Speed: 80, InitAngle: 70})
		s.SetAngle(tc.target)
		s.Start()
		st, _ := s.data("test")
		if st.dir != tc.want {
			t.Errorf("70 -> %d: direction %s, want %s", tc.target, st.dir, tc.want)
		}
		s.Deinit()
	}
}

func TestZeroLengthMove(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Speed: 80, InitAngle: 70})
	reached := false
	s.OnDestinationReach(func(*Servo) { reached = true })
	s.Start()
	update(t, s)
	if !reached {
		t.Errorf("zero length move did not complete on first update")
	}
}

func TestPoolExhaustion(t *testing.T) {
	r := newRig(t, easing.Float{})
	var servos []*Servo
	for i := 0; i < MaxInstances; i++ {
		servos = append(servos, r.create(t, Args{Channel: i % 15, Speed: 10}))
	}
	_, err := r.pool.Create(r.reg, Args{ControllerID: r.id, Channel: 15, Speed: 10})
	if errcode.Of(err) != errcode.NoMemory {
		t.Fatalf("create %d: %v, want no_memory", MaxInstances+1, err)
	}
	if r.fake.IsOpen(15) {
		t.Errorf("failed create left channel 15 open")
	}
	if err := servos[5].Deinit(); err != nil {
		t.Fatalf("deinit: %v", err)
	}
	s := r.create(t, Args{Channel: 3, Speed: 10})
	if s.slot != 5 {
		t.Errorf("reused slot %d, want 5", s.slot)
	}
	if _, err := servos[5].Angle(); errcode.Of(err) != errcode.NotInitialized {
		t.Errorf("stale handle: %v, want not_initialized", err)
	}
	if r.pool.InUse() != MaxInstances {
		t.Errorf("in use = %d", r.pool.InUse())
	}
}

func TestDeferredRestart(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Shape: easing.InOut, Curve: easing.Quadratic, Speed: 100, InitAngle: 0})
	restarts := 0
	s.OnDestinationReach(func(sv *Servo) {
		restarts++
		if err := sv.SetAngle(0); err != nil {
			t.Errorf("set angle in callback: %v", err)
		}
		if err := sv.Start(); err != nil {
			t.Errorf("start in callback: %v", err)
		}
	})
	s.SetAngle(10)
	s.Start()
	update(t, s)
	r.clk.Advance(100)
	update(t, s)
	if a := angle(t, s); a != 10 {
		t.Fatalf("angle at end of move = %d", a)
	}
	n := len(r.fake.Duties(0))
	update(t, s)
	if restarts != 1 {
		t.Fatalf("callback ran %d times", restarts)
	}
	if got := len(r.fake.Duties(0)); got != n+1 {
		t.Errorf("reaching update wrote %d duties, want 1", got-n)
	}
	if d, _ := r.fake.LastDuty(0); d != 131*100 {
		t.Errorf("reaching update duty = %d, want %d", d, 131*100)
	}
	if a := angle(t, s); a != 10 {
		t.Errorf("angle changed within the reaching update: %d", a)
	}
	// The new move begins on the next update.
	update(t, s)
	if a := angle(t, s); a != 10 {
		t.Errorf("restarted move jumped to %d", a)
	}
	r.clk.Advance(50)
	update(t, s)
	if a := angle(t, s); a != 5 {
		t.Errorf("half way back angle = %d, want 5", a)
	}
}

func TestStopResume(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Shape: easing.In, Curve: easing.Linear, Speed: 100})
	s.SetAngle(100)
	s.Start()
	update(t, s)
	r.clk.Advance(500)
	update(t, s)
	if a := angle(t, s); a != 50 {
		t.Fatalf("angle at half time = %d", a)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if m, _ := s.IsMoving(); m {
		t.Fatalf("moving after stop")
	}
	n := len(r.fake.Duties(0))
	r.clk.Advance(1000)
	update(t, s)
	if len(r.fake.Duties(0)) != n {
		t.Errorf("stopped servo wrote a duty")
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	update(t, s)
	if a := angle(t, s); a != 50 {
		t.Errorf("angle after resume = %d, want 50", a)
	}
	r.clk.Advance(250)
	update(t, s)
	if a := angle(t, s); a != 75 {
		t.Errorf("angle after resume + 250 = %d, want 75", a)
	}
	if err := s.Resume(); errcode.Of(err) != errcode.Busy {
		t.Errorf("resume while moving: %v", err)
	}
}

func TestPauseIsDeferred(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Speed: 100})
	s.SetAngle(100)
	s.Start()
	update(t, s)
	r.clk.Advance(100)
	update(t, s)
	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if m, _ := s.IsMoving(); !m {
		t.Errorf("pause took effect before update")
	}
	update(t, s)
	m, _ := s.IsMoving()
	st, _ := s.IsStopped()
	if m || !st {
		t.Errorf("after update moving=%v stopped=%v", m, st)
	}
}

func TestPauseResumeTiming(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Shape: easing.In, Curve: easing.Linear, Speed: 100})
	s.SetAngle(100)
	s.Start()
	update(t, s)
	r.clk.Advance(500)
	update(t, s)
	s.Pause()
	update(t, s)
	r.clk.Advance(1000)
	// A second pause while stopped must not move the stop time.
	s.Pause()
	update(t, s)
	r.clk.Advance(1000)
	if err := s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	update(t, s)
	if a := angle(t, s); a != 50 {
		t.Errorf("angle after resume = %d, want 50", a)
	}
	r.clk.Advance(250)
	update(t, s)
	if a := angle(t, s); a != 75 {
		t.Errorf("angle after resume + 250 = %d, want 75", a)
	}
}

func TestPauseBeforeMoveBegins(t *testing.T) {
	r := newRig(t, easing.Float{})
	r.clk.Advance(5000)
	s := r.create(t, Args{Shape: easing.In, Curve: easing.Linear, Speed: 100})
	s.SetAngle(100)
	s.Start()
	s.Pause()
	update(t, s)
	m, _ := s.IsMoving()
	st, _ := s.IsStopped()
	if m || !st {
		t.Fatalf("after pause moving=%v stopped=%v", m, st)
	}
	r.clk.Advance(300)
	if err := s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	update(t, s)
	if a := angle(t, s); a != 0 {
		t.Errorf("resumed move started at %d, want 0", a)
	}
	r.clk.Advance(500)
	update(t, s)
	if a := angle(t, s); a != 50 {
		t.Errorf("angle 500 ticks after resume = %d, want 50", a)
	}
}

func TestStopBeforeMoveBegins(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Curve: easing.Linear, Speed: 100})
	s.SetAngle(100)
	s.Start()
	r.clk.Advance(300)
	s.Stop()
	update(t, s)
	if m, _ := s.IsMoving(); m {
		t.Fatalf("stop did not discard pending move")
	}
	r.clk.Advance(300)
	s.Resume()
	update(t, s)
	if a := angle(t, s); a != 0 {
		t.Errorf("resumed move started at %d, want 0", a)
	}
}

func TestWraparound(t *testing.T) {
	r := newRig(t, easing.Float{})
	r.clk.Set(tick.MaxTick - 100)
	s := r.create(t, Args{Curve: easing.Linear, Speed: 100})
	s.SetAngle(10)
	s.Start()
	update(t, s)
	r.clk.Advance(50)
	update(t, s)
	if a := angle(t, s); a != 5 {
		t.Errorf("angle before wrap = %d, want 5", a)
	}
	r.clk.Advance(60)
	update(t, s)
	if a := angle(t, s); a != 10 {
		t.Errorf("angle after wrap = %d, want 10", a)
	}
}

func TestReverse(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Curve: easing.Linear, Speed: 90, Reverse: true})
	s.SetAngle(90)
	s.Start()
	update(t, s)
	if d, _ := r.fake.LastDuty(0); d != 471*100 {
		t.Errorf("reversed 0 deg duty = %d, want %d", d, 471*100)
	}
	r.clk.Advance(500)
	update(t, s)
	if a := angle(t, s); a != 45 {
		t.Errorf("reversed angle = %d, want 45", a)
	}
	if d, _ := r.fake.LastDuty(0); d != 381*100 {
		t.Errorf("reversed duty = %d, want %d", d, 381*100)
	}
}

func TestOvershootClamped(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Curve: easing.Back, Speed: 90})
	s.SetAngle(90)
	s.Start()
	update(t, s)
	r.clk.Advance(500)
	update(t, s)
	if a := angle(t, s); a != 0 {
		t.Errorf("angle during back dip = %d, want 0", a)
	}
	if d, _ := r.fake.LastDuty(0); d != 111*100 {
		t.Errorf("duty during back dip = %d, want %d", d, 111*100)
	}
}

func TestUpdateHooks(t *testing.T) {
	clk := new(tick.Clock)
	pool := NewPool(clk, easing.Float{})
	reg := controller.NewRegistry()
	h := controllertest.NewHooked()
	h.Init()
	id, _ := reg.Register(h)
	s, err := pool.Create(reg, Args{ControllerID: id, Channel: 2, Speed: 10, PeriodUS: 20000})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(h.Handles()) != 1 || h.Handles()[0].Channel() != 2 {
		t.Fatalf("backend did not subscribe")
	}
	order := []string{}
	s.OnDestinationReach(func(*Servo) { order = append(order, "reach") })
	s.OnUpdate(func() { order = append(order, "hook") })
	for i := 0; i < 3; i++ {
		update(t, s)
	}
	if h.Calls(2) != 3 {
		t.Errorf("backend hook ran %d times", h.Calls(2))
	}
	s.Start()
	update(t, s)
	if n := len(order); n < 2 || order[n-2] != "reach" || order[n-1] != "hook" {
		t.Errorf("callback order %v", order)
	}
}

func TestBackendErrorPropagates(t *testing.T) {
	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Speed: 10})
	bus := errors.New("bus error")
	r.fake.DutyErr = bus
	s.SetAngle(20)
	s.Start()
	if err := s.Update(); !errors.Is(err, bus) {
		t.Errorf("update error = %v, want %v", err, bus)
	}
}

func TestFailures(t *testing.T) {
	var nilServo *Servo
	if err := nilServo.Start(); errcode.Of(err) != errcode.Null {
		t.Errorf("nil Start: %v", err)
	}
	if _, err := nilServo.Angle(); errcode.Of(err) != errcode.Null {
		t.Errorf("nil Angle: %v", err)
	}
	if err := (&Servo{}).Update(); errcode.Of(err) != errcode.NotInitialized {
		t.Errorf("unbound Update: %v", err)
	}

	r := newRig(t, easing.Float{})
	s := r.create(t, Args{Speed: 10})
	if err := s.SetAngle(181); errcode.Of(err) != errcode.OutOfRange {
		t.Errorf("SetAngle(181): %v", err)
	}
	if err := s.SetSpeed(0); errcode.Of(err) != errcode.OutOfRange {
		t.Errorf("SetSpeed(0): %v", err)
	}
	if err := s.OnDestinationReach(nil); errcode.Of(err) != errcode.Null {
		t.Errorf("nil callback: %v", err)
	}
	if err := s.Resume(); err == nil {
		t.Errorf("resume of idle servo succeeded")
	}
	s.SetAngle(90)
	s.Start()
	update(t, s)
	if err := s.SetAngle(10); errcode.Of(err) != errcode.Busy {
		t.Errorf("SetAngle while moving: %v", err)
	}
	s.Deinit()
	if err := s.Update(); errcode.Of(err) != errcode.NotInitialized {
		t.Errorf("Update after deinit: %v", err)
	}
	if err := s.Deinit(); errcode.Of(err) != errcode.NotInitialized {
		t.Errorf("second deinit: %v", err)
	}
}

func TestCreateFailures(t *testing.T) {
	r := newRig(t, easing.Float{})
	tests := []struct {
		name string
		args Args
		want errcode.Code
	}{
		{"missing controller", Args{ControllerID: 7, Speed: 10}, errcode.Failed},
		{"bad channel", Args{ControllerID: r.id, Channel: 16, Speed: 10}, errcode.OutOfRange},
		{"bad angle", Args{ControllerID: r.id, Speed: 10, InitAngle: 200}, errcode.OutOfRange},
		{"zero speed", Args{ControllerID: r.id}, errcode.OutOfRange},
		{"precision", Args{ControllerID: r.id, Speed: 10, Curve: easing.Precision}, errcode.NotSupported},
	}
	for _, tc := range tests {
		_, err := r.pool.Create(r.reg, tc.args)
		if errcode.Of(err) != tc.want {
			t.Errorf("%s: %v, want %s", tc.name, err, tc.want)
		}
	}
	if r.pool.InUse() != 0 {
		t.Errorf("failed creates left %d slots in use", r.pool.InUse())
	}
}

func TestFixedEngine(t *testing.T) {
	r := newRig(t, easing.Fixed{})
	if _, err := r.pool.Create(r.reg, Args{ControllerID: r.id, Speed: 10, Curve: easing.Sine}); errcode.Of(err) != errcode.NotSupported {
		t.Errorf("fixed sine: %v", err)
	}
	s := r.create(t, Args{Shape: easing.In, Curve: easing.Quadratic, Speed: 100})
	s.SetAngle(100)
	s.Start()
	update(t, s)
	r.clk.Advance(500)
	update(t, s)
	if a := angle(t, s); a != 25 {
		t.Errorf("fixed quadratic half way = %d, want 25", a)
	}
}
