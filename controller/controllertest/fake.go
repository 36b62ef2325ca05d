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

// Package controllertest provides a recording controller for tests.
package controllertest

import (
	"sync"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/errcode"
)

// DefaultPeriod is the period in microseconds a channel starts with.
const DefaultPeriod = 40000

// Fake is an in-memory controller.Controller that records every write.
type Fake struct {
	mu          sync.Mutex
	info        controller.Info
	initialised bool
	open        map[int]bool
	periods     map[int]uint32
	duties      map[int][]uint32

	// DutyErr, if set, is returned by SetDuty.
	DutyErr error
}

// New returns a fake with the usual 111..491 calibration and 16 channels.
func New() *Fake {
	return NewWithInfo(controller.Info{
		Name:              "fake controller",
		MaxServo:          16,
		UnitsFor0Degree:   111,
		UnitsFor180Degree: 491,
	})
}

// NewWithInfo returns an uninitialised fake reporting inf.
func NewWithInfo(inf controller.Info) *Fake {
	return &Fake{
		info:    inf,
		open:    make(map[int]bool),
		periods: make(map[int]uint32),
		duties:  make(map[int][]uint32),
	}
}

func (f *Fake) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialised = true
	return nil
}

func (f *Fake) Deinit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialised = false
	return nil
}

func (f *Fake) check(op string, ch int) error {
	if ch < 0 || ch >= f.info.MaxServo {
		return errcode.New(errcode.OutOfRange, op, "channel %d", ch)
	}
	if !f.initialised {
		return errcode.New(errcode.TryAgain, op, "not initialised")
	}
	return nil
}

func (f *Fake) Open(ch int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("open", ch); err != nil {
		return err
	}
	f.open[ch] = true
	if _, ok := f.periods[ch]; !ok {
		f.periods[ch] = DefaultPeriod
	}
	return nil
}

func (f *Fake) Close(ch int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("close", ch); err != nil {
		return err
	}
	delete(f.open, ch)
	return nil
}

func (f *Fake) SetDuty(ch int, duty uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("set duty", ch); err != nil {
		return err
	}
	if !f.open[ch] {
		return errcode.New(errcode.TryAgain, "set duty", "channel %d not open", ch)
	}
	if f.DutyErr != nil {
		return f.DutyErr
	}
	f.duties[ch] = append(f.duties[ch], duty)
	return nil
}

func (f *Fake) SetPeriod(ch int, periodUS uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("set period", ch); err != nil {
		return err
	}
	if !f.open[ch] {
		return errcode.New(errcode.TryAgain, "set period", "channel %d not open", ch)
	}
	f.periods[ch] = periodUS
	return nil
}

func (f *Fake) SetID(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info.ID = id
	return nil
}

// PulseResolution follows the dummy backend: period * 100 / 400.
func (f *Fake) PulseResolution(ch int) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch < 0 || ch >= f.info.MaxServo {
		return 0, errcode.New(errcode.OutOfRange, "pulse resolution", "channel %d", ch)
	}
	p, ok := f.periods[ch]
	if !ok {
		p = DefaultPeriod
	}
	return p * 100 / 400, nil
}

func (f *Fake) Info() controller.Info {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info
}

// SetCalibration changes the reported calibration.
func (f *Fake) SetCalibration(u0, u180 uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info.UnitsFor0Degree = u0
	f.info.UnitsFor180Degree = u180
}

// Duties returns a copy of the duty values written to ch.
func (f *Fake) Duties(ch int) []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.duties[ch]...)
}

// LastDuty returns the most recent duty written to ch.
func (f *Fake) LastDuty(ch int) (uint32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.duties[ch]
	if len(d) == 0 {
		return 0, false
	}
	return d[len(d)-1], true
}

// Period returns the period of ch in microseconds.
func (f *Fake) Period(ch int) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.periods[ch]
}

// IsOpen reports whether ch is open.
func (f *Fake) IsOpen(ch int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[ch]
}

// Hooked is a Fake that subscribes to servo updates and counts them.
type Hooked struct {
	*Fake
	mu      sync.Mutex
	handles []controller.ServoHandle
	calls   map[int]int
}

// NewHooked returns a Hooked fake.
func NewHooked() *Hooked {
	return &Hooked{Fake: New(), calls: make(map[int]int)}
}

func (h *Hooked) RegisterServoEvent(s controller.ServoHandle) error {
	h.mu.Lock()
	h.handles = append(h.handles, s)
	h.mu.Unlock()
	ch := s.Channel()
	return s.OnUpdate(func() {
		h.mu.Lock()
		h.calls[ch]++
		h.mu.Unlock()
	})
}

// Calls returns the number of update callbacks seen for ch.
func (h *Hooked) Calls(ch int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[ch]
}

// Handles returns the servos that subscribed.
func (h *Hooked) Handles() []controller.ServoHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]controller.ServoHandle(nil), h.handles...)
}
