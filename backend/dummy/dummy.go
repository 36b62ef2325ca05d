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

// Package dummy is a simulated servo controller. It records the duty
// written to each channel and does no I/O.
package dummy

import (
	"log"
	"sync"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/errcode"
)

const (
	MaxServo      = 16
	DefaultPeriod = 40000 // microseconds
	Units0        = 111   // 544us
	Units180      = 491   // 2400us
)

// Debug logs every servo update seen by the controller.
var Debug = false

type channel struct {
	open   bool
	period uint32
	res    uint32
	duty   uint32
	writes int
	ticks  int
}

// Controller is the simulated backend.
type Controller struct {
	mu          sync.Mutex
	info        controller.Info
	initialised bool
	ch          [MaxServo]channel
}

func resolution(periodUS uint32) uint32 {
	return periodUS * 100 / 400
}

// New returns an uninitialised dummy controller.
func New() *Controller {
	c := &Controller{info: controller.Info{
		Name:              "Dummy servo controller",
		MaxServo:          MaxServo,
		UnitsFor0Degree:   Units0,
		UnitsFor180Degree: Units180,
	}}
	for i := range c.ch {
		c.ch[i].period = DefaultPeriod
		c.ch[i].res = resolution(DefaultPeriod)
	}
	return c
}

func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialised = true
	return nil
}

func (c *Controller) Deinit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialised = false
	for i := range c.ch {
		c.ch[i].open = false
	}
	return nil
}

// channel returns ch after checking it can be used.
func (c *Controller) channel(op string, ch int, mustOpen bool) (*channel, error) {
	if ch < 0 || ch >= MaxServo {
		return nil, errcode.New(errcode.OutOfRange, op, "channel %d outside 0..%d", ch, MaxServo-1)
	}
	if !c.initialised {
		return nil, errcode.New(errcode.TryAgain, op, "controller not initialised")
	}
	if mustOpen && !c.ch[ch].open {
		return nil, errcode.New(errcode.TryAgain, op, "channel %d not open", ch)
	}
	return &c.ch[ch], nil
}

func (c *Controller) Open(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.channel("open", ch, false)
	if err != nil {
		return err
	}
	p.open = true
	return nil
}

func (c *Controller) Close(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.channel("close", ch, false)
	if err != nil {
		return err
	}
	p.open = false
	return nil
}

func (c *Controller) SetDuty(ch int, duty uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.channel("set duty", ch, true)
	if err != nil {
		return err
	}
	p.duty = duty
	p.writes++
	return nil
}

func (c *Controller) SetPeriod(ch int, periodUS uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.channel("set period", ch, true)
	if err != nil {
		return err
	}
	if periodUS == 0 {
		return errcode.New(errcode.OutOfRange, "set period", "period is zero")
	}
	p.period = periodUS
	p.res = resolution(periodUS)
	return nil
}

func (c *Controller) SetID(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.ID = id
	return nil
}

func (c *Controller) PulseResolution(ch int) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch < 0 || ch >= MaxServo {
		return 0, errcode.New(errcode.OutOfRange, "pulse resolution", "channel %d", ch)
	}
	return c.ch[ch].res, nil
}

func (c *Controller) Info() controller.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// RegisterServoEvent counts the updates of each servo.
func (c *Controller) RegisterServoEvent(s controller.ServoHandle) error {
	ch := s.Channel()
	if ch < 0 || ch >= MaxServo {
		return errcode.New(errcode.OutOfRange, "register servo event", "channel %d", ch)
	}
	return s.OnUpdate(func() {
		c.mu.Lock()
		c.ch[ch].ticks++
		c.mu.Unlock()
		if Debug {
			log.Printf("dummy: servo %d update", ch)
		}
	})
}

// Duty returns the last duty written to ch.
func (c *Controller) Duty(ch int) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch < 0 || ch >= MaxServo {
		return 0
	}
	return c.ch[ch].duty
}

// Writes returns the number of duty writes to ch.
func (c *Controller) Writes(ch int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch < 0 || ch >= MaxServo {
		return 0
	}
	return c.ch[ch].writes
}

// Updates returns the number of servo updates seen for ch.
func (c *Controller) Updates(ch int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch < 0 || ch >= MaxServo {
		return 0
	}
	return c.ch[ch].ticks
}
