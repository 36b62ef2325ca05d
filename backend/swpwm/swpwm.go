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

// Package swpwm generates servo pulses in software on plain GPIO outputs,
// for boards without spare hardware PWM.
package swpwm

import (
	"log"
	"sync"
	"time"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/errcode"
	"github.com/aamcrae/servo/io"
)

const (
	DefaultPeriod = 20000
	// Resolution converts 1/4096 of a 20ms frame to microseconds, x100.
	Resolution = 488
	Units0     = 102
	Units180   = 512
)

var Debug = false

type Config struct {
	Pins     []int // GPIO number of each channel.
	PeriodUS uint32
}

type output struct {
	pin    *io.Gpio
	pwm    *io.SwPwm
	period uint32
	duty   uint32
}

// Controller is a software PWM backend.
type Controller struct {
	mu      sync.Mutex
	conf    Config
	info    controller.Info
	ready   bool
	outputs []*output
}

func New(conf Config) *Controller {
	if conf.PeriodUS == 0 {
		conf.PeriodUS = DefaultPeriod
	}
	return &Controller{
		conf: conf,
		info: controller.Info{
			Name:              "GPIO software PWM servo controller",
			MaxServo:          len(conf.Pins),
			UnitsFor0Degree:   Units0,
			UnitsFor180Degree: Units180,
		},
		outputs: make([]*output, len(conf.Pins)),
	}
}

func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
	return nil
}

func (c *Controller) Deinit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for i, o := range c.outputs {
		if o == nil {
			continue
		}
		if err := o.close(); err != nil && first == nil {
			first = err
		}
		c.outputs[i] = nil
	}
	c.ready = false
	return first
}

func (o *output) close() error {
	o.pwm.Close()
	return o.pin.Close()
}

func (o *output) set() error {
	period := time.Duration(o.period) * time.Microsecond
	on := time.Duration(o.duty) * time.Microsecond
	if on > period {
		on = period
	}
	return o.pwm.Set(period, on)
}

func (c *Controller) check(op string, ch int) error {
	if ch < 0 || ch >= len(c.outputs) {
		return errcode.New(errcode.OutOfRange, op, "channel %d outside 0..%d", ch, len(c.outputs)-1)
	}
	if !c.ready {
		return errcode.New(errcode.TryAgain, op, "software PWM not initialised")
	}
	return nil
}

func (c *Controller) output(op string, ch int) (*output, error) {
	if err := c.check(op, ch); err != nil {
		return nil, err
	}
	o := c.outputs[ch]
	if o == nil {
		return nil, errcode.New(errcode.TryAgain, op, "channel %d not open", ch)
	}
	return o, nil
}

// Open exports the GPIO as an output and starts its pulse generator with
// the output held low.
func (c *Controller) Open(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("open", ch); err != nil {
		return err
	}
	if c.outputs[ch] != nil {
		return nil
	}
	pin, err := io.OutputPin(c.conf.Pins[ch])
	if err != nil {
		return errcode.Wrap(errcode.Failed, "open", err)
	}
	o := &output{pin: pin, pwm: io.NewSwPWM(pin), period: c.conf.PeriodUS}
	if err := o.set(); err != nil {
		o.close()
		return err
	}
	c.outputs[ch] = o
	return nil
}

func (c *Controller) Close(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, err := c.output("close", ch)
	if err != nil {
		return err
	}
	c.outputs[ch] = nil
	return o.close()
}

// SetDuty sets the pulse width in microseconds.
func (c *Controller) SetDuty(ch int, duty uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, err := c.output("set duty", ch)
	if err != nil {
		return err
	}
	if Debug {
		log.Printf("swpwm: gpio %d pulse %dus", c.conf.Pins[ch], duty)
	}
	o.duty = duty
	return o.set()
}

func (c *Controller) SetPeriod(ch int, periodUS uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, err := c.output("set period", ch)
	if err != nil {
		return err
	}
	o.period = periodUS
	return o.set()
}

func (c *Controller) SetID(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.ID = id
	return nil
}

func (c *Controller) PulseResolution(ch int) (uint32, error) {
	if ch < 0 || ch >= len(c.conf.Pins) {
		return 0, errcode.New(errcode.OutOfRange, "pulse resolution", "channel %d", ch)
	}
	return Resolution, nil
}

func (c *Controller) Info() controller.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Pulse returns the pulse width last set on a channel, in microseconds.
func (c *Controller) Pulse(ch int) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, err := c.output("pulse", ch)
	if err != nil {
		return 0, err
	}
	return o.duty, nil
}
