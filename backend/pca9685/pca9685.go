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

// Package pca9685 drives a PCA9685 16 channel PWM expander directly over I2C.
//
// Units are 1/4096 of a 20ms frame, the native resolution of the chip
// when running at 50Hz. At other periods the chip count is scaled so that
// the calibration keeps describing pulse widths.
package pca9685

import (
	"log"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/errcode"
)

const (
	Channels      = 16
	FrameUS       = 20000
	DefaultPeriod = 20000
	Units0        = 102
	Units180      = 512
	maxCount      = 4095
)

var Debug = false

// Config selects the bus and address of the chip.
type Config struct {
	Bus      string // Bus name passed to i2creg.Open, empty for the first bus.
	Addr     uint16
	PeriodUS uint32 // All channels share one period.
	Units0   uint32
	Units180 uint32
}

// DefaultConfig is a chip at the factory address on the first bus.
var DefaultConfig = Config{
	Addr:     pca9685.I2CAddr,
	PeriodUS: DefaultPeriod,
	Units0:   Units0,
	Units180: Units180,
}

// Controller is a PCA9685 backend.
type Controller struct {
	mu     sync.Mutex
	conf   Config
	info   controller.Info
	bus    i2c.Bus
	closer i2c.BusCloser
	dev    *pca9685.Dev
	period uint32
	open   [Channels]bool
}

// New returns an uninitialised controller. The bus is opened by Init.
func New(conf Config) *Controller {
	if conf.PeriodUS == 0 {
		conf.PeriodUS = DefaultPeriod
	}
	if conf.Addr == 0 {
		conf.Addr = pca9685.I2CAddr
	}
	return &Controller{
		conf:   conf,
		period: conf.PeriodUS,
		info: controller.Info{
			Name:              "PCA9685 i2c servo controller",
			MaxServo:          Channels,
			UnitsFor0Degree:   conf.Units0,
			UnitsFor180Degree: conf.Units180,
		},
	}
}

// NewOnBus returns a controller using an already open bus.
func NewOnBus(bus i2c.Bus, conf Config) *Controller {
	c := New(conf)
	c.bus = bus
	return c
}

// Init opens the bus, resets the chip and sets the PWM frequency.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev != nil {
		return nil
	}
	bus := c.bus
	if bus == nil {
		if _, err := host.Init(); err != nil {
			return errcode.Wrap(errcode.Failed, "pca9685 host init", err)
		}
		b, err := i2creg.Open(c.conf.Bus)
		if err != nil {
			return errcode.Wrap(errcode.Failed, "pca9685 open bus", err)
		}
		c.closer = b
		bus = b
	}
	dev, err := pca9685.NewI2C(bus, c.conf.Addr)
	if err != nil {
		c.closeBus()
		return errcode.Wrap(errcode.Failed, "pca9685 init", err)
	}
	if err := dev.SetPwmFreq(frequency(c.period)); err != nil {
		c.closeBus()
		return errcode.Wrap(errcode.Failed, "pca9685 init", err)
	}
	if err := dev.SetAllPwm(0, 0); err != nil {
		c.closeBus()
		return errcode.Wrap(errcode.Failed, "pca9685 init", err)
	}
	c.dev = dev
	if Debug {
		log.Printf("pca9685: addr %#x on %s, period %dus", c.conf.Addr, bus, c.period)
	}
	return nil
}

func (c *Controller) closeBus() {
	if c.closer != nil {
		c.closer.Close()
		c.closer = nil
	}
}

// Deinit turns all outputs off and releases the bus.
func (c *Controller) Deinit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return nil
	}
	err := c.dev.SetAllPwm(0, 0)
	c.dev = nil
	c.open = [Channels]bool{}
	c.closeBus()
	return err
}

func (c *Controller) check(op string, ch int) error {
	if ch < 0 || ch >= Channels {
		return errcode.New(errcode.OutOfRange, op, "channel %d outside 0..%d", ch, Channels-1)
	}
	if c.dev == nil {
		return errcode.New(errcode.TryAgain, op, "pca9685 not initialised")
	}
	return nil
}

func (c *Controller) Open(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("open", ch); err != nil {
		return err
	}
	c.open[ch] = true
	return nil
}

// Close turns the channel output off.
func (c *Controller) Close(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("close", ch); err != nil {
		return err
	}
	if !c.open[ch] {
		return errcode.New(errcode.TryAgain, "close", "channel %d not open", ch)
	}
	c.open[ch] = false
	return c.dev.SetPwm(ch, 0, 0)
}

// SetDuty writes duty as a count of 1/4096 of the current period.
func (c *Controller) SetDuty(ch int, duty uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("set duty", ch); err != nil {
		return err
	}
	if !c.open[ch] {
		return errcode.New(errcode.TryAgain, "set duty", "channel %d not open", ch)
	}
	if duty > maxCount {
		duty = maxCount
	}
	if Debug {
		log.Printf("pca9685: channel %d count %d", ch, duty)
	}
	if err := c.dev.SetPwm(ch, 0, gpio.Duty(duty)); err != nil {
		return errcode.Wrap(errcode.Failed, "set duty", err)
	}
	return nil
}

// SetPeriod changes the frequency of the whole chip.
func (c *Controller) SetPeriod(ch int, periodUS uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("set period", ch); err != nil {
		return err
	}
	if periodUS == 0 {
		return errcode.New(errcode.OutOfRange, "set period", "zero period")
	}
	if periodUS == c.period {
		return nil
	}
	if err := c.dev.SetPwmFreq(frequency(periodUS)); err != nil {
		return errcode.Wrap(errcode.Failed, "set period", err)
	}
	c.period = periodUS
	return nil
}

func (c *Controller) SetID(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.ID = id
	return nil
}

// PulseResolution scales 20ms frame units to chip counts of the current period.
func (c *Controller) PulseResolution(ch int) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch < 0 || ch >= Channels {
		return 0, errcode.New(errcode.OutOfRange, "pulse resolution", "channel %d", ch)
	}
	return Resolution(c.period), nil
}

func (c *Controller) Info() controller.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Resolution returns the units to count multiplier (x100) for a period.
func Resolution(periodUS uint32) uint32 {
	if periodUS == 0 {
		return 0
	}
	return 100 * FrameUS / periodUS
}

func frequency(periodUS uint32) physic.Frequency {
	return physic.Hertz * 1000000 / physic.Frequency(periodUS)
}
