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

// Package sysfs drives servos from a Linux PWM chip exported through
// /sys/class/pwm. The chip is found by its device tree compatible string.
//
// PWM units are 1/4096 of a 20ms frame irrespective of the period, so the
// calibration values keep describing pulse widths when the period changes.
package sysfs

import (
	"log"
	"sync"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/errcode"
	"github.com/aamcrae/servo/io"
)

// FrameUS is the reference frame that PWM units divide into 4096 steps.
const FrameUS = 20000

// resolution converts units to nanoseconds: duty = units * resolution / 100.
const resolution = FrameUS * 1000 * 100 / 4096

// Debug logs duty and period writes.
var Debug = false

// Config describes a PWM chip.
type Config struct {
	Name       string
	Compatible string
	Chip       string // If set, used instead of searching by Compatible.
	Channels   int
	PinMap     []int // Chip pin for each channel. Unmapped channels use their own number.
	Units0     uint32
	Units180   uint32
	PeriodUS   uint32 // Period set when a channel is opened.
}

// MTK9050 is the MediaTek 9050 on board PWM.
var MTK9050 = Config{
	Name:       "MTK_9050_linux servo controller",
	Compatible: "mstar,pwm",
	Channels:   16,
	PinMap:     []int{15},
	Units0:     111,
	Units180:   491,
	PeriodUS:   40000,
}

// PCA9685 is a PCA9685 bound to the kernel pwm-pca9685 driver.
var PCA9685 = Config{
	Name:       "PCA9685_linux servo controller",
	Compatible: "nxp,pca9685-pwm",
	Channels:   16,
	Units0:     111,
	Units180:   491,
	PeriodUS:   20000,
}

type channel struct {
	pwm    *io.PwmChannel
	period uint32
}

// Controller is a sysfs PWM backend.
type Controller struct {
	mu       sync.Mutex
	conf     Config
	info     controller.Info
	chip     *io.Chip
	channels []*channel
}

// New returns an uninitialised controller for the chip described by conf.
func New(conf Config) *Controller {
	return &Controller{
		conf: conf,
		info: controller.Info{
			Name:              conf.Name,
			MaxServo:          conf.Channels,
			UnitsFor0Degree:   conf.Units0,
			UnitsFor180Degree: conf.Units180,
		},
		channels: make([]*channel, conf.Channels),
	}
}

// Init locates the chip. Calling Init again has no effect.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chip != nil {
		return nil
	}
	var err error
	if c.conf.Chip != "" {
		c.chip, err = io.OpenChip(c.conf.Chip)
	} else {
		c.chip, err = io.FindChip(c.conf.Compatible)
	}
	if err != nil {
		return errcode.Wrap(errcode.Failed, "init "+c.conf.Name, err)
	}
	if Debug {
		log.Printf("sysfs: %s using %s", c.conf.Name, c.chip.Name)
	}
	return nil
}

// Deinit closes every open channel.
func (c *Controller) Deinit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for i, ch := range c.channels {
		if ch == nil {
			continue
		}
		if err := ch.pwm.Close(); err != nil && first == nil {
			first = err
		}
		c.channels[i] = nil
	}
	c.chip = nil
	return first
}

func (c *Controller) pin(ch int) int {
	if ch < len(c.conf.PinMap) {
		return c.conf.PinMap[ch]
	}
	return ch
}

func (c *Controller) check(op string, ch int) error {
	if ch < 0 || ch >= c.conf.Channels {
		return errcode.New(errcode.OutOfRange, op, "channel %d outside 0..%d", ch, c.conf.Channels-1)
	}
	if c.chip == nil {
		return errcode.New(errcode.TryAgain, op, "%s not initialised", c.conf.Name)
	}
	return nil
}

func (c *Controller) open(op string, ch int) (*channel, error) {
	if err := c.check(op, ch); err != nil {
		return nil, err
	}
	p := c.channels[ch]
	if p == nil {
		return nil, errcode.New(errcode.TryAgain, op, "channel %d not open", ch)
	}
	return p, nil
}

// Open exports the channel, sets the default period and enables it.
func (c *Controller) Open(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("open", ch); err != nil {
		return err
	}
	if c.channels[ch] != nil {
		return nil
	}
	pwm, err := c.chip.Export(c.pin(ch))
	if err != nil {
		return errcode.Wrap(errcode.Failed, "open", err)
	}
	p := &channel{pwm: pwm, period: c.conf.PeriodUS}
	if err := pwm.Set(int64(p.period)*1000, 0); err != nil {
		pwm.Close()
		return err
	}
	if err := pwm.Enable(true); err != nil {
		pwm.Close()
		return err
	}
	c.channels[ch] = p
	return nil
}

func (c *Controller) Close(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.open("close", ch)
	if err != nil {
		return err
	}
	c.channels[ch] = nil
	return p.pwm.Close()
}

// SetDuty writes the duty in nanoseconds.
func (c *Controller) SetDuty(ch int, duty uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.open("set duty", ch)
	if err != nil {
		return err
	}
	if Debug {
		log.Printf("sysfs: channel %d duty %dns", ch, duty)
	}
	return p.pwm.SetDuty(int64(duty))
}

func (c *Controller) SetPeriod(ch int, periodUS uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.open("set period", ch)
	if err != nil {
		return err
	}
	if err := p.pwm.SetPeriod(int64(periodUS) * 1000); err != nil {
		return err
	}
	p.period = periodUS
	return nil
}

func (c *Controller) SetID(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.ID = id
	return nil
}

func (c *Controller) PulseResolution(ch int) (uint32, error) {
	if ch < 0 || ch >= c.conf.Channels {
		return 0, errcode.New(errcode.OutOfRange, "pulse resolution", "channel %d", ch)
	}
	return resolution, nil
}

func (c *Controller) Info() controller.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}
