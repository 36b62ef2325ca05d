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

// Package maestro drives a Pololu Maestro USB servo controller over its
// serial command port.
//
// Targets are written in quarter microseconds. Units are 1/4096 of a 20ms
// frame, so one unit is 19.53 quarter microseconds.
package maestro

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/snksoft/crc"
	"github.com/tarm/serial"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/errcode"
)

const (
	cmdSetTarget       = 0x84
	cmdSetSpeed        = 0x87
	cmdSetAcceleration = 0x89
	cmdGetErrors       = 0xa1
	cmdGoHome          = 0xa2
)

const (
	Resolution = 1953 // Quarter microseconds per unit, x100.
	Units0     = 102
	Units180   = 512
)

var Debug = false

// crc7 is the checksum appended to each command when CRC mode is enabled
// on the Maestro.
var crc7 = &crc.Parameters{Width: 7, Polynomial: 0x09, ReflectIn: true, ReflectOut: true}

var errorStrings = []string{
	"serial signal error",
	"serial overrun error",
	"serial buffer full",
	"serial crc error",
	"serial protocol error",
	"serial timeout",
	"script stack error",
	"script call stack error",
	"script program counter error",
}

// Config describes the serial connection.
type Config struct {
	Port     string
	Baud     int
	Device   uint8 // Device number, used when Compact is false.
	Compact  bool  // Compact protocol, for a single device on the line.
	CRC      bool
	Channels int
	Units0   uint32
	Units180 uint32
}

// DefaultConfig is a 6 channel Micro Maestro on its command port.
var DefaultConfig = Config{
	Port:     "/dev/ttyACM0",
	Baud:     115200,
	Device:   12,
	Compact:  true,
	Channels: 6,
	Units0:   Units0,
	Units180: Units180,
}

// Controller is a Maestro backend.
type Controller struct {
	mu     sync.Mutex
	conf   Config
	info   controller.Info
	port   io.ReadWriter
	opened io.Closer
	ready  bool
	open   []bool
	period []uint32
}

// New returns a controller that opens conf.Port when initialised.
func New(conf Config) *Controller {
	if conf.Channels <= 0 {
		conf.Channels = DefaultConfig.Channels
	}
	if conf.Baud == 0 {
		conf.Baud = DefaultConfig.Baud
	}
	return &Controller{
		conf: conf,
		info: controller.Info{
			Name:              "Pololu Maestro servo controller",
			MaxServo:          conf.Channels,
			UnitsFor0Degree:   conf.Units0,
			UnitsFor180Degree: conf.Units180,
		},
		open:   make([]bool, conf.Channels),
		period: make([]uint32, conf.Channels),
	}
}

// NewOnPort returns a controller that talks over rw instead of a serial port.
func NewOnPort(rw io.ReadWriter, conf Config) *Controller {
	c := New(conf)
	c.port = rw
	return c
}

func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	if c.port == nil {
		p, err := serial.OpenPort(&serial.Config{
			Name:        c.conf.Port,
			Baud:        c.conf.Baud,
			ReadTimeout: 500 * time.Millisecond,
		})
		if err != nil {
			return errcode.Wrap(errcode.Failed, "maestro open "+c.conf.Port, err)
		}
		c.port = p
		c.opened = p
	}
	c.ready = true
	if Debug {
		log.Printf("maestro: device %d, compact %v, crc %v", c.conf.Device, c.conf.Compact, c.conf.CRC)
	}
	return nil
}

// Deinit sends all servos home and closes the port if Init opened it.
func (c *Controller) Deinit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return nil
	}
	err := c.send(c.preamble(cmdGoHome))
	c.ready = false
	for i := range c.open {
		c.open[i] = false
	}
	if c.opened != nil {
		if cerr := c.opened.Close(); err == nil {
			err = cerr
		}
		c.opened = nil
		c.port = nil
	}
	return err
}

func (c *Controller) preamble(cmd byte) []byte {
	if c.conf.Compact {
		return []byte{cmd}
	}
	return []byte{0xaa, c.conf.Device, cmd & 0x7f}
}

func (c *Controller) send(msg []byte) error {
	if c.conf.CRC {
		msg = append(msg, byte(crc.CalculateCRC(crc7, msg)))
	}
	if Debug {
		log.Printf("maestro: % x", msg)
	}
	if _, err := c.port.Write(msg); err != nil {
		return errcode.Wrap(errcode.Failed, "maestro write", err)
	}
	return nil
}

func (c *Controller) channelCmd(cmd byte, ch int, val uint16) error {
	msg := append(c.preamble(cmd), byte(ch), byte(val&0x7f), byte((val>>7)&0x7f))
	return c.send(msg)
}

func (c *Controller) check(op string, ch int) error {
	if ch < 0 || ch >= c.conf.Channels {
		return errcode.New(errcode.OutOfRange, op, "channel %d outside 0..%d", ch, c.conf.Channels-1)
	}
	if !c.ready {
		return errcode.New(errcode.TryAgain, op, "maestro not initialised")
	}
	return nil
}

// Open removes the speed and acceleration limits of the channel so that
// targets take effect immediately.
func (c *Controller) Open(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("open", ch); err != nil {
		return err
	}
	if c.open[ch] {
		return nil
	}
	if err := c.channelCmd(cmdSetSpeed, ch, 0); err != nil {
		return err
	}
	if err := c.channelCmd(cmdSetAcceleration, ch, 0); err != nil {
		return err
	}
	c.open[ch] = true
	return nil
}

// Close stops sending pulses on the channel.
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
	return c.channelCmd(cmdSetTarget, ch, 0)
}

// SetDuty writes the target in quarter microseconds.
func (c *Controller) SetDuty(ch int, duty uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("set duty", ch); err != nil {
		return err
	}
	if !c.open[ch] {
		return errcode.New(errcode.TryAgain, "set duty", "channel %d not open", ch)
	}
	if duty > 0x3fff {
		return errcode.New(errcode.OutOfRange, "set duty", "target %d", duty)
	}
	return c.channelCmd(cmdSetTarget, ch, uint16(duty))
}

// SetPeriod records the period. The Maestro's frame period is part of its
// stored settings and cannot be changed over the command port.
func (c *Controller) SetPeriod(ch int, periodUS uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("set period", ch); err != nil {
		return err
	}
	c.period[ch] = periodUS
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
	return Resolution, nil
}

func (c *Controller) Info() controller.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Errors reads and clears the Maestro error register.
func (c *Controller) Errors() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return errcode.New(errcode.TryAgain, "errors", "maestro not initialised")
	}
	if err := c.send(c.preamble(cmdGetErrors)); err != nil {
		return err
	}
	buf := make([]byte, 2)
	if _, err := io.ReadFull(c.port, buf); err != nil {
		return errcode.Wrap(errcode.Failed, "maestro read", err)
	}
	return decodeErrors(uint16(buf[0]&0x7f) | uint16(buf[1]&0x7f)<<8)
}

func decodeErrors(val uint16) error {
	var s []string
	for i, e := range errorStrings {
		if val&(1<<i) != 0 {
			s = append(s, e)
		}
	}
	if len(s) == 0 {
		return nil
	}
	return errcode.New(errcode.Failed, "maestro", "%s", strings.Join(s, ","))
}

func (c *Controller) String() string {
	return fmt.Sprintf("maestro(%s)", c.conf.Port)
}
