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

// Package dcmotor drives DC motors through an H bridge on two PWM pins per
// motor, treating the motor as a servo whose angle scales the drive level.
// Motors with an encoder accumulate the distance moved on every servo update.
package dcmotor

import (
	"log"
	"sync"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/errcode"
	"github.com/aamcrae/servo/io"
)

const (
	MaxMotors     = 4
	DefaultPeriod = 40000
	Units0        = 0
	Units180      = 400 // Units are 1/400 of the period.
)

var Debug = false

// Motor maps a motor to its bridge pins.
type Motor struct {
	Forward  int
	Backward int
	Feedback bool // Encoder channel with the same number as the motor.
}

type Config struct {
	Compatible string
	Motors     []Motor
	PeriodUS   uint32
	Encoder    string
}

// MTK9050 is the single motor bridge on the MTK 9050 board.
var MTK9050 = Config{
	Compatible: "mstar,pwm",
	Motors:     []Motor{{Forward: 15, Backward: 14, Feedback: true}},
	PeriodUS:   DefaultPeriod,
	Encoder:    DefaultEncoder,
}

type motor struct {
	fwd, back *io.PwmChannel
	period    uint32
	last      int64
	moved     int64
}

// Controller is a DC motor backend.
type Controller struct {
	mu     sync.Mutex
	conf   Config
	info   controller.Info
	chip   *io.Chip
	enc    *Encoder
	motors [MaxMotors]*motor
}

func New(conf Config) *Controller {
	if conf.PeriodUS == 0 {
		conf.PeriodUS = DefaultPeriod
	}
	return &Controller{
		conf: conf,
		info: controller.Info{
			Name:              "MTK_9050_dc_motor",
			MaxServo:          MaxMotors,
			UnitsFor0Degree:   Units0,
			UnitsFor180Degree: Units180,
		},
	}
}

// Init finds the PWM chip and maps the encoder if any motor uses feedback.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chip != nil {
		return nil
	}
	chip, err := io.FindChip(c.conf.Compatible)
	if err != nil {
		return errcode.Wrap(errcode.Failed, "dc motor init", err)
	}
	for _, m := range c.conf.Motors {
		if m.Feedback && c.enc == nil {
			if c.enc, err = OpenEncoder(c.conf.Encoder); err != nil {
				return err
			}
		}
	}
	c.chip = chip
	return nil
}

func (c *Controller) Deinit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for i, m := range c.motors {
		if m == nil {
			continue
		}
		if err := m.close(); err != nil && first == nil {
			first = err
		}
		c.motors[i] = nil
	}
	if c.enc != nil {
		if err := c.enc.Close(); err != nil && first == nil {
			first = err
		}
		c.enc = nil
	}
	c.chip = nil
	return first
}

func (m *motor) close() error {
	err := m.fwd.Close()
	if berr := m.back.Close(); err == nil {
		err = berr
	}
	return err
}

func (c *Controller) check(op string, ch int) error {
	if ch < 0 || ch >= MaxMotors {
		return errcode.New(errcode.OutOfRange, op, "motor %d outside 0..%d", ch, MaxMotors-1)
	}
	if c.chip == nil {
		return errcode.New(errcode.TryAgain, op, "dc motor not initialised")
	}
	return nil
}

func (c *Controller) motor(op string, ch int) (*motor, error) {
	if err := c.check(op, ch); err != nil {
		return nil, err
	}
	m := c.motors[ch]
	if m == nil {
		return nil, errcode.New(errcode.TryAgain, op, "motor %d not open", ch)
	}
	return m, nil
}

func export(chip *io.Chip, pin int, period uint32) (*io.PwmChannel, error) {
	p, err := chip.Export(pin)
	if err != nil {
		return nil, errcode.Wrap(errcode.Failed, "export", err)
	}
	if err := p.Set(int64(period)*1000, 0); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.Enable(true); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Open exports and enables both bridge pins of the motor.
func (c *Controller) Open(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("open", ch); err != nil {
		return err
	}
	if c.motors[ch] != nil {
		return nil
	}
	if ch >= len(c.conf.Motors) {
		return errcode.New(errcode.NotSupported, "open", "motor %d has no pins", ch)
	}
	pins := c.conf.Motors[ch]
	fwd, err := export(c.chip, pins.Forward, c.conf.PeriodUS)
	if err != nil {
		return err
	}
	back, err := export(c.chip, pins.Backward, c.conf.PeriodUS)
	if err != nil {
		fwd.Close()
		return err
	}
	c.motors[ch] = &motor{fwd: fwd, back: back, period: c.conf.PeriodUS}
	return nil
}

func (c *Controller) Close(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.motor("close", ch)
	if err != nil {
		return err
	}
	c.motors[ch] = nil
	return m.close()
}

// SetDuty drives the forward pin, duty in nanoseconds.
func (c *Controller) SetDuty(ch int, duty uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.motor("set duty", ch)
	if err != nil {
		return err
	}
	if Debug {
		log.Printf("dcmotor: motor %d duty %dns", ch, duty)
	}
	return m.fwd.SetDuty(int64(duty))
}

func (c *Controller) SetPeriod(ch int, periodUS uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.motor("set period", ch)
	if err != nil {
		return err
	}
	if periodUS == 0 {
		return errcode.New(errcode.OutOfRange, "set period", "zero period")
	}
	for _, p := range []*io.PwmChannel{m.fwd, m.back} {
		if err := p.SetPeriod(int64(periodUS) * 1000); err != nil {
			return err
		}
	}
	m.period = periodUS
	return nil
}

func (c *Controller) SetID(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.ID = id
	return nil
}

// PulseResolution converts 1/400 period units into nanoseconds.
func (c *Controller) PulseResolution(ch int) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch < 0 || ch >= MaxMotors {
		return 0, errcode.New(errcode.OutOfRange, "pulse resolution", "motor %d", ch)
	}
	period := c.conf.PeriodUS
	if m := c.motors[ch]; m != nil {
		period = m.period
	}
	return uint32(uint64(period) * 1000 * 100 / Units180), nil
}

func (c *Controller) Info() controller.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// RegisterServoEvent subscribes motors with feedback to servo updates.
func (c *Controller) RegisterServoEvent(s controller.ServoHandle) error {
	ch := s.Channel()
	c.mu.Lock()
	m, err := c.motor("register event", ch)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.conf.Motors[ch].Feedback || c.enc == nil {
		c.mu.Unlock()
		return nil
	}
	cnt, err := c.enc.Read(ch)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	m.last = cnt.Forward
	c.mu.Unlock()
	return s.OnUpdate(func() { c.feedback(ch) })
}

func (c *Controller) feedback(ch int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.motors[ch]
	if m == nil || c.enc == nil {
		return
	}
	cnt, err := c.enc.Read(ch)
	if err != nil {
		log.Printf("dcmotor: motor %d: %v", ch, err)
		return
	}
	delta := cnt.Forward - m.last
	m.moved += delta
	m.last = cnt.Forward
	if Debug && delta != 0 {
		log.Printf("dcmotor: motor %d moved %d (total %d)", ch, delta, m.moved)
	}
}

// Moved returns the encoder distance accumulated since the motor was opened.
func (c *Controller) Moved(ch int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.motor("moved", ch)
	if err != nil {
		return 0, err
	}
	return m.moved, nil
}
