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

package io

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Chip is a sysfs PWM chip.
type Chip struct {
	Name string
	dir  string
}

// FindChip returns the first PWM chip whose device tree compatible
// string matches compatible.
func FindChip(compatible string) (*Chip, error) {
	base := classDir("pwm")
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		dir := filepath.Join(base, e.Name())
		c, err := readFile(filepath.Join(dir, "device", "of_node", "compatible"))
		if err != nil {
			continue
		}
		if c == compatible {
			if Debug {
				log.Printf("pwm: found %s at %s", compatible, dir)
			}
			return &Chip{Name: e.Name(), dir: dir}, nil
		}
	}
	return nil, fmt.Errorf("no %s PWM chip in %s", compatible, base)
}

// OpenChip opens a chip by name, e.g pwmchip0.
func OpenChip(name string) (*Chip, error) {
	dir := filepath.Join(classDir("pwm"), name)
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return &Chip{Name: name, dir: dir}, nil
}

// Channels returns the number of channels the chip reports.
func (c *Chip) Channels() (int, error) {
	s, err := readFile(filepath.Join(c.dir, "npwm"))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// PwmChannel is one exported channel of a chip. Period and duty are in
// nanoseconds.
type PwmChannel struct {
	chip   *Chip
	unit   int
	base   string
	pFile  *os.File
	dFile  *os.File
	period int64
	duty   int64
}

// Export exports a channel and opens its period and duty files.
// The channel is left disabled.
func (c *Chip) Export(unit int) (*PwmChannel, error) {
	p := &PwmChannel{chip: c, unit: unit, period: -1, duty: -1}
	p.base = filepath.Join(c.dir, fmt.Sprintf("pwm%d", unit))
	expFile := filepath.Join(c.dir, "export")
	unexpFile := filepath.Join(c.dir, "unexport")
	pName := filepath.Join(p.base, "period")
	if err := export(pName, expFile, unit); err != nil {
		return nil, err
	}
	var err error
	p.pFile, err = os.OpenFile(pName, os.O_RDWR, 0600)
	if err != nil {
		unexport(unexpFile, unit)
		return nil, err
	}
	dName := filepath.Join(p.base, "duty_cycle")
	if Verify {
		if err = verifyFile(dName); err != nil {
			p.pFile.Close()
			unexport(unexpFile, unit)
			return nil, err
		}
	}
	p.dFile, err = os.OpenFile(dName, os.O_RDWR, 0600)
	if err != nil {
		p.pFile.Close()
		unexport(unexpFile, unit)
		return nil, err
	}
	return p, nil
}

// Unit returns the channel number on the chip.
func (p *PwmChannel) Unit() int {
	return p.unit
}

// Enable turns the output on or off.
func (p *PwmChannel) Enable(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return writeFile(filepath.Join(p.base, "enable"), v)
}

// Close disables and unexports the channel.
func (p *PwmChannel) Close() error {
	err := p.Enable(false)
	p.pFile.Close()
	p.dFile.Close()
	if uerr := unexport(filepath.Join(p.chip.dir, "unexport"), p.unit); err == nil {
		err = uerr
	}
	return err
}

// SetPeriod changes the period, lowering the duty first if it would
// otherwise exceed the new period.
func (p *PwmChannel) SetPeriod(ns int64) error {
	duty := p.duty
	if duty < 0 {
		duty = 0
	}
	if duty > ns {
		duty = ns
	}
	return p.Set(ns, duty)
}

// SetDuty changes the duty. The period must already be set.
func (p *PwmChannel) SetDuty(ns int64) error {
	if p.period < 0 {
		return fmt.Errorf("pwm%d: period not set", p.unit)
	}
	return p.Set(p.period, ns)
}

// Set writes the period and duty, both in nanoseconds.
func (p *PwmChannel) Set(period, duty int64) error {
	if period < 15 {
		return fmt.Errorf("pwm%d: invalid period %d", p.unit, period)
	}
	if duty < 0 || duty > period {
		return fmt.Errorf("pwm%d: duty %d outside period %d", p.unit, duty, period)
	}
	// The kernel rejects a duty greater than the current period, so the
	// period is written first when lengthening it.
	if period > p.period {
		if err := p.write(p.pFile, period); err != nil {
			return err
		}
		if duty != p.duty {
			if err := p.write(p.dFile, duty); err != nil {
				return err
			}
		}
	} else {
		if duty != p.duty {
			if err := p.write(p.dFile, duty); err != nil {
				return err
			}
		}
		if period != p.period {
			if err := p.write(p.pFile, period); err != nil {
				return err
			}
		}
	}
	p.period = period
	p.duty = duty
	return nil
}

// Period returns the last period written, or -1.
func (p *PwmChannel) Period() int64 {
	return p.period
}

// Duty returns the last duty written, or -1.
func (p *PwmChannel) Duty() int64 {
	return p.duty
}

func (p *PwmChannel) write(f *os.File, v int64) error {
	// Attributes ignore truncation; plain files need it to drop stale digits.
	f.Truncate(0)
	_, err := f.WriteAt([]byte(strconv.FormatInt(v, 10)), 0)
	if err != nil {
		return fmt.Errorf("pwm%d: %w", p.unit, err)
	}
	return nil
}
