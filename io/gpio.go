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
	"os"
	"path/filepath"
)

// Mode
const (
	IN  = iota // Default
	OUT = iota
)

// Gpio represents one sysfs GPIO pin.
type Gpio struct {
	number    int
	dir       string
	value     *os.File
	buf       []byte
	direction int
}

// OutputPin opens a GPIO pin and sets the direction as OUTPUT, driven low.
func OutputPin(gpio int) (*Gpio, error) {
	g, err := Pin(gpio)
	if err != nil {
		return nil, err
	}
	if err = g.Direction(OUT); err != nil {
		g.Close()
		return nil, err
	}
	if err = g.Set(0); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

// Pin exports a GPIO pin and opens it as an input.
func Pin(gpio int) (*Gpio, error) {
	base := classDir("gpio")
	g := &Gpio{number: gpio, buf: make([]byte, 1)}
	g.dir = filepath.Join(base, fmt.Sprintf("gpio%d", gpio))
	val := filepath.Join(g.dir, "value")
	if err := export(val, filepath.Join(base, "export"), gpio); err != nil {
		return nil, err
	}
	if err := g.Direction(IN); err != nil {
		unexport(filepath.Join(base, "unexport"), gpio)
		return nil, err
	}
	var err error
	g.value, err = os.OpenFile(val, os.O_RDWR, 0600)
	if err != nil {
		unexport(filepath.Join(base, "unexport"), gpio)
		return nil, err
	}
	return g, nil
}

// Number returns the GPIO number.
func (g *Gpio) Number() int {
	return g.number
}

// Direction sets the mode (direction) of the GPIO pin.
func (g *Gpio) Direction(d int) error {
	var s string
	switch d {
	case IN:
		s = "in"
	case OUT:
		s = "out"
	default:
		return fmt.Errorf("gpio%d: unknown direction", g.number)
	}
	err := writeFile(filepath.Join(g.dir, "direction"), s)
	if err == nil {
		g.direction = d
	}
	return err
}

// Set the output of the GPIO pin (only valid for OUTPUT pins)
func (g *Gpio) Set(v int) error {
	if g.direction != OUT {
		return fmt.Errorf("gpio%d: is not output", g.number)
	}
	switch v {
	case 0:
		g.buf[0] = '0'
	case 1:
		g.buf[0] = '1'
	default:
		return fmt.Errorf("gpio%d: illegal value %d", g.number, v)
	}
	_, err := g.value.WriteAt(g.buf, 0)
	return err
}

// Get returns the current value of the GPIO pin.
func (g *Gpio) Get() (int, error) {
	if _, err := g.value.ReadAt(g.buf, 0); err != nil {
		return 0, err
	}
	switch g.buf[0] {
	case '0':
		return 0, nil
	case '1':
		return 1, nil
	}
	return 0, fmt.Errorf("gpio%d: unknown value %q", g.number, g.buf)
}

// Close the GPIO pin and unexport it.
func (g *Gpio) Close() error {
	g.value.Close()
	return unexport(filepath.Join(classDir("gpio"), "unexport"), g.number)
}
