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

// Package backend creates and registers servo controllers by name.
package backend

import (
	"log"
	"sort"

	"github.com/aamcrae/servo/backend/dcmotor"
	"github.com/aamcrae/servo/backend/dummy"
	"github.com/aamcrae/servo/backend/maestro"
	"github.com/aamcrae/servo/backend/pca9685"
	"github.com/aamcrae/servo/backend/swpwm"
	"github.com/aamcrae/servo/backend/sysfs"
	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/errcode"
)

// Options holds the backend specific settings. Fields a backend does not
// use are ignored, and zero values select the backend defaults.
type Options struct {
	Chip     string // sysfs PWM chip name, instead of searching by compatible string.
	Bus      string // I2C bus.
	Addr     uint16 // I2C address.
	Port     string // Serial port.
	Baud     int
	Device   uint8 // Maestro device number.
	Compact  bool
	CRC      bool
	Pins     []int // GPIO pins for software PWM.
	Encoder  string
	PeriodUS uint32
}

var factories = map[string]func(o Options) controller.Controller{
	"dummy": func(o Options) controller.Controller {
		return dummy.New()
	},
	"mtk9050": func(o Options) controller.Controller {
		conf := sysfs.MTK9050
		conf.Chip = o.Chip
		return sysfs.New(conf)
	},
	"pca9685-linux": func(o Options) controller.Controller {
		conf := sysfs.PCA9685
		conf.Chip = o.Chip
		return sysfs.New(conf)
	},
	"pca9685": func(o Options) controller.Controller {
		conf := pca9685.DefaultConfig
		conf.Bus = o.Bus
		if o.Addr != 0 {
			conf.Addr = o.Addr
		}
		if o.PeriodUS != 0 {
			conf.PeriodUS = o.PeriodUS
		}
		return pca9685.New(conf)
	},
	"maestro": func(o Options) controller.Controller {
		conf := maestro.DefaultConfig
		if o.Port != "" {
			conf.Port = o.Port
		}
		if o.Baud != 0 {
			conf.Baud = o.Baud
		}
		if o.Device != 0 {
			conf.Device = o.Device
		}
		conf.Compact = o.Compact
		conf.CRC = o.CRC
		return maestro.New(conf)
	},
	"dcmotor": func(o Options) controller.Controller {
		conf := dcmotor.MTK9050
		if o.Encoder != "" {
			conf.Encoder = o.Encoder
		}
		if o.PeriodUS != 0 {
			conf.PeriodUS = o.PeriodUS
		}
		return dcmotor.New(conf)
	},
	"swpwm": func(o Options) controller.Controller {
		return swpwm.New(swpwm.Config{Pins: o.Pins, PeriodUS: o.PeriodUS})
	},
}

// Kinds returns the backend names accepted by New and Open.
func Kinds() []string {
	var k []string
	for name := range factories {
		k = append(k, name)
	}
	sort.Strings(k)
	return k
}

// New returns an uninitialised controller of the named kind.
func New(kind string, o Options) (controller.Controller, error) {
	f, ok := factories[kind]
	if !ok {
		return nil, errcode.New(errcode.NotSupported, "new backend", "unknown backend %q", kind)
	}
	return f(o), nil
}

// Open creates a controller of the named kind, initialises it and
// registers it with reg. A nil reg uses controller.Default.
func Open(reg *controller.Registry, kind string, o Options) (controller.Controller, int, error) {
	if reg == nil {
		reg = controller.Default
	}
	c, err := New(kind, o)
	if err != nil {
		return nil, -1, err
	}
	if err := controller.Init(c); err != nil {
		return nil, -1, err
	}
	id, err := reg.Register(c)
	if err != nil {
		c.Deinit()
		return nil, -1, err
	}
	log.Printf("backend: %s registered as controller %d", c.Info().Name, id)
	return c, id, nil
}
