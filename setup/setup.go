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

// Package setup reads a servo rig description from a configuration file
// and brings the rig up.
//
// Sample config:
//
//	[controller]
//	backend=maestro         # one of backend.Kinds()
//	port=/dev/ttyACM0       # serial port (maestro)
//	baud=115200
//	device=12               # maestro device number
//	compact=true
//	crc=false
//	bus=I2C1                # I2C bus (pca9685)
//	address=0x40
//	chip=pwmchip0           # sysfs PWM chip, instead of the compatible search
//	pins=17,27              # GPIO pins (swpwm)
//	encoder=/dev/encoder    # dcmotor
//	period=20000            # PWM period in microseconds
//
//	[servo0]                # servo0 to servo19
//	channel=0
//	speed=80                # degrees per second
//	angle=70                # initial angle
//	target=0                # first destination, optional
//	move=in-out             # in, out, in-out, bounce-out-in
//	easing=quadratic
//	reverse=false
//	sweep=true              # bounce between 0 and 180
package setup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aamcrae/config"

	"github.com/aamcrae/servo/backend"
	"github.com/aamcrae/servo/easing"
	"github.com/aamcrae/servo/servo"
)

// DefaultPeriod is used when neither the controller nor the servo
// section sets a period.
const DefaultPeriod = 20000

// Servo is one [servoN] section.
type Servo struct {
	Name   string
	Args   servo.Args
	Target int // -1 when no first destination is set.
	Sweep  bool
}

// Rig is a controller and the servos attached to it.
type Rig struct {
	Kind    string
	Options backend.Options
	Servos  []Servo
}

// ReadFile parses a rig config file.
func ReadFile(name string) (*Rig, error) {
	conf, err := config.ParseFile(name)
	if err != nil {
		return nil, err
	}
	return Read(conf)
}

// Read extracts the rig from a parsed config.
func Read(conf *config.Config) (*Rig, error) {
	s := conf.GetSection("controller")
	if s == nil {
		return nil, fmt.Errorf("no [controller] section")
	}
	r := new(Rig)
	var err error
	if r.Kind, err = s.GetArg("backend"); err != nil {
		return nil, fmt.Errorf("backend: %v", err)
	}
	o := &r.Options
	o.Chip = optString(s, "chip")
	o.Bus = optString(s, "bus")
	o.Port = optString(s, "port")
	o.Encoder = optString(s, "encoder")
	if v := optString(s, "address"); v != "" {
		a, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("address: %v", err)
		}
		o.Addr = uint16(a)
	}
	if v := optString(s, "device"); v != "" {
		d, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("device: %v", err)
		}
		o.Device = uint8(d)
	}
	if err := optInt(s, "baud", &o.Baud); err != nil {
		return nil, err
	}
	if o.Compact, err = optBool(s, "compact", false); err != nil {
		return nil, err
	}
	if o.CRC, err = optBool(s, "crc", false); err != nil {
		return nil, err
	}
	if v := optString(s, "pins"); v != "" {
		for _, p := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("pins: %v", err)
			}
			o.Pins = append(o.Pins, n)
		}
	}
	var period int
	if err := optInt(s, "period", &period); err != nil {
		return nil, err
	}
	o.PeriodUS = uint32(period)

	for i := 0; i < servo.MaxInstances; i++ {
		name := fmt.Sprintf("servo%d", i)
		sect := conf.GetSection(name)
		if sect == nil {
			continue
		}
		sv, err := readServo(sect, name, o.PeriodUS)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
		r.Servos = append(r.Servos, *sv)
	}
	return r, nil
}

func readServo(s *config.Section, name string, period uint32) (*Servo, error) {
	sv := &Servo{Name: name, Target: -1}
	a := &sv.Args
	n, err := s.Parse("channel", "%d", &a.Channel)
	if err != nil {
		return nil, fmt.Errorf("channel: %v", err)
	}
	if n != 1 {
		return nil, fmt.Errorf("channel: argument count")
	}
	speed, angle, p := 90, 90, int(period)
	if err := optInt(s, "speed", &speed); err != nil {
		return nil, err
	}
	if err := optInt(s, "angle", &angle); err != nil {
		return nil, err
	}
	if err := optInt(s, "target", &sv.Target); err != nil {
		return nil, err
	}
	if err := optInt(s, "period", &p); err != nil {
		return nil, err
	}
	if speed <= 0 || angle < 0 || angle > servo.MaxAngle {
		return nil, fmt.Errorf("speed %d or angle %d out of range", speed, angle)
	}
	if p <= 0 {
		p = DefaultPeriod
	}
	a.Speed, a.InitAngle, a.PeriodUS = uint32(speed), uint32(angle), uint32(p)
	a.Shape, a.Curve = easing.InOut, easing.Quadratic
	if v := optString(s, "move"); v != "" {
		if a.Shape, err = easing.ParseShape(v); err != nil {
			return nil, err
		}
	}
	if v := optString(s, "easing"); v != "" {
		if a.Curve, err = easing.ParseCurve(v); err != nil {
			return nil, err
		}
	}
	if a.Reverse, err = optBool(s, "reverse", false); err != nil {
		return nil, err
	}
	if sv.Sweep, err = optBool(s, "sweep", false); err != nil {
		return nil, err
	}
	return sv, nil
}

func optString(s *config.Section, key string) string {
	v, err := s.GetArg(key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func optInt(s *config.Section, key string, v *int) error {
	str := optString(s, key)
	if str == "" {
		return nil
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	*v = n
	return nil
}

func optBool(s *config.Section, key string, def bool) (bool, error) {
	str := optString(s, key)
	if str == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(str)
	if err != nil {
		return def, fmt.Errorf("%s: %v", key, err)
	}
	return b, nil
}
