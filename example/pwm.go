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

// Program to demonstrate driving a servo directly from a sysfs PWM channel,
// easing between the two ends of its travel.

package main

import (
	"flag"
	"log"
	"time"

	"github.com/aamcrae/servo/easing"
	"github.com/aamcrae/servo/io"
)

var chipName = flag.String("chip", "", "PWM chip, e.g pwmchip0")
var compatible = flag.String("compatible", "mstar,pwm", "Compatible string used to find the chip when -chip is not set")
var pwmUnit = flag.Int("pwm", 0, "PWM unit on the chip")
var minPulse = flag.Duration("min", 544*time.Microsecond, "Pulse for 0 degrees")
var maxPulse = flag.Duration("max", 2400*time.Microsecond, "Pulse for 180 degrees")
var moveTime = flag.Duration("move", 2*time.Second, "Time for each move")
var cycles = flag.Int("cycles", 5, "Number of back and forth moves")

const period = 20 * time.Millisecond

func main() {
	flag.Parse()
	var chip *io.Chip
	var err error
	if *chipName != "" {
		chip, err = io.OpenChip(*chipName)
	} else {
		chip, err = io.FindChip(*compatible)
	}
	if err != nil {
		log.Fatalf("PWM chip: %v", err)
	}
	pwm, err := chip.Export(*pwmUnit)
	if err != nil {
		log.Fatalf("PWM unit %d: %v", *pwmUnit, err)
	}
	defer pwm.Close()
	if err := pwm.Set(period.Nanoseconds(), minPulse.Nanoseconds()); err != nil {
		log.Fatalf("Set: %v", err)
	}
	if err := pwm.Enable(true); err != nil {
		log.Fatalf("Enable: %v", err)
	}
	for i := 0; i < *cycles; i++ {
		move(pwm, *minPulse, *maxPulse)
		move(pwm, *maxPulse, *minPulse)
	}
}

func move(pwm *io.PwmChannel, from, to time.Duration) {
	steps := int(*moveTime / period)
	for i := 0; i <= steps; i++ {
		f, err := easing.Ease(easing.InOut, easing.Sine, float64(i)/float64(steps))
		if err != nil {
			log.Fatalf("Ease: %v", err)
		}
		d := from + time.Duration(f*float64(to-from))
		if err := pwm.SetDuty(d.Nanoseconds()); err != nil {
			log.Fatalf("SetDuty %s: %v", d, err)
		}
		time.Sleep(period)
	}
}
