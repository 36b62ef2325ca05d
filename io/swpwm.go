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
	"time"
)

type pwmMsg struct {
	period time.Duration
	on     time.Duration
	stop   chan struct{}
}

// SwPwm generates PWM on an output pin from a goroutine. Timing jitter
// depends on the scheduler, which is acceptable for hobby servos.
type SwPwm struct {
	pin Setter
	c   chan pwmMsg
}

// NewSwPWM creates a new s/w PWM controller. The output starts low.
func NewSwPWM(pin Setter) *SwPwm {
	p := &SwPwm{pin: pin, c: make(chan pwmMsg, 1)}
	go p.handler()
	return p
}

// Close stops the PWM goroutine and leaves the pin low.
func (p *SwPwm) Close() {
	sc := make(chan struct{})
	p.c <- pwmMsg{stop: sc}
	<-sc
}

// Set sets the period and the on time of each pulse. The change takes
// place at the end of the current period. A zero period turns the output off.
func (p *SwPwm) Set(period, on time.Duration) error {
	if period < 0 || on < 0 || on > period {
		return fmt.Errorf("invalid pulse %s in period %s", on, period)
	}
	// Replace any request that has not been picked up yet.
	select {
	case <-p.c:
	default:
	}
	p.c <- pwmMsg{period: period, on: on}
	return nil
}

// goroutine handler
// Listens on message channel, and runs the PWM.
func (p *SwPwm) handler() {
	var on, off time.Duration
	idle := time.Millisecond * 5
	current := 0
	p.pin.Set(0)
	for {
		if on != 0 {
			if current != 1 {
				p.pin.Set(1)
				current = 1
			}
			time.Sleep(on)
		}
		if off != 0 {
			if current != 0 {
				p.pin.Set(0)
				current = 0
			}
			time.Sleep(off)
		}
		if on == 0 && off == 0 {
			if current != 0 {
				p.pin.Set(0)
				current = 0
			}
			time.Sleep(idle)
		}
		// Check for new parameters after each cycle.
		select {
		case m := <-p.c:
			if m.stop != nil {
				p.pin.Set(0)
				close(m.stop)
				return
			}
			on = m.on
			off = m.period - m.on
		default:
		}
	}
}
