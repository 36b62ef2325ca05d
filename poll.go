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

// Poll loop

package main

import (
	"log"
	"time"

	"github.com/aamcrae/servo/monitor"
	"github.com/aamcrae/servo/servo"
	"github.com/aamcrae/servo/tick"
)

type poller struct {
	clock  *tick.Clock
	servos []*servo.Servo
	mon    *monitor.Server
	status []servo.Status
}

// run advances the tick clock by the wall time elapsed since the last
// update and updates every servo, until d has passed.
func (p *poller) run(every, d time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	start := time.Now()
	last := start
	for now := range ticker.C {
		ms := now.Sub(last).Milliseconds()
		if ms > 0 {
			p.clock.Advance(uint32(ms))
			last = last.Add(time.Duration(ms) * time.Millisecond)
		}
		p.update()
		if d != 0 && now.Sub(start) >= d {
			return
		}
	}
}

// update runs one pass over the servos, applying any move requests
// from the monitor first.
func (p *poller) update() {
	if p.mon != nil {
		p.commands()
	}
	p.status = p.status[:0]
	for i, s := range p.servos {
		if err := s.Update(); err != nil {
			log.Printf("servo %d: %v", i, err)
		}
		if st, err := s.Status(); err == nil {
			p.status = append(p.status, st)
		}
	}
	if p.mon != nil {
		p.mon.Publish(p.status)
	}
}

func (p *poller) commands() {
	for {
		select {
		case c := <-p.mon.Commands():
			if c.Servo >= len(p.servos) {
				continue
			}
			s := p.servos[c.Servo]
			if moving, _ := s.IsMoving(); moving {
				s.Stop()
			}
			if err := s.SetAngle(c.Angle); err != nil {
				log.Printf("servo %d: %v", c.Servo, err)
				continue
			}
			if err := s.Start(); err != nil {
				log.Printf("servo %d: %v", c.Servo, err)
			}
		default:
			return
		}
	}
}
