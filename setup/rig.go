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

package setup

import (
	"log"

	"github.com/aamcrae/servo/backend"
	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/servo"
)

// Open brings up the backend and creates each servo on it. Servos with a
// target start moving, and sweeping servos turn around at each end.
func (r *Rig) Open(reg *controller.Registry, pool *servo.Pool) (controller.Controller, []*servo.Servo, error) {
	ctl, id, err := backend.Open(reg, r.Kind, r.Options)
	if err != nil {
		return nil, nil, err
	}
	var servos []*servo.Servo
	fail := func(err error) (controller.Controller, []*servo.Servo, error) {
		Close(servos)
		ctl.Deinit()
		return nil, nil, err
	}
	for _, sc := range r.Servos {
		a := sc.Args
		a.ControllerID = id
		s, err := pool.Create(reg, a)
		if err != nil {
			return fail(err)
		}
		servos = append(servos, s)
		target := sc.Target
		if sc.Sweep {
			s.OnDestinationReach(Sweep)
			if target < 0 {
				target = far(int(a.InitAngle))
			}
		}
		if target < 0 {
			continue
		}
		if err := s.SetAngle(target); err != nil {
			return fail(err)
		}
		if err := s.Start(); err != nil {
			return fail(err)
		}
		log.Printf("%s: channel %d moving from %d to %d", sc.Name, a.Channel, a.InitAngle, target)
	}
	return ctl, servos, nil
}

func far(angle int) int {
	if angle >= servo.MaxAngle/2 {
		return 0
	}
	return servo.MaxAngle
}

// Sweep is a destination callback that sends the servo back to the
// opposite end of its range.
func Sweep(s *servo.Servo) {
	a, err := s.Angle()
	if err != nil {
		log.Printf("sweep: %v", err)
		return
	}
	if err := s.SetAngle(far(a)); err != nil {
		log.Printf("sweep: channel %d: %v", s.Channel(), err)
		return
	}
	if err := s.Start(); err != nil {
		log.Printf("sweep: channel %d: %v", s.Channel(), err)
	}
}

// Close releases the servos and their channels.
func Close(servos []*servo.Servo) {
	for _, s := range servos {
		if err := s.Close(); err != nil {
			log.Printf("close channel %d: %v", s.Channel(), err)
		}
	}
}
