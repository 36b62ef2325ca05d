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

package servo_test

import (
	"fmt"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/controller/controllertest"
	"github.com/aamcrae/servo/easing"
	"github.com/aamcrae/servo/servo"
	"github.com/aamcrae/servo/tick"
)

func Example() {
	var clk tick.Clock
	reg := controller.NewRegistry()
	ctl := controllertest.New()
	ctl.Init()
	id, _ := reg.Register(ctl)

	pool := servo.NewPool(&clk, easing.Float{})
	s, err := pool.Create(reg, servo.Args{
		ControllerID: id,
		PeriodUS:     40000,
		Shape:        easing.InOut,
		Curve:        easing.Quadratic,
		Speed:        80,
		InitAngle:    70,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	s.OnDestinationReach(func(s *servo.Servo) {
		a, _ := s.Angle()
		fmt.Printf("reached %d at tick %d\n", a, clk.Now())
	})
	s.SetAngle(0)
	s.Start()
	for i := 0; i < 100; i++ {
		s.Update()
		clk.Advance(10)
	}
	// Output:
	// reached 0 at tick 890
}
