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

// Simulator program: runs every shape and curve on the dummy backend in
// simulated time and prints the angle profile of each, or serves a live
// dial of sweeping servos.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aamcrae/servo/backend/dummy"
	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/easing"
	"github.com/aamcrae/servo/monitor"
	"github.com/aamcrae/servo/servo"
	"github.com/aamcrae/servo/setup"
	"github.com/aamcrae/servo/tick"
)

var engineName = flag.String("engine", "float", "Easing engine, float or fixed")
var speed = flag.Uint("speed", 90, "Servo speed in degrees per second")
var samples = flag.Int("samples", 10, "Samples printed per move")
var port = flag.Int("port", 0, "Serve a live dial on this port instead of printing profiles")

type combo struct {
	shape easing.Shape
	curve easing.Curve
}

func main() {
	flag.Parse()
	var eng easing.Engine
	switch *engineName {
	case "float":
		eng = easing.Float{}
	case "fixed":
		eng = easing.Fixed{}
	default:
		log.Fatalf("unknown engine %q", *engineName)
	}
	var combos []combo
	for sh := easing.In; sh <= easing.BounceOutIn; sh++ {
		for c := easing.Linear; c <= easing.Precision; c++ {
			if eng.Supports(c) {
				combos = append(combos, combo{sh, c})
			}
		}
	}
	if *port != 0 {
		live(eng, combos)
		return
	}
	for _, c := range combos {
		p, err := profile(eng, c, uint32(*speed), *samples)
		if err != nil {
			log.Fatalf("%s/%s: %v", c.shape, c.curve, err)
		}
		fmt.Printf("%-24s", c.shape.String()+"/"+c.curve.String())
		for _, a := range p {
			fmt.Printf(" %3d", a)
		}
		fmt.Println()
	}
}

// profile moves a servo from 0 to 180 degrees one tick at a time and
// returns the angle at evenly spaced points of the move.
func profile(eng easing.Engine, c combo, speed uint32, n int) ([]int, error) {
	clk := new(tick.Clock)
	reg := controller.NewRegistry()
	d := dummy.New()
	d.Init()
	id, err := reg.Register(d)
	if err != nil {
		return nil, err
	}
	s, err := servo.NewPool(clk, eng).Create(reg, servo.Args{
		ControllerID: id,
		PeriodUS:     dummy.DefaultPeriod,
		Shape:        c.shape,
		Curve:        c.curve,
		Speed:        speed,
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if err := s.SetAngle(servo.MaxAngle); err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	total := servo.MaxAngle * 1000 / speed
	var out []int
	for i := 0; i <= n; i++ {
		at := total * uint32(i) / uint32(n)
		for clk.Now() < at {
			clk.Advance(1)
			if err := s.Update(); err != nil {
				return nil, err
			}
		}
		if err := s.Update(); err != nil {
			return nil, err
		}
		a, _ := s.Angle()
		out = append(out, a)
	}
	return out, nil
}

// live sweeps one servo per combination in real time and serves the dial.
func live(eng easing.Engine, combos []combo) {
	if len(combos) > dummy.MaxServo {
		combos = combos[:dummy.MaxServo]
	}
	d := dummy.New()
	d.Init()
	id, err := controller.Register(d)
	if err != nil {
		log.Fatal(err)
	}
	pool := servo.NewPool(&tick.Default, eng)
	var servos []*servo.Servo
	var names []string
	for i, c := range combos {
		s, err := pool.Create(controller.Default, servo.Args{
			ControllerID: id,
			PeriodUS:     dummy.DefaultPeriod,
			Shape:        c.shape,
			Curve:        c.curve,
			Channel:      i,
			Speed:        uint32(*speed),
		})
		if err != nil {
			log.Fatalf("%s/%s: %v", c.shape, c.curve, err)
		}
		s.OnDestinationReach(setup.Sweep)
		setup.Sweep(s)
		servos = append(servos, s)
		names = append(names, fmt.Sprintf("%d=%s/%s", i, c.shape, c.curve))
	}
	fmt.Fprintln(os.Stderr, strings.Join(names, " "))
	mon := monitor.New(controller.Default)
	go func() {
		log.Fatal(mon.ListenAndServe(*port))
	}()
	ticker := time.NewTicker(10 * time.Millisecond)
	status := make([]servo.Status, len(servos))
	for range ticker.C {
		tick.Advance(10)
		for i, s := range servos {
			s.Update()
			status[i], _ = s.Status()
		}
		mon.Publish(status)
	}
}
