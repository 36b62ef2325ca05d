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

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/easing"
	"github.com/aamcrae/servo/monitor"
	"github.com/aamcrae/servo/servo"
	"github.com/aamcrae/servo/setup"
	"github.com/aamcrae/servo/tick"
)

func TestPollerCommands(t *testing.T) {
	reg := controller.NewRegistry()
	clk := new(tick.Clock)
	rig := &setup.Rig{
		Kind: "dummy",
		Servos: []setup.Servo{{
			Name:   "servo0",
			Target: 0,
			Args:   servo.Args{PeriodUS: 40000, Curve: easing.Linear, Speed: 90, InitAngle: 90},
		}},
	}
	ctl, servos, err := rig.Open(reg, servo.NewPool(clk, easing.Float{}))
	if err != nil {
		t.Fatal(err)
	}
	defer ctl.Deinit()
	mon := monitor.New(reg)
	ts := httptest.NewServer(mon.Handler())
	defer ts.Close()
	p := &poller{clock: clk, servos: servos, mon: mon}

	for i := 0; i < 50; i++ {
		p.update()
		clk.Advance(10)
	}
	// Half way to 0, turn around towards 180.
	resp, err := http.Post(ts.URL+"/servos/0/angle?value=180", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST: %d", resp.StatusCode)
	}
	for i := 0; i < 300; i++ {
		p.update()
		clk.Advance(10)
	}
	if a, _ := servos[0].Angle(); a != 180 {
		t.Errorf("angle = %d, want 180", a)
	}
	if len(p.status) != 1 || p.status[0].Angle != 180 {
		t.Errorf("published %+v", p.status)
	}
}
