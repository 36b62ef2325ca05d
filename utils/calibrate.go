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

// Calibration utility: writes raw PWM units to one servo channel so that
// the units for 0 and 180 degrees can be found by eye.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aamcrae/servo/backend"
	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/setup"
)

var configFile = flag.String("config", "", "Rig configuration file, for the [controller] section")
var kind = flag.String("backend", "dummy", "Backend when no config file is given")
var channel = flag.Int("channel", 0, "Channel to calibrate")
var period = flag.Uint("period", 20000, "PWM period in microseconds")

func main() {
	flag.Parse()
	r := &setup.Rig{Kind: *kind}
	if *configFile != "" {
		var err error
		if r, err = setup.ReadFile(*configFile); err != nil {
			log.Fatalf("%s: %v", *configFile, err)
		}
	}
	ctl, _, err := backend.Open(controller.Default, r.Kind, r.Options)
	if err != nil {
		log.Fatalf("%s: %v", r.Kind, err)
	}
	defer ctl.Deinit()
	if err := ctl.Open(*channel); err != nil {
		log.Fatalf("channel %d: %v", *channel, err)
	}
	if err := ctl.SetPeriod(*channel, uint32(*period)); err != nil {
		log.Fatalf("period %d: %v", *period, err)
	}
	inf := ctl.Info()
	units := (inf.UnitsFor0Degree + inf.UnitsFor180Degree) / 2
	low, high := inf.UnitsFor0Degree, inf.UnitsFor180Degree
	reader := bufio.NewReader(os.Stdin)
	for {
		if err := write(ctl, units); err != nil {
			log.Printf("units %d: %v", units, err)
		}
		fmt.Printf("Units %d (0 deg %d, 180 deg %d)\n", units, low, high)
		fmt.Print("Enter units or command ('help' for help) ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)
		switch text {
		case "help":
			fmt.Println("  help - print help")
			fmt.Println("  NNN - write NNN units")
			fmt.Println("  +, - - step one unit")
			fmt.Println("  l - record current units as 0 degrees")
			fmt.Println("  h - record current units as 180 degrees")
			fmt.Println("  q - quit")
		case "q":
			fmt.Printf("units_for_0_degree=%d\nunits_for_180_degree=%d\n", low, high)
			return
		case "+":
			units++
		case "-":
			if units > 0 {
				units--
			}
		case "l":
			low = units
		case "h":
			high = units
		default:
			var v uint32
			n, err := fmt.Sscanf(text, "%d", &v)
			if err != nil || n != 1 {
				fmt.Printf("Unrecognised input\n")
			} else {
				units = v
			}
		}
	}
}

// write converts units to the backend duty the same way a moving servo does.
func write(ctl controller.Controller, units uint32) error {
	res, err := ctl.PulseResolution(*channel)
	if err != nil {
		return err
	}
	return ctl.SetDuty(*channel, uint32(uint64(units)*uint64(res)/100))
}
