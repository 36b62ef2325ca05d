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

// Servo controller program

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/aamcrae/servo/backend"
	"github.com/aamcrae/servo/backend/dcmotor"
	"github.com/aamcrae/servo/backend/dummy"
	"github.com/aamcrae/servo/backend/maestro"
	"github.com/aamcrae/servo/backend/pca9685"
	"github.com/aamcrae/servo/backend/swpwm"
	"github.com/aamcrae/servo/backend/sysfs"
	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/easing"
	"github.com/aamcrae/servo/io"
	"github.com/aamcrae/servo/monitor"
	"github.com/aamcrae/servo/servo"
	"github.com/aamcrae/servo/setup"
	"github.com/aamcrae/servo/tick"
)

var configFile = flag.String("config", "", "Rig configuration file")
var kind = flag.String("backend", "dummy", "Backend when no config file is given: "+strings.Join(backend.Kinds(), ", "))
var channel = flag.Int("channel", 0, "Servo channel when no config file is given")
var sweep = flag.Bool("sweep", true, "Sweep between 0 and 180 when no config file is given")
var interval = flag.Duration("interval", 10*time.Millisecond, "Update interval")
var runFor = flag.Duration("for", 0, "Stop after this long, 0 runs forever")
var port = flag.Int("port", 0, "Monitor web server port, 0 to disable")
var list = flag.Bool("list", false, "Print the registered controllers and exit")
var debug = flag.Bool("debug", false, "Enable debug logging")

func main() {
	flag.Parse()
	if *debug {
		servo.Debug = true
		io.Debug = true
		dummy.Debug = true
		sysfs.Debug = true
		pca9685.Debug = true
		maestro.Debug = true
		dcmotor.Debug = true
		swpwm.Debug = true
	}
	rig, err := loadRig()
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}
	ctl, servos, err := rig.Open(controller.Default, servo.DefaultPool)
	if err != nil {
		log.Fatalf("%s: %v", rig.Kind, err)
	}
	defer ctl.Deinit()
	defer setup.Close(servos)
	if *list {
		out, err := yaml.Marshal(controller.Default.List())
		if err != nil {
			log.Fatalf("list: %v", err)
		}
		os.Stdout.Write(out)
		return
	}
	var mon *monitor.Server
	if *port != 0 {
		mon = monitor.New(controller.Default)
		go func() {
			log.Fatal(mon.ListenAndServe(*port))
		}()
	}
	p := &poller{clock: &tick.Default, servos: servos, mon: mon}
	p.run(*interval, *runFor)
	for i, s := range servos {
		if st, err := s.Status(); err == nil {
			fmt.Printf("servo %d: channel %d at %d deg\n", i, st.Channel, st.Angle)
		}
	}
}

// loadRig reads the config file, or describes a single servo on the
// backend chosen by flag, moving from 70 to 0 degrees.
func loadRig() (*setup.Rig, error) {
	if *configFile != "" {
		return setup.ReadFile(*configFile)
	}
	return &setup.Rig{
		Kind: *kind,
		Servos: []setup.Servo{{
			Name:   "servo0",
			Target: 0,
			Sweep:  *sweep,
			Args: servo.Args{
				PeriodUS:  dummy.DefaultPeriod,
				Shape:     easing.InOut,
				Curve:     easing.Quadratic,
				Channel:   *channel,
				Speed:     80,
				InitAngle: 70,
			},
		}},
	}, nil
}
