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

package swpwm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aamcrae/servo/errcode"
	"github.com/aamcrae/servo/io"
)

func fakeGpio(t *testing.T, pins ...string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{"gpio/export": "", "gpio/unexport": ""}
	for _, p := range pins {
		files["gpio/gpio"+p+"/direction"] = "in"
		files["gpio/gpio"+p+"/value"] = "0"
	}
	for name, v := range files {
		p := filepath.Join(root, name)
		os.MkdirAll(filepath.Dir(p), 0755)
		if err := os.WriteFile(p, []byte(v), 0644); err != nil {
			t.Fatal(err)
		}
	}
	oldRoot, oldVerify := io.Root, io.Verify
	io.Root, io.Verify = root, false
	t.Cleanup(func() { io.Root, io.Verify = oldRoot, oldVerify })
	return root
}

func TestController(t *testing.T) {
	root := fakeGpio(t, "17", "27")
	c := New(Config{Pins: []int{17, 27}})
	if err := c.Open(0); errcode.Of(err) != errcode.TryAgain {
		t.Errorf("Open before Init: %v", err)
	}
	c.Init()
	if err := c.Open(2); errcode.Of(err) != errcode.OutOfRange {
		t.Errorf("Open(2): %v", err)
	}
	if err := c.Open(1); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(filepath.Join(root, "gpio/gpio27/direction")); string(b) != "out" {
		t.Errorf("direction = %q", b)
	}
	res, _ := c.PulseResolution(1)
	// 307 units is about 1.5ms.
	if err := c.SetDuty(1, 307*res/100); err != nil {
		t.Fatal(err)
	}
	if p, _ := c.Pulse(1); p != 1498 {
		t.Errorf("pulse = %dus, want 1498", p)
	}
	if err := c.SetDuty(0, 1500); errcode.Of(err) != errcode.TryAgain {
		t.Errorf("SetDuty on closed channel: %v", err)
	}
	if err := c.SetPeriod(1, 10000); err != nil {
		t.Error(err)
	}
	if inf := c.Info(); inf.MaxServo != 2 {
		t.Errorf("info = %+v", inf)
	}
	if err := c.Deinit(); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(filepath.Join(root, "gpio/unexport")); string(b) != "27" {
		t.Errorf("unexport = %q", b)
	}
}
