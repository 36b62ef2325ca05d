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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeSysfs builds a sysfs tree under a temporary Root.
func fakeSysfs(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, v := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(v), 0644); err != nil {
			t.Fatal(err)
		}
	}
	old, oldVerify := Root, Verify
	Root, Verify = root, false
	t.Cleanup(func() { Root, Verify = old, oldVerify })
	return root
}

func content(t *testing.T, root, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestFindChip(t *testing.T) {
	fakeSysfs(t, map[string]string{
		"pwm/pwmchip0/device/of_node/compatible": "brcm,bcm2835-pwm\x00",
		"pwm/pwmchip1/device/of_node/compatible": "mstar,pwm\n",
		"pwm/pwmchip1/npwm":                      "16\n",
	})
	c, err := FindChip("mstar,pwm")
	if err != nil {
		t.Fatalf("FindChip: %v", err)
	}
	if c.Name != "pwmchip1" {
		t.Errorf("found %s, want pwmchip1", c.Name)
	}
	if n, err := c.Channels(); err != nil || n != 16 {
		t.Errorf("Channels = %d, %v", n, err)
	}
	if _, err := FindChip("nxp,pca9685-pwm"); err == nil {
		t.Errorf("FindChip found a missing chip")
	}
}

func TestPwmChannel(t *testing.T) {
	root := fakeSysfs(t, map[string]string{
		"pwm/pwmchip0/export":           "",
		"pwm/pwmchip0/unexport":         "",
		"pwm/pwmchip0/pwm15/period":     "0",
		"pwm/pwmchip0/pwm15/duty_cycle": "0",
		"pwm/pwmchip0/pwm15/enable":     "0",
	})
	c, err := OpenChip("pwmchip0")
	if err != nil {
		t.Fatal(err)
	}
	p, err := c.Export(15)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if err := p.SetDuty(1000); err == nil {
		t.Errorf("SetDuty before period succeeded")
	}
	if err := p.Set(20000000, 1500000); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Enable(true); err != nil {
		t.Fatal(err)
	}
	if v := content(t, root, "pwm/pwmchip0/pwm15/period"); v != "20000000" {
		t.Errorf("period = %q", v)
	}
	if err := p.SetDuty(500000); err != nil {
		t.Fatal(err)
	}
	if v := content(t, root, "pwm/pwmchip0/pwm15/duty_cycle"); v != "500000" {
		t.Errorf("duty = %q", v)
	}
	if err := p.SetPeriod(400000); err != nil {
		t.Fatal(err)
	}
	if p.Duty() != 400000 || p.Period() != 400000 {
		t.Errorf("after shrinking period: period %d duty %d", p.Period(), p.Duty())
	}
	if err := p.Set(1000, 2000); err == nil {
		t.Errorf("duty above period accepted")
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if v := content(t, root, "pwm/pwmchip0/pwm15/enable"); v != "0" {
		t.Errorf("enable after close = %q", v)
	}
	if v := content(t, root, "pwm/pwmchip0/unexport"); v != "15" {
		t.Errorf("unexport = %q", v)
	}
}

func TestExportWritesUnit(t *testing.T) {
	root := fakeSysfs(t, map[string]string{
		"pwm/pwmchip0/export":   "",
		"pwm/pwmchip0/unexport": "",
	})
	c, _ := OpenChip("pwmchip0")
	if _, err := c.Export(3); err == nil {
		t.Fatalf("Export of missing channel succeeded")
	}
	if v := content(t, root, "pwm/pwmchip0/export"); v != "3" {
		t.Errorf("export = %q", v)
	}
}

func TestGpio(t *testing.T) {
	root := fakeSysfs(t, map[string]string{
		"gpio/export":          "",
		"gpio/unexport":        "",
		"gpio/gpio4/direction": "in",
		"gpio/gpio4/value":     "1",
	})
	g, err := OutputPin(4)
	if err != nil {
		t.Fatalf("OutputPin: %v", err)
	}
	if v := content(t, root, "gpio/gpio4/direction"); v != "out" {
		t.Errorf("direction = %q", v)
	}
	if v, _ := g.Get(); v != 0 {
		t.Errorf("output not driven low")
	}
	if err := g.Set(1); err != nil {
		t.Fatal(err)
	}
	if v, _ := g.Get(); v != 1 {
		t.Errorf("Get = %d after Set(1)", v)
	}
	if err := g.Set(2); err == nil {
		t.Errorf("Set(2) accepted")
	}
	g.Close()
	if v := content(t, root, "gpio/unexport"); v != "4" {
		t.Errorf("unexport = %q", v)
	}
}

type recorder struct {
	mu    sync.Mutex
	highs int
	last  int
}

func (r *recorder) Set(v int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v == 1 && r.last == 0 {
		r.highs++
	}
	r.last = v
	return nil
}

func TestSwPwm(t *testing.T) {
	r := &recorder{}
	p := NewSwPWM(r)
	if err := p.Set(time.Millisecond, 2*time.Millisecond); err == nil {
		t.Errorf("on time longer than period accepted")
	}
	if err := p.Set(2*time.Millisecond, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	p.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.highs == 0 {
		t.Errorf("no pulses generated")
	}
	if r.last != 0 {
		t.Errorf("pin left high after close")
	}
}
