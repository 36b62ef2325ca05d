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

// Package io provides access to Linux sysfs GPIO and PWM devices.

package io

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sys/unix"
)

// Setter is an interface for setting an output value on a GPIO
type Setter interface {
	Set(int) error
}

// Root is the sysfs class directory holding the gpio and pwm trees.
// Tests point this at a temporary directory.
var Root = "/sys/class"

const verifyTimeout = 2 * time.Second

// Verify will enable waiting for exported files to become writable.
// When not running as root, udev changes the group permissions on newly
// exported files some time after the export, and accessing them before
// that fails with a permission error.
var Verify = false

// Debug enables logging of sysfs writes.
var Debug = false

func init() {
	// If the user is not root, enable Verify mode
	u, err := user.Current()
	if err == nil && u.Uid != "0" {
		Verify = true
	}
}

func classDir(class string) string {
	return filepath.Join(Root, class)
}

// unexport writes a unit number to an unexport file.
func unexport(f string, g int) error {
	return writeFile(f, fmt.Sprintf("%d", g))
}

// export writes a unit number to an export file unless the file f
// already exists and is accessible, and then optionally waits for f
// to become writable.
func export(f, expfile string, g int) error {
	err := unix.Access(f, unix.W_OK|unix.R_OK)
	if err == nil {
		return nil
	}
	err = writeFile(expfile, fmt.Sprintf("%d", g))
	if err == nil && Verify {
		return verifyFile(f)
	}
	return err
}

// Write a string to a file.
func writeFile(fname, s string) error {
	f, err := os.OpenFile(fname, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(s))
	return err
}

// readFile returns the contents of a file with trailing NULs and
// line endings removed.
func readFile(fname string) (string, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00\r\n"), nil
}

// Wait for file to become writable.
func verifyFile(f string) error {
	op := func() error {
		return unix.Access(f, unix.W_OK)
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         100 * time.Millisecond,
		MaxElapsedTime:      verifyTimeout,
		Clock:               backoff.SystemClock})
	if err != nil {
		return fmt.Errorf("%s: not writable: %w", f, err)
	}
	return nil
}
