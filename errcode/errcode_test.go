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

package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cause := errors.New("write failed")
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare", Busy, Busy},
		{"E", New(OutOfRange, "set angle", "%d", 200), OutOfRange},
		{"wrapped E", fmt.Errorf("servo 1: %w", New(NoMemory, "create", "pool full")), NoMemory},
		{"plain", cause, Failed},
		{"E with cause", Wrap(TryAgain, "duty", cause), TryAgain},
	}
	for _, tc := range tests {
		if got := Of(tc.err); got != tc.want {
			t.Errorf("%s: Of() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestIs(t *testing.T) {
	cause := errors.New("i2c nack")
	err := Wrap(Failed, "set duty", cause)
	if !errors.Is(err, Failed) {
		t.Errorf("errors.Is(%v, Failed) = false", err)
	}
	if errors.Is(err, Busy) {
		t.Errorf("errors.Is(%v, Busy) = true", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable through Unwrap")
	}
	if Wrap(Failed, "x", nil) != nil {
		t.Errorf("Wrap of nil error is not nil")
	}
}

func TestMessage(t *testing.T) {
	err := New(Busy, "set angle", "servo is moving")
	if s := err.Error(); s != "set angle: busy: servo is moving" {
		t.Errorf("Error() = %q", s)
	}
}
