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

// Package errcode defines the status codes returned by the servo library.
package errcode

import (
	"errors"
	"fmt"
)

// Code is a comparable status identifier that implements error.
type Code string

func (c Code) Error() string { return string(c) }

const (
	OK             Code = "ok"
	Failed         Code = "failed"
	Null           Code = "null"
	NotInitialized Code = "not_initialized"
	OutOfRange     Code = "out_of_range"
	NoMemory       Code = "no_memory"
	Busy           Code = "busy"
	TryAgain       Code = "try_again"
	NotSupported   Code = "not_supported"
)

// E attaches the failing operation, an advisory message and an optional
// cause to a Code. The message is informational only; callers should
// switch on the code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against a bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New returns an *E for op with a formatted message.
func New(c Code, op, format string, args ...interface{}) error {
	return &E{C: c, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an *E for op carrying err as the cause.
// A nil err returns nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// Of extracts the Code from an error. Errors that carry no code are Failed.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var e *E
	if errors.As(err, &e) {
		return e.C
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Failed
}
