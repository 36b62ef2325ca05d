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

package controller

import (
	"sync"

	"github.com/aamcrae/servo/errcode"
)

// MaxControllers is the number of registry slots.
const MaxControllers = 10

// Registry maps small integer ids to backends. The id of a backend is the
// index of the slot it was placed in, and never changes.
type Registry struct {
	mu    sync.Mutex
	slots [MaxControllers]Controller
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return new(Registry)
}

// Register places c in the first free slot and tells the backend its id.
func (r *Registry) Register(c Controller) (int, error) {
	if c == nil {
		return -1, errcode.New(errcode.Null, "register", "controller is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		if r.slots[i] != nil {
			continue
		}
		if err := c.SetID(i); err != nil {
			return -1, err
		}
		r.slots[i] = c
		return i, nil
	}
	return -1, errcode.New(errcode.NoMemory, "register", "all %d controller slots in use", MaxControllers)
}

// Get returns the backend with the given id.
func (r *Registry) Get(id int) (Controller, error) {
	if id < 0 || id >= MaxControllers {
		return nil, errcode.New(errcode.OutOfRange, "get controller", "id %d outside 0..%d", id, MaxControllers-1)
	}
	r.mu.Lock()
	c := r.slots[id]
	r.mu.Unlock()
	if c == nil {
		return nil, errcode.New(errcode.Failed, "get controller", "no controller with id %d", id)
	}
	return c, nil
}

// Available copies the Info of each registered backend into out, in slot
// order, and returns the number copied. Sizing out to MaxControllers
// always fits every backend.
func (r *Registry) Available(out []Info) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.slots {
		if c == nil {
			continue
		}
		if n >= len(out) {
			break
		}
		out[n] = c.Info()
		n++
	}
	return n
}

// List returns the Info of every registered backend.
func (r *Registry) List() []Info {
	out := make([]Info, MaxControllers)
	return out[:r.Available(out)]
}

// Default is the process wide registry.
var Default = NewRegistry()

// Register adds c to the default registry.
func Register(c Controller) (int, error) {
	return Default.Register(c)
}

// Get looks up a backend in the default registry.
func Get(id int) (Controller, error) {
	return Default.Get(id)
}

// Available enumerates the default registry.
func Available(out []Info) int {
	return Default.Available(out)
}
