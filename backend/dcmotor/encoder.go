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

package dcmotor

import (
	"encoding/binary"
	"os"

	"golang.org/x/sys/unix"

	"github.com/aamcrae/servo/errcode"
)

const (
	encoderSize     = 4096
	encoderChannels = 6
	recordSize      = 24 // a_forward, b_backward, v_direction
)

// DefaultEncoder is the device exposing the quadrature counters.
const DefaultEncoder = "/dev/encoder"

// Counts is one encoder channel record.
type Counts struct {
	Forward   int64
	Backward  int64
	Direction int64
}

// Encoder is a read-only mapping of the encoder counter block.
type Encoder struct {
	f    *os.File
	data []byte
}

// OpenEncoder maps the encoder counter block at path.
func OpenEncoder(path string) (*Encoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errcode.Wrap(errcode.Failed, "open encoder", err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, encoderSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errcode.Wrap(errcode.Failed, "map encoder", err)
	}
	return &Encoder{f: f, data: data}, nil
}

// Read returns the counters of encoder channel ch.
func (e *Encoder) Read(ch int) (Counts, error) {
	if ch < 0 || ch >= encoderChannels {
		return Counts{}, errcode.New(errcode.OutOfRange, "encoder read", "channel %d", ch)
	}
	b := e.data[ch*recordSize:]
	return Counts{
		Forward:   int64(binary.NativeEndian.Uint64(b[0:])),
		Backward:  int64(binary.NativeEndian.Uint64(b[8:])),
		Direction: int64(binary.NativeEndian.Uint64(b[16:])),
	}, nil
}

func (e *Encoder) Close() error {
	err := unix.Munmap(e.data)
	if cerr := e.f.Close(); err == nil {
		err = cerr
	}
	return err
}
