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

// Package monitor serves the state of a running rig over HTTP: servo and
// controller status as JSON, and a rendered dial showing each servo horn.
package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"github.com/go-chi/chi"

	"github.com/aamcrae/servo/controller"
	"github.com/aamcrae/servo/servo"
)

// DialSize is the width of the dial image in pixels.
const DialSize = 400

var colours = [][3]float64{
	{0, 0, 1},
	{1, 0, 1},
	{0, 0.6, 0},
	{1, 0.5, 0},
	{0.5, 0, 0},
}

// Command asks the poll loop to move a servo.
type Command struct {
	Servo int
	Angle int
}

// Server holds the last published servo status.
type Server struct {
	mu       sync.Mutex
	servos   []servo.Status
	reg      *controller.Registry
	commands chan Command
}

// New returns a server reporting the controllers in reg.
func New(reg *controller.Registry) *Server {
	if reg == nil {
		reg = controller.Default
	}
	return &Server{reg: reg, commands: make(chan Command, 16)}
}

// Publish replaces the reported servo status.
func (s *Server) Publish(st []servo.Status) {
	s.mu.Lock()
	s.servos = append(s.servos[:0], st...)
	s.mu.Unlock()
}

// Commands returns the move requests received over HTTP.
func (s *Server) Commands() <-chan Command {
	return s.commands
}

func (s *Server) snapshot() []servo.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]servo.Status(nil), s.servos...)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/servos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.snapshot())
	})
	r.Get("/servos/{id}", func(w http.ResponseWriter, r *http.Request) {
		st, ok := s.lookup(w, r)
		if ok {
			writeJSON(w, st)
		}
	})
	r.Post("/servos/{id}/angle", s.move)
	r.Get("/controllers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.reg.List())
	})
	r.Get("/dial.png", s.dial)
	return r
}

// ListenAndServe runs the server on port until it fails.
func (s *Server) ListenAndServe(port int) error {
	url := fmt.Sprintf(":%d", port)
	log.Printf("Starting monitor on %s", url)
	server := &http.Server{Addr: url, Handler: s.Handler()}
	return server.ListenAndServe()
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (servo.Status, bool) {
	servos := s.snapshot()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 || id >= len(servos) {
		http.Error(w, "no such servo", http.StatusNotFound)
		return servo.Status{}, false
	}
	return servos[id], true
}

func (s *Server) move(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookup(w, r); !ok {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	angle, err := strconv.Atoi(r.URL.Query().Get("value"))
	if err != nil || angle < 0 || angle > servo.MaxAngle {
		http.Error(w, "angle must be 0 to 180", http.StatusBadRequest)
		return
	}
	select {
	case s.commands <- Command{Servo: id, Angle: angle}:
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding status: %v", err)
	}
}

func (s *Server) dial(w http.ResponseWriter, r *http.Request) {
	c := Dial(s.snapshot())
	w.Header().Set("Content-Type", "image/png")
	if err := c.EncodePNG(w); err != nil {
		log.Printf("Error writing image: %v", err)
	}
}

// Dial draws a half circle dial with one horn per servo. Zero degrees
// points right and 180 degrees points left. The target of a moving servo
// is marked on the rim.
func Dial(servos []servo.Status) *gg.Context {
	const mid = DialSize / 2
	c := gg.NewContext(DialSize, mid+20)
	c.SetRGB(1, 1, 1)
	c.Clear()
	c.SetRGB(0, 0, 0)
	c.SetLineWidth(2)
	c.DrawArc(mid, mid, mid-10, math.Pi, 2*math.Pi)
	c.Stroke()
	for i, st := range servos {
		col := colours[i%len(colours)]
		c.SetRGB(col[0], col[1], col[2])
		x, y := point(mid, float64(mid-30-10*(i%5)), st.Angle)
		c.SetLineWidth(6)
		c.DrawLine(mid, mid, x, y)
		c.Stroke()
		if st.Moving {
			tx, ty := point(mid, mid-10, st.Target)
			c.DrawCircle(tx, ty, 5)
			c.Fill()
		}
	}
	return c
}

func point(mid, length float64, angle uint32) (float64, float64) {
	rad := float64(angle) * math.Pi / 180
	return mid + length*math.Cos(rad), mid - length*math.Sin(rad)
}
