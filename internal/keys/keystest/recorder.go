// Package keystest provides a fake keys.Actuator for tests.
package keystest

import (
	"sync"
	"time"

	"padbridge/internal/keys"
)

// Event is one recorded key event.
type Event struct {
	Code keys.Code
	Down bool
}

func Down(code keys.Code) Event { return Event{Code: code, Down: true} }
func Up(code keys.Code) Event   { return Event{Code: code, Down: false} }

// Recorder records every event it receives, in order. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

func (r *Recorder) Press(code keys.Code)   { r.record(Down(code)) }
func (r *Recorder) Release(code keys.Code) { r.record(Up(code)) }

func (r *Recorder) record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Count returns how many events match code and direction.
func (r *Recorder) Count(code keys.Code, down bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Code == code && ev.Down == down {
			n++
		}
	}
	return n
}

// WaitFor blocks until at least n events are recorded or the timeout expires.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if r.Len() >= n {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return r.Len() >= n
		}
	}
}
