package hbridge

import (
	"fmt"
	"sync"
)

// EventKind identifies a recorded output write.
type EventKind int

const (
	EventPins EventKind = iota
	EventPulseWidth
	EventClose
)

// Event is one write seen by a Recorder.
type Event struct {
	Kind  EventKind
	A, B  bool
	Value uint8
}

func (e Event) String() string {
	switch e.Kind {
	case EventPins:
		return fmt.Sprintf("pins(%s,%s)", levelName(e.A), levelName(e.B))
	case EventPulseWidth:
		return fmt.Sprintf("pwm(%d)", e.Value)
	default:
		return "close"
	}
}

func levelName(v bool) string {
	if v {
		return "HIGH"
	}
	return "LOW"
}

// Recorder is an in-memory Bridge that records every write.
type Recorder struct {
	mu       sync.Mutex
	events   []Event
	a, b     bool
	pwm      uint8
	pinErr   error
	pulseErr error
}

// NewRecorder returns an empty recorder with outputs disabled.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailPins makes subsequent SetDirectionPins calls return err. nil clears it.
func (r *Recorder) FailPins(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinErr = err
}

// FailPulseWidth makes subsequent SetPulseWidth calls return err. nil clears it.
func (r *Recorder) FailPulseWidth(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pulseErr = err
}

func (r *Recorder) SetDirectionPins(a, b bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pinErr != nil {
		return r.pinErr
	}
	r.a, r.b = a, b
	r.events = append(r.events, Event{Kind: EventPins, A: a, B: b})
	return nil
}

func (r *Recorder) SetPulseWidth(v uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pulseErr != nil {
		return r.pulseErr
	}
	r.pwm = v
	r.events = append(r.events, Event{Kind: EventPulseWidth, Value: v})
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: EventClose})
	return nil
}

// Outputs returns the current pin levels and pulse width.
func (r *Recorder) Outputs() (a, b bool, pwm uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.a, r.b, r.pwm
}

// Events returns a copy of the recorded writes.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset clears recorded events, keeping the current outputs.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
