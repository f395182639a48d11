package throttle

import (
	"sync"
	"time"
)

// Script is a Transport that replays fixed values, one per Latest call, and
// then holds the final value.
type Script struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewScript returns a script over values.
func NewScript(values ...int) *Script {
	return &Script{values: values}
}

// Latest returns the next scripted value, stamped with the current time.
func (s *Script) Latest() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return Reading{}, ErrNoReading
	}
	i := s.next
	if i >= len(s.values) {
		i = len(s.values) - 1
	} else {
		s.next++
	}
	return Reading{Value: s.values[i], At: time.Now()}, nil
}

// Done reports whether every value has been returned once.
func (s *Script) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next >= len(s.values)
}
