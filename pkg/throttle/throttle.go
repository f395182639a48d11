// Package throttle reads throttle positions from the phone link.
package throttle

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// Raw throttle range reported by the phone app.
const (
	RawMin  = 0
	RawMax  = 99
	Neutral = 49
)

// DefaultStaleAfter is how old the latest reading may get before the link is
// treated as unavailable.
const DefaultStaleAfter = 500 * time.Millisecond

// SuggestStaleAfter returns a staleness window for a link whose frames were
// observed at most gap apart: four missed frames, never below
// DefaultStaleAfter.
func SuggestStaleAfter(gap time.Duration) time.Duration {
	if s := 4 * gap; s > DefaultStaleAfter {
		return s
	}
	return DefaultStaleAfter
}

var (
	ErrNoReading  = errors.New("no throttle reading received")
	ErrLinkClosed = errors.New("link closed")
)

// Reading is a throttle value and the time it was received.
type Reading struct {
	Value int
	At    time.Time
}

// Transport buffers the most recent reading from the phone.
type Transport interface {
	Latest() (Reading, error)
}

// AdapterConfig holds configuration for an Adapter.
type AdapterConfig struct {
	Neutral    int
	StaleAfter time.Duration // negative disables the staleness check
	Logger     *slog.Logger
	Now        func() time.Time
}

// Adapter exposes a transport as a plain throttle reading in [RawMin, RawMax].
//
// When the transport is unavailable (error, nothing received yet, or the last
// reading is older than StaleAfter) it reports the neutral value so the motor
// brakes instead of holding a stale command.
type Adapter struct {
	transport  Transport
	neutral    int
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time

	available atomic.Bool
	reported  atomic.Bool
}

// NewAdapter wraps t.
func NewAdapter(t Transport, cfg AdapterConfig) *Adapter {
	if cfg.Neutral == 0 {
		cfg.Neutral = Neutral
	}
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Adapter{
		transport:  t,
		neutral:    clamp(cfg.Neutral),
		staleAfter: cfg.StaleAfter,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// ReadThrottle returns the latest throttle value, or neutral when the link is
// unavailable.
func (a *Adapter) ReadThrottle() int {
	r, err := a.transport.Latest()
	if err == nil && a.staleAfter > 0 && a.now().Sub(r.At) > a.staleAfter {
		err = errStale{age: a.now().Sub(r.At)}
	}

	a.setAvailable(err)
	if err != nil {
		return a.neutral
	}
	return clamp(r.Value)
}

// Available reports whether the last read came from a live link.
func (a *Adapter) Available() bool {
	return a.available.Load()
}

func (a *Adapter) setAvailable(err error) {
	up := err == nil
	prev := a.available.Swap(up)
	first := !a.reported.Swap(true)
	if !first && prev == up {
		return
	}

	if up {
		a.logger.Info("throttle link available")
	} else {
		a.logger.Warn("throttle link unavailable, braking", "error", err)
	}
}

type errStale struct {
	age time.Duration
}

func (e errStale) Error() string {
	return "reading is stale (" + e.age.Round(time.Millisecond).String() + " old)"
}

func clamp(v int) int {
	if v < RawMin {
		return RawMin
	}
	if v > RawMax {
		return RawMax
	}
	return v
}
