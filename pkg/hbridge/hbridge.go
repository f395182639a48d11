// Package hbridge drives a two-wire H-bridge: two direction pins and one
// PWM enable pin.
package hbridge

import (
	"errors"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFirmata = "firmata"
	BackendRPi     = "rpi"
	BackendSim     = "sim"
)

var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrNotPWMPin      = errors.New("pin does not support hardware PWM")
	ErrPinConflict    = errors.New("pins must be distinct")
)

// Bridge is an H-bridge output.
type Bridge interface {
	SetDirectionPins(a, b bool) error
	SetPulseWidth(v uint8) error
	Close() error
}

// Config selects and wires a backend.
type Config struct {
	Backend  string `json:"backend" yaml:"backend" env:"BACKEND"`
	Port     string `json:"port,omitempty" yaml:"port,omitempty" env:"PORT"`
	PinA     int    `json:"pin_a" yaml:"pin_a" env:"PIN_A"`
	PinB     int    `json:"pin_b" yaml:"pin_b" env:"PIN_B"`
	Enable   int    `json:"enable" yaml:"enable" env:"ENABLE"`
	Reversed bool   `json:"reversed,omitempty" yaml:"reversed,omitempty" env:"REVERSED"`
}

// DefaultConfig returns the Arduino wiring: IN1 on 10, IN2 on 9, ENA on 11.
func DefaultConfig() Config {
	return Config{
		Backend: BackendFirmata,
		PinA:    10,
		PinB:    9,
		Enable:  11,
	}
}

// Validate checks the backend name and pin assignment.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFirmata, BackendSim:
	case BackendRPi:
		if !rpiPWMPins[c.Enable] {
			return fmt.Errorf("enable pin %d: %w", c.Enable, ErrNotPWMPin)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend)
	}

	if c.PinA < 0 || c.PinB < 0 || c.Enable < 0 {
		return fmt.Errorf("pins must not be negative")
	}
	if c.PinA == c.PinB || c.PinA == c.Enable || c.PinB == c.Enable {
		return fmt.Errorf("pin_a=%d pin_b=%d enable=%d: %w", c.PinA, c.PinB, c.Enable, ErrPinConflict)
	}
	if c.Backend == BackendFirmata && c.Port == "" {
		return fmt.Errorf("firmata backend requires a port")
	}
	return nil
}

// Open opens the configured backend with all outputs in the disabled state.
func Open(cfg Config) (Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendFirmata:
		return OpenFirmata(cfg.Port, cfg.PinA, cfg.PinB, cfg.Enable)
	case BackendRPi:
		return OpenRPi(cfg.PinA, cfg.PinB, cfg.Enable)
	default:
		return NewRecorder(), nil
	}
}

type pinWrite struct {
	pin   int
	level bool
}

// directionWrites orders the pin writes for a direction change so that the
// pin going low is written first. A forward/backward swap then passes through
// LOW/LOW rather than HIGH/HIGH.
func directionWrites(pinA, pinB int, a, b bool) [2]pinWrite {
	wa := pinWrite{pin: pinA, level: a}
	wb := pinWrite{pin: pinB, level: b}
	if a && !b {
		return [2]pinWrite{wb, wa}
	}
	return [2]pinWrite{wa, wb}
}

func level(v bool) byte {
	if v {
		return 1
	}
	return 0
}
