package hbridge

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// Raspberry Pi pins with hardware PWM.
var rpiPWMPins = map[int]bool{
	12: true,
	13: true,
	18: true,
	19: true,
}

// PWM carrier for the enable pin: 255 steps at roughly 1 kHz.
const (
	rpiPWMCycle = 255
	rpiPWMFreq  = 1000 * rpiPWMCycle
)

// RPi drives the H-bridge from Raspberry Pi GPIO.
type RPi struct {
	pinA   rpio.Pin
	pinB   rpio.Pin
	enable rpio.Pin
}

// OpenRPi maps GPIO memory and configures the pins, motor disabled.
func OpenRPi(pinA, pinB, enable int) (*RPi, error) {
	if !rpiPWMPins[enable] {
		return nil, fmt.Errorf("enable pin %d: %w", enable, ErrNotPWMPin)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	r := &RPi{
		pinA:   rpio.Pin(pinA),
		pinB:   rpio.Pin(pinB),
		enable: rpio.Pin(enable),
	}

	r.pinA.Output()
	r.pinB.Output()
	r.pinA.Low()
	r.pinB.Low()

	r.enable.Mode(rpio.Pwm)
	r.enable.Freq(rpiPWMFreq)
	r.enable.DutyCycle(0, rpiPWMCycle)

	return r, nil
}

// SetDirectionPins writes IN1/IN2, lowering before raising.
func (r *RPi) SetDirectionPins(a, b bool) error {
	for _, w := range directionWrites(int(r.pinA), int(r.pinB), a, b) {
		pin := rpio.Pin(w.pin)
		if w.level {
			pin.High()
		} else {
			pin.Low()
		}
	}
	return nil
}

// SetPulseWidth sets the enable duty cycle to v/255.
func (r *RPi) SetPulseWidth(v uint8) error {
	r.enable.DutyCycle(uint32(v), rpiPWMCycle)
	return nil
}

// Close disables the motor and unmaps GPIO memory.
func (r *RPi) Close() error {
	r.pinA.Low()
	r.pinB.Low()
	r.enable.DutyCycle(0, rpiPWMCycle)
	return rpio.Close()
}
