package hbridge

import (
	"errors"
	"fmt"
	"strconv"

	"gobot.io/x/gobot/platforms/firmata"
)

// firmataBoard is the subset of the gobot Firmata adaptor used here.
type firmataBoard interface {
	Connect() error
	Finalize() error
	DigitalWrite(pin string, level byte) error
	PwmWrite(pin string, level byte) error
}

// Firmata drives the H-bridge through an Arduino running StandardFirmata.
type Firmata struct {
	board  firmataBoard
	pinA   int
	pinB   int
	enable string
}

// OpenFirmata connects to the board on port and disables the motor.
func OpenFirmata(port string, pinA, pinB, enable int) (*Firmata, error) {
	return openFirmata(firmata.NewAdaptor(port), pinA, pinB, enable)
}

func openFirmata(board firmataBoard, pinA, pinB, enable int) (*Firmata, error) {
	if err := board.Connect(); err != nil {
		return nil, fmt.Errorf("connect firmata: %w", err)
	}

	f := &Firmata{
		board:  board,
		pinA:   pinA,
		pinB:   pinB,
		enable: strconv.Itoa(enable),
	}

	// Initial state - off
	if err := f.disable(); err != nil {
		board.Finalize()
		return nil, err
	}
	return f, nil
}

// SetDirectionPins writes IN1/IN2, lowering before raising.
func (f *Firmata) SetDirectionPins(a, b bool) error {
	for _, w := range directionWrites(f.pinA, f.pinB, a, b) {
		pin := strconv.Itoa(w.pin)
		if err := f.board.DigitalWrite(pin, level(w.level)); err != nil {
			return fmt.Errorf("digital write pin %s: %w", pin, err)
		}
	}
	return nil
}

// SetPulseWidth writes the enable pin duty cycle.
func (f *Firmata) SetPulseWidth(v uint8) error {
	if err := f.board.PwmWrite(f.enable, v); err != nil {
		return fmt.Errorf("pwm write pin %s: %w", f.enable, err)
	}
	return nil
}

func (f *Firmata) disable() error {
	if err := f.SetDirectionPins(false, false); err != nil {
		return err
	}
	return f.SetPulseWidth(0)
}

// Close disables the motor and releases the board.
func (f *Firmata) Close() error {
	var errs []error
	if err := f.disable(); err != nil {
		errs = append(errs, err)
	}
	if err := f.board.Finalize(); err != nil {
		errs = append(errs, fmt.Errorf("finalize: %w", err))
	}
	return errors.Join(errs...)
}
