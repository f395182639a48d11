package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultHz is the control loop frequency used when none is configured.
const DefaultHz = 50

// Reader supplies the latest raw throttle reading.
type Reader interface {
	ReadThrottle() int
}

// Outputs is the H-bridge capability written by the controller.
type Outputs interface {
	SetDirectionPins(a, b bool) error
	SetPulseWidth(v uint8) error
}

// availability is implemented by readers that know whether their transport is up.
type availability interface {
	Available() bool
}

// State is published after every tick.
type State struct {
	Command   Command
	Available bool
	Timestamp time.Time
	Error     error
}

// Config holds configuration for the controller.
type Config struct {
	Scale    Scale
	Hz       int
	Reversed bool // swap forward and backward pin combinations
	Logger   *slog.Logger
}

// Controller owns the direction and enable outputs and runs the poll loop.
type Controller struct {
	in       Reader
	out      Outputs
	scale    Scale
	hz       int
	reversed bool
	logger   *slog.Logger

	mu      sync.RWMutex
	last    Command
	running bool
	stateCh chan State
	logCh   chan string
}

// NewController creates a controller reading from in and writing to out.
func NewController(in Reader, out Outputs, cfg Config) *Controller {
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.Scale == (Scale{}) {
		cfg.Scale = DefaultScale()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Controller{
		in:       in,
		out:      out,
		scale:    cfg.Scale,
		hz:       cfg.Hz,
		reversed: cfg.Reversed,
		logger:   cfg.Logger,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}
}

// States returns a channel that receives the most recent state.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Last returns the command applied by the most recent tick.
func (c *Controller) Last() Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Step runs one tick: read the throttle, decide, write the direction pins
// and then the pulse width.
//
// Pins are always written before the magnitude. When the pin write fails the
// pulse width is forced to 0 so a magnitude is never paired with stale pins.
// When the pulse width write fails both pins are driven LOW, so a stale duty
// cycle is never paired with new pins either.
func (c *Controller) Step() (Command, error) {
	raw := c.in.ReadThrottle()
	cmd := Decide(raw, c.scale)

	err := c.apply(cmd)

	c.mu.Lock()
	c.last = cmd
	c.mu.Unlock()

	c.logger.Debug("drive",
		"direction", cmd.Direction.String(),
		"throttle", cmd.Throttle,
		"magnitude", cmd.Magnitude,
	)

	return cmd, err
}

func (c *Controller) apply(cmd Command) error {
	a, b := PinsFor(cmd.Direction, c.reversed)
	if err := c.out.SetDirectionPins(a, b); err != nil {
		pinErr := fmt.Errorf("set direction pins: %w", err)
		if err := c.out.SetPulseWidth(0); err != nil {
			return errors.Join(pinErr, fmt.Errorf("disable pulse width: %w", err))
		}
		return pinErr
	}

	if err := c.out.SetPulseWidth(cmd.Magnitude); err != nil {
		// The enable line may still carry the previous duty cycle.
		pwmErr := fmt.Errorf("set pulse width: %w", err)
		if err := c.out.SetDirectionPins(false, false); err != nil {
			return errors.Join(pwmErr, fmt.Errorf("release direction pins: %w", err))
		}
		return pwmErr
	}
	return nil
}

// Brake disables the motor: both direction pins low, pulse width 0.
func (c *Controller) Brake() error {
	cmd := Command{Raw: c.scale.Neutral, Direction: Stopped}
	err := c.apply(cmd)

	c.mu.Lock()
	c.last = cmd
	c.mu.Unlock()

	return err
}

// Start runs the control loop until ctx is done. The motor is braked
// before Start returns.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.Brake(); err != nil {
		c.log("Warning: initial brake failed: %v", err)
		c.logger.Warn("initial brake failed", "error", err)
	}

	c.log("Drive started at %d Hz", c.hz)
	c.logger.Info("drive started", "hz", c.hz, "reversed", c.reversed)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Controller) tick() {
	prev := c.Last()
	cmd, err := c.Step()
	if err != nil {
		c.log("Write error: %v", err)
		c.logger.Error("write outputs", "error", err)
	}
	if cmd.Direction != prev.Direction {
		c.log("%s", cmd.Direction)
	}

	available := true
	if a, ok := c.in.(availability); ok {
		available = a.Available()
	}

	c.sendState(State{
		Command:   cmd,
		Available: available,
		Timestamp: time.Now(),
		Error:     err,
	})
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err := c.Brake(); err != nil {
		c.log("Warning: failed to brake: %v", err)
		c.logger.Warn("brake on shutdown failed", "error", err)
	} else {
		c.log("Motor braked")
	}
	c.log("Drive stopped")
	c.logger.Info("drive stopped")
}
