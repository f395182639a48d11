package throttle

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the HM-10 module's factory baud rate.
const DefaultBaudRate = 9600

// SerialLink reads frames from a BLE serial module and buffers the latest
// throttle value. Every frame from the phone, connection checks included,
// refreshes the reading's timestamp; only drive frames change its value.
type SerialLink struct {
	port  io.ReadCloser
	proto Protocol
	now   func() time.Time

	mu     sync.Mutex
	latest Reading
	has    bool
	err    error
	closed bool
	done   chan struct{}
}

// OpenSerial opens the module's serial port and starts reading frames of
// protocol p.
func OpenSerial(name string, baud int, p Protocol) (*SerialLink, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return newSerialLink(port, p, time.Now), nil
}

func newSerialLink(port io.ReadCloser, p Protocol, now func() time.Time) *SerialLink {
	l := &SerialLink{
		port:  port,
		proto: p,
		now:   now,
		done:  make(chan struct{}),
	}
	go l.read()
	return l
}

func (l *SerialLink) read() {
	defer close(l.done)

	dec := NewDecoder(l.proto)
	buf := make([]byte, 64)
	for {
		n, err := l.port.Read(buf)
		for _, f := range dec.Decode(buf[:n]) {
			l.record(f)
		}
		if err != nil {
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
			return
		}
	}
}

func (l *SerialLink) record(f Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f.Kind == FrameDrive {
		l.latest.Value = f.Throttle
		l.has = true
	}
	l.latest.At = l.now()
}

// Latest returns the most recent throttle reading.
func (l *SerialLink) Latest() (Reading, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.closed:
		return Reading{}, ErrLinkClosed
	case l.err != nil:
		return Reading{}, fmt.Errorf("serial link: %w", l.err)
	case !l.has:
		return Reading{}, ErrNoReading
	}
	return l.latest, nil
}

// Wait blocks until a reading arrives or timeout elapses.
func (l *SerialLink) Wait(timeout time.Duration) (Reading, error) {
	deadline := time.Now().Add(timeout)
	for {
		r, err := l.Latest()
		if !errors.Is(err, ErrNoReading) {
			return r, err
		}
		if time.Now().After(deadline) {
			return Reading{}, err
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// Close closes the port and stops the reader.
func (l *SerialLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	err := l.port.Close()
	<-l.done
	return err
}
