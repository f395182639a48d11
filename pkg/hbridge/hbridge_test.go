package hbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		err  error
	}{
		{"firmata default", Config{Backend: BackendFirmata, Port: "/dev/ttyACM0", PinA: 10, PinB: 9, Enable: 11}, nil},
		{"sim", Config{Backend: BackendSim, PinA: 10, PinB: 9, Enable: 11}, nil},
		{"rpi", Config{Backend: BackendRPi, PinA: 23, PinB: 24, Enable: 18}, nil},
		{"rpi without hardware pwm", Config{Backend: BackendRPi, PinA: 23, PinB: 24, Enable: 11}, ErrNotPWMPin},
		{"unknown backend", Config{Backend: "l298", PinA: 1, PinB: 2, Enable: 3}, ErrUnknownBackend},
		{"shared pin", Config{Backend: BackendSim, PinA: 9, PinB: 9, Enable: 11}, ErrPinConflict},
		{"enable shared", Config{Backend: BackendSim, PinA: 10, PinB: 9, Enable: 10}, ErrPinConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestConfig_ValidateFirmataNeedsPort(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.Port = "/dev/ttyUSB0"
	assert.NoError(t, cfg.Validate())
}

func TestOpen_Sim(t *testing.T) {
	b, err := Open(Config{Backend: BackendSim, PinA: 10, PinB: 9, Enable: 11})
	require.NoError(t, err)
	_, ok := b.(*Recorder)
	assert.True(t, ok)
	assert.NoError(t, b.Close())
}

func TestOpen_Invalid(t *testing.T) {
	_, err := Open(Config{Backend: "pigpio"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestDirectionWrites(t *testing.T) {
	tests := []struct {
		name     string
		a, b     bool
		expected [2]pinWrite
	}{
		{"stopped", false, false, [2]pinWrite{{10, false}, {9, false}}},
		{"forward lowers A first", false, true, [2]pinWrite{{10, false}, {9, true}}},
		{"backward lowers B first", true, false, [2]pinWrite{{9, false}, {10, true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, directionWrites(10, 9, tt.a, tt.b))
		})
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	require.NoError(t, r.SetDirectionPins(false, true))
	require.NoError(t, r.SetPulseWidth(200))

	a, b, v := r.Outputs()
	assert.False(t, a)
	assert.True(t, b)
	assert.Equal(t, uint8(200), v)

	assert.Equal(t, []string{"pins(LOW,HIGH)", "pwm(200)"}, []string{
		r.Events()[0].String(),
		r.Events()[1].String(),
	})

	r.Reset()
	assert.Empty(t, r.Events())

	require.NoError(t, r.Close())
	assert.Equal(t, EventClose, r.Events()[0].Kind)
}
