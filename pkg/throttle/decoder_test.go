package throttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drive(throttle, steering int) Frame {
	return Frame{Kind: FrameDrive, Throttle: throttle, Steering: steering}
}

func TestDecoder_Decode(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []Frame
	}{
		{"drive", []byte{251, 74, 49, 240}, []Frame{drive(74, 49)}},
		{"drive without end marker", []byte{251, 74, 49}, []Frame{drive(74, 49)}},
		{"stray bytes first", []byte{10, 20, 251, 99, 49, 240}, []Frame{drive(99, 49)}},
		{"button", []byte{250, 3, 240}, []Frame{{Kind: FrameButton, ID: 3}}},
		{"slider", []byte{252, 1, 80, 240}, []Frame{{Kind: FrameSlider, ID: 1, Value: 80}}},
		{"connection check", []byte{245}, []Frame{{Kind: FrameConnectionCheck}}},
		{"text skipped", []byte{249, 'h', 'i', 240, 251, 24, 49, 240}, []Frame{drive(24, 49)}},
		{"path skipped", []byte{253, 10, 20, 30, 240}, nil},
		{"end marker cuts frame short", []byte{251, 74, 240, 49}, nil},
		{"restart mid frame", []byte{251, 74, 251, 60, 49, 240}, []Frame{drive(60, 49)}},
		{"throttle out of range", []byte{251, 120, 49, 240}, nil},
		{"steering out of range", []byte{251, 74, 200, 240}, nil},
		{"incomplete", []byte{251, 74}, nil},
		{"unknown control byte", []byte{247, 74, 49}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decoder
			assert.Equal(t, tt.expected, d.Decode(tt.input))
		})
	}
}

// A phone session: connect, nudge the throttle forward, hold it while the
// app checks the connection, press a button, move a slider, back off to
// reverse and release.
func TestDecoder_Session(t *testing.T) {
	stream := []byte{
		245,
		251, 49, 49, 240,
		251, 60, 49, 240,
		251, 74, 49, 240,
		245,
		251, 74, 49, 240,
		250, 2, 240,
		252, 0, 35, 240,
		251, 74, 52, 240,
		251, 30, 49, 240,
		251, 0, 49, 240,
		245,
		251, 49, 49, 240,
	}

	var d Decoder
	frames := d.Decode(stream)

	var throttles []int
	var checks int
	for _, f := range frames {
		switch f.Kind {
		case FrameDrive:
			throttles = append(throttles, f.Throttle)
		case FrameConnectionCheck:
			checks++
		}
	}
	assert.Equal(t, []int{49, 60, 74, 74, 74, 30, 0, 49}, throttles)
	assert.Equal(t, 3, checks)
	assert.Len(t, frames, 13)
}

func TestDecoder_SplitAcrossWrites(t *testing.T) {
	var d Decoder

	assert.Empty(t, d.Decode([]byte{251}))
	assert.Empty(t, d.Decode([]byte{80}))
	assert.Equal(t, []Frame{drive(80, 49)}, d.Decode([]byte{49}))
	assert.Empty(t, d.Decode([]byte{240}))
}

func TestDecoder_SteeringFirst(t *testing.T) {
	p := ArduinoBlue()
	p.SteeringFirst = true
	d := NewDecoder(p)

	assert.Equal(t, []Frame{drive(80, 30)}, d.Decode([]byte{251, 30, 80, 240}))
}

func TestProtocol_Validate(t *testing.T) {
	require.NoError(t, ArduinoBlue().Validate())

	tests := []struct {
		name   string
		mutate func(*Protocol)
	}{
		{"drive in payload range", func(p *Protocol) { p.Drive = 99 }},
		{"zero end marker", func(p *Protocol) { p.End = 0 }},
		{"shared code", func(p *Protocol) { p.Button = p.Drive }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ArduinoBlue()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestFrameKind_String(t *testing.T) {
	assert.Equal(t, "drive", FrameDrive.String())
	assert.Equal(t, "connection check", FrameConnectionCheck.String())
	assert.Equal(t, "FrameKind(0)", FrameKind(0).String())
}
