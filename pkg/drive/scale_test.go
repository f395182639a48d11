package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScale_Normalize(t *testing.T) {
	s := DefaultScale()

	tests := []struct {
		raw      int
		expected int
	}{
		{0, -49},  // full reverse
		{49, 0},   // rest
		{99, 50},  // full forward
		{24, -25}, // half reverse
		{74, 25},  // half forward
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, s.Normalize(tt.raw), "Normalize(%d)", tt.raw)
	}
}

func TestScale_Magnitude(t *testing.T) {
	s := DefaultScale()

	tests := []struct {
		throttle int
		expected uint8
	}{
		{0, 0},
		{1, 5},
		{-1, 5},
		{10, 51},
		{25, 127}, // 127.5, halves round down
		{-25, 127},
		{-49, 250}, // 249.9
		{49, 250},
		{50, 255},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, s.Magnitude(tt.throttle), "Magnitude(%d)", tt.throttle)
	}
}

func TestScale_MagnitudeClamped(t *testing.T) {
	s := DefaultScale()

	assert.Equal(t, uint8(255), s.Magnitude(80))
	assert.Equal(t, uint8(255), s.Magnitude(-200))

	small := Scale{Neutral: 49, RawMax: 99, MaxMagnitude: 100}
	assert.Equal(t, uint8(100), small.Magnitude(50))
	assert.Equal(t, uint8(100), small.Magnitude(60))
	assert.Equal(t, uint8(2), small.Magnitude(1))
}

func TestScale_MagnitudeMonotonic(t *testing.T) {
	s := DefaultScale()

	for _, sign := range []int{1, -1} {
		prev := uint8(0)
		for abs := 0; abs <= 50; abs++ {
			m := s.Magnitude(sign * abs)
			if m < prev {
				t.Errorf("Magnitude(%d) = %d, smaller than Magnitude(%d) = %d", sign*abs, m, sign*(abs-1), prev)
			}
			prev = m
		}
	}
}

func TestScale_DegenerateNeverDisablesMovingThrottle(t *testing.T) {
	tests := []struct {
		name  string
		scale Scale
	}{
		{"zero span", Scale{Neutral: 99, RawMax: 99, MaxMagnitude: 255}},
		{"negative span", Scale{Neutral: 120, RawMax: 99, MaxMagnitude: 255}},
		{"zero max magnitude", Scale{Neutral: 49, RawMax: 99, MaxMagnitude: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, uint8(0), tt.scale.Magnitude(0))
			for _, throttle := range []int{-99, -10, -1, 1, 50} {
				assert.GreaterOrEqual(t, tt.scale.Magnitude(throttle), uint8(1), "throttle %d", throttle)
			}
			for raw := 0; raw <= 99; raw++ {
				cmd := Decide(raw, tt.scale)
				if cmd.Direction == Stopped {
					assert.Zero(t, cmd.Magnitude, "raw %d", raw)
				} else {
					assert.NotZero(t, cmd.Magnitude, "raw %d moves %s with magnitude 0", raw, cmd.Direction)
				}
			}
		})
	}
}
