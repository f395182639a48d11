package drive

// Default throttle scale for the phone app: raw readings 0..99 with 49 at rest,
// driving an 8-bit pulse width.
const (
	DefaultNeutral      = 49
	DefaultRawMax       = 99
	DefaultMaxMagnitude = 255
)

// Scale maps raw throttle readings to signed throttle and pulse-width magnitude.
type Scale struct {
	Neutral      int // raw reading at rest
	RawMax       int
	MaxMagnitude int
}

// DefaultScale returns the scale used by the phone app.
func DefaultScale() Scale {
	return Scale{
		Neutral:      DefaultNeutral,
		RawMax:       DefaultRawMax,
		MaxMagnitude: DefaultMaxMagnitude,
	}
}

// Normalize converts a raw reading into signed throttle, 0 at rest.
// With the default scale the result is in [-49, 50].
func (s Scale) Normalize(raw int) int {
	return raw - s.Neutral
}

// span is the throttle that maps to full magnitude.
func (s Scale) span() int {
	return s.RawMax - s.Neutral
}

// Magnitude converts signed throttle into a pulse-width value in
// [0, MaxMagnitude]. Values are rounded to the nearest integer, exact halves
// downwards, so 25 of 50 gives 127 and 49 of 50 gives 250.
//
// Magnitude is 0 only for zero throttle. Any other throttle yields at least 1,
// even on a degenerate scale, so a moving direction is never paired with a
// disabled motor.
func (s Scale) Magnitude(throttle int) uint8 {
	if throttle == 0 {
		return 0
	}
	if throttle < 0 {
		throttle = -throttle
	}

	m := 0
	if span := s.span(); span > 0 {
		m = (throttle*s.MaxMagnitude + (span-1)/2) / span
	}
	if m > s.MaxMagnitude {
		m = s.MaxMagnitude
	}
	if m > 255 {
		m = 255
	}
	if m < 1 {
		m = 1
	}
	return uint8(m)
}
