// Package drive turns throttle readings into H-bridge direction and
// pulse-width outputs.
package drive

// Direction is the motor direction derived from one throttle reading.
type Direction int

const (
	Stopped Direction = iota
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "FORWARD"
	case Backward:
		return "BACKWARD"
	default:
		return "STOPPED"
	}
}

// PinsFor returns the levels of direction pins A and B for d.
//
//	A     B
//	LOW   LOW   stopped (disabled)
//	LOW   HIGH  forward
//	HIGH  LOW   backward
//
// reversed swaps forward and backward for motors wired the other way round.
// Both pins HIGH is never produced.
func PinsFor(d Direction, reversed bool) (a, b bool) {
	if reversed {
		switch d {
		case Forward:
			d = Backward
		case Backward:
			d = Forward
		}
	}
	switch d {
	case Forward:
		return false, true
	case Backward:
		return true, false
	default:
		return false, false
	}
}
