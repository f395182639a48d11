package drive

import "fmt"

// Command is the output derived from a single throttle reading.
type Command struct {
	Raw       int
	Throttle  int
	Direction Direction
	Magnitude uint8
}

func (c Command) String() string {
	return fmt.Sprintf("%s throttle=%d magnitude=%d", c.Direction, c.Throttle, c.Magnitude)
}

// Signed returns the magnitude with the sign of the direction.
func (c Command) Signed() int {
	if c.Direction == Backward {
		return -int(c.Magnitude)
	}
	return int(c.Magnitude)
}

// Decide maps a raw throttle reading to a command. It is total: every raw
// value yields exactly one direction, and the magnitude is 0 only when stopped.
func Decide(raw int, s Scale) Command {
	t := s.Normalize(raw)
	cmd := Command{Raw: raw, Throttle: t}

	switch {
	case t == 0:
		cmd.Direction = Stopped
	case t > 0:
		cmd.Direction = Forward
		cmd.Magnitude = s.Magnitude(t)
	default:
		cmd.Direction = Backward
		cmd.Magnitude = s.Magnitude(t)
	}

	return cmd
}
