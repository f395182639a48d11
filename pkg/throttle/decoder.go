package throttle

import (
	"errors"
	"fmt"
)

// headerMin is the lowest control byte. Payload bytes are always below it, so
// a control byte in the middle of a frame ends that frame.
const headerMin = 240

// ArduinoBlue transmission codes, from the ArduinoBlue library header
// (ArduinoBlue.h). Text and path transmissions carry payloads the decoder
// does not need; their bytes are skipped.
const (
	ArduinoBlueEnd             = 240
	ArduinoBlueConnectionCheck = 245
	ArduinoBlueText            = 249
	ArduinoBlueButton          = 250
	ArduinoBlueDrive           = 251
	ArduinoBlueSlider          = 252
	ArduinoBluePath            = 253
)

// Protocol holds the control bytes of the phone app's serial protocol.
type Protocol struct {
	Drive           uint8 `json:"drive" yaml:"drive" env:"DRIVE"`
	Button          uint8 `json:"button" yaml:"button" env:"BUTTON"`
	Slider          uint8 `json:"slider" yaml:"slider" env:"SLIDER"`
	ConnectionCheck uint8 `json:"connection_check" yaml:"connection_check" env:"CONNECTION_CHECK"`
	End             uint8 `json:"end" yaml:"end" env:"END"`
	SteeringFirst   bool  `json:"steering_first,omitempty" yaml:"steering_first,omitempty" env:"STEERING_FIRST"`
}

// ArduinoBlue returns the protocol spoken by the ArduinoBlue phone app: a
// drive transmission is 251, throttle, steering, 240.
func ArduinoBlue() Protocol {
	return Protocol{
		Drive:           ArduinoBlueDrive,
		Button:          ArduinoBlueButton,
		Slider:          ArduinoBlueSlider,
		ConnectionCheck: ArduinoBlueConnectionCheck,
		End:             ArduinoBlueEnd,
	}
}

// Validate checks that every control byte is above the payload range and
// that no two transmissions share a code.
func (p Protocol) Validate() error {
	codes := []struct {
		name string
		code uint8
	}{
		{"drive", p.Drive},
		{"button", p.Button},
		{"slider", p.Slider},
		{"connection_check", p.ConnectionCheck},
		{"end", p.End},
	}

	var errs []error
	seen := make(map[uint8]string, len(codes))
	for _, c := range codes {
		if c.code < headerMin {
			errs = append(errs, fmt.Errorf("%s code %d below %d", c.name, c.code, headerMin))
		}
		if other, ok := seen[c.code]; ok {
			errs = append(errs, fmt.Errorf("%s and %s share code %d", other, c.name, c.code))
		}
		seen[c.code] = c.name
	}
	return errors.Join(errs...)
}

// FrameKind identifies a transmission from the phone.
type FrameKind int

const (
	FrameDrive FrameKind = iota + 1
	FrameButton
	FrameSlider
	FrameConnectionCheck
)

func (k FrameKind) String() string {
	switch k {
	case FrameDrive:
		return "drive"
	case FrameButton:
		return "button"
	case FrameSlider:
		return "slider"
	case FrameConnectionCheck:
		return "connection check"
	default:
		return fmt.Sprintf("FrameKind(%d)", int(k))
	}
}

// Frame is one transmission from the phone. Throttle and Steering are set
// for drive frames, ID and Value for button and slider frames.
type Frame struct {
	Kind     FrameKind
	Throttle int
	Steering int
	ID       int
	Value    int
}

// Decoder extracts frames from the phone's byte stream. Bytes outside a
// known frame are ignored, so the decoder resyncs on the next control byte.
// The zero Decoder speaks the ArduinoBlue protocol.
type Decoder struct {
	proto Protocol
	kind  FrameKind
	need  int
	n     int
	buf   [2]byte
}

// NewDecoder returns a decoder for p.
func NewDecoder(p Protocol) *Decoder {
	return &Decoder{proto: p}
}

func (d *Decoder) protocol() Protocol {
	if d.proto == (Protocol{}) {
		return ArduinoBlue()
	}
	return d.proto
}

// Feed consumes one byte and returns a frame when b completes one.
func (d *Decoder) Feed(b byte) (Frame, bool) {
	if b >= headerMin {
		return d.control(b)
	}
	if d.kind == 0 {
		return Frame{}, false
	}

	d.buf[d.n] = b
	d.n++
	if d.n < d.need {
		return Frame{}, false
	}
	return d.complete()
}

// Decode feeds p through the decoder and returns the frames it completes.
func (d *Decoder) Decode(p []byte) []Frame {
	var frames []Frame
	for _, b := range p {
		if f, ok := d.Feed(b); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

func (d *Decoder) control(b byte) (Frame, bool) {
	p := d.protocol()
	d.reset()

	switch b {
	case p.ConnectionCheck:
		return Frame{Kind: FrameConnectionCheck}, true
	case p.Drive:
		d.kind, d.need = FrameDrive, 2
	case p.Slider:
		d.kind, d.need = FrameSlider, 2
	case p.Button:
		d.kind, d.need = FrameButton, 1
	}
	// End markers, text and path transmissions leave the decoder idle.
	return Frame{}, false
}

func (d *Decoder) complete() (Frame, bool) {
	kind := d.kind
	a, b := int(d.buf[0]), int(d.buf[1])
	d.reset()

	switch kind {
	case FrameDrive:
		if d.protocol().SteeringFirst {
			a, b = b, a
		}
		if a > RawMax || b > RawMax {
			return Frame{}, false
		}
		return Frame{Kind: FrameDrive, Throttle: a, Steering: b}, true
	case FrameButton:
		return Frame{Kind: FrameButton, ID: a}, true
	case FrameSlider:
		return Frame{Kind: FrameSlider, ID: a, Value: b}, true
	}
	return Frame{}, false
}

func (d *Decoder) reset() {
	d.kind, d.need, d.n = 0, 0, 0
}
