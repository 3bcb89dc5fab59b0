package serial

// Parity selects the per-byte parity scheme.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "None"
	case ParityEven:
		return "Even"
	case ParityOdd:
		return "Odd"
	case ParityMark:
		return "Mark"
	case ParitySpace:
		return "Space"
	default:
		return "Unknown"
	}
}

// StopBits selects the number (and half-step) of stop bits.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsOneAndHalf
	StopBitsTwo
)

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "One"
	case StopBitsOneAndHalf:
		return "OneAndHalf"
	case StopBitsTwo:
		return "Two"
	default:
		return "Unknown"
	}
}

// FlowControl selects the handshake discipline used to pace the stream.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlHardware
	FlowControlSoftware
)

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "None"
	case FlowControlHardware:
		return "Hardware"
	case FlowControlSoftware:
		return "Software"
	default:
		return "Unknown"
	}
}

// DataErrorPolicy controls how a byte flagged with a parity or framing
// error by the UART is delivered to the reader (§4.5.1/§4.5.2).
type DataErrorPolicy int

const (
	// Ignore delivers the flagged byte as ordinary data.
	Ignore DataErrorPolicy = iota
	// Skip drops the flagged byte; nothing is delivered for it.
	Skip
	// PassZero replaces the flagged byte with 0x00 on delivery.
	PassZero
	// StopReceiving delivers buffered bytes and then ceases consuming
	// further input until the next open (see DESIGN.md Open Question
	// resolution: the read watcher stays armed, only consumption stops).
	StopReceiving
)

func (d DataErrorPolicy) String() string {
	switch d {
	case Ignore:
		return "Ignore"
	case Skip:
		return "Skip"
	case PassZero:
		return "PassZero"
	case StopReceiving:
		return "StopReceiving"
	default:
		return "Unknown"
	}
}

// Direction selects which half of a duplex rate or queue an operation
// applies to.
type Direction int

const (
	DirectionInput Direction = 1 << iota
	DirectionOutput
	DirectionBoth = DirectionInput | DirectionOutput
)

// LineConfig is the pure value model of line settings. The zero value is
// not meaningful; use DefaultLineConfig for 9600 8-N-1, no flow, Ignore.
type LineConfig struct {
	BaudRateIn  uint32
	BaudRateOut uint32

	DataBits int // 5..8

	Parity   Parity
	StopBits StopBits

	FlowControl     FlowControl
	DataErrorPolicy DataErrorPolicy

	ReadBufferMax uint64 // 0 = unbounded

	RestoreSettingsOnClose bool

	BreakEnabled bool
	DTR          bool
	RTS          bool
}

// DefaultLineConfig returns 9600 8-N-1, no flow control, Ignore policy,
// an unbounded read buffer, and settings restored on close.
func DefaultLineConfig() LineConfig {
	return LineConfig{
		BaudRateIn:             9600,
		BaudRateOut:            9600,
		DataBits:               8,
		Parity:                 ParityNone,
		StopBits:               StopBitsOne,
		FlowControl:            FlowControlNone,
		DataErrorPolicy:        Ignore,
		ReadBufferMax:          0,
		RestoreSettingsOnClose: true,
	}
}

// validateDataBits reports whether n is one of the four legal values.
func validateDataBits(n int) bool {
	return n >= 5 && n <= 8
}
