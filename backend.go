package serial

import "time"

// OpenMode selects which halves of the stream a backend opens. Only
// Read, Write and their combination are legal; anything else is rejected
// with UnsupportedOperation (§6, Open mode rejection).
type OpenMode int

const (
	ModeRead OpenMode = 1 << iota
	ModeWrite
	ModeReadWrite = ModeRead | ModeWrite
)

func (m OpenMode) valid() bool {
	return m == ModeRead || m == ModeWrite || m == ModeReadWrite
}

// ClearQueue selects which direction's pending bytes a Clear call
// discards.
type ClearQueue int

const (
	ClearInput ClearQueue = 1 << iota
	ClearOutput
	ClearBoth = ClearInput | ClearOutput
)

// backendEvents are the façade callbacks a backend drives. They are
// captured as closures at construction (§9, Design Notes: "ownership
// instead of a back-pointer") rather than delivered through a stored
// reference to the façade.
type backendEvents struct {
	readyRead          func()
	bytesWritten       func(n int)
	errorOccurred      func(*PortError)
	breakEnabledChanged func(bool)
	baudRateChanged     func(in, out uint32)
}

// backend is the per-platform I/O engine contract described in §4.5. A
// Port holds exactly one concrete backend, selected at compile time.
type backend interface {
	// Open establishes the OS handle in the given mode and applies cfg.
	Open(mode OpenMode, cfg LineConfig) *PortError
	// Close is idempotent: the second and subsequent calls are no-ops.
	Close()

	Read(buf []byte) (int, *PortError)
	Write(buf []byte) (int, *PortError)

	WaitForReadyRead(timeout time.Duration) (bool, *PortError)
	WaitForBytesWritten(timeout time.Duration) (bool, *PortError)

	Flush() *PortError
	Clear(dirs ClearQueue) *PortError

	SetBreakEnabled(on bool) *PortError
	SendBreak(duration time.Duration) *PortError

	PinoutSignals() (ModemSignals, *PortError)
	SetDTR(on bool) *PortError
	SetRTS(on bool) *PortError

	// Configuration commits: each validates, and if the port is open,
	// commits to the OS; on OS failure the in-memory config (owned by
	// the façade) is left untouched by the caller.
	SetBaudRate(in, out uint32) *PortError
	SetDataBits(n int) *PortError
	SetParity(p Parity) *PortError
	SetStopBits(s StopBits) *PortError
	SetFlowControl(f FlowControl) *PortError
	SetDataErrorPolicy(d DataErrorPolicy) *PortError

	IsOpen() bool
}
