package serial

import "fmt"

// ErrorKind is the closed set of error categories an operation on a Port
// can latch or return. The set is deliberately small: callers branch on
// Kind, not on platform-specific error values.
type ErrorKind int

const (
	NoError ErrorKind = iota
	DeviceNotFound
	Permission
	OpenError
	Parity
	Framing
	Break
	WriteError
	ReadError
	Resource
	UnsupportedOperation
	Timeout
	NotOpen
	Unknown
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "NoError"
	case DeviceNotFound:
		return "DeviceNotFound"
	case Permission:
		return "Permission"
	case OpenError:
		return "Open"
	case Parity:
		return "Parity"
	case Framing:
		return "Framing"
	case Break:
		return "Break"
	case WriteError:
		return "Write"
	case ReadError:
		return "Read"
	case Resource:
		return "Resource"
	case UnsupportedOperation:
		return "UnsupportedOperation"
	case Timeout:
		return "Timeout"
	case NotOpen:
		return "NotOpen"
	default:
		return "Unknown"
	}
}

// PortError is the structured result every fallible Port operation
// returns. It carries the closed Kind alongside the human-readable
// message and, where one exists, the wrapped OS-level error.
type PortError struct {
	Kind ErrorKind
	msg  string
	err  error
}

func (e *PortError) Error() string {
	if e == nil {
		return NoError.String()
	}
	if e.msg != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %s", e.Kind, e.msg, e.err)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.msg)
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.err)
	}
	return e.Kind.String()
}

func (e *PortError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Is reports whether target is a *PortError with the same Kind, so
// callers can write errors.Is(err, &serial.PortError{Kind:
// serial.DeviceNotFound}) or compare kinds directly via KindOf.
func (e *PortError) Is(target error) bool {
	other, ok := target.(*PortError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newError(kind ErrorKind, msg string, err error) *PortError {
	return &PortError{Kind: kind, msg: msg, err: err}
}

// KindOf extracts the ErrorKind from err, returning Unknown if err is
// not a *PortError (and NoError if err is nil).
func KindOf(err error) ErrorKind {
	if err == nil {
		return NoError
	}
	var pe *PortError
	if e, ok := err.(*PortError); ok {
		pe = e
	} else {
		return Unknown
	}
	if pe == nil {
		return NoError
	}
	return pe.Kind
}

// latch is the façade's single most-recent-error cell. It only records
// the error: no kind blocks subsequent I/O, and a latched Resource error
// does not stop Read, Write or the other operations from reaching the
// backend.
type latch struct {
	err *PortError
}

func (l *latch) set(e *PortError) {
	l.err = e
}

func (l *latch) clear() {
	l.err = nil
}

func (l *latch) get() *PortError {
	return l.err
}

func (l *latch) kind() ErrorKind {
	if l.err == nil {
		return NoError
	}
	return l.err.Kind
}
