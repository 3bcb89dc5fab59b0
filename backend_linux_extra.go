//go:build linux

package serial

import (
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
	"golang.org/x/sys/unix"
)

// setCustomBaudRate handles a rate absent from standardLinuxBaud by
// reading the termios2 view of the line, stamping BOTHER into Cflag, and
// writing the literal rate back through TCSETS2. This is the modern
// (kernel >= 2.6.20) replacement for the ASYNC_SPD_CUST/custom_divisor
// dance the teacher's Serial struct exposes; if TCSETS2 is rejected
// (non-UART driver), that older path is tried as a fallback.
func setCustomBaudRate(fd int, t *unix.Termios, in, out uint32) *PortError {
	if in != out {
		return newError(UnsupportedOperation, "custom asymmetric baud rate", nil)
	}
	if fd < 0 {
		return newError(UnsupportedOperation, "custom baud rate requires an open handle", nil)
	}

	t2 := Termios2{
		Iflag:  t.Iflag,
		Oflag:  t.Oflag,
		Cflag:  (t.Cflag &^ unix.CBAUD &^ unix.CBAUDEX) | bother,
		Lflag:  t.Lflag,
		Ispeed: in,
		Ospeed: out,
	}
	for i := range t2.Cc {
		if i < len(t.Cc) {
			t2.Cc[i] = t.Cc[i]
		}
	}
	if err := ioctl.Ioctl(uintptr(fd), tcsets2, uintptr(unsafe.Pointer(&t2))); err == nil {
		t.Cflag = t2.Cflag &^ bother
		return nil
	}

	return setCustomBaudRateLegacy(fd, t, in)
}

// setCustomBaudRateLegacy drives the historical ASYNC_SPD_CUST path:
// the driver divides BaudBase by CustomDivisor to get the actual rate,
// so B38400 is used as the table entry that means "look at
// custom_divisor instead".
func setCustomBaudRateLegacy(fd int, t *unix.Termios, rate uint32) *PortError {
	s := &serialStruct{}
	if err := ioctl.Ioctl(uintptr(fd), tiocgserial, uintptr(unsafe.Pointer(s))); err != nil {
		return decodeErrno(toErrno(err), "get custom baud rate")
	}
	if s.BaudBase == 0 {
		return newError(UnsupportedOperation, "driver reports no baud base for custom rates", nil)
	}
	s.CustomDivisor = s.BaudBase / int32(rate)
	if s.CustomDivisor <= 0 {
		return newError(UnsupportedOperation, "requested rate exceeds driver baud base", nil)
	}
	s.Flags = (s.Flags &^ asyncSPDCust) | asyncSPDCust
	if err := ioctl.Ioctl(uintptr(fd), tiocsserial, uintptr(unsafe.Pointer(s))); err != nil {
		return decodeErrno(toErrno(err), "set custom baud rate")
	}
	t.Cflag &^= unix.CBAUD | unix.CBAUDEX
	t.Cflag |= unix.B38400
	t.Ispeed = unix.B38400
	t.Ospeed = unix.B38400
	return nil
}

func toErrno(err error) error {
	if errno, ok := err.(unix.Errno); ok {
		return errno
	}
	return unix.EIO
}

// SetRS485 configures RS-485 direction control (RTS-on-send / RTS-after-
// send), a Linux-specific extension with no equivalent on darwin or
// freebsd, so it lives outside the shared backend interface and is
// reached via a type assertion: b, ok := backend.(*posixBackend); if ok
// { b.SetRS485(...) }.
func (b *posixBackend) SetRS485(enabled, rtsOnSend bool) *PortError {
	cfg := &rs485Config{}
	if enabled {
		cfg.Flags |= rs485Enabled
	}
	if rtsOnSend {
		cfg.Flags |= rs485RTSOnSend
	} else {
		cfg.Flags |= rs485RTSAfterSend
	}
	if err := ioctl.Ioctl(uintptr(b.fd), tiocsrs485, uintptr(unsafe.Pointer(cfg))); err != nil {
		return decodeErrno(toErrno(err), "set rs485 mode")
	}
	return nil
}
