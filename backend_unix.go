//go:build linux || darwin || freebsd

package serial

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// noMarkSpaceParity is not referenced by the parity code. Mark/space
// support is decided per platform by hasCMSPAR/cmsparMask (see
// backend_termios_linux.go / backend_termios_bsd.go): Linux uses CMSPAR;
// darwin and freebsd termios have no mark/space parity bit, so setParity
// rejects ParityMark/ParitySpace there.
const noMarkSpaceParity = ^uint32(0)

// posixBackend is the shared select/poll-driven engine used on every
// POSIX target. It is grounded directly on the termios field mapping in
// the teacher's port_linux.go, generalized from Linux-only ioctl numbers
// to the portable golang.org/x/sys/unix Termios/Ioctl* surface so the
// same file serves linux, darwin and freebsd.
type posixBackend struct {
	path   string
	ev     *backendEvents
	lock   *lockFile
	fd     int
	open   bool
	orig   *unix.Termios
	cfg    LineConfig
}

func newBackend(systemPath string, ev *backendEvents) backend {
	return &posixBackend{path: systemPath, ev: ev}
}

func (b *posixBackend) IsOpen() bool { return b.open }

func (b *posixBackend) Open(mode OpenMode, cfg LineConfig) *PortError {
	flags := unix.O_NOCTTY | unix.O_NONBLOCK
	switch mode {
	case ModeRead:
		flags |= unix.O_RDONLY
	case ModeWrite:
		flags |= unix.O_WRONLY
	default:
		flags |= unix.O_RDWR
	}

	lock, lerr := acquireLockFile(b.path)
	if lerr != nil {
		return lerr
	}

	fd, err := unix.Open(b.path, flags, 0)
	if err != nil {
		lock.release()
		return decodeErrno(err, "open")
	}

	t, err := unix.IoctlGetTermios(fd, ioctlGetAttr)
	if err != nil {
		unix.Close(fd)
		lock.release()
		return decodeErrno(err, "tcgetattr")
	}
	orig := *t

	applied := *t
	if perr := applyTermios(fd, &applied, cfg); perr != nil {
		unix.Close(fd)
		lock.release()
		return perr
	}
	if err := unix.IoctlSetTermios(fd, ioctlSetAttr, &applied); err != nil {
		unix.Close(fd)
		lock.release()
		return decodeErrno(err, "tcsetattr")
	}

	b.fd = fd
	b.lock = lock
	b.orig = &orig
	b.cfg = cfg
	b.open = true

	if cfg.DTR {
		_ = b.SetDTR(true)
	}
	if cfg.RTS {
		_ = b.SetRTS(true)
	}
	return nil
}

func (b *posixBackend) Close() {
	if !b.open {
		return
	}
	if b.cfg.RestoreSettingsOnClose && b.orig != nil {
		_ = unix.IoctlSetTermios(b.fd, ioctlSetAttr, b.orig)
	}
	unix.Close(b.fd)
	if b.lock != nil {
		b.lock.release()
	}
	b.open = false
}

func (b *posixBackend) Read(buf []byte) (int, *PortError) {
	n, err := unix.Read(b.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, decodeErrno(err, "read")
	}
	if n < 0 {
		n = 0
	}
	return applyDataErrorPolicy(buf[:n], b.cfg.DataErrorPolicy), nil
}

func (b *posixBackend) Write(buf []byte) (int, *PortError) {
	n, err := unix.Write(b.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, decodeErrno(err, "write")
	}
	return n, nil
}

func (b *posixBackend) waitFor(events int16, timeout time.Duration) (bool, *PortError) {
	ms := int(timeout / time.Millisecond)
	if timeout < 0 {
		ms = -1
	}
	pfd := []unix.PollFd{{Fd: int32(b.fd), Events: events}}
	n, err := unix.Poll(pfd, ms)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, decodeErrno(err, "poll")
	}
	if n == 0 {
		return false, newError(Timeout, "deadline exceeded", nil)
	}
	return pfd[0].Revents&events != 0, nil
}

func (b *posixBackend) WaitForReadyRead(timeout time.Duration) (bool, *PortError) {
	return b.waitFor(unix.POLLIN, timeout)
}

func (b *posixBackend) WaitForBytesWritten(timeout time.Duration) (bool, *PortError) {
	return b.waitFor(unix.POLLOUT, timeout)
}

func (b *posixBackend) Flush() *PortError {
	if err := unix.IoctlSetInt(b.fd, unix.TCFLSH, unix.TCOFLUSH); err != nil {
		return decodeErrno(err, "drain")
	}
	return nil
}

func (b *posixBackend) Clear(dirs ClearQueue) *PortError {
	var which int
	switch dirs {
	case ClearInput:
		which = unix.TCIFLUSH
	case ClearOutput:
		which = unix.TCOFLUSH
	default:
		which = unix.TCIOFLUSH
	}
	if err := unix.IoctlSetInt(b.fd, unix.TCFLSH, which); err != nil {
		return decodeErrno(err, "flush")
	}
	return nil
}

func (b *posixBackend) SetBreakEnabled(on bool) *PortError {
	req := unix.TIOCCBRK
	if on {
		req = unix.TIOCSBRK
	}
	if err := unix.IoctlSetInt(b.fd, uint(req), 0); err != nil {
		return decodeErrno(err, "break")
	}
	return nil
}

func (b *posixBackend) SendBreak(duration time.Duration) *PortError {
	if err := b.SetBreakEnabled(true); err != nil {
		return err
	}
	time.Sleep(duration)
	return b.SetBreakEnabled(false)
}

func (b *posixBackend) modemBits() (int, *PortError) {
	v, err := unix.IoctlGetInt(b.fd, unix.TIOCMGET)
	if err != nil {
		return 0, decodeErrno(err, "modem lines")
	}
	return v, nil
}

func (b *posixBackend) setModemBit(bit int, on bool) *PortError {
	req := uintptr(unix.TIOCMBIC)
	if on {
		req = unix.TIOCMBIS
	}
	v := bit
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), req, uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return decodeErrno(errno, "modem lines")
	}
	return nil
}

func (b *posixBackend) SetDTR(on bool) *PortError { return b.setModemBit(unix.TIOCM_DTR, on) }
func (b *posixBackend) SetRTS(on bool) *PortError { return b.setModemBit(unix.TIOCM_RTS, on) }

func (b *posixBackend) PinoutSignals() (ModemSignals, *PortError) {
	v, err := b.modemBits()
	if err != nil {
		return 0, err
	}
	var s ModemSignals
	set := func(bit int, sig ModemSignal) {
		if v&bit != 0 {
			s |= ModemSignals(sig)
		}
	}
	set(unix.TIOCM_LE, SignalDTR)
	set(unix.TIOCM_DTR, SignalDTR)
	set(unix.TIOCM_RTS, SignalRTS)
	set(unix.TIOCM_CTS, SignalCTS)
	set(unix.TIOCM_DSR, SignalDSR)
	set(unix.TIOCM_CAR, SignalDCD)
	set(unix.TIOCM_RI, SignalRI)
	return s, nil
}

func (b *posixBackend) commit(mutate func(*unix.Termios) *PortError) *PortError {
	t, err := unix.IoctlGetTermios(b.fd, ioctlGetAttr)
	if err != nil {
		return decodeErrno(err, "tcgetattr")
	}
	if perr := mutate(t); perr != nil {
		return perr
	}
	if err := unix.IoctlSetTermios(b.fd, ioctlSetAttr, t); err != nil {
		return decodeErrno(err, "tcsetattr")
	}
	return nil
}

func (b *posixBackend) SetBaudRate(in, out uint32) *PortError {
	return b.commit(func(t *unix.Termios) *PortError { return setBaudRate(b.fd, t, in, out) })
}

func (b *posixBackend) SetDataBits(n int) *PortError {
	return b.commit(func(t *unix.Termios) *PortError { return setDataBits(t, n) })
}

func (b *posixBackend) SetParity(p Parity) *PortError {
	return b.commit(func(t *unix.Termios) *PortError { return setParity(t, p) })
}

func (b *posixBackend) SetStopBits(s StopBits) *PortError {
	return b.commit(func(t *unix.Termios) *PortError { return setStopBits(t, s) })
}

func (b *posixBackend) SetFlowControl(f FlowControl) *PortError {
	return b.commit(func(t *unix.Termios) *PortError { return setFlowControl(t, f) })
}

func (b *posixBackend) SetDataErrorPolicy(d DataErrorPolicy) *PortError {
	b.cfg.DataErrorPolicy = d
	return nil
}

// applyTermios puts t into raw mode and applies cfg's line parameters in
// one pass, used only at Open (later mutations go through commit, which
// re-reads termios fresh so concurrent backend state can't drift).
func applyTermios(fd int, t *unix.Termios, cfg LineConfig) *PortError {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CLOCAL | unix.CREAD
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	// A freshly constructed Port carries baud 0 until the caller calls
	// SetBaudRate (§8, "Default construction"); leave the line's current
	// speed untouched rather than committing a literal B0 hangup.
	if cfg.BaudRateIn != 0 || cfg.BaudRateOut != 0 {
		if err := setBaudRate(fd, t, cfg.BaudRateIn, cfg.BaudRateOut); err != nil {
			return err
		}
	}
	if err := setDataBits(t, cfg.DataBits); err != nil {
		return err
	}
	if err := setParity(t, cfg.Parity); err != nil {
		return err
	}
	if err := setStopBits(t, cfg.StopBits); err != nil {
		return err
	}
	return setFlowControl(t, cfg.FlowControl)
}

func setDataBits(t *unix.Termios, n int) *PortError {
	if !validateDataBits(n) {
		return newError(UnsupportedOperation, "data bits out of range", nil)
	}
	t.Cflag &^= unix.CSIZE
	switch n {
	case 5:
		t.Cflag |= unix.CS5
	case 6:
		t.Cflag |= unix.CS6
	case 7:
		t.Cflag |= unix.CS7
	case 8:
		t.Cflag |= unix.CS8
	}
	return nil
}

func setStopBits(t *unix.Termios, s StopBits) *PortError {
	switch s {
	case StopBitsOne:
		t.Cflag &^= unix.CSTOPB
	case StopBitsTwo, StopBitsOneAndHalf:
		t.Cflag |= unix.CSTOPB
	default:
		return newError(UnsupportedOperation, "unknown stop bits", nil)
	}
	return nil
}

func setParity(t *unix.Termios, p Parity) *PortError {
	t.Iflag &^= unix.INPCK | unix.PARMRK | unix.ISTRIP
	t.Cflag &^= unix.PARENB | unix.PARODD
	if hasCMSPAR() {
		t.Cflag &^= cmsparMask()
	}
	switch p {
	case ParityNone:
	case ParityEven:
		t.Cflag |= unix.PARENB
		t.Iflag |= unix.INPCK | unix.PARMRK
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
		t.Iflag |= unix.INPCK | unix.PARMRK
	case ParityMark:
		if !hasCMSPAR() {
			return newError(UnsupportedOperation, "mark parity not supported on this platform", nil)
		}
		t.Cflag |= unix.PARENB | unix.PARODD | cmsparMask()
		t.Iflag |= unix.INPCK | unix.PARMRK
	case ParitySpace:
		if !hasCMSPAR() {
			return newError(UnsupportedOperation, "space parity not supported on this platform", nil)
		}
		t.Cflag |= unix.PARENB | cmsparMask()
		t.Cflag &^= unix.PARODD
		t.Iflag |= unix.INPCK | unix.PARMRK
	default:
		return newError(UnsupportedOperation, "unknown parity", nil)
	}
	return nil
}

func setFlowControl(t *unix.Termios, f FlowControl) *PortError {
	t.Iflag &^= unix.IXON | unix.IXOFF
	t.Cflag &^= crtscts()
	switch f {
	case FlowControlNone:
	case FlowControlSoftware:
		t.Iflag |= unix.IXON | unix.IXOFF
	case FlowControlHardware:
		t.Cflag |= crtscts()
	default:
		return newError(UnsupportedOperation, "unknown flow control", nil)
	}
	return nil
}

// applyDataErrorPolicy is the userspace half of §4.5.2's data-error
// handling: PARMRK marks a flagged byte with the two-byte \xFF\x00
// sequence (with a literal 0xFF doubled to escape it), which this scans
// back out according to the configured policy.
func applyDataErrorPolicy(buf []byte, policy DataErrorPolicy) int {
	if policy == Ignore {
		return len(buf)
	}
	out := buf[:0]
	for i := 0; i < len(buf); i++ {
		if buf[i] != 0xFF {
			out = append(out, buf[i])
			continue
		}
		if i+1 < len(buf) && buf[i+1] == 0xFF {
			out = append(out, 0xFF)
			i++
			continue
		}
		if i+2 < len(buf) {
			flagged := buf[i+2]
			i += 2
			switch policy {
			case Skip:
			case PassZero:
				out = append(out, 0)
			case StopReceiving:
				return len(out)
			default:
				out = append(out, flagged)
			}
		}
	}
	return len(out)
}

func decodeErrno(err error, op string) *PortError {
	errno, ok := err.(unix.Errno)
	if !ok {
		return newError(Unknown, op, err)
	}
	switch errno {
	case unix.ENOENT, unix.ENODEV:
		return newError(DeviceNotFound, op, err)
	case unix.EACCES, unix.EPERM:
		return newError(Permission, op, err)
	case unix.EBUSY:
		return newError(Resource, op, err)
	case unix.EBADF, unix.EIO:
		return newError(Resource, op, err)
	case unix.ETIMEDOUT:
		return newError(Timeout, op, err)
	default:
		return newError(Unknown, op, err)
	}
}
