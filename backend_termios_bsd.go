//go:build darwin || freebsd

package serial

import "golang.org/x/sys/unix"

const (
	ioctlGetAttr = unix.TIOCGETA
	ioctlSetAttr = unix.TIOCSETA
)

// ccts_oflow/crts_iflow are the BSD hardware-flow-control bits; neither
// Darwin's nor FreeBSD's x/sys/unix exports a combined CRTSCTS name, so
// the pair is inlined here as the traditional <termios.h> values.
const (
	cctsOFlow = 0x00010000
	crtsIFlow = 0x00020000
)

func hasCMSPAR() bool    { return false }
func cmsparMask() uint32 { return 0 }
func crtscts() uint32    { return cctsOFlow | crtsIFlow }

// setBaudRate assigns the literal rate directly: BSD-derived termios has
// no encoded B* table, cfsetspeed(3) just stores the integer rate, which
// the driver then validates against what the UART can divide down to.
func setBaudRate(fd int, t *unix.Termios, in, out uint32) *PortError {
	t.Ispeed = uint64(in)
	t.Ospeed = uint64(out)
	return nil
}
