//go:build linux

package serial

import "golang.org/x/sys/unix"

const (
	ioctlGetAttr = unix.TCGETS
	ioctlSetAttr = unix.TCSETS
)

// cmsparMaskLinux is unix.CMSPAR's numeric value. Older x/sys/unix builds
// on some architectures omit the symbol even though the kernel supports
// it, so the value is inlined rather than referenced, matching the
// precedent in the Gurux-gxserial-go Linux handler this file is
// grounded on.
const cmsparMaskLinux = 0x40000000

func hasCMSPAR() bool    { return true }
func cmsparMask() uint32 { return cmsparMaskLinux }
func crtscts() uint32    { return unix.CRTSCTS }

// standardLinuxBaud maps requested rates to the kernel's encoded B*
// constants. Rates outside this table are passed to setCustomBaudRate in
// backend_linux_extra.go, which tries TCSETS2/BOTHER first and falls
// back to TIOCSSERIAL/ASYNC_SPD_CUST.
var standardLinuxBaud = map[uint32]uint32{
	0:       unix.B0,
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
}

func setBaudRate(fd int, t *unix.Termios, in, out uint32) *PortError {
	bi, ok := standardLinuxBaud[in]
	if !ok {
		return setCustomBaudRate(fd, t, in, out)
	}
	bo, ok := standardLinuxBaud[out]
	if !ok {
		return setCustomBaudRate(fd, t, in, out)
	}
	t.Cflag &^= unix.CBAUD | unix.CBAUDEX | unix.CBAUD<<16
	t.Cflag |= bo
	if bi != bo {
		// CIBAUD: the input rate sits IBSHIFT (16) bits above the output rate.
		t.Cflag |= bi << 16
	}
	t.Ispeed = bi
	t.Ospeed = bo
	return nil
}
