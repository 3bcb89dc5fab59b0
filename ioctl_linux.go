//go:build linux

package serial

import (
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// Termios2 mirrors struct termios2 from <asm/termbits.h>. The kernel
// only exposes arbitrary (non-table) baud rates through this wider
// struct and its TCGETS2/TCSETS2 ioctls, reached here via BOTHER in
// Cflag together with raw Ispeed/Ospeed values.
type Termios2 struct {
	Iflag  uint32
	Oflag  uint32
	Cflag  uint32
	Lflag  uint32
	Line   uint8
	Cc     [19]uint8
	Ispeed uint32
	Ospeed uint32
}

const (
	// bother requests the kernel honor Ispeed/Ospeed as literal baud
	// values rather than an encoded B* index.
	bother = 0x1000

	asyncSPDCust = 0x0030 // AsyncSPDHI | AsyncSPDVHI, see <linux/tty_flags.h>
)

var (
	tcgets2 = ioctl.IOR('T', 0x2A, unsafe.Sizeof(Termios2{}))
	tcsets2 = ioctl.IOW('T', 0x2B, unsafe.Sizeof(Termios2{}))

	tiocgserial = uintptr(0x541E)
	tiocsserial = uintptr(0x541F)

	tiocgrs485 = uintptr(0x542E)
	tiocsrs485 = uintptr(0x542F)
)

// serialStruct mirrors struct serial_struct, used only for the
// ASYNC_SPD_CUST/custom_divisor fallback path on kernels or drivers that
// don't support TCSETS2/BOTHER.
type serialStruct struct {
	Type          int32
	Line          int32
	Port          uint32
	IRQ           int32
	Flags         int32
	XmitFifoSize  int32
	CustomDivisor int32
	BaudBase      int32
	CloseDelay    uint16
	IOType        byte
	Reserved      byte
	Hub6          int32
	ClosingWait   uint16
	ClosingWait2  uint16
	IOMemBase     uintptr
	IOMemRegShift uint16
	PortHigh      uint32
	IOMapBase     uint64
}

// rs485Config mirrors struct serial_rs485. Exposed to callers through
// posixBackend.SetRS485 (Linux-only).
type rs485Config struct {
	Flags              uint32
	DelayRTSBeforeSend uint32
	DelayRTSAfterSend  uint32
	padding            [5]uint32
}

const (
	rs485Enabled      = uint32(1) << 0
	rs485RTSOnSend    = uint32(1) << 1
	rs485RTSAfterSend = uint32(1) << 2
)
