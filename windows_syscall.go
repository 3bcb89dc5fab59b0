//go:build windows

package serial

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// These Win32 COMM APIs have no wrapper in golang.org/x/sys/windows (that
// package covers the general kernel32/advapi32 surface, not the COMM
// subset), so they're bound locally the way jbuchbinder-goserial's
// serial_windows.go binds SetCommState/SetCommTimeouts: via
// LazyDLL/LazyProc rather than syscall.LoadLibrary, since x/sys/windows
// already gives us that wrapper.
var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetCommState        = modkernel32.NewProc("GetCommState")
	procSetCommState        = modkernel32.NewProc("SetCommState")
	procSetCommTimeouts     = modkernel32.NewProc("SetCommTimeouts")
	procSetCommMask         = modkernel32.NewProc("SetCommMask")
	procSetupComm           = modkernel32.NewProc("SetupComm")
	procWaitCommEvent       = modkernel32.NewProc("WaitCommEvent")
	procPurgeComm           = modkernel32.NewProc("PurgeComm")
	procClearCommError      = modkernel32.NewProc("ClearCommError")
	procEscapeCommFunction  = modkernel32.NewProc("EscapeCommFunction")
	procGetCommModemStatus  = modkernel32.NewProc("GetCommModemStatus")
	procSetCommBreak        = modkernel32.NewProc("SetCommBreak")
	procClearCommBreak      = modkernel32.NewProc("ClearCommBreak")
)

// dcb mirrors the Win32 DCB struct field-for-field, including the
// 32-bit packed flag word winbase.h expresses as C bitfields.
type dcb struct {
	DCBlength uint32
	BaudRate  uint32
	flags     uint32
	wReserved uint16
	XonLim    uint16
	XoffLim   uint16
	ByteSize  byte
	Parity    byte
	StopBits  byte
	XonChar   byte
	XoffChar  byte
	ErrorChar byte
	EofChar   byte
	EvtChar   byte
	wReserved1 uint16
}

const (
	dcbFBinary           = 1 << 0
	dcbFParity           = 1 << 1
	dcbFOutxCtsFlow      = 1 << 2
	dcbFOutxDsrFlow      = 1 << 3
	dcbFDtrControlShift  = 4
	dcbFDsrSensitivity   = 1 << 6
	dcbFOutX             = 1 << 8
	dcbFInX              = 1 << 9
	dcbFErrorChar        = 1 << 10
	dcbFNull             = 1 << 11
	dcbFRtsControlShift  = 12
	dcbFAbortOnError     = 1 << 14
)

const (
	dtrControlDisable   = 0
	dtrControlEnable    = 1
	dtrControlHandshake = 2

	rtsControlDisable   = 0
	rtsControlEnable    = 1
	rtsControlHandshake = 2
	rtsControlToggle    = 3
)

type commTimeouts struct {
	ReadIntervalTimeout         uint32
	ReadTotalTimeoutMultiplier  uint32
	ReadTotalTimeoutConstant    uint32
	WriteTotalTimeoutMultiplier uint32
	WriteTotalTimeoutConstant   uint32
}

type comstat struct {
	flags    uint32
	InQue    uint32
	OutQue   uint32
}

const (
	evRXChar = 0x0001
	evErr    = 0x0080
	evBreak  = 0x0040
	evCTS    = 0x0008
	evDSR    = 0x0010
	evRLSD   = 0x0020 // CD

	purgeTxAbort = 0x0001
	purgeRxAbort = 0x0002
	purgeTxClear = 0x0004
	purgeRxClear = 0x0008

	msCTSOn  = 0x0010
	msDSROn  = 0x0020
	msRingOn = 0x0040
	msRLSDOn = 0x0080

	setRTS = 3
	clrRTS = 4
	setDTR = 5
	clrDTR = 6
	setBreakFn = 8
	clrBreakFn = 9

	ceRxOver  = 0x0001
	ceOverrun = 0x0002
	ceRxParity = 0x0004
	ceFrame    = 0x0008
)

func getCommState(h windows.Handle, p *dcb) error {
	p.DCBlength = uint32(unsafe.Sizeof(*p))
	r, _, err := procGetCommState.Call(uintptr(h), uintptr(unsafe.Pointer(p)))
	if r == 0 {
		return err
	}
	return nil
}

func setCommState(h windows.Handle, p *dcb) error {
	r, _, err := procSetCommState.Call(uintptr(h), uintptr(unsafe.Pointer(p)))
	if r == 0 {
		return err
	}
	return nil
}

func setCommTimeouts(h windows.Handle, t *commTimeouts) error {
	r, _, err := procSetCommTimeouts.Call(uintptr(h), uintptr(unsafe.Pointer(t)))
	if r == 0 {
		return err
	}
	return nil
}

func setCommMask(h windows.Handle, mask uint32) error {
	r, _, err := procSetCommMask.Call(uintptr(h), uintptr(mask))
	if r == 0 {
		return err
	}
	return nil
}

func setupComm(h windows.Handle, inQ, outQ uint32) error {
	r, _, err := procSetupComm.Call(uintptr(h), uintptr(inQ), uintptr(outQ))
	if r == 0 {
		return err
	}
	return nil
}

func waitCommEvent(h windows.Handle, mask *uint32, ov *windows.Overlapped) error {
	r, _, err := procWaitCommEvent.Call(uintptr(h), uintptr(unsafe.Pointer(mask)), uintptr(unsafe.Pointer(ov)))
	if r == 0 {
		return err
	}
	return nil
}

func purgeComm(h windows.Handle, flags uint32) error {
	r, _, err := procPurgeComm.Call(uintptr(h), uintptr(flags))
	if r == 0 {
		return err
	}
	return nil
}

func clearCommError(h windows.Handle, errs *uint32, stat *comstat) error {
	r, _, err := procClearCommError.Call(uintptr(h), uintptr(unsafe.Pointer(errs)), uintptr(unsafe.Pointer(stat)))
	if r == 0 {
		return err
	}
	return nil
}

func escapeCommFunction(h windows.Handle, fn uintptr) error {
	r, _, err := procEscapeCommFunction.Call(uintptr(h), fn)
	if r == 0 {
		return err
	}
	return nil
}

func getCommModemStatus(h windows.Handle) (uint32, error) {
	var status uint32
	r, _, err := procGetCommModemStatus.Call(uintptr(h), uintptr(unsafe.Pointer(&status)))
	if r == 0 {
		return 0, err
	}
	return status, nil
}

func setCommBreak(h windows.Handle) error {
	r, _, err := procSetCommBreak.Call(uintptr(h))
	if r == 0 {
		return err
	}
	return nil
}

func clearCommBreak(h windows.Handle) error {
	r, _, err := procClearCommBreak.Call(uintptr(h))
	if r == 0 {
		return err
	}
	return nil
}
