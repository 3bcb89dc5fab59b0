//go:build windows

package serial

import "golang.org/x/sys/windows"

// platformIsBusy attempts CreateFile with GENERIC_READ|GENERIC_WRITE and
// closes the handle immediately on success, matching §4.4's Windows
// is_busy probe: ERROR_ACCESS_DENIED means another handle already holds
// the port, success means it doesn't.
func platformIsBusy(id PortIdentity) bool {
	pathPtr, err := windows.UTF16PtrFromString(id.SystemPath)
	if err != nil {
		return false
	}
	h, err := windows.CreateFile(pathPtr, windows.GENERIC_READ|windows.GENERIC_WRITE, 0, nil,
		windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return err == windows.ERROR_ACCESS_DENIED
	}
	windows.CloseHandle(h)
	return false
}

// platformIsValid reports whether id's system path names an extant COM
// device, probed with a zero-access CreateFile (existence check only, no
// handshake over ownership).
func platformIsValid(id PortIdentity) bool {
	pathPtr, err := windows.UTF16PtrFromString(id.SystemPath)
	if err != nil {
		return false
	}
	h, err := windows.CreateFile(pathPtr, 0, 0, nil, windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return err != windows.ERROR_FILE_NOT_FOUND && err != windows.ERROR_PATH_NOT_FOUND
	}
	windows.CloseHandle(h)
	return true
}
