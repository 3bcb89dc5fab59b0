//go:build windows

package serial

// lockFile is a no-op placeholder on Windows: CreateFile's default
// sharing mode (no FILE_SHARE_READ/WRITE passed) already gives the OS
// itself the exclusivity POSIX needs a side-file to emulate, so Open's
// own ERROR_ACCESS_DENIED/ERROR_SHARING_VIOLATION decoding (see
// decodeWin32) is the busy-probe described in §4.4 for this platform.
type lockFile struct{}

func acquireLockFile(systemPath string) (*lockFile, *PortError) {
	return &lockFile{}, nil
}

func (l *lockFile) release() {}
