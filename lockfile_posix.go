//go:build linux || darwin || freebsd

package serial

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// lockFile is the PID-stamped advisory lock described in §4.4, modeled
// on the uucp-style "LCK.." convention QSerialPort drives through
// QLockFile (see qserialport_p.h's lockFileScopedPointer).
type lockFile struct {
	path string
}

func lockDir() string {
	if d := os.Getenv("XDG_RUNTIME_DIR"); d != "" {
		return d
	}
	return "/var/lock"
}

func lockPathFor(systemPath string) string {
	return filepath.Join(lockDir(), "LCK.."+filepath.Base(systemPath))
}

// acquireLockFile creates the lock file for systemPath, clearing it
// first if it names a process that no longer exists. Failure to acquire
// an otherwise-live lock is reported as Permission, matching §4.4's
// "port held by another process" contract.
func acquireLockFile(systemPath string) (*lockFile, *PortError) {
	path := lockPathFor(systemPath)

	if pid, err := readLockPID(path); err == nil {
		if pid == os.Getpid() || processAlive(pid) {
			return nil, newError(Permission, fmt.Sprintf("port locked by pid %d", pid), nil)
		}
		_ = os.Remove(path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, newError(Permission, "port lock contended", err)
		}
		// Lock directory unwritable (common for unprivileged users on
		// /var/lock): proceed without a lock file rather than refusing
		// to open a port the OS itself will happily hand out.
		return &lockFile{}, nil
	}
	fmt.Fprintf(f, "%10d\n", os.Getpid())
	f.Close()
	return &lockFile{path: path}, nil
}

func (l *lockFile) release() {
	if l == nil || l.path == "" {
		return
	}
	_ = os.Remove(l.path)
}

// platformIsBusy performs only step 1 of acquireLockFile's protocol —
// reading the lock file's PID without acquiring it — matching §4.4's
// advisory is_busy contract.
func platformIsBusy(id PortIdentity) bool {
	pid, err := readLockPID(lockPathFor(id.SystemPath))
	if err != nil {
		return false
	}
	return pid == os.Getpid() || processAlive(pid)
}

// platformIsValid reports whether id's system path names an extant
// character device node.
func platformIsValid(id PortIdentity) bool {
	fi, err := os.Lstat(id.SystemPath)
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func readLockPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}
	return pid, nil
}

// processAlive reports whether pid names a live process, using the
// standard kill(pid, 0) liveness probe (no signal delivered).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err != unix.ESRCH
}
