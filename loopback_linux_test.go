//go:build linux

package serial

import (
	"os"
	"strconv"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// openPTYMaster opens /dev/ptmx and returns the master file plus the
// slave's /dev/pts/<n> path, unlocking the pair the way the teacher's
// pty_linux.go did with its own SetLockPT/GetPTPeer helpers (generalized
// here to plain unix.IoctlGetInt/unix.IoctlSetPointerInt rather than the
// teacher's raw ioctl numbers, since TIOCGPTN/TIOCSPTLCK are already
// exposed by x/sys/unix).
func openPTYMaster(t *testing.T) (*os.File, string) {
	t.Helper()
	fd, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("no /dev/ptmx available: %v", err)
	}
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		unix.Close(fd)
		t.Skipf("cannot unlock pty: %v", err)
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		unix.Close(fd)
		t.Skipf("cannot read pty number: %v", err)
	}
	return os.NewFile(uintptr(fd), "/dev/ptmx"), "/dev/pts/" + strconv.Itoa(n)
}

func TestLoopbackByteIntegrity(t *testing.T) {
	master, slavePath := openPTYMaster(t)
	defer master.Close()

	p := NewPort(slavePath)
	if err := p.Open(ModeReadWrite); err != nil {
		t.Skipf("cannot open pty slave %s: %v", slavePath, err)
	}
	defer p.Close()

	payload := []byte("the quick brown fox jumps over the lazy dog")
	if _, err := master.Write(payload); err != nil {
		t.Fatalf("master write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	got := make([]byte, 0, len(payload))
	for len(got) < len(payload) && time.Now().Before(deadline) {
		p.WaitForReadyRead(100 * time.Millisecond)
		buf := make([]byte, 64)
		n, err := p.Read(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != string(payload) {
		t.Fatalf("loopback mismatch: got %q, want %q", got, payload)
	}
}

func TestReadBufferMaxBound(t *testing.T) {
	master, slavePath := openPTYMaster(t)
	defer master.Close()

	p := NewPort(slavePath)
	p.SetReadBufferMax(8)
	if err := p.Open(ModeReadWrite); err != nil {
		t.Skipf("cannot open pty slave %s: %v", slavePath, err)
	}
	defer p.Close()

	if _, err := master.Write([]byte("0123456789012345678901234567890123456789")); err != nil {
		t.Fatalf("master write: %v", err)
	}

	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		if p.BytesAvailable() >= 8 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if avail := p.BytesAvailable(); avail > 8 {
		t.Fatalf("read buffer exceeded bound: %d > 8", avail)
	}
}
