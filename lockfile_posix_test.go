//go:build linux || darwin || freebsd

package serial

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLockFileFresh(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	lf, err := acquireLockFile("/dev/ttyFAKE0")
	require.Nil(t, err)
	require.NotEmpty(t, lf.path)
	assert.FileExists(t, lf.path)

	lf.release()
	assert.NoFileExists(t, lf.path)
}

func TestAcquireLockFileContendedByLiveProcess(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	first, err := acquireLockFile("/dev/ttyFAKE1")
	require.Nil(t, err)
	defer first.release()

	_, err = acquireLockFile("/dev/ttyFAKE1")
	require.NotNil(t, err)
	assert.Equal(t, Permission, err.Kind)
}

func TestAcquireLockFileStealsStaleLock(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	path := lockPathFor("/dev/ttyFAKE2")
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0644))

	lf, err := acquireLockFile("/dev/ttyFAKE2")
	require.Nil(t, err)
	assert.Equal(t, path, lf.path)
	lf.release()
}

func TestAcquireLockFileUnwritableDirFallsBack(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permission checks")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0500))
	defer os.Chmod(dir, 0700)
	t.Setenv("XDG_RUNTIME_DIR", dir)

	lf, err := acquireLockFile("/dev/ttyFAKE3")
	require.Nil(t, err)
	assert.Empty(t, lf.path)
}

func TestProcessAliveSelf(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(0))
}

func TestLockPathFor(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, filepath.Join("/run/user/1000", "LCK..ttyUSB0"), lockPathFor("/dev/ttyUSB0"))
}

func TestPlatformIsBusy(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	id := PortIdentity{SystemPath: "/dev/ttyFAKE4"}

	assert.False(t, platformIsBusy(id))

	lf, err := acquireLockFile(id.SystemPath)
	require.Nil(t, err)
	defer lf.release()

	assert.True(t, platformIsBusy(id))
}

func TestPlatformIsValid(t *testing.T) {
	assert.False(t, platformIsValid(PortIdentity{SystemPath: "/dev/does-not-exist-xyz"}))

	regular := filepath.Join(t.TempDir(), "not-a-device")
	require.NoError(t, os.WriteFile(regular, []byte("x"), 0644))
	assert.False(t, platformIsValid(PortIdentity{SystemPath: regular}))
}
