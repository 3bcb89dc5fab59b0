//go:build windows

package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCOMName(t *testing.T) {
	assert.Equal(t, "COM7", extractCOMName("USB Serial Port (COM7)"))
	assert.Equal(t, "", extractCOMName("No port here"))
	assert.Equal(t, "", extractCOMName("unterminated (COM3"))
}

func TestParseHardwareIDVIDPID(t *testing.T) {
	vid, pid, ok := parseHardwareIDVIDPID(`USB\VID_2341&PID_0043&REV_0001`)
	assert.True(t, ok)
	assert.EqualValues(t, 0x2341, vid)
	assert.EqualValues(t, 0x0043, pid)

	_, _, ok = parseHardwareIDVIDPID(`ACPI\PNP0501`)
	assert.False(t, ok)
}
