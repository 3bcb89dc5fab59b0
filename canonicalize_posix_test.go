//go:build !windows

package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortNamePosix(t *testing.T) {
	assert.Equal(t, "ttyUSB0", shortName("/dev/ttyUSB0"))
	assert.Equal(t, "ttyUSB0", shortName("ttyUSB0"))
}

func TestToSystemPathPosix(t *testing.T) {
	assert.Equal(t, "/dev/ttyUSB0", toSystemPath("ttyUSB0"))
	assert.Equal(t, "/dev/ttyUSB0", toSystemPath("/dev/ttyUSB0"))
	assert.Equal(t, "./loop0", toSystemPath("./loop0"))
}
