//go:build windows

package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortNameWindows(t *testing.T) {
	assert.Equal(t, "COM12", shortName(`\\.\COM12`))
	assert.Equal(t, "COM3", shortName("COM3"))
	assert.Equal(t, "COM1", shortName("COM1:"))
}

func TestToSystemPathWindows(t *testing.T) {
	assert.Equal(t, `\\.\COM12`, toSystemPath("COM12"))
	assert.Equal(t, `\\.\COM3`, toSystemPath(`\\.\COM3`))
}
