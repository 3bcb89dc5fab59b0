package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLineConfig(t *testing.T) {
	cfg := DefaultLineConfig()
	assert.EqualValues(t, 9600, cfg.BaudRateIn)
	assert.EqualValues(t, 9600, cfg.BaudRateOut)
	assert.Equal(t, 8, cfg.DataBits)
	assert.Equal(t, ParityNone, cfg.Parity)
	assert.Equal(t, StopBitsOne, cfg.StopBits)
	assert.Equal(t, FlowControlNone, cfg.FlowControl)
	assert.Equal(t, Ignore, cfg.DataErrorPolicy)
	assert.True(t, cfg.RestoreSettingsOnClose)
	assert.Zero(t, cfg.ReadBufferMax)
}

func TestValidateDataBits(t *testing.T) {
	for n := 5; n <= 8; n++ {
		assert.True(t, validateDataBits(n), "n=%d", n)
	}
	assert.False(t, validateDataBits(4))
	assert.False(t, validateDataBits(9))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "Even", ParityEven.String())
	assert.Equal(t, "Two", StopBitsTwo.String())
	assert.Equal(t, "Hardware", FlowControlHardware.String())
	assert.Equal(t, "Skip", Skip.String())
	assert.Equal(t, "Unknown", Parity(99).String())
}
