package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardBaudRates(t *testing.T) {
	rates := StandardBaudRates()
	assert.Contains(t, rates, uint32(9600))
	assert.Contains(t, rates, uint32(115200))
	assert.True(t, len(rates) > 10)
}
