//go:build freebsd

package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitDriverUnit(t *testing.T) {
	driver, unit := splitDriverUnit("cuaU0")
	assert.Equal(t, "cuaU", driver)
	assert.Equal(t, "0", unit)

	driver, unit = splitDriverUnit("ttyu12")
	assert.Equal(t, "ttyu", driver)
	assert.Equal(t, "12", unit)

	driver, unit = splitDriverUnit("nodigits")
	assert.Equal(t, "", driver)
	assert.Equal(t, "", unit)
}

func TestParseHexU16(t *testing.T) {
	v, ok := parseHexU16("0x2341")
	assert.True(t, ok)
	assert.EqualValues(t, 0x2341, v)

	v, ok = parseHexU16("0043")
	assert.True(t, ok)
	assert.EqualValues(t, 0x43, v)

	_, ok = parseHexU16("not-hex")
	assert.False(t, ok)
}
