package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortIdentityEqual(t *testing.T) {
	a := PortIdentity{SystemPath: "/dev/ttyUSB0", PortName: "ttyUSB0"}
	b := PortIdentity{SystemPath: "/dev/ttyUSB0", PortName: "some-alias"}
	c := PortIdentity{SystemPath: "/dev/ttyUSB1"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestTransportFor(t *testing.T) {
	assert.Equal(t, TransportUSB, transportFor(true, "FTDI"))
	assert.Equal(t, TransportNative, transportFor(false, ""))
}

func TestModemSignalsString(t *testing.T) {
	s := ModemSignals(0)
	assert.Equal(t, "[]", s.String())
	s |= ModemSignals(SignalDTR) | ModemSignals(SignalCTS)
	assert.True(t, s.Has(SignalDTR))
	assert.True(t, s.Has(SignalCTS))
	assert.False(t, s.Has(SignalDSR))
	assert.Equal(t, "[DTR|CTS]", s.String())
}
