package serial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortErrorFormatting(t *testing.T) {
	wrapped := errors.New("permission denied")
	e := newError(Permission, "open /dev/ttyUSB0", wrapped)
	assert.Equal(t, "Permission: open /dev/ttyUSB0: permission denied", e.Error())
	assert.Equal(t, wrapped, e.Unwrap())
	assert.True(t, errors.Is(e, &PortError{Kind: Permission}))
	assert.False(t, errors.Is(e, &PortError{Kind: Timeout}))
}

func TestPortErrorNilIsSafe(t *testing.T) {
	var e *PortError
	assert.Equal(t, "NoError", e.Error())
	assert.Nil(t, e.Unwrap())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, NoError, KindOf(nil))
	assert.Equal(t, Timeout, KindOf(newError(Timeout, "", nil)))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
}

func TestLatch(t *testing.T) {
	var l latch
	require.Equal(t, NoError, l.kind())
	e := newError(Resource, "handle invalid", nil)
	l.set(e)
	assert.Equal(t, Resource, l.kind())
	assert.Same(t, e, l.get())
	l.clear()
	assert.Nil(t, l.get())
}
