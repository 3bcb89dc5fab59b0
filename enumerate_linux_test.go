//go:build linux

package serial

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadHexAttr(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "idVendor"), []byte("2341\n"), 0644))

	v, ok := readHexAttr(dir, "idVendor")
	require.True(t, ok)
	assert.EqualValues(t, 0x2341, v)

	_, ok = readHexAttr(dir, "missing")
	assert.False(t, ok)
}

func TestReadStringAttr(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manufacturer"), []byte("Arduino LLC\n"), 0644))
	assert.Equal(t, "Arduino LLC", readStringAttr(dir, "manufacturer"))
	assert.Equal(t, "", readStringAttr(dir, "missing"))
}

func TestHasDetectedUART(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uart"), []byte("unknown\n"), 0644))
	assert.False(t, hasDetectedUART(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "uart"), []byte("16550A\n"), 0644))
	assert.True(t, hasDetectedUART(dir))

	assert.False(t, hasDetectedUART(filepath.Join(dir, "does-not-exist")))
}

func TestPopulateUSBIdentityWalksAncestors(t *testing.T) {
	root := t.TempDir()
	usbDev := filepath.Join(root, "usb1", "1-1")
	ttyDev := filepath.Join(usbDev, "1-1:1.0", "tty", "ttyACM0")
	require.NoError(t, os.MkdirAll(ttyDev, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(usbDev, "idVendor"), []byte("2341"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(usbDev, "idProduct"), []byte("0043"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(usbDev, "manufacturer"), []byte("Arduino"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(usbDev, "serial"), []byte("75230"), 0644))

	id := &PortIdentity{}
	populateUSBIdentity(id, ttyDev)

	assert.True(t, id.HasVendorID)
	assert.EqualValues(t, 0x2341, id.VendorID)
	assert.True(t, id.HasProductID)
	assert.EqualValues(t, 0x0043, id.ProductID)
	assert.Equal(t, "Arduino", id.Manufacturer)
	assert.Equal(t, "75230", id.SerialNumber)
	assert.Equal(t, TransportUSB, id.Transport)
}

func TestPopulateUSBIdentityNoAncestorIsNoop(t *testing.T) {
	dir := t.TempDir()
	id := &PortIdentity{Transport: TransportNative}
	populateUSBIdentity(id, dir)
	assert.False(t, id.HasVendorID)
	assert.Equal(t, TransportNative, id.Transport)
}
