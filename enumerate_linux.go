//go:build linux

package serial

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// platformEnumerate walks /sys/class/tty, the sysfs-primary path chosen
// in DESIGN.md over dlopen'ing libudev. A tty entry counts as a real
// port only if it has a "device" symlink (filters out the hundreds of
// virtual ttyN entries sysfs otherwise reports); the ttyS0-style legacy
// UARTs are additionally required to have a readable "uart" attribute
// whose value is not "unknown", which distinguishes present hardware
// from unpopulated legacy slots.
func platformEnumerate() ([]PortIdentity, error) {
	entries, err := os.ReadDir("/sys/class/tty")
	if err != nil {
		return globEnumerate()
	}

	var out []PortIdentity
	for _, e := range entries {
		name := e.Name()
		devDir := filepath.Join("/sys/class/tty", name, "device")
		if _, err := os.Stat(devDir); err != nil {
			continue
		}
		if strings.HasPrefix(name, "ttyS") && !hasDetectedUART(devDir) {
			continue
		}
		id := PortIdentity{
			PortName:   name,
			SystemPath: "/dev/" + name,
			Transport:  TransportNative,
		}
		populateUSBIdentity(&id, devDir)
		out = append(out, id)
	}
	return out, nil
}

func hasDetectedUART(devDir string) bool {
	data, err := os.ReadFile(filepath.Join(devDir, "uart"))
	return err == nil && strings.TrimSpace(string(data)) != "unknown"
}

// populateUSBIdentity walks up from a tty's sysfs device node looking
// for the usb_device ancestor that carries idVendor/idProduct/serial/
// manufacturer, mirroring what ID_VENDOR_ID/ID_MODEL_ID/ID_SERIAL_SHORT
// would report from udev.
func populateUSBIdentity(id *PortIdentity, devDir string) {
	real, err := filepath.EvalSymlinks(devDir)
	if err != nil {
		return
	}
	dir := real
	for i := 0; i < 6 && dir != "/" && dir != "."; i++ {
		if vid, ok := readHexAttr(dir, "idVendor"); ok {
			pid, _ := readHexAttr(dir, "idProduct")
			id.HasVendorID, id.VendorID = true, vid
			id.HasProductID, id.ProductID = true, pid
			id.Manufacturer = readStringAttr(dir, "manufacturer")
			id.SerialNumber = readStringAttr(dir, "serial")
			id.Description = readStringAttr(dir, "product")
			id.Transport = TransportUSB
			return
		}
		dir = filepath.Dir(dir)
	}
}

func readHexAttr(dir, name string) (uint16, bool) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

func readStringAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// globEnumerate is the glob-only fallback used if /sys/class/tty is
// unreadable (containers without sysfs mounted, restrictive sandboxes).
func globEnumerate() ([]PortIdentity, error) {
	patterns := []string{
		"/dev/ttyS*", "/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyAMA*", "/dev/rfcomm*",
	}
	var out []PortIdentity
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			out = append(out, PortIdentity{
				PortName:   filepath.Base(m),
				SystemPath: m,
				Transport:  TransportNative,
			})
		}
	}
	return out, nil
}
