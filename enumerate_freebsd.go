//go:build freebsd

package serial

import (
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// platformEnumerate glob-matches the cuau/ttyu device nodes FreeBSD's
// uart(4)/usb uftdi/umodem drivers create; VID/PID resolution walks the
// dev.<driver>.<unit> sysctl MIB node per spec.md §4.2, using
// golang.org/x/sys/unix's Sysctl rather than hand-rolled syscalls.
func platformEnumerate() ([]PortIdentity, error) {
	patterns := []string{"/dev/cuau*", "/dev/ttyu*", "/dev/cuaU*", "/dev/ttyU*"}
	var out []PortIdentity
	seen := map[string]bool{}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			base := filepath.Base(m)
			if strings.HasSuffix(base, ".init") || strings.HasSuffix(base, ".lock") {
				continue
			}
			if seen[base] {
				continue
			}
			seen[base] = true
			id := PortIdentity{PortName: base, SystemPath: m, Transport: TransportNative}
			populateFreeBSDUSBIdentity(&id, base)
			out = append(out, id)
		}
	}
	return out, nil
}

// populateFreeBSDUSBIdentity reads the dev.<driver>.<unit>.%pnpinfo
// sysctl node, part of the standard FreeBSD device identification MIB,
// for the driver instance matching base, and takes its vendor= and
// product= values.
func populateFreeBSDUSBIdentity(id *PortIdentity, base string) {
	driver, unit := splitDriverUnit(base)
	if driver == "" {
		return
	}
	pnp, err := unix.Sysctl("dev." + driver + "." + unit + ".%pnpinfo")
	if err != nil {
		return
	}
	for _, kv := range strings.Fields(pnp) {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "vendor":
			if v, ok := parseHexU16(parts[1]); ok {
				id.HasVendorID, id.VendorID, id.Transport = true, v, TransportUSB
			}
		case "product":
			if v, ok := parseHexU16(parts[1]); ok {
				id.HasProductID, id.ProductID = true, v
			}
		}
	}
}

func splitDriverUnit(devName string) (driver, unit string) {
	i := len(devName)
	for i > 0 && devName[i-1] >= '0' && devName[i-1] <= '9' {
		i--
	}
	if i == len(devName) {
		return "", ""
	}
	return devName[:i], devName[i:]
}

func parseHexU16(s string) (uint16, bool) {
	s = strings.TrimPrefix(s, "0x")
	var v uint16
	for _, c := range s {
		var d uint16
		switch {
		case c >= '0' && c <= '9':
			d = uint16(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint16(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint16(c-'A') + 10
		default:
			return 0, false
		}
		v = v*16 + d
	}
	return v, true
}
