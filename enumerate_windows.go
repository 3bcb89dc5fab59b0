//go:build windows

package serial

import (
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

var (
	modsetupapi = windows.NewLazySystemDLL("setupapi.dll")

	procSetupDiGetClassDevsW            = modsetupapi.NewProc("SetupDiGetClassDevsW")
	procSetupDiEnumDeviceInfo           = modsetupapi.NewProc("SetupDiEnumDeviceInfo")
	procSetupDiGetDeviceRegistryPropertyW = modsetupapi.NewProc("SetupDiGetDeviceRegistryPropertyW")
	procSetupDiDestroyDeviceInfoList    = modsetupapi.NewProc("SetupDiDestroyDeviceInfoList")
)

const (
	digcfPresent         = 0x00000002
	digcfAllClasses      = 0x00000004
	sprDeviceDesc        = 0x00000000
	sprHardwareID        = 0x00000001
	sprMfg               = 0x0000000B
	sprFriendlyName      = 0x0000000C
)

// guidPorts is {4D36E978-E325-11CE-BFC1-08002BE10318}, the Ports
// (COM & LPT) device setup class used by every serial enumerator that
// goes through SetupAPI instead of a raw registry scan.
var guidPorts = windows.GUID{
	Data1: 0x4D36E978, Data2: 0xE325, Data3: 0x11CE,
	Data4: [8]byte{0xBF, 0xC1, 0x08, 0x00, 0x2B, 0xE1, 0x03, 0x18},
}

type spDevinfoData struct {
	cbSize    uint32
	ClassGUID windows.GUID
	DevInst   uint32
	Reserved  uintptr
}

// platformEnumerate unions the SetupAPI device tree (for friendly
// name/manufacturer/hardware-ID-derived VID:PID) with the
// HKLM\HARDWARE\DEVICEMAP\SERIALCOMM registry key (the ground truth for
// which COM name an active port currently holds), per spec.md §4.2.
func platformEnumerate() ([]PortIdentity, error) {
	comNames, _ := readSerialCommRegistry()

	byName := map[string]PortIdentity{}
	for name, path := range comNames {
		byName[name] = PortIdentity{PortName: name, SystemPath: path, Transport: TransportNative}
	}

	if ids, err := enumerateViaSetupAPI(); err == nil {
		for _, id := range ids {
			if existing, ok := byName[id.PortName]; ok {
				id.SystemPath = existing.SystemPath
			}
			byName[id.PortName] = id
		}
	}

	out := make([]PortIdentity, 0, len(byName))
	for _, id := range byName {
		id.SystemPath = toSystemPath(id.PortName)
		out = append(out, id)
	}
	return out, nil
}

func readSerialCommRegistry() (map[string]string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `HARDWARE\DEVICEMAP\SERIALCOMM`, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	names, err := k.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, n := range names {
		v, _, err := k.GetStringValue(n)
		if err != nil {
			continue
		}
		out[v] = v
	}
	return out, nil
}

func enumerateViaSetupAPI() ([]PortIdentity, error) {
	h, _, _ := procSetupDiGetClassDevsW.Call(
		uintptr(unsafe.Pointer(&guidPorts)), 0, 0, uintptr(digcfPresent))
	if h == 0 || h == ^uintptr(0) {
		return nil, windows.ERROR_INVALID_HANDLE
	}
	defer procSetupDiDestroyDeviceInfoList.Call(h)

	var out []PortIdentity
	var data spDevinfoData
	data.cbSize = uint32(unsafe.Sizeof(data))
	for i := uintptr(0); ; i++ {
		r, _, _ := procSetupDiEnumDeviceInfo.Call(h, i, uintptr(unsafe.Pointer(&data)))
		if r == 0 {
			break
		}
		friendly := queryStringProperty(h, &data, sprFriendlyName)
		desc := queryStringProperty(h, &data, sprDeviceDesc)
		mfg := queryStringProperty(h, &data, sprMfg)
		hwid := queryStringProperty(h, &data, sprHardwareID)

		portName := extractCOMName(friendly)
		if portName == "" {
			continue
		}
		id := PortIdentity{
			PortName:     portName,
			Description:  desc,
			Manufacturer: mfg,
			Transport:    TransportNative,
		}
		if vid, pid, ok := parseHardwareIDVIDPID(hwid); ok {
			id.HasVendorID, id.VendorID = true, vid
			id.HasProductID, id.ProductID = true, pid
			id.Transport = TransportUSB
		}
		out = append(out, id)
	}
	return out, nil
}

func queryStringProperty(h uintptr, data *spDevinfoData, prop uint32) string {
	var buf [512]uint16
	var size uint32
	r, _, _ := procSetupDiGetDeviceRegistryPropertyW.Call(
		h, uintptr(unsafe.Pointer(data)), uintptr(prop), 0,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)*2), uintptr(unsafe.Pointer(&size)))
	if r == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:])
}

// extractCOMName pulls "COM7" out of a friendly name like
// "USB Serial Port (COM7)".
func extractCOMName(friendly string) string {
	open := strings.LastIndex(friendly, "(COM")
	if open < 0 {
		return ""
	}
	end := strings.Index(friendly[open:], ")")
	if end < 0 {
		return ""
	}
	return friendly[open+1 : open+end]
}

// parseHardwareIDVIDPID extracts VID_xxxx&PID_xxxx from a hardware ID
// string such as "USB\\VID_2341&PID_0043&REV_0001".
func parseHardwareIDVIDPID(hwid string) (vid, pid uint16, ok bool) {
	upper := strings.ToUpper(hwid)
	vIdx := strings.Index(upper, "VID_")
	pIdx := strings.Index(upper, "PID_")
	if vIdx < 0 || pIdx < 0 {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(upper[vIdx+4:vIdx+8], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	p, err := strconv.ParseUint(upper[pIdx+4:pIdx+8], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	return uint16(v), uint16(p), true
}
