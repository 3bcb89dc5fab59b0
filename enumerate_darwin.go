//go:build darwin

package serial

/*
#cgo LDFLAGS: -framework IOKit -framework CoreFoundation
#include <IOKit/IOKitLib.h>
#include <IOKit/serial/IOSerialKeys.h>
#include <IOKit/usb/USBSpec.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdlib.h>

// collectPorts walks every IOSerialBSDServiceValue service, resolving
// the callout device path plus (when the parent chain reaches one) the
// enclosing USB device's vendor/product/serial/manufacturer strings. It
// writes tab-separated records into out, one port per line, and returns
// the record count; the Go side parses them back apart.
static int collectPorts(char *out, int outCap) {
    CFMutableDictionaryRef matching = IOServiceMatching(kIOSerialBSDServiceValue);
    io_iterator_t iter;
    if (IOServiceGetMatchingServices(kIOMasterPortDefault, matching, &iter) != KERN_SUCCESS) {
        return 0;
    }
    int n = 0;
    int pos = 0;
    io_object_t svc;
    while ((svc = IOIteratorNext(iter)) != 0) {
        CFTypeRef calloutRef = IORegistryEntryCreateCFProperty(svc, CFSTR(kIOCalloutDeviceKey), kCFAllocatorDefault, 0);
        char callout[256] = {0};
        if (calloutRef) {
            CFStringGetCString((CFStringRef)calloutRef, callout, sizeof(callout), kCFStringEncodingUTF8);
            CFRelease(calloutRef);
        }

        char vendor[256] = {0}, product[256] = {0}, serial[256] = {0};
        int vid = -1, pidv = -1;

        io_registry_entry_t parent = svc;
        IOObjectRetain(parent);
        for (int depth = 0; depth < 8; depth++) {
            io_registry_entry_t next;
            if (IORegistryEntryGetParentEntry(parent, kIOServicePlane, &next) != KERN_SUCCESS) {
                break;
            }
            IOObjectRelease(parent);
            parent = next;

            CFNumberRef vidRef = (CFNumberRef)IORegistryEntryCreateCFProperty(parent, CFSTR("idVendor"), kCFAllocatorDefault, 0);
            if (vidRef) {
                CFNumberGetValue(vidRef, kCFNumberIntType, &vid);
                CFRelease(vidRef);
                CFNumberRef pidRef = (CFNumberRef)IORegistryEntryCreateCFProperty(parent, CFSTR("idProduct"), kCFAllocatorDefault, 0);
                if (pidRef) {
                    CFNumberGetValue(pidRef, kCFNumberIntType, &pidv);
                    CFRelease(pidRef);
                }
                CFStringRef vs = (CFStringRef)IORegistryEntryCreateCFProperty(parent, CFSTR("USB Vendor Name"), kCFAllocatorDefault, 0);
                if (vs) { CFStringGetCString(vs, vendor, sizeof(vendor), kCFStringEncodingUTF8); CFRelease(vs); }
                CFStringRef ps = (CFStringRef)IORegistryEntryCreateCFProperty(parent, CFSTR("USB Product Name"), kCFAllocatorDefault, 0);
                if (ps) { CFStringGetCString(ps, product, sizeof(product), kCFStringEncodingUTF8); CFRelease(ps); }
                CFStringRef ss = (CFStringRef)IORegistryEntryCreateCFProperty(parent, CFSTR("USB Serial Number"), kCFAllocatorDefault, 0);
                if (ss) { CFStringGetCString(ss, serial, sizeof(serial), kCFStringEncodingUTF8); CFRelease(ss); }
                break;
            }
        }
        IOObjectRelease(parent);
        IOObjectRelease(svc);

        if (callout[0] != 0) {
            int w = snprintf(out + pos, outCap - pos, "%s\t%d\t%d\t%s\t%s\t%s\n",
                              callout, vid, pidv, vendor, product, serial);
            if (w > 0 && pos + w < outCap) {
                pos += w;
                n++;
            }
        }
    }
    IOObjectRelease(iter);
    return n;
}
*/
import "C"

import (
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"
)

// platformEnumerate resolves identities through IOKit rather than a
// /dev glob, per spec.md §4.2 and grounded on the cgo IOKit-framework-
// linking pattern mikepb-go-serial uses for the same purpose.
func platformEnumerate() ([]PortIdentity, error) {
	buf := make([]byte, 64*1024)
	n := C.collectPorts((*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf)))
	if n == 0 {
		return nil, nil
	}
	lines := strings.Split(strings.TrimRight(string(buf), "\x00"), "\n")
	out := make([]PortIdentity, 0, int(n))
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 6 {
			continue
		}
		id := PortIdentity{
			PortName:     filepath.Base(fields[0]),
			SystemPath:   fields[0],
			Manufacturer: fields[3],
			Description:  fields[4],
			SerialNumber: fields[5],
			Transport:    TransportNative,
		}
		if vid, err := strconv.Atoi(fields[1]); err == nil && vid >= 0 {
			id.HasVendorID, id.VendorID = true, uint16(vid)
			id.Transport = TransportUSB
		}
		if pidv, err := strconv.Atoi(fields[2]); err == nil && pidv >= 0 {
			id.HasProductID, id.ProductID = true, uint16(pidv)
		}
		out = append(out, id)
	}
	return out, nil
}
