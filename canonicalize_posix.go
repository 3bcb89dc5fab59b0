//go:build !windows

package serial

import "strings"

// shortName reduces a system path to its OS-reported short form, e.g.
// "/dev/ttyUSB0" -> "ttyUSB0". Names already given in short form, or
// given as relative/absolute paths outside /dev, pass through unchanged
// (§6: canonicalization never invents a /dev prefix for names the caller
// deliberately qualified).
func shortName(name string) string {
	if strings.HasPrefix(name, "/dev/") {
		return strings.TrimPrefix(name, "/dev/")
	}
	return name
}

// toSystemPath expands a short device name to its /dev path. Absolute
// paths, and paths explicitly rooted with "./" or "../", are passed
// through untouched: the caller has already disambiguated.
func toSystemPath(name string) string {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
		return name
	}
	return "/dev/" + name
}
