//go:build windows

package serial

import "strings"

// shortName reduces a Windows device path to the bare COM name, e.g.
// `\\.\COM12` -> "COM12". A legacy WinCE-style trailing colon ("COM1:")
// is also stripped (§6).
func shortName(name string) string {
	n := strings.TrimPrefix(name, `\\.\`)
	return strings.TrimSuffix(n, ":")
}

// toSystemPath expands a bare COM name to the `\\.\COMn` form required
// by CreateFile for port numbers >= 10; low-numbered ports accept either
// form but the prefixed form is used uniformly for consistency.
func toSystemPath(name string) string {
	n := shortName(name)
	return `\\.\` + n
}
