// Package serial provides a uniform Go binding to host serial
// (RS-232/USB-CDC/virtual) ports.
//
// A Port is opened either directly by name (as reported by the OS, e.g.
// "COM3" or "ttyUSB0") or from a PortIdentity returned by AvailablePorts.
// Line parameters are configured through Port's Set* methods before or
// after open, and Config reports them as a LineConfig;
// once open, byte-oriented Read/Write proceed without blocking semantics
// distinct from the OS's own driver buffering, and modem control lines
// (DTR/RTS out, CTS/DSR/DCD/RI in) are queried and driven directly.
//
// The package is split by platform at compile time: exactly one of the
// POSIX backend (linux, darwin, freebsd) or the Windows backend is built
// into any given binary. Port, LineConfig, PortIdentity and the error
// taxonomy are platform-independent; everything that touches the OS
// handle lives behind the unexported backend interface.
package serial
