package serial

// AvailablePorts returns the identities of every serial port the host OS
// currently reports, in no particular order. Enumeration errors that
// affect only one candidate device are skipped rather than aborting the
// whole scan (§4.2).
func AvailablePorts() ([]PortIdentity, error) {
	return platformEnumerate()
}

// IsBusy reports whether identity's port is already held open elsewhere,
// using the platform-specific open-probe described in §4.4: on POSIX an
// advisory lock-file peek (races with concurrent opens by design), on
// Windows a CreateFile probe that closes its handle immediately.
func IsBusy(id PortIdentity) bool {
	return platformIsBusy(id)
}

// IsValid reports whether identity's system path refers to an extant
// device node (§4.2).
func IsValid(id PortIdentity) bool {
	return platformIsValid(id)
}

// StandardBaudRates lists the rates every backend is expected to accept
// without falling back to a custom-rate code path (§4.3).
func StandardBaudRates() []uint32 {
	return []uint32{
		50, 75, 110, 134, 150, 200, 300, 600, 1200, 1800, 2400, 4800,
		9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600,
	}
}
