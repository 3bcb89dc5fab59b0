package serial

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// pumpPollInterval bounds how long the background reader goroutine
// blocks in a single WaitForReadyRead call before re-checking whether
// Close has been requested. It is not a polling period in the busy-wait
// sense — WaitForReadyRead itself blocks on OS readiness primitives
// (select/poll or an overlapped wait); this is only the ceiling on how
// long Close has to wait for the goroutine to notice.
const pumpPollInterval = 200 * time.Millisecond

// Port is the stateful façade described in §4.6. It owns the bounded
// read buffer, the pending-write queue, the latched error, and the
// observer callbacks; all OS interaction is delegated to the backend
// selected at compile time (see backend.go).
//
// Per §5, all public operations on a single Port must be serialized to
// one execution context. This implementation additionally runs a
// background goroutine (the "host event loop" of §9) that drives
// readiness into the read buffer and drains the pending-write queue;
// every access to shared façade state goes through mu.
type Port struct {
	name       string
	systemPath string

	logger *logrus.Logger

	mu     sync.Mutex
	be     backend
	mode   OpenMode
	cfg    LineConfig
	closed atomic.Bool

	lastErr latch

	readBuf      []byte
	pendingWrite []byte

	bytesRead    uint64
	bytesWritten uint64

	stopPump chan struct{}
	pumpDone chan struct{}

	onReadyRead     func()
	onBytesWritten  func(int)
	onErrorOccurred func(*PortError)
	onBreakChanged  func(bool)
	onBaudChanged   func(in, out uint32)
}

// NewPort constructs a closed Port for the given OS-reported name (short
// form or already-canonical system path; Open resolves it). The returned
// Port reports NoError, baud 0 (8-N-1/no-flow otherwise, per §8's
// "Default construction" scenario — unlike DefaultLineConfig, which
// carries 9600 and is meant for callers that want that starting point
// explicitly), no signals asserted, and is neither open, readable, nor
// writable. Open leaves the line's current speed untouched until
// SetBaudRate is called.
func NewPort(name string) *Port {
	cfg := DefaultLineConfig()
	cfg.BaudRateIn, cfg.BaudRateOut = 0, 0
	p := &Port{
		name:       shortName(name),
		systemPath: toSystemPath(name),
		cfg:        cfg,
	}
	p.be = newBackend(p.systemPath, &backendEvents{
		readyRead:           func() { p.fireReadyRead() },
		bytesWritten:        func(n int) { p.fireBytesWritten(n) },
		errorOccurred:       func(e *PortError) { p.fireError(e) },
		breakEnabledChanged: func(b bool) { p.fireBreakChanged(b) },
		baudRateChanged:     func(in, out uint32) { p.fireBaudChanged(in, out) },
	})
	return p
}

// NewPortFromIdentity constructs a closed Port from a previously
// discovered PortIdentity.
func NewPortFromIdentity(id PortIdentity) *Port {
	return NewPort(id.SystemPath)
}

// Name returns the short, OS-canonical port name.
func (p *Port) Name() string { return p.name }

// SystemPath returns the absolute path/handle name used to Open.
func (p *Port) SystemPath() string { return p.systemPath }

// IsOpen reports whether the port currently holds an open OS handle.
func (p *Port) IsOpen() bool { return p.be.IsOpen() }

// Open establishes the OS handle. mode must be one of ModeRead,
// ModeWrite or ModeReadWrite; anything else yields UnsupportedOperation
// and leaves the port closed (§6, "Open mode rejection"). A successful
// Open clears any previously latched error.
func (p *Port) Open(mode OpenMode) *PortError {
	p.mu.Lock()
	if !mode.valid() {
		p.mu.Unlock()
		err := newError(UnsupportedOperation, "unsupported open mode", nil)
		p.setErrorLocked(err)
		return err
	}
	cfg := p.cfg
	p.mu.Unlock()

	if err := p.be.Open(mode, cfg); err != nil {
		p.mu.Lock()
		p.setErrorLocked(err)
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.mode = mode
	p.lastErr.clear()
	p.readBuf = p.readBuf[:0]
	p.pendingWrite = p.pendingWrite[:0]
	p.bytesRead, p.bytesWritten = 0, 0
	p.closed.Store(false)
	p.stopPump = make(chan struct{})
	p.pumpDone = make(chan struct{})
	p.mu.Unlock()

	p.log().Info("port opened")
	go p.pump()
	return nil
}

// Close releases the OS handle (and, on POSIX, the lock file). It is
// idempotent: the second and subsequent calls are no-ops.
func (p *Port) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.mu.Lock()
	stop := p.stopPump
	p.mu.Unlock()
	if stop != nil {
		close(stop)
		<-p.pumpDone
	}
	p.be.Close()
	p.log().Info("port closed")
}

// Error returns the most recently latched error, or nil if none.
func (p *Port) Error() *PortError {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr.get()
}

// ClearError clears the latch without affecting backend state.
func (p *Port) ClearError() {
	p.mu.Lock()
	p.lastErr.clear()
	p.mu.Unlock()
}

func (p *Port) setErrorLocked(e *PortError) {
	p.lastErr.set(e)
	if e != nil {
		switch e.Kind {
		case Timeout, Parity, Framing, Break:
			p.log().WithField("kind", e.Kind.String()).Debug(e.Error())
		case NoError:
		default:
			p.log().WithField("kind", e.Kind.String()).Warn(e.Error())
		}
	}
}

func (p *Port) fireError(e *PortError) {
	p.mu.Lock()
	p.setErrorLocked(e)
	cb := p.onErrorOccurred
	p.mu.Unlock()
	if cb != nil {
		cb(e)
	}
}

func (p *Port) fireReadyRead() {
	p.mu.Lock()
	cb := p.onReadyRead
	p.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (p *Port) fireBytesWritten(n int) {
	p.mu.Lock()
	cb := p.onBytesWritten
	p.mu.Unlock()
	if cb != nil {
		cb(n)
	}
}

func (p *Port) fireBreakChanged(b bool) {
	p.mu.Lock()
	cb := p.onBreakChanged
	p.mu.Unlock()
	if cb != nil {
		cb(b)
	}
}

func (p *Port) fireBaudChanged(in, out uint32) {
	p.mu.Lock()
	cb := p.onBaudChanged
	p.mu.Unlock()
	if cb != nil {
		cb(in, out)
	}
}

// OnReadyRead registers the callback invoked when new bytes enter the
// read buffer. Replaces any previously registered callback.
func (p *Port) OnReadyRead(fn func()) { p.mu.Lock(); p.onReadyRead = fn; p.mu.Unlock() }

// OnBytesWritten registers the callback invoked as pending writes drain
// to the OS.
func (p *Port) OnBytesWritten(fn func(int)) { p.mu.Lock(); p.onBytesWritten = fn; p.mu.Unlock() }

// OnErrorOccurred registers the callback invoked whenever an error is
// latched.
func (p *Port) OnErrorOccurred(fn func(*PortError)) {
	p.mu.Lock()
	p.onErrorOccurred = fn
	p.mu.Unlock()
}

// OnBreakEnabledChanged registers the callback invoked when the break
// condition is asserted or cleared.
func (p *Port) OnBreakEnabledChanged(fn func(bool)) {
	p.mu.Lock()
	p.onBreakChanged = fn
	p.mu.Unlock()
}

// OnBaudRateChanged registers the callback invoked when either baud rate
// direction commits successfully.
func (p *Port) OnBaudRateChanged(fn func(in, out uint32)) {
	p.mu.Lock()
	p.onBaudChanged = fn
	p.mu.Unlock()
}

// Config returns a copy of the currently effective (or, if closed,
// pending) LineConfig.
func (p *Port) Config() LineConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Read copies up to len(buf) bytes out of the bounded read buffer.
// Returns 0, nil when the port is open but no data is currently
// available (non-blocking semantics, §6). Returns -1 and a NotOpen error
// when the port has never been opened (§8, "Default construction").
func (p *Port) Read(buf []byte) (int, error) {
	if !p.IsOpen() {
		err := newError(NotOpen, "port not open", nil)
		return -1, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.readBuf) == 0 {
		return 0, nil
	}
	n := copy(buf, p.readBuf)
	p.readBuf = p.readBuf[:copy(p.readBuf, p.readBuf[n:])]
	return n, nil
}

// Write enqueues buf onto the pending-write ring and returns the copied
// length; the bytes are not guaranteed to have reached the OS until
// Flush returns, nor the wire until WaitForBytesWritten succeeds (§4.6).
// Returns -1 and a NotOpen error when the port has never been opened.
func (p *Port) Write(buf []byte) (int, error) {
	if !p.IsOpen() {
		err := newError(NotOpen, "port not open", nil)
		return -1, err
	}
	p.mu.Lock()
	p.pendingWrite = append(p.pendingWrite, buf...)
	p.mu.Unlock()
	return len(buf), nil
}

// BytesAvailable returns the number of bytes currently buffered for Read.
func (p *Port) BytesAvailable() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.readBuf)
}

// BytesToWrite returns the number of bytes still queued, not yet handed
// to the OS.
func (p *Port) BytesToWrite() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pendingWrite)
}

// Statistics returns the cumulative bytes read and written since the
// port was last opened.
func (p *Port) Statistics() (read, written uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytesRead, p.bytesWritten
}

// WaitForReadyRead blocks up to timeout for at least one byte to become
// available, returning false (and latching Timeout) on deadline.
func (p *Port) WaitForReadyRead(timeout time.Duration) bool {
	if p.BytesAvailable() > 0 {
		return true
	}
	ok, err := p.be.WaitForReadyRead(timeout)
	if err != nil {
		p.fireError(err)
	}
	return ok
}

// WaitForBytesWritten blocks up to timeout for queued bytes to reach the
// wire where the OS distinguishes, returning false on deadline.
func (p *Port) WaitForBytesWritten(timeout time.Duration) bool {
	ok, err := p.be.WaitForBytesWritten(timeout)
	if err != nil {
		p.fireError(err)
	}
	return ok
}

// Flush drains the pending-write queue to the kernel.
func (p *Port) Flush() *PortError {
	for {
		p.mu.Lock()
		if len(p.pendingWrite) == 0 {
			p.mu.Unlock()
			break
		}
		chunk := p.pendingWrite
		p.mu.Unlock()
		n, err := p.be.Write(chunk)
		if err != nil {
			p.fireError(err)
			return err
		}
		p.mu.Lock()
		p.pendingWrite = p.pendingWrite[:copy(p.pendingWrite, p.pendingWrite[n:])]
		p.bytesWritten += uint64(n)
		p.mu.Unlock()
		p.fireBytesWritten(n)
	}
	if err := p.be.Flush(); err != nil {
		p.fireError(err)
		return err
	}
	return nil
}

// ClearQueues discards pending bytes in the selected direction(s). When
// dirs includes ClearInput, the façade's own read buffer is discarded
// too.
func (p *Port) ClearQueues(dirs ClearQueue) *PortError {
	if dirs&ClearInput != 0 {
		p.mu.Lock()
		p.readBuf = p.readBuf[:0]
		p.mu.Unlock()
	}
	if dirs&ClearOutput != 0 {
		p.mu.Lock()
		p.pendingWrite = p.pendingWrite[:0]
		p.mu.Unlock()
	}
	if err := p.be.Clear(dirs); err != nil {
		p.fireError(err)
		return err
	}
	return nil
}

// SetReadBufferMax bounds the façade's read buffer; 0 means unbounded.
func (p *Port) SetReadBufferMax(n uint64) {
	p.mu.Lock()
	p.cfg.ReadBufferMax = n
	p.mu.Unlock()
}

// SetRestoreSettingsOnClose controls whether the backend reapplies the
// line parameters captured at open when Close runs.
func (p *Port) SetRestoreSettingsOnClose(restore bool) {
	p.mu.Lock()
	p.cfg.RestoreSettingsOnClose = restore
	p.mu.Unlock()
}

func (p *Port) commit(mutate func(*LineConfig), apply func() *PortError) *PortError {
	p.mu.Lock()
	prev := p.cfg
	mutate(&p.cfg)
	p.mu.Unlock()

	if !p.IsOpen() {
		return nil
	}
	if err := apply(); err != nil {
		p.mu.Lock()
		p.cfg = prev
		p.mu.Unlock()
		p.fireError(err)
		return err
	}
	return nil
}

// SetBaudRate sets both input and output rates to the same value.
func (p *Port) SetBaudRate(rate uint32) *PortError {
	return p.SetBaudRateDirectional(rate, rate)
}

// SetBaudRateDirectional sets distinct input/output rates where the
// platform allows the split; requesting asymmetric rates where it does
// not yields UnsupportedOperation (§4.3).
func (p *Port) SetBaudRateDirectional(in, out uint32) *PortError {
	err := p.commit(func(c *LineConfig) { c.BaudRateIn, c.BaudRateOut = in, out },
		func() *PortError { return p.be.SetBaudRate(in, out) })
	if err == nil && p.IsOpen() {
		p.fireBaudChanged(in, out)
	}
	return err
}

// SetDataBits sets the data bits (5..8).
func (p *Port) SetDataBits(n int) *PortError {
	if !validateDataBits(n) {
		e := newError(UnsupportedOperation, "data bits out of range", nil)
		p.fireError(e)
		return e
	}
	return p.commit(func(c *LineConfig) { c.DataBits = n },
		func() *PortError { return p.be.SetDataBits(n) })
}

// SetParity sets the parity scheme.
func (p *Port) SetParity(v Parity) *PortError {
	return p.commit(func(c *LineConfig) { c.Parity = v },
		func() *PortError { return p.be.SetParity(v) })
}

// SetStopBits sets the stop bit count.
func (p *Port) SetStopBits(v StopBits) *PortError {
	return p.commit(func(c *LineConfig) { c.StopBits = v },
		func() *PortError { return p.be.SetStopBits(v) })
}

// SetFlowControl sets the handshake discipline.
func (p *Port) SetFlowControl(v FlowControl) *PortError {
	return p.commit(func(c *LineConfig) { c.FlowControl = v },
		func() *PortError { return p.be.SetFlowControl(v) })
}

// SetDataErrorPolicy sets how flagged bytes are delivered.
func (p *Port) SetDataErrorPolicy(v DataErrorPolicy) *PortError {
	return p.commit(func(c *LineConfig) { c.DataErrorPolicy = v },
		func() *PortError { return p.be.SetDataErrorPolicy(v) })
}

// SetBreakEnabled asserts or clears the hardware break condition.
func (p *Port) SetBreakEnabled(on bool) *PortError {
	err := p.commit(func(c *LineConfig) { c.BreakEnabled = on },
		func() *PortError { return p.be.SetBreakEnabled(on) })
	if err == nil && p.IsOpen() {
		p.fireBreakChanged(on)
	}
	return err
}

// SendBreak asserts the hardware break line for duration, then clears
// it, blocking the calling goroutine for duration (§5, suspension
// points).
func (p *Port) SendBreak(duration time.Duration) *PortError {
	if !p.IsOpen() {
		e := newError(NotOpen, "port not open", nil)
		p.fireError(e)
		return e
	}
	if err := p.be.SendBreak(duration); err != nil {
		p.fireError(err)
		return err
	}
	return nil
}

// SetDTR drives the DTR output line.
func (p *Port) SetDTR(on bool) *PortError {
	return p.commit(func(c *LineConfig) { c.DTR = on },
		func() *PortError { return p.be.SetDTR(on) })
}

// SetRTS drives the RTS output line.
func (p *Port) SetRTS(on bool) *PortError {
	return p.commit(func(c *LineConfig) { c.RTS = on },
		func() *PortError { return p.be.SetRTS(on) })
}

// DTR reports the caller's last-requested DTR state.
func (p *Port) DTR() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.cfg.DTR }

// RTS reports the caller's last-requested RTS state.
func (p *Port) RTS() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.cfg.RTS }

// Signals queries the full set of modem control/status lines.
func (p *Port) Signals() (ModemSignals, *PortError) {
	if !p.IsOpen() {
		e := newError(NotOpen, "port not open", nil)
		p.fireError(e)
		return 0, e
	}
	sig, err := p.be.PinoutSignals()
	if err != nil {
		p.fireError(err)
		return 0, err
	}
	return sig, nil
}

// pump is the background goroutine that plays the role of the "host
// event loop" referenced in §9: it drives backend readiness into the
// bounded read buffer and drains the pending-write queue, emitting
// observer callbacks on a step deferred from backend completion (it
// never runs reentrantly with itself; the façade's own public methods
// synchronize against it only through mu, never by blocking on it).
func (p *Port) pump() {
	defer close(p.pumpDone)
	chunk := make([]byte, 4096)
	for {
		select {
		case <-p.stopPump:
			return
		default:
		}

		p.mu.Lock()
		mode := p.mode
		roomForRead := p.readRoomLocked()
		readCap := p.readCapLocked(len(chunk))
		pendingWrite := len(p.pendingWrite) > 0
		p.mu.Unlock()

		didWork := false

		if mode&ModeRead != 0 && roomForRead {
			ok, err := p.be.WaitForReadyRead(pumpPollInterval)
			if err != nil && err.Kind != Timeout {
				p.fireError(err)
			}
			if ok {
				n, rerr := p.be.Read(chunk[:readCap])
				if rerr != nil {
					p.fireError(rerr)
				} else if n > 0 {
					p.mu.Lock()
					p.readBuf = append(p.readBuf, chunk[:n]...)
					p.bytesRead += uint64(n)
					p.mu.Unlock()
					p.fireReadyRead()
					didWork = true
				}
			}
		}

		if mode&ModeWrite != 0 && pendingWrite {
			p.mu.Lock()
			buf := p.pendingWrite
			p.mu.Unlock()
			n, werr := p.be.Write(buf)
			if werr != nil {
				p.fireError(werr)
			} else if n > 0 {
				p.mu.Lock()
				p.pendingWrite = p.pendingWrite[:copy(p.pendingWrite, p.pendingWrite[n:])]
				p.bytesWritten += uint64(n)
				p.mu.Unlock()
				p.fireBytesWritten(n)
				didWork = true
			}
		}

		if !didWork && !(mode&ModeRead != 0 && roomForRead) {
			select {
			case <-p.stopPump:
				return
			case <-time.After(pumpPollInterval):
			}
		}
	}
}

// readRoomLocked reports whether the read buffer has room under the
// configured bound. Must be called with mu held.
func (p *Port) readRoomLocked() bool {
	if p.cfg.ReadBufferMax == 0 {
		return true
	}
	return uint64(len(p.readBuf)) < p.cfg.ReadBufferMax
}

// readCapLocked bounds a single backend.Read call to however much room
// remains under ReadBufferMax, so one oversized read can't blow past the
// bound before the next room check. Must be called with mu held.
func (p *Port) readCapLocked(max int) int {
	if p.cfg.ReadBufferMax == 0 {
		return max
	}
	remaining := p.cfg.ReadBufferMax - uint64(len(p.readBuf))
	if remaining < uint64(max) {
		return int(remaining)
	}
	return max
}
