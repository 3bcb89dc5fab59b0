package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend stands in for a platform backend in tests that exercise
// the façade's state machine without talking to real hardware.
type fakeBackend struct {
	open     bool
	cfg      LineConfig
	written  []byte
	readable []byte
	sig      ModemSignals
	dtr, rts bool
}

func (f *fakeBackend) Open(mode OpenMode, cfg LineConfig) *PortError {
	f.open = true
	f.cfg = cfg
	return nil
}
func (f *fakeBackend) Close()             { f.open = false }
func (f *fakeBackend) IsOpen() bool       { return f.open }
func (f *fakeBackend) Read(buf []byte) (int, *PortError) {
	n := copy(buf, f.readable)
	f.readable = f.readable[n:]
	return n, nil
}
func (f *fakeBackend) Write(buf []byte) (int, *PortError) {
	f.written = append(f.written, buf...)
	return len(buf), nil
}
func (f *fakeBackend) WaitForReadyRead(time.Duration) (bool, *PortError) {
	return len(f.readable) > 0, nil
}
func (f *fakeBackend) WaitForBytesWritten(time.Duration) (bool, *PortError) { return true, nil }
func (f *fakeBackend) Flush() *PortError                                   { return nil }
func (f *fakeBackend) Clear(ClearQueue) *PortError                         { return nil }
func (f *fakeBackend) SetBreakEnabled(bool) *PortError                     { return nil }
func (f *fakeBackend) SendBreak(time.Duration) *PortError                  { return nil }
func (f *fakeBackend) PinoutSignals() (ModemSignals, *PortError)           { return f.sig, nil }
func (f *fakeBackend) SetDTR(on bool) *PortError                           { f.dtr = on; return nil }
func (f *fakeBackend) SetRTS(on bool) *PortError                           { f.rts = on; return nil }
func (f *fakeBackend) SetBaudRate(in, out uint32) *PortError               { f.cfg.BaudRateIn, f.cfg.BaudRateOut = in, out; return nil }
func (f *fakeBackend) SetDataBits(n int) *PortError                        { f.cfg.DataBits = n; return nil }
func (f *fakeBackend) SetParity(p Parity) *PortError                       { f.cfg.Parity = p; return nil }
func (f *fakeBackend) SetStopBits(s StopBits) *PortError                   { f.cfg.StopBits = s; return nil }
func (f *fakeBackend) SetFlowControl(fl FlowControl) *PortError            { f.cfg.FlowControl = fl; return nil }
func (f *fakeBackend) SetDataErrorPolicy(d DataErrorPolicy) *PortError     { f.cfg.DataErrorPolicy = d; return nil }

func newTestPort() (*Port, *fakeBackend) {
	cfg := DefaultLineConfig()
	cfg.BaudRateIn, cfg.BaudRateOut = 0, 0
	p := &Port{name: "test0", systemPath: "/dev/test0", cfg: cfg}
	fb := &fakeBackend{}
	p.be = fb
	return p, fb
}

func TestDefaultConstruction(t *testing.T) {
	p, _ := newTestPort()
	assert.False(t, p.IsOpen())
	assert.Nil(t, p.Error())
	assert.Equal(t, NoError, KindOf(p.Error()))

	cfg := p.Config()
	assert.EqualValues(t, 0, cfg.BaudRateIn)
	assert.EqualValues(t, 0, cfg.BaudRateOut)
	assert.Equal(t, 8, cfg.DataBits)
	assert.Equal(t, ParityNone, cfg.Parity)
	assert.Equal(t, StopBitsOne, cfg.StopBits)
	assert.Equal(t, FlowControlNone, cfg.FlowControl)

	n, err := p.Read(make([]byte, 4))
	assert.Equal(t, -1, n)
	assert.Equal(t, NotOpen, KindOf(err))

	n, err = p.Write([]byte("x"))
	assert.Equal(t, -1, n)
	assert.Equal(t, NotOpen, KindOf(err))
}

func TestOpenModeRejection(t *testing.T) {
	p, _ := newTestPort()
	err := p.Open(OpenMode(0))
	require.NotNil(t, err)
	assert.Equal(t, UnsupportedOperation, err.Kind)
	assert.False(t, p.IsOpen())
}

func TestOpenClearsLatchedError(t *testing.T) {
	p, _ := newTestPort()
	p.lastErr.set(newError(Timeout, "stale", nil))
	err := p.Open(ModeReadWrite)
	require.Nil(t, err)
	assert.Nil(t, p.Error())
	p.Close()
}

func TestWriteQueuesThenFlushes(t *testing.T) {
	p, fb := newTestPort()
	require.Nil(t, p.Open(ModeReadWrite))
	defer p.Close()

	n, err := p.Write([]byte("hello"))
	require.Nil(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, p.BytesToWrite())

	require.Nil(t, p.Flush())
	assert.Equal(t, "hello", string(fb.written))
	assert.Equal(t, 0, p.BytesToWrite())
}

func TestConfigMutatorsDeferWhenClosed(t *testing.T) {
	p, _ := newTestPort()
	require.Nil(t, p.SetBaudRate(115200))
	assert.EqualValues(t, 115200, p.Config().BaudRateIn)
	assert.False(t, p.IsOpen())
}

func TestConfigMutatorsCommitWhenOpen(t *testing.T) {
	p, fb := newTestPort()
	require.Nil(t, p.Open(ModeReadWrite))
	defer p.Close()

	require.Nil(t, p.SetDataBits(7))
	assert.Equal(t, 7, fb.cfg.DataBits)

	err := p.SetDataBits(3)
	assert.Equal(t, UnsupportedOperation, err.Kind)
}

func TestSetDTRRTS(t *testing.T) {
	p, fb := newTestPort()
	require.Nil(t, p.Open(ModeReadWrite))
	defer p.Close()

	require.Nil(t, p.SetDTR(true))
	require.Nil(t, p.SetRTS(true))
	assert.True(t, fb.dtr)
	assert.True(t, fb.rts)
	assert.True(t, p.DTR())
	assert.True(t, p.RTS())
}

func TestSignalsRequiresOpen(t *testing.T) {
	p, _ := newTestPort()
	_, err := p.Signals()
	assert.Equal(t, NotOpen, err.Kind)
}

func TestCloseIsIdempotent(t *testing.T) {
	p, fb := newTestPort()
	require.Nil(t, p.Open(ModeReadWrite))
	p.Close()
	assert.False(t, fb.open)
	p.Close()
}
