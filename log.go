package serial

import "github.com/sirupsen/logrus"

// discardLogger is used whenever a Port has not been given a logger; it
// writes nothing. Records are still built (log() attaches the port
// field) before being dropped.
var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(logrusDiscard{})
	return l
}()

type logrusDiscard struct{}

func (logrusDiscard) Write(p []byte) (int, error) { return len(p), nil }

func (p *Port) log() *logrus.Entry {
	l := p.logger
	if l == nil {
		l = discardLogger
	}
	return l.WithField("port", p.name)
}

// SetLogger installs a logrus.Logger that receives structured records of
// backend state transitions and latched errors. Passing nil restores the
// silent default. Safe to call only while the port is closed or from the
// owning execution context (see §5, Concurrency & Resource Model).
func (p *Port) SetLogger(l *logrus.Logger) {
	p.logger = l
}
