package log

// Logger is the sink for capture events produced by a ConnLog. Log is
// called on the send and receive paths of a session, so it must return
// quickly and tolerate concurrent callers.
type Logger interface {
	Log(event Event)
}

// NoopLogger is the sink used when protocol capture is off.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
