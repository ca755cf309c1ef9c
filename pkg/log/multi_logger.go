package log

// MultiLogger tees capture events, usually to a FileLogger and an
// SlogAdapter at the same time.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger builds a tee over loggers. Nil entries are dropped so
// optional sinks can be passed unconditionally.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.sinks = append(m.sinks, l)
		}
	}
	return m
}

// Log forwards event to each sink in the order given to NewMultiLogger.
func (m *MultiLogger) Log(event Event) {
	for _, sink := range m.sinks {
		sink.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
