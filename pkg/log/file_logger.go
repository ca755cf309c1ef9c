package log

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends capture events to an .rtlog file.
type FileLogger struct {
	mu      sync.Mutex
	f       *os.File
	enc     *cbor.Encoder
	written int
	closed  bool
}

// NewFileLogger opens the capture at path, creating missing directories.
// Captures hold user ids and balances, so the file is private to the owner.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &FileLogger{f: f, enc: NewEncoder(f)}, nil
}

// Log appends event. Events that fail to encode are skipped and not
// counted.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.enc.Encode(event); err == nil {
		l.written++
	}
}

// Written is the number of events appended since the file was opened.
func (l *FileLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Close flushes the capture to disk. Events logged afterwards are dropped.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	_ = l.f.Sync()
	return l.f.Close()
}

var _ Logger = (*FileLogger)(nil)
