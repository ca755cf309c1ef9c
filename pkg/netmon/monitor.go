package netmon

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Default monitor timings.
const (
	DefaultInterval     = 5 * time.Second
	DefaultProbeTimeout = 3 * time.Second
)

// Reachability is the network verdict.
type Reachability uint8

const (
	// Unknown is the state before the first observation.
	Unknown Reachability = iota
	Reachable
	Unreachable
)

// String returns the verdict name.
func (r Reachability) String() string {
	switch r {
	case Unknown:
		return "UNKNOWN"
	case Reachable:
		return "REACHABLE"
	case Unreachable:
		return "UNREACHABLE"
	default:
		return "INVALID"
	}
}

// Probe checks reachability once. A nil error means reachable.
type Probe interface {
	Check(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

// Check calls f.
func (f ProbeFunc) Check(ctx context.Context) error { return f(ctx) }

// DialProbe considers the network reachable when a TCP connection to
// Address can be opened.
type DialProbe struct {
	Address string
	Dialer  net.Dialer
}

// Check dials and immediately closes the connection.
func (p *DialProbe) Check(ctx context.Context) error {
	conn, err := p.Dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Config configures a Monitor.
type Config struct {
	// Interval between probes. Zero uses DefaultInterval.
	Interval time.Duration `yaml:"interval"`

	// ProbeTimeout bounds a single probe. Zero uses DefaultProbeTimeout.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	Logger *slog.Logger `yaml:"-"`
}

// Monitor tracks reachability. It is safe for concurrent use.
type Monitor struct {
	probe  Probe
	config Config
	logger *slog.Logger

	// emitMu serializes transitions so handlers observe them in order.
	emitMu sync.Mutex

	mu       sync.Mutex
	state    Reachability
	handlers []func(from, to Reachability)
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewMonitor creates a monitor. probe may be nil, in which case only
// Notify drives the monitor.
func NewMonitor(probe Probe, config Config) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = DefaultProbeTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		probe:  probe,
		config: config,
		logger: logger,
	}
}

// OnChange registers a transition handler. Handlers run synchronously on
// the goroutine that observed the change.
func (m *Monitor) OnChange(fn func(from, to Reachability)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// State returns the current verdict.
func (m *Monitor) State() Reachability {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Notify feeds a platform connectivity notification.
func (m *Monitor) Notify(r Reachability) {
	if r != Reachable && r != Unreachable {
		return
	}
	m.transition(r)
}

// Start begins polling the probe until ctx is done or Stop is called.
// Without a probe, Start does nothing.
func (m *Monitor) Start(ctx context.Context) {
	if m.probe == nil {
		return
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go m.run(ctx, done)
}

// Stop ends polling and waits for the poll goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsRunning reports whether the poll goroutine is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	err := m.probe.Check(pctx)
	cancel()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.logger.Debug("reachability probe failed", "error", err)
		m.transition(Unreachable)
		return
	}
	m.transition(Reachable)
}

func (m *Monitor) transition(next Reachability) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	handlers := append([]func(from, to Reachability){}, m.handlers...)
	m.mu.Unlock()

	m.logger.Info("network reachability changed", "from", prev.String(), "to", next.String())
	for _, fn := range handlers {
		fn(prev, next)
	}
}
