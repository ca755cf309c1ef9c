package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrConnectionError   = errors.New("connection error")
	ErrAborted           = errors.New("connection attempt aborted")
	ErrNotConnected      = errors.New("not connected")
)

// DefaultConnectTimeout bounds a single connection attempt.
const DefaultConnectTimeout = 20 * time.Second

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection and no pending retry.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active, authenticated connection.
	StateConnected

	// StateReconnecting indicates a retry is scheduled after connection loss.
	StateReconnecting

	// StateFailed indicates reconnection attempts are exhausted.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Link is an established physical connection.
type Link interface {
	Close() error
}

// DialFunc establishes and authenticates a connection. It should honor ctx;
// the manager abandons the attempt when ctx ends either way.
type DialFunc func(ctx context.Context) (Link, error)

// Config configures a Manager.
type Config struct {
	// ConnectTimeout bounds each attempt.
	ConnectTimeout time.Duration

	// Backoff configures the delay between reconnection attempts.
	Backoff BackoffConfig

	// MaxAttempts is the number of reconnection attempts after a connection
	// loss before entering StateFailed.
	MaxAttempts int

	// Logger for lifecycle messages. nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default connection configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
		Backoff:        DefaultBackoffConfig(),
		MaxAttempts:    DefaultMaxAttempts,
	}
}

// Manager manages the connection lifecycle with automatic reconnection.
//
// Connect, retries and ReconnectNow are serialized so that at most one
// physical connection exists at a time. Every Disconnect starts a new
// generation; attempts from an older generation are discarded and a link
// they establish late is closed.
type Manager struct {
	// connectMu serializes attempts
	connectMu sync.Mutex

	mu sync.RWMutex

	// Current state
	state State

	// Generation, bumped by Disconnect
	gen uint64

	// Established link, nil unless connected
	link Link

	// Cancels the in-flight attempt
	cancelAttempt context.CancelFunc

	// Reconnection attempts since the last successful connect
	attempts int

	// Last attempt error
	lastErr error

	backoff *Backoff
	sched   *Scheduler
	dial    DialFunc
	config  Config
	logger  *slog.Logger

	// Callbacks
	onStateChange  func(oldState, newState State)
	onConnected    func(Link)
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
	onFailed       func(err error)
}

// NewManager creates a connection manager with default configuration.
func NewManager(dial DialFunc) *Manager {
	return NewManagerWithConfig(dial, DefaultConfig())
}

// NewManagerWithConfig creates a connection manager.
func NewManagerWithConfig(dial DialFunc, config Config) *Manager {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		state:   StateDisconnected,
		backoff: NewBackoffWithConfig(config.Backoff),
		sched:   NewScheduler(),
		dial:    dial,
		config:  config,
		logger:  logger,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if currently connected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

// Link returns the established link, or nil.
func (m *Manager) Link() Link {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.link
}

// Attempts returns the reconnection attempts since the last successful
// connect.
func (m *Manager) Attempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts
}

// LastError returns the error of the most recent failed attempt.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Connect establishes a connection. It returns nil immediately if already
// connected. On success the OnConnected callback has completed before
// Connect returns. A failed Connect leaves the manager disconnected without
// scheduling retries. An attempt cut short by Disconnect fails with
// ErrConnectionError wrapping ErrAborted.
func (m *Manager) Connect(ctx context.Context) error {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	m.sched.Cancel()
	m.attempts = 0
	m.backoff.Reset()
	m.mu.Unlock()

	return m.attempt(ctx, false)
}

// NotifyConnectionLost reports that link has gone away. Reports for a link
// other than the current one are ignored.
func (m *Manager) NotifyConnectionLost(link Link, cause error) {
	m.mu.Lock()
	if m.state != StateConnected || m.link == nil || m.link != link {
		m.mu.Unlock()
		return
	}

	m.link = nil
	m.lastErr = cause
	oldState := m.state
	plan := m.planRetryLocked()
	newState := m.state
	onDisconnected := m.onDisconnected
	m.mu.Unlock()

	m.logger.Warn("connection lost", "error", cause)
	_ = link.Close()

	m.emitState(oldState, newState)
	if onDisconnected != nil {
		onDisconnected()
	}
	m.emitRetry(plan)
}

// ReconnectNow skips the pending backoff delay and attempts a connection
// immediately, resetting the attempt counter. It only acts in
// StateReconnecting or StateFailed and reports whether an attempt was
// started. Later failures resume the normal backoff.
func (m *Manager) ReconnectNow() bool {
	m.mu.Lock()
	if m.state != StateReconnecting && m.state != StateFailed {
		m.mu.Unlock()
		return false
	}

	m.attempts = 0
	m.backoff.Reset()
	oldState := m.state
	m.state = StateReconnecting
	gen := m.gen
	m.sched.Schedule(0, func() { m.retry(gen) })
	m.mu.Unlock()

	m.logger.Info("reconnecting immediately")
	m.emitState(oldState, StateReconnecting)
	return true
}

// Disconnect tears down the connection, cancels any pending retry and
// in-flight attempt, and enters StateDisconnected. It is idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	m.sched.Cancel()
	if m.cancelAttempt != nil {
		m.cancelAttempt()
		m.cancelAttempt = nil
	}
	link := m.link
	m.link = nil
	oldState := m.state
	m.state = StateDisconnected
	m.attempts = 0
	m.backoff.Reset()
	onDisconnected := m.onDisconnected
	m.mu.Unlock()

	if link != nil {
		_ = link.Close()
	}
	if oldState == StateDisconnected {
		return
	}
	m.emitState(oldState, StateDisconnected)
	if link != nil && onDisconnected != nil {
		onDisconnected()
	}
}

// retry runs a scheduled reconnection attempt of generation gen.
func (m *Manager) retry(gen uint64) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.mu.RLock()
	stale := m.gen != gen || m.state != StateReconnecting
	m.mu.RUnlock()
	if stale {
		return
	}

	if err := m.attempt(context.Background(), true); err != nil && !errors.Is(err, ErrAborted) {
		m.logger.Debug("reconnection attempt failed", "error", err)
	}
}

type dialResult struct {
	link Link
	err  error
}

// attempt performs one connection attempt. connectMu must be held.
func (m *Manager) attempt(ctx context.Context, isRetry bool) error {
	m.mu.Lock()
	gen := m.gen
	oldState := m.state
	m.state = StateConnecting
	actx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	m.cancelAttempt = cancel
	m.mu.Unlock()
	defer cancel()

	m.emitState(oldState, StateConnecting)

	start := time.Now()
	ch := make(chan dialResult, 1)
	go func() {
		link, err := m.dial(actx)
		ch <- dialResult{link: link, err: err}
	}()

	var res dialResult
	select {
	case res = <-ch:
	case <-actx.Done():
		// Close whatever the abandoned dial produces.
		go func() {
			if late := <-ch; late.link != nil {
				_ = late.link.Close()
			}
		}()
		res.err = actx.Err()
	}

	var err error
	if res.err != nil {
		if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s", ErrConnectionTimeout, m.config.ConnectTimeout)
		} else {
			err = fmt.Errorf("%w: %w", ErrConnectionError, res.err)
		}
	}

	m.mu.Lock()
	m.cancelAttempt = nil
	if m.gen != gen {
		m.mu.Unlock()
		if res.link != nil {
			_ = res.link.Close()
		}
		return fmt.Errorf("%w: %w", ErrConnectionError, ErrAborted)
	}

	if err != nil {
		m.lastErr = err
		var plan retryPlan
		if isRetry {
			plan = m.planRetryLocked()
		} else {
			m.state = StateDisconnected
		}
		newState := m.state
		m.mu.Unlock()

		m.logger.Warn("connection attempt failed", "retry", isRetry, "elapsed", time.Since(start), "error", err)
		m.emitState(StateConnecting, newState)
		m.emitRetry(plan)
		return err
	}

	m.state = StateConnected
	m.link = res.link
	m.attempts = 0
	m.lastErr = nil
	m.backoff.Reset()
	onConnected := m.onConnected
	m.mu.Unlock()

	m.logger.Info("connected", "elapsed", time.Since(start))
	m.emitState(StateConnecting, StateConnected)
	if onConnected != nil {
		onConnected(res.link)
	}
	return nil
}

// retryPlan describes what planRetryLocked decided.
type retryPlan struct {
	scheduled bool
	failed    bool
	attempt   int
	delay     time.Duration
	err       error
}

// planRetryLocked schedules the next attempt or enters StateFailed when the
// attempts are exhausted. m.mu must be held.
func (m *Manager) planRetryLocked() retryPlan {
	if m.attempts >= m.config.MaxAttempts {
		m.state = StateFailed
		return retryPlan{failed: true, err: m.lastErr}
	}

	m.state = StateReconnecting
	delay := m.backoff.Next()
	m.attempts++
	gen := m.gen
	m.sched.Schedule(delay, func() { m.retry(gen) })
	return retryPlan{scheduled: true, attempt: m.attempts, delay: delay}
}

func (m *Manager) emitRetry(plan retryPlan) {
	switch {
	case plan.scheduled:
		m.logger.Info("reconnection scheduled", "attempt", plan.attempt, "delay", plan.delay)
		m.mu.RLock()
		fn := m.onReconnecting
		m.mu.RUnlock()
		if fn != nil {
			fn(plan.attempt, plan.delay)
		}
	case plan.failed:
		m.logger.Error("reconnection attempts exhausted", "max_attempts", m.config.MaxAttempts, "error", plan.err)
		m.mu.RLock()
		fn := m.onFailed
		m.mu.RUnlock()
		if fn != nil {
			fn(plan.err)
		}
	}
}

func (m *Manager) emitState(oldState, newState State) {
	if oldState == newState {
		return
	}
	m.mu.RLock()
	fn := m.onStateChange
	m.mu.RUnlock()
	if fn != nil {
		fn(oldState, newState)
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback for successful connection. It runs
// synchronously before Connect returns.
func (m *Manager) OnConnected(fn func(Link)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected sets a callback invoked when an established link goes away.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets a callback for scheduled reconnection attempts.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// OnFailed sets a callback invoked when reconnection attempts are exhausted.
func (m *Manager) OnFailed(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFailed = fn
}
