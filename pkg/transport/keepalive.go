package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive constants.
const (
	// DefaultPingInterval is the default interval between pings.
	DefaultPingInterval = 15 * time.Second

	// DefaultPongTimeout is the default time to wait for a pong.
	DefaultPongTimeout = 5 * time.Second

	// DefaultMaxMissedPongs is the default number of consecutive missed
	// pongs before the connection is considered dead.
	DefaultMaxMissedPongs = 2
)

// KeepAliveConfig configures keep-alive behavior.
type KeepAliveConfig struct {
	// PingInterval is the interval between pings.
	PingInterval time.Duration `yaml:"ping_interval"`

	// PongTimeout is the time to wait for the matching pong.
	PongTimeout time.Duration `yaml:"pong_timeout"`

	// MaxMissedPongs is the number of consecutive missed pongs before
	// the timeout callback fires.
	MaxMissedPongs int `yaml:"max_missed_pongs"`
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay is the longest time a dead connection can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// KeepAliveStats contains keep-alive statistics.
type KeepAliveStats struct {
	LastPingTime time.Time
	LastPongTime time.Time
	LastLatency  time.Duration
	MissedPongs  int
	CurrentSeq   uint32
}

// KeepAlive pings a connection and reports it dead after too many missed
// pongs. The timeout callback fires at most once per Start.
type KeepAlive struct {
	config    KeepAliveConfig
	pinger    Pinger
	onTimeout func()

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	seq       uint32
	pending   bool
	stats     KeepAliveStats
	onLatency func(time.Duration)
}

// NewKeepAlive creates a keep-alive monitor for pinger.
func NewKeepAlive(config KeepAliveConfig, pinger Pinger, onTimeout func()) *KeepAlive {
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.PongTimeout <= 0 {
		config.PongTimeout = DefaultPongTimeout
	}
	if config.MaxMissedPongs <= 0 {
		config.MaxMissedPongs = DefaultMaxMissedPongs
	}
	// A pong must be due before the next ping replaces it.
	if config.PongTimeout >= config.PingInterval {
		config.PongTimeout = config.PingInterval / 2
	}

	return &KeepAlive{
		config:    config,
		pinger:    pinger,
		onTimeout: onTimeout,
	}
}

// OnLatency sets a callback receiving the round trip of every matched pong.
func (ka *KeepAlive) OnLatency(fn func(time.Duration)) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.onLatency = fn
}

// Start begins monitoring until ctx ends or Stop is called.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	if ka.running {
		ka.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	ka.running = true
	ka.cancel = cancel
	ka.mu.Unlock()

	go ka.loop(ctx)
}

// Stop stops monitoring.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if !ka.running {
		return
	}
	ka.running = false
	ka.cancel()
}

// IsRunning returns true if monitoring is active.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.running
}

// PongReceived records a pong. Pongs for anything but the outstanding ping
// are ignored.
func (ka *KeepAlive) PongReceived(seq uint32) {
	ka.mu.Lock()
	now := time.Now()
	ka.stats.LastPongTime = now
	if !ka.pending || seq != ka.seq {
		ka.mu.Unlock()
		return
	}
	ka.pending = false
	ka.stats.MissedPongs = 0
	latency := now.Sub(ka.stats.LastPingTime)
	ka.stats.LastLatency = latency
	fn := ka.onLatency
	ka.mu.Unlock()

	if fn != nil {
		fn(latency)
	}
}

// Stats returns current keep-alive statistics.
func (ka *KeepAlive) Stats() KeepAliveStats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	s := ka.stats
	s.CurrentSeq = ka.seq
	return s
}

func (ka *KeepAlive) loop(ctx context.Context) {
	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(ka.config.PongTimeout)
	defer deadline.Stop()

	ka.ping()
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			if ka.expire() {
				ka.Stop()
				if ka.onTimeout != nil {
					ka.onTimeout()
				}
				return
			}
		case <-ticker.C:
			ka.ping()
			deadline.Reset(ka.config.PongTimeout)
		}
	}
}

// ping sends the next ping. A failed send counts as a missed pong once the
// deadline passes.
func (ka *KeepAlive) ping() {
	ka.mu.Lock()
	ka.seq++
	seq := ka.seq
	ka.pending = true
	ka.stats.LastPingTime = time.Now()
	ka.mu.Unlock()

	_ = ka.pinger.SendPing(seq)
}

// expire counts an unanswered ping and reports whether the limit is reached.
func (ka *KeepAlive) expire() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if !ka.pending {
		return false
	}
	ka.pending = false
	ka.stats.MissedPongs++
	return ka.stats.MissedPongs >= ka.config.MaxMissedPongs
}
