package service

import (
	"errors"
	"log/slog"

	"github.com/waqiti/realtime-go/pkg/cache"
	"github.com/waqiti/realtime-go/pkg/connection"
	"github.com/waqiti/realtime-go/pkg/events"
	rtlog "github.com/waqiti/realtime-go/pkg/log"
	"github.com/waqiti/realtime-go/pkg/metrics"
	"github.com/waqiti/realtime-go/pkg/netmon"
	"github.com/waqiti/realtime-go/pkg/router"
	"github.com/waqiti/realtime-go/pkg/transport"
)

// Service errors. Connection and routing errors are re-exported so callers
// only need this package for errors.Is checks.
var (
	ErrConnectionTimeout  = connection.ErrConnectionTimeout
	ErrConnectionError    = connection.ErrConnectionError
	ErrNotConnected       = connection.ErrNotConnected
	ErrCacheWrite         = router.ErrCacheWrite
	ErrMalformedPayload   = router.ErrMalformedPayload
	ErrUnknownEvent       = router.ErrUnknownEvent
	ErrSubscriptionReplay = errors.New("subscription replay failed")
	ErrSendFailure        = errors.New("send failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrMissingCredentials = errors.New("user id and auth token are required")
	ErrKeepAliveTimeout   = errors.New("keep-alive timeout")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// ErrorKind classifies the failures reported through ERROR events.
type ErrorKind = events.ErrorKind

// Config configures a RealtimeService.
type Config struct {
	// URL of the update server websocket (ws:// or wss://).
	URL string

	// TLS settings for wss:// URLs. Ignored when Dialer is set.
	TLS *transport.TLSConfig

	// Dialer opens connections. nil uses a transport.Client.
	Dialer transport.Dialer

	// Connection configures timeouts and the reconnection policy.
	Connection connection.Config

	// KeepAlive configures ping/pong drop detection.
	KeepAlive transport.KeepAliveConfig

	// DisableKeepAlive turns keep-alive pings off. A lost connection is
	// then only noticed when a read fails.
	DisableKeepAlive bool

	// Cache stores snapshots and histories. nil uses an in-memory cache.
	Cache *cache.LocalCache

	// NetworkMonitor triggers an immediate reconnect when the network comes
	// back. Optional; the caller starts and stops it.
	NetworkMonitor *netmon.Monitor

	// Metrics is optional.
	Metrics *metrics.Metrics

	// ProtocolLogger captures frames and messages. Optional.
	ProtocolLogger rtlog.Logger

	// Logger for operational messages. nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default service configuration. URL must still
// be set.
func DefaultConfig() Config {
	return Config{
		Connection: connection.DefaultConfig(),
		KeepAlive:  transport.DefaultKeepAliveConfig(),
	}
}

// ConnectionInfo is a snapshot of the connection and subscription state.
type ConnectionInfo struct {
	Connected            bool
	State                connection.State
	ReconnectAttempts    int
	SubscriptionCount    int
	QueuedOperationCount int
	LastError            error
}
