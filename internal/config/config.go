// Package config loads the rt-client configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/waqiti/realtime-go/pkg/connection"
	"github.com/waqiti/realtime-go/pkg/netmon"
	"github.com/waqiti/realtime-go/pkg/service"
	"github.com/waqiti/realtime-go/pkg/transport"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config is the rt-client configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Connection    ConnectionConfig    `yaml:"connection"`
	KeepAlive     KeepAliveConfig     `yaml:"keepalive"`
	Cache         CacheConfig         `yaml:"cache"`
	Network       NetworkConfig       `yaml:"network"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
}

// ServerConfig locates the update server.
type ServerConfig struct {
	// URL of the websocket endpoint. Empty when Discover is set.
	URL string `yaml:"url"`

	// Discover resolves the server via mDNS instead of URL.
	Discover bool `yaml:"discover"`

	// Environment selects among discovered servers.
	Environment string `yaml:"environment"`

	// Interface restricts mDNS to one network interface.
	Interface string `yaml:"interface"`

	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures wss:// connections.
type TLSConfig struct {
	CAFile             string `yaml:"ca_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// AuthConfig holds the user credentials.
type AuthConfig struct {
	UserID string `yaml:"user_id"`
	Token  string `yaml:"token"`
}

// ConnectionConfig configures timeouts and reconnection.
type ConnectionConfig struct {
	ConnectTimeout time.Duration            `yaml:"connect_timeout"`
	MaxAttempts    int                      `yaml:"max_attempts"`
	Backoff        connection.BackoffConfig `yaml:"backoff"`
}

// KeepAliveConfig configures ping/pong drop detection.
type KeepAliveConfig struct {
	transport.KeepAliveConfig `yaml:",inline"`

	Disabled bool `yaml:"disabled"`
}

// CacheConfig configures the durable cache.
type CacheConfig struct {
	// Path of the LevelDB directory. Empty keeps the cache in memory.
	Path string `yaml:"path"`

	// Sync forces an fsync after every write.
	Sync bool `yaml:"sync"`

	// SealSecret encrypts cached values at rest when set.
	SealSecret string `yaml:"seal_secret"`
}

// NetworkConfig configures the reachability monitor.
type NetworkConfig struct {
	netmon.Config `yaml:",inline"`

	// ProbeAddress is dialed to check reachability. Empty uses the server
	// host.
	ProbeAddress string `yaml:"probe_address"`

	Disabled bool `yaml:"disabled"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen address of /metrics. Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`

	// ProtocolLog is a file receiving the CBOR protocol capture.
	ProtocolLog string `yaml:"protocol_log"`
}

// SubscriptionsConfig lists topics subscribed at startup.
type SubscriptionsConfig struct {
	Transactions  []string `yaml:"transactions"`
	Wallets       []string `yaml:"wallets"`
	CheckDeposits []string `yaml:"check_deposits"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	conn := connection.DefaultConfig()
	if c.Connection.ConnectTimeout == 0 {
		c.Connection.ConnectTimeout = conn.ConnectTimeout
	}
	if c.Connection.MaxAttempts == 0 {
		c.Connection.MaxAttempts = conn.MaxAttempts
	}
	if c.Connection.Backoff.Initial == 0 {
		c.Connection.Backoff.Initial = conn.Backoff.Initial
	}
	if c.Connection.Backoff.Max == 0 {
		c.Connection.Backoff.Max = conn.Backoff.Max
	}
	if c.Connection.Backoff.Multiplier == 0 {
		c.Connection.Backoff.Multiplier = conn.Backoff.Multiplier
	}

	ka := transport.DefaultKeepAliveConfig()
	if c.KeepAlive.PingInterval == 0 {
		c.KeepAlive.PingInterval = ka.PingInterval
	}
	if c.KeepAlive.PongTimeout == 0 {
		c.KeepAlive.PongTimeout = ka.PongTimeout
	}
	if c.KeepAlive.MaxMissedPongs == 0 {
		c.KeepAlive.MaxMissedPongs = ka.MaxMissedPongs
	}

	if c.Network.Interval == 0 {
		c.Network.Interval = netmon.DefaultInterval
	}
	if c.Network.ProbeTimeout == 0 {
		c.Network.ProbeTimeout = netmon.DefaultProbeTimeout
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if c.Server.URL == "" && !c.Server.Discover {
		return fmt.Errorf("%w: server.url is required unless server.discover is set", ErrInvalid)
	}
	if c.Server.URL != "" {
		u, err := url.Parse(c.Server.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("%w: server.url %q must be a ws:// or wss:// URL", ErrInvalid, c.Server.URL)
		}
	}
	if c.Connection.ConnectTimeout < 0 {
		return fmt.Errorf("%w: connection.connect_timeout must not be negative", ErrInvalid)
	}
	if c.Connection.MaxAttempts < 0 {
		return fmt.Errorf("%w: connection.max_attempts must not be negative", ErrInvalid)
	}
	if c.Connection.Backoff.Jitter < 0 || c.Connection.Backoff.Jitter > 1 {
		return fmt.Errorf("%w: connection.backoff.jitter must be within [0,1]", ErrInvalid)
	}
	if c.Connection.Backoff.Max < c.Connection.Backoff.Initial {
		return fmt.Errorf("%w: connection.backoff.max is below backoff.initial", ErrInvalid)
	}
	if c.Cache.SealSecret != "" && len(c.Cache.SealSecret) < 16 {
		return fmt.Errorf("%w: cache.seal_secret must be at least 16 bytes", ErrInvalid)
	}
	if c.Cache.SealSecret != "" && c.Cache.Path == "" {
		return fmt.Errorf("%w: cache.seal_secret requires cache.path", ErrInvalid)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	return nil
}

// ServiceConfig converts the file settings into a service.Config. The URL
// is left empty when discovery is enabled; the caller resolves it.
func (c *Config) ServiceConfig(logger *slog.Logger) service.Config {
	sc := service.DefaultConfig()
	sc.URL = c.Server.URL
	sc.Logger = logger

	sc.Connection.ConnectTimeout = c.Connection.ConnectTimeout
	sc.Connection.MaxAttempts = c.Connection.MaxAttempts
	sc.Connection.Backoff = c.Connection.Backoff
	sc.Connection.Logger = logger

	sc.KeepAlive = c.KeepAlive.KeepAliveConfig
	sc.DisableKeepAlive = c.KeepAlive.Disabled

	if c.Server.TLS != (TLSConfig{}) {
		sc.TLS = &transport.TLSConfig{
			CAFile:             c.Server.TLS.CAFile,
			ServerName:         c.Server.TLS.ServerName,
			InsecureSkipVerify: c.Server.TLS.InsecureSkipVerify,
		}
	}
	return sc
}

// ProbeAddress returns the host:port the network monitor dials.
func (c *Config) ProbeAddress(serverURL string) string {
	if c.Network.ProbeAddress != "" {
		return c.Network.ProbeAddress
	}
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "wss" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// SlogLevel returns the configured level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
