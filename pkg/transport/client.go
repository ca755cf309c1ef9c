package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// TLSConfig contains TLS settings for wss:// URLs. nil uses the system
	// roots.
	TLSConfig *TLSConfig

	// HandshakeTimeout bounds the opening handshake (default: 10s).
	HandshakeTimeout time.Duration

	// Header is sent with the opening handshake.
	Header http.Header

	// Conn configures established connections.
	Conn ConnConfig
}

// Client dials WebSocket connections.
type Client struct {
	config ClientConfig
	dialer *websocket.Dialer
}

// NewClient creates a client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = 10 * time.Second
	}

	tlsConf, err := NewClientTLSConfig(config.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}

	return &Client{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
			TLSClientConfig:  tlsConf,
		},
	}, nil
}

// Dial implements Dialer.
func (c *Client) Dial(ctx context.Context, url string) (Conn, error) {
	ws, resp, err := c.dialer.DialContext(ctx, url, c.config.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s failed with HTTP %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s failed: %w", url, err)
	}
	return NewConn(ws, c.config.Conn), nil
}
