package transport

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Acceptor upgrades HTTP requests to WebSocket connections.
type Acceptor struct {
	upgrader websocket.Upgrader
	config   ConnConfig
}

// NewAcceptor creates an acceptor. Origins are not checked; the update
// protocol authenticates in-band.
func NewAcceptor(config ConnConfig) *Acceptor {
	return &Acceptor{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		config: config,
	}
}

// Accept upgrades the request. On failure the upgrader has already written
// an HTTP error response.
func (a *Acceptor) Accept(w http.ResponseWriter, r *http.Request) (*WSConn, error) {
	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade failed: %w", err)
	}
	return NewConn(ws, a.config), nil
}
