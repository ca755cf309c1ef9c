package transport

import (
	"context"
	"net"
)

// Conn is an established message connection. Implemented by WSConn.
type Conn interface {
	// Send sends one binary message.
	Send(data []byte) error

	// Receive blocks until the next message arrives or the connection
	// fails. Only one goroutine may call Receive.
	Receive() ([]byte, error)

	// SendPing sends a ping control frame carrying seq.
	SendPing(seq uint32) error

	// OnPong sets the callback for pong frames. Pongs are delivered from
	// the goroutine calling Receive.
	OnPong(fn func(seq uint32))

	// LocalAddr returns the local network address.
	LocalAddr() net.Addr

	// RemoteAddr returns the remote network address.
	RemoteAddr() net.Addr

	// Close sends a close frame and closes the connection.
	Close() error
}

// Dialer opens client connections. Implemented by Client.
type Dialer interface {
	// Dial connects to a ws:// or wss:// URL.
	Dial(ctx context.Context, url string) (Conn, error)
}

// Pinger sends keep-alive pings. Implemented by every Conn.
type Pinger interface {
	SendPing(seq uint32) error
}

// Compile-time interface satisfaction checks.
var (
	_ Conn   = (*WSConn)(nil)
	_ Dialer = (*Client)(nil)
	_ Pinger = (*WSConn)(nil)
)
