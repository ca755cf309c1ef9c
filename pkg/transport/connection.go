package transport

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrMessageTooLarge  = errors.New("message too large")
)

// Connection defaults.
const (
	// DefaultMaxMessageSize bounds a single inbound message.
	DefaultMaxMessageSize = 64 * 1024

	// DefaultWriteTimeout bounds a single write.
	DefaultWriteTimeout = 10 * time.Second

	// closeGrace is how long Close waits to write the close frame.
	closeGrace = time.Second
)

// ConnConfig configures a WSConn.
type ConnConfig struct {
	// MaxMessageSize is the maximum inbound message size (default: 64KB).
	MaxMessageSize int64

	// WriteTimeout bounds a single write (default: 10s).
	WriteTimeout time.Duration
}

func (c ConnConfig) withDefaults() ConnConfig {
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

// WSConn is a Conn over a gorilla WebSocket. Writes are serialized; reads
// must come from a single goroutine.
type WSConn struct {
	ws     *websocket.Conn
	config ConnConfig

	writeMu sync.Mutex

	pongMu sync.RWMutex
	onPong func(seq uint32)

	closeOnce sync.Once
	closeCh   chan struct{}
}

// NewConn wraps an established WebSocket.
func NewConn(ws *websocket.Conn, config ConnConfig) *WSConn {
	config = config.withDefaults()
	c := &WSConn{
		ws:      ws,
		config:  config,
		closeCh: make(chan struct{}),
	}
	ws.SetReadLimit(config.MaxMessageSize)
	ws.SetPongHandler(c.handlePong)
	return c
}

// Send implements Conn.
func (c *WSConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	_ = c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Receive implements Conn. Text messages are skipped.
func (c *WSConn) Receive() ([]byte, error) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
				return nil, ErrConnectionClosed
			default:
			}
			if errors.Is(err, websocket.ErrReadLimit) {
				return nil, ErrMessageTooLarge
			}
			return nil, err
		}
		if msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// SendPing implements Conn.
func (c *WSConn) SendPing(seq uint32) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], seq)
	// WriteControl may be called concurrently with other writes.
	return c.ws.WriteControl(websocket.PingMessage, payload[:], time.Now().Add(c.config.WriteTimeout))
}

// OnPong implements Conn.
func (c *WSConn) OnPong(fn func(seq uint32)) {
	c.pongMu.Lock()
	c.onPong = fn
	c.pongMu.Unlock()
}

func (c *WSConn) handlePong(appData string) error {
	if len(appData) != 4 {
		return nil
	}
	seq := binary.BigEndian.Uint32([]byte(appData))

	c.pongMu.RLock()
	fn := c.onPong
	c.pongMu.RUnlock()
	if fn != nil {
		fn(seq)
	}
	return nil
}

// LocalAddr implements Conn.
func (c *WSConn) LocalAddr() net.Addr {
	return c.ws.LocalAddr()
}

// RemoteAddr implements Conn.
func (c *WSConn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

// Close implements Conn. It is safe to call more than once.
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		err = c.ws.Close()
	})
	return err
}

// Done is closed when Close has been called.
func (c *WSConn) Done() <-chan struct{} {
	return c.closeCh
}

// IsNormalClose reports whether err is a clean close by the peer.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
