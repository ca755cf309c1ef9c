package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer accepts one connection per request and echoes binary messages.
func echoServer(t *testing.T, config ConnConfig) *httptest.Server {
	t.Helper()
	acceptor := NewAcceptor(config)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := acceptor.Accept(w, r)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			data, err := conn.Receive()
			if err != nil {
				return
			}
			if err := conn.Send(data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, srv *httptest.Server, config ConnConfig) Conn {
	t.Helper()
	client, err := NewClient(ClientConfig{Conn: config})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := client.Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSendReceive(t *testing.T) {
	srv := echoServer(t, ConnConfig{})
	conn := dial(t, srv, ConnConfig{})

	for _, msg := range [][]byte{{0xa0}, []byte("hello"), make([]byte, 4096)} {
		require.NoError(t, conn.Send(msg))
		got, err := conn.Receive()
		require.NoError(t, err)
		assert.Equal(t, msg, got)
	}
	assert.NotNil(t, conn.LocalAddr())
	assert.NotNil(t, conn.RemoteAddr())
}

func TestPingPong(t *testing.T) {
	srv := echoServer(t, ConnConfig{})
	conn := dial(t, srv, ConnConfig{})

	pongs := make(chan uint32, 1)
	conn.OnPong(func(seq uint32) { pongs <- seq })

	// Pongs are processed by the reader.
	go func() {
		for {
			if _, err := conn.Receive(); err != nil {
				return
			}
		}
	}()

	require.NoError(t, conn.SendPing(77))
	select {
	case seq := <-pongs:
		assert.Equal(t, uint32(77), seq)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestMessageTooLarge(t *testing.T) {
	srv := echoServer(t, ConnConfig{})
	conn := dial(t, srv, ConnConfig{MaxMessageSize: 16})

	require.NoError(t, conn.Send(make([]byte, 64)))
	_, err := conn.Receive()
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := echoServer(t, ConnConfig{})
	conn := dial(t, srv, ConnConfig{})

	require.NoError(t, conn.Close())
	_ = conn.Close()

	assert.ErrorIs(t, conn.Send([]byte("x")), ErrConnectionClosed)
	assert.ErrorIs(t, conn.SendPing(1), ErrConnectionClosed)
	_, err := conn.Receive()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestPeerCloseReported(t *testing.T) {
	acceptor := NewAcceptor(ConnConfig{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := acceptor.Accept(w, r)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	conn := dial(t, srv, ConnConfig{})
	_, err := conn.Receive()
	require.Error(t, err)
	assert.True(t, IsNormalClose(err), "got %v", err)
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client, err := NewClient(ClientConfig{})
	require.NoError(t, err)
	_, err = client.Dial(context.Background(), wsURL(srv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.True(t, errors.Is(err, websocket.ErrBadHandshake))
}

func TestNewClientTLSConfig(t *testing.T) {
	t.Run("nil uses defaults", func(t *testing.T) {
		conf, err := NewClientTLSConfig(nil)
		require.NoError(t, err)
		assert.Nil(t, conf.RootCAs)
	})

	t.Run("missing CA file", func(t *testing.T) {
		_, err := NewClientTLSConfig(&TLSConfig{CAFile: "/nonexistent/ca.pem"})
		assert.Error(t, err)
	})

	t.Run("server name", func(t *testing.T) {
		conf, err := NewClientTLSConfig(&TLSConfig{ServerName: "updates.example.com"})
		require.NoError(t, err)
		assert.Equal(t, "updates.example.com", conf.ServerName)
	})
}

// fakePinger answers pings through the keep-alive when answer is set.
type fakePinger struct {
	ka     atomic.Pointer[KeepAlive]
	answer atomic.Bool
	pings  atomic.Int32
}

func (p *fakePinger) SendPing(seq uint32) error {
	p.pings.Add(1)
	if p.answer.Load() {
		go p.ka.Load().PongReceived(seq)
	}
	return nil
}

func TestKeepAlive(t *testing.T) {
	config := KeepAliveConfig{
		PingInterval:   20 * time.Millisecond,
		PongTimeout:    10 * time.Millisecond,
		MaxMissedPongs: 2,
	}

	t.Run("HealthyConnection", func(t *testing.T) {
		p := &fakePinger{}
		p.answer.Store(true)
		var timedOut atomic.Bool
		ka := NewKeepAlive(config, p, func() { timedOut.Store(true) })
		p.ka.Store(ka)

		ka.Start(context.Background())
		time.Sleep(100 * time.Millisecond)
		ka.Stop()

		assert.False(t, timedOut.Load())
		assert.GreaterOrEqual(t, p.pings.Load(), int32(3))
		assert.Equal(t, 0, ka.Stats().MissedPongs)
		assert.False(t, ka.IsRunning())
	})

	t.Run("DeadConnection", func(t *testing.T) {
		p := &fakePinger{}
		timeout := make(chan struct{})
		ka := NewKeepAlive(config, p, func() { close(timeout) })
		p.ka.Store(ka)

		ka.Start(context.Background())
		select {
		case <-timeout:
		case <-time.After(time.Second):
			t.Fatal("timeout callback not called")
		}
		assert.Equal(t, 2, ka.Stats().MissedPongs)
		assert.False(t, ka.IsRunning())
	})

	t.Run("StalePongIgnored", func(t *testing.T) {
		p := &fakePinger{}
		ka := NewKeepAlive(config, p, nil)
		p.ka.Store(ka)

		ka.Start(context.Background())
		defer ka.Stop()
		time.Sleep(5 * time.Millisecond)

		ka.PongReceived(ka.Stats().CurrentSeq + 100)
		assert.Zero(t, ka.Stats().LastLatency)
	})

	t.Run("DetectionDelay", func(t *testing.T) {
		assert.Equal(t, 35*time.Second, DefaultKeepAliveConfig().DetectionDelay())
	})

	t.Run("PongTimeoutClamped", func(t *testing.T) {
		ka := NewKeepAlive(KeepAliveConfig{PingInterval: time.Second, PongTimeout: 2 * time.Second}, &fakePinger{}, nil)
		assert.Equal(t, 500*time.Millisecond, ka.config.PongTimeout)
	})
}
