package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	rtlog "github.com/waqiti/realtime-go/pkg/log"
	"github.com/waqiti/realtime-go/pkg/transport"
	"github.com/waqiti/realtime-go/pkg/wire"
)

var errBadFrame = errors.New("undecodable frame")

// session is one authenticated connection to the update server. It is the
// connection.Link handed to the connection manager.
type session struct {
	conn   transport.Conn
	clog   *rtlog.ConnLog
	logger *slog.Logger

	msgID atomic.Uint32

	mu        sync.Mutex
	keepAlive *transport.KeepAlive
	closed    bool
}

func newSession(conn transport.Conn, protoLog rtlog.Logger, logger *slog.Logger) *session {
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &session{
		conn:   conn,
		clog:   rtlog.NewConnLog(protoLog, remote),
		logger: logger,
	}
}

func (s *session) nextID() uint32 {
	return s.msgID.Add(1)
}

// send encodes and writes one envelope.
func (s *session) send(env *wire.Envelope) error {
	data, err := wire.EncodeEnvelope(env)
	if err != nil {
		return err
	}
	if err := s.conn.Send(data); err != nil {
		s.clog.Error(rtlog.LayerTransport, "send "+env.Kind.String(), err)
		return err
	}
	s.clog.Frame(rtlog.DirectionOut, data)
	s.clog.Message(rtlog.DirectionOut, env)
	return nil
}

// receive reads the next envelope. Frames that do not decode yield an error
// wrapping errBadFrame; the connection is still usable after those.
func (s *session) receive() (*wire.Envelope, error) {
	data, err := s.conn.Receive()
	if err != nil {
		return nil, err
	}
	s.clog.Frame(rtlog.DirectionIn, data)
	env, err := wire.DecodeEnvelope(data)
	if err != nil {
		s.clog.Error(rtlog.LayerWire, "decode", err)
		return nil, fmt.Errorf("%w: %w", errBadFrame, err)
	}
	s.clog.Message(rtlog.DirectionIn, env)
	return env, nil
}

// authenticate sends the credentials and waits for the server's answer.
// When ctx ends first the connection is closed.
func (s *session) authenticate(ctx context.Context, userID, token string) error {
	auth, err := wire.NewAuth(s.nextID(), userID, token)
	if err != nil {
		return err
	}
	if err := s.send(auth); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	type result struct {
		env *wire.Envelope
		err error
	}
	ch := make(chan result, 1)
	go func() {
		for {
			env, err := s.receive()
			if errors.Is(err, errBadFrame) {
				continue
			}
			if err != nil {
				ch <- result{err: err}
				return
			}
			if env.MessageID != auth.MessageID {
				continue
			}
			if env.Kind == wire.KindAuthenticated || env.Kind == wire.KindError {
				ch <- result{env: env}
				return
			}
		}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("awaiting auth ack: %w", r.err)
		}
		if r.env.Kind == wire.KindError {
			return fmt.Errorf("%w: %w", ErrUnauthorized, r.env.Error)
		}
		s.clog.SetUserID(userID)
		s.clog.State(rtlog.StateEntitySession, "", "AUTHENTICATED", "")
		return nil
	case <-ctx.Done():
		_ = s.conn.Close()
		<-ch
		return ctx.Err()
	}
}

// startKeepAlive pings the server and calls onTimeout when it stops
// answering. A zero PingInterval uses the transport defaults.
func (s *session) startKeepAlive(config transport.KeepAliveConfig, onTimeout func(), onLatency func(time.Duration)) {
	ka := transport.NewKeepAlive(config, pinger{s}, onTimeout)
	ka.OnLatency(func(rtt time.Duration) {
		if onLatency != nil {
			onLatency(rtt)
		}
	})
	s.conn.OnPong(func(seq uint32) {
		s.clog.Control(rtlog.DirectionIn, rtlog.ControlEvent{Type: rtlog.ControlPong, Seq: seq})
		ka.PongReceived(seq)
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.keepAlive = ka
	s.mu.Unlock()

	ka.Start(context.Background())
}

// Close implements connection.Link.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ka := s.keepAlive
	s.mu.Unlock()

	if ka != nil {
		ka.Stop()
	}
	s.clog.State(rtlog.StateEntityConnection, "OPEN", "CLOSED", "")
	return s.conn.Close()
}

// pinger records pings in the protocol log.
type pinger struct {
	s *session
}

func (p pinger) SendPing(seq uint32) error {
	p.s.clog.Control(rtlog.DirectionOut, rtlog.ControlEvent{Type: rtlog.ControlPing, Seq: seq})
	return p.s.conn.SendPing(seq)
}
