package devserver

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/waqiti/realtime-go/pkg/model"
	"github.com/waqiti/realtime-go/pkg/transport"
	"github.com/waqiti/realtime-go/pkg/wire"
)

// DefaultPath is the websocket route.
const DefaultPath = "/ws"

// Authenticator decides whether a user/token pair is accepted.
type Authenticator func(userID, token string) bool

// Config configures a Server.
type Config struct {
	// Path of the websocket endpoint (default: /ws).
	Path string

	// AuthDelay delays every authentication acknowledgment.
	AuthDelay time.Duration

	// Authenticate validates credentials. nil accepts any non-empty token.
	Authenticate Authenticator

	// Conn configures accepted connections.
	Conn transport.ConnConfig

	Logger *slog.Logger
}

// Request is a client request observed by the server.
type Request struct {
	Session uint64
	UserID  string
	Kind    wire.Kind
	Topic   model.Topic
	At      time.Time
}

// SessionInfo describes a connected client.
type SessionInfo struct {
	ID            uint64   `json:"id"`
	UserID        string   `json:"userId"`
	RemoteAddr    string   `json:"remoteAddr"`
	Authenticated bool     `json:"authenticated"`
	Topics        []string `json:"topics"`
}

// Server is the development update server.
type Server struct {
	config   Config
	logger   *slog.Logger
	acceptor *transport.Acceptor
	engine   *gin.Engine

	mu        sync.Mutex
	sessions  map[uint64]*clientSession
	nextID    uint64
	requests  []Request
	authDelay time.Duration
}

type clientSession struct {
	id   uint64
	conn *transport.WSConn

	// guarded by Server.mu
	userID        string
	authenticated bool
	topics        map[model.Topic]struct{}
}

// New creates a server.
func New(config Config) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.Authenticate == nil {
		config.Authenticate = func(_, token string) bool { return token != "" }
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:    config,
		logger:    logger,
		acceptor:  transport.NewAcceptor(config.Conn),
		sessions:  make(map[uint64]*clientSession),
		authDelay: config.AuthDelay,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET(config.Path, s.handleWebSocket)
	admin := engine.Group("/admin")
	admin.POST("/publish", s.handlePublish)
	admin.POST("/drop", s.handleDrop)
	admin.GET("/sessions", s.handleSessions)
	s.engine = engine

	return s
}

// Handler returns the HTTP handler serving the websocket and admin routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetAuthDelay changes the delay applied to later authentications.
func (s *Server) SetAuthDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authDelay = d
}

// Publish delivers an event to every authenticated session subscribed to
// topic. A nil topic broadcasts to all authenticated sessions. It returns the
// number of sessions the event was sent to.
func (s *Server) Publish(topic *model.Topic, name wire.EventName, payload any) (int, error) {
	env, err := wire.NewEvent(name, topic, payload)
	if err != nil {
		return 0, err
	}
	data, err := wire.EncodeEnvelope(env)
	if err != nil {
		return 0, err
	}

	var targets []*clientSession
	s.mu.Lock()
	for _, sess := range s.sessions {
		if !sess.authenticated {
			continue
		}
		if topic != nil {
			if _, ok := sess.topics[*topic]; !ok {
				continue
			}
		}
		targets = append(targets, sess)
	}
	s.mu.Unlock()

	delivered := 0
	for _, sess := range targets {
		if err := sess.conn.Send(data); err != nil {
			s.logger.Debug("publish failed", "session", sess.id, "error", err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

// SendRaw writes data unchanged to every authenticated session.
func (s *Server) SendRaw(data []byte) int {
	s.mu.Lock()
	var targets []*clientSession
	for _, sess := range s.sessions {
		if sess.authenticated {
			targets = append(targets, sess)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, sess := range targets {
		if sess.conn.Send(data) == nil {
			n++
		}
	}
	return n
}

// DropAll closes every client connection and returns how many were closed.
func (s *Server) DropAll() int {
	s.mu.Lock()
	conns := make([]*transport.WSConn, 0, len(s.sessions))
	for _, sess := range s.sessions {
		conns = append(conns, sess.conn)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	return len(conns)
}

// Sessions returns the connected clients ordered by id.
func (s *Server) Sessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		info := SessionInfo{
			ID:            sess.id,
			UserID:        sess.userID,
			RemoteAddr:    sess.conn.RemoteAddr().String(),
			Authenticated: sess.authenticated,
		}
		for t := range sess.topics {
			info.Topics = append(info.Topics, t.String())
		}
		sort.Strings(info.Topics)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Requests returns the subscribe and unsubscribe requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// ResetRequests forgets the recorded requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Topics returns the topics of the most recent authenticated session.
func (s *Server) Topics() []model.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *clientSession
	for _, sess := range s.sessions {
		if sess.authenticated && (latest == nil || sess.id > latest.id) {
			latest = sess
		}
	}
	if latest == nil {
		return nil
	}
	out := make([]model.Topic, 0, len(latest.topics))
	for t := range latest.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.acceptor.Accept(c.Writer, c.Request)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	s.serve(conn)
}

func (s *Server) serve(conn *transport.WSConn) {
	s.mu.Lock()
	s.nextID++
	sess := &clientSession{
		id:     s.nextID,
		conn:   conn,
		topics: make(map[model.Topic]struct{}),
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("client connected", "session", sess.id, "remote", conn.RemoteAddr())
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		_ = conn.Close()
		s.logger.Info("client disconnected", "session", sess.id)
	}()

	for {
		data, err := conn.Receive()
		if err != nil {
			return
		}
		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			s.reply(sess, wire.NewError(0, wire.CodeBadRequest, err.Error()))
			continue
		}
		if !s.handle(sess, env) {
			return
		}
	}
}

// handle processes one request. It returns false when the session must end.
func (s *Server) handle(sess *clientSession, env *wire.Envelope) bool {
	switch env.Kind {
	case wire.KindAuth:
		return s.authenticate(sess, env)

	case wire.KindSubscribe, wire.KindUnsubscribe:
		s.mu.Lock()
		authed := sess.authenticated
		if authed {
			if env.Kind == wire.KindSubscribe {
				sess.topics[*env.Topic] = struct{}{}
			} else {
				delete(sess.topics, *env.Topic)
			}
			s.requests = append(s.requests, Request{
				Session: sess.id,
				UserID:  sess.userID,
				Kind:    env.Kind,
				Topic:   *env.Topic,
				At:      time.Now(),
			})
		}
		s.mu.Unlock()

		if !authed {
			s.reply(sess, wire.NewError(env.MessageID, wire.CodeUnauthorized, "not authenticated"))
			return true
		}
		s.logger.Debug("request", "session", sess.id, "kind", env.Kind, "topic", env.Topic.String())
		s.reply(sess, &wire.Envelope{Kind: wire.KindAck, MessageID: env.MessageID, Topic: env.Topic, Timestamp: time.Now().UnixMilli()})
		return true

	default:
		s.reply(sess, wire.NewError(env.MessageID, wire.CodeBadRequest, "unexpected "+env.Kind.String()))
		return true
	}
}

func (s *Server) authenticate(sess *clientSession, env *wire.Envelope) bool {
	var auth wire.AuthPayload
	if err := wire.DecodePayload(env.Payload, &auth); err != nil || !s.config.Authenticate(auth.UserID, auth.Token) {
		s.logger.Info("authentication rejected", "session", sess.id, "user", auth.UserID)
		s.reply(sess, wire.NewError(env.MessageID, wire.CodeUnauthorized, "invalid credentials"))
		return false
	}

	s.mu.Lock()
	delay := s.authDelay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-sess.conn.Done():
			return false
		}
	}

	s.mu.Lock()
	sess.userID = auth.UserID
	sess.authenticated = true
	s.mu.Unlock()

	s.logger.Info("client authenticated", "session", sess.id, "user", auth.UserID)
	s.reply(sess, &wire.Envelope{Kind: wire.KindAuthenticated, MessageID: env.MessageID, Timestamp: time.Now().UnixMilli()})
	return true
}

func (s *Server) reply(sess *clientSession, env *wire.Envelope) {
	data, err := wire.EncodeEnvelope(env)
	if err != nil {
		s.logger.Error("encode reply", "error", err)
		return
	}
	if err := sess.conn.Send(data); err != nil {
		s.logger.Debug("reply failed", "session", sess.id, "error", err)
	}
}
