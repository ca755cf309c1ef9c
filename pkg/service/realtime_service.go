package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/waqiti/realtime-go/pkg/cache"
	"github.com/waqiti/realtime-go/pkg/connection"
	"github.com/waqiti/realtime-go/pkg/events"
	"github.com/waqiti/realtime-go/pkg/metrics"
	"github.com/waqiti/realtime-go/pkg/model"
	"github.com/waqiti/realtime-go/pkg/outbox"
	"github.com/waqiti/realtime-go/pkg/persistence"
	"github.com/waqiti/realtime-go/pkg/router"
	"github.com/waqiti/realtime-go/pkg/subscription"
	"github.com/waqiti/realtime-go/pkg/transport"
	"github.com/waqiti/realtime-go/pkg/wire"
)

// RealtimeService keeps one connection to the update server, maintains the
// desired topic subscriptions across reconnects and caches inbound updates.
type RealtimeService struct {
	config  Config
	logger  *slog.Logger
	dialer  transport.Dialer
	metrics *metrics.Metrics

	manager  *connection.Manager
	registry *subscription.Registry
	outbox   *outbox.Queue
	bus      *events.Bus
	router   *router.Router
	cache    *cache.LocalCache

	credMu sync.RWMutex
	userID string
	token  string

	// opMu orders subscription sends against drain and replay.
	opMu  sync.Mutex
	sess  *session
	ready bool
}

// New creates a service. It does not connect; call Initialize.
func New(config Config) (*RealtimeService, error) {
	u, err := url.Parse(config.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("%w: url %q", ErrInvalidConfig, config.URL)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialer := config.Dialer
	if dialer == nil {
		client, err := transport.NewClient(transport.ClientConfig{TLSConfig: config.TLS})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		dialer = client
	}

	lc := config.Cache
	if lc == nil {
		lc = cache.New(persistence.NewMemoryStore(), logger)
	}

	s := &RealtimeService{
		config:   config,
		logger:   logger,
		dialer:   dialer,
		metrics:  config.Metrics,
		registry: subscription.NewRegistry(),
		outbox:   outbox.NewQueue(),
		bus:      events.NewBus(logger),
		cache:    lc,
	}

	routerConfig := router.Config{
		Cache:     lc,
		Publisher: s.bus,
		Logger:    logger,
	}
	if s.metrics != nil {
		routerConfig.Observer = s.metrics
	}
	s.router = router.New(routerConfig)

	connConfig := config.Connection
	if connConfig.Logger == nil {
		connConfig.Logger = logger
	}
	s.manager = connection.NewManagerWithConfig(s.dial, connConfig)
	s.manager.OnStateChange(s.handleStateChange)
	s.manager.OnConnected(s.handleConnected)
	s.manager.OnDisconnected(s.handleLinkLost)
	s.manager.OnReconnecting(s.handleReconnecting)
	s.manager.OnFailed(s.handleFailed)

	s.registry.OnChange(s.metrics.Subscriptions)
	s.outbox.OnDepth(s.metrics.OutboxDepth)

	if config.NetworkMonitor != nil {
		config.NetworkMonitor.OnChange(s.handleReachability)
	}

	return s, nil
}

// Initialize stores the credentials, connects and authenticates. It returns
// nil at once when already connected. On success queued operations have
// been sent and all registered topics replayed before it returns.
//
// Errors match ErrConnectionTimeout or ErrConnectionError.
func (s *RealtimeService) Initialize(ctx context.Context, userID, authToken string) error {
	if s.manager.IsConnected() {
		return nil
	}
	if userID == "" || authToken == "" {
		return fmt.Errorf("%w: %w", ErrConnectionError, ErrMissingCredentials)
	}

	s.setCredentials(userID, authToken)
	if err := s.manager.Connect(ctx); err != nil {
		s.setCredentials("", "")

		kind := events.ErrorConnection
		if errors.Is(err, ErrConnectionTimeout) {
			kind = events.ErrorConnectionTimeout
		}
		s.publishError(events.ErrorEvent{Kind: kind, Err: err})
		return err
	}
	return nil
}

// Disconnect tears everything down: pending retries are cancelled, the
// connection is closed, credentials are cleared and the subscription set
// and queue are emptied. It is safe to call at any time and more than once.
func (s *RealtimeService) Disconnect() {
	s.setCredentials("", "")
	s.manager.Disconnect()

	s.opMu.Lock()
	s.ready = false
	s.sess = nil
	s.registry.Clear()
	s.outbox.Clear()
	s.opMu.Unlock()

	s.logger.Info("disconnected")
}

// SubscribeToTransaction tracks status changes of a transaction.
func (s *RealtimeService) SubscribeToTransaction(id string) {
	s.subscribe(model.TopicTransaction, id)
}

// SubscribeToWallet tracks balance changes and payments of a wallet.
func (s *RealtimeService) SubscribeToWallet(id string) {
	s.subscribe(model.TopicWallet, id)
}

// SubscribeToCheckDeposit tracks status changes of a check deposit.
func (s *RealtimeService) SubscribeToCheckDeposit(id string) {
	s.subscribe(model.TopicCheckDeposit, id)
}

// UnsubscribeFromTransaction stops tracking a transaction.
func (s *RealtimeService) UnsubscribeFromTransaction(id string) {
	s.unsubscribe(model.TopicTransaction, id)
}

// UnsubscribeFromWallet stops tracking a wallet.
func (s *RealtimeService) UnsubscribeFromWallet(id string) {
	s.unsubscribe(model.TopicWallet, id)
}

// UnsubscribeFromCheckDeposit stops tracking a check deposit.
func (s *RealtimeService) UnsubscribeFromCheckDeposit(id string) {
	s.unsubscribe(model.TopicCheckDeposit, id)
}

// IsConnectedToServer reports whether the connection is established.
func (s *RealtimeService) IsConnectedToServer() bool {
	return s.manager.IsConnected()
}

// ConnectionInfo returns a snapshot of the connection state.
func (s *RealtimeService) ConnectionInfo() ConnectionInfo {
	state := s.manager.State()
	return ConnectionInfo{
		Connected:            state == connection.StateConnected,
		State:                state,
		ReconnectAttempts:    s.manager.Attempts(),
		SubscriptionCount:    s.registry.Count(),
		QueuedOperationCount: s.outbox.Len(),
		LastError:            s.manager.LastError(),
	}
}

// Subscriptions returns the registered topics in a stable order.
func (s *RealtimeService) Subscriptions() []model.Topic {
	return s.registry.Snapshot()
}

// CachedTransactionUpdates returns the transaction update history, newest
// first.
func (s *RealtimeService) CachedTransactionUpdates() []model.TransactionUpdate {
	return s.cache.TransactionUpdates()
}

// CachedTransaction returns the latest snapshot of a transaction.
func (s *RealtimeService) CachedTransaction(id string) (model.TransactionUpdate, bool) {
	return s.cache.Transaction(id)
}

// CachedBalance returns the latest balance of a wallet.
func (s *RealtimeService) CachedBalance(walletID string) (model.BalanceUpdate, bool) {
	return s.cache.Balance(walletID)
}

// CachedCheckDeposit returns the latest snapshot of a check deposit.
func (s *RealtimeService) CachedCheckDeposit(id string) (model.CheckDepositUpdate, bool) {
	return s.cache.CheckDeposit(id)
}

// CachedNotifications returns the notification history, newest first.
func (s *RealtimeService) CachedNotifications() []model.Notification {
	return s.cache.Notifications()
}

// CachedAlerts returns the alert history, newest first.
func (s *RealtimeService) CachedAlerts() []model.Alert {
	return s.cache.Alerts()
}

// On registers a handler for events of type t.
//
// Handlers run synchronously on the goroutine that produced the event,
// which may be a connection attempt. A handler must not call Initialize
// directly; start a goroutine instead.
func (s *RealtimeService) On(t events.Type, handler events.Handler) events.HandlerID {
	return s.bus.On(t, handler)
}

// OnAll registers a handler for every event.
func (s *RealtimeService) OnAll(handler events.Handler) events.HandlerID {
	return s.bus.OnAll(handler)
}

// Off removes a handler registered with On or OnAll.
func (s *RealtimeService) Off(t events.Type, id events.HandlerID) bool {
	return s.bus.Off(t, id)
}

func (s *RealtimeService) subscribe(class model.TopicClass, id string) {
	topic, err := model.NewTopic(class, id)
	if err != nil {
		s.logger.Warn("ignoring subscribe", "class", class, "id", id, "error", err)
		return
	}

	s.opMu.Lock()
	if !s.registry.Add(topic) {
		s.opMu.Unlock()
		return
	}
	failure := s.applyLocked(outbox.OpSubscribe, topic)
	s.opMu.Unlock()

	s.publishError(failure)
}

func (s *RealtimeService) unsubscribe(class model.TopicClass, id string) {
	topic, err := model.NewTopic(class, id)
	if err != nil {
		s.logger.Warn("ignoring unsubscribe", "class", class, "id", id, "error", err)
		return
	}

	s.opMu.Lock()
	if !s.registry.Remove(topic) {
		s.opMu.Unlock()
		return
	}
	failure := s.applyLocked(outbox.OpUnsubscribe, topic)
	s.opMu.Unlock()

	s.publishError(failure)
}

// applyLocked sends op now when the session is ready and queues it
// otherwise. A queued unsubscribe keeps a subscribe queued earlier for the
// same topic from leaving the server subscribed. opMu must be held.
func (s *RealtimeService) applyLocked(kind outbox.OpKind, topic model.Topic) events.Event {
	if !s.ready || s.sess == nil || !s.manager.IsConnected() {
		s.outbox.Enqueue(outbox.Operation{Kind: kind, Topic: topic})
		s.logger.Debug("operation queued", "op", kind, "topic", topic.String())
		return nil
	}

	if err := sendOp(s.sess, kind, topic); err != nil {
		s.logger.Warn("send failed", "op", kind, "topic", topic.String(), "error", err)
		return events.ErrorEvent{
			Kind:  events.ErrorSendFailure,
			Err:   fmt.Errorf("%w: %s %s: %w", ErrSendFailure, kind, topic, err),
			Topic: &topic,
		}
	}
	return nil
}

// flushLocked drains the queue in order, then subscribes every registered
// topic the drain did not already subscribe. It returns the failures to
// publish. opMu must be held.
func (s *RealtimeService) flushLocked(sess *session) []events.Event {
	var failures []events.Event

	subscribed := make(map[model.Topic]bool)
	for _, op := range s.outbox.Drain() {
		if err := sendOp(sess, op.Kind, op.Topic); err != nil {
			s.logger.Warn("queued operation not sent", "op", op.Kind, "topic", op.Topic.String(), "error", err)
			topic := op.Topic
			failures = append(failures, events.ErrorEvent{
				Kind:  events.ErrorSendFailure,
				Err:   fmt.Errorf("%w: %s %s: %w", ErrSendFailure, op.Kind, topic, err),
				Topic: &topic,
			})
			continue
		}
		subscribed[op.Topic] = op.Kind == outbox.OpSubscribe
	}

	replayed := 0
	for _, topic := range s.registry.Snapshot() {
		if subscribed[topic] {
			continue
		}
		if err := sendOp(sess, outbox.OpSubscribe, topic); err != nil {
			s.logger.Warn("subscription replay failed", "topic", topic.String(), "error", err)
			failures = append(failures, events.ErrorEvent{
				Kind:  events.ErrorSubscriptionReplay,
				Err:   fmt.Errorf("%w: %s: %w", ErrSubscriptionReplay, topic, err),
				Topic: &topic,
			})
			continue
		}
		replayed++
	}
	s.logger.Debug("subscriptions replayed", "count", replayed)
	return failures
}

func sendOp(sess *session, kind outbox.OpKind, topic model.Topic) error {
	switch kind {
	case outbox.OpSubscribe:
		return sess.send(wire.NewSubscribe(sess.nextID(), topic))
	case outbox.OpUnsubscribe:
		return sess.send(wire.NewUnsubscribe(sess.nextID(), topic))
	default:
		return fmt.Errorf("unknown operation %d", kind)
	}
}

// dial opens and authenticates a connection. It is the connection
// manager's DialFunc.
func (s *RealtimeService) dial(ctx context.Context) (connection.Link, error) {
	userID, token, ok := s.credentials()
	if !ok {
		return nil, ErrMissingCredentials
	}

	s.metrics.ConnectAttempt()
	start := time.Now()

	conn, err := s.dialer.Dial(ctx, s.config.URL)
	if err != nil {
		s.metrics.ConnectFailed("dial")
		return nil, err
	}

	sess := newSession(conn, s.config.ProtocolLogger, s.logger)
	if err := sess.authenticate(ctx, userID, token); err != nil {
		_ = sess.Close()
		reason := "auth"
		if ctx.Err() != nil {
			reason = "timeout"
		}
		s.metrics.ConnectFailed(reason)
		return nil, err
	}

	s.metrics.ConnectSucceeded(time.Since(start))
	return sess, nil
}

// handleConnected runs before Connect returns: drain, replay, then start
// reading.
func (s *RealtimeService) handleConnected(link connection.Link) {
	sess, ok := link.(*session)
	if !ok {
		return
	}

	s.opMu.Lock()
	if s.manager.Link() != link {
		// Torn down while the hook was pending.
		s.opMu.Unlock()
		return
	}
	failures := s.flushLocked(sess)
	s.sess = sess
	s.ready = true
	s.opMu.Unlock()

	for _, f := range failures {
		s.publishError(f)
	}

	// Handlers run synchronously and may have disconnected.
	if s.manager.Link() != link {
		s.logger.Debug("link replaced before reading started")
		return
	}

	if !s.config.DisableKeepAlive {
		sess.startKeepAlive(s.config.KeepAlive,
			func() { s.manager.NotifyConnectionLost(sess, ErrKeepAliveTimeout) },
			s.metrics.KeepaliveRTT,
		)
	}
	go s.readLoop(sess)

	s.bus.Publish(events.ConnectionEvent{Type: events.TypeConnected, State: connection.StateConnected})
}

// readLoop handles inbound envelopes of one session in arrival order until
// the connection fails.
func (s *RealtimeService) readLoop(sess *session) {
	for {
		env, err := sess.receive()
		if errors.Is(err, errBadFrame) {
			s.logger.Warn("dropping undecodable frame", "error", err)
			s.publishError(events.ErrorEvent{Kind: events.ErrorMalformedPayload, Err: err})
			continue
		}
		if err != nil {
			if !transport.IsNormalClose(err) {
				s.logger.Debug("read failed", "error", err)
			}
			s.manager.NotifyConnectionLost(sess, err)
			return
		}
		s.dispatch(env)
	}
}

func (s *RealtimeService) dispatch(env *wire.Envelope) {
	switch env.Kind {
	case wire.KindEvent:
		if err := s.router.Route(env); err != nil {
			s.logger.Debug("event not delivered", "event", env.Event, "error", err)
		}
	case wire.KindAck:
		s.logger.Debug("request acknowledged", "message_id", env.MessageID)
	case wire.KindError:
		s.logger.Warn("server rejected request", "message_id", env.MessageID, "code", env.Error.Code, "message", env.Error.Message)
		s.publishError(events.ErrorEvent{Kind: events.ErrorSendFailure, Err: env.Error, Topic: env.Topic})
	default:
		s.logger.Debug("ignoring envelope", "kind", env.Kind)
	}
}

func (s *RealtimeService) handleLinkLost() {
	s.opMu.Lock()
	s.ready = false
	s.sess = nil
	s.opMu.Unlock()
}

func (s *RealtimeService) handleStateChange(oldState, newState connection.State) {
	s.metrics.ConnectionState(newState)
	s.logger.Debug("connection state changed", "from", oldState, "to", newState)

	if oldState == connection.StateConnected || newState == connection.StateDisconnected {
		s.bus.Publish(events.ConnectionEvent{
			Type:  events.TypeDisconnected,
			State: newState,
			Err:   s.manager.LastError(),
		})
	}
}

func (s *RealtimeService) handleReconnecting(attempt int, delay time.Duration) {
	s.metrics.ReconnectScheduled()
	s.bus.Publish(events.ConnectionEvent{
		Type:    events.TypeReconnecting,
		State:   connection.StateReconnecting,
		Attempt: attempt,
		Delay:   delay,
	})
}

func (s *RealtimeService) handleFailed(err error) {
	s.bus.Publish(events.ConnectionEvent{
		Type:  events.TypeConnectionFailed,
		State: connection.StateFailed,
		Err:   err,
	})
}

func (s *RealtimeService) publishError(e events.Event) {
	if e == nil {
		return
	}
	s.bus.Publish(e)
}

func (s *RealtimeService) setCredentials(userID, token string) {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	s.userID = userID
	s.token = token
}

func (s *RealtimeService) credentials() (userID, token string, ok bool) {
	s.credMu.RLock()
	defer s.credMu.RUnlock()
	return s.userID, s.token, s.userID != "" && s.token != ""
}
