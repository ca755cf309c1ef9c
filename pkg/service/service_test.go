package service

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waqiti/realtime-go/internal/devserver"
	"github.com/waqiti/realtime-go/pkg/connection"
	"github.com/waqiti/realtime-go/pkg/events"
	rtlog "github.com/waqiti/realtime-go/pkg/log"
	"github.com/waqiti/realtime-go/pkg/metrics"
	"github.com/waqiti/realtime-go/pkg/model"
	"github.com/waqiti/realtime-go/pkg/netmon"
	"github.com/waqiti/realtime-go/pkg/wire"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server *devserver.Server
	http   *httptest.Server
	svc    *RealtimeService
	rec    *recorder
}

func newTestEnv(t *testing.T, serverConfig devserver.Config, mutate func(*Config)) *testEnv {
	t.Helper()

	srv := devserver.New(serverConfig)
	ts := httptest.NewServer(srv.Handler())

	config := DefaultConfig()
	config.URL = "ws" + strings.TrimPrefix(ts.URL, "http") + devserver.DefaultPath
	config.Connection.ConnectTimeout = 2 * time.Second
	config.Connection.Backoff.Initial = 20 * time.Millisecond
	config.Connection.Backoff.Max = 50 * time.Millisecond
	if mutate != nil {
		mutate(&config)
	}

	svc, err := New(config)
	require.NoError(t, err)

	rec := &recorder{}
	svc.OnAll(rec.record)

	t.Cleanup(func() {
		svc.Disconnect()
		srv.DropAll()
		ts.Close()
	})
	return &testEnv{server: srv, http: ts, svc: svc, rec: rec}
}

func (e *testEnv) initialize(t *testing.T) {
	t.Helper()
	require.NoError(t, e.svc.Initialize(context.Background(), "user-1", "token"))
}

// serverTopics waits until the server holds exactly want.
func (e *testEnv) serverTopics(t *testing.T, want ...model.Topic) {
	t.Helper()
	require.Eventually(t, func() bool {
		got := e.server.Topics()
		if len(got) != len(want) {
			return false
		}
		seen := make(map[model.Topic]bool, len(got))
		for _, topic := range got {
			seen[topic] = true
		}
		for _, topic := range want {
			if !seen[topic] {
				return false
			}
		}
		return true
	}, waitFor, tick, "server topics = %v, want %v", e.server.Topics(), want)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) record(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t events.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType() == t {
			n++
		}
	}
	return n
}

func (r *recorder) errors() []events.ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.ErrorEvent
	for _, e := range r.events {
		if ee, ok := e.(events.ErrorEvent); ok {
			out = append(out, ee)
		}
	}
	return out
}

func subscribes(reqs []devserver.Request) map[model.Topic]int {
	out := make(map[model.Topic]int)
	for _, r := range reqs {
		if r.Kind == wire.KindSubscribe {
			out[r.Topic]++
		}
	}
	return out
}

var (
	walletTopic  = model.Topic{Class: model.TopicWallet, ID: "w-1"}
	txnTopic     = model.Topic{Class: model.TopicTransaction, ID: "t-1"}
	depositTopic = model.Topic{Class: model.TopicCheckDeposit, ID: "d-1"}
)

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "http://example.com/ws", "ws://"} {
		config := DefaultConfig()
		config.URL = u
		_, err := New(config)
		assert.ErrorIs(t, err, ErrInvalidConfig, "url %q", u)
	}
}

func TestInitializeSubscribeAndReceive(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)
	env.initialize(t)

	assert.True(t, env.svc.IsConnectedToServer())
	assert.Equal(t, 1, env.rec.count(events.TypeConnected))

	var balances []model.BalanceUpdate
	var mu sync.Mutex
	events.Handle(env.svc.bus, events.TypeBalanceChanged, func(e events.BalanceEvent) {
		mu.Lock()
		balances = append(balances, e.Balance)
		mu.Unlock()
	})

	env.svc.SubscribeToWallet("w-1")
	env.serverTopics(t, walletTopic)

	_, ok := env.svc.CachedBalance("w-1")
	assert.False(t, ok, "no balance before the first event")

	_, err := env.server.Publish(&walletTopic, wire.EventBalanceChanged, model.BalanceUpdate{
		WalletID: "w-1", Available: "42.00", Currency: "EUR",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := env.svc.CachedBalance("w-1")
		return ok
	}, waitFor, tick)
	got, _ := env.svc.CachedBalance("w-1")
	assert.Equal(t, "42.00", got.Available)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(balances) == 1
	}, waitFor, tick)

	info := env.svc.ConnectionInfo()
	assert.True(t, info.Connected)
	assert.Equal(t, connection.StateConnected, info.State)
	assert.Equal(t, 1, info.SubscriptionCount)
	assert.Zero(t, info.QueuedOperationCount)
	assert.Zero(t, info.ReconnectAttempts)
}

func TestInitializeWhenConnectedIsNoop(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)
	env.initialize(t)
	env.initialize(t)

	assert.Len(t, env.server.Sessions(), 1)
	assert.Equal(t, 1, env.rec.count(events.TypeConnected))
}

func TestInitializeRequiresCredentials(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)

	err := env.svc.Initialize(context.Background(), "", "token")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.ErrorIs(t, err, ErrConnectionError)
	assert.Empty(t, env.server.Sessions())
}

func TestInitializeTimeout(t *testing.T) {
	env := newTestEnv(t, devserver.Config{AuthDelay: 2 * time.Second}, func(c *Config) {
		c.Connection.ConnectTimeout = 200 * time.Millisecond
	})
	env.svc.SubscribeToTransaction("t-1")

	err := env.svc.Initialize(context.Background(), "user-1", "token")
	require.ErrorIs(t, err, ErrConnectionTimeout)

	assert.False(t, env.svc.IsConnectedToServer())
	assert.Equal(t, connection.StateDisconnected, env.svc.ConnectionInfo().State)
	assert.Empty(t, env.server.Requests(), "no subscription traffic")

	errs := env.rec.errors()
	require.NotEmpty(t, errs)
	assert.Equal(t, events.ErrorConnectionTimeout, errs[len(errs)-1].Kind)

	// No retries after a failed Initialize.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, connection.StateDisconnected, env.svc.ConnectionInfo().State)
}

func TestDisconnectDuringInitialize(t *testing.T) {
	env := newTestEnv(t, devserver.Config{AuthDelay: time.Second}, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- env.svc.Initialize(context.Background(), "user-1", "token") }()

	require.Eventually(t, func() bool {
		return env.svc.ConnectionInfo().State == connection.StateConnecting
	}, waitFor, tick)
	time.Sleep(150 * time.Millisecond)
	env.svc.Disconnect()

	var err error
	select {
	case err = <-errCh:
	case <-time.After(waitFor):
		t.Fatal("Initialize did not return after Disconnect")
	}
	assert.ErrorIs(t, err, ErrConnectionError)
	assert.ErrorIs(t, err, connection.ErrAborted)
	assert.NotErrorIs(t, err, ErrConnectionTimeout)

	assert.False(t, env.svc.IsConnectedToServer())
	assert.Equal(t, connection.StateDisconnected, env.svc.ConnectionInfo().State)
	assert.Zero(t, env.rec.count(events.TypeConnected))
}

func TestInitializeRejectedCredentials(t *testing.T) {
	env := newTestEnv(t, devserver.Config{
		Authenticate: func(_, token string) bool { return token == "good" },
	}, nil)

	err := env.svc.Initialize(context.Background(), "user-1", "bad")
	assert.ErrorIs(t, err, ErrConnectionError)
	assert.ErrorIs(t, err, ErrUnauthorized)

	errs := env.rec.errors()
	require.NotEmpty(t, errs)
	assert.Equal(t, events.ErrorConnection, errs[len(errs)-1].Kind)

	require.NoError(t, env.svc.Initialize(context.Background(), "user-1", "good"))
}

func TestOfflineOperationsDrainInOrder(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)

	env.svc.SubscribeToTransaction("t-1")
	env.svc.SubscribeToWallet("w-1")
	env.svc.SubscribeToWallet("w-1")
	assert.Equal(t, 2, env.svc.ConnectionInfo().QueuedOperationCount)

	env.initialize(t)
	env.serverTopics(t, txnTopic, walletTopic)

	reqs := env.server.Requests()
	require.Len(t, reqs, 2, "each topic subscribed once")
	assert.Equal(t, txnTopic, reqs[0].Topic)
	assert.Equal(t, walletTopic, reqs[1].Topic)
	assert.Zero(t, env.svc.ConnectionInfo().QueuedOperationCount)
}

func TestOfflineUnsubscribe(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)

	env.svc.SubscribeToTransaction("t-1")
	env.svc.SubscribeToWallet("w-1")
	env.svc.UnsubscribeFromTransaction("t-1")
	env.svc.UnsubscribeFromTransaction("t-1")

	env.initialize(t)
	env.serverTopics(t, walletTopic)
	assert.Equal(t, []model.Topic{walletTopic}, env.svc.Subscriptions())
}

func TestUnsubscribeWhileConnected(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)
	env.initialize(t)

	env.svc.SubscribeToCheckDeposit("d-1")
	env.svc.SubscribeToWallet("w-1")
	env.serverTopics(t, depositTopic, walletTopic)

	env.svc.UnsubscribeFromCheckDeposit("d-1")
	env.serverTopics(t, walletTopic)
	assert.Equal(t, 1, env.svc.ConnectionInfo().SubscriptionCount)
}

func TestSubscribeIgnoresBlankID(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)
	env.svc.SubscribeToWallet("  ")
	env.svc.UnsubscribeFromWallet("")
	assert.Zero(t, env.svc.ConnectionInfo().SubscriptionCount)
	assert.Zero(t, env.svc.ConnectionInfo().QueuedOperationCount)
}

func TestDisconnectThenSubscribe(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)
	env.initialize(t)
	env.svc.SubscribeToWallet("w-1")
	env.serverTopics(t, walletTopic)

	env.svc.Disconnect()
	env.svc.Disconnect()
	require.Eventually(t, func() bool { return len(env.server.Sessions()) == 0 }, waitFor, tick)
	env.server.ResetRequests()

	assert.NotPanics(t, func() { env.svc.SubscribeToTransaction("t-9") })
	assert.Empty(t, env.server.Requests())

	info := env.svc.ConnectionInfo()
	assert.False(t, info.Connected)
	assert.Equal(t, connection.StateDisconnected, info.State)
	assert.Equal(t, 1, info.SubscriptionCount, "registry was cleared by Disconnect")
	assert.Equal(t, 1, info.QueuedOperationCount)
	assert.Equal(t, 1, env.rec.count(events.TypeDisconnected))
}

func TestReconnectReplaysSubscriptions(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)
	env.initialize(t)

	env.svc.SubscribeToTransaction("t-1")
	env.svc.SubscribeToWallet("w-1")
	env.svc.SubscribeToCheckDeposit("d-1")
	env.serverTopics(t, txnTopic, walletTopic, depositTopic)
	env.server.ResetRequests()

	env.server.DropAll()

	require.Eventually(t, func() bool {
		return env.rec.count(events.TypeConnected) == 2 && env.svc.IsConnectedToServer()
	}, waitFor, tick)
	env.serverTopics(t, txnTopic, walletTopic, depositTopic)

	counts := subscribes(env.server.Requests())
	assert.Equal(t, map[model.Topic]int{txnTopic: 1, walletTopic: 1, depositTopic: 1}, counts)
	assert.GreaterOrEqual(t, env.rec.count(events.TypeReconnecting), 1)
	assert.GreaterOrEqual(t, env.rec.count(events.TypeDisconnected), 1)
	assert.Zero(t, env.svc.ConnectionInfo().ReconnectAttempts)
}

func TestNetworkRestoredBypassesBackoff(t *testing.T) {
	monitor := netmon.NewMonitor(nil, netmon.Config{})
	env := newTestEnv(t, devserver.Config{}, func(c *Config) {
		c.NetworkMonitor = monitor
		c.Connection.Backoff.Initial = 30 * time.Second
		c.Connection.Backoff.Max = 30 * time.Second
	})
	env.initialize(t)

	env.svc.SubscribeToTransaction("t-1")
	env.svc.SubscribeToWallet("w-1")
	env.svc.SubscribeToCheckDeposit("d-1")
	env.serverTopics(t, txnTopic, walletTopic, depositTopic)
	env.server.ResetRequests()

	monitor.Notify(netmon.Unreachable)
	env.server.DropAll()
	require.Eventually(t, func() bool {
		return env.svc.ConnectionInfo().State == connection.StateReconnecting
	}, waitFor, tick)

	monitor.Notify(netmon.Reachable)

	require.Eventually(t, env.svc.IsConnectedToServer, 2*time.Second, tick, "reconnect must not wait for the backoff")
	env.serverTopics(t, txnTopic, walletTopic, depositTopic)
	assert.Equal(t, map[model.Topic]int{txnTopic: 1, walletTopic: 1, depositTopic: 1}, subscribes(env.server.Requests()))
}

func TestNetworkRestoredWithoutCredentials(t *testing.T) {
	monitor := netmon.NewMonitor(nil, netmon.Config{})
	env := newTestEnv(t, devserver.Config{}, func(c *Config) {
		c.NetworkMonitor = monitor
	})

	monitor.Notify(netmon.Unreachable)
	monitor.Notify(netmon.Reachable)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, env.server.Sessions())
	assert.Equal(t, connection.StateDisconnected, env.svc.ConnectionInfo().State)
}

func TestReconnectExhaustedFails(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, func(c *Config) {
		c.Connection.MaxAttempts = 2
		c.Connection.Backoff.Initial = 10 * time.Millisecond
		c.Connection.Backoff.Max = 20 * time.Millisecond
	})
	env.initialize(t)

	env.http.Close()
	env.server.DropAll()

	require.Eventually(t, func() bool {
		return env.svc.ConnectionInfo().State == connection.StateFailed
	}, waitFor, tick)
	assert.Equal(t, 1, env.rec.count(events.TypeConnectionFailed))
	assert.Equal(t, 2, env.rec.count(events.TypeReconnecting))
	assert.Error(t, env.svc.ConnectionInfo().LastError)
}

func TestDisconnectCancelsPendingRetry(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, func(c *Config) {
		c.Connection.Backoff.Initial = 200 * time.Millisecond
		c.Connection.Backoff.Max = 200 * time.Millisecond
	})
	env.initialize(t)

	env.server.DropAll()
	require.Eventually(t, func() bool {
		return env.svc.ConnectionInfo().State == connection.StateReconnecting
	}, waitFor, tick)

	env.svc.Disconnect()
	time.Sleep(400 * time.Millisecond)

	assert.Empty(t, env.server.Sessions())
	assert.Equal(t, connection.StateDisconnected, env.svc.ConnectionInfo().State)
	assert.Equal(t, 1, env.rec.count(events.TypeConnected))
}

func TestMalformedPayloadDropped(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)
	env.initialize(t)
	env.svc.SubscribeToWallet("w-1")
	env.serverTopics(t, walletTopic)

	var called bool
	var mu sync.Mutex
	env.svc.On(events.TypeBalanceChanged, func(events.Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	})

	_, err := env.server.Publish(&walletTopic, wire.EventBalanceChanged, map[string]any{"available": "1.00"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(env.rec.errors()) == 1 }, waitFor, tick)
	assert.Equal(t, events.ErrorMalformedPayload, env.rec.errors()[0].Kind)

	_, ok := env.svc.CachedBalance("w-1")
	assert.False(t, ok)
	mu.Lock()
	assert.False(t, called)
	mu.Unlock()

	assert.Equal(t, 1, env.server.SendRaw([]byte{0xff, 0x00}))
	require.Eventually(t, func() bool { return len(env.rec.errors()) == 2 }, waitFor, tick)
	assert.True(t, env.svc.IsConnectedToServer(), "a bad frame does not drop the connection")
}

func TestTransactionLifecycleCached(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)
	env.initialize(t)
	env.svc.SubscribeToTransaction("t-1")
	env.serverTopics(t, txnTopic)

	for _, status := range []model.TransactionStatus{model.TransactionStatusPending, model.TransactionStatusCompleted} {
		_, err := env.server.Publish(&txnTopic, wire.EventTransactionUpdated, model.TransactionUpdate{
			TransactionID: "t-1", Status: status, Amount: "5.00", Currency: "USD",
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return env.rec.count(events.TypeTransactionCompleted) == 1 }, waitFor, tick)
	assert.Equal(t, 1, env.rec.count(events.TypeTransactionPending))
	assert.Equal(t, 2, env.rec.count(events.TypeTransactionUpdated))

	updates := env.svc.CachedTransactionUpdates()
	require.Len(t, updates, 2)
	assert.Equal(t, model.TransactionStatusCompleted, updates[0].Status, "newest first")

	latest, ok := env.svc.CachedTransaction("t-1")
	require.True(t, ok)
	assert.Equal(t, model.TransactionStatusCompleted, latest.Status)

	notes := env.svc.CachedNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationSuccess, notes[0].Kind)
}

func TestServerBroadcastAlert(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)
	env.initialize(t)

	_, err := env.server.Publish(nil, wire.EventAlert, model.Alert{
		ID: "a-1", Severity: model.AlertCritical, Title: "New device sign-in",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(env.svc.CachedAlerts()) == 1 }, waitFor, tick)
	assert.Equal(t, "a-1", env.svc.CachedAlerts()[0].ID)
}

func TestOffRemovesHandler(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, nil)

	var mu sync.Mutex
	n := 0
	id := env.svc.On(events.TypeConnected, func(events.Event) {
		mu.Lock()
		n++
		mu.Unlock()
	})
	assert.True(t, env.svc.Off(events.TypeConnected, id))
	assert.False(t, env.svc.Off(events.TypeConnected, id))

	env.initialize(t)
	mu.Lock()
	assert.Zero(t, n)
	mu.Unlock()
}

func TestKeepAliveHealthyLink(t *testing.T) {
	env := newTestEnv(t, devserver.Config{}, func(c *Config) {
		c.KeepAlive.PingInterval = 80 * time.Millisecond
		c.KeepAlive.PongTimeout = 40 * time.Millisecond
		c.KeepAlive.MaxMissedPongs = 1
	})
	env.initialize(t)

	// Pongs are answered by the server's read loop, so a healthy link stays up.
	time.Sleep(200 * time.Millisecond)
	assert.True(t, env.svc.IsConnectedToServer())
	assert.Zero(t, env.rec.count(events.TypeReconnecting))
}

func TestMetricsAndProtocolCapture(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	capture := &captureLogger{}

	env := newTestEnv(t, devserver.Config{}, func(c *Config) {
		c.Metrics = m
		c.ProtocolLogger = capture
	})
	env.initialize(t)
	env.svc.SubscribeToWallet("w-1")
	env.svc.SubscribeToTransaction("t-1")
	env.serverTopics(t, walletTopic, txnTopic)

	assert.Equal(t, 2.0, gaugeValue(t, reg, "realtime_subscriptions_active"))
	assert.Equal(t, 1.0, gaugeValue(t, reg, "realtime_connection_up"))

	kinds := capture.messageKinds(rtlog.DirectionOut)
	require.GreaterOrEqual(t, len(kinds), 3)
	assert.Equal(t, wire.KindAuth, kinds[0])
	assert.Equal(t, wire.KindSubscribe, kinds[1])
	assert.Contains(t, capture.messageKinds(rtlog.DirectionIn), wire.KindAuthenticated)
}

type captureLogger struct {
	mu     sync.Mutex
	events []rtlog.Event
}

func (c *captureLogger) Log(e rtlog.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) messageKinds(dir rtlog.Direction) []wire.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []wire.Kind
	for _, e := range c.events {
		if e.Message != nil && e.Direction == dir {
			out = append(out, e.Message.Kind)
		}
	}
	return out
}

func gaugeValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.NotEmpty(t, f.GetMetric())
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
