package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waqiti/realtime-go/pkg/connection"
	"github.com/waqiti/realtime-go/pkg/router"
)

func newMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	return m, reg
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ConnectionState(connection.StateConnected)
	m.ConnectAttempt()
	m.ConnectSucceeded(time.Second)
	m.ConnectFailed("timeout")
	m.ReconnectScheduled()
	m.EventReceived("alert")
	m.EventDropped("alert", router.ReasonMalformed)
	m.CacheWriteFailed()
	m.OutboxDepth(3)
	m.Subscriptions(2)
	m.KeepaliveRTT(time.Millisecond)
	m.NetworkReachable(true)
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestConnectionMetrics(t *testing.T) {
	m, _ := newMetrics(t)

	m.ConnectionState(connection.StateConnected)
	assert.Equal(t, float64(connection.StateConnected), testutil.ToFloat64(m.connectionState))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connected))

	m.ConnectionState(connection.StateReconnecting)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.connected))

	m.ConnectAttempt()
	m.ConnectAttempt()
	m.ConnectFailed("timeout")
	m.ReconnectScheduled()
	m.ConnectSucceeded(150 * time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.connectAttempts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connectFailures.WithLabelValues("timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconnects))
	assert.Equal(t, 1, testutil.CollectAndCount(m.connectDuration))
}

func TestRouterObserver(t *testing.T) {
	m, _ := newMetrics(t)

	m.EventReceived("balance.changed")
	m.EventReceived("balance.changed")
	m.EventDropped("transaction.updated", router.ReasonMalformed)
	m.EventDropped("loyalty.a", router.ReasonUnknown)
	m.EventDropped("loyalty.b", router.ReasonUnknown)
	m.CacheWriteFailed()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.eventsReceived.WithLabelValues("balance.changed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsDropped.WithLabelValues("transaction.updated", "malformed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.eventsDropped.WithLabelValues("other", "unknown")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.eventsDropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheWriteFailure))
}

func TestGauges(t *testing.T) {
	m, _ := newMetrics(t)

	m.OutboxDepth(4)
	m.Subscriptions(7)
	m.NetworkReachable(true)

	assert.Equal(t, float64(4), testutil.ToFloat64(m.outboxDepth))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.subscriptions))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.networkReachable))

	m.NetworkReachable(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.networkReachable))
}

func TestHandler(t *testing.T) {
	m, reg := newMetrics(t)
	m.Subscriptions(3)
	m.KeepaliveRTT(12 * time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, "realtime_subscriptions_active 3"), text)
	assert.Contains(t, text, "realtime_keepalive_rtt_seconds_count 1")
}
