package events

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waqiti/realtime-go/pkg/model"
)

func TestBusDelivery(t *testing.T) {
	b := NewBus(nil)

	var got []Type
	b.On(TypeBalanceChanged, func(e Event) { got = append(got, e.EventType()) })
	b.On(TypeAlertReceived, func(e Event) { t.Error("alert handler must not see balance events") })

	b.Publish(BalanceEvent{Balance: model.BalanceUpdate{WalletID: "W"}})

	assert.Equal(t, []Type{TypeBalanceChanged}, got)
}

func TestBusRegistrationOrder(t *testing.T) {
	b := NewBus(nil)

	var order []string
	b.On(TypeConnected, func(Event) { order = append(order, "first") })
	b.OnAll(func(Event) { order = append(order, "all") })
	b.On(TypeConnected, func(Event) { order = append(order, "second") })

	b.Publish(ConnectionEvent{Type: TypeConnected})

	assert.Equal(t, []string{"first", "second", "all"}, order)
}

func TestBusOff(t *testing.T) {
	b := NewBus(nil)

	calls := 0
	id := b.On(TypeError, func(Event) { calls++ })
	allID := b.OnAll(func(Event) { calls++ })

	assert.True(t, b.Off(TypeError, id))
	assert.False(t, b.Off(TypeError, id), "second Off reports false")
	assert.True(t, b.Off(TypeAlertReceived, allID), "OnAll handler removable with any type")
	assert.Equal(t, 0, b.HandlerCount(TypeError))

	b.Publish(ErrorEvent{Kind: ErrorCacheWrite})
	assert.Equal(t, 0, calls)
}

func TestBusRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	b := NewBus(slog.New(slog.NewTextHandler(&buf, nil)))

	reached := false
	b.On(TypeAlertReceived, func(Event) { panic("boom") })
	b.On(TypeAlertReceived, func(Event) { reached = true })

	require.NotPanics(t, func() {
		b.Publish(AlertEvent{Alert: model.Alert{ID: "a-1"}})
	})
	assert.True(t, reached, "handlers after a panicking one still run")
	assert.True(t, strings.Contains(buf.String(), "event handler panicked"))
}

func TestBusConcurrent(t *testing.T) {
	b := NewBus(nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := b.On(TypeBalanceChanged, func(Event) {
				mu.Lock()
				count++
				mu.Unlock()
			})
			b.Off(TypeBalanceChanged, id)
		}()
		go func() {
			defer wg.Done()
			b.Publish(BalanceEvent{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, b.HandlerCount(TypeBalanceChanged))
}

func TestHandleTyped(t *testing.T) {
	b := NewBus(nil)

	var got model.TransactionUpdate
	Handle(b, TypeTransactionCompleted, func(e TransactionEvent) { got = e.Update })

	b.Publish(TransactionEvent{
		Type:   TypeTransactionCompleted,
		Update: model.TransactionUpdate{TransactionID: "tx-1"},
	})
	assert.Equal(t, "tx-1", got.TransactionID)
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		event Event
		want  Type
	}{
		{ConnectionEvent{Type: TypeReconnecting}, TypeReconnecting},
		{ErrorEvent{}, TypeError},
		{TransactionEvent{Type: TypeTransactionFailed}, TypeTransactionFailed},
		{PaymentEvent{Type: TypePaymentSent}, TypePaymentSent},
		{BalanceEvent{}, TypeBalanceChanged},
		{CheckDepositEvent{Type: TypeCheckDepositRejected}, TypeCheckDepositRejected},
		{NotificationEvent{}, TypeNotificationReceived},
		{AlertEvent{}, TypeAlertReceived},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.EventType())
		})
	}
}

func TestTypeNames(t *testing.T) {
	for _, typ := range Types() {
		name := typ.String()
		parsed, ok := ParseType(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, parsed)
	}
	assert.Len(t, Types(), 19)
	assert.Equal(t, "TYPE(200)", Type(200).String())
	assert.Equal(t, "MALFORMED_EVENT_PAYLOAD", ErrorMalformedPayload.String())
}
