package events

import (
	"fmt"
	"time"

	"github.com/waqiti/realtime-go/pkg/connection"
	"github.com/waqiti/realtime-go/pkg/model"
)

// Type identifies an event for handler registration.
type Type uint8

const (
	// Lifecycle
	TypeConnected Type = iota + 1
	TypeDisconnected
	TypeReconnecting
	TypeConnectionFailed
	TypeError

	// Transactions
	TypeTransactionCreated
	TypeTransactionUpdated
	TypeTransactionCompleted
	TypeTransactionFailed
	TypeTransactionPending

	// Payments and balances
	TypePaymentReceived
	TypePaymentSent
	TypeBalanceChanged

	// Check deposits
	TypeCheckDepositReceived
	TypeCheckDepositProcessing
	TypeCheckDepositCompleted
	TypeCheckDepositRejected

	// Notifications and alerts
	TypeNotificationReceived
	TypeAlertReceived
)

var typeNames = map[Type]string{
	TypeConnected:              "CONNECTED",
	TypeDisconnected:           "DISCONNECTED",
	TypeReconnecting:           "RECONNECTING",
	TypeConnectionFailed:       "CONNECTION_FAILED",
	TypeError:                  "ERROR",
	TypeTransactionCreated:     "TRANSACTION_CREATED",
	TypeTransactionUpdated:     "TRANSACTION_UPDATED",
	TypeTransactionCompleted:   "TRANSACTION_COMPLETED",
	TypeTransactionFailed:      "TRANSACTION_FAILED",
	TypeTransactionPending:     "TRANSACTION_PENDING",
	TypePaymentReceived:        "PAYMENT_RECEIVED",
	TypePaymentSent:            "PAYMENT_SENT",
	TypeBalanceChanged:         "BALANCE_CHANGED",
	TypeCheckDepositReceived:   "CHECK_DEPOSIT_RECEIVED",
	TypeCheckDepositProcessing: "CHECK_DEPOSIT_PROCESSING",
	TypeCheckDepositCompleted:  "CHECK_DEPOSIT_COMPLETED",
	TypeCheckDepositRejected:   "CHECK_DEPOSIT_REJECTED",
	TypeNotificationReceived:   "NOTIFICATION_RECEIVED",
	TypeAlertReceived:          "ALERT_RECEIVED",
}

// String returns the event type name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE(%d)", t)
}

// ParseType resolves a name produced by String.
func ParseType(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Types returns all event types in declaration order.
func Types() []Type {
	out := make([]Type, 0, len(typeNames))
	for t := TypeConnected; t <= TypeAlertReceived; t++ {
		out = append(out, t)
	}
	return out
}

// Event is implemented only by the variants in this package.
type Event interface {
	EventType() Type
	isEvent()
}

// ConnectionEvent reports a connection lifecycle change.
type ConnectionEvent struct {
	Type  Type
	State connection.State

	// Attempt and Delay are set for TypeReconnecting.
	Attempt int
	Delay   time.Duration

	// Err is set for TypeConnectionFailed and for losses with a cause.
	Err error
}

// ErrorKind classifies non-fatal failures reported through ErrorEvent.
type ErrorKind uint8

const (
	ErrorConnectionTimeout ErrorKind = iota + 1
	ErrorConnection
	ErrorSubscriptionReplay
	ErrorSendFailure
	ErrorCacheWrite
	ErrorMalformedPayload
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorConnectionTimeout:
		return "CONNECTION_TIMEOUT"
	case ErrorConnection:
		return "CONNECTION_ERROR"
	case ErrorSubscriptionReplay:
		return "SUBSCRIPTION_REPLAY_FAILURE"
	case ErrorSendFailure:
		return "SEND_FAILURE"
	case ErrorCacheWrite:
		return "CACHE_WRITE_FAILURE"
	case ErrorMalformedPayload:
		return "MALFORMED_EVENT_PAYLOAD"
	default:
		return "UNKNOWN"
	}
}

// ErrorEvent reports a failure that did not stop the client.
type ErrorEvent struct {
	Kind ErrorKind
	Err  error

	// Topic is set when the failure concerns one topic.
	Topic *model.Topic

	// Event is the wire event name for inbound failures.
	Event string
}

// TransactionEvent carries a transaction status change.
type TransactionEvent struct {
	Type   Type
	Update model.TransactionUpdate
}

// PaymentEvent carries a payment received or sent.
type PaymentEvent struct {
	Type    Type
	Payment model.PaymentUpdate
}

// BalanceEvent carries a wallet balance change.
type BalanceEvent struct {
	Balance model.BalanceUpdate
}

// CheckDepositEvent carries a check deposit status change.
type CheckDepositEvent struct {
	Type    Type
	Deposit model.CheckDepositUpdate
}

// NotificationEvent carries a received or locally created notification.
type NotificationEvent struct {
	Notification model.Notification
}

// AlertEvent carries a security or account alert.
type AlertEvent struct {
	Alert model.Alert
}

func (e ConnectionEvent) EventType() Type   { return e.Type }
func (e ErrorEvent) EventType() Type        { return TypeError }
func (e TransactionEvent) EventType() Type  { return e.Type }
func (e PaymentEvent) EventType() Type      { return e.Type }
func (e BalanceEvent) EventType() Type      { return TypeBalanceChanged }
func (e CheckDepositEvent) EventType() Type { return e.Type }
func (e NotificationEvent) EventType() Type { return TypeNotificationReceived }
func (e AlertEvent) EventType() Type        { return TypeAlertReceived }

func (ConnectionEvent) isEvent()   {}
func (ErrorEvent) isEvent()        {}
func (TransactionEvent) isEvent()  {}
func (PaymentEvent) isEvent()      {}
func (BalanceEvent) isEvent()      {}
func (CheckDepositEvent) isEvent() {}
func (NotificationEvent) isEvent() {}
func (AlertEvent) isEvent()        {}
