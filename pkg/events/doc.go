// Package events defines the events emitted by the realtime client and the
// Bus that delivers them to registered handlers.
//
// Event is a closed set of variants: ConnectionEvent, ErrorEvent,
// TransactionEvent, PaymentEvent, BalanceEvent, CheckDepositEvent,
// NotificationEvent and AlertEvent. A type switch over Event is exhaustive
// over these variants. Each variant reports its Type; handlers register per
// Type.
package events
