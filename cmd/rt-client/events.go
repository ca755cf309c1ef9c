package main

import (
	"log/slog"

	"github.com/waqiti/realtime-go/pkg/events"
)

// logEvent returns a handler that logs every event at info level.
func logEvent(logger *slog.Logger) events.Handler {
	return func(e events.Event) {
		attrs := []any{"event", e.EventType().String()}
		switch ev := e.(type) {
		case events.ConnectionEvent:
			attrs = append(attrs, "state", ev.State.String())
			if ev.Type == events.TypeReconnecting {
				attrs = append(attrs, "attempt", ev.Attempt, "delay", ev.Delay)
			}
			if ev.Err != nil {
				attrs = append(attrs, "error", ev.Err)
			}
		case events.ErrorEvent:
			attrs = append(attrs, "kind", ev.Kind.String(), "error", ev.Err)
			if ev.Topic != nil {
				attrs = append(attrs, "topic", ev.Topic.String())
			}
			logger.Warn("realtime event", attrs...)
			return
		case events.TransactionEvent:
			attrs = append(attrs, "transaction_id", ev.Update.TransactionID, "status", string(ev.Update.Status),
				"amount", ev.Update.Amount, "currency", ev.Update.Currency)
		case events.PaymentEvent:
			attrs = append(attrs, "payment_id", ev.Payment.PaymentID, "wallet_id", ev.Payment.WalletID,
				"amount", ev.Payment.Amount, "currency", ev.Payment.Currency)
		case events.BalanceEvent:
			attrs = append(attrs, "wallet_id", ev.Balance.WalletID, "available", ev.Balance.Available,
				"currency", ev.Balance.Currency)
		case events.CheckDepositEvent:
			attrs = append(attrs, "deposit_id", ev.Deposit.DepositID, "status", string(ev.Deposit.Status))
		case events.NotificationEvent:
			attrs = append(attrs, "notification_id", ev.Notification.ID, "title", ev.Notification.Title)
		case events.AlertEvent:
			attrs = append(attrs, "alert_id", ev.Alert.ID, "severity", string(ev.Alert.Severity))
		}
		logger.Info("realtime event", attrs...)
	}
}
