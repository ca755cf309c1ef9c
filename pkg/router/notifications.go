package router

import (
	"fmt"

	"github.com/waqiti/realtime-go/pkg/model"
)

var (
	retryAction       = model.NotificationAction{ID: model.ActionRetry, Label: "Retry"}
	viewDetailsAction = model.NotificationAction{ID: model.ActionViewDetails, Label: "View details"}
)

func transactionCompletedNotification(u model.TransactionUpdate) model.Notification {
	msg := fmt.Sprintf("Your transaction of %s %s was completed.", u.Amount, u.Currency)
	if u.Counterparty != "" {
		msg = fmt.Sprintf("Your transaction of %s %s with %s was completed.", u.Amount, u.Currency, u.Counterparty)
	}
	return model.Notification{
		Kind:    model.NotificationSuccess,
		Title:   "Transaction completed",
		Message: msg,
		Related: u.Key(),
	}
}

func transactionFailedNotification(u model.TransactionUpdate) model.Notification {
	msg := fmt.Sprintf("Your transaction of %s %s failed.", u.Amount, u.Currency)
	if u.FailureReason != "" {
		msg = fmt.Sprintf("Your transaction of %s %s failed: %s", u.Amount, u.Currency, u.FailureReason)
	}
	return model.Notification{
		Kind:    model.NotificationError,
		Title:   "Transaction failed",
		Message: msg,
		Actions: []model.NotificationAction{retryAction, viewDetailsAction},
		Related: u.Key(),
	}
}

func paymentReceivedNotification(p model.PaymentUpdate) model.Notification {
	msg := fmt.Sprintf("You received %s %s.", p.Amount, p.Currency)
	if p.Counterparty != "" {
		msg = fmt.Sprintf("You received %s %s from %s.", p.Amount, p.Currency, p.Counterparty)
	}
	return model.Notification{
		Kind:    model.NotificationSuccess,
		Title:   "Payment received",
		Message: msg,
		Related: p.Key(),
	}
}

func depositCompletedNotification(d model.CheckDepositUpdate) model.Notification {
	return model.Notification{
		Kind:    model.NotificationSuccess,
		Title:   "Check deposit completed",
		Message: fmt.Sprintf("Your check deposit of %s %s is now available.", d.Amount, d.Currency),
		Related: d.Key(),
	}
}

func depositRejectedNotification(d model.CheckDepositUpdate) model.Notification {
	msg := fmt.Sprintf("Your check deposit of %s %s was rejected.", d.Amount, d.Currency)
	if d.RejectionReason != "" {
		msg = fmt.Sprintf("Your check deposit of %s %s was rejected: %s", d.Amount, d.Currency, d.RejectionReason)
	}
	return model.Notification{
		Kind:    model.NotificationError,
		Title:   "Check deposit rejected",
		Message: msg,
		Actions: []model.NotificationAction{retryAction, viewDetailsAction},
		Related: d.Key(),
	}
}
