package model

import "time"

// TransactionStatus is the lifecycle status of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// TransactionUpdate is a status change of a single transaction.
type TransactionUpdate struct {
	TransactionID string            `cbor:"transactionId" validate:"required"`
	WalletID      string            `cbor:"walletId,omitempty"`
	Type          string            `cbor:"type,omitempty"`
	Status        TransactionStatus `cbor:"status" validate:"required,oneof=pending processing completed failed cancelled"`
	Amount        string            `cbor:"amount" validate:"required,numeric"`
	Currency      string            `cbor:"currency" validate:"required,iso4217"`
	Counterparty  string            `cbor:"counterparty,omitempty"`
	Description   string            `cbor:"description,omitempty"`
	FailureReason string            `cbor:"failureReason,omitempty"`
	UpdatedAt     time.Time         `cbor:"updatedAt"`
}

// Key returns the cache key of the transaction snapshot.
func (u TransactionUpdate) Key() EntityKey {
	return NewEntityKey(EntityTransaction, u.TransactionID)
}

// PaymentUpdate describes money arriving in or leaving a wallet.
type PaymentUpdate struct {
	PaymentID     string    `cbor:"paymentId" validate:"required"`
	TransactionID string    `cbor:"transactionId,omitempty"`
	WalletID      string    `cbor:"walletId" validate:"required"`
	Amount        string    `cbor:"amount" validate:"required,numeric"`
	Currency      string    `cbor:"currency" validate:"required,iso4217"`
	Counterparty  string    `cbor:"counterparty,omitempty"`
	Note          string    `cbor:"note,omitempty"`
	OccurredAt    time.Time `cbor:"occurredAt"`
}

// Key returns the cache key of the payment snapshot.
func (u PaymentUpdate) Key() EntityKey {
	return NewEntityKey(EntityPayment, u.PaymentID)
}

// BalanceUpdate is the latest balance of a wallet.
type BalanceUpdate struct {
	WalletID  string    `cbor:"walletId" validate:"required"`
	Available string    `cbor:"available" validate:"required,numeric"`
	Ledger    string    `cbor:"ledger,omitempty" validate:"omitempty,numeric"`
	Pending   string    `cbor:"pending,omitempty" validate:"omitempty,numeric"`
	Currency  string    `cbor:"currency" validate:"required,iso4217"`
	UpdatedAt time.Time `cbor:"updatedAt"`
}

// Key returns the cache key of the wallet balance snapshot.
func (u BalanceUpdate) Key() EntityKey {
	return NewEntityKey(EntityWallet, u.WalletID)
}

// CheckDepositStatus is the processing status of a mobile check deposit.
type CheckDepositStatus string

const (
	CheckDepositReceived   CheckDepositStatus = "received"
	CheckDepositProcessing CheckDepositStatus = "processing"
	CheckDepositCompleted  CheckDepositStatus = "completed"
	CheckDepositRejected   CheckDepositStatus = "rejected"
)

// CheckDepositUpdate is a status change of a check deposit.
type CheckDepositUpdate struct {
	DepositID       string             `cbor:"depositId" validate:"required"`
	WalletID        string             `cbor:"walletId,omitempty"`
	Status          CheckDepositStatus `cbor:"status" validate:"required,oneof=received processing completed rejected"`
	Amount          string             `cbor:"amount" validate:"required,numeric"`
	Currency        string             `cbor:"currency" validate:"required,iso4217"`
	RejectionReason string             `cbor:"rejectionReason,omitempty"`
	UpdatedAt       time.Time          `cbor:"updatedAt"`
}

// Key returns the cache key of the deposit snapshot.
func (u CheckDepositUpdate) Key() EntityKey {
	return NewEntityKey(EntityCheckDeposit, u.DepositID)
}

// NotificationKind classifies a notification for presentation.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Well-known notification action ids.
const (
	ActionRetry       = "retry"
	ActionViewDetails = "view_details"
)

// NotificationAction is a follow-up the user can take from a notification.
type NotificationAction struct {
	ID    string `cbor:"id" validate:"required"`
	Label string `cbor:"label" validate:"required"`
}

// Notification is a user-facing notification record. Notifications arrive
// from the server or are created locally from transaction and deposit
// status changes.
type Notification struct {
	ID        string               `cbor:"id" validate:"required"`
	Kind      NotificationKind     `cbor:"kind" validate:"required,oneof=info success error"`
	Title     string               `cbor:"title" validate:"required"`
	Message   string               `cbor:"message,omitempty"`
	Actions   []NotificationAction `cbor:"actions,omitempty" validate:"dive"`
	Related   EntityKey            `cbor:"related,omitempty"`
	CreatedAt time.Time            `cbor:"createdAt"`
}

// AlertSeverity is the urgency of an alert.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Alert is a security or account alert pushed by the server.
type Alert struct {
	ID        string        `cbor:"id" validate:"required"`
	Severity  AlertSeverity `cbor:"severity" validate:"required,oneof=info warning critical"`
	Title     string        `cbor:"title" validate:"required"`
	Message   string        `cbor:"message,omitempty"`
	CreatedAt time.Time     `cbor:"createdAt"`
}
