package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/waqiti/realtime-go/pkg/model"
	"github.com/waqiti/realtime-go/pkg/persistence"
	"github.com/waqiti/realtime-go/pkg/wire"
)

// ErrWrite is returned when an update could not be stored.
var ErrWrite = errors.New("cache write failed")

// Default history caps.
const (
	DefaultTransactionHistoryCap  = 100
	DefaultNotificationHistoryCap = 50
	DefaultAlertHistoryCap        = 50
)

// Store keys.
const (
	snapshotPrefix         = "snapshot:"
	historyTransactionsKey = "history:transactions"
	historyNotificationKey = "history:notifications"
	historyAlertsKey       = "history:alerts"
)

// Config configures the history caps of a LocalCache.
type Config struct {
	TransactionHistoryCap  int
	NotificationHistoryCap int
	AlertHistoryCap        int
}

// DefaultConfig returns the default history caps.
func DefaultConfig() Config {
	return Config{
		TransactionHistoryCap:  DefaultTransactionHistoryCap,
		NotificationHistoryCap: DefaultNotificationHistoryCap,
		AlertHistoryCap:        DefaultAlertHistoryCap,
	}
}

// CachedUpdate is the stored snapshot of one entity.
type CachedUpdate struct {
	Key       model.EntityKey  `cbor:"1,keyasint"`
	Kind      model.EntityKind `cbor:"2,keyasint"`
	Payload   cbor.RawMessage  `cbor:"3,keyasint"`
	ArrivedAt time.Time        `cbor:"4,keyasint"`
}

// Decode decodes the payload into v.
func (u CachedUpdate) Decode(v any) error {
	return wire.DecodePayload(u.Payload, v)
}

// LocalCache is the snapshot and history cache. It is safe for concurrent
// use; writes are serialized.
type LocalCache struct {
	mu     sync.Mutex
	store  persistence.Store
	config Config
	logger *slog.Logger

	now func() time.Time
}

// New creates a cache over store with default caps.
func New(store persistence.Store, logger *slog.Logger) *LocalCache {
	return NewWithConfig(store, DefaultConfig(), logger)
}

// NewWithConfig creates a cache over store. Zero caps are replaced by the
// defaults.
func NewWithConfig(store persistence.Store, config Config, logger *slog.Logger) *LocalCache {
	if config.TransactionHistoryCap <= 0 {
		config.TransactionHistoryCap = DefaultTransactionHistoryCap
	}
	if config.NotificationHistoryCap <= 0 {
		config.NotificationHistoryCap = DefaultNotificationHistoryCap
	}
	if config.AlertHistoryCap <= 0 {
		config.AlertHistoryCap = DefaultAlertHistoryCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalCache{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Write stores payload as the latest snapshot of key.
func (c *LocalCache) Write(key model.EntityKey, kind model.EntityKind, payload any) error {
	raw, err := wire.EncodePayload(payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, key, err)
	}
	data, err := wire.Marshal(CachedUpdate{
		Key:       key,
		Kind:      kind,
		Payload:   raw,
		ArrivedAt: c.now(),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Put(snapshotPrefix+string(key), data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, key, err)
	}
	return nil
}

// Read returns the snapshot of key. Missing and unreadable entries both
// report false; unreadable entries are logged.
func (c *LocalCache) Read(key model.EntityKey) (CachedUpdate, bool) {
	data, err := c.store.Get(snapshotPrefix + string(key))
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return CachedUpdate{}, false
	}

	var u CachedUpdate
	if err := wire.Unmarshal(data, &u); err != nil {
		c.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return CachedUpdate{}, false
	}
	return u, true
}

// Keys lists the cached snapshot keys of one entity kind.
func (c *LocalCache) Keys(kind model.EntityKind) []model.EntityKey {
	keys, err := c.store.Keys(snapshotPrefix + string(kind) + ":")
	if err != nil {
		c.logger.Warn("cache key listing failed", "kind", kind, "error", err)
		return nil
	}
	out := make([]model.EntityKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.EntityKey(k[len(snapshotPrefix):]))
	}
	return out
}

// Transaction returns the latest snapshot of a transaction.
func (c *LocalCache) Transaction(id string) (model.TransactionUpdate, bool) {
	return readTyped[model.TransactionUpdate](c, model.NewEntityKey(model.EntityTransaction, id))
}

// Payment returns the latest snapshot of a payment.
func (c *LocalCache) Payment(id string) (model.PaymentUpdate, bool) {
	return readTyped[model.PaymentUpdate](c, model.NewEntityKey(model.EntityPayment, id))
}

// Balance returns the latest balance of a wallet.
func (c *LocalCache) Balance(walletID string) (model.BalanceUpdate, bool) {
	return readTyped[model.BalanceUpdate](c, model.NewEntityKey(model.EntityWallet, walletID))
}

// CheckDeposit returns the latest snapshot of a check deposit.
func (c *LocalCache) CheckDeposit(id string) (model.CheckDepositUpdate, bool) {
	return readTyped[model.CheckDepositUpdate](c, model.NewEntityKey(model.EntityCheckDeposit, id))
}

// AppendTransactionUpdate prepends u to the transaction history.
func (c *LocalCache) AppendTransactionUpdate(u model.TransactionUpdate) error {
	return prependHistory(c, historyTransactionsKey, u, c.config.TransactionHistoryCap)
}

// AppendNotification prepends n to the notification history.
func (c *LocalCache) AppendNotification(n model.Notification) error {
	return prependHistory(c, historyNotificationKey, n, c.config.NotificationHistoryCap)
}

// AppendAlert prepends a to the alert history.
func (c *LocalCache) AppendAlert(a model.Alert) error {
	return prependHistory(c, historyAlertsKey, a, c.config.AlertHistoryCap)
}

// TransactionUpdates returns the transaction history, newest first.
func (c *LocalCache) TransactionUpdates() []model.TransactionUpdate {
	return readHistory[model.TransactionUpdate](c, historyTransactionsKey)
}

// Notifications returns the notification history, newest first.
func (c *LocalCache) Notifications() []model.Notification {
	return readHistory[model.Notification](c, historyNotificationKey)
}

// Alerts returns the alert history, newest first.
func (c *LocalCache) Alerts() []model.Alert {
	return readHistory[model.Alert](c, historyAlertsKey)
}

func readTyped[T any](c *LocalCache, key model.EntityKey) (T, bool) {
	var v T
	u, ok := c.Read(key)
	if !ok {
		return v, false
	}
	if err := u.Decode(&v); err != nil {
		c.logger.Warn("cache payload unreadable", "key", key, "error", err)
		return v, false
	}
	return v, true
}

func loadHistory[T any](c *LocalCache, key string) ([]T, error) {
	data, err := c.store.Get(key)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []T
	if err := wire.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func readHistory[T any](c *LocalCache, key string) []T {
	items, err := loadHistory[T](c, key)
	if err != nil {
		c.logger.Warn("cache history unreadable", "key", key, "error", err)
		return nil
	}
	return items
}

func prependHistory[T any](c *LocalCache, key string, item T, limit int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := loadHistory[T](c, key)
	if err != nil {
		// An unreadable history is replaced rather than blocking new entries.
		c.logger.Warn("cache history reset", "key", key, "error", err)
		items = nil
	}

	next := make([]T, 0, min(len(items)+1, limit))
	next = append(next, item)
	next = append(next, items[:min(len(items), limit-1)]...)

	data, err := wire.Marshal(next)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, key, err)
	}
	if err := c.store.Put(key, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, key, err)
	}
	return nil
}
