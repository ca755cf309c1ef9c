package router

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/waqiti/realtime-go/pkg/events"
	"github.com/waqiti/realtime-go/pkg/model"
	"github.com/waqiti/realtime-go/pkg/wire"
)

// Router errors.
var (
	ErrMalformedPayload = errors.New("malformed event payload")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrCacheWrite       = errors.New("cache write failed")
	ErrNotAnEvent       = errors.New("envelope is not an event")
)

// Drop reasons reported to the Observer.
const (
	ReasonMalformed = "malformed"
	ReasonUnknown   = "unknown"
)

// Cache is the write side of the local cache.
type Cache interface {
	Write(key model.EntityKey, kind model.EntityKind, payload any) error
	AppendTransactionUpdate(u model.TransactionUpdate) error
	AppendNotification(n model.Notification) error
	AppendAlert(a model.Alert) error
}

// Publisher delivers events to handlers.
type Publisher interface {
	Publish(e events.Event)
}

// Observer receives routing counters. All methods must be cheap.
type Observer interface {
	EventReceived(name string)
	EventDropped(name, reason string)
	CacheWriteFailed()
}

// Config configures a Router.
type Config struct {
	Cache     Cache
	Publisher Publisher

	// Observer is optional.
	Observer Observer

	// Logger is optional; nil uses slog.Default().
	Logger *slog.Logger

	// NewID generates notification ids. nil uses uuid.NewString.
	NewID func() string

	// Now returns the current time. nil uses time.Now.
	Now func() time.Time
}

// Router routes inbound events. Route must be called from a single
// goroutine; events are handled in the order Route is called.
type Router struct {
	cache    Cache
	pub      Publisher
	observer Observer
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time

	handlers map[wire.EventName]func(*wire.Envelope) error
}

// New creates a router.
func New(cfg Config) *Router {
	r := &Router{
		cache:    cfg.Cache,
		pub:      cfg.Publisher,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		newID:    cfg.NewID,
		now:      cfg.Now,
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.now == nil {
		r.now = time.Now
	}

	r.handlers = map[wire.EventName]func(*wire.Envelope) error{
		wire.EventTransactionCreated:  r.transaction(events.TypeTransactionCreated),
		wire.EventTransactionUpdated:  r.transaction(events.TypeTransactionUpdated),
		wire.EventPaymentReceived:     r.payment(events.TypePaymentReceived),
		wire.EventPaymentSent:         r.payment(events.TypePaymentSent),
		wire.EventBalanceChanged:      r.balance,
		wire.EventCheckDepositUpdated: r.checkDeposit,
		wire.EventNotification:        r.notification,
		wire.EventAlert:               r.alert,
	}
	return r
}

// Route handles one inbound event envelope. The returned error is
// informational: ErrUnknownEvent and ErrMalformedPayload mean the event was
// dropped. Cache failures are reported as ERROR events and do not produce
// an error here.
func (r *Router) Route(env *wire.Envelope) error {
	if env.Kind != wire.KindEvent {
		return fmt.Errorf("%w: %s", ErrNotAnEvent, env.Kind)
	}

	name := string(env.Event)
	handle, ok := r.handlers[env.Event]
	if !ok {
		r.logger.Debug("dropping unknown event", "event", name)
		r.observer.EventDropped(name, ReasonUnknown)
		return fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}

	r.observer.EventReceived(name)
	if err := handle(env); err != nil {
		if errors.Is(err, ErrMalformedPayload) {
			r.logger.Warn("dropping malformed event", "event", name, "error", err)
			r.observer.EventDropped(name, ReasonMalformed)
			r.pub.Publish(events.ErrorEvent{
				Kind:  events.ErrorMalformedPayload,
				Err:   err,
				Topic: env.Topic,
				Event: name,
			})
		}
		return err
	}
	return nil
}

// decode decodes and validates the payload of env into v.
func decode(env *wire.Envelope, v any) error {
	if err := wire.DecodePayload(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if err := model.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return nil
}

// cacheFailed reports a failed cache write and lets dispatch continue.
func (r *Router) cacheFailed(env *wire.Envelope, err error) {
	err = fmt.Errorf("%w: %w", ErrCacheWrite, err)
	r.logger.Error("cache write failed", "event", string(env.Event), "error", err)
	r.observer.CacheWriteFailed()
	r.pub.Publish(events.ErrorEvent{
		Kind:  events.ErrorCacheWrite,
		Err:   err,
		Topic: env.Topic,
		Event: string(env.Event),
	})
}

func (r *Router) transaction(raw events.Type) func(*wire.Envelope) error {
	return func(env *wire.Envelope) error {
		var u model.TransactionUpdate
		if err := decode(env, &u); err != nil {
			return err
		}

		if err := r.cache.Write(u.Key(), model.EntityTransaction, u); err != nil {
			r.cacheFailed(env, err)
		}
		if err := r.cache.AppendTransactionUpdate(u); err != nil {
			r.cacheFailed(env, err)
		}

		r.pub.Publish(events.TransactionEvent{Type: raw, Update: u})

		switch u.Status {
		case model.TransactionStatusCompleted:
			r.pub.Publish(events.TransactionEvent{Type: events.TypeTransactionCompleted, Update: u})
			r.notify(env, transactionCompletedNotification(u))
		case model.TransactionStatusFailed:
			r.pub.Publish(events.TransactionEvent{Type: events.TypeTransactionFailed, Update: u})
			r.notify(env, transactionFailedNotification(u))
		case model.TransactionStatusPending:
			r.pub.Publish(events.TransactionEvent{Type: events.TypeTransactionPending, Update: u})
		}
		return nil
	}
}

func (r *Router) payment(raw events.Type) func(*wire.Envelope) error {
	return func(env *wire.Envelope) error {
		var p model.PaymentUpdate
		if err := decode(env, &p); err != nil {
			return err
		}

		if err := r.cache.Write(p.Key(), model.EntityPayment, p); err != nil {
			r.cacheFailed(env, err)
		}

		r.pub.Publish(events.PaymentEvent{Type: raw, Payment: p})

		if raw == events.TypePaymentReceived {
			r.notify(env, paymentReceivedNotification(p))
		}
		return nil
	}
}

func (r *Router) balance(env *wire.Envelope) error {
	var b model.BalanceUpdate
	if err := decode(env, &b); err != nil {
		return err
	}

	if err := r.cache.Write(b.Key(), model.EntityWallet, b); err != nil {
		r.cacheFailed(env, err)
	}

	r.pub.Publish(events.BalanceEvent{Balance: b})
	return nil
}

func (r *Router) checkDeposit(env *wire.Envelope) error {
	var d model.CheckDepositUpdate
	if err := decode(env, &d); err != nil {
		return err
	}

	if err := r.cache.Write(d.Key(), model.EntityCheckDeposit, d); err != nil {
		r.cacheFailed(env, err)
	}

	switch d.Status {
	case model.CheckDepositReceived:
		r.pub.Publish(events.CheckDepositEvent{Type: events.TypeCheckDepositReceived, Deposit: d})
	case model.CheckDepositProcessing:
		r.pub.Publish(events.CheckDepositEvent{Type: events.TypeCheckDepositProcessing, Deposit: d})
	case model.CheckDepositCompleted:
		r.pub.Publish(events.CheckDepositEvent{Type: events.TypeCheckDepositCompleted, Deposit: d})
		r.notify(env, depositCompletedNotification(d))
	case model.CheckDepositRejected:
		r.pub.Publish(events.CheckDepositEvent{Type: events.TypeCheckDepositRejected, Deposit: d})
		r.notify(env, depositRejectedNotification(d))
	}
	return nil
}

func (r *Router) notification(env *wire.Envelope) error {
	var n model.Notification
	if err := decode(env, &n); err != nil {
		return err
	}

	if err := r.cache.AppendNotification(n); err != nil {
		r.cacheFailed(env, err)
	}

	r.pub.Publish(events.NotificationEvent{Notification: n})
	return nil
}

func (r *Router) alert(env *wire.Envelope) error {
	var a model.Alert
	if err := decode(env, &a); err != nil {
		return err
	}

	if err := r.cache.AppendAlert(a); err != nil {
		r.cacheFailed(env, err)
	}

	r.pub.Publish(events.AlertEvent{Alert: a})
	return nil
}

// notify completes a locally created notification, caches it and publishes
// it.
func (r *Router) notify(env *wire.Envelope, n model.Notification) {
	n.ID = r.newID()
	n.CreatedAt = r.now()

	if err := r.cache.AppendNotification(n); err != nil {
		r.cacheFailed(env, err)
	}
	r.pub.Publish(events.NotificationEvent{Notification: n})
}

type nopObserver struct{}

func (nopObserver) EventReceived(string)        {}
func (nopObserver) EventDropped(string, string) {}
func (nopObserver) CacheWriteFailed()           {}
