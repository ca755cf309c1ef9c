package wire

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/waqiti/realtime-go/pkg/model"
)

// Envelope validation errors.
var (
	ErrInvalidKind      = errors.New("invalid envelope kind")
	ErrMissingTopic     = errors.New("envelope requires a topic")
	ErrMissingEvent     = errors.New("event envelope requires an event name")
	ErrMissingPayload   = errors.New("envelope requires a payload")
	ErrMissingErrorBody = errors.New("error envelope requires an error body")
)

// Kind identifies the purpose of an envelope.
type Kind uint8

const (
	// KindAuth authenticates the connection (client to server).
	KindAuth Kind = 1

	// KindAuthenticated acknowledges a successful KindAuth.
	KindAuthenticated Kind = 2

	// KindSubscribe starts delivery of a topic (client to server).
	KindSubscribe Kind = 3

	// KindUnsubscribe stops delivery of a topic (client to server).
	KindUnsubscribe Kind = 4

	// KindEvent carries one server pushed update.
	KindEvent Kind = 5

	// KindAck acknowledges a subscribe or unsubscribe.
	KindAck Kind = 6

	// KindError reports a failed request or a rejected connection.
	KindError Kind = 7
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "AUTH"
	case KindAuthenticated:
		return "AUTHENTICATED"
	case KindSubscribe:
		return "SUBSCRIBE"
	case KindUnsubscribe:
		return "UNSUBSCRIBE"
	case KindEvent:
		return "EVENT"
	case KindAck:
		return "ACK"
	case KindError:
		return "ERROR"
	default:
		return fmt.Sprintf("KIND(%d)", k)
	}
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k >= KindAuth && k <= KindError
}

// EventName names a server pushed event.
type EventName string

const (
	EventTransactionCreated  EventName = "transaction.created"
	EventTransactionUpdated  EventName = "transaction.updated"
	EventPaymentReceived     EventName = "payment.received"
	EventPaymentSent         EventName = "payment.sent"
	EventBalanceChanged      EventName = "balance.changed"
	EventCheckDepositUpdated EventName = "check_deposit.updated"
	EventNotification        EventName = "notification"
	EventAlert               EventName = "alert"
)

// Error codes carried in ErrorBody.
const (
	CodeUnauthorized uint16 = 401
	CodeBadRequest   uint16 = 400
	CodeUnknownTopic uint16 = 404
	CodeInternal     uint16 = 500
)

// ErrorBody describes a failure reported by the peer.
type ErrorBody struct {
	Code    uint16 `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint,omitempty"`
}

// Error implements error.
func (e *ErrorBody) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// AuthPayload is the payload of a KindAuth envelope.
type AuthPayload struct {
	UserID string `cbor:"userId"`
	Token  string `cbor:"token"`
}

// Envelope is the single message type exchanged on the socket.
type Envelope struct {
	Kind      Kind            `cbor:"1,keyasint"`
	MessageID uint32          `cbor:"2,keyasint,omitempty"`
	Topic     *model.Topic    `cbor:"3,keyasint,omitempty"`
	Event     EventName       `cbor:"4,keyasint,omitempty"`
	Payload   cbor.RawMessage `cbor:"5,keyasint,omitempty"`
	Timestamp int64           `cbor:"6,keyasint,omitempty"`
	Error     *ErrorBody      `cbor:"7,keyasint,omitempty"`
}

// Validate checks that the fields required by the kind are present.
func (e *Envelope) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidKind, e.Kind)
	}
	switch e.Kind {
	case KindAuth:
		if len(e.Payload) == 0 {
			return ErrMissingPayload
		}
	case KindSubscribe, KindUnsubscribe:
		if e.Topic == nil {
			return ErrMissingTopic
		}
		if err := e.Topic.Validate(); err != nil {
			return err
		}
	case KindEvent:
		if e.Event == "" {
			return ErrMissingEvent
		}
		if len(e.Payload) == 0 {
			return ErrMissingPayload
		}
	case KindError:
		if e.Error == nil {
			return ErrMissingErrorBody
		}
	}
	return nil
}

// Time returns the envelope timestamp, or the zero time if unset.
func (e *Envelope) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.Timestamp)
}

// NewAuth builds an authentication request.
func NewAuth(messageID uint32, userID, token string) (*Envelope, error) {
	payload, err := EncodePayload(AuthPayload{UserID: userID, Token: token})
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Kind:      KindAuth,
		MessageID: messageID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// NewSubscribe builds a subscribe request for topic.
func NewSubscribe(messageID uint32, topic model.Topic) *Envelope {
	return &Envelope{
		Kind:      KindSubscribe,
		MessageID: messageID,
		Topic:     &topic,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewUnsubscribe builds an unsubscribe request for topic.
func NewUnsubscribe(messageID uint32, topic model.Topic) *Envelope {
	return &Envelope{
		Kind:      KindUnsubscribe,
		MessageID: messageID,
		Topic:     &topic,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewEvent builds a server pushed event carrying payload.
func NewEvent(name EventName, topic *model.Topic, payload any) (*Envelope, error) {
	raw, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Kind:      KindEvent,
		Topic:     topic,
		Event:     name,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// NewError builds an error envelope answering messageID.
func NewError(messageID uint32, code uint16, message string) *Envelope {
	return &Envelope{
		Kind:      KindError,
		MessageID: messageID,
		Error:     &ErrorBody{Code: code, Message: message},
		Timestamp: time.Now().UnixMilli(),
	}
}
