package log

import (
	"strings"
	"time"

	"github.com/waqiti/realtime-go/pkg/wire"
)

// Event is one captured protocol event.
type Event struct {
	// Timestamp with nanosecond precision.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the connection attempt (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// RemoteAddr is the server address.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// UserID is the authenticated user, once known.
	UserID string `cbor:"7,keyasint,omitempty"`

	// Exactly one of these is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Control     *ControlEvent     `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction of a captured message.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection parses the String form, case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(s) {
	case "IN":
		return DirectionIn, true
	case "OUT":
		return DirectionOut, true
	}
	return 0, false
}

// Layer is the protocol layer that captured the event.
type Layer uint8

const (
	// LayerTransport sees websocket frames.
	LayerTransport Layer = 0
	// LayerWire sees decoded envelopes.
	LayerWire Layer = 1
	// LayerService sees connection and session lifecycle.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryControl Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent is a raw binary websocket frame.
type FrameEvent struct {
	Size int `cbor:"1,keyasint"`

	// Data holds at most MaxFrameCapture bytes.
	Data      []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`
}

// MaxFrameCapture is the number of frame bytes kept in a FrameEvent.
const MaxFrameCapture = 4096

// MessageEvent is a decoded envelope.
type MessageEvent struct {
	Kind      wire.Kind      `cbor:"1,keyasint"`
	MessageID uint32         `cbor:"2,keyasint,omitempty"`
	Topic     string         `cbor:"3,keyasint,omitempty"`
	Event     wire.EventName `cbor:"4,keyasint,omitempty"`

	// PayloadSize is the encoded payload length in bytes.
	PayloadSize int `cbor:"5,keyasint,omitempty"`

	// Payload is the decoded payload in generic form.
	Payload any `cbor:"6,keyasint,omitempty"`

	ErrorCode uint16 `cbor:"7,keyasint,omitempty"`
}

// StateChangeEvent records a lifecycle transition.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity is what changed state.
type StateEntity uint8

const (
	StateEntityConnection   StateEntity = 0
	StateEntitySession      StateEntity = 1
	StateEntitySubscription StateEntity = 2
	StateEntityNetwork      StateEntity = 3
)

// String returns the entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySession:
		return "SESSION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityNetwork:
		return "NETWORK"
	default:
		return "UNKNOWN"
	}
}

// ControlEvent is a websocket control frame.
type ControlEvent struct {
	Type ControlType `cbor:"1,keyasint"`

	// Seq is the keepalive sequence for ping and pong.
	Seq uint32 `cbor:"2,keyasint,omitempty"`

	// RTT is set on pongs that answer a tracked ping.
	RTT time.Duration `cbor:"3,keyasint,omitempty"`

	// CloseCode is the websocket close status for close frames.
	CloseCode int `cbor:"4,keyasint,omitempty"`
}

// ControlType is the kind of control frame.
type ControlType uint8

const (
	ControlPing  ControlType = 0
	ControlPong  ControlType = 1
	ControlClose ControlType = 2
)

// String returns the control frame name.
func (c ControlType) String() string {
	switch c {
	case ControlPing:
		return "PING"
	case ControlPong:
		return "PONG"
	case ControlClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData is an error at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context names the operation that failed, e.g. "dial" or "replay".
	Context string `cbor:"3,keyasint,omitempty"`
}
