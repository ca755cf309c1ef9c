package log

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waqiti/realtime-go/pkg/wire"
)

// ConnLog stamps captured events with the identity of one connection.
// A nil *ConnLog discards everything, so callers need no nil checks.
type ConnLog struct {
	logger Logger
	id     string
	remote string
	now    func() time.Time

	mu     sync.RWMutex
	userID string
}

// NewConnLog returns a ConnLog with a fresh connection id. It returns nil
// when logger is nil.
func NewConnLog(logger Logger, remoteAddr string) *ConnLog {
	if logger == nil {
		return nil
	}
	return &ConnLog{
		logger: logger,
		id:     uuid.NewString(),
		remote: remoteAddr,
		now:    time.Now,
	}
}

// ID returns the connection id.
func (c *ConnLog) ID() string {
	if c == nil {
		return ""
	}
	return c.id
}

// SetUserID records the authenticated user on later events.
func (c *ConnLog) SetUserID(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

func (c *ConnLog) base(dir Direction, layer Layer, cat Category) Event {
	c.mu.RLock()
	user := c.userID
	c.mu.RUnlock()
	return Event{
		Timestamp:    c.now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        layer,
		Category:     cat,
		RemoteAddr:   c.remote,
		UserID:       user,
	}
}

// Frame captures a raw frame.
func (c *ConnLog) Frame(dir Direction, data []byte) {
	if c == nil {
		return
	}
	f := &FrameEvent{Size: len(data)}
	if len(data) > MaxFrameCapture {
		f.Data = append([]byte(nil), data[:MaxFrameCapture]...)
		f.Truncated = true
	} else {
		f.Data = append([]byte(nil), data...)
	}
	e := c.base(dir, LayerTransport, CategoryMessage)
	e.Frame = f
	c.logger.Log(e)
}

// Message captures a decoded envelope. Payloads that fail to decode are
// recorded by size only.
func (c *ConnLog) Message(dir Direction, env *wire.Envelope) {
	if c == nil || env == nil {
		return
	}
	m := &MessageEvent{
		Kind:        env.Kind,
		MessageID:   env.MessageID,
		Event:       env.Event,
		PayloadSize: len(env.Payload),
	}
	if env.Topic != nil {
		m.Topic = env.Topic.String()
	}
	if len(env.Payload) > 0 {
		var payload any
		if err := wire.DecodePayload(env.Payload, &payload); err == nil {
			m.Payload = payload
		}
	}
	if env.Error != nil {
		m.ErrorCode = env.Error.Code
	}
	e := c.base(dir, LayerWire, CategoryMessage)
	e.Message = m
	c.logger.Log(e)
}

// State captures a lifecycle transition.
func (c *ConnLog) State(entity StateEntity, oldState, newState, reason string) {
	if c == nil {
		return
	}
	e := c.base(DirectionIn, LayerService, CategoryState)
	e.StateChange = &StateChangeEvent{
		Entity:   entity,
		OldState: oldState,
		NewState: newState,
		Reason:   reason,
	}
	c.logger.Log(e)
}

// Control captures a ping, pong or close frame.
func (c *ConnLog) Control(dir Direction, ctrl ControlEvent) {
	if c == nil {
		return
	}
	e := c.base(dir, LayerTransport, CategoryControl)
	e.Control = &ctrl
	c.logger.Log(e)
}

// Error captures a failure. A nil err is ignored.
func (c *ConnLog) Error(layer Layer, context string, err error) {
	if c == nil || err == nil {
		return
	}
	e := c.base(DirectionIn, layer, CategoryError)
	e.Error = &ErrorEventData{
		Layer:   layer,
		Message: err.Error(),
		Context: context,
	}
	c.logger.Log(e)
}
