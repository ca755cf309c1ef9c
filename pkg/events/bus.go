package events

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Handler receives events of the type it was registered for.
type Handler func(Event)

// HandlerID identifies a registration for Off.
type HandlerID uint64

type registration struct {
	id HandlerID
	fn Handler
}

// Bus delivers events to handlers synchronously, in registration order.
// A panicking handler is recovered and logged; the remaining handlers still
// run. It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]registration
	all      []registration
	nextID   HandlerID
	logger   *slog.Logger
}

// NewBus creates a bus. A nil logger uses slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[Type][]registration),
		logger:   logger,
	}
}

// On registers fn for events of type t.
func (b *Bus) On(t Type, fn Handler) HandlerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[t] = append(b.handlers[t], registration{id: b.nextID, fn: fn})
	return b.nextID
}

// OnAll registers fn for every event.
func (b *Bus) OnAll(fn Handler) HandlerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.all = append(b.all, registration{id: b.nextID, fn: fn})
	return b.nextID
}

// Off removes the registration id for type t. It reports whether a
// registration was removed. Handlers registered with OnAll are removed with
// any t.
func (b *Bus) Off(t Type, id HandlerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if regs, ok := removeID(b.handlers[t], id); ok {
		if len(regs) == 0 {
			delete(b.handlers, t)
		} else {
			b.handlers[t] = regs
		}
		return true
	}
	if regs, ok := removeID(b.all, id); ok {
		b.all = regs
		return true
	}
	return false
}

// HandlerCount returns the number of handlers registered for t, not
// counting OnAll handlers.
func (b *Bus) HandlerCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[t])
}

// Publish delivers e to the handlers of its type, then to OnAll handlers.
func (b *Bus) Publish(e Event) {
	t := e.EventType()

	b.mu.RLock()
	regs := make([]registration, 0, len(b.handlers[t])+len(b.all))
	regs = append(regs, b.handlers[t]...)
	regs = append(regs, b.all...)
	b.mu.RUnlock()

	for _, r := range regs {
		b.invoke(t, r, e)
	}
}

func (b *Bus) invoke(t Type, r registration, e Event) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("event handler panicked",
				"type", t.String(),
				"handler", uint64(r.id),
				"panic", fmt.Sprint(p),
				"stack", string(debug.Stack()))
		}
	}()
	r.fn(e)
}

func removeID(regs []registration, id HandlerID) ([]registration, bool) {
	for i, r := range regs {
		if r.id == id {
			out := make([]registration, 0, len(regs)-1)
			out = append(out, regs[:i]...)
			return append(out, regs[i+1:]...), true
		}
	}
	return regs, false
}

// Handle registers a handler that receives the concrete variant E. Events of
// type t that are not an E are ignored.
func Handle[E Event](b *Bus, t Type, fn func(E)) HandlerID {
	return b.On(t, func(e Event) {
		if v, ok := e.(E); ok {
			fn(v)
		}
	})
}
