package outbox

import (
	"sync"
	"time"

	"github.com/waqiti/realtime-go/pkg/model"
)

// OpKind is the kind of a queued operation.
type OpKind uint8

const (
	// OpSubscribe sends a subscribe for the topic.
	OpSubscribe OpKind = iota + 1

	// OpUnsubscribe sends an unsubscribe for the topic.
	OpUnsubscribe
)

// String returns the operation name.
func (k OpKind) String() string {
	switch k {
	case OpSubscribe:
		return "SUBSCRIBE"
	case OpUnsubscribe:
		return "UNSUBSCRIBE"
	default:
		return "UNKNOWN"
	}
}

// Operation is a subscription change waiting for a connection.
type Operation struct {
	Kind       OpKind
	Topic      model.Topic
	EnqueuedAt time.Time
}

// Queue is a FIFO of pending operations. It is safe for concurrent use.
type Queue struct {
	mu  sync.Mutex
	ops []Operation

	onDepth func(depth int)
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// OnDepth sets a callback invoked with the queue length after it changes.
func (q *Queue) OnDepth(fn func(depth int)) {
	q.mu.Lock()
	q.onDepth = fn
	q.mu.Unlock()
}

// Enqueue appends an operation. A zero EnqueuedAt is set to now.
func (q *Queue) Enqueue(op Operation) {
	if op.EnqueuedAt.IsZero() {
		op.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	q.ops = append(q.ops, op)
	depth, cb := len(q.ops), q.onDepth
	q.mu.Unlock()

	if cb != nil {
		cb(depth)
	}
}

// Drain removes and returns all operations in enqueue order. The queue is
// empty afterwards; an operation is returned by at most one Drain call.
func (q *Queue) Drain() []Operation {
	q.mu.Lock()
	ops := q.ops
	q.ops = nil
	cb := q.onDepth
	q.mu.Unlock()

	if cb != nil && len(ops) > 0 {
		cb(0)
	}
	return ops
}

// Len returns the number of queued operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Clear discards all queued operations.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.ops = nil
	cb := q.onDepth
	q.mu.Unlock()

	if cb != nil {
		cb(0)
	}
}
