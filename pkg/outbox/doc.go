// Package outbox queues subscription operations issued while the client is
// offline.
//
// The Queue is strict FIFO and unbounded. It is drained exactly once after
// every successful connect, before the subscription registry is replayed, so
// that an operation issued while offline reaches the server in the order it
// was issued.
package outbox
