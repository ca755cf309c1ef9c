// Package subscription tracks the topics the client wants to receive.
//
// The Registry is the source of truth for desired subscriptions. It is
// independent of connection state: topics stay registered across network
// loss and are replayed to the server after every successful connect.
//
// # Lifecycle
//
// Server side subscriptions do NOT survive connection loss. On reconnect the
// client re-sends a subscribe for every topic in the registry, in Snapshot
// order. Only an explicit Disconnect clears the registry.
package subscription
