// Package connection provides connection lifecycle management for the
// realtime update client.
//
// This package handles:
//   - The connection state machine
//   - Capped exponential backoff for reconnection attempts
//   - A bounded number of reconnection attempts
//   - Cancellable retry scheduling
//
// # States
//
//	DISCONNECTED -> CONNECTING -> CONNECTED
//	CONNECTED --(loss)--> RECONNECTING -> CONNECTING -> CONNECTED | RECONNECTING | FAILED
//
// FAILED and DISCONNECTED are terminal until Connect is called again.
// ReconnectNow leaves RECONNECTING or FAILED for an immediate attempt.
//
// # Reconnection Strategy
//
// After a connection loss, attempt n (0-based) waits
//
//	min(1s * 2^n, 5s)
//
// giving 1s, 2s, 4s, 5s, 5s. After five failed attempts the manager enters
// FAILED and stops retrying. Jitter is off by default:
//
//	actual_delay = base_delay + random(0, base_delay * jitter)
//
// # Success Criteria
//
// An attempt succeeds when the DialFunc returns a link, which for the
// realtime client means the socket is open and the server acknowledged
// authentication. Each attempt is bounded by ConnectTimeout (20s).
package connection
