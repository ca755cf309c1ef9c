// Package transport provides the WebSocket transport of the realtime client.
//
// The transport layer handles:
//   - WebSocket connections (ws:// and wss://)
//   - One binary message per CBOR envelope
//   - Keep-alive ping/pong for connection liveness
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Envelopes            │
//	├────────────────────────────────┤
//	│   WebSocket binary messages    │
//	├────────────────────────────────┤
//	│   TLS 1.2+ (wss:// only)       │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Keep-Alive
//
// Liveness is monitored with WebSocket ping control frames carrying a
// 4-byte sequence number; the peer's pong echoes it:
//   - Ping interval: 15 seconds
//   - Pong timeout: 5 seconds
//   - Max missed pongs: 2
//   - Maximum detection delay: 35 seconds
package transport
