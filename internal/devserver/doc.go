// Package devserver implements a development update server that speaks the
// realtime wire protocol.
//
// It authenticates clients (optionally after a delay), tracks their topic
// subscriptions and acknowledges requests. A small admin API injects events
// and drops connections so that reconnection and replay can be exercised
// end to end:
//
//	GET  /ws              websocket endpoint
//	POST /admin/publish   {"topic": "wallet:w-1", "event": "balance.changed", "payload": {...}}
//	POST /admin/drop      close every client connection
//	GET  /admin/sessions  list connected clients and their topics
//
// The server is used by cmd/rt-devserver and by the service tests.
package devserver
