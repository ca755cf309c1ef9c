// Package discovery finds realtime update servers on the local network.
//
// Servers advertise the DNS-SD service type _rtupdates._tcp. TXT records
// carry the websocket path, whether TLS is required, the wire protocol
// version and an environment name so that a client can pick the gateway
// of its own environment (for example "staging" on an on-prem network).
//
// The Resolver aggregates addresses reported on several interfaces into one
// Endpoint per instance. The Advertiser is used by rt-devserver.
package discovery
