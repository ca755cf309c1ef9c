// Package metrics exposes Prometheus metrics for the realtime client.
//
// A nil *Metrics is valid and records nothing, so components take an
// optional *Metrics without nil checks.
package metrics
