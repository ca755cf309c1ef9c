// Package log captures the realtime protocol exchange for debugging.
//
// Protocol capture is separate from operational logging (slog). It records
// every frame, decoded envelope, connection state change, keepalive control
// message and error of a connection as a machine-readable trace.
//
// # Basic Usage
//
//	// Console output during development.
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary capture file.
//	fl, _ := log.NewFileLogger("/var/log/realtime/client.rtlog")
//
//	// Both.
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// A ConnLog stamps events with a per-connection UUID so that one capture
// file can hold many connection attempts.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded Events (.rtlog). The rt-log
// tool views, filters and exports them.
package log
