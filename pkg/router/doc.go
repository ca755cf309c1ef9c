// Package router classifies inbound events, writes them through to the local
// cache and publishes them, together with any events derived from them.
//
// For every inbound event the Router, in order:
//
//  1. decodes the payload into its typed struct and validates it; an invalid
//     payload is dropped without touching the cache or any handler
//  2. writes the snapshot and history entries to the cache; a failed write
//     is reported but does not stop dispatch
//  3. publishes the raw event
//  4. publishes derived events, such as TransactionCompleted and locally
//     created notifications, after the raw one
//
// Unknown event names are logged and dropped.
package router
