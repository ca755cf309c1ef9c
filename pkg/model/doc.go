// Package model defines the domain types carried by the realtime update
// stream: subscribable topics, entity keys for the local cache, and the
// typed payloads for transactions, payments, balances, check deposits,
// notifications and alerts.
//
// # Topics
//
// A Topic is a (class, id) pair that identifies one server-side stream:
//
//	transaction:txn-42
//	wallet:w-7
//	check_deposit:dep-3
//
// # Payloads
//
// Every payload type carries validation tags. Validate rejects payloads
// that are missing required fields or carry values outside their allowed
// set; the router drops such payloads before they reach the cache.
//
// Monetary amounts are decimal strings ("125.40") and never floats.
package model
