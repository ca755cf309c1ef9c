// Package cache keeps the latest known state of entities and bounded
// histories of recent updates on the device.
//
// Snapshots are keyed by model.EntityKey and replaced as a whole on every
// write (last write wins by arrival order). Histories are kept newest first
// and trimmed to their cap by dropping the oldest entries. All values are
// CBOR encoded and written through to a persistence.Store, so the cache
// survives restarts when backed by a durable store. Entries have no TTL.
package cache
