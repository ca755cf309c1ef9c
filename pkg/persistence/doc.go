// Package persistence provides the durable key/value stores behind the local
// cache.
//
// A Store holds opaque values by string key. MemoryStore is used in tests and
// for ephemeral sessions, LevelDBStore keeps data on disk across restarts, and
// SealedStore wraps any Store with authenticated encryption so cached account
// data is never written in the clear.
package persistence
