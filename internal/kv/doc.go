// Package kv provides the durable key-value layer backing account and
// preference storage, implemented on SQLite.
//
// The store is split into named partitions; each partition exposes
// Put/Get/Has/Delete plus ordered key listing and entry iteration. Writes
// are atomic per key. Nothing in this package spans multiple keys in one
// transaction, so callers must tolerate last-writer-wins semantics on
// concurrent writes to the same key.
//
// SQLite runs in WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//
// Use Open(":memory:") for tests.
package kv
