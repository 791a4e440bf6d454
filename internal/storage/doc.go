// Package storage is the optional durable backing for the notification
// store and the processed-id ledger.
//
// Drivers:
//   - "file": dependency-free JSONL journal + snapshot backend
//   - "sqlite": SQLite database file (requires the sqlite build tag)
//
// Storage is best-effort: the in-memory pipeline is the source of truth
// while running, storage exists so state survives restarts.
package storage
