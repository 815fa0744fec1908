// Package store persists the tally dataset.
//
// Three persisters satisfy engine.Persister:
//   - Store: SQLite via mattn/go-sqlite3
//   - FileStore: a single AppData JSON file
//   - Memory: in-process, for tests and dry runs
//
// Every persister stores whole snapshots. Save replaces the stored dataset
// atomically; Load returns model.ErrNoDataset when nothing has been saved.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: SQLite has a single writer
//
// Schema changes are tracked with PRAGMA user_version.
package store
