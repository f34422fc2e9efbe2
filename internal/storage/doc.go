// Package storage persists entries, items, stores, zones and preferences.
//
// Drivers:
//   - "sqlite": SQLite database file (modernc.org/sqlite, pure Go)
//   - "memory": in-process maps, for tests and dry runs
//
// It also keeps the operator audit log and optional notifier dedup state.
package storage
