// Package store keeps a SQLite history of harness runs.
//
// Each run is one row in runs plus one row per test case in cases. Rows are
// only ever appended; runs are listed individually and never merged.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads while a run is being recorded
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: cases cannot outlive their run
//
// The schema version lives in PRAGMA user_version. Open refuses a database
// stamped by a newer build rather than guessing at its layout.
package store
