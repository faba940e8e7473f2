// Package store archives reconstructed runs in SQLite.
//
// A run is one fold over one input: its counters, its overall window and its
// records. Records are stored with their row position (seq) so a loaded
// snapshot has exactly the first-observed order it was saved with.
//
// # Determinism
//
//   - Records are read back ORDER BY seq ASC
//   - Runs are listed ORDER BY created_at DESC, id DESC COLLATE BINARY
//   - Run ids are UUIDv7, so ids sort by creation time
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
