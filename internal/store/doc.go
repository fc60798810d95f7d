// Package store provides a SQLite archive of validation runs.
//
// Each run records the canonical result of one batch validation together
// with its headline counts and content digest:
//   - runs: one row per validation call, result stored as canonical JSON
//   - run_failures: one row per failing scenario of a run
//
// # Ordering
//
// Runs are ordered by seq INTEGER (insertion order), never by wall time, so
// listings are stable and archives compare across machines. Run identifiers
// are UUIDv7 by default, which also sort by creation.
//
// # Integrity
//
// LoadRun recomputes the digest of the stored result and refuses a run whose
// content no longer matches the digest recorded when it was saved.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
