// Package store provides SQLite-backed durable storage for the ritual engine.
//
// The store holds three tables:
//   - kv: opaque key-value records (daily completion, streak state)
//   - timetable_days: cached timetable days per location, with fetch time
//   - notifications: the local notification outbox awaiting delivery
//
// # Ordering
//
// Every list query has a total ORDER BY (fire_at, id or date) so callers
// see the same order on every read.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes (CLI and daemon share a file)
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Times are stored as Unix seconds; dates as "YYYY-MM-DD" text.
package store
