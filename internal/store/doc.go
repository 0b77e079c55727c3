// Package store provides SQLite-backed recording of decoded frame streams.
//
// The store is a debug and trace log, not a source of truth: decoder state
// is never restored from it. Every accepted frame is appended with its raw
// bytes and the delta the session computed, so a recorded session can be
// listed, traced, and replayed to check that decoding is deterministic.
//
// # Tables
//
//   - sessions: one row per (session id, epoch); a new epoch starts on
//     every session reset
//   - frames: one row per accepted frame, keyed by (session_id, seq)
//
// # Ordering
//
// All queries order by seq, the session's logical clock, never by wall time.
// Replaying a session therefore walks frames in exactly the order they were
// decoded.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
