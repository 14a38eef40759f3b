// Package store provides durable storage for the scoping engine's records:
// commitments, policy chunks, decisions, feedback, and workflow checkpoints.
//
// The engine only needs keyed lookups and appends, no complex queries. Two
// backends implement the Store interface:
//
//   - SQLiteStore: the production backend (WAL mode, busy timeout, schema
//     version table)
//   - MemoryStore: for tests
//
// Decisions are write-once: storing a second decision for the same session
// fails with ErrDecisionExists, which the workflow relies on for idempotent
// persistence. Checkpoints are append-only with a strictly increasing
// per-session sequence. Both backends guarantee read-after-write
// consistency, and writes to different sessions never interfere.
package store
