// Package checkpoint provides the append-only per-session log that records
// workflow state at every stage boundary, plus scheduled retention pruning.
//
// The log has a deliberately narrow interface — Append and ListBySession —
// decoupling durability from the state machine's business logic. The
// sequence of checkpoints for a session reconstructs the entire decision
// trace exactly, which is what makes replay and audit possible.
//
// Checkpoints are the only engine records eligible for retention pruning;
// decisions are immutable and kept forever.
package checkpoint
