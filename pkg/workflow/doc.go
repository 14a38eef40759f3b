// Package workflow runs the scoping decision state machine. A session
// moves through a fixed stage order — parse the asset reference, retrieve
// policy and feedback evidence, assess confidence, build the evidence
// package, generate and persist the decision — with one durable checkpoint
// appended per transition, before the next stage runs. Crash recovery and
// audit both read the same checkpoint trace.
//
// The confidence gate sits after assessment: a session whose evidence
// scores in the insufficient band skips generation entirely and persists
// an insufficient-data decision with mechanically derived missing
// information, because guessing is worse than asking.
package workflow
