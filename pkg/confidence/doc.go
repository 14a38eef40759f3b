// Package confidence turns retrieval and feedback signals into a single
// calibrated score and band. Scoring is pure and deterministic: the same
// signals always produce the same assessment, and each component is
// monotonic in its inputs so more evidence never lowers confidence.
//
// The score is a weighted sum of three components: policy evidence
// strength (0.4), feedback evidence strength (0.4), and signed feedback
// agreement (0.2). Conflicting feedback halves the agreement component
// instead of averaging away the disagreement.
package confidence
