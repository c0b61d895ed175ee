// Package decision turns a confidence score, a set of safety constraints and
// a proposed action into one of four policy verdicts: auto-execute, require
// approval, require analysis or reject.
package decision
