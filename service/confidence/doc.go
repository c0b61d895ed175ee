// Package confidence computes the multi-factor confidence score that gates
// automated execution, and maintains the rolling per-subject outcome history
// that closes the learning loop.
package confidence
