// Package approval implements the human-in-the-loop workflow that holds a
// proposed change until an explicit approve or reject decision is recorded,
// or until its validity window lapses.
package approval
