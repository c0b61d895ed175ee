// Package policy provides an optional per-call override layer attached via
// context. Hosts use it to tighten the gate for selected action types, for
// example forcing human approval during a maintenance window, without
// touching the configured thresholds.
package policy
