package decision

import (
	"fmt"
	"time"
)

// Type is the policy verdict for one assessment.
type Type string

const (
	TypeAutoExecute     Type = "auto_execute"
	TypeRequireApproval Type = "require_approval"
	TypeRequireAnalysis Type = "require_analysis"
	TypeReject          Type = "reject"
)

// Action is a proposed change to an asset, supplied by the (out of scope)
// orchestrator.
type Action struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
	// Emergency marks an action that may bypass the non-emergency shutdown
	// rule.
	Emergency bool `json:"emergency,omitempty"`
}

// Decision is the outcome of one Decide call. Decisions are appended to an
// in-memory log for later audit; the log is not authoritative history.
type Decision struct {
	ID         string  `json:"id"`
	Type       Type    `json:"type"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	// RecommendedAction is withheld in the require-analysis branch: analysis
	// must precede any action surfacing.
	RecommendedAction *Action   `json:"recommendedAction,omitempty"`
	SafetyCheckPassed bool      `json:"safetyCheckPassed"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Constraint is a hard rule that forces rejection of the listed action types
// irrespective of confidence.
type Constraint struct {
	Name   string   `json:"name"`
	Forbid []string `json:"forbid"`
	Reason string   `json:"reason"`
}

// Thresholds hold the confidence cut-offs; they can be overridden through
// configuration but always satisfy 0 ≤ RequireApproval ≤ AutoExecute ≤ 1.
type Thresholds struct {
	AutoExecute     float64 `json:"autoExecute" yaml:"autoExecute"`
	RequireApproval float64 `json:"requireApproval" yaml:"requireApproval"`
}

// DefaultThresholds returns the standard 0.90 / 0.70 policy cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoExecute: 0.90, RequireApproval: 0.70}
}

// Validate returns an error describing invalid threshold settings or nil.
func (t Thresholds) Validate() error {
	if t.AutoExecute < 0 || t.AutoExecute > 1 || t.RequireApproval < 0 || t.RequireApproval > 1 {
		return fmt.Errorf("thresholds must lie in [0,1], got autoExecute=%v requireApproval=%v", t.AutoExecute, t.RequireApproval)
	}
	if t.RequireApproval > t.AutoExecute {
		return fmt.Errorf("requireApproval threshold (%v) must not exceed autoExecute threshold (%v)", t.RequireApproval, t.AutoExecute)
	}
	return nil
}
