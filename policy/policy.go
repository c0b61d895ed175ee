package policy

import (
	"context"
	"strings"
)

// Execution modes recognised by the gate.
const (
	ModeAsk  = "ask"  // consult AskFunc before any automatic execution
	ModeAuto = "auto" // execute automatically (default)
	ModeDeny = "deny" // route every automatic execution to human approval
)

// AskFunc is invoked when Mode==ask and an action is about to auto execute.
// Returning true lets the execution proceed, false routes it to human
// approval. Implementations MAY mutate the policy (for example, switching to
// ModeAuto after the first approval).
type AskFunc func(
	ctx context.Context,
	actionType string, // e.g. adjust_setpoint
	params map[string]interface{}, // action parameters - may be nil
	p *Policy,
) bool

// Policy represents the per-call override settings for an assessment.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList allow coarse filtering by action type regardless
//     of Mode.
//   - Ask is only used when Mode==ask.
//
// A nil *Policy means "trust the configured thresholds" and is therefore the
// zero-cost default.
type Policy struct {
	Mode      string   // ask / auto / deny      (default = auto)
	AllowList []string // whitelist (empty => all)
	BlockList []string // blacklist
	Ask       AskFunc  // used only when Mode==ask
}

// Config represents the declarative, serialisable part of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without
// AskFunc).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates AllowList / BlockList. Both lists match by exact
// case-insensitive comparison of the action type.
func (p *Policy) IsAllowed(actionType string) bool {
	if p == nil {
		return true
	}

	normalized := strings.ToLower(actionType)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}

	// AllowList - if empty everything is allowed, otherwise only the listed
	// entries.
	if len(p.AllowList) == 0 {
		return true
	}

	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}

	return false
}

// MayAutoExecute reports whether an action of the given type may execute
// without human review under this policy.
func (p *Policy) MayAutoExecute(ctx context.Context, actionType string, params map[string]interface{}) bool {
	if p == nil {
		return true
	}
	if !p.IsAllowed(actionType) {
		return false
	}
	switch p.Mode {
	case ModeDeny:
		return false
	case ModeAsk:
		if p.Ask == nil {
			return false
		}
		return p.Ask(ctx, actionType, params, p)
	}
	return true
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy from ctx, nil when absent.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
