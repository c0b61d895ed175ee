package decision

import (
	"context"
	"fmt"
	"sync"

	"github.com/opstwin/autonomy/internal/clock"
	"github.com/opstwin/autonomy/internal/idgen"
	"github.com/opstwin/autonomy/service/confidence"
	"github.com/opstwin/autonomy/service/dao/store"
	"github.com/opstwin/autonomy/service/messaging"
)

// Service maps a confidence result plus safety constraints plus a proposed
// action onto one of four decision outcomes. It holds no state beyond the
// constraint registry and an append-only decision log, so Decide is pure
// given its inputs except for the log append.
type Service struct {
	mu          sync.RWMutex
	constraints []Constraint

	log        *store.AppendLog[Decision]
	thresholds Thresholds
	newID      idgen.Generator
	now        clock.Clock
	queue      messaging.Queue[Decision]
}

type Option func(*Service)

// WithThresholds overrides the default confidence cut-offs.
func WithThresholds(thresholds Thresholds) Option {
	return func(s *Service) { s.thresholds = thresholds }
}

// WithClock overrides the decision timestamp source.
func WithClock(now clock.Clock) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides decision id generation.
func WithIDGenerator(newID idgen.Generator) Option {
	return func(s *Service) { s.newID = newID }
}

// WithQueue mirrors every decision onto the supplied queue for host
// consumption.
func WithQueue(queue messaging.Queue[Decision]) Option {
	return func(s *Service) { s.queue = queue }
}

func New(options ...Option) *Service {
	ret := &Service{
		log:        store.NewAppendLog[Decision](),
		thresholds: DefaultThresholds(),
		newID:      idgen.Prefixed("dec"),
		now:        clock.System(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// AddConstraint registers a safety constraint. Constraints are evaluated
// before any threshold logic.
func (s *Service) AddConstraint(constraint Constraint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints = append(s.constraints, constraint)
}

// AddConstraintRule parses a textual rule of the form
// "name[type1,type2](reason)" and registers the resulting constraint.
func (s *Service) AddConstraintRule(rule string) error {
	constraint, err := ParseRule([]byte(rule))
	if err != nil {
		return err
	}
	s.AddConstraint(*constraint)
	return nil
}

// Constraints returns a copy of the registered constraints.
func (s *Service) Constraints() []Constraint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Constraint, len(s.constraints))
	copy(out, s.constraints)
	return out
}

// Decide evaluates safety first and thresholds second; a safety violation
// dominates any confidence value.
func (s *Service) Decide(ctx context.Context, result *confidence.Result, proposedAction *Action) *Decision {
	verdict := &Decision{
		ID:         s.newID(),
		Confidence: result.Total,
		CreatedAt:  s.now(),
	}

	if passed, reason := s.checkSafety(proposedAction); !passed {
		verdict.Type = TypeReject
		verdict.Reasoning = fmt.Sprintf("Safety constraint violation: %s", reason)
		verdict.SafetyCheckPassed = false
	} else {
		verdict.SafetyCheckPassed = true
		switch {
		case result.Total >= s.thresholds.AutoExecute:
			verdict.Type = TypeAutoExecute
			verdict.Reasoning = fmt.Sprintf("High confidence (%.2f%%) - auto execution approved", result.Total*100)
			verdict.RecommendedAction = proposedAction
		case result.Total >= s.thresholds.RequireApproval:
			verdict.Type = TypeRequireApproval
			verdict.Reasoning = fmt.Sprintf("Medium confidence (%.2f%%) - human approval required", result.Total*100)
			verdict.RecommendedAction = proposedAction
		default:
			verdict.Type = TypeRequireAnalysis
			verdict.Reasoning = fmt.Sprintf("Low confidence (%.2f%%) - additional analysis needed", result.Total*100)
		}
	}

	s.log.Append(*verdict)
	if s.queue != nil {
		_ = s.queue.Publish(ctx, verdict)
	}
	return verdict
}

// checkSafety returns (false, reason) when any registered constraint forbids
// the action type. A shutdown without an explicit emergency flag is rejected
// even with no registered constraints.
func (s *Service) checkSafety(action *Action) (bool, string) {
	if action == nil {
		return true, ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, constraint := range s.constraints {
		for _, forbidden := range constraint.Forbid {
			if action.Type != forbidden {
				continue
			}
			if constraint.Reason != "" {
				return false, constraint.Reason
			}
			return false, fmt.Sprintf("Action type '%s' is forbidden", action.Type)
		}
	}
	if action.Type == "shutdown" && !action.Emergency {
		return false, "Non-emergency shutdown requires explicit emergency flag"
	}
	return true, ""
}

// Log returns a copy of the most recent limit decisions, oldest first. A
// non-positive limit returns the full log.
func (s *Service) Log(limit int) []Decision {
	return s.log.Tail(limit)
}
