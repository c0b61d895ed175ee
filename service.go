package autonomy

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/opstwin/autonomy/internal/clock"
	"github.com/opstwin/autonomy/internal/idgen"
	"github.com/opstwin/autonomy/policy"
	"github.com/opstwin/autonomy/service/approval"
	approvalmem "github.com/opstwin/autonomy/service/approval/memory"
	"github.com/opstwin/autonomy/service/confidence"
	"github.com/opstwin/autonomy/service/decision"
	"github.com/opstwin/autonomy/service/event"
	"github.com/opstwin/autonomy/service/messaging"
	"github.com/opstwin/autonomy/service/rbac"
	rbacmem "github.com/opstwin/autonomy/service/rbac/memory"
	"github.com/opstwin/autonomy/stats"
	"github.com/opstwin/autonomy/tracing"
)

type tracerSetup struct {
	serviceName    string
	serviceVersion string
	outputFile     string
}

// Service is the autonomy gate. It composes the permission authority, the
// confidence scorer, the decision service and the approval workflow behind a
// single Assess entry point, so hosts evaluate a proposed action with one
// call and get back the decision plus, when review is needed, an open
// proposal.
type Service struct {
	config     *Config
	clock      clock.Clock
	gateID     string
	auditQueue messaging.Queue[rbac.AuditEntry]
	authority  rbac.Service
	scorer     *confidence.Scorer
	decider    *decision.Service
	approvals  approval.Service
	events     *event.Service
	tracker    *stats.Stats
	tracer     *tracerSetup
	stopBridge context.CancelFunc
}

// AssessRequest carries one proposed action through the gate.
type AssessRequest struct {
	// SubjectID identifies the asset the action targets.
	SubjectID string

	// Input feeds the confidence scorer.
	Input confidence.Input

	// ProposedAction is the action the automation wants to take.
	ProposedAction *decision.Action

	// Summary and Evidence seed the proposal when human review is required.
	// An empty summary falls back to the decision reasoning.
	Summary  string
	Evidence []map[string]interface{}
}

// Assessment is the outcome of one Assess call.
type Assessment struct {
	Confidence *confidence.Result
	Decision   *decision.Decision
	// Proposal is non-nil only when the decision requires human approval.
	Proposal *approval.Proposal
}

// New creates a gate service. Supplied options override the defaults; any
// component not injected is built in-memory from the configuration.
func New(options ...Option) (*Service, error) {
	srv := &Service{}
	for _, option := range options {
		option(srv)
	}
	if err := srv.ensureBaseSetup(); err != nil {
		return nil, err
	}
	return srv, nil
}

func (s *Service) ensureBaseSetup() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.clock == nil {
		s.clock = clock.System()
	}
	if s.gateID == "" {
		s.gateID = idgen.Prefixed("gate")()
	}
	if s.tracer != nil {
		if err := tracing.Init(s.tracer.serviceName, s.tracer.serviceVersion, s.tracer.outputFile); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if s.events == nil {
		events, err := event.New(messaging.VendorMemory)
		if err != nil {
			return err
		}
		s.events = events
	}
	if s.authority == nil {
		// the memory authority ships with the built-in roles and hierarchy
		authorityOptions := []rbacmem.Option{rbacmem.WithClock(s.clock)}
		if s.auditQueue != nil {
			authorityOptions = append(authorityOptions, rbacmem.WithAuditQueue(s.auditQueue))
		}
		s.authority = rbacmem.New(authorityOptions...)
	}
	if s.scorer == nil {
		s.scorer = confidence.NewScorer(
			confidence.WithHistoryWindow(s.config.Scorer.HistoryWindow),
			confidence.WithMinSamples(s.config.Scorer.MinSamples))
	}
	if s.decider == nil {
		s.decider = decision.New(
			decision.WithThresholds(s.config.Thresholds),
			decision.WithClock(s.clock))
	}
	for _, rule := range s.config.Constraints {
		if err := s.decider.AddConstraintRule(rule); err != nil {
			return err
		}
	}
	if s.approvals == nil {
		s.approvals = approvalmem.New(approvalmem.WithClock(s.clock))
	}
	s.tracker = &stats.Stats{GateID: s.gateID, StartedAt: s.clock()}
	s.wireLearning()
	return s.bridgeApprovalEvents()
}

// bridgeApprovalEvents drains the approval workflow's lifecycle queue onto the
// event service, so a host observes created, resolved and expired proposals
// through Events() alongside the published decisions.
func (s *Service) bridgeApprovalEvents() error {
	queue := s.approvals.Queue()
	if queue == nil {
		return nil
	}
	publisher, err := event.PublisherOf[approval.Event](s.events)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopBridge = cancel
	go func() {
		for {
			msg, err := queue.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("gate %s: approval event consume failed: %v", s.gateID, err)
				continue
			}
			if msg == nil {
				// file-backed queues poll rather than block
				select {
				case <-ctx.Done():
					return
				case <-time.After(50 * time.Millisecond):
				}
				continue
			}
			lifecycle := msg.T()
			_ = msg.Ack()
			subjectID := ""
			if lifecycle.Proposal != nil {
				subjectID = lifecycle.Proposal.SubjectID
			}
			out := event.NewEvent(&event.Context{
				SubjectID: subjectID,
				Component: "approval",
				EventType: lifecycle.Topic,
			}, *lifecycle)
			if err := publisher.Publish(ctx, out); err != nil {
				log.Printf("gate %s: approval event publish failed: %v", s.gateID, err)
			}
		}
	}()
	return nil
}

// publishDecision surfaces every decision on the event service; a full queue
// is logged, never allowed to fail the assessment.
func (s *Service) publishDecision(ctx context.Context, subjectID string, dec *decision.Decision) {
	publisher, err := event.PublisherOf[decision.Decision](s.events)
	if err != nil {
		log.Printf("gate %s: decision publisher unavailable: %v", s.gateID, err)
		return
	}
	out := event.NewEvent(&event.Context{
		SubjectID: subjectID,
		Component: "decision",
		EventType: "decision.made",
	}, *dec)
	if err := publisher.Publish(ctx, out); err != nil {
		log.Printf("gate %s: decision publish failed: %v", s.gateID, err)
	}
}

// Shutdown stops the approval event bridge. The gate remains usable for
// synchronous calls afterwards; only queue fan-out stops.
func (s *Service) Shutdown() {
	if s.stopBridge != nil {
		s.stopBridge()
	}
}

// wireLearning feeds resolved proposals back into the scorer history so that
// the historical component reflects reviewer verdicts, and keeps the
// counters current.
func (s *Service) wireLearning() {
	s.approvals.OnApproved(func(p *approval.Proposal) {
		s.scorer.RecordOutcome(p.SubjectID, p.ID, true, p.Confidence)
		s.tracker.Update(stats.Delta{Approved: 1})
	})
	s.approvals.OnRejected(func(p *approval.Proposal) {
		s.scorer.RecordOutcome(p.SubjectID, p.ID, false, p.Confidence)
		s.tracker.Update(stats.Delta{Declined: 1})
	})
}

// Assess scores the proposed action, decides how it may proceed and, when
// the decision calls for human review, opens a proposal.
func (s *Service) Assess(ctx context.Context, request AssessRequest) (*Assessment, error) {
	if request.ProposedAction == nil {
		return nil, fmt.Errorf("proposed action was empty")
	}
	ctx, span := tracing.StartSpan(ctx, "gate.assess")
	span.WithAttributes(map[string]string{
		"gate.id":    s.gateID,
		"subject.id": request.SubjectID,
	})
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	result := s.scorer.Calculate(request.SubjectID, request.Input)
	dec := s.decider.Decide(ctx, result, request.ProposedAction)

	// a context policy can veto automatic execution without touching the
	// configured thresholds
	if dec.Type == decision.TypeAutoExecute {
		if override := policy.FromContext(ctx); !override.MayAutoExecute(ctx, request.ProposedAction.Type, request.ProposedAction.Params) {
			dec.Type = decision.TypeRequireApproval
			dec.Reasoning = fmt.Sprintf("Execution policy override - human approval required (%s)", dec.Reasoning)
		}
	}

	s.publishDecision(ctx, request.SubjectID, dec)

	delta := stats.Delta{Assessed: 1}
	assessment := &Assessment{Confidence: result, Decision: dec}
	switch dec.Type {
	case decision.TypeAutoExecute:
		delta.AutoExecuted = 1
	case decision.TypeRequireAnalysis:
		delta.AnalysisRequested = 1
	case decision.TypeReject:
		delta.Rejected = 1
	case decision.TypeRequireApproval:
		delta.ApprovalsRequested = 1
		summary := request.Summary
		if summary == "" {
			summary = dec.Reasoning
		}
		var proposal *approval.Proposal
		proposal, err = s.approvals.CreateProposal(ctx, approval.CreateInput{
			SubjectID:         request.SubjectID,
			Summary:           summary,
			Evidence:          request.Evidence,
			RecommendedAction: dec.RecommendedAction,
			Confidence:        result.Total,
			Timeout:           s.config.Approval.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		assessment.Proposal = proposal
	}
	s.tracker.Update(delta)
	return assessment, nil
}

// Guard enforces a permission check, returning *rbac.PermissionDeniedError
// when the user lacks the permission.
func (s *Service) Guard(ctx context.Context, userID string, permission rbac.Permission, resourceID string) error {
	return s.authority.RequirePermission(ctx, userID, permission, resourceID)
}

// ResolveProposal approves or rejects a pending proposal on behalf of
// reviewerID after verifying the reviewer holds the approve permission for
// the proposal's subject.
func (s *Service) ResolveProposal(ctx context.Context, proposalID, reviewerID string, approve bool, reason string) (*approval.Proposal, error) {
	proposal, err := s.approvals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, nil
	}
	if err := s.Guard(ctx, reviewerID, rbac.PermissionApprove, proposal.SubjectID); err != nil {
		return nil, err
	}
	if approve {
		return s.approvals.Approve(ctx, proposalID, reviewerID, reason)
	}
	return s.approvals.Reject(ctx, proposalID, reviewerID, reason)
}

// ReapExpired sweeps pending proposals past their expiry and updates the
// expired counter.
func (s *Service) ReapExpired(ctx context.Context) (int, error) {
	flipped, err := s.approvals.ReapExpired(ctx)
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		s.tracker.Update(stats.Delta{Expired: flipped})
	}
	return flipped, nil
}

// Authority returns the permission authority.
func (s *Service) Authority() rbac.Service { return s.authority }

// Scorer returns the confidence scorer.
func (s *Service) Scorer() *confidence.Scorer { return s.scorer }

// Decider returns the decision service.
func (s *Service) Decider() *decision.Service { return s.decider }

// Approvals returns the approval workflow.
func (s *Service) Approvals() approval.Service { return s.approvals }

// Events returns the event service carrying every published decision and the
// bridged approval lifecycle events.
func (s *Service) Events() *event.Service { return s.events }

// Stats returns a snapshot of the gate counters.
func (s *Service) Stats() stats.Snapshot { return s.tracker.Snapshot() }

// Config returns the active configuration.
func (s *Service) Config() *Config { return s.config }
