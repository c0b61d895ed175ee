package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/opstwin/autonomy/internal/clock"
	"github.com/opstwin/autonomy/internal/idgen"
	"github.com/opstwin/autonomy/service/approval"
	"github.com/opstwin/autonomy/service/dao"
	"github.com/opstwin/autonomy/service/dao/criteria"
	"github.com/opstwin/autonomy/service/dao/store"
	"github.com/opstwin/autonomy/service/messaging"
	qmem "github.com/opstwin/autonomy/service/messaging/memory"
)

type service struct {
	proposalDAO dao.Service[string, approval.Proposal]

	// transitions guards the PENDING→terminal compare-and-swap so that
	// exactly one concurrent caller wins a given id.
	transitions sync.Mutex

	callbacksMu sync.RWMutex
	onApproved  []approval.Callback
	onRejected  []approval.Callback

	events messaging.Queue[approval.Event]
	newID  idgen.Generator
	now    clock.Clock
}

func proposalKey(p *approval.Proposal) string { return p.ID }

// New creates the in-memory approval workflow.
func New(options ...Option) approval.Service {
	ret := &service{
		proposalDAO: store.NewMemoryStore[string, approval.Proposal](proposalKey),
		events:      qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
		newID:       idgen.Prefixed("prop"),
		now:         clock.System(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) CreateProposal(ctx context.Context, input approval.CreateInput) (*approval.Proposal, error) {
	now := s.now()
	timeout := input.Timeout
	if timeout == 0 {
		timeout = approval.DefaultTimeout
	}
	proposal := &approval.Proposal{
		ID:                s.newID(),
		SubjectID:         input.SubjectID,
		Summary:           input.Summary,
		Evidence:          input.Evidence,
		RecommendedAction: input.RecommendedAction,
		Confidence:        input.Confidence,
		Status:            approval.StatusPending,
		CreatedAt:         now,
		ExpiresAt:         now.Add(timeout),
	}
	if err := s.proposalDAO.Save(ctx, proposal); err != nil {
		return nil, err
	}
	s.publish(ctx, approval.TopicProposalCreated, proposal)
	return copyOf(proposal), nil
}

func (s *service) Approve(ctx context.Context, proposalID, approverID, reason string) (*approval.Proposal, error) {
	if reason == "" {
		reason = "Approved"
	}
	resolved, err := s.resolve(ctx, proposalID, approval.StatusApproved, approverID, reason)
	if resolved == nil || err != nil {
		return nil, err
	}
	s.invoke(s.approvedCallbacks(), resolved)
	return resolved, nil
}

func (s *service) Reject(ctx context.Context, proposalID, rejectorID, reason string) (*approval.Proposal, error) {
	if reason == "" {
		return nil, fmt.Errorf("rejection reason is required")
	}
	resolved, err := s.resolve(ctx, proposalID, approval.StatusRejected, rejectorID, reason)
	if resolved == nil || err != nil {
		return nil, err
	}
	s.invoke(s.rejectedCallbacks(), resolved)
	return resolved, nil
}

func (s *service) RequestChanges(ctx context.Context, proposalID, reviewerID, reason string) (*approval.Proposal, error) {
	if reason == "" {
		return nil, fmt.Errorf("change request reason is required")
	}
	resolved, err := s.resolve(ctx, proposalID, approval.StatusModified, reviewerID, reason)
	if resolved == nil || err != nil {
		return nil, err
	}
	s.invoke(s.rejectedCallbacks(), resolved)
	return resolved, nil
}

// resolve performs the single PENDING→terminal transition under the
// transitions lock. It returns (nil, nil) when the proposal is unknown,
// already resolved, or lazily detected as expired. The transition is
// copy-on-write: the stored record is replaced, never written in place, so
// Get can read without the lock.
func (s *service) resolve(ctx context.Context, proposalID string, status approval.Status, resolverID, reason string) (*approval.Proposal, error) {
	s.transitions.Lock()
	defer s.transitions.Unlock()

	proposal, err := s.proposalDAO.Load(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal == nil || proposal.Status != approval.StatusPending {
		return nil, nil
	}
	if s.expire(ctx, proposal) {
		return nil, nil
	}
	resolved := copyOf(proposal)
	resolved.Status = status
	resolved.ResolvedBy = resolverID
	resolved.ResolutionReason = reason
	if err := s.proposalDAO.Save(ctx, resolved); err != nil {
		return nil, err
	}
	s.publish(ctx, approval.TopicProposalResolved, resolved)
	return copyOf(resolved), nil
}

func (s *service) Get(ctx context.Context, proposalID string) (*approval.Proposal, error) {
	proposal, err := s.proposalDAO.Load(ctx, proposalID)
	if proposal == nil || err != nil {
		return nil, err
	}
	return copyOf(proposal), nil
}

func (s *service) ListPending(ctx context.Context, subjectID string) ([]*approval.Proposal, error) {
	var filter []*dao.Parameter
	if subjectID != "" {
		filter = append(filter, dao.NewParameter("subjectID", subjectID))
	}
	// list under the transitions lock so the status snapshot cannot go stale
	// against a concurrent copy-on-write resolution
	s.transitions.Lock()
	all, err := s.proposalDAO.List(ctx)
	if err != nil {
		s.transitions.Unlock()
		return nil, err
	}
	pending := make([]*approval.Proposal, 0, len(all))
	for _, proposal := range all {
		if proposal.Status != approval.StatusPending || s.expire(ctx, proposal) {
			continue
		}
		if !criteria.Matches("subjectID", proposal.SubjectID, filter) {
			continue
		}
		pending = append(pending, copyOf(proposal))
	}
	s.transitions.Unlock()

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	return pending, nil
}

func (s *service) ReapExpired(ctx context.Context) (int, error) {
	s.transitions.Lock()
	defer s.transitions.Unlock()
	all, err := s.proposalDAO.List(ctx)
	if err != nil {
		return 0, err
	}
	reaped := 0
	for _, proposal := range all {
		if proposal.Status == approval.StatusPending && s.expire(ctx, proposal) {
			reaped++
		}
	}
	return reaped, nil
}

// expire flips a PENDING proposal past its expiry to EXPIRED by replacing
// the stored record with an expired copy. Callers hold the transitions lock.
func (s *service) expire(ctx context.Context, proposal *approval.Proposal) bool {
	if proposal.ExpiresAt.After(s.now()) {
		return false
	}
	expired := copyOf(proposal)
	expired.Status = approval.StatusExpired
	_ = s.proposalDAO.Save(ctx, expired)
	s.publish(ctx, approval.TopicProposalExpired, expired)
	return true
}

func (s *service) OnApproved(callback approval.Callback) {
	s.callbacksMu.Lock()
	defer s.callbacksMu.Unlock()
	s.onApproved = append(s.onApproved, callback)
}

func (s *service) OnRejected(callback approval.Callback) {
	s.callbacksMu.Lock()
	defer s.callbacksMu.Unlock()
	s.onRejected = append(s.onRejected, callback)
}

func (s *service) approvedCallbacks() []approval.Callback {
	s.callbacksMu.RLock()
	defer s.callbacksMu.RUnlock()
	return append([]approval.Callback(nil), s.onApproved...)
}

func (s *service) rejectedCallbacks() []approval.Callback {
	s.callbacksMu.RLock()
	defer s.callbacksMu.RUnlock()
	return append([]approval.Callback(nil), s.onRejected...)
}

// invoke runs each callback with its own panic isolation; a faulty callback
// is logged and never prevents the transition it followed.
func (s *service) invoke(callbacks []approval.Callback, proposal *approval.Proposal) {
	for _, callback := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("approval: callback failure on proposal %s: %v", proposal.ID, r)
				}
			}()
			callback(copyOf(proposal))
		}()
	}
}

func (s *service) publish(ctx context.Context, topic string, proposal *approval.Proposal) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: topic, Proposal: copyOf(proposal)})
}

func (s *service) Queue() messaging.Queue[approval.Event] { return s.events }

// copyOf shields the stored proposal from caller mutation. Together with the
// copy-on-write transitions it keeps every record immutable once saved, so
// unlocked readers such as Get never observe a concurrent write.
func copyOf(proposal *approval.Proposal) *approval.Proposal {
	clone := *proposal
	return &clone
}

var _ approval.Service = (*service)(nil)
