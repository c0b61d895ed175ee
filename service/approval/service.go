package approval

import (
	"context"
	"time"

	"github.com/opstwin/autonomy/service/decision"
	"github.com/opstwin/autonomy/service/messaging"
)

// CreateInput carries everything needed to open a proposal.
type CreateInput struct {
	SubjectID         string
	Summary           string
	Evidence          []map[string]interface{}
	RecommendedAction *decision.Action
	Confidence        float64
	// Timeout is the validity window; zero means DefaultTimeout so a host
	// that omits the field never creates a dead proposal. A negative
	// timeout yields a proposal already expired at the next read.
	Timeout time.Duration
}

// Service owns the proposal lifecycle. Double resolution and unknown ids are
// benign races surfaced as (nil, nil), never as errors.
type Service interface {
	// CreateProposal always succeeds, assigning a fresh id and an expiry of
	// now + input.Timeout (DefaultTimeout when the input leaves it zero).
	CreateProposal(ctx context.Context, input CreateInput) (*Proposal, error)

	// Approve transitions a PENDING proposal to APPROVED and fires the
	// registered on-approved callbacks. Reason may be empty. It returns
	// (nil, nil) when the proposal is unknown or no longer pending.
	Approve(ctx context.Context, proposalID, approverID, reason string) (*Proposal, error)

	// Reject transitions a PENDING proposal to REJECTED; reason is
	// mandatory.
	Reject(ctx context.Context, proposalID, rejectorID, reason string) (*Proposal, error)

	// RequestChanges transitions a PENDING proposal to MODIFIED, asking the
	// proposer to regenerate it; reason is mandatory. The on-rejected
	// callbacks fire, since the recommended action will not execute as-is.
	RequestChanges(ctx context.Context, proposalID, reviewerID, reason string) (*Proposal, error)

	// Get returns a copy of the proposal, or (nil, nil) when unknown.
	Get(ctx context.Context, proposalID string) (*Proposal, error)

	// ListPending returns PENDING proposals newest-first, flipping any
	// past-expiry proposal to EXPIRED on the way. An empty subjectID
	// returns all subjects.
	ListPending(ctx context.Context, subjectID string) ([]*Proposal, error)

	// ReapExpired flips every PENDING proposal past its expiry to EXPIRED
	// and returns how many were flipped. ListPending performs the same
	// sweep implicitly; this entry point exists for hosts that want the
	// write out of their read path.
	ReapExpired(ctx context.Context) (int, error)

	// OnApproved and OnRejected register lifecycle callbacks; registration
	// is additive only.
	OnApproved(callback Callback)
	OnRejected(callback Callback)

	// Queue exposes the lifecycle event fan-out.
	Queue() messaging.Queue[Event]
}
