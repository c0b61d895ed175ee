package approval

import (
	"time"

	"github.com/opstwin/autonomy/service/decision"
)

// Status is the lifecycle state of a proposal. PENDING is the only
// non-terminal state; a proposal leaves it at most once.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusModified Status = "modified"
	StatusExpired  Status = "expired"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// DefaultTimeout is the proposal validity window applied when the host does
// not choose one.
const DefaultTimeout = 24 * time.Hour

// Proposal is a recommended change awaiting human approval. Proposals are
// never deleted; they resolve or expire.
type Proposal struct {
	ID        string                   `json:"id"`
	SubjectID string                   `json:"subjectID"`
	Summary   string                   `json:"summary"`
	Evidence  []map[string]interface{} `json:"evidence,omitempty"`

	RecommendedAction *decision.Action `json:"recommendedAction,omitempty"`
	Confidence        float64          `json:"confidence"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	// ResolvedBy and ResolutionReason are set by the terminal transition.
	ResolvedBy       string `json:"resolvedBy,omitempty"`
	ResolutionReason string `json:"resolutionReason,omitempty"`
}

// Event topics published on the service queue.
const (
	TopicProposalCreated  = "proposal.created"
	TopicProposalResolved = "proposal.resolved"
	TopicProposalExpired  = "proposal.expired"
)

// Event is the envelope placed on the service queue for each lifecycle
// change.
type Event struct {
	Topic    string    `json:"topic"`
	Proposal *Proposal `json:"proposal"`
}

// Callback observes a resolved proposal. Callback faults are isolated: they
// are recovered and logged and never roll back or block the transition that
// triggered them.
type Callback func(*Proposal)
