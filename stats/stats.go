// Package stats keeps aggregated assessment counters (assessed, auto
// executed, approvals requested, …) for a single gate instance. The tracker
// lives in the assessment context so that every component that receives the
// context can update the counters without a global registry.
package stats

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the pipeline.
// The fields are signed and therefore can be either positive (increment) or
// negative (decrement).
type Delta struct {
	Assessed           int
	AutoExecuted       int
	ApprovalsRequested int
	AnalysisRequested  int
	Rejected           int
	Approved           int
	Declined           int
	Expired            int
}

// Snapshot is a point-in-time copy of the tracker counters.
type Snapshot struct {
	GateID    string
	StartedAt time.Time

	Assessed           int
	AutoExecuted       int
	ApprovalsRequested int
	AnalysisRequested  int
	Rejected           int
	Approved           int
	Declined           int
	Expired            int
}

// Stats keeps aggregated counters for one gate instance. It is safe for
// concurrent use.
type Stats struct {
	// Identification, informative only.
	GateID    string
	StartedAt time.Time

	mu       sync.Mutex
	counters Snapshot
	onChange func(Snapshot)
}

// Update applies the supplied delta. If an onChange callback has been
// registered it is invoked with a snapshot outside the critical section so
// that the callback can perform slow operations without blocking the
// pipeline.
func (s *Stats) Update(d Delta) {
	if s == nil {
		return
	}
	s.mu.Lock()

	s.counters.Assessed += d.Assessed
	s.counters.AutoExecuted += d.AutoExecuted
	s.counters.ApprovalsRequested += d.ApprovalsRequested
	s.counters.AnalysisRequested += d.AnalysisRequested
	s.counters.Rejected += d.Rejected
	s.counters.Approved += d.Approved
	s.counters.Declined += d.Declined
	s.counters.Expired += d.Expired

	snapshot := s.snapshotLocked()
	cb := s.onChange

	s.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Stats) snapshotLocked() Snapshot {
	snapshot := s.counters
	snapshot.GateID = s.GateID
	snapshot.StartedAt = s.StartedAt
	return snapshot
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables the callback; only one callback can be active.
func (s *Stats) OnChange(cb func(Snapshot)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onChange = cb
	s.mu.Unlock()
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a tracker, embeds it in a derived context and
// returns both.
func WithNewTracker(ctx context.Context, gateID string, onChange func(Snapshot)) (context.Context, *Stats) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Stats{
		GateID:    gateID,
		StartedAt: time.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the tracker from ctx; ok is false when the context
// carries none.
func FromContext(ctx context.Context) (*Stats, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Stats)
	return tr, ok
}

// UpdateCtx looks up the tracker in ctx (if any) and applies the delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
