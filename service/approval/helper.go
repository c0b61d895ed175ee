package approval

import (
	"context"
	"fmt"
	"time"
)

// DeciderFunc decides what to do with a pending proposal.
// Return (true,  "") to approve
//
//	(false, "…") to reject with reason.
type DeciderFunc func(p *Proposal) (approved bool, reason string)

// AutoDecider starts a goroutine that polls ListPending and applies fn to
// every proposal. It returns stop() – call it (or cancel ctx) to exit.
func AutoDecider(ctx context.Context,
	svc Service,
	resolverID string,
	fn DeciderFunc,
	interval time.Duration) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				proposals, _ := svc.ListPending(ctx, "")
				for _, p := range proposals {
					if ok, reason := fn(p); ok {
						_, _ = svc.Approve(ctx, p.ID, resolverID, reason)
					} else {
						_, _ = svc.Reject(ctx, p.ID, resolverID, reason)
					}
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending proposals.
func AutoApprove(ctx context.Context,
	svc Service,
	resolverID string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc, resolverID,
		func(*Proposal) (bool, string) { return true, "" }, interval)
}

// AutoReject automatically rejects all pending proposals with the given
// reason.
func AutoReject(ctx context.Context,
	svc Service,
	resolverID string,
	reason string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc, resolverID,
		func(*Proposal) (bool, string) { return false, reason }, interval)
}

// WaitForResolution polls the proposal until it leaves PENDING or the timeout
// lapses.
func WaitForResolution(ctx context.Context, svc Service, proposalID string, timeout time.Duration) (*Proposal, error) {
	deadline := time.Now().Add(timeout)
	for {
		proposal, err := svc.Get(ctx, proposalID)
		if err != nil {
			return nil, err
		}
		if proposal != nil && proposal.Status.Terminal() {
			return proposal, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("proposal %s unresolved after %s", proposalID, timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
