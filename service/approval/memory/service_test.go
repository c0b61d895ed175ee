package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opstwin/autonomy/internal/clock"
	"github.com/opstwin/autonomy/internal/idgen"
	"github.com/opstwin/autonomy/service/approval"
	"github.com/opstwin/autonomy/service/decision"
	qmem "github.com/opstwin/autonomy/service/messaging/memory"
	"github.com/stretchr/testify/assert"
)

func newTestService(at time.Time) approval.Service {
	return New(
		WithClock(clock.Fixed(at)),
		WithIDGenerator(idgen.Sequence("prop")))
}

func createPending(t *testing.T, srv approval.Service, subjectID string) *approval.Proposal {
	proposal, err := srv.CreateProposal(context.Background(), approval.CreateInput{
		SubjectID:         subjectID,
		Summary:           "reduce setpoint by 5%",
		RecommendedAction: &decision.Action{Type: "adjust_setpoint"},
		Confidence:        0.82,
		Timeout:           approval.DefaultTimeout,
	})
	assert.Nil(t, err)
	assert.NotNil(t, proposal)
	return proposal
}

func TestService_CreateProposal(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	srv := newTestService(now)

	proposal := createPending(t, srv, "twin-1")
	assert.Equal(t, "prop_1", proposal.ID)
	assert.Equal(t, approval.StatusPending, proposal.Status)
	assert.Equal(t, now, proposal.CreatedAt)
	assert.Equal(t, now.Add(approval.DefaultTimeout), proposal.ExpiresAt)

	loaded, err := srv.Get(context.Background(), proposal.ID)
	assert.Nil(t, err)
	if assert.NotNil(t, loaded) {
		assert.Equal(t, proposal.ID, loaded.ID)
	}

	unknown, err := srv.Get(context.Background(), "prop_404")
	assert.Nil(t, err)
	assert.Nil(t, unknown)
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()
	srv := newTestService(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	proposal := createPending(t, srv, "twin-1")

	resolved, err := srv.Approve(ctx, proposal.ID, "supervisor-1", "")
	assert.Nil(t, err)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, approval.StatusApproved, resolved.Status)
		assert.Equal(t, "supervisor-1", resolved.ResolvedBy)
		assert.Equal(t, "Approved", resolved.ResolutionReason)
	}

	// second resolution of any kind is a benign race
	again, err := srv.Approve(ctx, proposal.ID, "supervisor-2", "")
	assert.Nil(t, err)
	assert.Nil(t, again)
	rejected, err := srv.Reject(ctx, proposal.ID, "supervisor-2", "changed my mind")
	assert.Nil(t, err)
	assert.Nil(t, rejected)

	// unknown id behaves the same way
	missing, err := srv.Approve(ctx, "prop_404", "supervisor-1", "")
	assert.Nil(t, err)
	assert.Nil(t, missing)
}

func TestService_RejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	srv := newTestService(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	proposal := createPending(t, srv, "twin-1")

	_, err := srv.Reject(ctx, proposal.ID, "supervisor-1", "")
	assert.NotNil(t, err)

	resolved, err := srv.Reject(ctx, proposal.ID, "supervisor-1", "sensor data is stale")
	assert.Nil(t, err)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, approval.StatusRejected, resolved.Status)
		assert.Equal(t, "sensor data is stale", resolved.ResolutionReason)
	}
}

func TestService_RequestChanges(t *testing.T) {
	ctx := context.Background()
	srv := newTestService(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	proposal := createPending(t, srv, "twin-1")

	var notified *approval.Proposal
	srv.OnRejected(func(p *approval.Proposal) { notified = p })

	_, err := srv.RequestChanges(ctx, proposal.ID, "supervisor-1", "")
	assert.NotNil(t, err)

	resolved, err := srv.RequestChanges(ctx, proposal.ID, "supervisor-1", "use a smaller step")
	assert.Nil(t, err)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, approval.StatusModified, resolved.Status)
	}
	if assert.NotNil(t, notified) {
		assert.Equal(t, approval.StatusModified, notified.Status)
	}
}

func TestService_ConcurrentResolution(t *testing.T) {
	ctx := context.Background()
	srv := New(WithIDGenerator(idgen.Sequence("prop")))
	proposal := createPending(t, srv, "twin-1")

	var approvals, rejections int32
	srv.OnApproved(func(*approval.Proposal) { atomic.AddInt32(&approvals, 1) })
	srv.OnRejected(func(*approval.Proposal) { atomic.AddInt32(&rejections, 1) })

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		approve := i%2 == 0
		go func() {
			defer wg.Done()
			var resolved *approval.Proposal
			if approve {
				resolved, _ = srv.Approve(ctx, proposal.ID, "racer", "")
			} else {
				resolved, _ = srv.Reject(ctx, proposal.ID, "racer", "lost confidence")
			}
			if resolved != nil {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
	assert.Equal(t, int32(1), approvals+rejections)

	final, err := srv.Get(ctx, proposal.ID)
	assert.Nil(t, err)
	if assert.NotNil(t, final) {
		assert.True(t, final.Status.Terminal())
	}
}

func TestService_ReadDuringResolution(t *testing.T) {
	ctx := context.Background()
	srv := New(WithIDGenerator(idgen.Sequence("prop")))
	proposal := createPending(t, srv, "twin-1")

	// readers poll while the transition runs; stored records are replaced,
	// never written in place, so the unlocked reads stay consistent
	done := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				loaded, err := srv.Get(ctx, proposal.ID)
				assert.Nil(t, err)
				if assert.NotNil(t, loaded) && loaded.Status.Terminal() {
					return
				}
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	resolved, err := srv.Approve(ctx, proposal.ID, "supervisor-1", "")
	close(done)
	readers.Wait()
	assert.Nil(t, err)
	if assert.NotNil(t, resolved) {
		assert.Equal(t, approval.StatusApproved, resolved.Status)
	}
}

func TestService_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	srv := newTestService(now)

	// a negative timeout expires at creation time, visible at the next read
	expired, err := srv.CreateProposal(ctx, approval.CreateInput{
		SubjectID: "twin-1",
		Summary:   "instant",
		Timeout:   -time.Second,
	})
	assert.Nil(t, err)
	assert.Equal(t, approval.StatusPending, expired.Status)

	alive, err := srv.CreateProposal(ctx, approval.CreateInput{
		SubjectID: "twin-1",
		Summary:   "still valid",
		Timeout:   time.Hour,
	})
	assert.Nil(t, err)

	// an omitted timeout gets the standard window, not instant expiry
	defaulted, err := srv.CreateProposal(ctx, approval.CreateInput{
		SubjectID: "twin-2",
		Summary:   "defaulted",
	})
	assert.Nil(t, err)
	assert.Equal(t, now.Add(approval.DefaultTimeout), defaulted.ExpiresAt)

	pending, err := srv.ListPending(ctx, "twin-1")
	assert.Nil(t, err)
	if assert.Equal(t, 1, len(pending)) {
		assert.Equal(t, alive.ID, pending[0].ID)
	}

	// the sweep persisted the flip
	loaded, err := srv.Get(ctx, expired.ID)
	assert.Nil(t, err)
	if assert.NotNil(t, loaded) {
		assert.Equal(t, approval.StatusExpired, loaded.Status)
	}

	// an expired proposal cannot be approved
	resolved, err := srv.Approve(ctx, expired.ID, "supervisor-1", "")
	assert.Nil(t, err)
	assert.Nil(t, resolved)
}

func TestService_ReapExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	srv := newTestService(now)

	for i := 0; i < 3; i++ {
		_, err := srv.CreateProposal(ctx, approval.CreateInput{SubjectID: "twin-1", Timeout: -time.Second})
		assert.Nil(t, err)
	}
	_, err := srv.CreateProposal(ctx, approval.CreateInput{SubjectID: "twin-1", Timeout: time.Hour})
	assert.Nil(t, err)

	reaped, err := srv.ReapExpired(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 3, reaped)

	// idempotent
	reaped, err = srv.ReapExpired(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 0, reaped)
}

func TestService_ListPending(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := base
	srv := New(
		WithClock(func() time.Time { return current }),
		WithIDGenerator(idgen.Sequence("prop")))

	first, _ := srv.CreateProposal(ctx, approval.CreateInput{SubjectID: "twin-1", Timeout: time.Hour})
	current = base.Add(time.Minute)
	second, _ := srv.CreateProposal(ctx, approval.CreateInput{SubjectID: "twin-2", Timeout: time.Hour})
	current = base.Add(2 * time.Minute)
	third, _ := srv.CreateProposal(ctx, approval.CreateInput{SubjectID: "twin-1", Timeout: time.Hour})

	all, err := srv.ListPending(ctx, "")
	assert.Nil(t, err)
	if assert.Equal(t, 3, len(all)) {
		// newest first
		assert.Equal(t, third.ID, all[0].ID)
		assert.Equal(t, second.ID, all[1].ID)
		assert.Equal(t, first.ID, all[2].ID)
	}

	scoped, err := srv.ListPending(ctx, "twin-1")
	assert.Nil(t, err)
	if assert.Equal(t, 2, len(scoped)) {
		assert.Equal(t, third.ID, scoped[0].ID)
		assert.Equal(t, first.ID, scoped[1].ID)
	}
}

func TestService_CallbackIsolation(t *testing.T) {
	ctx := context.Background()
	srv := newTestService(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	proposal := createPending(t, srv, "twin-1")

	var after int32
	srv.OnApproved(func(*approval.Proposal) { panic("boom") })
	srv.OnApproved(func(*approval.Proposal) { atomic.AddInt32(&after, 1) })

	resolved, err := srv.Approve(ctx, proposal.ID, "supervisor-1", "")
	assert.Nil(t, err)
	assert.NotNil(t, resolved)
	assert.Equal(t, int32(1), after)
}

func TestService_CustomQueue(t *testing.T) {
	ctx := context.Background()
	custom := qmem.NewQueue[approval.Event](qmem.DefaultConfig())
	srv := New(WithQueue(custom))
	assert.Same(t, custom, srv.Queue())

	_, err := srv.CreateProposal(ctx, approval.CreateInput{SubjectID: "twin-1", Timeout: time.Hour})
	assert.Nil(t, err)
	assert.Equal(t, 1, custom.Size())
}

func TestService_QueueEvents(t *testing.T) {
	ctx := context.Background()
	srv := newTestService(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	proposal := createPending(t, srv, "twin-1")
	_, err := srv.Approve(ctx, proposal.ID, "supervisor-1", "")
	assert.Nil(t, err)

	queue := srv.Queue()
	created, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Equal(t, approval.TopicProposalCreated, created.T().Topic)
	assert.Nil(t, created.Ack())

	resolved, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Equal(t, approval.TopicProposalResolved, resolved.T().Topic)
	assert.Equal(t, approval.StatusApproved, resolved.T().Proposal.Status)
	assert.Nil(t, resolved.Ack())
}
