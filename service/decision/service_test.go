package decision

import (
	"context"
	"testing"
	"time"

	"github.com/opstwin/autonomy/internal/clock"
	"github.com/opstwin/autonomy/internal/idgen"
	"github.com/opstwin/autonomy/service/confidence"
	"github.com/opstwin/autonomy/service/messaging/memory"
	"github.com/stretchr/testify/assert"
)

func resultWith(total float64) *confidence.Result {
	return &confidence.Result{Total: total}
}

func TestService_Decide(t *testing.T) {
	testCases := []struct {
		name            string
		confidence      float64
		action          *Action
		expectType      Type
		expectReasoning string
		expectAction    bool
		expectSafety    bool
	}{
		{
			name:            "high confidence auto executes",
			confidence:      0.95,
			action:          &Action{Type: "adjust_setpoint"},
			expectType:      TypeAutoExecute,
			expectReasoning: "High confidence (95.00%) - auto execution approved",
			expectAction:    true,
			expectSafety:    true,
		},
		{
			name:            "boundary at auto execute threshold",
			confidence:      0.90,
			action:          &Action{Type: "adjust_setpoint"},
			expectType:      TypeAutoExecute,
			expectReasoning: "High confidence (90.00%) - auto execution approved",
			expectAction:    true,
			expectSafety:    true,
		},
		{
			name:            "medium confidence requires approval",
			confidence:      0.80,
			action:          &Action{Type: "adjust_setpoint"},
			expectType:      TypeRequireApproval,
			expectReasoning: "Medium confidence (80.00%) - human approval required",
			expectAction:    true,
			expectSafety:    true,
		},
		{
			name:            "boundary at approval threshold",
			confidence:      0.70,
			action:          &Action{Type: "adjust_setpoint"},
			expectType:      TypeRequireApproval,
			expectReasoning: "Medium confidence (70.00%) - human approval required",
			expectAction:    true,
			expectSafety:    true,
		},
		{
			name:            "low confidence requires analysis and withholds the action",
			confidence:      0.50,
			action:          &Action{Type: "adjust_setpoint"},
			expectType:      TypeRequireAnalysis,
			expectReasoning: "Low confidence (50.00%) - additional analysis needed",
			expectAction:    false,
			expectSafety:    true,
		},
		{
			name:            "shutdown without emergency flag is rejected even at full confidence",
			confidence:      1.0,
			action:          &Action{Type: "shutdown"},
			expectType:      TypeReject,
			expectReasoning: "Safety constraint violation: Non-emergency shutdown requires explicit emergency flag",
			expectAction:    false,
			expectSafety:    false,
		},
		{
			name:            "emergency shutdown passes safety",
			confidence:      0.95,
			action:          &Action{Type: "shutdown", Emergency: true},
			expectType:      TypeAutoExecute,
			expectReasoning: "High confidence (95.00%) - auto execution approved",
			expectAction:    true,
			expectSafety:    true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			srv := New()
			verdict := srv.Decide(context.Background(), resultWith(testCase.confidence), testCase.action)
			assert.Equal(t, testCase.expectType, verdict.Type)
			assert.Equal(t, testCase.expectReasoning, verdict.Reasoning)
			assert.Equal(t, testCase.expectSafety, verdict.SafetyCheckPassed)
			assert.Equal(t, testCase.confidence, verdict.Confidence)
			if testCase.expectAction {
				assert.Equal(t, testCase.action, verdict.RecommendedAction)
			} else {
				assert.Nil(t, verdict.RecommendedAction)
			}
		})
	}
}

func TestService_DecideWithoutAction(t *testing.T) {
	srv := New()

	// no proposed action passes safety trivially; thresholds still apply
	verdict := srv.Decide(context.Background(), resultWith(0.40), nil)
	assert.Equal(t, TypeRequireAnalysis, verdict.Type)
	assert.Nil(t, verdict.RecommendedAction)
	assert.True(t, verdict.SafetyCheckPassed)

	verdict = srv.Decide(context.Background(), resultWith(0.95), nil)
	assert.Equal(t, TypeAutoExecute, verdict.Type)
	assert.Nil(t, verdict.RecommendedAction)
}

func TestService_Constraints(t *testing.T) {
	srv := New()
	srv.AddConstraint(Constraint{
		Name:   "no_purge",
		Forbid: []string{"purge"},
		Reason: "purge line is under maintenance",
	})

	verdict := srv.Decide(context.Background(), resultWith(0.99), &Action{Type: "purge"})
	assert.Equal(t, TypeReject, verdict.Type)
	assert.Equal(t, "Safety constraint violation: purge line is under maintenance", verdict.Reasoning)

	// other action types are unaffected
	verdict = srv.Decide(context.Background(), resultWith(0.99), &Action{Type: "adjust_setpoint"})
	assert.Equal(t, TypeAutoExecute, verdict.Type)
}

func TestService_ConstraintWithoutReason(t *testing.T) {
	srv := New()
	srv.AddConstraint(Constraint{Name: "no_vent", Forbid: []string{"vent"}})

	verdict := srv.Decide(context.Background(), resultWith(0.99), &Action{Type: "vent"})
	assert.Equal(t, TypeReject, verdict.Type)
	assert.Equal(t, "Safety constraint violation: Action type 'vent' is forbidden", verdict.Reasoning)
}

func TestService_CustomThresholds(t *testing.T) {
	srv := New(WithThresholds(Thresholds{AutoExecute: 0.99, RequireApproval: 0.5}))

	assert.Equal(t, TypeRequireApproval, srv.Decide(context.Background(), resultWith(0.95), &Action{Type: "adjust"}).Type)
	assert.Equal(t, TypeAutoExecute, srv.Decide(context.Background(), resultWith(0.99), &Action{Type: "adjust"}).Type)
	assert.Equal(t, TypeRequireAnalysis, srv.Decide(context.Background(), resultWith(0.4), &Action{Type: "adjust"}).Type)
}

func TestService_Log(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := New(WithClock(clock.Fixed(frozen)), WithIDGenerator(idgen.Sequence("dec")))

	srv.Decide(context.Background(), resultWith(0.95), &Action{Type: "adjust"})
	srv.Decide(context.Background(), resultWith(0.30), &Action{Type: "adjust"})
	srv.Decide(context.Background(), resultWith(1.0), &Action{Type: "shutdown"})

	entries := srv.Log(0)
	if !assert.Equal(t, 3, len(entries)) {
		return
	}
	assert.Equal(t, "dec_1", entries[0].ID)
	assert.Equal(t, TypeAutoExecute, entries[0].Type)
	assert.Equal(t, TypeRequireAnalysis, entries[1].Type)
	assert.Equal(t, TypeReject, entries[2].Type)
	assert.Equal(t, frozen, entries[0].CreatedAt)

	tail := srv.Log(2)
	assert.Equal(t, 2, len(tail))
	assert.Equal(t, TypeRequireAnalysis, tail[0].Type)
}

func TestService_QueueMirror(t *testing.T) {
	queue := memory.NewQueue[Decision](memory.DefaultConfig())
	srv := New(WithQueue(queue))

	srv.Decide(context.Background(), resultWith(0.95), &Action{Type: "adjust"})

	msg, err := queue.Consume(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, TypeAutoExecute, msg.T().Type)
	assert.Nil(t, msg.Ack())
}

func TestThresholds_Validate(t *testing.T) {
	assert.Nil(t, DefaultThresholds().Validate())
	assert.NotNil(t, Thresholds{AutoExecute: 0.5, RequireApproval: 0.9}.Validate())
	assert.NotNil(t, Thresholds{AutoExecute: 1.5, RequireApproval: 0.7}.Validate())
}
