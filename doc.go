// Package autonomy mediates whether an automatically proposed change to an
// industrial asset may execute without human intervention.
//
// The gate combines pluggable service layers:
//
//   - rbac       – role-based permission authority with an audit trail
//   - confidence – multi-factor confidence scoring with outcome history
//   - decision   – safety constraints and threshold-driven policy verdicts
//   - approval   – time-bounded human approval workflow
//
// The library is designed to be embedded in host applications. End-users
// typically interact with it via the high-level Service façade exposed by the
// root package:
//
//	gate, _ := autonomy.New()
//	assessment, _ := gate.Assess(ctx, autonomy.AssessRequest{
//		SubjectID:      "twin-7",
//		ProposedAction: &decision.Action{Type: "adjust_setpoint"},
//	})
//	if assessment.Proposal != nil {
//		// a human resolves it via gate.ResolveProposal(...)
//	}
//
// For more details see the individual sub-packages.
package autonomy
