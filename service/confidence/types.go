package confidence

// Component names used as keys in Result.Components.
const (
	ComponentHistorical  = "historical_success_rate"
	ComponentDataQuality = "data_quality_score"
	ComponentSimulation  = "simulation_consistency"
	ComponentConsensus   = "ai_consensus_score"
)

// Weights maps each component to its fixed share of the total. The values
// sum to exactly 1.0; Result.Total is always the weighted sum of the
// components.
var Weights = map[string]float64{
	ComponentHistorical:  0.25,
	ComponentDataQuality: 0.25,
	ComponentSimulation:  0.30,
	ComponentConsensus:   0.20,
}

// Result is the scored assessment of a pending action. It is an immutable
// value object created fresh per Calculate call.
type Result struct {
	// Total lies in [0,1], rounded to 4 decimal digits.
	Total      float64            `json:"total"`
	Components map[string]float64 `json:"components"`
	// Reasoning is a pipe-joined human-readable trace; informational only,
	// never parsed downstream.
	Reasoning string `json:"reasoning"`
}

// Simulation carries the output contract of the (out of scope) simulation
// subsystem: per-metric standard deviations.
type Simulation struct {
	Uncertainty map[string]float64 `json:"uncertainty"`
}

// Agent is one AI agent's report; only the recommendation participates in
// the consensus signal.
type Agent struct {
	Recommendation string `json:"recommendation"`
}

// Input bundles the optional evidence signals supplied by upstream
// subsystems. Nil fields fall back to the documented neutral defaults.
type Input struct {
	DataQuality *float64
	Simulation  *Simulation
	Agents      []Agent
}

// OutcomeRecord is the historical result of one executed action, retained
// per subject in a bounded window.
type OutcomeRecord struct {
	ActionID   string  `json:"actionID"`
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
}
