package confidence

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

const (
	// DefaultHistoryWindow bounds the per-subject outcome history.
	DefaultHistoryWindow = 1000
	// DefaultMinSamples is the number of outcomes below which the
	// historical signal stays at the neutral default.
	DefaultMinSamples = 10

	neutralScore           = 0.5
	defaultDataQuality     = 0.8
	defaultSimKnownOutcome = 0.8
)

// Scorer combines four evidence signals into a single [0,1] score and keeps
// the per-subject outcome history that feeds the historical signal. It is
// safe for concurrent use; Calculate never mutates history.
type Scorer struct {
	mu         sync.RWMutex
	history    map[string][]OutcomeRecord
	window     int
	minSamples int
}

type Option func(*Scorer)

// WithHistoryWindow overrides the per-subject history bound.
func WithHistoryWindow(window int) Option {
	return func(s *Scorer) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithMinSamples overrides the insufficient-data cutoff for the historical
// signal.
func WithMinSamples(minSamples int) Option {
	return func(s *Scorer) {
		if minSamples > 0 {
			s.minSamples = minSamples
		}
	}
}

func NewScorer(options ...Option) *Scorer {
	ret := &Scorer{
		history:    make(map[string][]OutcomeRecord),
		window:     DefaultHistoryWindow,
		minSamples: DefaultMinSamples,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Calculate scores the subject against the supplied evidence. Omitted signals
// fall back to neutral defaults rather than failing.
func (s *Scorer) Calculate(subjectID string, input Input) *Result {
	components := make(map[string]float64, len(Weights))
	var reasoning []string

	historical := s.historicalSuccess(subjectID)
	components[ComponentHistorical] = historical
	reasoning = append(reasoning, fmt.Sprintf("Historical: %.2f", historical))

	quality := defaultDataQuality
	if input.DataQuality != nil {
		quality = *input.DataQuality
	}
	components[ComponentDataQuality] = quality
	reasoning = append(reasoning, fmt.Sprintf("DataQuality: %.2f", quality))

	consistency := simConsistency(input.Simulation)
	components[ComponentSimulation] = consistency
	reasoning = append(reasoning, fmt.Sprintf("SimConsistency: %.2f", consistency))

	consensus := agentConsensus(input.Agents)
	components[ComponentConsensus] = consensus
	reasoning = append(reasoning, fmt.Sprintf("AIConsensus: %.2f", consensus))

	var total float64
	for component, weight := range Weights {
		total += components[component] * weight
	}
	return &Result{
		Total:      round4(total),
		Components: components,
		Reasoning:  strings.Join(reasoning, " | "),
	}
}

// RecordOutcome appends one outcome to the subject's history, dropping the
// oldest entries beyond the window. This is the sole mutation entry point.
func (s *Scorer) RecordOutcome(subjectID, actionID string, success bool, confidenceAtDecision float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := append(s.history[subjectID], OutcomeRecord{
		ActionID:   actionID,
		Success:    success,
		Confidence: confidenceAtDecision,
	})
	if len(records) > s.window {
		records = records[len(records)-s.window:]
	}
	s.history[subjectID] = records
}

// History returns a copy of the subject's recorded outcomes, oldest first.
func (s *Scorer) History(subjectID string) []OutcomeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.history[subjectID]
	out := make([]OutcomeRecord, len(records))
	copy(out, records)
	return out
}

func (s *Scorer) historicalSuccess(subjectID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.history[subjectID]
	if len(records) < s.minSamples {
		return neutralScore
	}
	successes := 0
	for _, record := range records {
		if record.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(records))
}

// simConsistency derives consistency from the worst per-metric standard
// deviation: the lower the spread, the more consistent the simulation.
func simConsistency(simulation *Simulation) float64 {
	if simulation == nil {
		return neutralScore
	}
	if len(simulation.Uncertainty) == 0 {
		return defaultSimKnownOutcome
	}
	maxStd := 0.0
	for _, std := range simulation.Uncertainty {
		if std > maxStd {
			maxStd = std
		}
	}
	return round4(math.Max(0, 1-maxStd))
}

// agentConsensus is the fraction of agent recommendations that agree with the
// plurality recommendation. Fewer than two reporting agents yields the
// neutral default.
func agentConsensus(agents []Agent) float64 {
	if len(agents) < 2 {
		return neutralScore
	}
	counts := make(map[string]int)
	total := 0
	for _, agent := range agents {
		if agent.Recommendation == "" {
			continue
		}
		counts[agent.Recommendation]++
		total++
	}
	if total == 0 {
		return neutralScore
	}
	best := 0
	for _, count := range counts {
		if count > best {
			best = count
		}
	}
	return round4(float64(best) / float64(total))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
