// Package metrics turns raw thought text and graph structure into bounded
// confidence, relevance, and quality scores, and reduces multi-source
// verification evidence into a consensus status.
//
// All scores are clamped to configurable bands so a single pathological
// input can never saturate or zero out a thought. The scoring weights and
// thresholds live in Config; the values in DefaultConfig() are the
// reference baseline, not the only sane choice.
//
// Every score comes with an explainable breakdown (factor, value, weight,
// rationale) cached per thought until the graph reports a mutation.
//
// Example Usage:
//
//	engine := metrics.NewEngine(nil)
//
//	conf := engine.Confidence(thought, connected)
//	rel := engine.Relevance(thought, connected)
//	qual := engine.Quality(thought, connected)
//
//	status := engine.StatusFromEvidence([]metrics.Evidence{
//		{Outcome: metrics.StatusVerified, Confidence: 0.9},
//		{Outcome: metrics.StatusVerified, Confidence: 0.7},
//	})
//	fmt.Println(status) // verified
package metrics

import (
	"log"
	"math"
	"sync"

	"github.com/orvandel/mentat/pkg/graph"
)

// VerificationStatus is the consensus truth status of a claim.
type VerificationStatus string

const (
	StatusVerified          VerificationStatus = "verified"
	StatusPartiallyVerified VerificationStatus = "partially_verified"
	StatusUnverified        VerificationStatus = "unverified"
	StatusContradicted      VerificationStatus = "contradicted"
	StatusUncertain         VerificationStatus = "uncertain"
	StatusInconclusive      VerificationStatus = "inconclusive"
	StatusAbsenceOfInfo     VerificationStatus = "absence_of_information"
)

// ValidStatus reports whether s is a known verification status.
func ValidStatus(s VerificationStatus) bool {
	switch s {
	case StatusVerified, StatusPartiallyVerified, StatusUnverified,
		StatusContradicted, StatusUncertain, StatusInconclusive, StatusAbsenceOfInfo:
		return true
	}
	return false
}

// Band is an inclusive [Min, Max] clamp applied to a score.
type Band struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Clamp bounds v to the band.
func (b Band) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Mid returns the midpoint of the band.
func (b Band) Mid() float64 { return (b.Min + b.Max) / 2 }

// ConfidenceWeights distributes the confidence score across its four
// factors. The weights must sum to 1.0; NewEngine renormalizes (with a
// logged warning) when they do not.
type ConfidenceWeights struct {
	Modifiers  float64 `yaml:"modifiers"`  // certainty/uncertainty balance
	Structural float64 `yaml:"structural"` // citation and number density
	Sentiment  float64 `yaml:"sentiment"`  // positive/negative balance
	TypePrior  float64 `yaml:"type_prior"` // prior keyed by thought type
}

// StatusThresholds are the cut points of the evidence-reduction rule table.
// See StatusFromEvidence for how each one is used.
type StatusThresholds struct {
	StrongContradiction float64 `yaml:"strong_contradiction"` // contradicted ratio forcing contradicted
	MixedDisagreement   float64 `yaml:"mixed_disagreement"`   // both-sides ratio forcing uncertain
	VerifiedHigh        float64 `yaml:"verified_high"`        // verified ratio for full verified
	VerifiedLow         float64 `yaml:"verified_low"`         // verified ratio for partially_verified
	UncertainDominant   float64 `yaml:"uncertain_dominant"`
	AbsenceDominant     float64 `yaml:"absence_dominant"`
	ResidualVerified    float64 `yaml:"residual_verified"` // any signal above this keeps partial credit

	// Single-signal shape (StatusFromSignal)
	SignalVerified float64 `yaml:"signal_verified"`
	SignalPartial  float64 `yaml:"signal_partial"`
}

// Config holds every tunable of the metrics engine.
type Config struct {
	Confidence  Band `yaml:"confidence"`
	Relevance   Band `yaml:"relevance"`
	Quality     Band `yaml:"quality"`
	Reliability Band `yaml:"reliability"`

	Weights    ConfidenceWeights `yaml:"weights"`
	Thresholds StatusThresholds  `yaml:"thresholds"`

	// SmoothingFactor blends a fresh reliability score against the
	// previous one: new*factor + old*(1-factor).
	SmoothingFactor float64 `yaml:"smoothing_factor"`

	// BiasReportThreshold suppresses bias findings below this score.
	BiasReportThreshold float64 `yaml:"bias_report_threshold"`
}

// DefaultConfig returns the reference baseline for all scoring constants.
func DefaultConfig() *Config {
	return &Config{
		Confidence:  Band{Min: 0.1, Max: 0.95},
		Relevance:   Band{Min: 0.2, Max: 0.95},
		Quality:     Band{Min: 0.3, Max: 0.95},
		Reliability: Band{Min: 0.1, Max: 0.95},
		Weights: ConfidenceWeights{
			Modifiers:  0.40,
			Structural: 0.25,
			Sentiment:  0.15,
			TypePrior:  0.20,
		},
		Thresholds: StatusThresholds{
			StrongContradiction: 0.50,
			MixedDisagreement:   0.30,
			VerifiedHigh:        0.60,
			VerifiedLow:         0.35,
			UncertainDominant:   0.40,
			AbsenceDominant:     0.40,
			ResidualVerified:    0.10,
			SignalVerified:      0.75,
			SignalPartial:       0.45,
		},
		SmoothingFactor:     0.7,
		BiasReportThreshold: 0.2,
	}
}

// Factor is one explainable component of a score.
type Factor struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Weight    float64 `json:"weight"`
	Rationale string  `json:"rationale"`
}

// Breakdown is a score with its ordered contributing factors.
type Breakdown struct {
	Score   float64  `json:"score"`
	Factors []Factor `json:"factors"`
}

// Engine computes scores and caches per-thought breakdowns.
//
// The engine itself holds no graph state; it consumes thoughts and their
// connected context as passed in. The breakdown cache exists purely for
// explainability and is dropped whenever the graph reports a mutation.
type Engine struct {
	config *Config

	mu         sync.RWMutex
	breakdowns map[string]map[string]Breakdown // thought id -> metric name -> breakdown
}

// NewEngine creates a metrics engine. A nil config uses DefaultConfig().
// Confidence weights that do not sum to 1.0 are renormalized in place with
// a logged warning rather than rejected.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	sum := config.Weights.Modifiers + config.Weights.Structural +
		config.Weights.Sentiment + config.Weights.TypePrior
	if sum <= 0 {
		log.Printf("metrics: confidence weights sum to %.3f, resetting to defaults", sum)
		config.Weights = DefaultConfig().Weights
	} else if math.Abs(sum-1.0) > 1e-9 {
		log.Printf("metrics: confidence weights sum to %.3f, renormalizing to 1.0", sum)
		config.Weights.Modifiers /= sum
		config.Weights.Structural /= sum
		config.Weights.Sentiment /= sum
		config.Weights.TypePrior /= sum
	}

	return &Engine{
		config:     config,
		breakdowns: make(map[string]map[string]Breakdown),
	}
}

// Config returns the engine's (possibly renormalized) configuration.
func (e *Engine) Config() *Config { return e.config }

// ScoreAll computes all three thought scores at once.
func (e *Engine) ScoreAll(t *graph.Thought, connected []*graph.Thought) graph.Metrics {
	return graph.Metrics{
		Confidence: e.Confidence(t, connected),
		Relevance:  e.Relevance(t, connected),
		Quality:    e.Quality(t, connected),
	}
}

// BreakdownFor returns the cached breakdown for a metric of a thought, or
// false when no valid cache entry exists.
func (e *Engine) BreakdownFor(thoughtID, metric string) (Breakdown, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	byMetric, ok := e.breakdowns[thoughtID]
	if !ok {
		return Breakdown{}, false
	}
	b, ok := byMetric[metric]
	return b, ok
}

// Invalidate drops every cached breakdown for the thought. Wire this to
// graph.SetMutationHook.
func (e *Engine) Invalidate(thoughtID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.breakdowns, thoughtID)
}

// InvalidateAll drops the whole breakdown cache.
func (e *Engine) InvalidateAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.breakdowns = make(map[string]map[string]Breakdown)
}

func (e *Engine) storeBreakdown(thoughtID, metric string, b Breakdown) {
	if thoughtID == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	byMetric, ok := e.breakdowns[thoughtID]
	if !ok {
		byMetric = make(map[string]Breakdown, 3)
		e.breakdowns[thoughtID] = byMetric
	}
	byMetric[metric] = b
}

// sigmoid smooths a raw signal into (0, 1) without a hard threshold.
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
