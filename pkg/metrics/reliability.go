package metrics

import (
	"fmt"
	"strings"

	"github.com/orvandel/mentat/pkg/calcverify"
	"github.com/orvandel/mentat/pkg/graph"
)

// statusScores is the fixed lookup from verification status to its
// contribution to reliability.
var statusScores = map[VerificationStatus]float64{
	StatusVerified:          0.90,
	StatusPartiallyVerified: 0.65,
	StatusUncertain:         0.40,
	StatusInconclusive:      0.35,
	StatusAbsenceOfInfo:     0.30,
	StatusUnverified:        0.25,
	StatusContradicted:      0.10,
}

// statusCeilings caps reliability per status: an unverified claim can never
// score like a verified one no matter how polished its metrics look.
var statusCeilings = map[VerificationStatus]float64{
	StatusVerified:          0.95,
	StatusPartiallyVerified: 0.80,
	StatusUncertain:         0.60,
	StatusInconclusive:      0.55,
	StatusAbsenceOfInfo:     0.50,
	StatusUnverified:        0.50,
	StatusContradicted:      0.30,
}

// Reliability blends the thought's metrics with the status-derived score,
// adds a bonus for correct arithmetic, applies the per-status ceiling, and
// optionally smooths against the previous score to damp oscillation across
// re-evaluations. Bounded to the configured band.
//
// calcResults may be nil; previousScore nil skips smoothing.
func (e *Engine) Reliability(m graph.Metrics, status VerificationStatus, calcResults []calcverify.Result, previousScore *float64) float64 {
	statusScore, ok := statusScores[status]
	if !ok {
		statusScore = statusScores[StatusUnverified]
	}

	score := 0.25*m.Confidence + 0.15*m.Relevance + 0.15*m.Quality + 0.45*statusScore

	if len(calcResults) > 0 {
		correct := 0
		for _, r := range calcResults {
			if r.IsCorrect {
				correct++
			}
		}
		score += 0.1 * float64(correct) / float64(len(calcResults))
	}

	if ceiling, ok := statusCeilings[status]; ok && score > ceiling {
		score = ceiling
	}

	if previousScore != nil {
		f := e.config.SmoothingFactor
		score = f*score + (1-f)*(*previousScore)
	}

	return e.config.Reliability.Clamp(score)
}

// CertaintySummary renders a deterministic human-readable summary of a
// verification outcome. Same inputs, same text. When the status is
// unverified but the score is non-trivially high, the summary carries an
// explicit disclaimer so the number is not mistaken for verification.
func (e *Engine) CertaintySummary(status VerificationStatus, score float64, calcResults []calcverify.Result) string {
	var b strings.Builder

	switch status {
	case StatusVerified:
		fmt.Fprintf(&b, "Verified with %.0f%% reliability.", score*100)
	case StatusPartiallyVerified:
		fmt.Fprintf(&b, "Partially verified (%.0f%% reliability); some aspects remain unchecked.", score*100)
	case StatusContradicted:
		fmt.Fprintf(&b, "Contradicted by available evidence (%.0f%% reliability).", score*100)
	case StatusUncertain:
		fmt.Fprintf(&b, "Evidence is mixed or weak; certainty is low (%.0f%%).", score*100)
	case StatusInconclusive:
		fmt.Fprintf(&b, "Evaluation was inconclusive (%.0f%% reliability).", score*100)
	case StatusAbsenceOfInfo:
		fmt.Fprintf(&b, "No information was found for this claim (%.0f%% reliability).", score*100)
	default:
		fmt.Fprintf(&b, "Unverified (%.0f%% reliability).", score*100)
		if score > 0.5 {
			b.WriteString(" Note: this score reflects internal heuristics only; the claim itself has not been verified against any source.")
		}
	}

	if len(calcResults) > 0 {
		correct := 0
		for _, r := range calcResults {
			if r.IsCorrect {
				correct++
			}
		}
		fmt.Fprintf(&b, " Arithmetic checks: %d/%d correct.", correct, len(calcResults))
	}

	return b.String()
}
