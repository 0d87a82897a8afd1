package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/orvandel/mentat/pkg/graph"
)

// Indicator catalogues are data tables on purpose: each list can be unit
// tested and extended without touching the scoring control flow. English
// and French terms are mixed because reasoning sessions are.

var certaintyMarkers = []string{
	"clearly", "certainly", "definitely", "demonstrated", "proven", "obviously",
	"undoubtedly", "confirmed", "established", "conclusive",
	"clairement", "certainement", "démontré", "prouvé", "évidemment",
	"indéniablement", "confirmé", "établi", "sans aucun doute",
}

var uncertaintyMarkers = []string{
	"maybe", "perhaps", "might", "possibly", "could be", "unclear", "uncertain",
	"not sure", "probably", "seems", "appears", "needs verification",
	"peut-être", "possiblement", "pourrait", "incertain", "il faudra vérifier",
	"hypothèse", "semble", "apparemment", "probablement", "à confirmer",
}

var positiveSentiment = []string{
	"good", "strong", "robust", "solid", "consistent", "reliable", "valid",
	"bon", "fort", "solide", "cohérent", "fiable", "valide",
}

var negativeSentiment = []string{
	"bad", "weak", "flawed", "inconsistent", "unreliable", "invalid", "doubtful",
	"mauvais", "faible", "erroné", "incohérent", "douteux", "invalide",
}

// citationMarkers are structural signals that text leans on sources.
var citationMarkers = []string{
	"study", "studies", "research", "source", "report", "et al", "according to",
	"étude", "études", "recherche", "rapport", "selon",
}

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?%?`)

// typePriors is the baseline confidence for each thought type: a stated
// conclusion carries more commitment than a hypothesis.
var typePriors = map[graph.ThoughtType]float64{
	graph.TypeConclusion: 0.80,
	graph.TypeRevision:   0.70,
	graph.TypeRegular:    0.60,
	graph.TypeMeta:       0.55,
	graph.TypeHypothesis: 0.40,
}

// Confidence scores how strongly the thought's own wording commits to its
// claim, bounded to the configured band.
//
// Four weighted factors:
//   - modifier balance: certainty vs uncertainty markers, smoothed through
//     a sigmoid so one extra marker never flips the score
//   - structural: citation and number density, saturating at 1.0
//   - sentiment balance: peaks when positive and negative indicators are
//     roughly equal (one-sided language reads as less measured)
//   - type prior: per thought type
func (e *Engine) Confidence(t *graph.Thought, connected []*graph.Thought) float64 {
	text := strings.ToLower(t.Content)

	cert := countMarkers(text, certaintyMarkers)
	unc := countMarkers(text, uncertaintyMarkers)
	modifierScore := sigmoid(float64(cert - unc))

	structural := structuralScore(text)

	pos := countMarkers(text, positiveSentiment)
	neg := countMarkers(text, negativeSentiment)
	sentiment := sentimentBalance(pos, neg)

	prior, ok := typePriors[t.Type]
	if !ok {
		prior = typePriors[graph.TypeRegular]
	}

	w := e.config.Weights
	raw := w.Modifiers*modifierScore + w.Structural*structural +
		w.Sentiment*sentiment + w.TypePrior*prior
	score := e.config.Confidence.Clamp(raw)

	e.storeBreakdown(t.ID, "confidence", Breakdown{
		Score: score,
		Factors: []Factor{
			{Label: "modifier_balance", Value: modifierScore, Weight: w.Modifiers,
				Rationale: fmt.Sprintf("%d certainty vs %d uncertainty markers", cert, unc)},
			{Label: "structural", Value: structural, Weight: w.Structural,
				Rationale: "citation and number density, saturating"},
			{Label: "sentiment_balance", Value: sentiment, Weight: w.Sentiment,
				Rationale: fmt.Sprintf("%d positive vs %d negative indicators", pos, neg)},
			{Label: "type_prior", Value: prior, Weight: w.TypePrior,
				Rationale: "baseline for thought type " + string(t.Type)},
		},
	})
	return score
}

// structuralScore grows with citation markers and numeric content but
// saturates: each signal adds 0.25 up to 1.0.
func structuralScore(lowerText string) float64 {
	count := countMarkers(lowerText, citationMarkers)
	count += len(numberPattern.FindAllString(lowerText, 5))
	score := 0.25 * float64(count)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// sentimentBalance peaks at 1.0 when positive and negative counts are
// equal and decays toward 0 as one side dominates. No indicators at all is
// neutral (0.5).
func sentimentBalance(pos, neg int) float64 {
	total := pos + neg
	if total == 0 {
		return 0.5
	}
	diff := pos - neg
	if diff < 0 {
		diff = -diff
	}
	return 1.0 - float64(diff)/float64(total)
}

func countMarkers(lowerText string, markers []string) int {
	count := 0
	for _, m := range markers {
		if strings.Contains(lowerText, m) {
			count++
		}
	}
	return count
}
