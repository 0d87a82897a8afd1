package metrics

import (
	"fmt"
	"strings"

	"github.com/orvandel/mentat/pkg/graph"
)

// Quality indicator catalogues, kept as data tables like the confidence
// markers.

var qualityPositive = []string{
	"because", "therefore", "evidence", "data", "analysis", "specifically",
	"measured", "observed", "compared",
	"parce que", "donc", "preuve", "données", "analyse", "précisément",
	"mesuré", "observé",
}

var qualityNegative = []string{
	"obviously", "everyone knows", "always", "never", "just because",
	"no doubt whatsoever",
	"évidemment", "tout le monde sait", "toujours", "jamais",
}

// typeQualityPhrases reward wording appropriate to the thought's role.
var typeQualityPhrases = map[graph.ThoughtType][]string{
	graph.TypeConclusion: {"in conclusion", "therefore", "thus", "overall",
		"en conclusion", "donc", "en somme"},
	graph.TypeHypothesis: {"if", "then", "predict", "expect", "would imply",
		"si", "alors", "prédit"},
	graph.TypeRevision: {"previously", "correction", "instead", "actually", "on reflection",
		"précédemment", "en fait", "correction"},
	graph.TypeMeta: {"approach", "strategy", "method", "reasoning",
		"approche", "stratégie", "méthode"},
}

// wordBand is a structural scoring band over counts.
type wordBand struct {
	min, max int
	score    float64
}

// Non-overlapping word-count bands. Conclusions and revisions get the wider,
// more lenient layout because they legitimately run long.
var defaultWordBands = []wordBand{
	{20, 150, 1.0},
	{10, 19, 0.7},
	{151, 250, 0.7},
}

var lenientWordBands = []wordBand{
	{15, 300, 1.0},
	{8, 14, 0.7},
	{301, 400, 0.7},
}

// Quality scores how well-formed a thought is, bounded to the configured
// band. Combines a lexical positive/negative ratio, type-appropriate
// phrasing, structural word-count and sentence-length bands, and a
// coherence score from supports/contradicts connections into the context
// (with a synthesis bonus for well-connected conclusions and revisions).
func (e *Engine) Quality(t *graph.Thought, connected []*graph.Thought) float64 {
	text := strings.ToLower(t.Content)

	pos := countMarkers(text, qualityPositive)
	neg := countMarkers(text, qualityNegative)
	lexical := 0.5
	if pos+neg > 0 {
		lexical = float64(pos) / float64(pos+neg)
	}

	phraseHits := countMarkers(text, typeQualityPhrases[t.Type])
	phraseScore := 0.4 + 0.2*float64(phraseHits)
	if phraseScore > 1.0 {
		phraseScore = 1.0
	}

	structural := structuralQuality(t)
	coherence, bonus := e.coherenceScore(t, connected)

	raw := 0.30*lexical + 0.20*phraseScore + 0.25*structural + 0.25*coherence + bonus
	score := e.config.Quality.Clamp(raw)

	e.storeBreakdown(t.ID, "quality", Breakdown{
		Score: score,
		Factors: []Factor{
			{Label: "lexical_ratio", Value: lexical, Weight: 0.30,
				Rationale: fmt.Sprintf("%d positive vs %d negative quality indicators", pos, neg)},
			{Label: "type_phrases", Value: phraseScore, Weight: 0.20,
				Rationale: fmt.Sprintf("%d phrases matching type %s", phraseHits, t.Type)},
			{Label: "structure", Value: structural, Weight: 0.25,
				Rationale: "word-count and sentence-length bands"},
			{Label: "coherence", Value: coherence, Weight: 0.25,
				Rationale: "supports vs contradicts balance in context"},
		},
	})
	return score
}

func structuralQuality(t *graph.Thought) float64 {
	words := len(strings.Fields(t.Content))
	bands := defaultWordBands
	if t.Type == graph.TypeConclusion || t.Type == graph.TypeRevision {
		bands = lenientWordBands
	}

	wordScore := 0.4
	for _, b := range bands {
		if words >= b.min && words <= b.max {
			wordScore = b.score
			break
		}
	}

	sentences := strings.FieldsFunc(t.Content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentenceScore := 0.6
	if len(sentences) > 0 {
		avg := float64(words) / float64(len(sentences))
		if avg >= 8 && avg <= 25 {
			sentenceScore = 1.0
		}
	}

	return 0.6*wordScore + 0.4*sentenceScore
}

// coherenceScore uses Laplace smoothing so a thought with no supports or
// contradicts lands at a neutral 0.5 rather than an extreme. The synthesis
// bonus rewards conclusions and revisions that tie together at least two
// context thoughts.
func (e *Engine) coherenceScore(t *graph.Thought, connected []*graph.Thought) (score, bonus float64) {
	inContext := make(map[string]bool, len(connected))
	for _, c := range connected {
		inContext[c.ID] = true
	}

	supports, contradicts, total := 0, 0, 0
	for _, conn := range t.Connections {
		if !inContext[conn.TargetID] {
			continue
		}
		total++
		switch conn.Type {
		case graph.RelSupports, graph.RelSupportedBy:
			supports++
		case graph.RelContradicts:
			contradicts++
		}
	}

	score = float64(supports+1) / float64(supports+contradicts+2)
	if total >= 2 && (t.Type == graph.TypeConclusion || t.Type == graph.TypeRevision) {
		bonus = 0.1
	}
	return score, bonus
}
