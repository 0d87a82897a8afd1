package metrics

import (
	"fmt"
	"strings"

	"github.com/orvandel/mentat/pkg/graph"
)

// BiasFinding is one detected reasoning bias.
type BiasFinding struct {
	Type        string  `json:"type"`
	Score       float64 `json:"score"` // (0, 1], pattern-match density
	Description string  `json:"description"`
}

// biasCatalogue maps each bias category to its trigger phrases. A data
// table, not code branches: add a category or a phrase without touching
// the detector.
var biasCatalogue = []struct {
	kind        string
	description string
	patterns    []string
}{
	{
		kind:        "confirmation",
		description: "seeks or privileges evidence that agrees with the prior position",
		patterns: []string{
			"as expected", "this confirms", "just as i thought", "proves my point",
			"comme prévu", "cela confirme", "comme je le pensais",
		},
	},
	{
		kind:        "recency",
		description: "overweights the latest information over the accumulated record",
		patterns: []string{
			"latest", "most recent", "just came out", "newest",
			"le plus récent", "vient de sortir", "tout dernier",
		},
	},
	{
		kind:        "availability",
		description: "treats easily recalled examples as representative",
		patterns: []string{
			"i remember", "for example i", "everyone i know", "i once saw",
			"je me souviens", "tout le monde que je connais",
		},
	},
	{
		kind:        "black_white",
		description: "frames a graded question as a binary one",
		patterns: []string{
			"always", "never", "completely", "totally", "either", "impossible",
			"toujours", "jamais", "complètement", "totalement", "impossible",
		},
	},
	{
		kind:        "authority",
		description: "substitutes a source's standing for the strength of its argument",
		patterns: []string{
			"experts say", "scientists agree", "authorities confirm", "as the famous",
			"les experts disent", "les scientifiques s'accordent",
		},
	},
	{
		kind:        "emotional",
		description: "emotional intensity standing in for evidential weight",
		patterns: []string{
			"outrageous", "shocking", "terrifying", "amazing", "unbelievable",
			"scandaleux", "choquant", "terrifiant", "incroyable",
		},
	},
}

// DetectBiases runs the pattern-density detector over the thought's text
// and returns one finding per bias category whose score clears the
// configured report threshold. Score grows with match density relative to
// text length and is capped at 1.
func (e *Engine) DetectBiases(t *graph.Thought) []BiasFinding {
	text := strings.ToLower(t.Content)
	words := len(strings.Fields(text))
	if words == 0 {
		return nil
	}

	findings := make([]BiasFinding, 0)
	for _, cat := range biasCatalogue {
		matches := 0
		for _, p := range cat.patterns {
			matches += strings.Count(text, p)
		}
		if matches == 0 {
			continue
		}

		// Density per 20 words, so short emphatic texts score higher than
		// long ones with a single stray marker.
		score := float64(matches) * 20.0 / float64(words)
		if score > 1 {
			score = 1
		}
		if score <= e.config.BiasReportThreshold {
			continue
		}

		findings = append(findings, BiasFinding{
			Type:        cat.kind,
			Score:       score,
			Description: fmt.Sprintf("%s (%d matching phrases)", cat.description, matches),
		})
	}
	return findings
}
