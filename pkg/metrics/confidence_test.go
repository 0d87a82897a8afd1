package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orvandel/mentat/pkg/graph"
)

func TestConfidenceLanguageMarkers(t *testing.T) {
	e := NewEngine(nil)

	t.Run("certain cited French text scores high", func(t *testing.T) {
		th := regular("f1", "Il est clairement démontré par deux études que le taux augmente de 25%.")
		got := e.Confidence(th, nil)
		assert.Greater(t, got, 0.6)
	})

	t.Run("hedged French hypothesis scores low", func(t *testing.T) {
		th := regular("f2", "Peut-être que cette hypothèse fonctionne, mais il faudra vérifier.")
		got := e.Confidence(th, nil)
		assert.Less(t, got, 0.55)
	})

	t.Run("English certainty beats English hedging", func(t *testing.T) {
		certain := regular("e1", "The data clearly confirmed the effect, as established by the research report.")
		hedged := regular("e2", "It might work, but the outcome is unclear and not sure at all.")
		assert.Greater(t, e.Confidence(certain, nil), e.Confidence(hedged, nil))
	})
}

func TestConfidenceTypePriors(t *testing.T) {
	e := NewEngine(nil)
	content := "the observed effect holds across the measured samples"

	score := func(typ graph.ThoughtType) float64 {
		return e.Confidence(&graph.Thought{ID: "p-" + string(typ), Content: content, Type: typ}, nil)
	}

	conclusion := score(graph.TypeConclusion)
	reg := score(graph.TypeRegular)
	hypothesis := score(graph.TypeHypothesis)

	assert.Greater(t, conclusion, reg, "conclusions carry more commitment")
	assert.Greater(t, reg, hypothesis, "hypotheses carry the least")
}

func TestSentimentBalance(t *testing.T) {
	tests := []struct {
		name     string
		pos, neg int
		want     float64
	}{
		{"no indicators is neutral", 0, 0, 0.5},
		{"balanced peaks", 2, 2, 1.0},
		{"one-sided decays", 3, 0, 0.0},
		{"mild imbalance", 3, 1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, sentimentBalance(tt.pos, tt.neg), 1e-9)
		})
	}
}

func TestStructuralScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"no signals", "plain reasoning with nothing cited", 0.0},
		{"single citation marker", "according to the report", 0.5},
		{"saturates at one", "study studies research source report 1 2 3 4 5", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, structuralScore(tt.text), 1e-9)
		})
	}
}
