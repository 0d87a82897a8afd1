package metrics

import (
	"fmt"
	"math"

	"github.com/orvandel/mentat/pkg/graph"
	"github.com/orvandel/mentat/pkg/similarity"
)

// relationWeights ranks how much each relation kind ties a thought into its
// context. Strong logical relations dominate loose association.
var relationWeights = map[graph.ConnectionType]float64{
	graph.RelSupports:     0.90,
	graph.RelSupportedBy:  0.90,
	graph.RelContradicts:  0.85,
	graph.RelRefines:      0.80,
	graph.RelRefinedBy:    0.80,
	graph.RelDerives:      0.85,
	graph.RelDerivedFrom:  0.85,
	graph.RelCites:        0.75,
	graph.RelCitedBy:      0.70,
	graph.RelElaborates:   0.70,
	graph.RelElaboratedBy: 0.70,
	graph.RelQuestions:    0.65,
	graph.RelQuestionedBy: 0.65,
	graph.RelAnswers:      0.80,
	graph.RelAnsweredBy:   0.80,
	graph.RelGeneralizes:  0.60,
	graph.RelSpecializes:  0.60,
	graph.RelPrecedes:     0.50,
	graph.RelFollows:      0.50,
	graph.RelCauses:       0.85,
	graph.RelCausedBy:     0.85,
	graph.RelAssociates:   0.45,
}

// typeRelevanceMultiplier discounts meta thoughts (commentary about the
// reasoning, not the subject) and boosts revisions.
var typeRelevanceMultiplier = map[graph.ThoughtType]float64{
	graph.TypeMeta:     0.80,
	graph.TypeRevision: 1.10,
}

// Relevance scores how well the thought fits its connected context,
// bounded to the configured band.
//
// Two factors combine: TF-IDF-weighted keyword overlap between the
// thought's text and the union of connected texts, and a connection score
// from the per-relation-type weight table scaled by strength. A thought
// with no connected context gets the band midpoint.
func (e *Engine) Relevance(t *graph.Thought, connected []*graph.Thought) float64 {
	if len(connected) == 0 {
		score := e.config.Relevance.Mid()
		e.storeBreakdown(t.ID, "relevance", Breakdown{
			Score: score,
			Factors: []Factor{
				{Label: "no_context", Value: score, Weight: 1.0,
					Rationale: "no connected thoughts; band midpoint default"},
			},
		})
		return score
	}

	keyword := tfidfOverlap(t, connected)
	connScore := connectionScore(t, connected)

	raw := 0.6*keyword + 0.4*connScore
	if mult, ok := typeRelevanceMultiplier[t.Type]; ok {
		raw *= mult
	}
	score := e.config.Relevance.Clamp(raw)

	e.storeBreakdown(t.ID, "relevance", Breakdown{
		Score: score,
		Factors: []Factor{
			{Label: "tfidf_overlap", Value: keyword, Weight: 0.6,
				Rationale: fmt.Sprintf("keyword overlap with %d connected thoughts", len(connected))},
			{Label: "connections", Value: connScore, Weight: 0.4,
				Rationale: "relation-type weights scaled by strength"},
		},
	})
	return score
}

// tfidfOverlap weights shared terms by inverse document frequency over the
// small corpus of (thought + connected texts), so terms that appear
// everywhere contribute little and rare shared terms contribute a lot.
func tfidfOverlap(t *graph.Thought, connected []*graph.Thought) float64 {
	docs := make([][]string, 0, len(connected)+1)
	own := similarity.Tokenize(t.Content)
	docs = append(docs, own)
	for _, c := range connected {
		docs = append(docs, similarity.Tokenize(c.Content))
	}

	if len(own) == 0 {
		return 0
	}

	// Document frequency per term.
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, term := range doc {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	n := float64(len(docs))
	idf := func(term string) float64 {
		return math.Log(1 + n/float64(df[term]))
	}

	contextTerms := make(map[string]bool)
	for _, doc := range docs[1:] {
		for _, term := range doc {
			contextTerms[term] = true
		}
	}

	var shared, total float64
	seen := make(map[string]bool, len(own))
	for _, term := range own {
		if seen[term] {
			continue
		}
		seen[term] = true
		w := idf(term)
		total += w
		if contextTerms[term] {
			shared += w
		}
	}
	if total == 0 {
		return 0
	}
	return shared / total
}

// connectionScore averages relation-type weight times strength over the
// thought's connections into the given context. Connections to thoughts
// outside the context are ignored.
func connectionScore(t *graph.Thought, connected []*graph.Thought) float64 {
	inContext := make(map[string]bool, len(connected))
	for _, c := range connected {
		inContext[c.ID] = true
	}

	var sum float64
	count := 0
	for _, conn := range t.Connections {
		if !inContext[conn.TargetID] {
			continue
		}
		w, ok := relationWeights[conn.Type]
		if !ok {
			w = 0.4
		}
		sum += w * conn.Strength
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
