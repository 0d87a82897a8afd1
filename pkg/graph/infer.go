package graph

import (
	"context"
	"log"
	"sort"

	"github.com/orvandel/mentat/pkg/similarity"
)

// InferRelations scans every unordered pair of thoughts that share no
// connection and asks the similarity provider to score them. Pairs scoring
// at or above threshold get a bidirectional associates connection on both
// nodes, flagged as inferred with the score as inference confidence.
//
// Returns the number of connections created. Without a provider this is a
// deterministic no-op; a provider failure ends the scan early with whatever
// was created so far (never an error — degraded capability is not fatal).
func (g *Graph) InferRelations(ctx context.Context, threshold float64) (int, error) {
	if g.provider == nil {
		return 0, nil
	}

	type pair struct {
		a, b         string
		aText, bText string
	}

	g.mu.RLock()
	ids := make([]string, len(g.order))
	copy(ids, g.order)
	pairs := make([]pair, 0)
	for i := 0; i < len(ids); i++ {
		a := g.thoughts[ids[i]]
		connected := make(map[string]bool, len(a.Connections))
		for _, conn := range a.Connections {
			connected[conn.TargetID] = true
		}
		for j := i + 1; j < len(ids); j++ {
			if connected[ids[j]] {
				continue
			}
			b := g.thoughts[ids[j]]
			pairs = append(pairs, pair{a: a.ID, b: b.ID, aText: a.Content, bText: b.Content})
		}
	}
	g.mu.RUnlock()

	created := 0
	for _, p := range pairs {
		score, err := g.provider.Similarity(ctx, p.aText, p.bText)
		if err != nil {
			log.Printf("graph: similarity provider unavailable, stopping inference: %v", err)
			return created, nil
		}
		if score < threshold {
			continue
		}

		err = g.ConnectWith(p.a, p.b, Connection{
			Type:                RelAssociates,
			Strength:            score,
			Inferred:            true,
			InferenceConfidence: score,
			Bidirectional:       true,
		})
		if err == nil {
			created++
		}
	}
	return created, nil
}

// ScoredThought is a thought with its relevance score for a query.
type ScoredThought struct {
	Thought *Thought
	Score   float64
}

// RelevantThoughts ranks thoughts against a query, best first, capped at
// limit. With a similarity provider the score is provider similarity;
// otherwise (or when the provider fails mid-ranking) the keyword-overlap
// fallback is used. Ties break toward the most recent thought. sessionID
// restricts the candidates to one session when non-empty.
func (g *Graph) RelevantThoughts(ctx context.Context, query string, limit int, sessionID string) []ScoredThought {
	if limit <= 0 {
		limit = 10
	}

	candidates := g.sessionThoughts(sessionID)
	if len(candidates) == 0 {
		return nil
	}

	scored := make([]ScoredThought, 0, len(candidates))
	useProvider := g.provider != nil
	for _, t := range candidates {
		var score float64
		if useProvider {
			s, err := g.provider.Similarity(ctx, query, t.Content)
			if err != nil {
				log.Printf("graph: similarity provider unavailable, falling back to keyword overlap: %v", err)
				useProvider = false
				score = similarity.KeywordOverlap(query, t.Content)
			} else {
				score = s
			}
		} else {
			score = similarity.KeywordOverlap(query, t.Content)
		}
		scored = append(scored, ScoredThought{Thought: t, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Thought.CreatedAt.After(scored[j].Thought.CreatedAt)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// sessionThoughts returns copies of all thoughts, restricted to sessionID
// when non-empty, in insertion order.
func (g *Graph) sessionThoughts(sessionID string) []*Thought {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Thought, 0, len(g.order))
	for _, id := range g.order {
		t, ok := g.thoughts[id]
		if !ok {
			continue
		}
		if sessionID != "" && t.Metadata[MetadataSession] != sessionID {
			continue
		}
		out = append(out, t.clone())
	}
	return out
}
