package graph

import (
	"regexp"
	"sort"
	"time"
)

// Suggestion is one recommended next step, tied to the thought that
// triggered it (empty ThoughtID for graph-wide signals).
type Suggestion struct {
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	ThoughtID string    `json:"thoughtId,omitempty"`
	Signal    string    `json:"signal"`
	At        time.Time `json:"-"`
}

var (
	urlPattern = regexp.MustCompile(`https?://[^\s)>"']+`)

	// Arithmetic-looking text: two numbers joined by an operator, or an
	// explicit equality claim with a number on the right.
	arithmeticPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*[-+*/×÷%^]\s*\d+|=\s*\d+(?:[.,]\d+)?`)
)

// thoughtSignals are the per-thought structural detectors. Kept as a data
// table so each detector is unit-testable in isolation.
var thoughtSignals = []struct {
	name   string
	action string
	reason string
	detect func(t *Thought) bool
}{
	{
		name:   "contradiction",
		action: "resolve_contradiction",
		reason: "an unresolved contradicts connection needs adjudication against sources",
		detect: func(t *Thought) bool {
			for _, conn := range t.Connections {
				if conn.Type == RelContradicts {
					return true
				}
			}
			return false
		},
	},
	{
		name:   "url",
		action: "extract_url_content",
		reason: "the thought references a URL whose content has not been pulled in",
		detect: func(t *Thought) bool { return urlPattern.MatchString(t.Content) },
	},
	{
		name:   "arithmetic",
		action: "execute_calculations",
		reason: "the thought contains arithmetic that should be executed and checked",
		detect: func(t *Thought) bool { return arithmeticPattern.MatchString(t.Content) },
	},
}

// SuggestNextSteps scans recent thoughts for structural signals and emits at
// most one suggestion per signal, ordered most-recent-evidence-first and
// capped at limit. The graph-wide "no hypothesis yet" signal sorts last.
// sessionID restricts the scan to one session when non-empty.
func (g *Graph) SuggestNextSteps(limit int, sessionID string) []Suggestion {
	if limit <= 0 {
		limit = 5
	}

	thoughts := g.sessionThoughts(sessionID)

	suggestions := make([]Suggestion, 0, len(thoughtSignals)+1)
	hasHypothesis := false

	for _, sig := range thoughtSignals {
		// Most recent evidence wins; thoughts are in insertion order.
		for i := len(thoughts) - 1; i >= 0; i-- {
			if sig.detect(thoughts[i]) {
				suggestions = append(suggestions, Suggestion{
					Action:    sig.action,
					Reason:    sig.reason,
					ThoughtID: thoughts[i].ID,
					Signal:    sig.name,
					At:        thoughts[i].CreatedAt,
				})
				break
			}
		}
	}

	for _, t := range thoughts {
		if t.Type == TypeHypothesis {
			hasHypothesis = true
			break
		}
	}
	if !hasHypothesis && len(thoughts) > 0 {
		suggestions = append(suggestions, Suggestion{
			Action: "formulate_hypothesis",
			Reason: "no hypothesis-typed thought exists yet to structure the reasoning",
			Signal: "no_hypothesis",
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].At.After(suggestions[j].At)
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
