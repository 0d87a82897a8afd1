package similarity

import "strings"

// Stop-words skipped by the keyword fallback. Covers English plus the
// French function words that show up in mixed-language reasoning sessions.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "that": true,
	"this": true, "with": true, "from": true, "have": true, "has": true,
	"was": true, "were": true, "will": true, "would": true, "there": true,
	"their": true, "what": true, "which": true, "when": true, "where": true,
	"les": true, "des": true, "une": true, "que": true, "qui": true,
	"dans": true, "pour": true, "par": true, "est": true, "sont": true,
	"cette": true, "avec": true, "mais": true, "plus": true, "pas": true,
}

// Tokenize lowercases text, strips punctuation, and drops stop-words and
// tokens shorter than 3 runes. This is the shared tokenization for the
// keyword fallback and the TF-IDF relevance scoring.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r < 0x80
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 || stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// KeywordOverlap scores two texts by shared-token count, normalized by the
// smaller token set. Returns a value in [0, 1].
//
// This is the degraded-capability path used whenever no similarity Provider
// is configured or a provider call fails.
func KeywordOverlap(a, b string) float64 {
	tokensA := Tokenize(a)
	tokensB := Tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(tokensA))
	for _, t := range tokensA {
		setA[t] = true
	}

	setB := make(map[string]bool, len(tokensB))
	shared := 0
	for _, t := range tokensB {
		if setB[t] {
			continue
		}
		setB[t] = true
		if setA[t] {
			shared++
		}
	}

	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	return float64(shared) / float64(smaller)
}
