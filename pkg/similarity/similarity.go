// Package similarity provides the text-similarity capability used by the
// reasoning graph and the verification cache.
//
// The core never talks to an embedding backend directly. It consumes the
// Provider interface, which turns text into comparable vectors and scores
// pairs of texts in [0, 1]. When no Provider is configured (or a call
// fails), callers degrade to the keyword-overlap fallback in this package
// rather than surfacing an error.
//
// Example Usage:
//
//	// Local Ollama-compatible endpoint
//	provider := similarity.NewEmbedderProvider(similarity.NewHTTPEmbedder(nil))
//
//	score, err := provider.Similarity(ctx, "graph databases", "knowledge graphs")
//	if err != nil {
//		// Treat as "provider unavailable" and fall back
//		score = similarity.KeywordOverlap("graph databases", "knowledge graphs")
//	}
//	fmt.Printf("similarity: %.2f\n", score)
package similarity

import "context"

// Provider scores how close two texts are in meaning.
//
// Implementations must be safe for concurrent use. Scores are clamped to
// [0, 1] where 1 means semantically identical.
type Provider interface {
	// Vectorize converts text into an embedding vector.
	Vectorize(ctx context.Context, text string) ([]float32, error)

	// Similarity returns a score in [0, 1] for the pair of texts.
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// EmbedderProvider adapts an Embedder into a Provider using cosine
// similarity over the embedding vectors.
type EmbedderProvider struct {
	embedder Embedder
}

// NewEmbedderProvider wraps an Embedder. The embedder must not be nil.
func NewEmbedderProvider(embedder Embedder) *EmbedderProvider {
	return &EmbedderProvider{embedder: embedder}
}

// Vectorize generates the embedding for text.
func (p *EmbedderProvider) Vectorize(ctx context.Context, text string) ([]float32, error) {
	return p.embedder.Embed(ctx, text)
}

// Similarity embeds both texts and returns their cosine similarity,
// clamped to [0, 1]. Negative cosine values (opposite meanings) clamp to 0.
func (p *EmbedderProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	vecs, err := p.embedder.EmbedBatch(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	if len(vecs) != 2 {
		return 0, ErrBadResponse
	}

	score := CosineSimilarity(vecs[0], vecs[1])
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
