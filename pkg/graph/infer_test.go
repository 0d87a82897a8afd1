package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider scores pairs from a fixed table keyed by "a|b" and fails on
// anything not listed when failUnknown is set.
type stubProvider struct {
	scores      map[string]float64
	failUnknown bool
	calls       int
}

func (p *stubProvider) Vectorize(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (p *stubProvider) Similarity(_ context.Context, a, b string) (float64, error) {
	p.calls++
	if s, ok := p.scores[a+"|"+b]; ok {
		return s, nil
	}
	if s, ok := p.scores[b+"|"+a]; ok {
		return s, nil
	}
	if p.failUnknown {
		return 0, errors.New("provider down")
	}
	return 0, nil
}

func TestInferRelations(t *testing.T) {
	t.Run("no provider is a no-op", func(t *testing.T) {
		g := New(nil)
		g.AddThought("a", TypeRegular, nil)
		g.AddThought("b", TypeRegular, nil)

		n, err := g.InferRelations(context.Background(), 0.8)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("similar unconnected pair gets associates edge", func(t *testing.T) {
		provider := &stubProvider{scores: map[string]float64{
			"cats are mammals|felines are mammals": 0.93,
		}}
		g := New(provider)
		a, _ := g.AddThought("cats are mammals", TypeRegular, nil)
		b, _ := g.AddThought("felines are mammals", TypeRegular, nil)
		c, _ := g.AddThought("the weather is cold", TypeRegular, nil)

		n, err := g.InferRelations(context.Background(), 0.85)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		from := g.Thought(a)
		require.Len(t, from.Connections, 1)
		conn := from.Connections[0]
		assert.Equal(t, b, conn.TargetID)
		assert.Equal(t, RelAssociates, conn.Type)
		assert.True(t, conn.Inferred)
		assert.Equal(t, 0.93, conn.InferenceConfidence)

		// Reciprocal side mirrors the associates edge.
		require.Len(t, g.Thought(b).Connections, 1)
		assert.Equal(t, a, g.Thought(b).Connections[0].TargetID)

		assert.Empty(t, g.Thought(c).Connections)
	})

	t.Run("connected pairs are skipped", func(t *testing.T) {
		provider := &stubProvider{scores: map[string]float64{"x|y": 0.99}}
		g := New(provider)
		a, _ := g.AddThought("x", TypeRegular, nil)
		b, _ := g.AddThought("y", TypeRegular, nil)
		require.NoError(t, g.Connect(a, b, RelSupports, 0.5))

		n, err := g.InferRelations(context.Background(), 0.5)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, provider.calls, "already connected pairs must not hit the provider")
	})

	t.Run("provider failure stops early without error", func(t *testing.T) {
		provider := &stubProvider{failUnknown: true}
		g := New(provider)
		g.AddThought("p", TypeRegular, nil)
		g.AddThought("q", TypeRegular, nil)

		n, err := g.InferRelations(context.Background(), 0.5)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestRelevantThoughts(t *testing.T) {
	t.Run("keyword fallback without provider", func(t *testing.T) {
		g := New(nil)
		a, _ := g.AddThought("compilers translate source programs", TypeRegular, nil)
		g.AddThought("gardens need regular watering", TypeRegular, nil)

		got := g.RelevantThoughts(context.Background(), "how do compilers translate programs", 1, "")
		require.Len(t, got, 1)
		assert.Equal(t, a, got[0].Thought.ID)
		assert.Greater(t, got[0].Score, 0.0)
	})

	t.Run("provider scores win when available", func(t *testing.T) {
		provider := &stubProvider{scores: map[string]float64{
			"query|first":  0.2,
			"query|second": 0.9,
		}}
		g := New(provider)
		g.AddThought("first", TypeRegular, nil)
		b, _ := g.AddThought("second", TypeRegular, nil)

		got := g.RelevantThoughts(context.Background(), "query", 2, "")
		require.Len(t, got, 2)
		assert.Equal(t, b, got[0].Thought.ID)
		assert.Equal(t, 0.9, got[0].Score)
	})

	t.Run("session filter restricts candidates", func(t *testing.T) {
		g := New(nil)
		a, _ := g.AddThought("shared topic alpha", TypeRegular, nil)
		g.SetMetadata(a, MetadataSession, "s1")
		b, _ := g.AddThought("shared topic beta", TypeRegular, nil)
		g.SetMetadata(b, MetadataSession, "s2")

		got := g.RelevantThoughts(context.Background(), "shared topic", 10, "s1")
		require.Len(t, got, 1)
		assert.Equal(t, a, got[0].Thought.ID)
	})

	t.Run("empty graph returns nil", func(t *testing.T) {
		g := New(nil)
		assert.Nil(t, g.RelevantThoughts(context.Background(), "anything", 5, ""))
	})
}
