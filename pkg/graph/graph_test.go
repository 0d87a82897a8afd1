package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddThoughtValidation(t *testing.T) {
	g := New(nil)

	t.Run("unknown thought type rejected", func(t *testing.T) {
		_, err := g.AddThought("something", ThoughtType("musing"), nil)
		assert.ErrorIs(t, err, ErrInvalidType)
	})

	t.Run("connection to missing target rejected atomically", func(t *testing.T) {
		_, err := g.AddThought("orphan link", TypeRegular, []Connection{
			{TargetID: "no-such-id", Type: RelSupports, Strength: 0.8},
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 0, g.Count(), "failed insert must not leave a node behind")
	})

	t.Run("unknown relation rejected", func(t *testing.T) {
		a, err := g.AddThought("premise", TypeRegular, nil)
		require.NoError(t, err)

		_, err = g.AddThought("bad relation", TypeRegular, []Connection{
			{TargetID: a, Type: ConnectionType("resembles"), Strength: 0.5},
		})
		assert.ErrorIs(t, err, ErrInvalidRelation)
	})
}

func TestReciprocalConnections(t *testing.T) {
	tests := []struct {
		relation ConnectionType
		inverse  ConnectionType
	}{
		{RelSupports, RelSupportedBy},
		{RelRefines, RelRefinedBy},
		{RelDerives, RelDerivedFrom},
		{RelCauses, RelCausedBy},
		{RelPrecedes, RelFollows},
		{RelGeneralizes, RelSpecializes},
		{RelContradicts, RelContradicts},
		{RelAssociates, RelAssociates},
	}

	for _, tt := range tests {
		t.Run(string(tt.relation), func(t *testing.T) {
			g := New(nil)
			a, err := g.AddThought("from node", TypeRegular, nil)
			require.NoError(t, err)
			b, err := g.AddThought("to node", TypeRegular, nil)
			require.NoError(t, err)

			require.NoError(t, g.Connect(a, b, tt.relation, 0.7))

			from := g.Thought(a)
			require.Len(t, from.Connections, 1)
			assert.Equal(t, b, from.Connections[0].TargetID)
			assert.Equal(t, tt.relation, from.Connections[0].Type)

			to := g.Thought(b)
			require.Len(t, to.Connections, 1, "reciprocal entry must exist")
			assert.Equal(t, a, to.Connections[0].TargetID)
			assert.Equal(t, tt.inverse, to.Connections[0].Type)
			assert.Equal(t, 0.7, to.Connections[0].Strength)
		})
	}
}

func TestConnectMergesDuplicates(t *testing.T) {
	g := New(nil)
	a, _ := g.AddThought("claim", TypeRegular, nil)
	b, _ := g.AddThought("evidence", TypeRegular, nil)

	require.NoError(t, g.ConnectWith(a, b, Connection{
		TargetID: b, Type: RelSupports, Strength: 0.4,
	}))
	require.NoError(t, g.ConnectWith(a, b, Connection{
		TargetID: b, Type: RelSupports, Strength: 0.9, Description: "stronger reading",
	}))

	from := g.Thought(a)
	require.Len(t, from.Connections, 1, "same target and type must merge")
	assert.Equal(t, 0.9, from.Connections[0].Strength, "merge keeps max strength")
	assert.Equal(t, "stronger reading", from.Connections[0].Description)

	// A different relation to the same target is a separate edge.
	require.NoError(t, g.Connect(a, b, RelCites, 0.5))
	assert.Len(t, g.Thought(a).Connections, 2)
}

func TestConnectStrengthClamped(t *testing.T) {
	g := New(nil)
	a, _ := g.AddThought("x", TypeRegular, nil)
	b, _ := g.AddThought("y", TypeRegular, nil)

	require.NoError(t, g.Connect(a, b, RelSupports, 3.5))
	assert.Equal(t, 1.0, g.Thought(a).Connections[0].Strength)
}

func TestSelfConnectionRejected(t *testing.T) {
	g := New(nil)
	a, _ := g.AddThought("self", TypeRegular, nil)
	assert.Error(t, g.Connect(a, a, RelSupports, 0.5))
}

func TestThoughtReturnsCopy(t *testing.T) {
	g := New(nil)
	a, _ := g.AddThought("immutable view", TypeRegular, nil)

	snap := g.Thought(a)
	snap.Content = "mutated"
	snap.Metadata = map[string]string{"x": "y"}

	assert.Equal(t, "immutable view", g.Thought(a).Content)
	assert.Empty(t, g.Thought(a).Metadata)
}

func TestUpdateThoughtContent(t *testing.T) {
	g := New(nil)

	var invalidated []string
	g.SetMutationHook(func(id string) { invalidated = append(invalidated, id) })

	a, _ := g.AddThought("draft", TypeRegular, nil)
	b, _ := g.AddThought("neighbor", TypeRegular, nil)
	require.NoError(t, g.Connect(a, b, RelSupports, 0.5))

	invalidated = nil
	require.True(t, g.UpdateThoughtContent(a, "final"))
	assert.Equal(t, "final", g.Thought(a).Content)
	assert.ElementsMatch(t, []string{a, b}, invalidated,
		"update must invalidate the node and its neighbors")

	assert.False(t, g.UpdateThoughtContent("missing", "x"))
}

func TestHyperlinks(t *testing.T) {
	g := New(nil)
	a, _ := g.AddThought("alpha", TypeRegular, nil)
	b, _ := g.AddThought("beta", TypeRegular, nil)
	c, _ := g.AddThought("gamma", TypeRegular, nil)

	t.Run("requires two distinct existing nodes", func(t *testing.T) {
		_, err := g.CreateHyperlink([]string{a}, "theme", "", nil, 0.5)
		assert.ErrorIs(t, err, ErrInvalidLink)

		_, err = g.CreateHyperlink([]string{a, a}, "theme", "", nil, 0.5)
		assert.ErrorIs(t, err, ErrInvalidLink)

		_, err = g.CreateHyperlink([]string{a, "ghost"}, "theme", "", nil, 0.5)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("lookup by member", func(t *testing.T) {
		id, err := g.CreateHyperlink([]string{a, b, c}, "theme", "shared motif", nil, 0.8)
		require.NoError(t, err)

		links := g.HyperlinksFor(b)
		require.Len(t, links, 1)
		assert.Equal(t, id, links[0].ID)
		assert.True(t, links[0].Contains(a))
		assert.True(t, links[0].Contains(c))

		d, _ := g.AddThought("delta", TypeRegular, nil)
		assert.Empty(t, g.HyperlinksFor(d))
	})
}

func TestConnectedThoughts(t *testing.T) {
	g := New(nil)
	a, _ := g.AddThought("hub", TypeRegular, nil)
	b, _ := g.AddThought("spoke one", TypeRegular, nil)
	c, _ := g.AddThought("spoke two", TypeRegular, nil)
	require.NoError(t, g.Connect(a, b, RelSupports, 0.5))
	require.NoError(t, g.Connect(c, a, RelQuestions, 0.5))

	connected, err := g.ConnectedThoughts(a)
	require.NoError(t, err)
	ids := []string{connected[0].ID, connected[1].ID}
	assert.ElementsMatch(t, []string{b, c}, ids)

	_, err = g.ConnectedThoughts("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
