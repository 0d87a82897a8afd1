package calcverify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateClaims(t *testing.T) {
	v := NewLocalVerifier()
	ctx := context.Background()

	t.Run("no arithmetic yields nil", func(t *testing.T) {
		results, err := v.EvaluateClaims(ctx, "no numbers in this sentence at all")
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("mixed correct and incorrect claims", func(t *testing.T) {
		results, err := v.EvaluateClaims(ctx, "We measured 12 * 4 = 48 and then 7 + 2 = 10.")
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.True(t, results[0].IsCorrect)
		assert.Equal(t, "48", results[0].Computed)

		assert.False(t, results[1].IsCorrect)
		assert.Equal(t, "9", results[1].Computed)
		assert.Equal(t, "10", results[1].Claimed)
	})

	t.Run("operator coverage", func(t *testing.T) {
		tests := []struct {
			text    string
			correct bool
		}{
			{"10 - 3 = 7", true},
			{"10 / 4 = 2.5", true},
			{"2 ^ 10 = 1024", true},
			{"6 × 7 = 42", true},
			{"84 ÷ 2 = 42", true},
			{"5 - 2 = 4", false},
		}
		for _, tt := range tests {
			results, err := v.EvaluateClaims(ctx, tt.text)
			require.NoError(t, err)
			require.Len(t, results, 1, tt.text)
			assert.Equal(t, tt.correct, results[0].IsCorrect, tt.text)
		}
	})

	t.Run("decimal comma and tolerance", func(t *testing.T) {
		results, err := v.EvaluateClaims(ctx, "le taux vaut 1,5 * 2 = 3,0 et 10 / 3 = 3,33")
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, results[0].IsCorrect)
		assert.True(t, results[1].IsCorrect, "3.33 is within tolerance of 10/3")
	})

	t.Run("division by zero is unparseable, batch continues", func(t *testing.T) {
		results, err := v.EvaluateClaims(ctx, "bad: 5 / 0 = 1, good: 2 + 2 = 4")
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.True(t, results[0].Unparseable)
		assert.False(t, results[0].IsCorrect)
		assert.Equal(t, 0.1, results[0].Confidence)

		assert.True(t, results[1].IsCorrect)
	})

	t.Run("negative operands", func(t *testing.T) {
		results, err := v.EvaluateClaims(ctx, "-3 + 5 = 2")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].IsCorrect)
	})

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := v.EvaluateClaims(cancelled, "2 + 2 = 4")
		assert.Error(t, err)
	})
}
