package vcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvandel/mentat/pkg/metrics"
)

func testCache() *Cache {
	return New(nil, nil)
}

func TestAddVerificationValidation(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	_, err := c.AddVerification(ctx, "", metrics.StatusVerified, 0.9, nil, "s1", time.Hour)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = c.AddVerification(ctx, "claim", metrics.VerificationStatus("maybe"), 0.9, nil, "s1", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAddVerificationIdempotent(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	first, err := c.AddVerification(ctx, "Legacy verification", metrics.StatusVerified, 0.95, []string{"doc-a"}, "s1", time.Hour)
	require.NoError(t, err)

	second, err := c.AddVerification(ctx, "Legacy verification", metrics.StatusVerified, 0.95, []string{"doc-a"}, "s1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical claim in the same session must reuse the record")

	assert.Equal(t, 1, c.GetStats().TotalEntries)
}

func TestAddVerificationFingerprintNormalization(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	first, err := c.AddVerification(ctx, "L'Étude   Confirme le résultat", metrics.StatusVerified, 0.9, nil, "s1", time.Hour)
	require.NoError(t, err)

	// Case, extra whitespace, and accents must all collapse to the same key.
	second, err := c.AddVerification(ctx, "l'etude confirme le resultat", metrics.StatusPartiallyVerified, 0.7, nil, "s1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rec := c.FindVerification(ctx, "l'etude confirme le resultat", "s1")
	require.NotNil(t, rec)
	assert.Equal(t, metrics.StatusPartiallyVerified, rec.Status, "match updates the record in place")
	assert.Equal(t, 0.7, rec.Confidence)
}

func TestAddVerificationSessionIsolation(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	a, err := c.AddVerification(ctx, "shared claim", metrics.StatusVerified, 0.9, nil, "s1", time.Hour)
	require.NoError(t, err)
	b, err := c.AddVerification(ctx, "shared claim", metrics.StatusContradicted, 0.9, nil, "s2", time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "sessions must not share records")
	assert.Equal(t, metrics.StatusVerified, c.FindVerification(ctx, "shared claim", "s1").Status)
	assert.Equal(t, metrics.StatusContradicted, c.FindVerification(ctx, "shared claim", "s2").Status)
}

func TestFindVerification(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	_, err := c.AddVerification(ctx, "the moon has no atmosphere to speak of", metrics.StatusVerified, 0.9, nil, "s1", time.Hour)
	require.NoError(t, err)

	t.Run("miss returns nil", func(t *testing.T) {
		assert.Nil(t, c.FindVerification(ctx, "an entirely different topic here", "s1"))
	})

	t.Run("keyword fallback matches high overlap", func(t *testing.T) {
		rec := c.FindVerification(ctx, "the moon has no atmosphere", "s1")
		require.NotNil(t, rec)
		assert.Equal(t, metrics.StatusVerified, rec.Status)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		rec := c.FindVerification(ctx, "the moon has no atmosphere to speak of", "s1")
		require.NotNil(t, rec)
		rec.Status = metrics.StatusContradicted

		again := c.FindVerification(ctx, "the moon has no atmosphere to speak of", "s1")
		assert.Equal(t, metrics.StatusVerified, again.Status)
	})
}

func TestTTLExpiry(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	shortID, err := c.AddVerification(ctx, "short lived claim", metrics.StatusVerified, 0.9, nil, "s1", time.Second)
	require.NoError(t, err)
	longID, err := c.AddVerification(ctx, "long lived claim", metrics.StatusVerified, 0.9, nil, "s1", 100*time.Second)
	require.NoError(t, err)

	// Both live immediately after insertion.
	assert.NotNil(t, c.FindVerification(ctx, "short lived claim", "s1"))
	assert.NotNil(t, c.FindVerification(ctx, "long lived claim", "s1"))

	// Force the short record past its expiry instead of sleeping a second.
	c.mu.Lock()
	c.records[shortID].ExpiresAt = time.Now().Add(-time.Millisecond)
	c.mu.Unlock()

	assert.Nil(t, c.FindVerification(ctx, "short lived claim", "s1"), "expired record must not match")
	assert.NotNil(t, c.FindVerification(ctx, "long lived claim", "s1"))

	removed := c.CleanExpiredEntries()
	assert.Equal(t, 1, removed, "exactly the expired record is purged")

	c.mu.RLock()
	_, shortExists := c.records[shortID]
	_, longExists := c.records[longID]
	c.mu.RUnlock()
	assert.False(t, shortExists)
	assert.True(t, longExists)

	assert.Zero(t, c.CleanExpiredEntries(), "second sweep finds nothing")
}

func TestDefaultTTLApplied(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	id, err := c.AddVerification(ctx, "uses default ttl", metrics.StatusVerified, 0.9, nil, "s1", 0)
	require.NoError(t, err)

	c.mu.RLock()
	rec := c.records[id]
	c.mu.RUnlock()
	assert.InDelta(t, c.config.DefaultTTL.Seconds(), time.Until(rec.ExpiresAt).Seconds(), 5)
}

func TestSessionVerifications(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	statuses := []metrics.VerificationStatus{
		metrics.StatusVerified, metrics.StatusContradicted,
		metrics.StatusVerified, metrics.StatusUncertain,
	}
	for i, status := range statuses {
		_, err := c.AddVerification(ctx, "claim number "+string(rune('a'+i)), status, 0.8, nil, "s1", time.Hour)
		require.NoError(t, err)
	}
	_, err := c.AddVerification(ctx, "other session claim", metrics.StatusVerified, 0.8, nil, "s2", time.Hour)
	require.NoError(t, err)

	t.Run("full listing", func(t *testing.T) {
		records, total := c.SessionVerifications("s1", 0, 0, "")
		assert.Equal(t, 4, total)
		assert.Len(t, records, 4)
	})

	t.Run("pagination", func(t *testing.T) {
		page, total := c.SessionVerifications("s1", 1, 2, "")
		assert.Equal(t, 4, total)
		assert.Len(t, page, 2)
	})

	t.Run("offset past end", func(t *testing.T) {
		page, total := c.SessionVerifications("s1", 10, 2, "")
		assert.Equal(t, 4, total)
		assert.Empty(t, page)
	})

	t.Run("status filter", func(t *testing.T) {
		page, total := c.SessionVerifications("s1", 0, 0, metrics.StatusVerified)
		assert.Equal(t, 2, total)
		for _, rec := range page {
			assert.Equal(t, metrics.StatusVerified, rec.Status)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		page, total := c.SessionVerifications("nope", 0, 0, "")
		assert.Zero(t, total)
		assert.Empty(t, page)
	})
}

func TestClearOperations(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	for _, session := range []string{"s1", "s1", "s2"} {
		_, err := c.AddVerification(ctx, "claim for "+session+" "+time.Now().String(), metrics.StatusVerified, 0.8, nil, session, time.Hour)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.ClearSession("s1"))
	assert.Zero(t, c.ClearSession("s1"), "clearing twice finds nothing")
	assert.Equal(t, 1, c.GetStats().TotalEntries)

	c.ClearAll()
	assert.Zero(t, c.GetStats().TotalEntries)
}

func TestGetStats(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	_, err := c.AddVerification(ctx, "abcd", metrics.StatusVerified, 0.9, []string{"xy"}, "s1", time.Hour)
	require.NoError(t, err)
	_, err = c.AddVerification(ctx, "efgh", metrics.StatusContradicted, 0.9, nil, "s1", time.Hour)
	require.NoError(t, err)

	stats := c.GetStats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.EntriesByStatus[metrics.StatusVerified])
	assert.Equal(t, 1, stats.EntriesByStatus[metrics.StatusContradicted])
	assert.Equal(t, 10, stats.CacheSize, "text plus source bytes")
}

func TestJanitorLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CleanupInterval = 10 * time.Millisecond
	c := New(cfg, nil)

	ctx := context.Background()
	id, err := c.AddVerification(ctx, "short claim", metrics.StatusVerified, 0.9, nil, "s1", time.Hour)
	require.NoError(t, err)

	c.mu.Lock()
	c.records[id].ExpiresAt = time.Now().Add(-time.Millisecond)
	c.mu.Unlock()

	c.StartJanitor()
	c.StartJanitor() // second start is a no-op
	defer c.StopJanitor()

	assert.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return len(c.records) == 0
	}, time.Second, 5*time.Millisecond, "janitor must sweep the expired record")

	c.StopJanitor()
	c.StopJanitor() // repeated stop is safe
}

func TestReset(t *testing.T) {
	c := testCache()
	ctx := context.Background()
	_, err := c.AddVerification(ctx, "to be wiped", metrics.StatusVerified, 0.9, nil, "s1", time.Hour)
	require.NoError(t, err)

	c.Reset()
	assert.Zero(t, c.GetStats().TotalEntries)
}
