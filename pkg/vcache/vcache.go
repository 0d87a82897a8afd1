// Package vcache is the verification cache: a session-scoped, TTL-evicted,
// deduplicated store of claim-verification outcomes.
//
// Repeated or near-duplicate claims in a session resolve to the same
// record, so a claim verified once is not re-evaluated until its record
// expires. Deduplication matches on the normalized text fingerprint first
// (lowercase, whitespace-collapsed, accent-insensitive) and falls back to
// the similarity provider for near-duplicates when one is configured.
//
// Records move absent -> active -> expired (purged); there are no other
// transitions. A record is updated in place on re-verification and its
// expiry pushed out, so AddVerification is idempotent for identical claims.
//
// The engine owns one Cache per process, constructed explicitly and passed
// by reference; Reset exists for tests instead of process-wide state.
package vcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orvandel/mentat/pkg/metrics"
	"github.com/orvandel/mentat/pkg/similarity"
)

// Errors returned by cache operations.
var (
	ErrInvalidStatus = errors.New("unknown verification status")
	ErrEmptyText     = errors.New("verification text is empty")
)

// Record is one cached verification outcome. It never carries embedding
// vectors or provider trace fields; the sanitization pass strips those on
// both load and save.
type Record struct {
	ID         string                     `json:"id"`
	Text       string                     `json:"text"`
	Status     metrics.VerificationStatus `json:"status"`
	Confidence float64                    `json:"confidence"`
	Sources    []string                   `json:"sources,omitempty"`
	CreatedAt  time.Time                  `json:"createdAt"`
	SessionID  string                     `json:"sessionId"`
	ExpiresAt  time.Time                  `json:"expiresAt"`
	Metadata   map[string]any             `json:"metadata,omitempty"`
}

// Expired reports whether the record's TTL has elapsed at now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// Config holds cache tuning.
type Config struct {
	// SimilarityThreshold is the minimum provider score for treating a new
	// claim as a duplicate of an existing record.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// KeywordThreshold is the overlap score used by the fallback matcher
	// when no provider is configured.
	KeywordThreshold float64 `yaml:"keyword_threshold"`

	// DefaultTTL applies when a caller passes a non-positive TTL.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// CleanupInterval drives the optional background janitor.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig returns the reference cache configuration.
func DefaultConfig() *Config {
	return &Config{
		SimilarityThreshold: 0.92,
		KeywordThreshold:    0.80,
		DefaultTTL:          24 * time.Hour,
		CleanupInterval:     5 * time.Minute,
	}
}

// Cache is the verification store. Safe for concurrent use; similarity
// provider calls happen outside the lock.
type Cache struct {
	mu       sync.RWMutex
	records  map[string]*Record // id -> record
	byKey    map[string]string  // session fingerprint -> id
	config   *Config
	provider similarity.Provider

	janitorStop chan struct{}
}

// New creates a cache. config nil uses DefaultConfig(); provider may be
// nil, which disables similarity dedup and makes SearchSimilar empty
// deterministically.
func New(config *Config, provider similarity.Provider) *Cache {
	if config == nil {
		config = DefaultConfig()
	}
	return &Cache{
		records:  make(map[string]*Record),
		byKey:    make(map[string]string),
		config:   config,
		provider: provider,
	}
}

func sessionKey(sessionID, fingerprint string) string {
	return sessionID + "\x00" + fingerprint
}

// AddVerification records (or refreshes) the verification outcome for a
// claim. Matching order inside the session: exact normalized fingerprint,
// then similarity above the configured threshold when a provider exists.
// On a match the existing record is updated in place (status, confidence,
// sources, expiry) and its id returned, making the call idempotent for
// repeated identical claims. Otherwise a new record is inserted.
func (c *Cache) AddVerification(ctx context.Context, text string, status metrics.VerificationStatus, confidence float64, sources []string, sessionID string, ttl time.Duration) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}
	if !metrics.ValidStatus(status) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	fp := Fingerprint(text)
	now := time.Now()

	// Exact fingerprint match.
	c.mu.Lock()
	if id, ok := c.byKey[sessionKey(sessionID, fp)]; ok {
		if rec, ok := c.records[id]; ok && !rec.Expired(now) {
			c.update(rec, status, confidence, sources, now.Add(ttl))
			c.mu.Unlock()
			return rec.ID, nil
		}
	}
	c.mu.Unlock()

	// Near-duplicate match via the similarity provider.
	if c.provider != nil {
		if rec := c.findSimilarLocked(ctx, fp, sessionID, c.config.SimilarityThreshold); rec != nil {
			c.mu.Lock()
			if live, ok := c.records[rec.ID]; ok {
				c.update(live, status, confidence, sources, now.Add(ttl))
				c.mu.Unlock()
				return live.ID, nil
			}
			c.mu.Unlock()
		}
	}

	rec := &Record{
		ID:         uuid.NewString(),
		Text:       text,
		Status:     status,
		Confidence: confidence,
		Sources:    append([]string(nil), sources...),
		CreatedAt:  now,
		SessionID:  sessionID,
		ExpiresAt:  now.Add(ttl),
	}

	c.mu.Lock()
	c.records[rec.ID] = rec
	c.byKey[sessionKey(sessionID, fp)] = rec.ID
	c.mu.Unlock()
	return rec.ID, nil
}

// update overwrites the mutable fields of an existing record. Caller holds
// the write lock.
func (c *Cache) update(rec *Record, status metrics.VerificationStatus, confidence float64, sources []string, expiresAt time.Time) {
	rec.Status = status
	rec.Confidence = confidence
	rec.Sources = append([]string(nil), sources...)
	rec.ExpiresAt = expiresAt
}

// FindVerification looks up the cached outcome for a claim within a
// session: exact fingerprint first, then provider similarity, then the
// keyword-overlap fallback when no provider is configured. Returns nil
// (not an error) when nothing matches or the match has expired.
func (c *Cache) FindVerification(ctx context.Context, text, sessionID string) *Record {
	fp := Fingerprint(text)
	now := time.Now()

	c.mu.RLock()
	if id, ok := c.byKey[sessionKey(sessionID, fp)]; ok {
		if rec, ok := c.records[id]; ok && !rec.Expired(now) {
			out := rec.clone()
			c.mu.RUnlock()
			return out
		}
	}
	c.mu.RUnlock()

	if c.provider != nil {
		if rec := c.findSimilarLocked(ctx, fp, sessionID, c.config.SimilarityThreshold); rec != nil {
			return rec
		}
		return nil
	}

	// Degraded path: keyword overlap over the session's live records.
	var best *Record
	bestScore := c.config.KeywordThreshold
	for _, rec := range c.sessionRecords(sessionID, now) {
		score := similarity.KeywordOverlap(fp, Fingerprint(rec.Text))
		if score >= bestScore {
			bestScore = score
			best = rec
		}
	}
	return best
}

// findSimilarLocked scans the session's live records with the provider and
// returns a clone of the best match at or above threshold. Provider errors
// degrade to no match.
func (c *Cache) findSimilarLocked(ctx context.Context, fp, sessionID string, threshold float64) *Record {
	candidates := c.sessionRecords(sessionID, time.Now())

	var best *Record
	bestScore := threshold
	for _, rec := range candidates {
		score, err := c.provider.Similarity(ctx, fp, Fingerprint(rec.Text))
		if err != nil {
			return nil // provider unavailable, caller falls back
		}
		if score >= bestScore {
			bestScore = score
			best = rec
		}
	}
	return best
}

// ScoredRecord pairs a record with its similarity to a query.
type ScoredRecord struct {
	Record *Record
	Score  float64
}

// SearchSimilarVerifications ranks the session's live records by provider
// similarity to text, best first. Deterministically empty when no provider
// is configured.
func (c *Cache) SearchSimilarVerifications(ctx context.Context, text, sessionID string, limit int, minScore float64) []ScoredRecord {
	if c.provider == nil {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	fp := Fingerprint(text)
	out := make([]ScoredRecord, 0)
	for _, rec := range c.sessionRecords(sessionID, time.Now()) {
		score, err := c.provider.Similarity(ctx, fp, Fingerprint(rec.Text))
		if err != nil {
			return nil
		}
		if score >= minScore {
			out = append(out, ScoredRecord{Record: rec, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SessionVerifications returns one page of the session's live records in
// creation order (oldest first), plus the total live count. statusFilter
// empty means all statuses.
func (c *Cache) SessionVerifications(sessionID string, offset, limit int, statusFilter metrics.VerificationStatus) ([]*Record, int) {
	all := c.sessionRecords(sessionID, time.Now())

	if statusFilter != "" {
		filtered := all[:0]
		for _, rec := range all {
			if rec.Status == statusFilter {
				filtered = append(filtered, rec)
			}
		}
		all = filtered
	}

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total
}

// sessionRecords snapshots clones of the session's unexpired records,
// sorted by creation time.
func (c *Cache) sessionRecords(sessionID string, now time.Time) []*Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Record, 0)
	for _, rec := range c.records {
		if rec.SessionID != sessionID || rec.Expired(now) {
			continue
		}
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CleanExpiredEntries removes every record whose expiry has passed and
// returns how many were removed. Records expiring in the future are never
// touched, so the call is idempotent and safe to interleave with reads.
func (c *Cache) CleanExpiredEntries() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, rec := range c.records {
		if !rec.Expired(now) {
			continue
		}
		delete(c.records, id)
		delete(c.byKey, sessionKey(rec.SessionID, Fingerprint(rec.Text)))
		removed++
	}
	return removed
}

// ClearSession drops every record of one session.
func (c *Cache) ClearSession(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, rec := range c.records {
		if rec.SessionID != sessionID {
			continue
		}
		delete(c.records, id)
		delete(c.byKey, sessionKey(rec.SessionID, Fingerprint(rec.Text)))
		removed++
	}
	return removed
}

// ClearAll drops every record.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[string]*Record)
	c.byKey = make(map[string]string)
}

// Reset restores the cache to its freshly constructed state. For tests.
func (c *Cache) Reset() {
	c.StopJanitor()
	c.ClearAll()
}

// Stats summarizes cache contents.
type Stats struct {
	TotalEntries    int                                `json:"totalEntries"`
	EntriesByStatus map[metrics.VerificationStatus]int `json:"entriesByStatus"`
	CacheSize       int                                `json:"cacheSize"` // approximate bytes of cached text
}

// GetStats counts live entries per status and approximates the cached text
// volume in bytes.
func (c *Cache) GetStats() Stats {
	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{EntriesByStatus: make(map[metrics.VerificationStatus]int)}
	for _, rec := range c.records {
		if rec.Expired(now) {
			continue
		}
		stats.TotalEntries++
		stats.EntriesByStatus[rec.Status]++
		stats.CacheSize += len(rec.Text)
		for _, s := range rec.Sources {
			stats.CacheSize += len(s)
		}
	}
	return stats
}

// StartJanitor launches the background expiry sweep at the configured
// interval. Starting twice is a no-op; StopJanitor ends it.
func (c *Cache) StartJanitor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.janitorStop != nil {
		return
	}
	stop := make(chan struct{})
	c.janitorStop = stop

	interval := c.config.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.CleanExpiredEntries()
			case <-stop:
				return
			}
		}
	}()
}

// StopJanitor stops the background sweep. Safe to call repeatedly or when
// the janitor was never started.
func (c *Cache) StopJanitor() {
	c.mu.Lock()
	stop := c.janitorStop
	c.janitorStop = nil
	c.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (r *Record) clone() *Record {
	out := *r
	out.Sources = append([]string(nil), r.Sources...)
	if r.Metadata != nil {
		out.Metadata = cloneMap(r.Metadata)
	}
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
