// Package mentat provides the main API for embedded engine usage.
//
// A DB ties together the three core components — the thought graph, the
// metrics engine, and the verification cache — plus persistence and the
// optional external capabilities (similarity provider, arithmetic
// verifier). It is the single handle transport layers hold.
//
// Control flow for a submitted thought: the graph inserts it and wires
// connections, the metrics engine scores it, and, when verification
// evidence arrives, the consensus status and reliability feed the
// verification cache keyed by the claim's normalized text and session.
//
// Example Usage:
//
//	db, err := mentat.Open("./data", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	res, err := db.AddThought(ctx, mentat.ThoughtInput{
//		Content: "The study reports a 25% improvement",
//		Type:    graph.TypeRegular,
//		Session: "s1",
//	})
//	fmt.Printf("confidence %.2f\n", res.Metrics.Confidence)
//
//	outcome, _ := db.Verify(ctx, mentat.VerifyInput{
//		Text:    "12 * 4 = 48",
//		Session: "s1",
//	})
//	fmt.Println(outcome.Status) // verified
package mentat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/orvandel/mentat/pkg/calcverify"
	"github.com/orvandel/mentat/pkg/config"
	"github.com/orvandel/mentat/pkg/graph"
	"github.com/orvandel/mentat/pkg/metrics"
	"github.com/orvandel/mentat/pkg/similarity"
	"github.com/orvandel/mentat/pkg/storage"
	"github.com/orvandel/mentat/pkg/vcache"
)

// DB is the embedded engine handle. One per process; all methods are safe
// for concurrent use.
type DB struct {
	config *config.Config

	graph    *graph.Graph
	metrics  *metrics.Engine
	cache    *vcache.Cache
	store    storage.DocumentStore
	provider similarity.Provider
	verifier calcverify.Verifier
}

// Open constructs the engine rooted at dataDir. A nil cfg uses
// config.Default() with dataDir substituted. Persisted state is loaded if
// present; load failures fall back to fresh in-memory state and are
// logged, never fatal.
func Open(dataDir string, cfg *config.Config) (*DB, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	var store storage.DocumentStore
	var err error
	switch cfg.StorageBackend {
	case "badger":
		store, err = storage.NewBadgerStore(cfg.DataDir)
	default:
		store, err = storage.NewFileStore(cfg.DataDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	var provider similarity.Provider
	if cfg.SimilarityEnabled {
		provider = similarity.NewEmbedderProvider(similarity.NewHTTPEmbedder(cfg.Embedding))
	}

	db := &DB{
		config:   cfg,
		graph:    graph.New(provider),
		metrics:  metrics.NewEngine(cfg.Scoring),
		cache:    vcache.New(cfg.Cache, provider),
		store:    store,
		provider: provider,
		verifier: calcverify.NewLocalVerifier(),
	}

	// Graph mutations drop the affected score breakdowns.
	db.graph.SetMutationHook(db.metrics.Invalidate)

	db.loadPersisted()
	db.cache.StartJanitor()
	return db, nil
}

// SetVerifier swaps the arithmetic verifier. nil disables arithmetic
// checking; Verify then degrades gracefully.
func (db *DB) SetVerifier(v calcverify.Verifier) { db.verifier = v }

// Close persists all state and releases resources.
func (db *DB) Close() error {
	db.cache.StopJanitor()
	if err := db.Persist(); err != nil {
		log.Printf("mentat: persist on close failed: %v", err)
	}
	return db.store.Close()
}

// ThoughtInput is the AddThought request.
type ThoughtInput struct {
	Content     string
	Type        graph.ThoughtType
	Connections []graph.Connection
	Session     string
}

// ThoughtResult is a stored, scored thought.
type ThoughtResult struct {
	ID      string
	Metrics graph.Metrics
	Biases  []metrics.BiasFinding
}

// AddThought inserts a thought, scores it against its connected context,
// and stores the scores on the node.
func (db *DB) AddThought(ctx context.Context, in ThoughtInput) (*ThoughtResult, error) {
	id, err := db.graph.AddThought(in.Content, in.Type, in.Connections)
	if err != nil {
		return nil, err
	}
	if in.Session != "" {
		db.graph.SetMetadata(id, graph.MetadataSession, in.Session)
	}

	t := db.graph.Thought(id)
	connected, _ := db.graph.ConnectedThoughts(id)
	m := db.metrics.ScoreAll(t, connected)
	db.graph.SetMetrics(id, m)

	return &ThoughtResult{
		ID:      id,
		Metrics: m,
		Biases:  db.metrics.DetectBiases(t),
	}, nil
}

// Thought returns a thought by id, nil when absent.
func (db *DB) Thought(id string) *graph.Thought { return db.graph.Thought(id) }

// ConnectedThoughts returns the thoughts connected to id in either
// direction.
func (db *DB) ConnectedThoughts(id string) ([]*graph.Thought, error) {
	return db.graph.ConnectedThoughts(id)
}

// Connect links two thoughts, writing both adjacency lists.
func (db *DB) Connect(fromID, toID string, typ graph.ConnectionType, strength float64) error {
	return db.graph.Connect(fromID, toID, typ, strength)
}

// CreateHyperlink creates a multi-node relation.
func (db *DB) CreateHyperlink(nodeIDs []string, typ, description string, attributes map[string]string, strength float64) (string, error) {
	return db.graph.CreateHyperlink(nodeIDs, typ, description, attributes, strength)
}

// HyperlinksFor returns every hyperlink containing the node.
func (db *DB) HyperlinksFor(nodeID string) []*graph.Hyperlink {
	return db.graph.HyperlinksFor(nodeID)
}

// UpdateThoughtContent rewrites a thought's text and rescores it.
func (db *DB) UpdateThoughtContent(id, content string) bool {
	if !db.graph.UpdateThoughtContent(id, content) {
		return false
	}
	t := db.graph.Thought(id)
	connected, _ := db.graph.ConnectedThoughts(id)
	db.graph.SetMetrics(id, db.metrics.ScoreAll(t, connected))
	return true
}

// InferRelations runs similarity-driven relation inference over the graph.
func (db *DB) InferRelations(ctx context.Context) (int, error) {
	return db.graph.InferRelations(ctx, db.config.InferenceThreshold)
}

// RelevantThoughts ranks thoughts against a query.
func (db *DB) RelevantThoughts(ctx context.Context, query string, limit int, sessionID string) []graph.ScoredThought {
	return db.graph.RelevantThoughts(ctx, query, limit, sessionID)
}

// SuggestNextSteps recommends actions based on structural signals in
// recent thoughts.
func (db *DB) SuggestNextSteps(limit int, sessionID string) []graph.Suggestion {
	return db.graph.SuggestNextSteps(limit, sessionID)
}

// BreakdownFor exposes the cached score explanation for a thought metric.
func (db *DB) BreakdownFor(thoughtID, metric string) (metrics.Breakdown, bool) {
	return db.metrics.BreakdownFor(thoughtID, metric)
}

// VerifyInput is the Verify request. Evidence is optional; when absent the
// arithmetic verifier's findings drive the status.
type VerifyInput struct {
	Text     string
	Evidence []metrics.Evidence
	Sources  []string
	Session  string
	TTL      time.Duration

	// ThoughtID optionally ties the verification to a graph node whose
	// metrics feed the reliability blend.
	ThoughtID string

	// Force re-evaluates even when a cached record exists. The fresh
	// reliability is then smoothed against the cached score to damp
	// oscillation across re-evaluations.
	Force bool
}

// VerifyOutcome is the result of verifying one claim.
type VerifyOutcome struct {
	RecordID    string                     `json:"recordId"`
	Status      metrics.VerificationStatus `json:"status"`
	Reliability float64                    `json:"reliability"`
	Summary     string                     `json:"summary"`
	CalcResults []calcverify.Result        `json:"calcResults,omitempty"`
	Cached      bool                       `json:"cached"`
}

// Verify resolves a claim's verification status and caches the outcome.
//
// A cached record for the same (or near-duplicate) claim in the session is
// returned directly without re-evaluation. Otherwise the claim's
// arithmetic is checked, the evidence (supplied or derived) is reduced to
// a consensus status, reliability is computed, and the outcome is stored
// with the session TTL.
func (db *DB) Verify(ctx context.Context, in VerifyInput) (*VerifyOutcome, error) {
	if cached := db.cache.FindVerification(ctx, in.Text, in.Session); cached != nil && !in.Force {
		return &VerifyOutcome{
			RecordID:    cached.ID,
			Status:      cached.Status,
			Reliability: cached.Confidence,
			Summary:     db.metrics.CertaintySummary(cached.Status, cached.Confidence, nil),
			Cached:      true,
		}, nil
	}

	var calcResults []calcverify.Result
	if db.verifier != nil {
		var err error
		calcResults, err = db.verifier.EvaluateClaims(ctx, in.Text)
		if err != nil {
			// Degraded capability: verification proceeds without
			// arithmetic evidence.
			log.Printf("mentat: arithmetic verifier unavailable: %v", err)
			calcResults = nil
		}
	}

	status := db.resolveStatus(in.Evidence, calcResults)

	m := db.thoughtMetricsFor(ctx, in)
	reliability := db.metrics.Reliability(m, status, calcResults, db.previousScore(ctx, in))

	recordID, err := db.cache.AddVerification(ctx, in.Text, status, reliability, in.Sources, in.Session, in.TTL)
	if err != nil {
		return nil, err
	}

	return &VerifyOutcome{
		RecordID:    recordID,
		Status:      status,
		Reliability: reliability,
		Summary:     db.metrics.CertaintySummary(status, reliability, calcResults),
		CalcResults: calcResults,
	}, nil
}

// resolveStatus prefers supplied multi-source evidence; without it the
// arithmetic results become the single signal.
func (db *DB) resolveStatus(evidence []metrics.Evidence, calcResults []calcverify.Result) metrics.VerificationStatus {
	if len(evidence) > 0 {
		return db.metrics.StatusFromEvidence(evidence)
	}
	if len(calcResults) == 0 {
		return metrics.StatusUnverified
	}

	correct := 0
	parseable := 0
	for _, r := range calcResults {
		if r.Unparseable {
			continue
		}
		parseable++
		if r.IsCorrect {
			correct++
		}
	}
	if parseable == 0 {
		return metrics.StatusInconclusive
	}

	ratio := float64(correct) / float64(parseable)
	return db.metrics.StatusFromSignal(0.95*ratio, correct == 0, true)
}

// thoughtMetricsFor uses the linked thought's stored metrics when given,
// otherwise scores the claim text as a transient thought.
func (db *DB) thoughtMetricsFor(_ context.Context, in VerifyInput) graph.Metrics {
	if in.ThoughtID != "" {
		if t := db.graph.Thought(in.ThoughtID); t != nil {
			return t.Metrics
		}
	}
	transient := &graph.Thought{Content: in.Text, Type: graph.TypeRegular}
	return db.metrics.ScoreAll(transient, nil)
}

// previousScore fetches the prior reliability for re-evaluations so the
// new score can be smoothed against it.
func (db *DB) previousScore(ctx context.Context, in VerifyInput) *float64 {
	prior := db.cache.FindVerification(ctx, in.Text, in.Session)
	if prior == nil {
		return nil
	}
	score := prior.Confidence
	return &score
}

// AddVerification records an externally produced verification outcome.
func (db *DB) AddVerification(ctx context.Context, text string, status metrics.VerificationStatus, confidence float64, sources []string, sessionID string, ttl time.Duration) (string, error) {
	return db.cache.AddVerification(ctx, text, status, confidence, sources, sessionID, ttl)
}

// FindVerification looks up a cached outcome, nil when absent.
func (db *DB) FindVerification(ctx context.Context, text, sessionID string) *vcache.Record {
	return db.cache.FindVerification(ctx, text, sessionID)
}

// SearchSimilarVerifications ranks cached claims near the query text.
func (db *DB) SearchSimilarVerifications(ctx context.Context, text, sessionID string, limit int, minScore float64) []vcache.ScoredRecord {
	return db.cache.SearchSimilarVerifications(ctx, text, sessionID, limit, minScore)
}

// SessionVerifications pages through a session's records.
func (db *DB) SessionVerifications(sessionID string, offset, limit int, statusFilter metrics.VerificationStatus) ([]*vcache.Record, int) {
	return db.cache.SessionVerifications(sessionID, offset, limit, statusFilter)
}

// ClearSession drops one session's verification records.
func (db *DB) ClearSession(sessionID string) int { return db.cache.ClearSession(sessionID) }

// ClearAllVerifications drops every verification record.
func (db *DB) ClearAllVerifications() { db.cache.ClearAll() }

// Stats combines graph and cache statistics.
type Stats struct {
	ThoughtCount int          `json:"thoughtCount"`
	Cache        vcache.Stats `json:"cache"`
}

// GetStats snapshots engine statistics.
func (db *DB) GetStats() Stats {
	return Stats{
		ThoughtCount: db.graph.Count(),
		Cache:        db.cache.GetStats(),
	}
}

// ExportGraph returns the full enriched graph snapshot.
func (db *DB) ExportGraph() *graph.EnrichedExport { return db.graph.Export() }

// ExportGraphJSON renders the graph snapshot as indented JSON.
func (db *DB) ExportGraphJSON() ([]byte, error) { return db.graph.ExportJSON() }

// ImportGraph replaces the graph from a snapshot, false on invalid input.
func (db *DB) ImportGraph(data *graph.EnrichedExport) bool {
	ok := db.graph.Import(data)
	if ok {
		db.metrics.InvalidateAll()
	}
	return ok
}
