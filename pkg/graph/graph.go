package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orvandel/mentat/pkg/similarity"
)

// Graph owns the thought nodes, their connections, and hyperlinks.
//
// All methods are safe for concurrent use. External similarity lookups are
// never performed while holding the graph lock, so a slow provider cannot
// block readers.
type Graph struct {
	mu         sync.RWMutex
	thoughts   map[string]*Thought
	order      []string // insertion order, oldest first
	hyperlinks map[string]*Hyperlink

	provider similarity.Provider // optional, nil when not configured

	// onMutate is invoked (outside the lock) with every thought id whose
	// cached metric breakdown must be invalidated after a mutation.
	onMutate func(id string)
}

// New creates an empty graph. The similarity provider may be nil; relation
// inference and ranked relevance then fall back to keyword heuristics.
func New(provider similarity.Provider) *Graph {
	return &Graph{
		thoughts:   make(map[string]*Thought),
		hyperlinks: make(map[string]*Hyperlink),
		provider:   provider,
	}
}

// SetMutationHook registers a callback invoked with the id of every thought
// whose content or connections changed. The metrics engine uses this to drop
// stale score breakdowns.
func (g *Graph) SetMutationHook(fn func(id string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onMutate = fn
}

// AddThought inserts a new thought and wires its connections, synthesizing
// the reciprocal entry on every target. Returns the generated id.
//
// Fails with ErrInvalidType for an unknown thought type, ErrInvalidRelation
// for an unknown connection type, and ErrNotFound when a connection targets
// a thought that does not exist. Validation happens before any state is
// touched, so a failed call is never partially applied.
func (g *Graph) AddThought(content string, typ ThoughtType, connections []Connection) (string, error) {
	if !ValidThoughtType(typ) {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}

	g.mu.Lock()

	for _, conn := range connections {
		if _, ok := inverseRelations[conn.Type]; !ok {
			g.mu.Unlock()
			return "", fmt.Errorf("%w: %q", ErrInvalidRelation, conn.Type)
		}
		if _, ok := g.thoughts[conn.TargetID]; !ok {
			g.mu.Unlock()
			return "", fmt.Errorf("%w: connection target %q", ErrNotFound, conn.TargetID)
		}
	}

	t := &Thought{
		ID:          uuid.NewString(),
		Content:     content,
		Type:        typ,
		CreatedAt:   time.Now(),
		Connections: make([]Connection, 0, len(connections)),
		Metadata:    make(map[string]string),
	}
	g.thoughts[t.ID] = t
	g.order = append(g.order, t.ID)

	touched := make([]string, 0, len(connections)+1)
	touched = append(touched, t.ID)
	for _, conn := range connections {
		conn.Strength = clamp01(conn.Strength)
		g.upsertConnection(t.ID, conn)
		g.upsertConnection(conn.TargetID, reciprocalOf(t.ID, conn))
		touched = append(touched, conn.TargetID)
	}

	g.mu.Unlock()
	g.notifyMutated(touched...)
	return t.ID, nil
}

// Connect adds a typed, weighted connection between two existing thoughts,
// writing both adjacency lists in one critical section. An existing entry
// for the same (target, type) pair is merged: the stronger strength wins and
// empty description/attributes are filled in.
func (g *Graph) Connect(fromID, toID string, typ ConnectionType, strength float64) error {
	return g.ConnectWith(fromID, toID, Connection{Type: typ, Strength: strength})
}

// ConnectWith is Connect with full control over the connection record.
// The TargetID field of conn is ignored; toID wins.
func (g *Graph) ConnectWith(fromID, toID string, conn Connection) error {
	if _, ok := inverseRelations[conn.Type]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRelation, conn.Type)
	}
	if fromID == toID {
		return fmt.Errorf("%w: self-connection %q", ErrInvalidRelation, fromID)
	}

	g.mu.Lock()
	if _, ok := g.thoughts[fromID]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, fromID)
	}
	if _, ok := g.thoughts[toID]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, toID)
	}

	conn.TargetID = toID
	conn.Strength = clamp01(conn.Strength)
	g.upsertConnection(fromID, conn)
	g.upsertConnection(toID, reciprocalOf(fromID, conn))
	g.mu.Unlock()

	g.notifyMutated(fromID, toID)
	return nil
}

// upsertConnection appends conn to the owner's list, or merges it into an
// existing entry with the same target and type. Caller holds the lock.
func (g *Graph) upsertConnection(ownerID string, conn Connection) {
	owner := g.thoughts[ownerID]
	for i := range owner.Connections {
		existing := &owner.Connections[i]
		if existing.TargetID != conn.TargetID || existing.Type != conn.Type {
			continue
		}
		if conn.Strength > existing.Strength {
			existing.Strength = conn.Strength
		}
		if existing.Description == "" {
			existing.Description = conn.Description
		}
		if existing.Attributes == nil {
			existing.Attributes = conn.Attributes
		}
		if conn.Inferred && existing.InferenceConfidence < conn.InferenceConfidence {
			existing.InferenceConfidence = conn.InferenceConfidence
		}
		existing.Bidirectional = existing.Bidirectional || conn.Bidirectional
		return
	}
	owner.Connections = append(owner.Connections, conn)
}

// reciprocalOf builds the mirrored entry placed on the target node.
func reciprocalOf(sourceID string, conn Connection) Connection {
	inv := inverseRelations[conn.Type]
	return Connection{
		TargetID:            sourceID,
		Type:                inv,
		Strength:            conn.Strength,
		Description:         conn.Description,
		Attributes:          conn.Attributes,
		Inferred:            conn.Inferred,
		InferenceConfidence: conn.InferenceConfidence,
		Bidirectional:       conn.Bidirectional,
	}
}

// Thought returns a copy of the thought with the given id, or nil if absent.
// Lookup misses are not errors.
func (g *Graph) Thought(id string) *Thought {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.thoughts[id]
	if !ok {
		return nil
	}
	return t.clone()
}

// ConnectedThoughts returns every thought reachable from id through a
// connection in either direction. The reciprocity invariant means the
// node's own connection list already covers both directions.
func (g *Graph) ConnectedThoughts(id string) ([]*Thought, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.thoughts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	seen := make(map[string]bool, len(t.Connections))
	out := make([]*Thought, 0, len(t.Connections))
	for _, conn := range t.Connections {
		if seen[conn.TargetID] {
			continue
		}
		seen[conn.TargetID] = true
		if target, ok := g.thoughts[conn.TargetID]; ok {
			out = append(out, target.clone())
		}
	}
	return out, nil
}

// UpdateThoughtContent replaces the content of a thought. Returns false when
// the id is unknown. On success the thought's cached metric breakdown is
// invalidated, along with every connected thought's (their relevance and
// quality depend on this content as context).
func (g *Graph) UpdateThoughtContent(id, content string) bool {
	g.mu.Lock()
	t, ok := g.thoughts[id]
	if !ok {
		g.mu.Unlock()
		return false
	}
	t.Content = content

	touched := make([]string, 0, len(t.Connections)+1)
	touched = append(touched, id)
	for _, conn := range t.Connections {
		touched = append(touched, conn.TargetID)
	}
	g.mu.Unlock()

	g.notifyMutated(touched...)
	return true
}

// SetMetrics stores computed scores on the thought. Missing ids are ignored.
func (g *Graph) SetMetrics(id string, m Metrics) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.thoughts[id]; ok {
		t.Metrics = m
	}
}

// SetMetadata sets one metadata key on the thought. Missing ids are ignored.
func (g *Graph) SetMetadata(id, key, value string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.thoughts[id]; ok {
		if t.Metadata == nil {
			t.Metadata = make(map[string]string)
		}
		t.Metadata[key] = value
	}
}

// CreateHyperlink creates a relation spanning nodeIDs. Fails with
// ErrInvalidLink when fewer than 2 distinct ids are given or any id is
// unknown. Returns the generated hyperlink id.
func (g *Graph) CreateHyperlink(nodeIDs []string, typ, description string, attributes map[string]string, strength float64) (string, error) {
	distinct := make([]string, 0, len(nodeIDs))
	seen := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		if !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}
	if len(distinct) < 2 {
		return "", fmt.Errorf("%w: got %d distinct nodes", ErrInvalidLink, len(distinct))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range distinct {
		if _, ok := g.thoughts[id]; !ok {
			return "", fmt.Errorf("%w: unknown node %q", ErrInvalidLink, id)
		}
	}

	h := &Hyperlink{
		ID:          uuid.NewString(),
		NodeIDs:     distinct,
		Type:        typ,
		Description: description,
		Attributes:  attributes,
		Strength:    clamp01(strength),
	}
	g.hyperlinks[h.ID] = h
	return h.ID, nil
}

// Hyperlink returns the hyperlink with the given id, or nil if absent.
func (g *Graph) Hyperlink(id string) *Hyperlink {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.hyperlinks[id]
	if !ok {
		return nil
	}
	return h.clone()
}

// HyperlinksFor returns every hyperlink whose membership contains nodeID.
func (g *Graph) HyperlinksFor(nodeID string) []*Hyperlink {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Hyperlink, 0)
	for _, h := range g.hyperlinks {
		if h.Contains(nodeID) {
			out = append(out, h.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Thoughts returns copies of all thoughts in insertion order.
func (g *Graph) Thoughts() []*Thought {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Thought, 0, len(g.order))
	for _, id := range g.order {
		if t, ok := g.thoughts[id]; ok {
			out = append(out, t.clone())
		}
	}
	return out
}

// Count returns the number of thoughts in the graph.
func (g *Graph) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.thoughts)
}

func (g *Graph) notifyMutated(ids ...string) {
	g.mu.RLock()
	fn := g.onMutate
	g.mu.RUnlock()
	if fn == nil {
		return
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			fn(id)
		}
	}
}

func (t *Thought) clone() *Thought {
	out := *t
	out.Connections = make([]Connection, len(t.Connections))
	copy(out.Connections, t.Connections)
	if t.Metadata != nil {
		out.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func (h *Hyperlink) clone() *Hyperlink {
	out := *h
	out.NodeIDs = make([]string, len(h.NodeIDs))
	copy(out.NodeIDs, h.NodeIDs)
	if h.Attributes != nil {
		out.Attributes = make(map[string]string, len(h.Attributes))
		for k, v := range h.Attributes {
			out.Attributes[k] = v
		}
	}
	return &out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
