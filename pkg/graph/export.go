package graph

import "encoding/json"

// EnrichedExport is the full JSON-serializable snapshot of the graph:
// every thought with its connections, plus all hyperlinks.
type EnrichedExport struct {
	Version    int          `json:"version"`
	Thoughts   []*Thought   `json:"thoughts"`
	Hyperlinks []*Hyperlink `json:"hyperlinks"`
}

// ExportVersion is the current snapshot schema version.
const ExportVersion = 2

// Export returns a deep-copied snapshot of the whole graph.
func (g *Graph) Export() *EnrichedExport {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := &EnrichedExport{
		Version:    ExportVersion,
		Thoughts:   make([]*Thought, 0, len(g.order)),
		Hyperlinks: make([]*Hyperlink, 0, len(g.hyperlinks)),
	}
	for _, id := range g.order {
		if t, ok := g.thoughts[id]; ok {
			out.Thoughts = append(out.Thoughts, t.clone())
		}
	}
	for _, h := range g.hyperlinks {
		out.Hyperlinks = append(out.Hyperlinks, h.clone())
	}
	return out
}

// ExportJSON serializes the snapshot.
func (g *Graph) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(g.Export(), "", "  ")
}

// Import replaces the graph contents with the given snapshot, rebuilding
// the reciprocity invariant from scratch rather than trusting the input's
// mirrored entries. Returns false (never panics) on structurally invalid
// input: nil data, duplicate or empty thought ids, unknown thought types,
// connections or hyperlinks referencing unknown ids. On failure the graph
// is left untouched.
func (g *Graph) Import(data *EnrichedExport) bool {
	if data == nil {
		return false
	}

	ids := make(map[string]bool, len(data.Thoughts))
	for _, t := range data.Thoughts {
		if t == nil || t.ID == "" || ids[t.ID] || !ValidThoughtType(t.Type) {
			return false
		}
		ids[t.ID] = true
	}
	for _, t := range data.Thoughts {
		for _, conn := range t.Connections {
			if !ids[conn.TargetID] || conn.TargetID == t.ID {
				return false
			}
			if _, ok := inverseRelations[conn.Type]; !ok {
				return false
			}
		}
	}
	for _, h := range data.Hyperlinks {
		if h == nil || h.ID == "" || len(h.NodeIDs) < 2 {
			return false
		}
		for _, id := range h.NodeIDs {
			if !ids[id] {
				return false
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.thoughts = make(map[string]*Thought, len(data.Thoughts))
	g.order = make([]string, 0, len(data.Thoughts))
	g.hyperlinks = make(map[string]*Hyperlink, len(data.Hyperlinks))

	// First pass: materialize nodes without connections.
	for _, t := range data.Thoughts {
		clone := t.clone()
		clone.Connections = make([]Connection, 0, len(t.Connections))
		g.thoughts[clone.ID] = clone
		g.order = append(g.order, clone.ID)
	}

	// Second pass: replay connections through the upsert path so every
	// edge regains its reciprocal entry, deduplicating mirrored input.
	for _, t := range data.Thoughts {
		for _, conn := range t.Connections {
			conn.Strength = clamp01(conn.Strength)
			g.upsertConnection(t.ID, conn)
			g.upsertConnection(conn.TargetID, reciprocalOf(t.ID, conn))
		}
	}

	for _, h := range data.Hyperlinks {
		g.hyperlinks[h.ID] = h.clone()
	}
	return true
}

// ImportJSON deserializes and imports a snapshot, returning false on
// malformed JSON or structurally invalid content.
func (g *Graph) ImportJSON(raw []byte) bool {
	var data EnrichedExport
	if err := json.Unmarshal(raw, &data); err != nil {
		return false
	}
	return g.Import(&data)
}
