package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orvandel/mentat/pkg/graph"
	"github.com/orvandel/mentat/pkg/mentat"
	"github.com/orvandel/mentat/pkg/metrics"
)

// registerTools builds the tool catalogue and its handlers. Each handler
// decodes loosely-typed JSON arguments, calls the engine, and returns a
// JSON-serializable result.
func (s *Server) registerTools() {
	add := func(name, description string, schema string, h ToolHandler) {
		s.tools = append(s.tools, Tool{
			Name:        name,
			Description: description,
			InputSchema: json.RawMessage(schema),
		})
		s.handlers[name] = h
	}

	add("think", "Record a thought in the reasoning graph and score it.",
		`{"type":"object","properties":{"content":{"type":"string"},"thought_type":{"type":"string","enum":["regular","revision","meta","hypothesis","conclusion"]},"session":{"type":"string"},"connections":{"type":"array","items":{"type":"object","properties":{"target_id":{"type":"string"},"relation":{"type":"string"},"strength":{"type":"number"},"description":{"type":"string"}},"required":["target_id","relation"]}}},"required":["content"]}`,
		s.handleThink)

	add("connect", "Connect two existing thoughts with a typed relation.",
		`{"type":"object","properties":{"from":{"type":"string"},"to":{"type":"string"},"relation":{"type":"string"},"strength":{"type":"number"}},"required":["from","to","relation"]}`,
		s.handleConnect)

	add("link", "Create a hyperlink grouping two or more thoughts.",
		`{"type":"object","properties":{"node_ids":{"type":"array","items":{"type":"string"}},"link_type":{"type":"string"},"description":{"type":"string"},"strength":{"type":"number"}},"required":["node_ids","link_type"]}`,
		s.handleLink)

	add("revise", "Replace a thought's content and rescore it.",
		`{"type":"object","properties":{"id":{"type":"string"},"content":{"type":"string"}},"required":["id","content"]}`,
		s.handleRevise)

	add("verify", "Verify a claim against evidence and cache the outcome.",
		`{"type":"object","properties":{"text":{"type":"string"},"session":{"type":"string"},"sources":{"type":"array","items":{"type":"string"}},"evidence":{"type":"array","items":{"type":"object","properties":{"outcome":{"type":"string"},"confidence":{"type":"number"},"source":{"type":"string"}},"required":["outcome"]}},"thought_id":{"type":"string"},"ttl_seconds":{"type":"number"},"force":{"type":"boolean"}},"required":["text"]}`,
		s.handleVerify)

	add("recall", "Look up a cached verification for a claim.",
		`{"type":"object","properties":{"text":{"type":"string"},"session":{"type":"string"}},"required":["text"]}`,
		s.handleRecall)

	add("relevant", "Rank stored thoughts by relevance to a query.",
		`{"type":"object","properties":{"query":{"type":"string"},"limit":{"type":"number"},"session":{"type":"string"}},"required":["query"]}`,
		s.handleRelevant)

	add("infer", "Infer associative connections between similar unconnected thoughts.",
		`{"type":"object","properties":{}}`,
		s.handleInfer)

	add("suggest", "Suggest next reasoning steps based on graph evidence.",
		`{"type":"object","properties":{"limit":{"type":"number"},"session":{"type":"string"}}}`,
		s.handleSuggest)

	add("verifications", "List a session's cached verifications with pagination.",
		`{"type":"object","properties":{"session":{"type":"string"},"offset":{"type":"number"},"limit":{"type":"number"},"status":{"type":"string"}},"required":["session"]}`,
		s.handleVerifications)

	add("stats", "Report graph and cache statistics.",
		`{"type":"object","properties":{}}`,
		s.handleStats)

	add("export", "Export the full reasoning graph as a portable snapshot.",
		`{"type":"object","properties":{}}`,
		s.handleExport)

	add("import_graph", "Replace the reasoning graph with an exported snapshot.",
		`{"type":"object","properties":{"snapshot":{"type":"object"}},"required":["snapshot"]}`,
		s.handleImport)
}

func (s *Server) handleThink(ctx context.Context, args map[string]any) (any, error) {
	content := argString(args, "content")
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	typ := graph.ThoughtType(argString(args, "thought_type"))
	if typ == "" {
		typ = graph.TypeRegular
	}

	conns, err := decodeConnections(args["connections"])
	if err != nil {
		return nil, err
	}

	res, err := s.db.AddThought(ctx, mentat.ThoughtInput{
		Content:     content,
		Type:        typ,
		Connections: conns,
		Session:     argString(args, "session"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":      res.ID,
		"metrics": res.Metrics,
		"biases":  res.Biases,
	}, nil
}

func (s *Server) handleConnect(_ context.Context, args map[string]any) (any, error) {
	from := argString(args, "from")
	to := argString(args, "to")
	rel := graph.ConnectionType(argString(args, "relation"))
	strength := argFloat(args, "strength", 0.5)

	if err := s.db.Connect(from, to, rel, strength); err != nil {
		return nil, err
	}
	return map[string]any{"connected": true, "from": from, "to": to}, nil
}

func (s *Server) handleLink(_ context.Context, args map[string]any) (any, error) {
	ids, err := decodeStrings(args["node_ids"])
	if err != nil {
		return nil, fmt.Errorf("node_ids: %w", err)
	}
	id, err := s.db.CreateHyperlink(ids, argString(args, "link_type"), argString(args, "description"), nil, argFloat(args, "strength", 0.5))
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

func (s *Server) handleRevise(_ context.Context, args map[string]any) (any, error) {
	id := argString(args, "id")
	if !s.db.UpdateThoughtContent(id, argString(args, "content")) {
		return nil, fmt.Errorf("thought %q not found", id)
	}
	t := s.db.Thought(id)
	return map[string]any{"id": id, "metrics": t.Metrics}, nil
}

func (s *Server) handleVerify(ctx context.Context, args map[string]any) (any, error) {
	text := argString(args, "text")
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	evidence, err := decodeEvidence(args["evidence"])
	if err != nil {
		return nil, err
	}
	sources, err := decodeStrings(args["sources"])
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}

	in := mentat.VerifyInput{
		Text:      text,
		Evidence:  evidence,
		Sources:   sources,
		Session:   argString(args, "session"),
		ThoughtID: argString(args, "thought_id"),
		Force:     argBool(args, "force"),
	}
	if ttl := argFloat(args, "ttl_seconds", 0); ttl > 0 {
		in.TTL = time.Duration(ttl * float64(time.Second))
	}
	return s.db.Verify(ctx, in)
}

func (s *Server) handleRecall(ctx context.Context, args map[string]any) (any, error) {
	rec := s.db.FindVerification(ctx, argString(args, "text"), argString(args, "session"))
	if rec == nil {
		return map[string]any{"found": false}, nil
	}
	return map[string]any{"found": true, "record": rec}, nil
}

func (s *Server) handleRelevant(ctx context.Context, args map[string]any) (any, error) {
	query := argString(args, "query")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	limit := int(argFloat(args, "limit", 5))
	scored := s.db.RelevantThoughts(ctx, query, limit, argString(args, "session"))

	out := make([]map[string]any, 0, len(scored))
	for _, st := range scored {
		out = append(out, map[string]any{
			"id":      st.Thought.ID,
			"content": st.Thought.Content,
			"score":   st.Score,
		})
	}
	return map[string]any{"thoughts": out}, nil
}

func (s *Server) handleInfer(ctx context.Context, _ map[string]any) (any, error) {
	n, err := s.db.InferRelations(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"inferred": n}, nil
}

func (s *Server) handleSuggest(_ context.Context, args map[string]any) (any, error) {
	limit := int(argFloat(args, "limit", 3))
	return map[string]any{"suggestions": s.db.SuggestNextSteps(limit, argString(args, "session"))}, nil
}

func (s *Server) handleVerifications(_ context.Context, args map[string]any) (any, error) {
	session := argString(args, "session")
	if session == "" {
		return nil, fmt.Errorf("session is required")
	}
	status := metrics.VerificationStatus(argString(args, "status"))
	if status != "" && !metrics.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	records, total := s.db.SessionVerifications(session, int(argFloat(args, "offset", 0)), int(argFloat(args, "limit", 20)), status)
	return map[string]any{"records": records, "total": total}, nil
}

func (s *Server) handleStats(_ context.Context, _ map[string]any) (any, error) {
	return s.db.GetStats(), nil
}

func (s *Server) handleExport(_ context.Context, _ map[string]any) (any, error) {
	return s.db.ExportGraph(), nil
}

func (s *Server) handleImport(_ context.Context, args map[string]any) (any, error) {
	raw, err := json.Marshal(args["snapshot"])
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	var export graph.EnrichedExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if !s.db.ImportGraph(&export) {
		return nil, fmt.Errorf("snapshot rejected: invalid thoughts or relations")
	}
	return map[string]any{"imported": true}, nil
}

// Argument decoding. MCP arguments arrive as map[string]any from
// encoding/json, so numbers are float64 and arrays are []any.

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argFloat(args map[string]any, key string, def float64) float64 {
	if f, ok := args[key].(float64); ok {
		return f
	}
	return def
}

func argBool(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func decodeStrings(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected an array of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeConnections(v any) ([]graph.Connection, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("connections must be an array")
	}
	out := make([]graph.Connection, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("connections[%d]: expected an object", i)
		}
		c := graph.Connection{
			TargetID:    argString(m, "target_id"),
			Type:        graph.ConnectionType(argString(m, "relation")),
			Strength:    argFloat(m, "strength", 0.5),
			Description: argString(m, "description"),
		}
		if c.TargetID == "" {
			return nil, fmt.Errorf("connections[%d]: target_id is required", i)
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeEvidence(v any) ([]metrics.Evidence, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("evidence must be an array")
	}
	out := make([]metrics.Evidence, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("evidence[%d]: expected an object", i)
		}
		outcome := metrics.VerificationStatus(argString(m, "outcome"))
		if !metrics.ValidStatus(outcome) {
			return nil, fmt.Errorf("evidence[%d]: unknown outcome %q", i, outcome)
		}
		out = append(out, metrics.Evidence{
			Outcome:    outcome,
			Confidence: argFloat(m, "confidence", 0.8),
			Source:     argString(m, "source"),
		})
	}
	return out, nil
}
