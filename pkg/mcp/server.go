// Package mcp exposes the engine over the MCP (Model Context Protocol)
// JSON-RPC surface, so LLM agents can drive the reasoning graph and
// verification cache as tools.
//
// Tool surface:
//   - think: add a thought (optionally connected) and get its scores
//   - connect: link two thoughts with a typed, weighted relation
//   - link: create a multi-node hyperlink
//   - revise: rewrite a thought's content
//   - verify: resolve and cache a claim's verification status
//   - recall: fetch a thought with its connected context
//   - relevant: rank thoughts against a query
//   - infer: run similarity-driven relation inference
//   - suggest: recommend next reasoning steps
//   - verifications: page through a session's cached records
//   - stats: engine statistics
//   - export / import_graph: full graph snapshots
//
// All tools are transport only; every semantic lives in pkg/mentat and
// below. Optional bearer-token auth compares against a bcrypt hash so the
// plaintext token never sits in config.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/orvandel/mentat/pkg/mentat"
)

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`

	// TokenHash is a bcrypt hash of the required bearer token. Empty
	// disables authentication.
	TokenHash string `yaml:"token_hash"`

	// RequestTimeout bounds one tool call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultServerConfig listens on localhost with auth disabled.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:        "localhost:9072",
		RequestTimeout: 30 * time.Second,
	}
}

// ToolHandler executes one tool call.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// Server implements the MCP protocol over HTTP.
type Server struct {
	db     *mentat.DB
	config *ServerConfig

	httpServer *http.Server
	mu         sync.RWMutex
	started    time.Time

	handlers map[string]ToolHandler
	tools    []Tool
}

// NewServer creates an MCP server around an engine handle. A nil config
// uses DefaultServerConfig().
func NewServer(db *mentat.DB, config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	s := &Server{
		db:       db,
		config:   config,
		handlers: make(map[string]ToolHandler),
	}
	s.registerTools()
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.authMiddleware(http.HandlerFunc(s.handleMCP)))
	mux.HandleFunc("/health", s.handleHealth)

	s.mu.Lock()
	s.started = time.Now()
	s.httpServer = &http.Server{
		Addr:         s.config.Address,
		Handler:      mux,
		ReadTimeout:  s.config.RequestTimeout,
		WriteTimeout: s.config.RequestTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	log.Printf("mcp: serving on %s (auth %v)", s.config.Address, s.config.TokenHash != "")
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	uptime := time.Since(s.started)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": uptime.String(),
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "unreadable body"}})
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "malformed JSON-RPC request"}})
		return
	}

	ctx := r.Context()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "initialize":
		resp.Result = InitResponse{
			ProtocolVersion: "2024-11-05",
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      ServerInfo{Name: "mentat", Version: Version},
		}
	case "tools/list":
		resp.Result = ListToolsResponse{Tools: s.tools}
	case "tools/call":
		resp = s.dispatchToolCall(ctx, req)
	case "notifications/initialized":
		w.WriteHeader(http.StatusAccepted)
		return
	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}

	writeRPC(w, resp)
}

func (s *Server) dispatchToolCall(ctx context.Context, req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		resp.Error = &rpcError{Code: codeInvalidParams, Message: "malformed tools/call params"}
		return resp
	}

	handler, ok := s.handlers[params.Name]
	if !ok {
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown tool %q", params.Name)}
		return resp
	}

	result, err := handler(ctx, params.Arguments)
	if err != nil {
		// Tool failures are results, not protocol errors, per MCP.
		resp.Result = CallToolResponse{
			Content: []Content{{Type: "text", Text: err.Error()}},
			IsError: true,
		}
		return resp
	}

	wrapped, err := textResult(result)
	if err != nil {
		resp.Error = &rpcError{Code: codeInternalError, Message: "failed to encode tool result"}
		return resp
	}
	resp.Result = wrapped
	return resp
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("mcp: failed to write response: %v", err)
	}
}

// Version is reported to MCP clients.
var Version = "0.1.0"
