package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Errors returned by embedding providers.
var (
	ErrBadResponse = errors.New("embedding provider returned malformed response")
)

// Embedder generates vector embeddings from text.
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// Example:
//
//	var embedder similarity.Embedder
//	embedder = similarity.NewHTTPEmbedder(nil) // local Ollama defaults
//
//	vec, err := embedder.Embed(ctx, "hello world")
type Embedder interface {
	// Embed generates the embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector dimension
	Dimensions() int

	// Model returns the model name
	Model() string
}

// EmbedderConfig holds embedding endpoint configuration.
//
// Fields:
//   - Provider: "ollama" or "openai" (selects request/response shape)
//   - APIURL: base URL, e.g. http://localhost:11434
//   - APIPath: endpoint path, e.g. /api/embeddings or /v1/embeddings
//   - APIKey: bearer token (openai shape only)
//   - Model: model name, e.g. mxbai-embed-large
//   - Dimensions: expected vector size, for validation
//   - Timeout: HTTP request timeout
type EmbedderConfig struct {
	Provider   string        `yaml:"provider"`
	APIURL     string        `yaml:"api_url"`
	APIPath    string        `yaml:"api_path"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DefaultEmbedderConfig returns configuration for local Ollama with
// mxbai-embed-large (1024 dimensions). This keeps the engine fully offline:
// Ollama runs on localhost and requires no API key.
func DefaultEmbedderConfig() *EmbedderConfig {
	return &EmbedderConfig{
		Provider:   "ollama",
		APIURL:     "http://localhost:11434",
		APIPath:    "/api/embeddings",
		Model:      "mxbai-embed-large",
		Dimensions: 1024,
		Timeout:    30 * time.Second,
	}
}

// HTTPEmbedder implements Embedder against an Ollama- or OpenAI-shaped
// embedding endpoint.
//
// Thread-safe: the underlying http.Client handles concurrent requests.
type HTTPEmbedder struct {
	config *EmbedderConfig
	client *http.Client
}

// NewHTTPEmbedder creates an embedder. If config is nil,
// DefaultEmbedderConfig() is used.
func NewHTTPEmbedder(config *EmbedderConfig) *HTTPEmbedder {
	if config == nil {
		config = DefaultEmbedderConfig()
	}

	return &HTTPEmbedder{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Dimensions returns the configured embedding dimension.
func (e *HTTPEmbedder) Dimensions() int { return e.config.Dimensions }

// Model returns the configured model name.
func (e *HTTPEmbedder) Model() string { return e.config.Model }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

type openAIRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed generates a vector embedding for a single text string.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.config.Provider == "openai" {
		vecs, err := e.embedOpenAI(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vecs[0], nil
	}
	return e.embedOllama(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts.
//
// The openai shape supports true batching in one request; the ollama shape
// makes one request per text.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if e.config.Provider == "openai" {
		return e.embedOpenAI(ctx, texts)
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.embedOllama(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (e *HTTPEmbedder) embedOllama(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: e.config.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := e.post(ctx, body, "")
	if err != nil {
		return nil, err
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrBadResponse
	}
	if e.config.Dimensions > 0 && len(resp.Embedding) != e.config.Dimensions {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d",
			ErrBadResponse, len(resp.Embedding), e.config.Dimensions)
	}
	return resp.Embedding, nil
}

func (e *HTTPEmbedder) embedOpenAI(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := e.post(ctx, body, e.config.APIKey)
	if err != nil {
		return nil, err
	}

	var resp openAIResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings, want %d",
			ErrBadResponse, len(resp.Data), len(texts))
	}

	// The API may return out of order; index is authoritative.
	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, ErrBadResponse
		}
		vecs[item.Index] = item.Embedding
	}
	return vecs, nil
}

func (e *HTTPEmbedder) post(ctx context.Context, body []byte, apiKey string) ([]byte, error) {
	url := e.config.APIURL + e.config.APIPath
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
