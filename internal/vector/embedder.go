// Package vector implements semantic tag search: tag text is embedded
// through a local embedding model and queried by cosine similarity over
// vectors stored alongside the tag records.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/franz/autotag/internal/model"
	"github.com/franz/autotag/internal/util"
)

const (
	// DefaultEmbeddingModel is a small multilingual sentence model
	// served by Ollama
	DefaultEmbeddingModel = "all-minilm"

	// DefaultDimension matches the default embedding model's output
	DefaultDimension = 384
)

// Embedder turns text into a fixed-dimension vector
type Embedder interface {
	// Embed returns the embedding for the given text. Blank text embeds
	// to the zero vector without a model call.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the embedding model name
	Model() string

	// Dimension returns the vector dimension
	Dimension() int
}

// OllamaEmbedder calls a local Ollama service's embeddings API
type OllamaEmbedder struct {
	model  string
	dim    int
	url    string
	client *http.Client
}

// NewOllamaEmbedder creates an embedder against the local Ollama
// service. Empty modelName and a non-positive dim fall back to the
// defaults.
func NewOllamaEmbedder(modelName string, dim int) *OllamaEmbedder {
	if modelName == "" {
		modelName = DefaultEmbeddingModel
	}
	if dim <= 0 {
		dim = DefaultDimension
	}

	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = model.DefaultOllamaHost
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host
	}

	return &OllamaEmbedder{
		model:  modelName,
		dim:    dim,
		url:    strings.TrimRight(host, "/") + "/api/embeddings",
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OllamaEmbedder) Model() string { return e.model }

func (e *OllamaEmbedder) Dimension() int { return e.dim }

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding for text, retrying transient failures
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dim), nil
	}

	return util.RetryWithBackoff(nil, func() ([]float32, error) {
		return e.embed(ctx, text)
	}, "embed")
}

func (e *OllamaEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned HTTP %d: %s", resp.StatusCode, raw)
	}

	var result embeddingResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("malformed embedding response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding API returned empty vector")
	}

	return result.Embedding, nil
}
