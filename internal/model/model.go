// Package model wraps the vision-language backends that turn an image
// into tag text. The backend set is closed: new backends are added as
// new variants behind the Backend interface, never by branching on
// strings in call paths.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/franz/autotag/internal/prompt"
	"github.com/franz/autotag/internal/util"
)

// RequestTimeout bounds a single model call. A timed-out call fails
// that unit of work; there is no mid-flight cancellation or retry.
const RequestTimeout = 60 * time.Second

// Kind selects a backend variant
type Kind string

const (
	KindOllama Kind = "ollama"
	KindOpenAI Kind = "openai"
)

// Backend generates tag text and descriptions from encoded image bytes.
// Both methods return the model's (parsed) text output; tag-list
// splitting and truncation happen in the parse package.
type Backend interface {
	// GenerateTags asks for tagCount tags and returns a canonical
	// comma-joined tag string
	GenerateTags(ctx context.Context, image []byte, tagCount int) (string, error)

	// GenerateDescription returns a free-text description
	GenerateDescription(ctx context.Context, image []byte) (string, error)

	// Name returns the configured model name
	Name() string
}

// Config holds backend construction parameters
type Config struct {
	Kind      Kind
	ModelName string
	Language  string
	APIBase   string // OpenAI-compatible endpoints only
	APIKey    string // OpenAI-compatible endpoints only
	Prompts   *prompt.Library
}

// New constructs a backend for the configured kind
func New(cfg Config) (Backend, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name is required", util.ErrInvalidConfig)
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.Default()
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	client := &http.Client{Timeout: RequestTimeout}

	switch cfg.Kind {
	case KindOllama, "":
		return newOllamaBackend(cfg, client), nil
	case KindOpenAI:
		if cfg.APIBase == "" {
			return nil, fmt.Errorf("%w: api-base is required for openai-compatible endpoints", util.ErrInvalidConfig)
		}
		return newOpenAIBackend(cfg, client), nil
	default:
		return nil, fmt.Errorf("%w: unknown model type %q", util.ErrInvalidConfig, cfg.Kind)
	}
}

// postJSON sends a JSON payload and returns the response body, mapping
// transport failures onto the closed error-kind set
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, *APIError) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newAPIError(KindParse, fmt.Sprintf("failed to encode request: %v", err), "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, newAPIError(KindConnection, fmt.Sprintf("failed to create request: %v", err), "")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, newAPIError(KindTimeout,
				fmt.Sprintf("API request timed out (%s), URL=%s", RequestTimeout, url), "")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newAPIError(KindTimeout,
				fmt.Sprintf("API request timed out (%s), URL=%s", RequestTimeout, url), "")
		}
		return nil, newAPIError(KindConnection,
			fmt.Sprintf("failed to connect to %s: %v", url, err), "")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newAPIError(KindConnection, fmt.Sprintf("failed to read response: %v", err), "")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := newAPIError(KindHTTPStatus, "unexpected status", string(raw))
		apiErr.StatusCode = resp.StatusCode
		return nil, apiErr
	}

	return raw, nil
}
