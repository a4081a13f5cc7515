package model

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/franz/autotag/internal/parse"
	"github.com/franz/autotag/internal/prompt"
	"github.com/franz/autotag/internal/util"
)

// DefaultOllamaHost is used when OLLAMA_HOST is not set
const DefaultOllamaHost = "http://localhost:11434"

// ollamaBackend calls a local Ollama service via its chat API
type ollamaBackend struct {
	modelName string
	language  string
	chatURL   string
	prompts   *prompt.Library
	client    *http.Client
}

func newOllamaBackend(cfg Config, client *http.Client) *ollamaBackend {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = DefaultOllamaHost
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host
	}

	return &ollamaBackend{
		modelName: cfg.ModelName,
		language:  cfg.Language,
		chatURL:   strings.TrimRight(host, "/") + "/api/chat",
		prompts:   cfg.Prompts,
		client:    client,
	}
}

func (b *ollamaBackend) Name() string {
	return b.modelName
}

func (b *ollamaBackend) GenerateTags(ctx context.Context, image []byte, tagCount int) (string, error) {
	raw, err := b.chat(ctx, image, b.prompts.TagPrompt(b.language, tagCount))
	if err != nil {
		return "", err
	}

	canonical := parse.Canonical(raw, b.language)
	if canonical == "" {
		return "", newAPIError(KindParse,
			fmt.Sprintf("failed to parse tags from response (language=%s)", b.language), raw)
	}
	return canonical, nil
}

func (b *ollamaBackend) GenerateDescription(ctx context.Context, image []byte) (string, error) {
	raw, err := b.chat(ctx, image, b.prompts.DescriptionPrompt(b.language))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// chat sends one image plus prompt through the chat API and returns the
// model's text. The pre-filled empty think block suppresses thinking
// mode on reasoning models, which would otherwise dominate latency.
func (b *ollamaBackend) chat(ctx context.Context, image []byte, userPrompt string) (string, error) {
	imageB64 := base64.StdEncoding.EncodeToString(image)

	payload := ollamaChatRequest{
		Model: b.modelName,
		Messages: []ollamaMessage{
			{Role: "system", Content: b.prompts.SystemPrompt(b.language)},
			{Role: "user", Content: userPrompt, Images: []string{imageB64}},
			{Role: "assistant", Content: "<think></think>"},
		},
		Stream: false,
		Options: map[string]any{
			"temperature":    0.0,
			"top_p":          0.9,
			"num_predict":    300,
			"num_ctx":        4096,
			"repeat_penalty": 1.1,
		},
	}

	util.DebugLog("Ollama API: model=%s prompt=%q", b.modelName, userPrompt)

	raw, apiErr := postJSON(ctx, b.client, b.chatURL, nil, payload)
	if apiErr != nil {
		return "", apiErr
	}

	var result ollamaChatResponse
	if err := unmarshalResponse(raw, &result); err != nil {
		return "", err
	}

	content := result.Message.Content
	if strings.TrimSpace(content) == "" {
		return "", newAPIError(KindEmptyResponse,
			"model returned empty response (message.content is empty)", string(raw))
	}

	return content, nil
}
