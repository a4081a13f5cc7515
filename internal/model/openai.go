package model

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/franz/autotag/internal/parse"
	"github.com/franz/autotag/internal/prompt"
	"github.com/franz/autotag/internal/util"
)

// openAIBackend calls any OpenAI-compatible chat-completions endpoint
type openAIBackend struct {
	modelName string
	language  string
	apiBase   string
	apiKey    string
	prompts   *prompt.Library
	client    *http.Client
}

func newOpenAIBackend(cfg Config, client *http.Client) *openAIBackend {
	return &openAIBackend{
		modelName: cfg.ModelName,
		language:  cfg.Language,
		apiBase:   strings.TrimRight(cfg.APIBase, "/"),
		apiKey:    cfg.APIKey,
		prompts:   cfg.Prompts,
		client:    client,
	}
}

func (b *openAIBackend) Name() string {
	return b.modelName
}

func (b *openAIBackend) GenerateTags(ctx context.Context, image []byte, tagCount int) (string, error) {
	raw, err := b.complete(ctx, image, b.prompts.TagPrompt(b.language, tagCount))
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

func (b *openAIBackend) GenerateDescription(ctx context.Context, image []byte) (string, error) {
	raw, err := b.complete(ctx, image, b.prompts.DescriptionPrompt(b.language))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

type openAIContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type openAIMessage struct {
	Role    string          `json:"role"`
	Content []openAIContent `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (b *openAIBackend) complete(ctx context.Context, image []byte, userPrompt string) (string, error) {
	imageB64 := base64.StdEncoding.EncodeToString(image)

	payload := openAIChatRequest{
		Model: b.modelName,
		Messages: []openAIMessage{
			{
				Role: "user",
				Content: []openAIContent{
					{Type: "text", Text: userPrompt},
					{Type: "image_url", ImageURL: &struct {
						URL string `json:"url"`
					}{URL: "data:image/jpeg;base64," + imageB64}},
				},
			},
		},
		MaxTokens:   512,
		Temperature: 0.1,
	}

	headers := map[string]string{}
	if b.apiKey != "" {
		headers["Authorization"] = "Bearer " + b.apiKey
	}

	util.DebugLog("OpenAI API: model=%s base=%s", b.modelName, b.apiBase)

	raw, apiErr := postJSON(ctx, b.client, b.apiBase+"/v1/chat/completions", headers, payload)
	if apiErr != nil {
		return "", apiErr
	}

	var result openAIChatResponse
	if err := unmarshalResponse(raw, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", newAPIError(KindEmptyResponse,
			"API returned empty response", string(raw))
	}

	return result.Choices[0].Message.Content, nil
}

// unmarshalResponse decodes a response body, mapping malformed bodies
// onto the parse error kind
func unmarshalResponse(raw []byte, v any) *APIError {
	if err := json.Unmarshal(raw, v); err != nil {
		return newAPIError(KindParse,
			fmt.Sprintf("malformed response body: %v", err), string(raw))
	}
	return nil
}
