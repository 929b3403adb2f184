package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
}

// OpenAI generates replies through an OpenAI-compatible
// /v1/chat/completions endpoint.
type OpenAI struct {
	baseURL      string
	apiKey       string
	model        string
	temperature  float64
	maxTokens    int
	systemPrompt string
	client       *http.Client
}

// NewOpenAI creates an OpenAI client.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAI{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        strings.TrimSpace(cfg.Model),
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		systemPrompt: cfg.SystemPrompt,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage map[string]any `json:"usage"`
}

// Generate implements core.Generator.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (core.Reply, error) {
	payload := chatRequest{
		Model:          o.model,
		Temperature:    o.temperature,
		MaxTokens:      o.maxTokens,
		ResponseFormat: map[string]any{"type": "json_object"},
	}
	if o.systemPrompt != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: o.systemPrompt})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(payload)
	if err != nil {
		return core.Reply{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return core.Reply{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return core.Reply{}, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Reply{}, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return core.Reply{}, &APIError{Provider: "openai", StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return core.Reply{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return core.Reply{}, fmt.Errorf("empty chat completion choices")
	}

	reply := core.Reply{
		Replies: make([]string, 0, len(parsed.Choices)),
		Meta: map[string]any{
			"provider": "openai",
			"model":    parsed.Model,
		},
	}
	for _, choice := range parsed.Choices {
		reply.Replies = append(reply.Replies, stripCodeFence(choice.Message.Content))
	}
	if parsed.Model == "" {
		reply.Meta["model"] = o.model
	}
	if reason := parsed.Choices[0].FinishReason; reason != "" {
		reply.Meta["finish_reason"] = reason
	}
	if parsed.Usage != nil {
		reply.Meta["usage"] = parsed.Usage
	}
	return reply, nil
}
