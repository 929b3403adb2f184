package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// AnthropicConfig configures the Anthropic Messages API client.
type AnthropicConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
}

// Anthropic generates replies through the Anthropic Messages API.
type Anthropic struct {
	client       *anthropic.Client
	model        anthropic.Model
	temperature  float32
	maxTokens    int
	systemPrompt string
}

// NewAnthropic creates an Anthropic client.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
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
	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		opts = append(opts, anthropic.WithBaseURL(base))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Anthropic{
		client:       anthropic.NewClient(strings.TrimSpace(cfg.APIKey), opts...),
		model:        anthropic.Model(strings.TrimSpace(cfg.Model)),
		temperature:  float32(cfg.Temperature),
		maxTokens:    maxTokens,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// Generate implements core.Generator. Every text block of the response
// becomes one reply.
func (a *Anthropic) Generate(ctx context.Context, prompt string) (core.Reply, error) {
	temperature := a.temperature
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      a.systemPrompt,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return core.Reply{}, fmt.Errorf("create anthropic message: %w", err)
	}

	reply := core.Reply{
		Meta: map[string]any{
			"provider":    "anthropic",
			"model":       string(resp.Model),
			"stop_reason": string(resp.StopReason),
			"usage": map[string]any{
				"input_tokens":  resp.Usage.InputTokens,
				"output_tokens": resp.Usage.OutputTokens,
			},
		},
	}
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			reply.Replies = append(reply.Replies, stripCodeFence(*block.Text))
		}
	}
	if len(reply.Replies) == 0 {
		return core.Reply{}, fmt.Errorf("anthropic response has no text content")
	}
	return reply, nil
}
