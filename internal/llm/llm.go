// Package llm provides the language model backends used to generate
// explanations: an OpenAI-compatible chat client, the Anthropic Messages
// API and an offline replay generator.
package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlexplain/internal/config"
	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 4096
)

var (
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown llm provider")
	// ErrMissingAPIKey is returned when a hosted provider has no credentials.
	ErrMissingAPIKey = errors.New("api key is required")
	// ErrNoReplayMatch is returned when no replay rule matches a prompt
	// and the script has no default.
	ErrNoReplayMatch = errors.New("no replay rule matches prompt")
)

// APIError is a non-success HTTP response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s request failed: status=%d body=%s", e.Provider, e.StatusCode, e.Body)
}

// New builds the generator selected by cfg.Provider.
func New(cfg config.LLMConfig, systemPrompt string) (core.Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			Timeout:      cfg.Timeout,
			SystemPrompt: systemPrompt,
		})
	case config.ProviderAnthropic:
		return NewAnthropic(AnthropicConfig{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			Timeout:      cfg.Timeout,
			SystemPrompt: systemPrompt,
		})
	case config.ProviderReplay:
		return LoadReplay(cfg.ReplayFile)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models add around JSON even when asked not to.
func stripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 && !strings.ContainsAny(trimmed[:nl], "{[") {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
