package config

import "time"

// Default configuration values.
const (
	DefaultProvider          = ProviderOpenAI
	DefaultOpenAIBaseURL     = "https://api.openai.com"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultAnthropicModel    = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens         = 4096
	DefaultLLMTimeout        = 60 * time.Second
	DefaultServerAddr        = ":8080"
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultHistoryPath       = ".sqlexplain/history.db"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultOutput            = OutputTable
)

// Providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderReplay    = "replay"
)

// Output formats.
const (
	OutputTable    = "table"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
)

// defaults is the lowest-precedence configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"llm.provider":               DefaultProvider,
		"llm.base_url":               "",
		"llm.model":                  "",
		"llm.temperature":            0.0,
		"llm.max_tokens":             DefaultMaxTokens,
		"llm.timeout":                DefaultLLMTimeout.String(),
		"explain.max_concurrency":    0,
		"server.addr":                DefaultServerAddr,
		"server.read_header_timeout": DefaultReadHeaderTimeout.String(),
		"server.shutdown_timeout":    DefaultShutdownTimeout.String(),
		"history.enabled":            true,
		"history.path":               DefaultHistoryPath,
		"log.level":                  DefaultLogLevel,
		"log.format":                 DefaultLogFormat,
		"output":                     DefaultOutput,
		"verbose":                    false,
	}
}

// applyProviderDefaults fills provider-specific values left empty.
func (c *LLMConfig) applyProviderDefaults() {
	switch c.Provider {
	case ProviderOpenAI:
		if c.BaseURL == "" {
			c.BaseURL = DefaultOpenAIBaseURL
		}
		if c.Model == "" {
			c.Model = DefaultOpenAIModel
		}
	case ProviderAnthropic:
		if c.Model == "" {
			c.Model = DefaultAnthropicModel
		}
	}
}
