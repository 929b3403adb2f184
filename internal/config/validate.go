package config

import (
	"fmt"
	"slices"
	"strings"
)

// Validate checks the configuration for values the rest of the program
// cannot act on. Credentials are checked when a provider is built.
func (c *Config) Validate() error {
	if !slices.Contains([]string{ProviderOpenAI, ProviderAnthropic, ProviderReplay}, c.LLM.Provider) {
		return fmt.Errorf("unknown llm provider %q (want openai, anthropic or replay)", c.LLM.Provider)
	}
	if c.LLM.Provider == ProviderReplay && c.LLM.ReplayFile == "" {
		return fmt.Errorf("llm.replay_file is required for the replay provider")
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must not be negative")
	}
	if c.Explain.MaxConcurrency < 0 {
		return fmt.Errorf("explain.max_concurrency must not be negative")
	}
	if !slices.Contains([]string{OutputTable, OutputMarkdown, OutputJSON}, c.Output) {
		return fmt.Errorf("unknown output format %q (want table, markdown or json)", c.Output)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	return nil
}
