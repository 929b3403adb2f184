// Package config loads sqlexplain configuration from defaults, an optional
// YAML file, SQLEXPLAIN_ environment variables and command-line flags.
package config

import "time"

// Config holds all configuration options.
type Config struct {
	LLM     LLMConfig     `koanf:"llm"`
	Explain ExplainConfig `koanf:"explain"`
	Server  ServerConfig  `koanf:"server"`
	History HistoryConfig `koanf:"history"`
	Log     LogConfig     `koanf:"log"`
	Output  string        `koanf:"output"` // table, markdown, json
	Verbose bool          `koanf:"verbose"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// LLMConfig selects and configures the language-model provider.
type LLMConfig struct {
	Provider    string        `koanf:"provider"` // openai, anthropic, replay
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	Timeout     time.Duration `koanf:"timeout"`
	ReplayFile  string        `koanf:"replay_file"`
}

// ExplainConfig tunes the explanation pipeline.
type ExplainConfig struct {
	MaxConcurrency int    `koanf:"max_concurrency"` // 0 = one call per category at once
	PromptTemplate string `koanf:"prompt_template"` // custom user prompt file
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// HistoryConfig configures the explanation history store.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}
