package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlexplain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("provider", "", "")
	fs.String("model", "", "")
	fs.String("output", "", "")
	fs.Int("max-concurrency", 0, "")
	fs.Bool("history", true, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, DefaultOpenAIBaseURL, cfg.LLM.BaseURL)
	assert.Equal(t, DefaultOpenAIModel, cfg.LLM.Model)
	assert.Equal(t, DefaultLLMTimeout, cfg.LLM.Timeout)
	assert.Equal(t, DefaultMaxTokens, cfg.LLM.MaxTokens)
	assert.Equal(t, 0, cfg.Explain.MaxConcurrency)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultReadHeaderTimeout, cfg.Server.ReadHeaderTimeout)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultHistoryPath, cfg.History.Path)
	assert.Equal(t, OutputTable, cfg.Output)
	assert.Equal(t, "", cfg.File)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: Anthropic
  api_key: sk-test
  timeout: 30s
  temperature: 0.2
explain:
  max_concurrency: 3
server:
  addr: 127.0.0.1:9000
log:
  level: debug
  format: json
output: json
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, DefaultAnthropicModel, cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.Explain.MaxConcurrency)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, OutputJSON, cfg.Output)
}

func TestLoad_DiscoversFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), []byte("output: markdown\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ConfigFileNameAlt, cfg.File)
	assert.Equal(t, OutputMarkdown, cfg.Output)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
llm:
  model: from-file
explain:
  max_concurrency: 1
output: markdown
`)
	t.Setenv("SQLEXPLAIN_LLM__MODEL", "from-env")
	t.Setenv("SQLEXPLAIN_EXPLAIN__MAX_CONCURRENCY", "2")
	t.Setenv("SQLEXPLAIN_LLM__TIMEOUT", "5s")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--model", "from-flag", "--history=false"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.LLM.Model, "flag beats env and file")
	assert.Equal(t, 2, cfg.Explain.MaxConcurrency, "env beats file")
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, OutputMarkdown, cfg.Output, "unset flags keep the file value")
	assert.False(t, cfg.History.Enabled)
}

func TestLoad_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_SQLEXPLAIN_KEY", "sk-secret")
	path := writeConfig(t, `
llm:
  api_key: ${TEST_SQLEXPLAIN_KEY}
  base_url: ${TEST_SQLEXPLAIN_UNSET_URL}
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
	assert.Equal(t, "${TEST_SQLEXPLAIN_UNSET_URL}", cfg.LLM.BaseURL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "output: xml\n")
	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "xml")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			LLM:     LLMConfig{Provider: ProviderOpenAI},
			History: HistoryConfig{Enabled: true, Path: "h.db"},
			Log:     LogConfig{Level: "info", Format: "text"},
			Output:  OutputTable,
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bard" }, "unknown llm provider"},
		{"replay without file", func(c *Config) { c.LLM.Provider = ProviderReplay }, "replay_file"},
		{"negative concurrency", func(c *Config) { c.Explain.MaxConcurrency = -1 }, "max_concurrency"},
		{"negative timeout", func(c *Config) { c.LLM.Timeout = -time.Second }, "llm.timeout"},
		{"bad output", func(c *Config) { c.Output = "csv" }, "output format"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"history without path", func(c *Config) { c.History.Path = "" }, "history.path"},
		{"history disabled without path", func(c *Config) { c.History = HistoryConfig{} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))
	assert.NotNil(t, GetLogger(ctx))

	cfg := &Config{Output: OutputJSON}
	ctx = WithConfig(ctx, cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
