package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: SQLEXPLAIN_LLM__API_KEY sets llm.api_key.
const EnvPrefix = "SQLEXPLAIN_"

// Config file names searched in the working directory.
const (
	ConfigFileName    = "sqlexplain.yaml"
	ConfigFileNameAlt = "sqlexplain.yml"
)

// flagKeys maps command-line flag names to config keys. Flags not listed
// map to their own name with dashes replaced by underscores.
var flagKeys = map[string]string{
	"provider":        "llm.provider",
	"model":           "llm.model",
	"base-url":        "llm.base_url",
	"temperature":     "llm.temperature",
	"timeout":         "llm.timeout",
	"replay-file":     "llm.replay_file",
	"max-concurrency": "explain.max_concurrency",
	"prompt-template": "explain.prompt_template",
	"addr":            "server.addr",
	"history":         "history.enabled",
	"history-path":    "history.path",
	"log-level":       "log.level",
	"log-format":      "log.format",
}

// findConfigFile returns explicit if set, else the first config file present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Only flags that were explicitly set override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: SQLEXPLAIN_LOG__LEVEL -> log.level
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.File = used
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.LLM.applyProviderDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} with the variable's value. Unset variables are
// left as written so the mistake is visible.
func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandEnvVars expands ${VAR} in fields that typically hold secrets or paths.
func (c *Config) expandEnvVars() {
	c.LLM.APIKey = expandEnv(c.LLM.APIKey)
	c.LLM.BaseURL = expandEnv(c.LLM.BaseURL)
	c.LLM.ReplayFile = expandEnv(c.LLM.ReplayFile)
	c.Explain.PromptTemplate = expandEnv(c.Explain.PromptTemplate)
	c.History.Path = expandEnv(c.History.Path)
}
