package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlexplain/internal/config"
	"github.com/leapstack-labs/sqlexplain/internal/llm"
	"github.com/leapstack-labs/sqlexplain/internal/prompt"
	"github.com/leapstack-labs/sqlexplain/internal/state"
	"github.com/leapstack-labs/sqlexplain/pkg/core"
	"github.com/leapstack-labs/sqlexplain/pkg/explain"
)

// errHistoryDisabled is returned by history commands when history is off.
var errHistoryDisabled = errors.New("run history is disabled (set history.enabled)")

// configFrom returns the loaded configuration, or an error if the command
// ran without the root command's setup.
func configFrom(ctx context.Context) (*config.Config, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// promptRenderer returns the custom template renderer if one is configured.
func promptRenderer(cfg *config.Config) (*prompt.Renderer, error) {
	if cfg.Explain.PromptTemplate == "" {
		return prompt.Default(), nil
	}
	return prompt.Load(cfg.Explain.PromptTemplate)
}

// newExplainer wires the configured model provider into an explainer.
func newExplainer(cfg *config.Config, logger *slog.Logger, observer explain.Observer) (*explain.Explainer, error) {
	renderer, err := promptRenderer(cfg)
	if err != nil {
		return nil, err
	}
	gen, err := llm.New(cfg.LLM, prompt.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.LLM.Provider, err)
	}
	return newExplainerWith(cfg, gen, renderer, logger, observer)
}

func newExplainerWith(cfg *config.Config, gen core.Generator, renderer explain.PromptRenderer, logger *slog.Logger, observer explain.Observer) (*explain.Explainer, error) {
	opts := []explain.Option{
		explain.WithLogger(logger),
		explain.WithMaxConcurrency(cfg.Explain.MaxConcurrency),
	}
	if observer != nil {
		opts = append(opts, explain.WithObserver(observer))
	}
	return explain.New(gen, renderer, opts...)
}

// openHistory opens the history store, or returns nil when history is off.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := state.OpenSQLite(ctx, cfg.History.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}
