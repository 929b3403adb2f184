package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlexplain/internal/config"
	"github.com/leapstack-labs/sqlexplain/internal/observability"
	"github.com/leapstack-labs/sqlexplain/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the explanation API over HTTP",
		Long: `Serve starts an HTTP server exposing POST /v1/sql-explanations,
the saved-run endpoints, /healthz and Prometheus metrics on /metrics.
The server shuts down gracefully on SIGINT or SIGTERM.`,
		Example: `  sqlexplain serve --addr :9090
  SQLEXPLAIN_LLM__API_KEY=sk-... sqlexplain serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}

	cmd.Flags().String("addr", config.DefaultServerAddr, "Address to listen on")
	return cmd
}

func runServe(ctx context.Context) error {
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	logger := config.GetLogger(ctx)
	metrics := observability.NewMetrics()

	explainer, err := newExplainer(cfg, logger, metrics)
	if err != nil {
		return err
	}

	srvCfg := server.Config{
		Explainer:         explainer,
		Metrics:           metrics,
		Logger:            logger,
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
	}

	store, err := openHistory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
		srvCfg.Store = store
		logger.Info("history enabled", slog.String("path", store.Path()))
	}

	return server.New(srvCfg).Serve(ctx)
}
