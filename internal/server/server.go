// Package server exposes the explanation pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlexplain/internal/observability"
	"github.com/leapstack-labs/sqlexplain/internal/state"
	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// StepsExplainer explains a multi-step request.
type StepsExplainer interface {
	ExplainSteps(ctx context.Context, question string, steps []core.Step) ([][]core.ExplanationRecord, error)
}

// Config holds the server's collaborators and settings.
type Config struct {
	Explainer StepsExplainer
	// Store is optional; without it runs are not persisted and lookups 404.
	Store   state.Store
	Metrics *observability.Metrics
	Logger  *slog.Logger

	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	// Provider and Model are recorded with each stored run.
	Provider string
	Model    string
}

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetrics()
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{cfg: cfg, logger: logger}
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	h := &handlers{
		explainer: s.cfg.Explainer,
		store:     s.cfg.Store,
		logger:    s.logger,
		provider:  s.cfg.Provider,
		model:     s.cfg.Model,
	}

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		observability.LoggingMiddleware(s.logger),
		s.cfg.Metrics.MetricsMiddleware,
		middleware.Recoverer,
	)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())

	r.Route("/v1/sql-explanations", func(r chi.Router) {
		r.Post("/", h.createExplanation)
		r.Get("/", h.listExplanations)
		r.Get("/{id}", h.getExplanation)
		r.Delete("/{id}", h.deleteExplanation)
	})

	return r
}

// Serve listens on the configured address and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting API server", slog.String("addr", ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
