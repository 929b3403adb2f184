package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// ErrNoGenerator is returned by New when no generator is supplied.
var ErrNoGenerator = errors.New("explain: generator is required")

// ErrNoRenderer is returned by New when no prompt renderer is supplied.
var ErrNoRenderer = errors.New("explain: prompt renderer is required")

// PromptRenderer turns a request into the prompt text sent to the model.
type PromptRenderer interface {
	Render(req core.ExplanationRequest) (string, error)
}

// PromptRendererFunc adapts a function to PromptRenderer.
type PromptRendererFunc func(req core.ExplanationRequest) (string, error)

// Render implements PromptRenderer.
func (f PromptRendererFunc) Render(req core.ExplanationRequest) (string, error) {
	return f(req)
}

// Option configures an Explainer.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	observer       Observer
	maxConcurrency int
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver sets the pipeline observer, typically a metrics sink.
func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

// WithMaxConcurrency bounds in-flight model calls per batch. Zero means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}

// Input is everything needed to explain one SQL statement.
type Input struct {
	Question            string                  `json:"question"`
	SQL                 string                  `json:"sql"`
	Summary             string                  `json:"summary"`
	CTENames            []string                `json:"cte_names"`
	SelectedDataSources [][]core.DataSource     `json:"selected_data_sources"`
	AnalysisResults     []core.AnalysisFragment `json:"sql_analysis_results"`
}

// Explainer runs the compose, request, dispatch and reconcile stages.
// It holds no per-run state and is safe for concurrent use.
type Explainer struct {
	renderer   PromptRenderer
	dispatcher *Dispatcher
	reconciler *Reconciler
	observer   Observer
	logger     *slog.Logger
}

// New creates an Explainer.
func New(generator core.Generator, renderer PromptRenderer, opts ...Option) (*Explainer, error) {
	if generator == nil {
		return nil, ErrNoGenerator
	}
	if renderer == nil {
		return nil, ErrNoRenderer
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}

	return &Explainer{
		renderer:   renderer,
		dispatcher: NewDispatcher(generator, o.maxConcurrency, o.observer, o.logger),
		reconciler: NewReconciler(o.observer, o.logger),
		observer:   o.observer,
		logger:     o.logger,
	}, nil
}

// Prepare composes the input and renders one prompt per non-empty category of
// the first eligible bundle. It returns a nil bundle when every fragment is a
// subquery or CTE body.
func (e *Explainer) Prepare(in Input) (*core.ExplanationBundle, []Prompt, error) {
	bundles := Compose(in.AnalysisResults, in.CTENames, in.SelectedDataSources)
	if len(bundles) == 0 {
		return nil, nil, nil
	}
	if len(bundles) > 1 {
		e.logger.Debug("explaining first statement only", slog.Int("bundles", len(bundles)))
	}
	bundle := bundles[0]

	requests := BuildRequests(bundle, PromptContext{
		Question: in.Question,
		SQL:      in.SQL,
		Summary:  in.Summary,
	})
	prompts := make([]Prompt, 0, len(requests))
	for _, req := range requests {
		text, err := e.renderer.Render(req)
		if err != nil {
			return nil, nil, fmt.Errorf("render %s prompt: %w", req.Category, err)
		}
		prompts = append(prompts, Prompt{Request: req, Text: text})
	}
	return &bundle, prompts, nil
}

// Explain produces one record per explained unit. Malformed or failed model
// replies reduce the result rather than failing it; the returned error is
// either a rendering failure or the context's error.
func (e *Explainer) Explain(ctx context.Context, in Input) ([]core.ExplanationRecord, error) {
	start := time.Now()

	bundle, prompts, err := e.Prepare(in)
	if err != nil {
		return nil, err
	}
	if bundle == nil || len(prompts) == 0 {
		e.logger.Debug("nothing to explain")
		return []core.ExplanationRecord{}, nil
	}

	results, err := e.dispatcher.Dispatch(ctx, prompts)
	if err != nil {
		return nil, err
	}

	records := e.reconciler.Reconcile(*bundle, results)
	e.observer.ObserveRecords(records)
	e.logger.Info("sql explanation completed",
		slog.Int("requests", len(prompts)),
		slog.Int("records", len(records)),
		slog.Duration("elapsed", time.Since(start)))
	return records, nil
}
