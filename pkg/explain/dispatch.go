package explain

import (
	"context"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Prompt is a rendered request ready to be sent to a generator.
type Prompt struct {
	Request core.ExplanationRequest
	Text    string
}

// Result is the settled outcome of one generator call.
// Err is set when the call itself failed; Reply is then zero.
type Result struct {
	Request core.ExplanationRequest
	Reply   core.Reply
	Err     error
	Elapsed time.Duration
}

// Dispatcher fans prompts out to a generator and joins the results.
type Dispatcher struct {
	generator core.Generator
	limit     int
	observer  Observer
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. A limit <= 0 issues every call at once.
func NewDispatcher(generator core.Generator, limit int, observer Observer, logger *slog.Logger) *Dispatcher {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{generator: generator, limit: limit, observer: observer, logger: logger}
}

// Dispatch issues one concurrent call per prompt and waits for all of them.
// A failed call is recorded in its own Result and never cancels siblings.
// Results keep the prompts' order. If ctx is done when the calls settle, no
// results are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, prompts []Prompt) ([]Result, error) {
	results := make([]Result, len(prompts))

	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}
	for i, p := range prompts {
		g.Go(func() error {
			start := time.Now()
			reply, err := d.generator.Generate(ctx, p.Text)
			elapsed := time.Since(start)

			d.observer.ObserveGeneration(p.Request.Category, err, elapsed)
			if err != nil {
				d.logger.Warn("explanation call failed",
					slog.String("category", string(p.Request.Category)),
					slog.Duration("elapsed", elapsed),
					slog.Any("error", err))
			} else {
				d.logger.Debug("explanation call completed",
					slog.String("category", string(p.Request.Category)),
					slog.Duration("elapsed", elapsed),
					slog.Int("replies", len(reply.Replies)))
			}

			results[i] = Result{Request: p.Request, Reply: reply, Err: err, Elapsed: elapsed}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
