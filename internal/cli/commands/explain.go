package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlexplain/internal/cli/output"
	"github.com/leapstack-labs/sqlexplain/internal/config"
	"github.com/leapstack-labs/sqlexplain/internal/state"
)

// ExplainOptions holds options for the explain command.
type ExplainOptions struct {
	Question string
	NoSave   bool
	DryRun   bool
}

// NewExplainCommand creates the explain command.
func NewExplainCommand() *cobra.Command {
	opts := &ExplainOptions{}

	cmd := &cobra.Command{
		Use:   "explain <input>",
		Short: "Explain an analyzed SQL query in natural language",
		Long: `Explain reads a YAML or JSON document holding a question and one or
more analyzed SQL steps, asks the configured language model to explain each
part of every step, and prints one explanation per filter, relation, group-by
key, select item and sort key.

Use "-" to read the document from stdin.`,
		Example: `  sqlexplain explain query.yaml
  sqlexplain explain --provider replay --replay-file replies.yaml query.yaml
  cat query.json | sqlexplain explain -o json -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Question, "question", "q", "", "Override the document's question")
	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "Do not record the run in history")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the prompts instead of calling the model")

	return cmd
}

func runExplain(cmd *cobra.Command, path string, opts *ExplainOptions) error {
	ctx := cmd.Context()
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	logger := config.GetLogger(ctx)
	r := output.FromContext(ctx)

	doc, err := ReadDocument(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if opts.Question != "" {
		doc.Question = opts.Question
	}

	if opts.DryRun {
		views, err := preparePrompts(cfg, logger, doc)
		if err != nil {
			return err
		}
		return r.RenderPrompts(views)
	}

	explainer, err := newExplainer(cfg, logger, nil)
	if err != nil {
		return err
	}

	results, err := explainer.ExplainSteps(ctx, doc.Question, doc.Steps)
	if err != nil {
		return err
	}

	view := output.Explanation{Question: doc.Question, Steps: make([]output.StepResult, len(doc.Steps))}
	for i, step := range doc.Steps {
		view.Steps[i] = output.StepResult{SQL: step.SQL, CTEName: step.CTEName, Records: results[i]}
	}

	if !opts.NoSave {
		store, err := openHistory(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if store != nil {
			defer func() { _ = store.Close() }()
			run := &state.Run{
				Question: doc.Question,
				Provider: cfg.LLM.Provider,
				Model:    cfg.LLM.Model,
				Steps:    state.StepsFromCore(doc.Steps),
				Results:  results,
			}
			if err := store.SaveRun(ctx, run); err != nil {
				r.Warnf("warning: run not saved: %v", err)
			} else {
				view.ID = run.ID
				logger.Debug("run saved", slog.String("id", run.ID))
			}
		}
	}

	return r.RenderExplanation(view)
}
