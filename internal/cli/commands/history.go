package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlexplain/internal/cli/output"
	"github.com/leapstack-labs/sqlexplain/internal/config"
	"github.com/leapstack-labs/sqlexplain/internal/state"
)

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect saved explanation runs",
		Long: `History lists, shows and deletes explanation runs recorded by
"sqlexplain explain" and the HTTP API.`,
	}
	cmd.AddCommand(newHistoryListCommand(), newHistoryShowCommand(), newHistoryDeleteCommand())
	return cmd
}

// withHistory opens the history store for the duration of fn.
func withHistory(cmd *cobra.Command, fn func(store state.Store, r *output.Renderer) error) error {
	ctx := cmd.Context()
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	store, err := openHistory(ctx, cfg, config.GetLogger(ctx))
	if err != nil {
		return err
	}
	if store == nil {
		return errHistoryDisabled
	}
	defer func() { _ = store.Close() }()
	return fn(store, output.FromContext(ctx))
}

func newHistoryListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved runs, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, func(store state.Store, r *output.Renderer) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return r.RenderRuns(runs)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the explanations of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(store state.Store, r *output.Renderer) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if errors.Is(err, state.ErrRunNotFound) {
					return fmt.Errorf("run %q not found", args[0])
				}
				if err != nil {
					return err
				}
				return r.RenderExplanation(runView(run))
			})
		},
	}
}

func newHistoryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved run",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(store state.Store, r *output.Renderer) error {
				err := store.DeleteRun(cmd.Context(), args[0])
				if errors.Is(err, state.ErrRunNotFound) {
					return fmt.Errorf("run %q not found", args[0])
				}
				if err != nil {
					return err
				}
				r.Printf("Deleted run %s\n", args[0])
				return nil
			})
		},
	}
}

func runView(run *state.Run) output.Explanation {
	view := output.Explanation{ID: run.ID, Question: run.Question, Steps: make([]output.StepResult, len(run.Steps))}
	for i, step := range run.Steps {
		view.Steps[i] = output.StepResult{SQL: step.SQL, CTEName: step.CTEName}
		if i < len(run.Results) {
			view.Steps[i].Records = run.Results[i]
		}
	}
	return view
}
