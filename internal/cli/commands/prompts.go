package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlexplain/internal/cli/output"
	"github.com/leapstack-labs/sqlexplain/internal/config"
	"github.com/leapstack-labs/sqlexplain/pkg/core"
	"github.com/leapstack-labs/sqlexplain/pkg/explain"
)

var errNoModel = errors.New("prompts are rendered without calling a model")

// NewPromptsCommand creates the prompts command.
func NewPromptsCommand() *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "prompts <input>",
		Short: "Show the prompts that explain would send",
		Long: `Prompts composes the explanation units of every step and prints the
rendered prompt for each category, without calling a language model.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			doc, err := ReadDocument(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if question != "" {
				doc.Question = question
			}
			views, err := preparePrompts(cfg, config.GetLogger(ctx), doc)
			if err != nil {
				return err
			}
			return output.FromContext(ctx).RenderPrompts(views)
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "Override the document's question")
	return cmd
}

// preparePrompts renders every step's prompts with a generator that is
// never called.
func preparePrompts(cfg *config.Config, logger *slog.Logger, doc *Document) ([]output.PromptView, error) {
	renderer, err := promptRenderer(cfg)
	if err != nil {
		return nil, err
	}
	noModel := core.GeneratorFunc(func(context.Context, string) (core.Reply, error) {
		return core.Reply{}, errNoModel
	})
	explainer, err := newExplainerWith(cfg, noModel, renderer, logger, nil)
	if err != nil {
		return nil, err
	}

	views := []output.PromptView{}
	for i, in := range explain.StepInputs(doc.Question, doc.Steps) {
		bundle, prompts, err := explainer.Prepare(in)
		if err != nil {
			return nil, err
		}
		for _, p := range prompts {
			views = append(views, output.PromptView{
				Step:     i,
				Category: string(p.Request.Category),
				Units:    unitCount(*bundle, p.Request.Category),
				Prompt:   p.Text,
			})
		}
	}
	return views, nil
}

func unitCount(b core.ExplanationBundle, c core.Category) int {
	switch c {
	case core.CategoryFilter:
		if b.Filter != nil {
			return 1
		}
		return 0
	case core.CategorySelectItems:
		return len(b.SelectItems.WithOperation) + len(b.SelectItems.WithoutOperation)
	default:
		return len(b.Units(c))
	}
}
