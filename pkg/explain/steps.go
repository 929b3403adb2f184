package explain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// ExplainSteps explains a query decomposed into steps, one after another.
// Step i sees the CTE names of steps 0..i-1, and the columns those steps
// already select are not explained again. Each step's batch runs concurrently.
// The result holds one record list per step.
func (e *Explainer) ExplainSteps(ctx context.Context, question string, steps []core.Step) ([][]core.ExplanationRecord, error) {
	results := make([][]core.ExplanationRecord, 0, len(steps))
	for i, in := range StepInputs(question, steps) {
		records, err := e.Explain(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("explain step %d: %w", i, err)
		}
		e.logger.Debug("step explained",
			slog.Int("step", i),
			slog.String("cte_name", steps[i].CTEName),
			slog.Int("records", len(records)))
		results = append(results, records)
	}
	return results, nil
}

// StepInputs builds the Input for every step, with the CTE names and
// selected columns of the steps before it.
func StepInputs(question string, steps []core.Step) []Input {
	inputs := make([]Input, len(steps))
	for i, step := range steps {
		inputs[i] = Input{
			Question:            question,
			SQL:                 step.SQL,
			Summary:             step.Summary,
			CTENames:            PriorCTENames(steps[:i]),
			SelectedDataSources: SelectedDataSources(steps[:i]),
			AnalysisResults:     step.AnalysisResults,
		}
	}
	return inputs
}

// PriorCTENames returns the non-empty CTE names of steps, in order.
func PriorCTENames(steps []core.Step) []string {
	names := []string{}
	for _, s := range steps {
		if s.CTEName != "" {
			names = append(names, s.CTEName)
		}
	}
	return names
}

// SelectedDataSources returns, per step, the primary source column of every
// select item of its top-level statements.
func SelectedDataSources(steps []core.Step) [][]core.DataSource {
	groups := [][]core.DataSource{}
	for _, s := range steps {
		group := []core.DataSource{}
		for _, fragment := range s.AnalysisResults {
			if fragment.IsSubqueryOrCte {
				continue
			}
			for _, item := range fragment.SelectItems {
				if len(item.ExprSources) == 0 {
					continue
				}
				src := item.ExprSources[0]
				group = append(group, core.DataSource{SourceDataset: src.SourceDataset, SourceColumn: src.SourceColumn})
			}
		}
		groups = append(groups, group)
	}
	return groups
}
