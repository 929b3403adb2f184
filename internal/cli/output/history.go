package output

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/sqlexplain/internal/state"
)

type runJSON struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model,omitempty"`
	StepCount   int       `json:"step_count"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// RenderRuns writes a run listing.
func (r *Renderer) RenderRuns(runs []state.RunSummary) error {
	if r.mode == ModeJSON {
		out := make([]runJSON, len(runs))
		for i, run := range runs {
			out[i] = runJSON(run)
		}
		return r.JSON(out)
	}

	if len(runs) == 0 {
		r.Println("(0 runs)")
		return nil
	}

	if r.mode == ModeMarkdown {
		r.Println("| ID | Created | Steps | Records | Question |")
		r.Println("| --- | --- | --- | --- | --- |")
		for _, run := range runs {
			r.Printf("| %s | %s | %d | %d | %s |\n",
				run.ID, run.CreatedAt.Format(time.RFC3339), run.StepCount, run.RecordCount, escapeMarkdown(run.Question))
		}
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Created", "Steps", "Records", "Question"})
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Question", WidthMax: 60}})
	for _, run := range runs {
		t.AppendRow(table.Row{run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04"), run.StepCount, run.RecordCount, run.Question})
	}
	t.Render()
	r.Printf("(%d runs)\n", len(runs))
	return nil
}
