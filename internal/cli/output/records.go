package output

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// StepResult is the explained output of one step.
type StepResult struct {
	SQL     string                   `json:"sql"`
	CTEName string                   `json:"cte_name,omitempty"`
	Records []core.ExplanationRecord `json:"records"`
}

// Explanation is a complete run as shown to the user.
type Explanation struct {
	ID       string       `json:"id,omitempty"`
	Question string       `json:"question"`
	Steps    []StepResult `json:"steps"`
}

// RenderExplanation writes an explanation in the renderer's mode.
func (r *Renderer) RenderExplanation(e Explanation) error {
	switch r.mode {
	case ModeJSON:
		return r.JSON(e)
	case ModeMarkdown:
		r.renderExplanationMarkdown(e)
		return nil
	default:
		r.renderExplanationTable(e)
		return nil
	}
}

func (r *Renderer) renderExplanationTable(e Explanation) {
	styles := r.Styles()
	if e.Question != "" {
		r.Println(styles.Header1.Render(e.Question))
	}
	if e.ID != "" {
		r.Println(styles.Muted.Render("run " + e.ID))
	}

	for i, step := range e.Steps {
		r.Println("")
		r.Println(styles.Header2.Render(stepTitle(i, step)))
		r.Println(styles.Muted.Render(oneLine(step.SQL, 100)))

		if len(step.Records) == 0 {
			r.Println(styles.Muted.Render("(nothing to explain)"))
			continue
		}

		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Category", "Target", "Explanation"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Target", WidthMax: 40},
			{Name: "Explanation", WidthMax: 70},
		})
		for j, rec := range step.Records {
			t.AppendRow(table.Row{
				j + 1,
				styles.CategoryStyle(string(rec.Type)).Render(CategoryLabel(rec.Type)),
				RecordTarget(rec),
				rec.Payload.Explanation,
			})
		}
		t.Render()
	}
}

func (r *Renderer) renderExplanationMarkdown(e Explanation) {
	if e.Question != "" {
		r.Printf("# %s\n\n", e.Question)
	}
	if e.ID != "" {
		r.Printf("Run `%s`\n\n", e.ID)
	}
	for i, step := range e.Steps {
		r.Printf("## %s\n\n", stepTitle(i, step))
		r.Printf("```sql\n%s\n```\n\n", strings.TrimSpace(step.SQL))
		if len(step.Records) == 0 {
			r.Println("_Nothing to explain._")
			r.Println("")
			continue
		}
		r.Println("| Category | Target | Explanation |")
		r.Println("| --- | --- | --- |")
		for _, rec := range step.Records {
			r.Printf("| %s | %s | %s |\n",
				CategoryLabel(rec.Type),
				escapeMarkdown(RecordTarget(rec)),
				escapeMarkdown(rec.Payload.Explanation))
		}
		r.Println("")
	}
}

func stepTitle(i int, step StepResult) string {
	title := fmt.Sprintf("Step %d", i+1)
	if step.CTEName != "" {
		title += " (" + step.CTEName + ")"
	}
	return title
}

// CategoryLabel turns a category such as groupByKeys into "Group By Keys".
func CategoryLabel(c core.Category) string {
	var b strings.Builder
	for i, r := range string(c) {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return cases.Title(language.English).String(b.String())
}

// RecordTarget describes what a record explains.
func RecordTarget(rec core.ExplanationRecord) string {
	p := rec.Payload
	switch p.Kind {
	case core.UnitRelationTable:
		return p.TableName
	case core.UnitRelationJoin:
		if p.Criteria == "" {
			return string(p.RelationType)
		}
		return fmt.Sprintf("%s ON %s", p.RelationType, p.Criteria)
	case core.UnitSelectWithOperation, core.UnitSelectWithoutOperation:
		if p.Alias != "" && p.Alias != p.Expression {
			return fmt.Sprintf("%s AS %s", p.Expression, p.Alias)
		}
		return p.Expression
	default:
		return p.Expression
	}
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > limit {
		return s[:limit-3] + "..."
	}
	return s
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
