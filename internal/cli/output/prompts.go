package output

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// PromptView is one rendered prompt of one step.
type PromptView struct {
	Step     int    `json:"step"`
	Category string `json:"category"`
	Units    int    `json:"units"`
	Prompt   string `json:"prompt"`
}

// RenderPrompts writes rendered prompts without calling a model.
func (r *Renderer) RenderPrompts(prompts []PromptView) error {
	if r.mode == ModeJSON {
		if prompts == nil {
			prompts = []PromptView{}
		}
		return r.JSON(prompts)
	}
	if len(prompts) == 0 {
		r.Println("(no prompts: nothing to explain)")
		return nil
	}

	styles := r.Styles()
	for _, p := range prompts {
		title := fmt.Sprintf("Step %d: %s (%d units)", p.Step+1, CategoryLabel(core.Category(p.Category)), p.Units)
		text := strings.TrimRight(p.Prompt, "\n")
		if r.mode == ModeMarkdown {
			r.Printf("## %s\n\n```text\n%s\n```\n\n", title, text)
			continue
		}
		r.Println(styles.Header2.Render(title))
		r.Println(styles.Muted.Render(strings.Repeat("-", 60)))
		r.Println(text)
		r.Println("")
	}
	return nil
}
