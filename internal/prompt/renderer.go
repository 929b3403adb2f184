// Package prompt renders explanation requests into model prompts.
//
// Templates are plain text with {{ expression }} placeholders. Each
// expression is evaluated as Starlark over the request's variables:
//
//	explanation_hint     category-specific instruction
//	question             the user's question
//	sql                  the statement being explained
//	sql_summary          natural-language summary of the statement
//	sql_analysis_result  JSON payload, e.g. {"filter": "age > 18"}
//	category             the request's category name
//	analysis             the payload as a Starlark dict
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Template is a parsed prompt template.
type Template struct {
	name   string
	tokens []Token
}

// Parse tokenizes source. name is used in error positions.
func Parse(name, source string) (*Template, error) {
	tokens, err := NewLexer(source, name).Tokenize()
	if err != nil {
		return nil, err
	}
	return &Template{name: name, tokens: tokens}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(name, source string) *Template {
	t, err := Parse(name, source)
	if err != nil {
		panic(err)
	}
	return t
}

// Execute renders the template with vars as Starlark globals.
func (t *Template) Execute(vars map[string]any) (string, error) {
	globals := make(starlark.StringDict, len(vars))
	for k, v := range vars {
		sv, err := toStarlark(v)
		if err != nil {
			return "", fmt.Errorf("template variable %q: %w", k, err)
		}
		globals[k] = sv
	}
	globals.Freeze()

	thread := &starlark.Thread{Name: t.name, Print: func(*starlark.Thread, string) {}}

	var out strings.Builder
	for _, tok := range t.tokens {
		switch tok.Type {
		case TokenText:
			out.WriteString(tok.Value)
		case TokenExpr:
			v, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, t.name, tok.Value, globals)
			if err != nil {
				return "", WrapRenderError(tok.Pos, fmt.Sprintf("evaluate %q", tok.Value), err)
			}
			out.WriteString(display(v))
		}
	}
	return out.String(), nil
}

// Renderer renders explanation requests with a template.
// It is safe for concurrent use.
type Renderer struct {
	tmpl *Template
}

// NewRenderer creates a renderer for tmpl.
func NewRenderer(tmpl *Template) *Renderer {
	return &Renderer{tmpl: tmpl}
}

// Default returns a renderer for the built-in user prompt.
func Default() *Renderer {
	return NewRenderer(MustParse("user_prompt", UserTemplate))
}

// Load reads and parses a custom template file.
func Load(path string) (*Renderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	tmpl, err := Parse(filepath.Base(path), string(data))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return NewRenderer(tmpl), nil
}

// Render implements explain.PromptRenderer.
func (r *Renderer) Render(req core.ExplanationRequest) (string, error) {
	payload, err := AnalysisJSON(req)
	if err != nil {
		return "", err
	}
	var analysis any
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return "", fmt.Errorf("decode analysis payload: %w", err)
	}

	return r.tmpl.Execute(map[string]any{
		"explanation_hint":    req.Hint,
		"question":            req.Question,
		"sql":                 req.SQL,
		"sql_summary":         req.Summary,
		"sql_analysis_result": payload,
		"category":            string(req.Category),
		"analysis":            analysis,
	})
}

// AnalysisJSON encodes the request's id-free analysis payload as compact JSON.
func AnalysisJSON(req core.ExplanationRequest) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req.Analysis()); err != nil {
		return "", fmt.Errorf("encode analysis payload: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
