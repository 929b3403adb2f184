// Package testutil provides fixtures and helpers for CLI tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlexplain/internal/cli/output"
)

// Input is a two-part query document: a filter and one plain select item.
const Input = `question: Which customers are active?
steps:
  - sql: SELECT id FROM customers WHERE active
    summary: Lists active customers
    sql_analysis_results:
      - filter:
          type: EXPR
          node: active
          id: f1
        selectItems:
          - alias: id
            expression: id
            id: s1
            properties:
              includeFunctionCall: "false"
              includeMathematicalOperation: "false"
            exprSources:
              - expression: id
                sourceDataset: customers
                sourceColumn: id
`

// Replay answers the prompts built from Input.
const Replay = `rules:
  - match: '{"filter"'
    reply: '{"results": {"filter": "Keeps only active customers."}}'
  - match: '{"selectItems"'
    reply: '{"results": {"selectItems": {"withFunctionCallOrMathematicalOperation": [], "withoutFunctionCallOrMathematicalOperation": ["The customer identifier."]}}}'
default: '{"results": {}}'
`

// Project is a temporary working directory holding a config file that uses
// the replay provider, the replay script and an input document.
type Project struct {
	Dir        string
	ConfigPath string
	InputPath  string
	ReplayPath string
	HistoryDB  string
}

// SetupProject writes a replay-backed project into a temp dir.
func SetupProject(t *testing.T) *Project {
	t.Helper()

	dir := t.TempDir()
	p := &Project{
		Dir:        dir,
		ConfigPath: filepath.Join(dir, "sqlexplain.yaml"),
		InputPath:  filepath.Join(dir, "query.yaml"),
		ReplayPath: filepath.Join(dir, "replay.yaml"),
		HistoryDB:  filepath.Join(dir, ".sqlexplain", "history.db"),
	}

	config := "llm:\n" +
		"  provider: replay\n" +
		"  replay_file: " + p.ReplayPath + "\n" +
		"history:\n" +
		"  enabled: true\n" +
		"  path: " + p.HistoryDB + "\n" +
		"log:\n" +
		"  level: error\n"

	WriteFile(t, p.ConfigPath, config)
	WriteFile(t, p.InputPath, Input)
	WriteFile(t, p.ReplayPath, Replay)
	return p
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// TestRenderer wraps a Renderer with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a non-TTY renderer writing to buffers.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, false, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the captured stdout.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured stderr.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks for balanced code fences and non-empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()
	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
