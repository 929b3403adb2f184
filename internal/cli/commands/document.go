package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// Document is an explanation input read from YAML or JSON. Either Steps is
// set, or the top-level sql/summary/sql_analysis_results describe a single
// step.
type Document struct {
	Question string      `json:"question"`
	Steps    []core.Step `json:"steps"`
}

type rawDocument struct {
	Question        string                  `json:"question"`
	Steps           []core.Step             `json:"steps"`
	SQL             string                  `json:"sql"`
	Summary         string                  `json:"summary"`
	AnalysisResults []core.AnalysisFragment `json:"sql_analysis_results"`
}

// ReadDocument reads a document from path, or from stdin when path is "-".
func ReadDocument(path string, stdin io.Reader) (*Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // G304: path is user input by design
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes a document. YAML is a superset of JSON, so both are
// parsed as YAML and normalised through JSON into the analysis types.
func ParseDocument(data []byte) (*Document, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	if tree == nil {
		return nil, errors.New("input is empty")
	}
	normalized, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize input: %w", err)
	}

	var raw rawDocument
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}

	doc := &Document{Question: raw.Question, Steps: raw.Steps}
	if len(doc.Steps) == 0 && (raw.SQL != "" || len(raw.AnalysisResults) > 0) {
		doc.Steps = []core.Step{{SQL: raw.SQL, Summary: raw.Summary, AnalysisResults: raw.AnalysisResults}}
	}
	if len(doc.Steps) == 0 {
		return nil, errors.New("input has no steps")
	}
	return doc, nil
}
