// Package state persists explanation runs in SQLite so they can be listed,
// shown again and served by the HTTP API.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is one explanation request and its results, one record list per step.
type Run struct {
	ID        string
	Question  string
	Provider  string
	Model     string
	Steps     []StepInfo
	Results   [][]core.ExplanationRecord
	CreatedAt time.Time
}

// StepInfo is the stored description of one explained step.
type StepInfo struct {
	SQL     string `json:"sql"`
	Summary string `json:"summary,omitempty"`
	CTEName string `json:"cte_name,omitempty"`
}

// StepsFromCore keeps the descriptive fields of each step.
func StepsFromCore(steps []core.Step) []StepInfo {
	out := make([]StepInfo, len(steps))
	for i, s := range steps {
		out[i] = StepInfo{SQL: s.SQL, Summary: s.Summary, CTEName: s.CTEName}
	}
	return out
}

// RunSummary is the listing view of a run.
type RunSummary struct {
	ID          string
	Question    string
	Provider    string
	Model       string
	StepCount   int
	RecordCount int
	CreatedAt   time.Time
}

// Store is the history store used by the CLI and the server.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	DeleteRun(ctx context.Context, id string) error
	Close() error
}
