package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// ReplayRule answers prompts that contain Match with Reply.
type ReplayRule struct {
	Match string `yaml:"match"`
	Reply string `yaml:"reply"`
}

// ReplayScript is the document read by LoadReplay.
//
//	rules:
//	  - match: "filter"
//	    reply: '{"results": {"filter": "..."}}'
//	default: '{"results": {}}'
type ReplayScript struct {
	Rules   []ReplayRule `yaml:"rules"`
	Default *string      `yaml:"default"`
}

// Replay is an offline generator that answers from a fixed script.
// The first rule whose match occurs in the prompt wins.
type Replay struct {
	script ReplayScript
}

// NewReplay creates a replay generator from an in-memory script.
func NewReplay(script ReplayScript) *Replay {
	return &Replay{script: script}
}

// LoadReplay reads a replay script from a YAML file.
func LoadReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	var script ReplayScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse replay file %s: %w", path, err)
	}
	for i, rule := range script.Rules {
		if rule.Match == "" {
			return nil, fmt.Errorf("replay rule %d: match must not be empty", i)
		}
	}
	return NewReplay(script), nil
}

// Generate implements core.Generator.
func (r *Replay) Generate(ctx context.Context, prompt string) (core.Reply, error) {
	if err := ctx.Err(); err != nil {
		return core.Reply{}, err
	}
	for i, rule := range r.script.Rules {
		if strings.Contains(prompt, rule.Match) {
			return core.Reply{
				Replies: []string{rule.Reply},
				Meta:    map[string]any{"provider": "replay", "rule": i},
			}, nil
		}
	}
	if r.script.Default != nil {
		return core.Reply{
			Replies: []string{*r.script.Default},
			Meta:    map[string]any{"provider": "replay", "rule": "default"},
		}, nil
	}
	return core.Reply{}, ErrNoReplayMatch
}
