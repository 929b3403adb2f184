package core

import "context"

// Reply is the raw output of one model call. The first entry of Replies is
// expected to hold a JSON document with a "results" object.
type Reply struct {
	Replies []string       `json:"replies"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Generator sends a rendered prompt to a language model.
// Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Reply, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (Reply, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (Reply, error) {
	return f(ctx, prompt)
}
