package prompt

import "fmt"

// Position is a location in a template source.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Error is implemented by every template error.
type Error interface {
	error
	Position() Position
}

type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Error() string      { return e.pos.String() + ": " + e.msg }

// LexError reports malformed template syntax.
type LexError struct {
	baseError
}

// NewLexError creates a lexer error.
func NewLexError(pos Position, msg string) *LexError {
	return &LexError{baseError: baseError{pos: pos, msg: msg}}
}

// RenderError reports a failure while evaluating a placeholder.
type RenderError struct {
	baseError
	Cause error // underlying Starlark error, if any
}

// WrapRenderError wraps cause as a render error at pos.
func WrapRenderError(pos Position, msg string, cause error) *RenderError {
	return &RenderError{baseError: baseError{pos: pos, msg: msg}, Cause: cause}
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.baseError.Error(), e.Cause)
	}
	return e.baseError.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
