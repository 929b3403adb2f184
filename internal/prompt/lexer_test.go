package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Tokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "empty",
			input: "",
			want:  []Token{{Type: TokenEOF, Pos: Position{Line: 1, Column: 1}}},
		},
		{
			name:  "text only",
			input: "hello",
			want: []Token{
				{Type: TokenText, Value: "hello", Pos: Position{Line: 1, Column: 1}},
				{Type: TokenEOF, Pos: Position{Line: 1, Column: 6}},
			},
		},
		{
			name:  "expression trimmed",
			input: "Q: {{  question  }}!",
			want: []Token{
				{Type: TokenText, Value: "Q: ", Pos: Position{Line: 1, Column: 1}},
				{Type: TokenExpr, Value: "question", Pos: Position{Line: 1, Column: 4}},
				{Type: TokenText, Value: "!", Pos: Position{Line: 1, Column: 20}},
				{Type: TokenEOF, Pos: Position{Line: 1, Column: 21}},
			},
		},
		{
			name:  "positions across lines",
			input: "a\n{{ b }}",
			want: []Token{
				{Type: TokenText, Value: "a\n", Pos: Position{Line: 1, Column: 1}},
				{Type: TokenExpr, Value: "b", Pos: Position{Line: 2, Column: 1}},
				{Type: TokenEOF, Pos: Position{Line: 2, Column: 8}},
			},
		},
		{
			name:  "nested braces",
			input: `{{ {"a": {"b": 1}} }}`,
			want: []Token{
				{Type: TokenExpr, Value: `{"a": {"b": 1}}`, Pos: Position{Line: 1, Column: 1}},
				{Type: TokenEOF, Pos: Position{Line: 1, Column: 22}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewLexer(tt.input, "").Tokenize()
			require.NoError(t, err)
			assert.Equal(t, tt.want, tokens)
		})
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
		pos   Position
	}{
		{"unclosed", "x {{ y", "unclosed expression", Position{File: "p.tmpl", Line: 1, Column: 3}},
		{"empty", "{{   }}", "empty expression", Position{File: "p.tmpl", Line: 1, Column: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer(tt.input, "p.tmpl").Tokenize()
			require.Error(t, err)

			var lexErr *LexError
			require.True(t, errors.As(err, &lexErr))
			assert.Equal(t, tt.pos, lexErr.Position())
			assert.Contains(t, err.Error(), tt.msg)
			assert.Contains(t, err.Error(), "p.tmpl:1:")
		})
	}
}

func TestTokenType_String(t *testing.T) {
	assert.Equal(t, "TEXT", TokenText.String())
	assert.Equal(t, "EXPR", TokenExpr.String())
	assert.Equal(t, "EOF", TokenEOF.String())
	assert.Equal(t, "UNKNOWN", TokenType(99).String())
}
