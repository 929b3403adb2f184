package prompt

import (
	"strings"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// Token types.
const (
	TokenText TokenType = iota // literal prompt text
	TokenExpr                  // expression between {{ and }}
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenExpr:
		return "EXPR"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token is a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// Lexer splits a prompt template into text and {{ expression }} tokens.
type Lexer struct {
	input    string
	file     string
	pos      int
	line     int
	col      int
	lastLine int
	lastCol  int
}

// NewLexer creates a lexer over input. file is used in error positions.
func NewLexer(input, file string) *Lexer {
	return &Lexer{input: input, file: file, line: 1, col: 1}
}

// Tokenize returns all tokens, ending with TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) next() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}, nil
	}
	if l.match("{{") {
		return l.scanExpr()
	}
	return l.scanText(), nil
}

func (l *Lexer) scanText() Token {
	l.markStart()
	start := l.pos
	for l.pos < len(l.input) && !l.match("{{") {
		l.advance()
	}
	return Token{Type: TokenText, Value: l.input[start:l.pos], Pos: l.startPosition()}
}

func (l *Lexer) scanExpr() (Token, error) {
	l.markStart()
	l.pos += 2
	l.col += 2

	start := l.pos
	depth := 0 // braces opened inside the expression, e.g. dict literals
	for l.pos < len(l.input) {
		if depth == 0 && l.match("}}") {
			expr := strings.TrimSpace(l.input[start:l.pos])
			l.pos += 2
			l.col += 2
			if expr == "" {
				return Token{}, NewLexError(l.startPosition(), "empty expression")
			}
			return Token{Type: TokenExpr, Value: expr, Pos: l.startPosition()}, nil
		}
		switch r := l.peek(); {
		case r == '{':
			depth++
		case r == '}' && depth > 0:
			depth--
		}
		l.advance()
	}
	return Token{}, NewLexError(l.startPosition(), "unclosed expression: missing '}}'")
}

func (l *Lexer) peek() rune {
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) advance() {
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) match(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

func (l *Lexer) markStart() {
	l.lastLine, l.lastCol = l.line, l.col
}

func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}

func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}
