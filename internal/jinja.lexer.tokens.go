package internal

import "fmt"

// Position represents a location in the source template
type Position struct {
	Offset int // Byte offset from start of the normalized source
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token produced by the lexer.
// TrimLeft and TrimRight are only set on delimiter tokens and record whether
// the delimiter carried a '-' whitespace-control marker.
type Token struct {
	Kind      TokenKind
	Value     string
	Position  Position
	TrimLeft  bool
	TrimRight bool
}

// String returns a human-readable representation of the token
func (t Token) String() string {
	if t.Value == "" {
		return fmt.Sprintf("Token{%s @ %s}", t.Kind, t.Position)
	}
	return fmt.Sprintf("Token{%s: %q @ %s}", t.Kind, t.Value, t.Position)
}

// IsEOF returns true if this is an end-of-input token
func (t Token) IsEOF() bool {
	return t.Kind == TokenEOF
}

// IsName returns true if this is a name token with the given value
func (t Token) IsName(value string) bool {
	return t.Kind == TokenName && t.Value == value
}

// IsOperator returns true if this is an operator token with the given value
func (t Token) IsOperator(value string) bool {
	return t.Kind == TokenOperator && t.Value == value
}

// IsTagEnd returns true for tokens that close a variable or block tag
func (t Token) IsTagEnd() bool {
	return t.Kind == TokenBlockEnd || t.Kind == TokenVariableEnd || t.Kind == TokenEOF
}

// NewToken creates a token with the given kind, value, and position
func NewToken(kind TokenKind, value string, pos Position) Token {
	return Token{
		Kind:     kind,
		Value:    value,
		Position: pos,
	}
}

// NewDelimiterToken creates a delimiter token carrying trim markers
func NewDelimiterToken(kind TokenKind, pos Position, trimLeft, trimRight bool) Token {
	return Token{
		Kind:      kind,
		Position:  pos,
		TrimLeft:  trimLeft,
		TrimRight: trimRight,
	}
}

// NewTextToken creates a text token with the given content
func NewTextToken(content string, pos Position) Token {
	return NewToken(TokenText, content, pos)
}

// NewEOFToken creates an end-of-input token at the given position
func NewEOFToken(pos Position) Token {
	return Token{
		Kind:     TokenEOF,
		Position: pos,
	}
}
