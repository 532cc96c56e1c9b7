package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tokenize(t *testing.T, source string, config LexerConfig) []Token {
	t.Helper()
	tokens, err := NewLexer(source, config, zap.NewNop()).Tokenize()
	require.NoError(t, err)
	return tokens
}

func tokenKinds(tokens []Token) []TokenKind {
	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	return kinds
}

func TestLexer_Tokenize_Kinds(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenKind
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []TokenKind{TokenEOF},
		},
		{
			name:     "plain text",
			input:    "Hello, world!",
			expected: []TokenKind{TokenText, TokenEOF},
		},
		{
			name:  "variable",
			input: "Hello {{ name }}!",
			expected: []TokenKind{
				TokenText, TokenVariableStart, TokenName, TokenVariableEnd, TokenText, TokenEOF,
			},
		},
		{
			name:  "block with operators",
			input: "{% if a >= 10 %}",
			expected: []TokenKind{
				TokenBlockStart, TokenName, TokenName, TokenOperator, TokenNumber, TokenBlockEnd, TokenEOF,
			},
		},
		{
			name:  "comment keeps body",
			input: "{# it's a note #}",
			expected: []TokenKind{
				TokenCommentStart, TokenCommentBody, TokenCommentEnd, TokenEOF,
			},
		},
		{
			name:  "raw block",
			input: "{% raw %}{{ x }}{% endraw %}",
			expected: []TokenKind{
				TokenBlockStart, TokenName, TokenBlockEnd,
				TokenRawText,
				TokenBlockStart, TokenName, TokenBlockEnd,
				TokenEOF,
			},
		},
		{
			name:  "map literal inside variable",
			input: "{{ {'a': 1} }}",
			expected: []TokenKind{
				TokenVariableStart,
				TokenOperator, TokenString, TokenOperator, TokenNumber, TokenOperator,
				TokenVariableEnd, TokenEOF,
			},
		},
		{
			name:     "lone brace is text",
			input:    "a { b } c",
			expected: []TokenKind{TokenText, TokenEOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := tokenize(t, tt.input, DefaultLexerConfig())
			assert.Equal(t, tt.expected, tokenKinds(tokens))
		})
	}
}

func TestLexer_Tokenize_Values(t *testing.T) {
	tokens := tokenize(t, `{{ user.name | upper ~ "x\n" }}`, DefaultLexerConfig())
	values := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == TokenName || tok.Kind == TokenOperator || tok.Kind == TokenString {
			values = append(values, tok.Value)
		}
	}
	assert.Equal(t, []string{"user", ".", "name", "|", "upper", "~", `x\n`}, values)
}

func TestLexer_Tokenize_LongestOperatorMatch(t *testing.T) {
	tokens := tokenize(t, "{{ a ** b // c == d != e <= f }}", DefaultLexerConfig())
	var ops []string
	for _, tok := range tokens {
		if tok.Kind == TokenOperator {
			ops = append(ops, tok.Value)
		}
	}
	assert.Equal(t, []string{"**", "//", "==", "!=", "<="}, ops)
}

func TestLexer_Tokenize_Positions(t *testing.T) {
	tokens := tokenize(t, "line1\n  {{ x }}", DefaultLexerConfig())
	require.Len(t, tokens, 5)

	assert.Equal(t, Position{Offset: 0, Line: 1, Column: 1}, tokens[0].Position)
	assert.Equal(t, Position{Offset: 8, Line: 2, Column: 3}, tokens[1].Position)
	assert.Equal(t, Position{Offset: 11, Line: 2, Column: 6}, tokens[2].Position)
	assert.Equal(t, "x", tokens[2].Value)
}

func TestLexer_Tokenize_NormalizesLineEndings(t *testing.T) {
	tokens := tokenize(t, "a\r\nb\rc", DefaultLexerConfig())
	require.Len(t, tokens, 2)
	assert.Equal(t, "a\nb\nc", tokens[0].Value)
	assert.Equal(t, 3, tokens[1].Position.Line)
}

func TestLexer_Tokenize_TrimMarkers(t *testing.T) {
	tokens := tokenize(t, "a {%- if x -%} b {{- y -}} c", DefaultLexerConfig())

	var delimiters []Token
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenBlockStart, TokenBlockEnd, TokenVariableStart, TokenVariableEnd:
			delimiters = append(delimiters, tok)
		}
	}
	require.Len(t, delimiters, 4)
	assert.True(t, delimiters[0].TrimLeft)
	assert.True(t, delimiters[1].TrimRight)
	assert.True(t, delimiters[2].TrimLeft)
	assert.True(t, delimiters[3].TrimRight)

	// a left dash on a block tag drops the trailing spaces of the text before it
	assert.Equal(t, "a", tokens[0].Value)
	// a right dash leaves the following text alone; the trim pass handles it
	assert.Equal(t, " b ", tokens[5].Value)
}

func TestLexer_Tokenize_LstripBlocks(t *testing.T) {
	source := "<ul>\n    {% for x in xs %}\n    <li>\n{% endfor %}"

	plain := tokenize(t, source, DefaultLexerConfig())
	assert.Equal(t, "<ul>\n    ", plain[0].Value)

	stripped := tokenize(t, source, LexerConfig{LstripBlocks: true})
	assert.Equal(t, "<ul>\n", stripped[0].Value)

	var texts []string
	for _, tok := range stripped {
		if tok.Kind == TokenText {
			texts = append(texts, tok.Value)
		}
	}
	assert.Equal(t, []string{"<ul>\n", "<li>\n"}, texts)
}

func TestLexer_Tokenize_RawBody(t *testing.T) {
	tokens := tokenize(t, "{% raw %}{{ not parsed }} {% if %}{%- endraw %}", DefaultLexerConfig())
	require.Equal(t, TokenRawText, tokens[3].Kind)
	assert.Equal(t, "{{ not parsed }} {% if %}", tokens[3].Value)
	assert.True(t, tokens[4].TrimLeft)
	assert.True(t, tokens[5].IsName(TagEndRaw))
}

func TestLexer_Tokenize_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  LexErrorKind
		line  int
	}{
		{name: "unclosed variable", input: "Hello {{ name", kind: LexErrUnclosedTag, line: 1},
		{name: "unclosed block", input: "a\n{% if x", kind: LexErrUnclosedTag, line: 2},
		{name: "unclosed comment", input: "{# note", kind: LexErrUnclosedTag, line: 1},
		{name: "unclosed raw", input: "{% raw %}body", kind: LexErrUnclosedTag, line: 1},
		{name: "unterminated string", input: "{{ 'abc }}", kind: LexErrUnterminatedString, line: 1},
		{name: "unexpected character", input: "{{ a $ b }}", kind: LexErrUnexpectedChar, line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer(tt.input, DefaultLexerConfig(), zap.NewNop()).Tokenize()
			require.Error(t, err)

			var lexErr *LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Equal(t, tt.kind, lexErr.Kind)
			assert.Equal(t, tt.line, lexErr.Position.Line)
			assert.Contains(t, err.Error(), lexErr.Position.String())
		})
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "no escapes", raw: "plain", expected: "plain"},
		{name: "newline and tab", raw: `a\nb\tc`, expected: "a\nb\tc"},
		{name: "quotes", raw: `it\'s \"x\"`, expected: `it's "x"`},
		{name: "backslash", raw: `a\\b`, expected: `a\b`},
		{name: "hex", raw: `\x41`, expected: "A"},
		{name: "short unicode", raw: `\u00e9`, expected: "é"},
		{name: "long unicode", raw: `\U0001F600`, expected: "😀"},
		{name: "named", raw: `\N{LATIN SMALL LETTER A}`, expected: "a"},
		{name: "unknown escape kept", raw: `\q`, expected: `\q`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unescape(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUnescape_Errors(t *testing.T) {
	for _, raw := range []string{`\x4`, `\uZZZZ`, `\N{NO SUCH CHARACTER NAME}`, `\N{LATIN`} {
		t.Run(raw, func(t *testing.T) {
			_, err := Unescape(raw)
			assert.Error(t, err)
		})
	}
}
