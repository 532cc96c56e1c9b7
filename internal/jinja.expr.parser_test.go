package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// exprTokens lexes "{{ source }}" and returns the tokens between the delimiters
func exprTokens(t *testing.T, source string) []Token {
	t.Helper()
	tokens, err := NewLexer("{{ "+source+" }}", DefaultLexerConfig(), zap.NewNop()).Tokenize()
	require.NoError(t, err)
	require.Equal(t, TokenVariableStart, tokens[0].Kind)
	return tokens[1:]
}

func parseExpr(t *testing.T, source string) Expr {
	t.Helper()
	expr, err := ParseExpression(exprTokens(t, source))
	require.NoError(t, err)
	return expr
}

func TestParseExpression_Structure(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "multiplication binds tighter", input: "1 + 2 * 3", expected: "(1 + (2 * 3))"},
		{name: "left associative", input: "10 - 4 - 3", expected: "((10 - 4) - 3)"},
		{name: "power is right associative", input: "2 ** 3 ** 2", expected: "(2 ** (3 ** 2))"},
		{name: "unary minus below power", input: "-x ** 2", expected: "(-(x ** 2))"},
		{name: "negative literal folded", input: "-3", expected: "-3"},
		{name: "and binds tighter than or", input: "a or b and c", expected: "(a or (b and c))"},
		{name: "not applies to comparison", input: "not a == b", expected: "(not (a == b))"},
		{name: "concat below addition", input: "a ~ b + c", expected: "(a ~ (b + c))"},
		{name: "not in", input: "x not in y", expected: "(x not in y)"},
		{name: "is test", input: "x is defined", expected: "(x is defined)"},
		{name: "is not test", input: "x is not none", expected: "(x is not none)"},
		{name: "grouping", input: "(1 + 2) * 3", expected: "((1 + 2) * 3)"},
		{name: "member and index chain", input: "a.b[0].c", expected: "a.b[0].c"},
		{name: "numeric member is an index", input: "a.0", expected: "a[0]"},
		{name: "filter chain", input: "name | lower | replace('a', 'b')", expected: "name | lower | replace('a', 'b')"},
		{name: "filter applies to operand", input: "a ~ b | upper", expected: "(a ~ b | upper)"},
		{name: "function call with keyword", input: "f(1, k='v')", expected: "f(1, k='v')"},
		{name: "method call", input: "user.greet('hi')", expected: "user.greet('hi')"},
		{name: "conditional", input: "a if b else c", expected: "(a if b else c)"},
		{name: "conditional without else", input: "a if b", expected: "(a if b)"},
		{name: "slice", input: "items[1:3]", expected: "items[1:3]"},
		{name: "slice with step", input: "items[::-1]", expected: "items[::-1]"},
		{name: "list literal", input: "[1, 'two', none]", expected: "[1, 'two', None]"},
		{name: "map literal", input: "{'k': [1, 2]}", expected: "{'k': [1, 2]}"},
		{name: "boolean literals", input: "true and False", expected: "(True and False)"},
		{name: "float literal", input: "1.5 * 2", expected: "(1.5 * 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseExpr(t, tt.input).String())
		})
	}
}

func TestParseExpression_Literals(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{input: "42", expected: int64(42)},
		{input: "2.5", expected: 2.5},
		{input: "'a\\tb'", expected: "a\tb"},
		{input: `"double"`, expected: "double"},
		{input: "none", expected: nil},
		{input: "True", expected: true},
		{input: "false", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lit, ok := parseExpr(t, tt.input).(*LiteralExpr)
			require.True(t, ok)
			assert.Equal(t, tt.expected, lit.Value)
		})
	}
}

func TestParseExpression_NodeTypes(t *testing.T) {
	call, ok := parseExpr(t, "range(1, stop=5)").(*FunctionCallExpr)
	require.True(t, ok)
	assert.Equal(t, "range", call.Name)
	require.Len(t, call.Args.Positional, 1)
	require.Len(t, call.Args.Keywords, 1)
	assert.Equal(t, "stop", call.Args.Keywords[0].Name)

	idx, ok := parseExpr(t, "xs[-1]").(*IndexExpr)
	require.True(t, ok)
	assert.Equal(t, int64(-1), idx.Index.(*LiteralExpr).Value)

	slice, ok := parseExpr(t, "xs[:2]").(*IndexExpr)
	require.True(t, ok)
	s, ok := slice.Index.(*SliceExpr)
	require.True(t, ok)
	assert.Nil(t, s.Start)
	assert.NotNil(t, s.Stop)
	assert.Nil(t, s.Step)

	test, ok := parseExpr(t, "n is odd").(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpIs, test.Op)
	assert.Equal(t, "odd", test.Right.(*IdentifierExpr).Name)
}

func TestParseExpression_Positions(t *testing.T) {
	expr := parseExpr(t, "a + b")
	bin, ok := expr.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, 1, bin.Position.Line)
	assert.Equal(t, 6, bin.Position.Column)
}

func TestParseExpression_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "dangling operator", input: "1 +"},
		{name: "unclosed group", input: "(1 + 2"},
		{name: "unclosed list", input: "[1, 2"},
		{name: "positional after keyword", input: "f(a=1, 2)"},
		{name: "two expressions", input: "a b"},
		{name: "missing filter name", input: "x | 1"},
		{name: "missing attribute", input: "x.'y'"},
		{name: "missing test name", input: "x is 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExpression(exprTokens(t, tt.input))
			require.Error(t, err)
			var parseErr *ParseError
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestParseExpression_Empty(t *testing.T) {
	tokens, err := NewLexer("{{ }}", DefaultLexerConfig(), zap.NewNop()).Tokenize()
	require.NoError(t, err)
	_, err = ParseExpression(tokens[1:])
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgExpectedExpression)
}
