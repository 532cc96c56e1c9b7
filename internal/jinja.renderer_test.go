package internal

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func compileSource(t *testing.T, source string) *TemplateNode {
	t.Helper()
	root := parseTemplate(t, source)
	ApplyTrimTree(root)
	return root
}

func renderWith(t *testing.T, renderer *Renderer, source string, vars map[string]any) (string, error) {
	t.Helper()
	return renderer.Render(context.Background(), compileSource(t, source), NewNamespace(vars))
}

func render(t *testing.T, source string, vars map[string]any) (string, error) {
	t.Helper()
	return renderWith(t, NewRenderer(RendererConfig{}, zap.NewNop()), source, vars)
}

func mustRender(t *testing.T, source string, vars map[string]any) string {
	t.Helper()
	out, err := render(t, source, vars)
	require.NoError(t, err)
	return out
}

func TestRender_TextPassthrough(t *testing.T) {
	for _, source := range []string{"", "plain", "a { b } c", "line1\nline2\n", "50% off #1"} {
		assert.Equal(t, source, mustRender(t, source, nil))
	}
}

func TestRender_Expressions(t *testing.T) {
	vars := map[string]any{
		"name":  "ada",
		"xs":    []int{1, 2, 3},
		"d":     map[string]any{"a": int64(1), "b": "two"},
		"empty": "",
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "variable", input: "{{ name }}", expected: "ada"},
		{name: "undefined renders empty", input: "[{{ missing }}]", expected: "[]"},
		{name: "true", input: "{{ true }}", expected: "True"},
		{name: "comparison result", input: "{{ 1 == 2 }}", expected: "False"},
		{name: "none renders empty", input: "[{{ none }}]", expected: "[]"},
		{name: "true division", input: "{{ 7 / 2 }}", expected: "3.5"},
		{name: "integral float", input: "{{ 4 / 2 }}", expected: "2.0"},
		{name: "floor division", input: "{{ -7 // 2 }}", expected: "-4"},
		{name: "modulo follows divisor sign", input: "{{ -7 % 3 }}", expected: "2"},
		{name: "power", input: "{{ 2 ** 10 }}", expected: "1024"},
		{name: "mixed arithmetic", input: "{{ 1 + 0.5 }}", expected: "1.5"},
		{name: "concat", input: "{{ 'n' ~ 1 ~ none }}", expected: "n1"},
		{name: "string repeat", input: "{{ 'ab' * 2 }}", expected: "abab"},
		{name: "list concat", input: "{{ [1] + [2] }}", expected: "[1, 2]"},
		{name: "conditional", input: "{{ 'yes' if empty else 'no' }}", expected: "no"},
		{name: "conditional without else", input: "[{{ 'yes' if empty }}]", expected: "[]"},
		{name: "substring", input: "{{ 'b' in 'abc' }}", expected: "True"},
		{name: "not in", input: "{{ 3 not in [1, 2] }}", expected: "True"},
		{name: "not", input: "{{ not 0 }}", expected: "True"},
		{name: "and returns operand", input: "{{ 1 and 'x' }}", expected: "x"},
		{name: "or returns operand", input: "{{ 0 or 'y' }}", expected: "y"},
		{name: "map index", input: "{{ d['b'] }}", expected: "two"},
		{name: "map attribute", input: "{{ d.a + 1 }}", expected: "2"},
		{name: "string index", input: "{{ name[1] }}", expected: "d"},
		{name: "negative index", input: "{{ xs[-1] }}", expected: "3"},
		{name: "out of range index", input: "[{{ xs[10] }}]", expected: "[]"},
		{name: "numeric member", input: "{{ xs.0 }}", expected: "1"},
		{name: "reverse string", input: "{{ name[::-1] }}", expected: "ada"},
		{name: "list display", input: "{{ xs }}", expected: "[1, 2, 3]"},
		{name: "map display", input: "{{ d }}", expected: "{'a': 1, 'b': 'two'}"},
		{name: "unary minus", input: "{{ -d.a }}", expected: "-1"},
		{name: "string method", input: "{{ 'a,b'.split(',') | join('-') }}", expected: "a-b"},
		{name: "map method", input: "{{ d.get('zz', 'dflt') }}", expected: "dflt"},
		{name: "chained comparison operands", input: "{{ 1 < 2 and 2 < 3 }}", expected: "True"},
		{name: "numeric string comparison", input: "{{ 10 > '9' }}", expected: "True"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mustRender(t, tt.input, vars))
		})
	}
}

func TestRender_Tests(t *testing.T) {
	vars := map[string]any{"n": int64(3), "s": "x", "m": map[string]any{}, "f": func() int { return 1 }}

	tests := []struct {
		input    string
		expected string
	}{
		{input: "{{ x is defined }}", expected: "False"},
		{input: "{{ n is defined }}", expected: "True"},
		{input: "{{ range is defined }}", expected: "True"},
		{input: "{{ m.nope is defined }}", expected: "False"},
		{input: "{{ y is undefined }}", expected: "True"},
		{input: "{{ none is none }}", expected: "True"},
		{input: "{{ n is odd }}", expected: "True"},
		{input: "{{ n is even }}", expected: "False"},
		{input: "{{ n is not even }}", expected: "True"},
		{input: "{{ s is string }}", expected: "True"},
		{input: "{{ n is number }}", expected: "True"},
		{input: "{{ m is mapping }}", expected: "True"},
		{input: "{{ [1] is sequence }}", expected: "True"},
		{input: "{{ n is iterable }}", expected: "False"},
		{input: "{{ f is callable }}", expected: "True"},
		{input: "{{ true is true }}", expected: "True"},
		{input: "{{ 1 is true }}", expected: "False"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, mustRender(t, tt.input, vars))
		})
	}
}

func TestRender_If(t *testing.T) {
	source := "{% if n > 10 %}big{% elif n > 5 %}medium{% else %}small{% endif %}"
	assert.Equal(t, "big", mustRender(t, source, map[string]any{"n": 11}))
	assert.Equal(t, "medium", mustRender(t, source, map[string]any{"n": 6}))
	assert.Equal(t, "small", mustRender(t, source, map[string]any{"n": 1}))
	assert.Equal(t, "", mustRender(t, "{% if none %}x{% endif %}", nil))
}

func TestRender_Scoping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "loop body reassignment does not leak",
			input:    "{% set x=1 %}{% for i in [1,2] %}{% set x=2 %}{% endfor %}{{ x }}",
			expected: "1",
		},
		{
			name:     "nested loop assignment reaches outer loop",
			input:    "{% set x=1 %}{% for i in [1,2] %}{% for j in [3,4] %}{% set x=j %}{{x}}{% endfor %}{% endfor %}{{x}}",
			expected: "34344",
		},
		{
			name:     "new loop variable is promoted",
			input:    "{% for i in [1,2] %}{% set last = i %}{% endfor %}{{ last }}",
			expected: "2",
		},
		{
			name:     "if block assignment is visible after the block",
			input:    "{% if true %}{% set y = 5 %}{% endif %}{{ y }}",
			expected: "5",
		},
		{
			name:     "if inside loop promotes through the loop",
			input:    "{% for i in [1] %}{% if true %}{% set z = i %}{% endif %}{% endfor %}{{ z }}",
			expected: "1",
		},
		{
			name:     "loop target does not leak",
			input:    "{% for i in [1,2] %}{% endfor %}[{{ i }}]",
			expected: "[]",
		},
		{
			name:     "loop scoped set resets each iteration",
			input:    "{% for i in [1,2] %}{% set row loop %}r{{ i }}{% endset %}{{ row }}{% endfor %}[{{ row }}]",
			expected: "r1r2[]",
		},
		{
			name:     "namespace accumulates across iterations",
			input:    "{% set ns = namespace(count=0) %}{% for i in [1,2,3] %}{% set ns.count = ns.count + i %}{% endfor %}{{ ns.count }}",
			expected: "6",
		},
		{
			name:     "assignments are mirrored into globals",
			input:    "{% for n in [1] recursive %}{% set inner = n %}{% endfor %}[{{ inner }}]",
			expected: "[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mustRender(t, tt.input, nil))
		})
	}
}

func TestRender_For(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		vars     map[string]any
		expected string
	}{
		{
			name:     "else on empty",
			input:    "{% for i in [] %}loop{% else %}empty{% endfor %}",
			expected: "empty",
		},
		{
			name:     "none iterates as empty",
			input:    "{% for i in missing %}loop{% else %}empty{% endfor %}",
			expected: "empty",
		},
		{
			name:     "loop attributes",
			input:    "{% for x in ['a','b','c'] %}{{ loop.index }}{{ loop.first }}{{ loop.revindex0 }}{% if not loop.last %},{% endif %}{% endfor %}",
			expected: "1True2,2False1,3False0",
		},
		{
			name:     "loop length and neighbours",
			input:    "{% for x in [1,2] %}{{ loop.length }}:{{ loop.previtem }}:{{ loop.nextitem }};{% endfor %}",
			expected: "2::2;2:1:;",
		},
		{
			name:     "cycle",
			input:    "{% for x in [1,2,3] %}{{ loop.cycle('o', 'e') }}{% endfor %}",
			expected: "oeo",
		},
		{
			name:     "filter clause indexes kept items",
			input:    "{% for x in [1,2,3,4] if x is even %}{{ x }}:{{ loop.index }} {% endfor %}",
			expected: "2:1 4:2 ",
		},
		{
			name:     "filter clause falls back to else",
			input:    "{% for x in [1] if x > 1 %}{{ x }}{% else %}none{% endfor %}",
			expected: "none",
		},
		{
			name:     "unpacking",
			input:    "{% for k, v in d.items() %}{{ k }}={{ v }};{% endfor %}",
			vars:     map[string]any{"d": map[string]any{"b": 2, "a": 1}},
			expected: "a=1;b=2;",
		},
		{
			name:     "map iterates sorted keys",
			input:    "{% for k in d %}{{ k }}{% endfor %}",
			vars:     map[string]any{"d": map[string]int{"y": 1, "x": 2}},
			expected: "xy",
		},
		{
			name:     "string iterates characters",
			input:    "{% for c in 'héj' %}[{{ c }}]{% endfor %}",
			expected: "[h][é][j]",
		},
		{
			name:     "range",
			input:    "{{ range(5,1,-2) | join(',') }}",
			expected: "5,3",
		},
		{
			name:     "range keywords",
			input:    "{{ range(stop=3) | join }}",
			expected: "012",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mustRender(t, tt.input, tt.vars))
		})
	}
}

func TestRender_RecursiveLoop(t *testing.T) {
	tree := []any{
		map[string]any{"name": "a", "children": []any{
			map[string]any{"name": "b", "children": []any{}},
			map[string]any{"name": "c", "children": []any{
				map[string]any{"name": "d"},
			}},
		}},
	}
	source := "{% for n in tree recursive %}{{ n.name }}{{ loop.depth }}{% if n.children %}({{ loop(n.children) }}){% endif %}{% endfor %}"
	assert.Equal(t, "a1(b2c2(d3))", mustRender(t, source, map[string]any{"tree": tree}))
}

func TestRender_Set(t *testing.T) {
	assert.Equal(t, "21", mustRender(t, "{% set a, b = [1, 2] %}{{ b }}{{ a }}", nil))
	assert.Equal(t, "[Hi ann]", mustRender(t, "{% set greeting %} Hi {{ name }} {% endset %}[{{ greeting }}]", map[string]any{"name": "ann"}))
	assert.Equal(t, "7", mustRender(t, "{% total = 3 + 4 %}{{ total }}", nil))

	acct := &account{Name: "ada"}
	assert.Equal(t, "5", mustRender(t, "{% set user.balance = 5 %}{{ user.balance }}", map[string]any{"user": acct}))
	assert.Equal(t, 5, acct.Balance)
}

func TestRender_WritesBackGlobals(t *testing.T) {
	globals := NewNamespace(nil)
	_, err := NewRenderer(RendererConfig{}, zap.NewNop()).Render(context.Background(), compileSource(t, "{% set out = 5 %}{% macro m() %}{% endmacro %}"), globals)
	require.NoError(t, err)

	v, ok := globals.Get("out")
	require.True(t, ok)
	assert.Equal(t, int64(5), v)
	m, ok := globals.Get("m")
	require.True(t, ok)
	assert.IsType(t, &MacroDefinition{}, m)
}

func TestRender_Macros(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "recursive macro",
			input:    "{% macro c(n) %}{% if n>0 %}{{n}} {{c(n-1)}}{% endif %}{% endmacro %}{{c(3)}}",
			expected: "3 2 1 ",
		},
		{
			name:     "redefinition uses latest",
			input:    "{% macro m() %}a{% endmacro %}{% macro m() %}b{% endmacro %}{{ m() }}",
			expected: "b",
		},
		{
			name:     "missing arguments bind none",
			input:    "{% macro m(a, b='x') %}[{{ a }}|{{ b }}]{% endmacro %}{{ m(1) }}",
			expected: "[1|]",
		},
		{
			name:     "keyword arguments",
			input:    "{% macro m(a, b) %}{{ a }}{{ b }}{% endmacro %}{{ m(b=2, a=1) }}",
			expected: "12",
		},
		{
			name:     "varargs and kwargs",
			input:    "{% macro m(a) %}{{ a }}|{{ varargs | length }}|{{ kwargs.k }}{% endmacro %}{{ m(1, 2, 3, k='v') }}",
			expected: "1|2|v",
		},
		{
			name:     "macro body sees globals",
			input:    "{% macro m() %}{{ who }}{% endmacro %}{{ m() }}",
			expected: "world",
		},
		{
			name:     "macro name attribute",
			input:    "{% macro shout() %}{% endmacro %}{{ shout.name }}",
			expected: "shout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mustRender(t, tt.input, map[string]any{"who": "world"}))
		})
	}
}

func TestRender_CallBlock(t *testing.T) {
	t.Run("caller sees call site bindings", func(t *testing.T) {
		source := "{% macro wrap(tag) %}<{{ tag }}>{{ caller() }}</{{ tag }}>{% endmacro %}" +
			"{% set who = 'bob' %}{% call wrap('b') %}hi {{ who }}{% endcall %}"
		assert.Equal(t, "<b>hi bob</b>", mustRender(t, source, nil))
	})

	t.Run("caller parameters", func(t *testing.T) {
		source := "{% macro each(xs) %}{% for x in xs %}{{ caller(x) }}{% endfor %}{% endmacro %}" +
			"{% call(item) each([1, 2]) %}<{{ item }}>{% endcall %}"
		assert.Equal(t, "<1><2>", mustRender(t, source, nil))
	})

	t.Run("method call target", func(t *testing.T) {
		source := "{% macro wrap() %}[{{ caller() }}]{% endmacro %}" +
			"{% set helpers = {'wrap': wrap} %}{% call helpers.wrap() %}x{% endcall %}"
		assert.Equal(t, "[x]", mustRender(t, source, nil))
	})
}

func TestRender_HostValues(t *testing.T) {
	vars := map[string]any{
		"user":  &account{Name: "ada", Email: "a@b.c"},
		"shout": func(s string) string { return strings.ToUpper(s) + "!" },
		"pair": Func(func(args []any, kwargs map[string]any) (any, error) {
			return []any{args[0], kwargs["second"]}, nil
		}),
	}

	tests := []struct {
		input    string
		expected string
	}{
		{input: "{{ user.name }}", expected: "ada"},
		{input: "{{ user.mail }}", expected: "a@b.c"},
		{input: "{{ user['name'] }}", expected: "ada"},
		{input: "{{ user.greeting('hi') }}", expected: "hi ada"},
		{input: "{{ shout('a') }}", expected: "A!"},
		{input: "{{ pair(1, second=2) }}", expected: "[1, 2]"},
		{input: "[{{ user.unknown }}]", expected: "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, mustRender(t, tt.input, vars))
		})
	}
}

func TestRender_WhitespaceControl(t *testing.T) {
	assert.Equal(t, "Hello World!", mustRender(t, "Hello    {%- if true -%} World{%- endif -%}    !", nil))
	assert.Equal(t, "a|b", mustRender(t, "a {{- '|' -}} b", nil))
	assert.Equal(t, "ab", mustRender(t, "a {#- note -#} b", nil))
	assert.Equal(t, "x", mustRender(t, "  {%- set y = 1 -%}  x", nil))
}

func TestRender_RawRoundTrip(t *testing.T) {
	body := "{{ a }} {% if x %}{# c #}{% endfor %}"
	assert.Equal(t, body, mustRender(t, "{% raw %}"+body+"{% endraw %}", nil))
}

func TestRender_PlaceholderTag(t *testing.T) {
	assert.Equal(t, "ab", mustRender(t, "a{% extends %}b", nil))
}

func TestRender_Slicing(t *testing.T) {
	vars := map[string]any{"items": []any{"a", "b", "c", "d"}}

	tests := []struct {
		input    string
		expected string
	}{
		{input: "{{ items[-2:] }}", expected: "['c', 'd']"},
		{input: "{{ items[:2] }}", expected: "['a', 'b']"},
		{input: "{{ items[1:3] }}", expected: "['b', 'c']"},
		{input: "{{ items[::2] }}", expected: "['a', 'c']"},
		{input: "{{ items[::-1] }}", expected: "['d', 'c', 'b', 'a']"},
		{input: "{{ items[10:] }}", expected: "[]"},
		{input: "{{ 'hello'[1:4] }}", expected: "ell"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, mustRender(t, tt.input, vars))
		})
	}
}

func TestSliceIndices(t *testing.T) {
	i := func(n int64) *int64 { return &n }
	assert.Equal(t, []int{2, 3}, SliceIndices(4, i(-2), nil, 1))
	assert.Equal(t, []int{3, 1}, SliceIndices(4, nil, nil, -2))
	assert.Equal(t, []int{2, 1}, SliceIndices(4, i(2), i(0), -1))
	assert.Empty(t, SliceIndices(4, i(3), i(1), 1))
	assert.Empty(t, SliceIndices(0, nil, nil, 1))
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		op       string
		l, r     any
		expected any
	}{
		{op: OpAdd, l: 1, r: int64(2), expected: int64(3)},
		{op: OpDiv, l: int64(1), r: int64(4), expected: 0.25},
		{op: OpFloorDiv, l: 7.5, r: int64(2), expected: 3.0},
		{op: OpMod, l: int64(7), r: int64(-3), expected: int64(-2)},
		{op: OpPow, l: int64(2), r: int64(-1), expected: 0.5},
		{op: OpAdd, l: "a", r: "b", expected: "ab"},
		{op: OpMul, l: int64(2), r: []any{"x"}, expected: []any{"x", "x"}},
		{op: OpPow, l: int64(3), r: int64(4), expected: int64(81)},
		{op: OpPow, l: int64(-2), r: int64(63), expected: int64(math.MinInt64)},
		{op: OpPow, l: int64(2), r: int64(64), expected: math.Pow(2, 64)},
		{op: OpAdd, l: int64(math.MaxInt64), r: int64(1), expected: float64(math.MaxInt64) + 1},
		{op: OpSub, l: int64(math.MinInt64), r: int64(1), expected: float64(math.MinInt64) - 1},
		{op: OpSub, l: int64(0), r: int64(math.MinInt64), expected: -float64(math.MinInt64)},
		{op: OpMul, l: int64(math.MaxInt64), r: int64(2), expected: float64(math.MaxInt64) * 2},
		{op: OpFloorDiv, l: int64(math.MinInt64), r: int64(-1), expected: -float64(math.MinInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, err := Arithmetic(tt.op, tt.l, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := Arithmetic(OpDiv, 1.0, int64(0))
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, RenderErrDivisionByZero, re.Kind)

	_, err = Arithmetic(OpSub, "a", "b")
	require.ErrorAs(t, err, &re)
	assert.Equal(t, RenderErrTypeMismatch, re.Kind)
}

func TestRender_Errors(t *testing.T) {
	vars := map[string]any{"name": "x", "nothing": nil}

	tests := []struct {
		name  string
		input string
		kind  RenderErrorKind
	}{
		{name: "unknown filter", input: "{{ name | nope }}", kind: RenderErrUnknownFilter},
		{name: "filter arity", input: "{{ name | upper(1) }}", kind: RenderErrInvalidArgument},
		{name: "division by zero", input: "{{ 1 / 0 }}", kind: RenderErrDivisionByZero},
		{name: "modulo by zero", input: "{{ 1 % 0 }}", kind: RenderErrDivisionByZero},
		{name: "slice step zero", input: "{{ [1, 2][::0] }}", kind: RenderErrInvalidSliceStep},
		{name: "attribute of none", input: "{{ nothing.field }}", kind: RenderErrNullTarget},
		{name: "method on none", input: "{{ nothing.upper() }}", kind: RenderErrNullTarget},
		{name: "index of none", input: "{{ nothing[0] }}", kind: RenderErrNullTarget},
		{name: "assign attribute of none", input: "{% set nothing.x = 1 %}", kind: RenderErrNullTarget},
		{name: "unknown function", input: "{{ nope() }}", kind: RenderErrUnknownFunction},
		{name: "value is not callable", input: "{{ name() }}", kind: RenderErrUnknownFunction},
		{name: "macro used before definition", input: "{{ m() }}{% macro m() %}x{% endmacro %}", kind: RenderErrUsedBeforeDefined},
		{name: "add number and string", input: "{{ 1 + 'a' }}", kind: RenderErrTypeMismatch},
		{name: "compare number and word", input: "{{ 1 < 'a' }}", kind: RenderErrTypeMismatch},
		{name: "negate string", input: "{{ -name }}", kind: RenderErrTypeMismatch},
		{name: "non-string map key", input: "{{ {1: 2} }}", kind: RenderErrTypeMismatch},
		{name: "odd test on string", input: "{{ name is odd }}", kind: RenderErrTypeMismatch},
		{name: "iterate a number", input: "{% for x in 5 %}{% endfor %}", kind: RenderErrNotIterable},
		{name: "unpack mismatch", input: "{% set a, b = [1] %}", kind: RenderErrInvalidArgument},
		{name: "range step zero", input: "{{ range(0, 5, step=0) }}", kind: RenderErrInvalidArgument},
		{name: "unknown test", input: "{{ name is shiny }}", kind: RenderErrUnknownTest},
		{name: "loop call outside recursive loop", input: "{% for x in [1] %}{{ loop([1]) }}{% endfor %}", kind: RenderErrUnknownFunction},
		{name: "unknown method", input: "{{ (5).nope() }}", kind: RenderErrMemberAccess},
		{name: "bad method arguments", input: "{{ name.upper(1) }}", kind: RenderErrInvalidArgument},
		{name: "huge string repeat", input: `{{ "ab" * 9223372036854775807 }}`, kind: RenderErrInvalidArgument},
		{name: "huge list repeat", input: "{{ [1, 2] * 9223372036854775807 }}", kind: RenderErrInvalidArgument},
		{name: "negative repeat", input: "{{ 'a' * -1 }}", kind: RenderErrInvalidArgument},
		{name: "huge range", input: "{{ range(9223372036854775807) }}", kind: RenderErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := render(t, tt.input, vars)
			require.Error(t, err)

			var re *RenderError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.kind, re.Kind, err.Error())
			assert.Positive(t, re.Position.Line, "error carries a position")
		})
	}
}

func TestRender_MaxDepth(t *testing.T) {
	renderer := NewRenderer(RendererConfig{MaxDepth: 8}, zap.NewNop())
	_, err := renderWith(t, renderer, "{% macro r() %}{{ r() }}{% endmacro %}{{ r() }}", nil)

	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, RenderErrMaxDepth, re.Kind)

	out, err := renderWith(t, renderer, "{% macro c(n) %}{% if n>0 %}{{ c(n-1) }}{% endif %}{% endmacro %}{{ c(7) }}", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRender_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer(RendererConfig{}, zap.NewNop()).Render(ctx, compileSource(t, "a{{ b }}"), NewNamespace(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, RenderErrCanceled, re.Kind)
}

func TestRender_CustomRegistries(t *testing.T) {
	base := NewFilterRegistry(nil)
	overlay := NewFilterOverlay(base)
	require.NoError(t, overlay.Set(FilterUpper, func(v any, _ []any) (any, error) {
		return "custom:" + Display(v), nil
	}))

	functions := NewFuncRegistry()
	functions.MustRegister(&Function{
		Name:    "twice",
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any, _ map[string]any) (any, error) {
			return Arithmetic(OpMul, args[0], int64(2))
		},
	})

	renderer := NewRenderer(RendererConfig{Filters: overlay, Functions: functions}, zap.NewNop())
	out, err := renderWith(t, renderer, "{{ 'a' | upper }} {{ 'b' | lower }} {{ twice(21) }}", nil)
	require.NoError(t, err)
	assert.Equal(t, "custom:a b 42", out)

	out, err = render(t, "{{ 'a' | upper }}", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", out, "the base registry is unchanged")

	out, err = renderWith(t, renderer, "{% set twice = 'shadowed' %}{{ twice }}", nil)
	require.NoError(t, err)
	assert.Equal(t, "shadowed", out)
}

func TestRenderError_Message(t *testing.T) {
	cause := errors.New("inner")
	err := NewRenderError(RenderErrInvalidArgument, "bad", Position{Line: 2, Column: 5}, cause)
	assert.Equal(t, "bad at 2:5: inner", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewRenderError(RenderErrNotSupported, "nope", Position{}, nil)
	assert.Equal(t, "nope", bare.Error())
}
