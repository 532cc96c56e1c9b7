package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinFilters(t *testing.T) {
	vars := map[string]any{
		"users": []any{
			map[string]any{"name": "ann", "active": true, "role": "admin", "age": int64(30)},
			map[string]any{"name": "bob", "active": false, "role": "user", "age": int64(17)},
			map[string]any{"name": "cy", "active": true, "role": "user", "age": int64(42)},
		},
		"people": []*account{{Name: "zed", Balance: 2}, {Name: "amy", Balance: 5}},
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "upper", input: "{{ 'abc' | upper }}", expected: "ABC"},
		{name: "lower", input: "{{ 'ABC' | lower }}", expected: "abc"},
		{name: "title", input: "{{ 'hello world' | title }}", expected: "Hello World"},
		{name: "capitalize", input: "{{ 'hELLO' | capitalize }}", expected: "Hello"},
		{name: "trim", input: "[{{ '  x  ' | trim }}]", expected: "[x]"},
		{name: "trim chars", input: "{{ '--x--' | trim('-') }}", expected: "x"},
		{name: "replace", input: "{{ 'aaa' | replace('a', 'b', 2) }}", expected: "bba"},
		{name: "escape", input: "{{ '<b>&' | e }}", expected: "&lt;b&gt;&amp;"},
		{name: "safe", input: "{{ '<b>' | safe }}", expected: "<b>"},
		{name: "string", input: "{{ (1 == 1) | string | lower }}", expected: "true"},
		{name: "center", input: "[{{ 'x' | center(5) }}]", expected: "[  x  ]"},
		{name: "center keyword", input: "[{{ 'x' | center(width=3) }}]", expected: "[ x ]"},
		{name: "indent", input: "{{ 'a\\nb\\n\\nc' | indent(2) }}", expected: "a\n  b\n\n  c"},
		{name: "indent first", input: "{{ 'a' | indent('> ', true) }}", expected: "> a"},
		{name: "truncate on word", input: "{{ 'one two three' | truncate(9, leeway=0) }}", expected: "one..."},
		{name: "truncate kills words", input: "{{ 'one two three' | truncate(9, true, leeway=0) }}", expected: "one tw..."},
		{name: "truncate within leeway", input: "{{ 'one two three' | truncate(9) }}", expected: "one two three"},
		{name: "wordcount", input: "{{ 'a b  c' | wordcount }}", expected: "3"},
		{name: "tojson", input: "{{ {'a': [1, 'x', none]} | tojson }}", expected: `{"a":[1,"x",null]}`},
		{name: "abs", input: "{{ (-3) | abs }}", expected: "3"},
		{name: "filter binds tighter than minus", input: "{{ -3 | abs }}", expected: "-3"},
		{name: "int from string", input: "{{ '42' | int + 1 }}", expected: "43"},
		{name: "int from float string", input: "{{ '4.7' | int }}", expected: "4"},
		{name: "int default", input: "{{ 'x' | int(7) }}", expected: "7"},
		{name: "float", input: "{{ 'x' | float }}", expected: "0.0"},
		{name: "round", input: "{{ 3.14159 | round(2) }}", expected: "3.14"},
		{name: "round ceil", input: "{{ 2.1 | round(method='ceil') }}", expected: "3.0"},
		{name: "round far negative precision", input: "{{ 1234.5 | round(-400) }}", expected: "0.0"},
		{name: "round far positive precision", input: "{{ 2.5 | round(400) }}", expected: "2.5"},
		{name: "center negative width", input: "[{{ 'x' | center(-4) }}]", expected: "[x]"},
		{name: "length", input: "{{ users | length }}", expected: "3"},
		{name: "count string", input: "{{ 'héllo' | count }}", expected: "5"},
		{name: "default on none", input: "{{ none | default('x') }}", expected: "x"},
		{name: "default keeps empty", input: "[{{ '' | d('x') }}]", expected: "[]"},
		{name: "default boolean", input: "{{ '' | default('x', true) }}", expected: "x"},
		{name: "first", input: "{{ [3, 4] | first }}", expected: "3"},
		{name: "last", input: "{{ 'abc' | last }}", expected: "c"},
		{name: "list", input: "{{ 'ab' | list }}", expected: "['a', 'b']"},
		{name: "reverse string", input: "{{ 'abc' | reverse }}", expected: "cba"},
		{name: "reverse list", input: "{{ [1, 2, 3] | reverse | join }}", expected: "321"},
		{name: "join", input: "{{ [1, 2] | join(', ') }}", expected: "1, 2"},
		{name: "join attribute", input: "{{ users | join('/', attribute='name') }}", expected: "ann/bob/cy"},
		{name: "batch", input: "{{ [1,2,3,4,5] | batch(2) | length }}", expected: "3"},
		{name: "batch fill", input: "{{ [1,2,3] | batch(2, 0) | last }}", expected: "[3, 0]"},
		{name: "items", input: "{{ {'b': 1, 'a': 2} | items | first }}", expected: "['a', 2]"},
		{name: "dictsort", input: "{{ {'b': 1, 'A': 2} | dictsort | first | first }}", expected: "A"},
		{name: "dictsort by value", input: "{{ {'b': 1, 'a': 2} | dictsort(by='value') | first | first }}", expected: "b"},
		{name: "unique", input: "{{ ['a', 'A', 'b'] | unique | join }}", expected: "ab"},
		{name: "sort", input: "{{ [3, 1, 2] | sort | join }}", expected: "123"},
		{name: "sort reverse", input: "{{ [3, 1, 2] | sort(reverse=true) | first }}", expected: "3"},
		{name: "sort attribute", input: "{{ users | sort(attribute='age') | map(attribute='name') | join(',') }}", expected: "bob,ann,cy"},
		{name: "sort struct field", input: "{{ people | sort(attribute='name') | map(attribute='name') | join(',') }}", expected: "amy,zed"},
		{name: "max", input: "{{ ['a', 'B'] | max }}", expected: "B"},
		{name: "min attribute", input: "{{ (users | min(attribute='age')).name }}", expected: "bob"},
		{name: "sum", input: "{{ [1, 2, 3] | sum }}", expected: "6"},
		{name: "sum attribute", input: "{{ people | sum(attribute='balance') }}", expected: "7"},
		{name: "attr", input: "{{ people | first | attr('name') }}", expected: "zed"},
		{name: "map filter", input: "{{ [1, 2] | map('string') | join('-') }}", expected: "1-2"},
		{name: "map filter with arguments", input: "{{ ['a-b'] | map('replace', '-', '+') | first }}", expected: "a+b"},
		{name: "map attribute default", input: "{{ users | map(attribute='nick', default='?') | join }}", expected: "???"},
		{name: "selectattr truthy", input: "{{ users | selectattr('active') | map(attribute='name') | join(', ') }}", expected: "ann, cy"},
		{name: "selectattr equalto", input: "{{ users | selectattr('role', 'equalto', 'admin') | map(attribute='name') | first }}", expected: "ann"},
		{name: "rejectattr", input: "{{ users | rejectattr('role', 'equalto', 'admin') | length }}", expected: "2"},
		{name: "chain after method", input: "{{ 'x,y'.split(',') | reverse | join }}", expected: "yx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mustRender(t, tt.input, vars))
		})
	}
}

func TestBuiltinFilters_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "abs of string", input: "{{ 'x' | abs }}", want: ErrMsgTypeMismatch},
		{name: "length of number", input: "{{ 5 | length }}", want: ErrMsgTypeMismatch},
		{name: "batch size zero", input: "{{ [1] | batch(0) }}", want: ErrMsgInvalidValue},
		{name: "batch size not int", input: "{{ [1] | batch('2') }}", want: ErrMsgTypeMismatch},
		{name: "indent negative width", input: "{{ 'a\\nb' | indent(-3) }}", want: ErrMsgInvalidValue},
		{name: "indent huge width", input: "{{ 'a\\nb' | indent(9223372036854775807) }}", want: ErrMsgInvalidValue},
		{name: "center huge width", input: "{{ 'x' | center(9223372036854775807) }}", want: ErrMsgInvalidValue},
		{name: "replace missing arguments", input: "{{ 'x' | replace('a') }}", want: ErrMsgArgCount},
		{name: "selectattr unknown test", input: "{{ [{'a': 1}] | selectattr('a', 'shiny') }}", want: ErrMsgUnknownTest},
		{name: "map without target", input: "{{ [1] | map }}", want: ErrMsgArgCount},
		{name: "round method", input: "{{ 1.5 | round(0, 'up') }}", want: ErrMsgInvalidValue},
		{name: "sort mixed", input: "{{ [1, 'a'] | sort }}", want: ErrMsgTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := render(t, tt.input, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var re *RenderError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, RenderErrInvalidArgument, re.Kind)
		})
	}
}

func TestFilterRegistry(t *testing.T) {
	r := NewFilterRegistry(nil)
	assert.True(t, r.Has(FilterUpper))
	assert.Contains(t, r.Names(), FilterSelectAttr)

	err := r.Register(&Filter{Name: FilterUpper, Fn: func(v any, _ []any) (any, error) { return v, nil }})
	assert.ErrorContains(t, err, ErrMsgFilterExists)
	assert.ErrorContains(t, r.Register(nil), ErrMsgFilterNil)
	assert.ErrorContains(t, r.Register(&Filter{Fn: func(v any, _ []any) (any, error) { return v, nil }}), ErrMsgFilterEmptyName)
	assert.Panics(t, func() {
		r.MustRegister(&Filter{Name: FilterLower, Fn: func(v any, _ []any) (any, error) { return v, nil }})
	})

	_, err = r.Apply("nope", "x", nil)
	assert.ErrorContains(t, err, ErrMsgUnknownFilter)
}

func TestFilterOverlay(t *testing.T) {
	base := NewFilterRegistry(nil)
	overlay := NewFilterOverlay(base)

	require.NoError(t, overlay.Set("shout", func(v any, args []any) (any, error) {
		return Display(v) + "!", nil
	}))
	require.NoError(t, overlay.Set(FilterUpper, func(v any, _ []any) (any, error) {
		return "overridden", nil
	}))
	assert.Error(t, overlay.Set("", func(v any, _ []any) (any, error) { return v, nil }))
	assert.Error(t, overlay.Set("x", nil))

	out, err := overlay.Apply("shout", "hey", []any{"ignored", "extra"})
	require.NoError(t, err)
	assert.Equal(t, "hey!", out)

	out, err = overlay.Apply(FilterUpper, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "overridden", out)

	out, err = base.Apply(FilterUpper, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", out)

	assert.False(t, base.Has("shout"))
	assert.Contains(t, overlay.Names(), "shout")
	assert.Contains(t, overlay.Names(), FilterLower)
}

func TestSplitKwargs(t *testing.T) {
	args, kwargs := SplitKwargs([]any{int64(1), Kwargs{"k": "v"}})
	assert.Equal(t, []any{int64(1)}, args)
	assert.Equal(t, Kwargs{"k": "v"}, kwargs)

	args, kwargs = SplitKwargs([]any{"a"})
	assert.Equal(t, []any{"a"}, args)
	assert.Nil(t, kwargs)
}

func TestSimpleTest(t *testing.T) {
	tests := []struct {
		name     string
		test     string
		value    any
		args     []any
		expected bool
	}{
		{name: "truthy", test: "", value: "x", expected: true},
		{name: "defined", test: TestDefined, value: nil, expected: false},
		{name: "none", test: TestNone, value: nil, expected: true},
		{name: "odd", test: TestOdd, value: int64(3), expected: true},
		{name: "even on string", test: TestEven, value: "2", expected: false},
		{name: "equalto", test: "equalto", value: int64(2), args: []any{2.0}, expected: true},
		{name: "ne", test: "ne", value: "a", args: []any{"b"}, expected: true},
		{name: "in", test: "in", value: "a", args: []any{[]any{"a"}}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SimpleTest(tt.test, tt.value, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := SimpleTest("equalto", 1, nil)
	assert.ErrorContains(t, err, ErrMsgArgCount)
}

func TestCapitalizeAndTitle(t *testing.T) {
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, "Élan", Capitalize("éLAN"))
	assert.Equal(t, "Hello Big World", TitleCase("hello bIG world"))
}
