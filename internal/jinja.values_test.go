package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringer struct{ label string }

func (s stringer) String() string { return "<" + s.label + ">" }

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{name: "none", value: nil, expected: false},
		{name: "false", value: false, expected: false},
		{name: "true", value: true, expected: true},
		{name: "empty string", value: "", expected: false},
		{name: "string", value: "x", expected: true},
		{name: "zero", value: int64(0), expected: false},
		{name: "go int", value: 3, expected: true},
		{name: "zero float", value: 0.0, expected: false},
		{name: "empty list", value: []any{}, expected: false},
		{name: "list", value: []any{nil}, expected: true},
		{name: "empty map", value: map[string]any{}, expected: false},
		{name: "typed slice", value: []int{1}, expected: true},
		{name: "nil pointer", value: (*stringer)(nil), expected: false},
		{name: "struct", value: stringer{}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTruthy(tt.value))
		})
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{name: "none is empty", value: nil, expected: ""},
		{name: "true", value: true, expected: "True"},
		{name: "false", value: false, expected: "False"},
		{name: "int", value: int64(-7), expected: "-7"},
		{name: "go int", value: 42, expected: "42"},
		{name: "integral float", value: 2.0, expected: "2.0"},
		{name: "float", value: 0.25, expected: "0.25"},
		{name: "infinity", value: math.Inf(1), expected: "inf"},
		{name: "string unquoted", value: "it's", expected: "it's"},
		{name: "list uses literal form", value: []any{int64(1), "a", nil, true}, expected: "[1, 'a', None, True]"},
		{name: "map sorted by key", value: map[string]any{"b": int64(2), "a": "x"}, expected: "{'a': 'x', 'b': 2}"},
		{name: "typed slice", value: []string{"x", "y"}, expected: "['x', 'y']"},
		{name: "stringer", value: stringer{label: "s"}, expected: "<s>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Display(tt.value))
		})
	}
}

func TestRepr_QuotesStrings(t *testing.T) {
	assert.Equal(t, `'it\'s'`, Repr("it's"))
	assert.Equal(t, `'a\nb'`, Repr("a\nb"))
	assert.Equal(t, "None", Repr(nil))
}

func TestIterate(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected []any
		ok       bool
	}{
		{name: "none is empty", value: nil, expected: nil, ok: true},
		{name: "list", value: []any{int64(1), int64(2)}, expected: []any{int64(1), int64(2)}, ok: true},
		{name: "string characters", value: "hé", expected: []any{"h", "é"}, ok: true},
		{name: "map keys sorted", value: map[string]any{"z": 1, "a": 2}, expected: []any{"a", "z"}, ok: true},
		{name: "typed array", value: [2]int{5, 6}, expected: []any{5, 6}, ok: true},
		{name: "number", value: int64(3), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, ok := Iterate(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, items)
			}
		})
	}
}

func TestLength(t *testing.T) {
	n, ok := Length("héllo")
	require.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = Length(map[string]int{"a": 1})
	require.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = Length(int64(1))
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     any
		expected bool
	}{
		{name: "int and float", a: int64(2), b: 2.0, expected: true},
		{name: "go int and int64", a: 3, b: int64(3), expected: true},
		{name: "strings", a: "a", b: "a", expected: true},
		{name: "string and number", a: "1", b: int64(1), expected: false},
		{name: "none and none", a: nil, b: nil, expected: true},
		{name: "none and false", a: nil, b: false, expected: false},
		{name: "bool and int", a: true, b: int64(1), expected: false},
		{name: "lists", a: []any{int64(1), "x"}, b: []string{"x"}, expected: false},
		{name: "equal lists", a: []any{"x"}, b: []string{"x"}, expected: true},
		{name: "maps", a: map[string]any{"k": int64(1)}, b: map[string]int{"k": 1}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Equal(tt.a, tt.b))
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     any
		expected int
		wantErr  bool
	}{
		{name: "ints", a: int64(1), b: int64(2), expected: -1},
		{name: "int and float", a: int64(3), b: 2.5, expected: 1},
		{name: "strings", a: "b", b: "a", expected: 1},
		{name: "number and numeric string", a: int64(10), b: "9", expected: 1},
		{name: "equal", a: 2.0, b: int64(2), expected: 0},
		{name: "number and word", a: int64(1), b: "x", wantErr: true},
		{name: "none", a: nil, b: int64(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), ErrMsgTypeMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name      string
		container any
		item      any
		expected  bool
		wantErr   bool
	}{
		{name: "substring", container: "hello", item: "ell", expected: true},
		{name: "list element", container: []any{int64(1), int64(2)}, item: 2.0, expected: true},
		{name: "map key", container: map[string]any{"a": nil}, item: "a", expected: true},
		{name: "missing map key", container: map[string]any{}, item: "a", expected: false},
		{name: "none container", container: nil, item: "a", expected: false},
		{name: "number in string", container: "123", item: int64(1), wantErr: true},
		{name: "number container", container: int64(5), item: int64(5), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Contains(tt.container, tt.item)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "none", TypeName(nil))
	assert.Equal(t, "int", TypeName(7))
	assert.Equal(t, "float", TypeName(float32(1)))
	assert.Equal(t, "list", TypeName([]string{}))
	assert.Equal(t, "dict", TypeName(map[string]int{}))
	assert.Equal(t, "macro", TypeName(&MacroDefinition{}))
}

func TestNamespace(t *testing.T) {
	initial := map[string]any{"a": 1}
	ns := NewNamespace(initial)
	ns.Set("b", 2)
	_, ok := initial["b"]
	assert.False(t, ok, "NewNamespace copies its input")
	assert.Equal(t, []string{"a", "b"}, ns.Names())

	clone := ns.Clone()
	clone.Delete("a")
	assert.Equal(t, 2, ns.Len())
	assert.Equal(t, 1, clone.Len())

	backing := map[string]any{}
	wrapped := WrapNamespace(backing)
	wrapped.Set("x", "y")
	assert.Equal(t, "y", backing["x"])
	assert.Equal(t, map[string]any{"x": "y"}, wrapped.Snapshot())
}
