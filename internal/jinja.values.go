package internal

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// IsTruthy converts a value to a boolean: none is false, bools are themselves,
// strings and sequences are true when non-empty, numbers when non-zero, and
// every other value is true.
func IsTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	if n, ok := ToFloat(v); ok {
		return n != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// Display converts a value to its output form
func Display(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, int64, float64, []any, map[string]any:
		return Repr(val)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}
	if n, ok := normalizeNumber(v); ok {
		return Repr(n)
	}
	if list, ok := ToList(v); ok {
		return Repr(list)
	}
	if m, ok := ToMap(v); ok {
		return Repr(m)
	}
	return fmt.Sprint(v)
}

// Repr converts a value to its literal form, quoting strings
func Repr(v any) string {
	switch val := v.(type) {
	case nil:
		return DisplayNone
	case bool:
		if val {
			return DisplayTrue
		}
		return DisplayFalse
	case string:
		return quoteString(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return formatFloat(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = Repr(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := sortedKeys(val)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = quoteString(k) + ": " + Repr(val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if n, ok := normalizeNumber(v); ok {
		return Repr(n)
	}
	if list, ok := ToList(v); ok {
		return Repr(list)
	}
	if m, ok := ToMap(v); ok {
		return Repr(m)
	}
	return Display(v)
}

func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return "'" + s + "'"
}

// formatFloat renders floats the way template authors expect: integral
// values keep one decimal place ("2.0"), others use the shortest form.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// normalizeNumber converts any Go numeric type to int64 or float64
func normalizeNumber(v any) (any, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case float32:
		return float64(n), true
	}
	return nil, false
}

// IsNumber reports whether v is a Go numeric value (bools are not numbers)
func IsNumber(v any) bool {
	_, ok := normalizeNumber(v)
	return ok
}

// ToInt converts a numeric value to int64, truncating floats
func ToInt(v any) (int64, bool) {
	n, ok := normalizeNumber(v)
	if !ok {
		return 0, false
	}
	switch x := n.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	}
	return 0, false
}

// ToFloat converts a numeric value to float64
func ToFloat(v any) (float64, bool) {
	n, ok := normalizeNumber(v)
	if !ok {
		return 0, false
	}
	switch x := n.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// ToList converts []any and reflected slices or arrays to []any
func ToList(v any) ([]any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	case string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// ToMap converts map[string]any and reflected string-keyed maps to map[string]any
func ToMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return val, true
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// Iterate returns the items a for loop visits: sequence elements, string
// characters, or map keys in sorted order. None iterates as empty.
func Iterate(v any) ([]any, bool) {
	if v == nil {
		return nil, true
	}
	if s, ok := v.(string); ok {
		out := make([]any, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out, true
	}
	if list, ok := ToList(v); ok {
		return list, true
	}
	if m, ok := ToMap(v); ok {
		keys := sortedKeys(m)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, true
	}
	return nil, false
}

// Length returns the length of strings (in characters), sequences and maps
func Length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return len([]rune(s)), true
	}
	if list, ok := ToList(v); ok {
		return len(list), true
	}
	if m, ok := ToMap(v); ok {
		return len(m), true
	}
	return 0, false
}

// Equal compares two values; numbers compare by value across Go types
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			return fa == fb
		}
		return false
	}
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	}
	if la, ok := ToList(a); ok {
		lb, ok := ToList(b)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !Equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	if ma, ok := ToMap(a); ok {
		mb, ok := ToMap(b)
		if !ok || len(ma) != len(mb) {
			return false
		}
		for k, v := range ma {
			w, exists := mb[k]
			if !exists || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() || !ra.Type().Comparable() {
		return false
	}
	return a == b
}

// Compare orders two values. Numbers compare numerically, strings
// lexically, and a number against a numeric string compares numerically.
// Anything else is a type mismatch.
func Compare(a, b any) (int, error) {
	fa, aNum := ToFloat(a)
	fb, bNum := ToFloat(b)
	sa, aStr := a.(string)
	sb, bStr := b.(string)

	switch {
	case aNum && bNum:
		return compareFloats(fa, fb), nil
	case aStr && bStr:
		return strings.Compare(sa, sb), nil
	case aNum && bStr:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(sb), 64); err == nil {
			return compareFloats(fa, parsed), nil
		}
	case aStr && bNum:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(sa), 64); err == nil {
			return compareFloats(parsed, fb), nil
		}
	}
	return 0, fmt.Errorf("%s: cannot compare %s and %s", ErrMsgTypeMismatch, TypeName(a), TypeName(b))
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Contains implements the "in" operator
func Contains(container, item any) (bool, error) {
	if s, ok := container.(string); ok {
		sub, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("%s: 'in <string>' requires string as left operand, not %s", ErrMsgTypeMismatch, TypeName(item))
		}
		return strings.Contains(s, sub), nil
	}
	if list, ok := ToList(container); ok {
		for _, elem := range list {
			if Equal(elem, item) {
				return true, nil
			}
		}
		return false, nil
	}
	if m, ok := ToMap(container); ok {
		key, ok := item.(string)
		if !ok {
			return false, nil
		}
		_, exists := m[key]
		return exists, nil
	}
	if container == nil {
		return false, nil
	}
	return false, fmt.Errorf("%s: argument of type %s is not iterable", ErrMsgTypeMismatch, TypeName(container))
}

// TypeName returns a template-facing type name for error messages
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "none"
	case bool:
		return "bool"
	case string:
		return "string"
	case *MacroDefinition:
		return "macro"
	case *LoopContext:
		return "loop"
	}
	if n, ok := normalizeNumber(v); ok {
		if _, isInt := n.(int64); isInt {
			return "int"
		}
		return "float"
	}
	if _, ok := ToList(v); ok {
		return "list"
	}
	if _, ok := ToMap(v); ok {
		return "dict"
	}
	return reflect.TypeOf(v).String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
