package internal

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Built-in filter names
const (
	FilterAbs        = "abs"
	FilterAttr       = "attr"
	FilterBatch      = "batch"
	FilterCapitalize = "capitalize"
	FilterCenter     = "center"
	FilterCount      = "count"
	FilterDefault    = "default"
	FilterD          = "d"
	FilterDictSort   = "dictsort"
	FilterEscape     = "escape"
	FilterE          = "e"
	FilterFirst      = "first"
	FilterFloat      = "float"
	FilterIndent     = "indent"
	FilterInt        = "int"
	FilterItems      = "items"
	FilterJoin       = "join"
	FilterLast       = "last"
	FilterLength     = "length"
	FilterList       = "list"
	FilterLower      = "lower"
	FilterMap        = "map"
	FilterMax        = "max"
	FilterMin        = "min"
	FilterRejectAttr = "rejectattr"
	FilterReplace    = "replace"
	FilterReverse    = "reverse"
	FilterRound      = "round"
	FilterSafe       = "safe"
	FilterSelectAttr = "selectattr"
	FilterSort       = "sort"
	FilterString     = "string"
	FilterSum        = "sum"
	FilterTitle      = "title"
	FilterToJSON     = "tojson"
	FilterTrim       = "trim"
	FilterTruncate   = "truncate"
	FilterUnique     = "unique"
	FilterUpper      = "upper"
	FilterWordCount  = "wordcount"
)

// RegisterBuiltinFilters registers the built-in filter set
func RegisterBuiltinFilters(r *FilterRegistry) {
	registerStringFilters(r)
	registerNumberFilters(r)
	registerCollectionFilters(r)
	registerAttributeFilters(r)
}

func filterTypeError(filter string, want string, v any) error {
	return fmt.Errorf("%s: %s filter expects %s, got %s", ErrMsgTypeMismatch, filter, want, TypeName(v))
}

// roundMaxPrecision keeps 10**precision inside the float64 range
const roundMaxPrecision = 308

// filterValueError reports an argument of the right type but an unusable value
func filterValueError(filter string, want string, v any) error {
	return fmt.Errorf("%s: %s filter expects %s, got %s", ErrMsgInvalidValue, filter, want, Repr(v))
}

func registerStringFilters(r *FilterRegistry) {
	r.MustRegister(&Filter{Name: FilterUpper, Fn: func(v any, _ []any) (any, error) {
		return strings.ToUpper(Display(v)), nil
	}})
	r.MustRegister(&Filter{Name: FilterLower, Fn: func(v any, _ []any) (any, error) {
		return strings.ToLower(Display(v)), nil
	}})
	r.MustRegister(&Filter{Name: FilterTitle, Fn: func(v any, _ []any) (any, error) {
		return TitleCase(Display(v)), nil
	}})
	r.MustRegister(&Filter{Name: FilterCapitalize, Fn: func(v any, _ []any) (any, error) {
		return Capitalize(Display(v)), nil
	}})
	r.MustRegister(&Filter{Name: FilterTrim, MaxArgs: 1, Fn: func(v any, args []any) (any, error) {
		args, _ = SplitKwargs(args)
		if len(args) == 1 {
			return strings.Trim(Display(v), Display(args[0])), nil
		}
		return strings.TrimSpace(Display(v)), nil
	}})
	r.MustRegister(&Filter{Name: FilterString, Fn: func(v any, _ []any) (any, error) {
		return Display(v), nil
	}})
	r.MustRegister(&Filter{Name: FilterSafe, Fn: func(v any, _ []any) (any, error) {
		return v, nil
	}})

	escape := func(v any, _ []any) (any, error) {
		return html.EscapeString(Display(v)), nil
	}
	r.MustRegister(&Filter{Name: FilterEscape, Fn: escape})
	r.MustRegister(&Filter{Name: FilterE, Fn: escape})

	r.MustRegister(&Filter{Name: FilterReplace, MinArgs: 2, MaxArgs: 3, Fn: func(v any, args []any) (any, error) {
		args, _ = SplitKwargs(args)
		count := -1
		if len(args) == 3 {
			n, ok := asInt(args[2])
			if !ok {
				return nil, filterTypeError(FilterReplace, "int count", args[2])
			}
			count = int(n)
		}
		return strings.Replace(Display(v), Display(args[0]), Display(args[1]), count), nil
	}})

	r.MustRegister(&Filter{Name: FilterCenter, MaxArgs: 1, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		widthArg := argOrKeyword(args, kwargs, 0, "width", int64(80))
		width, ok := asInt(widthArg)
		if !ok {
			return nil, filterTypeError(FilterCenter, "int width", widthArg)
		}
		if width > MaxSequenceLength {
			return nil, filterValueError(FilterCenter, "a width within the sequence limit", widthArg)
		}
		s := Display(v)
		pad := int(width) - utf8.RuneCountInString(s)
		if pad <= 0 {
			return s, nil
		}
		left := pad / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left), nil
	}})

	r.MustRegister(&Filter{Name: FilterIndent, MaxArgs: 3, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		width := argOrKeyword(args, kwargs, 0, "width", int64(4))
		first := IsTruthy(argOrKeyword(args, kwargs, 1, "first", false))
		blank := IsTruthy(argOrKeyword(args, kwargs, 2, "blank", false))
		prefix, ok := width.(string)
		if !ok {
			n, ok := asInt(width)
			if !ok {
				return nil, filterTypeError(FilterIndent, "int or string width", width)
			}
			if n < 0 || n > MaxSequenceLength {
				return nil, filterValueError(FilterIndent, "a non-negative width within the sequence limit", width)
			}
			prefix = strings.Repeat(" ", int(n))
		}
		lines := strings.Split(Display(v), "\n")
		for i, line := range lines {
			if i == 0 && !first {
				continue
			}
			if line == "" && !blank {
				continue
			}
			lines[i] = prefix + line
		}
		return strings.Join(lines, "\n"), nil
	}})

	r.MustRegister(&Filter{Name: FilterTruncate, MaxArgs: 4, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		lengthArg := argOrKeyword(args, kwargs, 0, "length", int64(255))
		length, ok := asInt(lengthArg)
		if !ok {
			return nil, filterTypeError(FilterTruncate, "int length", lengthArg)
		}
		killWords := IsTruthy(argOrKeyword(args, kwargs, 1, "killwords", false))
		end := Display(argOrKeyword(args, kwargs, 2, "end", "..."))
		leeway, ok := asInt(argOrKeyword(args, kwargs, 3, "leeway", int64(5)))
		if !ok {
			leeway = 5
		}
		runes := []rune(Display(v))
		if int64(len(runes)) <= length+leeway {
			return string(runes), nil
		}
		cut := int(length) - utf8.RuneCountInString(end)
		if cut < 0 {
			cut = 0
		}
		kept := string(runes[:cut])
		if !killWords {
			if idx := strings.LastIndex(kept, " "); idx >= 0 {
				kept = kept[:idx]
			}
		}
		return kept + end, nil
	}})

	r.MustRegister(&Filter{Name: FilterWordCount, Fn: func(v any, _ []any) (any, error) {
		return int64(len(strings.Fields(Display(v)))), nil
	}})

	r.MustRegister(&Filter{Name: FilterToJSON, MaxArgs: 1, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		indent := argOrKeyword(args, kwargs, 0, "indent", nil)
		var (
			data []byte
			err  error
		)
		if n, ok := asInt(indent); ok && n > 0 {
			data, err = json.MarshalIndent(v, "", strings.Repeat(" ", int(n)))
		} else {
			data, err = json.Marshal(v)
		}
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}})
}

func registerNumberFilters(r *FilterRegistry) {
	r.MustRegister(&Filter{Name: FilterAbs, Fn: func(v any, _ []any) (any, error) {
		n, ok := normalizeNumber(v)
		if !ok {
			return nil, filterTypeError(FilterAbs, "a number", v)
		}
		if i, isInt := n.(int64); isInt {
			if i < 0 {
				return -i, nil
			}
			return i, nil
		}
		return math.Abs(n.(float64)), nil
	}})

	r.MustRegister(&Filter{Name: FilterInt, MaxArgs: 1, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		def := argOrKeyword(args, kwargs, 0, "default", int64(0))
		if n, ok := ToInt(v); ok {
			return n, nil
		}
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return int64(f), nil
			}
		}
		if b, ok := v.(bool); ok {
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		}
		return def, nil
	}})

	r.MustRegister(&Filter{Name: FilterFloat, MaxArgs: 1, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		def := argOrKeyword(args, kwargs, 0, "default", float64(0))
		if f, ok := ToFloat(v); ok {
			return f, nil
		}
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f, nil
			}
		}
		return def, nil
	}})

	r.MustRegister(&Filter{Name: FilterRound, MaxArgs: 2, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		f, ok := ToFloat(v)
		if !ok {
			return nil, filterTypeError(FilterRound, "a number", v)
		}
		precisionArg := argOrKeyword(args, kwargs, 0, "precision", int64(0))
		precision, ok := asInt(precisionArg)
		if !ok {
			return nil, filterTypeError(FilterRound, "int precision", precisionArg)
		}
		method := Display(argOrKeyword(args, kwargs, 1, "method", "common"))
		// keep the scale finite and non-zero; beyond these bounds the
		// rounding is a no-op or collapses to zero anyway
		precision = max(min(precision, roundMaxPrecision), -roundMaxPrecision)
		scale := math.Pow(10, float64(precision))
		scaled := f * scale
		var rounded float64
		switch method {
		case "common":
			rounded = math.Round(scaled)
		case "ceil":
			rounded = math.Ceil(scaled)
		case "floor":
			rounded = math.Floor(scaled)
		default:
			return nil, fmt.Errorf("%s: round method must be common, ceil or floor", ErrMsgInvalidValue)
		}
		if math.IsInf(scaled, 0) {
			return f, nil
		}
		return rounded / scale, nil
	}})
}

func registerCollectionFilters(r *FilterRegistry) {
	length := func(v any, _ []any) (any, error) {
		n, ok := Length(v)
		if !ok {
			return nil, filterTypeError(FilterLength, "a sized value", v)
		}
		return int64(n), nil
	}
	r.MustRegister(&Filter{Name: FilterLength, Fn: length})
	r.MustRegister(&Filter{Name: FilterCount, Fn: length})

	defaultFilter := func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		def := argOrKeyword(args, kwargs, 0, "default_value", "")
		boolean := IsTruthy(argOrKeyword(args, kwargs, 1, "boolean", false))
		if v == nil || (boolean && !IsTruthy(v)) {
			return def, nil
		}
		return v, nil
	}
	r.MustRegister(&Filter{Name: FilterDefault, MaxArgs: 2, Fn: defaultFilter})
	r.MustRegister(&Filter{Name: FilterD, MaxArgs: 2, Fn: defaultFilter})

	r.MustRegister(&Filter{Name: FilterFirst, Fn: func(v any, _ []any) (any, error) {
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterFirst, "a sequence", v)
		}
		if len(items) == 0 {
			return nil, nil
		}
		return items[0], nil
	}})
	r.MustRegister(&Filter{Name: FilterLast, Fn: func(v any, _ []any) (any, error) {
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterLast, "a sequence", v)
		}
		if len(items) == 0 {
			return nil, nil
		}
		return items[len(items)-1], nil
	}})
	r.MustRegister(&Filter{Name: FilterList, Fn: func(v any, _ []any) (any, error) {
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterList, "an iterable", v)
		}
		out := make([]any, len(items))
		copy(out, items)
		return out, nil
	}})
	r.MustRegister(&Filter{Name: FilterReverse, Fn: func(v any, _ []any) (any, error) {
		if s, ok := v.(string); ok {
			runes := []rune(s)
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return string(runes), nil
		}
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterReverse, "a sequence", v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[len(items)-1-i] = item
		}
		return out, nil
	}})

	r.MustRegister(&Filter{Name: FilterJoin, MaxArgs: 2, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		sep := Display(argOrKeyword(args, kwargs, 0, "d", ""))
		attribute := argOrKeyword(args, kwargs, 1, "attribute", nil)
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterJoin, "an iterable", v)
		}
		parts := make([]string, len(items))
		for i, item := range items {
			if attribute != nil {
				m, err := r.member(item, Display(attribute))
				if err != nil {
					return nil, err
				}
				item = m
			}
			parts[i] = Display(item)
		}
		return strings.Join(parts, sep), nil
	}})

	r.MustRegister(&Filter{Name: FilterBatch, MinArgs: 1, MaxArgs: 2, Fn: func(v any, args []any) (any, error) {
		args, _ = SplitKwargs(args)
		size, ok := asInt(args[0])
		if !ok {
			return nil, filterTypeError(FilterBatch, "int size", args[0])
		}
		if size <= 0 {
			return nil, filterValueError(FilterBatch, "a positive size", args[0])
		}
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterBatch, "an iterable", v)
		}
		var out []any
		for start := 0; start < len(items); start += int(size) {
			end := start + int(size)
			if end > len(items) {
				end = len(items)
			}
			batch := append([]any{}, items[start:end]...)
			if len(args) == 2 {
				for len(batch) < int(size) {
					batch = append(batch, args[1])
				}
			}
			out = append(out, batch)
		}
		if out == nil {
			out = []any{}
		}
		return out, nil
	}})

	r.MustRegister(&Filter{Name: FilterItems, Fn: func(v any, _ []any) (any, error) {
		if v == nil {
			return []any{}, nil
		}
		m, ok := ToMap(v)
		if !ok {
			return nil, filterTypeError(FilterItems, "a mapping", v)
		}
		keys := sortedKeys(m)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = []any{k, m[k]}
		}
		return out, nil
	}})

	r.MustRegister(&Filter{Name: FilterDictSort, MaxArgs: 3, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		caseSensitive := IsTruthy(argOrKeyword(args, kwargs, 0, "case_sensitive", false))
		by := Display(argOrKeyword(args, kwargs, 1, "by", "key"))
		reverse := IsTruthy(argOrKeyword(args, kwargs, 2, "reverse", false))
		m, ok := ToMap(v)
		if !ok {
			return nil, filterTypeError(FilterDictSort, "a mapping", v)
		}
		pairs := make([]any, 0, len(m))
		for _, k := range sortedKeys(m) {
			pairs = append(pairs, []any{k, m[k]})
		}
		pos := 0
		if by == "value" {
			pos = 1
		}
		err := sortValues(pairs, reverse, func(item any) (any, error) {
			key := item.([]any)[pos]
			if s, ok := key.(string); ok && !caseSensitive {
				return strings.ToLower(s), nil
			}
			return key, nil
		})
		return pairs, err
	}})

	r.MustRegister(&Filter{Name: FilterUnique, MaxArgs: 2, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		caseSensitive := IsTruthy(argOrKeyword(args, kwargs, 0, "case_sensitive", false))
		attribute := argOrKeyword(args, kwargs, 1, "attribute", nil)
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterUnique, "an iterable", v)
		}
		out := []any{}
		var seen []any
		for _, item := range items {
			key := item
			if attribute != nil {
				m, err := r.member(item, Display(attribute))
				if err != nil {
					return nil, err
				}
				key = m
			}
			if s, ok := key.(string); ok && !caseSensitive {
				key = strings.ToLower(s)
			}
			dup := false
			for _, prev := range seen {
				if Equal(prev, key) {
					dup = true
					break
				}
			}
			if !dup {
				seen = append(seen, key)
				out = append(out, item)
			}
		}
		return out, nil
	}})

	r.MustRegister(&Filter{Name: FilterSort, MaxArgs: 3, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		reverse := IsTruthy(argOrKeyword(args, kwargs, 0, "reverse", false))
		caseSensitive := IsTruthy(argOrKeyword(args, kwargs, 1, "case_sensitive", false))
		attribute := argOrKeyword(args, kwargs, 2, "attribute", nil)
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterSort, "an iterable", v)
		}
		out := append([]any{}, items...)
		err := sortValues(out, reverse, r.sortKey(attribute, caseSensitive))
		return out, err
	}})

	extreme := func(name string, want int) FilterFunc {
		return func(v any, args []any) (any, error) {
			args, kwargs := SplitKwargs(args)
			caseSensitive := IsTruthy(argOrKeyword(args, kwargs, 0, "case_sensitive", false))
			attribute := argOrKeyword(args, kwargs, 1, "attribute", nil)
			items, ok := Iterate(v)
			if !ok {
				return nil, filterTypeError(name, "an iterable", v)
			}
			keyOf := r.sortKey(attribute, caseSensitive)
			var best, bestKey any
			for i, item := range items {
				key, err := keyOf(item)
				if err != nil {
					return nil, err
				}
				if i == 0 {
					best, bestKey = item, key
					continue
				}
				c, err := Compare(key, bestKey)
				if err != nil {
					return nil, err
				}
				if c == want {
					best, bestKey = item, key
				}
			}
			return best, nil
		}
	}
	r.MustRegister(&Filter{Name: FilterMax, MaxArgs: 2, Fn: extreme(FilterMax, 1)})
	r.MustRegister(&Filter{Name: FilterMin, MaxArgs: 2, Fn: extreme(FilterMin, -1)})

	r.MustRegister(&Filter{Name: FilterSum, MaxArgs: 2, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		attribute := argOrKeyword(args, kwargs, 0, "attribute", nil)
		total := argOrKeyword(args, kwargs, 1, "start", int64(0))
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterSum, "an iterable", v)
		}
		for _, item := range items {
			if attribute != nil {
				m, err := r.member(item, Display(attribute))
				if err != nil {
					return nil, err
				}
				item = m
			}
			next, err := Arithmetic(OpAdd, total, item)
			if err != nil {
				return nil, err
			}
			total = next
		}
		return total, nil
	}})
}

func registerAttributeFilters(r *FilterRegistry) {
	r.MustRegister(&Filter{Name: FilterAttr, MinArgs: 1, MaxArgs: 1, Fn: func(v any, args []any) (any, error) {
		if v == nil {
			return nil, nil
		}
		return r.accessor.GetMember(v, Display(args[0]))
	}})

	r.MustRegister(&Filter{Name: FilterMap, MaxArgs: -1, Fn: func(v any, args []any) (any, error) {
		args, kwargs := SplitKwargs(args)
		items, ok := Iterate(v)
		if !ok {
			return nil, filterTypeError(FilterMap, "an iterable", v)
		}
		out := make([]any, len(items))
		if attribute, ok := kwargs["attribute"]; ok {
			def, hasDefault := kwargs["default"]
			for i, item := range items {
				m, err := r.member(item, Display(attribute))
				if err != nil {
					return nil, err
				}
				if m == nil && hasDefault {
					m = def
				}
				out[i] = m
			}
			return out, nil
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: map needs a filter name or attribute", ErrMsgArgCount)
		}
		name := Display(args[0])
		rest := args[1:]
		if len(kwargs) > 0 {
			rest = append(append([]any{}, rest...), kwargs)
		}
		for i, item := range items {
			mapped, err := r.Apply(name, item, rest)
			if err != nil {
				return nil, err
			}
			out[i] = mapped
		}
		return out, nil
	}})

	selectAttr := func(name string, keep bool) FilterFunc {
		return func(v any, args []any) (any, error) {
			args, _ = SplitKwargs(args)
			items, ok := Iterate(v)
			if !ok {
				return nil, filterTypeError(name, "an iterable", v)
			}
			attribute := Display(args[0])
			test := ""
			if len(args) > 1 {
				test = Display(args[1])
			}
			out := []any{}
			for _, item := range items {
				m, err := r.member(item, attribute)
				if err != nil {
					return nil, err
				}
				ok, err := SimpleTest(test, m, args[min(2, len(args)):])
				if err != nil {
					return nil, err
				}
				if ok == keep {
					out = append(out, item)
				}
			}
			return out, nil
		}
	}
	r.MustRegister(&Filter{Name: FilterSelectAttr, MinArgs: 1, MaxArgs: 3, Fn: selectAttr(FilterSelectAttr, true)})
	r.MustRegister(&Filter{Name: FilterRejectAttr, MinArgs: 1, MaxArgs: 3, Fn: selectAttr(FilterRejectAttr, false)})
}

// SimpleTest applies a named test used by selectattr and rejectattr. An
// empty name tests truthiness.
func SimpleTest(name string, v any, args []any) (bool, error) {
	switch name {
	case "":
		return IsTruthy(v), nil
	case TestDefined:
		return v != nil, nil
	case TestUndefined, TestNone:
		return v == nil, nil
	case TestTrue:
		b, ok := v.(bool)
		return ok && b, nil
	case TestFalse:
		b, ok := v.(bool)
		return ok && !b, nil
	case TestOdd, TestEven:
		n, ok := asInt(v)
		return ok && (n%2 != 0) == (name == TestOdd), nil
	case TestString:
		_, ok := v.(string)
		return ok, nil
	case TestNumber:
		return IsNumber(v), nil
	case "equalto", "eq", "==", "sameas":
		if len(args) == 0 {
			return false, fmt.Errorf("%s: %s test needs a value", ErrMsgArgCount, name)
		}
		return Equal(v, args[0]), nil
	case "ne", "!=":
		if len(args) == 0 {
			return false, fmt.Errorf("%s: %s test needs a value", ErrMsgArgCount, name)
		}
		return !Equal(v, args[0]), nil
	case "in":
		if len(args) == 0 {
			return false, fmt.Errorf("%s: %s test needs a value", ErrMsgArgCount, name)
		}
		return Contains(args[0], v)
	}
	return false, fmt.Errorf("%s %q", ErrMsgUnknownTest, name)
}

// sortKey builds the key function used by sort, min and max
func (r *FilterRegistry) sortKey(attribute any, caseSensitive bool) func(any) (any, error) {
	return func(item any) (any, error) {
		key := item
		if attribute != nil {
			m, err := r.member(item, Display(attribute))
			if err != nil {
				return nil, err
			}
			key = m
		}
		if s, ok := key.(string); ok && !caseSensitive {
			return strings.ToLower(s), nil
		}
		return key, nil
	}
}

// sortValues sorts items stably by key; incomparable keys fail the sort
func sortValues(items []any, reverse bool, keyOf func(any) (any, error)) error {
	keys := make([]any, len(items))
	for i, item := range items {
		k, err := keyOf(item)
		if err != nil {
			return err
		}
		keys[i] = k
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(a, b int) bool {
		c, err := Compare(keys[idx[a]], keys[idx[b]])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		if reverse {
			return c > 0
		}
		return c < 0
	})
	if sortErr != nil {
		return sortErr
	}
	sorted := make([]any, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
	return nil
}

func parseIndex(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
