package internal

import (
	"fmt"
	"strings"
)

// Built-in method names
const (
	MethodCycle      = "cycle"
	MethodUpper      = "upper"
	MethodLower      = "lower"
	MethodStrip      = "strip"
	MethodLstrip     = "lstrip"
	MethodRstrip     = "rstrip"
	MethodSplit      = "split"
	MethodStartsWith = "startswith"
	MethodEndsWith   = "endswith"
	MethodReplace    = "replace"
	MethodTitle      = "title"
	MethodCapitalize = "capitalize"
	MethodCount      = "count"
	MethodFind       = "find"
	MethodJoin       = "join"
	MethodItems      = "items"
	MethodKeys       = "keys"
	MethodValues     = "values"
	MethodGet        = "get"
	MethodIndex      = "index"
)

// CallBuiltinMethod runs a built-in method of strings, maps and lists.
// handled is false when obj has no built-in method of that name.
func CallBuiltinMethod(obj any, name string, args []any, kwargs map[string]any) (result any, handled bool, err error) {
	if len(kwargs) > 0 {
		return nil, false, nil
	}
	if s, ok := obj.(string); ok {
		return stringMethod(s, name, args)
	}
	if m, ok := ToMap(obj); ok {
		return mapMethod(m, name, args)
	}
	if list, ok := ToList(obj); ok {
		return listMethod(list, name, args)
	}
	return nil, false, nil
}

func checkArgs(name string, args []any, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return fmt.Errorf("%s: %s() takes %d to %d arguments, got %d", ErrMsgArgCount, name, min, max, len(args))
	}
	return nil
}

func stringArg(name string, args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%s: %s() argument %d must be string, not %s", ErrMsgTypeMismatch, name, i+1, TypeName(args[i]))
	}
	return s, nil
}

func stringMethod(s, name string, args []any) (any, bool, error) {
	switch name {
	case MethodUpper:
		return strings.ToUpper(s), true, checkArgs(name, args, 0, 0)
	case MethodLower:
		return strings.ToLower(s), true, checkArgs(name, args, 0, 0)
	case MethodTitle:
		return TitleCase(s), true, checkArgs(name, args, 0, 0)
	case MethodCapitalize:
		return Capitalize(s), true, checkArgs(name, args, 0, 0)
	case MethodStrip, MethodLstrip, MethodRstrip:
		if err := checkArgs(name, args, 0, 1); err != nil {
			return nil, true, err
		}
		cutset := AllWhitespace
		if len(args) == 1 && args[0] != nil {
			c, err := stringArg(name, args, 0)
			if err != nil {
				return nil, true, err
			}
			cutset = c
		}
		switch name {
		case MethodLstrip:
			return strings.TrimLeft(s, cutset), true, nil
		case MethodRstrip:
			return strings.TrimRight(s, cutset), true, nil
		}
		return strings.Trim(s, cutset), true, nil
	case MethodSplit:
		if err := checkArgs(name, args, 0, 2); err != nil {
			return nil, true, err
		}
		return splitString(s, args)
	case MethodStartsWith, MethodEndsWith, MethodCount, MethodFind:
		if err := checkArgs(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		sub, err := stringArg(name, args, 0)
		if err != nil {
			return nil, true, err
		}
		switch name {
		case MethodStartsWith:
			return strings.HasPrefix(s, sub), true, nil
		case MethodEndsWith:
			return strings.HasSuffix(s, sub), true, nil
		case MethodCount:
			return int64(strings.Count(s, sub)), true, nil
		}
		idx := strings.Index(s, sub)
		if idx < 0 {
			return int64(-1), true, nil
		}
		return int64(len([]rune(s[:idx]))), true, nil
	case MethodReplace:
		if err := checkArgs(name, args, 2, 3); err != nil {
			return nil, true, err
		}
		old, err := stringArg(name, args, 0)
		if err != nil {
			return nil, true, err
		}
		repl, err := stringArg(name, args, 1)
		if err != nil {
			return nil, true, err
		}
		count := -1
		if len(args) == 3 {
			n, ok := asInt(args[2])
			if !ok {
				return nil, true, fmt.Errorf("%s: replace() count must be int", ErrMsgTypeMismatch)
			}
			count = int(n)
		}
		return strings.Replace(s, old, repl, count), true, nil
	case MethodJoin:
		if err := checkArgs(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		items, ok := Iterate(args[0])
		if !ok {
			return nil, true, fmt.Errorf("%s: %s", ErrMsgNotIterable, TypeName(args[0]))
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = Display(item)
		}
		return strings.Join(parts, s), true, nil
	}
	return nil, false, nil
}

func splitString(s string, args []any) (any, bool, error) {
	var parts []string
	maxSplit := -1
	if len(args) == 2 {
		n, ok := asInt(args[1])
		if !ok {
			return nil, true, fmt.Errorf("%s: split() maxsplit must be int", ErrMsgTypeMismatch)
		}
		maxSplit = int(n)
	}
	if len(args) == 0 || args[0] == nil {
		parts = strings.Fields(s)
		if maxSplit >= 0 && len(parts) > maxSplit+1 {
			rest := strings.TrimLeft(s, AllWhitespace)
			for i := 0; i < maxSplit; i++ {
				rest = strings.TrimLeft(rest[len(parts[i]):], AllWhitespace)
			}
			parts = append(parts[:maxSplit:maxSplit], rest)
		}
	} else {
		sep, err := stringArg(MethodSplit, args, 0)
		if err != nil {
			return nil, true, err
		}
		if sep == "" {
			return nil, true, fmt.Errorf("%s: empty separator", ErrMsgTypeMismatch)
		}
		if maxSplit >= 0 {
			parts = strings.SplitN(s, sep, maxSplit+1)
		} else {
			parts = strings.Split(s, sep)
		}
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, true, nil
}

func mapMethod(m map[string]any, name string, args []any) (any, bool, error) {
	switch name {
	case MethodItems:
		keys := sortedKeys(m)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = []any{k, m[k]}
		}
		return out, true, checkArgs(name, args, 0, 0)
	case MethodKeys:
		keys := sortedKeys(m)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, true, checkArgs(name, args, 0, 0)
	case MethodValues:
		keys := sortedKeys(m)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = m[k]
		}
		return out, true, checkArgs(name, args, 0, 0)
	case MethodGet:
		if err := checkArgs(name, args, 1, 2); err != nil {
			return nil, true, err
		}
		key, ok := args[0].(string)
		if !ok {
			key = Display(args[0])
		}
		if v, exists := m[key]; exists {
			return v, true, nil
		}
		if len(args) == 2 {
			return args[1], true, nil
		}
		return nil, true, nil
	}
	return nil, false, nil
}

func listMethod(list []any, name string, args []any) (any, bool, error) {
	switch name {
	case MethodCount:
		if err := checkArgs(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		n := 0
		for _, item := range list {
			if Equal(item, args[0]) {
				n++
			}
		}
		return int64(n), true, nil
	case MethodIndex:
		if err := checkArgs(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		for i, item := range list {
			if Equal(item, args[0]) {
				return int64(i), true, nil
			}
		}
		return nil, true, fmt.Errorf("%s is not in list", Repr(args[0]))
	}
	return nil, false, nil
}
