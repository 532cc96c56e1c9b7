package internal

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Built-in global function names
const (
	FuncNameRange     = "range"
	FuncNameDict      = "dict"
	FuncNameNamespace = "namespace"
)

// Function is a global function resolved when no scope binding shadows it
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for variadic
	Fn      Func
}

// FuncRegistry manages global functions
type FuncRegistry struct {
	funcs map[string]*Function
	mu    sync.RWMutex
}

// NewFuncRegistry creates a registry holding the built-in functions
func NewFuncRegistry() *FuncRegistry {
	r := &FuncRegistry{
		funcs: make(map[string]*Function),
	}
	RegisterBuiltinFuncs(r)
	return r
}

// Register adds a function to the registry
func (r *FuncRegistry) Register(f *Function) error {
	if f == nil || f.Fn == nil {
		return errors.New(ErrMsgFuncNil)
	}
	if f.Name == "" {
		return errors.New(ErrMsgFuncEmptyName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[f.Name]; exists {
		return fmt.Errorf("%s: %s", ErrMsgFuncAlreadyExists, f.Name)
	}
	r.funcs[f.Name] = f
	return nil
}

// MustRegister adds a function and panics on error
func (r *FuncRegistry) MustRegister(f *Function) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Has checks if a function is registered
func (r *FuncRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.funcs[name]
	return ok
}

// Call invokes a function by name after checking its positional argument count
func (r *FuncRegistry) Call(name string, args []any, kwargs map[string]any) (any, error) {
	r.mu.RLock()
	f, ok := r.funcs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s '%s'", ErrMsgUnknownFunction, name)
	}
	if len(args) < f.MinArgs {
		return nil, fmt.Errorf("%s: %s (expected at least %d, got %d)", ErrMsgArgCount, name, f.MinArgs, len(args))
	}
	if f.MaxArgs >= 0 && len(args) > f.MaxArgs {
		return nil, fmt.Errorf("%s: %s (expected at most %d, got %d)", ErrMsgArgCount, name, f.MaxArgs, len(args))
	}
	return f.Fn(args, kwargs)
}

// List returns all registered function names, sorted
func (r *FuncRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltinFuncs registers range, dict and namespace
func RegisterBuiltinFuncs(r *FuncRegistry) {
	// range([start,] stop[, step]); start, stop and step may also be keywords
	r.MustRegister(&Function{
		Name:    FuncNameRange,
		MinArgs: 0,
		MaxArgs: 3,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			var start, stop, step any = int64(0), nil, int64(1)
			switch len(args) {
			case 1:
				stop = args[0]
			case 2:
				start, stop = args[0], args[1]
			case 3:
				start, stop, step = args[0], args[1], args[2]
			}
			if v, ok := kwargs["start"]; ok {
				start = v
			}
			if v, ok := kwargs["stop"]; ok {
				stop = v
			}
			if v, ok := kwargs["step"]; ok {
				step = v
			}
			if stop == nil {
				return nil, fmt.Errorf("%s: range needs a stop value", ErrMsgArgCount)
			}
			return Range(start, stop, step)
		},
	})

	// dict(**kwargs)
	r.MustRegister(&Function{
		Name:    FuncNameDict,
		MinArgs: 0,
		MaxArgs: 0,
		Fn: func(_ []any, kwargs map[string]any) (any, error) {
			out := make(map[string]any, len(kwargs))
			for k, v := range kwargs {
				out[k] = v
			}
			return out, nil
		},
	})

	// namespace(**kwargs) is a mutable map whose attributes can be set
	// from inside loops
	r.MustRegister(&Function{
		Name:    FuncNameNamespace,
		MinArgs: 0,
		MaxArgs: 1,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			out := make(map[string]any, len(kwargs))
			if len(args) == 1 {
				m, ok := ToMap(args[0])
				if !ok {
					return nil, fmt.Errorf("%s: namespace expects a mapping, got %s", ErrMsgTypeMismatch, TypeName(args[0]))
				}
				for k, v := range m {
					out[k] = v
				}
			}
			for k, v := range kwargs {
				out[k] = v
			}
			return out, nil
		},
	})
}

// Range returns the integers from start towards stop by step, excluding stop
func Range(start, stop, step any) ([]any, error) {
	from, ok := asInt(start)
	if !ok {
		return nil, fmt.Errorf("%s: range start must be int, not %s", ErrMsgTypeMismatch, TypeName(start))
	}
	to, ok := asInt(stop)
	if !ok {
		return nil, fmt.Errorf("%s: range stop must be int, not %s", ErrMsgTypeMismatch, TypeName(stop))
	}
	by, ok := asInt(step)
	if !ok {
		return nil, fmt.Errorf("%s: range step must be int, not %s", ErrMsgTypeMismatch, TypeName(step))
	}
	if by == 0 {
		return nil, errors.New(ErrMsgRangeStepZero)
	}
	// count the values up front in unsigned space so stepping never
	// overflows near the int64 bounds
	var span, stride uint64
	switch {
	case by > 0 && from < to:
		span, stride = uint64(to)-uint64(from), uint64(by)
	case by < 0 && from > to:
		span, stride = uint64(from)-uint64(to), uint64(-by)
	default:
		return []any{}, nil
	}
	count := (span-1)/stride + 1
	if count > MaxSequenceLength {
		return nil, fmt.Errorf("%s: range of %d values", ErrMsgSequenceTooLarge, count)
	}

	out := make([]any, 0, count)
	for i, v := uint64(0), from; i < count; i++ {
		out = append(out, v)
		if i+1 < count {
			v += by
		}
	}
	return out, nil
}

// Function registry error message constants
const (
	ErrMsgFuncNil           = "function cannot be nil"
	ErrMsgFuncEmptyName     = "function name cannot be empty"
	ErrMsgFuncAlreadyExists = "function already registered"
	ErrMsgRangeStepZero     = "range step cannot be zero"
)
