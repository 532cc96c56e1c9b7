package internal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FilterFunc transforms a value. Keyword arguments arrive as a trailing Kwargs.
type FilterFunc func(value any, args []any) (any, error)

// Kwargs carries the keyword arguments of a filter call as its last argument
type Kwargs map[string]any

// Filter is a registered filter
type Filter struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for variadic
	Fn      FilterFunc
}

// FilterRegistry resolves filter names. A registry created with
// NewFilterOverlay consults its own filters first and then its parent, so
// custom filters shadow built-ins without changing them.
type FilterRegistry struct {
	filters  map[string]*Filter
	parent   *FilterRegistry
	accessor MemberAccessor
	mu       sync.RWMutex
}

// NewFilterRegistry creates a registry holding the built-in filters
func NewFilterRegistry(accessor MemberAccessor) *FilterRegistry {
	if accessor == nil {
		accessor = ReflectAccessor{}
	}
	r := &FilterRegistry{
		filters:  make(map[string]*Filter),
		accessor: accessor,
	}
	RegisterBuiltinFilters(r)
	return r
}

// NewFilterOverlay creates an empty registry layered over parent
func NewFilterOverlay(parent *FilterRegistry) *FilterRegistry {
	r := &FilterRegistry{
		filters: make(map[string]*Filter),
		parent:  parent,
	}
	if parent != nil {
		r.accessor = parent.accessor
	} else {
		r.accessor = ReflectAccessor{}
	}
	return r
}

// Register adds a filter; registering a name twice in one registry fails
func (r *FilterRegistry) Register(f *Filter) error {
	if f == nil || f.Fn == nil {
		return errors.New(ErrMsgFilterNil)
	}
	if f.Name == "" {
		return errors.New(ErrMsgFilterEmptyName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.filters[f.Name]; exists {
		return fmt.Errorf("%s: %s", ErrMsgFilterExists, f.Name)
	}
	r.filters[f.Name] = f
	return nil
}

// MustRegister adds a filter and panics on error
func (r *FilterRegistry) MustRegister(f *Filter) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Set binds name to fn, replacing any filter of that name in this registry
func (r *FilterRegistry) Set(name string, fn FilterFunc) error {
	if name == "" {
		return errors.New(ErrMsgFilterEmptyName)
	}
	if fn == nil {
		return errors.New(ErrMsgFilterNil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = &Filter{Name: name, MaxArgs: -1, Fn: fn}
	return nil
}

// Lookup returns the filter bound to name
func (r *FilterRegistry) Lookup(name string) (*Filter, bool) {
	r.mu.RLock()
	f, ok := r.filters[name]
	r.mu.RUnlock()
	if ok {
		return f, true
	}
	if r.parent != nil {
		return r.parent.Lookup(name)
	}
	return nil, false
}

// Has reports whether name resolves to a filter
func (r *FilterRegistry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns every resolvable filter name, sorted
func (r *FilterRegistry) Names() []string {
	seen := make(map[string]bool)
	for reg := r; reg != nil; reg = reg.parent {
		reg.mu.RLock()
		for name := range reg.filters {
			seen[name] = true
		}
		reg.mu.RUnlock()
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs the named filter after checking its positional argument count
func (r *FilterRegistry) Apply(name string, value any, args []any) (any, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s %q", ErrMsgUnknownFilter, name)
	}
	positional, _ := SplitKwargs(args)
	n := len(positional)
	if n < f.MinArgs || (f.MaxArgs >= 0 && n > f.MaxArgs) {
		return nil, fmt.Errorf("%s: filter %s takes %d to %d arguments, got %d", ErrMsgArgCount, name, f.MinArgs, f.MaxArgs, n)
	}
	return f.Fn(value, args)
}

// SplitKwargs separates a trailing Kwargs from positional arguments
func SplitKwargs(args []any) ([]any, Kwargs) {
	if len(args) > 0 {
		if kw, ok := args[len(args)-1].(Kwargs); ok {
			return args[:len(args)-1], kw
		}
	}
	return args, nil
}

// argOrKeyword returns positional argument i, else the keyword name, else def
func argOrKeyword(args []any, kwargs Kwargs, i int, name string, def any) any {
	if i < len(args) {
		return args[i]
	}
	if v, ok := kwargs[name]; ok {
		return v
	}
	return def
}

// TitleCase upper-cases the first letter of each word and lower-cases the rest
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// Capitalize upper-cases the first character and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(cases.Lower(language.Und).String(s))
	first := cases.Upper(language.Und).String(string(runes[0]))
	return first + string(runes[1:])
}

// member resolves a possibly dotted attribute path against v
func (r *FilterRegistry) member(v any, path string) (any, error) {
	for _, part := range strings.Split(path, ".") {
		if v == nil {
			return nil, nil
		}
		if m, ok := v.(map[string]any); ok {
			v = m[part]
			continue
		}
		if list, ok := ToList(v); ok {
			if i, err := parseIndex(part); err == nil {
				if pos, ok := wrapIndex(i, len(list)); ok {
					v = list[pos]
					continue
				}
				return nil, nil
			}
		}
		next, err := r.accessor.GetMember(v, part)
		if err != nil {
			return nil, err
		}
		v = next
	}
	return v, nil
}

// Filter registry error message constants
const (
	ErrMsgFilterNil       = "filter function cannot be nil"
	ErrMsgFilterEmptyName = "filter name cannot be empty"
	ErrMsgFilterExists    = "filter already registered"
)
