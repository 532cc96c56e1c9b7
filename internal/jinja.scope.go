package internal

import "sort"

// Namespace is the global variable namespace of a render: context values,
// top-level assignments mirrored by set, and macro definitions.
type Namespace struct {
	vars map[string]any
}

// NewNamespace creates a namespace holding a copy of initial
func NewNamespace(initial map[string]any) *Namespace {
	vars := make(map[string]any, len(initial))
	for k, v := range initial {
		vars[k] = v
	}
	return &Namespace{vars: vars}
}

// WrapNamespace uses m directly as namespace storage; writes are visible in m
func WrapNamespace(m map[string]any) *Namespace {
	if m == nil {
		m = make(map[string]any)
	}
	return &Namespace{vars: m}
}

// Get returns the value bound to name
func (n *Namespace) Get(name string) (any, bool) {
	v, ok := n.vars[name]
	return v, ok
}

// Set binds name to value
func (n *Namespace) Set(name string, value any) {
	n.vars[name] = value
}

// Delete removes name
func (n *Namespace) Delete(name string) {
	delete(n.vars, name)
}

// Len returns the number of bound names
func (n *Namespace) Len() int {
	return len(n.vars)
}

// Names returns the bound names in sorted order
func (n *Namespace) Names() []string {
	return sortedKeys(n.vars)
}

// Clone returns an independent shallow copy
func (n *Namespace) Clone() *Namespace {
	return NewNamespace(n.vars)
}

// Snapshot returns a shallow copy of the bindings
func (n *Namespace) Snapshot() map[string]any {
	out := make(map[string]any, len(n.vars))
	for k, v := range n.vars {
		out[k] = v
	}
	return out
}

type nameSet map[string]struct{}

func (s nameSet) add(name string) { s[name] = struct{}{} }

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s nameSet) sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Frame is one level of the scope stack. Besides its variables it tracks
// which names were assigned and how, which drives what gets copied back to
// the parent when a block exits.
type Frame struct {
	vars       map[string]any
	declared   nameSet // assigned by a set statement running directly in this frame
	touched    nameSet // declared here or merged back from a nested if block
	propagated nameSet // merged up from a nested loop
	iteration  nameSet // assigned with a loop-scoped set; cleared per iteration
}

// NewFrame creates an empty frame
func NewFrame() *Frame {
	return &Frame{
		vars:       make(map[string]any),
		declared:   make(nameSet),
		touched:    make(nameSet),
		propagated: make(nameSet),
		iteration:  make(nameSet),
	}
}

// Get returns the value bound in this frame
func (f *Frame) Get(name string) (any, bool) {
	v, ok := f.vars[name]
	return v, ok
}

// Has reports whether name is bound in this frame
func (f *Frame) Has(name string) bool {
	_, ok := f.vars[name]
	return ok
}

// Bind sets a value without recording an assignment (loop variables, arguments)
func (f *Frame) Bind(name string, value any) {
	f.vars[name] = value
}

// Assign records a set statement executed directly in this frame
func (f *Frame) Assign(name string, value any) {
	f.vars[name] = value
	f.declared.add(name)
	f.touched.add(name)
}

// AssignIteration records a loop-scoped set; the binding is dropped at the
// end of the current loop iteration
func (f *Frame) AssignIteration(name string, value any) {
	f.vars[name] = value
	f.iteration.add(name)
}

// ClearIteration removes loop-scoped bindings
func (f *Frame) ClearIteration() {
	for name := range f.iteration {
		delete(f.vars, name)
	}
	f.iteration = make(nameSet)
}

// Declared returns names assigned directly in this frame, sorted
func (f *Frame) Declared() []string {
	return f.declared.sorted()
}

// Touched returns names assigned in or merged back into this frame, sorted
func (f *Frame) Touched() []string {
	return f.touched.sorted()
}

// Propagated returns names merged up from nested loops, sorted
func (f *Frame) Propagated() []string {
	return f.propagated.sorted()
}

// copyFrom copies every binding of src into f without tracking
func (f *Frame) copyFrom(src *Frame) {
	for k, v := range src.vars {
		f.vars[k] = v
	}
}

// Scope is the frame stack of a render plus its global namespace. Lookups
// consult the current frame, then its parent, then the namespace.
type Scope struct {
	frames  []*Frame
	globals *Namespace
}

// NewScope creates a scope holding only the global frame
func NewScope(globals *Namespace) *Scope {
	if globals == nil {
		globals = NewNamespace(nil)
	}
	return &Scope{
		frames:  []*Frame{NewFrame()},
		globals: globals,
	}
}

// Globals returns the global namespace
func (s *Scope) Globals() *Namespace {
	return s.globals
}

// Depth returns the number of frames; the global frame is depth 1
func (s *Scope) Depth() int {
	return len(s.frames)
}

// Current returns the innermost frame
func (s *Scope) Current() *Frame {
	return s.frames[len(s.frames)-1]
}

// Parent returns the frame below the current one, or nil at depth 1
func (s *Scope) Parent() *Frame {
	if len(s.frames) < 2 {
		return nil
	}
	return s.frames[len(s.frames)-2]
}

// Lookup resolves name: current frame, then parent frame, then globals
func (s *Scope) Lookup(name string) (any, bool) {
	if v, ok := s.Current().Get(name); ok {
		return v, true
	}
	if parent := s.Parent(); parent != nil {
		if v, ok := parent.Get(name); ok {
			return v, true
		}
	}
	return s.globals.Get(name)
}

// Assign binds name in the current frame and mirrors it into globals
func (s *Scope) Assign(name string, value any) {
	s.Current().Assign(name, value)
	s.globals.Set(name, value)
}

// push adds a frame; when copyParent is set the new frame starts with
// every binding of the current frame
func (s *Scope) push(copyParent bool) *Frame {
	f := NewFrame()
	if copyParent {
		f.copyFrom(s.Current())
	}
	s.frames = append(s.frames, f)
	return f
}

// pop removes the innermost frame; the global frame is never removed
func (s *Scope) pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// With pushes a frame, runs fn with it, and pops the frame on every exit
// path including errors and panics.
func (s *Scope) With(copyParent bool, fn func(f *Frame) error) error {
	f := s.push(copyParent)
	defer s.pop()
	return fn(f)
}

// MergeTouched copies every touched name of child into parent, marking them
// touched there so an enclosing block sees them in turn. Names set directly
// in child count as set directly in parent, and names that reached child
// from a nested loop keep that mark.
func MergeTouched(parent, child *Frame) {
	for name := range child.touched {
		if v, ok := child.vars[name]; ok {
			parent.vars[name] = v
			parent.touched.add(name)
			if child.declared.has(name) {
				parent.declared.add(name)
			}
			if child.propagated.has(name) {
				parent.propagated.add(name)
			}
		}
	}
}

// MergePropagated copies the given names from child into parent and marks
// them as propagated there.
func MergePropagated(parent, child *Frame, names []string) {
	for _, name := range names {
		if v, ok := child.vars[name]; ok {
			parent.vars[name] = v
			parent.touched.add(name)
			parent.propagated.add(name)
		}
	}
}

// Promote copies the given names from child into parent, marking them touched
func Promote(parent, child *Frame, names []string) {
	for _, name := range names {
		if v, ok := child.vars[name]; ok {
			parent.vars[name] = v
			parent.touched.add(name)
		}
	}
}
