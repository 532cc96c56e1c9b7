package jinja

import (
	"sync"

	"github.com/itsatony/go-jinja/internal"
)

// Globals is a variable namespace that can be carried across renders.
// Rendered with reuse, it collects the top-level assignments and macro
// definitions of every template rendered into it.
type Globals struct {
	mu sync.Mutex
	ns *internal.Namespace
}

// NewGlobals creates a namespace holding a copy of initial
func NewGlobals(initial map[string]any) *Globals {
	return &Globals{ns: internal.NewNamespace(initial)}
}

// Get returns the value bound to name
func (g *Globals) Get(name string) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ns.Get(name)
}

// Set binds name to value
func (g *Globals) Set(name string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ns.Set(name, value)
}

// Delete removes name
func (g *Globals) Delete(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ns.Delete(name)
}

// Names returns the bound names in sorted order
func (g *Globals) Names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ns.Names()
}

// Len returns the number of bound names
func (g *Globals) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ns.Len()
}

// Snapshot returns a shallow copy of the bindings
func (g *Globals) Snapshot() map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ns.Snapshot()
}

// Clone returns an independent copy
func (g *Globals) Clone() *Globals {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &Globals{ns: g.ns.Clone()}
}
