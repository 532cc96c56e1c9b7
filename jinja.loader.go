package jinja

import (
	"context"
	"sort"
	"sync"
)

// SourceLoader supplies template source by name. Implementations must be
// safe for concurrent use.
type SourceLoader interface {
	// Load returns the source of the named template, or a not-found error
	Load(ctx context.Context, name string) (string, error)
}

// WatchableLoader is a SourceLoader that reports changed templates. Watch
// returns once notification is set up; onChange is called with the template
// name until ctx is done or the loader is closed.
type WatchableLoader interface {
	SourceLoader
	Watch(ctx context.Context, onChange func(name string)) error
}

// nameNormalizer is implemented by loaders that accept several spellings of
// one template name. The engine caches under the normalized name.
type nameNormalizer interface {
	normalizeName(name string) string
}

// MemoryLoader serves templates from an in-memory map.
// It is primarily intended for testing and for hosts that embed templates.
type MemoryLoader struct {
	mu      sync.RWMutex
	sources map[string]string
}

// NewMemoryLoader creates a loader holding a copy of sources
func NewMemoryLoader(sources map[string]string) *MemoryLoader {
	l := &MemoryLoader{sources: make(map[string]string, len(sources))}
	for name, src := range sources {
		l.sources[name] = src
	}
	return l
}

// Load returns the source registered under name.
func (l *MemoryLoader) Load(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	src, ok := l.sources[name]
	if !ok {
		return "", NewTemplateNotFoundError(name)
	}
	return src, nil
}

// Set adds or replaces a template source.
func (l *MemoryLoader) Set(name, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources[name] = source
}

// Delete removes a template source.
func (l *MemoryLoader) Delete(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sources, name)
}

// Names returns the registered template names, sorted.
func (l *MemoryLoader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.sources))
	for name := range l.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
