package jinja

import (
	"context"
	"sync"

	"github.com/itsatony/go-jinja/internal"
)

// Template is a compiled template that can be rendered many times, also
// concurrently. Each render works on its own namespace.
type Template struct {
	name   string
	source string
	tokens []Token
	root   *internal.TemplateNode
	engine *Engine

	mu       sync.RWMutex // Protects filters and renderer
	filters  *internal.FilterRegistry
	renderer *internal.Renderer
}

// newTemplate creates a template bound to the engine's shared renderer
func newTemplate(name, source string, tokens []Token, root *internal.TemplateNode, engine *Engine) *Template {
	return &Template{
		name:     name,
		source:   source,
		tokens:   tokens,
		root:     root,
		engine:   engine,
		renderer: engine.renderer,
	}
}

// Name returns the loader name of the template, empty for compiled sources.
func (t *Template) Name() string {
	return t.name
}

// Source returns the original template source.
func (t *Template) Source() string {
	return t.source
}

// Tokens returns a copy of the token stream the template was parsed from.
func (t *Template) Tokens() []Token {
	out := make([]Token, len(t.tokens))
	copy(out, t.tokens)
	return out
}

// AST returns the root of the parsed tree. The tree is shared; callers must
// not modify it.
func (t *Template) AST() *TemplateNode {
	return t.root
}

// RegisterFilter binds a filter for this template only. It shadows built-in
// and engine filters of the same name and leaves other templates untouched.
func (t *Template) RegisterFilter(name string, fn FilterFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.filters == nil {
		t.filters = internal.NewFilterOverlay(t.engine.filters)
	}
	if err := registerFilter(t.filters, name, fn); err != nil {
		return err
	}
	t.renderer = t.engine.newRenderer(t.filters)
	return nil
}

// Render renders the template against a flat name/value map.
func (t *Template) Render(ctx context.Context, data map[string]any) (string, error) {
	return t.render(ctx, t.engine.namespace(data))
}

// RenderObject renders the template against the public members of a host
// value. Maps are used as-is; structs are enumerated once through the
// engine's member accessor.
func (t *Template) RenderObject(ctx context.Context, obj any) (string, error) {
	if obj == nil {
		return "", NewValidationError(ErrMsgNilContext, t.name)
	}
	if data, ok := obj.(map[string]any); ok {
		return t.Render(ctx, data)
	}

	enumerator, ok := t.engine.accessor().(MemberEnumerator)
	if !ok {
		enumerator = ReflectAccessor{}
	}
	data, err := enumerator.Members(obj)
	if err != nil {
		return "", NewConfigError(ErrMsgContextObject, err)
	}
	return t.Render(ctx, data)
}

// RenderGlobals renders the template against a prepared namespace. With
// reuse the template's assignments and macro definitions are written into
// globals; otherwise globals is copied first and left unchanged.
func (t *Template) RenderGlobals(ctx context.Context, globals *Globals, reuse bool) (string, error) {
	if globals == nil {
		return "", NewValidationError(ErrMsgNilGlobals, t.name)
	}
	if !reuse {
		return t.render(ctx, t.engine.namespace(globals.Snapshot()))
	}

	globals.mu.Lock()
	defer globals.mu.Unlock()
	for k, v := range t.engine.config.globals {
		if _, exists := globals.ns.Get(k); !exists {
			globals.ns.Set(k, v)
		}
	}
	return t.render(ctx, globals.ns)
}

func (t *Template) render(ctx context.Context, ns *internal.Namespace) (string, error) {
	t.mu.RLock()
	renderer := t.renderer
	t.mu.RUnlock()

	out, err := renderer.Render(ctx, t.root, ns)
	if err != nil {
		return "", newRenderError(err)
	}
	return out, nil
}
