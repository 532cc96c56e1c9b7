package jinja

import (
	"context"
	"io"
	"sync"

	"github.com/itsatony/go-jinja/internal"
	"go.uber.org/zap"
)

// Engine compiles templates and owns everything shared between them: the tag
// registry, engine-wide filters and functions, global values and the cache of
// templates fetched through the source loader.
type Engine struct {
	config    *engineConfig
	tags      *internal.TagRegistry
	filters   *internal.FilterRegistry
	functions *internal.FuncRegistry
	renderer  *internal.Renderer
	lexer     internal.LexerConfig
	cache     map[string]*Template
	cacheMu   sync.RWMutex // Protects cache
	logger    *zap.Logger
}

// New creates a new jinja Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	accessor := config.accessor
	if accessor == nil {
		accessor = ReflectAccessor{}
	}

	tags := internal.DefaultTagRegistry(logger)
	for name, parser := range config.tags {
		if name == "" {
			return nil, NewValidationError(ErrMsgEmptyTagName, name)
		}
		if parser == nil {
			return nil, NewValidationError(ErrMsgNilTagParser, name)
		}
		if err := tags.Register(name, parser); err != nil {
			return nil, NewValidationError(ErrMsgEngineOption, name)
		}
	}

	filters := internal.NewFilterOverlay(internal.NewFilterRegistry(accessor))
	for name, fn := range config.filters {
		if err := registerFilter(filters, name, fn); err != nil {
			return nil, err
		}
	}

	functions := internal.NewFuncRegistry()
	for name, fn := range config.functions {
		if err := functions.Register(&internal.Function{Name: name, MaxArgs: -1, Fn: fn}); err != nil {
			return nil, NewValidationError(err.Error(), name)
		}
	}

	e := &Engine{
		config:    config,
		tags:      tags,
		filters:   filters,
		functions: functions,
		lexer:     internal.LexerConfig{LstripBlocks: config.lstripBlocks},
		cache:     make(map[string]*Template),
		logger:    logger,
	}
	e.renderer = e.newRenderer(filters)

	logger.Debug(LogMsgEngineCreated,
		zap.Int(LogFieldTags, len(tags.Names())),
		zap.Int(LogFieldFilters, len(config.filters)),
		zap.Int(LogFieldGlobals, len(config.globals)))
	return e, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// registerFilter validates and binds a filter in registry
func registerFilter(registry *internal.FilterRegistry, name string, fn FilterFunc) error {
	if name == "" {
		return NewValidationError(ErrMsgEmptyFilterName, name)
	}
	if fn == nil {
		return NewValidationError(ErrMsgNilFilter, name)
	}
	if err := registry.Set(name, fn); err != nil {
		return NewValidationError(err.Error(), name)
	}
	return nil
}

func (e *Engine) newRenderer(filters *internal.FilterRegistry) *internal.Renderer {
	return internal.NewRenderer(internal.RendererConfig{
		Filters:   filters,
		Functions: e.functions,
		Accessor:  e.accessor(),
		MaxDepth:  e.config.maxDepth,
	}, e.logger)
}

func (e *Engine) accessor() MemberAccessor {
	if e.config.accessor != nil {
		return e.config.accessor
	}
	return ReflectAccessor{}
}

// Tokenize runs only the lexer over source. On failure the returned
// *CompileError carries the tokens produced so far.
func (e *Engine) Tokenize(source string) ([]Token, error) {
	lexer := internal.NewLexer(source, e.lexer, e.logger)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return tokens, newCompileError(StageTokenization, tokens, err)
	}
	return tokens, nil
}

// Compile tokenizes and parses source into a reusable Template.
func (e *Engine) Compile(source string) (*Template, error) {
	return e.compile("", source)
}

func (e *Engine) compile(name, source string) (*Template, error) {
	tokens, err := e.Tokenize(source)
	if err != nil {
		e.logger.Debug(LogMsgCompileFailed,
			zap.String(LogFieldTemplate, name),
			zap.String(LogFieldStage, string(StageTokenization)))
		return nil, err
	}

	parser := internal.NewParser(tokens, e.tags, e.logger)
	root, err := parser.Parse()
	if err != nil {
		e.logger.Debug(LogMsgCompileFailed,
			zap.String(LogFieldTemplate, name),
			zap.String(LogFieldStage, string(StageParsing)))
		return nil, newCompileError(StageParsing, tokens, err)
	}
	internal.ApplyTrimTree(root)

	e.logger.Debug(LogMsgTemplateCompiled,
		zap.String(LogFieldTemplate, name),
		zap.Int(LogFieldTokens, len(tokens)))
	return newTemplate(name, source, tokens, root, e), nil
}

// Render is a convenience method that compiles and renders in one step.
// For templates that are rendered repeatedly, use Compile instead.
func (e *Engine) Render(ctx context.Context, source string, data map[string]any) (string, error) {
	tmpl, err := e.Compile(source)
	if err != nil {
		return "", err
	}
	return tmpl.Render(ctx, data)
}

// GetTemplate returns the named template from the cache, loading and
// compiling it through the configured SourceLoader on a miss.
func (e *Engine) GetTemplate(ctx context.Context, name string) (*Template, error) {
	key := e.cacheKey(name)
	e.cacheMu.RLock()
	tmpl, ok := e.cache[key]
	e.cacheMu.RUnlock()
	if ok {
		e.logger.Debug(LogMsgCacheHit, zap.String(LogFieldTemplate, name))
		return tmpl, nil
	}
	e.logger.Debug(LogMsgCacheMiss, zap.String(LogFieldTemplate, name))

	if e.config.loader == nil {
		return nil, NewLoaderError(ErrMsgNoLoader, "", nil)
	}
	source, err := e.config.loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	tmpl, err = e.compile(name, source)
	if err != nil {
		return nil, err
	}

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	// A concurrent load may have won; keep the first so callers share one instance.
	if cached, ok := e.cache[key]; ok {
		return cached, nil
	}
	e.cache[key] = tmpl
	return tmpl, nil
}

// cacheKey folds equivalent spellings of a template name together
func (e *Engine) cacheKey(name string) string {
	if n, ok := e.config.loader.(nameNormalizer); ok {
		return n.normalizeName(name)
	}
	return name
}

// RenderTemplate loads the named template and renders it with data.
func (e *Engine) RenderTemplate(ctx context.Context, name string, data map[string]any) (string, error) {
	tmpl, err := e.GetTemplate(ctx, name)
	if err != nil {
		return "", err
	}
	return tmpl.Render(ctx, data)
}

// Invalidate drops a named template from the cache.
func (e *Engine) Invalidate(name string) {
	e.cacheMu.Lock()
	delete(e.cache, e.cacheKey(name))
	e.cacheMu.Unlock()
	e.logger.Debug(LogMsgCacheInvalidated, zap.String(LogFieldTemplate, name))
}

// InvalidateAll empties the template cache.
func (e *Engine) InvalidateAll() {
	e.cacheMu.Lock()
	e.cache = make(map[string]*Template)
	e.cacheMu.Unlock()
	e.logger.Debug(LogMsgCacheInvalidated)
}

// CachedTemplates returns the number of cached templates.
func (e *Engine) CachedTemplates() int {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	return len(e.cache)
}

// Watch starts change notification on a WatchableLoader. Changed templates
// are dropped from the cache until ctx is done or the engine is closed.
// Loaders that cannot watch are ignored.
func (e *Engine) Watch(ctx context.Context) error {
	watchable, ok := e.config.loader.(WatchableLoader)
	if !ok {
		return nil
	}
	return watchable.Watch(ctx, e.Invalidate)
}

// Close releases the source loader when it holds resources.
func (e *Engine) Close() error {
	if closer, ok := e.config.loader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// TagNames returns the registered block tag names, sorted.
func (e *Engine) TagNames() []string {
	return e.tags.Names()
}

// FilterNames returns every filter name templates can use, sorted.
func (e *Engine) FilterNames() []string {
	return e.filters.Names()
}

// FunctionNames returns the global function names, sorted.
func (e *Engine) FunctionNames() []string {
	return e.functions.List()
}

// namespace builds the global namespace of a render: engine globals first,
// then the render context.
func (e *Engine) namespace(data map[string]any) *internal.Namespace {
	ns := internal.NewNamespace(e.config.globals)
	for k, v := range data {
		ns.Set(k, v)
	}
	return ns
}
