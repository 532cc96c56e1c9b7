package jinja

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	lstripBlocks bool
	maxDepth     int
	globals      map[string]any
	filters      map[string]FilterFunc
	functions    map[string]Func
	tags         map[string]TagParser
	accessor     MemberAccessor
	loader       SourceLoader
	logger       *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		lstripBlocks: false,
		maxDepth:     DefaultMaxDepth,
		globals:      make(map[string]any),
		filters:      make(map[string]FilterFunc),
		functions:    make(map[string]Func),
		tags:         make(map[string]TagParser),
		accessor:     nil,
		loader:       nil,
		logger:       nil,
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithLstripBlocks strips indentation before block tags and the whitespace
// that follows them.
// Default: false
func WithLstripBlocks(enabled bool) Option {
	return func(c *engineConfig) {
		c.lstripBlocks = enabled
	}
}

// WithMaxDepth sets the maximum nesting of macro calls, caller blocks and
// recursive loops. Values below one keep the default.
// Default: 256
func WithMaxDepth(depth int) Option {
	return func(c *engineConfig) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithGlobals adds values visible to every render. Render context values with
// the same name take precedence.
func WithGlobals(globals map[string]any) Option {
	return func(c *engineConfig) {
		for k, v := range globals {
			c.globals[k] = v
		}
	}
}

// WithFilter registers a filter for every template compiled by the engine.
// It shadows a built-in filter of the same name.
func WithFilter(name string, fn FilterFunc) Option {
	return func(c *engineConfig) {
		c.filters[name] = fn
	}
}

// WithFunction registers a global function callable as name(...)
func WithFunction(name string, fn Func) Option {
	return func(c *engineConfig) {
		c.functions[name] = fn
	}
}

// WithTagParser adds or replaces the parser for a block tag
func WithTagParser(name string, parser TagParser) Option {
	return func(c *engineConfig) {
		c.tags[name] = parser
	}
}

// WithMemberAccessor replaces the reflection based host member access
func WithMemberAccessor(accessor MemberAccessor) Option {
	return func(c *engineConfig) {
		c.accessor = accessor
	}
}

// WithLoader sets the source loader used by GetTemplate
func WithLoader(loader SourceLoader) Option {
	return func(c *engineConfig) {
		c.loader = loader
	}
}
