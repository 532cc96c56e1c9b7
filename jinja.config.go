package jinja

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the engine options.
//
//	lstrip_blocks: true
//	max_depth: 64
//	globals:
//	  company: Acme
//	loader:
//	  kind: filesystem
//	  root: ./templates
//	  extension: .j2
//	  watch: true
type Config struct {
	LstripBlocks bool           `yaml:"lstrip_blocks"`
	MaxDepth     int            `yaml:"max_depth"`
	Globals      map[string]any `yaml:"globals"`
	Loader       *LoaderConfig  `yaml:"loader"`
}

// LoaderConfig selects and configures the template source loader.
type LoaderConfig struct {
	Kind string `yaml:"kind"`

	// Memory loader
	Templates map[string]string `yaml:"templates"`

	// Filesystem loader
	Root      string `yaml:"root"`
	Extension string `yaml:"extension"`
	Watch     bool   `yaml:"watch"`

	// Postgres loader
	DSN          string        `yaml:"dsn"`
	Table        string        `yaml:"table"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(ErrMsgConfigRead, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates YAML configuration. Unknown keys are
// rejected; empty input yields the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, NewConfigError(ErrMsgConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and loader requirements.
func (c *Config) Validate() error {
	if c.MaxDepth < 0 {
		return NewConfigError(ErrMsgConfigMaxDepth, nil)
	}
	if c.Loader == nil {
		return nil
	}
	switch c.Loader.Kind {
	case LoaderKindMemory:
	case LoaderKindFilesystem:
		if c.Loader.Root == "" {
			return NewConfigError(ErrMsgConfigMissingRoot, nil)
		}
	case LoaderKindPostgres:
		if c.Loader.DSN == "" {
			return NewConfigError(ErrMsgConfigMissingDSN, nil)
		}
	default:
		return NewValidationError(ErrMsgConfigLoaderKind, c.Loader.Kind)
	}
	return nil
}

// OpenLoader constructs the configured loader, or nil when none is set.
func (c *Config) OpenLoader(logger *zap.Logger) (SourceLoader, error) {
	if c.Loader == nil {
		return nil, nil
	}
	switch c.Loader.Kind {
	case LoaderKindMemory:
		return NewMemoryLoader(c.Loader.Templates), nil
	case LoaderKindFilesystem:
		return NewFileSystemLoader(c.Loader.Root, c.Loader.Extension, logger)
	case LoaderKindPostgres:
		cfg := DefaultPostgresLoaderConfig()
		cfg.DSN = c.Loader.DSN
		if c.Loader.Table != "" {
			cfg.Table = c.Loader.Table
		}
		if c.Loader.QueryTimeout > 0 {
			cfg.QueryTimeout = c.Loader.QueryTimeout
		}
		return NewPostgresLoader(cfg, logger)
	}
	return nil, NewValidationError(ErrMsgConfigLoaderKind, c.Loader.Kind)
}

// Options converts the configuration into engine options. The loader, if
// any, is opened here; the caller releases it with Engine.Close.
func (c *Config) Options(logger *zap.Logger) ([]Option, error) {
	opts := []Option{
		WithLogger(logger),
		WithLstripBlocks(c.LstripBlocks),
		WithGlobals(c.Globals),
	}
	if c.MaxDepth > 0 {
		opts = append(opts, WithMaxDepth(c.MaxDepth))
	}
	loader, err := c.OpenLoader(logger)
	if err != nil {
		return nil, err
	}
	if loader != nil {
		opts = append(opts, WithLoader(loader))
	}
	return opts, nil
}

// NewFromConfig creates an engine from configuration and starts watching
// when the loader config asks for it.
func NewFromConfig(ctx context.Context, c *Config, logger *zap.Logger) (*Engine, error) {
	opts, err := c.Options(logger)
	if err != nil {
		return nil, err
	}
	engine, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if c.Loader != nil && c.Loader.Watch {
		if err := engine.Watch(ctx); err != nil {
			engine.Close()
			return nil, err
		}
	}
	return engine, nil
}
