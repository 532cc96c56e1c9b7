package jinja

import (
	"time"

	"github.com/itsatony/go-jinja/internal"
)

// Engine defaults
const (
	// DefaultMaxDepth bounds macro recursion, caller blocks and recursive loops
	DefaultMaxDepth = internal.DefaultMaxDepth

	// DefaultTemplateExtension is appended to template names by the filesystem loader
	DefaultTemplateExtension = ".j2"
)

// Loader kinds accepted in configuration files
const (
	LoaderKindMemory     = "memory"
	LoaderKindFilesystem = "filesystem"
	LoaderKindPostgres   = "postgres"
)

// PostgreSQL loader defaults
const (
	PostgresDefaultTable           = "jinja_templates"
	PostgresDefaultMaxOpenConns    = 10
	PostgresDefaultMaxIdleConns    = 2
	PostgresDefaultConnMaxLifetime = 5 * time.Minute
	PostgresDefaultQueryTimeout    = 10 * time.Second
	postgresDriverName             = "postgres"
)

// Error codes for categorization
const (
	ErrCodeParse      = "JINJA_PARSE"
	ErrCodeRender     = "JINJA_RENDER"
	ErrCodeValidation = "JINJA_VALIDATION"
	ErrCodeConfig     = "JINJA_CONFIG"
	ErrCodeLoader     = "JINJA_LOADER"
)

// Error message constants
const (
	// Compile and render errors
	ErrMsgCompileFailed = "template compilation failed"
	ErrMsgRenderFailed  = "template rendering failed"
	ErrMsgNilTemplate   = "template is nil"
	ErrMsgNilGlobals    = "globals are nil"
	ErrMsgNilContext    = "render context is nil"
	ErrMsgContextObject = "render context cannot be enumerated"

	// Registration errors
	ErrMsgEmptyFilterName = "filter name cannot be empty"
	ErrMsgNilFilter       = "filter function cannot be nil"
	ErrMsgEmptyTagName    = "tag name cannot be empty"
	ErrMsgNilTagParser    = "tag parser cannot be nil"
	ErrMsgEngineOption    = "invalid engine option"

	// Loader errors
	ErrMsgNoLoader              = "no template loader configured"
	ErrMsgTemplateNotFound      = "template not found"
	ErrMsgInvalidTemplateName   = "invalid template name"
	ErrMsgPathTraversalDetected = "path traversal detected in template name"
	ErrMsgInvalidLoaderRoot     = "loader root directory is invalid"
	ErrMsgReadTemplateFailed    = "failed to read template source"
	ErrMsgLoaderClosed          = "template loader is closed"
	ErrMsgWatchFailed           = "failed to watch template directory"
	ErrMsgPostgresEmptyDSN      = "postgres connection string is empty"
	ErrMsgPostgresConnect       = "failed to connect to postgres"
	ErrMsgPostgresQueryFailed   = "postgres template query failed"
	ErrMsgPostgresInvalidTable  = "postgres table name is invalid"

	// Configuration errors
	ErrMsgConfigRead        = "failed to read configuration file"
	ErrMsgConfigParse       = "failed to parse configuration"
	ErrMsgConfigLoaderKind  = "unknown loader kind"
	ErrMsgConfigMaxDepth    = "max_depth must not be negative"
	ErrMsgConfigMissingRoot = "filesystem loader requires a root directory"
	ErrMsgConfigMissingDSN  = "postgres loader requires a dsn"
)

// Metadata keys attached to custom errors
const (
	MetaKeyStage    = "stage"
	MetaKeyLine     = "line"
	MetaKeyColumn   = "column"
	MetaKeyKind     = "kind"
	MetaKeyName     = "name"
	MetaKeyTemplate = "template"
	MetaKeyPath     = "path"
	MetaKeyLoader   = "loader"
	MetaKeyValue    = "value"
)

// Log message constants
const (
	LogMsgEngineCreated    = "jinja engine created"
	LogMsgTemplateCompiled = "template compiled"
	LogMsgCompileFailed    = "template compilation failed"
	LogMsgCacheHit         = "template cache hit"
	LogMsgCacheMiss        = "template cache miss"
	LogMsgCacheInvalidated = "template cache invalidated"
	LogMsgWatchStarted     = "template watcher started"
	LogMsgWatchStopped     = "template watcher stopped"
	LogMsgWatchEvent       = "template watcher event"
	LogMsgWatchError       = "template watcher error"
	LogMsgLoaderOpened     = "template loader opened"
	LogMsgLoaderClosed     = "template loader closed"
)

// Log field names
const (
	LogFieldTemplate = "template"
	LogFieldTokens   = "token_count"
	LogFieldStage    = "stage"
	LogFieldPath     = "path"
	LogFieldOp       = "op"
	LogFieldLoader   = "loader"
	LogFieldTags     = "tag_count"
	LogFieldFilters  = "filter_count"
	LogFieldGlobals  = "global_count"
	LogFieldError    = "error"
)

// Filesystem loader constants
const (
	templateNameForbiddenChars = "\\:*?\"<>|"
)
