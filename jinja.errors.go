package jinja

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/itsatony/go-cuserr"
)

// CompileStage identifies the compile phase that failed
type CompileStage string

// Compile stages
const (
	StageTokenization CompileStage = "tokenization"
	StageParsing      CompileStage = "parsing"
)

// CompileError is returned by Compile. It carries the tokens produced before
// the failure so callers can inspect what was recognized.
type CompileError struct {
	Stage    CompileStage
	Tokens   []Token
	Position Position
	cause    error
}

// Error implements the error interface
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s during %s at %s: %s", ErrMsgCompileFailed, e.Stage, e.Position, causeMessage(e.cause))
}

// Unwrap returns the custom error, which in turn wraps the lexer or parser error
func (e *CompileError) Unwrap() error {
	return e.cause
}

// newCompileError wraps a lexer or parser failure exactly once
func newCompileError(stage CompileStage, tokens []Token, cause error) *CompileError {
	pos := compileErrorPosition(cause)
	wrapped := cuserr.WrapStdError(cause, ErrCodeParse, ErrMsgCompileFailed).
		WithMetadata(MetaKeyStage, string(stage)).
		WithMetadata(MetaKeyLine, strconv.Itoa(pos.Line)).
		WithMetadata(MetaKeyColumn, strconv.Itoa(pos.Column))
	return &CompileError{
		Stage:    stage,
		Tokens:   tokens,
		Position: pos,
		cause:    wrapped,
	}
}

func compileErrorPosition(err error) Position {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		return lexErr.Position
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Position
	}
	return Position{}
}

// causeMessage returns the innermost lexer or parser message
func causeMessage(err error) string {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		return lexErr.Error()
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// newRenderError wraps a render failure with its kind and position
func newRenderError(err error) error {
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		return cuserr.WrapStdError(err, ErrCodeRender, ErrMsgRenderFailed)
	}
	return cuserr.WrapStdError(err, ErrCodeRender, ErrMsgRenderFailed).
		WithMetadata(MetaKeyKind, string(renderErr.Kind)).
		WithMetadata(MetaKeyLine, strconv.Itoa(renderErr.Position.Line)).
		WithMetadata(MetaKeyColumn, strconv.Itoa(renderErr.Position.Column))
}

// RenderErrorKindOf returns the kind of the render error wrapped in err
func RenderErrorKindOf(err error) (RenderErrorKind, bool) {
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Kind, true
	}
	return "", false
}

// IsRenderError reports whether err wraps a render error of the given kind
func IsRenderError(err error, kind RenderErrorKind) bool {
	got, ok := RenderErrorKindOf(err)
	return ok && got == kind
}

// NewTemplateNotFoundError creates a not-found error for a named template
func NewTemplateNotFoundError(name string) error {
	return cuserr.NewNotFoundError(MetaKeyTemplate, ErrMsgTemplateNotFound).
		WithMetadata(MetaKeyName, name)
}

// NewInvalidTemplateNameError creates an error for names a loader refuses
func NewInvalidTemplateNameError(msg, name string) error {
	return cuserr.NewValidationError(ErrCodeLoader, msg).
		WithMetadata(MetaKeyName, name)
}

// NewLoaderClosedError creates an error for calls on a closed loader
func NewLoaderClosedError(loader string) error {
	return cuserr.NewValidationError(ErrCodeLoader, ErrMsgLoaderClosed).
		WithMetadata(MetaKeyLoader, loader)
}

// NewLoaderError wraps an I/O or driver failure of a loader
func NewLoaderError(msg, loader string, cause error) error {
	if cause == nil {
		return cuserr.NewValidationError(ErrCodeLoader, msg).
			WithMetadata(MetaKeyLoader, loader)
	}
	return cuserr.WrapStdError(cause, ErrCodeLoader, msg).
		WithMetadata(MetaKeyLoader, loader)
}

// NewConfigError creates a configuration error
func NewConfigError(msg string, cause error) error {
	if cause == nil {
		return cuserr.NewValidationError(ErrCodeConfig, msg)
	}
	return cuserr.WrapStdError(cause, ErrCodeConfig, msg)
}

// NewValidationError creates a registration or argument error
func NewValidationError(msg, name string) error {
	return cuserr.NewValidationError(ErrCodeValidation, msg).
		WithMetadata(MetaKeyName, name)
}
