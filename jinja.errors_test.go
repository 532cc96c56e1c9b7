package jinja

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-jinja/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileError(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name   string
		source string
		stage  CompileStage
		line   int
	}{
		{name: "unclosed variable", source: "Hello {{ name", stage: StageTokenization, line: 1},
		{name: "unclosed block on second line", source: "a\n{% if x", stage: StageTokenization, line: 2},
		{name: "mismatched end tag", source: "{% for x in xs %}{% endif %}", stage: StageParsing, line: 1},
		{name: "missing end tag", source: "line one\n{% if a %}x", stage: StageParsing, line: 2},
		{name: "bad expression", source: "{{ 1 + }}", stage: StageParsing, line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Compile(tt.source)
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.stage, compileErr.Stage)
			assert.Equal(t, tt.line, compileErr.Position.Line)
			assert.NotEmpty(t, compileErr.Tokens, "partial tokens are kept")
			assert.Contains(t, err.Error(), compileErr.Position.String())
			assert.Contains(t, err.Error(), string(tt.stage))

			var customErr *cuserr.CustomError
			require.True(t, errors.As(err, &customErr))
			stage, ok := customErr.GetMetadata(MetaKeyStage)
			assert.True(t, ok)
			assert.Equal(t, string(tt.stage), stage)
			line, ok := customErr.GetMetadata(MetaKeyLine)
			assert.True(t, ok)
			assert.NotEmpty(t, line)
		})
	}
}

func TestCompileError_CauseChain(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Compile("{{ 'abc }}")
	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, internal.LexErrUnterminatedString, lexErr.Kind)

	_, err = engine.Compile("{% else %}")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), internal.ErrMsgUnexpectedTag)
}

func TestRenderError_Wrapping(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name   string
		source string
		kind   RenderErrorKind
	}{
		{name: "unknown filter", source: "{{ 1 | nope }}", kind: RenderErrUnknownFilter},
		{name: "division by zero", source: "{{ 1 // 0 }}", kind: RenderErrDivisionByZero},
		{name: "slice step zero", source: "{{ [1][::0] }}", kind: RenderErrInvalidSliceStep},
		{name: "unknown function", source: "{{ nope() }}", kind: RenderErrUnknownFunction},
		{name: "used before defined", source: "{{ m() }}{% macro m() %}{% endmacro %}", kind: RenderErrUsedBeforeDefined},
		{name: "type mismatch", source: "{{ 1 + 'a' }}", kind: RenderErrTypeMismatch},
		{name: "null target", source: "{{ none.x }}", kind: RenderErrNullTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := engine.Compile(tt.source)
			require.NoError(t, err)

			_, err = tmpl.Render(context.Background(), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), ErrMsgRenderFailed)
			assert.True(t, IsRenderError(err, tt.kind))

			kind, ok := RenderErrorKindOf(err)
			assert.True(t, ok)
			assert.Equal(t, tt.kind, kind)

			var customErr *cuserr.CustomError
			require.True(t, errors.As(err, &customErr))
			meta, ok := customErr.GetMetadata(MetaKeyKind)
			assert.True(t, ok)
			assert.Equal(t, string(tt.kind), meta)
			line, ok := customErr.GetMetadata(MetaKeyLine)
			assert.True(t, ok)
			assert.Equal(t, "1", line)

			var renderErr *internal.RenderError
			require.True(t, errors.As(err, &renderErr))
			assert.Equal(t, 1, strings.Count(err.Error(), renderErr.Error()))
		})
	}
}

func TestRenderErrorKindOf_Plain(t *testing.T) {
	_, ok := RenderErrorKindOf(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsRenderError(nil, RenderErrTypeMismatch))
}

func TestLoaderErrors(t *testing.T) {
	err := NewTemplateNotFoundError("invoice")
	assert.Contains(t, err.Error(), ErrMsgTemplateNotFound)

	var customErr *cuserr.CustomError
	require.True(t, errors.As(err, &customErr))
	name, ok := customErr.GetMetadata(MetaKeyName)
	assert.True(t, ok)
	assert.Equal(t, "invoice", name)

	cause := errors.New("disk on fire")
	err = NewLoaderError(ErrMsgReadTemplateFailed, LoaderKindFilesystem, cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), ErrMsgReadTemplateFailed)

	err = NewLoaderClosedError(LoaderKindPostgres)
	require.True(t, errors.As(err, &customErr))
	loader, ok := customErr.GetMetadata(MetaKeyLoader)
	assert.True(t, ok)
	assert.Equal(t, LoaderKindPostgres, loader)
}
