package jinja

import "github.com/itsatony/go-jinja/internal"

// Values shared with the template core. They are aliases so host code can
// implement filters, functions and tags without importing internal packages.
type (
	// FilterFunc transforms a piped value. Keyword arguments arrive as a
	// trailing Kwargs element of args.
	FilterFunc = internal.FilterFunc

	// Kwargs holds the keyword arguments of a filter call
	Kwargs = internal.Kwargs

	// Func is a host function callable from templates
	Func = internal.Func

	// MemberAccessor resolves attribute reads and writes on host values
	MemberAccessor = internal.MemberAccessor

	// MemberEnumerator lists the public members of a host value
	MemberEnumerator = internal.MemberEnumerator

	// ReflectAccessor is the default reflection based MemberAccessor
	ReflectAccessor = internal.ReflectAccessor

	Token     = internal.Token
	TokenKind = internal.TokenKind
	Position  = internal.Position

	// Node is a statement level syntax tree node
	Node = internal.Node

	// TemplateNode is the root of a compiled template
	TemplateNode = internal.TemplateNode

	// BlockNode is the node produced by block tags
	BlockNode = internal.BlockNode

	// Parser is handed to custom tag parsers
	Parser = internal.Parser

	// TagContext describes the tag being parsed
	TagContext = internal.TagContext

	// TagParser parses one block tag
	TagParser = internal.TagParser

	// TagParserFunc adapts a function to TagParser
	TagParserFunc = internal.TagParserFunc

	LexError        = internal.LexError
	ParseError      = internal.ParseError
	RenderError     = internal.RenderError
	RenderErrorKind = internal.RenderErrorKind
)

// Render error kinds
const (
	RenderErrNotSupported      = internal.RenderErrNotSupported
	RenderErrUnknownFunction   = internal.RenderErrUnknownFunction
	RenderErrUsedBeforeDefined = internal.RenderErrUsedBeforeDefined
	RenderErrUnknownFilter     = internal.RenderErrUnknownFilter
	RenderErrUnknownTest       = internal.RenderErrUnknownTest
	RenderErrTypeMismatch      = internal.RenderErrTypeMismatch
	RenderErrDivisionByZero    = internal.RenderErrDivisionByZero
	RenderErrInvalidSliceStep  = internal.RenderErrInvalidSliceStep
	RenderErrNullTarget        = internal.RenderErrNullTarget
	RenderErrMemberAccess      = internal.RenderErrMemberAccess
	RenderErrInvalidArgument   = internal.RenderErrInvalidArgument
	RenderErrNotIterable       = internal.RenderErrNotIterable
	RenderErrMaxDepth          = internal.RenderErrMaxDepth
	RenderErrCanceled          = internal.RenderErrCanceled
)

// NewBlockNode creates a block node for a custom tag parser
func NewBlockNode(name string, pos Position) *BlockNode {
	return internal.NewBlockNode(name, pos)
}
