package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RendererConfig configures a Renderer
type RendererConfig struct {
	// Filters resolves filter names; nil means the built-in set
	Filters *FilterRegistry
	// Functions resolves global function names after the scope; nil means the built-in set
	Functions *FuncRegistry
	// Accessor resolves members of host values; nil means ReflectAccessor
	Accessor MemberAccessor
	// MaxDepth bounds macro, caller and recursive-loop nesting; 0 means DefaultMaxDepth
	MaxDepth int
}

// Renderer evaluates a template tree against a global namespace. A Renderer
// holds no per-render state and may be shared between goroutines as long as
// each render has its own namespace.
type Renderer struct {
	filters   *FilterRegistry
	functions *FuncRegistry
	accessor  MemberAccessor
	maxDepth  int
	logger    *zap.Logger
}

// NewRenderer creates a renderer
func NewRenderer(config RendererConfig, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Renderer{
		filters:   config.Filters,
		functions: config.Functions,
		accessor:  config.Accessor,
		maxDepth:  config.MaxDepth,
		logger:    logger,
	}
	if r.accessor == nil {
		r.accessor = ReflectAccessor{}
	}
	if r.filters == nil {
		r.filters = NewFilterRegistry(r.accessor)
	}
	if r.functions == nil {
		r.functions = NewFuncRegistry()
	}
	if r.maxDepth <= 0 {
		r.maxDepth = DefaultMaxDepth
	}
	logger.Debug(LogMsgRendererCreated, zap.Int(LogFieldDepth, r.maxDepth))
	return r
}

// Render renders root with globals as the global namespace. Assignments made
// by the template are written back into globals.
func (r *Renderer) Render(ctx context.Context, root *TemplateNode, globals *Namespace) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if root == nil {
		return "", nil
	}
	r.logger.Debug(LogMsgRenderStart, zap.Int(LogFieldNodes, len(root.Children)))

	st := &renderState{
		ctx:      ctx,
		renderer: r,
		root:     root,
		scope:    NewScope(globals),
	}
	var out strings.Builder
	if err := st.renderNodes(root.Children, &out); err != nil {
		return "", err
	}

	r.logger.Debug(LogMsgRenderEnd, zap.Int(LogFieldOutput, out.Len()))
	return out.String(), nil
}

// renderState is the mutable state of one render
type renderState struct {
	ctx      context.Context
	renderer *Renderer
	root     *TemplateNode
	scope    *Scope
	depth    int
}

func (s *renderState) renderNodes(nodes []Node, out *strings.Builder) error {
	for _, node := range nodes {
		if err := s.ctx.Err(); err != nil {
			return NewRenderError(RenderErrCanceled, err.Error(), node.Pos(), err)
		}
		if err := s.renderNode(node, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *renderState) renderNode(node Node, out *strings.Builder) error {
	switch n := node.(type) {
	case *TextNode:
		out.WriteString(n.Rendered())
	case *VariableNode:
		value, err := s.eval(n.Expr)
		if err != nil {
			return err
		}
		out.WriteString(Display(value))
	case *CommentNode:
	case *RawNode:
		out.WriteString(n.Content)
	case *BlockNode:
		return s.renderBlock(n, out)
	case *TemplateNode:
		return s.renderNodes(n.Children, out)
	default:
		return NewRenderError(RenderErrNotSupported, fmt.Sprintf("%s: %T", ErrMsgUnsupportedNode, node), node.Pos(), nil)
	}
	return nil
}

func (s *renderState) renderBlock(n *BlockNode, out *strings.Builder) error {
	switch n.Name {
	case TagIf:
		return s.renderIf(n, out)
	case TagFor:
		return s.renderFor(n, out)
	case TagSet:
		return s.renderSet(n)
	case TagMacro:
		return s.defineMacro(n)
	case TagCall:
		return s.renderCallBlock(n, out)
	}
	// placeholders and bodies of custom tags render their children as-is
	return s.renderNodes(n.Children, out)
}

// enter counts one level of macro, caller or recursive-loop nesting
func (s *renderState) enter(pos Position) error {
	if s.depth >= s.renderer.maxDepth {
		return NewRenderError(RenderErrMaxDepth, fmt.Sprintf("%s (%d)", ErrMsgMaxDepth, s.renderer.maxDepth), pos, nil)
	}
	s.depth++
	return nil
}

func (s *renderState) leave() {
	s.depth--
}

// LoopContext is the value bound to "loop" inside a for loop body
type LoopContext struct {
	Index0 int
	Length int
	Depth0 int
	items  []any
	block  *BlockNode
}

func newLoopContext(index int, items []any, depth int, block *BlockNode) *LoopContext {
	return &LoopContext{
		Index0: index,
		Length: len(items),
		Depth0: depth,
		items:  items,
		block:  block,
	}
}

// Recursive reports whether the loop can be called to recurse
func (l *LoopContext) Recursive() bool {
	return l.block != nil
}

// Attr returns a named loop attribute
func (l *LoopContext) Attr(name string) (any, bool) {
	switch name {
	case "index0":
		return int64(l.Index0), true
	case "index":
		return int64(l.Index0 + 1), true
	case "revindex":
		return int64(l.Length - l.Index0), true
	case "revindex0":
		return int64(l.Length - l.Index0 - 1), true
	case "first":
		return l.Index0 == 0, true
	case "last":
		return l.Index0 == l.Length-1, true
	case "length":
		return int64(l.Length), true
	case "depth":
		return int64(l.Depth0 + 1), true
	case "depth0":
		return int64(l.Depth0), true
	case "previtem":
		if l.Index0 > 0 {
			return l.items[l.Index0-1], true
		}
		return nil, true
	case "nextitem":
		if l.Index0+1 < len(l.items) {
			return l.items[l.Index0+1], true
		}
		return nil, true
	}
	return nil, false
}

// Cycle returns the argument selected by the current index
func (l *LoopContext) Cycle(values []any) any {
	if len(values) == 0 {
		return nil
	}
	return values[l.Index0%len(values)]
}

func (l *LoopContext) String() string {
	return fmt.Sprintf("<loop %d/%d>", l.Index0+1, l.Length)
}

// CallerValue is the value bound to "caller" inside a macro invoked by a
// call block. Calling it renders the call block body.
type CallerValue struct {
	Params []string
	Body   []Node
	frame  *Frame // bindings at the call block
}

func (c *CallerValue) String() string {
	return fmt.Sprintf("<caller(%s)>", strings.Join(c.Params, ", "))
}

// RenderErrorKind classifies render failures
type RenderErrorKind string

const (
	RenderErrNotSupported      RenderErrorKind = "not_supported"
	RenderErrUnknownFunction   RenderErrorKind = "unknown_function"
	RenderErrUsedBeforeDefined RenderErrorKind = "used_before_defined"
	RenderErrUnknownFilter     RenderErrorKind = "unknown_filter"
	RenderErrUnknownTest       RenderErrorKind = "unknown_test"
	RenderErrTypeMismatch      RenderErrorKind = "type_mismatch"
	RenderErrDivisionByZero    RenderErrorKind = "division_by_zero"
	RenderErrInvalidSliceStep  RenderErrorKind = "invalid_slice_step"
	RenderErrNullTarget        RenderErrorKind = "null_target"
	RenderErrMemberAccess      RenderErrorKind = "member_access"
	RenderErrInvalidArgument   RenderErrorKind = "invalid_argument"
	RenderErrNotIterable       RenderErrorKind = "not_iterable"
	RenderErrMaxDepth          RenderErrorKind = "max_depth_exceeded"
	RenderErrCanceled          RenderErrorKind = "canceled"
)

// RenderError is a fatal error raised while rendering
type RenderError struct {
	Kind     RenderErrorKind
	Message  string
	Position Position
	Cause    error
}

// NewRenderError creates a render error
func NewRenderError(kind RenderErrorKind, message string, pos Position, cause error) *RenderError {
	return &RenderError{
		Kind:     kind,
		Message:  message,
		Position: pos,
		Cause:    cause,
	}
}

// Error implements the error interface
func (e *RenderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Position.Line > 0 {
		b.WriteString(" at ")
		b.WriteString(e.Position.String())
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *RenderError) Unwrap() error {
	return e.Cause
}

// asRenderError converts err into a RenderError of the given kind unless it
// already is one. A missing position is filled in from pos.
func asRenderError(err error, kind RenderErrorKind, pos Position) *RenderError {
	var re *RenderError
	if errors.As(err, &re) {
		if re.Position.Line == 0 {
			re.Position = pos
		}
		return re
	}
	return NewRenderError(kind, err.Error(), pos, err)
}

// Render error message constants
const (
	ErrMsgUnsupportedNode    = "unsupported node"
	ErrMsgUnsupportedExpr    = "unsupported expression"
	ErrMsgMaxDepth           = "maximum render depth exceeded"
	ErrMsgNotIterable        = "value is not iterable"
	ErrMsgUnpackMismatch     = "cannot unpack value into targets"
	ErrMsgNotCallable        = "is not a function"
	ErrMsgUsedBeforeDefined  = "macro used before its definition"
	ErrMsgUnknownFunction    = "unknown function"
	ErrMsgUnknownFilter      = "unknown filter"
	ErrMsgUnknownTest        = "unknown test"
	ErrMsgDivisionByZero     = "division by zero"
	ErrMsgSliceStepZero      = "slice step cannot be zero"
	ErrMsgNullAttribute      = "cannot access attribute of none"
	ErrMsgNullMethod         = "cannot call method on none"
	ErrMsgNullIndex          = "cannot index none"
	ErrMsgNullAssign         = "cannot assign attribute of none"
	ErrMsgNoMethod           = "has no method"
	ErrMsgNotRecursive       = "loop is not recursive"
	ErrMsgBadOperand         = "unsupported operand types"
	ErrMsgBadIndex           = "invalid index"
	ErrMsgInvalidMapKey      = "map keys must be strings"
	ErrMsgSliceOutsideSubscr = "slice outside of subscript"
	ErrMsgNegativeRepeat     = "repeat count cannot be negative"
	ErrMsgSequenceTooLarge   = "result exceeds the maximum sequence length"
)

// MaxSequenceLength bounds the strings and lists built by repetition,
// range() and padding filters.
const MaxSequenceLength = 1 << 24
