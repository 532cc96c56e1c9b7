package internal

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// TagContext describes the tag being parsed. When ParseTag is called the
// parser cursor sits on the first token after the tag name, except for
// assignment sugar ({% x = expr %}) where it sits on the name itself.
type TagContext struct {
	Start  Token      // the {% delimiter token
	Name   Token      // the tag name token
	Parent *BlockNode // enclosing block when parsing a branch tag
	Sugar  bool       // set via {% name = expr %}
}

// TagParser parses one block tag, including its body when it has one
type TagParser interface {
	ParseTag(p *Parser, ctx *TagContext) (Node, error)
}

// BranchTagParser is implemented by tags that are only valid as a branch of an
// enclosing block (elif, else). They parse their header only; the body driver
// in Parser.ParseBlockBody parses the branch body.
type BranchTagParser interface {
	TagParser
	IsBranch() bool
}

// TagParserFunc adapts a function to the TagParser interface
type TagParserFunc func(p *Parser, ctx *TagContext) (Node, error)

// ParseTag calls f(p, ctx)
func (f TagParserFunc) ParseTag(p *Parser, ctx *TagContext) (Node, error) {
	return f(p, ctx)
}

// TagRegistry maps tag names to parsers. Later registrations replace earlier
// ones so individual tags can be swapped. It is safe for concurrent use.
type TagRegistry struct {
	parsers map[string]TagParser
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewTagRegistry creates an empty tag registry
func NewTagRegistry(logger *zap.Logger) *TagRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagRegistry{
		parsers: make(map[string]TagParser),
		logger:  logger,
	}
}

// DefaultTagRegistry creates a registry holding the built-in tags
func DefaultTagRegistry(logger *zap.Logger) *TagRegistry {
	r := NewTagRegistry(logger)
	r.MustRegister(TagIf, ifTag{})
	r.MustRegister(TagElif, elifTag{})
	r.MustRegister(TagElse, elseTag{})
	r.MustRegister(TagFor, forTag{})
	r.MustRegister(TagSet, setTag{})
	r.MustRegister(TagRaw, rawTag{})
	r.MustRegister(TagMacro, macroTag{})
	r.MustRegister(TagCall, callTag{})
	return r
}

// Register adds or replaces the parser for name
func (r *TagRegistry) Register(name string, parser TagParser) error {
	if name == "" {
		return errors.New(ErrMsgEmptyTagName)
	}
	if parser == nil {
		return fmt.Errorf("%s: %s", ErrMsgNilTagParser, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[name] = parser
	r.logger.Debug(LogMsgTagRegistered, zap.String(LogFieldTag, name))
	return nil
}

// MustRegister adds a parser and panics if registration fails
func (r *TagRegistry) MustRegister(name string, parser TagParser) {
	if err := r.Register(name, parser); err != nil {
		panic(err)
	}
}

// Lookup retrieves the parser for name
func (r *TagRegistry) Lookup(name string) (TagParser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	parser, ok := r.parsers[name]
	return parser, ok
}

// Names returns the registered tag names in sorted order
func (r *TagRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the registry
func (r *TagRegistry) Clone() *TagRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewTagRegistry(r.logger)
	for name, parser := range r.parsers {
		c.parsers[name] = parser
	}
	return c
}

// if / elif / else

type ifTag struct{}

func (ifTag) ParseTag(p *Parser, ctx *TagContext) (Node, error) {
	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	end, err := p.ExpectBlockEnd()
	if err != nil {
		return nil, err
	}
	node := NewBlockNode(TagIf, ctx.Start.Position)
	node.Args = []Expr{cond}
	node.Trim.Left = ctx.Start.TrimLeft
	node.Trim.BodyLeft = end.TrimRight
	if err := p.ParseBlockBody(node, TagEndIf, []string{TagElif, TagElse}); err != nil {
		return nil, err
	}
	return node, nil
}

type elifTag struct{}

func (elifTag) IsBranch() bool { return true }

func (elifTag) ParseTag(p *Parser, ctx *TagContext) (Node, error) {
	if ctx.Parent == nil || ctx.Parent.Name != TagIf {
		return nil, NewParseError(fmt.Sprintf("%s '%s'", ErrMsgUnexpectedTag, TagElif), ctx.Name)
	}
	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	end, err := p.ExpectBlockEnd()
	if err != nil {
		return nil, err
	}
	node := NewBlockNode(TagElif, ctx.Start.Position)
	node.Args = []Expr{cond}
	node.Trim.Left = ctx.Start.TrimLeft
	node.Trim.BodyLeft = end.TrimRight
	return node, nil
}

type elseTag struct{}

func (elseTag) IsBranch() bool { return true }

func (elseTag) ParseTag(p *Parser, ctx *TagContext) (Node, error) {
	if ctx.Parent == nil {
		return nil, NewParseError(fmt.Sprintf("%s '%s'", ErrMsgUnexpectedTag, TagElse), ctx.Name)
	}
	end, err := p.ExpectBlockEnd()
	if err != nil {
		return nil, err
	}
	node := NewBlockNode(TagElse, ctx.Start.Position)
	node.Trim.Left = ctx.Start.TrimLeft
	node.Trim.BodyLeft = end.TrimRight
	return node, nil
}

// for

type forTag struct{}

func (forTag) ParseTag(p *Parser, ctx *TagContext) (Node, error) {
	header := p.TagTokens()
	end, err := p.ExpectBlockEnd()
	if err != nil {
		return nil, err
	}
	node := NewBlockNode(TagFor, ctx.Start.Position)
	node.Trim.Left = ctx.Start.TrimLeft
	node.Trim.BodyLeft = end.TrimRight

	inAt := -1
	for i, tok := range header {
		if tok.IsName(KeywordIn) {
			inAt = i
			break
		}
	}
	if inAt < 0 {
		return nil, NewParseError(ErrMsgForMissingIn, end)
	}

	targets, err := parseTargetNames(header[:inAt], header[inAt])
	if err != nil {
		return nil, err
	}
	node.Targets = targets

	rest := header[inAt+1:]
	cut := indexTopLevelKeyword(rest, KeywordIf, KeywordRecursive)
	if cut == 0 {
		return nil, NewParseError(ErrMsgForMissingIterable, header[inAt])
	}
	iterable, err := ParseExpression(rest[:cut])
	if err != nil {
		return nil, err
	}
	node.Args = []Expr{iterable}

	rest = rest[cut:]
	if len(rest) > 0 && rest[0].IsName(KeywordIf) {
		cut = indexTopLevelKeyword(rest[1:], KeywordRecursive) + 1
		if cut == 1 {
			return nil, NewParseError(ErrMsgExpectedExpression, rest[0])
		}
		if node.Filter, err = ParseExpression(rest[1:cut]); err != nil {
			return nil, err
		}
		rest = rest[cut:]
	}
	if len(rest) > 0 && rest[0].IsName(KeywordRecursive) {
		node.Recursive = true
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return nil, NewParseError(fmt.Sprintf("%s %q", ErrMsgUnexpectedToken, rest[0].Value), rest[0])
	}

	if err := p.ParseBlockBody(node, TagEndFor, []string{TagElse}); err != nil {
		return nil, err
	}
	return node, nil
}

// parseTargetNames parses "a" or "a, b, c"
func parseTargetNames(tokens []Token, at Token) ([]Expr, error) {
	if len(tokens) == 0 {
		return nil, NewParseError(ErrMsgForMissingTarget, at)
	}
	var targets []Expr
	for i, tok := range tokens {
		if i%2 == 1 {
			if !tok.IsOperator(OpComma) {
				return nil, NewParseError(fmt.Sprintf("%s %q", ErrMsgUnexpectedToken, tok.Value), tok)
			}
			continue
		}
		if tok.Kind != TokenName {
			return nil, NewParseError(ErrMsgForMissingTarget, tok)
		}
		targets = append(targets, &IdentifierExpr{Name: tok.Value, Position: tok.Position})
	}
	if len(tokens)%2 == 0 {
		return nil, NewParseError(ErrMsgForMissingTarget, tokens[len(tokens)-1])
	}
	return targets, nil
}

// indexTopLevelKeyword returns the index of the first name token matching one
// of keywords outside any brackets, or len(tokens) when there is none.
func indexTopLevelKeyword(tokens []Token, keywords ...string) int {
	depth := 0
	for i, tok := range tokens {
		if tok.Kind == TokenOperator {
			switch tok.Value {
			case OpLParen, OpLBracket, OpLBrace:
				depth++
			case OpRParen, OpRBracket, OpRBrace:
				depth--
			}
			continue
		}
		if depth == 0 && tok.Kind == TokenName && containsString(keywords, tok.Value) {
			return i
		}
	}
	return len(tokens)
}

// set

type setTag struct{}

func (setTag) ParseTag(p *Parser, ctx *TagContext) (Node, error) {
	node := NewBlockNode(TagSet, ctx.Start.Position)
	node.Trim.Left = ctx.Start.TrimLeft

	for {
		target, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		switch target.(type) {
		case *IdentifierExpr, *AttributeExpr:
		default:
			return nil, NewParseError(fmt.Sprintf("%s %s", ErrMsgInvalidSetTarget, target), ctx.Name)
		}
		node.Targets = append(node.Targets, target)
		if !p.Current().IsOperator(OpComma) {
			break
		}
		p.Advance()
	}

	if p.Current().IsOperator(OpAssign) {
		p.Advance()
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		end, err := p.ExpectBlockEnd()
		if err != nil {
			return nil, err
		}
		node.Args = []Expr{value}
		node.Trim.Right = end.TrimRight
		return node, nil
	}

	if ctx.Sugar || len(node.Targets) != 1 {
		return nil, NewParseError(ErrMsgSetMissingValue, p.Current())
	}
	if _, ok := node.Targets[0].(*IdentifierExpr); !ok {
		return nil, NewParseError(ErrMsgInvalidSetTarget, ctx.Name)
	}
	if p.Current().IsName(KeywordLoop) {
		p.Advance()
		node.LoopScope = true
	}
	end, err := p.ExpectBlockEnd()
	if err != nil {
		return nil, err
	}
	node.Capture = true
	node.Trim.BodyLeft = end.TrimRight
	if err := p.ParseBlockBody(node, TagEndSet, nil); err != nil {
		return nil, err
	}
	return node, nil
}

// raw

type rawTag struct{}

func (rawTag) ParseTag(p *Parser, ctx *TagContext) (Node, error) {
	if _, err := p.ExpectBlockEnd(); err != nil {
		return nil, err
	}
	body := p.Current()
	if body.Kind != TokenRawText {
		return nil, NewParseError(ErrMsgUnclosedRaw, ctx.Name)
	}
	p.Advance()
	if p.Current().Kind != TokenBlockStart {
		return nil, NewParseError(ErrMsgUnclosedRaw, ctx.Name)
	}
	p.Advance()
	if !p.Current().IsName(TagEndRaw) {
		return nil, NewParseError(ErrMsgUnclosedRaw, ctx.Name)
	}
	p.Advance()
	end, err := p.ExpectBlockEnd()
	if err != nil {
		return nil, err
	}
	return &RawNode{
		Content:   body.Value,
		TrimLeft:  ctx.Start.TrimLeft,
		TrimRight: end.TrimRight,
		Position:  ctx.Start.Position,
	}, nil
}

// macro

type macroTag struct{}

func (macroTag) ParseTag(p *Parser, ctx *TagContext) (Node, error) {
	name := p.Current()
	if name.Kind != TokenName {
		return nil, NewParseError(ErrMsgMacroMissingName, name)
	}
	p.Advance()
	if !p.Current().IsOperator(OpLParen) {
		return nil, NewParseError(ErrMsgMacroMissingParams, p.Current())
	}
	p.Advance()
	params, err := parseParamList(p)
	if err != nil {
		return nil, err
	}
	end, err := p.ExpectBlockEnd()
	if err != nil {
		return nil, err
	}

	node := NewBlockNode(TagMacro, ctx.Start.Position)
	node.Label = name.Value
	node.Params = params
	node.Trim.Left = ctx.Start.TrimLeft
	node.Trim.BodyLeft = end.TrimRight
	p.RegisterMacro(name.Value)
	if err := p.ParseBlockBody(node, TagEndMacro, nil); err != nil {
		return nil, err
	}
	return node, nil
}

// parseParamList parses "a, b=expr, c)" after the opening parenthesis.
// Default expressions are parsed for validity and then dropped; missing
// arguments always bind none.
func parseParamList(p *Parser) ([]string, error) {
	var params []string
	for {
		tok := p.Current()
		if tok.IsOperator(OpRParen) {
			p.Advance()
			return params, nil
		}
		if tok.Kind != TokenName {
			return nil, NewParseError(fmt.Sprintf("%s %q", ErrMsgInvalidParam, tok.Value), tok)
		}
		p.Advance()
		params = append(params, tok.Value)

		if p.Current().IsOperator(OpAssign) {
			p.Advance()
			if _, err := p.ParseExpression(); err != nil {
				return nil, err
			}
		}
		switch {
		case p.Current().IsOperator(OpComma):
			p.Advance()
		case p.Current().IsOperator(OpRParen):
		default:
			return nil, NewParseError(ErrMsgExpectedCommaOrClose, p.Current())
		}
	}
}

// call

type callTag struct{}

func (callTag) ParseTag(p *Parser, ctx *TagContext) (Node, error) {
	node := NewBlockNode(TagCall, ctx.Start.Position)
	node.Trim.Left = ctx.Start.TrimLeft

	if p.Current().IsOperator(OpLParen) {
		p.Advance()
		params, err := parseParamList(p)
		if err != nil {
			return nil, err
		}
		node.Params = params
	}

	call, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	switch call.(type) {
	case *FunctionCallExpr, *MethodCallExpr:
	default:
		return nil, NewParseError(ErrMsgCallNeedsCall, ctx.Name)
	}
	end, err := p.ExpectBlockEnd()
	if err != nil {
		return nil, err
	}
	node.Args = []Expr{call}
	node.Trim.BodyLeft = end.TrimRight
	if err := p.ParseBlockBody(node, TagEndCall, nil); err != nil {
		return nil, err
	}
	return node, nil
}

// Tag parser error message constants
const (
	ErrMsgEmptyTagName       = "tag name cannot be empty"
	ErrMsgNilTagParser       = "tag parser cannot be nil"
	ErrMsgForMissingIn       = "for tag requires 'in'"
	ErrMsgForMissingTarget   = "for tag requires loop variable names before 'in'"
	ErrMsgForMissingIterable = "for tag requires an iterable after 'in'"
	ErrMsgInvalidSetTarget   = "invalid assignment target"
	ErrMsgSetMissingValue    = "set tag requires '=' and a value"
	ErrMsgUnclosedRaw        = "raw block is missing endraw"
	ErrMsgMacroMissingName   = "macro tag requires a name"
	ErrMsgMacroMissingParams = "macro tag requires a parameter list"
	ErrMsgInvalidParam       = "invalid parameter"
	ErrMsgCallNeedsCall      = "call tag requires a macro call"
)
