package internal

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Parser produces an AST from a token stream, dispatching block tags
// through an explicitly supplied TagRegistry.
type Parser struct {
	tokens   []Token
	pos      int
	registry *TagRegistry
	macros   map[string]bool
	logger   *zap.Logger
}

// NewParser creates a new parser for the given token stream. A nil registry
// means the default tag set.
func NewParser(tokens []Token, registry *TagRegistry, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = DefaultTagRegistry(logger)
	}
	logger.Debug(LogMsgParserCreated, zap.Int(LogFieldTokens, len(tokens)))
	return &Parser{
		tokens:   tokens,
		registry: registry,
		macros:   make(map[string]bool),
		logger:   logger,
	}
}

// Parse produces the template root from the token stream
func (p *Parser) Parse() (*TemplateNode, error) {
	p.logger.Debug(LogMsgParserStart)

	nodes, stop, err := p.ParseBody(nil)
	if err != nil {
		return nil, err
	}
	if stop != "" {
		return nil, NewParseError(fmt.Sprintf("%s '%s'", ErrMsgUnexpectedTag, stop), p.peekAt(1))
	}

	root := NewTemplateNode(nodes)
	for name := range p.macros {
		root.MacroNames[name] = true
	}
	p.logger.Debug(LogMsgParserEnd, zap.Int(LogFieldNodes, len(nodes)))
	return root, nil
}

// ParseBody parses nodes until EOF or until the next block tag's name is one
// of stops. The stop tag is left unconsumed; its name is returned ("" at EOF).
func (p *Parser) ParseBody(stops []string) ([]Node, string, error) {
	var nodes []Node
	for {
		tok := p.current()
		switch tok.Kind {
		case TokenEOF:
			return nodes, "", nil
		case TokenText:
			p.advance()
			nodes = append(nodes, NewTextNode(tok.Value, tok.Position))
		case TokenVariableStart:
			node, err := p.parseVariable()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)
		case TokenCommentStart:
			node, err := p.parseComment()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)
		case TokenBlockStart:
			name := p.peekAt(1)
			if name.Kind == TokenName && containsString(stops, name.Value) {
				return nodes, name.Value, nil
			}
			node, err := p.parseBlockTag()
			if err != nil {
				return nil, "", err
			}
			if node != nil {
				nodes = append(nodes, node)
			}
		default:
			return nil, "", NewParseError(fmt.Sprintf("%s %s", ErrMsgUnexpectedToken, tok.Kind), tok)
		}
	}
}

// ParseBlockBody is the driver for tags with a body. It parses the children of
// block, then repeatedly hands any branch tag (such as elif/else) found at this
// nesting level to the registry, parses that branch's body, and finally
// consumes endTag. A branch named "else" must be the last one.
func (p *Parser) ParseBlockBody(block *BlockNode, endTag string, branches []string) error {
	stops := append(append([]string{}, branches...), endTag)
	children, stop, err := p.ParseBody(stops)
	if err != nil {
		return err
	}
	block.Children = children

	for {
		switch stop {
		case "":
			return NewParseError(fmt.Sprintf("%s '%s' for '%s' opened at %s", ErrMsgMissingEndTag, endTag, block.Name, block.Position), p.current())
		case endTag:
			start := p.advance()
			p.advance()
			end, err := p.ExpectBlockEnd()
			if err != nil {
				return NewParseError(fmt.Sprintf("%s '%s'", ErrMsgExtraAfterEndTag, endTag), p.current())
			}
			block.Trim.BodyRight = start.TrimLeft
			block.Trim.Right = end.TrimRight
			return nil
		}

		start := p.advance()
		nameTok := p.advance()
		parser, ok := p.registry.Lookup(stop)
		if !ok {
			return NewParseError(fmt.Sprintf("%s '%s'", ErrMsgUnknownTag, stop), nameTok)
		}
		node, err := parser.ParseTag(p, &TagContext{Start: start, Name: nameTok, Parent: block})
		if err != nil {
			return err
		}
		branch, ok := node.(*BlockNode)
		if !ok {
			return NewParseError(fmt.Sprintf("%s '%s'", ErrMsgUnexpectedTag, stop), nameTok)
		}
		block.Branches = append(block.Branches, branch)

		if stop == TagElse {
			stops = []string{endTag}
		}
		branch.Children, stop, err = p.ParseBody(stops)
		if err != nil {
			return err
		}
	}
}

// parseBlockTag parses a {% ... %} construct at the cursor
func (p *Parser) parseBlockTag() (Node, error) {
	start := p.advance()
	nameTok := p.current()
	if nameTok.Kind != TokenName {
		return nil, NewParseError(ErrMsgExpectedTagName, nameTok)
	}

	parser, ok := p.registry.Lookup(nameTok.Value)
	if !ok {
		if p.peekAt(1).IsOperator(OpAssign) {
			if set, found := p.registry.Lookup(TagSet); found {
				return set.ParseTag(p, &TagContext{Start: start, Name: nameTok, Sugar: true})
			}
		}
		return p.parsePlaceholder(start, nameTok)
	}
	if _, isBranch := parser.(BranchTagParser); isBranch {
		return nil, NewParseError(fmt.Sprintf("%s '%s'", ErrMsgUnexpectedTag, nameTok.Value), nameTok)
	}

	p.advance()
	return parser.ParseTag(p, &TagContext{Start: start, Name: nameTok})
}

// parsePlaceholder turns a bare unknown tag into a content-less block node.
// Unknown end tags are errors since they can only close something.
func (p *Parser) parsePlaceholder(start, nameTok Token) (Node, error) {
	if strings.HasPrefix(nameTok.Value, "end") {
		return nil, NewParseError(fmt.Sprintf("%s '%s'", ErrMsgUnexpectedTag, nameTok.Value), nameTok)
	}
	p.advance()
	end, err := p.ExpectBlockEnd()
	if err != nil {
		return nil, NewParseError(fmt.Sprintf("%s '%s'", ErrMsgUnknownTag, nameTok.Value), nameTok)
	}
	p.logger.Debug(LogMsgPlaceholderTag, zap.String(LogFieldTag, nameTok.Value))
	node := NewBlockNode(nameTok.Value, start.Position)
	node.Trim.Left = start.TrimLeft
	node.Trim.Right = end.TrimRight
	return node, nil
}

// parseVariable parses {{ expr }}
func (p *Parser) parseVariable() (Node, error) {
	start := p.advance()
	expr, err := p.ParseExpressionUntil(TokenVariableEnd)
	if err != nil {
		return nil, err
	}
	end := p.advance()
	return &VariableNode{
		Expr:      expr,
		TrimLeft:  start.TrimLeft,
		TrimRight: end.TrimRight,
		Position:  start.Position,
	}, nil
}

// parseComment parses {# ... #}
func (p *Parser) parseComment() (Node, error) {
	start := p.advance()
	body := p.current()
	content := ""
	if body.Kind == TokenCommentBody {
		content = body.Value
		p.advance()
	}
	end := p.current()
	if end.Kind != TokenCommentEnd {
		return nil, NewParseError(ErrMsgUnclosedComment, start)
	}
	p.advance()
	return &CommentNode{
		Content:   content,
		TrimLeft:  start.TrimLeft,
		TrimRight: end.TrimRight,
		Position:  start.Position,
	}, nil
}

// ParseExpression parses one expression starting at the cursor
func (p *Parser) ParseExpression() (Expr, error) {
	ep := NewExprParser(p.tokens, p.pos)
	expr, err := ep.Parse()
	if err != nil {
		return nil, err
	}
	p.pos = ep.Pos()
	return expr, nil
}

// ParseExpressionUntil parses one expression that must be followed by a
// token of kind stop. The stop token is left unconsumed.
func (p *Parser) ParseExpressionUntil(stop TokenKind) (Expr, error) {
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Kind != stop {
		return nil, NewParseError(fmt.Sprintf("%s %q", ErrMsgUnexpectedToken, tok.Value), tok)
	}
	return expr, nil
}

// ExpectBlockEnd consumes the closing %} of the current tag
func (p *Parser) ExpectBlockEnd() (Token, error) {
	tok := p.current()
	if tok.Kind != TokenBlockEnd {
		return tok, NewParseError(fmt.Sprintf("%s %q, %s", ErrMsgUnexpectedToken, tok.Value, ErrMsgExpectedBlockEnd), tok)
	}
	p.advance()
	return tok, nil
}

// TagTokens returns the tokens from the cursor up to (not including) the
// closing %} of the current tag and advances past them.
func (p *Parser) TagTokens() []Token {
	begin := p.pos
	for !p.current().IsTagEnd() {
		p.advance()
	}
	return p.tokens[begin:p.pos]
}

// RegisterMacro records a macro declaration for call-before-definition checks
func (p *Parser) RegisterMacro(name string) {
	p.macros[name] = true
}

// Helper methods

// Current returns the token at the cursor
func (p *Parser) Current() Token {
	return p.current()
}

// Advance consumes and returns the token at the cursor
func (p *Parser) Advance() Token {
	return p.advance()
}

func (p *Parser) current() Token {
	return p.peekAt(0)
}

func (p *Parser) peekAt(offset int) Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		if len(p.tokens) == 0 {
			return NewEOFToken(Position{Line: 1, Column: 1})
		}
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// ParseError represents a parser error with position
type ParseError struct {
	Message  string
	Position Position
	Token    Token
}

// NewParseError creates a parse error located at tok
func NewParseError(message string, tok Token) *ParseError {
	return &ParseError{
		Message:  message,
		Position: tok.Position,
		Token:    tok,
	}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %s", e.Message, e.Position)
}

// Parser error message constants
const (
	ErrMsgExpectedTagName  = "expected tag name"
	ErrMsgUnknownTag       = "unknown tag"
	ErrMsgUnexpectedTag    = "unexpected tag"
	ErrMsgMissingEndTag    = "missing end tag"
	ErrMsgExtraAfterEndTag = "unexpected tokens after end tag"
	ErrMsgExpectedBlockEnd = "expected '%}'"
	ErrMsgUnclosedComment  = "unclosed comment"
)
