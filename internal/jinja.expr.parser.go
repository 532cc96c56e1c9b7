package internal

import (
	"fmt"
	"strconv"
)

// Binding powers for binary operators. Higher binds tighter.
const (
	precOr         = 10
	precAnd        = 20
	precNot        = 30
	precComparison = 40
	precConcat     = 45
	precAdditive   = 50
	precMultiply   = 60
	precUnary      = 65
	precPower      = 70
)

var binaryPrecedence = map[string]int{
	OpOr:  precOr,
	OpAnd: precAnd,
	OpEq:  precComparison, OpNe: precComparison,
	OpLt: precComparison, OpLe: precComparison, OpGt: precComparison, OpGe: precComparison,
	OpIn: precComparison, OpNotIn: precComparison, OpIs: precComparison, OpIsNot: precComparison,
	OpConcat: precConcat,
	OpAdd:    precAdditive, OpSub: precAdditive,
	OpMul: precMultiply, OpDiv: precMultiply, OpFloorDiv: precMultiply, OpMod: precMultiply,
	OpPow: precPower,
}

// rightAssociative lists operators that group right to left
var rightAssociative = map[string]bool{
	OpPow: true,
}

// ExprParser parses a token slice into an expression AST using precedence
// climbing followed by a postfix chain of member, index and filter access.
type ExprParser struct {
	tokens []Token
	pos    int
}

// NewExprParser creates an expression parser starting at pos
func NewExprParser(tokens []Token, pos int) *ExprParser {
	return &ExprParser{
		tokens: tokens,
		pos:    pos,
	}
}

// ParseExpression parses tokens as exactly one expression. A trailing
// end-of-tag or EOF token is allowed; any other leftover token is an error.
func ParseExpression(tokens []Token) (Expr, error) {
	p := NewExprParser(tokens, 0)
	expr, err := p.Parse()
	if err != nil {
		return nil, err
	}
	if !p.atStop() {
		tok := p.peek()
		return nil, NewParseError(fmt.Sprintf("%s %q", ErrMsgUnexpectedToken, tok.Value), tok)
	}
	return expr, nil
}

// Parse parses one expression, including the inline conditional form
func (p *ExprParser) Parse() (Expr, error) {
	if p.atStop() {
		return nil, NewParseError(ErrMsgExpectedExpression, p.peek())
	}
	then, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.peek().IsName(KeywordIf) {
		return then, nil
	}
	ifTok := p.advance()
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	cexpr := &ConditionalExpr{Cond: cond, Then: then, Position: ifTok.Position}
	if p.peek().IsName(KeywordElse) {
		p.advance()
		if cexpr.Else, err = p.Parse(); err != nil {
			return nil, err
		}
	}
	return cexpr, nil
}

// Pos returns the index of the next unconsumed token
func (p *ExprParser) Pos() int {
	return p.pos
}

// parseBinary implements precedence climbing for operators binding at least minPrec
func (p *ExprParser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op, width := p.peekBinaryOperator()
		if op == "" {
			return left, nil
		}
		prec := binaryPrecedence[op]
		if prec < minPrec {
			return left, nil
		}
		opTok := p.peek()
		p.pos += width

		if op == OpIs || op == OpIsNot {
			test := p.peek()
			if test.Kind != TokenName {
				return nil, NewParseError(ErrMsgExpectedTestName, test)
			}
			p.advance()
			left = &BinaryExpr{
				Op:       op,
				Left:     left,
				Right:    &IdentifierExpr{Name: test.Value, Position: test.Position},
				Position: opTok.Position,
			}
			continue
		}

		next := prec + 1
		if rightAssociative[op] {
			next = prec
		}
		right, err := p.parseBinary(next)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, Position: opTok.Position}
	}
}

// peekBinaryOperator returns the binary operator at the cursor and how many
// tokens it spans ("not in" and "is not" span two).
func (p *ExprParser) peekBinaryOperator() (string, int) {
	tok := p.peek()
	switch tok.Kind {
	case TokenOperator:
		if _, ok := binaryPrecedence[tok.Value]; ok {
			return tok.Value, 1
		}
	case TokenName:
		switch tok.Value {
		case KeywordAnd, KeywordOr, KeywordIn:
			return tok.Value, 1
		case KeywordIs:
			if p.peekAt(1).IsName(KeywordNot) {
				return OpIsNot, 2
			}
			return OpIs, 1
		case KeywordNot:
			if p.peekAt(1).IsName(KeywordIn) {
				return OpNotIn, 2
			}
		}
	}
	return "", 0
}

// parseUnary parses not, unary minus and unary plus
func (p *ExprParser) parseUnary() (Expr, error) {
	tok := p.peek()
	switch {
	case tok.IsName(KeywordNot):
		p.advance()
		operand, err := p.parseBinary(precNot)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: OpNot, Operand: operand, Position: tok.Position}, nil
	case tok.IsOperator(OpSub), tok.IsOperator(OpAdd):
		p.advance()
		operand, err := p.parseBinary(precUnary)
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*LiteralExpr); ok && tok.Value == OpSub {
			switch v := lit.Value.(type) {
			case int64:
				return &LiteralExpr{Value: -v, Position: tok.Position}, nil
			case float64:
				return &LiteralExpr{Value: -v, Position: tok.Position}, nil
			}
		}
		return &UnaryExpr{Op: tok.Value, Operand: operand, Position: tok.Position}, nil
	}

	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(primary)
}

// parsePrimary parses literals, identifiers, calls, groups and collection literals
func (p *ExprParser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenNumber:
		p.advance()
		return parseNumberLiteral(tok)
	case TokenString:
		p.advance()
		value, err := Unescape(tok.Value)
		if err != nil {
			return nil, NewParseError(err.Error(), tok)
		}
		return &LiteralExpr{Value: value, Position: tok.Position}, nil
	case TokenName:
		p.advance()
		switch tok.Value {
		case KeywordTrue, "True":
			return &LiteralExpr{Value: true, Position: tok.Position}, nil
		case KeywordFalse, "False":
			return &LiteralExpr{Value: false, Position: tok.Position}, nil
		case KeywordNone, "None", KeywordNull:
			return &LiteralExpr{Value: nil, Position: tok.Position}, nil
		}
		if p.peek().IsOperator(OpLParen) {
			p.advance()
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			return &FunctionCallExpr{Name: tok.Value, Args: args, Position: tok.Position}, nil
		}
		return &IdentifierExpr{Name: tok.Value, Position: tok.Position}, nil
	case TokenOperator:
		switch tok.Value {
		case OpLParen:
			p.advance()
			inner, err := p.Parse()
			if err != nil {
				return nil, err
			}
			if err := p.expectOperator(OpRParen); err != nil {
				return nil, err
			}
			return inner, nil
		case OpLBracket:
			p.advance()
			return p.parseList(tok)
		case OpLBrace:
			p.advance()
			return p.parseMap(tok)
		}
	}
	if p.atStop() {
		return nil, NewParseError(ErrMsgExpectedExpression, tok)
	}
	return nil, NewParseError(fmt.Sprintf("%s %q", ErrMsgUnexpectedToken, tok.Value), tok)
}

// parsePostfix applies .member, [index], (call) and | filter suffixes left to right
func (p *ExprParser) parsePostfix(expr Expr) (Expr, error) {
	for {
		tok := p.peek()
		switch {
		case tok.IsOperator(OpDot):
			p.advance()
			name := p.peek()
			if name.Kind != TokenName && name.Kind != TokenNumber {
				return nil, NewParseError(ErrMsgExpectedAttribute, name)
			}
			p.advance()
			if name.Kind == TokenNumber {
				idx, err := parseNumberLiteral(name)
				if err != nil {
					return nil, err
				}
				expr = &IndexExpr{Target: expr, Index: idx, Position: tok.Position}
				continue
			}
			if p.peek().IsOperator(OpLParen) {
				p.advance()
				args, err := p.parseArguments()
				if err != nil {
					return nil, err
				}
				expr = &MethodCallExpr{Object: expr, Name: name.Value, Args: args, Position: name.Position}
				continue
			}
			expr = &AttributeExpr{Object: expr, Name: name.Value, Position: name.Position}

		case tok.IsOperator(OpLBracket):
			p.advance()
			index, err := p.parseSubscript()
			if err != nil {
				return nil, err
			}
			expr = &IndexExpr{Target: expr, Index: index, Position: tok.Position}

		case tok.IsOperator(OpPipe):
			p.advance()
			name := p.peek()
			if name.Kind != TokenName {
				return nil, NewParseError(ErrMsgExpectedFilterName, name)
			}
			p.advance()
			filter := &FilterExpr{Value: expr, Name: name.Value, Position: name.Position}
			if p.peek().IsOperator(OpLParen) {
				p.advance()
				args, err := p.parseArguments()
				if err != nil {
					return nil, err
				}
				filter.Args = args
			}
			expr = filter

		default:
			return expr, nil
		}
	}
}

// parseSubscript parses the inside of [...] as an index or a slice
func (p *ExprParser) parseSubscript() (Expr, error) {
	start := p.peek()
	var bounds [3]Expr
	part := 0
	sliced := false

	for {
		tok := p.peek()
		switch {
		case tok.IsOperator(OpRBracket):
			p.advance()
			if !sliced {
				if bounds[0] == nil {
					return nil, NewParseError(ErrMsgExpectedExpression, tok)
				}
				return bounds[0], nil
			}
			return &SliceExpr{Start: bounds[0], Stop: bounds[1], Step: bounds[2], Position: start.Position}, nil
		case tok.IsOperator(OpColon):
			p.advance()
			sliced = true
			part++
			if part > 2 {
				return nil, NewParseError(ErrMsgInvalidSlice, tok)
			}
		default:
			if bounds[part] != nil {
				return nil, NewParseError(fmt.Sprintf("%s %q", ErrMsgUnexpectedToken, tok.Value), tok)
			}
			expr, err := p.Parse()
			if err != nil {
				return nil, err
			}
			bounds[part] = expr
		}
	}
}

// parseArguments parses a call argument list after the opening parenthesis.
// Positional arguments must precede keyword arguments.
func (p *ExprParser) parseArguments() (Arguments, error) {
	var args Arguments
	for {
		tok := p.peek()
		if tok.IsOperator(OpRParen) {
			p.advance()
			return args, nil
		}
		if p.atStop() {
			return args, NewParseError(ErrMsgUnclosedCall, tok)
		}

		if tok.Kind == TokenName && p.peekAt(1).IsOperator(OpAssign) {
			p.pos += 2
			value, err := p.Parse()
			if err != nil {
				return args, err
			}
			args.Keywords = append(args.Keywords, KeywordArg{Name: tok.Value, Value: value})
		} else {
			if len(args.Keywords) > 0 {
				return args, NewParseError(ErrMsgPositionalAfterKeyword, tok)
			}
			value, err := p.Parse()
			if err != nil {
				return args, err
			}
			args.Positional = append(args.Positional, value)
		}

		if p.peek().IsOperator(OpComma) {
			p.advance()
			continue
		}
		if !p.peek().IsOperator(OpRParen) {
			return args, NewParseError(ErrMsgExpectedCommaOrClose, p.peek())
		}
	}
}

// parseList parses a list literal after the opening bracket
func (p *ExprParser) parseList(open Token) (Expr, error) {
	list := &ListExpr{Position: open.Position}
	for {
		if p.peek().IsOperator(OpRBracket) {
			p.advance()
			return list, nil
		}
		item, err := p.Parse()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
		if p.peek().IsOperator(OpComma) {
			p.advance()
			continue
		}
		if err := p.expectOperator(OpRBracket); err != nil {
			return nil, err
		}
		return list, nil
	}
}

// parseMap parses a map literal after the opening brace
func (p *ExprParser) parseMap(open Token) (Expr, error) {
	m := &MapExpr{Position: open.Position}
	for {
		if p.peek().IsOperator(OpRBrace) {
			p.advance()
			return m, nil
		}
		key, err := p.Parse()
		if err != nil {
			return nil, err
		}
		if err := p.expectOperator(OpColon); err != nil {
			return nil, err
		}
		value, err := p.Parse()
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
		if p.peek().IsOperator(OpComma) {
			p.advance()
			continue
		}
		if err := p.expectOperator(OpRBrace); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func parseNumberLiteral(tok Token) (Expr, error) {
	if i, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
		return &LiteralExpr{Value: i, Position: tok.Position}, nil
	}
	f, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return nil, NewParseError(fmt.Sprintf("%s %q", ErrMsgInvalidNumber, tok.Value), tok)
	}
	return &LiteralExpr{Value: f, Position: tok.Position}, nil
}

// Helper methods

// peek returns the current token, or a synthetic EOF past the end
func (p *ExprParser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token offset positions ahead
func (p *ExprParser) peekAt(offset int) Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		if len(p.tokens) == 0 {
			return NewEOFToken(Position{Line: 1, Column: 1})
		}
		return NewEOFToken(p.tokens[len(p.tokens)-1].Position)
	}
	return p.tokens[i]
}

// advance consumes and returns the current token
func (p *ExprParser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// atStop reports whether the cursor sits on a tag end or EOF
func (p *ExprParser) atStop() bool {
	return p.peek().IsTagEnd()
}

// expectOperator consumes the given operator or fails
func (p *ExprParser) expectOperator(op string) error {
	tok := p.peek()
	if !tok.IsOperator(op) {
		return NewParseError(fmt.Sprintf("%s %q", ErrMsgExpectedToken, op), tok)
	}
	p.advance()
	return nil
}

// Error message constants for expression parsing
const (
	ErrMsgExpectedExpression     = "expected expression"
	ErrMsgUnexpectedToken        = "unexpected token"
	ErrMsgExpectedToken          = "expected"
	ErrMsgExpectedTestName       = "expected test name after 'is'"
	ErrMsgExpectedAttribute      = "expected attribute name after '.'"
	ErrMsgExpectedFilterName     = "expected filter name after '|'"
	ErrMsgInvalidSlice           = "too many ':' in slice"
	ErrMsgUnclosedCall           = "unclosed argument list"
	ErrMsgPositionalAfterKeyword = "positional argument follows keyword argument"
	ErrMsgExpectedCommaOrClose   = "expected ',' or ')' in argument list"
	ErrMsgInvalidNumber          = "invalid number literal"
)
