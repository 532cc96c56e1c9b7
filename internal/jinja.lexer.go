package internal

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// LexerConfig holds lexer configuration
type LexerConfig struct {
	// LstripBlocks drops indentation before a block tag that starts its line
	// and the whitespace that follows a block tag.
	LstripBlocks bool
}

// DefaultLexerConfig returns the default lexer configuration
func DefaultLexerConfig() LexerConfig {
	return LexerConfig{}
}

var (
	rawOpenPattern  = regexp.MustCompile(`^\{%(-?)[ \t\n]*raw[ \t\n]*(-?)%\}`)
	rawClosePattern = regexp.MustCompile(`\{%(-?)[ \t\n]*endraw[ \t\n]*(-?)%\}`)
)

// Lexer tokenizes template source into a token stream
type Lexer struct {
	source string
	config LexerConfig
	pos    int // Current byte position
	line   int // Current line (1-indexed)
	column int // Current column (1-indexed)
	tokens []Token
	logger *zap.Logger
}

// NewLexer creates a lexer over source. Line endings are normalized to '\n'
// before scanning so positions are stable across platforms.
func NewLexer(source string, config LexerConfig, logger *zap.Logger) *Lexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgLexerCreated, zap.Int(LogFieldSource, len(source)))
	return &Lexer{
		source: NormalizeLineEndings(source),
		config: config,
		line:   1,
		column: 1,
		logger: logger,
	}
}

// NormalizeLineEndings converts \r\n and lone \r to \n
func NormalizeLineEndings(s string) string {
	if !strings.ContainsRune(s, CharCarriageRet) {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Tokenize processes the source and returns a token stream terminated by EOF
func (l *Lexer) Tokenize() ([]Token, error) {
	l.logger.Debug(LogMsgTokenizerStart)
	l.tokens = l.tokens[:0]

	for !l.isAtEnd() {
		offset, kind := l.nearestStart()
		if offset < 0 {
			l.emitText(len(l.source)-l.pos, false)
			break
		}

		leftDash := l.pos+offset+LenDelimiter < len(l.source) && l.source[l.pos+offset+LenDelimiter] == CharDash
		stripIndent := kind == TokenBlockStart && (leftDash || l.config.LstripBlocks)
		l.emitText(offset, stripIndent)

		var err error
		switch kind {
		case TokenBlockStart:
			if loc := rawOpenPattern.FindStringSubmatchIndex(l.source[l.pos:]); loc != nil {
				err = l.lexRaw(loc)
			} else {
				err = l.lexTag(TokenBlockStart, TokenBlockEnd, StrBlockEnd)
			}
			if err == nil && l.config.LstripBlocks {
				l.skipWhitespace()
			}
		case TokenVariableStart:
			err = l.lexTag(TokenVariableStart, TokenVariableEnd, StrVariableEnd)
		case TokenCommentStart:
			err = l.lexComment()
		}
		if err != nil {
			return l.tokens, err
		}
	}

	l.tokens = append(l.tokens, NewEOFToken(l.currentPosition()))
	l.logger.Debug(LogMsgTokenizerEnd, zap.Int(LogFieldTokens, len(l.tokens)))
	return l.tokens, nil
}

// nearestStart finds the closest start delimiter from the current position.
// It returns the offset relative to pos and the delimiter kind, or -1.
func (l *Lexer) nearestStart() (int, TokenKind) {
	rest := l.source[l.pos:]
	searched := 0
	for {
		idx := strings.IndexByte(rest[searched:], '{')
		if idx < 0 || searched+idx+1 >= len(rest) {
			return -1, ""
		}
		at := searched + idx
		switch rest[at+1] {
		case '{':
			return at, TokenVariableStart
		case '%':
			return at, TokenBlockStart
		case '#':
			return at, TokenCommentStart
		}
		searched = at + 1
	}
}

// emitText consumes n bytes as a text token. When stripIndent is set, trailing
// spaces and tabs are dropped from the emitted value if they sit at the start
// of a line (always, when the next block carries a left dash).
func (l *Lexer) emitText(n int, stripIndent bool) {
	if n <= 0 {
		return
	}
	start := l.currentPosition()
	text := l.source[l.pos : l.pos+n]
	l.advanceN(n)

	if stripIndent {
		trimmed := strings.TrimRight(text, InlineWhitespace)
		lineStart := (trimmed == "" && start.Offset == 0) || strings.HasSuffix(trimmed, "\n")
		leftDash := l.pos+LenDelimiter < len(l.source) && l.source[l.pos+LenDelimiter] == CharDash
		if leftDash || lineStart {
			text = trimmed
		}
	}
	if text == "" {
		return
	}
	l.tokens = append(l.tokens, NewTextToken(text, start))
}

// lexTag scans a variable or block tag including its delimiters
func (l *Lexer) lexTag(startKind, endKind TokenKind, endDelim string) error {
	start := l.currentPosition()
	l.advanceN(LenDelimiter)
	trimLeft := l.peek() == CharDash
	if trimLeft {
		l.advance()
	}
	l.tokens = append(l.tokens, NewDelimiterToken(startKind, start, trimLeft, false))

	braces := 0
	for {
		l.skipWhitespace()
		if l.isAtEnd() {
			return l.newUnclosedTagError(start)
		}

		if braces == 0 || endKind != TokenVariableEnd {
			if l.peek() == CharDash && l.matchAt(l.pos+1, endDelim) {
				pos := l.currentPosition()
				l.advanceN(1 + LenDelimiter)
				l.tokens = append(l.tokens, NewDelimiterToken(endKind, pos, false, true))
				return nil
			}
			if l.matchStr(endDelim) {
				pos := l.currentPosition()
				l.advanceN(LenDelimiter)
				l.tokens = append(l.tokens, NewDelimiterToken(endKind, pos, false, false))
				return nil
			}
		}

		tok, err := l.scanTagToken(start)
		if err != nil {
			return err
		}
		if tok.Kind == TokenOperator {
			switch tok.Value {
			case OpLBrace:
				braces++
			case OpRBrace:
				if braces > 0 {
					braces--
				}
			}
		}
		l.tokens = append(l.tokens, tok)
	}
}

// scanTagToken scans one token inside a tag using longest-match rules
func (l *Lexer) scanTagToken(tagStart Position) (Token, error) {
	pos := l.currentPosition()
	ch := l.peek()

	switch {
	case ch == CharDoubleQuote || ch == CharSingleQuote:
		return l.scanString(tagStart)
	case isDigit(ch):
		return l.scanNumber(), nil
	case isNameStart(ch):
		begin := l.pos
		for !l.isAtEnd() && isNameChar(l.peek()) {
			l.advance()
		}
		return NewToken(TokenName, l.source[begin:l.pos], pos), nil
	}

	for _, op := range operatorLiterals {
		if l.matchStr(op) {
			l.advanceN(len(op))
			return NewToken(TokenOperator, op, pos), nil
		}
	}
	return Token{}, &LexError{
		Kind:     LexErrUnexpectedChar,
		Message:  fmt.Sprintf("%s %q", ErrMsgUnexpectedChar, ch),
		Position: pos,
		Snippet:  l.snippet(pos.Offset),
	}
}

// scanString scans a quoted literal. The token value is the raw text between
// the quotes; escape sequences are resolved by the expression parser.
func (l *Lexer) scanString(tagStart Position) (Token, error) {
	pos := l.currentPosition()
	quote := l.advance()
	begin := l.pos
	for !l.isAtEnd() {
		ch := l.peek()
		if ch == CharBackslash {
			l.advanceN(2)
			continue
		}
		if ch == quote {
			value := l.source[begin:l.pos]
			l.advance()
			return NewToken(TokenString, value, pos), nil
		}
		l.advance()
	}
	return Token{}, &LexError{
		Kind:     LexErrUnterminatedString,
		Message:  ErrMsgUnterminatedString,
		Position: pos,
		Snippet:  l.snippet(tagStart.Offset),
	}
}

// scanNumber scans an integer or decimal literal
func (l *Lexer) scanNumber() Token {
	pos := l.currentPosition()
	begin := l.pos
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == CharDot && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1]) {
		l.advance()
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	return NewToken(TokenNumber, l.source[begin:l.pos], pos)
}

// lexRaw emits the raw open tag, the verbatim body, and the endraw tag.
// loc holds the submatch indexes of rawOpenPattern relative to pos.
func (l *Lexer) lexRaw(loc []int) error {
	start := l.currentPosition()
	trimLeft := loc[3] > loc[2]
	trimRight := loc[5] > loc[4]
	l.tokens = append(l.tokens, NewDelimiterToken(TokenBlockStart, start, trimLeft, false))
	l.tokens = append(l.tokens, NewToken(TokenName, TagRaw, start))
	l.advanceN(loc[1] - LenDelimiter)
	l.tokens = append(l.tokens, NewDelimiterToken(TokenBlockEnd, l.currentPosition(), false, trimRight))
	l.advanceN(LenDelimiter)

	closing := rawClosePattern.FindStringSubmatchIndex(l.source[l.pos:])
	if closing == nil {
		return l.newUnclosedTagError(start)
	}

	bodyPos := l.currentPosition()
	l.tokens = append(l.tokens, NewToken(TokenRawText, l.source[l.pos:l.pos+closing[0]], bodyPos))
	l.advanceN(closing[0])

	endPos := l.currentPosition()
	l.tokens = append(l.tokens, NewDelimiterToken(TokenBlockStart, endPos, closing[3] > closing[2], false))
	l.tokens = append(l.tokens, NewToken(TokenName, TagEndRaw, endPos))
	l.advanceN(closing[1] - closing[0] - LenDelimiter)
	l.tokens = append(l.tokens, NewDelimiterToken(TokenBlockEnd, l.currentPosition(), false, closing[5] > closing[4]))
	l.advanceN(LenDelimiter)
	return nil
}

// lexComment emits a comment as start, body, and end tokens. The body is
// kept verbatim so comments may contain unbalanced quotes.
func (l *Lexer) lexComment() error {
	start := l.currentPosition()
	end := strings.Index(l.source[l.pos+LenDelimiter:], StrCommentEnd)
	if end < 0 {
		return l.newUnclosedTagError(start)
	}
	body := l.source[l.pos+LenDelimiter : l.pos+LenDelimiter+end]

	trimLeft := strings.HasPrefix(body, "-")
	trimRight := strings.HasSuffix(body, "-") && (len(body) > 1 || !trimLeft)
	l.tokens = append(l.tokens, NewDelimiterToken(TokenCommentStart, start, trimLeft, false))
	l.advanceN(LenDelimiter)

	if trimLeft {
		body = body[1:]
	}
	if trimRight {
		body = body[:len(body)-1]
	}
	l.tokens = append(l.tokens, NewToken(TokenCommentBody, body, l.currentPosition()))
	l.advanceN(end)
	l.tokens = append(l.tokens, NewDelimiterToken(TokenCommentEnd, l.currentPosition(), false, trimRight))
	l.advanceN(LenDelimiter)
	return nil
}

// Helper methods

// currentPosition returns the current position
func (l *Lexer) currentPosition() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

// isAtEnd returns true if we've reached the end of source
func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

// peek returns the current character without advancing
func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

// advance consumes and returns the current character
func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	if ch == CharNewline {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

// advanceN advances by n characters
func (l *Lexer) advanceN(n int) {
	for i := 0; i < n && !l.isAtEnd(); i++ {
		l.advance()
	}
}

// matchStr returns true if the remaining source starts with s
func (l *Lexer) matchStr(s string) bool {
	return strings.HasPrefix(l.source[l.pos:], s)
}

// matchAt returns true if the source at offset starts with s
func (l *Lexer) matchAt(offset int, s string) bool {
	if offset > len(l.source) {
		return false
	}
	return strings.HasPrefix(l.source[offset:], s)
}

// skipWhitespace skips spaces, tabs, and newlines
func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() && strings.IndexByte(AllWhitespace, l.peek()) >= 0 {
		l.advance()
	}
}

// snippet returns a short excerpt of the source starting at offset
func (l *Lexer) snippet(offset int) string {
	end := offset + DefaultSnippetLength
	if end > len(l.source) {
		end = len(l.source)
	}
	s := l.source[offset:end]
	if nl := strings.IndexByte(s, CharNewline); nl >= 0 {
		s = s[:nl]
	}
	return s
}

func (l *Lexer) newUnclosedTagError(start Position) error {
	return &LexError{
		Kind:     LexErrUnclosedTag,
		Message:  ErrMsgUnclosedTag,
		Position: start,
		Snippet:  l.snippet(start.Offset),
	}
}

// Character classification helpers

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isNameStart(ch byte) bool {
	return isLetter(ch) || ch == CharUnderscore
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || isDigit(ch)
}

// LexErrorKind classifies lexer failures
type LexErrorKind string

// Lexer error kinds
const (
	LexErrUnclosedTag        LexErrorKind = "UnclosedTag"
	LexErrUnterminatedString LexErrorKind = "UnterminatedString"
	LexErrUnexpectedChar     LexErrorKind = "UnexpectedCharacter"
)

// LexError represents a lexer error with position and a source snippet
type LexError struct {
	Kind     LexErrorKind
	Message  string
	Position Position
	Snippet  string
}

func (e *LexError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("%s at %s", e.Message, e.Position)
	}
	return fmt.Sprintf("%s at %s near %q", e.Message, e.Position, e.Snippet)
}

// Error message constants for lexer
const (
	ErrMsgUnclosedTag        = "unclosed tag"
	ErrMsgUnterminatedString = "unterminated string literal"
	ErrMsgUnexpectedChar     = "unexpected character"
)
