package internal

// TokenKind represents the kind of a lexical token
type TokenKind string

// Token kind constants
const (
	TokenText          TokenKind = "TEXT"
	TokenVariableStart TokenKind = "VARIABLE_START"
	TokenVariableEnd   TokenKind = "VARIABLE_END"
	TokenBlockStart    TokenKind = "BLOCK_START"
	TokenBlockEnd      TokenKind = "BLOCK_END"
	TokenCommentStart  TokenKind = "COMMENT_START"
	TokenCommentEnd    TokenKind = "COMMENT_END"
	TokenCommentBody   TokenKind = "COMMENT_BODY"
	TokenRawText       TokenKind = "RAW_TEXT"
	TokenName          TokenKind = "NAME"
	TokenNumber        TokenKind = "NUMBER"
	TokenString        TokenKind = "STRING"
	TokenOperator      TokenKind = "OPERATOR"
	TokenEOF           TokenKind = "EOF"
)

// NodeType identifies statement-level AST node types
type NodeType int

// Node type constants
const (
	NodeTypeTemplate NodeType = iota
	NodeTypeText
	NodeTypeVariable
	NodeTypeBlock
	NodeTypeRaw
	NodeTypeComment
)

// Node type string names for debugging
const (
	NodeTypeNameTemplate = "TEMPLATE"
	NodeTypeNameText     = "TEXT"
	NodeTypeNameVariable = "VARIABLE"
	NodeTypeNameBlock    = "BLOCK"
	NodeTypeNameRaw      = "RAW"
	NodeTypeNameComment  = "COMMENT"
)

// String returns the string representation of the node type
func (n NodeType) String() string {
	switch n {
	case NodeTypeTemplate:
		return NodeTypeNameTemplate
	case NodeTypeText:
		return NodeTypeNameText
	case NodeTypeVariable:
		return NodeTypeNameVariable
	case NodeTypeBlock:
		return NodeTypeNameBlock
	case NodeTypeRaw:
		return NodeTypeNameRaw
	case NodeTypeComment:
		return NodeTypeNameComment
	default:
		return NodeTypeNameTemplate
	}
}

// Character constants
const (
	CharNewline     = '\n'
	CharCarriageRet = '\r'
	CharSpace       = ' '
	CharTab         = '\t'
	CharDash        = '-'
	CharDoubleQuote = '"'
	CharSingleQuote = '\''
	CharBackslash   = '\\'
	CharUnderscore  = '_'
	CharDot         = '.'
)

// Delimiter strings
const (
	StrVariableStart = "{{"
	StrVariableEnd   = "}}"
	StrBlockStart    = "{%"
	StrBlockEnd      = "%}"
	StrCommentStart  = "{#"
	StrCommentEnd    = "#}"
	LenDelimiter     = 2
)

// Whitespace sets used by trimming
const (
	InlineWhitespace = " \t"
	AllWhitespace    = " \t\n\r"
)

// Tag names of the default registry
const (
	TagIf       = "if"
	TagElif     = "elif"
	TagElse     = "else"
	TagEndIf    = "endif"
	TagFor      = "for"
	TagEndFor   = "endfor"
	TagSet      = "set"
	TagEndSet   = "endset"
	TagRaw      = "raw"
	TagEndRaw   = "endraw"
	TagMacro    = "macro"
	TagEndMacro = "endmacro"
	TagCall     = "call"
	TagEndCall  = "endcall"
)

// Keywords recognised inside tags and expressions
const (
	KeywordIn        = "in"
	KeywordIs        = "is"
	KeywordNot       = "not"
	KeywordAnd       = "and"
	KeywordOr        = "or"
	KeywordIf        = "if"
	KeywordElse      = "else"
	KeywordRecursive = "recursive"
	KeywordLoop      = "loop"
	KeywordTrue      = "true"
	KeywordFalse     = "false"
	KeywordNone      = "none"
	KeywordNull      = "null"
)

// Operator and punctuation literals
const (
	OpAdd        = "+"
	OpSub        = "-"
	OpMul        = "*"
	OpDiv        = "/"
	OpFloorDiv   = "//"
	OpMod        = "%"
	OpPow        = "**"
	OpConcat     = "~"
	OpEq         = "=="
	OpNe         = "!="
	OpLt         = "<"
	OpLe         = "<="
	OpGt         = ">"
	OpGe         = ">="
	OpAssign     = "="
	OpPipe       = "|"
	OpDot        = "."
	OpComma      = ","
	OpColon      = ":"
	OpLParen     = "("
	OpRParen     = ")"
	OpLBracket   = "["
	OpRBracket   = "]"
	OpLBrace     = "{"
	OpRBrace     = "}"
	OpAnd        = "and"
	OpOr         = "or"
	OpNot        = "not"
	OpIn         = "in"
	OpNotIn      = "not in"
	OpIs         = "is"
	OpIsNot      = "is not"
	OpUnaryMinus = "-"
	OpUnaryPlus  = "+"
)

// operatorLiterals is ordered longest first for longest-match scanning
var operatorLiterals = []string{
	"**", "//", "==", "!=", "<=", ">=",
	"+", "-", "*", "/", "%", "~", "<", ">", "=", "|", ".", ",", ":",
	"(", ")", "[", "]", "{", "}",
}

// Names bound by the renderer
const (
	VarLoop    = "loop"
	VarCaller  = "caller"
	VarVarargs = "varargs"
	VarKwargs  = "kwargs"
)

// Test names supported by the is operator
const (
	TestDefined   = "defined"
	TestUndefined = "undefined"
	TestNone      = "none"
	TestTrue      = "true"
	TestFalse     = "false"
	TestOdd       = "odd"
	TestEven      = "even"
	TestString    = "string"
	TestNumber    = "number"
	TestMapping   = "mapping"
	TestSequence  = "sequence"
	TestIterable  = "iterable"
	TestCallable  = "callable"
)

// Display forms
const (
	DisplayTrue  = "True"
	DisplayFalse = "False"
	DisplayNone  = "None"
)

// Renderer defaults
const (
	DefaultMaxDepth      = 256
	DefaultSnippetLength = 20
)

// Log message constants
const (
	LogMsgLexerCreated      = "lexer created"
	LogMsgTokenizerStart    = "starting tokenization"
	LogMsgTokenizerEnd      = "tokenization complete"
	LogMsgParserCreated     = "parser created"
	LogMsgParserStart       = "starting parse"
	LogMsgParserEnd         = "parse complete"
	LogMsgTagRegistered     = "tag parser registered"
	LogMsgPlaceholderTag    = "unknown tag parsed as placeholder"
	LogMsgRendererCreated   = "renderer created"
	LogMsgRenderStart       = "starting render"
	LogMsgRenderEnd         = "render complete"
	LogMsgLoopStrategy      = "loop strategy selected"
	LogMsgMacroDefined      = "macro defined"
	LogMsgMacroInvoked      = "macro invoked"
	LogMsgFilterRegistered  = "filter registered"
	LogMsgVariablePromoted  = "loop variable promoted"
	LogMsgTrimApplied       = "trim pass applied"
)

// Log field constants
const (
	LogFieldSource   = "source_length"
	LogFieldTokens   = "token_count"
	LogFieldNodes    = "node_count"
	LogFieldTag      = "tag"
	LogFieldStrategy = "strategy"
	LogFieldMacro    = "macro"
	LogFieldArgs     = "arg_count"
	LogFieldFilter   = "filter"
	LogFieldVariable = "variable"
	LogFieldDepth    = "depth"
	LogFieldOutput   = "output_length"
)
