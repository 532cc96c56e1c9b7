package internal

import (
	"fmt"
	"strings"
)

// Node is the interface for all statement-level AST nodes
type Node interface {
	Type() NodeType
	Pos() Position
	String() string
}

// Trimmer is implemented by nodes whose delimiters can carry '-' markers
type Trimmer interface {
	Node
	TrimMarkers() (left, right bool)
}

// TemplateNode is the root of a compiled template
type TemplateNode struct {
	Children []Node
	// MacroNames lists every macro declared anywhere in the template
	MacroNames map[string]bool
}

// NewTemplateNode creates a root node
func NewTemplateNode(children []Node) *TemplateNode {
	return &TemplateNode{
		Children:   children,
		MacroNames: make(map[string]bool),
	}
}

func (n *TemplateNode) Type() NodeType { return NodeTypeTemplate }
func (n *TemplateNode) Pos() Position  { return Position{Line: 1, Column: 1} }
func (n *TemplateNode) String() string {
	return fmt.Sprintf("Template{children=%d}", len(n.Children))
}

// TextNode is a literal run of template text. TrimLeft and TrimRight are set
// by the trim pass and strip leading or trailing whitespace at render time.
type TextNode struct {
	Content   string
	TrimLeft  bool
	TrimRight bool
	Position  Position
}

// NewTextNode creates a text node
func NewTextNode(content string, pos Position) *TextNode {
	return &TextNode{Content: content, Position: pos}
}

func (n *TextNode) Type() NodeType { return NodeTypeText }
func (n *TextNode) Pos() Position  { return n.Position }
func (n *TextNode) String() string {
	content := n.Content
	if len(content) > 20 {
		content = content[:20] + "..."
	}
	return fmt.Sprintf("Text{%q}", content)
}

// Rendered returns the content with trim flags applied
func (n *TextNode) Rendered() string {
	s := n.Content
	if n.TrimLeft {
		s = strings.TrimLeft(s, AllWhitespace)
	}
	if n.TrimRight {
		s = strings.TrimRight(s, AllWhitespace)
	}
	return s
}

// VariableNode is a {{ expr }} output statement
type VariableNode struct {
	Expr      Expr
	TrimLeft  bool
	TrimRight bool
	Position  Position
}

func (n *VariableNode) Type() NodeType                  { return NodeTypeVariable }
func (n *VariableNode) Pos() Position                   { return n.Position }
func (n *VariableNode) String() string                  { return fmt.Sprintf("Variable{%s}", n.Expr) }
func (n *VariableNode) TrimMarkers() (left, right bool) { return n.TrimLeft, n.TrimRight }

// CommentNode is a {# ... #} comment; it renders nothing
type CommentNode struct {
	Content   string
	TrimLeft  bool
	TrimRight bool
	Position  Position
}

func (n *CommentNode) Type() NodeType                  { return NodeTypeComment }
func (n *CommentNode) Pos() Position                   { return n.Position }
func (n *CommentNode) String() string                  { return "Comment{}" }
func (n *CommentNode) TrimMarkers() (left, right bool) { return n.TrimLeft, n.TrimRight }

// RawNode holds the verbatim body of a raw block
type RawNode struct {
	Content   string
	TrimLeft  bool
	TrimRight bool
	Position  Position
}

func (n *RawNode) Type() NodeType                  { return NodeTypeRaw }
func (n *RawNode) Pos() Position                   { return n.Position }
func (n *RawNode) String() string                  { return fmt.Sprintf("Raw{%d bytes}", len(n.Content)) }
func (n *RawNode) TrimMarkers() (left, right bool) { return n.TrimLeft, n.TrimRight }

// BlockTrim records the '-' markers of a block's opening and closing tags.
// Left/Right face the block's siblings; BodyLeft/BodyRight face its children.
type BlockTrim struct {
	Left      bool
	Right     bool
	BodyLeft  bool
	BodyRight bool
}

// BlockNode is any {% tag %} construct, with or without a body.
// Tag-specific data lives in the typed fields below; unused fields stay zero.
type BlockNode struct {
	Name     string
	Args     []Expr
	Children []Node
	Branches []*BlockNode // elif/else branches, in source order
	Trim     BlockTrim
	Position Position

	Targets   []Expr   // for: loop variables; set: assignment targets
	Params    []string // macro and call-block parameter names
	Label     string   // macro name
	Filter    Expr     // for: trailing "if" clause
	Recursive bool     // for: trailing "recursive" marker
	Capture   bool     // set: block form that captures its body
	LoopScope bool     // set: trailing "loop" marker
}

// NewBlockNode creates a block node for the given tag name
func NewBlockNode(name string, pos Position) *BlockNode {
	return &BlockNode{Name: name, Position: pos}
}

func (n *BlockNode) Type() NodeType { return NodeTypeBlock }
func (n *BlockNode) Pos() Position  { return n.Position }
func (n *BlockNode) String() string {
	if len(n.Args) == 0 {
		return fmt.Sprintf("Block{%s, children=%d}", n.Name, len(n.Children))
	}
	return fmt.Sprintf("Block{%s %s, children=%d}", n.Name, joinExprs(n.Args), len(n.Children))
}
func (n *BlockNode) TrimMarkers() (left, right bool) { return n.Trim.Left, n.Trim.Right }

// Branch returns the first branch with the given tag name, or nil
func (n *BlockNode) Branch(name string) *BlockNode {
	for _, b := range n.Branches {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// MacroDefinition is the value a macro tag binds in the global namespace
type MacroDefinition struct {
	Name   string
	Params []string
	Body   []Node
}

func (m *MacroDefinition) String() string {
	return fmt.Sprintf("<macro %s(%s)>", m.Name, strings.Join(m.Params, ", "))
}
