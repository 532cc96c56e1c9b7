package internal

import (
	"fmt"
	"strings"
)

// Expr is the interface for all expression AST nodes
type Expr interface {
	exprNode()
	Pos() Position
	String() string
}

// LiteralExpr represents a constant: nil, bool, int64, float64, or string
type LiteralExpr struct {
	Value    any
	Position Position
}

func (e *LiteralExpr) exprNode()     {}
func (e *LiteralExpr) Pos() Position { return e.Position }
func (e *LiteralExpr) String() string {
	return Repr(e.Value)
}

// IdentifierExpr is a variable reference
type IdentifierExpr struct {
	Name     string
	Position Position
}

func (e *IdentifierExpr) exprNode()      {}
func (e *IdentifierExpr) Pos() Position  { return e.Position }
func (e *IdentifierExpr) String() string { return e.Name }

// UnaryExpr applies not, - or + to an operand
type UnaryExpr struct {
	Op       string
	Operand  Expr
	Position Position
}

func (e *UnaryExpr) exprNode()     {}
func (e *UnaryExpr) Pos() Position { return e.Position }
func (e *UnaryExpr) String() string {
	if e.Op == OpNot {
		return fmt.Sprintf("(not %s)", e.Operand)
	}
	return fmt.Sprintf("(%s%s)", e.Op, e.Operand)
}

// BinaryExpr applies an arithmetic, comparison, membership, test or logical operator.
// For is / is not the right side is an IdentifierExpr naming the test.
type BinaryExpr struct {
	Op       string
	Left     Expr
	Right    Expr
	Position Position
}

func (e *BinaryExpr) exprNode()     {}
func (e *BinaryExpr) Pos() Position { return e.Position }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// ConditionalExpr is the inline "a if cond else b" form. Else may be nil.
type ConditionalExpr struct {
	Cond     Expr
	Then     Expr
	Else     Expr
	Position Position
}

func (e *ConditionalExpr) exprNode()     {}
func (e *ConditionalExpr) Pos() Position { return e.Position }
func (e *ConditionalExpr) String() string {
	if e.Else == nil {
		return fmt.Sprintf("(%s if %s)", e.Then, e.Cond)
	}
	return fmt.Sprintf("(%s if %s else %s)", e.Then, e.Cond, e.Else)
}

// AttributeExpr is object.name
type AttributeExpr struct {
	Object   Expr
	Name     string
	Position Position
}

func (e *AttributeExpr) exprNode()      {}
func (e *AttributeExpr) Pos() Position  { return e.Position }
func (e *AttributeExpr) String() string { return fmt.Sprintf("%s.%s", e.Object, e.Name) }

// IndexExpr is target[index] where Index may be a *SliceExpr
type IndexExpr struct {
	Target   Expr
	Index    Expr
	Position Position
}

func (e *IndexExpr) exprNode()      {}
func (e *IndexExpr) Pos() Position  { return e.Position }
func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.Target, e.Index) }

// SliceExpr holds optional start, stop and step bounds
type SliceExpr struct {
	Start    Expr
	Stop     Expr
	Step     Expr
	Position Position
}

func (e *SliceExpr) exprNode()     {}
func (e *SliceExpr) Pos() Position { return e.Position }
func (e *SliceExpr) String() string {
	part := func(x Expr) string {
		if x == nil {
			return ""
		}
		return x.String()
	}
	if e.Step == nil {
		return fmt.Sprintf("%s:%s", part(e.Start), part(e.Stop))
	}
	return fmt.Sprintf("%s:%s:%s", part(e.Start), part(e.Stop), part(e.Step))
}

// ListExpr is a list literal
type ListExpr struct {
	Items    []Expr
	Position Position
}

func (e *ListExpr) exprNode()     {}
func (e *ListExpr) Pos() Position { return e.Position }
func (e *ListExpr) String() string {
	return "[" + joinExprs(e.Items) + "]"
}

// MapEntry is one key/value pair of a map literal
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapExpr is a map literal; entry order is preserved for evaluation
type MapExpr struct {
	Entries  []MapEntry
	Position Position
}

func (e *MapExpr) exprNode()     {}
func (e *MapExpr) Pos() Position { return e.Position }
func (e *MapExpr) String() string {
	parts := make([]string, len(e.Entries))
	for i, entry := range e.Entries {
		parts[i] = entry.Key.String() + ": " + entry.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// KeywordArg is a name=value call argument
type KeywordArg struct {
	Name  string
	Value Expr
}

// Arguments holds positional arguments followed by keyword arguments
type Arguments struct {
	Positional []Expr
	Keywords   []KeywordArg
}

// Len returns the total number of arguments
func (a Arguments) Len() int {
	return len(a.Positional) + len(a.Keywords)
}

func (a Arguments) String() string {
	parts := make([]string, 0, a.Len())
	for _, p := range a.Positional {
		parts = append(parts, p.String())
	}
	for _, kw := range a.Keywords {
		parts = append(parts, kw.Name+"="+kw.Value.String())
	}
	return strings.Join(parts, ", ")
}

// FilterExpr applies a named filter to Value
type FilterExpr struct {
	Value    Expr
	Name     string
	Args     Arguments
	Position Position
}

func (e *FilterExpr) exprNode()     {}
func (e *FilterExpr) Pos() Position { return e.Position }
func (e *FilterExpr) String() string {
	if e.Args.Len() == 0 {
		return fmt.Sprintf("%s | %s", e.Value, e.Name)
	}
	return fmt.Sprintf("%s | %s(%s)", e.Value, e.Name, e.Args)
}

// FunctionCallExpr calls a named function, macro or callable value
type FunctionCallExpr struct {
	Name     string
	Args     Arguments
	Position Position
}

func (e *FunctionCallExpr) exprNode()      {}
func (e *FunctionCallExpr) Pos() Position  { return e.Position }
func (e *FunctionCallExpr) String() string { return fmt.Sprintf("%s(%s)", e.Name, e.Args) }

// MethodCallExpr calls a named method on an object
type MethodCallExpr struct {
	Object   Expr
	Name     string
	Args     Arguments
	Position Position
}

func (e *MethodCallExpr) exprNode()     {}
func (e *MethodCallExpr) Pos() Position { return e.Position }
func (e *MethodCallExpr) String() string {
	return fmt.Sprintf("%s.%s(%s)", e.Object, e.Name, e.Args)
}

func joinExprs(items []Expr) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}
