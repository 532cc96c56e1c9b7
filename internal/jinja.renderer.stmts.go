package internal

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// renderIf runs the selected branch in a frame copied from the current one
// and merges every name the branch touched back into the enclosing frame.
func (s *renderState) renderIf(n *BlockNode, out *strings.Builder) error {
	parent := s.scope.Current()
	return s.scope.With(true, func(f *Frame) error {
		body, err := s.selectBranch(n)
		if err != nil {
			return err
		}
		if err := s.renderNodes(body, out); err != nil {
			return err
		}
		MergeTouched(parent, f)
		return nil
	})
}

func (s *renderState) selectBranch(n *BlockNode) ([]Node, error) {
	ok, err := s.evalCondition(n)
	if err != nil || ok {
		return n.Children, err
	}
	for _, branch := range n.Branches {
		switch branch.Name {
		case TagElse:
			return branch.Children, nil
		default:
			ok, err := s.evalCondition(branch)
			if err != nil {
				return nil, err
			}
			if ok {
				return branch.Children, nil
			}
		}
	}
	return nil, nil
}

func (s *renderState) evalCondition(n *BlockNode) (bool, error) {
	if len(n.Args) == 0 {
		return false, nil
	}
	v, err := s.eval(n.Args[0])
	if err != nil {
		return false, err
	}
	return IsTruthy(v), nil
}

func (s *renderState) renderSet(n *BlockNode) error {
	if n.Capture {
		var body strings.Builder
		if err := s.renderNodes(n.Children, &body); err != nil {
			return err
		}
		value := strings.TrimSpace(body.String())
		name := n.Targets[0].(*IdentifierExpr).Name
		if n.LoopScope {
			s.scope.Current().AssignIteration(name, value)
			return nil
		}
		s.scope.Assign(name, value)
		return nil
	}

	value, err := s.eval(n.Args[0])
	if err != nil {
		return err
	}
	if len(n.Targets) == 1 {
		return s.assign(n.Targets[0], value)
	}
	values, err := unpack(value, len(n.Targets), n.Position)
	if err != nil {
		return err
	}
	for i, target := range n.Targets {
		if err := s.assign(target, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *renderState) assign(target Expr, value any) error {
	switch t := target.(type) {
	case *IdentifierExpr:
		s.scope.Assign(t.Name, value)
		return nil
	case *AttributeExpr:
		obj, err := s.eval(t.Object)
		if err != nil {
			return err
		}
		if obj == nil {
			return NewRenderError(RenderErrNullTarget, fmt.Sprintf("%s: %s", ErrMsgNullAssign, t), t.Position, nil)
		}
		if err := s.renderer.accessor.SetMember(obj, t.Name, value); err != nil {
			return asRenderError(err, RenderErrMemberAccess, t.Position)
		}
		return nil
	}
	return NewRenderError(RenderErrNotSupported, fmt.Sprintf("%s: %s", ErrMsgUnsupportedExpr, target), target.Pos(), nil)
}

// unpack splits a sequence value into exactly n values
func unpack(value any, n int, pos Position) ([]any, error) {
	items, ok := ToList(value)
	if !ok || len(items) != n {
		return nil, NewRenderError(RenderErrInvalidArgument,
			fmt.Sprintf("%s: expected %d values from %s", ErrMsgUnpackMismatch, n, TypeName(value)), pos, nil)
	}
	return items, nil
}

// defineMacro binds a macro in the global namespace
func (s *renderState) defineMacro(n *BlockNode) error {
	s.scope.Globals().Set(n.Label, &MacroDefinition{
		Name:   n.Label,
		Params: n.Params,
		Body:   n.Children,
	})
	s.renderer.logger.Debug(LogMsgMacroDefined, zap.String(LogFieldMacro, n.Label))
	return nil
}

// renderCallBlock invokes the call expression with the block body bound as caller
func (s *renderState) renderCallBlock(n *BlockNode, out *strings.Builder) error {
	frame := NewFrame()
	frame.copyFrom(s.scope.Current())
	caller := &CallerValue{Params: n.Params, Body: n.Children, frame: frame}
	var (
		value any
		err   error
	)
	switch call := n.Args[0].(type) {
	case *FunctionCallExpr:
		value, err = s.evalFunctionCall(call, caller)
	case *MethodCallExpr:
		value, err = s.evalMethodCall(call, caller)
	default:
		err = NewRenderError(RenderErrNotSupported, ErrMsgUnsupportedExpr, n.Position, nil)
	}
	if err != nil {
		return err
	}
	out.WriteString(Display(value))
	return nil
}
