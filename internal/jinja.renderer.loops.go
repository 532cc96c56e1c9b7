package internal

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Loop strategies
const (
	loopStandard  = "standard"
	loopNested    = "nested"
	loopRecursive = "recursive"
)

func (s *renderState) renderFor(n *BlockNode, out *strings.Builder) error {
	iterable, err := s.eval(n.Args[0])
	if err != nil {
		return err
	}
	items, ok := Iterate(iterable)
	if !ok {
		return NewRenderError(RenderErrNotIterable, fmt.Sprintf("%s: %s", ErrMsgNotIterable, TypeName(iterable)), n.Args[0].Pos(), nil)
	}
	return s.runLoop(n, items, 0, out)
}

// runLoop filters items, renders the else branch when nothing is left, and
// otherwise picks one of three scoping strategies: a recursive loop keeps
// its assignments to itself, a loop nested inside another loop hands its
// assignments to the enclosing loop, and a top-level loop promotes new
// names to the enclosing frame.
func (s *renderState) runLoop(n *BlockNode, items []any, depth int, out *strings.Builder) error {
	if n.Filter != nil {
		filtered, err := s.filterItems(n, items, depth)
		if err != nil {
			return err
		}
		items = filtered
	}
	if len(items) == 0 {
		if branch := n.Branch(TagElse); branch != nil {
			return s.renderNodes(branch.Children, out)
		}
		return nil
	}

	parent := s.scope.Current()
	switch {
	case n.Recursive:
		s.logStrategy(loopRecursive, depth)
		return s.scope.With(true, func(f *Frame) error {
			return s.iterate(n, f, items, depth, n, out)
		})

	case parent.Has(VarLoop):
		s.logStrategy(loopNested, depth)
		return s.scope.With(true, func(f *Frame) error {
			if err := s.iterate(n, f, items, depth, nil, out); err != nil {
				return err
			}
			MergePropagated(parent, f, withoutLoopVars(f.Declared(), n))
			return nil
		})

	default:
		s.logStrategy(loopStandard, depth)
		return s.scope.With(true, func(f *Frame) error {
			if err := s.iterate(n, f, items, depth, nil, out); err != nil {
				return err
			}
			var promote []string
			for _, name := range withoutLoopVars(f.Declared(), n) {
				if !parent.Has(name) {
					promote = append(promote, name)
				}
			}
			for _, name := range withoutLoopVars(f.Propagated(), n) {
				if !containsString(promote, name) {
					promote = append(promote, name)
				}
			}
			for _, name := range promote {
				s.renderer.logger.Debug(LogMsgVariablePromoted, zap.String(LogFieldVariable, name))
			}
			Promote(parent, f, promote)
			return nil
		})
	}
}

func (s *renderState) logStrategy(strategy string, depth int) {
	s.renderer.logger.Debug(LogMsgLoopStrategy,
		zap.String(LogFieldStrategy, strategy),
		zap.Int(LogFieldDepth, depth),
	)
}

// iterate renders the loop body once per item in frame f. recurse is the
// block a recursive loop re-enters when the loop value is called.
func (s *renderState) iterate(n *BlockNode, f *Frame, items []any, depth int, recurse *BlockNode, out *strings.Builder) error {
	for i, item := range items {
		if err := s.ctx.Err(); err != nil {
			return NewRenderError(RenderErrCanceled, err.Error(), n.Position, err)
		}
		if err := bindTargets(f, n.Targets, item, n.Position); err != nil {
			return err
		}
		f.Bind(VarLoop, newLoopContext(i, items, depth, recurse))
		if err := s.renderNodes(n.Children, out); err != nil {
			return err
		}
		f.ClearIteration()
	}
	return nil
}

// filterItems evaluates the loop's trailing if clause against every item
// in a scratch frame. The loop value seen by the clause indexes the
// unfiltered candidates.
func (s *renderState) filterItems(n *BlockNode, items []any, depth int) ([]any, error) {
	var kept []any
	err := s.scope.With(true, func(f *Frame) error {
		for i, item := range items {
			if err := bindTargets(f, n.Targets, item, n.Position); err != nil {
				return err
			}
			f.Bind(VarLoop, newLoopContext(i, items, depth, nil))
			ok, err := s.eval(n.Filter)
			if err != nil {
				return err
			}
			if IsTruthy(ok) {
				kept = append(kept, item)
			}
		}
		return nil
	})
	return kept, err
}

// recurse re-enters a recursive loop with a new iterable, returning the
// rendered output
func (s *renderState) recurse(lc *LoopContext, args []any, pos Position) (any, error) {
	if lc.block == nil {
		return nil, NewRenderError(RenderErrUnknownFunction, ErrMsgNotRecursive, pos, nil)
	}
	if len(args) != 1 {
		return nil, NewRenderError(RenderErrInvalidArgument, fmt.Sprintf("%s: loop() takes 1 argument, got %d", ErrMsgArgCount, len(args)), pos, nil)
	}
	items, ok := Iterate(args[0])
	if !ok {
		return nil, NewRenderError(RenderErrNotIterable, fmt.Sprintf("%s: %s", ErrMsgNotIterable, TypeName(args[0])), pos, nil)
	}
	if err := s.enter(pos); err != nil {
		return nil, err
	}
	defer s.leave()

	var out strings.Builder
	if err := s.runLoop(lc.block, items, lc.Depth0+1, &out); err != nil {
		return nil, err
	}
	return out.String(), nil
}

func bindTargets(f *Frame, targets []Expr, item any, pos Position) error {
	if len(targets) == 1 {
		f.Bind(targets[0].(*IdentifierExpr).Name, item)
		return nil
	}
	values, err := unpack(item, len(targets), pos)
	if err != nil {
		return err
	}
	for i, target := range targets {
		f.Bind(target.(*IdentifierExpr).Name, values[i])
	}
	return nil
}

// withoutLoopVars drops the loop's own targets and "loop" from names
func withoutLoopVars(names []string, n *BlockNode) []string {
	out := names[:0:0]
	for _, name := range names {
		if name == VarLoop || isLoopTarget(n, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func isLoopTarget(n *BlockNode, name string) bool {
	for _, target := range n.Targets {
		if ident, ok := target.(*IdentifierExpr); ok && ident.Name == name {
			return true
		}
	}
	return false
}
