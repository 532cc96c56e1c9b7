package internal

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
)

// evalFunctionCall resolves name(...) against the scope, then the global
// function registry. caller is bound in the callee when it is a macro.
func (s *renderState) evalFunctionCall(x *FunctionCallExpr, caller *CallerValue) (any, error) {
	target, found := s.scope.Lookup(x.Name)
	if found && target != nil {
		args, kwargs, err := s.evalArgs(x.Args)
		if err != nil {
			return nil, err
		}
		return s.callValue(target, x.Name, args, kwargs, caller, x.Position)
	}

	if s.renderer.functions.Has(x.Name) {
		args, kwargs, err := s.evalArgs(x.Args)
		if err != nil {
			return nil, err
		}
		result, err := s.renderer.functions.Call(x.Name, args, kwargs)
		if err != nil {
			return nil, asRenderError(err, RenderErrInvalidArgument, x.Position)
		}
		return result, nil
	}

	if s.root.MacroNames[x.Name] {
		return nil, NewRenderError(RenderErrUsedBeforeDefined, fmt.Sprintf("%s: %s", ErrMsgUsedBeforeDefined, x.Name), x.Position, nil)
	}
	if found {
		return nil, NewRenderError(RenderErrUnknownFunction, fmt.Sprintf("'%s' %s", x.Name, ErrMsgNotCallable), x.Position, nil)
	}
	return nil, NewRenderError(RenderErrUnknownFunction, fmt.Sprintf("%s '%s'", ErrMsgUnknownFunction, x.Name), x.Position, nil)
}

// callValue invokes a callable template value
func (s *renderState) callValue(target any, name string, args []any, kwargs map[string]any, caller *CallerValue, pos Position) (any, error) {
	switch fn := target.(type) {
	case *MacroDefinition:
		return s.invokeMacro(fn, args, kwargs, caller, pos)
	case *CallerValue:
		return s.invokeCaller(fn, args, kwargs, pos)
	case *LoopContext:
		return s.recurse(fn, args, pos)
	case Func:
		return wrapCall(fn(args, kwargs))(pos)
	case func(args []any, kwargs map[string]any) (any, error):
		return wrapCall(fn(args, kwargs))(pos)
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() == reflect.Func {
		if len(kwargs) > 0 {
			return nil, NewRenderError(RenderErrInvalidArgument, fmt.Sprintf("%s: %s", ErrMsgNoKeywordArgs, name), pos, nil)
		}
		return wrapCall(CallGoFunc(rv, args))(pos)
	}
	return nil, NewRenderError(RenderErrUnknownFunction, fmt.Sprintf("'%s' %s", name, ErrMsgNotCallable), pos, nil)
}

func wrapCall(result any, err error) func(Position) (any, error) {
	return func(pos Position) (any, error) {
		if err != nil {
			return nil, asRenderError(err, RenderErrInvalidArgument, pos)
		}
		return result, nil
	}
}

func isCallable(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case *MacroDefinition, *CallerValue, Func, func([]any, map[string]any) (any, error):
		return true
	case *LoopContext:
		return v.(*LoopContext).Recursive()
	}
	return reflect.ValueOf(v).Kind() == reflect.Func
}

// invokeMacro renders a macro body in a fresh frame. Parameters bind
// positionally or by keyword; missing ones bind none. Surplus arguments are
// collected in varargs and kwargs.
func (s *renderState) invokeMacro(m *MacroDefinition, args []any, kwargs map[string]any, caller *CallerValue, pos Position) (any, error) {
	if err := s.enter(pos); err != nil {
		return nil, err
	}
	defer s.leave()

	s.renderer.logger.Debug(LogMsgMacroInvoked,
		zap.String(LogFieldMacro, m.Name),
		zap.Int(LogFieldArgs, len(args)+len(kwargs)),
		zap.Int(LogFieldDepth, s.depth),
	)

	var out strings.Builder
	err := s.scope.With(false, func(f *Frame) error {
		for i, param := range m.Params {
			if i < len(args) {
				f.Bind(param, args[i])
			} else {
				f.Bind(param, nil)
			}
		}
		varargs := []any{}
		if len(args) > len(m.Params) {
			varargs = append(varargs, args[len(m.Params):]...)
		}
		extra := map[string]any{}
		for k, v := range kwargs {
			if containsString(m.Params, k) {
				f.Bind(k, v)
			} else {
				extra[k] = v
			}
		}
		f.Bind(VarVarargs, varargs)
		f.Bind(VarKwargs, extra)
		if caller != nil {
			f.Bind(VarCaller, caller)
		}
		return s.renderNodes(m.Body, &out)
	})
	if err != nil {
		return nil, err
	}
	return out.String(), nil
}

// invokeCaller renders a call block body with the bindings visible where
// the call block appeared plus its own parameters
func (s *renderState) invokeCaller(c *CallerValue, args []any, kwargs map[string]any, pos Position) (any, error) {
	if err := s.enter(pos); err != nil {
		return nil, err
	}
	defer s.leave()

	var out strings.Builder
	err := s.scope.With(false, func(f *Frame) error {
		if c.frame != nil {
			f.copyFrom(c.frame)
		}
		for i, param := range c.Params {
			if i < len(args) {
				f.Bind(param, args[i])
			} else {
				f.Bind(param, nil)
			}
		}
		for k, v := range kwargs {
			if containsString(c.Params, k) {
				f.Bind(k, v)
			}
		}
		return s.renderNodes(c.Body, &out)
	})
	if err != nil {
		return nil, err
	}
	return out.String(), nil
}

// evalMethodCall resolves obj.name(...). caller is bound when the method
// resolves to a macro.
func (s *renderState) evalMethodCall(x *MethodCallExpr, caller *CallerValue) (any, error) {
	obj, err := s.eval(x.Object)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, NewRenderError(RenderErrNullTarget, fmt.Sprintf("%s: %s.%s()", ErrMsgNullMethod, x.Object, x.Name), x.Position, nil)
	}
	args, kwargs, err := s.evalArgs(x.Args)
	if err != nil {
		return nil, err
	}

	if m, ok := obj.(map[string]any); ok {
		if member, ok := m[x.Name]; ok && isCallable(member) {
			return s.callValue(member, x.Name, args, kwargs, caller, x.Position)
		}
	}
	if lc, ok := obj.(*LoopContext); ok && x.Name == MethodCycle {
		return lc.Cycle(args), nil
	}
	if result, handled, err := CallBuiltinMethod(obj, x.Name, args, kwargs); handled {
		if err != nil {
			return nil, asRenderError(err, RenderErrInvalidArgument, x.Position)
		}
		return result, nil
	}

	member, err := s.getAttr(obj, x.Name, x.Position)
	if err != nil {
		return nil, err
	}
	if isCallable(member) {
		return s.callValue(member, x.Name, args, kwargs, caller, x.Position)
	}
	return nil, NewRenderError(RenderErrMemberAccess, fmt.Sprintf("%s %s %q", TypeName(obj), ErrMsgNoMethod, x.Name), x.Position, nil)
}
