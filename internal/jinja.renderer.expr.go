package internal

import (
	"fmt"
	"math"
	"strings"
)

// eval evaluates an expression in the current scope
func (s *renderState) eval(e Expr) (any, error) {
	switch x := e.(type) {
	case *LiteralExpr:
		return x.Value, nil
	case *IdentifierExpr:
		v, _ := s.scope.Lookup(x.Name)
		return v, nil
	case *UnaryExpr:
		return s.evalUnary(x)
	case *BinaryExpr:
		return s.evalBinary(x)
	case *ConditionalExpr:
		cond, err := s.eval(x.Cond)
		if err != nil {
			return nil, err
		}
		if IsTruthy(cond) {
			return s.eval(x.Then)
		}
		if x.Else == nil {
			return nil, nil
		}
		return s.eval(x.Else)
	case *AttributeExpr:
		obj, err := s.eval(x.Object)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, NewRenderError(RenderErrNullTarget, fmt.Sprintf("%s: %s", ErrMsgNullAttribute, x), x.Position, nil)
		}
		return s.getAttr(obj, x.Name, x.Position)
	case *IndexExpr:
		return s.evalIndex(x)
	case *SliceExpr:
		return nil, NewRenderError(RenderErrNotSupported, ErrMsgSliceOutsideSubscr, x.Position, nil)
	case *ListExpr:
		items := make([]any, len(x.Items))
		for i, item := range x.Items {
			v, err := s.eval(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil
	case *MapExpr:
		m := make(map[string]any, len(x.Entries))
		for _, entry := range x.Entries {
			k, err := s.eval(entry.Key)
			if err != nil {
				return nil, err
			}
			key, ok := k.(string)
			if !ok {
				return nil, NewRenderError(RenderErrTypeMismatch, fmt.Sprintf("%s, got %s", ErrMsgInvalidMapKey, TypeName(k)), entry.Key.Pos(), nil)
			}
			v, err := s.eval(entry.Value)
			if err != nil {
				return nil, err
			}
			m[key] = v
		}
		return m, nil
	case *FilterExpr:
		return s.evalFilter(x)
	case *FunctionCallExpr:
		return s.evalFunctionCall(x, nil)
	case *MethodCallExpr:
		return s.evalMethodCall(x, nil)
	}
	return nil, NewRenderError(RenderErrNotSupported, fmt.Sprintf("%s: %T", ErrMsgUnsupportedExpr, e), e.Pos(), nil)
}

func (s *renderState) evalArgs(args Arguments) ([]any, map[string]any, error) {
	positional := make([]any, len(args.Positional))
	for i, arg := range args.Positional {
		v, err := s.eval(arg)
		if err != nil {
			return nil, nil, err
		}
		positional[i] = v
	}
	var keywords map[string]any
	if len(args.Keywords) > 0 {
		keywords = make(map[string]any, len(args.Keywords))
		for _, kw := range args.Keywords {
			v, err := s.eval(kw.Value)
			if err != nil {
				return nil, nil, err
			}
			keywords[kw.Name] = v
		}
	}
	return positional, keywords, nil
}

func (s *renderState) evalUnary(x *UnaryExpr) (any, error) {
	v, err := s.eval(x.Operand)
	if err != nil {
		return nil, err
	}
	if x.Op == OpNot {
		return !IsTruthy(v), nil
	}
	n, ok := normalizeNumber(v)
	if !ok {
		return nil, NewRenderError(RenderErrTypeMismatch,
			fmt.Sprintf("%s for unary %s: %s", ErrMsgBadOperand, x.Op, TypeName(v)), x.Position, nil)
	}
	if x.Op == OpUnaryPlus {
		return n, nil
	}
	switch num := n.(type) {
	case int64:
		return -num, nil
	default:
		return -num.(float64), nil
	}
}

func (s *renderState) evalBinary(x *BinaryExpr) (any, error) {
	switch x.Op {
	case OpAnd, OpOr:
		l, err := s.eval(x.Left)
		if err != nil {
			return nil, err
		}
		if IsTruthy(l) == (x.Op == OpOr) {
			return l, nil
		}
		return s.eval(x.Right)
	case OpIs, OpIsNot:
		ok, err := s.evalTest(x.Left, x.Right.(*IdentifierExpr).Name, x.Position)
		if err != nil {
			return nil, err
		}
		return ok != (x.Op == OpIsNot), nil
	}

	l, err := s.eval(x.Left)
	if err != nil {
		return nil, err
	}
	r, err := s.eval(x.Right)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case OpEq:
		return Equal(l, r), nil
	case OpNe:
		return !Equal(l, r), nil
	case OpLt, OpLe, OpGt, OpGe:
		c, err := Compare(l, r)
		if err != nil {
			return nil, asRenderError(err, RenderErrTypeMismatch, x.Position)
		}
		switch x.Op {
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		}
		return c >= 0, nil
	case OpIn, OpNotIn:
		found, err := Contains(r, l)
		if err != nil {
			return nil, asRenderError(err, RenderErrTypeMismatch, x.Position)
		}
		return found != (x.Op == OpNotIn), nil
	case OpConcat:
		return Display(l) + Display(r), nil
	}

	v, err := Arithmetic(x.Op, l, r)
	if err != nil {
		return nil, asRenderError(err, RenderErrTypeMismatch, x.Position)
	}
	return v, nil
}

// Arithmetic applies a numeric operator. Integer operands stay integers
// except for true division; "+" also concatenates strings and lists and "*"
// repeats them.
func Arithmetic(op string, l, r any) (any, error) {
	ln, lok := normalizeNumber(l)
	rn, rok := normalizeNumber(r)
	if lok && rok {
		li, lInt := ln.(int64)
		ri, rInt := rn.(int64)
		if lInt && rInt {
			return intArithmetic(op, li, ri)
		}
		lf, _ := ToFloat(ln)
		rf, _ := ToFloat(rn)
		return floatArithmetic(op, lf, rf)
	}

	switch op {
	case OpAdd:
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
		if ll, ok := ToList(l); ok {
			if rl, ok := ToList(r); ok {
				out := make([]any, 0, len(ll)+len(rl))
				return append(append(out, ll...), rl...), nil
			}
		}
	case OpMul:
		if times, ok := rn.(int64); ok && rok {
			return repeat(l, times)
		}
		if times, ok := ln.(int64); ok && lok {
			return repeat(r, times)
		}
	}
	return nil, NewRenderError(RenderErrTypeMismatch,
		fmt.Sprintf("%s for %s: %s and %s", ErrMsgBadOperand, op, TypeName(l), TypeName(r)), Position{}, nil)
}

func repeat(v any, times int64) (any, error) {
	if times < 0 {
		return nil, NewRenderError(RenderErrInvalidArgument,
			fmt.Sprintf("%s: %d", ErrMsgNegativeRepeat, times), Position{}, nil)
	}
	if s, ok := v.(string); ok {
		if err := checkRepeatSize(len(s), times); err != nil {
			return nil, err
		}
		return strings.Repeat(s, int(times)), nil
	}
	if list, ok := ToList(v); ok {
		if err := checkRepeatSize(len(list), times); err != nil {
			return nil, err
		}
		out := make([]any, 0, len(list)*int(times))
		for i := int64(0); i < times; i++ {
			out = append(out, list...)
		}
		return out, nil
	}
	return nil, NewRenderError(RenderErrTypeMismatch,
		fmt.Sprintf("%s for %s: %s and int", ErrMsgBadOperand, OpMul, TypeName(v)), Position{}, nil)
}

// checkRepeatSize rejects repetitions whose result would exceed
// MaxSequenceLength without computing size*times.
func checkRepeatSize(size int, times int64) error {
	if size == 0 || times <= int64(MaxSequenceLength/size) {
		return nil
	}
	return NewRenderError(RenderErrInvalidArgument,
		fmt.Sprintf("%s: %d x %d", ErrMsgSequenceTooLarge, size, times), Position{}, nil)
}

func divisionByZero() error {
	return NewRenderError(RenderErrDivisionByZero, ErrMsgDivisionByZero, Position{}, nil)
}

func intArithmetic(op string, a, b int64) (any, error) {
	switch op {
	case OpAdd:
		if sum, ok := addInt(a, b); ok {
			return sum, nil
		}
		return float64(a) + float64(b), nil
	case OpSub:
		if b != math.MinInt64 {
			if diff, ok := addInt(a, -b); ok {
				return diff, nil
			}
		}
		return float64(a) - float64(b), nil
	case OpMul:
		if product, ok := mulInt(a, b); ok {
			return product, nil
		}
		return float64(a) * float64(b), nil
	case OpDiv:
		if b == 0 {
			return nil, divisionByZero()
		}
		return float64(a) / float64(b), nil
	case OpFloorDiv:
		if b == 0 {
			return nil, divisionByZero()
		}
		if a == math.MinInt64 && b == -1 {
			return -float64(a), nil
		}
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return q, nil
	case OpMod:
		if b == 0 {
			return nil, divisionByZero()
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	case OpPow:
		if b < 0 {
			return math.Pow(float64(a), float64(b)), nil
		}
		if result, ok := powInt(a, b); ok {
			return result, nil
		}
		return math.Pow(float64(a), float64(b)), nil
	}
	return nil, NewRenderError(RenderErrNotSupported, fmt.Sprintf("%s: %s", ErrMsgBadOperand, op), Position{}, nil)
}

// addInt reports false when a+b overflows; callers promote to float64.
func addInt(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	product := a * b
	if product/b != a {
		return 0, false
	}
	return product, true
}

// powInt computes a**b for b >= 0 by squaring
func powInt(a, b int64) (int64, bool) {
	result := int64(1)
	base := a
	var ok bool
	for ; b > 0; b >>= 1 {
		if b&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}
		if b > 1 {
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

func floatArithmetic(op string, a, b float64) (any, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return nil, divisionByZero()
		}
		return a / b, nil
	case OpFloorDiv:
		if b == 0 {
			return nil, divisionByZero()
		}
		return math.Floor(a / b), nil
	case OpMod:
		if b == 0 {
			return nil, divisionByZero()
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	case OpPow:
		return math.Pow(a, b), nil
	}
	return nil, NewRenderError(RenderErrNotSupported, fmt.Sprintf("%s: %s", ErrMsgBadOperand, op), Position{}, nil)
}

// evalTest implements "x is name"
func (s *renderState) evalTest(left Expr, name string, pos Position) (bool, error) {
	switch name {
	case TestDefined:
		return s.isDefined(left), nil
	case TestUndefined:
		return !s.isDefined(left), nil
	}

	v, err := s.eval(left)
	if err != nil {
		return false, err
	}
	switch name {
	case TestNone:
		return v == nil, nil
	case TestTrue:
		b, ok := v.(bool)
		return ok && b, nil
	case TestFalse:
		b, ok := v.(bool)
		return ok && !b, nil
	case TestOdd, TestEven:
		n, ok := asInt(v)
		if !ok {
			return false, NewRenderError(RenderErrTypeMismatch, fmt.Sprintf("%s: %s test on %s", ErrMsgTypeMismatch, name, TypeName(v)), pos, nil)
		}
		return (n%2 != 0) == (name == TestOdd), nil
	case TestString:
		_, ok := v.(string)
		return ok, nil
	case TestNumber:
		return IsNumber(v), nil
	case TestMapping:
		_, ok := ToMap(v)
		return ok, nil
	case TestSequence:
		if _, ok := v.(string); ok {
			return true, nil
		}
		_, ok := ToList(v)
		return ok, nil
	case TestIterable:
		_, ok := Iterate(v)
		return ok && v != nil, nil
	case TestCallable:
		return isCallable(v), nil
	}
	return false, NewRenderError(RenderErrUnknownTest, fmt.Sprintf("%s %q", ErrMsgUnknownTest, name), pos, nil)
}

// isDefined reports whether an expression resolves to a non-none value
// without raising an error
func (s *renderState) isDefined(e Expr) bool {
	switch x := e.(type) {
	case *IdentifierExpr:
		v, ok := s.scope.Lookup(x.Name)
		if !ok {
			return s.renderer.functions.Has(x.Name)
		}
		return v != nil
	case *AttributeExpr:
		obj, err := s.eval(x.Object)
		if err != nil || obj == nil {
			return false
		}
		v, err := s.getAttr(obj, x.Name, x.Position)
		return err == nil && v != nil
	}
	v, err := s.eval(e)
	return err == nil && v != nil
}

// getAttr resolves obj.name
func (s *renderState) getAttr(obj any, name string, pos Position) (any, error) {
	switch o := obj.(type) {
	case map[string]any:
		return o[name], nil
	case *LoopContext:
		v, _ := o.Attr(name)
		return v, nil
	case *Namespace:
		v, _ := o.Get(name)
		return v, nil
	case *MacroDefinition:
		if name == "name" {
			return o.Name, nil
		}
		return nil, nil
	}
	v, err := s.renderer.accessor.GetMember(obj, name)
	if err != nil {
		return nil, asRenderError(err, RenderErrMemberAccess, pos)
	}
	return v, nil
}

func (s *renderState) evalIndex(x *IndexExpr) (any, error) {
	target, err := s.eval(x.Target)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, NewRenderError(RenderErrNullTarget, fmt.Sprintf("%s: %s", ErrMsgNullIndex, x.Target), x.Position, nil)
	}
	if slice, ok := x.Index.(*SliceExpr); ok {
		return s.evalSlice(target, slice)
	}
	idx, err := s.eval(x.Index)
	if err != nil {
		return nil, err
	}

	if str, ok := target.(string); ok {
		i, ok := asInt(idx)
		if !ok {
			return nil, NewRenderError(RenderErrTypeMismatch, fmt.Sprintf("%s: string index must be int, not %s", ErrMsgBadIndex, TypeName(idx)), x.Position, nil)
		}
		runes := []rune(str)
		if pos, ok := wrapIndex(i, len(runes)); ok {
			return string(runes[pos]), nil
		}
		return nil, nil
	}
	if list, ok := ToList(target); ok {
		i, ok := asInt(idx)
		if !ok {
			return nil, NewRenderError(RenderErrTypeMismatch, fmt.Sprintf("%s: list index must be int, not %s", ErrMsgBadIndex, TypeName(idx)), x.Position, nil)
		}
		if pos, ok := wrapIndex(i, len(list)); ok {
			return list[pos], nil
		}
		return nil, nil
	}
	if m, ok := ToMap(target); ok {
		key, ok := idx.(string)
		if !ok {
			key = Display(idx)
		}
		return m[key], nil
	}
	if key, ok := idx.(string); ok {
		return s.getAttr(target, key, x.Position)
	}
	return nil, NewRenderError(RenderErrTypeMismatch, fmt.Sprintf("%s: %s is not subscriptable", ErrMsgBadIndex, TypeName(target)), x.Position, nil)
}

// wrapIndex resolves a possibly negative index; ok is false when out of range
func wrapIndex(i int64, length int) (int, bool) {
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, false
	}
	return int(i), true
}

func (s *renderState) evalSlice(target any, x *SliceExpr) (any, error) {
	start, err := s.optionalInt(x.Start)
	if err != nil {
		return nil, err
	}
	stop, err := s.optionalInt(x.Stop)
	if err != nil {
		return nil, err
	}
	step, err := s.optionalInt(x.Step)
	if err != nil {
		return nil, err
	}
	stepValue := int64(1)
	if step != nil {
		if *step == 0 {
			return nil, NewRenderError(RenderErrInvalidSliceStep, ErrMsgSliceStepZero, x.Position, nil)
		}
		stepValue = *step
	}

	if str, ok := target.(string); ok {
		runes := []rune(str)
		var b strings.Builder
		for _, i := range SliceIndices(len(runes), start, stop, stepValue) {
			b.WriteRune(runes[i])
		}
		return b.String(), nil
	}
	list, ok := ToList(target)
	if !ok {
		return nil, NewRenderError(RenderErrTypeMismatch, fmt.Sprintf("%s: cannot slice %s", ErrMsgBadIndex, TypeName(target)), x.Position, nil)
	}
	indices := SliceIndices(len(list), start, stop, stepValue)
	out := make([]any, len(indices))
	for i, idx := range indices {
		out[i] = list[idx]
	}
	return out, nil
}

func (s *renderState) optionalInt(e Expr) (*int64, error) {
	if e == nil {
		return nil, nil
	}
	v, err := s.eval(e)
	if err != nil || v == nil {
		return nil, err
	}
	n, ok := asInt(v)
	if !ok {
		return nil, NewRenderError(RenderErrTypeMismatch, fmt.Sprintf("%s: slice indices must be int, not %s", ErrMsgBadIndex, TypeName(v)), e.Pos(), nil)
	}
	return &n, nil
}

// SliceIndices returns the positions selected by [start:stop:step] over a
// sequence of the given length. Missing bounds default by the sign of step
// and negative bounds count from the end. step must not be zero.
func SliceIndices(length int, start, stop *int64, step int64) []int {
	n := int64(length)
	var indices []int
	if step > 0 {
		lo, hi := int64(0), n
		if start != nil {
			lo = clampIndex(*start, n, 0, n)
		}
		if stop != nil {
			hi = clampIndex(*stop, n, 0, n)
		}
		for i := lo; i < hi; i += step {
			indices = append(indices, int(i))
		}
		return indices
	}
	lo, hi := n-1, int64(-1)
	if start != nil {
		lo = clampIndex(*start, n, -1, n-1)
	}
	if stop != nil {
		hi = clampIndex(*stop, n, -1, n-1)
	}
	for i := lo; i > hi; i += step {
		indices = append(indices, int(i))
	}
	return indices
}

func clampIndex(i, length, lower, upper int64) int64 {
	if i < 0 {
		i += length
	}
	if i < lower {
		return lower
	}
	if i > upper {
		return upper
	}
	return i
}

// asInt converts integer values (not floats) to int64
func asInt(v any) (int64, bool) {
	n, ok := normalizeNumber(v)
	if !ok {
		return 0, false
	}
	i, ok := n.(int64)
	return i, ok
}

func (s *renderState) evalFilter(x *FilterExpr) (any, error) {
	value, err := s.eval(x.Value)
	if err != nil {
		return nil, err
	}
	args, kwargs, err := s.evalArgs(x.Args)
	if err != nil {
		return nil, err
	}
	if !s.renderer.filters.Has(x.Name) {
		return nil, NewRenderError(RenderErrUnknownFilter, fmt.Sprintf("%s %q", ErrMsgUnknownFilter, x.Name), x.Position, nil)
	}
	if len(kwargs) > 0 {
		args = append(args, Kwargs(kwargs))
	}
	result, err := s.renderer.filters.Apply(x.Name, value, args)
	if err != nil {
		return nil, asRenderError(err, RenderErrInvalidArgument, x.Position)
	}
	return result, nil
}
