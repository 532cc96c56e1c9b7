package internal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Func is a callable value that templates can invoke
type Func func(args []any, kwargs map[string]any) (any, error)

// MemberAccessor reads and writes named members of host values. It backs
// attribute access (obj.name), attribute-target assignment and
// method calls on host values.
type MemberAccessor interface {
	// GetMember returns the named member of obj, or nil when it has none
	GetMember(obj any, name string) (any, error)
	// SetMember assigns the named member of obj
	SetMember(obj any, name string, value any) error
}

// MemberEnumerator lists the public members of a host value so it can serve
// as a render context
type MemberEnumerator interface {
	Members(obj any) (map[string]any, error)
}

// StructTagName is the struct tag consulted for member names
const StructTagName = "jinja"

// ReflectAccessor is the default MemberAccessor. It resolves string-keyed
// map entries, exported struct fields (by field name, `jinja` tag, or the
// name with its first letter upper-cased) and exported methods.
type ReflectAccessor struct{}

// GetMember implements MemberAccessor
func (ReflectAccessor) GetMember(obj any, name string) (any, error) {
	if obj == nil {
		return nil, errors.New(ErrMsgNilMemberTarget)
	}
	if m, ok := obj.(map[string]any); ok {
		return m[name], nil
	}

	rv := reflect.ValueOf(obj)
	if method := findMethod(rv, name); method.IsValid() {
		return boundMethod(method), nil
	}

	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, errors.New(ErrMsgNilMemberTarget)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		if field, ok := findField(rv, name); ok {
			return field.Interface(), nil
		}
	}
	return nil, nil
}

// SetMember implements MemberAccessor
func (ReflectAccessor) SetMember(obj any, name string, value any) error {
	if obj == nil {
		return errors.New(ErrMsgNilMemberTarget)
	}
	if m, ok := obj.(map[string]any); ok {
		m[name] = value
		return nil
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Map {
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("%s: %s", ErrMsgMemberNotSettable, name)
		}
		val, err := convertArg(value, rv.Type().Elem())
		if err != nil {
			return err
		}
		rv.SetMapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()), val)
		return nil
	}

	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return errors.New(ErrMsgNilMemberTarget)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%s: %s", ErrMsgMemberNotSettable, name)
	}
	field, ok := findField(rv, name)
	if !ok || !field.CanSet() {
		return fmt.Errorf("%s: %s", ErrMsgMemberNotSettable, name)
	}
	val, err := convertArg(value, field.Type())
	if err != nil {
		return err
	}
	field.Set(val)
	return nil
}

// Members implements MemberEnumerator
func (ReflectAccessor) Members(obj any) (map[string]any, error) {
	if obj == nil {
		return map[string]any{}, nil
	}
	if m, ok := ToMap(obj); ok {
		return m, nil
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s: %s", ErrMsgNotEnumerable, rv.Type())
	}

	out := make(map[string]any)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag := strings.Split(sf.Tag.Get(StructTagName), ",")[0]; tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		out[name] = rv.Field(i).Interface()
	}
	return out, nil
}

// findField locates an exported struct field by tag, exact name, or
// capitalized name
func findField(rv reflect.Value, name string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag := strings.Split(sf.Tag.Get(StructTagName), ",")[0]; tag != "" && tag == name {
			return rv.Field(i), true
		}
	}
	if sf, ok := rt.FieldByName(name); ok && sf.IsExported() {
		return rv.FieldByIndex(sf.Index), true
	}
	if sf, ok := rt.FieldByName(capitalize(name)); ok && sf.IsExported() {
		return rv.FieldByIndex(sf.Index), true
	}
	return reflect.Value{}, false
}

// findMethod locates an exported method by exact or capitalized name
func findMethod(rv reflect.Value, name string) reflect.Value {
	if !rv.IsValid() {
		return reflect.Value{}
	}
	for _, candidate := range []string{name, capitalize(name)} {
		if !isExportedName(candidate) {
			continue
		}
		if m := rv.MethodByName(candidate); m.IsValid() {
			return m
		}
	}
	return reflect.Value{}
}

func capitalize(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func isExportedName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// boundMethod wraps a reflected method value as a Func
func boundMethod(method reflect.Value) Func {
	return func(args []any, kwargs map[string]any) (any, error) {
		if len(kwargs) > 0 {
			return nil, errors.New(ErrMsgNoKeywordArgs)
		}
		return CallGoFunc(method, args)
	}
}

// CallGoFunc invokes a reflected Go function with template arguments.
// Functions may return nothing, a value, or a value and an error.
func CallGoFunc(fn reflect.Value, args []any) (any, error) {
	ft := fn.Type()
	numIn := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("%s: want at least %d, got %d", ErrMsgArgCount, numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("%s: want %d, got %d", ErrMsgArgCount, numIn, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if ft.IsVariadic() && i >= numIn-1 {
			want = ft.In(numIn - 1).Elem()
		} else {
			want = ft.In(i)
		}
		v, err := convertArg(arg, want)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if err, ok := out[0].Interface().(error); ok && ft.Out(0) == errorType {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		if errVal := out[len(out)-1]; errVal.Type() == errorType && !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
		return out[0].Interface(), nil
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// convertArg converts a template value to the reflected type want
func convertArg(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(want), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if want.Kind() == reflect.String && v.Kind() != reflect.String {
		return reflect.Value{}, fmt.Errorf("%s: cannot use %s as %s", ErrMsgTypeMismatch, TypeName(arg), want)
	}
	if v.Type().ConvertibleTo(want) {
		return v.Convert(want), nil
	}
	if want.Kind() == reflect.Slice {
		if list, ok := ToList(arg); ok {
			out := reflect.MakeSlice(want, len(list), len(list))
			for i, item := range list {
				elem, err := convertArg(item, want.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(elem)
			}
			return out, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%s: cannot use %s as %s", ErrMsgTypeMismatch, TypeName(arg), want)
}

// Member access error message constants
const (
	ErrMsgNilMemberTarget   = "member access on none"
	ErrMsgMemberNotSettable = "member cannot be assigned"
	ErrMsgNotEnumerable     = "value has no enumerable members"
	ErrMsgNoKeywordArgs     = "keyword arguments are not supported"
	ErrMsgArgCount          = "wrong number of arguments"
	ErrMsgTypeMismatch      = "type mismatch"
	ErrMsgInvalidValue      = "invalid argument value"
)
