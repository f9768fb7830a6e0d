package andi

import (
	"reflect"
	"runtime"
)

// Arg describes one parameter of an inspected function.
//
// Go reflection exposes no parameter names, so arguments are identified by
// position and type.
type Arg struct {
	// Index is the zero-based parameter position.
	Index int

	// Type is the declared parameter type. For the variadic tail parameter
	// it is the element type, not the slice type.
	Type reflect.Type

	// Variadic marks the trailing ...T parameter. Variadic parameters are
	// omissible: planners skip them and calls pass no values.
	Variadic bool
}

// Inspect returns the ordered parameter list of fn.
//
// fn must be a function value (free function, method value, or closure;
// method values already carry their receiver, so no stripping is needed).
// It returns ErrNotAFunction otherwise.
func Inspect(fn any) ([]Arg, error) {
	if fn == nil {
		return nil, ErrNotAFunction
	}
	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return nil, ErrNotAFunction
	}

	args := make([]Arg, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		a := Arg{Index: i, Type: t.In(i)}
		if t.IsVariadic() && i == t.NumIn()-1 {
			a.Variadic = true
			a.Type = t.In(i).Elem()
		}
		args = append(args, a)
	}
	return args, nil
}

// checkConstructor validates a constructor shape and returns its produced
// type and whether it has a trailing error result.
//
// Accepted shapes: func(deps...) T and func(deps...) (T, error).
func checkConstructor(v reflect.Value) (out reflect.Type, hasErr bool, err error) {
	if !v.IsValid() || (v.Kind() == reflect.Func && v.IsNil()) {
		return nil, false, ErrNilConstructor
	}
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, false, ErrNotAFunction
	}
	switch t.NumOut() {
	case 1:
		if t.Out(0) == errType {
			return nil, false, BadConstructorError{Ctor: t, Reason: "single result must not be error"}
		}
		return t.Out(0), false, nil
	case 2:
		if t.Out(1) != errType {
			return nil, false, BadConstructorError{Ctor: t, Reason: "second result must be error"}
		}
		return t.Out(0), true, nil
	default:
		return nil, false, BadConstructorError{Ctor: t, Reason: "must return T or (T, error)"}
	}
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// funcDescription names a function for error messages, falling back to the
// signature when the runtime has no symbol for it.
func funcDescription(v reflect.Value) string {
	if v.Kind() == reflect.Func && !v.IsNil() {
		if f := runtime.FuncForPC(v.Pointer()); f != nil && f.Name() != "" {
			return f.Name()
		}
	}
	return typeName(v.Type())
}
