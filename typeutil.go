package andi

import "reflect"

// TypeOf returns the reflect.Type for T.
//
// Unlike reflect.TypeOf on a value, it works for interface types:
//
//	andi.TypeOf[io.Writer]()   // the io.Writer interface type
//	andi.TypeOf[*bytes.Buffer]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// typeName renders a type for error messages and plan dumps.
//
// reflect's String() is stable and package-qualified, which is what humans
// grep for; nil guards keep error formatting panic-free.
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// satisfies reports whether a value of type candidate can be passed where
// want is expected. For interfaces this is implementation; for concrete
// types, plain assignability.
func satisfies(candidate, want reflect.Type) bool {
	if candidate == nil || want == nil {
		return false
	}
	if candidate == want {
		return true
	}
	return candidate.AssignableTo(want)
}
