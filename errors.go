package andi

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrNotAFunction is returned when Inspect (or PlanFunc/Invoke) receives
	// a value that is not a function.
	ErrNotAFunction = errors.New("andi: not a function")

	// ErrNilConstructor is returned when a nil constructor is registered.
	ErrNilConstructor = errors.New("andi: nil constructor")

	// ErrBadConstructor is returned when a constructor does not have the shape
	// func(deps...) T or func(deps...) (T, error). Provide wraps it in a
	// BadConstructorError with type context.
	ErrBadConstructor = errors.New("andi: bad constructor shape")
)

// BadConstructorError reports a constructor whose signature cannot be used
// for planning. It unwraps to ErrBadConstructor.
type BadConstructorError struct {
	// Ctor is the reflect type of the rejected constructor value.
	Ctor reflect.Type

	// Reason is a short description of the violated rule.
	Reason string
}

// Error implements the error interface.
func (e BadConstructorError) Error() string {
	// Example: andi: bad constructor shape: func() (int, string): second result must be error
	return "andi: bad constructor shape: " + typeName(e.Ctor) + ": " + e.Reason
}

// Unwrap makes errors.Is(err, ErrBadConstructor) work.
func (e BadConstructorError) Unwrap() error { return ErrBadConstructor }

// DuplicateProviderError is returned when a second constructor is registered
// for a type that already has one.
type DuplicateProviderError struct{ Type reflect.Type }

// Error implements the error interface.
func (e DuplicateProviderError) Error() string {
	// Example: andi: duplicate provider for type "*svc.DB"
	return "andi: duplicate provider for type " + strconv.Quote(typeName(e.Type))
}

// NonInjectableError reports a type for which no provider, external marker,
// or registry binding exists.
type NonInjectableError struct{ Type reflect.Type }

// Error implements the error interface.
func (e NonInjectableError) Error() string {
	// Example: andi: type "svc.Config" cannot be provided
	return "andi: type " + strconv.Quote(typeName(e.Type)) + " cannot be provided"
}

// CyclicDependencyError is returned when planning encounters a dependency
// cycle. Chain holds the walk that closed the cycle, first to last.
type CyclicDependencyError struct{ Chain []reflect.Type }

// Error implements the error interface.
func (e CyclicDependencyError) Error() string {
	var sb strings.Builder
	sb.WriteString("andi: cyclic dependency: ")
	for i, t := range e.Chain {
		if i > 0 {
			sb.WriteString(" -> ")
		}
		sb.WriteString(typeName(t))
	}
	return sb.String()
}

// ProvideFailure records why one parameter of a constructor or function could
// not be planned.
type ProvideFailure struct {
	// Arg is the zero-based parameter index.
	Arg int

	// Type is the declared parameter type.
	Type reflect.Type

	// Cause is the underlying failure (NonInjectableError,
	// CyclicDependencyError, or a nested NonProvidableError).
	Cause error
}

// NonProvidableError aggregates per-parameter planning failures for a single
// target. Target is a type name for PlanFor and a function description for
// PlanFunc.
type NonProvidableError struct {
	Target string
	Causes []ProvideFailure
}

// Error implements the error interface.
func (e NonProvidableError) Error() string {
	var sb strings.Builder
	sb.WriteString("andi: cannot provide ")
	sb.WriteString(e.Target)
	for _, c := range e.Causes {
		sb.WriteString("\n  arg ")
		sb.WriteString(strconv.Itoa(c.Arg))
		sb.WriteString(" (")
		sb.WriteString(typeName(c.Type))
		sb.WriteString("): ")
		if c.Cause != nil {
			sb.WriteString(c.Cause.Error())
		} else {
			sb.WriteString("unknown cause")
		}
	}
	return sb.String()
}

// Unwrap exposes the nested causes to errors.Is/errors.As.
func (e NonProvidableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Causes))
	for _, c := range e.Causes {
		if c.Cause != nil {
			errs = append(errs, c.Cause)
		}
	}
	return errs
}

// MissingDependencyError is returned by Build when a plan step must be
// satisfied from the stock (external types) or the registry, and no value is
// available.
type MissingDependencyError struct {
	// Type is the unsatisfied step type.
	Type reflect.Type

	// Key is the registry key, when the step was registry-backed.
	Key string
}

// Error implements the error interface.
func (e MissingDependencyError) Error() string {
	// Example: andi: dependency "svc.Tracer" missing (registry key "obs.tracer")
	msg := "andi: dependency " + strconv.Quote(typeName(e.Type)) + " missing"
	if e.Key != "" {
		msg += " (registry key " + strconv.Quote(e.Key) + ")"
	}
	return msg
}

// WrongTypeDependencyError is returned by BuildWith when a registry holds a
// value under the expected key but of an incompatible type.
type WrongTypeDependencyError struct {
	// Key is the registry key that was resolved.
	Key string

	// Want is the planned dependency type.
	Want reflect.Type

	// GotType is reflect.TypeOf(raw).String() for the resolved value.
	GotType string
}

// Error implements the error interface.
func (e WrongTypeDependencyError) Error() string {
	// Example: andi: registry key "obs.tracer" has wrong type (want svc.Tracer, got *svc.Logger)
	return "andi: registry key " + strconv.Quote(e.Key) +
		" has wrong type (want " + typeName(e.Want) + ", got " + e.GotType + ")"
}

// ConstructorError wraps an error returned by a constructor during Build.
type ConstructorError struct {
	// Type is the type the failing constructor was building.
	Type reflect.Type

	// Err is the constructor's own error.
	Err error
}

// Error implements the error interface.
func (e ConstructorError) Error() string {
	// Example: andi: constructor for "*svc.DB" failed: dial tcp ...
	msg := "andi: constructor for " + strconv.Quote(typeName(e.Type)) + " failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the constructor's error to errors.Is/errors.As.
func (e ConstructorError) Unwrap() error { return e.Err }
