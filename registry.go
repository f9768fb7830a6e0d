package andi

import (
	"errors"
	"fmt"
)

// Registry provides registry-backed optional dependencies at build time.
//
// It is intentionally:
// - read-only
// - side effect free
// - build-time only
//
// Plans reference registry entries by the string key bound with
// Planner.Optional/OptionalOr; BuildWith resolves them through this
// interface.
type Registry interface {
	Resolve(key string) (val any, ok bool, err error)
}

// ErrRegistryPanic is returned if a registry implementation panics internally.
var ErrRegistryPanic = errors.New("andi: registry panic during Resolve")

// MapRegistry is a simple in-memory registry.
type MapRegistry struct {
	items map[string]any
}

func NewMapRegistry() *MapRegistry {
	return &MapRegistry{items: map[string]any{}}
}

// Provide stores a value under a key and returns the registry for chaining.
func (r *MapRegistry) Provide(key string, val any) *MapRegistry {
	r.items[key] = val
	return r
}

// Resolve implements Registry and defensively converts panics into errors.
func (r *MapRegistry) Resolve(key string) (val any, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			val = nil
			ok = false
			err = fmt.Errorf("%w: %v", ErrRegistryPanic, rec)
		}
	}()

	v, ok := r.items[key]
	return v, ok, nil
}

// Get returns the value if present (no panic).
func (r *MapRegistry) Get(key string) (any, bool) {
	v, ok := r.items[key]
	return v, ok
}

// MustGet returns the value or panics with a helpful message.
// Useful in examples/tests where missing registry keys should fail fast.
func (r *MapRegistry) MustGet(key string) any {
	v, ok := r.items[key]
	if !ok {
		panic(fmt.Errorf("andi: registry missing key %q", key))
	}
	return v
}

// ResolveAs resolves a key and asserts the value to T.
//
// ok is false when the key is absent; a present value of the wrong type is an
// error (WrongTypeDependencyError), mirroring what BuildWith reports for
// registry-backed plan steps.
func ResolveAs[T any](reg Registry, key string) (out T, ok bool, err error) {
	var zero T
	if reg == nil {
		return zero, false, nil
	}
	v, ok, err := reg.Resolve(key)
	if err != nil || !ok {
		return zero, ok, err
	}
	cast, castOK := v.(T)
	if !castOK {
		return zero, false, WrongTypeDependencyError{
			Key:     key,
			Want:    TypeOf[T](),
			GotType: fmt.Sprintf("%T", v),
		}
	}
	return cast, true, nil
}
