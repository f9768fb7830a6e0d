package andi

import (
	"fmt"
	"reflect"
)

// Instances is the result of executing a plan: one value per planned type.
type Instances map[reflect.Type]any

// Get returns the instance for t, or nil when absent. Nil-safe.
func (in Instances) Get(t reflect.Type) any {
	if in == nil {
		return nil
	}
	return in[t]
}

// Has reports whether an instance exists for t.
func (in Instances) Has(t reflect.Type) bool {
	if in == nil {
		return false
	}
	_, ok := in[t]
	return ok
}

// GetAs returns the instance stored under the type T.
//
// ok is false if no instance exists or the stored value is not a T.
func GetAs[T any](in Instances) (T, bool) {
	var zero T
	raw, ok := in[TypeOf[T]()]
	if !ok || raw == nil {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Build executes a plan into Instances.
//
// stock entries short-circuit construction for their type: external steps
// must be in the stock, and any other step found in the stock skips its
// constructor. Registry-backed steps without a registry fail unless they
// allow a zero fallback; use BuildWith to resolve them.
func Build(plan Plan, stock Instances) (Instances, error) {
	return BuildWith(plan, nil, stock)
}

// BuildWith is Build plus a Registry for registry-backed steps.
//
// Registry values are type checked against the planned dependency type; a
// mismatch is a WrongTypeDependencyError. A registry miss falls back to the
// zero value only for steps planned with OptionalOr.
func BuildWith(plan Plan, reg Registry, stock Instances) (Instances, error) {
	out := make(Instances, len(plan))
	for _, s := range plan {
		if v, ok := stock[s.Type]; ok {
			out[s.Type] = v
			continue
		}

		switch {
		case s.External:
			return nil, MissingDependencyError{Type: s.Type}

		case s.Key != "":
			v, err := resolveRegistryStep(s, reg)
			if err != nil {
				return nil, err
			}
			out[s.Type] = v

		default:
			v, err := runConstructor(s, out)
			if err != nil {
				return nil, err
			}
			out[s.Type] = v
		}
	}
	return out, nil
}

func resolveRegistryStep(s Step, reg Registry) (any, error) {
	if reg == nil {
		if s.AllowZero {
			return zeroOf(s.Type), nil
		}
		return nil, MissingDependencyError{Type: s.Type, Key: s.Key}
	}

	v, ok, err := reg.Resolve(s.Key)
	if err != nil {
		return nil, fmt.Errorf("andi: resolve %q: %w", s.Key, err)
	}
	if !ok {
		if s.AllowZero {
			return zeroOf(s.Type), nil
		}
		return nil, MissingDependencyError{Type: s.Type, Key: s.Key}
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !rv.Type().AssignableTo(s.Type) {
		got := "<nil>"
		if rv.IsValid() {
			got = rv.Type().String()
		}
		return nil, WrongTypeDependencyError{Key: s.Key, Want: s.Type, GotType: got}
	}
	return v, nil
}

func runConstructor(s Step, built Instances) (any, error) {
	in := make([]reflect.Value, len(s.Params))
	for i, pt := range s.Params {
		dep, ok := built[pt]
		if !ok {
			// a well-formed plan always builds dependencies first; this
			// guards against hand-assembled plans
			return nil, MissingDependencyError{Type: pt}
		}
		in[i] = argValue(dep, pt)
	}

	res := s.ctor.Call(in)
	if s.ctorErr {
		if errv := res[1]; !errv.IsNil() {
			return nil, ConstructorError{Type: s.Type, Err: errv.Interface().(error)}
		}
	}
	return res[0].Interface(), nil
}

// argValue converts a stored instance into a call argument of type want,
// handling nil values from zero fallbacks.
func argValue(dep any, want reflect.Type) reflect.Value {
	v := reflect.ValueOf(dep)
	if !v.IsValid() {
		return reflect.Zero(want)
	}
	if v.Type() != want && v.Type().AssignableTo(want) {
		// concrete value flowing into an interface parameter
		converted := reflect.New(want).Elem()
		converted.Set(v)
		return converted
	}
	return v
}

func zeroOf(t reflect.Type) any {
	return reflect.Zero(t).Interface()
}

// Build executes a plan, merging the planner's stock (ProvideValue values)
// under the caller's stock; caller entries win.
func (p *Planner) Build(plan Plan, stock Instances) (Instances, error) {
	return BuildWith(plan, nil, p.mergedStock(stock))
}

// BuildWith is Build with a Registry for registry-backed steps.
func (p *Planner) BuildWith(plan Plan, reg Registry, stock Instances) (Instances, error) {
	return BuildWith(plan, reg, p.mergedStock(stock))
}

func (p *Planner) mergedStock(stock Instances) Instances {
	if len(p.values) == 0 {
		return stock
	}
	merged := p.Stock()
	for t, v := range stock {
		merged[t] = v
	}
	return merged
}

// Call invokes fn using planned arguments from instances. fulfilled is the
// argument list returned by PlanFunc; parameters not in it receive their
// zero value (the non-strict analog of an optional dependency).
//
// Results are returned as a slice. When fn's last result is an error, it is
// split off and returned as the error instead.
func Call(fn any, fulfilled []Arg, instances Instances) ([]any, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, ErrNotAFunction
	}
	t := v.Type()

	byIndex := make(map[int]reflect.Type, len(fulfilled))
	for _, a := range fulfilled {
		byIndex[a.Index] = a.Type
	}

	n := t.NumIn()
	if t.IsVariadic() {
		n--
	}
	in := make([]reflect.Value, n)
	for i := 0; i < n; i++ {
		want := t.In(i)
		if sel, ok := byIndex[i]; ok {
			in[i] = argValue(instances.Get(sel), want)
		} else {
			in[i] = reflect.Zero(want)
		}
	}

	res := v.Call(in)
	out := make([]any, 0, len(res))
	var callErr error
	for i, r := range res {
		if i == len(res)-1 && t.Out(i) == errType {
			if !r.IsNil() {
				callErr = r.Interface().(error)
			}
			continue
		}
		out = append(out, r.Interface())
	}
	return out, callErr
}

// Invoke plans fn strictly, builds the plan, and calls fn. The function's
// own trailing error, if any, is propagated.
func (p *Planner) Invoke(fn any, stock Instances) error {
	return p.InvokeWith(fn, nil, stock)
}

// InvokeWith is Invoke with a Registry for registry-backed dependencies.
func (p *Planner) InvokeWith(fn any, reg Registry, stock Instances) error {
	plan, fulfilled, err := p.PlanFunc(fn, true)
	if err != nil {
		return err
	}
	instances, err := BuildWith(plan, reg, p.mergedStock(stock))
	if err != nil {
		return err
	}
	_, err = Call(fn, fulfilled, instances)
	return err
}
