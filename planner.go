package andi

import (
	"reflect"
)

// provider is a registered constructor plus its inspected signature.
type provider struct {
	ctor   reflect.Value
	out    reflect.Type
	hasErr bool
	args   []Arg
}

// optionalBinding maps a dependency type to a registry key.
type optionalBinding struct {
	key       string
	allowZero bool
}

// Planner holds the injectable world: constructors, externally provided
// types, ready-made values, overrides, and registry-backed optionals.
//
// A Planner is not safe for concurrent mutation; register everything in the
// composition root, then plan and build freely (planning itself reads only).
type Planner struct {
	providers map[reflect.Type]*provider
	external  map[reflect.Type]bool
	overrides map[reflect.Type]reflect.Type
	optionals map[reflect.Type]optionalBinding
	values    map[reflect.Type]any

	// candidate scan order for interface parameters: providers first, then
	// externals, then optionals, each in registration order
	providerOrder []reflect.Type
	externalOrder []reflect.Type
	optionalOrder []reflect.Type
}

// New returns an empty Planner.
func New() *Planner {
	return &Planner{
		providers: map[reflect.Type]*provider{},
		external:  map[reflect.Type]bool{},
		overrides: map[reflect.Type]reflect.Type{},
		optionals: map[reflect.Type]optionalBinding{},
		values:    map[reflect.Type]any{},
	}
}

// Provide registers a constructor. The produced type is the first result;
// accepted shapes are func(deps...) T and func(deps...) (T, error).
//
// Registration order matters: it is the candidate order used when an
// interface parameter can be satisfied by several providers.
func (p *Planner) Provide(ctor any) error {
	v := reflect.ValueOf(ctor)
	out, hasErr, err := checkConstructor(v)
	if err != nil {
		return err
	}
	if _, exists := p.providers[out]; exists {
		return DuplicateProviderError{Type: out}
	}
	args, err := Inspect(ctor)
	if err != nil {
		return err
	}
	p.providers[out] = &provider{ctor: v, out: out, hasErr: hasErr, args: args}
	p.providerOrder = append(p.providerOrder, out)
	return nil
}

// MustProvide registers constructors and panics on the first error.
// Meant for composition roots where a registration bug should fail fast.
func (p *Planner) MustProvide(ctors ...any) *Planner {
	for _, c := range ctors {
		if err := p.Provide(c); err != nil {
			panic(err)
		}
	}
	return p
}

// ProvideValue registers a ready-made instance. Its type becomes externally
// provided and the value is part of the planner's stock (see Stock), so Build
// picks it up without a constructor call.
func (p *Planner) ProvideValue(v any) error {
	if v == nil {
		return NonInjectableError{Type: nil}
	}
	t := reflect.TypeOf(v)
	p.markExternal(t)
	p.values[t] = v
	return nil
}

// ProvideValueAs registers a ready-made instance under the type T, which may
// be an interface. Useful to pin an interface dependency to a concrete value:
//
//	andi.ProvideValueAs[io.Writer](p, &bytes.Buffer{})
func ProvideValueAs[T any](p *Planner, v T) {
	t := TypeOf[T]()
	p.markExternal(t)
	p.values[t] = v
}

// External marks types as externally provided: planning stops at them and
// Build expects the caller's stock to contain an instance.
func (p *Planner) External(types ...reflect.Type) *Planner {
	for _, t := range types {
		p.markExternal(t)
	}
	return p
}

func (p *Planner) markExternal(t reflect.Type) {
	if t == nil || p.external[t] {
		return
	}
	p.external[t] = true
	p.externalOrder = append(p.externalOrder, t)
}

// Override substitutes to for from during planning. A request for from (as a
// planning target or as a constructor parameter) is redirected to to before
// any other resolution happens. Overrides do not chain.
func (p *Planner) Override(from, to reflect.Type) *Planner {
	if from != nil && to != nil {
		p.overrides[from] = to
	}
	return p
}

// Optional binds a dependency type to a registry key. Plans stop at the type
// with a registry step; BuildWith resolves it and fails with
// MissingDependencyError when the registry has no entry.
func (p *Planner) Optional(t reflect.Type, key string) *Planner {
	return p.bindOptional(t, key, false)
}

// OptionalOr is Optional with a zero-value fallback: a registry miss yields
// the type's zero value (nil for pointers and interfaces) instead of failing.
func (p *Planner) OptionalOr(t reflect.Type, key string) *Planner {
	return p.bindOptional(t, key, true)
}

func (p *Planner) bindOptional(t reflect.Type, key string, allowZero bool) *Planner {
	if t == nil || key == "" {
		return p
	}
	if _, exists := p.optionals[t]; !exists {
		p.optionalOrder = append(p.optionalOrder, t)
	}
	p.optionals[t] = optionalBinding{key: key, allowZero: allowZero}
	return p
}

// Stock returns a copy of the values registered via ProvideValue and
// ProvideValueAs, ready to pass to Build. The planner-level Build and
// BuildWith wrappers merge it automatically.
func (p *Planner) Stock() Instances {
	out := make(Instances, len(p.values))
	for t, v := range p.values {
		out[t] = v
	}
	return out
}

// providable reports whether a plan step can be produced for t at all.
func (p *Planner) providable(t reflect.Type) bool {
	if _, ok := p.providers[t]; ok {
		return true
	}
	if p.external[t] {
		return true
	}
	_, ok := p.optionals[t]
	return ok
}

// selectType resolves a requested parameter type to the type that will be
// planned for it. For interface requests it picks the first providable
// candidate in registration order, the way a union picks its first viable
// member. The boolean is false when nothing can satisfy the request.
func (p *Planner) selectType(t reflect.Type) (reflect.Type, bool) {
	if to, ok := p.overrides[t]; ok {
		t = to
	}
	if p.providable(t) {
		return t, true
	}
	if t.Kind() == reflect.Interface {
		for _, c := range p.providerOrder {
			if satisfies(c, t) {
				return c, true
			}
		}
		for _, c := range p.externalOrder {
			if satisfies(c, t) {
				return c, true
			}
		}
		for _, c := range p.optionalOrder {
			if satisfies(c, t) {
				return c, true
			}
		}
	}
	return nil, false
}

// PlanFor returns the ordered construction plan for target. Planning is
// strict: every transitive dependency must resolve, or the aggregated
// NonProvidableError reports each failing parameter. Cycles are reported via
// CyclicDependencyError with the full chain.
func (p *Planner) PlanFor(target reflect.Type) (Plan, error) {
	if target == nil {
		return nil, NonInjectableError{Type: nil}
	}
	return p.planType(target, nil)
}

func (p *Planner) planType(t reflect.Type, stack []reflect.Type) (Plan, error) {
	if to, ok := p.overrides[t]; ok {
		t = to
	}

	// externally provided and registry-backed types terminate the walk
	if p.external[t] {
		return Plan{{Type: t, External: true}}, nil
	}
	if ob, ok := p.optionals[t]; ok {
		return Plan{{Type: t, Key: ob.key, AllowZero: ob.allowZero}}, nil
	}

	prov, ok := p.providers[t]
	if !ok {
		return nil, NonInjectableError{Type: t}
	}

	for _, seen := range stack {
		if seen == t {
			chain := make([]reflect.Type, 0, len(stack)+1)
			chain = append(chain, stack...)
			chain = append(chain, t)
			return nil, CyclicDependencyError{Chain: chain}
		}
	}
	stack = append(stack, t)

	var plan Plan
	var causes []ProvideFailure
	params := make([]reflect.Type, 0, len(prov.args))

	for _, a := range prov.args {
		if a.Variadic {
			continue
		}
		sel, ok := p.selectType(a.Type)
		if !ok {
			causes = append(causes, ProvideFailure{
				Arg: a.Index, Type: a.Type, Cause: NonInjectableError{Type: a.Type},
			})
			continue
		}
		if !plan.contains(sel) {
			sub, err := p.planType(sel, stack)
			if err != nil {
				causes = append(causes, ProvideFailure{Arg: a.Index, Type: a.Type, Cause: err})
				continue
			}
			plan = mergePlan(plan, sub)
		}
		params = append(params, sel)
	}

	if len(causes) > 0 {
		return nil, NonProvidableError{Target: typeName(t), Causes: causes}
	}

	plan = append(plan, Step{Type: t, Params: params, ctor: prov.ctor, ctorErr: prov.hasErr})
	return plan, nil
}

// PlanFunc plans the dependencies needed to call fn. It returns the plan and
// the arguments that could be fulfilled (Arg.Type is the selected type, the
// key to look up in the built Instances).
//
// With strict=false, arguments that cannot be resolved at the top level are
// simply left out; call sites pass zero values for them. Failures deeper in
// the graph are always fatal: once an argument's type is selected, its whole
// subtree must be buildable.
func (p *Planner) PlanFunc(fn any, strict bool) (Plan, []Arg, error) {
	args, err := Inspect(fn)
	if err != nil {
		return nil, nil, err
	}
	v := reflect.ValueOf(fn)

	var plan Plan
	var causes []ProvideFailure
	fulfilled := make([]Arg, 0, len(args))

	for _, a := range args {
		if a.Variadic {
			continue
		}
		sel, ok := p.selectType(a.Type)
		if !ok {
			if strict {
				causes = append(causes, ProvideFailure{
					Arg: a.Index, Type: a.Type, Cause: NonInjectableError{Type: a.Type},
				})
			}
			continue
		}
		if !plan.contains(sel) {
			sub, perr := p.planType(sel, nil)
			if perr != nil {
				causes = append(causes, ProvideFailure{Arg: a.Index, Type: a.Type, Cause: perr})
				continue
			}
			plan = mergePlan(plan, sub)
		}
		fulfilled = append(fulfilled, Arg{Index: a.Index, Type: sel})
	}

	if len(causes) > 0 {
		return nil, nil, NonProvidableError{Target: funcDescription(v), Causes: causes}
	}
	return plan, fulfilled, nil
}

// mergePlan appends the steps of addition that dst does not have yet,
// preserving order. Shared subtrees therefore appear once, at their first
// position.
func mergePlan(dst, addition Plan) Plan {
	for _, s := range addition {
		if !dst.contains(s.Type) {
			dst = append(dst, s)
		}
	}
	return dst
}
