package andi

import (
	"reflect"
	"strconv"
	"strings"
)

// Step is one construction task in a Plan.
//
// Exactly one of three modes applies:
//
//   - constructor step: ctor is called with the already-built Params
//   - external step: the value must come from the Build stock
//   - registry step: the value is resolved from a Registry under Key
type Step struct {
	// Type is the type this step produces.
	Type reflect.Type

	// Params are the resolved dependency types, in constructor call order.
	// Always empty for external and registry steps.
	Params []reflect.Type

	// External marks a step satisfied from the caller-supplied stock.
	External bool

	// Key is the registry key for registry-backed steps, empty otherwise.
	Key string

	// AllowZero lets a registry step fall back to the type's zero value when
	// the registry has no entry for Key.
	AllowZero bool

	ctor    reflect.Value
	ctorErr bool
}

// Plan is an ordered sequence of construction steps. Each step's dependencies
// appear earlier in the sequence, so executing steps front to back always has
// the inputs at hand. The final step produces the planning target.
type Plan []Step

// Final returns the last step of the plan, the one producing the target.
// It returns a zero Step for an empty plan.
func (p Plan) Final() Step {
	if len(p) == 0 {
		return Step{}
	}
	return p[len(p)-1]
}

// Types lists the produced types in plan order.
func (p Plan) Types() []reflect.Type {
	out := make([]reflect.Type, len(p))
	for i, s := range p {
		out[i] = s.Type
	}
	return out
}

// contains reports whether the plan already has a step for t.
func (p Plan) contains(t reflect.Type) bool {
	for _, s := range p {
		if s.Type == t {
			return true
		}
	}
	return false
}

// String renders the plan one step per line:
//
//	svc.Config (external)
//	*svc.Logger <- (svc.Config)
//	svc.Tracer (registry "obs.tracer")
//	*svc.UserService <- (*svc.Logger, svc.Tracer)
func (p Plan) String() string {
	var sb strings.Builder
	for i, s := range p {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(typeName(s.Type))
		switch {
		case s.External:
			sb.WriteString(" (external)")
		case s.Key != "":
			sb.WriteString(" (registry ")
			sb.WriteString(strconv.Quote(s.Key))
			if s.AllowZero {
				sb.WriteString(", zero on miss")
			}
			sb.WriteString(")")
		default:
			sb.WriteString(" <- (")
			for j, d := range s.Params {
				if j > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(typeName(d))
			}
			sb.WriteString(")")
		}
	}
	return sb.String()
}
