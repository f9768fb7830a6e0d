// Package andi plans and executes dependency injection from constructor
// signatures.
//
// Given a set of constructors registered on a Planner, andi inspects their
// parameter types with reflection, builds the dependency graph, and produces
// an ordered Plan: the sequence of construction steps needed to obtain an
// instance of a target type (or the arguments of a target function). The plan
// is plain data; executing it is a separate, explicit step.
//
// The split between planning and building is the point of the library:
//
//   - Plans can be printed (Plan.String), asserted on in tests, and cached.
//   - Build receives an instance stock, so externally provided values
//     short-circuit construction without touching the graph definition.
//   - BuildWith additionally resolves registry-backed optional dependencies.
//
// Quick start
//
//	p := andi.New()
//	_ = p.Provide(NewConfig)            // func() Config
//	_ = p.Provide(NewLogger)            // func(Config) (*Logger, error)
//	_ = p.Provide(NewUserService)       // func(*Logger) *UserService
//
//	plan, err := p.PlanFor(andi.TypeOf[*UserService]())
//	if err != nil { ... }
//
//	instances, err := andi.Build(plan, nil)
//	svc := instances.Get(andi.TypeOf[*UserService]()).(*UserService)
//
// Interface parameters behave like a union of implementations: the planner
// selects the first providable candidate in registration order. Overrides
// redirect a requested type to a different one, which covers test doubles and
// implementation swaps without re-registering the world.
//
// Functions can be planned too. In strict mode every argument must resolve;
// in non-strict mode unresolved arguments are left out of the plan and the
// caller (or Invoke) passes zero values for them.
//
// The cmd/andigen tool generates provider registration code for a package by
// scanning its constructor functions, so composition roots stay mechanical.
//
// Import
//
//	"github.com/scrapinghub/andi"
package andi
