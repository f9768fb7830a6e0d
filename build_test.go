package andi_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrapinghub/andi"
)

//
// -----------------------------------------------------------------------------
// Build
// -----------------------------------------------------------------------------

// TestBuild_FullGraph verifies a plan builds every instance and wires shared
// dependencies to the same value.
func TestBuild_FullGraph(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewConfig, NewLogger, NewDB, NewUserService)

	plan, err := p.PlanFor(andi.TypeOf[*UserService]())
	require.NoError(t, err)

	instances, err := andi.Build(plan, nil)
	require.NoError(t, err)

	svc, ok := andi.GetAs[*UserService](instances)
	require.True(t, ok)
	require.NotNil(t, svc.DB)
	require.NotNil(t, svc.Log)

	db, ok := andi.GetAs[*DB](instances)
	require.True(t, ok)
	assert.Same(t, db, svc.DB)
	assert.Equal(t, "postgres://", db.DSN)
}

// TestBuild_DiamondSharesInstances verifies the diamond graph builds each
// type once and shares it across dependents.
func TestBuild_DiamondSharesInstances(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewA, NewB, NewC, NewD, NewE)
	p.External(andi.TypeOf[*A]())

	plan, err := p.PlanFor(andi.TypeOf[*E]())
	require.NoError(t, err)

	a := &A{}
	instances, err := andi.Build(plan, andi.Instances{andi.TypeOf[*A](): a})
	require.NoError(t, err)

	e, ok := andi.GetAs[*E](instances)
	require.True(t, ok)
	assert.Same(t, a, e.C.A)
	assert.Same(t, a, e.D.A)
	assert.Same(t, e.C, e.D.C)
	assert.Same(t, e.B, e.C.B)
}

// TestBuild_StockShortCircuits verifies a stock entry suppresses the
// constructor for its type, even when one is planned.
func TestBuild_StockShortCircuits(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewConfig, NewLogger)

	plan, err := p.PlanFor(andi.TypeOf[*Logger]())
	require.NoError(t, err)

	canned := &Logger{Level: "trace"}
	instances, err := andi.Build(plan, andi.Instances{andi.TypeOf[*Logger](): canned})
	require.NoError(t, err)

	got, ok := andi.GetAs[*Logger](instances)
	require.True(t, ok)
	assert.Same(t, canned, got)
}

// TestBuild_MissingExternal verifies an external step without a stock entry
// fails with MissingDependencyError.
func TestBuild_MissingExternal(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewLogger)
	p.External(andi.TypeOf[Config]())

	plan, err := p.PlanFor(andi.TypeOf[*Logger]())
	require.NoError(t, err)

	_, err = andi.Build(plan, nil)
	require.Error(t, err)

	var missing andi.MissingDependencyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, andi.TypeOf[Config](), missing.Type)
}

// TestBuild_ConstructorError verifies a failing constructor is wrapped with
// the type it was building and unwraps to the original error.
func TestBuild_ConstructorError(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewDB)
	require.NoError(t, p.ProvideValue(Config{DSN: ""})) // NewDB fails on empty DSN

	plan, err := p.PlanFor(andi.TypeOf[*DB]())
	require.NoError(t, err)

	_, err = p.Build(plan, nil)
	require.Error(t, err)

	var ce andi.ConstructorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, andi.TypeOf[*DB](), ce.Type)
	assert.True(t, errors.Is(err, errDialFailed))
}

// TestBuild_PlannerStockAndCallerStock verifies ProvideValue seeds the build
// and explicit stock entries win over them.
func TestBuild_PlannerStockAndCallerStock(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewLogger)
	require.NoError(t, p.ProvideValue(Config{DSN: "seed"}))

	plan, err := p.PlanFor(andi.TypeOf[*Logger]())
	require.NoError(t, err)

	// planner stock alone
	instances, err := p.Build(plan, nil)
	require.NoError(t, err)
	cfg, ok := andi.GetAs[Config](instances)
	require.True(t, ok)
	assert.Equal(t, "seed", cfg.DSN)

	// caller stock wins
	instances, err = p.Build(plan, andi.Instances{andi.TypeOf[Config](): Config{DSN: "caller"}})
	require.NoError(t, err)
	cfg, ok = andi.GetAs[Config](instances)
	require.True(t, ok)
	assert.Equal(t, "caller", cfg.DSN)
}

//
// -----------------------------------------------------------------------------
// BuildWith – registry-backed steps
// -----------------------------------------------------------------------------

// TestBuildWith_ResolvesOptional verifies registry values flow into the
// dependent constructor.
func TestBuildWith_ResolvesOptional(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewMemStore, NewPipeline)
	p.Optional(andi.TypeOf[Tracer](), "obs.tracer")

	plan, err := p.PlanFor(andi.TypeOf[*Pipeline]())
	require.NoError(t, err)

	tracer := &RecordingTracer{}
	reg := andi.NewMapRegistry().Provide("obs.tracer", tracer)

	instances, err := andi.BuildWith(plan, reg, nil)
	require.NoError(t, err)

	pipe, ok := andi.GetAs[*Pipeline](instances)
	require.True(t, ok)
	require.NotNil(t, pipe.Tracer)
	pipe.Tracer.Trace("hello")
	assert.Equal(t, []string{"hello"}, tracer.msgs)
}

// TestBuildWith_MissAndFallback verifies the required/zero-fallback split on
// registry misses.
func TestBuildWith_MissAndFallback(t *testing.T) {
	t.Parallel()

	reg := andi.NewMapRegistry() // empty

	// required optional: miss fails
	p := andi.New().MustProvide(NewMemStore, NewPipeline)
	p.Optional(andi.TypeOf[Tracer](), "obs.tracer")

	plan, err := p.PlanFor(andi.TypeOf[*Pipeline]())
	require.NoError(t, err)

	_, err = andi.BuildWith(plan, reg, nil)
	require.Error(t, err)

	var missing andi.MissingDependencyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "obs.tracer", missing.Key)

	// zero fallback: miss yields nil interface
	p2 := andi.New().MustProvide(NewMemStore, NewPipeline)
	p2.OptionalOr(andi.TypeOf[Tracer](), "obs.tracer")

	plan2, err := p2.PlanFor(andi.TypeOf[*Pipeline]())
	require.NoError(t, err)

	instances, err := andi.BuildWith(plan2, reg, nil)
	require.NoError(t, err)

	pipe, ok := andi.GetAs[*Pipeline](instances)
	require.True(t, ok)
	assert.Nil(t, pipe.Tracer)
}

// TestBuildWith_WrongType verifies a registry value of the wrong type fails
// with key and type context.
func TestBuildWith_WrongType(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewMemStore, NewPipeline)
	p.Optional(andi.TypeOf[Tracer](), "obs.tracer")

	plan, err := p.PlanFor(andi.TypeOf[*Pipeline]())
	require.NoError(t, err)

	reg := andi.NewMapRegistry().Provide("obs.tracer", &Logger{})

	_, err = andi.BuildWith(plan, reg, nil)
	require.Error(t, err)

	var wrong andi.WrongTypeDependencyError
	require.True(t, errors.As(err, &wrong))
	assert.Equal(t, "obs.tracer", wrong.Key)
	assert.Equal(t, "*andi_test.Logger", wrong.GotType)
}

// TestBuildWith_NoRegistry verifies behavior when no registry is supplied:
// zero-fallback steps degrade, required ones fail.
func TestBuildWith_NoRegistry(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewMemStore, NewPipeline)
	p.OptionalOr(andi.TypeOf[Tracer](), "obs.tracer")

	plan, err := p.PlanFor(andi.TypeOf[*Pipeline]())
	require.NoError(t, err)

	instances, err := andi.Build(plan, nil)
	require.NoError(t, err)

	pipe, ok := andi.GetAs[*Pipeline](instances)
	require.True(t, ok)
	assert.Nil(t, pipe.Tracer)
}

//
// -----------------------------------------------------------------------------
// Call / Invoke
// -----------------------------------------------------------------------------

// TestCall_ZeroFillsUnfulfilled verifies non-strict call sites receive zero
// values for skipped arguments.
func TestCall_ZeroFillsUnfulfilled(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewConfig, NewLogger)

	var gotLogger *Logger
	var gotDB *DB
	fn := func(l *Logger, db *DB) {
		gotLogger = l
		gotDB = db
	}

	plan, fulfilled, err := p.PlanFunc(fn, false)
	require.NoError(t, err)

	instances, err := andi.Build(plan, nil)
	require.NoError(t, err)

	_, err = andi.Call(fn, fulfilled, instances)
	require.NoError(t, err)
	assert.NotNil(t, gotLogger)
	assert.Nil(t, gotDB)
}

// TestCall_SplitsTrailingError verifies results and the trailing error are
// separated.
func TestCall_SplitsTrailingError(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewConfig, NewLogger)

	boom := errors.New("boom")
	fn := func(l *Logger) (string, error) { return "out", boom }

	plan, fulfilled, err := p.PlanFunc(fn, true)
	require.NoError(t, err)

	instances, err := andi.Build(plan, nil)
	require.NoError(t, err)

	out, err := andi.Call(fn, fulfilled, instances)
	require.ErrorIs(t, err, boom)
	require.Len(t, out, 1)
	assert.Equal(t, "out", out[0])
}

// TestInvoke_EndToEnd verifies Invoke plans, builds, and calls in one step.
func TestInvoke_EndToEnd(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewConfig, NewLogger, NewDB, NewUserService)

	var got *UserService
	err := p.Invoke(func(svc *UserService) {
		got = svc
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotNil(t, got.DB)
}

// TestInvoke_PropagatesFunctionError verifies the invoked function's own
// error comes back.
func TestInvoke_PropagatesFunctionError(t *testing.T) {
	t.Parallel()

	p := andi.New().MustProvide(NewConfig, NewLogger)

	boom := errors.New("boom")
	err := p.Invoke(func(l *Logger) error { return boom }, nil)
	require.ErrorIs(t, err, boom)
}

// TestInvoke_StrictPlanningFailure verifies Invoke surfaces planning errors.
func TestInvoke_StrictPlanningFailure(t *testing.T) {
	t.Parallel()

	err := andi.New().Invoke(func(db *DB) {}, nil)
	require.Error(t, err)

	var np andi.NonProvidableError
	assert.True(t, errors.As(err, &np))
}

// TestInstances_Accessors verifies the nil-safe accessors.
func TestInstances_Accessors(t *testing.T) {
	t.Parallel()

	var nilInstances andi.Instances
	assert.Nil(t, nilInstances.Get(andi.TypeOf[*DB]()))
	assert.False(t, nilInstances.Has(andi.TypeOf[*DB]()))

	_, ok := andi.GetAs[*DB](nilInstances)
	assert.False(t, ok)
}
