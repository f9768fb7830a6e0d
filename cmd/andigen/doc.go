// Command andigen generates provider registration code for a package.
//
// It scans the Go files of a package directory for constructor functions
// (by default, free functions named New* returning T or (T, error)) and
// emits a RegisterProviders function that registers them on an
// andi.Planner, together with the external, override, and optional
// bindings declared in a small spec file.
//
// The generated file keeps composition roots mechanical: providers never
// drift from the constructors that actually exist in the package, because
// regeneration re-discovers them.
//
// Spec format
//
// Specs are JSON or YAML (picked by file extension). All fields are
// optional except none; an empty spec generates plain constructor
// registration:
//
//	# providers.yaml
//	funcName: RegisterProviders   # generated function name
//	prefixes: [New]               # constructor name prefixes to match
//	exclude: [NewTestServer]      # constructor names to skip
//	external: [Config]            # types planned as externally provided
//	overrides:
//	  - from: Store               # type expression as written in the package
//	    to: "*MemStore"
//	optional:
//	  - type: Tracer
//	    key: obs.tracer
//	    zero: true                # OptionalOr instead of Optional
//
// Typical go:generate usage
//
// Put this in a Go file of the target package:
//
//	//go:generate go run github.com/scrapinghub/andi/cmd/andigen -spec ./providers.yaml -out ./providers.gen.go
//
// Then:
//
//	go generate ./...
//
// The andi import path for the generated file is discovered from the
// package's own imports when present (so forks keep working), and falls
// back to the module that contains this generator.
//
// Output is written atomically (temp file + rename) and gofmt-formatted;
// the spec's SHA-256 is stamped in the header so stale files are easy to
// spot in review.
package main
