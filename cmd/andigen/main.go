package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// OverrideSpec redirects one type expression to another during planning.
type OverrideSpec struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// OptionalSpec binds a type expression to a registry key.
type OptionalSpec struct {
	Type string `json:"type" yaml:"type"`
	Key  string `json:"key" yaml:"key"`

	// Zero selects OptionalOr (zero value on registry miss) over Optional.
	Zero bool `json:"zero" yaml:"zero"`
}

// Spec is the input schema consumed by the generator.
//
// Type fields (external, overrides, optional) hold Go type expressions as
// written inside the scanned package, e.g. "Config", "*MemStore", "Tracer".
type Spec struct {
	// FuncName is the generated registration function name.
	// Default: RegisterProviders.
	FuncName string `json:"funcName" yaml:"funcName"`

	// Prefixes are the constructor name prefixes to match. Default: ["New"].
	Prefixes []string `json:"prefixes" yaml:"prefixes"`

	// Exclude lists constructor names to skip even when they match.
	Exclude []string `json:"exclude" yaml:"exclude"`

	// External types are registered via Planner.External.
	External []string `json:"external" yaml:"external"`

	Overrides []OverrideSpec `json:"overrides" yaml:"overrides"`
	Optional  []OptionalSpec `json:"optional" yaml:"optional"`

	// AndiImport overrides the inferred import path of the andi package.
	AndiImport string `json:"andiImport" yaml:"andiImport"`
}

func applySpecDefaults(s *Spec) {
	if s == nil {
		return
	}
	if strings.TrimSpace(s.FuncName) == "" {
		s.FuncName = "RegisterProviders"
	}
	if len(s.Prefixes) == 0 {
		s.Prefixes = []string{"New"}
	}
}

func validateSpec(s *Spec) error {
	for _, o := range s.Overrides {
		if strings.TrimSpace(o.From) == "" || strings.TrimSpace(o.To) == "" {
			return fmt.Errorf("override must have from/to; got: %+v", o)
		}
	}
	for _, o := range s.Optional {
		if strings.TrimSpace(o.Type) == "" || strings.TrimSpace(o.Key) == "" {
			return fmt.Errorf("optional must have type/key; got: %+v", o)
		}
	}
	return nil
}

// loadSpec reads a JSON or YAML spec, picked by file extension.
func loadSpec(specPath string) (Spec, []byte, error) {
	raw, err := os.ReadFile(specPath)
	if err != nil {
		return Spec{}, nil, err
	}

	var spec Spec
	switch strings.ToLower(filepath.Ext(specPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &spec)
	default:
		err = json.Unmarshal(raw, &spec)
	}
	if err != nil {
		return Spec{}, nil, fmt.Errorf("parse spec %s: %w", specPath, err)
	}
	return spec, raw, nil
}

// scanResult is what constructor discovery returns for a package directory.
type scanResult struct {
	PackageName  string
	Constructors []string
}

// scanConstructors parses the non-generated .go files in dir and collects
// free functions that match a prefix and have a constructor shape:
// one result, or two results with the second being error.
func scanConstructors(dir string, prefixes, exclude []string) (scanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return scanResult{}, err
	}

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	var res scanResult
	seen := map[string]bool{}
	fset := token.NewFileSet()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".go") ||
			strings.HasSuffix(name, "_test.go") ||
			strings.HasSuffix(name, ".gen.go") {
			continue
		}

		full := filepath.Join(dir, name)
		parsed, perr := parser.ParseFile(fset, full, nil, parser.AllErrors)
		if parsed == nil {
			_ = perr
			continue
		}

		if parsed.Name != nil && res.PackageName == "" {
			res.PackageName = parsed.Name.Name
		}

		for _, decl := range parsed.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || fn.Name == nil {
				continue
			}
			fnName := fn.Name.Name
			if excluded[fnName] || seen[fnName] {
				continue
			}
			if !matchesPrefix(fnName, prefixes) {
				continue
			}
			if !constructorShaped(fn.Type) {
				continue
			}
			seen[fnName] = true
			res.Constructors = append(res.Constructors, fnName)
		}
	}

	if res.PackageName == "" {
		return scanResult{}, fmt.Errorf("no Go package found in %s", dir)
	}

	sort.Strings(res.Constructors)
	return res, nil
}

func matchesPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// constructorShaped reports whether a function type can be registered with
// Planner.Provide: results (T) or (T, error), where T itself is not error.
func constructorShaped(ft *ast.FuncType) bool {
	if ft == nil || ft.Results == nil {
		return false
	}

	// Results.List groups multiple names per type; count individual results.
	var types []ast.Expr
	for _, field := range ft.Results.List {
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			types = append(types, field.Type)
		}
	}

	switch len(types) {
	case 1:
		return !isErrorIdent(types[0])
	case 2:
		return !isErrorIdent(types[0]) && isErrorIdent(types[1])
	default:
		return false
	}
}

func isErrorIdent(expr ast.Expr) bool {
	ident, ok := expr.(*ast.Ident)
	return ok && ident.Name == "error"
}

// -------------------------
// andi import inference
// -------------------------
//
// Preference order:
// (1) spec.andiImport, when set.
// (2) An import of the andi package already present in the scanned package's
//     sources (lets a fork keep its own path).
// (3) The module containing this generator, located via runtime.Caller and a
//     go.mod walk.

func inferAndiImport(spec *Spec, dir string) (string, error) {
	if strings.TrimSpace(spec.AndiImport) != "" {
		return strings.TrimSpace(spec.AndiImport), nil
	}

	if imp, ok := findPackageImport(dir, "andi", "/andi"); ok {
		return imp, nil
	}

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("cannot infer andi import: runtime.Caller failed")
	}
	_, modPath, err := findModule(filepath.Dir(thisFile))
	if err != nil {
		return "", fmt.Errorf("cannot infer andi import: %w", err)
	}
	return modPath, nil
}

// findPackageImport scans the non-generated sources of dir for an import
// whose alias matches preferAlias or whose path ends in preferSuffix.
func findPackageImport(dir, preferAlias, preferSuffix string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	fset := token.NewFileSet()
	var bySuffix string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".go") ||
			strings.HasSuffix(name, "_test.go") ||
			strings.HasSuffix(name, ".gen.go") {
			continue
		}

		parsed, perr := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if perr != nil || parsed == nil {
			continue
		}
		for _, imp := range parsed.Imports {
			impPath := strings.Trim(imp.Path.Value, `"`)
			if imp.Name != nil && imp.Name.Name == preferAlias {
				return impPath, true
			}
			if bySuffix == "" && (strings.HasSuffix(impPath, preferSuffix) || impPath == strings.TrimPrefix(preferSuffix, "/")) {
				bySuffix = impPath
			}
		}
	}

	if bySuffix != "" {
		return bySuffix, true
	}
	return "", false
}

// findModule walks up from startDir to the nearest go.mod and returns the
// module root directory and module path.
func findModule(startDir string) (modRoot, modPath string, err error) {
	dir := startDir
	for {
		gomod := filepath.Join(dir, "go.mod")
		if st, serr := os.Stat(gomod); serr == nil && !st.IsDir() {
			b, rerr := os.ReadFile(gomod)
			if rerr != nil {
				return "", "", rerr
			}
			for _, ln := range strings.Split(string(b), "\n") {
				ln = strings.TrimSpace(ln)
				if strings.HasPrefix(ln, "module ") {
					mod := strings.TrimSpace(strings.TrimPrefix(ln, "module "))
					if mod == "" {
						return "", "", fmt.Errorf("go.mod has empty module path at %s", filepath.ToSlash(gomod))
					}
					return dir, mod, nil
				}
			}
			return "", "", fmt.Errorf("go.mod missing module directive at %s", filepath.ToSlash(gomod))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", fmt.Errorf("could not find go.mod starting from %s", filepath.ToSlash(startDir))
}

// -------------------------
// Generation
// -------------------------

type templateData struct {
	Spec         Spec
	SpecPath     string
	SpecHash     string
	PackageName  string
	Constructors []string
	AndiImport   string

	// AndiAlias is set when the import path's base is not "andi", so the
	// generated code can still reference the andi identifier.
	AndiAlias string
}

func generate(specPath, dir, outPath string) error {
	spec, raw, err := loadSpec(specPath)
	if err != nil {
		return err
	}
	applySpecDefaults(&spec)
	if err := validateSpec(&spec); err != nil {
		return err
	}

	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(outPath)
	}

	scanned, err := scanConstructors(dir, spec.Prefixes, spec.Exclude)
	if err != nil {
		return err
	}

	andiImport, err := inferAndiImport(&spec, dir)
	if err != nil {
		return err
	}

	data := templateData{
		Spec:         spec,
		SpecPath:     filepath.ToSlash(specPath),
		SpecHash:     sha256Hex(raw),
		PackageName:  scanned.PackageName,
		Constructors: scanned.Constructors,
		AndiImport:   andiImport,
	}
	if path.Base(andiImport) != "andi" {
		data.AndiAlias = "andi"
	}

	var sb strings.Builder
	if err := registerTpl.Execute(&sb, data); err != nil {
		return err
	}

	src, err := format.Source([]byte(sb.String()))
	if err != nil {
		// keep the unformatted output around: it makes template bugs debuggable
		_ = writeFileAtomic(outPath, []byte(sb.String()), 0o644)
		return fmt.Errorf("gofmt failed: %w", err)
	}
	return writeFileAtomic(outPath, src, 0o644)
}

var registerTpl = template.Must(
	template.New("register").Parse(`// Code generated by andigen; DO NOT EDIT.
// Spec: {{.SpecPath}}
// Spec-SHA256: {{.SpecHash}}

package {{.PackageName}}

import (
	{{if .AndiAlias}}{{.AndiAlias}} {{end}}"{{.AndiImport}}"
)

// {{.Spec.FuncName}} registers this package's constructors and planner
// bindings on p.
func {{.Spec.FuncName}}(p *andi.Planner) error {
	ctors := []any{
{{- range .Constructors}}
		{{.}},
{{- end}}
	}
	for _, ctor := range ctors {
		if err := p.Provide(ctor); err != nil {
			return err
		}
	}
{{- if .Spec.External}}

	p.External(
{{- range .Spec.External}}
		andi.TypeOf[{{.}}](),
{{- end}}
	)
{{- end}}
{{- range .Spec.Overrides}}
	p.Override(andi.TypeOf[{{.From}}](), andi.TypeOf[{{.To}}]())
{{- end}}
{{- range .Spec.Optional}}
{{- if .Zero}}
	p.OptionalOr(andi.TypeOf[{{.Type}}](), "{{.Key}}")
{{- else}}
	p.Optional(andi.TypeOf[{{.Type}}](), "{{.Key}}")
{{- end}}
{{- end}}
	return nil
}
`),
)

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes a file atomically: a temp file in the same
// directory renamed over the target, so readers never observe partial
// writes.
func writeFileAtomic(targetPath string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(targetPath)

	tmp, err := os.CreateTemp(dir, filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, targetPath)
}

// run executes the generator and returns an exit code. It exists separately
// from main to allow unit testing without os.Exit.
func run(args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("andigen", flag.ContinueOnError)
	flags.SetOutput(stderr)

	specPath := flags.String("spec", "", "path to providers spec (.json, .yaml, .yml)")
	dir := flags.String("dir", "", "package directory to scan (default: directory of -out)")
	outPath := flags.String("out", "", "output .gen.go file path")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if strings.TrimSpace(*specPath) == "" || strings.TrimSpace(*outPath) == "" {
		_, _ = fmt.Fprintln(stderr, "usage: andigen -spec <providers.yaml|json> [-dir <pkg dir>] -out <file.gen.go>")
		return 2
	}

	if err := generate(*specPath, *dir, filepath.Clean(*outPath)); err != nil {
		_, _ = fmt.Fprintln(stderr, "andigen:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}
