// Package morphgen generates companion code for morph type declarations:
// copy and patch operations, type conversions, and serialization hooks.
//
// An Engine runs in two phases. During collection, declarations are
// registered one source unit at a time; nothing is resolved yet, so
// forward references across units are fine. Freeze ends collection, after
// which the declaration graph is read-only and generation runs over it
// concurrently.
package morphgen

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/morphlang/morphgen/dart"
	"github.com/morphlang/morphgen/ir"
	"github.com/morphlang/morphgen/parser"
	"github.com/morphlang/morphgen/resolve"
	"github.com/morphlang/morphgen/rewrite"
	"github.com/morphlang/morphgen/schema"
)

// Result is the outcome of generating one declaration. Warnings are
// advisory; Err is set when the declaration could not be generated.
type Result struct {
	Name     string
	SourceID string
	Output   string
	Warnings []ir.Warning
	Err      *Error
}

// Engine owns the declaration registry and drives generation.
type Engine struct {
	cfg Config
	reg *schema.Registry

	mu           sync.Mutex
	parseWarning map[string][]ir.Warning
}

// New creates an engine in the collection phase.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:          cfg.applyDefaults(),
		reg:          schema.NewRegistry(),
		parseWarning: make(map[string][]ir.Warning),
	}
}

// RegisterSource parses a source unit that may hold several declarations
// and registers all of them. Constructor-body failures degrade to warnings
// attached to the owning declaration.
func (e *Engine) RegisterSource(rawText, sourceID string) error {
	decls, warnings, err := parser.ParseSource(rawText, sourceID)
	if err != nil {
		return AsError(err)
	}
	return e.register(decls, warnings)
}

// RegisterDeclaration parses a single declaration. overrides, when
// non-nil, is merged into the annotation parsed from the source text;
// booleans are OR'd and subtype lists are unioned.
func (e *Engine) RegisterDeclaration(rawText, sourceID string, overrides *ir.AnnotationParams) error {
	decl, warnings, err := parser.ParseDeclaration(rawText, sourceID)
	if err != nil {
		return AsError(err)
	}
	decl.Annotation = decl.Annotation.Merge(overrides)
	return e.register([]*ir.TypeDeclaration{decl}, warnings)
}

func (e *Engine) register(decls []*ir.TypeDeclaration, warnings []ir.Warning) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, decl := range decls {
		if err := e.reg.Register(decl); err != nil {
			return AsError(err)
		}
		e.cfg.Logger.Debug("registered declaration",
			"name", decl.Name,
			"source", decl.SourceID,
			"sealed", decl.Sealed,
			"enum", decl.Enum)
	}
	for _, w := range warnings {
		e.parseWarning[w.Declaration] = append(e.parseWarning[w.Declaration], w)
	}
	return nil
}

// Freeze ends the collection phase. Registration after Freeze panics.
// Freeze is idempotent.
func (e *Engine) Freeze() {
	e.reg.Freeze()
}

// Names returns the registered declaration names in sorted order.
func (e *Engine) Names() []string {
	return e.reg.Names()
}

// Check validates the frozen graph without producing output: dangling
// references, circular inheritance, generic arity, sealed-scope rules.
// It returns one error per failing declaration.
func (e *Engine) Check() []error {
	e.reg.Freeze()
	errs := e.reg.Validate()
	if len(errs) > 0 {
		out := make([]error, len(errs))
		for i, err := range errs {
			out[i] = AsError(err)
		}
		return out
	}

	res := resolve.NewResolver(e.reg)
	var out []error
	for _, name := range e.reg.Names() {
		if _, err := res.Resolve(name); err != nil {
			out = append(out, AsError(err).WithDeclaration(name))
		}
	}
	return out
}

// Generate produces the output unit for one declaration. The engine
// freezes on first use, so no further registration is possible afterward.
func (e *Engine) Generate(ctx context.Context, name string) (*Result, error) {
	e.reg.Freeze()
	if err := ctx.Err(); err != nil {
		return nil, AsError(err)
	}
	decl := e.reg.Lookup(name)
	if decl == nil {
		return nil, Errorf(CodeNotFound, "unknown declaration %q", name)
	}
	res := resolve.NewResolver(e.reg)
	return e.generateOne(decl, res), nil
}

// GenerateAll generates every registered declaration concurrently and
// returns results in sorted name order. Declaration failures are reported
// per result unless FailFast is set.
func (e *Engine) GenerateAll(ctx context.Context) ([]Result, error) {
	e.reg.Freeze()
	names := e.reg.Names()
	results := make([]Result, len(names))
	res := resolve.NewResolver(e.reg)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			decl := e.reg.Lookup(name)
			r := e.generateOne(decl, res)
			results[i] = *r
			if r.Err != nil {
				e.cfg.Logger.Error("generation failed",
					"name", r.Name,
					"code", string(r.Err.Code),
					"error", r.Err.Message)
				if e.cfg.FailFast {
					return r.Err
				}
				return nil
			}
			e.cfg.Logger.Debug("generated declaration",
				"name", r.Name,
				"bytes", len(r.Output),
				"warnings", len(r.Warnings))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, AsError(err)
	}
	return results, nil
}

// generateOne runs the per-declaration pipeline: field resolution,
// operation synthesis, constructor-body rewriting, assembly. It only
// reads shared state, so concurrent calls are safe once frozen.
func (e *Engine) generateOne(decl *ir.TypeDeclaration, res *resolve.Resolver) *Result {
	out := &Result{Name: decl.Name, SourceID: decl.SourceID}

	e.mu.Lock()
	out.Warnings = append(out.Warnings, e.parseWarning[decl.Name]...)
	e.mu.Unlock()

	fields, err := res.Resolve(decl.Name)
	if err != nil {
		out.Err = AsError(err).WithDeclaration(decl.Name)
		return out
	}
	out.Warnings = append(out.Warnings, fields.Warnings...)

	synth := dart.NewSynthesizer(e.reg, res, e.cfg.Emitter)
	ops, err := synth.Operations(decl, fields)
	if err != nil {
		out.Err = AsError(err).WithDeclaration(decl.Name)
		return out
	}

	known := e.reg.KnownTypeNames()
	ctors := make([]ir.Constructor, len(decl.Constructors))
	for i, ctor := range decl.Constructors {
		ctors[i] = ctor
		if !ctor.Failed {
			ctors[i].Body = rewrite.Rewrite(ctor.Body, known)
		}
	}

	asm := dart.NewAssembler(e.cfg.Emitter, e.reg.PatchableNames())
	out.Output = asm.Emit(decl, fields, ops, ctors)
	return out
}
