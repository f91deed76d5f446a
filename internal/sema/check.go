// Package sema infers the types of function bodies against a frozen trait
// registry. Each body gets its own substitution and variable counter, so
// bodies may be checked in parallel.
package sema

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-set/v3"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/lower"
	"keel/internal/resolve"
	"keel/internal/scheme"
	"keel/internal/source"
	"keel/internal/trace"
	"keel/internal/traits"
	"keel/internal/types"
	"keel/internal/unify"
)

// Options configure the inference of one body.
type Options struct {
	// MaxDepth caps expression nesting and unification depth; 0 uses the
	// registry's setting.
	MaxDepth int
	// FailFast stops the body at its first error.
	FailFast       bool
	MaxDiagnostics int
}

// Selection records the implementation a call site dispatches to.
type Selection struct {
	Kind   resolve.Kind   `msgpack:"kind" json:"kind"`
	Impl   traits.ImplID  `msgpack:"impl,omitempty" json:"impl,omitempty"`
	Trait  traits.TraitID `msgpack:"trait,omitempty" json:"trait,omitempty"`
	Ext    traits.ExtID   `msgpack:"ext,omitempty" json:"ext,omitempty"`
	Method string         `msgpack:"method" json:"method"`
}

// BodyResult is the typed form of one body. Every type in ExprTypes is
// closed: unresolved variables are replaced by the error type and variables
// generalized by a let are shown as named parameters.
type BodyResult struct {
	Decl      ast.DeclID                  `msgpack:"decl" json:"decl"`
	Name      string                      `msgpack:"name" json:"name"`
	Type      types.Type                  `msgpack:"type" json:"type"`
	ExprTypes map[ast.ExprID]types.Type   `msgpack:"exprs" json:"exprs"`
	Methods   map[ast.ExprID]Selection    `msgpack:"methods,omitempty" json:"methods,omitempty"`
	Diags     []diag.Diagnostic           `msgpack:"diags,omitempty" json:"diags,omitempty"`
	// Cancelled is set when the context ended before the body was done.
	Cancelled bool `msgpack:"-" json:"cancelled,omitempty"`
}

// HasErrors reports whether any diagnostic of the body is an error.
func (r *BodyResult) HasErrors() bool {
	for i := range r.Diags {
		if r.Diags[i].Severity >= diag.SevError {
			return true
		}
	}
	return false
}

type obligation struct {
	Type  types.Type
	Trait string
	Span  source.Span
}

type typeChecker struct {
	ctx      context.Context
	reg      *traits.Registry
	globals  *Globals
	unit     *ast.Unit
	body     *Body
	opts     Options
	maxDepth int
	bag      *diag.Bag
	reporter *diag.CountingReporter

	tracer    trace.Tracer
	exprDepth int

	subst       *types.Subst
	fresh       *scheme.Fresh
	unifier     *unify.Unifier
	resolver    *resolve.Resolver
	scope       *lower.Scope
	env         Env
	paramEnv    traits.ParamEnv
	generics    map[string]traits.Generic
	obligations []obligation
	generalized *set.Set[types.VarID]
	visited     []ast.ExprID
	halted      bool
	result      *BodyResult
}

// CheckBody infers the body declared by decl. It fails only when decl is
// not a body of the unit; every problem inside the body is a diagnostic.
func CheckBody(ctx context.Context, reg *traits.Registry, globals *Globals, decl ast.DeclID, opts Options) (*BodyResult, error) {
	body, ok := globals.Body(decl)
	if !ok {
		return nil, fmt.Errorf("sema: declaration %d has no body", decl)
	}
	fn, ok := reg.Unit().Decls.Fn(decl)
	if !ok || !fn.Body.IsValid() {
		return nil, fmt.Errorf("sema: declaration %d is not a function body", decl)
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeBody, "infer:"+body.Name, trace.CurrentSpan(ctx).SpanID)

	tc := newTypeChecker(ctx, reg, globals, body, opts)
	tc.tracer = tracer
	tc.run(fn)

	span.WithExtra("exprs", strconv.Itoa(len(tc.result.ExprTypes))).
		WithExtra("errors", strconv.Itoa(tc.reporter.Errors))
	span.End("")
	return tc.result, nil
}

func newTypeChecker(ctx context.Context, reg *traits.Registry, globals *Globals, body *Body, opts Options) *typeChecker {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = reg.MaxDepth()
	}
	if maxDepth <= 0 {
		maxDepth = unify.DefaultMaxDepth
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	tc := &typeChecker{
		ctx:         ctx,
		reg:         reg,
		globals:     globals,
		unit:        reg.Unit(),
		body:        body,
		opts:        opts,
		maxDepth:    maxDepth,
		bag:         bag,
		reporter:    &diag.CountingReporter{Next: diag.BagReporter{Bag: bag}},
		tracer:      trace.Nop,
		subst:       types.NewSubst(),
		fresh:       scheme.NewFresh(globals.VarCeiling()),
		env:         NewEnv(),
		paramEnv:    make(traits.ParamEnv, len(body.Generics)),
		generics:    make(map[string]traits.Generic, len(body.Generics)),
		generalized: set.New[types.VarID](0),
		result: &BodyResult{
			Decl:      body.Decl,
			Name:      body.Name,
			ExprTypes: make(map[ast.ExprID]types.Type),
			Methods:   make(map[ast.ExprID]Selection),
		},
	}
	tc.resolver = resolve.New(reg, tc.paramEnv)
	tc.unifier = unify.New(tc.subst, tc.resolver, maxDepth)
	return tc
}

// run binds the generics as rigid parameters, seeds the environment with
// the parameters and checks the body against the declared result.
func (tc *typeChecker) run(fn *ast.FnDecl) {
	rigid := make(map[types.VarID]types.Type, len(tc.body.Generics))
	names := make(map[string]types.Type, len(tc.body.Generics))
	for _, g := range tc.body.Generics {
		p := types.MakeParam(g.Name)
		rigid[g.Var] = p
		names[g.Name] = p
		tc.paramEnv[g.Name] = g.Bounds
		tc.generics[g.Name] = g
	}
	sig := scheme.Substitute(tc.body.Scheme.Type, rigid)
	tc.result.Type = sig

	tc.scope = &lower.Scope{
		Unit:     tc.unit,
		Types:    tc.reg,
		Generics: names,
		Infer:    tc.fresh.Var,
		Reporter: tc.reporter,
		MaxDepth: tc.maxDepth,
	}
	if tc.body.Self != nil {
		self := scheme.Substitute(*tc.body.Self, rigid)
		tc.scope.Self = &self
		tc.scope.SelfTrait = tc.body.SelfTrait
	}

	for i, name := range tc.body.ParamNames {
		if i < len(sig.Args) {
			tc.env = tc.env.Extend(name, scheme.Mono(sig.Args[i]))
		}
	}
	tc.typeExpr(fn.Body, sig.Ret())
	tc.finish()
}

// stopped reports whether inference should give up on the rest of the body.
func (tc *typeChecker) stopped() bool {
	if tc.halted {
		return true
	}
	if tc.ctx != nil && tc.ctx.Err() != nil {
		tc.halted = true
		tc.result.Cancelled = true
		return true
	}
	if tc.opts.FailFast && tc.reporter.Errors > 0 {
		tc.halted = true
	}
	return tc.halted
}

func (tc *typeChecker) report(code diag.Code, sp source.Span, format string, args ...any) {
	diag.ReportError(tc.reporter, code, sp, fmt.Sprintf(format, args...)).Emit()
}

func (tc *typeChecker) record(id ast.ExprID, t types.Type) types.Type {
	if _, seen := tc.result.ExprTypes[id]; !seen {
		tc.visited = append(tc.visited, id)
	}
	tc.result.ExprTypes[id] = t
	return t
}

func (tc *typeChecker) exprSpan(id ast.ExprID) source.Span {
	if expr := tc.unit.Exprs.Get(id); expr != nil {
		return expr.Span
	}
	return source.Span{}
}

// instantiate copies s with fresh variables; its bounds become obligations
// checked when the body is finished.
func (tc *typeChecker) instantiate(s scheme.Scheme, sp source.Span) types.Type {
	t, obs := scheme.InstantiateBounds(s, tc.fresh)
	for _, ob := range obs {
		tc.obligations = append(tc.obligations, obligation{Type: ob.Type, Trait: ob.Trait, Span: sp})
	}
	return t
}

// label renders t for messages with the current substitution applied.
func (tc *typeChecker) label(t types.Type) string {
	return tc.unifier.Normalize(t).String()
}

// poison binds every unresolved variable of t to the error type, so the
// same unknown is not reported twice.
func (tc *typeChecker) poison(t types.Type) {
	for v := range types.FreeVars(tc.subst.Apply(t)).Items() {
		if !tc.generalized.Contains(v) {
			tc.subst.Bind(v, types.Error)
		}
	}
}
