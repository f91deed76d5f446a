package sema

import (
	"fmt"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/lower"
	"keel/internal/scheme"
	"keel/internal/source"
	"keel/internal/traits"
	"keel/internal/types"
)

// Global is a top-level function or a prelude value.
type Global struct {
	Name     string
	Decl     ast.DeclID
	NameSpan source.Span
	Generics []traits.Generic
	// ParamNames is nil for prelude values that are not functions.
	ParamNames []string
	Scheme     scheme.Scheme
}

// Body is one body to infer: a top-level function, an impl or extension
// method, or a trait default. Generics lists the owner's parameters before
// the method's own; Scheme quantifies exactly their variables.
type Body struct {
	Decl       ast.DeclID
	Name       string
	Generics   []traits.Generic
	ParamNames []string
	Scheme     scheme.Scheme
	// Self is the owner's target pattern, nil for top-level functions.
	Self      *types.Type
	SelfTrait string
}

// Globals is the frozen table of top-level names shared by every body of a
// unit. Its variables sit between the registry's and the workers'.
type Globals struct {
	byName  map[string]*Global
	order   []string
	bodies  []Body
	byDecl  map[ast.DeclID]int
	ceiling types.VarID
}

// BuildGlobals lowers every top-level function signature and collects the
// bodies of the unit. Signatures must be fully annotated; a missing result
// type means void.
func BuildGlobals(reg *traits.Registry, r diag.Reporter) *Globals {
	g := &Globals{
		byName: make(map[string]*Global),
		byDecl: make(map[ast.DeclID]int),
	}
	fresh := scheme.NewFresh(reg.VarCeiling())
	g.addPrelude(fresh)

	unit := reg.Unit()
	for _, id := range unit.Functions() {
		d := unit.Decls.Get(id)
		name := unit.Name(d.Name)
		if prev, ok := g.byName[name]; ok && prev.Decl.IsValid() {
			diag.ReportError(r, diag.DuplicateDefinition, d.NameSpan,
				fmt.Sprintf("the function `%s` is defined multiple times", name)).
				WithNote(prev.NameSpan, "previous definition here").
				Emit()
			continue
		}
		glob := lowerFunction(reg, r, fresh, id)
		if _, shadowed := g.byName[name]; !shadowed {
			g.order = append(g.order, name)
		}
		g.byName[name] = glob
		if fn, _ := unit.Decls.Fn(id); fn.Body.IsValid() {
			g.addBody(Body{
				Decl:       id,
				Name:       name,
				Generics:   glob.Generics,
				ParamNames: glob.ParamNames,
				Scheme:     glob.Scheme,
			})
		}
	}
	g.collectMethodBodies(reg)
	g.ceiling = fresh.Peek()
	return g
}

func (g *Globals) addBody(b Body) {
	g.byDecl[b.Decl] = len(g.bodies)
	g.bodies = append(g.bodies, b)
}

func lowerFunction(reg *traits.Registry, r diag.Reporter, fresh *scheme.Fresh, id ast.DeclID) *Global {
	unit := reg.Unit()
	d := unit.Decls.Get(id)
	fn, _ := unit.Decls.Fn(id)
	glob := &Global{Name: unit.Name(d.Name), Decl: id, NameSpan: d.NameSpan}

	names := make(map[string]types.Type, len(fn.Generics))
	var vars []types.VarID
	var bounds []scheme.Bound
	for _, p := range fn.Generics {
		gen := traits.Generic{Name: unit.Name(p.Name), Var: fresh.ID(), Span: p.Span}
		for _, b := range p.Bounds {
			gen.Bounds = append(gen.Bounds, unit.Name(b.Name))
			gen.BoundSpans = append(gen.BoundSpans, b.Span)
			bounds = append(bounds, scheme.Bound{Var: gen.Var, Trait: unit.Name(b.Name)})
		}
		names[gen.Name] = types.MakeVar(gen.Var)
		vars = append(vars, gen.Var)
		glob.Generics = append(glob.Generics, gen)
	}
	scope := &lower.Scope{
		Unit:     unit,
		Types:    reg,
		Generics: names,
		Reporter: r,
		MaxDepth: reg.MaxDepth(),
	}
	params := make([]types.Type, 0, len(fn.Params))
	for _, p := range fn.Params {
		name := unit.Name(p.Name)
		glob.ParamNames = append(glob.ParamNames, name)
		if !p.Type.IsValid() {
			diag.ReportError(r, diag.TypeAnnotationsNeeded, p.Span,
				fmt.Sprintf("parameter `%s` of `%s` needs a type annotation", name, glob.Name)).Emit()
			params = append(params, types.Error)
			continue
		}
		params = append(params, scope.Type(p.Type))
	}
	glob.Scheme = scheme.Poly(vars, bounds, types.MakeFn(params, scope.Type(fn.Result)))
	return glob
}

// collectMethodBodies adds the bodies found in traits, impls and extensions.
// A trait body sees Self as a parameter bounded by the trait itself.
func (g *Globals) collectMethodBodies(reg *traits.Registry) {
	defs := reg.Traits()
	for i := range defs {
		def := &defs[i]
		self := types.MakeVar(def.Self)
		owner := traits.Generic{Name: "Self", Var: def.Self, Bounds: []string{def.Name}, Span: def.NameSpan}
		for _, m := range def.Methods {
			if !m.HasDefault {
				continue
			}
			g.addBody(Body{
				Decl:       m.Decl,
				Name:       def.Name + "." + m.Name,
				Generics:   append([]traits.Generic{owner}, m.Generics...),
				ParamNames: m.ParamNames,
				Scheme:     m.Scheme,
				Self:       &self,
				SelfTrait:  def.Name,
			})
		}
	}
	impls := reg.Impls()
	for i := range impls {
		impl := &impls[i]
		for _, m := range impl.Methods {
			if !m.HasDefault {
				continue
			}
			g.addBody(Body{
				Decl:       m.Decl,
				Name:       impl.Target.String() + "." + m.Name,
				Generics:   append(append([]traits.Generic(nil), impl.Generics...), m.Generics...),
				ParamNames: m.ParamNames,
				Scheme:     m.Scheme,
				Self:       &impl.Target,
				SelfTrait:  impl.TraitName,
			})
		}
	}
	exts := reg.Extensions()
	for i := range exts {
		ext := &exts[i]
		for _, m := range ext.Methods {
			if !m.HasDefault {
				continue
			}
			g.addBody(Body{
				Decl:       m.Decl,
				Name:       ext.Target.String() + "." + m.Name,
				Generics:   append(append([]traits.Generic(nil), ext.Generics...), m.Generics...),
				ParamNames: m.ParamNames,
				Scheme:     m.Scheme,
				Self:       &ext.Target,
			})
		}
	}
}

// addPrelude installs Some, None, Ok, Err and print. User functions of the
// same name replace them.
func (g *Globals) addPrelude(fresh *scheme.Fresh) {
	add := func(name string, params []string, s scheme.Scheme) {
		g.byName[name] = &Global{Name: name, ParamNames: params, Scheme: s}
		g.order = append(g.order, name)
	}
	a := fresh.ID()
	add("Some", []string{"value"}, scheme.Poly([]types.VarID{a}, nil,
		types.MakeFn([]types.Type{types.MakeVar(a)}, types.Option(types.MakeVar(a)))))
	a = fresh.ID()
	add("None", nil, scheme.Poly([]types.VarID{a}, nil, types.Option(types.MakeVar(a))))
	t, e := fresh.ID(), fresh.ID()
	result := types.MakeApplied(types.ResultName, types.MakeVar(t), types.MakeVar(e))
	add("Ok", []string{"value"}, scheme.Poly([]types.VarID{t, e}, nil,
		types.MakeFn([]types.Type{types.MakeVar(t)}, result)))
	t, e = fresh.ID(), fresh.ID()
	result = types.MakeApplied(types.ResultName, types.MakeVar(t), types.MakeVar(e))
	add("Err", []string{"error"}, scheme.Poly([]types.VarID{t, e}, nil,
		types.MakeFn([]types.Type{types.MakeVar(e)}, result)))
	add("print", []string{"msg"}, scheme.Mono(types.MakeFn([]types.Type{types.Str}, types.Unit)))
}

func (g *Globals) Lookup(name string) (*Global, bool) {
	glob, ok := g.byName[name]
	return glob, ok
}

// Names lists global names in declaration order, prelude first.
func (g *Globals) Names() []string { return g.order }

func (g *Globals) Bodies() []Body { return g.bodies }

// Body returns the body declared by id.
func (g *Globals) Body(id ast.DeclID) (*Body, bool) {
	i, ok := g.byDecl[id]
	if !ok {
		return nil, false
	}
	return &g.bodies[i], true
}

// VarCeiling is the first variable id free for inference workers.
func (g *Globals) VarCeiling() types.VarID { return g.ceiling }
