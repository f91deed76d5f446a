package traits

import (
	"fmt"

	"fortio.org/safecast"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/lower"
	"keel/internal/scheme"
	"keel/internal/source"
	"keel/internal/types"
)

// StdModule owns the prelude types.
const StdModule = "std"

var preludeTypes = []TypeInfo{
	{Name: types.ListName, Module: StdModule, Arity: 1},
	{Name: types.OptionName, Module: StdModule, Arity: 1},
	{Name: types.ResultName, Module: StdModule, Arity: 2},
	{Name: types.MapName, Module: StdModule, Arity: 2},
	{Name: types.SetName, Module: StdModule, Arity: 1},
}

type Options struct {
	MaxDepth int
}

// Builder collects declarations in one single-threaded pass. It reports
// lowering problems and duplicate traits; everything else about validity is
// left to the coherence checker.
type Builder struct {
	unit     *ast.Unit
	reporter diag.Reporter
	fresh    *scheme.Fresh
	maxDepth int

	typeOrder  []string
	typeTable  map[string]TypeInfo
	traits     []TraitDef
	traitIndex map[string]TraitID
	impls      []ImplEntry
	exts       []ExtensionEntry
	frozen     bool
}

func NewBuilder(unit *ast.Unit, reporter diag.Reporter, opts Options) *Builder {
	return &Builder{
		unit:       unit,
		reporter:   reporter,
		fresh:      scheme.NewFresh(1),
		maxDepth:   opts.MaxDepth,
		typeTable:  make(map[string]TypeInfo),
		traits:     make([]TraitDef, 1, 16), // index 0 reserved for NoTraitID
		traitIndex: make(map[string]TraitID),
		impls:      make([]ImplEntry, 1, 32),
		exts:       make([]ExtensionEntry, 1, 8),
	}
}

// TypeArity implements lower.TypeTable.
func (b *Builder) TypeArity(name string) (int, bool) {
	info, ok := b.typeTable[name]
	return info.Arity, ok
}

// Register walks the unit's items: types first, then trait headers, so
// signatures may refer to declarations that come later in the unit.
func (b *Builder) Register() {
	items := b.unit.Items
	var typeDecls []ast.DeclID
	for _, id := range items {
		if b.unit.Decls.Get(id).Kind == ast.DeclType && b.AddType(id) {
			typeDecls = append(typeDecls, id)
		}
	}
	for _, info := range preludeTypes {
		if _, ok := b.typeTable[info.Name]; !ok {
			b.addTypeInfo(info)
		}
	}
	for _, id := range typeDecls {
		b.lowerFields(id)
	}
	var traitIDs []TraitID
	for _, id := range items {
		if b.unit.Decls.Get(id).Kind == ast.DeclTrait {
			if tid := b.AddTrait(id); tid.IsValid() {
				traitIDs = append(traitIDs, tid)
			}
		}
	}
	for _, tid := range traitIDs {
		b.lowerTrait(tid)
	}
	for _, id := range items {
		switch b.unit.Decls.Get(id).Kind {
		case ast.DeclImpl:
			b.AddImpl(id)
		case ast.DeclExtend:
			b.AddExtension(id)
		}
	}
}

func (b *Builder) addTypeInfo(info TypeInfo) {
	b.typeOrder = append(b.typeOrder, info.Name)
	b.typeTable[info.Name] = info
}

// AddType records a nominal type; a second declaration of the same name is
// reported and ignored.
func (b *Builder) AddType(id ast.DeclID) bool {
	d := b.unit.Decls.Get(id)
	td, _ := b.unit.Decls.Type(id)
	name := b.unit.Name(d.Name)
	if prev, ok := b.typeTable[name]; ok {
		diag.ReportError(b.reporter, diag.DuplicateDefinition, d.NameSpan,
			fmt.Sprintf("the type `%s` is defined multiple times", name)).
			WithNote(prev.Span, "previous definition here").
			Emit()
		return false
	}
	b.addTypeInfo(TypeInfo{
		Name:   name,
		Module: b.unit.Name(d.Module),
		Arity:  len(td.Generics),
		Span:   d.NameSpan,
		Struct: td.Struct,
	})
	return true
}

// lowerFields fills in the field table once every type name is known.
func (b *Builder) lowerFields(id ast.DeclID) {
	td, _ := b.unit.Decls.Type(id)
	name := b.unit.Name(b.unit.Decls.Get(id).Name)
	info := b.typeTable[name]
	if !info.Struct {
		return
	}
	generics, scope := b.generics(td.Generics, b.scope(nil, ""))
	info.Vars = genericVars(generics)
	seen := make(map[string]source.Span, len(td.Fields))
	for _, f := range td.Fields {
		fname := b.unit.Name(f.Name)
		if prev, dup := seen[fname]; dup {
			diag.ReportError(b.reporter, diag.DuplicateDefinition, f.Span,
				fmt.Sprintf("the field `%s` of `%s` is declared multiple times", fname, name)).
				WithNote(prev, "first declared here").
				Emit()
			continue
		}
		seen[fname] = f.Span
		info.Fields = append(info.Fields, FieldDef{Name: fname, Span: f.Span, Type: scope.Type(f.Type)})
	}
	b.typeTable[name] = info
}

// AddTrait registers the trait header. Methods are lowered later, once every
// trait name is known.
func (b *Builder) AddTrait(id ast.DeclID) TraitID {
	d := b.unit.Decls.Get(id)
	td, _ := b.unit.Decls.Trait(id)
	name := b.unit.Name(d.Name)
	if prev, ok := b.traitIndex[name]; ok {
		diag.ReportError(b.reporter, diag.DuplicateTrait, d.NameSpan,
			fmt.Sprintf("trait `%s` is already registered", name)).
			WithNote(b.traits[prev].NameSpan, "first registered here").
			Emit()
		return NoTraitID
	}
	tid := TraitID(b.nextIndex(len(b.traits)))
	def := TraitDef{
		ID:       tid,
		Name:     name,
		Module:   b.unit.Name(d.Module),
		Span:     d.Span,
		NameSpan: d.NameSpan,
		Decl:     id,
		Self:     b.fresh.ID(),
	}
	for _, s := range td.Supers {
		def.Supers = append(def.Supers, SuperRef{Name: b.unit.Name(s.Name), Span: s.Span})
	}
	for _, a := range td.Assoc {
		def.Assoc = append(def.Assoc, AssocDef{Name: b.unit.Name(a.Name), Span: a.Span})
	}
	b.traits = append(b.traits, def)
	b.traitIndex[name] = tid
	return tid
}

func (b *Builder) lowerTrait(tid TraitID) {
	def := &b.traits[tid]
	td, _ := b.unit.Decls.Trait(def.Decl)
	self := types.MakeVar(def.Self)
	scope := b.scope(&self, def.Name)
	owner := []scheme.Bound{{Var: def.Self, Trait: def.Name}}
	for _, m := range td.Methods {
		def.Methods = append(def.Methods, b.lowerMethod(m, scope, []types.VarID{def.Self}, owner, self))
	}
}

// AddImpl registers an impl block and computes its rank and head.
func (b *Builder) AddImpl(id ast.DeclID) ImplID {
	d := b.unit.Decls.Get(id)
	impl, _ := b.unit.Decls.Impl(id)
	iid := ImplID(b.nextIndex(len(b.impls)))
	generics, scope := b.generics(impl.Generics, b.scope(nil, ""))
	target := scope.Type(impl.Target)
	entry := ImplEntry{
		ID:         iid,
		TraitName:  b.unit.Name(d.Name),
		Module:     b.unit.Name(d.Module),
		Span:       d.Span,
		NameSpan:   d.NameSpan,
		Decl:       id,
		Generics:   generics,
		Target:     target,
		TargetSpan: b.typeSpan(impl.Target),
		Head:       types.Head(target),
		Rank:       rankOf(generics),
	}
	if entry.TraitName != "" {
		entry.Trait = b.traitIndex[entry.TraitName]
	}
	scope.Self = &entry.Target
	scope.SelfTrait = entry.TraitName
	for _, a := range impl.Assoc {
		entry.Assoc = append(entry.Assoc, AssocBinding{
			Name: b.unit.Name(a.Name),
			Span: a.Span,
			Type: scope.Type(a.Type),
		})
	}
	vars, bounds := genericVars(generics), genericBounds(generics)
	for _, m := range impl.Methods {
		entry.Methods = append(entry.Methods, b.lowerMethod(m, scope, vars, bounds, target))
	}
	b.impls = append(b.impls, entry)
	return iid
}

// AddExtension registers an `extend` block.
func (b *Builder) AddExtension(id ast.DeclID) ExtID {
	d := b.unit.Decls.Get(id)
	ext, _ := b.unit.Decls.Extend(id)
	eid := ExtID(b.nextIndex(len(b.exts)))
	generics, scope := b.generics(ext.Generics, b.scope(nil, ""))
	target := scope.Type(ext.Target)
	entry := ExtensionEntry{
		ID:         eid,
		Module:     b.unit.Name(d.Module),
		Span:       d.Span,
		Decl:       id,
		Generics:   generics,
		Target:     target,
		TargetSpan: b.typeSpan(ext.Target),
		Head:       types.Head(target),
	}
	scope.Self = &entry.Target
	vars, bounds := genericVars(generics), genericBounds(generics)
	for _, m := range ext.Methods {
		entry.Methods = append(entry.Methods, b.lowerMethod(m, scope, vars, bounds, target))
	}
	b.exts = append(b.exts, entry)
	return eid
}

func (b *Builder) scope(self *types.Type, selfTrait string) *lower.Scope {
	return &lower.Scope{
		Unit:      b.unit,
		Types:     b,
		Self:      self,
		SelfTrait: selfTrait,
		Reporter:  b.reporter,
		MaxDepth:  b.maxDepth,
	}
}

// generics binds each parameter to a fresh registry variable and returns the
// scope extended with them.
func (b *Builder) generics(params []ast.GenericParam, scope *lower.Scope) ([]Generic, *lower.Scope) {
	if len(params) == 0 {
		return nil, scope
	}
	out := make([]Generic, 0, len(params))
	names := make(map[string]types.Type, len(params))
	for _, p := range params {
		g := Generic{Name: b.unit.Name(p.Name), Var: b.fresh.ID(), Span: p.Span}
		for _, bound := range p.Bounds {
			g.Bounds = append(g.Bounds, b.unit.Name(bound.Name))
			g.BoundSpans = append(g.BoundSpans, bound.Span)
		}
		names[g.Name] = types.MakeVar(g.Var)
		out = append(out, g)
	}
	return out, scope.With(names)
}

// lowerMethod lowers a method signature. A bare `self` parameter takes the
// owner's self type.
func (b *Builder) lowerMethod(id ast.DeclID, owner *lower.Scope, ownerVars []types.VarID, ownerBounds []scheme.Bound, self types.Type) MethodSig {
	d := b.unit.Decls.Get(id)
	fn, _ := b.unit.Decls.Fn(id)
	generics, scope := b.generics(fn.Generics, owner)
	sig := MethodSig{
		Name:       b.unit.Name(d.Name),
		Span:       d.Span,
		NameSpan:   d.NameSpan,
		Decl:       id,
		Generics:   generics,
		HasDefault: fn.Body.IsValid(),
	}
	params := make([]types.Type, 0, len(fn.Params))
	for i, p := range fn.Params {
		name := b.unit.Name(p.Name)
		if i == 0 && name == "self" {
			sig.HasSelf = true
		}
		sig.ParamNames = append(sig.ParamNames, name)
		params = append(params, scope.Optional(p.Type, self))
	}
	fnType := types.MakeFn(params, scope.Type(fn.Result))
	vars := append(append([]types.VarID(nil), ownerVars...), genericVars(generics)...)
	bounds := append(append([]scheme.Bound(nil), ownerBounds...), genericBounds(generics)...)
	sig.Scheme = scheme.Poly(vars, bounds, fnType)
	return sig
}

func (b *Builder) typeSpan(id ast.TypeExprID) source.Span {
	if te := b.unit.Types.Get(id); te != nil {
		return te.Span
	}
	return source.Span{}
}

func (b *Builder) nextIndex(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("registry arena overflow: %w", err))
	}
	return v
}
