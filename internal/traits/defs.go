package traits

import (
	"keel/internal/ast"
	"keel/internal/scheme"
	"keel/internal/source"
	"keel/internal/types"
)

// TypeInfo is an entry of the nominal type table. Vars are the type's
// generic parameters as registry variables; field types mention them.
type TypeInfo struct {
	Name   string
	Module string
	Arity  int
	Span   source.Span
	Struct bool
	Vars   []types.VarID
	Fields []FieldDef
}

type FieldDef struct {
	Name string
	Span source.Span
	Type types.Type
}

// Field returns the named field.
func (info *TypeInfo) Field(name string) (FieldDef, bool) {
	for _, f := range info.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Generic is a generic parameter of an impl, extension or method, bound to
// a registry variable.
type Generic struct {
	Name   string
	Var    types.VarID
	Bounds []string
	Span   source.Span
	// BoundSpans parallels Bounds.
	BoundSpans []source.Span
}

// MethodSig is a lowered method. Scheme quantifies the owner's variables
// (Self for trait methods, the impl generics otherwise) followed by the
// method's own generics.
type MethodSig struct {
	Name       string
	Span       source.Span
	NameSpan   source.Span
	Decl       ast.DeclID
	Generics   []Generic
	ParamNames []string
	Scheme     scheme.Scheme
	// HasSelf reports that the first parameter is the receiver.
	HasSelf    bool
	HasDefault bool
}

// Fn returns the unquantified signature.
func (m *MethodSig) Fn() types.Type { return m.Scheme.Type }

type SuperRef struct {
	Name string
	Span source.Span
	// ID is NoTraitID when the supertrait is not declared.
	ID TraitID
}

type AssocDef struct {
	Name string
	Span source.Span
}

// TraitDef is a trait declaration. Self is the registry variable standing
// for the implementing type in every method signature.
type TraitDef struct {
	ID       TraitID
	Name     string
	Module   string
	Span     source.Span
	NameSpan source.Span
	Decl     ast.DeclID
	Self     types.VarID
	Supers   []SuperRef
	Methods  []MethodSig
	Assoc    []AssocDef
	// Cyclic marks traits on a supertrait cycle.
	Cyclic bool
}

func (t *TraitDef) Method(name string) (*MethodSig, bool) {
	return findMethod(t.Methods, name)
}

func (t *TraitDef) HasAssoc(name string) bool {
	for _, a := range t.Assoc {
		if a.Name == name {
			return true
		}
	}
	return false
}

type AssocBinding struct {
	Name string
	Span source.Span
	Type types.Type
}

// ImplEntry is an impl block. Trait is NoTraitID for inherent impls and for
// impls naming an undeclared trait; TraitName tells the two apart.
type ImplEntry struct {
	ID        ImplID
	Trait     TraitID
	TraitName string
	Module    string
	Span      source.Span
	NameSpan  source.Span
	Decl      ast.DeclID
	Generics  []Generic
	// Target is a pattern over the generic variables.
	Target     types.Type
	TargetSpan source.Span
	// Head is the index key of Target; "" for a bare generic target.
	Head    string
	Rank    Rank
	Methods []MethodSig
	Assoc   []AssocBinding
}

// Inherent reports an impl without a trait.
func (i *ImplEntry) Inherent() bool { return i.TraitName == "" }

func (i *ImplEntry) Method(name string) (*MethodSig, bool) {
	return findMethod(i.Methods, name)
}

func (i *ImplEntry) AssocType(name string) (types.Type, bool) {
	for _, a := range i.Assoc {
		if a.Name == name {
			return a.Type, true
		}
	}
	return types.Error, false
}

// Vars lists the generic variables of the impl in declaration order.
func (i *ImplEntry) Vars() []types.VarID {
	return genericVars(i.Generics)
}

// ExtensionEntry is an `extend` block: methods attached to a target without
// a trait.
type ExtensionEntry struct {
	ID         ExtID
	Module     string
	Span       source.Span
	Decl       ast.DeclID
	Generics   []Generic
	Target     types.Type
	TargetSpan source.Span
	Head       string
	Methods    []MethodSig
}

func (e *ExtensionEntry) Method(name string) (*MethodSig, bool) {
	return findMethod(e.Methods, name)
}

func (e *ExtensionEntry) Vars() []types.VarID {
	return genericVars(e.Generics)
}

func findMethod(methods []MethodSig, name string) (*MethodSig, bool) {
	for i := range methods {
		if methods[i].Name == name {
			return &methods[i], true
		}
	}
	return nil, false
}

func genericVars(gs []Generic) []types.VarID {
	out := make([]types.VarID, len(gs))
	for i, g := range gs {
		out[i] = g.Var
	}
	return out
}

func genericBounds(gs []Generic) []scheme.Bound {
	var out []scheme.Bound
	for _, g := range gs {
		for _, b := range g.Bounds {
			out = append(out, scheme.Bound{Var: g.Var, Trait: b})
		}
	}
	return out
}
