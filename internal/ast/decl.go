package ast

import (
	"keel/internal/source"
)

type DeclKind uint8

const (
	DeclFn DeclKind = iota
	DeclType
	DeclTrait
	DeclImpl
	DeclExtend
)

func (k DeclKind) String() string {
	switch k {
	case DeclFn:
		return "fn"
	case DeclType:
		return "type"
	case DeclTrait:
		return "trait"
	case DeclImpl:
		return "impl"
	case DeclExtend:
		return "extend"
	}
	return "decl"
}

// Decl is a declaration with the module that owns it. For impls Name is the
// implemented trait, or NoStringID for an inherent impl.
type Decl struct {
	Kind     DeclKind
	Span     source.Span
	Module   source.StringID
	Name     source.StringID
	NameSpan source.Span
	Payload  PayloadID
}

// TraitRef names a trait in a bound or a supertrait list.
type TraitRef struct {
	Name source.StringID
	Span source.Span
}

type GenericParam struct {
	Name   source.StringID
	Span   source.Span
	Bounds []TraitRef
}

type Param struct {
	Name source.StringID
	Span source.Span
	// Type is NoTypeExprID for a bare `self`.
	Type TypeExprID
}

// FnDecl is a function or method. A method without Body inside a trait is
// required; with Body it is a default. A top-level function without Body is
// an external declaration.
type FnDecl struct {
	Generics []GenericParam
	Params   []Param
	Result   TypeExprID
	Body     ExprID
}

// Field is a named field of a struct type.
type Field struct {
	Name source.StringID
	Span source.Span
	Type TypeExprID
}

// TypeDecl is a nominal type. A type without Fields is opaque unless
// Struct is set, in which case it is constructed with no fields.
type TypeDecl struct {
	Generics []GenericParam
	Fields   []Field
	Struct   bool
}

type AssocDecl struct {
	Name source.StringID
	Span source.Span
}

type TraitDecl struct {
	Supers  []TraitRef
	Assoc   []AssocDecl
	Methods []DeclID
}

type AssocBinding struct {
	Name source.StringID
	Span source.Span
	Type TypeExprID
}

type ImplDecl struct {
	Generics []GenericParam
	Target   TypeExprID
	Assoc    []AssocBinding
	Methods  []DeclID
}

type ExtendDecl struct {
	Generics []GenericParam
	Target   TypeExprID
	Methods  []DeclID
}

type Decls struct {
	Arena   *Arena[Decl]
	Fns     *Arena[FnDecl]
	Types   *Arena[TypeDecl]
	Traits  *Arena[TraitDecl]
	Impls   *Arena[ImplDecl]
	Extends *Arena[ExtendDecl]
}

func NewDecls(capHint uint) *Decls {
	if capHint == 0 {
		capHint = 1 << 6
	}
	return &Decls{
		Arena:   NewArena[Decl](capHint),
		Fns:     NewArena[FnDecl](capHint),
		Types:   NewArena[TypeDecl](capHint / 4),
		Traits:  NewArena[TraitDecl](capHint / 4),
		Impls:   NewArena[ImplDecl](capHint / 4),
		Extends: NewArena[ExtendDecl](capHint / 8),
	}
}

func (d *Decls) Get(id DeclID) *Decl {
	return d.Arena.Get(uint32(id))
}

func (d *Decls) new(kind DeclKind, head Decl, payload uint32) DeclID {
	head.Kind = kind
	head.Payload = PayloadID(payload)
	return DeclID(d.Arena.Allocate(head))
}

func declPayload[T any](d *Decls, id DeclID, kind DeclKind, arena *Arena[T]) (*T, bool) {
	decl := d.Get(id)
	if decl == nil || decl.Kind != kind {
		return nil, false
	}
	return arena.Get(uint32(decl.Payload)), true
}

func (d *Decls) NewFn(head Decl, fn FnDecl) DeclID {
	return d.new(DeclFn, head, d.Fns.Allocate(fn))
}

func (d *Decls) Fn(id DeclID) (*FnDecl, bool) {
	return declPayload(d, id, DeclFn, d.Fns)
}

func (d *Decls) NewType(head Decl, td TypeDecl) DeclID {
	return d.new(DeclType, head, d.Types.Allocate(td))
}

func (d *Decls) Type(id DeclID) (*TypeDecl, bool) {
	return declPayload(d, id, DeclType, d.Types)
}

func (d *Decls) NewTrait(head Decl, td TraitDecl) DeclID {
	return d.new(DeclTrait, head, d.Traits.Allocate(td))
}

func (d *Decls) Trait(id DeclID) (*TraitDecl, bool) {
	return declPayload(d, id, DeclTrait, d.Traits)
}

func (d *Decls) NewImpl(head Decl, impl ImplDecl) DeclID {
	return d.new(DeclImpl, head, d.Impls.Allocate(impl))
}

func (d *Decls) Impl(id DeclID) (*ImplDecl, bool) {
	return declPayload(d, id, DeclImpl, d.Impls)
}

func (d *Decls) NewExtend(head Decl, ext ExtendDecl) DeclID {
	return d.new(DeclExtend, head, d.Extends.Allocate(ext))
}

func (d *Decls) Extend(id DeclID) (*ExtendDecl, bool) {
	return declPayload(d, id, DeclExtend, d.Extends)
}
