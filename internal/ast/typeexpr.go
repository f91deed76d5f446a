package ast

import "keel/internal/source"

// TypeExprKind enumerates syntactic type forms.
type TypeExprKind uint8

const (
	// TypeExprPath is Name or Name<Args...>; Self and generic parameters are paths too.
	TypeExprPath TypeExprKind = iota
	// TypeExprList is [Elem].
	TypeExprList
	TypeExprFn
	TypeExprTuple
	// TypeExprProjection is Base.Assoc, optionally <Base as Trait>.Assoc.
	TypeExprProjection
	// TypeExprInfer is the placeholder _.
	TypeExprInfer
)

// TypeExpr is a type as written. Args holds path arguments, the list
// element, function parameters or tuple elements.
type TypeExpr struct {
	Kind   TypeExprKind
	Span   source.Span
	Name   source.StringID
	Args   []TypeExprID
	Result TypeExprID
	Base   TypeExprID
	Trait  source.StringID
}

type TypeExprs struct {
	Arena *Arena[TypeExpr]
}

func NewTypeExprs(capHint uint) *TypeExprs {
	return &TypeExprs{Arena: NewArena[TypeExpr](capHint)}
}

func (t *TypeExprs) New(te TypeExpr) TypeExprID {
	return TypeExprID(t.Arena.Allocate(te))
}

func (t *TypeExprs) Get(id TypeExprID) *TypeExpr {
	return t.Arena.Get(uint32(id))
}

func (t *TypeExprs) NewPath(span source.Span, name source.StringID, args ...TypeExprID) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprPath, Span: span, Name: name, Args: args})
}

func (t *TypeExprs) NewList(span source.Span, elem TypeExprID) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprList, Span: span, Args: []TypeExprID{elem}})
}

func (t *TypeExprs) NewFn(span source.Span, params []TypeExprID, result TypeExprID) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprFn, Span: span, Args: params, Result: result})
}

func (t *TypeExprs) NewTuple(span source.Span, elems ...TypeExprID) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprTuple, Span: span, Args: elems})
}

func (t *TypeExprs) NewProjection(span source.Span, base TypeExprID, assoc, trait source.StringID) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprProjection, Span: span, Base: base, Name: assoc, Trait: trait})
}

func (t *TypeExprs) NewInfer(span source.Span) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprInfer, Span: span})
}
